// Package gamedata models the slice of the host engine's map and database
// records that tag scanning and event lookup operate on.
package gamedata

import "sort"

// Event command codes recognized by the comment helpers.
const (
	CodeComment             = 108
	CodeCommentContinuation = 408
)

// Noted is any database record with a note box.
type Noted interface {
	NoteText() string
}

// Item is a database record carrying a note box. Weapons, armors, skills and
// the rest of the database share this shape for scanning purposes.
type Item struct {
	ID   int
	Name string
	Note string
}

func (i *Item) NoteText() string { return i.Note }

// Command is one step of an event page's command list.
type Command struct {
	Code   int
	Indent int
	Params []any
}

func (c Command) text() string {
	if len(c.Params) == 0 {
		return ""
	}
	s, _ := c.Params[0].(string)
	return s
}

// Page is one page of an event's command list.
type Page struct {
	Commands []Command
}

// CommentBlocks joins each run of comment commands into one block: a leading
// comment line plus its continuation lines, newline separated. Any other
// command code ends the current block. Continuations without a leading
// comment are dropped.
func (p *Page) CommentBlocks() []string {
	var blocks []string
	cur := ""
	open := false
	flush := func() {
		if open {
			blocks = append(blocks, cur)
			cur = ""
			open = false
		}
	}
	for _, c := range p.Commands {
		switch c.Code {
		case CodeComment:
			flush()
			cur = c.text()
			open = true
		case CodeCommentContinuation:
			if open {
				cur += "\n" + c.text()
			}
		default:
			flush()
		}
	}
	flush()
	return blocks
}

// Event is a map event with its position and pages.
type Event struct {
	ID    int
	Name  string
	X, Y  int
	Pages []Page
}

// CommentBlocks collects the comment blocks of every page in page order.
func (e *Event) CommentBlocks() []string {
	var blocks []string
	for i := range e.Pages {
		blocks = append(blocks, e.Pages[i].CommentBlocks()...)
	}
	return blocks
}

// Map holds the events of one loaded map, keyed by event ID.
type Map struct {
	ID     int
	Events map[int]*Event
}

// Event returns the event with the given ID.
func (m *Map) Event(id int) (*Event, bool) {
	ev, ok := m.Events[id]
	if !ok || ev == nil {
		return nil, false
	}
	return ev, true
}

// EventNamed returns the lowest-ID event with the given name.
func (m *Map) EventNamed(name string) (*Event, bool) {
	for _, ev := range m.sorted() {
		if ev.Name == name {
			return ev, true
		}
	}
	return nil, false
}

// EventsNamed returns every event with the given name, lowest ID first.
func (m *Map) EventsNamed(name string) []*Event {
	var out []*Event
	for _, ev := range m.sorted() {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

// EventsAt returns every event standing on (x, y), lowest ID first.
func (m *Map) EventsAt(x, y int) []*Event {
	var out []*Event
	for _, ev := range m.sorted() {
		if ev.X == x && ev.Y == y {
			out = append(out, ev)
		}
	}
	return out
}

func (m *Map) sorted() []*Event {
	out := make([]*Event, 0, len(m.Events))
	for _, ev := range m.Events {
		if ev != nil {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
