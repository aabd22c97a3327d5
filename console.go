package grimoire

import (
	"strings"
	"sync"
	"time"
)

const maxMessages = 1000

type timedMessage struct {
	Text string
	Time time.Time
}

type messageLog struct {
	mu      sync.Mutex
	entries []timedMessage
	max     int
}

func (l *messageLog) Add(msg string) {
	if msg == "" {
		return
	}
	entry := timedMessage{Text: msg, Time: time.Now()}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
	l.mu.Unlock()
}

func (l *messageLog) Entries(format string, useTimestamps bool) []string {
	l.mu.Lock()
	entries := make([]timedMessage, len(l.entries))
	copy(entries, l.entries)
	l.mu.Unlock()

	out := make([]string, len(entries))
	if format == "" {
		format = "3:04PM"
	}
	if useTimestamps {
		for i, msg := range entries {
			out[i] = "[" + msg.Time.Format(format) + "] " + msg.Text
		}
		return out
	}
	for i, msg := range entries {
		out[i] = msg.Text
	}
	return out
}

type consoleTrigger struct {
	owner string
	fn    func(string)
}

// Console is the host's message sink: script prints, load reports, and
// command echoes all land here, and registered triggers match against each
// line as it arrives. Triggers run synchronously on the calling goroutine,
// after the line is stored, outside the console locks.
type Console struct {
	log        messageLog
	format     string
	timestamps bool

	mu       sync.RWMutex
	triggers map[string][]consoleTrigger
}

func newConsole(format string, timestamps bool) *Console {
	return &Console{
		log:        messageLog{max: maxMessages},
		format:     format,
		timestamps: timestamps,
		triggers:   map[string][]consoleTrigger{},
	}
}

// Message stores msg and fires every trigger whose phrase the line contains.
func (c *Console) Message(msg string) {
	if msg == "" {
		return
	}
	c.log.Add(msg)

	c.mu.RLock()
	var fns []func(string)
	msgLower := strings.ToLower(msg)
	for phrase, hs := range c.triggers {
		if strings.Contains(msgLower, phrase) {
			for _, h := range hs {
				fns = append(fns, h.fn)
			}
		}
	}
	c.mu.RUnlock()
	for _, fn := range fns {
		fn(msg)
	}
}

// Messages returns the buffered lines, timestamped per the console settings.
func (c *Console) Messages() []string {
	return c.log.Entries(c.format, c.timestamps)
}

// Trigger registers fn to run for every console line containing any of the
// phrases, matched case-insensitively. Empty phrases are skipped.
func (c *Console) Trigger(owner string, phrases []string, fn func(string)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	for _, p := range phrases {
		if p == "" {
			continue
		}
		p = strings.ToLower(p)
		c.triggers[p] = append(c.triggers[p], consoleTrigger{owner: owner, fn: fn})
	}
	c.mu.Unlock()
}

// RemoveTriggers drops every trigger owner registered.
func (c *Console) RemoveTriggers(owner string) {
	c.mu.Lock()
	for phrase, hs := range c.triggers {
		n := 0
		for _, h := range hs {
			if h.owner != owner {
				hs[n] = h
				n++
			}
		}
		if n == 0 {
			delete(c.triggers, phrase)
		} else {
			c.triggers[phrase] = hs[:n]
		}
	}
	c.mu.Unlock()
}
