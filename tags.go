package grimoire

import (
	"sort"
	"sync"

	"grimoire/gamedata"
	"grimoire/tagscan"
)

type tagTable struct {
	mu       sync.RWMutex
	notes    map[string]map[string]tagscan.Action
	comments map[string]map[string]tagscan.Action
}

func newTagTable() *tagTable {
	return &tagTable{
		notes:    map[string]map[string]tagscan.Action{},
		comments: map[string]map[string]tagscan.Action{},
	}
}

func (t *tagTable) add(into map[string]map[string]tagscan.Action, owner, pattern string, action tagscan.Action) {
	t.mu.Lock()
	m := into[owner]
	if m == nil {
		m = map[string]tagscan.Action{}
		into[owner] = m
	}
	m[pattern] = action
	t.mu.Unlock()
}

func (t *tagTable) removeOwner(owner string) {
	t.mu.Lock()
	delete(t.notes, owner)
	delete(t.comments, owner)
	t.mu.Unlock()
}

// snapshot returns the per-owner tables in sorted owner order so scans are
// deterministic.
func (t *tagTable) snapshot(from map[string]map[string]tagscan.Action) []ownerTags {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]ownerTags, 0, len(from))
	for owner, table := range from {
		cp := make(map[string]tagscan.Action, len(table))
		for p, a := range table {
			cp[p] = a
		}
		out = append(out, ownerTags{owner: owner, tags: cp})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].owner < out[j].owner })
	return out
}

type ownerTags struct {
	owner string
	tags  map[string]tagscan.Action
}

// NoteTag registers a note-box pattern for owner. The action is a code
// string for the host evaluator or a callable taking the capture groups.
func (h *Host) NoteTag(owner, pattern string, action tagscan.Action) {
	if pattern == "" || action == nil || h.IsDisabled(owner) {
		return
	}
	h.tags.add(h.tags.notes, owner, pattern, action)
}

// CommentTag registers an event-comment pattern for owner.
func (h *Host) CommentTag(owner, pattern string, action tagscan.Action) {
	if pattern == "" || action == nil || h.IsDisabled(owner) {
		return
	}
	h.tags.add(h.tags.comments, owner, pattern, action)
}

// ScanItemNotes runs every enabled script's note tags over the given
// records and returns how many actions fired. The first bad pattern or
// failing action stops the scan.
func (h *Host) ScanItemNotes(items ...gamedata.Noted) (int, error) {
	total := 0
	for _, ot := range h.tags.snapshot(h.tags.notes) {
		if h.IsDisabled(ot.owner) {
			continue
		}
		for _, item := range items {
			if item == nil {
				continue
			}
			n, err := tagscan.Scan(item.NoteText(), ot.tags, h.eval)
			total += n
			if err != nil {
				h.logError("[script:%s] note tag: %v", h.DisplayName(ot.owner), err)
				return total, err
			}
		}
	}
	return total, nil
}

// ScanEventComments runs every enabled script's comment tags over the
// comment blocks of each event on the map, in event-ID order.
func (h *Host) ScanEventComments(m *gamedata.Map) (int, error) {
	if m == nil {
		return 0, nil
	}
	total := 0
	tables := h.tags.snapshot(h.tags.comments)
	for _, id := range sortedEventIDs(m) {
		ev, ok := m.Event(id)
		if !ok {
			continue
		}
		blocks := ev.CommentBlocks()
		for _, ot := range tables {
			if h.IsDisabled(ot.owner) {
				continue
			}
			n, err := tagscan.ScanAll(blocks, ot.tags, h.eval)
			total += n
			if err != nil {
				h.logError("[script:%s] comment tag: %v", h.DisplayName(ot.owner), err)
				return total, err
			}
		}
	}
	return total, nil
}

func sortedEventIDs(m *gamedata.Map) []int {
	ids := make([]int, 0, len(m.Events))
	for id, ev := range m.Events {
		if ev != nil {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}
