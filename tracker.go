package grimoire

import (
	"sort"
	"strings"
	"sync"
)

// stubPrefix marks synthetic stand-ins created by test scaffolding; alias
// events involving such names stay out of the audit log.
const stubPrefix = "__stub_"

// Tracker is a passive audit log of operation renames and overwrites.
// Nothing in this module consumes it; hosts and scripts report their
// redefinitions here so authors can later inspect what changed what. The
// tracker never detects anything on its own.
type Tracker struct {
	mu         sync.RWMutex
	aliases    map[string]map[string][]string
	overwrites map[string]map[string]bool
	pending    map[string]bool
}

func NewTracker() *Tracker {
	return &Tracker{
		aliases:    map[string]map[string][]string{},
		overwrites: map[string]map[string]bool{},
		pending:    map[string]bool{},
	}
}

// RegisterAlias records that newName is an alias of originalName under
// owner. Reports true when the triple is new, false when already logged.
// Names carrying the synthetic-stub prefix are ignored entirely so test
// scaffolding cannot pollute the log.
func (t *Tracker) RegisterAlias(owner, newName, originalName string) bool {
	if strings.HasPrefix(newName, stubPrefix) || strings.HasPrefix(originalName, stubPrefix) {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	byOriginal := t.aliases[owner]
	if byOriginal == nil {
		byOriginal = map[string][]string{}
		t.aliases[owner] = byOriginal
	}
	for _, a := range byOriginal[originalName] {
		if a == newName {
			return false
		}
	}
	byOriginal[originalName] = append(byOriginal[originalName], newName)
	return true
}

// RegisterOverwrite records that owner's operation name replaced a prior
// definition. Reports true when newly logged, false on repeat.
func (t *Tracker) RegisterOverwrite(owner, name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.registerOverwriteLocked(owner, name)
}

func (t *Tracker) registerOverwriteLocked(owner, name string) bool {
	set := t.overwrites[owner]
	if set == nil {
		set = map[string]bool{}
		t.overwrites[owner] = set
	}
	if set[name] {
		return false
	}
	set[name] = true
	return true
}

// OverwriteNext arms owner so that the next definition reported through
// ObserveDefine is logged as an overwrite.
func (t *Tracker) OverwriteNext(owner string) {
	t.mu.Lock()
	t.pending[owner] = true
	t.mu.Unlock()
}

// Pending reports whether owner is armed for an overwrite.
func (t *Tracker) Pending(owner string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pending[owner]
}

// ObserveDefine tells the tracker that owner just defined the named
// operation. An armed owner has its flag consumed and the definition logged
// as an overwrite, reported as true; otherwise the definition passes through
// unlogged.
func (t *Tracker) ObserveDefine(owner, name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.pending[owner] {
		return false
	}
	delete(t.pending, owner)
	t.registerOverwriteLocked(owner, name)
	return true
}

// Overwrites declares overwrites for owner. With no names it arms owner for
// the next definition, exactly like OverwriteNext. With names, each must
// already resolve through lookup; a missing one stops the call with a
// MissingMethodError, keeping the names logged before it. lookup runs
// without the tracker lock held so it may consult other guarded state.
func (t *Tracker) Overwrites(owner string, lookup func(string) bool, names ...string) error {
	if len(names) == 0 {
		t.OverwriteNext(owner)
		return nil
	}
	for _, name := range names {
		if lookup != nil && !lookup(name) {
			return &MissingMethodError{Owner: owner, Name: name}
		}
		t.RegisterOverwrite(owner, name)
	}
	return nil
}

// HasOverwrite reports whether owner's name is in the overwrite log.
func (t *Tracker) HasOverwrite(owner, name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.overwrites[owner][name]
}

// Aliases returns a copy of the whole alias log: owner to original name to
// aliases in the order they were reported.
func (t *Tracker) Aliases() map[string]map[string][]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]map[string][]string, len(t.aliases))
	for owner := range t.aliases {
		out[owner] = t.aliasesOfLocked(owner)
	}
	return out
}

// AliasesOf returns owner's slice of the alias log, original name to aliases
// in report order. Absent owners yield nil.
func (t *Tracker) AliasesOf(owner string) map[string][]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.aliasesOfLocked(owner)
}

func (t *Tracker) aliasesOfLocked(owner string) map[string][]string {
	byOriginal, ok := t.aliases[owner]
	if !ok {
		return nil
	}
	out := make(map[string][]string, len(byOriginal))
	for original, names := range byOriginal {
		out[original] = append([]string(nil), names...)
	}
	return out
}

// Overwritten returns a copy of the overwrite log with names sorted per
// owner.
func (t *Tracker) Overwritten() map[string][]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string][]string, len(t.overwrites))
	for owner := range t.overwrites {
		out[owner] = t.overwrittenByLocked(owner)
	}
	return out
}

// OverwrittenBy returns the sorted overwritten names logged for owner.
func (t *Tracker) OverwrittenBy(owner string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.overwrittenByLocked(owner)
}

func (t *Tracker) overwrittenByLocked(owner string) []string {
	set, ok := t.overwrites[owner]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Forget drops everything logged for owner, including an armed flag. The
// host calls it when a script unloads; tests use it for isolation.
func (t *Tracker) Forget(owner string) {
	t.mu.Lock()
	delete(t.aliases, owner)
	delete(t.overwrites, owner)
	delete(t.pending, owner)
	t.mu.Unlock()
}
