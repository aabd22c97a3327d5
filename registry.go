package grimoire

import (
	"sort"
	"strings"
	"sync"

	"github.com/f1monkey/spellchecker"
)

// defaultImportPrefix namespaces the legacy import-announcement flags
// published for every entered script.
const defaultImportPrefix = "Grimoire"

// suggestAlphabet covers every rune that can appear in a lowercased canonical
// script name; the spellchecker refuses words outside its alphabet.
const suggestAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789_'-"

// Registry is the source of truth for which scripts are installed and the
// gatekeeper for which minimum versions other scripts have demanded. A host
// owns exactly one; all methods are safe under a single RWMutex, though the
// surrounding engine runs one logical script thread.
type Registry struct {
	mu       sync.RWMutex
	prefix   string
	entries  map[string]Record
	required map[string]float64
	imports  map[string]float64
}

// NewRegistry returns an empty registry. prefix namespaces the legacy import
// flags; empty means the default "Grimoire".
func NewRegistry(prefix string) *Registry {
	if prefix == "" {
		prefix = defaultImportPrefix
	}
	return &Registry{
		prefix:   prefix,
		entries:  map[string]Record{},
		required: map[string]float64{},
		imports:  map[string]float64{},
	}
}

// Enter records rec as installed, replacing any earlier entry under the same
// canonical name, and publishes the "<prefix>_<name>" import flag legacy
// consumers read. The zero Record enters the placeholder record. Malformed
// records fail with an InvalidRecordError and enter nothing. Returns a
// snapshot of the entry table after the insert.
func (r *Registry) Enter(rec Record) (map[string]Record, error) {
	if rec.isZero() {
		rec = defaultRecord()
	}
	if err := rec.validate(); err != nil {
		return nil, err
	}
	rec.Authors = dedupAuthors(rec.Authors)
	key := rec.canonical()
	r.mu.Lock()
	r.entries[key] = rec
	r.imports[r.prefix+"_"+key] = rec.Version
	r.mu.Unlock()
	return r.Entries(), nil
}

// EntriesFor returns every record matching all queries, sorted by canonical
// name. A string query matches the record name (spaced or underscored
// spelling) or any author token; a numeric query matches the version exactly.
// No queries matches everything.
func (r *Registry) EntriesFor(queries ...any) []Record {
	r.mu.RLock()
	out := make([]Record, 0, len(r.entries))
	for _, rec := range r.entries {
		all := true
		for _, q := range queries {
			if !rec.matches(q) {
				all = false
				break
			}
		}
		if all {
			out = append(out, copyRecord(rec))
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].canonical() < out[j].canonical() })
	return out
}

// Include reports whether at least one entry matches all queries.
func (r *Registry) Include(queries ...any) bool {
	return len(r.EntriesFor(queries...)) > 0
}

// Lookup returns the entry for name under either spelling.
func (r *Registry) Lookup(name string) (Record, bool) {
	r.mu.RLock()
	rec, ok := r.entries[canonicalName(name)]
	r.mu.RUnlock()
	if !ok {
		return Record{}, false
	}
	return copyRecord(rec), true
}

// Require checks minimum-version demands against the registry, processing
// them in name order. A demand at or below an already stored minimum is a
// no-op. The first unmet demand stops the call: NotFoundError when nothing is
// entered under the name, VersionMismatchError when the entered version is
// older than demanded; the failing demand never changes the stored minimums,
// though demands satisfied earlier in the same call keep theirs. Reports
// whether any stored minimum was raised.
func (r *Registry) Require(demands map[string]float64) (bool, error) {
	if len(demands) == 0 {
		return false, nil
	}
	names := make([]string, 0, len(demands))
	for name := range demands {
		names = append(names, name)
	}
	sort.Strings(names)

	changed := false
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		minVer := demands[name]
		key := canonicalName(name)
		if cur, ok := r.required[key]; ok && cur >= minVer {
			continue
		}
		rec, ok := r.entries[key]
		if !ok {
			return changed, &NotFoundError{Name: name, Suggestion: r.suggestLocked(key)}
		}
		if rec.Version < minVer {
			return changed, &VersionMismatchError{Name: name, Have: rec.Version, Want: minVer}
		}
		r.required[key] = minVer
		changed = true
	}
	return changed, nil
}

// Entries returns a copy of the entry table keyed by canonical name.
func (r *Registry) Entries() map[string]Record {
	r.mu.RLock()
	out := make(map[string]Record, len(r.entries))
	for k, rec := range r.entries {
		out[k] = copyRecord(rec)
	}
	r.mu.RUnlock()
	return out
}

// Required returns a copy of the highest minimum version demanded so far per
// canonical name.
func (r *Registry) Required() map[string]float64 {
	r.mu.RLock()
	out := make(map[string]float64, len(r.required))
	for k, v := range r.required {
		out[k] = v
	}
	r.mu.RUnlock()
	return out
}

// Imports returns a copy of the legacy import-announcement table.
func (r *Registry) Imports() map[string]float64 {
	r.mu.RLock()
	out := make(map[string]float64, len(r.imports))
	for k, v := range r.imports {
		out[k] = v
	}
	r.mu.RUnlock()
	return out
}

// suggestLocked finds the registered name closest to the missing one, for
// "did you mean" hints on failed requirements. Callers hold r.mu.
func (r *Registry) suggestLocked(name string) string {
	if len(r.entries) == 0 {
		return ""
	}
	sc, err := spellchecker.New(suggestAlphabet, spellchecker.WithMaxErrors(2))
	if err != nil {
		return ""
	}
	byLower := make(map[string]string, len(r.entries))
	for key := range r.entries {
		lower := strings.ToLower(key)
		byLower[lower] = key
		sc.Add(lower)
	}
	got, err := sc.Suggest(strings.ToLower(name), 1)
	if err != nil || len(got) == 0 {
		return ""
	}
	return byLower[got[0]]
}

func copyRecord(rec Record) Record {
	rec.Authors = append([]string(nil), rec.Authors...)
	return rec
}
