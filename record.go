package grimoire

import (
	"math"
	"strings"
)

// undefinedScriptName is the placeholder identity used when a script enters
// itself without supplying any metadata.
const undefinedScriptName = "Undefined Script"

// Record describes one installed script: its name, its ordinal version
// (higher is newer), and its author tokens in declaration order. Records are
// values and never change after Enter.
type Record struct {
	Name    string
	Version float64
	Authors []string
}

// FormatName toggles a script name between its spaced and underscored
// spellings: a name containing a space has every space replaced with an
// underscore, any other name has every underscore replaced with a space.
// It is a toggle, not a canonicalizer; names mixing spaces and underscores
// do not round-trip.
func FormatName(name string) string {
	if strings.Contains(name, " ") {
		return strings.ReplaceAll(name, " ", "_")
	}
	return strings.ReplaceAll(name, "_", " ")
}

// canonicalName is the registry key form of a script name. Spaces collapse to
// underscores so "Iron Armor" and "Iron_Armor" address the same entry.
func canonicalName(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
}

func (r Record) canonical() string { return canonicalName(r.Name) }

func (r Record) isZero() bool {
	return r.Name == "" && r.Version == 0 && len(r.Authors) == 0
}

func defaultRecord() Record {
	return Record{Name: undefinedScriptName, Version: 1.0, Authors: []string{"unknown"}}
}

func (r Record) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return &InvalidRecordError{Reason: "blank name"}
	}
	if math.IsNaN(r.Version) || r.Version < 0 {
		return &InvalidRecordError{Reason: "bad version for " + r.Name}
	}
	return nil
}

// matches reports whether a single query token matches this record: strings
// match the name (either spelling) or an author token, numbers match the
// version exactly.
func (r Record) matches(query any) bool {
	switch q := query.(type) {
	case string:
		if canonicalName(q) == r.canonical() {
			return true
		}
		for _, a := range r.Authors {
			if a == q {
				return true
			}
		}
		return false
	case float64:
		return r.Version == q
	case int:
		return r.Version == float64(q)
	default:
		return false
	}
}

// dedupAuthors trims and deduplicates author tokens, keeping first-seen order.
func dedupAuthors(authors []string) []string {
	out := make([]string, 0, len(authors))
	seen := map[string]bool{}
	for _, a := range authors {
		a = strings.TrimSpace(a)
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}
