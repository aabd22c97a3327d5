// Package tagscan matches pattern tables against note and comment text and
// runs the action bound to each matching pattern.
package tagscan

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// Action is what runs when a pattern matches a line. A string action is a
// snippet handed to the Evaluator; callable actions receive the pattern's
// capture groups.
type Action any

// Evaluator runs the code-string form of an action. The host wires its
// script interpreter in here.
type Evaluator interface {
	Eval(src string) error
}

// Nop is an Evaluator that discards every code string.
type Nop struct{}

func (Nop) Eval(string) error { return nil }

// BadTagError reports a pattern that cannot be compiled or an action of an
// unsupported type.
type BadTagError struct {
	Pattern string
	Reason  string
}

func (e *BadTagError) Error() string {
	return fmt.Sprintf("tag pattern %q: %s", e.Pattern, e.Reason)
}

var (
	compiledLock sync.Mutex
	compiled     = map[string]*regexp.Regexp{}
)

func compile(pattern string) (*regexp.Regexp, error) {
	compiledLock.Lock()
	re, ok := compiled[pattern]
	compiledLock.Unlock()
	if ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	compiledLock.Lock()
	compiled[pattern] = re
	compiledLock.Unlock()
	return re, nil
}

var lineSplit = regexp.MustCompile(`[\r\n]+`)

// Scan splits text into lines and fires the action of every pattern that
// matches each line, patterns in sorted order within a line. Returns how
// many actions fired. A pattern that fails to compile, an action of an
// unknown type, or an evaluator failure stops the scan; firings before the
// stop are kept and counted.
func Scan(text string, tags map[string]Action, ev Evaluator) (int, error) {
	if len(tags) == 0 || text == "" {
		return 0, nil
	}
	patterns := make([]string, 0, len(tags))
	for p := range tags {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)

	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := compile(p)
		if err != nil {
			return 0, &BadTagError{Pattern: p, Reason: err.Error()}
		}
		res[i] = re
	}

	fired := 0
	for _, line := range lineSplit.Split(text, -1) {
		if line == "" {
			continue
		}
		for i, re := range res {
			m := re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			if err := fire(patterns[i], tags[patterns[i]], m[1:], ev); err != nil {
				return fired, err
			}
			fired++
		}
	}
	return fired, nil
}

// ScanAll scans several text blocks with one tag table, totalling the
// firings.
func ScanAll(texts []string, tags map[string]Action, ev Evaluator) (int, error) {
	total := 0
	for _, text := range texts {
		n, err := Scan(text, tags, ev)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func fire(pattern string, action Action, groups []string, ev Evaluator) error {
	switch fn := action.(type) {
	case string:
		if ev == nil {
			ev = Nop{}
		}
		return ev.Eval(fn)
	case func():
		fn()
	case func(...string):
		fn(groups...)
	case func([]string):
		fn(groups)
	case nil:
		return &BadTagError{Pattern: pattern, Reason: "nil action"}
	default:
		return &BadTagError{Pattern: pattern, Reason: fmt.Sprintf("unsupported action type %T", action)}
	}
	return nil
}
