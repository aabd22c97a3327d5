package grimoire

import "fmt"

// NotFoundError reports a requirement on a script no one has entered.
type NotFoundError struct {
	Name       string
	Suggestion string // closest registered name, when one is near enough
}

func (e *NotFoundError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("script %q is not installed (did you mean %q?)", e.Name, e.Suggestion)
	}
	return fmt.Sprintf("script %q is not installed", e.Name)
}

// VersionMismatchError reports an installed script older than a requirement
// demands.
type VersionMismatchError struct {
	Name string
	Have float64
	Want float64
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("script %q is v%v, v%v or newer is required", e.Name, e.Have, e.Want)
}

// InvalidRecordError reports a malformed record handed to Enter. Nothing is
// entered when this is returned.
type InvalidRecordError struct {
	Reason string
}

func (e *InvalidRecordError) Error() string {
	return "invalid script record: " + e.Reason
}

// MissingMethodError reports an overwrite declaration naming an operation the
// owner scope does not have.
type MissingMethodError struct {
	Owner string
	Name  string
}

func (e *MissingMethodError) Error() string {
	return fmt.Sprintf("%s has no operation %q to overwrite", e.Owner, e.Name)
}
