package engine

import (
	"fmt"
	"strings"
)

// suppressedError carries a primary failure plus secondary failures that
// occurred while cleaning up after it (rollback, completion notification).
// The secondary failures never replace the primary: Error reports the
// primary first, and Unwrap exposes all of them to errors.Is/As.
type suppressedError struct {
	primary    error
	suppressed []error
}

func (e *suppressedError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.primary.Error())
	for _, s := range e.suppressed {
		fmt.Fprintf(&sb, " (suppressed: %s)", s)
	}
	return sb.String()
}

func (e *suppressedError) Unwrap() []error {
	out := make([]error, 0, 1+len(e.suppressed))
	out = append(out, e.primary)
	out = append(out, e.suppressed...)
	return out
}

// withSuppressed attaches secondary to primary as a suppressed cause.
// Attaching nil or the primary itself is a no-op; the same failure must not
// be reported twice.
func withSuppressed(primary, secondary error) error {
	if primary == nil {
		return secondary
	}
	if secondary == nil || secondary == primary {
		return primary
	}
	if se, ok := primary.(*suppressedError); ok {
		se.suppressed = append(se.suppressed, secondary)
		return se
	}
	return &suppressedError{primary: primary, suppressed: []error{secondary}}
}

// SuppressedCauses returns the secondary failures attached to err, if any.
func SuppressedCauses(err error) []error {
	if se, ok := err.(*suppressedError); ok {
		return se.suppressed
	}
	return nil
}
