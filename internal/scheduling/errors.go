package scheduling

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNothingSelected is returned when a schedule is requested but no task holds a priority
var ErrNothingSelected = errors.New("no tasks are prioritized")

// InvariantViolationError describes a priority set that is not exactly {1..N}
type InvariantViolationError struct {
	Duplicates []int
	Missing    []int
	OutOfRange []int
}

func (e *InvariantViolationError) Error() string {
	var parts []string
	if len(e.Duplicates) > 0 {
		parts = append(parts, fmt.Sprintf("duplicate priorities %v", e.Duplicates))
	}
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing priorities %v", e.Missing))
	}
	if len(e.OutOfRange) > 0 {
		parts = append(parts, fmt.Sprintf("out of range priorities %v", e.OutOfRange))
	}
	return "priority invariant violated: " + strings.Join(parts, ", ")
}

// IsInvariantViolation reports whether err carries an InvariantViolationError
func IsInvariantViolation(err error) bool {
	var target *InvariantViolationError
	return errors.As(err, &target)
}
