package scheduling

import (
	"slices"
	"sort"

	"github.com/google/uuid"

	"github.com/keisuke70/tasklazy/internal/models"
)

// SetPriority selects or deselects a task and returns the updated snapshot.
//
// Selecting appends the task at the end of the order. Deselecting clears its
// priority (and any manual start) and closes the gap by shifting every later
// task up by one. Repeating the current state or naming an unknown task
// returns an unchanged copy. The input slice is never modified.
func SetPriority(tasks []models.Task, taskID uuid.UUID, selected bool) []models.Task {
	out := slices.Clone(tasks)

	idx := slices.IndexFunc(out, func(t models.Task) bool { return t.ID == taskID })
	if idx < 0 {
		return out
	}

	// Priority pointers are replaced, never written through, so the clone
	// can share them with the caller's slice.
	if selected {
		if out[idx].Priority != nil {
			return out
		}
		out[idx].Priority = models.IntPtr(countSelected(out) + 1)
		return out
	}

	if out[idx].Priority == nil {
		return out
	}
	removed := *out[idx].Priority
	out[idx].Priority = nil
	out[idx].StartOverride = nil
	for i := range out {
		if p := out[i].Priority; p != nil && *p > removed {
			out[i].Priority = models.IntPtr(*p - 1)
		}
	}
	return out
}

// CheckPriorities verifies that the assigned priorities are exactly {1..N}
func CheckPriorities(tasks []models.Task) error {
	n := countSelected(tasks)
	seen := make(map[int]int, n)
	for _, t := range tasks {
		if t.Priority != nil {
			seen[*t.Priority]++
		}
	}

	violation := &InvariantViolationError{}
	for p, count := range seen {
		if count > 1 {
			violation.Duplicates = append(violation.Duplicates, p)
		}
		if p < 1 || p > n {
			violation.OutOfRange = append(violation.OutOfRange, p)
		}
	}
	for p := 1; p <= n; p++ {
		if seen[p] == 0 {
			violation.Missing = append(violation.Missing, p)
		}
	}

	if len(violation.Duplicates) == 0 && len(violation.Missing) == 0 && len(violation.OutOfRange) == 0 {
		return nil
	}
	sort.Ints(violation.Duplicates)
	sort.Ints(violation.OutOfRange)
	return violation
}

// Normalize renumbers selected tasks to 1..N, keeping their existing
// relative order (ties broken by position in the slice). The returned
// error describes the violation that was repaired and is nil when the
// snapshot was already consistent.
func Normalize(tasks []models.Task) ([]models.Task, error) {
	out := slices.Clone(tasks)
	violation := CheckPriorities(out)
	if violation == nil {
		return out, nil
	}

	order := selectedIndexes(out)
	for rank, i := range order {
		out[i].Priority = models.IntPtr(rank + 1)
	}
	return out, violation
}

// Selected returns the prioritized tasks in execution order
func Selected(tasks []models.Task) []models.Task {
	order := selectedIndexes(tasks)
	out := make([]models.Task, 0, len(order))
	for _, i := range order {
		out = append(out, tasks[i])
	}
	return out
}

// RequireSelection returns ErrNothingSelected when no task holds a priority
func RequireSelection(tasks []models.Task) error {
	if countSelected(tasks) == 0 {
		return ErrNothingSelected
	}
	return nil
}

func countSelected(tasks []models.Task) int {
	n := 0
	for _, t := range tasks {
		if t.Priority != nil {
			n++
		}
	}
	return n
}

// selectedIndexes returns the indexes of prioritized tasks stably sorted by priority
func selectedIndexes(tasks []models.Task) []int {
	var idx []int
	for i, t := range tasks {
		if t.Priority != nil {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return *tasks[idx[a]].Priority < *tasks[idx[b]].Priority
	})
	return idx
}
