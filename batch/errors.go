package batch

import (
	"fmt"
)

// PartialFailure is returned when at least one method of a batch failed.
// Items holds every outcome, in invocation order.
type PartialFailure struct {
	Items []Item
}

func (e *PartialFailure) Error() string {
	failed := e.Failed()
	if len(failed) == 0 {
		return "batch: no failed calls"
	}
	first := e.Items[failed[0]]
	return fmt.Sprintf("batch: %d of %d calls failed, first %s: %v",
		len(failed), len(e.Items), first.Method.Name(), first.Err)
}

// Unwrap exposes the per-item errors to errors.Is and errors.As.
func (e *PartialFailure) Unwrap() []error {
	var errs []error
	for _, it := range e.Items {
		if it.Err != nil {
			errs = append(errs, it.Err)
		}
	}
	return errs
}

// Failed returns the positions of the failed items.
func (e *PartialFailure) Failed() []int {
	var idx []int
	for i, it := range e.Items {
		if it.Err != nil {
			idx = append(idx, i)
		}
	}
	return idx
}

// Results returns every result with the error in place of each failed one.
func (e *PartialFailure) Results() []any {
	return Results(e.Items)
}

// Splice returns a copy of items where the positions in idx are replaced,
// in order, by retried.
func Splice(items []Item, idx []int, retried []Item) []Item {
	out := append([]Item(nil), items...)
	for k, i := range idx {
		if k >= len(retried) {
			break
		}
		out[i] = retried[k]
	}
	return out
}

// Check wraps items in a *PartialFailure when any of them failed.
func Check(items []Item) error {
	for _, it := range items {
		if it.Err != nil {
			return &PartialFailure{Items: items}
		}
	}
	return nil
}
