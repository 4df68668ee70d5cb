package core

import (
	"errors"
	"fmt"
)

// ItemError records why a single item of a batch failed.
type ItemError struct {
	Item string
	Err  error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s: %v", e.Item, e.Err)
}

func (e ItemError) Unwrap() error {
	return e.Err
}

// Report summarizes a batch operation that keeps going after per-item failures.
type Report struct {
	Succeeded int
	Skipped   int
	Failures  []ItemError
}

// Fail records a failed item.
func (r *Report) Fail(item string, err error) {
	r.Failures = append(r.Failures, ItemError{Item: item, Err: err})
}

// Failed returns the number of failed items.
func (r *Report) Failed() int {
	return len(r.Failures)
}

// Err joins all item failures, or returns nil when there were none.
func (r *Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Merge adds the counts and failures of other to r.
func (r *Report) Merge(other Report) {
	r.Succeeded += other.Succeeded
	r.Skipped += other.Skipped
	r.Failures = append(r.Failures, other.Failures...)
}
