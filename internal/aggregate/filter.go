// Package aggregate computes review counts and average ratings per book over
// an optional date window.
package aggregate

import "time"

// Filter restricts the reviews that contribute to an aggregate by their
// creation timestamp. Both bounds are optional and inclusive.
//
// The same Filter value must be used for every metric derived from one
// population; Aggregator enforces this by issuing a single source call per
// filter.
type Filter struct {
	From *time.Time
	To   *time.Time
}

// All returns a filter that matches every review.
func All() Filter {
	return Filter{}
}

// Since matches reviews created at or after from.
func Since(from time.Time) Filter {
	return Filter{From: &from}
}

// Until matches reviews created at or before to.
func Until(to time.Time) Filter {
	return Filter{To: &to}
}

// Between matches reviews created within [from, to].
func Between(from, to time.Time) Filter {
	return Filter{From: &from, To: &to}
}

// Unbounded reports whether the filter matches every review.
func (f Filter) Unbounded() bool {
	return f.From == nil && f.To == nil
}

// Validate rejects windows whose lower bound is after the upper bound.
// Bounds are never swapped.
func (f Filter) Validate() error {
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return &InvalidWindowError{From: *f.From, To: *f.To}
	}
	return nil
}

// Matches reports whether a review created at t belongs to the window.
func (f Filter) Matches(t time.Time) bool {
	switch {
	case f.From != nil && f.To != nil:
		return !t.Before(*f.From) && !t.After(*f.To)
	case f.From != nil:
		return !t.Before(*f.From)
	case f.To != nil:
		return !t.After(*f.To)
	default:
		return true
	}
}
