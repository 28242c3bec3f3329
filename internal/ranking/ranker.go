package ranking

import (
	"context"
	"time"

	"github.com/Clark-Hu/book-rankings/internal/aggregate"
	"github.com/Clark-Hu/book-rankings/internal/domain"
)

// Clock provides the current time for trailing windows.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Query describes one ranking evaluation. Ordering and the MinReviews
// threshold both read the aggregates computed under Window.
type Query struct {
	Window     aggregate.Filter
	Policies   []Policy
	MinReviews int64
}

// Ranker evaluates queries and presets against an Aggregator.
type Ranker struct {
	aggregator *aggregate.Aggregator
	clock      Clock
}

// NewRanker constructs a Ranker. A nil clock defaults to SystemClock.
func NewRanker(agg *aggregate.Aggregator, clock Clock) *Ranker {
	if clock == nil {
		clock = SystemClock
	}
	return &Ranker{aggregator: agg, clock: clock}
}

// Rank evaluates the named preset over the candidate books.
func (r *Ranker) Rank(ctx context.Context, preset string, books []domain.Book) ([]Entry, error) {
	p, err := Lookup(preset)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, books, p.Query(r.clock.Now()))
}

// Run aggregates the candidates once under q.Window, applies the policies in
// order and drops entries below the threshold.
func (r *Ranker) Run(ctx context.Context, books []domain.Book, q Query) ([]Entry, error) {
	results, err := r.aggregator.AggregateBooks(ctx, books, q.Window)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(books))
	seen := make(map[string]struct{}, len(books))
	for _, b := range books {
		if _, dup := seen[b.ID]; dup {
			continue
		}
		seen[b.ID] = struct{}{}
		entries = append(entries, Entry{Book: b, Aggregate: results[b.ID]})
	}

	for _, p := range q.Policies {
		p.Apply(entries)
	}
	return MinReviews(entries, q.MinReviews), nil
}
