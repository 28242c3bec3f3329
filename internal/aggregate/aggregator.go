package aggregate

import (
	"context"

	"github.com/Clark-Hu/book-rankings/internal/domain"
)

// Source executes aggregate queries against review storage. Implementations
// must compute count and average in one pass over the reviews selected by f.
// Books without matching reviews may be omitted from the returned map.
type Source interface {
	AggregateReviews(ctx context.Context, bookIDs []string, f Filter) (map[string]Result, error)
}

// Aggregator computes per-book review aggregates through a Source.
type Aggregator struct {
	source Source
}

// New constructs an Aggregator backed by src.
func New(src Source) *Aggregator {
	return &Aggregator{source: src}
}

// Aggregate returns one Result per distinct book id. Errors from the source
// are returned unchanged.
func (a *Aggregator) Aggregate(ctx context.Context, bookIDs []string, f Filter) (map[string]Result, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	ids := dedupe(bookIDs)
	results := make(map[string]Result, len(ids))
	if len(ids) == 0 {
		return results, nil
	}

	fetched, err := a.source.AggregateReviews(ctx, ids, f)
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		results[id] = fetched[id].normalize(id)
	}
	return results, nil
}

// AggregateBooks is Aggregate keyed by the ids of books.
func (a *Aggregator) AggregateBooks(ctx context.Context, books []domain.Book, f Filter) (map[string]Result, error) {
	ids := make([]string, 0, len(books))
	for _, b := range books {
		ids = append(ids, b.ID)
	}
	return a.Aggregate(ctx, ids, f)
}

// Fold computes the aggregate of already loaded reviews in process. Reviews
// that belong to another book or fall outside f are ignored.
func Fold(bookID string, reviews []domain.Review, f Filter) Result {
	var (
		count int64
		sum   int64
	)
	for _, r := range reviews {
		if r.BookID != bookID || !f.Matches(r.CreatedAt) {
			continue
		}
		count++
		sum += int64(r.Rating)
	}

	res := Result{BookID: bookID, Count: count}
	if count > 0 {
		avg := float64(sum) / float64(count)
		res.Average = &avg
	}
	return res
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
