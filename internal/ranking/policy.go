// Package ranking orders books by review aggregates and exposes the named
// ranking presets.
package ranking

import (
	"sort"

	"github.com/Clark-Hu/book-rankings/internal/aggregate"
	"github.com/Clark-Hu/book-rankings/internal/domain"
)

// Entry is one ranked book with the aggregate it was ranked by.
type Entry struct {
	Book      domain.Book      `json:"book"`
	Aggregate aggregate.Result `json:"aggregate"`
}

// Policy orders entries in place. Implementations must sort stably so that
// applying several policies in sequence leaves the last one as primary order.
type Policy interface {
	Name() string
	Apply(entries []Entry)
}

// Popularity orders by review count, descending.
type Popularity struct{}

func (Popularity) Name() string { return "popularity" }

func (Popularity) Apply(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Aggregate.Count > entries[j].Aggregate.Count
	})
}

// Quality orders by average rating, descending. Books without an average
// sort last.
type Quality struct{}

func (Quality) Name() string { return "quality" }

func (Quality) Apply(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		ai, aj := entries[i].Aggregate, entries[j].Aggregate
		switch {
		case !ai.HasAverage():
			return false
		case !aj.HasAverage():
			return true
		default:
			return *ai.Average > *aj.Average
		}
	})
}

// MinReviews drops entries with fewer than k reviews, keeping order.
func MinReviews(entries []Entry, k int64) []Entry {
	if k <= 0 {
		return entries
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.Aggregate.Count >= k {
			kept = append(kept, e)
		}
	}
	return kept
}
