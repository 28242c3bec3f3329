package catalog

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Clark-Hu/book-rankings/internal/aggregate"
	"github.com/Clark-Hu/book-rankings/internal/cache"
	"github.com/Clark-Hu/book-rankings/internal/domain"
	"github.com/Clark-Hu/book-rankings/internal/ranking"
	"github.com/Clark-Hu/book-rankings/internal/repository"
)

// BookDetail is the cached detail payload of one book.
type BookDetail struct {
	Book      domain.Book      `json:"book"`
	Reviews   []domain.Review  `json:"reviews"`
	Aggregate aggregate.Result `json:"aggregate"`
}

// BookCard is the cached list-context payload of one book.
type BookCard struct {
	Book      domain.Book      `json:"book"`
	Aggregate aggregate.Result `json:"aggregate"`
}

// BookPage is one page of book cards.
type BookPage struct {
	Items      []BookCard
	NextCursor *string
}

// BookDetail returns the book with its reviews and all-time aggregate.
func (s *Service) BookDetail(ctx context.Context, id string) (BookDetail, error) {
	bookID, err := canonicalID(id)
	if err != nil {
		return BookDetail{}, err
	}
	key := cache.BookKey(bookID)
	var detail BookDetail
	if s.readCache(ctx, key, &detail) {
		return detail, nil
	}

	v, err, _ := s.loads.Do(key, func() (interface{}, error) {
		// Callers that joined this load must not inherit the first one's cancellation.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		gen := s.writes.Load()
		book, err := s.books.GetByID(loadCtx, bookID)
		if err != nil {
			return nil, err
		}
		reviews, err := s.reviews.ListByBook(loadCtx, bookID)
		if err != nil {
			return nil, err
		}
		if reviews == nil {
			reviews = []domain.Review{}
		}
		d := BookDetail{
			Book:      book,
			Reviews:   reviews,
			Aggregate: aggregate.Fold(book.ID, reviews, aggregate.All()),
		}
		s.writeCache(loadCtx, gen, key, d)
		return d, nil
	})
	if err != nil {
		return BookDetail{}, err
	}
	return v.(BookDetail), nil
}

// Review returns one review of a book. Reviews are not cached on their own.
func (s *Service) Review(ctx context.Context, bookID, reviewID string) (domain.Review, error) {
	bid, rid, err := canonicalPair(bookID, reviewID)
	if err != nil {
		return domain.Review{}, err
	}
	return s.reviews.Get(ctx, bid, rid)
}

// ListBooks returns a page of book cards. Cards missing from the cache are
// aggregated together in one call.
func (s *Service) ListBooks(ctx context.Context, filters repository.BookListFilters) (BookPage, error) {
	gen := s.writes.Load()
	result, err := s.books.List(ctx, filters)
	if err != nil {
		return BookPage{}, err
	}

	cards := make([]BookCard, len(result.Items))
	var missing []domain.Book
	missingAt := make(map[string]int)
	for i, book := range result.Items {
		var card BookCard
		if s.readCache(ctx, cache.BookListKey(book.ID), &card) {
			cards[i] = card
			continue
		}
		missing = append(missing, book)
		missingAt[book.ID] = i
	}

	if len(missing) > 0 {
		aggs, err := s.aggregator.AggregateBooks(ctx, missing, aggregate.All())
		if err != nil {
			return BookPage{}, err
		}
		for _, book := range missing {
			card := BookCard{Book: book, Aggregate: aggs[book.ID]}
			cards[missingAt[book.ID]] = card
			s.writeCache(ctx, gen, cache.BookListKey(book.ID), card)
		}
	}

	return BookPage{Items: cards, NextCursor: result.NextCursor}, nil
}

// Aggregate computes windowed aggregates for every book whose title matches.
// Results are never cached.
func (s *Service) Aggregate(ctx context.Context, title *string, f aggregate.Filter) ([]BookCard, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	books, err := s.books.Search(ctx, title)
	if err != nil {
		return nil, err
	}
	aggs, err := s.aggregator.AggregateBooks(ctx, books, f)
	if err != nil {
		return nil, err
	}
	cards := make([]BookCard, 0, len(books))
	for _, book := range books {
		cards = append(cards, BookCard{Book: book, Aggregate: aggs[book.ID]})
	}
	return cards, nil
}

// Rank evaluates a named preset over the books whose title matches.
func (s *Service) Rank(ctx context.Context, preset string, title *string) ([]ranking.Entry, error) {
	if _, err := ranking.Lookup(preset); err != nil {
		return nil, err
	}
	books, err := s.books.Search(ctx, title)
	if err != nil {
		return nil, err
	}
	return s.ranker.Rank(ctx, preset, books)
}

// Presets lists the available ranking presets.
func (s *Service) Presets() []ranking.Preset {
	names := ranking.Names()
	out := make([]ranking.Preset, 0, len(names))
	for _, name := range names {
		p, _ := ranking.Lookup(name)
		out = append(out, p)
	}
	return out
}

// readCache decodes key into dst. Any failure counts as a miss.
func (s *Service) readCache(ctx context.Context, key string, dst interface{}) bool {
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("cache read failed", "key", key, "err", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.logger.Warn("cache payload corrupt", "key", key, "err", err)
		return false
	}
	return true
}

// writeCache stores v under key unless a write completed after gen was read.
// A write that lands during the Set is caught by the second check.
func (s *Service) writeCache(ctx context.Context, gen uint64, key string, v interface{}) {
	if s.writes.Load() != gen {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("cache encode failed", "key", key, "err", err)
		return
	}
	if err := s.cache.Set(ctx, key, raw); err != nil {
		s.logger.Warn("cache write failed", "key", key, "err", err)
		return
	}
	if s.writes.Load() != gen {
		if err := s.cache.Forget(ctx, key); err != nil {
			s.logger.Warn("cache forget failed", "key", key, "err", err)
		}
	}
}
