package catalog

import (
	"context"

	"github.com/Clark-Hu/book-rankings/internal/cache"
	"github.com/Clark-Hu/book-rankings/internal/domain"
	"github.com/Clark-Hu/book-rankings/internal/repository"
)

// CreateBook stores a new book. Nothing is cached for it yet.
func (s *Service) CreateBook(ctx context.Context, params repository.BookCreateParams) (domain.Book, error) {
	book, err := s.books.Create(ctx, params)
	if err != nil {
		return domain.Book{}, err
	}
	s.invalidate(ctx, cache.KindBook, cache.EventCreated, book.ID)
	return book, nil
}

func (s *Service) UpdateBook(ctx context.Context, id string, params repository.BookUpdateParams) (domain.Book, error) {
	bookID, err := canonicalID(id)
	if err != nil {
		return domain.Book{}, err
	}
	book, err := s.books.Update(ctx, bookID, params)
	if err != nil {
		return domain.Book{}, err
	}
	s.invalidate(ctx, cache.KindBook, cache.EventUpdated, book.ID)
	return book, nil
}

// DeleteBook removes the book. Its reviews go with it.
func (s *Service) DeleteBook(ctx context.Context, id string) (domain.Book, error) {
	bookID, err := canonicalID(id)
	if err != nil {
		return domain.Book{}, err
	}
	book, err := s.books.Delete(ctx, bookID)
	if err != nil {
		return domain.Book{}, err
	}
	s.invalidate(ctx, cache.KindBook, cache.EventDeleted, book.ID)
	return book, nil
}

func (s *Service) CreateReview(ctx context.Context, params repository.ReviewCreateParams) (domain.Review, error) {
	bookID, err := canonicalID(params.BookID)
	if err != nil {
		return domain.Review{}, err
	}
	params.BookID = bookID
	review, err := s.reviews.Create(ctx, params)
	if err != nil {
		return domain.Review{}, err
	}
	s.invalidate(ctx, cache.KindReview, cache.EventCreated, review.BookID)
	return review, nil
}

func (s *Service) UpdateReview(ctx context.Context, bookID, reviewID string, params repository.ReviewUpdateParams) (domain.Review, error) {
	bid, rid, err := canonicalPair(bookID, reviewID)
	if err != nil {
		return domain.Review{}, err
	}
	review, err := s.reviews.Update(ctx, bid, rid, params)
	if err != nil {
		return domain.Review{}, err
	}
	s.invalidate(ctx, cache.KindReview, cache.EventUpdated, review.BookID)
	return review, nil
}

func (s *Service) DeleteReview(ctx context.Context, bookID, reviewID string) (domain.Review, error) {
	bid, rid, err := canonicalPair(bookID, reviewID)
	if err != nil {
		return domain.Review{}, err
	}
	review, err := s.reviews.Delete(ctx, bid, rid)
	if err != nil {
		return domain.Review{}, err
	}
	s.invalidate(ctx, cache.KindReview, cache.EventDeleted, review.BookID)
	return review, nil
}

// invalidate runs after the write is durable and never fails it. The write
// counter moves before any key is forgotten so in-flight loads drop their Set.
func (s *Service) invalidate(ctx context.Context, kind cache.EntityKind, event cache.Event, bookID string) {
	s.writes.Add(1)
	if id, err := canonicalID(bookID); err == nil {
		bookID = id
	}
	if err := s.invalidator.Invalidate(ctx, kind, event, bookID); err != nil {
		s.logger.Error("cache invalidation failed", "kind", kind, "event", event, "book_id", bookID, "err", err)
	}
}
