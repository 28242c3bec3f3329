// Package catalog is the application layer over books and reviews. It reads
// through the aggregate cache and evicts derived entries after every write.
package catalog

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Clark-Hu/book-rankings/internal/aggregate"
	"github.com/Clark-Hu/book-rankings/internal/cache"
	"github.com/Clark-Hu/book-rankings/internal/domain"
	"github.com/Clark-Hu/book-rankings/internal/ranking"
	"github.com/Clark-Hu/book-rankings/internal/repository"
)

// BookStore persists books.
type BookStore interface {
	Create(ctx context.Context, params repository.BookCreateParams) (domain.Book, error)
	GetByID(ctx context.Context, id string) (domain.Book, error)
	Update(ctx context.Context, id string, params repository.BookUpdateParams) (domain.Book, error)
	Delete(ctx context.Context, id string) (domain.Book, error)
	List(ctx context.Context, filters repository.BookListFilters) (repository.BookListResult, error)
	Search(ctx context.Context, title *string) ([]domain.Book, error)
}

// ReviewStore persists reviews.
type ReviewStore interface {
	Create(ctx context.Context, params repository.ReviewCreateParams) (domain.Review, error)
	Get(ctx context.Context, bookID, reviewID string) (domain.Review, error)
	Update(ctx context.Context, bookID, reviewID string, params repository.ReviewUpdateParams) (domain.Review, error)
	Delete(ctx context.Context, bookID, reviewID string) (domain.Review, error)
	ListByBook(ctx context.Context, bookID string) ([]domain.Review, error)
}

// loadTimeout bounds a detail load detached from the request that started it.
const loadTimeout = 10 * time.Second

// Deps bundles the collaborators of a Service.
type Deps struct {
	Books      BookStore
	Reviews    ReviewStore
	Cache      cache.Store
	Aggregator *aggregate.Aggregator
	Ranker     *ranking.Ranker
	Logger     *slog.Logger
}

// Service implements the catalog use cases.
type Service struct {
	books       BookStore
	reviews     ReviewStore
	cache       cache.Store
	invalidator *cache.Invalidator
	aggregator  *aggregate.Aggregator
	ranker      *ranking.Ranker
	logger      *slog.Logger
	loads       singleflight.Group
	// writes counts completed mutations. A load keeps its cache entry only
	// if no write landed between its storage read and its Set.
	writes      atomic.Uint64
}

// New constructs a Service. A nil Ranker is built over the Aggregator with
// the system clock.
func New(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ranker := d.Ranker
	if ranker == nil {
		ranker = ranking.NewRanker(d.Aggregator, nil)
	}
	return &Service{
		books:       d.Books,
		reviews:     d.Reviews,
		cache:       d.Cache,
		invalidator: cache.NewInvalidator(d.Cache, logger),
		aggregator:  d.Aggregator,
		ranker:      ranker,
		logger:      logger.With("component", "catalog"),
	}
}
