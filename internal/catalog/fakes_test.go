package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Clark-Hu/book-rankings/internal/aggregate"
	"github.com/Clark-Hu/book-rankings/internal/cache"
	"github.com/Clark-Hu/book-rankings/internal/domain"
	"github.com/Clark-Hu/book-rankings/internal/ranking"
	"github.com/Clark-Hu/book-rankings/internal/repository"
)

// memoryRepo backs BookStore, ReviewStore and aggregate.Source with maps.
type memoryRepo struct {
	mu          sync.Mutex
	books       map[string]domain.Book
	order       []string
	reviews     map[string]domain.Review
	now         time.Time
	sourceCalls int
	searchCalls int
	// onListReviews runs after ListByBook has read, outside the lock.
	onListReviews func()
}

func newMemoryRepo(now time.Time) *memoryRepo {
	return &memoryRepo{
		books:   make(map[string]domain.Book),
		reviews: make(map[string]domain.Review),
		now:     now,
	}
}

func (m *memoryRepo) nextID() string {
	return uuid.NewString()
}

func (m *memoryRepo) Create(_ context.Context, p repository.BookCreateParams) (domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := domain.Book{ID: m.nextID(), Title: p.Title, Author: p.Author, CreatedAt: m.now, UpdatedAt: m.now}
	m.books[b.ID] = b
	m.order = append(m.order, b.ID)
	return b, nil
}

func (m *memoryRepo) GetByID(ctx context.Context, id string) (domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return domain.Book{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return domain.Book{}, repository.ErrNotFound
	}
	return b, nil
}

func (m *memoryRepo) Update(_ context.Context, id string, p repository.BookUpdateParams) (domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return domain.Book{}, repository.ErrNotFound
	}
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	m.books[id] = b
	return b, nil
}

func (m *memoryRepo) Delete(_ context.Context, id string) (domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return domain.Book{}, repository.ErrNotFound
	}
	delete(m.books, id)
	for rid, r := range m.reviews {
		if r.BookID == id {
			delete(m.reviews, rid)
		}
	}
	return b, nil
}

func (m *memoryRepo) List(_ context.Context, _ repository.BookListFilters) (repository.BookListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []domain.Book
	for _, id := range m.order {
		if b, ok := m.books[id]; ok {
			items = append(items, b)
		}
	}
	return repository.BookListResult{Items: items}, nil
}

func (m *memoryRepo) Search(_ context.Context, title *string) ([]domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchCalls++
	var out []domain.Book
	for _, id := range m.order {
		b, ok := m.books[id]
		if !ok {
			continue
		}
		if title != nil && !strings.Contains(strings.ToLower(b.Title), strings.ToLower(*title)) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// reviewStore adapts memoryRepo to ReviewStore; the method names collide
// with BookStore.
type reviewStore struct{ *memoryRepo }

func (r reviewStore) Create(_ context.Context, p repository.ReviewCreateParams) (domain.Review, error) {
	return r.createAt(p, r.now)
}

func (m *memoryRepo) createAt(p repository.ReviewCreateParams, at time.Time) (domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[p.BookID]; !ok {
		return domain.Review{}, repository.ErrNotFound
	}
	rv := domain.Review{ID: m.nextID(), BookID: p.BookID, Rating: p.Rating, Content: p.Content, CreatedAt: at, UpdatedAt: at}
	m.reviews[rv.ID] = rv
	return rv, nil
}

func (r reviewStore) Get(_ context.Context, bookID, reviewID string) (domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rv, ok := r.reviews[reviewID]
	if !ok || rv.BookID != bookID {
		return domain.Review{}, repository.ErrNotFound
	}
	return rv, nil
}

func (r reviewStore) Update(_ context.Context, bookID, reviewID string, p repository.ReviewUpdateParams) (domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rv, ok := r.reviews[reviewID]
	if !ok || rv.BookID != bookID {
		return domain.Review{}, repository.ErrNotFound
	}
	if p.Rating != nil {
		rv.Rating = *p.Rating
	}
	if p.Content != nil {
		rv.Content = *p.Content
	}
	r.reviews[reviewID] = rv
	return rv, nil
}

func (r reviewStore) Delete(_ context.Context, bookID, reviewID string) (domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rv, ok := r.reviews[reviewID]
	if !ok || rv.BookID != bookID {
		return domain.Review{}, repository.ErrNotFound
	}
	delete(r.reviews, reviewID)
	return rv, nil
}

func (r reviewStore) ListByBook(ctx context.Context, bookID string) ([]domain.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	var out []domain.Review
	for _, rv := range r.reviews {
		if rv.BookID == bookID {
			out = append(out, rv)
		}
	}
	hook := r.onListReviews
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	return out, nil
}

func (m *memoryRepo) AggregateReviews(_ context.Context, bookIDs []string, f aggregate.Filter) (map[string]aggregate.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sourceCalls++
	all := make([]domain.Review, 0, len(m.reviews))
	for _, rv := range m.reviews {
		all = append(all, rv)
	}
	out := make(map[string]aggregate.Result, len(bookIDs))
	for _, id := range bookIDs {
		out[id] = aggregate.Fold(id, all, f)
	}
	return out, nil
}

// brokenStore fails every operation as an unreachable backend would.
type brokenStore struct {
	forgets int
}

func (b *brokenStore) Get(context.Context, string) ([]byte, error) {
	return nil, cache.ErrUnavailable
}

func (b *brokenStore) Set(context.Context, string, []byte) error {
	return cache.ErrUnavailable
}

func (b *brokenStore) Forget(context.Context, string) error {
	b.forgets++
	return errors.New("connection refused")
}

type fixture struct {
	repo    *memoryRepo
	service *Service
	store   cache.Store
}

func newFixture(now time.Time, store cache.Store) *fixture {
	repo := newMemoryRepo(now)
	agg := aggregate.New(repo)
	svc := New(Deps{
		Books:      repo,
		Reviews:    reviewStore{repo},
		Cache:      store,
		Aggregator: agg,
		Ranker:     ranking.NewRanker(agg, ranking.ClockFunc(func() time.Time { return now })),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return &fixture{repo: repo, service: svc, store: store}
}
