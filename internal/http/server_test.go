package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/book-rankings/internal/aggregate"
	"github.com/Clark-Hu/book-rankings/internal/catalog"
	"github.com/Clark-Hu/book-rankings/internal/config"
	"github.com/Clark-Hu/book-rankings/internal/domain"
	"github.com/Clark-Hu/book-rankings/internal/ranking"
	"github.com/Clark-Hu/book-rankings/internal/repository"
)

// fakeCatalog records the arguments it receives and returns canned results.
type fakeCatalog struct {
	err error

	gotTitle  *string
	gotFilter aggregate.Filter
	gotPreset string
	gotReview repository.ReviewCreateParams
	gotUpdate repository.ReviewUpdateParams
	calls     int
}

var errBoom = errors.New("boom")

func (f *fakeCatalog) BookDetail(_ context.Context, id string) (catalog.BookDetail, error) {
	f.calls++
	if f.err != nil {
		return catalog.BookDetail{}, f.err
	}
	return catalog.BookDetail{Book: domain.Book{ID: id, Title: "Dune"}, Reviews: []domain.Review{}, Aggregate: aggregate.Result{BookID: id}}, nil
}

func (f *fakeCatalog) ListBooks(_ context.Context, filters repository.BookListFilters) (catalog.BookPage, error) {
	f.calls++
	f.gotTitle = filters.Title
	return catalog.BookPage{}, f.err
}

func (f *fakeCatalog) Aggregate(_ context.Context, title *string, filter aggregate.Filter) ([]catalog.BookCard, error) {
	f.calls++
	f.gotTitle = title
	f.gotFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	avg := 4.5
	return []catalog.BookCard{{Book: domain.Book{ID: "b1"}, Aggregate: aggregate.Result{BookID: "b1", Count: 2, Average: &avg}}}, nil
}

func (f *fakeCatalog) Rank(_ context.Context, preset string, title *string) ([]ranking.Entry, error) {
	f.calls++
	f.gotPreset = preset
	f.gotTitle = title
	if f.err != nil {
		return nil, f.err
	}
	if _, err := ranking.Lookup(preset); err != nil {
		return nil, err
	}
	return nil, nil
}

func (f *fakeCatalog) Presets() []ranking.Preset {
	out := make([]ranking.Preset, 0)
	for _, name := range ranking.Names() {
		p, _ := ranking.Lookup(name)
		out = append(out, p)
	}
	return out
}

func (f *fakeCatalog) CreateBook(_ context.Context, p repository.BookCreateParams) (domain.Book, error) {
	f.calls++
	return domain.Book{ID: "b1", Title: p.Title, Author: p.Author}, f.err
}

func (f *fakeCatalog) UpdateBook(_ context.Context, id string, p repository.BookUpdateParams) (domain.Book, error) {
	f.calls++
	return domain.Book{ID: id}, f.err
}

func (f *fakeCatalog) DeleteBook(_ context.Context, id string) (domain.Book, error) {
	f.calls++
	return domain.Book{ID: id}, f.err
}

func (f *fakeCatalog) CreateReview(_ context.Context, p repository.ReviewCreateParams) (domain.Review, error) {
	f.calls++
	f.gotReview = p
	return domain.Review{ID: "r1", BookID: p.BookID, Rating: p.Rating, Content: p.Content}, f.err
}

func (f *fakeCatalog) UpdateReview(_ context.Context, bookID, reviewID string, p repository.ReviewUpdateParams) (domain.Review, error) {
	f.calls++
	f.gotUpdate = p
	return domain.Review{ID: reviewID, BookID: bookID}, f.err
}

func (f *fakeCatalog) DeleteReview(_ context.Context, bookID, reviewID string) (domain.Review, error) {
	f.calls++
	return domain.Review{ID: reviewID, BookID: bookID}, f.err
}

func (f *fakeCatalog) Review(_ context.Context, bookID, reviewID string) (domain.Review, error) {
	f.calls++
	if f.err != nil {
		return domain.Review{}, f.err
	}
	return domain.Review{ID: reviewID, BookID: bookID, Rating: 4, Content: "good"}, nil
}

func buildTestServer(tb testing.TB, cat Catalog) *Server {
	tb.Helper()
	cfg := config.Config{
		Port:             "0",
		AuthToken:        "secret",
		ReadTimeoutSecs:  15,
		WriteTimeoutSecs: 15,
		IdleTimeoutSecs:  60,
	}
	health := CheckFunc(func(context.Context) error { return nil })
	return New(cfg, health, cat, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func do(srv *Server, method, path, body string, authed bool) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if authed {
		req.Header.Set("Authorization", "Bearer secret")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealthzAndMetrics(t *testing.T) {
	srv := buildTestServer(t, &fakeCatalog{})

	rec := do(srv, http.MethodGet, "/healthz", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(srv, http.MethodGet, "/metrics", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")

	srv.health = CheckFunc(func(context.Context) error { return errBoom })
	rec = do(srv, http.MethodGet, "/healthz", "", false)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthz_AllChecksMustPass(t *testing.T) {
	srv := buildTestServer(t, &fakeCatalog{})
	ok := CheckFunc(func(context.Context) error { return nil })
	var cachePinged bool
	cache := CheckFunc(func(context.Context) error {
		cachePinged = true
		return errBoom
	})

	srv.health = Checks{ok, nil, cache}
	rec := do(srv, http.MethodGet, "/healthz", "", false)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.True(t, cachePinged)

	srv.health = Checks{ok, nil}
	rec = do(srv, http.MethodGet, "/healthz", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGetReview(t *testing.T) {
	cat := &fakeCatalog{}
	srv := buildTestServer(t, cat)

	rec := do(srv, http.MethodGet, "/books/b1/reviews/r9", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	var review domain.Review
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &review))
	require.Equal(t, "r9", review.ID)
	require.Equal(t, "b1", review.BookID)
	require.Equal(t, 1, cat.calls)

	srv = buildTestServer(t, &fakeCatalog{err: repository.ErrNotFound})
	rec = do(srv, http.MethodGet, "/books/b1/reviews/r9", "", false)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)
}

func TestWritesRequireBearer(t *testing.T) {
	cat := &fakeCatalog{}
	srv := buildTestServer(t, cat)

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/books"},
		{http.MethodPatch, "/books/b1"},
		{http.MethodDelete, "/books/b1"},
		{http.MethodPost, "/books/b1/reviews"},
		{http.MethodPatch, "/books/b1/reviews/r1"},
		{http.MethodDelete, "/books/b1/reviews/r1"},
	}
	for _, c := range cases {
		rec := do(srv, c.method, c.path, `{}`, false)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", c.method, c.path)
	}
	require.Zero(t, cat.calls)
}

func TestCreateBook(t *testing.T) {
	srv := buildTestServer(t, &fakeCatalog{})

	rec := do(srv, http.MethodPost, "/books", `{"title":"  Dune ","author":"Herbert"}`, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "/books/b1", rec.Header().Get("Location"))

	var book domain.Book
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &book))
	require.Equal(t, "Dune", book.Title)

	rec = do(srv, http.MethodPost, "/books", `{"title":"   "}`, true)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(srv, http.MethodPost, "/books", `not json`, true)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(srv, http.MethodPost, "/books", `{"title":"x","isbn":"1"}`, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateReview_Validation(t *testing.T) {
	cat := &fakeCatalog{}
	srv := buildTestServer(t, cat)

	for _, body := range []string{
		`{"rating":0,"content":"x"}`,
		`{"rating":6,"content":"x"}`,
		`{"rating":4.5,"content":"x"}`,
		`{"rating":4,"content":"   "}`,
	} {
		rec := do(srv, http.MethodPost, "/books/b1/reviews", body, true)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code, body)
	}
	require.Zero(t, cat.calls)

	rec := do(srv, http.MethodPost, "/books/b1/reviews", `{"rating":6,"content":""}`, true)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var verr struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verr))
	require.Equal(t, "VALIDATION_ERROR", verr.Code)
	require.Equal(t, map[string]string{"rating": "rating", "content": "required"}, verr.Details)

	rec = do(srv, http.MethodPost, "/books/b1/reviews", `{"rating":5,"content":" loved it "}`, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "b1", cat.gotReview.BookID)
	require.Equal(t, 5, cat.gotReview.Rating)
	require.Equal(t, "loved it", cat.gotReview.Content)
	require.Equal(t, "/books/b1/reviews/r1", rec.Header().Get("Location"))
}

func TestUpdateBook(t *testing.T) {
	cat := &fakeCatalog{}
	srv := buildTestServer(t, cat)

	rec := do(srv, http.MethodPatch, "/books/b1", `{"title":"  "}`, true)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Zero(t, cat.calls)

	rec = do(srv, http.MethodPatch, "/books/b1", `{"author":"Frank Herbert"}`, true)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(srv, http.MethodDelete, "/books/b1", "", true)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestUpdateReview(t *testing.T) {
	cat := &fakeCatalog{}
	srv := buildTestServer(t, cat)

	rec := do(srv, http.MethodPatch, "/books/b1/reviews/r1", `{"rating":9}`, true)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(srv, http.MethodPatch, "/books/b1/reviews/r1", `{"content":""}`, true)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(srv, http.MethodPatch, "/books/b1/reviews/r1", `{"rating":2}`, true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, cat.gotUpdate.Rating)
	require.Equal(t, 2, *cat.gotUpdate.Rating)
	require.Nil(t, cat.gotUpdate.Content)

	rec = do(srv, http.MethodDelete, "/books/b1/reviews/r1", "", true)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		method string
		path   string
		status int
		code   string
	}{
		{"missing book", repository.ErrNotFound, http.MethodGet, "/books/b1", http.StatusNotFound, "NOT_FOUND"},
		{"missing review", repository.ErrNotFound, http.MethodDelete, "/books/b1/reviews/r1", http.StatusNotFound, "NOT_FOUND"},
		{"wrapped not found", fmt.Errorf("load: %w", repository.ErrNotFound), http.MethodGet, "/books/b1", http.StatusNotFound, "NOT_FOUND"},
		{"internal", errBoom, http.MethodGet, "/books", http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"internal on rank", errBoom, http.MethodGet, "/books/rankings/popular-last-month", http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := buildTestServer(t, &fakeCatalog{err: tt.err})
			rec := do(srv, tt.method, tt.path, "", true)
			require.Equal(t, tt.status, rec.Code)
			require.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestAggregates(t *testing.T) {
	cat := &fakeCatalog{}
	srv := buildTestServer(t, cat)

	rec := do(srv, http.MethodGet, "/books/aggregates?title=dune&from=2026-01-05&to=2026-01-15", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "dune", *cat.gotTitle)
	require.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), *cat.gotFilter.From)
	require.Equal(t, time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond), *cat.gotFilter.To)
	require.JSONEq(t, `{"items":[{"book":{"id":"b1","title":"","author":"","createdAt":"0001-01-01T00:00:00Z","updatedAt":"0001-01-01T00:00:00Z"},"aggregate":{"bookId":"b1","reviewCount":2,"averageRating":4.5}}]}`, rec.Body.String())

	rec = do(srv, http.MethodGet, "/books/aggregates?from=2026-02-01&to=2026-01-01", "", false)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "INVALID_WINDOW", decodeError(t, rec).Code)

	rec = do(srv, http.MethodGet, "/books/aggregates?from=yesterday", "", false)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "BAD_REQUEST", decodeError(t, rec).Code)
}

func TestRankings(t *testing.T) {
	cat := &fakeCatalog{}
	srv := buildTestServer(t, cat)

	rec := do(srv, http.MethodGet, "/books/rankings/highest-rated-last-6-months?title=go", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, ranking.HighestRatedLast6Months, cat.gotPreset)
	require.Equal(t, "go", *cat.gotTitle)
	require.JSONEq(t, `{"preset":"highest-rated-last-6-months","items":[]}`, rec.Body.String())

	rec = do(srv, http.MethodGet, "/books/rankings/most-hyped", "", false)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "UNKNOWN_PRESET", decodeError(t, rec).Code)

	rec = do(srv, http.MethodGet, "/books/rankings", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	var presets []presetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &presets))
	require.Len(t, presets, 4)
	for _, p := range presets {
		require.Len(t, p.Policies, 2)
		require.Positive(t, p.MinReviews)
	}
}

func TestVerifyBearer(t *testing.T) {
	srv := &Server{cfg: config.Config{AuthToken: "secret"}}
	cases := []struct {
		header  string
		allowed bool
	}{
		{"Bearer secret", true},
		{"Bearer secret ", true},
		{"Bearer other", false},
		{"Bearer ", false},
		{"secret", false},
		{"", false},
	}
	for _, c := range cases {
		if srv.verifyBearer(c.header) != c.allowed {
			t.Fatalf("verifyBearer(%q) expected %v", c.header, c.allowed)
		}
	}
}

func BenchmarkHandleRank(b *testing.B) {
	srv := buildTestServer(b, &fakeCatalog{})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := do(srv, http.MethodGet, "/books/rankings/popular-last-month", "", false)
		if rec.Code != http.StatusOK {
			b.Fatalf("unexpected status %d", rec.Code)
		}
	}
}
