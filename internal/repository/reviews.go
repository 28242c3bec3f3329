package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/book-rankings/internal/aggregate"
	"github.com/Clark-Hu/book-rankings/internal/domain"
)

// ReviewsRepository provides helpers for book reviews.
type ReviewsRepository struct {
	pool *pgxpool.Pool
}

const reviewColumns = `
    id::text,
    book_id::text,
    rating,
    content,
    created_at,
    updated_at
`

// postgres foreign_key_violation
const fkViolation = "23503"

// ReviewCreateParams captures the payload required to create a review.
type ReviewCreateParams struct {
	BookID  string
	Rating  int
	Content string
}

// ReviewUpdateParams carries optional replacements; nil fields are kept.
type ReviewUpdateParams struct {
	Rating  *int
	Content *string
}

// Create inserts a review. A missing book yields ErrNotFound.
func (r *ReviewsRepository) Create(ctx context.Context, params ReviewCreateParams) (domain.Review, error) {
	bookID, err := parseID(params.BookID)
	if err != nil {
		return domain.Review{}, err
	}
	query := fmt.Sprintf(`
        INSERT INTO reviews (book_id, rating, content)
        VALUES ($1,$2,$3)
        RETURNING %s
    `, reviewColumns)

	review, err := scanReview(r.pool.QueryRow(ctx, query, bookID, params.Rating, params.Content))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == fkViolation {
			return domain.Review{}, ErrNotFound
		}
		return domain.Review{}, err
	}
	return review, nil
}

// Get retrieves one review of a book.
func (r *ReviewsRepository) Get(ctx context.Context, bookID, reviewID string) (domain.Review, error) {
	bid, rid, err := parseReviewIDs(bookID, reviewID)
	if err != nil {
		return domain.Review{}, err
	}
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE id = $1 AND book_id = $2`, reviewColumns)
	return notFoundOnNoRows(scanReview(r.pool.QueryRow(ctx, query, rid, bid)))
}

// Update applies the non-nil fields of params to a review of the book.
func (r *ReviewsRepository) Update(ctx context.Context, bookID, reviewID string, params ReviewUpdateParams) (domain.Review, error) {
	bid, rid, err := parseReviewIDs(bookID, reviewID)
	if err != nil {
		return domain.Review{}, err
	}
	query := fmt.Sprintf(`
        UPDATE reviews
        SET rating = COALESCE($3, rating),
            content = COALESCE($4, content),
            updated_at = now()
        WHERE id = $1 AND book_id = $2
        RETURNING %s
    `, reviewColumns)

	return notFoundOnNoRows(scanReview(r.pool.QueryRow(ctx, query, rid, bid, params.Rating, params.Content)))
}

// Delete removes a review of the book and returns the deleted row.
func (r *ReviewsRepository) Delete(ctx context.Context, bookID, reviewID string) (domain.Review, error) {
	bid, rid, err := parseReviewIDs(bookID, reviewID)
	if err != nil {
		return domain.Review{}, err
	}
	query := fmt.Sprintf(`DELETE FROM reviews WHERE id = $1 AND book_id = $2 RETURNING %s`, reviewColumns)
	return notFoundOnNoRows(scanReview(r.pool.QueryRow(ctx, query, rid, bid)))
}

// ListByBook returns the reviews of a book, newest first.
func (r *ReviewsRepository) ListByBook(ctx context.Context, bookID string) ([]domain.Review, error) {
	bid, err := parseID(bookID)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
        SELECT %s FROM reviews
        WHERE book_id = $1
        ORDER BY created_at DESC, id DESC
    `, reviewColumns)

	rows, err := r.pool.Query(ctx, query, bid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0)
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reviews, nil
}

// AggregateReviews returns the review count and average rating per book
// under f. The window predicate is rendered once, into the join, so both
// metrics read the same rows. Books with no matching review come back with a
// zero count and a NULL average; malformed ids are skipped. Results are keyed
// by the id spelling the caller passed, so an uppercase uuid finds its row.
// Errors come back unwrapped, like every other method here.
func (r *ReviewsRepository) AggregateReviews(ctx context.Context, bookIDs []string, f aggregate.Filter) (map[string]aggregate.Result, error) {
	ids := make([]uuid.UUID, 0, len(bookIDs))
	requested := make(map[string][]string, len(bookIDs))
	for _, id := range bookIDs {
		parsed, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		canonical := parsed.String()
		if _, seen := requested[canonical]; !seen {
			ids = append(ids, parsed)
		}
		requested[canonical] = append(requested[canonical], id)
	}
	results := make(map[string]aggregate.Result, len(bookIDs))
	if len(ids) == 0 {
		return results, nil
	}

	args := []interface{}{ids}
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	join := "r.book_id = b.id"
	if !f.Unbounded() {
		join += " AND " + windowCondition(f, arg)
	}

	query := fmt.Sprintf(`
        SELECT b.id::text,
               COUNT(r.id)::int8 AS review_count,
               AVG(r.rating)::float8 AS average_rating
        FROM books b
        LEFT JOIN reviews r ON %s
        WHERE b.id = ANY($1)
        GROUP BY b.id
    `, join)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var res aggregate.Result
		if err := rows.Scan(&res.BookID, &res.Count, &res.Average); err != nil {
			return nil, err
		}
		for _, id := range requested[res.BookID] {
			res.BookID = id
			results[id] = res
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// windowCondition renders the bounds of a non-empty window.
func windowCondition(f aggregate.Filter, arg func(interface{}) string) string {
	switch {
	case f.From != nil && f.To != nil:
		return fmt.Sprintf("r.created_at BETWEEN %s AND %s", arg(*f.From), arg(*f.To))
	case f.From != nil:
		return fmt.Sprintf("r.created_at >= %s", arg(*f.From))
	default:
		return fmt.Sprintf("r.created_at <= %s", arg(*f.To))
	}
}

func parseReviewIDs(bookID, reviewID string) (uuid.UUID, uuid.UUID, error) {
	bid, err := parseID(bookID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	rid, err := parseID(reviewID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return bid, rid, nil
}

func notFoundOnNoRows(review domain.Review, err error) (domain.Review, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Review{}, ErrNotFound
		}
		return domain.Review{}, err
	}
	return review, nil
}

func scanReview(row pgx.Row) (domain.Review, error) {
	var (
		review domain.Review
		rating int16
	)
	err := row.Scan(
		&review.ID,
		&review.BookID,
		&rating,
		&review.Content,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		return domain.Review{}, err
	}
	review.Rating = int(rating)
	return review, nil
}
