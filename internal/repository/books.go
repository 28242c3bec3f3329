package repository

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/book-rankings/internal/domain"
)

// BooksRepository provides persistence helpers for book entities.
type BooksRepository struct {
	pool *pgxpool.Pool
}

const bookColumns = `
    id::text,
    title,
    author,
    created_at,
    updated_at
`

// BookCreateParams bundles the fields required to create a book.
type BookCreateParams struct {
	Title  string
	Author string
}

// BookUpdateParams carries optional replacements; nil fields are kept.
type BookUpdateParams struct {
	Title  *string
	Author *string
}

// BookListFilters encapsulates search and pagination options.
type BookListFilters struct {
	Title  *string
	Limit  int
	Cursor *BookCursor
}

// BookCursor allows stable pagination by created_at/id.
type BookCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

// BookListResult returns the paginated payload.
type BookListResult struct {
	Items      []domain.Book
	NextCursor *string
}

// Create inserts a new book row and returns the stored entity.
func (r *BooksRepository) Create(ctx context.Context, params BookCreateParams) (domain.Book, error) {
	query := fmt.Sprintf(`
        INSERT INTO books (title, author)
        VALUES ($1,$2)
        RETURNING %s
    `, bookColumns)

	return scanBook(r.pool.QueryRow(ctx, query, params.Title, params.Author))
}

// GetByID fetches a book by its identifier.
func (r *BooksRepository) GetByID(ctx context.Context, id string) (domain.Book, error) {
	bookID, err := parseID(id)
	if err != nil {
		return domain.Book{}, err
	}
	query := fmt.Sprintf(`SELECT %s FROM books WHERE id = $1`, bookColumns)
	book, err := scanBook(r.pool.QueryRow(ctx, query, bookID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Book{}, ErrNotFound
		}
		return domain.Book{}, err
	}
	return book, nil
}

// Update applies the non-nil fields of params.
func (r *BooksRepository) Update(ctx context.Context, id string, params BookUpdateParams) (domain.Book, error) {
	bookID, err := parseID(id)
	if err != nil {
		return domain.Book{}, err
	}
	query := fmt.Sprintf(`
        UPDATE books
        SET title = COALESCE($2, title),
            author = COALESCE($3, author),
            updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, bookColumns)

	book, err := scanBook(r.pool.QueryRow(ctx, query, bookID, params.Title, params.Author))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Book{}, ErrNotFound
		}
		return domain.Book{}, err
	}
	return book, nil
}

// Delete removes a book (its reviews cascade) and returns the deleted row.
func (r *BooksRepository) Delete(ctx context.Context, id string) (domain.Book, error) {
	bookID, err := parseID(id)
	if err != nil {
		return domain.Book{}, err
	}
	query := fmt.Sprintf(`DELETE FROM books WHERE id = $1 RETURNING %s`, bookColumns)
	book, err := scanBook(r.pool.QueryRow(ctx, query, bookID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Book{}, ErrNotFound
		}
		return domain.Book{}, err
	}
	return book, nil
}

// List returns a page of books matching the provided filters.
func (r *BooksRepository) List(ctx context.Context, filters BookListFilters) (BookListResult, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	} else if filters.Limit > 100 {
		filters.Limit = 100
	}

	where := make([]string, 0)
	args := make([]interface{}, 0)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if cond := titleCondition(filters.Title, arg); cond != "" {
		where = append(where, cond)
	}
	if filters.Cursor != nil {
		cursorCreated := arg(filters.Cursor.CreatedAt)
		cursorID := arg(filters.Cursor.ID)
		where = append(where, fmt.Sprintf("(created_at, id::text) < (%s, %s)", cursorCreated, cursorID))
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(bookColumns)
	queryBuilder.WriteString(" FROM books")
	if len(where) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(where, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY created_at DESC, id::text DESC")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT %d", filters.Limit))

	items, err := r.queryBooks(ctx, queryBuilder.String(), args...)
	if err != nil {
		return BookListResult{}, err
	}

	var nextCursor *string
	if len(items) == filters.Limit {
		last := items[len(items)-1]
		token, err := encodeCursor(BookCursor{CreatedAt: last.CreatedAt, ID: last.ID})
		if err != nil {
			return BookListResult{}, err
		}
		nextCursor = &token
	}

	return BookListResult{Items: items, NextCursor: nextCursor}, nil
}

// Search returns every book whose title contains the given text, ignoring
// case. A nil or blank title returns the whole catalog. Used to build the
// candidate set of rankings.
func (r *BooksRepository) Search(ctx context.Context, title *string) ([]domain.Book, error) {
	args := make([]interface{}, 0, 1)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	query := "SELECT " + bookColumns + " FROM books"
	if cond := titleCondition(title, arg); cond != "" {
		query += " WHERE " + cond
	}
	query += " ORDER BY created_at ASC, id::text ASC"

	return r.queryBooks(ctx, query, args...)
}

func (r *BooksRepository) queryBooks(ctx context.Context, query string, args ...interface{}) ([]domain.Book, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Book, 0)
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, book)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func titleCondition(title *string, arg func(interface{}) string) string {
	if title == nil || strings.TrimSpace(*title) == "" {
		return ""
	}
	return fmt.Sprintf("title ILIKE %s", arg("%"+escapeLike(strings.TrimSpace(*title))+"%"))
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanBook(row pgx.Row) (domain.Book, error) {
	var book domain.Book
	err := row.Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	if err != nil {
		return domain.Book{}, err
	}
	return book, nil
}

func encodeCursor(c BookCursor) (string, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}

// DecodeCursor parses a cursor token into a BookCursor.
func DecodeCursor(token string) (*BookCursor, error) {
	if token == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}
	var cursor BookCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, fmt.Errorf("invalid cursor payload: %w", err)
	}
	return &cursor, nil
}
