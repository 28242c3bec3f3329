// Package cache holds derived per-book payloads and evicts them when the
// book or any of its reviews changes.
//
// Two key namespaces are in use:
//   - "book:"  + id for the book detail payload
//   - "books:" + id for the book card shown in list contexts
//
// A Store is a pure optimization: callers treat every error as a miss and
// recompute from source data.
package cache

import (
	"context"
	"errors"
)

var (
	// ErrMiss is returned by Get when the key is absent.
	ErrMiss = errors.New("cache: key not found")

	// ErrUnavailable wraps backend failures (connection, timeout).
	ErrUnavailable = errors.New("cache: unavailable")

	// ErrKeyEmpty is returned when an empty key is provided.
	ErrKeyEmpty = errors.New("cache: key cannot be empty")
)

// Key prefixes.
const (
	PrefixBook     = "book:"
	PrefixBookList = "books:"
)

// Store is a string-keyed byte store safe for concurrent use.
// Forget on an absent key is a no-op.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Forget(ctx context.Context, key string) error
}

// BookKey is the key of a book's detail payload.
func BookKey(bookID string) string {
	return PrefixBook + bookID
}

// BookListKey is the key of a book's list-context card.
func BookListKey(bookID string) string {
	return PrefixBookList + bookID
}
