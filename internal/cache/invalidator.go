package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// EntityKind names the kind of record that was written.
type EntityKind string

const (
	KindBook   EntityKind = "book"
	KindReview EntityKind = "review"
)

// Event names the kind of write.
type Event string

const (
	EventCreated Event = "created"
	EventUpdated Event = "updated"
	EventDeleted Event = "deleted"
)

// Invalidator evicts the cache entries derived from a book whenever the book
// or one of its reviews is written.
type Invalidator struct {
	store  Store
	logger *slog.Logger
}

// NewInvalidator constructs an Invalidator over store.
func NewInvalidator(store Store, logger *slog.Logger) *Invalidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Invalidator{store: store, logger: logger.With("component", "cache.invalidator")}
}

// KeysFor lists the cache keys a write invalidates. Both the detail and the
// list-card entries embed the book and its aggregates, so both go on every
// update or delete and on every review write. A newly created book has no
// entries yet.
func KeysFor(kind EntityKind, event Event, bookID string) []string {
	if bookID == "" {
		return nil
	}
	switch kind {
	case KindBook:
		if event == EventCreated {
			return nil
		}
		return []string{BookListKey(bookID), BookKey(bookID)}
	case KindReview:
		return []string{BookKey(bookID), BookListKey(bookID)}
	default:
		return nil
	}
}

// Invalidate forgets every key derived from bookID synchronously. All keys
// are attempted even if one fails; the joined error is returned for the
// caller to log. Mutations must not fail because of it.
func (i *Invalidator) Invalidate(ctx context.Context, kind EntityKind, event Event, bookID string) error {
	keys := KeysFor(kind, event, bookID)
	if len(keys) == 0 {
		return nil
	}
	invalidationsTotal.WithLabelValues(string(kind), string(event)).Inc()

	var errs []error
	for _, key := range keys {
		if err := i.store.Forget(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("forget %s: %w", key, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	i.logger.Debug("cache invalidated", "kind", kind, "event", event, "book_id", bookID, "keys", keys)
	return nil
}
