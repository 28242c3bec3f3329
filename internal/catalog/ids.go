package catalog

import (
	"github.com/google/uuid"

	"github.com/Clark-Hu/book-rankings/internal/repository"
)

// canonicalID rewrites an id to the spelling storage reports back, the
// lowercase hyphenated uuid form. Cache keys and invalidation both use it.
// Anything that is not a uuid cannot name a row.
func canonicalID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", repository.ErrNotFound
	}
	return parsed.String(), nil
}

func canonicalPair(bookID, reviewID string) (string, string, error) {
	bid, err := canonicalID(bookID)
	if err != nil {
		return "", "", err
	}
	rid, err := canonicalID(reviewID)
	if err != nil {
		return "", "", err
	}
	return bid, rid, nil
}
