package domain

import "time"

// Rating bounds accepted for a review.
const (
	MinRating = 1
	MaxRating = 5
)

// Review represents a single reader's review of a book.
// CreatedAt is the timestamp used for date-window filtering.
type Review struct {
	ID        string    `json:"id"`
	BookID    string    `json:"bookId"`
	Rating    int       `json:"rating"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ValidRating reports whether value is an accepted rating.
func ValidRating(value int) bool {
	return value >= MinRating && value <= MaxRating
}
