package domain

import "time"

// Book represents the canonical book entity in the database/service.
// Review counts and averages are never stored on the book; see package aggregate.
type Book struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
