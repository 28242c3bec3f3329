package aggregate

// Result is the review count and average rating of one book under a Filter.
// Average is nil when Count is zero; it never defaults to 0.
type Result struct {
	BookID  string   `json:"bookId"`
	Count   int64    `json:"reviewCount"`
	Average *float64 `json:"averageRating"`
}

// HasAverage reports whether at least one review contributed to the result.
func (r Result) HasAverage() bool {
	return r.Average != nil
}

// normalize enforces the zero-count invariant on results coming from a Source.
func (r Result) normalize(bookID string) Result {
	r.BookID = bookID
	if r.Count <= 0 {
		r.Count = 0
		r.Average = nil
	}
	return r
}
