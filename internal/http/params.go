package httpserver

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Clark-Hu/book-rankings/internal/aggregate"
	"github.com/Clark-Hu/book-rankings/internal/repository"
)

const dateLayout = "2006-01-02"

func buildBookFilters(query url.Values) (repository.BookListFilters, error) {
	var filters repository.BookListFilters

	filters.Title = titleParam(query)
	if val := strings.TrimSpace(query.Get("limit")); val != "" {
		limit, err := strconv.Atoi(val)
		if err != nil {
			return filters, fmt.Errorf("invalid limit value")
		}
		filters.Limit = limit
	}
	if val := strings.TrimSpace(query.Get("cursor")); val != "" {
		cursor, err := repository.DecodeCursor(val)
		if err != nil {
			return filters, fmt.Errorf("invalid cursor")
		}
		filters.Cursor = cursor
	}
	return filters, nil
}

func titleParam(query url.Values) *string {
	if title := strings.TrimSpace(query.Get("title")); title != "" {
		return &title
	}
	return nil
}

// buildWindow reads the optional from/to bounds. Both accept RFC 3339 or a
// bare date; a bare "to" date covers that whole day.
func buildWindow(query url.Values) (aggregate.Filter, error) {
	var f aggregate.Filter
	if val := strings.TrimSpace(query.Get("from")); val != "" {
		t, _, err := parseBound(val)
		if err != nil {
			return f, fmt.Errorf("invalid from value")
		}
		f.From = &t
	}
	if val := strings.TrimSpace(query.Get("to")); val != "" {
		t, dateOnly, err := parseBound(val)
		if err != nil {
			return f, fmt.Errorf("invalid to value")
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.To = &t
	}
	return f, nil
}

func parseBound(val string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.Parse(dateLayout, val)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}
