package ranking

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Clark-Hu/book-rankings/internal/aggregate"
)

// Preset names.
const (
	PopularLastMonth        = "popular-last-month"
	PopularLast6Months      = "popular-last-6-months"
	HighestRatedLastMonth   = "highest-rated-last-month"
	HighestRatedLast6Months = "highest-rated-last-6-months"
)

// ErrUnknownPreset is returned for preset names missing from the table.
var ErrUnknownPreset = errors.New("ranking: unknown preset")

// Preset is a fixed combination of trailing window, policies and threshold.
type Preset struct {
	Name string
	// Months is the length of the trailing window ending at "now".
	Months int
	// Policies are applied in order; the last one decides the final order.
	Policies   []Policy
	MinReviews int64
}

// Query resolves the preset against now. Called per request so the window
// always trails the current time.
func (p Preset) Query(now time.Time) Query {
	return Query{
		Window:     aggregate.Between(monthsBefore(now, p.Months), now),
		Policies:   p.Policies,
		MinReviews: p.MinReviews,
	}
}

var presets = map[string]Preset{
	PopularLastMonth: {
		Name:       PopularLastMonth,
		Months:     1,
		Policies:   []Policy{Quality{}, Popularity{}},
		MinReviews: 2,
	},
	PopularLast6Months: {
		Name:       PopularLast6Months,
		Months:     6,
		Policies:   []Policy{Quality{}, Popularity{}},
		MinReviews: 5,
	},
	HighestRatedLastMonth: {
		Name:       HighestRatedLastMonth,
		Months:     1,
		Policies:   []Policy{Popularity{}, Quality{}},
		MinReviews: 2,
	},
	HighestRatedLast6Months: {
		Name:       HighestRatedLast6Months,
		Months:     6,
		Policies:   []Policy{Popularity{}, Quality{}},
		MinReviews: 5,
	},
}

// Lookup returns the preset registered under name.
func Lookup(name string) (Preset, error) {
	p, ok := presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return p, nil
}

// Names lists the registered preset names in lexical order.
func Names() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// monthsBefore steps back n calendar months keeping the time of day. Days
// that do not exist in the target month clamp to its last day, so Mar 31
// minus one month is the end of February rather than early March.
func monthsBefore(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	target := time.Date(y, m-time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := time.Date(target.Year(), target.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
	if d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
