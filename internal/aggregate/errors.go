package aggregate

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidWindow matches any *InvalidWindowError via errors.Is.
var ErrInvalidWindow = errors.New("aggregate: invalid window")

// InvalidWindowError reports a window whose From bound is after its To bound.
type InvalidWindowError struct {
	From time.Time
	To   time.Time
}

func (e *InvalidWindowError) Error() string {
	return fmt.Sprintf("aggregate: invalid window: from %s is after to %s",
		e.From.Format(time.RFC3339), e.To.Format(time.RFC3339))
}

// Is implements errors.Is matching against ErrInvalidWindow.
func (e *InvalidWindowError) Is(target error) bool {
	return target == ErrInvalidWindow
}
