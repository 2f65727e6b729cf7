package calendar

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidTimeRange = errors.New("invalid time range")

// TimeRange is a half-open interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return TimeRange{}, ErrInvalidTimeRange
	}
	return TimeRange{Start: start, End: end}, nil
}

// HasOverlap checks newRange against existing and returns the ranges it hits.
// With inclusive=true touching endpoints count as an overlap.
func HasOverlap(newRange TimeRange, existing []TimeRange, inclusive bool) (bool, []TimeRange) {
	var conflicts []TimeRange
	for _, tr := range existing {
		if rangesOverlap(newRange, tr, inclusive) {
			conflicts = append(conflicts, tr)
		}
	}
	return len(conflicts) > 0, conflicts
}

func rangesOverlap(a, b TimeRange, inclusive bool) bool {
	if inclusive {
		return !a.Start.After(b.End) && !b.Start.After(a.End)
	}
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// FormatSlotLabel renders a range for humans in the given location,
// e.g. "Monday, 10.03.2024, 09:00–09:15". A non-empty slotID is appended.
func FormatSlotLabel(tr TimeRange, loc *time.Location, slotID string) string {
	start, end := tr.Start, tr.End
	if loc != nil {
		start = start.In(loc)
		end = end.In(loc)
	}

	base := fmt.Sprintf("%s, %s, %s–%s",
		start.Weekday(),
		start.Format("02.01.2006"),
		start.Format("15:04"),
		end.Format("15:04"),
	)
	if slotID != "" {
		return fmt.Sprintf("%s (ID: %s)", base, slotID)
	}
	return base
}
