package model

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used in config, forms, and URLs.
const DateLayout = "2006-01-02"

// DateRange is a pair of instants bounding the events shown on the graph.
// Start <= End is expected but not enforced.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DefaultDateRange is the window the data set was collected in,
// 2021-07-26 through 2021-08-25 as calendar days in loc.
func DefaultDateRange(loc *time.Location) DateRange {
	if loc == nil {
		loc = time.Local
	}
	return DateRange{
		Start: time.Date(2021, time.July, 26, 0, 0, 0, 0, loc),
		End:   time.Date(2021, time.August, 25, 0, 0, 0, 0, loc),
	}
}

// StartOfDay truncates Start to midnight in loc.
func (r DateRange) StartOfDay(loc *time.Location) time.Time {
	return StartOfDay(r.Start, loc)
}

// EndOfDay moves End to 23:59:59.999 in loc.
func (r DateRange) EndOfDay(loc *time.Location) time.Time {
	return EndOfDay(r.End, loc)
}

// Inverted reports whether the range ends on an earlier day than it starts.
func (r DateRange) Inverted(loc *time.Location) bool {
	return r.StartOfDay(loc).After(r.EndOfDay(loc))
}

// Contains reports whether t falls inside the inclusive day-aligned window.
func (r DateRange) Contains(t time.Time, loc *time.Location) bool {
	return !t.Before(r.StartOfDay(loc)) && !t.After(r.EndOfDay(loc))
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s..%s", r.Start.Format(DateLayout), r.End.Format(DateLayout))
}

// StartOfDay zeroes the time-of-day of t in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// EndOfDay sets the time-of-day of t to 23:59:59.999 in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999_000_000, loc)
}

// ParseDate reads a calendar date or a datetime in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.ParseInLocation(DateLayout, s, loc); err == nil {
		return t, nil
	}
	if t, ok := ParseTimestamp(s, loc); ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
