package model

import (
	"strings"
	"time"
)

// Layouts tried for timestamps that carry no zone. They are interpreted in
// the caller's location.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseTimestamp parses an ISO datetime string.
// RFC 3339 values keep their own offset; zone-less datetimes are read in loc;
// a bare date is UTC midnight. ok is false for anything else.
func ParseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Time returns the event's instant.
func (e *Event) Time(loc *time.Location) (time.Time, bool) {
	if e.Missing.Has(FieldTimestamp) {
		return time.Time{}, false
	}
	return ParseTimestamp(e.Timestamp, loc)
}
