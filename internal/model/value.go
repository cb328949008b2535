package model

import (
	"strconv"
	"strings"
	"time"
)

// Kind is the natural comparison type of a field.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindTime
)

// FieldValue is the typed value of one event field.
// Absent values carry no text or number and are handled by callers
// (filtering and sorting treat them as a separate case).
type FieldValue struct {
	Kind   Kind
	Text   string
	Number int64
	Absent bool
}

// Text builds a present text value.
func Text(s string) FieldValue { return FieldValue{Kind: KindText, Text: s} }

// Number builds a present numeric value.
func Number(n int64) FieldValue { return FieldValue{Kind: KindNumber, Number: n} }

// String renders the value the way it is matched against filter text.
// Absent values render as the empty string.
func (v FieldValue) String() string {
	if v.Absent {
		return ""
	}
	if v.Kind == KindNumber {
		return strconv.FormatInt(v.Number, 10)
	}
	return v.Text
}

// Contains reports whether the value contains sub, ignoring case.
// Absent values never contain a non-empty substring.
func (v FieldValue) Contains(sub string) bool {
	if sub == "" {
		return true
	}
	if v.Absent {
		return false
	}
	return strings.Contains(strings.ToLower(v.String()), strings.ToLower(sub))
}

// Compare orders two present values of the same field.
// Numbers compare numerically and text by bytes. Timestamps that parse
// compare by instant and sort before timestamps that do not, which compare
// by text.
func Compare(a, b FieldValue) int {
	switch {
	case a.Kind == KindNumber && b.Kind == KindNumber:
		switch {
		case a.Number < b.Number:
			return -1
		case a.Number > b.Number:
			return 1
		}
		return 0
	case a.Kind == KindTime && b.Kind == KindTime:
		ta, okA := ParseTimestamp(a.Text, time.UTC)
		tb, okB := ParseTimestamp(b.Text, time.UTC)
		switch {
		case okA && okB:
			return ta.Compare(tb)
		case okA:
			return -1
		case okB:
			return 1
		}
	}
	return strings.Compare(a.String(), b.String())
}

// Unparsed reports whether v is a present timestamp that does not parse.
func (v FieldValue) Unparsed() bool {
	if v.Absent || v.Kind != KindTime {
		return false
	}
	_, ok := ParseTimestamp(v.Text, time.UTC)
	return !ok
}
