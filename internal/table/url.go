package table

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/cdtdelta/honeydash/internal/model"
	"github.com/cdtdelta/honeydash/internal/query"
)

// Query-string keys. Filters use "f." followed by the column key.
const (
	paramColumns = "cols"
	paramSort    = "sort"
	paramDir     = "dir"
	paramPage    = "page"
	filterPrefix = "f."
)

// Encode writes the state to query parameters. Default values are omitted so
// the initial state encodes to an empty set.
func (s *State) Encode() url.Values {
	v := url.Values{}

	if !sameVisibility(s.columns, defaultColumns) {
		keys := make([]string, 0, len(s.columns))
		for _, f := range s.Visible() {
			keys = append(keys, f.Key())
		}
		// An explicit empty value distinguishes "no columns" from "default".
		v.Set(paramColumns, strings.Join(keys, ","))
	}
	if s.sort != nil {
		v.Set(paramSort, s.sort.Field.Key())
		v.Set(paramDir, string(s.sort.Direction))
	}
	for _, f := range s.filters {
		v.Set(filterPrefix+f.Field.Key(), f.Text)
	}
	if s.page > 1 {
		v.Set(paramPage, strconv.Itoa(s.page))
	}
	return v
}

// URL returns path with the encoded state as its query string.
func (s *State) URL(path string) string {
	q := s.Encode().Encode()
	if q == "" {
		return path
	}
	return path + "?" + q
}

// Decode reads a state from query parameters. Unknown column keys and
// malformed values are ignored rather than rejected, so a stale bookmark
// still opens the table.
func Decode(v url.Values, pageSize int) *State {
	s := New(pageSize)

	if _, ok := v[paramColumns]; ok {
		var visible []model.Field
		for _, key := range strings.Split(v.Get(paramColumns), ",") {
			if f, ok := model.ParseField(strings.TrimSpace(key)); ok {
				visible = append(visible, f)
			}
		}
		s.SetVisible(visible)
	}

	if f, ok := model.ParseField(v.Get(paramSort)); ok && IsColumn(f) {
		s.sort = &query.SortConfig{Field: f, Direction: query.ParseDirection(v.Get(paramDir))}
	}

	// Filters are applied in column order so that encoding is stable.
	for _, c := range s.columns {
		if text := v.Get(filterPrefix + c.Field.Key()); text != "" {
			s.SetFilter(c.Field, text)
		}
	}

	if p, err := strconv.Atoi(v.Get(paramPage)); err == nil && p > 1 {
		s.page = p
	}
	return s
}

func sameVisibility(a, b []Column) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
