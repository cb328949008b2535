// Package table holds the per-view state of the event table: which columns
// are shown, the active sort and filters, and the current page.
package table

import (
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/cdtdelta/honeydash/internal/model"
	"github.com/cdtdelta/honeydash/internal/query"
)

// Column is one selectable table column.
type Column struct {
	Field   model.Field `json:"key"`
	Visible bool        `json:"visible"`
}

// Label is the column header text.
func (c Column) Label() string { return c.Field.Label() }

// Filter is the free-text filter on one column.
type Filter struct {
	Field model.Field `json:"key"`
	Text  string      `json:"value"`
}

// defaultColumns lists the table columns in display order. The first six are
// visible initially.
var defaultColumns = []Column{
	{model.FieldTimestamp, true},
	{model.FieldAttackerID, true},
	{model.FieldAttackerIP, true},
	{model.FieldAttackerName, true},
	{model.FieldType, true},
	{model.FieldDecoyName, true},
	{model.FieldSeverity, false},
	{model.FieldKillChainPhase, false},
	{model.FieldAttackerPort, false},
	{model.FieldDecoyID, false},
	{model.FieldDecoyGroup, false},
	{model.FieldDecoyIP, false},
	{model.FieldDecoyPort, false},
	{model.FieldDecoyType, false},
}

// IsColumn reports whether f is one of the table columns. The event id is a
// field but not a column.
func IsColumn(f model.Field) bool {
	return slices.ContainsFunc(defaultColumns, func(c Column) bool { return c.Field == f })
}

// DefaultColumns returns a fresh copy of the initial column list.
func DefaultColumns() []Column {
	return slices.Clone(defaultColumns)
}

// State is the table view state. It is never shared between views.
type State struct {
	columns  []Column
	sort     *query.SortConfig
	filters  []Filter
	page     int
	pageSize int
}

// New returns the initial state. pageSize <= 0 uses query.DefaultPageSize.
func New(pageSize int) *State {
	if pageSize <= 0 {
		pageSize = query.DefaultPageSize
	}
	return &State{
		columns:  DefaultColumns(),
		page:     1,
		pageSize: pageSize,
	}
}

// Clone returns an independent copy, used to build links to neighbouring
// states without touching the current one.
func (s *State) Clone() *State {
	c := *s
	c.columns = slices.Clone(s.columns)
	c.filters = slices.Clone(s.filters)
	if s.sort != nil {
		sc := *s.sort
		c.sort = &sc
	}
	return &c
}

// Columns returns all columns with their visibility.
func (s *State) Columns() []Column { return slices.Clone(s.columns) }

// Visible returns the fields of the visible columns in display order.
func (s *State) Visible() []model.Field {
	return lo.FilterMap(s.columns, func(c Column, _ int) (model.Field, bool) {
		return c.Field, c.Visible
	})
}

// ToggleColumn flips the visibility of f. Fields that are not table columns
// are ignored.
func (s *State) ToggleColumn(f model.Field) {
	for i := range s.columns {
		if s.columns[i].Field == f {
			s.columns[i].Visible = !s.columns[i].Visible
			return
		}
	}
}

// SetVisible replaces the visible set. Unknown fields are ignored and the
// display order is unchanged.
func (s *State) SetVisible(fields []model.Field) {
	for i := range s.columns {
		s.columns[i].Visible = slices.Contains(fields, s.columns[i].Field)
	}
}

// Sort returns the active sort, nil when unsorted.
func (s *State) Sort() *query.SortConfig { return s.sort }

// ToggleSort applies a click on f's header.
func (s *State) ToggleSort(f model.Field) {
	s.sort = query.Toggle(s.sort, f)
}

// Filters returns the active filters in the order they were first set.
func (s *State) Filters() []Filter { return slices.Clone(s.filters) }

// FilterText returns the filter text for f, "" when f is unfiltered.
func (s *State) FilterText(f model.Field) string {
	if flt, ok := lo.Find(s.filters, func(x Filter) bool { return x.Field == f }); ok {
		return flt.Text
	}
	return ""
}

// SetFilter sets the filter text for f. Empty text removes the filter.
func (s *State) SetFilter(f model.Field, text string) {
	idx := slices.IndexFunc(s.filters, func(x Filter) bool { return x.Field == f })
	switch {
	case idx >= 0 && text == "":
		s.filters = slices.Delete(s.filters, idx, idx+1)
	case idx >= 0:
		s.filters[idx].Text = text
	case text != "":
		s.filters = append(s.filters, Filter{Field: f, Text: text})
	}
}

// Page returns the current page number (1-based).
func (s *State) Page() int { return s.page }

// PageSize returns the number of rows per page.
func (s *State) PageSize() int { return s.pageSize }

// GoTo moves to page, clamped to [1, totalPages].
func (s *State) GoTo(page, totalPages int) {
	s.page = min(max(page, 1), max(totalPages, 1))
}

// NextPage advances one page, stopping at totalPages.
func (s *State) NextPage(totalPages int) { s.GoTo(s.page+1, totalPages) }

// PrevPage goes back one page, stopping at 1.
func (s *State) PrevPage() { s.page = max(s.page-1, 1) }

// Query builds the projection query for the current state.
func (s *State) Query() *query.Query {
	q := s.build(s.pageSize)
	q.SetPage(s.page)
	return q
}

// Unpaged builds the filter and sort of the current state without
// pagination, as used for exports.
func (s *State) Unpaged() *query.Query {
	return s.build(0)
}

func (s *State) build(pageSize int) *query.Query {
	q := query.New(pageSize)
	for _, f := range s.filters {
		q.AddPredicate(query.Substring(f.Field, f.Text))
	}
	q.SetSort(s.sort)
	return q
}

// Project filters, sorts, and paginates events. The state's page is clamped
// to the result.
func (s *State) Project(events []model.Event) *query.Page {
	page := s.Query().Run(events)
	s.page = page.Page
	return page
}

// All returns the full filtered and sorted rows, ignoring pagination.
func (s *State) All(events []model.Event) []model.Event {
	return s.Unpaged().Apply(events)
}

// CellLayout is how timestamps are shown in table cells.
const CellLayout = "2006-01-02 15:04:05"

// Cell renders one table cell. Timestamps that parse are shown in loc;
// absent values are blank.
func Cell(e *model.Event, f model.Field, loc *time.Location) string {
	v := e.Value(f)
	if v.Absent {
		return ""
	}
	if f == model.FieldTimestamp {
		if t, ok := e.Time(loc); ok {
			return t.In(loc).Format(CellLayout)
		}
	}
	return v.String()
}
