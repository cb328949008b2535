package query

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/cdtdelta/honeydash/internal/model"
)

// DefaultPageSize is the number of table rows per page.
const DefaultPageSize = 50

// Query combines predicates, an optional sort, and pagination.
// Run evaluates it over an in-memory slice; Build renders it as SQL for the
// database store.
type Query struct {
	predicates []*Predicate
	sort       *SortConfig
	pageSize   int
	page       int
}

// New creates a new Query with the given page size.
// Pass 0 for no pagination.
func New(pageSize int) *Query {
	return &Query{
		pageSize: pageSize,
		page:     1,
	}
}

// AddPredicate appends a predicate to the query. Nil predicates are ignored.
func (q *Query) AddPredicate(p *Predicate) {
	if p != nil {
		q.predicates = append(q.predicates, p)
	}
}

// SetSort replaces the sort; nil clears it.
func (q *Query) SetSort(s *SortConfig) {
	q.sort = s
}

// SetPage sets the requested page number (1-based). Out-of-range pages are
// clamped when the query runs.
func (q *Query) SetPage(page int) {
	if page >= 1 {
		q.page = page
	}
}

// Page is one page of a projected result.
type Page struct {
	Events     []model.Event `json:"events"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	TotalPages int           `json:"totalPages"`
	TotalCount int           `json:"totalCount"`
}

// First is the 1-based index of the first row on the page, 0 when empty.
func (p *Page) First() int {
	if len(p.Events) == 0 {
		return 0
	}
	return (p.Page-1)*p.PageSize + 1
}

// Last is the 1-based index of the last row on the page.
func (p *Page) Last() int {
	if len(p.Events) == 0 {
		return 0
	}
	return p.First() + len(p.Events) - 1
}

// Apply filters and sorts events without paginating. The input is not modified.
func (q *Query) Apply(events []model.Event) []model.Event {
	pred := Combine(q.predicates, AND)
	out := events
	if pred != nil {
		out = lo.Filter(events, func(e model.Event, _ int) bool {
			return pred.Match(&e)
		})
	}
	if q.sort != nil {
		out = Sort(out, *q.sort)
	}
	return out
}

// Run applies the query and returns the requested page, clamped to
// [1, TotalPages]. TotalPages is at least 1 so an empty result still has a page.
func (q *Query) Run(events []model.Event) *Page {
	matched := q.Apply(events)
	return Paginate(matched, q.page, q.pageSize)
}

// Paginate slices out one page of events.
func Paginate(events []model.Event, page, pageSize int) *Page {
	total := len(events)
	if pageSize <= 0 {
		return &Page{Events: events, Page: 1, PageSize: total, TotalPages: 1, TotalCount: total}
	}

	totalPages := max(1, (total+pageSize-1)/pageSize)
	page = min(max(page, 1), totalPages)

	start := (page - 1) * pageSize
	end := min(start+pageSize, total)

	return &Page{
		Events:     events[start:end],
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		TotalCount: total,
	}
}

// Build generates the full SQL SELECT statement and its parameter values.
// columns is the select list; the caller scans rows in that order.
func (q *Query) Build(d QueryDialect, table string, columns []string) (string, []interface{}) {
	sql := "SELECT " + strings.Join(columns, ", ") + " FROM " + table

	whereSQL, args := q.where(d)
	if whereSQL != "" {
		sql += " WHERE " + whereSQL
	}

	if q.sort != nil {
		sql += " ORDER BY " + q.orderBy(d)
	}

	if q.pageSize > 0 {
		offset := q.pageSize * (q.page - 1)
		sql += fmt.Sprintf(" LIMIT %d OFFSET %d", q.pageSize, offset)
	}

	return sql, args
}

// orderBy renders the sort the way Sort orders events read back from the
// database: absent values last in both directions, text by bytes, timestamps
// by instant with unparseable ones (NULL ts_epoch) after the rest ordered by
// their text. Ties keep the order the database source loads events in.
func (q *Query) orderBy(d QueryDialect) string {
	dir := "ASC"
	if q.sort.Direction == Desc {
		dir = "DESC"
	}
	f := q.sort.Field
	col := d.QuoteColumn(f.Column())
	id := d.QuoteColumn(model.FieldID.Column())

	switch f.Kind() {
	case model.KindNumber:
		return fmt.Sprintf("%s %s NULLS LAST, %s ASC NULLS LAST, %s ASC", col, dir, TimestampColumn, id)
	case model.KindTime:
		unparsed := d.BinaryCollate(fmt.Sprintf("(CASE WHEN %s IS NULL THEN %s END)", TimestampColumn, col))
		return fmt.Sprintf("%s %s NULLS LAST, %s %s NULLS LAST, %s ASC", TimestampColumn, dir, unparsed, dir, id)
	}
	return fmt.Sprintf("%s %s NULLS LAST, %s ASC NULLS LAST, %s ASC", d.BinaryCollate(col), dir, TimestampColumn, id)
}

// BuildCount generates a COUNT query using the same predicates.
func (q *Query) BuildCount(d QueryDialect, table string) (string, []interface{}) {
	sql := "SELECT COUNT(*) FROM " + table
	whereSQL, args := q.where(d)
	if whereSQL != "" {
		sql += " WHERE " + whereSQL
	}
	return sql, args
}

func (q *Query) where(d QueryDialect) (string, []interface{}) {
	combined := Combine(q.predicates, AND)
	if combined == nil {
		return "", nil
	}
	return combined.WhereClauseFor(d)
}
