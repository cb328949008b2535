package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/cdtdelta/honeydash/internal/model"
)

// Logic determines how multiple predicates are combined.
type Logic int

const (
	AND Logic = iota
	OR
)

// Predicate represents a single filter condition or a composite of conditions.
// A predicate evaluates in memory with Match and renders to parameterized
// SQL with WhereClauseFor.
type Predicate struct {
	kind  predicateKind
	field model.Field
	value string
	dates model.DateRange
	loc   *time.Location
	left  *Predicate
	right *Predicate
	logic Logic
}

type predicateKind int

const (
	predNone predicateKind = iota
	predSubstring
	predDate
	predComposite
)

// Substring is the table-filter predicate: case-insensitive containment of
// value in the field's display text. Absent values never match a non-empty
// value.
func Substring(field model.Field, value string) *Predicate {
	return &Predicate{kind: predSubstring, field: field, value: value}
}

// DateRange creates a predicate keeping events whose timestamp falls inside
// the day-aligned window of r in loc (inclusive).
func DateRange(r model.DateRange, loc *time.Location) *Predicate {
	if loc == nil {
		loc = time.Local
	}
	return &Predicate{
		kind:  predDate,
		dates: r,
		loc:   loc,
	}
}

// Combine joins multiple predicates with the given logic (AND or OR).
// Returns nil for an empty slice. Returns the single predicate if only one is given.
// Nil predicates in the slice are skipped.
func Combine(preds []*Predicate, logic Logic) *Predicate {
	filtered := make([]*Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			filtered = append(filtered, p)
		}
	}

	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}

	result := &Predicate{
		kind:  predComposite,
		left:  filtered[0],
		right: filtered[1],
		logic: logic,
	}

	for i := 2; i < len(filtered); i++ {
		result = &Predicate{
			kind:  predComposite,
			left:  result,
			right: filtered[i],
			logic: logic,
		}
	}

	return result
}

// Match reports whether the event satisfies the predicate.
// A nil predicate matches everything.
func (p *Predicate) Match(e *model.Event) bool {
	if p == nil {
		return true
	}

	switch p.kind {
	case predSubstring:
		return e.Value(p.field).Contains(p.value)

	case predDate:
		t, ok := e.Time(p.loc)
		if !ok {
			return false
		}
		return p.dates.Contains(t, p.loc)

	case predComposite:
		if p.logic == OR {
			return p.left.Match(e) || p.right.Match(e)
		}
		return p.left.Match(e) && p.right.Match(e)

	default:
		return true
	}
}

// WhereClauseFor renders the predicate with the given dialect's placeholders.
func (p *Predicate) WhereClauseFor(d QueryDialect) (string, []interface{}) {
	b := &clauseBuilder{dialect: d}
	sql := b.render(p)
	if sql == "" {
		return "", nil
	}
	return sql, b.args
}

// likeEscaper makes LIKE wildcards in filter text match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// clauseBuilder numbers placeholders across a predicate tree.
type clauseBuilder struct {
	dialect QueryDialect
	args    []interface{}
}

func (b *clauseBuilder) bind(v interface{}) string {
	b.args = append(b.args, v)
	return b.dialect.Placeholder(len(b.args))
}

func (b *clauseBuilder) render(p *Predicate) string {
	if p == nil {
		return ""
	}

	switch p.kind {
	case predSubstring:
		if p.value == "" {
			return ""
		}
		col := b.dialect.QuoteColumn(p.field.Column())
		return fmt.Sprintf(`(LOWER(CAST(%s AS TEXT)) LIKE %s ESCAPE '\')`, col,
			b.bind("%"+likeEscaper.Replace(strings.ToLower(p.value))+"%"))

	case predDate:
		from := p.dates.StartOfDay(p.loc).UnixMilli()
		to := p.dates.EndOfDay(p.loc).UnixMilli()
		return b.dialect.DateBetweenSQL(b.bind(from), b.bind(to))

	case predComposite:
		leftSQL := b.render(p.left)
		rightSQL := b.render(p.right)

		if leftSQL == "" {
			return rightSQL
		}
		if rightSQL == "" {
			return leftSQL
		}

		logicStr := "AND"
		if p.logic == OR {
			logicStr = "OR"
		}
		return fmt.Sprintf("(%s %s %s)", leftSQL, logicStr, rightSQL)

	default:
		return ""
	}
}
