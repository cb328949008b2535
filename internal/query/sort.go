package query

import (
	"cmp"
	"slices"

	"github.com/cdtdelta/honeydash/internal/model"
)

// Direction is the order of a sort.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection accepts "asc" and "desc"; anything else is ascending.
func ParseDirection(s string) Direction {
	if Direction(s) == Desc {
		return Desc
	}
	return Asc
}

// SortConfig is the single active sort of a table.
type SortConfig struct {
	Field     model.Field
	Direction Direction
}

// Toggle returns the sort after a click on field's header: the active field
// flips direction, any other field starts ascending.
func Toggle(cur *SortConfig, field model.Field) *SortConfig {
	if cur != nil && cur.Field == field && cur.Direction == Asc {
		return &SortConfig{Field: field, Direction: Desc}
	}
	return &SortConfig{Field: field, Direction: Asc}
}

// Sort returns a stably sorted copy of events. Events missing the sort field
// go after every present value in both directions, and timestamps that do not
// parse go after those that do.
func Sort(events []model.Event, cfg SortConfig) []model.Event {
	out := slices.Clone(events)
	slices.SortStableFunc(out, func(a, b model.Event) int {
		va, vb := a.Value(cfg.Field), b.Value(cfg.Field)
		if c := cmp.Compare(tier(va), tier(vb)); c != 0 || va.Absent {
			return c
		}
		c := model.Compare(va, vb)
		if cfg.Direction == Desc {
			return -c
		}
		return c
	})
	return out
}

// tier groups values that sort in a fixed position regardless of direction.
func tier(v model.FieldValue) int {
	switch {
	case v.Absent:
		return 2
	case v.Unparsed():
		return 1
	}
	return 0
}
