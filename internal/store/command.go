package store

import (
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/cdtdelta/honeydash/internal/model"
)

// Command is a date-range update dispatched by a view.
type Command interface {
	apply(s *Store)
	name() string
}

// SetStartDate replaces the range start.
type SetStartDate struct{ Date time.Time }

// SetEndDate replaces the range end.
type SetEndDate struct{ Date time.Time }

// SetDateRange replaces both bounds.
type SetDateRange struct{ Range model.DateRange }

func (c SetStartDate) apply(s *Store) { s.SetStartDate(c.Date) }
func (c SetEndDate) apply(s *Store)   { s.SetEndDate(c.Date) }
func (c SetDateRange) apply(s *Store) { s.SetDateRange(c.Range) }

func (SetStartDate) name() string { return "SetStartDate" }
func (SetEndDate) name() string   { return "SetEndDate" }
func (SetDateRange) name() string { return "SetDateRange" }

// Dispatch applies cmd and returns the resulting snapshot.
func (s *Store) Dispatch(cmd Command) (Snapshot, error) {
	if cmd == nil {
		return Snapshot{}, errors.New("nil command")
	}
	s.log.Debug("Dispatching command", zap.String("command", cmd.name()))
	cmd.apply(s)
	return s.Snapshot(), nil
}

// ParseCommand builds a command from its name and date arguments, as sent by
// the JSON API and the desktop bindings. Dates are read in loc.
func ParseCommand(kind string, start, end string, loc *time.Location) (Command, error) {
	parse := func(field, v string) (time.Time, error) {
		t, err := model.ParseDate(v, loc)
		if err != nil {
			return time.Time{}, errors.Wrapf(err, "%s", field)
		}
		return t, nil
	}

	switch kind {
	case "SetStartDate":
		t, err := parse("start", start)
		if err != nil {
			return nil, err
		}
		return SetStartDate{Date: t}, nil
	case "SetEndDate":
		t, err := parse("end", end)
		if err != nil {
			return nil, err
		}
		return SetEndDate{Date: t}, nil
	case "SetDateRange":
		from, err := parse("start", start)
		if err != nil {
			return nil, err
		}
		to, err := parse("end", end)
		if err != nil {
			return nil, err
		}
		return SetDateRange{Range: model.DateRange{Start: from, End: to}}, nil
	}
	return nil, errors.Newf("unknown command %q", kind)
}
