package derive

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/cdtdelta/honeydash/internal/model"
)

// SeverityCount is one row of the severity breakdown.
type SeverityCount struct {
	Severity string `json:"severity"`
	Count    int    `json:"count"`
}

// Summary holds the header figures shown above the chart.
type Summary struct {
	Total      int             `json:"total"`
	Attackers  int             `json:"attackers"`
	Severities []SeverityCount `json:"severities"`
	FirstSeen  time.Time       `json:"firstSeen"`
	LastSeen   time.Time       `json:"lastSeen"`
	PeakHour   *Bucket         `json:"peakHour,omitempty"`
}

// Summarize computes a Summary over events, usually the date-filtered set.
// Attackers are distinct by attacker.id, falling back to attacker.ip.
// Severities are ordered by count, then name; absent severities are skipped.
func Summarize(events []model.Event, buckets []Bucket, loc *time.Location) Summary {
	s := Summary{Total: len(events)}

	attackers := make(map[string]struct{})
	severities := make(map[string]int)
	for i := range events {
		e := &events[i]
		if id := attackerKey(e); id != "" {
			attackers[id] = struct{}{}
		}
		if e.Has(model.FieldSeverity) {
			severities[e.Severity]++
		}
		t, ok := e.Time(loc)
		if !ok {
			continue
		}
		if s.FirstSeen.IsZero() || t.Before(s.FirstSeen) {
			s.FirstSeen = t
		}
		if t.After(s.LastSeen) {
			s.LastSeen = t
		}
	}
	s.Attackers = len(attackers)

	s.Severities = lo.MapToSlice(severities, func(k string, v int) SeverityCount {
		return SeverityCount{Severity: k, Count: v}
	})
	sort.Slice(s.Severities, func(i, j int) bool {
		a, b := s.Severities[i], s.Severities[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Severity < b.Severity
	})

	if len(buckets) > 0 {
		peak := lo.MaxBy(buckets, func(a, b Bucket) bool { return a.Count > b.Count })
		s.PeakHour = &peak
	}
	return s
}

func attackerKey(e *model.Event) string {
	if e.Has(model.FieldAttackerID) && e.Attacker.ID != "" {
		return "id:" + e.Attacker.ID
	}
	if e.Has(model.FieldAttackerIP) && e.Attacker.IP != "" {
		return "ip:" + e.Attacker.IP
	}
	return ""
}
