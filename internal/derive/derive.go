// Package derive computes the graph projections of the event collection:
// the date-filtered subset, its hourly counts, and summary figures.
package derive

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/cdtdelta/honeydash/internal/model"
)

// Bucket is the number of events in the hour starting at Hour.
type Bucket struct {
	Hour  time.Time `json:"hour"`
	Count int       `json:"count"`
}

// Point returns the bucket as an [epochMillis, count] pair, the shape the
// chart series uses.
func (b Bucket) Point() [2]int64 {
	return [2]int64{b.Hour.UnixMilli(), int64(b.Count)}
}

// DateFilter returns the events whose timestamp falls inside the inclusive
// day-aligned window of r in loc, in input order. Events with an absent or
// unparseable timestamp are dropped. An inverted range yields nothing.
func DateFilter(events []model.Event, r model.DateRange, loc *time.Location) []model.Event {
	if loc == nil {
		loc = time.Local
	}
	if r.Inverted(loc) {
		return []model.Event{}
	}
	from, to := r.StartOfDay(loc), r.EndOfDay(loc)

	return lo.Filter(events, func(e model.Event, _ int) bool {
		t, ok := e.Time(loc)
		if !ok {
			return false
		}
		return !t.Before(from) && !t.After(to)
	})
}

// HourlyBuckets counts events per local hour. The result is sparse (empty
// hours are omitted) and strictly ascending by hour.
func HourlyBuckets(events []model.Event, loc *time.Location) []Bucket {
	if loc == nil {
		loc = time.Local
	}

	counts := make(map[int64]int)
	for i := range events {
		t, ok := events[i].Time(loc)
		if !ok {
			continue
		}
		counts[hourStart(t, loc).UnixMilli()]++
	}

	keys := lo.Keys(counts)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	buckets := make([]Bucket, 0, len(keys))
	for _, k := range keys {
		buckets = append(buckets, Bucket{Hour: time.UnixMilli(k).In(loc), Count: counts[k]})
	}
	return buckets
}

// hourStart truncates t to the start of its hour in loc. time.Truncate works
// on absolute time, which is wrong for zones with sub-hour offsets.
func hourStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, loc)
}

// Points converts buckets to chart series pairs.
func Points(buckets []Bucket) [][2]int64 {
	return lo.Map(buckets, func(b Bucket, _ int) [2]int64 { return b.Point() })
}
