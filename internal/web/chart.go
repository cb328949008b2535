package web

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/cdtdelta/honeydash/internal/derive"
	"github.com/cdtdelta/honeydash/internal/model"
)

// Chart geometry in SVG user units.
const (
	chartWidth  = 960
	chartHeight = 400
	padLeft     = 56
	padRight    = 16
	padTop      = 16
	padBottom   = 48

	// Fraction of an hour slot left empty between bars.
	barPadding = 0.1
	maxXTicks  = 16
)

type bar struct {
	X, Y, W, H float64
	Title      string
}

type tick struct {
	Pos   float64
	Label string
}

// chart is a column chart of hourly buckets laid out over the selected range.
type chart struct {
	Width, Height int
	Left, Top     float64
	Right, Bottom float64
	Bars          []bar
	XTicks        []tick
	YTicks        []tick
	Empty         bool
}

// buildChart places one bar per bucket on a time axis spanning the whole
// days of r in loc. An inverted range or no buckets yields an empty chart
// with axes only.
func buildChart(buckets []derive.Bucket, r model.DateRange, loc *time.Location) chart {
	c := chart{
		Width:  chartWidth,
		Height: chartHeight,
		Left:   padLeft,
		Top:    padTop,
		Right:  chartWidth - padRight,
		Bottom: chartHeight - padBottom,
	}
	plotW := c.Right - c.Left
	plotH := c.Bottom - c.Top

	from := r.StartOfDay(loc)
	to := model.StartOfDay(r.End, loc).AddDate(0, 0, 1)
	if !to.After(from) {
		c.Empty = true
		c.YTicks, _ = yAxis(0, c.Bottom, plotH)
		return c
	}
	span := to.Sub(from)
	xOf := func(t time.Time) float64 {
		return c.Left + plotW*float64(t.Sub(from))/float64(span)
	}

	c.XTicks = xTicks(from, to, loc, xOf)

	maxCount := 0
	for _, b := range buckets {
		maxCount = max(maxCount, b.Count)
	}
	var top int
	c.YTicks, top = yAxis(maxCount, c.Bottom, plotH)
	if len(buckets) == 0 {
		c.Empty = true
		return c
	}

	slot := plotW * float64(time.Hour) / float64(span)
	w := math.Max(slot*(1-barPadding), 1)
	for _, b := range buckets {
		h := plotH * float64(b.Count) / float64(top)
		c.Bars = append(c.Bars, bar{
			X:     xOf(b.Hour) + (slot-w)/2,
			Y:     c.Bottom - h,
			W:     w,
			H:     h,
			Title: fmt.Sprintf("%s: %s events", b.Hour.In(loc).Format("2006-01-02 15:04"), humanize.Comma(int64(b.Count))),
		})
	}
	return c
}

// xTicks labels day boundaries, skipping days so at most maxXTicks remain.
func xTicks(from, to time.Time, loc *time.Location, xOf func(time.Time) float64) []tick {
	days := 0
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		days++
	}
	every := max(1, int(math.Ceil(float64(days)/maxXTicks)))

	var ticks []tick
	i := 0
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		if i%every == 0 {
			ticks = append(ticks, tick{Pos: xOf(d), Label: d.In(loc).Format("Jan 2")})
		}
		i++
	}
	return ticks
}

// yAxis returns integer gridlines from 0 to at least maxCount, and the value
// at the top of the axis.
func yAxis(maxCount int, bottom, plotH float64) ([]tick, int) {
	step := niceStep(maxCount)
	top := step * int(math.Ceil(float64(max(maxCount, 1))/float64(step)))

	var ticks []tick
	for v := 0; v <= top; v += step {
		ticks = append(ticks, tick{
			Pos:   bottom - plotH*float64(v)/float64(top),
			Label: humanize.Comma(int64(v)),
		})
	}
	return ticks, top
}

// niceStep picks a 1, 2, or 5 times power-of-ten step giving about five
// gridlines.
func niceStep(maxCount int) int {
	if maxCount <= 5 {
		return 1
	}
	raw := float64(maxCount) / 5
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	for _, m := range []float64{1, 2, 5, 10} {
		if m*mag >= raw {
			return int(m * mag)
		}
	}
	return int(10 * mag)
}
