// Package growth turns repository watch events into cumulative watcher curves.
package growth

import (
	"time"

	"github.com/okian/gisc/internal/domain/model"
)

// Build returns the watcher curve of w starting from baseline, the number
// of watches on the repository before w.Start.
//
// The first sample is always (w.Start, baseline). Each later watch in the
// window adds one to the count. The trigger and any repeat watch by the
// window's actor are not counted. Watches sharing a timestamp fold into a
// single sample so timestamps stay strictly increasing; watches in the same
// second as the trigger are carried into the next sample, or into a sample
// one second after w.Start when nothing follows them. Build returns
// ErrEmptyWindow, together with the single-sample curve, when nothing
// beyond the baseline was observed.
func Build(w model.Window, baseline int) (model.Curve, error) {
	events := make([]model.Event, len(w.Events))
	copy(events, w.Events)
	model.SortEvents(events)

	span := model.TimeRange{From: w.Start, To: w.End}
	curve := model.Curve{{At: w.Start, Count: float64(baseline)}}
	var pending int
	for _, e := range events {
		if !e.IsWatch() || e.ID == w.TriggerID || !span.Contains(e.At) {
			continue
		}
		if w.Actor != "" && e.Actor == w.Actor {
			continue
		}
		if e.At.Equal(w.Start) {
			pending++
			continue
		}
		curve = appendCount(curve, e.At, 1+pending)
		pending = 0
	}
	if pending > 0 {
		curve = appendCount(curve, w.Start.Add(time.Second), pending)
	}
	if len(curve) == 1 {
		return curve, ErrEmptyWindow
	}
	return curve, nil
}

// History returns the cumulative watcher curve of the watches strictly
// before t0, counting from one. Events at or after t0 are ignored.
func History(watches []model.Event, t0 time.Time) model.Curve {
	events := make([]model.Event, 0, len(watches))
	for _, e := range watches {
		if e.IsWatch() && e.At.Before(t0) {
			events = append(events, e)
		}
	}
	model.SortEvents(events)

	var curve model.Curve
	for _, e := range events {
		curve = appendCount(curve, e.At, 1)
	}
	return curve
}

func appendCount(c model.Curve, at time.Time, n int) model.Curve {
	var prev float64
	if last := len(c); last > 0 {
		prev = c[last-1].Count
		if c[last-1].At.Equal(at) {
			c[last-1].Count += float64(n)
			return c
		}
	}
	return append(c, model.Sample{At: at, Count: prev + float64(n)})
}
