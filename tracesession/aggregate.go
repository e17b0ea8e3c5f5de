// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tracesession

import (
	"fmt"

	"github.com/aclements/go-xctrace/tracefile"
)

// An Aggregator sums the PMU counters of the samples of a
// counters-profile table that fall in a time window.
type Aggregator struct {
	desc   tracefile.TableDesc
	window *Window

	// sums has one slot per counter followed by the trigger slot.
	// The trigger slot holds the weight of the last sample, not a
	// sum.
	sums  []float64
	count int64

	minT, maxT int64
	times      []int64
}

// NewAggregator returns an Aggregator for samples of the table desc.
// If w is non-nil, only samples with times in (SkipNs, SkipNs+DurationNs]
// are aggregated.
func NewAggregator(desc tracefile.TableDesc, w *Window) *Aggregator {
	return &Aggregator{
		desc:   desc,
		window: w,
		sums:   make([]float64, len(desc.Counters)+1),
	}
}

// Add aggregates s if it falls in the window. It is an error for s
// to carry more counters than the table declares.
func (a *Aggregator) Add(s *tracefile.Sample) error {
	if a.window != nil && !a.window.ContainsLeftOpen(s.TimeNs) {
		return nil
	}
	ncounters := len(a.sums) - 1
	if len(s.Counters) > ncounters {
		return fmt.Errorf("sample at %dns has %d counters, table declares %d", s.TimeNs, len(s.Counters), ncounters)
	}
	for i, v := range s.Counters {
		a.sums[i] += float64(v)
	}
	a.sums[ncounters] = float64(s.Weight)

	if a.count == 0 || s.TimeNs < a.minT {
		a.minT = s.TimeNs
	}
	if a.count == 0 || s.TimeNs > a.maxT {
		a.maxT = s.TimeNs
	}
	a.count++
	a.times = append(a.times, s.TimeNs)
	return nil
}

// Count returns the number of samples aggregated so far.
func (a *Aggregator) Count() int64 {
	return a.count
}

// Span returns the times of the first and last aggregated samples.
// ok is false if no sample has been aggregated.
func (a *Aggregator) Span() (minNs, maxNs int64, ok bool) {
	return a.minT, a.maxT, a.count > 0
}

// Sums returns the raw counter sums in table order.
func (a *Aggregator) Sums() []float64 {
	return append([]float64(nil), a.sums[:len(a.sums)-1]...)
}

// Gaps summarizes the time between consecutive aggregated samples, in
// nanoseconds. For a time-triggered table this should be close to the
// sample rate.
func (a *Aggregator) Gaps() Summary {
	if len(a.times) < 2 {
		return Summary{}
	}
	gaps := make([]float64, len(a.times)-1)
	for i := range gaps {
		gaps[i] = float64(a.times[i+1] - a.times[i])
	}
	return Summarize(gaps)
}

// A Result is one normalized counter.
type Result struct {
	// Name is the PMU event name.
	Name string

	// Value is the event count per benchmark operation.
	Value float64

	// Unit is always "#/op".
	Unit string
}

// Normalize divides each counter sum by the elapsed time between the
// first and last aggregated samples, in milliseconds, and by opsPerMs,
// giving events per operation.
//
// The results list the table's counters in order. Tables triggered by
// a PMU interrupt also report the trigger event, using the weight of
// the last sample.
//
// Normalize returns ErrNoSamples if nothing was aggregated and
// ErrDegenerateSpan if the elapsed time is zero. It does not modify a.
func (a *Aggregator) Normalize(opsPerMs float64) ([]Result, error) {
	if a.count == 0 {
		return nil, ErrNoSamples
	}
	if a.minT == a.maxT {
		return nil, fmt.Errorf("%d samples at %dns: %w", a.count, a.minT, ErrDegenerateSpan)
	}
	if _, err := checkThroughput(opsPerMs); err != nil {
		return nil, err
	}

	spanMs := float64(a.maxT-a.minT) / 1e6
	norm := func(v float64) float64 {
		return v / spanMs / opsPerMs
	}
	out := make([]Result, 0, len(a.sums))
	for i, name := range a.desc.Counters {
		out = append(out, Result{name, norm(a.sums[i]), "#/op"})
	}
	if a.desc.ReportsTrigger() {
		out = append(out, Result{a.desc.TriggerEvent, norm(a.sums[len(a.sums)-1]), "#/op"})
	}
	return out, nil
}
