// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tracesession

import (
	"fmt"
	"math"
)

// A Window is a range of sample times, in nanoseconds from the start of
// the recording.
//
// The two consumers treat the boundaries differently. The Aggregator
// keeps samples in (SkipNs, SkipNs+DurationNs]; the IntervalBuilder
// keeps samples in [SkipNs, SkipNs+DurationNs).
type Window struct {
	SkipNs     int64
	DurationNs int64
}

// EndNs returns the end of the window.
func (w Window) EndNs() int64 {
	return w.SkipNs + w.DurationNs
}

// ContainsLeftOpen reports whether t is in (SkipNs, EndNs].
func (w Window) ContainsLeftOpen(t int64) bool {
	return t > w.SkipNs && t <= w.EndNs()
}

// ContainsRightOpen reports whether t is in [SkipNs, EndNs).
func (w Window) ContainsRightOpen(t int64) bool {
	return t >= w.SkipNs && t < w.EndNs()
}

func (w Window) String() string {
	return fmt.Sprintf("[skip %dns, duration %dns]", w.SkipNs, w.DurationNs)
}

// Timing is the benchmark harness's view of one trial, used to locate
// the measurement phase inside a recording. All times are wall-clock
// milliseconds since the Unix epoch unless noted.
type Timing struct {
	// RecordStartMs is when the recording started, from
	// tracefile.TOC.RecordStartMs.
	RecordStartMs int64

	// BenchStartMs is when the benchmark process started.
	BenchStartMs int64

	// MeasurementDelayMs is how long after BenchStartMs the
	// measurement iterations began. MeasuredMs is how long they ran.
	MeasurementDelayMs int64
	MeasuredMs         int64

	// MeasurementStartMs and StopMs bound the measurement phase as
	// reported by the harness. Ops is the number of operations
	// completed in it.
	MeasurementStartMs int64
	StopMs             int64
	Ops                int64
}

// Window returns the measurement phase relative to the start of the
// recording. The recording usually starts after the benchmark
// process, so that startup delay is taken off the measurement delay.
func (t Timing) Window() Window {
	startupDelayMs := t.RecordStartMs - t.BenchStartMs
	return Window{
		SkipNs:     (t.MeasurementDelayMs - startupDelayMs) * 1e6,
		DurationNs: t.MeasuredMs * 1e6,
	}
}

// Throughput returns the benchmark throughput in operations per
// millisecond.
func (t Timing) Throughput() (float64, error) {
	durMs := t.StopMs - t.MeasurementStartMs
	if durMs <= 0 {
		return 0, fmt.Errorf("measurement phase lasted %dms: %w", durMs, ErrBadThroughput)
	}
	return checkThroughput(float64(t.Ops) / float64(durMs))
}

func checkThroughput(opsPerMs float64) (float64, error) {
	if !(opsPerMs > 0) || math.IsInf(opsPerMs, 0) {
		return 0, fmt.Errorf("%v ops/ms: %w", opsPerMs, ErrBadThroughput)
	}
	return opsPerMs, nil
}
