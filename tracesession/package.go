// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tracesession consumes the samples decoded by package
// tracefile.
//
// An IntervalBuilder handles CPU-sampling tables. It collects the
// multiset of sampled addresses and, for every (symbol, binary) method,
// the span of addresses sampled in it. An Aggregator handles
// counters-profile tables. It sums the PMU counters of the samples in a
// time window and normalizes them by elapsed time and benchmark
// throughput.
//
// Both are synchronous reducers meant to be driven from a
// tracefile.Decoder callback. Neither is safe for concurrent use.
package tracesession // import "github.com/aclements/go-xctrace/tracesession"

import "errors"

var (
	// ErrNoSamples is returned by Aggregator.Normalize when no
	// sample fell in the window.
	ErrNoSamples = errors.New("no samples in measurement window")

	// ErrDegenerateSpan is returned by Aggregator.Normalize when all
	// samples in the window have the same timestamp, so the elapsed
	// time is zero.
	ErrDegenerateSpan = errors.New("min and max sample timestamps are the same")

	// ErrBadThroughput is returned when a throughput is zero,
	// negative, or not finite.
	ErrBadThroughput = errors.New("throughput must be positive and finite")

	// ErrEmptyBinary is returned by IntervalBuilder.Add for a frame
	// whose binary has an empty name.
	ErrEmptyBinary = errors.New("frame has a binary with an empty name")
)
