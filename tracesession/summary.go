// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tracesession

import (
	"fmt"
	"sort"

	"github.com/aclements/go-moremath/stats"
	"github.com/aclements/go-xctrace/tracefile"
)

// A Summary describes the distribution of a set of values.
type Summary struct {
	N             int
	Mean, StdDev  float64
	Min, Max      float64
	P50, P90, P99 float64
}

// Summarize computes a Summary of xs. It does not modify xs.
func Summarize(xs []float64) Summary {
	if len(xs) == 0 {
		return Summary{}
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	s := stats.Sample{Xs: sorted, Sorted: true}

	sum := Summary{N: len(xs), Mean: s.Mean()}
	if len(xs) > 1 {
		sum.StdDev = s.StdDev()
	}
	sum.Min, sum.Max = s.Bounds()
	sum.P50 = s.Quantile(0.5)
	sum.P90 = s.Quantile(0.9)
	sum.P99 = s.Quantile(0.99)
	return sum
}

func (s Summary) String() string {
	if s.N == 0 {
		return "n=0"
	}
	return fmt.Sprintf("n=%d mean=%.6g stddev=%.6g min=%.6g p50=%.6g p90=%.6g p99=%.6g max=%.6g",
		s.N, s.Mean, s.StdDev, s.Min, s.P50, s.P90, s.P99, s.Max)
}

// WeightSummary accumulates the weights of a sample stream.
type WeightSummary struct {
	weights []float64
}

// Add records the weight of s.
func (w *WeightSummary) Add(s *tracefile.Sample) {
	w.weights = append(w.weights, float64(s.Weight))
}

// Summary summarizes the weights recorded so far.
func (w *WeightSummary) Summary() Summary {
	return Summarize(w.weights)
}
