// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tracesession

import "sort"

// Ranges stores data associated with ranges of uint64 values and
// supports efficient lookup.
type Ranges[T any] struct {
	rs     []rangeEnt[T]
	sorted bool
}

// rangeEnt is one range. Once the ranges are sorted, reach is the
// largest hi of this and all earlier ranges.
type rangeEnt[T any] struct {
	lo, hi uint64
	reach  uint64
	val    T
}

// Add inserts val for range [lo, hi).
func (r *Ranges[T]) Add(lo, hi uint64, val T) {
	r.rs = append(r.rs, rangeEnt[T]{lo: lo, hi: hi, val: val})
	r.sorted = false
}

// Len returns the number of ranges in r.
func (r *Ranges[T]) Len() int {
	if r == nil {
		return 0
	}
	return len(r.rs)
}

// Get returns the range and the value for the range containing idx.
//
// Sampled method spans can overlap. If several ranges contain idx, Get
// returns the one with the greatest lower bound, which is the
// innermost when the ranges nest.
func (r *Ranges[T]) Get(idx uint64) (lo, hi uint64, val T, ok bool) {
	if r == nil {
		return 0, 0, val, false
	}

	rs := r.rs
	if !r.sorted {
		sort.SliceStable(rs, func(i, j int) bool {
			return rs[i].lo < rs[j].lo
		})
		var reach uint64
		for i := range rs {
			if rs[i].hi > reach {
				reach = rs[i].hi
			}
			rs[i].reach = reach
		}
		r.sorted = true
	}

	// Find the first range starting after idx, then walk back to
	// one that covers it.
	i := sort.Search(len(rs), func(i int) bool {
		return idx < rs[i].lo
	})
	for i--; i >= 0 && idx < rs[i].reach; i-- {
		if idx < rs[i].hi {
			return rs[i].lo, rs[i].hi, rs[i].val, true
		}
	}
	return 0, 0, val, false
}
