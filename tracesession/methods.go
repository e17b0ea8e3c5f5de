// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tracesession

import (
	"fmt"
	"sort"

	"github.com/aclements/go-xctrace/tracefile"
	"github.com/ianlancetaylor/demangle"
)

// A MethodDesc identifies a native method by its symbol and binary.
// An IntervalBuilder hands out one *MethodDesc per distinct pair, so
// method descriptors can be compared by pointer.
type MethodDesc struct {
	Symbol string
	Binary string
}

// Demangled returns Symbol with C++ and Rust mangling undone. Symbols
// that aren't mangled are returned unchanged.
func (m *MethodDesc) Demangled() string {
	return demangle.Filter(m.Symbol)
}

func (m *MethodDesc) String() string {
	return m.Symbol + " (" + m.Binary + ")"
}

// An AddressInterval is the closed range of addresses sampled in one
// method.
type AddressInterval struct {
	Min, Max uint64
}

// Add widens iv to cover addr.
func (iv *AddressInterval) Add(addr uint64) {
	if addr < iv.Min {
		iv.Min = addr
	}
	if addr > iv.Max {
		iv.Max = addr
	}
}

// Contains reports whether addr is in [Min, Max].
func (iv AddressInterval) Contains(addr uint64) bool {
	return iv.Min <= addr && addr <= iv.Max
}

// EmptyBinaryPolicy says what an IntervalBuilder does with a frame
// whose binary has an empty name.
type EmptyBinaryPolicy int

const (
	// EmptyBinaryFail makes Add return ErrEmptyBinary. xctrace is
	// not known to produce such frames, so one is taken as a sign
	// that the export was misread.
	EmptyBinaryFail EmptyBinaryPolicy = iota

	// EmptyBinaryPlaceholder attributes the sample to a method in
	// the binary named UnknownBinary.
	EmptyBinaryPlaceholder
)

// UnknownBinary is the binary name used by EmptyBinaryPlaceholder.
const UnknownBinary = "[unknown]"

// An IntervalBuilder collects the sampled addresses of a CPU-sampling
// table and the address span of every sampled method.
type IntervalBuilder struct {
	// Window, if non-nil, restricts the builder to samples with
	// times in [SkipNs, SkipNs+DurationNs).
	Window *Window

	// EmptyBinary is the policy for frames with an empty binary
	// name.
	EmptyBinary EmptyBinaryPolicy

	addrs   map[uint64]int
	total   int
	dedup   map[MethodDesc]*MethodDesc
	methods map[*MethodDesc]*MethodInterval
}

// NewIntervalBuilder returns an empty IntervalBuilder that accepts all
// samples and fails on empty binary names.
func NewIntervalBuilder() *IntervalBuilder {
	return &IntervalBuilder{
		addrs:   make(map[uint64]int),
		dedup:   make(map[MethodDesc]*MethodDesc),
		methods: make(map[*MethodDesc]*MethodInterval),
	}
}

// Add records sample s.
//
// Samples outside the window and samples with an unknown address are
// ignored. A sample whose frame has no binary counts toward the
// address multiset but isn't attributed to any method.
func (b *IntervalBuilder) Add(s *tracefile.Sample) error {
	if b.Window != nil && !b.Window.ContainsRightOpen(s.TimeNs) {
		return nil
	}
	addr := s.Address()
	if addr == 0 {
		return nil
	}

	bin := s.Binary()
	var binName string
	if bin != nil {
		binName = bin.Name
		if binName == "" {
			if b.EmptyBinary != EmptyBinaryPlaceholder {
				return fmt.Errorf("sample at %dns, address %#x: %w", s.TimeNs, addr, ErrEmptyBinary)
			}
			binName = UnknownBinary
		}
	}

	b.addrs[addr]++
	b.total++
	if bin == nil {
		return nil
	}

	m := b.method(MethodDesc{Symbol: s.Symbol(), Binary: binName})
	mi, ok := b.methods[m]
	if ok {
		mi.Add(addr)
	} else {
		mi = &MethodInterval{m, AddressInterval{addr, addr}, 0}
		b.methods[m] = mi
	}
	mi.Samples++
	return nil
}

// method returns the canonical descriptor equal to key.
func (b *IntervalBuilder) method(key MethodDesc) *MethodDesc {
	if m, ok := b.dedup[key]; ok {
		return m
	}
	m := new(MethodDesc)
	*m = key
	b.dedup[key] = m
	return m
}

// Samples returns the number of samples recorded in the address
// multiset.
func (b *IntervalBuilder) Samples() int {
	return b.total
}

// Count returns the number of samples at addr.
func (b *IntervalBuilder) Count(addr uint64) int {
	return b.addrs[addr]
}

// Addresses returns the distinct sampled addresses in increasing
// order.
func (b *IntervalBuilder) Addresses() []uint64 {
	out := make([]uint64, 0, len(b.addrs))
	for addr := range b.addrs {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Lookup returns the descriptor for the method (symbol, binary), if
// any sample was attributed to it.
func (b *IntervalBuilder) Lookup(symbol, binary string) (*MethodDesc, bool) {
	m, ok := b.dedup[MethodDesc{symbol, binary}]
	return m, ok
}

// A MethodInterval is a method and its sampled address span.
type MethodInterval struct {
	Method *MethodDesc
	AddressInterval

	// Samples is the number of samples attributed to Method.
	Samples int
}

// Methods returns every attributed method and its address span,
// ordered by the start of the span, then by symbol and binary.
func (b *IntervalBuilder) Methods() []MethodInterval {
	out := make([]MethodInterval, 0, len(b.methods))
	for _, mi := range b.methods {
		out = append(out, *mi)
	}
	sort.Slice(out, func(i, j int) bool {
		x, y := out[i], out[j]
		if x.Min != y.Min {
			return x.Min < y.Min
		}
		if x.Method.Symbol != y.Method.Symbol {
			return x.Method.Symbol < y.Method.Symbol
		}
		return x.Method.Binary < y.Method.Binary
	})
	return out
}

// Ranges returns an index from address to the method whose sampled
// span contains it.
func (b *IntervalBuilder) Ranges() *Ranges[*MethodDesc] {
	r := new(Ranges[*MethodDesc])
	for _, mi := range b.Methods() {
		r.Add(mi.Min, mi.Max+1, mi.Method)
	}
	return r
}
