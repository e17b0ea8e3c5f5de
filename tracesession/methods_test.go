// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tracesession

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/aclements/go-xctrace/tracefile"
)

func sample(t int64, addr uint64, sym string, bin *tracefile.Binary) *tracefile.Sample {
	return &tracefile.Sample{
		TimeNs: t,
		Weight: 1,
		Frame:  &tracefile.Frame{Addr: addr, Name: sym, Binary: bin},
	}
}

func TestIntervalBuilder(t *testing.T) {
	libc := &tracefile.Binary{Name: "libc.dylib"}
	aout := &tracefile.Binary{Name: "a.out"}
	b := NewIntervalBuilder()
	for _, s := range []*tracefile.Sample{
		sample(1, 0x1010, "f", aout),
		sample(2, 0x1004, "f", aout),
		sample(3, 0x1020, "f", &tracefile.Binary{Name: "a.out"}),
		sample(4, 0x1010, "f", aout),
		sample(5, 0x2000, "memcpy", libc),
		sample(6, 0, "0x0", nil),
		sample(7, 0, "g", aout),
		sample(8, 0x3000, "0x3000", nil),
		{TimeNs: 9},
	} {
		if err := b.Add(s); err != nil {
			t.Fatal(err)
		}
	}

	if got := b.Samples(); got != 6 {
		t.Errorf("Samples() = %d, want 6", got)
	}
	if got, want := b.Addresses(), []uint64{0x1004, 0x1010, 0x1020, 0x2000, 0x3000}; !reflect.DeepEqual(got, want) {
		t.Errorf("Addresses() = %#x, want %#x", got, want)
	}
	if got := b.Count(0x1010); got != 2 {
		t.Errorf("Count(0x1010) = %d, want 2", got)
	}
	if got := b.Count(0); got != 0 {
		t.Errorf("address 0 was counted %d times", got)
	}

	ms := b.Methods()
	if len(ms) != 2 {
		t.Fatalf("got %d methods, want 2: %v", len(ms), ms)
	}
	if m := ms[0]; *m.Method != (MethodDesc{"f", "a.out"}) || m.AddressInterval != (AddressInterval{0x1004, 0x1020}) || m.Samples != 4 {
		t.Errorf("method 0 = %v %+v, want f (a.out) {0x1004 0x1020}", m.Method, m.AddressInterval)
	}
	if m := ms[1]; *m.Method != (MethodDesc{"memcpy", "libc.dylib"}) || m.AddressInterval != (AddressInterval{0x2000, 0x2000}) || m.Samples != 1 {
		t.Errorf("method 1 = %v %+v, want memcpy (libc.dylib) {0x2000 0x2000}", m.Method, m.AddressInterval)
	}

	// Equal pairs share a descriptor even with distinct *Binary values.
	f, ok := b.Lookup("f", "a.out")
	if !ok || f != ms[0].Method {
		t.Errorf("Lookup(f, a.out) = %p, %v, want %p", f, ok, ms[0].Method)
	}
	if _, ok := b.Lookup("g", "a.out"); ok {
		t.Errorf("method g was attributed a sample at address 0")
	}
}

func TestIntervalBuilderWindow(t *testing.T) {
	bin := &tracefile.Binary{Name: "a.out"}
	b := NewIntervalBuilder()
	b.Window = &Window{SkipNs: 100, DurationNs: 50}
	for _, ts := range []int64{99, 100, 120, 149, 150, 151} {
		if err := b.Add(sample(ts, uint64(ts), "f", bin)); err != nil {
			t.Fatal(err)
		}
	}
	if got, want := b.Addresses(), []uint64{100, 120, 149}; !reflect.DeepEqual(got, want) {
		t.Errorf("in-window addresses = %v, want %v", got, want)
	}
}

func TestIntervalBuilderEmptyBinary(t *testing.T) {
	s := sample(1, 0x2a5b1c10, "0x2a5b1c10", &tracefile.Binary{Name: ""})

	b := NewIntervalBuilder()
	if err := b.Add(s); !errors.Is(err, ErrEmptyBinary) {
		t.Errorf("got %v, want ErrEmptyBinary", err)
	}
	if b.Samples() != 0 {
		t.Errorf("failed sample was counted")
	}

	b = NewIntervalBuilder()
	b.EmptyBinary = EmptyBinaryPlaceholder
	if err := b.Add(s); err != nil {
		t.Fatal(err)
	}
	m, ok := b.Lookup("0x2a5b1c10", UnknownBinary)
	if !ok {
		t.Fatalf("sample not attributed to %s", UnknownBinary)
	}
	if m.Binary != "[unknown]" {
		t.Errorf("placeholder binary = %q", m.Binary)
	}
}

func TestIntervalBuilderRanges(t *testing.T) {
	bin := &tracefile.Binary{Name: "a.out"}
	b := NewIntervalBuilder()
	for _, s := range []*tracefile.Sample{
		sample(1, 0x100, "f", bin),
		sample(2, 0x180, "f", bin),
		sample(3, 0x200, "g", bin),
		sample(4, 0x220, "g", bin),
		sample(5, 0x400, "h", bin),
	} {
		if err := b.Add(s); err != nil {
			t.Fatal(err)
		}
	}
	r := b.Ranges()
	if r.Len() != 3 {
		t.Fatalf("got %d ranges, want 3", r.Len())
	}
	tests := []struct {
		addr uint64
		want string
	}{
		{0xff, ""},
		{0x100, "f"},
		{0x150, "f"},
		{0x180, "f"},
		{0x181, ""},
		{0x210, "g"},
		{0x220, "g"},
		{0x400, "h"},
		{0x401, ""},
	}
	for _, test := range tests {
		_, _, m, ok := r.Get(test.addr)
		got := ""
		if ok {
			got = m.Symbol
		}
		if got != test.want {
			t.Errorf("Get(%#x) = %q, want %q", test.addr, got, test.want)
		}
	}
}

func TestIntervalBuilderExport(t *testing.T) {
	b := NewIntervalBuilder()
	var addErr error
	d := tracefile.NewDecoder(tracefile.TableCPUProfile)
	err := d.DecodeFile(filepath.Join("..", "tracefile", "testdata", "cpu-profile.xml"), func(s *tracefile.Sample) {
		if err := b.Add(s); err != nil && addErr == nil {
			addErr = err
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if addErr != nil {
		t.Fatal(addErr)
	}

	// Of the six rows, one has address 0 and one has no backtrace.
	if got := b.Samples(); got != 4 {
		t.Errorf("Samples() = %d, want 4", got)
	}
	if got := b.Count(0x100003f5c); got != 3 {
		t.Errorf("Count(0x100003f5c) = %d, want 3", got)
	}
	want := []MethodInterval{
		{&MethodDesc{"a", "a.out"}, AddressInterval{0x100003f5c, 0x100003f5c}, 3},
		{&MethodDesc{"0x1000b8a4c", "dyld"}, AddressInterval{0x1000b8a4c, 0x1000b8a4c}, 1},
	}
	if got := b.Methods(); !reflect.DeepEqual(got, want) {
		t.Errorf("Methods() = %v, want %v", got, want)
	}
}

func TestMethodDemangled(t *testing.T) {
	tests := []struct{ sym, want string }{
		{"_ZN3foo3barEv", "foo::bar()"},
		{"main", "main"},
		{"0x1000b8a4c", "0x1000b8a4c"},
	}
	for _, test := range tests {
		m := &MethodDesc{Symbol: test.sym, Binary: "a.out"}
		if got := m.Demangled(); got != test.want {
			t.Errorf("Demangled(%q) = %q, want %q", test.sym, got, test.want)
		}
	}
}
