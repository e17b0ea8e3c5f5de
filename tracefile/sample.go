// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tracefile

import "fmt"

// A Sample is one row of a table export.
type Sample struct {
	// TimeNs is the sample time in nanoseconds from the start of
	// the recording.
	TimeNs int64

	// Weight is the sample weight. Depending on the table it is in
	// nanoseconds, cycles, or PMU events.
	Weight int64

	// Frame is the top frame of the sample's backtrace, or nil if
	// the row has no backtrace.
	Frame *Frame

	// Stack is the full backtrace, top frame first. It is only
	// filled in by decoders created with WithFullBacktrace.
	Stack []*Frame

	// Counters holds the raw PMU counter values, in the order
	// listed by the table's TableDesc. It is nil if the row has no
	// counters.
	Counters []int64
}

// Address returns the address of the top frame, or 0 if it is unknown.
// Address 0 means the sample can't be attributed to code.
func (s *Sample) Address() uint64 {
	if s.Frame == nil {
		return 0
	}
	return s.Frame.Addr
}

// Symbol returns the symbol name of the top frame, or "" if unknown.
func (s *Sample) Symbol() string {
	if s.Frame == nil {
		return ""
	}
	return s.Frame.Name
}

// Binary returns the binary of the top frame, or nil if unknown.
func (s *Sample) Binary() *Binary {
	if s.Frame == nil {
		return nil
	}
	return s.Frame.Binary
}

func (s *Sample) String() string {
	if s.Frame == nil {
		return fmt.Sprintf("{t=%d w=%d counters=%v}", s.TimeNs, s.Weight, s.Counters)
	}
	return fmt.Sprintf("{t=%d w=%d %v counters=%v}", s.TimeNs, s.Weight, s.Frame, s.Counters)
}

// A Frame is one level of a backtrace.
type Frame struct {
	// Addr is the instruction address, with the export's address
	// bias already removed.
	Addr uint64

	// Name is the symbol name. Unsymbolized frames are usually
	// named by their address.
	Name string

	// Binary is the image containing Addr, or nil if the export
	// didn't name one.
	Binary *Binary
}

func (f *Frame) String() string {
	if f.Binary == nil {
		return fmt.Sprintf("%#x %s", f.Addr, f.Name)
	}
	return fmt.Sprintf("%#x %s (%s)", f.Addr, f.Name, f.Binary.Name)
}

// A Binary is a loaded executable image.
type Binary struct {
	Name string
}
