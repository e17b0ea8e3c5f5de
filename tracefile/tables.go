// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tracefile

import (
	"fmt"
	"strings"
)

// A TableType is one of the table schemas this package understands.
type TableType int

const (
	TableTimeProfile TableType = iota
	TableCPUProfile
	TableCountersProfile

	numTableTypes
)

// tableNames and addressBias must have exactly one entry per
// TableType. The index expressions below fail to compile otherwise.
var tableNames = [...]string{
	TableTimeProfile:     "time-profile",
	TableCPUProfile:      "cpu-profile",
	TableCountersProfile: "counters-profile",
}

// addressBias is subtracted from every frame address. Addresses in the
// cpu-* family of tables are off by one on both x86-64 and arm64.
// kdebug tables don't have this bias, so a new schema must state its
// bias explicitly.
var addressBias = [...]uint64{
	TableTimeProfile:     1,
	TableCPUProfile:      1,
	TableCountersProfile: 1,
}

var (
	_ = [1]struct{}{}[len(tableNames)-int(numTableTypes)]
	_ = [1]struct{}{}[len(addressBias)-int(numTableTypes)]
)

// TableTypes lists every supported table type.
func TableTypes() []TableType {
	out := make([]TableType, numTableTypes)
	for i := range out {
		out[i] = TableType(i)
	}
	return out
}

// Name returns the schema name of t, as it appears in exports.
func (t TableType) Name() string {
	if t < 0 || t >= numTableTypes {
		return fmt.Sprintf("TableType(%d)", int(t))
	}
	return tableNames[t]
}

func (t TableType) String() string {
	return t.Name()
}

func (t TableType) bias() uint64 {
	return addressBias[t]
}

// ParseTableType returns the TableType whose schema name is name.
func ParseTableType(name string) (TableType, bool) {
	for i, n := range tableNames {
		if n == name {
			return TableType(i), true
		}
	}
	return 0, false
}

// A TriggerType is the condition that caused a sample to be recorded.
type TriggerType int

const (
	TriggerUnknown TriggerType = iota
	// TriggerTime samples are taken at a fixed time interval.
	TriggerTime
	// TriggerPMI samples are taken on a performance monitor
	// interrupt, when a PMU counter crosses a threshold.
	TriggerPMI
)

func (t TriggerType) String() string {
	switch t {
	case TriggerUnknown:
		return "UNKNOWN"
	case TriggerTime:
		return "TIME"
	case TriggerPMI:
		return "PMI"
	}
	return fmt.Sprintf("TriggerType(%d)", int(t))
}

func parseTriggerType(s string) (TriggerType, bool) {
	switch strings.ToUpper(s) {
	case "TIME":
		return TriggerTime, true
	case "PMI":
		return TriggerPMI, true
	}
	return TriggerUnknown, false
}

// TimeTriggerEvent is the synthetic trigger event name of
// time-triggered counter tables.
const TimeTriggerEvent = "TIME_MICRO_SEC"

// A TableDesc describes one table found in a table of contents.
type TableDesc struct {
	Type    TableType
	Trigger TriggerType

	// Counters lists the PMU counters recorded with every sample, in
	// the order they appear in a sample's counter vector.
	Counters []string

	// TriggerEvent is the PMU event for PMI-triggered tables and
	// TimeTriggerEvent for time-triggered tables.
	TriggerEvent string

	// Threshold is the PMI threshold or the sampling interval in
	// microseconds. It is -1 for tables without a trigger.
	Threshold int64
}

func plainTable(t TableType) TableDesc {
	return TableDesc{Type: t, Trigger: TriggerUnknown, Threshold: -1}
}

// ReportsTrigger reports whether the trigger event should be reported
// as a measurement alongside the counters. Only PMI triggers count
// something meaningful; a time trigger's weight is just the interval.
func (d *TableDesc) ReportsTrigger() bool {
	return d.Trigger == TriggerPMI
}
