// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tracefile

import (
	"fmt"
	"strings"
)

// genFrame is a frame as written to an export, before the address bias
// is removed.
type genFrame struct {
	name   string
	addr   uint64
	binary string // "" for a frame without a binary
}

type genRow struct {
	time       int64
	weightElem string
	weight     int64
	frames     []genFrame // nil for a row without a backtrace
	counters   []int64
}

// genExport renders rows as an xctrace table export. Like xctrace, it
// writes every value in full the first time and as a ref afterwards.
func genExport(schema string, rows []genRow) string {
	var b strings.Builder
	ids := make(map[string]int)
	nextID := 1
	// def returns the id for key and whether it was newly assigned.
	def := func(key string) (int, bool) {
		if id, ok := ids[key]; ok {
			return id, false
		}
		id := nextID
		nextID++
		ids[key] = id
		return id, true
	}

	b.WriteString("<?xml version=\"1.0\"?>\n<trace-query-result>\n")
	fmt.Fprintf(&b, "<node xpath='//trace-toc[1]/run[1]/data[1]/table[1]'><schema name=%q><col><mnemonic>time</mnemonic></col></schema>\n", schema)
	for _, r := range rows {
		b.WriteString("<row>")
		// Sample times are unique, so they're never refs.
		id, _ := def(fmt.Sprintf("time/%d", r.time))
		fmt.Fprintf(&b, "<sample-time id=\"%d\">%d</sample-time>", id, r.time)

		if id, fresh := def(fmt.Sprintf("%s/%d", r.weightElem, r.weight)); fresh {
			fmt.Fprintf(&b, "<%s id=\"%d\" fmt=\"%d\">%d</%s>", r.weightElem, id, r.weight, r.weight, r.weightElem)
		} else {
			fmt.Fprintf(&b, "<%s ref=\"%d\"/>", r.weightElem, id)
		}

		if r.frames != nil {
			if id, fresh := def(fmt.Sprintf("bt/%v", r.frames)); !fresh {
				fmt.Fprintf(&b, "<backtrace ref=\"%d\"/>", id)
			} else {
				fmt.Fprintf(&b, "<backtrace id=\"%d\">", id)
				for _, f := range r.frames {
					writeGenFrame(&b, def, f)
				}
				b.WriteString("</backtrace>")
			}
		}

		if r.counters != nil {
			text := strings.Trim(fmt.Sprint(r.counters), "[]")
			if id, fresh := def("pmc/" + text); fresh {
				fmt.Fprintf(&b, "<pmc-events id=\"%d\">%s</pmc-events>", id, text)
			} else {
				fmt.Fprintf(&b, "<pmc-events ref=\"%d\"/>", id)
			}
		}
		b.WriteString("</row>\n")
	}
	b.WriteString("</node></trace-query-result>\n")
	return b.String()
}

func writeGenFrame(b *strings.Builder, def func(string) (int, bool), f genFrame) {
	id, fresh := def(fmt.Sprintf("frame/%s/%x/%s", f.name, f.addr, f.binary))
	if !fresh {
		fmt.Fprintf(b, "<frame ref=\"%d\"/>", id)
		return
	}
	if f.binary == "" {
		fmt.Fprintf(b, "<frame id=\"%d\" name=%q addr=\"0x%x\"/>", id, f.name, f.addr)
		return
	}
	fmt.Fprintf(b, "<frame id=\"%d\" name=%q addr=\"0x%x\">", id, f.name, f.addr)
	if bid, fresh := def("binary/" + f.binary); fresh {
		fmt.Fprintf(b, "<binary id=\"%d\" name=%q/>", bid, f.binary)
	} else {
		fmt.Fprintf(b, "<binary ref=\"%d\"/>", bid)
	}
	b.WriteString("</frame>")
}

// cpuProfileRows returns the rows of a 584 sample cpu-profile recording
// of a small C program, a.out.
func cpuProfileRows() []genRow {
	symbols := []genFrame{
		{"a", 0x100003f5d, "a.out"},
		{"b", 0x100003f71, "a.out"},
		{"main", 0x100003f91, "a.out"},
		{"0x1000b8a4c", 0x1000b8a4d, "dyld"},
		{"0x0", 0x1, ""},
	}
	weights := []int64{2101046, 414498, 1000102, 998877}
	rows := make([]genRow, 584)
	for i := range rows {
		top := symbols[(i+4)%len(symbols)]
		if i == 1 {
			top = symbols[0]
		}
		w := weights[i%len(weights)]
		rows[i] = genRow{
			time:       465886041 + int64(i)*39249,
			weightElem: "cycle-weight",
			weight:     w,
			frames:     []genFrame{top, {"start", 0x1000b8f29, "dyld"}},
		}
	}
	return rows
}

// countersProfileRows returns the rows of a 205 sample PMI-triggered
// counters-profile recording with two counters.
func countersProfileRows() []genRow {
	rows := make([]genRow, 205)
	for i := range rows {
		rows[i] = genRow{
			time:       434050426 + int64(i)*1000000,
			weightElem: "pmc-event",
			weight:     1000000,
			frames:     []genFrame{{"JVM_Sleep", 0x10a2b3c4e + uint64(i%3)*0x10, "libjvm.dylib"}},
			counters:   []int64{40 + int64(i%7), 4770 + int64(i%5)*10},
		}
	}
	return rows
}
