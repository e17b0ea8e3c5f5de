// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command xctraceasm finds the hot code in an xctrace CPU-sampling
// recording.
//
// It reads the table of contents and one exported time-profile or
// cpu-profile table, and prints every sampled method with the span of
// addresses sampled in it, followed by the hottest addresses and the
// methods containing them:
//
//	xctraceasm -toc toc.xml -i cpu.xml -skip 2000 -len 10000
//
// The spans are what a disassembler needs to print annotated assembly
// for each method. Only samples in [skip, skip+len) milliseconds from
// the start of the recording are counted.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"sort"

	"github.com/aclements/go-xctrace/tracefile"
	"github.com/aclements/go-xctrace/tracesession"
	"golang.org/x/perf/benchunit"
)

func main() {
	var (
		flagTOC         = flag.String("toc", "", "table of contents `file` (required)")
		flagInput       = flag.String("i", "", "table export `file` (required)")
		flagTable       = flag.String("table", "", "table `schema` to use if the recording has several; one of: time-profile, cpu-profile")
		flagSkip        = flag.Float64("skip", 0, "ignore samples in the first `ms` of the recording")
		flagLen         = flag.Float64("len", 0, "only count samples in the `ms` after -skip; 0 means to the end")
		flagTop         = flag.Int("top", 20, "print the `n` hottest addresses")
		flagPlaceholder = flag.Bool("unknown-binary", false, "attribute frames with an empty binary name to [unknown] instead of failing")
	)
	flag.Parse()
	if flag.NArg() > 0 || *flagTOC == "" || *flagInput == "" {
		flag.Usage()
		os.Exit(1)
	}
	var want *tracefile.TableType
	if *flagTable != "" {
		typ, ok := tracefile.ParseTableType(*flagTable)
		if !ok || typ == tracefile.TableCountersProfile {
			flag.Usage()
			os.Exit(1)
		}
		want = &typ
	}

	toc, err := tracefile.OpenTOC(*flagTOC)
	if err != nil {
		log.Fatal(err)
	}
	desc, err := toc.Choose(want)
	if err != nil {
		log.Fatal(err)
	}
	if desc.Type == tracefile.TableCountersProfile {
		log.Fatalf("%s tables have no CPU samples; use -table", desc.Type)
	}

	b := tracesession.NewIntervalBuilder()
	b.Window, err = sampleWindow(*flagSkip, *flagLen)
	if err != nil {
		log.Print(err)
		flag.Usage()
		os.Exit(1)
	}
	if *flagPlaceholder {
		b.EmptyBinary = tracesession.EmptyBinaryPlaceholder
	}

	var addErr error
	d := tracefile.NewDecoder(desc.Type)
	err = d.DecodeFile(*flagInput, func(s *tracefile.Sample) {
		if addErr == nil {
			addErr = b.Add(s)
		}
	})
	if err != nil {
		log.Fatal(err)
	}
	if addErr != nil {
		log.Fatal(addErr)
	}
	if err := d.CheckObserved(); err != nil {
		log.Fatal(err)
	}
	if b.Samples() == 0 {
		log.Fatal("no samples with a known address")
	}

	printMethods(b)
	fmt.Printf("\n")
	printHot(b, *flagTop)
}

// sampleWindow returns the window of samples from skipMs to
// skipMs+lenMs, or nil if every sample should be used. A zero lenMs
// extends the window to the end of the recording.
func sampleWindow(skipMs, lenMs float64) (*tracesession.Window, error) {
	if skipMs < 0 || lenMs < 0 {
		return nil, fmt.Errorf("-skip and -len must not be negative")
	}
	if skipMs == 0 && lenMs == 0 {
		return nil, nil
	}
	const maxNs = math.MaxInt64
	w := tracesession.Window{SkipNs: msToNs(skipMs), DurationNs: msToNs(lenMs)}
	if lenMs == 0 || w.DurationNs > maxNs-w.SkipNs {
		w.DurationNs = maxNs - w.SkipNs
	}
	return &w, nil
}

func msToNs(ms float64) int64 {
	if ns := ms * 1e6; ns < math.MaxInt64 {
		return int64(ns)
	}
	return math.MaxInt64
}

func printMethods(b *tracesession.IntervalBuilder) {
	methods := b.Methods()
	fmt.Printf("# %d samples in %d methods\n", b.Samples(), len(methods))
	fmt.Printf("%-18s %-18s %8s %s\n", "start", "end", "samples", "method")
	for _, mi := range methods {
		fmt.Printf("%#-18x %#-18x %8s %s (%s)\n", mi.Min, mi.Max, benchunit.Scale(float64(mi.Samples), benchunit.Decimal), mi.Method.Demangled(), mi.Method.Binary)
	}
}

func printHot(b *tracesession.IntervalBuilder, n int) {
	addrs := b.Addresses()
	sort.SliceStable(addrs, func(i, j int) bool {
		return b.Count(addrs[i]) > b.Count(addrs[j])
	})
	if len(addrs) > n {
		addrs = addrs[:n]
	}

	ranges := b.Ranges()
	total := float64(b.Samples())
	fmt.Printf("%-18s %8s %6s %s\n", "address", "samples", "", "method")
	for _, addr := range addrs {
		c := b.Count(addr)
		name := "?"
		if lo, _, m, ok := ranges.Get(addr); ok {
			name = fmt.Sprintf("%s+%#x", m.Demangled(), addr-lo)
		}
		fmt.Printf("%#-18x %8d %5.1f%% %s\n", addr, c, 100*float64(c)/total, name)
	}
}
