// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command xctracenorm reports PMU counters from an xctrace
// counters-profile recording, normalized per benchmark operation.
//
// It reads the table of contents and the exported counters-profile
// table of a recording made with the CPU Counters template:
//
//	xctracenorm -toc toc.xml -i counters.xml -name MyBench \
//	    -bench-start 1693140580000 -delay 2000 -measured 10000 \
//	    -ops 5000000
//
// The measurement window is located relative to the start of the
// recording, so -bench-start is the wall-clock time in milliseconds at
// which the benchmark process started and -delay is how long after that
// the measurement began. Counters are summed over the window, divided
// by the elapsed time between the first and last samples in it, and
// divided by the throughput. The throughput is -ops divided by
// -measured, or can be given directly with -throughput.
//
// The output is in the Go benchmark format, so results from several
// runs can be compared with benchstat. With -human, values are printed
// in a table with SI prefixes instead.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/aclements/go-xctrace/tracefile"
	"github.com/aclements/go-xctrace/tracesession"
	"golang.org/x/perf/benchfmt"
	"golang.org/x/perf/benchunit"
)

func main() {
	var (
		flagTOC        = flag.String("toc", "", "table of contents `file` (required)")
		flagInput      = flag.String("i", "", "counters-profile table export `file` (required)")
		flagName       = flag.String("name", "XCTrace", "benchmark `name`")
		flagBenchStart = flag.Int64("bench-start", 0, "benchmark start time in `ms` since the Unix epoch; 0 means the recording start")
		flagDelay      = flag.Int64("delay", 0, "time from benchmark start to measurement start in `ms`")
		flagMeasured   = flag.Int64("measured", 0, "measurement duration in `ms`; 0 means use every sample")
		flagOps        = flag.Int64("ops", 0, "operations completed during measurement")
		flagThroughput = flag.Float64("throughput", 0, "throughput in `ops/ms`; overrides -ops")
		flagHuman      = flag.Bool("human", false, "print a human-readable table")
	)
	flag.Parse()
	if flag.NArg() > 0 || *flagTOC == "" || *flagInput == "" {
		flag.Usage()
		os.Exit(1)
	}

	toc, err := tracefile.OpenTOC(*flagTOC)
	if err != nil {
		log.Fatal(err)
	}
	desc, err := toc.CountersTable()
	if err != nil {
		log.Fatal(err)
	}

	timing := tracesession.Timing{
		RecordStartMs:      toc.RecordStartMs(),
		BenchStartMs:       *flagBenchStart,
		MeasurementDelayMs: *flagDelay,
		MeasuredMs:         *flagMeasured,
		Ops:                *flagOps,
	}
	if timing.BenchStartMs == 0 {
		timing.BenchStartMs = timing.RecordStartMs
	} else if toc.RecordStart.IsZero() {
		log.Fatalf("%s has no start date, so -bench-start can't be related to the recording", *flagTOC)
	}
	timing.MeasurementStartMs = timing.BenchStartMs + timing.MeasurementDelayMs
	timing.StopMs = timing.MeasurementStartMs + timing.MeasuredMs

	throughput := *flagThroughput
	if throughput == 0 {
		throughput, err = timing.Throughput()
		if err != nil {
			log.Fatalf("%v; give -ops and -measured, or -throughput", err)
		}
	}

	var window *tracesession.Window
	if timing.MeasuredMs > 0 {
		w := timing.Window()
		window = &w
	}

	agg := tracesession.NewAggregator(desc, window)
	var addErr error
	d := tracefile.NewDecoder(desc.Type)
	err = d.DecodeFile(*flagInput, func(s *tracefile.Sample) {
		if addErr == nil {
			addErr = agg.Add(s)
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

	results, err := agg.Normalize(throughput)
	if err != nil {
		if window != nil {
			log.Fatalf("window %v: %v", window, err)
		}
		log.Fatal(err)
	}

	if *flagHuman {
		printHuman(results, agg)
		return
	}
	w := benchfmt.NewWriter(os.Stdout)
	if err := w.Write(tracesession.Benchfmt(*flagName, agg.Count(), desc, results)); err != nil {
		log.Fatal(err)
	}
}

func printHuman(results []tracesession.Result, agg *tracesession.Aggregator) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', tabwriter.AlignRight)
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", r.Name, benchunit.Scale(r.Value, benchunit.Decimal), r.Unit)
	}
	tw.Flush()
	fmt.Printf("\n%d samples; gaps (ns): %v\n", agg.Count(), agg.Gaps())
}
