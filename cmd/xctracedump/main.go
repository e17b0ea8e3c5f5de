// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command xctracedump prints the contents of xctrace XML exports.
//
// Given the table of contents from
//
//	xctrace export --input run.trace --toc --output toc.xml
//
// xctracedump -toc toc.xml prints the recording start time and the
// supported tables. Given a table export from
//
//	xctrace export --input run.trace --output table.xml \
//	    --xpath '/trace-toc/run/data/table[@schema="cpu-profile"]'
//
// xctracedump -toc toc.xml -i table.xml also prints every decoded
// sample. Without -toc, the table type must be given with -table.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aclements/go-xctrace/tracefile"
	"github.com/aclements/go-xctrace/tracesession"
)

func main() {
	var (
		flagTOC     = flag.String("toc", "", "table of contents `file`")
		flagInput   = flag.String("i", "", "table export `file`")
		flagTable   = flag.String("table", "", "table `schema` to decode; one of: time-profile, cpu-profile, counters-profile")
		flagStrict  = flag.Bool("strict", false, "fail if the export declares a different schema")
		flagStack   = flag.Bool("stack", false, "print full backtraces")
		flagSummary = flag.Bool("summary", false, "print a weight summary instead of the samples")
	)
	flag.Parse()
	if flag.NArg() > 0 || (*flagTOC == "" && *flagInput == "") {
		flag.Usage()
		os.Exit(1)
	}
	var want *tracefile.TableType
	if *flagTable != "" {
		typ, ok := tracefile.ParseTableType(*flagTable)
		if !ok {
			flag.Usage()
			os.Exit(1)
		}
		want = &typ
	}

	var desc tracefile.TableDesc
	if *flagTOC != "" {
		toc, err := tracefile.OpenTOC(*flagTOC)
		if err != nil {
			log.Fatal(err)
		}
		printTOC(toc)
		if *flagInput == "" {
			return
		}
		desc, err = toc.Choose(want)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println()
	} else if want == nil {
		log.Fatal("either -toc or -table is required to decode a table export")
	} else {
		desc = tracefile.TableDesc{Type: *want, Threshold: -1}
	}

	var opts []tracefile.DecoderOption
	if *flagStrict {
		opts = append(opts, tracefile.WithStrictSchema())
	}
	if *flagStack {
		opts = append(opts, tracefile.WithFullBacktrace())
	}
	d := tracefile.NewDecoder(desc.Type, opts...)

	var weights tracesession.WeightSummary
	n := 0
	err := d.DecodeFile(*flagInput, func(s *tracefile.Sample) {
		n++
		if *flagSummary {
			weights.Add(s)
			return
		}
		printSample(s, desc)
	})
	if err != nil {
		log.Fatal(err)
	}
	if err := d.CheckObserved(); err != nil {
		log.Fatal(err)
	}
	if *flagSummary {
		fmt.Printf("%s: %d samples\n", desc.Type, n)
		fmt.Printf("weight: %v\n", weights.Summary())
	}
}

func printTOC(toc *tracefile.TOC) {
	if !toc.RecordStart.IsZero() {
		fmt.Printf("record start: %s (%d ms)\n", toc.RecordStart.Format(time.RFC3339Nano), toc.RecordStartMs())
	}
	fmt.Printf("tables:\n")
	for _, t := range toc.Tables {
		fmt.Printf("  %s", t.Type)
		if t.Type == tracefile.TableCountersProfile {
			fmt.Printf(" trigger=%s event=%s threshold=%d counters=%q", t.Trigger, t.TriggerEvent, t.Threshold, t.Counters)
		}
		fmt.Printf("\n")
	}
}

func printSample(s *tracefile.Sample, desc tracefile.TableDesc) {
	fmt.Printf("%d w=%d", s.TimeNs, s.Weight)
	if len(s.Counters) > 0 {
		fmt.Printf(" {")
		for i, v := range s.Counters {
			if i > 0 {
				fmt.Printf(" ")
			}
			if i < len(desc.Counters) {
				fmt.Printf("%s=", desc.Counters[i])
			}
			fmt.Printf("%d", v)
		}
		fmt.Printf("}")
	}
	fmt.Printf("\n")
	if s.Stack != nil {
		for _, f := range s.Stack {
			fmt.Printf("  %v\n", f)
		}
	} else if s.Frame != nil {
		fmt.Printf("  %v\n", s.Frame)
	}
}
