// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tracefile

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// A TOC is the table of contents of an xctrace recording.
type TOC struct {
	// Tables lists the supported tables in document order. Tables
	// with schemas this package doesn't understand are omitted.
	Tables []TableDesc

	// RecordStart is the wall-clock time the recording started. It
	// is the zero Time if the table of contents has no start date.
	RecordStart time.Time
}

// RecordStartMs returns RecordStart in milliseconds since the Unix
// epoch, or 0 if the table of contents has no start date.
func (t *TOC) RecordStartMs() int64 {
	if t.RecordStart.IsZero() {
		return 0
	}
	return t.RecordStart.UnixMilli()
}

// Find returns the first table of type typ.
func (t *TOC) Find(typ TableType) (TableDesc, bool) {
	for _, d := range t.Tables {
		if d.Type == typ {
			return d, true
		}
	}
	return TableDesc{}, false
}

// Choose selects the table to decode. If want is non-nil, Choose
// returns the first table of that type. Otherwise the table of
// contents must contain exactly one supported table.
func (t *TOC) Choose(want *TableType) (TableDesc, error) {
	if len(t.Tables) == 0 {
		return TableDesc{}, fmt.Errorf("trace contains no supported table: %w", ErrTableNotFound)
	}
	if want != nil {
		d, ok := t.Find(*want)
		if !ok {
			return TableDesc{}, fmt.Errorf("%s: %w", want.Name(), ErrTableNotFound)
		}
		return d, nil
	}
	if len(t.Tables) != 1 {
		names := make([]string, len(t.Tables))
		for i, d := range t.Tables {
			names[i] = d.Type.Name()
		}
		return TableDesc{}, fmt.Errorf("trace contains multiple supported tables (%s); a table must be specified", strings.Join(names, ", "))
	}
	return t.Tables[0], nil
}

// CountersTable returns the counters-profile table. A time-triggered
// table that records no counters has nothing to report and is an
// error.
func (t *TOC) CountersTable() (TableDesc, error) {
	d, ok := t.Find(TableCountersProfile)
	if !ok {
		return TableDesc{}, fmt.Errorf("%s: %w", TableCountersProfile.Name(), ErrTableNotFound)
	}
	if len(d.Counters) == 0 && d.Trigger == TriggerTime {
		return TableDesc{}, fmt.Errorf("%s table records no PMU events", TableCountersProfile.Name())
	}
	return d, nil
}

// OpenTOC reads the table of contents in the named file.
func OpenTOC(name string) (*TOC, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTOC(f)
}

// ReadTOC reads a table of contents produced by "xctrace export --toc".
//
// Tables of an unknown schema are ignored. For counters-profile tables
// the trigger, its parameters, and the counter list are required; a
// missing attribute or an unknown trigger is a *FormatError.
func ReadTOC(r io.Reader) (*TOC, error) {
	dec := xml.NewDecoder(r)
	toc := new(TOC)

	var text strings.Builder
	capturing := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, posError(dec, "malformed XML", err)
		}

		switch tok := tok.(type) {
		case xml.StartElement:
			capturing = tok.Name.Local == "start-date"
			text.Reset()
			if tok.Name.Local != "table" {
				continue
			}
			d, ok, err := parseTableElement(tok)
			if err != nil {
				return nil, posError(dec, "bad <table>", err)
			}
			if ok {
				toc.Tables = append(toc.Tables, d)
			}

		case xml.CharData:
			if capturing {
				text.Write(tok)
			}

		case xml.EndElement:
			if tok.Name.Local != "start-date" || !capturing {
				continue
			}
			capturing = false
			start, err := time.Parse(time.RFC3339, strings.TrimSpace(text.String()))
			if err != nil {
				return nil, posError(dec, "bad <start-date>", err)
			}
			toc.RecordStart = start
		}
	}
	return toc, nil
}

func parseTableElement(se xml.StartElement) (TableDesc, bool, error) {
	schema, err := requireAttr(se, "schema")
	if err != nil {
		return TableDesc{}, false, err
	}
	typ, ok := ParseTableType(schema)
	if !ok {
		return TableDesc{}, false, nil
	}
	switch typ {
	case TableTimeProfile, TableCPUProfile:
		return plainTable(typ), true, nil
	case TableCountersProfile:
		d, err := parseCountersTable(se)
		return d, err == nil, err
	}
	panic("unhandled table type " + typ.Name())
}

func parseCountersTable(se xml.StartElement) (TableDesc, error) {
	trigger, err := requireAttr(se, "trigger")
	if err != nil {
		return TableDesc{}, err
	}
	d := TableDesc{Type: TableCountersProfile}
	d.Trigger, _ = parseTriggerType(trigger)

	var thresholdAttr string
	switch d.Trigger {
	case TriggerPMI:
		event, err := requireAttr(se, "pmi-event")
		if err != nil {
			return TableDesc{}, err
		}
		if len(event) >= 2 && event[0] == '"' && event[len(event)-1] == '"' {
			event = event[1 : len(event)-1]
		}
		d.TriggerEvent = event
		thresholdAttr = "pmi-threshold"
	case TriggerTime:
		d.TriggerEvent = TimeTriggerEvent
		thresholdAttr = "sample-rate-micro-seconds"
	default:
		return TableDesc{}, fmt.Errorf("unsupported trigger attribute %q", trigger)
	}

	threshold, err := requireAttr(se, thresholdAttr)
	if err != nil {
		return TableDesc{}, err
	}
	d.Threshold, err = strconv.ParseInt(strings.TrimSpace(threshold), 10, 64)
	if err != nil {
		return TableDesc{}, fmt.Errorf("bad %s: %w", thresholdAttr, err)
	}

	events, err := requireAttr(se, "pmc-events")
	if err != nil {
		return TableDesc{}, err
	}
	d.Counters, err = parseEventList(events)
	if err != nil {
		return TableDesc{}, err
	}
	return d, nil
}

// parseEventList splits a whitespace-separated list of PMU event names,
// each optionally wrapped in double quotes.
//
// TODO: Support quoted names that contain spaces.
func parseEventList(list string) ([]string, error) {
	out := []string{}
	for _, tok := range strings.Fields(list) {
		open, closed := strings.HasPrefix(tok, `"`), len(tok) > 1 && strings.HasSuffix(tok, `"`)
		if open != closed {
			return nil, fmt.Errorf("can't parse pmc-events %q: unbalanced quotes in %s", list, tok)
		}
		if open {
			tok = tok[1 : len(tok)-1]
		}
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out, nil
}

func attr(se xml.StartElement, name string) (string, bool) {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func requireAttr(se xml.StartElement, name string) (string, error) {
	v, ok := attr(se, name)
	if !ok {
		return "", &AttrError{Element: se.Name.Local, Attr: name}
	}
	return v, nil
}

// posError wraps err in a FormatError at dec's current position.
func posError(dec *xml.Decoder, msg string, err error) error {
	var fe *FormatError
	if errors.As(err, &fe) {
		return err
	}
	line, col := dec.InputPos()
	return &FormatError{Line: line, Col: col, Msg: msg, Err: err}
}
