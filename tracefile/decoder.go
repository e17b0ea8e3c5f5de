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
)

// Element and attribute names of table exports.
const (
	elemSchema     = "schema"
	elemRow        = "row"
	elemSampleTime = "sample-time"
	elemCycleWt    = "cycle-weight"
	elemWeight     = "weight"
	elemPMCEvent   = "pmc-event"
	elemPMCEvents  = "pmc-events"
	elemBacktrace  = "backtrace"
	elemFrame      = "frame"
	elemBinary     = "binary"
)

// A Decoder decodes a single table from "xctrace export --xpath" output.
//
// A Decoder may be reused for several documents, but not concurrently.
// All state derived from one document is discarded when Decode
// returns.
type Decoder struct {
	table         TableType
	strict        bool
	fullBacktrace bool

	observed bool
}

// A DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithStrictSchema makes any schema other than the requested table a
// decode error. By default such tables are skipped.
func WithStrictSchema() DecoderOption {
	return func(d *Decoder) { d.strict = true }
}

// WithFullBacktrace makes the decoder record every frame of each
// backtrace in Sample.Stack. By default only the top frame is kept.
func WithFullBacktrace() DecoderOption {
	return func(d *Decoder) { d.fullBacktrace = true }
}

// NewDecoder returns a decoder for tables of type table.
func NewDecoder(table TableType, opts ...DecoderOption) *Decoder {
	d := &Decoder{table: table}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Table returns the table type d decodes.
func (d *Decoder) Table() TableType {
	return d.table
}

// Observed reports whether the most recently decoded document declared
// the requested schema. A document that doesn't produces no samples,
// which under the default policy is not an error, so callers should
// check Observed (or CheckObserved) after decoding.
func (d *Decoder) Observed() bool {
	return d.observed
}

// CheckObserved returns an error wrapping ErrSchemaNotObserved if the
// most recently decoded document didn't declare the requested schema.
func (d *Decoder) CheckObserved() error {
	if d.observed {
		return nil
	}
	return fmt.Errorf("%s: %w", d.table.Name(), ErrSchemaNotObserved)
}

// DecodeFile decodes the named file. See Decode.
func (d *Decoder) DecodeFile(name string, fn func(*Sample)) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	return d.Decode(f, fn)
}

// Decode reads a table export from r and calls fn once for every row of
// the requested table, in document order, before reading further.
//
// If the document is malformed, Decode stops at the first problem and
// returns a *FormatError. Samples already passed to fn should then be
// discarded.
func (d *Decoder) Decode(r io.Reader, fn func(*Sample)) error {
	d.observed = false
	p := &pass{
		Decoder: d,
		dec:     xml.NewDecoder(r),
		fn:      fn,
		byID:    make(map[int64]int),
	}
	return p.run()
}

// decodeState is what the decoder does with the text and elements it
// reads.
type decodeState int

const (
	stateIdle decodeState = iota
	// stateCapturingScalar accumulates text of a newly defined
	// scalar (time or weight).
	stateCapturingScalar
	// stateCapturingVector accumulates text of a newly defined
	// counter vector.
	stateCapturingVector
	// stateSkipping ignores everything until the enclosing node of
	// a foreign schema closes.
	stateSkipping
)

type entityKind int

const (
	kindScalar entityKind = iota
	kindVector
	kindBacktrace
	kindFrame
	kindBinary
)

var kindNames = [...]string{
	kindScalar:    "scalar",
	kindVector:    "counter vector",
	kindBacktrace: "backtrace",
	kindFrame:     "frame",
	kindBinary:    "binary",
}

func (k entityKind) String() string {
	return kindNames[k]
}

// An entity is an id-addressable value from a table export. Only the
// fields for its kind are used.
type entity struct {
	kind entityKind
	id   int64

	scalar int64
	vector []int64
	frames []*Frame // kindBacktrace, top frame first
	frame  *Frame
	binary *Binary
}

// An openEntity is an element on the open-element stack. fresh is set
// if the element defined the entity rather than referring to it; only
// fresh entities accept children, so entities never change once
// another element has referred to them.
type openEntity struct {
	idx   int
	fresh bool
}

// A pass is the state of decoding one document.
type pass struct {
	*Decoder
	dec *xml.Decoder
	fn  func(*Sample)

	// entities is the arena of every entity defined so far, and
	// byID indexes it.
	entities []entity
	byID     map[int64]int
	stack    []openEntity

	state     decodeState
	depth     int // depth of the current element; the root is 1
	skipDepth int // depth of the node being skipped
	text      strings.Builder

	cur *Sample // in-progress row, or nil
}

func (p *pass) run() error {
	for {
		tok, err := p.dec.Token()
		if err == io.EOF {
			if p.depth != 0 {
				return p.errorf(io.ErrUnexpectedEOF, "document ends inside an element")
			}
			return nil
		} else if err != nil {
			return p.errorf(err, "malformed XML")
		}

		switch tok := tok.(type) {
		case xml.StartElement:
			p.depth++
			if err := p.start(tok); err != nil {
				return err
			}
		case xml.EndElement:
			if err := p.end(tok.Name.Local); err != nil {
				return err
			}
			p.depth--
		case xml.CharData:
			if p.state == stateCapturingScalar || p.state == stateCapturingVector {
				p.text.Write(tok)
			}
		}
	}
}

func (p *pass) errorf(err error, format string, args ...interface{}) error {
	line, col := p.dec.InputPos()
	return &FormatError{Line: line, Col: col, Msg: fmt.Sprintf(format, args...), Err: err}
}

func (p *pass) start(se xml.StartElement) error {
	if p.state == stateSkipping {
		return nil
	}
	switch se.Name.Local {
	case elemSchema:
		schema, _ := attr(se, "name")
		if schema == p.table.Name() {
			p.observed = true
			return nil
		}
		if p.strict {
			return p.errorf(nil, "export contains schema %q, want %q", schema, p.table.Name())
		}
		p.state = stateSkipping
		p.skipDepth = p.depth - 1

	case elemRow:
		p.cur = new(Sample)

	case elemSampleTime, elemCycleWt, elemWeight, elemPMCEvent:
		return p.push(se, kindScalar, func(*entity) error {
			p.capture(stateCapturingScalar)
			return nil
		})

	case elemPMCEvents:
		return p.push(se, kindVector, func(*entity) error {
			p.capture(stateCapturingVector)
			return nil
		})

	case elemBacktrace:
		return p.push(se, kindBacktrace, nil)

	case elemBinary:
		return p.push(se, kindBinary, func(e *entity) error {
			name, _ := attr(se, "name")
			e.binary = &Binary{Name: name}
			return nil
		})

	case elemFrame:
		return p.push(se, kindFrame, func(e *entity) error {
			addr, err := p.parseAddr(se)
			if err != nil {
				return err
			}
			name, _ := attr(se, "name")
			e.frame = &Frame{Addr: addr, Name: name}
			return nil
		})
	}
	return nil
}

func (p *pass) capture(state decodeState) {
	p.state = state
	p.text.Reset()
}

// push opens an entity element. If se defines a new entity, push adds
// it to the arena and calls init on it; if se refers to an existing
// one, it pushes that entity unchanged.
func (p *pass) push(se xml.StartElement, kind entityKind, init func(*entity) error) error {
	if ref, ok := attr(se, "ref"); ok {
		id, err := strconv.ParseInt(ref, 10, 64)
		if err != nil {
			return p.errorf(err, "bad ref on <%s>", se.Name.Local)
		}
		idx, ok := p.byID[id]
		if !ok {
			return p.errorf(nil, "<%s> refers to undefined id %d", se.Name.Local, id)
		}
		if got := p.entities[idx].kind; got != kind {
			return p.errorf(nil, "<%s> refers to id %d, which is a %v", se.Name.Local, id, got)
		}
		p.stack = append(p.stack, openEntity{idx, false})
		return nil
	}

	idStr, ok := attr(se, "id")
	if !ok {
		return p.errorf(&AttrError{Element: se.Name.Local, Attr: "id"}, "entity without id or ref")
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return p.errorf(err, "bad id on <%s>", se.Name.Local)
	}
	if _, dup := p.byID[id]; dup {
		return p.errorf(nil, "duplicate definition of id %d", id)
	}
	idx := len(p.entities)
	p.entities = append(p.entities, entity{kind: kind, id: id})
	if init != nil {
		if err := init(&p.entities[idx]); err != nil {
			p.entities = p.entities[:idx]
			return err
		}
	}
	p.byID[id] = idx
	p.stack = append(p.stack, openEntity{idx, true})
	return nil
}

// pop closes the innermost open entity, which must be of kind kind.
func (p *pass) pop(name string, kind entityKind) (*entity, bool, error) {
	if len(p.stack) == 0 {
		return nil, false, p.errorf(nil, "</%s> closes no open entity", name)
	}
	top := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	e := &p.entities[top.idx]
	if e.kind != kind {
		return nil, false, p.errorf(nil, "</%s> closes a %v", name, e.kind)
	}
	return e, top.fresh, nil
}

// peek returns the innermost open entity, which must be of kind kind.
func (p *pass) peek(name string, kind entityKind) (*entity, bool, error) {
	if len(p.stack) == 0 {
		return nil, false, p.errorf(nil, "<%s> outside of a %v", name, kind)
	}
	top := p.stack[len(p.stack)-1]
	e := &p.entities[top.idx]
	if e.kind != kind {
		return nil, false, p.errorf(nil, "<%s> inside a %v, want %v", name, e.kind, kind)
	}
	return e, top.fresh, nil
}

func (p *pass) row(name string) (*Sample, error) {
	if p.cur == nil {
		return nil, p.errorf(nil, "<%s> outside of a row", name)
	}
	return p.cur, nil
}

func (p *pass) end(name string) error {
	if p.state == stateSkipping {
		if p.depth == p.skipDepth {
			p.state = stateIdle
		}
		return nil
	}

	err := p.end1(name)
	// Text is only ever captured directly inside the element that
	// started the capture.
	p.state = stateIdle
	return err
}

func (p *pass) end1(name string) error {
	switch name {
	case elemRow:
		if p.cur == nil {
			return p.errorf(nil, "unbalanced </row>")
		}
		s := p.cur
		p.cur = nil
		p.fn(s)

	case elemSampleTime, elemCycleWt, elemWeight, elemPMCEvent:
		e, _, err := p.pop(name, kindScalar)
		if err != nil {
			return err
		}
		if p.state == stateCapturingScalar {
			text := strings.TrimSpace(p.text.String())
			e.scalar, err = strconv.ParseInt(text, 10, 64)
			if err != nil {
				return p.errorf(err, "bad <%s> value", name)
			}
		}
		s, err := p.row(name)
		if err != nil {
			return err
		}
		if name == elemSampleTime {
			s.TimeNs = e.scalar
		} else {
			s.Weight = e.scalar
		}

	case elemPMCEvents:
		e, _, err := p.pop(name, kindVector)
		if err != nil {
			return err
		}
		if p.state == stateCapturingVector {
			fields := strings.Fields(p.text.String())
			vec := make([]int64, len(fields))
			for i, f := range fields {
				vec[i], err = strconv.ParseInt(f, 10, 64)
				if err != nil {
					return p.errorf(err, "bad <%s> value", name)
				}
			}
			e.vector = vec
		}
		s, err := p.row(name)
		if err != nil {
			return err
		}
		s.Counters = e.vector

	case elemBacktrace:
		e, _, err := p.pop(name, kindBacktrace)
		if err != nil {
			return err
		}
		s, err := p.row(name)
		if err != nil {
			return err
		}
		if len(e.frames) > 0 {
			s.Frame = e.frames[0]
		}
		if p.fullBacktrace {
			s.Stack = e.frames
		}

	case elemFrame:
		e, _, err := p.pop(name, kindFrame)
		if err != nil {
			return err
		}
		bt, fresh, err := p.peek(name, kindBacktrace)
		if err != nil {
			return err
		}
		// We only need the top frame, unless asked for the whole
		// backtrace.
		if fresh && (len(bt.frames) == 0 || p.fullBacktrace) {
			bt.frames = append(bt.frames, e.frame)
		}

	case elemBinary:
		e, _, err := p.pop(name, kindBinary)
		if err != nil {
			return err
		}
		f, fresh, err := p.peek(name, kindFrame)
		if err != nil {
			return err
		}
		if fresh {
			f.frame.Binary = e.binary
		}
	}
	return nil
}

// parseAddr parses a frame's "addr" attribute and removes the table's
// address bias.
func (p *pass) parseAddr(se xml.StartElement) (uint64, error) {
	val, ok := attr(se, "addr")
	if !ok {
		return 0, p.errorf(&AttrError{Element: se.Name.Local, Attr: "addr"}, "bad frame")
	}
	if !strings.HasPrefix(val, "0x") {
		return 0, p.errorf(errors.New("missing 0x prefix"), "unexpected address format %q", val)
	}
	addr, err := strconv.ParseUint(val[2:], 16, 64)
	if err != nil {
		return 0, p.errorf(err, "failed to parse address %q", val)
	}
	// An address below the bias can't be real. Keep it at 0 so the
	// sample stays unresolvable instead of wrapping around.
	if addr < p.table.bias() {
		return 0, nil
	}
	return addr - p.table.bias(), nil
}
