// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tracefile

import (
	"errors"
	"fmt"
)

// A FormatError reports that an export is malformed: a missing
// attribute, unparseable text, a reference to an undefined id, and so
// on. Decoding stops at the first FormatError and there is no partial
// result; decoding the same input again will fail the same way.
type FormatError struct {
	Line, Col int // input position, if known
	Msg       string
	Err       error // underlying error, may be nil
}

func (e *FormatError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Line == 0 {
		return "xctrace export: " + msg
	}
	return fmt.Sprintf("xctrace export:%d:%d: %s", e.Line, e.Col, msg)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// An AttrError reports that an element lacks a required attribute.
// It is always wrapped in a FormatError.
type AttrError struct {
	Element string
	Attr    string
}

func (e *AttrError) Error() string {
	return fmt.Sprintf("<%s> is missing required attribute %q", e.Element, e.Attr)
}

var (
	// ErrTableNotFound is returned when a table of contents has no
	// table of the requested type.
	ErrTableNotFound = errors.New("table not found in trace")

	// ErrSchemaNotObserved is returned by Decoder.CheckObserved when
	// the last decoded export never declared the requested schema.
	// Under the default lenient policy this is not a decode failure:
	// the export is intact, it just has no data for the table.
	ErrSchemaNotObserved = errors.New("requested schema not present in export")
)
