// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tracefile is a parser for profiles exported by "xctrace".
//
// An xctrace recording is exported in two steps. "xctrace export --toc"
// produces a table of contents describing which tables (schemas) the
// recording holds; ReadTOC parses it. "xctrace export --xpath" then
// produces one table, which a Decoder streams as a sequence of Samples.
//
// Table exports are not tree-shaped: the first occurrence of a value
// carries an "id" attribute and every later occurrence is an empty
// element with a "ref" attribute naming that id. The Decoder resolves
// these references in a single pass, so Samples that share a frame,
// binary, or counter vector share the same underlying value. Samples
// and everything they point to must be treated as read-only.
//
// Backtraces and schema mismatches each have two historically valid
// policies. By default a Decoder keeps only the top frame of each
// backtrace (WithFullBacktrace keeps all of them) and silently skips
// tables whose schema doesn't match, leaving it to the caller to check
// Observed (WithStrictSchema makes a mismatch fatal).
package tracefile // import "github.com/aclements/go-xctrace/tracefile"
