// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tracesession

import (
	"strings"

	"github.com/aclements/go-xctrace/tracefile"
	"golang.org/x/perf/benchfmt"
)

// Benchfmt converts normalized counters into a Go benchmark result
// named name, so they can be compared with benchstat. Each counter
// becomes a value with unit "<event>/op". iters is the number of
// samples the counters were aggregated from.
//
// The table's trigger is recorded as file configuration.
func Benchfmt(name string, iters int64, desc tracefile.TableDesc, rs []Result) *benchfmt.Result {
	res := &benchfmt.Result{
		Name:  benchfmt.Name(name),
		Iters: int(iters),
	}
	res.Config = append(res.Config,
		benchfmt.Config{Key: "table", Value: []byte(desc.Type.Name()), File: true},
		benchfmt.Config{Key: "trigger", Value: []byte(desc.Trigger.String()), File: true},
	)
	if desc.TriggerEvent != "" {
		res.Config = append(res.Config, benchfmt.Config{Key: "trigger-event", Value: []byte(desc.TriggerEvent), File: true})
	}
	for _, r := range rs {
		res.Values = append(res.Values, benchfmt.Value{
			Value: r.Value,
			Unit:  unitName(r.Name) + strings.TrimPrefix(r.Unit, "#"),
		})
	}
	return res
}

// unitName makes an event name usable as a benchmark unit, which can't
// contain spaces.
func unitName(event string) string {
	return strings.Join(strings.Fields(event), "_")
}
