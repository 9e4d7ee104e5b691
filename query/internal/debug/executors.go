// Copyright 2019 eBay Inc.
// Primary authors: Simon Fell, Diego Ongaro,
//                  Raymond Kroeker, and Sathish Kandasamy.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package debug

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ebay/quilt/executor"
	"github.com/ebay/quilt/util/bytes"
	"github.com/ebay/quilt/util/clocks"
)

// queryExecutorStats tracks execution stats for all backend calls made during
// a single query execution.
type queryExecutorStats struct {
	clock clocks.Source
	// One entry per schema in the registry, fixed at construction.
	schemas map[string]*executorStats
}

// newExecutorStats returns a stats collector together with a registry in
// which every executor of 'impl' is wrapped to feed it.
func newExecutorStats(impl executor.Registry, clock clocks.Source) (*queryExecutorStats, executor.Registry) {
	s := &queryExecutorStats{
		clock:   clock,
		schemas: make(map[string]*executorStats, len(impl)),
	}
	wrapped := make(executor.Registry, len(impl))
	for schema, e := range impl {
		stats := new(executorStats)
		s.schemas[schema] = stats
		wrapped[schema] = &trackedExecutor{clock: clock, stats: stats, impl: e}
	}
	return s, wrapped
}

// dump writes a summary of the collected stats to 'w'
func (s *queryExecutorStats) dump(w bytes.StringWriter) {
	schemas := make([]string, 0, len(s.schemas))
	for schema := range s.schemas {
		schemas = append(schemas, schema)
	}
	sort.Strings(schemas)
	for _, schema := range schemas {
		s.schemas[schema].dump(w, schema)
	}
}

// trackedExecutor wraps a backend executor, timing and counting every
// sub-query sent to it.
type trackedExecutor struct {
	clock clocks.Source
	stats *executorStats
	impl  executor.Executor
}

var _ executor.Executor = (*trackedExecutor)(nil)

func (t *trackedExecutor) Execute(ctx context.Context, query string, args executor.Arguments) ([]executor.Row, error) {
	return t.stats.track(t.clock, len(args), func() ([]executor.Row, error) {
		return t.impl.Execute(ctx, query, args)
	})
}

// executorStats tracks execution stats for the sub-queries sent to a single
// backend.
type executorStats struct {
	lock   sync.Mutex
	locked struct {
		duration  time.Duration
		argsTotal int
		rowsTotal int
		callCount int
		errCount  int
	}
}

// track calls the supplied executor function and times how long it took to
// execute. It updates the accumulated stats with the result, along with the
// number of arguments sent and rows returned.
func (l *executorStats) track(clock clocks.Source, argCount int, call func() ([]executor.Row, error)) ([]executor.Row, error) {
	start := clock.Now()
	rows, err := call()
	end := clock.Now()

	l.lock.Lock()
	defer l.lock.Unlock()
	l.locked.duration += end.Sub(start)
	l.locked.argsTotal += argCount
	l.locked.rowsTotal += len(rows)
	l.locked.callCount++
	if err != nil {
		l.locked.errCount++
	}
	return rows, err
}

func (l *executorStats) dump(w bytes.StringWriter, label string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.locked.callCount == 0 {
		return
	}
	fmt.Fprintln(w, label)
	fmt.Fprintf(w, "\tCall Count:     %d\n", l.locked.callCount)
	if l.locked.errCount > 0 {
		fmt.Fprintf(w, "\tErrors:         %d\n", l.locked.errCount)
	}
	fmt.Fprintf(w, "\tAvg Arguments:  %1.1f\n", float64(l.locked.argsTotal)/float64(l.locked.callCount))
	fmt.Fprintf(w, "\tAvg Rows:       %1.1f\n", float64(l.locked.rowsTotal)/float64(l.locked.callCount))
	fmt.Fprintf(w, "\tTotal Time:     %v\n", l.locked.duration)
	fmt.Fprintf(w, "\tAvg Time:       %v\n", l.locked.duration/time.Duration(l.locked.callCount))
}
