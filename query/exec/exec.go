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

package exec

import (
	"context"
	"fmt"

	"github.com/ebay/quilt/executor"
	"github.com/ebay/quilt/query/fragment"
	"github.com/ebay/quilt/query/planner/plandef"
)

// Row is one row of results, as produced by an executor and by Execute.
type Row = executor.Row

// Arguments are runtime arguments for sub-queries, keyed by argument name.
type Arguments = executor.Arguments

// Execute runs the given plan and returns the final joined rows. args seeds
// the argument pool that sub-query filters draw from; the engine adds the
// stitching values it derives along the way. Any error from an executor is
// returned to the caller as is and aborts the whole execution. events may be
// nil if the caller doesn't care about progress.
func Execute(ctx context.Context, events Events, executors executor.Registry,
	plan *plandef.QueryPlan, args Arguments) ([]Row, error) {

	if events == nil {
		events = ignoreEvents{}
	}
	run := execution{
		ctx:       ctx,
		events:    events,
		executors: executors,
		plan:      plan,
		pool:      make(Arguments, len(args)+len(plan.Joins)),
		results:   make(map[plandef.PlanID][]Row, len(plan.Plans)),
	}
	for name, value := range args {
		run.pool[name] = value
	}
	if err := run.subQuery(plan.Root()); err != nil {
		return nil, err
	}
	return run.join(), nil
}

// An execution holds the state of one Execute call. It is discarded once the
// final rows are produced.
type execution struct {
	ctx       context.Context
	events    Events
	executors executor.Registry
	plan      *plandef.QueryPlan
	// The shared argument pool: the initial arguments plus the stitching
	// values collected so far. Propagation overwrites existing keys.
	pool Arguments
	// The rows each sub-query produced, keyed by plan id.
	results map[plandef.PlanID][]Row
}

// subQuery runs the sub-query for p, propagates its stitching outputs, and
// then runs p's children. The first error stops the walk.
func (run *execution) subQuery(p *plandef.SubQueryPlan) error {
	clock := run.events.Clock()
	event := SubQueryCompletedEvent{
		Plan:      p,
		StartedAt: clock.Now(),
	}
	rows, err := run.callExecutor(p, &event)
	event.EndedAt = clock.Now()
	event.NumRows = len(rows)
	event.Err = err
	run.events.SubQueryCompleted(event)
	if err != nil {
		return err
	}
	run.results[p.ID] = rows

	// Make the stitching values visible before any child runs. Children of
	// other nodes can also see them, but each value is overwritten by the
	// closest ancestor before its own subtree executes.
	for _, join := range run.plan.Joins {
		if run.plan.Plans[join.Child].Parent == p.ID {
			run.pool[join.ParentOutput] = distinctValues(rows, join.ParentOutput)
		}
	}
	for _, child := range p.Children {
		if err := run.subQuery(&run.plan.Plans[child]); err != nil {
			return err
		}
	}
	return nil
}

// callExecutor invokes the executor for p's schema with the subset of the
// argument pool that p's fragment references. Errors for an unregistered
// schema or an unbound argument are the caller's configuration at fault, not
// the backend's.
func (run *execution) callExecutor(p *plandef.SubQueryPlan, event *SubQueryCompletedEvent) ([]Row, error) {
	e, ok := run.executors[p.SchemaID]
	if !ok {
		return nil, fmt.Errorf("no executor registered for schema %q", p.SchemaID)
	}
	names := fragment.RuntimeArguments(p.Fragment)
	args := make(Arguments, len(names))
	for _, name := range names {
		value, ok := run.pool[name]
		if !ok {
			return nil, fmt.Errorf(
				"no value bound for runtime argument $%v of sub-query %v (schema %q)",
				name, p.ID, p.SchemaID)
		}
		args[name] = value
	}
	event.Arguments = args
	return e.Execute(run.ctx, fragment.Print(p.Fragment), args)
}

// join merges the per-plan result sets into the final rows.
func (run *execution) join() []Row {
	clock := run.events.Clock()
	started := clock.Now()
	indexes := makeJoinIndexes(run.plan, run.results)
	rows := run.results[0]
	for _, join := range run.plan.Joins {
		rows = joinRows(rows, run.results[join.Child], indexes[join.Child], join)
	}
	rows = projectRows(rows, run.plan.IntermediateOutputs)
	run.events.JoinCompleted(JoinCompletedEvent{
		NumRows:   len(rows),
		StartedAt: started,
		EndedAt:   clock.Now(),
	})
	return rows
}

// distinctValues returns the distinct non-null values of the given column
// across rows, in first-seen order. A missing column counts as null. Null is
// never usable as a join key, so null values are not propagated.
func distinctValues(rows []Row, column string) []interface{} {
	values := []interface{}{}
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		value := row[column]
		if value == nil {
			continue
		}
		key := joinKey(value)
		if seen[key] {
			continue
		}
		seen[key] = true
		values = append(values, value)
	}
	return values
}
