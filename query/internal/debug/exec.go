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
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ebay/quilt/query/exec"
	"github.com/ebay/quilt/query/planner/plandef"
	"github.com/ebay/quilt/util/bytes"
	"github.com/ebay/quilt/util/clocks"
	"github.com/ebay/quilt/util/cmp"
)

// execEvents implements exec.Events, capturing the completion events. It
// generates a version of the query plan that shows the timing/results size
// info collected from these events.
type execEvents struct {
	plan   *plandef.QueryPlan
	clock  clocks.Source
	lock   sync.Mutex // protects locked
	locked struct {
		subQueries []exec.SubQueryCompletedEvent
		joins      []exec.JoinCompletedEvent
	}
}

func newExecEvents(p *plandef.QueryPlan, clock clocks.Source) *execEvents {
	e := execEvents{
		plan:  p,
		clock: clock,
	}
	e.locked.subQueries = make([]exec.SubQueryCompletedEvent, 0, len(p.Plans))
	return &e
}

// SubQueryCompleted implements the exec.Events interface
func (e *execEvents) SubQueryCompleted(event exec.SubQueryCompletedEvent) {
	e.lock.Lock()
	e.locked.subQueries = append(e.locked.subQueries, event)
	e.lock.Unlock()
}

// JoinCompleted implements the exec.Events interface
func (e *execEvents) JoinCompleted(event exec.JoinCompletedEvent) {
	e.lock.Lock()
	e.locked.joins = append(e.locked.joins, event)
	e.lock.Unlock()
}

// Clock implements the exec.Events interface
func (e *execEvents) Clock() clocks.Source {
	return e.clock
}

const joinLabel = "Join"

// dump writes a textual summary of the executed plan to the supplied
// StringWriter. It contains a line for each sub-query in the plan, with
// summary information about what that sub-query did, followed by a line for
// the join phase.
func (e *execEvents) dump(w bytes.StringWriter) {
	e.lock.Lock()
	defer e.lock.Unlock()
	// maxLen returns the length of the longest sub-query label from the plan,
	// including padding.
	var maxLen func(depth int, p *plandef.SubQueryPlan) int
	maxLen = func(depth int, p *plandef.SubQueryPlan) int {
		l := depth*4 + len(subQueryLabel(p))
		for _, childID := range p.Children {
			l = cmp.MaxInt(l, maxLen(depth+1, &e.plan.Plans[childID]))
		}
		return l
	}
	maxLabelLen := cmp.MaxInt(maxLen(0, e.plan.Root()), len(joinLabel)) + 1
	var writeSubQuery func(depth int, p *plandef.SubQueryPlan)
	writeSubQuery = func(depth int, p *plandef.SubQueryPlan) {
		fmt.Fprintf(w, "%s%v%s %s\n",
			strings.Repeat(" ", depth*4),
			subQueryLabel(p),
			strings.Repeat(" ", maxLabelLen-(depth*4)-len(subQueryLabel(p))),
			subQueryTotals(p.ID, e.locked.subQueries))

		for _, childID := range p.Children {
			writeSubQuery(depth+1, &e.plan.Plans[childID])
		}
	}
	writeSubQuery(0, e.plan.Root())
	for _, join := range e.locked.joins {
		fmt.Fprintf(w, "%s%s rows:%6d | took %6v\n",
			joinLabel,
			strings.Repeat(" ", maxLabelLen-len(joinLabel)),
			join.NumRows,
			join.EndedAt.Sub(join.StartedAt).Round(time.Millisecond))
	}
}

func subQueryLabel(p *plandef.SubQueryPlan) string {
	return fmt.Sprintf("Sub-query %v in schema %q", p.ID, p.SchemaID)
}

// subQueryTotals returns a string with a summary of the completion event for
// the sub-query with the given plan id.
func subQueryTotals(id plandef.PlanID, events []exec.SubQueryCompletedEvent) string {
	for _, event := range events {
		if event.Plan.ID != id {
			continue
		}
		took := event.EndedAt.Sub(event.StartedAt).Round(time.Millisecond)
		if event.Err != nil {
			return fmt.Sprintf("failed after %v: %v", took, event.Err)
		}
		return fmt.Sprintf("args:%4d | rows:%6d | took %6v",
			len(event.Arguments), event.NumRows, took)
	}
	return "[not executed]"
}
