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
	"time"

	"github.com/ebay/quilt/query/planner/plandef"
	"github.com/ebay/quilt/util/clocks"
)

// Events receives callbacks about the progress of the query execution.
type Events interface {
	// SubQueryCompleted is called when a sub-query has finished execution
	// (even in error cases). The event parameter contains a summary of
	// information about the execution.
	SubQueryCompleted(event SubQueryCompletedEvent)
	// JoinCompleted is called once all the per-plan result sets have been
	// joined into the final rows.
	JoinCompleted(event JoinCompletedEvent)
	// Clock will be called to obtain a time source that can be used for
	// timing the execution.
	Clock() clocks.Source
}

// SubQueryCompletedEvent contains the collected data about a single sub-query
// execution. All these fields are populated by exec before it calls the
// SubQueryCompleted method.
type SubQueryCompletedEvent struct {
	// The plan node that was executed.
	Plan *plandef.SubQueryPlan
	// The runtime arguments the executor was called with.
	Arguments Arguments
	// The number of rows the sub-query produced.
	NumRows int
	// When the sub-query started execution.
	StartedAt time.Time
	// When the sub-query completed execution.
	EndedAt time.Time
	// If set, the execution failed with an error.
	Err error
}

// JoinCompletedEvent contains the collected data about the join phase of an
// execution.
type JoinCompletedEvent struct {
	// The number of rows in the final result, after projection.
	NumRows int
	// When the join phase started.
	StartedAt time.Time
	// When the join phase completed.
	EndedAt time.Time
}

// ignoreEvents is an implementation of Events that ignores the callbacks.
type ignoreEvents struct {
}

func (ignoreEvents) SubQueryCompleted(event SubQueryCompletedEvent) {
}

func (ignoreEvents) JoinCompleted(event JoinCompletedEvent) {
}

func (ignoreEvents) Clock() clocks.Source {
	return clocks.Wall
}
