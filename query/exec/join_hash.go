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
	"github.com/ebay/quilt/query/planner/plandef"
	"github.com/sirupsen/logrus"
)

// A joinIndex maps each distinct join-column value of a child result set to
// the positions of the rows holding that value, in row order. Values are
// keyed by their joinKey. A join key need not be unique.
type joinIndex map[string][]int

// makeJoinIndexes builds the join index for every child plan's result set. A
// plan can only be the child side of one join descriptor.
func makeJoinIndexes(plan *plandef.QueryPlan, results map[plandef.PlanID][]Row) map[plandef.PlanID]joinIndex {
	indexes := make(map[plandef.PlanID]joinIndex, len(plan.Joins))
	for _, join := range plan.Joins {
		if _, found := indexes[join.Child]; found {
			logrus.Panicf("Plan %v is the child of multiple join descriptors: %v",
				join.Child, plan.Joins)
		}
		indexes[join.Child] = makeJoinIndex(results[join.Child], join.ChildOutput)
	}
	return indexes
}

// makeJoinIndex indexes rows by their value in the given column. Rows with a
// null or missing join value can never match anything and are left out.
func makeJoinIndex(rows []Row, column string) joinIndex {
	index := make(joinIndex, len(rows))
	for i, row := range rows {
		value := row[column]
		if value == nil {
			continue
		}
		key := joinKey(value)
		index[key] = append(index[key], i)
	}
	return index
}

// joinRows joins the accumulated rows so far against one child result set.
// For each current row, every child row sharing its join value produces one
// output row; current rows without a match are dropped (an inner join). The
// output order follows the current rows, then the matched child rows in row
// order.
func joinRows(current []Row, childRows []Row, index joinIndex, join plandef.OutputJoinDescriptor) []Row {
	next := []Row{}
	for _, row := range current {
		value := row[join.ParentOutput]
		if value == nil {
			continue
		}
		for _, i := range index[joinKey(value)] {
			next = append(next, mergeRows(row, childRows[i]))
		}
	}
	return next
}

// mergeRows returns the field-wise union of the two rows. On a name
// collision, the child's field wins.
func mergeRows(parent, child Row) Row {
	merged := make(Row, len(parent)+len(child))
	for name, value := range parent {
		merged[name] = value
	}
	for name, value := range child {
		merged[name] = value
	}
	return merged
}

// projectRows copies the rows with the named outputs removed.
func projectRows(rows []Row, drop plandef.OutputSet) []Row {
	projected := make([]Row, len(rows))
	for i, row := range rows {
		out := make(Row, len(row))
		for name, value := range row {
			if !drop.Contains(name) {
				out[name] = value
			}
		}
		projected[i] = out
	}
	return projected
}
