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

// Package plandef defines the output of the query planner: a tree of
// per-schema sub-query plans plus the descriptors needed to stitch their
// results back together.
package plandef

import (
	"fmt"
	"strings"

	"github.com/ebay/quilt/query/fragment"
	"github.com/graphql-go/graphql/language/ast"
)

// A PlanID identifies one sub-query plan within a QueryPlan. Ids are assigned
// in preorder: the root is 0, and every descendant's id is larger than its
// ancestors'.
type PlanID int

// NoParent is the Parent of the root plan.
const NoParent PlanID = -1

// A QueryPlan is a tree of sub-query plans that the execution engine can run
// to answer a federated query. It is built once and never modified afterward.
type QueryPlan struct {
	// The sub-query plans, indexed by PlanID. Plans[0] is the root.
	Plans []SubQueryPlan
	// How to join the sub-queries' result sets together, in the order the
	// joins are applied.
	Joins []OutputJoinDescriptor
	// Output names that exist only for stitching. They are dropped from the
	// final rows.
	IntermediateOutputs OutputSet
}

// A SubQueryPlan executes one query fragment against one schema.
type SubQueryPlan struct {
	// This plan's id, which is also its index in QueryPlan.Plans.
	ID PlanID
	// Identifies the schema, and thereby the executor, that the fragment
	// targets.
	SchemaID string
	// The fragment to execute, including the stitching filter added when the
	// plan was built.
	Fragment *ast.Document
	// The plan that this one depends on, or NoParent for the root.
	Parent PlanID
	// The plans that depend on this one, in declared order.
	Children []PlanID
}

// An OutputJoinDescriptor says that the rows of a child sub-query join to the
// rows of its parent where the child's output column equals the parent's.
type OutputJoinDescriptor struct {
	// The name of the join column in the parent's rows. It doubles as the name
	// of the runtime argument carrying the parent's values into the child's
	// stitching filter.
	ParentOutput string
	// The name of the join column in the child's rows.
	ChildOutput string
	// The id of the child plan. The parent side of the join is that plan's
	// Parent.
	Child PlanID
}

// Root returns the plan that executes first.
func (plan *QueryPlan) Root() *SubQueryPlan {
	return &plan.Plans[0]
}

// String returns a multi-line human-readable description of the plan: each
// sub-query in execution order, indented by its depth in the tree, followed by
// the joins and the outputs to remove.
func (plan *QueryPlan) String() string {
	var b strings.Builder
	var print func(p *SubQueryPlan, depth int)
	print = func(p *SubQueryPlan, depth int) {
		indent := strings.Repeat(" ", 4*depth)
		fmt.Fprintf(&b, "%vExecute subplan ID %v in schema named %q:\n",
			indent, p.ID, p.SchemaID)
		text := strings.TrimSuffix(fragment.Print(p.Fragment), "\n")
		for _, line := range strings.Split(text, "\n") {
			b.WriteString(indent)
			b.WriteString(line)
			b.WriteByte('\n')
		}
		for _, child := range p.Children {
			print(&plan.Plans[child], depth+1)
		}
	}
	print(plan.Root(), 0)

	b.WriteString("\nJoin together outputs as follows: [")
	for i, join := range plan.Joins {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "(%v, %v) between subplan IDs [%v, %v]",
			join.ParentOutput, join.ChildOutput,
			plan.Plans[join.Child].Parent, join.Child)
	}
	b.WriteString("]\n")

	fmt.Fprintf(&b, "\nRemove the following outputs at the end: %v\n",
		plan.IntermediateOutputs)
	return b.String()
}
