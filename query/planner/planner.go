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

// Package planner compiles a tree of connected sub-query nodes into an
// executable query plan. It assigns every sub-query a plan id, rewrites each
// child fragment to carry the membership filter that stitches it to its
// parent, and records the join descriptors the join engine will apply.
package planner

import (
	"fmt"

	"github.com/ebay/quilt/query/fragment"
	"github.com/ebay/quilt/query/planner/plandef"
	"github.com/graphql-go/graphql/language/ast"
)

// A Node is one sub-query in the tree produced by the upstream query
// splitter. The planner never modifies a Node or its fragment.
type Node struct {
	// The sub-query fragment. For child nodes it must consist of exactly one
	// query operation.
	Fragment *ast.Document
	// Identifies the schema the fragment targets.
	SchemaID string
	// The connections to the sub-queries that consume values produced by this
	// one, in declared order.
	Connections []Connection
}

// A Connection declares that one output of a parent sub-query feeds a
// stitching filter in a child sub-query.
type Connection struct {
	// The name of the parent-side output whose values feed the child. The
	// child's filter is bound to a runtime argument with exactly this name.
	ParentOutput string
	// The name of the child-side output marking the field to attach the
	// filter to.
	ChildOutput string
	// The child sub-query.
	Child *Node
}

// A ValidationError indicates that the input tree is not a valid federated
// query: a fragment is malformed, or a stitching target is ambiguous. Callers
// that build the input tree from untrusted requests should report these back
// to the requester.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Err: fmt.Errorf(format, args...)}
}

// An InternalError indicates that a connection is inconsistent with its child
// fragment. It signals a defect in the upstream splitter, not in the query.
type InternalError struct {
	Err error
}

func (e *InternalError) Error() string {
	return e.Err.Error()
}

func internalErrorf(format string, args ...interface{}) *InternalError {
	return &InternalError{Err: fmt.Errorf(format, args...)}
}

// Build compiles the node tree rooted at root into a query plan. Plan ids are
// assigned in preorder starting from 0 at the root, and one join descriptor
// is produced per connection, in discovery order. intermediateOutputs names
// the outputs that exist only for stitching; the join engine drops them from
// the final rows.
func Build(root *Node, intermediateOutputs plandef.OutputSet) (*plandef.QueryPlan, error) {
	plan := &plandef.QueryPlan{
		Plans: []plandef.SubQueryPlan{{
			ID:       0,
			SchemaID: root.SchemaID,
			Fragment: root.Fragment,
			Parent:   plandef.NoParent,
		}},
		IntermediateOutputs: intermediateOutputs,
	}
	if err := buildChildren(plan, root, 0); err != nil {
		return nil, err
	}
	return plan, nil
}

// buildChildren creates the plans for node's children, depth-first. node's
// plan is plan.Plans[parent] and already exists.
func buildChildren(plan *plandef.QueryPlan, node *Node, parent plandef.PlanID) error {
	for _, conn := range node.Connections {
		child := conn.Child
		op, err := fragment.OnlyOperation(child.Fragment)
		if err != nil {
			return validationErrorf("invalid fragment for schema %q: %v",
				child.SchemaID, err)
		}
		newOp, outcome := fragment.InjectMembershipFilter(op, conn.ChildOutput, conn.ParentOutput)
		switch outcome {
		case fragment.Ambiguous:
			return validationErrorf(
				"there are multiple @output directives with the out_name %q",
				conn.ChildOutput)
		case fragment.NotFound:
			return internalErrorf(
				"an @output directive with out_name %q is unexpectedly missing from the fragment for schema %q",
				conn.ChildOutput, child.SchemaID)
		}
		id := plandef.PlanID(len(plan.Plans))
		plan.Plans = append(plan.Plans, plandef.SubQueryPlan{
			ID:       id,
			SchemaID: child.SchemaID,
			Fragment: fragment.NewDocument(newOp),
			Parent:   parent,
		})
		plan.Plans[parent].Children = append(plan.Plans[parent].Children, id)
		plan.Joins = append(plan.Joins, plandef.OutputJoinDescriptor{
			ParentOutput: conn.ParentOutput,
			ChildOutput:  conn.ChildOutput,
			Child:        id,
		})
		if err := buildChildren(plan, child, id); err != nil {
			return err
		}
	}
	return nil
}
