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

package plandef

import (
	"testing"

	"github.com/ebay/quilt/query/fragment"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseFragment(t *testing.T, text string) *ast.Document {
	doc, err := fragment.Parse(text)
	require.NoError(t, err)
	return doc
}

// storePlan is a four-plan tree: the inventory root feeds the orders and
// reviews sub-queries, and orders feeds shipping.
func storePlan(t *testing.T) *QueryPlan {
	return &QueryPlan{
		Plans: []SubQueryPlan{
			{
				ID:       0,
				SchemaID: "inventory",
				Fragment: parseFragment(t, `{
					item {
						uuid @output(out_name: "item_id")
						name @output(out_name: "name")
					}
				}`),
				Parent:   NoParent,
				Children: []PlanID{1, 3},
			},
			{
				ID:       1,
				SchemaID: "orders",
				Fragment: parseFragment(t, `{
					order {
						item_uuid @output(out_name: "order_item_id") @filter(op_name: "in_collection", value: ["$item_id"])
						quantity @output(out_name: "quantity")
					}
				}`),
				Parent:   0,
				Children: []PlanID{2},
			},
			{
				ID:       2,
				SchemaID: "shipping",
				Fragment: parseFragment(t, `{
					shipment {
						order_item @output(out_name: "shipped_item_id") @filter(op_name: "in_collection", value: ["$order_item_id"])
					}
				}`),
				Parent: 1,
			},
			{
				ID:       3,
				SchemaID: "reviews",
				Fragment: parseFragment(t, `{
					review {
						item_uuid @output(out_name: "review_item_id") @filter(op_name: "in_collection", value: ["$item_id"])
						stars @output(out_name: "stars")
					}
				}`),
				Parent: 0,
			},
		},
		Joins: []OutputJoinDescriptor{
			{ParentOutput: "item_id", ChildOutput: "order_item_id", Child: 1},
			{ParentOutput: "order_item_id", ChildOutput: "shipped_item_id", Child: 2},
			{ParentOutput: "item_id", ChildOutput: "review_item_id", Child: 3},
		},
		IntermediateOutputs: NewOutputSet(
			"item_id", "order_item_id", "review_item_id", "shipped_item_id"),
	}
}

func Test_QueryPlan_Root(t *testing.T) {
	plan := storePlan(t)
	root := plan.Root()
	assert.Equal(t, PlanID(0), root.ID)
	assert.Equal(t, NoParent, root.Parent)
	assert.Equal(t, "inventory", root.SchemaID)
}

func Test_QueryPlan_String(t *testing.T) {
	g := goldie.New(t)
	g.Assert(t, "store_plan", []byte(storePlan(t).String()))
}

func Test_QueryPlan_String_singlePlan(t *testing.T) {
	plan := &QueryPlan{
		Plans: []SubQueryPlan{
			{
				ID:       0,
				SchemaID: "inventory",
				Fragment: parseFragment(t, `{ item { name @output(out_name: "name") } }`),
				Parent:   NoParent,
			},
		},
		IntermediateOutputs: NewOutputSet(),
	}
	assert.Equal(t, `Execute subplan ID 0 in schema named "inventory":
{
  item {
    name @output(out_name: "name")
  }
}

Join together outputs as follows: []

Remove the following outputs at the end: {}
`, plan.String())
}
