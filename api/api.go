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

// Package api defines the JSON wire types of the Quilt HTTP API. The api/impl
// package serves them and tools/quilt-client consumes them.
package api

// QueryRequest is the body of a query or plan call: one federated query,
// already split into a tree of per-schema sub-query fragments together with
// the output names that connect them.
type QueryRequest struct {
	// The root sub-query.
	Root *QueryNode `json:"root"`
	// The names of the outputs that exist only to stitch sub-queries
	// together. They are dropped from the final result rows.
	IntermediateOutputs []string `json:"intermediateOutputs,omitempty"`
	// Initial values for the runtime argument pool, keyed by argument name.
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

// QueryNode is one sub-query of a QueryRequest.
type QueryNode struct {
	// Identifies the schema the fragment targets, and with it the backend
	// that will run the sub-query.
	SchemaID string `json:"schemaId"`
	// The sub-query fragment as GraphQL text.
	Fragment string `json:"fragment"`
	// The sub-queries that consume outputs produced by this one.
	Connections []QueryConnection `json:"connections,omitempty"`
}

// QueryConnection ties an output of a parent sub-query to the matching
// output of a child sub-query.
type QueryConnection struct {
	ParentOutput string     `json:"parentOutput"`
	ChildOutput  string     `json:"childOutput"`
	Node         *QueryNode `json:"node"`
}

// QueryResponse is the body of a query call's reply.
type QueryResponse struct {
	// Set if and only if the query failed.
	Error string `json:"error,omitempty"`
	// The number of rows in Rows.
	NumRows int `json:"numRows"`
	// The final joined rows.
	Rows []map[string]interface{} `json:"rows"`
}

// PlanResponse is the body of a plan call's reply.
type PlanResponse struct {
	// Set if and only if planning failed.
	Error string `json:"error,omitempty"`
	// A human readable rendering of the whole plan.
	Rendered string `json:"rendered,omitempty"`
	// One entry per sub-query, indexed by plan id. The root is entry 0.
	SubQueries []PlanSubQuery `json:"subQueries,omitempty"`
	// The joins to apply to the sub-query results, in execution order.
	Joins []PlanJoin `json:"joins,omitempty"`
	// The output names that will be dropped from the final rows.
	IntermediateOutputs []string `json:"intermediateOutputs,omitempty"`
}

// PlanSubQuery is one planned sub-query. Its fragment is in canonical form
// and carries any stitching filter the planner injected.
type PlanSubQuery struct {
	ID       int    `json:"id"`
	SchemaID string `json:"schemaId"`
	Fragment string `json:"fragment"`
	// The plan id of the parent sub-query, or -1 for the root.
	Parent   int   `json:"parent"`
	Children []int `json:"children,omitempty"`
}

// PlanJoin describes how the rows of a child sub-query join back to its
// parent's rows.
type PlanJoin struct {
	ParentOutput string `json:"parentOutput"`
	ChildOutput  string `json:"childOutput"`
	Parent       int    `json:"parent"`
	Child        int    `json:"child"`
}

// HealthResponse is the body of a health call's reply.
type HealthResponse struct {
	// "ok", or "degraded" if any backend is failing its checks.
	Status string `json:"status"`
	// Per schema backend status: "ok" or an error message.
	Backends map[string]string `json:"backends,omitempty"`
}
