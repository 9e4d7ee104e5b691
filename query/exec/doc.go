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

// Package exec executes a federated query plan built by the query planner.
// Execute walks the plan tree in preorder, running each sub-query
// against the executor registered for its schema. A node runs only after all
// of its ancestors have completed: after each sub-query, the distinct non-null
// values of its stitching outputs are written into a shared argument pool,
// where the membership filters of its children pick them up. Sub-queries run
// strictly one at a time.
//
// Once every sub-query has run, the join engine merges the per-plan result
// sets: it hash-indexes each child result set by its join column, composes
// the joins left to right in plan discovery order with inner-join semantics,
// and finally projects away the outputs that existed only for stitching.
package exec
