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

// Package executor defines the interface between the query engine and the
// GraphQL endpoints that run its sub-queries. It decouples the engine from any
// particular transport, allowing for easier testing.
package executor

import (
	"context"
	"sort"
)

// A Row is one result row from a sub-query: a map from output name to the
// value produced for that output. Values are whatever the backend's JSON
// decodes to.
type Row map[string]interface{}

// Arguments are the runtime arguments for a sub-query, keyed by argument name
// (without the "$" prefix).
type Arguments map[string]interface{}

// An Executor runs sub-queries against a single GraphQL schema.
type Executor interface {
	// Execute runs the query with the given arguments and returns its result
	// rows. A non-nil error describes a failure at the backend; it is passed
	// back to callers of the engine as is.
	Execute(ctx context.Context, query string, args Arguments) ([]Row, error)
}

// Func adapts a plain function to the Executor interface.
type Func func(ctx context.Context, query string, args Arguments) ([]Row, error)

var _ Executor = Func(nil)

// Execute implements the method defined in Executor.
func (f Func) Execute(ctx context.Context, query string, args Arguments) ([]Row, error) {
	return f(ctx, query, args)
}

// A Pinger can report whether its backend is reachable. Executors may
// optionally implement it; the API server's health check uses it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// A Registry holds the Executor for each schema id that can appear in a query
// plan.
type Registry map[string]Executor

// Schemas returns the registered schema ids in sorted order.
func (r Registry) Schemas() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
