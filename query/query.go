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

// Package query provides a high level entry point for executing federated
// GraphQL queries. It runs the entire query processor, including the fragment
// parser, the planner, and the executor.
package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ebay/quilt/executor"
	"github.com/ebay/quilt/query/exec"
	"github.com/ebay/quilt/query/fragment"
	"github.com/ebay/quilt/query/internal/debug"
	"github.com/ebay/quilt/query/planner"
	"github.com/ebay/quilt/query/planner/plandef"
	"github.com/ebay/quilt/util/clocks"
	"github.com/ebay/quilt/util/tracing"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
)

// Row contains one result row of a query.
type Row = exec.Row

// Arguments contains runtime argument values, keyed by argument name.
type Arguments = exec.Arguments

// Options contains various settings that affect the query processing.
type Options struct {
	// If set diagnostic information about the query processing will be collected into a report.
	Debug bool
	// By default the report is written to a file in $TMPDIR. If DebugOut is set, the report
	// will be written to that instead.
	DebugOut io.Writer
	// If set the Debug tracker will use this clock for generating timing information, if not
	// set it'll use clocks.Wall.
	Clock clocks.Source
}

// A Request describes one federated query. The query arrives already split
// into a tree of per-schema sub-query fragments, together with the output
// names that connect them. The engine compiles the tree into a query plan and
// runs it.
type Request struct {
	// The root sub-query. Must be set.
	Root *Node
	// The names of the outputs that exist only to stitch sub-queries together.
	// They are dropped from the final result rows.
	IntermediateOutputs []string
	// Initial values for the runtime argument pool, keyed by argument name.
	// May be nil.
	Arguments Arguments
}

// A Node is one sub-query in a Request. Its fragment is carried as GraphQL
// text and parsed by the engine.
type Node struct {
	// Identifies the schema the fragment targets, and with it the backend
	// that will run the sub-query.
	SchemaID string
	// The sub-query fragment text. Child fragments must consist of exactly
	// one query operation.
	Fragment string
	// The sub-queries that consume outputs produced by this one.
	Connections []Connection
}

// A Connection ties an output of a parent sub-query to the matching output of
// one of its children.
type Connection struct {
	ParentOutput string
	ChildOutput  string
	Child        *Node
}

// Engine provides a high level interface for running federated queries. An
// Engine can be used concurrently.
type Engine struct {
	executors executor.Registry
}

// New creates a new Engine that runs sub-queries against the given backends.
func New(executors executor.Registry) *Engine {
	return &Engine{executors: executors}
}

// Query runs a federated query starting from the raw request all the way
// through the steps Parse, Plan & Execute, and returns the final joined rows.
// The context's deadline and cancellation are passed through to the backends.
//
// Errors of type *planner.ValidationError fault the request itself; all
// others indicate a problem within the engine or a backend.
func (e *Engine) Query(ctx context.Context, req *Request, opt Options) ([]Row, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Query")
	defer span.Finish()

	tracker := debug.New(opt.Debug, opt.DebugOut, opt.Clock, describe(req))
	defer tracker.Close()

	plan, err := e.plan(ctx, req, tracker)
	if err != nil {
		return nil, err
	}

	span, cctx := opentracing.StartSpanFromContext(ctx, "execute query")
	tracing.UpdateMetric(span, metrics.executeQueryDurationSeconds)
	defer span.Finish()
	executors := tracker.DecorateExecutors(e.executors)
	return exec.Execute(cctx, tracker.ExecEvents(plan), executors, plan, req.Arguments)
}

// Plan compiles a request into a query plan without executing it. It is
// useful for inspecting how a query would run.
func (e *Engine) Plan(ctx context.Context, req *Request) (*plandef.QueryPlan, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Plan")
	defer span.Finish()
	return e.plan(ctx, req, debug.New(false, nil, nil, ""))
}

func (e *Engine) plan(ctx context.Context, req *Request, tracker debug.Tracker) (*plandef.QueryPlan, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "parse query")
	tracing.UpdateMetric(span, metrics.parseQueryDurationSeconds)
	root, err := parseTree(req.Root)
	tracker.Parsed(root, err)
	span.Finish()
	if err != nil {
		return nil, err
	}

	span, _ = opentracing.StartSpanFromContext(ctx, "plan query")
	tracing.UpdateMetric(span, metrics.planQueryDurationSeconds)
	plan, err := planner.Build(root, plandef.NewOutputSet(req.IntermediateOutputs...))
	tracker.Planned(plan, err)
	span.Finish()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"error": err,
		}).Warn("Planner failed")
		return nil, err
	}
	return plan, nil
}

// parseTree parses the fragment text of every node in the request tree,
// producing the planner's input form. It does not modify the request.
func parseTree(n *Node) (*planner.Node, error) {
	if n == nil {
		return nil, &planner.ValidationError{
			Err: errors.New("query request has no root sub-query"),
		}
	}
	doc, err := fragment.Parse(n.Fragment)
	if err != nil {
		return nil, &planner.ValidationError{
			Err: fmt.Errorf("invalid fragment for schema %q: %v", n.SchemaID, err),
		}
	}
	parsed := &planner.Node{Fragment: doc, SchemaID: n.SchemaID}
	for _, conn := range n.Connections {
		if conn.Child == nil {
			return nil, &planner.ValidationError{
				Err: fmt.Errorf("a connection of the fragment for schema %q is missing its child sub-query",
					n.SchemaID),
			}
		}
		child, err := parseTree(conn.Child)
		if err != nil {
			return nil, err
		}
		parsed.Connections = append(parsed.Connections, planner.Connection{
			ParentOutput: conn.ParentOutput,
			ChildOutput:  conn.ChildOutput,
			Child:        child,
		})
	}
	return parsed, nil
}

// describe renders the raw request for the header of the debug report.
func describe(req *Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query with intermediate outputs %v and arguments %v\n",
		req.IntermediateOutputs, req.Arguments)
	describeNode(&b, req.Root, 0)
	return b.String()
}

func describeNode(b *strings.Builder, n *Node, depth int) {
	if n == nil {
		return
	}
	indent := strings.Repeat(" ", depth*4)
	fmt.Fprintf(b, "%vSub-query in schema named %q:\n", indent, n.SchemaID)
	for _, line := range strings.Split(strings.TrimRight(n.Fragment, "\n"), "\n") {
		fmt.Fprintf(b, "%v%v\n", indent, line)
	}
	for _, conn := range n.Connections {
		fmt.Fprintf(b, "%vConnection (%v, %v) to:\n",
			indent, conn.ParentOutput, conn.ChildOutput)
		describeNode(b, conn.Child, depth+1)
	}
}
