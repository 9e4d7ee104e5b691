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

package impl

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ebay/quilt/api"
	"github.com/ebay/quilt/query"
	"github.com/ebay/quilt/query/fragment"
	"github.com/ebay/quilt/query/planner"
	"github.com/ebay/quilt/query/planner/plandef"
	"github.com/ebay/quilt/util/web"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	opentracing "github.com/opentracing/opentracing-go"
	log "github.com/sirupsen/logrus"
)

// queryHTTP runs a federated query and replies with the joined rows.
func (s *Server) queryHTTP(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	querySpan, ctx := opentracing.StartSpanFromContext(r.Context(), "query")
	defer querySpan.Finish()

	resp := api.QueryResponse{Rows: []map[string]interface{}{}}
	status := http.StatusOK
	// Always write out JSON, even for errors.
	defer func() {
		w.WriteHeader(status)
		web.Write(w, resp)
	}()

	req, err := readQueryRequest(r)
	if err != nil {
		resp.Error = fmt.Sprintf("Unable to parse request body: %v", err)
		status = http.StatusBadRequest
		return
	}
	requestID := uuid.New()
	querySpan.SetTag("request", requestID.String())
	reqLog := log.WithField("request", requestID)
	reqLog.Debug("Received query")

	opt := query.Options{
		Debug: s.cfg.API != nil && s.cfg.API.DebugQuery,
	}
	rows, err := s.queryEngine.Query(ctx, req, opt)
	if err != nil {
		reqLog.WithFields(log.Fields{"error": err}).Warn("Query failed")
		resp.Error = fmt.Sprintf("Error during query: %v", err)
		status = errorStatus(err)
		return
	}
	reqLog.Debugf("Query produced %d rows", len(rows))
	resp.NumRows = len(rows)
	for _, row := range rows {
		resp.Rows = append(resp.Rows, row)
	}
}

// planHTTP builds the plan for a federated query and replies with it, without
// executing anything. It accepts the same request body as queryHTTP.
func (s *Server) planHTTP(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	span, ctx := opentracing.StartSpanFromContext(r.Context(), "plan")
	defer span.Finish()

	resp := api.PlanResponse{}
	status := http.StatusOK
	// Always write out JSON, even for errors.
	defer func() {
		w.WriteHeader(status)
		web.Write(w, resp)
	}()

	req, err := readQueryRequest(r)
	if err != nil {
		resp.Error = fmt.Sprintf("Unable to parse request body: %v", err)
		status = http.StatusBadRequest
		return
	}
	plan, err := s.queryEngine.Plan(ctx, req)
	if err != nil {
		resp.Error = fmt.Sprintf("Error during planning: %v", err)
		status = errorStatus(err)
		return
	}
	resp = renderedPlan(plan)
}

// healthHTTP reports whether the server and its backends are usable. The reply
// carries a 503 when any backend is failing its reachability checks, so that
// load balancers can steer around this server.
func (s *Server) healthHTTP(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	resp := api.HealthResponse{
		Status:   "ok",
		Backends: make(map[string]string),
	}
	s.lock.Lock()
	for schema, err := range s.locked.backendErrs {
		if err != nil {
			resp.Status = "degraded"
			resp.Backends[schema] = err.Error()
		} else {
			resp.Backends[schema] = "ok"
		}
	}
	s.lock.Unlock()
	if resp.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	web.Write(w, resp)
}

// readQueryRequest decodes the JSON body of a query or plan call into the
// query engine's request form.
func readQueryRequest(r *http.Request) (*query.Request, error) {
	var wire api.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
		return nil, err
	}
	return &query.Request{
		Root:                toEngineNode(wire.Root),
		IntermediateOutputs: wire.IntermediateOutputs,
		Arguments:           query.Arguments(wire.Arguments),
	}, nil
}

func toEngineNode(n *api.QueryNode) *query.Node {
	if n == nil {
		// The engine turns a missing sub-query into a useful error.
		return nil
	}
	node := &query.Node{
		SchemaID: n.SchemaID,
		Fragment: n.Fragment,
	}
	for _, conn := range n.Connections {
		node.Connections = append(node.Connections, query.Connection{
			ParentOutput: conn.ParentOutput,
			ChildOutput:  conn.ChildOutput,
			Child:        toEngineNode(conn.Node),
		})
	}
	return node
}

// renderedPlan converts a query plan into its wire form.
func renderedPlan(plan *plandef.QueryPlan) api.PlanResponse {
	resp := api.PlanResponse{
		Rendered:            plan.String(),
		SubQueries:          make([]api.PlanSubQuery, len(plan.Plans)),
		Joins:               make([]api.PlanJoin, len(plan.Joins)),
		IntermediateOutputs: []string(plan.IntermediateOutputs),
	}
	for i := range plan.Plans {
		p := &plan.Plans[i]
		children := make([]int, len(p.Children))
		for j, child := range p.Children {
			children[j] = int(child)
		}
		resp.SubQueries[i] = api.PlanSubQuery{
			ID:       int(p.ID),
			SchemaID: p.SchemaID,
			Fragment: fragment.Print(p.Fragment),
			Parent:   int(p.Parent),
			Children: children,
		}
	}
	for i, join := range plan.Joins {
		resp.Joins[i] = api.PlanJoin{
			ParentOutput: join.ParentOutput,
			ChildOutput:  join.ChildOutput,
			Parent:       int(plan.Plans[join.Child].Parent),
			Child:        int(join.Child),
		}
	}
	return resp
}

// errorStatus picks the HTTP status for a failed query or plan call. Problems
// with the request itself earn a 400, anything else is a fault within the
// engine or a backend.
func errorStatus(err error) int {
	if _, ok := err.(*planner.ValidationError); ok {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
