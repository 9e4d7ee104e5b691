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
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ebay/quilt/api"
	"github.com/ebay/quilt/config"
	"github.com/ebay/quilt/executor"
	"github.com/ebay/quilt/executor/mockexec"
	"github.com/ebay/quilt/query"
	"github.com/ebay/quilt/query/fragment"
	"github.com/ebay/quilt/query/planner"
	"github.com/ebay/quilt/query/planner/plandef"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type queryHTTPTest struct {
	name       string
	rows       []query.Row
	queryErr   error
	expStatus  int
	expError   string
	expNumRows int
	expRows    []map[string]interface{}
}

func Test_QueryHTTP(t *testing.T) {
	tests := []queryHTTPTest{{
		name:       "rows",
		rows:       []query.Row{{"name": "anvil"}, {"name": "rocket"}},
		expStatus:  http.StatusOK,
		expNumRows: 2,
		expRows:    []map[string]interface{}{{"name": "anvil"}, {"name": "rocket"}},
	}, {
		name:      "no rows",
		expStatus: http.StatusOK,
		expRows:   []map[string]interface{}{},
	}, {
		name:      "bad query",
		queryErr:  &planner.ValidationError{Err: errors.New("query request has no root sub-query")},
		expStatus: http.StatusBadRequest,
		expError:  "Error during query: query request has no root sub-query",
		expRows:   []map[string]interface{}{},
	}, {
		name:      "engine error",
		queryErr:  errors.New("backend fell over"),
		expStatus: http.StatusInternalServerError,
		expError:  "Error during query: backend fell over",
		expRows:   []map[string]interface{}{},
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			queryEngine := mockQuery{rows: test.rows, err: test.queryErr}
			s := Server{
				queryEngine: &queryEngine,
				cfg: &config.Quilt{
					API: &config.API{},
				},
			}
			// As we're faking out the query engine, it doesn't matter much
			// what the query is.
			body := `{"root": {"schemaId": "inventory", "fragment": "{ health }"}}`
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body))
			s.queryHTTP(w, r, nil)

			assert.Equal(t, test.expStatus, w.Code)
			var resp api.QueryResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, test.expError, resp.Error)
			assert.Equal(t, test.expNumRows, resp.NumRows)
			assert.Equal(t, test.expRows, resp.Rows)
		})
	}
}

// The request body must arrive at the engine with its tree, outputs, and
// arguments intact.
func Test_QueryHTTP_request(t *testing.T) {
	queryEngine := mockQuery{}
	s := Server{
		queryEngine: &queryEngine,
		cfg: &config.Quilt{
			API: &config.API{},
		},
	}
	body := `{
		"root": {
			"schemaId": "inventory",
			"fragment": "{ item { id @output(out_name: \"item_id\") } }",
			"connections": [{
				"parentOutput": "item_id",
				"childOutput": "order_item_id",
				"node": {"schemaId": "orders", "fragment": "{ order }"}
			}]
		},
		"intermediateOutputs": ["item_id", "order_item_id"],
		"arguments": {"min_price": 10}
	}`
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body))
	s.queryHTTP(w, r, nil)

	require.Equal(t, http.StatusOK, w.Code)
	expected := &query.Request{
		Root: &query.Node{
			SchemaID: "inventory",
			Fragment: `{ item { id @output(out_name: "item_id") } }`,
			Connections: []query.Connection{{
				ParentOutput: "item_id",
				ChildOutput:  "order_item_id",
				Child: &query.Node{
					SchemaID: "orders",
					Fragment: "{ order }",
				},
			}},
		},
		IntermediateOutputs: []string{"item_id", "order_item_id"},
		Arguments:           query.Arguments{"min_price": float64(10)},
	}
	assert.Equal(t, expected, queryEngine.gotRequest)
	assert.False(t, queryEngine.gotOptions.Debug)
}

func Test_QueryHTTP_debugConfigured(t *testing.T) {
	queryEngine := mockQuery{}
	s := Server{
		queryEngine: &queryEngine,
		cfg: &config.Quilt{
			API: &config.API{DebugQuery: true},
		},
	}
	body := `{"root": {"schemaId": "inventory", "fragment": "{ health }"}}`
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body))
	s.queryHTTP(w, r, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, queryEngine.gotOptions.Debug)
}

func Test_QueryHTTP_badBody(t *testing.T) {
	queryEngine := mockQuery{}
	s := Server{
		queryEngine: &queryEngine,
		cfg:         &config.Quilt{},
	}
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader("not json"))
	s.queryHTTP(w, r, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp api.QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "Unable to parse request body")
	assert.Nil(t, queryEngine.gotRequest)
}

func Test_PlanHTTP(t *testing.T) {
	queryEngine := mockQuery{plan: storePlan(t)}
	s := Server{
		queryEngine: &queryEngine,
		cfg:         &config.Quilt{},
	}
	body := `{"root": {"schemaId": "inventory", "fragment": "{ health }"}}`
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/plan", strings.NewReader(body))
	s.planHTTP(w, r, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp api.PlanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Error)
	assert.Contains(t, resp.Rendered, `Execute subplan ID 0 in schema named "inventory":`)
	require.Len(t, resp.SubQueries, 2)
	assert.Equal(t, api.PlanSubQuery{
		ID:       0,
		SchemaID: "inventory",
		Fragment: "{\n  item {\n    id @output(out_name: \"item_id\")\n  }\n}\n",
		Parent:   -1,
		Children: []int{1},
	}, resp.SubQueries[0])
	assert.Equal(t, api.PlanSubQuery{
		ID:       1,
		SchemaID: "orders",
		Fragment: "{\n  order {\n    item_id @output(out_name: \"order_item_id\")\n  }\n}\n",
		Parent:   0,
	}, resp.SubQueries[1])
	assert.Equal(t, []api.PlanJoin{{
		ParentOutput: "item_id",
		ChildOutput:  "order_item_id",
		Parent:       0,
		Child:        1,
	}}, resp.Joins)
	assert.Equal(t, []string{"item_id", "order_item_id"}, resp.IntermediateOutputs)
}

func Test_PlanHTTP_error(t *testing.T) {
	queryEngine := mockQuery{
		err: &planner.ValidationError{Err: errors.New(`invalid fragment for schema "inventory": oops`)},
	}
	s := Server{
		queryEngine: &queryEngine,
		cfg:         &config.Quilt{},
	}
	body := `{"root": {"schemaId": "inventory", "fragment": "{ health "}}`
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/plan", strings.NewReader(body))
	s.planHTTP(w, r, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp api.PlanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, `Error during planning: invalid fragment for schema "inventory": oops`, resp.Error)
}

// storePlan builds a two sub-query plan by hand, the way the planner would for
// an inventory query stitched to an orders query.
func storePlan(t *testing.T) *plandef.QueryPlan {
	root, err := fragment.Parse(`{ item { id @output(out_name: "item_id") } }`)
	require.NoError(t, err)
	child, err := fragment.Parse(`{ order { item_id @output(out_name: "order_item_id") } }`)
	require.NoError(t, err)
	return &plandef.QueryPlan{
		Plans: []plandef.SubQueryPlan{{
			ID:       0,
			SchemaID: "inventory",
			Fragment: root,
			Parent:   plandef.NoParent,
			Children: []plandef.PlanID{1},
		}, {
			ID:       1,
			SchemaID: "orders",
			Fragment: child,
			Parent:   0,
		}},
		Joins: []plandef.OutputJoinDescriptor{{
			ParentOutput: "item_id",
			ChildOutput:  "order_item_id",
			Child:        1,
		}},
		IntermediateOutputs: plandef.NewOutputSet("item_id", "order_item_id"),
	}
}

func Test_HealthHTTP(t *testing.T) {
	s := New(&config.Quilt{}, executor.Registry{
		"inventory": executor.Func(nil),
		"orders":    executor.Func(nil),
	})
	w := httptest.NewRecorder()
	s.healthHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var resp api.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]string{"inventory": "ok", "orders": "ok"}, resp.Backends)
}

func Test_HealthHTTP_degraded(t *testing.T) {
	s := New(&config.Quilt{}, executor.Registry{
		"inventory": executor.Func(nil),
		"orders":    executor.Func(nil),
	})
	s.locked.backendErrs["orders"] = errors.New("connection refused")
	w := httptest.NewRecorder()
	s.healthHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil), nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp api.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, map[string]string{
		"inventory": "ok",
		"orders":    "connection refused",
	}, resp.Backends)
}

func Test_PingBackends(t *testing.T) {
	boom := errors.New("connection refused")
	s := New(&config.Quilt{}, executor.Registry{
		"inventory": &pingableExec{},
		"orders":    &pingableExec{err: boom},
		"reviews":   executor.Func(nil),
	})
	s.pingBackends(context.Background(), s.backends.Schemas())
	s.lock.Lock()
	defer s.lock.Unlock()
	assert.NoError(t, s.locked.backendErrs["inventory"])
	assert.Equal(t, boom, s.locked.backendErrs["orders"])
	// Backends with no reachability check count as healthy.
	assert.NoError(t, s.locked.backendErrs["reviews"])
}

// The full path: HTTP request through the router into the real engine and a
// mocked out backend.
func Test_Server_queryOverHTTP(t *testing.T) {
	mock, assertDone := mockexec.New(t, mockexec.Expected{
		Query: "{\n  item {\n    sku @output(out_name: \"sku\")\n  }\n}\n",
		Rows:  []executor.Row{{"sku": "a1"}, {"sku": "b2"}},
	})
	s := New(&config.Quilt{API: &config.API{}}, executor.Registry{"inventory": mock})
	srv := httptest.NewServer(s.router())
	defer srv.Close()

	body := `{"root": {"schemaId": "inventory", "fragment": "{ item { sku @output(out_name: \"sku\") } }"}}`
	httpResp, err := http.Post(srv.URL+"/api/query", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer httpResp.Body.Close()
	assert.Equal(t, http.StatusOK, httpResp.StatusCode)
	var resp api.QueryResponse
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&resp))
	assert.Empty(t, resp.Error)
	assert.Equal(t, 2, resp.NumRows)
	assert.Equal(t, []map[string]interface{}{{"sku": "a1"}, {"sku": "b2"}}, resp.Rows)
	assertDone()

	metricsResp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	assert.Equal(t, http.StatusOK, metricsResp.StatusCode)
}

type mockQuery struct {
	rows []query.Row
	plan *plandef.QueryPlan
	err  error

	gotRequest *query.Request
	gotOptions query.Options
}

func (m *mockQuery) Query(ctx context.Context, req *query.Request, opt query.Options) ([]query.Row, error) {
	m.gotRequest = req
	m.gotOptions = opt
	return m.rows, m.err
}

func (m *mockQuery) Plan(ctx context.Context, req *query.Request) (*plandef.QueryPlan, error) {
	m.gotRequest = req
	return m.plan, m.err
}

type pingableExec struct {
	executor.Func
	err error
}

func (p *pingableExec) Ping(ctx context.Context) error {
	return p.err
}
