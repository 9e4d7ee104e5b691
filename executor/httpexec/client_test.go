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

package httpexec

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ebay/quilt/config"
	"github.com/ebay/quilt/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req executeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "{\n  item {\n    id\n  }\n}\n", req.Query)
		assert.Equal(t, executor.Arguments{
			"item_id": []interface{}{float64(1), float64(2)},
		}, req.Arguments)
		fmt.Fprintln(w, `{"rows": [{"id": 1}, {"id": 2}]}`)
	}))
	defer srv.Close()

	c := New(srv.URL, Options{})
	rows, err := c.Execute(context.Background(), "{\n  item {\n    id\n  }\n}\n",
		executor.Arguments{"item_id": []interface{}{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, []executor.Row{
		{"id": float64(1)},
		{"id": float64(2)},
	}, rows)
}

func Test_Execute_emptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"rows": []}`)
	}))
	defer srv.Close()

	c := New(srv.URL, Options{})
	rows, err := c.Execute(context.Background(), "{ item { id } }", nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func Test_Execute_backendReportedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintln(w, `{"error": "unknown field \"price\""}`)
	}))
	defer srv.Close()

	c := New(srv.URL, Options{})
	_, err := c.Execute(context.Background(), "{ item { price } }", nil)
	require.Error(t, err)
	assert.Equal(t, fmt.Sprintf("backend %v reported: unknown field \"price\"", srv.URL),
		err.Error())
}

func Test_Execute_badStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "out to lunch", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, Options{})
	_, err := c.Execute(context.Background(), "{ item { id } }", nil)
	require.Error(t, err)
	assert.Equal(t, fmt.Sprintf("backend %v returned status 503 Service Unavailable", srv.URL),
		err.Error())
}

func Test_Execute_badJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `<html>definitely not rows</html>`)
	}))
	defer srv.Close()

	c := New(srv.URL, Options{})
	_, err := c.Execute(context.Background(), "{ item { id } }", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding response from backend")
}

func Test_Execute_unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New(srv.URL, Options{})
	_, err := c.Execute(context.Background(), "{ item { id } }", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "calling backend")
}

func Test_Ping(t *testing.T) {
	status := http.StatusMethodNotAllowed
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.WriteHeader(status)
	}))
	defer srv.Close()

	c := New(srv.URL, Options{})
	assert.NoError(t, c.Ping(context.Background()))

	status = http.StatusInternalServerError
	err := c.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned status 500")
}

func Test_Ping_unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New(srv.URL, Options{})
	err := c.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "calling backend")
}

func Test_FromConfig(t *testing.T) {
	c, err := FromConfig(config.Backend{Endpoint: "http://localhost:4000/graphql"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4000/graphql", c.endpoint)
	assert.Equal(t, time.Minute, c.http.Timeout)

	c, err = FromConfig(config.Backend{
		Endpoint:       "http://localhost:4000/graphql",
		RequestTimeout: "250ms",
	})
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, c.http.Timeout)

	_, err = FromConfig(config.Backend{})
	assert.EqualError(t, err, "backend config is missing an endpoint URL")

	_, err = FromConfig(config.Backend{
		Endpoint:       "http://localhost:4000/graphql",
		RequestTimeout: "shortly",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid requestTimeout "shortly"`)
}
