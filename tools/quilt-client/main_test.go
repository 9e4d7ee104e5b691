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

package main

import (
	"bytes"
	"testing"
	"time"

	docopt "github.com/docopt/docopt-go"
	"github.com/ebay/quilt/api"
	"github.com/stretchr/testify/assert"
)

func Test_parseArgs(t *testing.T) {
	var tests = []struct {
		name         string
		inputArgv    []string
		expValidArgs bool
		expOpts      options
	}{
		{
			name:         "query",
			inputArgv:    []string{"query", "store.json"},
			expValidArgs: true,
			expOpts: options{
				Server:        "http://localhost:9987",
				Timeout:       10 * time.Second,
				TimeoutString: "10s",
				Filename:      "store.json",
				Query:         true,
			},
		}, {
			name:         "query_with_args",
			inputArgv:    []string{"query", "--args={\"min_price\": 100}", "store.json"},
			expValidArgs: true,
			expOpts: options{
				Server:        "http://localhost:9987",
				Timeout:       10 * time.Second,
				TimeoutString: "10s",
				ArgsJSON:      `{"min_price": 100}`,
				Filename:      "store.json",
				Query:         true,
			},
		}, {
			name:         "plan_with_server_and_timeout",
			inputArgv:    []string{"--server=http://quilt:1234", "-t=2s", "plan", "q.json"},
			expValidArgs: true,
			expOpts: options{
				Server:        "http://quilt:1234",
				Timeout:       2 * time.Second,
				TimeoutString: "2s",
				Filename:      "q.json",
				Plan:          true,
			},
		}, {
			name:         "zero_timeout_means_an_hour",
			inputArgv:    []string{"-t=0s", "query", "store.json"},
			expValidArgs: true,
			expOpts: options{
				Server:        "http://localhost:9987",
				Timeout:       time.Hour,
				TimeoutString: "0s",
				Filename:      "store.json",
				Query:         true,
			},
		}, {
			name:         "unknown_command",
			inputArgv:    []string{"frobnicate"},
			expValidArgs: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var parseErr error
			docopt.DefaultParser.HelpHandler = func(err error, usage string) {
				parseErr = err
			}
			opts, err := parseArgs(test.inputArgv)
			if !test.expValidArgs {
				assert.Error(t, err)
				assert.Error(t, parseErr)
				return
			}
			assert.NoError(t, err)
			assert.NoError(t, parseErr)
			if assert.NotNil(t, opts) {
				assert.Equal(t, test.expOpts, *opts)
			}
		})
	}
}

func Test_dumpRows(t *testing.T) {
	resp := api.QueryResponse{
		NumRows: 2,
		Rows: []map[string]interface{}{
			{"sku": "a1", "price": float64(1234.5)},
			{"sku": "b2"},
		},
	}
	b := &bytes.Buffer{}
	dumpRows(b, &resp)
	assert.Equal(t, `   price | sku |
 ------- | --- |
 1,234.5 |  a1 |
         |  b2 |
`, b.String())
}

func Test_dumpRows_empty(t *testing.T) {
	b := &bytes.Buffer{}
	dumpRows(b, &api.QueryResponse{})
	assert.Equal(t, "", b.String())
}

func Test_formatValue(t *testing.T) {
	assert.Equal(t, "", formatValue(nil))
	assert.Equal(t, "anvil", formatValue("anvil"))
	assert.Equal(t, "3", formatValue(float64(3)))
	assert.Equal(t, "1,234.5", formatValue(float64(1234.5)))
	assert.Equal(t, "true", formatValue(true))
	assert.Equal(t, `[1,"x"]`, formatValue([]interface{}{float64(1), "x"}))
	assert.Equal(t, `{"a":1}`, formatValue(map[string]interface{}{"a": float64(1)}))
}
