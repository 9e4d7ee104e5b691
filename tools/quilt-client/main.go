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

// Command quilt-client provides command line access to the Quilt HTTP API
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	docopt "github.com/docopt/docopt-go"
	"github.com/ebay/quilt/api"
	"github.com/ebay/quilt/config"
	"github.com/ebay/quilt/util/debuglog"
	"github.com/ebay/quilt/util/table"
	"github.com/ebay/quilt/util/tracing"
	opentracing "github.com/opentracing/opentracing-go"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var fmtr = message.NewPrinter(language.English)

const usage = `quilt-client is a command-line tool for calling the Quilt API service.

Usage:
  quilt-client [--server=URL -t=DUR --trace=HOST] query [--args=JSON] FILE
  quilt-client [--server=URL -t=DUR --trace=HOST] plan FILE

Options:
  --server=URL               Base URL of the Quilt API server to call [default: http://localhost:9987]
  -t=DUR, --timeout=DUR      Timeout for calls to the Quilt API server [default: 10s]
  --args=JSON                Initial query arguments as a JSON object.
  --trace=HOST               Send OpenTracing traces to this collector.

FILE holds the query request as JSON: the tree of per-schema sub-query
fragments, the connections between them, and the output names to drop from the
final rows. Pass - to read it from standard input.

Examples:
  # Run the federated query described in store.json.
  quilt-client query store.json

  # The same query, seeding the argument pool.
  quilt-client query --args='{"min_price": 100}' store.json

  # Show how the query would be executed, without running it.
  quilt-client plan store.json

  # Read the query request from standard input.
  quilt-client query - <<EOF
  {"root": {"schemaId": "inventory", "fragment": "{ item { sku @output(out_name: \"sku\") } }"}}
EOF

`

type options struct {
	// Options
	Server string `docopt:"--server"`
	// Timeout is never zero; it's set to 1 hour if the user passes 0s.
	Timeout          time.Duration
	TimeoutString    string `docopt:"--timeout"`
	TracingCollector string `docopt:"--trace"`
	ArgsJSON         string `docopt:"--args"`

	Filename string `docopt:"FILE"`

	// Query
	Query bool `docopt:"query"`

	// Plan
	Plan bool `docopt:"plan"`
}

// parseArgs parses the given command-line arguments, or os.Args for nil.
func parseArgs(argv []string) (*options, error) {
	opts, err := docopt.ParseArgs(usage, argv, "")
	if err != nil {
		return nil, fmt.Errorf("error parsing command-line arguments: %v", err)
	}
	var options options
	err = opts.Bind(&options)
	if err != nil {
		return nil, fmt.Errorf("error binding command-line arguments: %v\nfrom: %+v", err, opts)
	}
	if options.TimeoutString != "" {
		options.Timeout, err = time.ParseDuration(options.TimeoutString)
		if err != nil {
			return nil, fmt.Errorf("unable to parse timeout value: %v", err)
		}
	}
	if options.Timeout == 0 {
		options.Timeout = time.Hour
	}
	return &options, nil
}

func main() {
	debuglog.Configure(debuglog.Options{})
	options, err := parseArgs(nil)
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()

	if options.TracingCollector != "" {
		tracer, err := tracing.New("quilt-client", &config.Tracing{
			Type:      "jaeger",
			Collector: options.TracingCollector,
		})
		if err != nil {
			log.WithError(err).Warn("Could not initialize OpenTracing tracer")
		} else {
			defer tracer.Close()
		}
	}
	span, ctx := opentracing.StartSpanFromContext(ctx, "quilt-client run")
	defer span.Finish()

	req, err := readRequest(options)
	if err != nil {
		log.Fatalf("Unable to read query request: %v", err)
	}

	timeoutCtx, cancelFunc := context.WithTimeout(ctx, options.Timeout)
	defer cancelFunc()

	switch {
	case options.Query:
		if err := runQuery(timeoutCtx, req, options); err != nil {
			log.Fatalf("Error executing query: %v", err)
		}
	case options.Plan:
		if err := runPlan(timeoutCtx, req, options); err != nil {
			log.Fatalf("Error executing plan: %v", err)
		}
	default:
		log.Fatalf("command not implemented")
	}
}

// readRequest loads the query request from the file named on the command line,
// or from standard input for "-", and folds in any --args values.
func readRequest(opt *options) (*api.QueryRequest, error) {
	var data []byte
	var err error
	if opt.Filename == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(opt.Filename)
	}
	if err != nil {
		return nil, err
	}
	req := new(api.QueryRequest)
	if err := json.Unmarshal(data, req); err != nil {
		return nil, fmt.Errorf("parsing %v: %v", opt.Filename, err)
	}
	if opt.ArgsJSON != "" {
		args := map[string]interface{}{}
		if err := json.Unmarshal([]byte(opt.ArgsJSON), &args); err != nil {
			return nil, fmt.Errorf("parsing --args: %v", err)
		}
		if req.Arguments == nil {
			req.Arguments = make(map[string]interface{}, len(args))
		}
		for name, value := range args {
			req.Arguments[name] = value
		}
	}
	return req, nil
}

func runQuery(ctx context.Context, req *api.QueryRequest, opt *options) error {
	start := time.Now()
	var resp api.QueryResponse
	if err := post(ctx, opt, "/api/query", req, &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return errors.New(resp.Error)
	}
	dumpRows(os.Stdout, &resp)
	fmtr.Printf("%d rows in %v\n", resp.NumRows, time.Since(start).Round(time.Millisecond))
	return nil
}

func runPlan(ctx context.Context, req *api.QueryRequest, opt *options) error {
	var resp api.PlanResponse
	if err := post(ctx, opt, "/api/plan", req, &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return errors.New(resp.Error)
	}
	fmt.Println(resp.Rendered)
	fmtr.Printf("%d sub-queries, %d joins\n", len(resp.SubQueries), len(resp.Joins))
	return nil
}

// post sends req to the given API path and decodes the JSON reply into out.
// Transport-level failures come back as errors; application errors arrive
// inside out.
func post(ctx context.Context, opt *options, path string, req *api.QueryRequest, out interface{}) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	url := strings.TrimSuffix(opt.Server, "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if span := opentracing.SpanFromContext(ctx); span != nil {
		carrier := opentracing.HTTPHeadersCarrier(httpReq.Header)
		_ = span.Tracer().Inject(span.Context(), opentracing.HTTPHeaders, carrier)
	}
	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		// Not a reply from the API server itself.
		return fmt.Errorf("server returned status %v", resp.Status)
	}
	return nil
}

// dumpRows prints the result rows as a table, one column per output name, in
// sorted column order.
func dumpRows(w io.Writer, resp *api.QueryResponse) {
	names := map[string]bool{}
	for _, row := range resp.Rows {
		for name := range row {
			names[name] = true
		}
	}
	header := make([]string, 0, len(names))
	for name := range names {
		header = append(header, name)
	}
	sort.Strings(header)
	t := [][]string{header}
	for _, row := range resp.Rows {
		line := make([]string, len(header))
		for i, name := range header {
			line[i] = formatValue(row[name])
		}
		t = append(t, line)
	}
	table.PrettyPrint(w, t, table.HeaderRow|table.RightJustify|table.SkipEmpty)
}

// formatValue renders one cell of the results table. Rows hold whatever the
// backends' JSON decoded to.
func formatValue(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmtr.Sprintf("%v", v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
