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

// Package httpexec runs sub-queries against GraphQL endpoints over HTTP. It
// speaks the row-oriented execution protocol: each sub-query is POSTed as
// JSON together with its runtime arguments, and the endpoint answers with
// either the result rows or an error message.
package httpexec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ebay/quilt/config"
	"github.com/ebay/quilt/executor"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
)

// defaultRequestTimeout bounds a single request to the endpoint when the
// backend's configuration doesn't specify one.
const defaultRequestTimeout = time.Minute

// Options contains optional settings for a Client.
type Options struct {
	// Bounds a single request to the endpoint. Defaults to one minute. A
	// sooner deadline on the Execute context still applies.
	RequestTimeout time.Duration
	// The underlying HTTP client. Defaults to a new dedicated client.
	// RequestTimeout is ignored when this is set.
	HTTPClient *http.Client
}

// Client is an executor for a single GraphQL endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

var _ executor.Executor = (*Client)(nil)
var _ executor.Pinger = (*Client)(nil)

// New returns a Client that sends sub-queries to the given endpoint URL.
func New(endpoint string, options Options) *Client {
	httpClient := options.HTTPClient
	if httpClient == nil {
		timeout := options.RequestTimeout
		if timeout == 0 {
			timeout = defaultRequestTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{endpoint: endpoint, http: httpClient}
}

// FromConfig returns a Client for one backend of the server configuration.
func FromConfig(cfg config.Backend) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("backend config is missing an endpoint URL")
	}
	options := Options{}
	if cfg.RequestTimeout != "" {
		timeout, err := time.ParseDuration(cfg.RequestTimeout)
		if err != nil {
			return nil, fmt.Errorf("backend config has an invalid requestTimeout %q: %v",
				cfg.RequestTimeout, err)
		}
		options.RequestTimeout = timeout
	}
	return New(cfg.Endpoint, options), nil
}

// executeRequest is the wire form of one sub-query execution.
type executeRequest struct {
	Query     string             `json:"query"`
	Arguments executor.Arguments `json:"arguments,omitempty"`
}

// executeResponse is the wire form of an execution result. A backend sets
// exactly one of Rows and Error.
type executeResponse struct {
	Rows  []executor.Row `json:"rows"`
	Error string         `json:"error,omitempty"`
}

// Execute implements executor.Executor. Errors reported by the backend come
// back as plain errors naming the endpoint.
func (c *Client) Execute(ctx context.Context, query string, args executor.Arguments) ([]executor.Row, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "execute sub-query")
	defer span.Finish()
	span.SetTag("endpoint", c.endpoint)

	reqBody, err := json.Marshal(executeRequest{Query: query, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("encoding sub-query request: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("building sub-query request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	carrier := opentracing.HTTPHeadersCarrier(req.Header)
	if err := span.Tracer().Inject(span.Context(), opentracing.HTTPHeaders, carrier); err != nil {
		logrus.Debugf("Unable to inject tracing headers: %v", err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling backend %v: %v", c.endpoint, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from backend %v: %v", c.endpoint, err)
	}
	var result executeResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("backend %v returned status %v", c.endpoint, resp.Status)
		}
		return nil, fmt.Errorf("decoding response from backend %v: %v", c.endpoint, err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("backend %v reported: %v", c.endpoint, result.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend %v returned status %v", c.endpoint, resp.Status)
	}
	logrus.WithFields(logrus.Fields{
		"endpoint": c.endpoint,
		"rows":     len(result.Rows),
		"took":     time.Since(start),
	}).Debug("Sub-query completed")
	return result.Rows, nil
}

// Ping implements executor.Pinger. Any answer from the endpoint short of a
// server error proves it reachable; a bare GET on a GraphQL endpoint
// commonly earns a client error status.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("building ping request: %v", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling backend %v: %v", c.endpoint, err)
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("backend %v returned status %v", c.endpoint, resp.Status)
	}
	return nil
}
