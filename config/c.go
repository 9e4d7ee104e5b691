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

// Package config contains the configuration for a Quilt server. The
// configuration is typically loaded from a JSON file on disk.
package config

// Quilt describes the configuration for a Quilt server.
type Quilt struct {
	// The GraphQL endpoints that execute sub-queries, keyed by schema id.
	// Every schema id that can appear in a query plan must have an entry
	// here. Required; must not be empty.
	Backends map[string]Backend `json:"backends"`

	// If non-nil, the configuration for distributed tracing (OpenTracing). If
	// nil, the server will not collect traces.
	Tracing *Tracing `json:"tracing,omitempty"`

	// Configuration for the API server.
	API *API `json:"api,omitempty"`
}

// Backend describes a single GraphQL endpoint that executes sub-queries
// against one schema.
type Backend struct {
	// The URL that accepts POSTed sub-queries, like
	// "http://inventory.example.com/graphql". Required.
	Endpoint string `json:"endpoint"`

	// Maximum duration for a single sub-query request, in a form that
	// time.ParseDuration accepts, like "30s". If empty (or unset), a default
	// of one minute applies.
	RequestTimeout string `json:"requestTimeout,omitempty"`
}

// Tracing contains configuration related to distributed execution tracing.
type Tracing struct {
	// Must be "jaeger" (for now).
	Type string `json:"type"`

	// A URL that accepts jaeger.thrift over HTTP directly from clients, like
	// "http://jaeger.example.com:14268/api/traces". Required.
	Collector string `json:"collector"`
}

// API contains configuration specific to the API server.
type API struct {
	// The host:port or :port on which to serve HTTP requests (queries, admin,
	// metrics, etc). Required.
	HTTPAddress string `json:"httpAddress"`

	// Experimental: if true, queries will collect significant information and
	// dump them on disk somewhere. If false (or unset), it won't.
	DebugQuery bool `json:"debugQuery"`
}
