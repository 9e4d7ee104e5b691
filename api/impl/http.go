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

// Package impl implements the Quilt HTTP API on top of the query engine.
package impl

import (
	"context"
	"errors"
	"net/http"
	_ "net/http/pprof" // enable pprof endpoints
	"sync"
	"time"

	"github.com/ebay/quilt/config"
	"github.com/ebay/quilt/executor"
	"github.com/ebay/quilt/query"
	"github.com/ebay/quilt/query/planner/plandef"
	"github.com/ebay/quilt/util/clocks"
	"github.com/ebay/quilt/util/parallel"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// New returns a new instance of the API server, this exposes the HTTP API for
// consumers of the Quilt system to use. The returned Server instance will not
// start handling traffic until a subsequent call to Server.Run()
func New(cfg *config.Quilt, backends executor.Registry) *Server {
	s := &Server{
		cfg:      cfg,
		backends: backends,
		clock:    clocks.Wall,
	}
	s.queryEngine = query.New(backends)
	s.locked.backendErrs = make(map[string]error, len(backends))
	for schema := range backends {
		// Assumed healthy until the first reachability check says otherwise.
		s.locked.backendErrs[schema] = nil
	}
	return s
}

// Server is an implementation of the external HTTP interface to Quilt
type Server struct {
	cfg         *config.Quilt
	backends    executor.Registry
	queryEngine queryEngine
	clock       clocks.Source
	lock        sync.Mutex
	locked      struct {
		// The outcome of the most recent reachability check of each
		// backend, keyed by schema id. nil means healthy.
		backendErrs map[string]error
	}
}

// queryEngine provides an abstraction from query execution to aid in testing.
type queryEngine interface {
	Query(ctx context.Context, req *query.Request, opt query.Options) ([]query.Row, error)
	Plan(ctx context.Context, req *query.Request) (*plandef.QueryPlan, error)
}

// Run will start listening for HTTP requests.
// This function will block until the server is shutdown.
func (s *Server) Run() error {
	if s.cfg.API == nil || s.cfg.API.HTTPAddress == "" {
		return errors.New("config has no api httpAddress to listen on")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.watchBackends(ctx)

	m := s.router()
	logger := func(w http.ResponseWriter, r *http.Request) {
		log.Debugf("[API] %v %v", r.Method, r.URL)
		m.ServeHTTP(w, r)
	}
	return http.ListenAndServe(s.cfg.API.HTTPAddress, http.HandlerFunc(logger))
}

func (s *Server) router() *httprouter.Router {
	m := httprouter.New()

	m.POST("/api/query", s.queryHTTP)
	m.POST("/api/plan", s.planHTTP)
	m.GET("/health", s.healthHTTP)

	// prometheus metrics
	m.Handler("GET", "/metrics", promhttp.Handler())

	m.NotFound = http.DefaultServeMux
	return m
}

const (
	// How often Run checks that the backends are reachable.
	backendPingInterval = 30 * time.Second
	// Bounds one round of backend reachability checks.
	backendPingTimeout = 10 * time.Second
)

// watchBackends periodically pings every backend that supports it and records
// the outcomes for the health endpoint. It runs until ctx is canceled.
func (s *Server) watchBackends(ctx context.Context) {
	schemas := s.backends.Schemas()
	for {
		s.pingBackends(ctx, schemas)
		wake := s.clock.Now().Add(backendPingInterval)
		if err := s.clock.SleepUntil(ctx, wake); err != nil {
			return
		}
	}
}

// pingBackends checks each of the named backends once, concurrently.
func (s *Server) pingBackends(ctx context.Context, schemas []string) {
	ctx, cancel := context.WithTimeout(ctx, backendPingTimeout)
	defer cancel()
	results := make([]error, len(schemas))
	_ = parallel.InvokeN(ctx, len(schemas), func(ctx context.Context, i int) error {
		pinger, ok := s.backends[schemas[i]].(executor.Pinger)
		if !ok {
			// Not checkable, assume healthy.
			return nil
		}
		results[i] = pinger.Ping(ctx)
		return nil // don't return err or InvokeN will cancel ctx
	})
	s.lock.Lock()
	defer s.lock.Unlock()
	for i, schema := range schemas {
		if results[i] != nil {
			log.WithFields(log.Fields{
				"schema": schema,
				"error":  results[i],
			}).Warn("Backend failed reachability check")
		}
		s.locked.backendErrs[schema] = results[i]
	}
}
