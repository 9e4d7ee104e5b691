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

// Command quilt-api runs a Quilt API server daemon.
package main

import (
	"flag"
	"os"

	api "github.com/ebay/quilt/api/impl"
	"github.com/ebay/quilt/config"
	"github.com/ebay/quilt/executor"
	"github.com/ebay/quilt/executor/httpexec"
	"github.com/ebay/quilt/util/debuglog"
	"github.com/ebay/quilt/util/signals"
	"github.com/ebay/quilt/util/tracing"
	log "github.com/sirupsen/logrus"
)

func main() {
	debuglog.Configure(debuglog.Options{})
	cfgFile := flag.String("cfg", "config.json", "config file")
	flag.Parse()

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		log.Fatalf("Unable to load configuration: %v", err)
	}
	if cfg.API == nil {
		log.Fatal("api field missing in config")
	}
	if len(cfg.Backends) == 0 {
		log.Fatal("backends field missing or empty in config")
	}
	log.Infof("Using config: %+v", cfg)

	tracer, err := tracing.New("quilt-api", cfg.Tracing)
	if err != nil {
		log.Fatalf("Unable to initialize distributed tracing: %v", err)
	}
	defer tracer.Close()

	backends := make(executor.Registry, len(cfg.Backends))
	for schema, backendCfg := range cfg.Backends {
		client, err := httpexec.FromConfig(backendCfg)
		if err != nil {
			log.Fatalf("Unable to initialize backend %q: %v", schema, err)
		}
		backends[schema] = client
	}

	apiServer := api.New(cfg, backends)
	go func() {
		log.Infof("Server::Run returned %v", apiServer.Run())
		os.Exit(-1)
	}()

	signals.WaitForQuit()
	log.Info("Quilt API server exiting")
}
