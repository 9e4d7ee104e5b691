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

package query

import (
	metricsutil "github.com/ebay/quilt/util/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type queryMetrics struct {
	parseQueryDurationSeconds   prometheus.Summary
	planQueryDurationSeconds    prometheus.Summary
	executeQueryDurationSeconds prometheus.Summary
}

var metrics queryMetrics

func init() {
	mr := metricsutil.Registry{R: prometheus.DefaultRegisterer}
	metrics = queryMetrics{
		parseQueryDurationSeconds: mr.NewSummary(prometheus.SummaryOpts{
			Namespace:  "quilt",
			Subsystem:  "query",
			Name:       "parse_duration_seconds",
			Help:       `The time it takes to parse the fragments of a query request.`,
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.95: 0.005, 0.99: 0.001},
		}),
		planQueryDurationSeconds: mr.NewSummary(prometheus.SummaryOpts{
			Namespace: "quilt",
			Subsystem: "query",
			Name:      "planning_duration_seconds",
			Help: `The time it takes to compile a query request into a query plan.

This step happens after parsing, and it includes rewriting every child
fragment to carry the filter that stitches it to its parent.
`,
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.95: 0.005, 0.99: 0.001},
		}),
		executeQueryDurationSeconds: mr.NewSummary(prometheus.SummaryOpts{
			Namespace: "quilt",
			Subsystem: "query",
			Name:      "execute_duration_seconds",
			Help: `The time it takes to execute a query plan.

This happens after planning, and it involves running every sub-query against
its backend and joining the result sets together.

These observations are expected to vary significantly from one query to the
next, but a major shift in the overall distributions would indicate a change in
usage or a change in the code.
`,
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.95: 0.005, 0.99: 0.001},
		}),
	}
}
