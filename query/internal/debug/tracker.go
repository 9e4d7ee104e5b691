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

package debug

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ebay/quilt/executor"
	"github.com/ebay/quilt/query/exec"
	"github.com/ebay/quilt/query/fragment"
	"github.com/ebay/quilt/query/planner"
	"github.com/ebay/quilt/query/planner/plandef"
	"github.com/ebay/quilt/util/bytes"
	"github.com/ebay/quilt/util/clocks"
	"github.com/sirupsen/logrus"
)

// timestampFormat is used to format the timestamps written to the report.
const timestampFormat = "2006-01-02 15:04:05.000000 MST"

// Tracker defines points in the query processing sequence. The Query Engine
// will call these at the appropriate places in the processing.
type Tracker interface {
	Parsed(root *planner.Node, err error)
	Planned(plan *plandef.QueryPlan, err error)
	DecorateExecutors(executor.Registry) executor.Registry
	ExecEvents(plan *plandef.QueryPlan) exec.Events
	Close()
}

// trackerID is used by New() to assign an Id to the query, via an atomic.Add.
// Nothing else should need to be reading or writing this.
var trackerID uint64

// New returns a new Tracker. The caller is expected to arrange for the various
// methods on Tracker to get called at the right time. It is unlikely that you
// need to create one of these unless you're working in the query package
// itself. If 'debug' is set the tracker will accumulate a detailed query report
// and write it to debugOut. If debugOut is nil, the report will be written to a
// file in $TMPDIR. If 'debug' is false, a no-op Tracker is returned.
func New(debug bool, debugOut io.Writer, clock clocks.Source, query string) Tracker {
	if !debug {
		return noopTracker{}
	}
	if clock == nil {
		clock = clocks.Wall
	}
	t := &debugTracker{
		id:    atomic.AddUint64(&trackerID, 1),
		clock: clock,
	}
	if debugOut == nil {
		f, err := os.Create(filepath.Join(os.TempDir(), fmt.Sprintf("query_debug_%d", t.id)))
		if err != nil {
			logrus.Warnf("Unable to create query debug file: %v", err)
			return noopTracker{}
		}
		logrus.Infof("Query Debug Info %d being written to %s", t.id, f.Name())
		t.close = f
		debugOut = f
	}
	t.out = bufio.NewWriter(debugOut)
	t.started = t.clock.Now()
	fmt.Fprintf(&t.report.header, "Started at: %s\n", t.started.UTC().Format(timestampFormat))
	t.report.inputQuery = query
	return t
}

// debugTracker implements the Tracker interface. It will generate a human
// readable query debug report containing diagnostic information about the query
// processing.
type debugTracker struct {
	id      uint64
	clock   clocks.Source
	started time.Time
	parsed  time.Time
	planned time.Time
	// out is where the report will be written to.
	out *bufio.Writer
	// close if set will be closed once the report is written.
	close io.Closer
	// The created report contains the below sections, in the order you see.
	report struct {
		header     strings.Builder
		inputQuery string
		parsed     string
		planned    string
		execution  func(bytes.StringWriter)
		executors  func(bytes.StringWriter)
	}
}

func (t *debugTracker) Parsed(root *planner.Node, err error) {
	t.parsed = t.clock.Now()
	fmt.Fprintf(&t.report.header, "Parsing   %v\n", t.parsed.Sub(t.started))
	if err != nil {
		t.report.parsed = fmt.Sprintf("Error: %v\n", err)
		return
	}
	b := strings.Builder{}
	renderNode(&b, root, 0)
	t.report.parsed = b.String()
}

// renderNode writes the canonical form of the sub-query tree rooted at n to
// 'b'. The raw fragments in the report's input section may use arbitrary
// formatting, this shows what the parser made of them.
func renderNode(b *strings.Builder, n *planner.Node, depth int) {
	indent := strings.Repeat(" ", depth*4)
	fmt.Fprintf(b, "%vSub-query in schema named %q:\n", indent, n.SchemaID)
	text := strings.TrimSuffix(fragment.Print(n.Fragment), "\n")
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintf(b, "%v%v\n", indent, line)
	}
	for _, conn := range n.Connections {
		fmt.Fprintf(b, "%vConnection (%v, %v) to:\n",
			indent, conn.ParentOutput, conn.ChildOutput)
		renderNode(b, conn.Child, depth+1)
	}
}

func (t *debugTracker) Planned(plan *plandef.QueryPlan, err error) {
	t.planned = t.clock.Now()
	fmt.Fprintf(&t.report.header, "Planning  %v\n", t.planned.Sub(t.parsed))
	if err != nil {
		t.report.planned = fmt.Sprintf("Error: %v\n", err)
		return
	}
	t.report.planned = plan.String()
}

func (t *debugTracker) DecorateExecutors(source executor.Registry) executor.Registry {
	stats, wrapped := newExecutorStats(source, t.clock)
	t.report.executors = stats.dump
	return wrapped
}

func (t *debugTracker) ExecEvents(plan *plandef.QueryPlan) exec.Events {
	e := newExecEvents(plan, t.clock)
	t.report.execution = e.dump
	return e
}

func (t *debugTracker) Close() {
	end := t.clock.Now()
	t.out.WriteString(t.report.header.String())
	if !t.planned.IsZero() {
		fmt.Fprintf(t.out, "Executing %v\n", end.Sub(t.planned))
	}
	fmt.Fprintf(t.out, "Query Ended at: %s\n", end.UTC().Format(timestampFormat))
	fmt.Fprintf(t.out, "Total: %v\n\n", end.Sub(t.started))
	t.out.WriteString(t.report.inputQuery)
	t.out.WriteString("\nParsed Query:\n")
	t.out.WriteString(t.report.parsed)
	if t.report.planned != "" {
		t.out.WriteString("\nQuery Plan:\n")
		t.out.WriteString(t.report.planned)
	}
	if t.report.execution != nil {
		t.out.WriteString("\nQuery Execution Summary:\n")
		t.report.execution(t.out)
	}
	if t.report.executors != nil {
		t.out.WriteString("\nBackend Calls:\n")
		t.report.executors(t.out)
	}
	t.out.WriteByte('\n')

	flushErr := t.out.Flush()
	if flushErr != nil {
		logrus.WithFields(logrus.Fields{
			"query_id": t.id,
			"error":    flushErr,
		}).Warn("Error writing report for query")
	}
	// even if the flush failed, we should still try and close the ouput if
	// needed.
	if t.close != nil {
		closeErr := t.close.Close()
		if closeErr != nil {
			logrus.WithFields(logrus.Fields{
				"query_id": t.id,
				"error":    closeErr,
			}).Warn("Error closing report for query")
			return
		}
	}
	if flushErr != nil {
		return
	}
	logrus.WithField("query_id", t.id).Info("Completed query debug report")
}

// noopTracker implements the Tracker interface, everything is effectively a
// no-op
type noopTracker struct {
}

func (noopTracker) Parsed(*planner.Node, error)       {}
func (noopTracker) Planned(*plandef.QueryPlan, error) {}
func (noopTracker) DecorateExecutors(s executor.Registry) executor.Registry {
	return s
}
func (noopTracker) ExecEvents(plan *plandef.QueryPlan) exec.Events {
	return nil
}
func (noopTracker) Close() {}
