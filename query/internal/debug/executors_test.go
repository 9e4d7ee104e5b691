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
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ebay/quilt/executor"
	"github.com/ebay/quilt/executor/mockexec"
	"github.com/ebay/quilt/util/clocks"
	"github.com/stretchr/testify/assert"
)

func Test_ExecutorStats(t *testing.T) {
	l := executorStats{}
	l.locked.duration = time.Millisecond * 2400
	l.locked.callCount = 3
	l.locked.argsTotal = 33
	l.locked.rowsTotal = 6
	l.locked.errCount = 1

	s := strings.Builder{}
	l.dump(&s, "inventory")
	assert.Equal(t, `
inventory
	Call Count:     3
	Errors:         1
	Avg Arguments:  11.0
	Avg Rows:       2.0
	Total Time:     2.4s
	Avg Time:       800ms
`, "\n"+s.String())
}

func Test_QueryExecutorStats(t *testing.T) {
	clock := advancingClock{Mock: clocks.NewMock(), advance: time.Second}
	inventory, inventoryDone := mockexec.New(t,
		mockexec.OK("", executor.Row{"id": 1}, executor.Row{"id": 2}),
		mockexec.OK("", executor.Row{"id": 3}, executor.Row{"id": 4},
			executor.Row{"id": 5}, executor.Row{"id": 6}),
	)
	reviews, reviewsDone := mockexec.New(t,
		mockexec.OK("", executor.Row{"score": 5}),
	)
	source := executor.Registry{
		"inventory": inventory,
		"reviews":   reviews,
	}

	stats, wrapped := newExecutorStats(source, clock)
	b := strings.Builder{}
	stats.dump(&b)
	assert.Equal(t, "", b.String())

	ctx := context.Background()
	wrapped["inventory"].Execute(ctx, "{ a }", executor.Arguments{"a": 1})
	wrapped["inventory"].Execute(ctx, "{ b }", executor.Arguments{"a": 1, "b": 2, "c": 3})
	wrapped["reviews"].Execute(ctx, "{ c }", nil)
	inventoryDone()
	reviewsDone()

	b.Reset()
	stats.dump(&b)
	assert.Equal(t, `
inventory
	Call Count:     2
	Avg Arguments:  2.0
	Avg Rows:       3.0
	Total Time:     2s
	Avg Time:       1s
reviews
	Call Count:     1
	Avg Arguments:  0.0
	Avg Rows:       1.0
	Total Time:     1s
	Avg Time:       1s
`, "\n"+b.String())
}

type advancingClock struct {
	*clocks.Mock
	advance time.Duration
}

func (c advancingClock) Now() time.Time {
	defer c.Advance(c.advance)
	return c.Mock.Now()
}
