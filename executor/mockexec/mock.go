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

// Package mockexec provides a mock implementation of the sub-query Executor
// interface. This is useful for unit testing.
package mockexec

import (
	"context"
	"errors"
	"sync"

	"github.com/ebay/quilt/executor"
	"github.com/stretchr/testify/assert"
)

// Expected describes what Mock should do when it receives a single sub-query.
type Expected struct {
	// If non-empty, the expected query text. If empty, the actual query is not
	// checked (any query is acceptable).
	Query string
	// If non-nil, the expected runtime arguments. If nil, the actual arguments
	// are not checked.
	Arguments executor.Arguments
	// Rows to return from Execute, in order.
	Rows []executor.Row
	// If set, this will be returned by Execute instead of any rows.
	ReplyErr error
}

// OK is a convenience function for constructing Expected values. It returns a
// descriptor that expects the given query and replies with the given rows.
// 'query' may be empty to indicate that any query is acceptable.
func OK(query string, rows ...executor.Row) Expected {
	return Expected{
		Query: query,
		Rows:  rows,
	}
}

// Err is a convenience function for constructing Expected values. It returns a
// descriptor that expects the given query and fails it with the given error.
// 'query' may be empty to indicate that any query is acceptable.
func Err(query string, replyErr error) Expected {
	return Expected{
		Query:    query,
		ReplyErr: replyErr,
	}
}

// Mock is an Executor that replays a script of expected sub-queries. Mock is
// thread-safe.
type Mock struct {
	t        assert.TestingT
	lock     sync.Mutex
	expected []Expected
}

// Ensures that Mock implements executor.Executor.
var _ executor.Executor = (*Mock)(nil)

// New constructs a Mock. It also returns a function that should be called
// before tearing down the test, which asserts that the Mock received all of
// the sub-queries it expected. The given 't' is typically a *testing.T. The
// given 'expected' values instruct the Mock on how to behave when it gets its
// first sub-queries (in FIFO order).
func New(t assert.TestingT, expected ...Expected) (*Mock, func()) {
	mock := &Mock{t: t, expected: expected}
	assertDone := func() {
		mock.lock.Lock()
		assert.Equal(t, 0, len(mock.expected), "More sub-queries expected")
		mock.lock.Unlock()
	}
	return mock, assertDone
}

// Expect instructs the Mock on how to behave when it gets additional
// sub-queries (in FIFO order).
func (mock *Mock) Expect(exp ...Expected) {
	mock.lock.Lock()
	mock.expected = append(mock.expected, exp...)
	mock.lock.Unlock()
}

// Execute implements executor.Executor. The Mock asserts that the query and
// arguments match its next Expected sub-query, and returns results
// accordingly.
func (mock *Mock) Execute(ctx context.Context, query string, args executor.Arguments) ([]executor.Row, error) {
	var expected Expected
	mock.lock.Lock()
	ok := len(mock.expected) > 0
	if ok {
		expected, mock.expected = mock.expected[0], mock.expected[1:]
	}
	mock.lock.Unlock()

	if !ok {
		assert.Fail(mock.t, "Unexpected sub-query", "query: %v", query)
		return nil, errors.New("unexpected sub-query")
	}
	if expected.Query != "" {
		assert.Equal(mock.t, expected.Query, query,
			"Actual query did not match expected")
	}
	if expected.Arguments != nil {
		assert.Equal(mock.t, expected.Arguments, args,
			"Actual arguments did not match expected")
	}
	if expected.ReplyErr != nil {
		return nil, expected.ReplyErr
	}
	return expected.Rows, nil
}
