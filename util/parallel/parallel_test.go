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

package parallel

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// InvokeN works like a concurrent for loop: each invocation fills in its own
// slot of the results.
func ExampleInvokeN() {
	ctx := context.Background()
	schemas := []string{"inventory", "orders", "reviews"}
	greetings := make([]string, len(schemas))
	_ = InvokeN(ctx, len(schemas), func(ctx context.Context, i int) error {
		greetings[i] = "hello " + schemas[i]
		return nil
	})
	fmt.Println(greetings)
	// Output:
	// [hello inventory hello orders hello reviews]
}

func Test_Invoke(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	assert.NoError(Invoke(ctx))

	res := make([]int, 2)
	err := Invoke(ctx,
		func(ctx context.Context) error { res[0] = 1; return ctx.Err() },
		func(ctx context.Context) error { res[1] = 2; return ctx.Err() },
	)
	assert.NoError(err)
	assert.Equal([]int{1, 2}, res)

	err = Invoke(ctx,
		func(ctx context.Context) error { return errors.New("boom") },
		func(ctx context.Context) error { return ctx.Err() },
	)
	assert.EqualError(err, "boom")
}

func Test_InvokeN(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	err := InvokeN(ctx, 0, func(ctx context.Context, i int) error {
		assert.Fail("should not be called")
		return errors.New("unreachable")
	})
	assert.NoError(err)

	res := make([]int, 5)
	err = InvokeN(ctx, 5, func(ctx context.Context, i int) error {
		res[i] = i * i
		return ctx.Err()
	})
	assert.NoError(err)
	assert.Equal([]int{0, 1, 4, 9, 16}, res)
}

func Test_InvokeN_error(t *testing.T) {
	// A callback's error cancels the context the other callbacks see, but not
	// the caller's.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := InvokeN(ctx, 4, func(ctx context.Context, i int) error {
		if i == 2 {
			return errors.New("sub-query failed")
		}
		<-ctx.Done()
		return nil
	})
	assert.EqualError(t, err, "sub-query failed")
	assert.NoError(t, ctx.Err())
}

func Test_Go(t *testing.T) {
	assert := assert.New(t)
	x := 0
	wait := Go(func() {
		x = 8
	})
	wait()
	assert.Equal(8, x)
	// wait can be called again.
	wait()
	assert.Equal(8, x)
}

func Test_GoCaptureError(t *testing.T) {
	boom := errors.New("went sideways")
	wait := GoCaptureError(func() error {
		return boom
	})
	assert.Equal(t, boom, wait())
	// wait reports the same result every time.
	assert.Equal(t, boom, wait())

	wait = GoCaptureError(func() error {
		return nil
	})
	assert.NoError(t, wait())
}
