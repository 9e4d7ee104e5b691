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

package clocks

import (
	"context"
	"sync"
	"time"
)

// Mock is a Source that does not advance on its own. It can be used to control
// a clock for unit tests.
type Mock struct {
	// Protects all the fields below.
	lock sync.Mutex
	now  Time
	// All these channels are notified each time 'now' changes.
	sleepers map[int]chan<- struct{}
	counter  int
}

// Ensures that Mock implements Source.
var _ Source = NewMock()

// NewMock returns a new mock clock that is initialized to the Unix epoch.
// Note that this is not the zero value for time.Time.
func NewMock() *Mock {
	return &Mock{
		now:      time.Unix(0, 0),
		sleepers: make(map[int]chan<- struct{}),
	}
}

// Now implements Source.Now.
func (c *Mock) Now() Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

// SleepUntil implements Source.SleepUntil. Note that a deadline/timeout on the
// context is measured in wall time, not mocked time.
func (c *Mock) SleepUntil(ctx context.Context, wake Time) error {
	changed, unregister := c.registerSleeper()
	defer unregister()
	for {
		if !wake.After(c.Now()) {
			return nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Advance moves the clock forward by the given amount, waking any SleepUntil
// calls whose deadlines have passed.
func (c *Mock) Advance(amount time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now = c.now.Add(amount)
	for _, sleeper := range c.sleepers {
		select {
		case sleeper <- struct{}{}:
		default: // sleeper is already scheduled to wake up
		}
	}
}

// registerSleeper returns a channel that will be notified when the clock's time
// changes, as well as a function to unregister this channel and reclaim space.
func (c *Mock) registerSleeper() (<-chan struct{}, func()) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.counter++
	key := c.counter
	ch := make(chan struct{}, 1) // buffer a single interrupt
	c.sleepers[key] = ch
	return ch, func() {
		c.lock.Lock()
		defer c.lock.Unlock()
		delete(c.sleepers, key)
	}
}
