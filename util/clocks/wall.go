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

// Package clocks provides a mockable way to measure the passage of time.
package clocks

import (
	"context"
	"time"
)

// Time is a convenient alias for time.Time.
type Time = time.Time

// A Source tells the passage of time. This package provides two sources: Wall
// and Mock.
type Source interface {
	// Now returns the current time.
	Now() Time
	// SleepUntil blocks until at least the given time or a context error,
	// whichever comes first. If the context expires, SleepUntil returns the
	// context error. Otherwise, it waits until Now() returns at least the
	// given time and returns nil.
	//
	// The deadline form (rather than a duration) avoids a race when using the
	// mock clock: with a duration, time advancing between the caller's Now()
	// and the sleep would extend the wait past the intended wake time.
	SleepUntil(ctx context.Context, wake Time) error
}

type wallClock struct{}

// Wall is the normal clock, as provided by time.Now().
var Wall Source = wallClock{}

func (wallClock) Now() Time {
	return time.Now()
}

func (source wallClock) SleepUntil(ctx context.Context, wake Time) error {
	ctx, cancel := context.WithDeadline(ctx, wake)
	defer cancel()
	<-ctx.Done()
	if source.Now().Before(wake) {
		return ctx.Err()
	}
	return nil
}
