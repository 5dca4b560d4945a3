// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"slices"
	"sync"
	"time"
)

// FakeClock is a Clock whose time only moves when the test calls
// Advance. Safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	changed *sync.Cond
	now     time.Time

	// timers is kept sorted by deadline.
	timers []fakeTimer
}

type fakeTimer struct {
	deadline time.Time
	fire     chan time.Time
}

// Fake returns a FakeClock set to start.
func Fake(start time.Time) *FakeClock {
	clock := &FakeClock{now: start}
	clock.changed = sync.NewCond(&clock.mu)
	return clock
}

// Now returns the fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After registers a timer that fires once Advance reaches now+d. A
// non-positive d fires immediately and registers nothing.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	fire := make(chan time.Time, 1)
	if d <= 0 {
		fire <- c.now
		return fire
	}

	timer := fakeTimer{deadline: c.now.Add(d), fire: fire}
	index, _ := slices.BinarySearchFunc(c.timers, timer.deadline, func(existing fakeTimer, deadline time.Time) int {
		if existing.deadline.After(deadline) {
			return 1
		}
		return -1
	})
	c.timers = slices.Insert(c.timers, index, timer)
	c.changed.Broadcast()
	return fire
}

// Advance moves the clock forward by d and fires every timer that is
// now due, earliest first.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	due := 0
	for due < len(c.timers) && !c.timers[due].deadline.After(now) {
		due++
	}
	fired := c.timers[:due:due]
	c.timers = slices.Clone(c.timers[due:])
	c.changed.Broadcast()
	c.mu.Unlock()

	for _, timer := range fired {
		timer.fire <- now
	}
}

// WaitForTimers blocks until at least n timers are pending. Call it
// before Advance when the code under test registers its timer from
// another goroutine:
//
//	go bot.Run(ctx)
//	fakeClock.WaitForTimers(1) // the loop is sleeping
//	fakeClock.Advance(10 * time.Second)
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.timers) < n {
		c.changed.Wait()
	}
}

// PendingCount returns the number of timers that have not fired.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}
