// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for the bot's
// poll loop.
//
// Production code holds a Clock and calls [Sleep] between polls
// instead of time.Sleep. Tests substitute [Fake], which advances only
// when Advance is called, and use WaitForTimers to know the loop has
// reached its sleep before advancing:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	// ... start the loop with c ...
//	c.WaitForTimers(1)
//	c.Advance(10 * time.Second)
package clock
