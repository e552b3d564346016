// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts wall-clock time so that code stamping
// provenance records and ledger entries can be tested against a
// deterministic clock. Production code injects Real(); tests inject
// NewFake set to a known instant.
package clock

import "time"

// Clock provides the current time. Every production function that
// stamps a timestamp should accept a Clock (or be a method on a struct
// with a Clock field) instead of calling time.Now directly.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Fake is a manually-advanced Clock for tests. Not safe for concurrent
// use; provkit operations are single-threaded.
type Fake struct {
	current time.Time
}

// NewFake returns a Fake clock frozen at the given instant.
func NewFake(at time.Time) *Fake {
	return &Fake{current: at}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time { return f.current }

// Advance moves the fake clock forward by d.
func (f *Fake) Advance(d time.Duration) { f.current = f.current.Add(d) }

// Set moves the fake clock to an absolute instant.
func (f *Fake) Set(at time.Time) { f.current = at }
