// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Code that stamps records with the current time accepts a [Clock]
// instead of calling time.Now directly. Production wiring passes
// [Real]; tests pass a [FakeClock] from [Fake] and move it explicitly
// with Advance or Set, so timestamps in assertions are exact.
//
//	type Table struct {
//	    clock clock.Clock
//	    // ...
//	}
//
//	table := &Table{clock: clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))}
package clock
