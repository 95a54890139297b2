// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package workerpool runs submitted tasks on a fixed number of slots.
//
// [Pool.Submit] never blocks: the task joins an unbounded FIFO queue and
// a dispatcher starts it once one of the pool's slots is free. Slots are
// a weighted semaphore (golang.org/x/sync/semaphore), so at most Size
// tasks run concurrently. Tasks run to completion; there is no
// cancellation of queued or running work. [Pool.Close] stops accepting
// new tasks and waits for everything already submitted.
//
// The queue has no bound. A client that submits faster than the slots
// drain grows memory without backpressure; [Pool.Stats] exposes the
// queue depth for callers that want to watch it.
package workerpool
