// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package workerpool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultSize is the slot count used when New is given a non-positive
// size.
const DefaultSize = 50

// Task is one unit of work. The context is the one passed to Submit.
type Task func(ctx context.Context)

type queuedTask struct {
	ctx  context.Context
	task Task
}

// Stats is a snapshot of pool occupancy.
type Stats struct {
	Size    int
	Running int
	Queued  int
}

// Pool is a fixed-slot task runner with an unbounded FIFO queue.
type Pool struct {
	size         int
	slots        *semaphore.Weighted
	logger       *slog.Logger
	running      sync.WaitGroup
	dispatchDone chan struct{}

	mu     sync.Mutex
	wake   *sync.Cond
	queue  []queuedTask
	active int
	closed bool
}

// New starts a pool with size slots. A nil logger uses slog.Default.
func New(size int, logger *slog.Logger) *Pool {
	if size <= 0 {
		size = DefaultSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	pool := &Pool{
		size:         size,
		slots:        semaphore.NewWeighted(int64(size)),
		logger:       logger,
		dispatchDone: make(chan struct{}),
	}
	pool.wake = sync.NewCond(&pool.mu)
	go pool.dispatch()
	return pool
}

// Size returns the number of slots.
func (p *Pool) Size() int {
	return p.size
}

// Submit queues task. It never blocks. Submitting to a closed pool
// panics: it means a caller outlived the pool's owner.
func (p *Pool) Submit(ctx context.Context, task Task) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		panic("workerpool: Submit on closed pool")
	}
	p.queue = append(p.queue, queuedTask{ctx: ctx, task: task})
	p.wake.Signal()
}

// Stats returns the current slot and queue occupancy.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Size: p.size, Running: p.active, Queued: len(p.queue)}
}

// Close stops accepting tasks and waits until every submitted task has
// finished. Safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		p.wake.Signal()
	}
	p.mu.Unlock()

	<-p.dispatchDone
	p.running.Wait()
}

// dispatch pops tasks in submission order and starts each once a slot
// is free. It exits when the pool is closed and the queue is empty.
func (p *Pool) dispatch() {
	defer close(p.dispatchDone)
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.wake.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		next := p.queue[0]
		p.queue[0] = queuedTask{}
		p.queue = p.queue[1:]
		p.mu.Unlock()

		// Queued work is never abandoned, so this acquire cannot fail.
		if err := p.slots.Acquire(context.Background(), 1); err != nil {
			panic(fmt.Sprintf("workerpool: acquiring slot: %v", err))
		}

		p.mu.Lock()
		p.active++
		p.mu.Unlock()

		p.running.Add(1)
		go p.run(next)
	}
}

func (p *Pool) run(next queuedTask) {
	defer func() {
		if recovered := recover(); recovered != nil {
			p.logger.Error("worker task panicked", "panic", fmt.Sprint(recovered))
		}
		p.mu.Lock()
		p.active--
		p.mu.Unlock()
		p.slots.Release(1)
		p.running.Done()
	}()
	next.task(next.ctx)
}
