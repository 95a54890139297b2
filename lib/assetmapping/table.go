// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetmapping

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bureau-foundation/bureau-asset/lib/asset"
	"github.com/bureau-foundation/bureau-asset/lib/clock"
)

// MaxPathLength is the maximum byte length of a mapping path.
const MaxPathLength = 4096

// Entry is one path-to-hash mapping. It is both the in-memory value
// and the journal record.
type Entry struct {
	Path      string     `cbor:"path"`
	Hash      asset.Hash `cbor:"hash"`
	CreatedAt time.Time  `cbor:"created_at"`
	UpdatedAt time.Time  `cbor:"updated_at"`
}

// ValidatePath checks that path is usable as a mapping key.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("mapping path is required")
	}
	if len(path) > MaxPathLength {
		return fmt.Errorf("mapping path is %d bytes, maximum is %d", len(path), MaxPathLength)
	}
	return nil
}

// Options configures [Open].
type Options struct {
	// Journal persists mapping changes. Required; use MemoryJournal
	// for a table that does not survive restarts.
	Journal Journal

	// Clock stamps entries. Defaults to clock.Real().
	Clock clock.Clock

	// Logger receives journal failures. Defaults to slog.Default().
	Logger *slog.Logger
}

// Table is the path-to-hash mapping. Safe for concurrent use.
type Table struct {
	mu      sync.RWMutex
	entries map[string]Entry

	clock  clock.Clock
	logger *slog.Logger

	journal Journal

	// queueMu guards queue and closed. The writer goroutine is woken
	// through wake (capacity 1) and exits when closed is set and the
	// queue is empty.
	queueMu sync.Mutex
	queue   []journalOp
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

type journalOpKind int

const (
	opPut journalOpKind = iota
	opRemove
	opBarrier
)

type journalOp struct {
	kind    journalOpKind
	entry   Entry
	barrier chan struct{}
}

// Open loads the existing mappings from options.Journal and starts the
// background journal writer.
func Open(options Options) (*Table, error) {
	if options.Journal == nil {
		return nil, fmt.Errorf("mapping journal is required")
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	loaded, err := options.Journal.Load()
	if err != nil {
		return nil, fmt.Errorf("loading mapping journal: %w", err)
	}

	table := &Table{
		entries: make(map[string]Entry, len(loaded)),
		clock:   options.Clock,
		logger:  options.Logger,
		journal: options.Journal,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	for _, entry := range loaded {
		table.entries[entry.Path] = entry
	}

	go table.writeLoop()
	return table, nil
}

// Get returns the hash mapped to path.
func (t *Table) Get(path string) (asset.Hash, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entry, exists := t.entries[path]
	return entry.Hash, exists
}

// Lookup returns the full entry for path.
func (t *Table) Lookup(path string) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entry, exists := t.entries[path]
	return entry, exists
}

// Set maps path to hash, replacing any existing mapping. It always
// succeeds in memory; persistence happens in the background.
func (t *Table) Set(path string, hash asset.Hash) {
	now := t.clock.Now()

	t.mu.Lock()
	entry := Entry{Path: path, Hash: hash, CreatedAt: now, UpdatedAt: now}
	if existing, exists := t.entries[path]; exists {
		entry.CreatedAt = existing.CreatedAt
	}
	t.entries[path] = entry
	// Enqueue while still holding mu so journal order matches the
	// order in which callers observed the change.
	t.enqueue(journalOp{kind: opPut, entry: entry})
	t.mu.Unlock()
}

// Delete removes the mapping for path. Returns true if one existed.
func (t *Table) Delete(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[path]; !exists {
		return false
	}
	delete(t.entries, path)
	t.enqueue(journalOp{kind: opRemove, entry: Entry{Path: path}})
	return true
}

// Len returns the number of mappings.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// List returns the entries whose path starts with prefix, sorted by
// path. An empty prefix returns everything.
func (t *Table) List(prefix string) []Entry {
	t.mu.RLock()
	results := make([]Entry, 0, len(t.entries))
	for path, entry := range t.entries {
		if strings.HasPrefix(path, prefix) {
			results = append(results, entry)
		}
	}
	t.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	return results
}

// Flush blocks until every change made before the call has been
// applied to the journal (or failed and been logged).
func (t *Table) Flush() {
	barrier := make(chan struct{})
	if !t.enqueue(journalOp{kind: opBarrier, barrier: barrier}) {
		return
	}
	<-barrier
}

// Close drains pending journal writes, stops the writer, and closes
// the journal. Changes made after Close stay in memory only.
func (t *Table) Close() error {
	t.queueMu.Lock()
	if t.closed {
		t.queueMu.Unlock()
		return nil
	}
	t.closed = true
	t.queueMu.Unlock()
	t.signal()

	<-t.done
	return t.journal.Close()
}

// enqueue appends op for the writer. Returns false if the table is
// closed.
func (t *Table) enqueue(op journalOp) bool {
	t.queueMu.Lock()
	if t.closed {
		t.queueMu.Unlock()
		if op.kind != opBarrier {
			t.logger.Warn("mapping table closed, change not persisted", "path", op.entry.Path)
		}
		return false
	}
	t.queue = append(t.queue, op)
	t.queueMu.Unlock()
	t.signal()
	return true
}

func (t *Table) signal() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// writeLoop applies queued operations to the journal in order.
func (t *Table) writeLoop() {
	defer close(t.done)
	for {
		t.queueMu.Lock()
		batch := t.queue
		t.queue = nil
		closed := t.closed
		t.queueMu.Unlock()

		for _, op := range batch {
			t.apply(op)
		}

		if len(batch) == 0 {
			if closed {
				return
			}
			<-t.wake
		}
	}
}

func (t *Table) apply(op journalOp) {
	switch op.kind {
	case opPut:
		if err := t.journal.Put(op.entry); err != nil {
			t.logger.Warn("persisting mapping failed",
				"path", op.entry.Path,
				"hash", op.entry.Hash.String(),
				"error", err,
			)
		}
	case opRemove:
		if err := t.journal.Remove(op.entry.Path); err != nil {
			t.logger.Warn("removing persisted mapping failed",
				"path", op.entry.Path,
				"error", err,
			)
		}
	case opBarrier:
		close(op.barrier)
	}
}
