// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetmapping

import (
	"fmt"
	"os"
	"path/filepath"
)

// Journal persists mapping entries. Implementations are called from a
// single goroutine and need no internal locking.
type Journal interface {
	// Load returns every persisted entry. Called once, before any Put
	// or Remove.
	Load() ([]Entry, error)

	// Put creates or replaces the record for entry.Path.
	Put(entry Entry) error

	// Remove deletes the record for path. Removing an absent path is
	// not an error.
	Remove(path string) error

	// Close releases the journal's resources.
	Close() error
}

// Journal backend names accepted by OpenJournal.
const (
	BackendFiles  = "files"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// boltFileName is the database filename inside the mapping directory
// for the bolt backend.
const boltFileName = "mappings.db"

// OpenJournal opens the journal for backend, storing its data under
// directory.
func OpenJournal(backend, directory string) (Journal, error) {
	switch backend {
	case BackendFiles, "":
		return NewFileJournal(directory)
	case BackendBolt:
		if err := os.MkdirAll(directory, 0o755); err != nil {
			return nil, fmt.Errorf("creating mapping directory %s: %w", directory, err)
		}
		return OpenBoltJournal(filepath.Join(directory, boltFileName))
	case BackendMemory:
		return MemoryJournal{}, nil
	default:
		return nil, fmt.Errorf("unknown mapping backend %q (want %q, %q, or %q)",
			backend, BackendFiles, BackendBolt, BackendMemory)
	}
}

// MemoryJournal persists nothing.
type MemoryJournal struct{}

func (MemoryJournal) Load() ([]Entry, error) { return nil, nil }
func (MemoryJournal) Put(Entry) error        { return nil }
func (MemoryJournal) Remove(string) error    { return nil }
func (MemoryJournal) Close() error           { return nil }
