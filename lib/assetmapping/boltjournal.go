// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetmapping

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/bureau-foundation/bureau-asset/lib/codec"
)

var bucketMappings = []byte("mappings")

// BoltJournal stores entries in a bbolt database: bucket "mappings",
// key = path, value = CBOR-encoded Entry.
type BoltJournal struct {
	db *bbolt.DB
}

// OpenBoltJournal opens or creates the database at dbPath. Fails after
// one second if another process holds the database lock.
func OpenBoltJournal(dbPath string) (*BoltJournal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating mapping directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening mapping database %s: %w", dbPath, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketMappings)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating mapping bucket: %w", err)
	}
	return &BoltJournal{db: db}, nil
}

// Load returns every entry in the bucket. Values that fail to decode
// are skipped.
func (j *BoltJournal) Load() ([]Entry, error) {
	var entries []Entry
	err := j.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMappings).ForEach(func(key, value []byte) error {
			var entry Entry
			if err := codec.Unmarshal(value, &entry); err != nil {
				return nil
			}
			entry.Path = string(key)
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("reading mapping database: %w", err)
	}
	return entries, nil
}

// Put writes the entry under its path.
func (j *BoltJournal) Put(entry Entry) error {
	data, err := codec.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding mapping %q: %w", entry.Path, err)
	}
	return j.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMappings).Put([]byte(entry.Path), data)
	})
}

// Remove deletes the entry for path.
func (j *BoltJournal) Remove(path string) error {
	return j.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMappings).Delete([]byte(path))
	})
}

// Close closes the database.
func (j *BoltJournal) Close() error {
	return j.db.Close()
}
