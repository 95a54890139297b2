// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetmapping

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/bureau-asset/lib/codec"
)

// pathDomainKey is the BLAKE3 key for hashing mapping paths into
// filenames. ASCII of the domain name, zero-padded to 32 bytes.
// Changing it orphans every existing record file.
var pathDomainKey = [32]byte{
	'b', 'u', 'r', 'e', 'a', 'u', '.', 'a', 's', 's', 'e', 't', '.',
	'm', 'a', 'p', 'p', 'i', 'n', 'g', '.', 'p', 'a', 't', 'h',
}

const recordSuffix = ".cbor"

// FileJournal stores one CBOR-encoded Entry per path:
//
//	<root>/<h[:2]>/<h[2:4]>/<h>.cbor
//
// where h is the hex BLAKE3 keyed hash of the path. Each record holds
// the original path, so Load rebuilds the table from a directory walk.
// Writes go to a temp file in root and are renamed into place.
type FileJournal struct {
	root string
}

// NewFileJournal opens (creating if needed) a file journal at root.
func NewFileJournal(root string) (*FileJournal, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating mapping directory %s: %w", root, err)
	}
	return &FileJournal{root: root}, nil
}

// Load walks the journal directory and decodes every record. Temp
// files from an interrupted write are removed. Records that fail to
// decode or carry no path are skipped.
func (j *FileJournal) Load() ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(j.root, func(path string, dirEntry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if dirEntry.IsDir() {
			return nil
		}

		name := dirEntry.Name()
		if strings.HasPrefix(name, "mapping-") && strings.HasSuffix(name, ".tmp") {
			os.Remove(path)
			return nil
		}
		if !strings.HasSuffix(name, recordSuffix) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading mapping record %s: %w", path, err)
		}
		var entry Entry
		if err := codec.Unmarshal(data, &entry); err != nil || entry.Path == "" {
			return nil
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Put atomically writes the record for entry.Path.
func (j *FileJournal) Put(entry Entry) error {
	data, err := codec.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding mapping %q: %w", entry.Path, err)
	}

	finalPath := j.recordPath(entry.Path)
	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return fmt.Errorf("creating mapping shard directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(j.root, "mapping-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp mapping file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing mapping data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp mapping file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("renaming mapping file to %s: %w", finalPath, err)
	}

	success = true
	return nil
}

// Remove deletes the record for path.
func (j *FileJournal) Remove(path string) error {
	err := os.Remove(j.recordPath(path))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing mapping file for %q: %w", path, err)
	}
	return nil
}

// Close is a no-op; the file journal holds no open handles.
func (j *FileJournal) Close() error { return nil }

// recordPath returns the sharded record path for a mapping path.
func (j *FileJournal) recordPath(path string) string {
	hasher, err := blake3.NewKeyed(pathDomainKey[:])
	if err != nil {
		// Only returned for a key of the wrong length, which the
		// array type rules out.
		panic("assetmapping: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write([]byte(path))
	hexString := hex.EncodeToString(hasher.Sum(nil))
	return filepath.Join(j.root, hexString[:2], hexString[2:4], hexString+recordSuffix)
}
