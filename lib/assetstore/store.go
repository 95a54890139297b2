// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetstore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/bureau-asset/lib/asset"
)

// tmpDir holds uploads in flight. It sits inside the storage root so
// the final rename never crosses a filesystem boundary. The leading dot
// keeps it from ever looking like a hash.
const tmpDir = ".tmp"

// ErrNotFound is returned when no blob exists for a hash. It wraps
// fs.ErrNotExist so callers may test for either.
var ErrNotFound = fmt.Errorf("asset not found: %w", fs.ErrNotExist)

// Store is a directory of hash-named blobs. Safe for concurrent use.
type Store struct {
	root string
}

// NewStore opens the store rooted at root, creating the directory if
// needed. Temporary files left behind by an interrupted upload are
// removed.
func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	tmpPath := filepath.Join(root, tmpDir)
	if err := os.RemoveAll(tmpPath); err != nil {
		return nil, fmt.Errorf("clearing stale uploads in %s: %w", tmpPath, err)
	}
	if err := os.MkdirAll(tmpPath, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory %s: %w", tmpPath, err)
	}
	return &Store{root: root}, nil
}

// Root returns the storage root directory.
func (s *Store) Root() string {
	return s.root
}

// Path returns the filesystem path of the blob for hash, whether or
// not it exists.
func (s *Store) Path(hash asset.Hash) string {
	return filepath.Join(s.root, hash.String())
}

// Exists reports whether a blob is stored under hash and, if so, its
// size in bytes. A non-regular file with a hash name is not a blob.
func (s *Store) Exists(hash asset.Hash) (bool, int64, error) {
	info, err := os.Stat(s.Path(hash))
	if errors.Is(err, fs.ErrNotExist) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("checking asset %s: %w", hash, err)
	}
	if !info.Mode().IsRegular() {
		return false, 0, nil
	}
	return true, info.Size(), nil
}

// ReadRange returns bytes [start, end) of the blob for hash. end is
// clamped to the blob length; start at or past the length (or end at
// or before start) yields an empty, non-nil slice. Negative offsets
// are treated as zero. Returns ErrNotFound if no blob exists.
func (s *Store) ReadRange(hash asset.Hash, start, end int64) ([]byte, error) {
	file, err := os.Open(s.Path(hash))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("opening asset %s: %w", hash, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat asset %s: %w", hash, err)
	}
	if !info.Mode().IsRegular() {
		return nil, ErrNotFound
	}

	start, end = clampRange(start, end, info.Size())
	data := make([]byte, end-start)
	if len(data) == 0 {
		return data, nil
	}
	if _, err := io.ReadFull(io.NewSectionReader(file, start, end-start), data); err != nil {
		return nil, fmt.Errorf("reading asset %s [%d, %d): %w", hash, start, end, err)
	}
	return data, nil
}

// clampRange bounds [start, end) to [0, size]. The result always has
// start <= end.
func clampRange(start, end, size int64) (int64, int64) {
	if start < 0 {
		start = 0
	}
	if end > size {
		end = size
	}
	if start > size {
		start = size
	}
	if end < start {
		end = start
	}
	return start, end
}

// Write stores data under its content hash and returns the hash. If a
// blob with that hash already exists the call is a no-op.
func (s *Store) Write(data []byte) (asset.Hash, error) {
	hash := asset.Compute(data)

	exists, _, err := s.Exists(hash)
	if err != nil {
		return hash, err
	}
	if exists {
		return hash, nil
	}

	tmpFile, err := os.CreateTemp(filepath.Join(s.root, tmpDir), "upload-*")
	if err != nil {
		return hash, fmt.Errorf("creating temp file for %s: %w", hash, err)
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
		return hash, fmt.Errorf("writing asset %s: %w", hash, err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return hash, fmt.Errorf("syncing asset %s: %w", hash, err)
	}
	if err := tmpFile.Close(); err != nil {
		return hash, fmt.Errorf("closing temp file for %s: %w", hash, err)
	}
	// Temp files are created 0600; blobs are world-readable like the
	// rest of the storage root.
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return hash, fmt.Errorf("setting permissions on %s: %w", hash, err)
	}

	if err := os.Rename(tmpPath, s.Path(hash)); err != nil {
		return hash, fmt.Errorf("renaming asset %s into place: %w", hash, err)
	}

	success = true
	return hash, nil
}

// Count returns the number of blobs in the storage root.
func (s *Store) Count() (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("listing storage root %s: %w", s.root, err)
	}
	count := 0
	for _, entry := range entries {
		if entry.Type().IsRegular() && asset.IsCanonicalName(entry.Name()) {
			count++
		}
	}
	return count, nil
}
