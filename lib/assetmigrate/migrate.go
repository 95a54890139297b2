// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetmigrate

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bureau-foundation/bureau-asset/lib/asset"
)

// legacyNamePattern matches a hash followed by one or more extensions.
var legacyNamePattern = regexp.MustCompile(fmt.Sprintf(`^[a-f0-9]{%d}(\.\w+)+$`, asset.HashHexLength))

// IsLegacyName reports whether name is a pre-mapping asset filename.
func IsLegacyName(name string) bool {
	return legacyNamePattern.MatchString(name)
}

// Options configures Run.
type Options struct {
	// StorageRoot is the content store directory. Created if missing.
	StorageRoot string

	// LegacyDir is the old resource directory probed when the storage
	// root is empty. Empty disables the copy step.
	LegacyDir string

	Logger *slog.Logger
}

// Report summarizes a migration pass.
type Report struct {
	// Copied is the number of files copied in from LegacyDir.
	Copied int

	// Migrated is the number of legacy names renamed to bare hashes.
	Migrated int

	// Skipped is the number of copies or renames that failed and were
	// left as-is.
	Skipped int

	// HashFiles is the number of bare-hash blobs in the storage root
	// after migration.
	HashFiles int
}

// Run performs the startup migration. The returned error is non-nil
// only if the storage root cannot be created or listed.
func Run(options Options) (Report, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var report Report

	if err := os.MkdirAll(options.StorageRoot, 0o755); err != nil {
		return report, fmt.Errorf("creating storage root %s: %w", options.StorageRoot, err)
	}

	names, err := regularFiles(options.StorageRoot)
	if err != nil {
		return report, err
	}

	if len(names) == 0 && options.LegacyDir != "" {
		copied, skipped := copyLegacyDir(options.LegacyDir, options.StorageRoot, logger)
		report.Copied, report.Skipped = copied, skipped
		if copied > 0 {
			if names, err = regularFiles(options.StorageRoot); err != nil {
				return report, err
			}
		}
	}

	for _, name := range names {
		if !IsLegacyName(name) {
			continue
		}
		if migrateFile(options.StorageRoot, name, logger) {
			report.Migrated++
		} else {
			report.Skipped++
		}
	}

	names, err = regularFiles(options.StorageRoot)
	if err != nil {
		return report, err
	}
	for _, name := range names {
		if asset.IsCanonicalName(name) {
			report.HashFiles++
		}
	}

	logger.Info("asset storage migration complete",
		"storage_root", options.StorageRoot,
		"copied", report.Copied,
		"migrated", report.Migrated,
		"skipped", report.Skipped,
		"asset_files", report.HashFiles,
	)
	return report, nil
}

// regularFiles lists the names of regular files directly in directory.
func regularFiles(directory string) ([]string, error) {
	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", directory, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// copyLegacyDir copies each regular file in source into destination.
// A missing source directory is not an error.
func copyLegacyDir(source, destination string, logger *slog.Logger) (copied, skipped int) {
	names, err := regularFiles(source)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, 0
	}
	if err != nil {
		logger.Warn("cannot read legacy asset directory", "path", source, "error", err)
		return 0, 0
	}

	logger.Info("storage root empty, copying legacy assets",
		"from", source,
		"to", destination,
		"files", len(names),
	)
	for _, name := range names {
		from := filepath.Join(source, name)
		to := filepath.Join(destination, name)
		if err := copyFile(from, to); err != nil {
			logger.Warn("copying legacy asset failed", "from", from, "to", to, "error", err)
			skipped++
			continue
		}
		logger.Debug("copied legacy asset", "from", from, "to", to)
		copied++
	}
	return copied, skipped
}

// copyFile copies from to a new file at to. It refuses to overwrite.
func copyFile(from, to string) error {
	source, err := os.Open(from)
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := os.OpenFile(to, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(destination, source); err != nil {
		destination.Close()
		os.Remove(to)
		return err
	}
	if err := destination.Close(); err != nil {
		os.Remove(to)
		return err
	}
	return nil
}

// linkFile is os.Link, replaceable in tests to model filesystems
// without hard links.
var linkFile = os.Link

// migrateFile renames a legacy <hash>.<ext> file to <hash>. If the bare
// hash name is already taken, the existing file wins and the legacy
// file is left in place. Returns true if the file was migrated.
func migrateFile(root, name string, logger *slog.Logger) bool {
	bareName := name[:strings.IndexByte(name, '.')]
	oldPath := filepath.Join(root, name)
	newPath := filepath.Join(root, bareName)

	// os.Rename silently replaces an existing target. A hard link
	// fails with EEXIST instead, which gives first-write-wins.
	err := linkFile(oldPath, newPath)
	switch {
	case err == nil:
		if err := os.Remove(oldPath); err != nil {
			logger.Warn("migrated legacy asset but could not remove old name",
				"file", name,
				"error", err,
			)
		}
	case errors.Is(err, fs.ErrExist):
		logCollision(name, bareName, logger)
		return false
	default:
		// No hard links here. Check the target, then rename.
		if _, statErr := os.Lstat(newPath); statErr == nil {
			logCollision(name, bareName, logger)
			return false
		} else if !errors.Is(statErr, fs.ErrNotExist) {
			logger.Warn("could not migrate legacy asset", "file", name, "error", statErr)
			return false
		}
		if renameErr := os.Rename(oldPath, newPath); renameErr != nil {
			logger.Warn("could not migrate legacy asset",
				"file", name,
				"link_error", err,
				"error", renameErr,
			)
			return false
		}
	}

	logger.Debug("migrated legacy asset", "from", name, "to", bareName)
	return true
}

func logCollision(name, bareName string, logger *slog.Logger) {
	logger.Warn("legacy asset collides with existing asset, leaving in place",
		"file", name,
		"hash", bareName,
	)
}
