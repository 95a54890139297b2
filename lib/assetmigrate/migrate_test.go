// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetmigrate

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"testing"

	"github.com/bureau-foundation/bureau-asset/lib/asset"
	"github.com/bureau-foundation/bureau-asset/lib/assetstore"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func listNames(t *testing.T, directory string) []string {
	t.Helper()
	entries, err := os.ReadDir(directory)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names
}

func TestIsLegacyName(t *testing.T) {
	hash := asset.Compute([]byte("legacy")).String()
	tests := []struct {
		name string
		want bool
	}{
		{hash + ".png", true},
		{hash + ".tar.gz", true},
		{hash + ".fbx_v2", true},
		{hash, false},
		{hash + ".", false},
		{hash + ".p-g", false},
		{strings.ToUpper(hash) + ".png", false},
		{hash[:63] + ".png", false},
		{"x" + hash + ".png", false},
	}
	for _, test := range tests {
		if got := IsLegacyName(test.name); got != test.want {
			t.Errorf("IsLegacyName(%q) = %v, want %v", test.name, got, test.want)
		}
	}
}

func TestRenamesLegacyFile(t *testing.T) {
	root := t.TempDir()
	content := "png bytes"
	hash := asset.Compute([]byte(content))
	writeFile(t, filepath.Join(root, hash.String()+".png"), content)

	report, err := Run(Options{StorageRoot: root, Logger: discardLogger()})
	if err != nil {
		t.Fatal(err)
	}
	if report.Migrated != 1 || report.Skipped != 0 {
		t.Errorf("report = %+v, want 1 migrated, 0 skipped", report)
	}

	names := listNames(t, root)
	if len(names) != 1 || names[0] != hash.String() {
		t.Errorf("storage root = %v, want exactly [%s]", names, hash)
	}

	store, err := assetstore.NewStore(root)
	if err != nil {
		t.Fatal(err)
	}
	exists, size, err := store.Exists(hash)
	if err != nil {
		t.Fatal(err)
	}
	if !exists || size != int64(len(content)) {
		t.Errorf("Exists(migrated) = %v, %d; want true, %d", exists, size, len(content))
	}
}

func TestMultipleExtensionsStripped(t *testing.T) {
	root := t.TempDir()
	hash := asset.Compute([]byte("archive")).String()
	writeFile(t, filepath.Join(root, hash+".tar.gz"), "archive")

	if _, err := Run(Options{StorageRoot: root, Logger: discardLogger()}); err != nil {
		t.Fatal(err)
	}
	if names := listNames(t, root); len(names) != 1 || names[0] != hash {
		t.Errorf("storage root = %v, want [%s]", names, hash)
	}
}

func TestCollisionFirstWriteWins(t *testing.T) {
	root := t.TempDir()
	hash := asset.Compute([]byte("existing")).String()
	writeFile(t, filepath.Join(root, hash), "existing")
	writeFile(t, filepath.Join(root, hash+".png"), "legacy copy")

	report, err := Run(Options{StorageRoot: root, Logger: discardLogger()})
	if err != nil {
		t.Fatal(err)
	}
	if report.Migrated != 0 || report.Skipped != 1 {
		t.Errorf("report = %+v, want 0 migrated, 1 skipped", report)
	}

	data, err := os.ReadFile(filepath.Join(root, hash))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "existing" {
		t.Errorf("existing blob overwritten with %q", data)
	}
	if _, err := os.Stat(filepath.Join(root, hash+".png")); err != nil {
		t.Errorf("skipped legacy file should be left in place: %v", err)
	}
}

// withoutHardLinks makes every link attempt fail the way it does on a
// filesystem that has no hard links.
func withoutHardLinks(t *testing.T) {
	t.Helper()
	original := linkFile
	linkFile = func(oldname, newname string) error {
		return &os.LinkError{Op: "link", Old: oldname, New: newname, Err: syscall.EPERM}
	}
	t.Cleanup(func() { linkFile = original })
}

func TestMigratesWithoutHardLinks(t *testing.T) {
	withoutHardLinks(t)

	root := t.TempDir()
	hash := asset.Compute([]byte("mesh")).String()
	existing := asset.Compute([]byte("existing")).String()
	writeFile(t, filepath.Join(root, hash+".fbx"), "mesh")
	writeFile(t, filepath.Join(root, existing), "existing")
	writeFile(t, filepath.Join(root, existing+".png"), "legacy copy")

	report, err := Run(Options{StorageRoot: root, Logger: discardLogger()})
	if err != nil {
		t.Fatal(err)
	}
	if report.Migrated != 1 || report.Skipped != 1 {
		t.Errorf("report = %+v, want 1 migrated, 1 skipped", report)
	}

	want := []string{existing, existing + ".png", hash}
	sort.Strings(want)
	if names := listNames(t, root); strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("storage root = %v, want %v", names, want)
	}
	data, err := os.ReadFile(filepath.Join(root, existing))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "existing" {
		t.Errorf("existing blob overwritten with %q", data)
	}
}

func TestUnrelatedFilesUntouched(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "README.txt"), "notes")
	writeFile(t, filepath.Join(root, "abc.png"), "short name")

	report, err := Run(Options{StorageRoot: root, Logger: discardLogger()})
	if err != nil {
		t.Fatal(err)
	}
	if report.Migrated != 0 {
		t.Errorf("migrated %d unrelated files", report.Migrated)
	}
	want := []string{"README.txt", "abc.png"}
	if names := listNames(t, root); strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("storage root = %v, want %v", names, want)
	}
}

func TestCopiesLegacyDirWhenEmpty(t *testing.T) {
	legacyDir := t.TempDir()
	root := filepath.Join(t.TempDir(), "assets")

	plainHash := asset.Compute([]byte("plain")).String()
	legacyHash := asset.Compute([]byte("with extension")).String()
	writeFile(t, filepath.Join(legacyDir, plainHash), "plain")
	writeFile(t, filepath.Join(legacyDir, legacyHash+".fbx"), "with extension")
	if err := os.Mkdir(filepath.Join(legacyDir, "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}

	report, err := Run(Options{StorageRoot: root, LegacyDir: legacyDir, Logger: discardLogger()})
	if err != nil {
		t.Fatal(err)
	}
	if report.Copied != 2 {
		t.Errorf("copied = %d, want 2", report.Copied)
	}
	if report.Migrated != 1 {
		t.Errorf("migrated = %d, want 1", report.Migrated)
	}
	if report.HashFiles != 2 {
		t.Errorf("hash files = %d, want 2", report.HashFiles)
	}

	want := []string{legacyHash, plainHash}
	sort.Strings(want)
	if names := listNames(t, root); strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("storage root = %v, want %v", names, want)
	}
	// The legacy directory is only read, never modified.
	if names := listNames(t, legacyDir); len(names) != 3 {
		t.Errorf("legacy directory changed: %v", names)
	}
}

func TestLegacyDirIgnoredWhenRootHasFiles(t *testing.T) {
	legacyDir := t.TempDir()
	root := t.TempDir()
	existing := asset.Compute([]byte("already here")).String()
	writeFile(t, filepath.Join(root, existing), "already here")
	writeFile(t, filepath.Join(legacyDir, asset.Compute([]byte("old")).String()), "old")

	report, err := Run(Options{StorageRoot: root, LegacyDir: legacyDir, Logger: discardLogger()})
	if err != nil {
		t.Fatal(err)
	}
	if report.Copied != 0 {
		t.Errorf("copied %d files into a non-empty root", report.Copied)
	}
	if names := listNames(t, root); len(names) != 1 {
		t.Errorf("storage root = %v, want only the existing blob", names)
	}
}

func TestMissingLegacyDirIsNotAnError(t *testing.T) {
	root := t.TempDir()
	report, err := Run(Options{
		StorageRoot: root,
		LegacyDir:   filepath.Join(t.TempDir(), "does-not-exist"),
		Logger:      discardLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if report != (Report{}) {
		t.Errorf("report = %+v, want zero", report)
	}
}

func TestUnusableStorageRootFails(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	writeFile(t, blocker, "not a directory")

	if _, err := Run(Options{StorageRoot: filepath.Join(blocker, "assets"), Logger: discardLogger()}); err == nil {
		t.Error("Run succeeded with a storage root under a regular file")
	}
}
