// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package assetstore is the filesystem-backed content store for the
// asset service.
//
// Every blob lives in a single directory (the storage root), one file
// per blob, named by the 64-character hex SHA-256 of its content with
// no extension. The store is the only writer of that directory after
// startup migration.
//
// Writes are content-addressed and therefore idempotent: if a file
// with the computed hash already exists, [Store.Write] returns the
// hash without touching the disk. New blobs are written to a temporary
// file under <root>/.tmp, synced, and renamed into place, so a reader
// never observes a partially written blob. Two writers racing on the
// same content rename equivalent bytes over each other, which is
// harmless; no locking is needed.
//
// Reads are range-addressed. [Store.ReadRange] clamps the end of the
// range to the blob length and returns an empty slice for a range that
// starts at or past the end. Only an unknown hash is an error.
package assetstore
