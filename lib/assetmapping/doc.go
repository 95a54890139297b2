// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package assetmapping maintains the mutable table from logical asset
// paths to content hashes.
//
// The [Table] is the only mutable index in the asset service. A path
// maps to exactly one hash at a time; many paths may map to the same
// hash. The table does not check that a hash exists in the content
// store: dangling entries are allowed and show up only when a client
// tries to read the blob.
//
// # Durability
//
// The in-memory map is authoritative. Each Set or Delete updates it
// under a write lock and returns immediately; the change is then
// handed, in order, to a single background goroutine that applies it
// to a [Journal]. Request handling therefore never waits on disk. A
// journal failure is logged and does not roll back the in-memory
// change. [Table.Close] drains the queue before closing the journal, so
// a clean shutdown loses nothing.
//
// Three journals exist:
//
//   - [FileJournal]: one CBOR record per path, sharded by the BLAKE3
//     hash of the path so arbitrary path strings become safe filenames.
//   - [BoltJournal]: a single bbolt database with one bucket.
//   - [MemoryJournal]: keeps nothing; the table starts empty on every
//     restart.
//
// [OpenJournal] selects one by backend name.
package assetmapping
