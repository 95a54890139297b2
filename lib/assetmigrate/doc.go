// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package assetmigrate brings a storage root into content-addressed
// form at startup, before the service accepts requests.
//
// Two legacy layouts are handled:
//
//   - Assets kept in an old fixed resource directory. When the storage
//     root holds no files, every file in that directory is copied in.
//   - Files named <hash>.<ext>[.<ext>...] from before the path mapping
//     table existed. Each is renamed to its bare hash.
//
// Every step is best-effort. A failed copy or rename is logged and the
// file is left where it was; only an unusable storage root stops
// startup. Migration creates no mapping entries: a migrated blob is
// addressable by hash and needs an explicit Set to get a path.
package assetmigrate
