// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package main implements the Bureau asset service: a content-addressed
// blob store with a logical path mapping, served over a Unix socket.
//
// Blobs are named by the SHA-256 of their content and never change once
// written. A mapping table binds caller-chosen paths to hashes; many
// paths may share one hash. Clients read whole blobs or byte ranges,
// ask for a blob's size, upload new blobs, and edit mappings.
//
// # Startup
//
// Before listening, the service migrates the storage root: an empty root
// is seeded from the legacy resources/assets directory, and legacy
// files named <hash>.<ext> are renamed to the bare hash. The mapping
// table is then loaded from its journal.
//
// # Dispatch
//
// Each connection's reader goroutine decodes one request at a time.
// Mapping operations and GetInfo are answered inline on that goroutine.
// Get and Upload touch blob contents, so they are queued on the worker
// pool and reply from a worker when done; replies on one connection can
// therefore arrive out of request order. Malformed requests are dropped
// without a reply. Uploads from connections without upload permission
// are refused before the body is decoded.
package main
