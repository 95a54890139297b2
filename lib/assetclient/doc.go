// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package assetclient is a client for the asset service socket.
//
// A [Client] holds one connection and may be used from many goroutines.
// Each call allocates a fresh message ID, writes its request, and waits
// for the reply carrying that ID. A single reader goroutine routes
// replies to waiters, so replies may complete in any order: a cheap
// mapping lookup can finish while a large Get is still in flight.
//
// Result codes map to sentinel errors: [ErrNotFound],
// [ErrPermissionDenied], [ErrFileOperation]. The service never replies
// to a malformed request, so callers that might send one should bound
// the wait with a context deadline.
package assetclient
