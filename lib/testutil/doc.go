// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireNoReceive] wrap the select-with-timeout
// pattern so tests never call time.After directly. RequireNoReceive is
// how tests assert that the service deliberately sent nothing (a
// malformed request is dropped without a reply): absence is only
// observable as silence within a bounded wait.
//
// [SocketDir] creates a short temporary directory for Unix sockets,
// whose paths are limited to 108 bytes.
//
// All helpers call t.Fatalf on failure rather than returning errors.
package testutil
