// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package asset defines the identity of a stored asset: the SHA-256
// digest of its content.
//
// A [Hash] is computed once from the bytes and is the blob's only
// name. Identical content always yields the same hash, so storing the
// same bytes twice is a no-op, and a blob never changes after it is
// written. The canonical text form is 64 lowercase hex characters,
// which is also the blob's filename in the storage root.
package asset
