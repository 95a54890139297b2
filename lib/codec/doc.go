// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the asset service's CBOR encoding
// configuration.
//
// The request/reply protocol spoken to clients is a fixed-width binary
// layout (see lib/assetproto), so CBOR is confined to on-disk state:
// mapping journal records written by lib/assetmapping, in both the
// per-path file backend and the bbolt backend. Keeping the encoder
// configuration here means every record is encoded identically no
// matter which backend wrote it, and a record can be moved between
// backends byte-for-byte.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items.
//
//	data, err := codec.Marshal(record)
//	err = codec.Unmarshal(data, &record)
//
// Types serialized through this package carry `cbor` struct tags.
package codec
