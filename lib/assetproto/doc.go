// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package assetproto defines the asset service wire protocol: message
// framing, the request and reply layouts, and their encoders and
// decoders.
//
// # Framing
//
// A message on the wire is a 4-byte big-endian length followed by that
// many bytes: one [MessageType] byte, then the payload. [ReadMessage]
// and [WriteMessage] handle the frame; everything inside the payload is
// little-endian fixed-width fields.
//
// # Payload primitives
//
//   - message ID: uint32, first field of every request and reply
//   - result code: uint8 ([ErrorCode])
//   - range offsets: int64
//   - sizes and lengths: uint64
//   - strings: uint32 byte length, then UTF-8 bytes
//   - binary hash: 32 raw bytes
//
// # Requests
//
// [DecodeRequest] turns a message into exactly one of the [Request]
// variants: [MappingGetRequest], [MappingSetRequest],
// [MappingDeleteRequest], [GetInfoRequest], [GetRequest], or
// [UploadRequest]. Each variant carries its own typed fields, so code
// past the decoder never re-reads raw bytes. A request that is too
// short, truncated, or otherwise unparseable yields an error wrapping
// [ErrMalformed]; the service drops those without replying.
//
// Every reply begins with the echoed message ID followed by the result
// code, except GetInfo, which echoes the hash between the two. Payload
// fields follow only on [NoError].
package assetproto
