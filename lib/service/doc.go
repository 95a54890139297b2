// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the process scaffolding for the asset
// service: the JSON logger, and the Unix socket server that frames
// protocol messages and tells the handler who sent them.
//
// A connection is long-lived. Its reader goroutine reads one frame at a
// time and hands it to the [Handler] together with the connection's
// [Sender]. The handler may reply inline or keep the Sender and reply
// later from another goroutine; [Sender.Send] serializes writes so
// replies never interleave on the wire.
//
// # Identity and permission
//
// Each connection gets a fresh UUID and, on Linux, the peer's UID from
// SO_PEERCRED. Upload permission is decided once per connection by the
// [UploadPolicy]: either every peer may upload, or only the listed
// UIDs. Peers whose UID cannot be determined (UID -1) are permitted only
// under AllowAll.
package service
