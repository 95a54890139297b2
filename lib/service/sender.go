// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"fmt"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/bureau-asset/lib/assetproto"
)

// UnknownUID is the UID reported for peers whose credentials could not
// be read.
const UnknownUID = -1

// writeTimeout bounds a single reply write. A peer that stops reading
// must not pin a worker forever.
const writeTimeout = 10 * time.Second

// UploadPolicy decides which peers may upload.
type UploadPolicy struct {
	AllowAll    bool
	AllowedUIDs []int
}

// Permits reports whether a peer with the given UID may upload.
func (p UploadPolicy) Permits(uid int) bool {
	if p.AllowAll {
		return true
	}
	if uid == UnknownUID {
		return false
	}
	return slices.Contains(p.AllowedUIDs, uid)
}

// Sender is the identity and reply path of one connection. It is safe
// to call Send from several goroutines.
type Sender struct {
	// ID is unique per connection.
	ID uuid.UUID

	// UID is the peer's user ID, or UnknownUID.
	UID int

	// CanUpload is the per-connection upload permission.
	CanUpload bool

	conn    net.Conn
	writeMu sync.Mutex
}

func newSender(conn net.Conn, uid int, canUpload bool) *Sender {
	return &Sender{
		ID:        uuid.New(),
		UID:       uid,
		CanUpload: canUpload,
		conn:      conn,
	}
}

// Send writes one framed message to the peer.
func (s *Sender) Send(msg assetproto.Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := assetproto.WriteMessage(s.conn, msg); err != nil {
		return fmt.Errorf("sending to %s: %w", s.ID, err)
	}
	return nil
}

func (s *Sender) String() string {
	return fmt.Sprintf("%s(uid=%d)", s.ID, s.UID)
}
