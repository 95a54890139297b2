// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package service

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// peerUID returns the UID of the process on the other end of a Unix
// socket connection.
func peerUID(conn net.Conn) (int, error) {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return UnknownUID, fmt.Errorf("peer credentials unavailable on %T", conn)
	}
	raw, err := unixConn.SyscallConn()
	if err != nil {
		return UnknownUID, fmt.Errorf("accessing socket descriptor: %w", err)
	}

	var credentials *unix.Ucred
	var credentialsErr error
	if err := raw.Control(func(fd uintptr) {
		credentials, credentialsErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err != nil {
		return UnknownUID, fmt.Errorf("controlling socket descriptor: %w", err)
	}
	if credentialsErr != nil {
		return UnknownUID, fmt.Errorf("reading SO_PEERCRED: %w", credentialsErr)
	}
	return int(credentials.Uid), nil
}
