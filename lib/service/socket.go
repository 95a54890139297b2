// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/bureau-foundation/bureau-asset/lib/assetproto"
)

// Handler processes one framed message from a connection. It runs on
// the connection's reader goroutine, so the next message from the same
// peer is not read until it returns. Long work should be handed off,
// keeping the Sender for the reply.
type Handler interface {
	HandleMessage(ctx context.Context, sender *Sender, msg assetproto.Message)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, sender *Sender, msg assetproto.Message)

func (f HandlerFunc) HandleMessage(ctx context.Context, sender *Sender, msg assetproto.Message) {
	f(ctx, sender, msg)
}

// SocketConfig configures a SocketServer.
type SocketConfig struct {
	// Path is the Unix socket path. A stale socket file is removed
	// before listening.
	Path string

	// MaxMessageSize bounds one frame. Zero selects
	// assetproto.DefaultMaxMessageSize.
	MaxMessageSize int

	// Upload decides each connection's upload permission.
	Upload UploadPolicy
}

// SocketServer serves the framed asset protocol on a Unix socket.
// Connections persist until the peer closes them, a frame cannot be
// read, or the server shuts down.
type SocketServer struct {
	config  SocketConfig
	handler Handler
	logger  *slog.Logger

	// activeConnections tracks reader goroutines for graceful shutdown.
	activeConnections sync.WaitGroup

	mu          sync.Mutex
	connections map[net.Conn]struct{}
}

// NewSocketServer creates a server that dispatches every message to
// handler.
func NewSocketServer(config SocketConfig, handler Handler, logger *slog.Logger) *SocketServer {
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = assetproto.DefaultMaxMessageSize
	}
	return &SocketServer{
		config:      config,
		handler:     handler,
		logger:      logger,
		connections: make(map[net.Conn]struct{}),
	}
}

// Serve listens on the configured socket and serves connections until
// ctx is cancelled. On cancellation it stops accepting, closes every
// open connection, and waits for their readers to exit. The socket file
// is removed on return.
func (s *SocketServer) Serve(ctx context.Context) error {
	if err := os.Remove(s.config.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.config.Path, err)
	}

	listener, err := net.Listen("unix", s.config.Path)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.config.Path, err)
	}
	defer os.Remove(s.config.Path)

	return s.serveListener(ctx, listener)
}

func (s *SocketServer) serveListener(ctx context.Context, listener net.Listener) error {
	defer listener.Close()

	// Unblock Accept and every connection reader when the context is
	// cancelled.
	go func() {
		<-ctx.Done()
		listener.Close()
		s.closeConnections()
	}()

	s.logger.Info("socket server listening", "path", s.config.Path)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.ServeConn(ctx, conn)
		}()
	}

	s.activeConnections.Wait()
	return nil
}

// ServeConn serves a single already-established connection until it
// closes. Serve calls this for every accepted connection; tests call it
// directly with one end of a net.Pipe.
func (s *SocketServer) ServeConn(ctx context.Context, conn net.Conn) {
	if !s.track(conn) {
		conn.Close()
		return
	}
	defer s.untrack(conn)
	defer conn.Close()

	uid, err := peerUID(conn)
	if err != nil {
		s.logger.Debug("peer credentials unavailable", "error", err)
	}
	sender := newSender(conn, uid, s.config.Upload.Permits(uid))
	logger := s.logger.With("connection", sender.ID.String())
	logger.Debug("connection opened", "uid", sender.UID, "can_upload", sender.CanUpload)

	for {
		msg, err := assetproto.ReadMessage(conn, s.config.MaxMessageSize)
		if err != nil {
			if IsClosedConnection(err) {
				logger.Debug("connection closed")
			} else {
				logger.Warn("closing connection after unreadable frame", "error", err)
			}
			return
		}
		s.handler.HandleMessage(ctx, sender, msg)
	}
}

// track registers conn for shutdown. Returns false if the server is
// already shutting down.
func (s *SocketServer) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connections == nil {
		return false
	}
	s.connections[conn] = struct{}{}
	return true
}

func (s *SocketServer) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.connections, conn)
}

func (s *SocketServer) closeConnections() {
	s.mu.Lock()
	connections := s.connections
	s.connections = nil
	s.mu.Unlock()

	for conn := range connections {
		conn.Close()
	}
}
