// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/bureau-foundation/bureau-asset/lib/assetproto"
	"github.com/bureau-foundation/bureau-asset/lib/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func testSocketPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(testutil.SocketDir(t), "asset.sock")
}

func waitForSocket(t *testing.T, path string) {
	t.Helper()
	for {
		if _, err := os.Stat(path); err == nil {
			return
		}
		if t.Context().Err() != nil {
			t.Fatalf("socket %s did not appear before test context expired", path)
		}
		runtime.Gosched()
	}
}

// received is what the recording handler saw for one message.
type received struct {
	sender *Sender
	msg    assetproto.Message
}

// startServer runs a SocketServer whose handler echoes every message
// back with its type byte incremented, and records what it saw.
func startServer(t *testing.T, config SocketConfig) (string, <-chan received) {
	t.Helper()
	if config.Path == "" {
		config.Path = testSocketPath(t)
	}
	seen := make(chan received, 64)
	handler := HandlerFunc(func(ctx context.Context, sender *Sender, msg assetproto.Message) {
		seen <- received{sender: sender, msg: msg}
		reply := assetproto.Message{Type: msg.Type + 1, Payload: msg.Payload}
		if err := sender.Send(reply); err != nil {
			t.Errorf("Send: %v", err)
		}
	})
	server := NewSocketServer(config, handler, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Serve(ctx); err != nil {
			t.Errorf("Serve: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})

	waitForSocket(t, config.Path)
	return config.Path, seen
}

func dial(t *testing.T, path string) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("unix", path, 5*time.Second)
	if err != nil {
		t.Fatalf("dialing %s: %v", path, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSocketServerEchoesOnPersistentConnection(t *testing.T) {
	path, seen := startServer(t, SocketConfig{})
	conn := dial(t, path)

	for i := range 3 {
		payload := []byte{byte(i), 0xaa}
		if err := assetproto.WriteMessage(conn, assetproto.Message{Type: assetproto.TypeAssetGet, Payload: payload}); err != nil {
			t.Fatalf("WriteMessage: %v", err)
		}
		reply, err := assetproto.ReadMessage(conn, 0)
		if err != nil {
			t.Fatalf("ReadMessage: %v", err)
		}
		if reply.Type != assetproto.TypeAssetGetReply || !bytes.Equal(reply.Payload, payload) {
			t.Errorf("reply %d = %v %x, want %v %x", i, reply.Type, reply.Payload, assetproto.TypeAssetGetReply, payload)
		}
	}

	first := testutil.RequireReceive(t, seen, 5*time.Second)
	for range 2 {
		next := testutil.RequireReceive(t, seen, 5*time.Second)
		if next.sender != first.sender {
			t.Error("messages on one connection reported different senders")
		}
	}
}

func TestSocketServerDistinctSendersPerConnection(t *testing.T) {
	path, seen := startServer(t, SocketConfig{})

	var ids []string
	for range 2 {
		conn := dial(t, path)
		if err := assetproto.WriteMessage(conn, assetproto.Message{Type: assetproto.TypeAssetGetInfo}); err != nil {
			t.Fatalf("WriteMessage: %v", err)
		}
		if _, err := assetproto.ReadMessage(conn, 0); err != nil {
			t.Fatalf("ReadMessage: %v", err)
		}
		ids = append(ids, testutil.RequireReceive(t, seen, 5*time.Second).sender.ID.String())
	}
	if ids[0] == ids[1] {
		t.Errorf("two connections share sender id %s", ids[0])
	}
}

func TestSocketServerUploadPolicy(t *testing.T) {
	tests := []struct {
		name   string
		policy UploadPolicy
		want   bool
	}{
		{"allow all", UploadPolicy{AllowAll: true}, true},
		{"own uid listed", UploadPolicy{AllowedUIDs: []int{os.Getuid()}}, runtime.GOOS == "linux"},
		{"nobody listed", UploadPolicy{}, false},
		{"other uid listed", UploadPolicy{AllowedUIDs: []int{os.Getuid() + 1}}, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path, seen := startServer(t, SocketConfig{Upload: test.policy})
			conn := dial(t, path)
			if err := assetproto.WriteMessage(conn, assetproto.Message{Type: assetproto.TypeAssetUpload}); err != nil {
				t.Fatalf("WriteMessage: %v", err)
			}
			got := testutil.RequireReceive(t, seen, 5*time.Second)
			if got.sender.CanUpload != test.want {
				t.Errorf("CanUpload = %v, want %v (uid %d)", got.sender.CanUpload, test.want, got.sender.UID)
			}
		})
	}
}

func TestUploadPolicyPermits(t *testing.T) {
	policy := UploadPolicy{AllowedUIDs: []int{1000, 1001}}
	if !policy.Permits(1001) {
		t.Error("listed uid not permitted")
	}
	if policy.Permits(1002) {
		t.Error("unlisted uid permitted")
	}
	if policy.Permits(UnknownUID) {
		t.Error("unknown uid permitted without AllowAll")
	}
	if !(UploadPolicy{AllowAll: true}).Permits(UnknownUID) {
		t.Error("AllowAll did not permit unknown uid")
	}
}

func TestSocketServerClosesConnectionOnOversizedFrame(t *testing.T) {
	path, seen := startServer(t, SocketConfig{MaxMessageSize: 16})
	conn := dial(t, path)

	if err := assetproto.WriteMessage(conn, assetproto.Message{Type: assetproto.TypeAssetUpload, Payload: make([]byte, 64)}); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	// The server closes with the frame body unread, so the client may
	// see a reset rather than a clean EOF.
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if msg, err := assetproto.ReadMessage(conn, 0); err == nil {
		t.Errorf("ReadMessage after oversized frame returned %v, want connection closed", msg.Type)
	} else if errors.Is(err, os.ErrDeadlineExceeded) {
		t.Error("connection still open after oversized frame")
	}
	testutil.RequireNoReceive(t, seen, 50*time.Millisecond, "oversized frame reached the handler")
}

func TestSocketServerShutdownClosesIdleConnections(t *testing.T) {
	path := testSocketPath(t)
	server := NewSocketServer(SocketConfig{Path: path}, HandlerFunc(func(context.Context, *Sender, assetproto.Message) {}), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()
	waitForSocket(t, path)

	conn := dial(t, path)
	if err := assetproto.WriteMessage(conn, assetproto.Message{Type: assetproto.TypeAssetGetInfo}); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	cancel()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "Serve did not return after cancel"); err != nil {
		t.Errorf("Serve: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("socket file still present after shutdown: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if msg, err := assetproto.ReadMessage(conn, 0); err == nil {
		t.Errorf("ReadMessage after shutdown returned %v, want connection closed", msg.Type)
	} else if errors.Is(err, os.ErrDeadlineExceeded) {
		t.Error("connection still open after shutdown")
	}
}

func TestSenderSerializesConcurrentWrites(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	sender := newSender(server, UnknownUID, false)

	const writers = 8
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			payload := bytes.Repeat([]byte{byte(i)}, 4096)
			if err := sender.Send(assetproto.Message{Type: assetproto.TypeAssetGetReply, Payload: payload}); err != nil {
				t.Errorf("Send: %v", err)
			}
		}()
	}

	for range writers {
		msg, err := assetproto.ReadMessage(client, 0)
		if err != nil {
			t.Fatalf("ReadMessage: %v", err)
		}
		if len(msg.Payload) != 4096 {
			t.Fatalf("payload is %d bytes, want 4096", len(msg.Payload))
		}
		for _, b := range msg.Payload {
			if b != msg.Payload[0] {
				t.Fatal("frames interleaved")
			}
		}
	}
	wg.Wait()
}

func TestServeConnOverPipeHasUnknownUID(t *testing.T) {
	server, client := net.Pipe()
	seen := make(chan *Sender, 1)
	socketServer := NewSocketServer(SocketConfig{Upload: UploadPolicy{AllowedUIDs: []int{0}}},
		HandlerFunc(func(_ context.Context, sender *Sender, _ assetproto.Message) {
			seen <- sender
		}), testLogger())

	done := make(chan struct{}, 1)
	go func() {
		socketServer.ServeConn(t.Context(), server)
		done <- struct{}{}
	}()

	if err := assetproto.WriteMessage(client, assetproto.Message{Type: assetproto.TypeAssetGet}); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	sender := testutil.RequireReceive(t, seen, 5*time.Second)
	if sender.UID != UnknownUID || sender.CanUpload {
		t.Errorf("sender = %s can_upload=%v, want unknown uid without upload", sender, sender.CanUpload)
	}

	client.Close()
	testutil.RequireReceive(t, done, 5*time.Second)
}

func TestIsClosedConnection(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{io.EOF, true},
		{fmt.Errorf("reading frame header: %w", io.EOF), true},
		{net.ErrClosed, true},
		{io.ErrClosedPipe, true},
		{&net.OpError{Op: "write", Err: os.NewSyscallError("write", syscall.EPIPE)}, true},
		{&net.OpError{Op: "read", Err: os.NewSyscallError("read", syscall.ECONNRESET)}, true},
		{io.ErrUnexpectedEOF, false},
		{assetproto.ErrMessageTooLarge, false},
	}
	for _, test := range tests {
		if got := IsClosedConnection(test.err); got != test.want {
			t.Errorf("IsClosedConnection(%v) = %v, want %v", test.err, got, test.want)
		}
	}
}
