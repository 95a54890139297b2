// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/bureau-foundation/bureau-asset/lib/asset"
	"github.com/bureau-foundation/bureau-asset/lib/assetproto"
)

var (
	// ErrNotFound is returned for an AssetNotFound reply.
	ErrNotFound = errors.New("asset not found")

	// ErrPermissionDenied is returned when the service refuses an
	// upload from this connection.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrFileOperation is returned when the service failed to store an
	// upload.
	ErrFileOperation = errors.New("service file operation failed")

	// ErrClosed is returned for calls on a closed client, and for calls
	// in flight when the connection drops.
	ErrClosed = errors.New("asset client closed")
)

// Client is a multiplexed connection to the asset service.
type Client struct {
	conn net.Conn

	nextID  atomic.Uint32
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[assetproto.MessageID]chan assetproto.Reply
	readErr error

	// done is closed when the reader goroutine exits.
	done chan struct{}
}

// Dial connects to the service socket at socketPath.
func Dial(ctx context.Context, socketPath string) (*Client, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting to asset service at %s: %w", socketPath, err)
	}
	return New(conn), nil
}

// New wraps an established connection. The client owns conn from here
// on and closes it in Close.
func New(conn net.Conn) *Client {
	client := &Client{
		conn:    conn,
		pending: make(map[assetproto.MessageID]chan assetproto.Reply),
		done:    make(chan struct{}),
	}
	go client.readLoop()
	return client
}

// Close closes the connection. Calls waiting for replies return
// ErrClosed.
func (c *Client) Close() error {
	err := c.conn.Close()
	<-c.done
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Upload stores data and returns its content hash.
func (c *Client) Upload(ctx context.Context, data []byte) (asset.Hash, error) {
	reply, err := c.roundTrip(ctx, func(id assetproto.MessageID) assetproto.Request {
		return &assetproto.UploadRequest{MessageID: id, Data: data}
	})
	if err != nil {
		return asset.Hash{}, err
	}
	upload, ok := reply.(*assetproto.UploadReply)
	if !ok {
		return asset.Hash{}, unexpectedReply(reply)
	}
	if err := codeError(upload.Code); err != nil {
		return asset.Hash{}, fmt.Errorf("uploading %d bytes: %w", len(data), err)
	}
	return upload.Hash, nil
}

// GetInfo returns the size of the blob with the given hash.
func (c *Client) GetInfo(ctx context.Context, hash asset.Hash) (uint64, error) {
	reply, err := c.roundTrip(ctx, func(id assetproto.MessageID) assetproto.Request {
		return &assetproto.GetInfoRequest{MessageID: id, Hash: hash}
	})
	if err != nil {
		return 0, err
	}
	info, ok := reply.(*assetproto.GetInfoReply)
	if !ok {
		return 0, unexpectedReply(reply)
	}
	if err := codeError(info.Code); err != nil {
		return 0, fmt.Errorf("info for %s: %w", hash, err)
	}
	return info.Size, nil
}

// Get returns bytes [start, end) of a blob. The service clamps the
// range to the blob, so the result may be shorter than requested.
func (c *Client) Get(ctx context.Context, hash asset.Hash, start, end int64) ([]byte, error) {
	if start < 0 || end < 0 {
		return nil, fmt.Errorf("invalid range [%d, %d)", start, end)
	}
	reply, err := c.roundTrip(ctx, func(id assetproto.MessageID) assetproto.Request {
		return &assetproto.GetRequest{MessageID: id, Hash: hash, Start: start, End: end}
	})
	if err != nil {
		return nil, err
	}
	get, ok := reply.(*assetproto.GetReply)
	if !ok {
		return nil, unexpectedReply(reply)
	}
	if err := codeError(get.Code); err != nil {
		return nil, fmt.Errorf("reading %s: %w", hash, err)
	}
	return get.Data, nil
}

// GetMapping resolves a logical path.
func (c *Client) GetMapping(ctx context.Context, path string) (asset.Hash, error) {
	reply, err := c.mapping(ctx, func(id assetproto.MessageID) assetproto.Request {
		return &assetproto.MappingGetRequest{MessageID: id, Path: path}
	})
	if err != nil {
		return asset.Hash{}, fmt.Errorf("resolving %q: %w", path, err)
	}
	if !reply.HasHash {
		return asset.Hash{}, fmt.Errorf("resolving %q: reply carried no hash", path)
	}
	return reply.Hash, nil
}

// SetMapping binds path to hash, replacing any previous binding.
func (c *Client) SetMapping(ctx context.Context, path string, hash asset.Hash) error {
	_, err := c.mapping(ctx, func(id assetproto.MessageID) assetproto.Request {
		return &assetproto.MappingSetRequest{MessageID: id, Path: path, Hash: hash}
	})
	if err != nil {
		return fmt.Errorf("mapping %q: %w", path, err)
	}
	return nil
}

// DeleteMapping removes a binding. Deleting an absent path succeeds.
func (c *Client) DeleteMapping(ctx context.Context, path string) error {
	_, err := c.mapping(ctx, func(id assetproto.MessageID) assetproto.Request {
		return &assetproto.MappingDeleteRequest{MessageID: id, Path: path}
	})
	if err != nil {
		return fmt.Errorf("unmapping %q: %w", path, err)
	}
	return nil
}

func (c *Client) mapping(ctx context.Context, build func(assetproto.MessageID) assetproto.Request) (*assetproto.MappingReply, error) {
	reply, err := c.roundTrip(ctx, build)
	if err != nil {
		return nil, err
	}
	mapping, ok := reply.(*assetproto.MappingReply)
	if !ok {
		return nil, unexpectedReply(reply)
	}
	if err := codeError(mapping.Code); err != nil {
		return nil, err
	}
	return mapping, nil
}

// roundTrip sends the request built for a fresh message ID and waits
// for the matching reply.
func (c *Client) roundTrip(ctx context.Context, build func(assetproto.MessageID) assetproto.Request) (assetproto.Reply, error) {
	id := assetproto.MessageID(c.nextID.Add(1))
	replies := make(chan assetproto.Reply, 1)

	c.mu.Lock()
	if c.readErr != nil {
		err := c.readErr
		c.mu.Unlock()
		return nil, err
	}
	c.pending[id] = replies
	c.mu.Unlock()

	forget := func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}

	request := build(id)
	c.writeMu.Lock()
	err := assetproto.WriteMessage(c.conn, request.Message())
	c.writeMu.Unlock()
	if err != nil {
		forget()
		return nil, fmt.Errorf("sending request %d: %w", id, err)
	}

	select {
	case reply := <-replies:
		return reply, nil
	case <-c.done:
		// The reader may have delivered just before exiting.
		select {
		case reply := <-replies:
			return reply, nil
		default:
		}
		c.mu.Lock()
		err := c.readErr
		c.mu.Unlock()
		return nil, err
	case <-ctx.Done():
		forget()
		return nil, ctx.Err()
	}
}

// readLoop routes replies to waiters until the connection fails.
func (c *Client) readLoop() {
	defer close(c.done)

	for {
		msg, err := assetproto.ReadMessage(c.conn, 0)
		if err != nil {
			c.fail(fmt.Errorf("%w: %v", ErrClosed, err))
			return
		}
		reply, err := assetproto.DecodeReply(msg)
		if err != nil {
			c.fail(fmt.Errorf("%w: undecodable reply: %v", ErrClosed, err))
			c.conn.Close()
			return
		}

		c.mu.Lock()
		waiter, ok := c.pending[reply.ID()]
		delete(c.pending, reply.ID())
		c.mu.Unlock()

		// A reply for an abandoned request is dropped.
		if ok {
			waiter <- reply
		}
	}
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr == nil {
		c.readErr = err
	}
	clear(c.pending)
}

func codeError(code assetproto.ErrorCode) error {
	switch code {
	case assetproto.NoError:
		return nil
	case assetproto.AssetNotFound:
		return ErrNotFound
	case assetproto.PermissionDenied:
		return ErrPermissionDenied
	case assetproto.FileOperationFailed:
		return ErrFileOperation
	default:
		return fmt.Errorf("unknown result code %s", code)
	}
}

func unexpectedReply(reply assetproto.Reply) error {
	return fmt.Errorf("unexpected %T for request %d", reply, reply.ID())
}
