// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetproto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxMessageSize bounds a single framed message (type byte plus
// payload). Uploads carry the whole blob in one message, so this is
// also the largest asset a client can upload.
const DefaultMaxMessageSize = 64 << 20

// ErrMessageTooLarge is returned by ReadMessage when a frame header
// announces more bytes than the configured limit. The connection
// cannot be resynchronized after this.
var ErrMessageTooLarge = errors.New("message exceeds maximum size")

// Message is one framed protocol message.
type Message struct {
	Type    MessageType
	Payload []byte
}

// ReadMessage reads one frame from r. maxSize bounds the frame body
// (type byte plus payload); zero selects DefaultMaxMessageSize. Returns
// io.EOF unchanged on a clean close between frames.
func ReadMessage(r io.Reader, maxSize int) (Message, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxMessageSize
	}

	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Message{}, io.EOF
		}
		return Message{}, fmt.Errorf("reading frame header: %w", err)
	}

	length := binary.BigEndian.Uint32(header[:])
	if length == 0 {
		return Message{}, fmt.Errorf("%w: empty frame", ErrMalformed)
	}
	if uint64(length) > uint64(maxSize) {
		return Message{}, fmt.Errorf("%w: %d bytes (limit %d)", ErrMessageTooLarge, length, maxSize)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return Message{}, fmt.Errorf("reading %d-byte frame body: %w", length, err)
	}

	return Message{Type: MessageType(body[0]), Payload: body[1:]}, nil
}

// WriteMessage writes msg as a single frame. The header, type, and
// payload go out in one Write call; callers sharing a connection
// between goroutines must still serialize calls.
func WriteMessage(w io.Writer, msg Message) error {
	length := 1 + len(msg.Payload)
	if uint64(length) > uint64(^uint32(0)) {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, length)
	}

	frame := make([]byte, 4, 4+length)
	binary.BigEndian.PutUint32(frame, uint32(length))
	frame = append(frame, byte(msg.Type))
	frame = append(frame, msg.Payload...)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("writing %s frame: %w", msg.Type, err)
	}
	return nil
}
