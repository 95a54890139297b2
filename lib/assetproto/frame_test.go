// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetproto

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	var buffer bytes.Buffer
	first := Message{Type: TypeAssetGetInfo, Payload: []byte{1, 2, 3}}
	second := Message{Type: TypeAssetUpload, Payload: nil}

	if err := WriteMessage(&buffer, first); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if err := WriteMessage(&buffer, second); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	got, err := ReadMessage(&buffer, 0)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if got.Type != first.Type || !bytes.Equal(got.Payload, first.Payload) {
		t.Errorf("first message = %v %x, want %v %x", got.Type, got.Payload, first.Type, first.Payload)
	}

	got, err = ReadMessage(&buffer, 0)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if got.Type != second.Type || len(got.Payload) != 0 {
		t.Errorf("second message = %v %x, want %v with empty payload", got.Type, got.Payload, second.Type)
	}

	if _, err := ReadMessage(&buffer, 0); err != io.EOF {
		t.Errorf("ReadMessage at end = %v, want io.EOF", err)
	}
}

func TestFrameHeaderIsBigEndianLength(t *testing.T) {
	var buffer bytes.Buffer
	if err := WriteMessage(&buffer, Message{Type: TypeAssetGet, Payload: make([]byte, 300)}); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	raw := buffer.Bytes()
	if length := binary.BigEndian.Uint32(raw[:4]); length != 301 {
		t.Errorf("frame length = %d, want 301", length)
	}
	if raw[4] != byte(TypeAssetGet) {
		t.Errorf("type byte = 0x%02x, want 0x%02x", raw[4], byte(TypeAssetGet))
	}
}

func TestReadMessageRejectsOversizedFrame(t *testing.T) {
	var buffer bytes.Buffer
	if err := WriteMessage(&buffer, Message{Type: TypeAssetUpload, Payload: make([]byte, 100)}); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	_, err := ReadMessage(&buffer, 50)
	if !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("ReadMessage = %v, want ErrMessageTooLarge", err)
	}
}

func TestReadMessageRejectsEmptyFrame(t *testing.T) {
	_, err := ReadMessage(bytes.NewReader([]byte{0, 0, 0, 0}), 0)
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("ReadMessage = %v, want ErrMalformed", err)
	}
}

func TestReadMessageTruncatedBody(t *testing.T) {
	raw := []byte{0, 0, 0, 10, byte(TypeAssetGet), 1, 2}
	_, err := ReadMessage(bytes.NewReader(raw), 0)
	if err == nil || err == io.EOF {
		t.Fatalf("ReadMessage = %v, want a truncation error", err)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("ReadMessage = %v, want wrapped io.ErrUnexpectedEOF", err)
	}
}

func TestDataLimitsFillOneFrame(t *testing.T) {
	const limit = 1024

	upload := &UploadRequest{MessageID: 1, Data: make([]byte, MaxUploadData(limit))}
	get := &GetReply{MessageID: 2, Code: NoError, Data: make([]byte, MaxGetReplyData(limit))}

	for _, msg := range []Message{upload.Message(), get.Message()} {
		var buffer bytes.Buffer
		if err := WriteMessage(&buffer, msg); err != nil {
			t.Fatal(err)
		}
		if frameBody := buffer.Len() - 4; frameBody != limit {
			t.Errorf("%s frame body = %d bytes, want exactly %d", msg.Type, frameBody, limit)
		}
		if _, err := ReadMessage(&buffer, limit); err != nil {
			t.Errorf("%s: ReadMessage at the limit: %v", msg.Type, err)
		}
	}

	if MaxGetReplyData(0) != DefaultMaxMessageSize-14 {
		t.Errorf("MaxGetReplyData(0) = %d, want %d", MaxGetReplyData(0), DefaultMaxMessageSize-14)
	}
}
