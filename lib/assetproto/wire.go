// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetproto

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/bureau-foundation/bureau-asset/lib/asset"
)

const hashSize = asset.HashSize

// payloadReader reads little-endian fields from a payload. The first
// short read sets err; later reads return zero values, so a decoder
// can read every field and check err once.
type payloadReader struct {
	data   []byte
	offset int
	err    error
}

func (r *payloadReader) take(n int, field string) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.data)-r.offset < n {
		r.err = fmt.Errorf("%w: %s needs %d bytes at offset %d, have %d",
			ErrMalformed, field, n, r.offset, len(r.data)-r.offset)
		return nil
	}
	chunk := r.data[r.offset : r.offset+n]
	r.offset += n
	return chunk
}

func (r *payloadReader) readUint8(field string) uint8 {
	if b := r.take(1, field); b != nil {
		return b[0]
	}
	return 0
}

func (r *payloadReader) readUint32(field string) uint32 {
	if b := r.take(4, field); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *payloadReader) readUint64(field string) uint64 {
	if b := r.take(8, field); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (r *payloadReader) readInt64(field string) int64 {
	return int64(r.readUint64(field))
}

func (r *payloadReader) messageID() MessageID {
	return MessageID(r.readUint32("message id"))
}

func (r *payloadReader) hash(field string) asset.Hash {
	var hash asset.Hash
	if b := r.take(hashSize, field); b != nil {
		copy(hash[:], b)
	}
	return hash
}

// readBytes reads a uint64 length and that many bytes. The result is a
// copy, so it stays valid after the frame buffer is reused.
func (r *payloadReader) readBytes(field string) []byte {
	length := r.readUint64(field + " length")
	if r.err != nil {
		return nil
	}
	if length > uint64(len(r.data)-r.offset) {
		r.err = fmt.Errorf("%w: %s claims %d bytes, have %d", ErrMalformed, field, length, len(r.data)-r.offset)
		return nil
	}
	chunk := r.take(int(length), field)
	if chunk == nil {
		return nil
	}
	return append(make([]byte, 0, len(chunk)), chunk...)
}

func (r *payloadReader) readString(field string) string {
	length := r.readUint32(field + " length")
	if r.err != nil {
		return ""
	}
	if uint64(length) > uint64(len(r.data)-r.offset) {
		r.err = fmt.Errorf("%w: %s claims %d bytes, have %d", ErrMalformed, field, length, len(r.data)-r.offset)
		return ""
	}
	chunk := r.take(int(length), field)
	if chunk == nil {
		return ""
	}
	if !utf8.Valid(chunk) {
		r.err = fmt.Errorf("%w: %s is not valid UTF-8", ErrMalformed, field)
		return ""
	}
	return string(chunk)
}

func (r *payloadReader) remaining() int {
	return len(r.data) - r.offset
}

// payloadWriter appends little-endian fields.
type payloadWriter []byte

func (w *payloadWriter) putUint8(v uint8) {
	*w = append(*w, v)
}

func (w *payloadWriter) putUint32(v uint32) {
	*w = binary.LittleEndian.AppendUint32(*w, v)
}

func (w *payloadWriter) putUint64(v uint64) {
	*w = binary.LittleEndian.AppendUint64(*w, v)
}

func (w *payloadWriter) putInt64(v int64) {
	w.putUint64(uint64(v))
}

func (w *payloadWriter) messageID(id MessageID) {
	w.putUint32(uint32(id))
}

func (w *payloadWriter) code(code ErrorCode) {
	w.putUint8(uint8(code))
}

func (w *payloadWriter) hash(hash asset.Hash) {
	*w = append(*w, hash[:]...)
}

func (w *payloadWriter) putBytes(data []byte) {
	w.putUint64(uint64(len(data)))
	*w = append(*w, data...)
}

func (w *payloadWriter) putString(s string) {
	w.putUint32(uint32(len(s)))
	*w = append(*w, s...)
}
