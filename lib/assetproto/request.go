// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetproto

import (
	"fmt"

	"github.com/bureau-foundation/bureau-asset/lib/asset"
)

// Request is one decoded client request. The concrete type is one of
// the *Request structs in this package.
type Request interface {
	// ID returns the client-chosen message ID to echo in the reply.
	ID() MessageID

	// Message encodes the request for the wire.
	Message() Message
}

// MappingGetRequest resolves a logical path to a hash.
type MappingGetRequest struct {
	MessageID MessageID
	Path      string
}

// MappingSetRequest binds a logical path to a hash.
type MappingSetRequest struct {
	MessageID MessageID
	Path      string
	Hash      asset.Hash
}

// MappingDeleteRequest removes a logical path binding.
type MappingDeleteRequest struct {
	MessageID MessageID
	Path      string
}

// GetInfoRequest asks whether a blob exists and how large it is.
type GetInfoRequest struct {
	MessageID MessageID
	Hash      asset.Hash
}

// GetRequest asks for bytes [Start, End) of a blob. Offsets are clamped
// to the blob size by the service.
type GetRequest struct {
	MessageID MessageID
	Hash      asset.Hash
	Start     int64
	End       int64
}

// UploadRequest carries a complete blob to store.
type UploadRequest struct {
	MessageID MessageID
	Data      []byte
}

func (r *MappingGetRequest) ID() MessageID    { return r.MessageID }
func (r *MappingSetRequest) ID() MessageID    { return r.MessageID }
func (r *MappingDeleteRequest) ID() MessageID { return r.MessageID }
func (r *GetInfoRequest) ID() MessageID       { return r.MessageID }
func (r *GetRequest) ID() MessageID           { return r.MessageID }
func (r *UploadRequest) ID() MessageID        { return r.MessageID }

func (r *MappingGetRequest) Message() Message {
	return mappingMessage(r.MessageID, MappingGet, r.Path, nil)
}

// The hash travels as lowercase hex text in Set requests.
func (r *MappingSetRequest) Message() Message {
	return mappingMessage(r.MessageID, MappingSet, r.Path, func(w *payloadWriter) {
		w.putString(r.Hash.String())
	})
}

func (r *MappingDeleteRequest) Message() Message {
	return mappingMessage(r.MessageID, MappingDelete, r.Path, nil)
}

func mappingMessage(id MessageID, op MappingOperationType, path string, extra func(*payloadWriter)) Message {
	var w payloadWriter
	w.messageID(id)
	w.putUint8(uint8(op))
	w.putString(path)
	if extra != nil {
		extra(&w)
	}
	return Message{Type: TypeAssetMappingOperation, Payload: w}
}

func (r *GetInfoRequest) Message() Message {
	var w payloadWriter
	w.messageID(r.MessageID)
	w.hash(r.Hash)
	return Message{Type: TypeAssetGetInfo, Payload: w}
}

func (r *GetRequest) Message() Message {
	var w payloadWriter
	w.messageID(r.MessageID)
	w.hash(r.Hash)
	w.putInt64(r.Start)
	w.putInt64(r.End)
	return Message{Type: TypeAssetGet, Payload: w}
}

func (r *UploadRequest) Message() Message {
	w := make(payloadWriter, 0, MinUploadRequestSize+len(r.Data))
	w.messageID(r.MessageID)
	w.putBytes(r.Data)
	return Message{Type: TypeAssetUpload, Payload: w}
}

// PeekMessageID reads the leading message ID of a request payload
// without decoding the rest. The service uses it to address a
// PermissionDenied reply to an upload whose body it never parses.
func PeekMessageID(payload []byte) (MessageID, error) {
	reader := payloadReader{data: payload}
	id := reader.messageID()
	if reader.err != nil {
		return 0, reader.err
	}
	return id, nil
}

// DecodeRequest decodes a request message into its typed variant.
// Errors wrap ErrMalformed for unparseable payloads and ErrUnknownType
// for non-request message types.
func DecodeRequest(msg Message) (Request, error) {
	reader := &payloadReader{data: msg.Payload}
	var request Request

	switch msg.Type {
	case TypeAssetGet:
		if len(msg.Payload) < MinGetRequestSize {
			return nil, fmt.Errorf("%w: get request is %d bytes, need %d", ErrMalformed, len(msg.Payload), MinGetRequestSize)
		}
		get := &GetRequest{
			MessageID: reader.messageID(),
			Hash:      reader.hash("hash"),
			Start:     reader.readInt64("start"),
			End:       reader.readInt64("end"),
		}
		if get.Start < 0 || get.End < 0 {
			return nil, fmt.Errorf("%w: negative range [%d, %d)", ErrMalformed, get.Start, get.End)
		}
		request = get

	case TypeAssetGetInfo:
		if len(msg.Payload) < MinGetInfoRequestSize {
			return nil, fmt.Errorf("%w: get-info request is %d bytes, need %d", ErrMalformed, len(msg.Payload), MinGetInfoRequestSize)
		}
		request = &GetInfoRequest{
			MessageID: reader.messageID(),
			Hash:      reader.hash("hash"),
		}

	case TypeAssetUpload:
		if len(msg.Payload) < MinUploadRequestSize {
			return nil, fmt.Errorf("%w: upload request is %d bytes, need %d", ErrMalformed, len(msg.Payload), MinUploadRequestSize)
		}
		request = &UploadRequest{
			MessageID: reader.messageID(),
			Data:      reader.readBytes("data"),
		}

	case TypeAssetMappingOperation:
		decoded, err := decodeMapping(reader)
		if err != nil {
			return nil, err
		}
		request = decoded

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, msg.Type)
	}

	if reader.err != nil {
		return nil, fmt.Errorf("decoding %s: %w", msg.Type, reader.err)
	}
	return request, nil
}

func decodeMapping(reader *payloadReader) (Request, error) {
	if reader.remaining() < MinMappingRequestSize {
		return nil, fmt.Errorf("%w: mapping request is %d bytes, need %d", ErrMalformed, reader.remaining(), MinMappingRequestSize)
	}

	id := reader.messageID()
	op := MappingOperationType(reader.readUint8("operation"))
	path := reader.readString("path")

	switch op {
	case MappingGet:
		return &MappingGetRequest{MessageID: id, Path: path}, nil
	case MappingDelete:
		return &MappingDeleteRequest{MessageID: id, Path: path}, nil
	case MappingSet:
		text := reader.readString("hash")
		if reader.err != nil {
			return nil, reader.err
		}
		hash, err := asset.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("%w: set hash: %v", ErrMalformed, err)
		}
		return &MappingSetRequest{MessageID: id, Path: path, Hash: hash}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrMalformed, op)
	}
}
