// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetproto

import (
	"fmt"

	"github.com/bureau-foundation/bureau-asset/lib/asset"
)

// Reply is one service reply. The concrete type is one of the *Reply
// structs in this package.
type Reply interface {
	// ID returns the message ID of the request this answers.
	ID() MessageID

	// Result returns the reply's result code.
	Result() ErrorCode

	// Message encodes the reply for the wire.
	Message() Message
}

// MappingReply answers any mapping operation. Hash is set only for a
// successful Get.
type MappingReply struct {
	MessageID MessageID
	Code      ErrorCode
	Hash      asset.Hash
	HasHash   bool
}

// GetInfoReply answers a GetInfo request. Size is meaningful only when
// Code is NoError.
type GetInfoReply struct {
	MessageID MessageID
	Hash      asset.Hash
	Code      ErrorCode
	Size      uint64
}

// GetReply answers a Get request. Data holds the clamped range on
// NoError.
type GetReply struct {
	MessageID MessageID
	Code      ErrorCode
	Data      []byte
}

// UploadReply answers an Upload request. Hash is the content hash of
// the stored blob on NoError.
type UploadReply struct {
	MessageID MessageID
	Code      ErrorCode
	Hash      asset.Hash
}

func (r *MappingReply) ID() MessageID { return r.MessageID }
func (r *GetInfoReply) ID() MessageID { return r.MessageID }
func (r *GetReply) ID() MessageID     { return r.MessageID }
func (r *UploadReply) ID() MessageID  { return r.MessageID }

func (r *MappingReply) Result() ErrorCode { return r.Code }
func (r *GetInfoReply) Result() ErrorCode { return r.Code }
func (r *GetReply) Result() ErrorCode     { return r.Code }
func (r *UploadReply) Result() ErrorCode  { return r.Code }

// Message encodes the reply. A successful Get carries the hash as
// lowercase hex text; other results carry only the code.
func (r *MappingReply) Message() Message {
	var w payloadWriter
	w.messageID(r.MessageID)
	w.code(r.Code)
	if r.Code == NoError && r.HasHash {
		w.putString(r.Hash.String())
	}
	return Message{Type: TypeAssetMappingOperationReply, Payload: w}
}

func (r *GetInfoReply) Message() Message {
	var w payloadWriter
	w.messageID(r.MessageID)
	w.hash(r.Hash)
	w.code(r.Code)
	if r.Code == NoError {
		w.putUint64(r.Size)
	}
	return Message{Type: TypeAssetGetInfoReply, Payload: w}
}

func (r *GetReply) Message() Message {
	w := make(payloadWriter, 0, messageIDSize+codeSize+lengthSize+len(r.Data))
	w.messageID(r.MessageID)
	w.code(r.Code)
	if r.Code == NoError {
		w.putBytes(r.Data)
	}
	return Message{Type: TypeAssetGetReply, Payload: w}
}

func (r *UploadReply) Message() Message {
	var w payloadWriter
	w.messageID(r.MessageID)
	w.code(r.Code)
	if r.Code == NoError {
		w.hash(r.Hash)
	}
	return Message{Type: TypeAssetUploadReply, Payload: w}
}

// DecodeReply decodes a reply message into its typed variant.
func DecodeReply(msg Message) (Reply, error) {
	reader := &payloadReader{data: msg.Payload}
	var reply Reply

	switch msg.Type {
	case TypeAssetMappingOperationReply:
		mapping := &MappingReply{
			MessageID: reader.messageID(),
			Code:      ErrorCode(reader.readUint8("code")),
		}
		if reader.err == nil && mapping.Code == NoError && reader.remaining() > 0 {
			hash, err := parseHashField(reader)
			if err != nil {
				return nil, err
			}
			mapping.Hash = hash
			mapping.HasHash = true
		}
		reply = mapping

	case TypeAssetGetInfoReply:
		info := &GetInfoReply{
			MessageID: reader.messageID(),
			Hash:      reader.hash("hash"),
			Code:      ErrorCode(reader.readUint8("code")),
		}
		if info.Code == NoError {
			info.Size = reader.readUint64("size")
		}
		reply = info

	case TypeAssetGetReply:
		get := &GetReply{
			MessageID: reader.messageID(),
			Code:      ErrorCode(reader.readUint8("code")),
		}
		if get.Code == NoError {
			get.Data = reader.readBytes("data")
		}
		reply = get

	case TypeAssetUploadReply:
		upload := &UploadReply{
			MessageID: reader.messageID(),
			Code:      ErrorCode(reader.readUint8("code")),
		}
		if upload.Code == NoError {
			upload.Hash = reader.hash("hash")
		}
		reply = upload

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, msg.Type)
	}

	if reader.err != nil {
		return nil, fmt.Errorf("decoding %s: %w", msg.Type, reader.err)
	}
	return reply, nil
}

func parseHashField(reader *payloadReader) (asset.Hash, error) {
	text := reader.readString("hash")
	if reader.err != nil {
		return asset.Hash{}, reader.err
	}
	hash, err := asset.Parse(text)
	if err != nil {
		return asset.Hash{}, fmt.Errorf("%w: reply hash: %v", ErrMalformed, err)
	}
	return hash, nil
}
