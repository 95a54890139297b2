// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetproto

import (
	"errors"
	"fmt"
)

// MessageID correlates a reply with its request. Clients choose it; the
// service echoes it unchanged.
type MessageID uint32

// MessageType is the first byte of every framed message.
type MessageType uint8

const (
	TypeAssetGet                   MessageType = 0x01
	TypeAssetGetReply              MessageType = 0x02
	TypeAssetGetInfo               MessageType = 0x03
	TypeAssetGetInfoReply          MessageType = 0x04
	TypeAssetUpload                MessageType = 0x05
	TypeAssetUploadReply           MessageType = 0x06
	TypeAssetMappingOperation      MessageType = 0x07
	TypeAssetMappingOperationReply MessageType = 0x08
)

func (t MessageType) String() string {
	switch t {
	case TypeAssetGet:
		return "AssetGet"
	case TypeAssetGetReply:
		return "AssetGetReply"
	case TypeAssetGetInfo:
		return "AssetGetInfo"
	case TypeAssetGetInfoReply:
		return "AssetGetInfoReply"
	case TypeAssetUpload:
		return "AssetUpload"
	case TypeAssetUploadReply:
		return "AssetUploadReply"
	case TypeAssetMappingOperation:
		return "AssetMappingOperation"
	case TypeAssetMappingOperationReply:
		return "AssetMappingOperationReply"
	default:
		return fmt.Sprintf("MessageType(0x%02x)", uint8(t))
	}
}

// MappingOperationType selects the mapping sub-operation.
type MappingOperationType uint8

const (
	MappingGet    MappingOperationType = 0
	MappingSet    MappingOperationType = 1
	MappingDelete MappingOperationType = 2
)

func (o MappingOperationType) String() string {
	switch o {
	case MappingGet:
		return "get"
	case MappingSet:
		return "set"
	case MappingDelete:
		return "delete"
	default:
		return fmt.Sprintf("MappingOperationType(%d)", uint8(o))
	}
}

// ErrorCode is the result code carried in every reply.
type ErrorCode uint8

const (
	NoError          ErrorCode = 0
	AssetNotFound    ErrorCode = 1
	PermissionDenied ErrorCode = 2

	// FileOperationFailed reports a storage I/O failure while handling
	// an upload. The request was well-formed and permitted but the blob
	// could not be written.
	FileOperationFailed ErrorCode = 3
)

func (c ErrorCode) String() string {
	switch c {
	case NoError:
		return "NoError"
	case AssetNotFound:
		return "AssetNotFound"
	case PermissionDenied:
		return "PermissionDenied"
	case FileOperationFailed:
		return "FileOperationFailed"
	default:
		return fmt.Sprintf("ErrorCode(%d)", uint8(c))
	}
}

// ErrMalformed marks a message that cannot be decoded. The service
// drops such requests without replying.
var ErrMalformed = errors.New("malformed message")

// ErrUnknownType marks a message whose type byte is not a request (or,
// for DecodeReply, not a reply) this package knows.
var ErrUnknownType = errors.New("unknown message type")

// Fixed field sizes.
const (
	messageIDSize = 4
	codeSize      = 1
	offsetSize    = 8
	lengthSize    = 8
	stringLenSize = 4
)

// Minimum payload sizes for each request type.
const (
	MinGetRequestSize     = messageIDSize + hashSize + offsetSize + offsetSize
	MinGetInfoRequestSize = messageIDSize + hashSize
	MinUploadRequestSize  = messageIDSize + lengthSize
	MinMappingRequestSize = messageIDSize + 1 + stringLenSize
)

// Frame bytes around the blob data in an upload request and a get
// reply: type byte, message ID, then (reply only) the result code, then
// the data length.
const (
	uploadRequestOverhead = 1 + messageIDSize + lengthSize
	getReplyOverhead      = 1 + messageIDSize + codeSize + lengthSize
)

// MaxUploadData returns the largest blob one upload request can carry
// within maxMessageSize. Zero selects DefaultMaxMessageSize.
func MaxUploadData(maxMessageSize int) int64 {
	if maxMessageSize <= 0 {
		maxMessageSize = DefaultMaxMessageSize
	}
	return max(int64(maxMessageSize)-uploadRequestOverhead, 0)
}

// MaxGetReplyData returns the most data one get reply can carry within
// maxMessageSize. Zero selects DefaultMaxMessageSize.
func MaxGetReplyData(maxMessageSize int) int64 {
	if maxMessageSize <= 0 {
		maxMessageSize = DefaultMaxMessageSize
	}
	return max(int64(maxMessageSize)-getReplyOverhead, 0)
}
