// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bureau-foundation/bureau-asset/lib/assetmapping"
	"github.com/bureau-foundation/bureau-asset/lib/assetproto"
	"github.com/bureau-foundation/bureau-asset/lib/assetstore"
	"github.com/bureau-foundation/bureau-asset/lib/service"
	"github.com/bureau-foundation/bureau-asset/lib/workerpool"
)

// AssetService is the core service state. The store and mapping table
// are shared by every connection; the pool runs content reads and
// uploads.
type AssetService struct {
	store    *assetstore.Store
	mappings *assetmapping.Table
	pool     *workerpool.Pool
	logger   *slog.Logger

	// maxMessageSize is the transport frame limit. Get replies are cut
	// to fit within it. Zero selects assetproto.DefaultMaxMessageSize.
	maxMessageSize int
}

// HandleMessage dispatches one framed request from sender.
func (as *AssetService) HandleMessage(ctx context.Context, sender *service.Sender, msg assetproto.Message) {
	if msg.Type == assetproto.TypeAssetUpload && !sender.CanUpload {
		as.denyUpload(sender, msg)
		return
	}

	request, err := assetproto.DecodeRequest(msg)
	if err != nil {
		as.logger.Debug("dropping request",
			"type", msg.Type.String(),
			"connection", sender.ID.String(),
			"error", err,
		)
		return
	}

	switch request := request.(type) {
	case *assetproto.MappingGetRequest:
		if as.validPath(sender, request.Path) {
			as.handleMappingGet(sender, request)
		}
	case *assetproto.MappingSetRequest:
		if as.validPath(sender, request.Path) {
			as.handleMappingSet(sender, request)
		}
	case *assetproto.MappingDeleteRequest:
		if as.validPath(sender, request.Path) {
			as.handleMappingDelete(sender, request)
		}
	case *assetproto.GetInfoRequest:
		as.handleGetInfo(sender, request)
	case *assetproto.GetRequest:
		limit := assetproto.MaxGetReplyData(as.maxMessageSize)
		as.pool.Submit(ctx, fetchTask(as.store, sender, *request, limit, as.logger))
	case *assetproto.UploadRequest:
		as.pool.Submit(ctx, storeTask(as.store, sender, request.MessageID, request.Data, as.logger))
	}
}

// denyUpload refuses an upload without decoding its body. If not even
// the message ID can be read there is nobody to address, so nothing is
// sent.
func (as *AssetService) denyUpload(sender *service.Sender, msg assetproto.Message) {
	id, err := assetproto.PeekMessageID(msg.Payload)
	if err != nil {
		as.logger.Debug("dropping unaddressable upload", "connection", sender.ID.String(), "error", err)
		return
	}
	as.logger.Info("upload denied",
		"connection", sender.ID.String(),
		"uid", sender.UID,
		"message_id", id,
	)
	sendReply(sender, &assetproto.UploadReply{MessageID: id, Code: assetproto.PermissionDenied}, as.logger)
}

func (as *AssetService) validPath(sender *service.Sender, path string) bool {
	if err := assetmapping.ValidatePath(path); err != nil {
		as.logger.Debug("dropping mapping request", "connection", sender.ID.String(), "error", err)
		return false
	}
	return true
}

func (as *AssetService) handleMappingGet(sender *service.Sender, request *assetproto.MappingGetRequest) {
	reply := &assetproto.MappingReply{MessageID: request.MessageID, Code: assetproto.AssetNotFound}
	if hash, ok := as.mappings.Get(request.Path); ok {
		reply.Code = assetproto.NoError
		reply.Hash = hash
		reply.HasHash = true
	}
	sendReply(sender, reply, as.logger)
}

// handleMappingSet binds unconditionally; the hash is not checked
// against the store.
func (as *AssetService) handleMappingSet(sender *service.Sender, request *assetproto.MappingSetRequest) {
	as.mappings.Set(request.Path, request.Hash)
	as.logger.Debug("mapping set", "path", request.Path, "hash", request.Hash.String())
	sendReply(sender, &assetproto.MappingReply{MessageID: request.MessageID, Code: assetproto.NoError}, as.logger)
}

func (as *AssetService) handleMappingDelete(sender *service.Sender, request *assetproto.MappingDeleteRequest) {
	existed := as.mappings.Delete(request.Path)
	as.logger.Debug("mapping deleted", "path", request.Path, "existed", existed)
	sendReply(sender, &assetproto.MappingReply{MessageID: request.MessageID, Code: assetproto.NoError}, as.logger)
}

func (as *AssetService) handleGetInfo(sender *service.Sender, request *assetproto.GetInfoRequest) {
	reply := &assetproto.GetInfoReply{
		MessageID: request.MessageID,
		Hash:      request.Hash,
		Code:      assetproto.AssetNotFound,
	}
	exists, size, err := as.store.Exists(request.Hash)
	switch {
	case err != nil:
		as.logger.Error("asset stat failed", "hash", request.Hash.String(), "error", err)
	case exists:
		reply.Code = assetproto.NoError
		reply.Size = uint64(size)
	}
	sendReply(sender, reply, as.logger)
}

// fetchTask reads the requested range on a worker. The request is
// copied into the task. At most limit bytes are read, so the reply
// always fits in one frame; clients continue from the short result.
func fetchTask(store *assetstore.Store, sender *service.Sender, request assetproto.GetRequest, limit int64, logger *slog.Logger) workerpool.Task {
	if request.End > request.Start && request.End-request.Start > limit {
		request.End = request.Start + limit
	}
	return func(context.Context) {
		reply := &assetproto.GetReply{MessageID: request.MessageID, Code: assetproto.NoError}
		data, err := store.ReadRange(request.Hash, request.Start, request.End)
		switch {
		case errors.Is(err, assetstore.ErrNotFound):
			reply.Code = assetproto.AssetNotFound
		case err != nil:
			logger.Error("asset read failed", "hash", request.Hash.String(), "error", err)
			reply.Code = assetproto.AssetNotFound
		default:
			reply.Data = data
		}
		sendReply(sender, reply, logger)
	}
}

// storeTask writes an uploaded blob on a worker. The task takes
// ownership of data; no mapping entry is created.
func storeTask(store *assetstore.Store, sender *service.Sender, id assetproto.MessageID, data []byte, logger *slog.Logger) workerpool.Task {
	return func(context.Context) {
		hash, err := store.Write(data)
		if err != nil {
			logger.Error("asset store failed",
				"hash", hash.String(),
				"size", len(data),
				"error", err,
			)
			sendReply(sender, &assetproto.UploadReply{MessageID: id, Code: assetproto.FileOperationFailed}, logger)
			return
		}
		logger.Debug("asset stored", "hash", hash.String(), "size", len(data))
		sendReply(sender, &assetproto.UploadReply{MessageID: id, Code: assetproto.NoError, Hash: hash}, logger)
	}
}

// sendReply writes a reply. A peer that has gone away is not an error
// for the service.
func sendReply(sender *service.Sender, reply assetproto.Reply, logger *slog.Logger) {
	err := sender.Send(reply.Message())
	if err == nil {
		return
	}
	level := slog.LevelWarn
	if service.IsClosedConnection(err) {
		level = slog.LevelDebug
	}
	logger.Log(context.Background(), level, "reply not delivered",
		"connection", sender.ID.String(),
		"message_id", reply.ID(),
		"error", err,
	)
}
