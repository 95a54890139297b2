// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// bureau-asset is the command-line client for the asset service. It
// uploads files, inspects and downloads blobs by hash, and edits the
// path mapping table:
//
//	bureau-asset upload model.fbx --map /models/tree.fbx
//	bureau-asset info 3a7bd3e2360a3d29eea436fcfb7e44c735d117c42d1c1835420b6b9942dd4f1b
//	bureau-asset get --path /models/tree.fbx -o tree.fbx
//	bureau-asset map set /models/tree.fbx 3a7bd3e2...
//
// Every command takes --socket (default $BUREAU_ASSET_SOCKET, then
// /run/bureau/asset.sock) and --timeout.
package main
