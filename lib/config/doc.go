// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the asset
// service.
//
// Configuration is loaded from a single file specified by either the
// BUREAU_ASSET_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There is no automatic file search.
//
// The file may carry environment-specific sections (development,
// staging, production) that override base values when
// [Config].Environment matches. Production is stricter by default:
// upload.allow_all is forced off, so only listed UIDs may upload.
//
// After loading, ${HOME}, ${BUREAU_ASSET_DATA}, and ${VAR:-default}
// patterns are expanded in path fields, and a relative storage root is
// resolved under <paths.data>/assets/. [Config.Validate] reports every
// problem at once.
package config
