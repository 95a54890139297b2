// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/bureau-asset/lib/assetmapping"
	"github.com/bureau-foundation/bureau-asset/lib/assetproto"
	"github.com/bureau-foundation/bureau-asset/lib/workerpool"
)

// EnvironmentVariable names the variable Load reads the config path
// from.
const EnvironmentVariable = "BUREAU_ASSET_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the asset service configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	Paths PathsConfig `yaml:"paths"`

	// Workers is the number of worker pool slots for content reads
	// and uploads.
	Workers int `yaml:"workers"`

	Mapping   MappingConfig   `yaml:"mapping"`
	Upload    UploadConfig    `yaml:"upload"`
	Transport TransportConfig `yaml:"transport"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Paths    *PathsConfig    `yaml:"paths,omitempty"`
	Workers  int             `yaml:"workers,omitempty"`
	Upload   *UploadOverride `yaml:"upload,omitempty"`
	LogLevel string          `yaml:"log_level,omitempty"`
}

// UploadOverride uses a pointer for AllowAll so an override can turn it
// off explicitly.
type UploadOverride struct {
	AllowAll    *bool `yaml:"allow_all,omitempty"`
	AllowedUIDs []int `yaml:"allowed_uids,omitempty"`
}

// PathsConfig configures file system locations.
type PathsConfig struct {
	// Data is the service's data directory.
	Data string `yaml:"data"`

	// StorageRoot is the blob directory. Empty means <Data>/assets; a
	// relative path is taken relative to <Data>/assets.
	StorageRoot string `yaml:"storage_root"`

	// LegacyAssets is copied into an empty storage root at startup.
	// Default: resources/assets next to the executable.
	LegacyAssets string `yaml:"legacy_assets"`

	// Socket is the Unix socket the service listens on.
	Socket string `yaml:"socket"`

	// Mapping is the mapping journal directory.
	Mapping string `yaml:"mapping"`
}

// MappingConfig selects the mapping journal backend.
type MappingConfig struct {
	// Backend is files, bolt, or memory.
	Backend string `yaml:"backend"`
}

// UploadConfig decides which peers may upload.
type UploadConfig struct {
	AllowAll    bool  `yaml:"allow_all"`
	AllowedUIDs []int `yaml:"allowed_uids"`
}

// TransportConfig configures the socket transport.
type TransportConfig struct {
	// MaxMessageSize bounds a single frame, and with it the largest
	// uploadable asset.
	MaxMessageSize int `yaml:"max_message_size"`
}

// Default returns the default configuration, used as the base the
// config file is merged into.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".local", "share", "bureau-asset")

	legacyAssets := ""
	if executable, err := os.Executable(); err == nil {
		legacyAssets = filepath.Join(filepath.Dir(executable), "resources", "assets")
	}

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Data:         dataDir,
			LegacyAssets: legacyAssets,
			Socket:       "/run/bureau/asset.sock",
			Mapping:      filepath.Join("${BUREAU_ASSET_DATA}", "mappings"),
		},
		Workers: workerpool.DefaultSize,
		Mapping: MappingConfig{
			Backend: assetmapping.BackendFiles,
		},
		Upload: UploadConfig{
			AllowAll: true,
		},
		Transport: TransportConfig{
			MaxMessageSize: assetproto.DefaultMaxMessageSize,
		},
		LogLevel: "info",
	}
}

// Load loads configuration from the file named by BUREAU_ASSET_CONFIG.
// There is no fallback when it is unset.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your asset service config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	cfg.resolveStorageRoot()

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &ConfigOverrides{}
		}
		if overrides.Upload == nil {
			overrides.Upload = &UploadOverride{}
		}
		if overrides.Upload.AllowAll == nil {
			allowAll := false
			overrides.Upload.AllowAll = &allowAll
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Paths != nil {
		if overrides.Paths.Data != "" {
			c.Paths.Data = overrides.Paths.Data
		}
		if overrides.Paths.StorageRoot != "" {
			c.Paths.StorageRoot = overrides.Paths.StorageRoot
		}
		if overrides.Paths.LegacyAssets != "" {
			c.Paths.LegacyAssets = overrides.Paths.LegacyAssets
		}
		if overrides.Paths.Socket != "" {
			c.Paths.Socket = overrides.Paths.Socket
		}
		if overrides.Paths.Mapping != "" {
			c.Paths.Mapping = overrides.Paths.Mapping
		}
	}

	if overrides.Workers != 0 {
		c.Workers = overrides.Workers
	}

	if overrides.Upload != nil {
		if overrides.Upload.AllowAll != nil {
			c.Upload.AllowAll = *overrides.Upload.AllowAll
		}
		if len(overrides.Upload.AllowedUIDs) > 0 {
			c.Upload.AllowedUIDs = overrides.Upload.AllowedUIDs
		}
	}

	if overrides.LogLevel != "" {
		c.LogLevel = overrides.LogLevel
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"BUREAU_ASSET_DATA": c.Paths.Data,
		"HOME":              os.Getenv("HOME"),
	}

	c.Paths.Data = expandVars(c.Paths.Data, vars)
	vars["BUREAU_ASSET_DATA"] = c.Paths.Data

	c.Paths.StorageRoot = expandVars(c.Paths.StorageRoot, vars)
	c.Paths.LegacyAssets = expandVars(c.Paths.LegacyAssets, vars)
	c.Paths.Socket = expandVars(c.Paths.Socket, vars)
	c.Paths.Mapping = expandVars(c.Paths.Mapping, vars)
}

// resolveStorageRoot makes StorageRoot absolute. Relative roots live
// under <Data>/assets/.
func (c *Config) resolveStorageRoot() {
	assetsDir := filepath.Join(c.Paths.Data, "assets")
	switch {
	case c.Paths.StorageRoot == "":
		c.Paths.StorageRoot = assetsDir
	case !filepath.IsAbs(c.Paths.StorageRoot):
		c.Paths.StorageRoot = filepath.Join(assetsDir, c.Paths.StorageRoot)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}. Provided vars take
// precedence over the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Paths.Data == "" {
		errs = append(errs, errors.New("paths.data is required"))
	}
	if c.Paths.StorageRoot == "" {
		errs = append(errs, errors.New("paths.storage_root is required"))
	}
	if c.Paths.Socket == "" {
		errs = append(errs, errors.New("paths.socket is required"))
	}

	backends := []string{assetmapping.BackendFiles, assetmapping.BackendBolt, assetmapping.BackendMemory}
	if !slices.Contains(backends, c.Mapping.Backend) {
		errs = append(errs, fmt.Errorf("mapping.backend must be one of: %v", backends))
	}
	if c.Mapping.Backend != assetmapping.BackendMemory && c.Paths.Mapping == "" {
		errs = append(errs, fmt.Errorf("paths.mapping is required for the %s backend", c.Mapping.Backend))
	}

	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}

	if c.Transport.MaxMessageSize < assetproto.MinGetRequestSize+1 {
		errs = append(errs, fmt.Errorf("transport.max_message_size %d is too small", c.Transport.MaxMessageSize))
	}

	for _, uid := range c.Upload.AllowedUIDs {
		if uid < 0 {
			errs = append(errs, fmt.Errorf("upload.allowed_uids contains negative uid %d", uid))
		}
	}

	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// EnsurePaths creates the data, storage, and mapping directories.
func (c *Config) EnsurePaths() error {
	paths := []string{c.Paths.Data, c.Paths.StorageRoot}
	if c.Mapping.Backend != assetmapping.BackendMemory {
		paths = append(paths, c.Paths.Mapping)
	}
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}
