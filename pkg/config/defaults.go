package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/inodefs/pkg/semantics"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", nil) are replaced with defaults
//   - Explicit values are preserved
//   - Option maps of every backend get defaults, so a generated sample shows them
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyContainerDefaults(&cfg.Container)
	applyStorageDefaults(&cfg.Storage)
	applyContentDefaults(&cfg.Content)
	applySemanticsDefaults(&cfg.Semantics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyContainerDefaults sets the container name.
//
// Limits stay zero (unlimited) unless configured.
func applyContainerDefaults(cfg *ContainerConfig) {
	if cfg.Name == "" {
		cfg.Name = "default"
	}
}

// applyStorageDefaults sets storage backend defaults.
func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = filepath.Join(defaultDataDir(), "db")
	}
}

// applyContentDefaults sets content store defaults.
func applyContentDefaults(cfg *ContentConfig) {
	if cfg.Type == "" {
		cfg.Type = "default"
	}

	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}

	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = filepath.Join(defaultDataDir(), "content")
	}
	if _, ok := cfg.S3["region"]; !ok {
		cfg.S3["region"] = "us-east-1"
	}
	if _, ok := cfg.S3["key_prefix"]; !ok {
		cfg.S3["key_prefix"] = "inodefs/"
	}
	if _, ok := cfg.S3["max_retries"]; !ok {
		cfg.S3["max_retries"] = 10
	}
}

// applySemanticsDefaults sets path policy defaults.
func applySemanticsDefaults(cfg *SemanticsConfig) {
	if cfg.Policy == "" {
		cfg.Policy = "posix"
	}
	cfg.Policy = strings.ToLower(cfg.Policy)

	if cfg.DotSegments == "" {
		cfg.DotSegments = semantics.DotLexical.String()
	}
	cfg.DotSegments = strings.ToLower(cfg.DotSegments)

	if cfg.MaxSymlinkDepth == 0 {
		cfg.MaxSymlinkDepth = semantics.DefaultMaxSymlinkDepth
	}
	if cfg.MaxNameLen == 0 {
		cfg.MaxNameLen = semantics.DefaultMaxNameLen
	}
}

// defaultDataDir is where persistent backends live unless configured.
func defaultDataDir() string {
	return filepath.Join(os.TempDir(), "inodefs")
}
