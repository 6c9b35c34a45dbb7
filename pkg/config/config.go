package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/inodefs/pkg/container"
	"github.com/spf13/viper"
)

// Config represents the complete inodefs configuration.
//
// It selects the storage backend, where file content lives, the path policy
// applied by the engine, the capacity limits enforced by the container and
// whether metrics are collected.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (INODEFS_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// Store Configuration Pattern:
// Each backend declares its own option struct, decoded from the map matching
// the selected type (storage.badger, content.s3, ...). Maps for unselected
// types are ignored.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Container names the container and sets its capacity limits
	Container ContainerConfig `mapstructure:"container" yaml:"container"`

	// Storage selects the inode storage backend
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Content selects where file bytes are kept
	Content ContentConfig `mapstructure:"content" yaml:"content"`

	// Semantics selects the path policy
	Semantics SemanticsConfig `mapstructure:"semantics" yaml:"semantics"`

	// Metrics controls Prometheus collection
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// ContainerConfig identifies the container and bounds its resources.
type ContainerConfig struct {
	// Name labels logs and metrics
	Name string `mapstructure:"name" yaml:"name" validate:"required"`

	// Limits are the capacity bounds (zero fields are unlimited)
	Limits container.Limits `mapstructure:"limits" yaml:"limits"`
}

// StorageConfig specifies the inode storage backend.
type StorageConfig struct {
	// Type specifies which storage implementation to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory badger"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger"`
}

// ContentConfig specifies where file content is stored.
//
// "default" keeps content wherever the storage keeps it: in process memory for
// the memory storage, inside the same database for the badger storage.
type ContentConfig struct {
	// Type specifies which content store implementation to use
	// Valid values: default, memory, badger, s3
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=default memory badger s3"`

	// Badger contains configuration for a dedicated content database
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3" yaml:"s3"`
}

// SemanticsConfig selects and tunes the path policy.
type SemanticsConfig struct {
	// Policy is the naming policy
	// Valid values: posix, portable
	Policy string `mapstructure:"policy" yaml:"policy" validate:"required,oneof=posix portable"`

	// ReadOnly denies every mutating operation
	ReadOnly bool `mapstructure:"read_only" yaml:"read_only"`

	// DotSegments selects how "." and ".." are resolved
	// Valid values: lexical, physical
	DotSegments string `mapstructure:"dot_segments" yaml:"dot_segments" validate:"required,oneof=lexical physical"`

	// MaxSymlinkDepth bounds symlink hops during one resolution
	MaxSymlinkDepth int `mapstructure:"max_symlink_depth" yaml:"max_symlink_depth" validate:"gte=0"`

	// MaxNameLen bounds the byte length of one name
	MaxNameLen int `mapstructure:"max_name_len" yaml:"max_name_len" validate:"gte=0"`

	// MaxPathDepth bounds the number of segments in a path (0 = unbounded)
	MaxPathDepth int `mapstructure:"max_path_depth" yaml:"max_path_depth" validate:"gte=0"`

	// DisableSymlinks rejects symlink creation
	DisableSymlinks bool `mapstructure:"disable_symlinks" yaml:"disable_symlinks"`

	// DisableHardLinks rejects hard link creation
	DisableHardLinks bool `mapstructure:"disable_hard_links" yaml:"disable_hard_links"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	// Enabled turns collection on
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Listen is the address of the scrape endpoint (empty = no HTTP server)
	Listen string `mapstructure:"listen" yaml:"listen"`
}

// envKeys are bound explicitly so that environment variables override values
// absent from the config file.
var envKeys = []string{
	"logging.level",
	"logging.format",
	"logging.output",
	"container.name",
	"container.limits.max_total_bytes",
	"container.limits.max_file_bytes",
	"container.limits.max_nodes",
	"container.limits.max_entries_per_dir",
	"container.limits.max_path_depth",
	"storage.type",
	"content.type",
	"semantics.policy",
	"semantics.read_only",
	"semantics.dot_segments",
	"semantics.max_symlink_depth",
	"semantics.max_name_len",
	"semantics.max_path_depth",
	"semantics.disable_symlinks",
	"semantics.disable_hard_links",
	"metrics.enabled",
	"metrics.listen",
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: INODEFS_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("INODEFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		// An explicit path that does not exist is treated like a missing default file
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "inodefs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "inodefs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
