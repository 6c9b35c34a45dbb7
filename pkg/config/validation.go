package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Log level normalization is handled in ApplyDefaults; validation accepts
// both uppercase and lowercase levels.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules checks backend option maps and cross-field rules.
func validateCustomRules(cfg *Config) error {
	if cfg.Storage.Type == "badger" {
		var opts badgerContentOptions
		if err := decodeOptions(cfg.Storage.Badger, &opts); err != nil {
			return fmt.Errorf("storage.badger: %w", err)
		}
		if opts.DBPath == "" && !opts.InMemory {
			return fmt.Errorf("storage.badger: db_path is required unless in_memory is set")
		}
	}

	switch cfg.Content.Type {
	case "badger":
		var opts badgerContentOptions
		if err := decodeOptions(cfg.Content.Badger, &opts); err != nil {
			return fmt.Errorf("content.badger: %w", err)
		}
		if opts.DBPath == "" && !opts.InMemory {
			return fmt.Errorf("content.badger: db_path is required unless in_memory is set")
		}
		if cfg.Storage.Type == "badger" && !opts.InMemory && opts.DBPath == fmt.Sprint(cfg.Storage.Badger["db_path"]) {
			return fmt.Errorf("content.badger: db_path must differ from storage.badger.db_path")
		}
	case "s3":
		var opts s3ContentOptions
		if err := decodeOptions(cfg.Content.S3, &opts); err != nil {
			return fmt.Errorf("content.s3: %w", err)
		}
		if opts.Bucket == "" {
			return fmt.Errorf("content.s3: bucket is required")
		}
		if opts.RequestTimeout < 0 {
			return fmt.Errorf("content.s3: request_timeout must not be negative")
		}
	}

	if cfg.Metrics.Listen != "" && !cfg.Metrics.Enabled {
		return fmt.Errorf("metrics: listen is set but metrics are disabled")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
