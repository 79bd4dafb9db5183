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
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	// Run struct tag validation
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	// Custom validation rules that can't be expressed in tags
	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// Validate at least one adapter is enabled
	if !cfg.Adapters.FUSE.Enabled && !cfg.Adapters.WebDAV.Enabled {
		return fmt.Errorf("adapters: at least one adapter must be enabled")
	}

	if cfg.Adapters.FUSE.Enabled && cfg.Adapters.FUSE.MountPoint == "" {
		return fmt.Errorf("adapters.fuse: mount_point is required when the FUSE adapter is enabled")
	}

	if cfg.Metrics.Enabled && cfg.Adapters.WebDAV.Enabled && cfg.Metrics.Port == cfg.Adapters.WebDAV.Port {
		return fmt.Errorf("metrics: port %d is already used by the WebDAV adapter", cfg.Metrics.Port)
	}

	// The selected collaborator must have its required option. Type-specific
	// option decoding happens in the factories.
	switch cfg.Dataset.Type {
	case "filesystem":
		if !hasOption(cfg.Dataset.Filesystem, "path") {
			return fmt.Errorf("dataset.filesystem: path is required")
		}
	case "s3":
		if !hasOption(cfg.Dataset.S3, "bucket") || !hasOption(cfg.Dataset.S3, "key") {
			return fmt.Errorf("dataset.s3: bucket and key are required")
		}
	case "http":
		if !hasOption(cfg.Dataset.HTTP, "url") {
			return fmt.Errorf("dataset.http: url is required")
		}
	}

	if cfg.Aliases.Type == "geonames" && !hasOption(cfg.Aliases.Geonames, "path") {
		return fmt.Errorf("aliases.geonames: path is required")
	}

	return nil
}

// hasOption reports whether key is set to a non-empty value.
func hasOption(m map[string]any, key string) bool {
	return !isUnset(m, key)
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
