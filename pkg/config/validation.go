package config

import (
	"errors"
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
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// Remote stores have no usable defaults: their section must be present.
	switch cfg.Store.Type {
	case "azure":
		if len(cfg.Store.Azure) == 0 {
			return fmt.Errorf("store.azure: section is required when store.type is azure")
		}
	case "s3":
		if len(cfg.Store.S3) == 0 {
			return fmt.Errorf("store.s3: section is required when store.type is s3")
		}
	}

	if cfg.Filesystem.RenameTimeout > 0 && cfg.Filesystem.RenameTimeout < cfg.Filesystem.RenameCheckInterval {
		return fmt.Errorf("filesystem: rename_timeout (%s) is shorter than rename_check_interval (%s)",
			cfg.Filesystem.RenameTimeout, cfg.Filesystem.RenameCheckInterval)
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		// Return the first validation error with context
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}

// validateStoreConfig runs struct-tag validation on a decoded store config.
func validateStoreConfig(kind string, v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%s store: %w", kind, formatValidationError(err))
	}
	return nil
}
