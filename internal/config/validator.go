package config

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/openheads/headcatalog/internal/domain/auth"
)

var tablePrefixPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,40}$`)

// RegisterCustomValidators registers the configuration-specific rules.
// Must be called before validating Config.
func RegisterCustomValidators(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"duration":     validateDuration,
		"key_hash":     validateKeyHash,
		"table_prefix": validateTablePrefix,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register %s validator: %w", tag, err)
		}
	}
	return nil
}

// validateDuration accepts positive time.ParseDuration strings.
func validateDuration(fl validator.FieldLevel) bool {
	d, err := time.ParseDuration(fl.Field().String())
	return err == nil && d > 0
}

// validateKeyHash accepts "sha256:<hex>" and argon2id PHC strings.
func validateKeyHash(fl validator.FieldLevel) bool {
	return auth.DetectHashType(fl.Field().String()) != auth.HashUnknown
}

func validateTablePrefix(fl validator.FieldLevel) bool {
	return tablePrefixPattern.MatchString(fl.Field().String())
}

// Validate validates the Config using struct tags and custom cross-field rules.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := RegisterCustomValidators(v); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if err := c.validateRedisAddr(); err != nil {
		return err
	}
	if err := c.validateUniqueKeyNames(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRedisAddr() error {
	if c.Storage.Type != "redis" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Storage.RedisAddr); err != nil {
		return fmt.Errorf("storage.redis_addr must be a valid host:port: %w", err)
	}
	return nil
}

// validateUniqueKeyNames ensures API key names identify one key each.
func (c *Config) validateUniqueKeyNames() error {
	seen := make(map[string]struct{}, len(c.Auth.APIKeys))
	for i, k := range c.Auth.APIKeys {
		if _, dup := seen[k.Name]; dup {
			return fmt.Errorf("auth.api_keys[%d]: duplicate name %q", i, k.Name)
		}
		seen[k.Name] = struct{}{}
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		messages := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_if":
		return fmt.Sprintf("%s is required when %s", field, strings.Replace(e.Param(), " ", " is ", 1))
	case "required_with":
		return fmt.Sprintf("%s is required together with %s", field, e.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must not be below %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	case "duration":
		return fmt.Sprintf("%s must be a positive duration like 30s or 5m", field)
	case "key_hash":
		return fmt.Sprintf("%s must be \"sha256:<hex>\" or an argon2id hash (see `headcatalog hash-key`)", field)
	case "table_prefix":
		return fmt.Sprintf("%s must be a SQL identifier of at most 41 characters", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, e.Tag())
	}
}
