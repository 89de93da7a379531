package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config key (e.g., "session.page_size")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	// report fields by their config key rather than the Go name
	configValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var out []ValidationError

	if err := configValidate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return []ValidationError{{Field: "config", Message: err.Error()}}
		}
		for _, fe := range fieldErrs {
			out = append(out, ValidationError{
				Field:   fieldKey(fe.Namespace()),
				Value:   fe.Value(),
				Message: messageFor(fe),
			})
		}
	}

	if c.Database.Driver == "postgres" && c.Database.DSN == "" && (c.Database.Host == "" || c.Database.Name == "") {
		out = append(out, ValidationError{
			Field:   "database.host",
			Value:   c.Database.Host,
			Message: "postgres needs a dsn or both host and name",
		})
	}
	if c.Database.Driver == "sqlite3" && c.Database.DSN == "" {
		out = append(out, ValidationError{
			Field:   "database.dsn",
			Value:   c.Database.DSN,
			Message: "sqlite needs a database file",
		})
	}
	return out
}

// fieldKey turns "Config.session.page_size" into "session.page_size".
func fieldKey(namespace string) string {
	_, rest, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}
	return rest
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must be set"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "numeric":
		return "must be numeric"
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
