package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// newValidate returns a validator that names fields by their config key, so
// errors read "pricing.refresh_workers" rather than the Go field path.
func newValidate() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return validate
}

// ValidateConfig checks every validate tag in cfg and reports each failing
// key with the rule it broke.
func ValidateConfig(cfg *Config) error {
	err := newValidate().Struct(cfg)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, e := range fieldErrs {
		// Drop the leading "Config." so keys match the YAML and env layout.
		_, key, _ := strings.Cut(e.Namespace(), ".")
		rule := e.Tag()
		if e.Param() != "" {
			rule += "=" + e.Param()
		}
		problems = append(problems, fmt.Sprintf("%s: %v violates %s", key, e.Value(), rule))
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(problems, "; "))
}
