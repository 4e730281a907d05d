package api

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RequestValidator plugs go-playground/validator into echo.
// Usage: e.Validator = api.NewRequestValidator()
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator creates a validator that reports JSON field names.
func NewRequestValidator() *RequestValidator {
	v := validator.New()

	// Flight fields become part of underscore-separated headers.
	v.RegisterValidation("noseparator", func(fl validator.FieldLevel) bool {
		return !strings.Contains(fl.Field().String(), "_")
	})

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &RequestValidator{validate: v}
}

// Validate implements echo.Validator.
func (rv *RequestValidator) Validate(i interface{}) error {
	if err := rv.validate.Struct(i); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			return newValidationErrors(errs)
		}
		return NewBadRequestError("invalid request", err)
	}
	return nil
}
