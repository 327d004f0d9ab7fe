package utils

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// EchoValidator adapts go-playground/validator to echo's Validator
// interface.
type EchoValidator struct {
	validator *validator.Validate
}

func NewValidator(v *validator.Validate) *EchoValidator {
	// notblank rejects strings that are empty once trimmed; "   " must
	// not satisfy a required description or reason.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return &EchoValidator{validator: v}
}

func (v *EchoValidator) Validate(i interface{}) error {
	return v.validator.Struct(i)
}
