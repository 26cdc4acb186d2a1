package service

import (
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var mobileNumberPattern = regexp.MustCompile(`^01(?:0|1|[6-9])[.-]?(\d{3}|\d{4})[.-]?(\d{4})$`)

// NewValidator returns the validator shared by all services, with the
// project-specific tags registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return mobileNumberPattern.MatchString(fl.Field().String())
	})
	return v
}
