// Package validation registers the custom binding rules used by request DTOs.
package validation

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"rfqportal/internal/model"
)

// TagRFQProgress validates that a string names one of the RFQ progress states.
const TagRFQProgress = "rfqprogress"

// Register installs the custom rules on v.
func Register(v *validator.Validate) error {
	return v.RegisterValidation(TagRFQProgress, func(fl validator.FieldLevel) bool {
		_, ok := model.ParseRFQProgress(fl.Field().String())
		return ok
	})
}

// RegisterWithGin installs the custom rules on gin's default validator.
func RegisterWithGin() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	return Register(v)
}
