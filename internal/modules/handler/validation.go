package handler

import (
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	formSlugPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)
	registerOnce    sync.Once
	registerErr     error
)

// RegisterValidators adds the custom binding tags used by the request structs:
//
//	formslug  a form slug such as "customer-feedback-V1StGX"
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		registerErr = v.RegisterValidation("formslug", func(fl validator.FieldLevel) bool {
			return formSlugPattern.MatchString(fl.Field().String())
		})
	})
	return registerErr
}
