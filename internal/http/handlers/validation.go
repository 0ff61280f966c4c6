package handlers

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/tbourn/noticeboard/internal/domain"
)

var registerOnce sync.Once

// registerValidators installs the custom binding tags on Gin's validator
// engine. It is safe to call more than once.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		mustRegister(v, "reaction_type", func(fl validator.FieldLevel) bool {
			_, err := domain.ParseReactionType(fl.Field().String())
			return err == nil
		})
	})
}

// mustRegister adds a validation tag and panics when the validator rejects
// it; an unregistered tag would otherwise only fail on the first request.
func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("handlers: register %q validator: %v", tag, err))
	}
}

// isFieldError reports whether err is a validation failure on the named
// struct field (as opposed to malformed JSON).
func isFieldError(err error, field string) bool {
	ves, ok := err.(validator.ValidationErrors)
	if !ok {
		return false
	}
	for _, fe := range ves {
		if fe.Field() == field {
			return true
		}
	}
	return false
}
