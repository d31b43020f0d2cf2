package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"machine-ledger-backend/internal/parse"
)

var registerOnce sync.Once

// RegisterValidators adds the ledger's custom tags to gin's validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("ledgerdate", ledgerDate)
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// ledgerDate accepts empty values and anything NormalizeDate understands.
func ledgerDate(fl validator.FieldLevel) bool {
	_, err := parse.NormalizeDate(fl.Field().String())
	return err == nil
}

// bindingMessage renders a binding error as a single line, one clause per
// failed field.
func bindingMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return "invalid request body"
	}

	problems := make([]string, 0, len(ve))
	for _, fe := range ve {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			problems = append(problems, fmt.Sprintf("%s is required", field))
		case "email":
			problems = append(problems, fmt.Sprintf("%s must be a valid email address", field))
		case "ledgerdate":
			problems = append(problems, fmt.Sprintf("%s must be a date like dd/mm/yyyy", field))
		case "max":
			problems = append(problems, fmt.Sprintf("%s is too long, max: %s", field, fe.Param()))
		default:
			problems = append(problems, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(problems, "; ")
}
