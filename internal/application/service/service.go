package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/garyjia/hospital-itsm/internal/domain/apperr"
	"github.com/go-playground/validator/v10"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Clock returns the current time. Services default to UTC wall time.
type Clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// validateInput checks the validate tags of in and reports the first failing
// field as a ValidationError
func validateInput(in interface{}) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperr.Validation("invalid input: %v", err)
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return apperr.Validation("%s is required", fe.Field())
	case "oneof":
		return apperr.Validation("%s must be one of [%s]", fe.Field(), fe.Param())
	case "min", "gte":
		return apperr.Validation("%s must be at least %s", fe.Field(), fe.Param())
	case "email":
		return apperr.Validation("%s must be a valid email", fe.Field())
	default:
		return apperr.Validation("%s failed %s", fe.Field(), formatTag(fe))
	}
}

func formatTag(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
}
