// Package validation holds the shared struct validator used for request
// bodies and for documents written by the services.
package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
)

type enumValue interface {
	IsValid() bool
}

var validate = New()

// New builds a validator that reports json field names and understands the
// `enum` tag for types exposing IsValid.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	_ = v.RegisterValidation("enum", func(fl validator.FieldLevel) bool {
		if e, ok := fl.Field().Interface().(enumValue); ok {
			return e.IsValid()
		}
		return false
	})
	return v
}

// Struct validates s and converts failures into a VALIDATION_ERROR with
// per-field details.
func Struct(s any) error {
	if err := validate.Struct(s); err != nil {
		return FormatErrors(err)
	}
	return nil
}

// FormatErrors maps validator errors onto the typed validation error.
func FormatErrors(err error) *pkgerrors.Error {
	if errs, ok := err.(validator.ValidationErrors); ok {
		details := map[string]string{}
		for _, fieldErr := range errs {
			details[fieldPath(fieldErr)] = message(fieldErr)
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "enum", "oneof":
		return "is not an allowed value"
	case "unique":
		return "must not contain duplicates"
	}
	return "is invalid"
}
