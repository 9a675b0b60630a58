// Package validation configures go-playground/validator for request and
// service input checks and converts its errors into apperrors.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/saif-ali01/projectXAPI/internal/apperrors"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

var defaultValidate = New()

// New returns a validator using the "validate" struct tag.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	Register(v)
	return v
}

// Register installs json field naming and the custom rules on v.
func Register(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
}

// Struct validates s and returns a ValidationError listing every offending field.
func Struct(s interface{}) error {
	return Translate(defaultValidate.Struct(s))
}

// Translate converts validator errors into an apperrors ValidationError.
// Other errors pass through unchanged.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]apperrors.FieldError, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, apperrors.FieldError{Field: fieldPath(e), Message: message(e)})
	}
	return apperrors.Validation("Validation failed", fields...)
}

// fieldPath drops the struct name from the namespace, e.g. "rows[0].type".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "phone":
		return "Invalid phone number format"
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "datetime":
		return "Must be a date in YYYY-MM-DD format"
	default:
		return "Invalid value"
	}
}
