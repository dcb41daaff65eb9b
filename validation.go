package gate

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/applax-dev/gate-sdk/apierr"
)

// validate is the package-level validator instance, shared by the session
// config and the named-operation request types.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Error messages name fields by their koanf or json key, matching what
	// the caller actually wrote.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"koanf", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})

	// Decimals validate as their float value so numeric tags (gt, gte)
	// apply to money fields.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	return v
}

// validateRequest checks a named-operation request against its struct tags
// before any I/O happens.
func validateRequest(req any) error {
	if err := validate.Struct(req); err != nil {
		return classifyValidationError(err)
	}
	return nil
}

// classifyValidationError converts validator errors to a single
// apierr.Error. API key failures come back as Authentication errors,
// everything else as Validation errors.
func classifyValidationError(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	kind := apierr.KindValidation
	errs := make([]string, 0, len(validationErrors))

	for _, e := range validationErrors {
		if e.Field() == "api_key" {
			kind = apierr.KindAuthentication
		}

		errs = append(errs, formatFieldError(e))
	}

	return apierr.New(kind, 0, strings.Join(errs, "; "), nil)
}

// formatFieldError formats a single field validation error.
func formatFieldError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "required_without":
		return fmt.Sprintf("%s is required when %s is not set", e.Field(), strings.ToLower(e.Param()))
	case "required_with":
		return fmt.Sprintf("%s is required when %s is set", e.Field(), strings.ToLower(e.Param()))
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", e.Field(), e.Param())
		}
		return fmt.Sprintf("%s must be at least %s", e.Field(), e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", e.Field(), e.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", e.Field(), e.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", e.Field(), e.Param())
	case "credit_card":
		return fmt.Sprintf("%s must be a valid card number", e.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", e.Field())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", e.Field())
	default:
		return fmt.Sprintf("%s failed validation: %s", e.Field(), e.Tag())
	}
}
