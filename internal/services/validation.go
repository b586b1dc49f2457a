package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "github.com/yukikurage/task-approval-api/internal/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// validateInput runs struct validation and converts failures into a
// VALIDATION_ERROR carrying one reason per field.
func validateInput(input interface{}) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate input: %w", err)
	}

	fields := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = describe(fe)
	}
	first := fieldErrs[0]
	return apierrors.Validation(
		fmt.Sprintf("invalid value for '%s': %s", first.Field(), describe(first)),
		map[string]any{"fields": fields},
	)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid id"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
