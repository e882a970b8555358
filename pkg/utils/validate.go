package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseArguments converts an arbitrary value into T via a JSON round trip.
// json.RawMessage input is unmarshalled directly.
func ParseArguments[T any](args any) (T, error) {
	var result T

	if arg, ok := args.(T); ok {
		return arg, nil
	}

	if raw, ok := args.(json.RawMessage); ok {
		if err := json.Unmarshal(raw, &result); err != nil {
			return result, fmt.Errorf("payload is not a valid %T: %w", result, err)
		}
		return result, nil
	}

	b, err := json.Marshal(args)
	if err != nil {
		return result, err
	}

	if err = json.Unmarshal(b, &result); err != nil {
		return result, fmt.Errorf("argument %v is not a valid %T", args, result)
	}

	return result, nil
}

// ValidateArguments parses args into T and validates it, returning a 422 with
// per-field messages on failure.
func ValidateArguments[T any](args any) (T, error) {
	result, err := ParseArguments[T](args)
	if err != nil {
		return result, httperror.WrapError(http.StatusUnprocessableEntity, err)
	}

	return Validate(result)
}

func Validate[T any](value T) (T, error) {
	if err := validate.Struct(value); err != nil {
		return value, ValidationError(err)
	}

	return value, nil
}

func ValidateValue(value any, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		return ValidationError(err)
	}
	return nil
}

// ValidationError converts validator errors into a 422 httperror carrying a
// field -> message map under meta "fields".
func ValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return httperror.WrapError(http.StatusUnprocessableEntity, err)
	}

	fields := map[string]string{}
	for _, fe := range verrs {
		fields[fieldName(fe)] = fieldMessage(fe)
	}

	herr := httperror.NewHTTPError(http.StatusUnprocessableEntity, "validation failed")
	herr = herr.AddMetaValue("fields", fields)
	return herr
}

// fieldName lowercases the leading struct field segment so errors line up with
// the camelCase wire names.
func fieldName(fe validator.FieldError) string {
	name := fe.StructField()
	if name == "" {
		return fe.Field()
	}
	return strings.ToLower(name[:1]) + name[1:]
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "datetime":
		return fmt.Sprintf("must be a date in %s format", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "number":
		return "must be numeric"
	default:
		return fmt.Sprintf("failed rule '%s'", fe.Tag())
	}
}
