package utils

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct runs validator tags over a request struct.
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// ValidationErrorMap flattens validator errors into field -> failed tag,
// suitable for a 400 response body.
func ValidationErrorMap(err error) map[string]string {
	out := make(map[string]string)
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return out
	}
	for _, fieldErr := range ve {
		out[fieldErr.Field()] = fieldErr.Tag()
	}
	return out
}
