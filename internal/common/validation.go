package common

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const maxIDLength = 128

var idRules = []validation.Rule{
	validation.Required,
	validation.Length(1, maxIDLength),
	validation.By(func(v any) error {
		s, _ := v.(string)
		if strings.TrimSpace(s) != s {
			return validation.NewError("validation_id_whitespace", "must not have surrounding whitespace")
		}
		if strings.ContainsAny(s, "/\\\n\t ") {
			return validation.NewError("validation_id_chars", "must not contain slashes or whitespace")
		}
		return nil
	}),
}

// ValidateDocumentID checks an opaque document id before it reaches storage.
func ValidateDocumentID(id string) error {
	if err := validation.Validate(id, idRules...); err != nil {
		return NewValidationError("document_id "+err.Error(), ErrValidation)
	}
	return nil
}

// ValidateRequired returns a ValidationError naming the first empty field.
// Pairs are given as name, value.
func ValidateRequired(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if err := validation.Validate(strings.TrimSpace(pairs[i+1]), validation.Required); err != nil {
			return NewValidationError(pairs[i]+" is required", ErrValidation)
		}
	}
	return nil
}

// ValidateAndReturnError converts an application error into a gRPC
// InvalidArgument when it is a validation failure, and passes others through.
func ValidateAndReturnError(err error) error {
	if err == nil {
		return nil
	}
	if HasCode(err, CodeValidation) {
		return InvalidArgumentError(err.Error())
	}
	return err
}
