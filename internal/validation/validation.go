// Package validation runs the declarative field rules attached to request
// structs through `validate` tags.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ayush/places-api/internal/apperr"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct checks v against its tags. Any violation is reported as a single
// InvalidInput error naming the offending fields.
func Struct(v any, message string) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(apperr.InvalidInput, message, err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s(%s)", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return apperr.Wrap(apperr.InvalidInput, message, errors.New("failed rules: "+strings.Join(fields, ", ")))
}
