package validate

import (
	"strings"

	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/tracelinehq/traceline-backend/pkg/errors"
)

var instance = validator.New(validator.WithRequiredStructEnabled())

// Struct validates the tagged fields of a command struct and maps any
// failure to a VALIDATION_ERROR with per-field details.
func Struct(input any) error {
	err := instance.Struct(input)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid input")
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Namespace()+":"+fe.Tag())
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid input").
		WithDetails(strings.Join(fields, ", "))
}
