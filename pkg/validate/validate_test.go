package validate

import (
	"testing"

	pkgerrors "github.com/tracelinehq/traceline-backend/pkg/errors"
)

type sampleCommand struct {
	Code     string `validate:"required"`
	Quantity int64  `validate:"gt=0"`
}

func TestStructAcceptsValidInput(t *testing.T) {
	if err := Struct(sampleCommand{Code: "W-1", Quantity: 4}); err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}
}

func TestStructReportsFieldFailures(t *testing.T) {
	err := Struct(sampleCommand{Quantity: 0})
	if err == nil {
		t.Fatal("expected validation error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
	if typed.Details() == nil {
		t.Fatal("expected field details")
	}
}
