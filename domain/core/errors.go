package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Construction-time errors (fail fast, before a fragment enters a document)
	ErrTypeDefinition  = errors.New("invalid type definition")
	ErrExpressionShape = errors.New("invalid expression shape")
	ErrUnknownFunction = errors.New("unknown function")

	// Extraction and production errors
	ErrUnsupportedModelState = errors.New("unsupported model state")
	ErrUnsupportedFamily     = errors.New("unsupported model family")
	ErrInvalidCutoffs        = errors.New("invalid cutoffs")

	// Assembly and serialization errors
	ErrDocumentConsistency = errors.New("document consistency violation")
	ErrMalformedDocument   = errors.New("malformed document")

	// External collaborator errors
	ErrSourceUnavailable  = errors.New("source unavailable")
	ErrValidationMismatch = errors.New("validation mismatch")
)

// Error constructors with context
func NewTypeDefinitionError(kind string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrTypeDefinition, kind, reason)
}

func NewExpressionShapeError(form string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrExpressionShape, form, reason)
}

func NewUnknownFunctionError(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownFunction, name)
}

func NewUnsupportedModelStateError(field string) error {
	return fmt.Errorf("%w: missing field %q", ErrUnsupportedModelState, field)
}

func NewUnsupportedFamilyError(family string) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedFamily, family)
}

func NewInvalidCutoffsError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidCutoffs, reason)
}

func NewDocumentConsistencyError(reason string) error {
	return fmt.Errorf("%w: %s", ErrDocumentConsistency, reason)
}

func NewMalformedDocumentError(reason string) error {
	return fmt.Errorf("%w: %s", ErrMalformedDocument, reason)
}

func NewSourceUnavailableError(source string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, source, err)
}

func NewValidationMismatchError(input, expected, actual any, deviation float64) error {
	return fmt.Errorf("%w: input %v: expected %v, got %v (relative deviation %g)",
		ErrValidationMismatch, input, expected, actual, deviation)
}

// Error checking helpers
func IsConstructionError(err error) bool {
	return errors.Is(err, ErrTypeDefinition) ||
		errors.Is(err, ErrExpressionShape) ||
		errors.Is(err, ErrUnknownFunction)
}

func IsModelError(err error) bool {
	return errors.Is(err, ErrUnsupportedModelState) ||
		errors.Is(err, ErrUnsupportedFamily) ||
		errors.Is(err, ErrInvalidCutoffs)
}
