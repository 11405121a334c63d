package ledger

import (
	"errors"
	"fmt"
)

// ValidationError reports a locally rejected order. Validation errors
// never escape the ledger boundary to the server path; callers surface
// them inline and leave all state untouched.
type ValidationError struct {
	// Code identifies the rejection category.
	Code ValidationCode

	// Message is a human-readable description.
	Message string
}

// ValidationCode categorizes order rejections.
type ValidationCode string

const (
	// CodeInsufficientCredits indicates the speculative balance cannot
	// cover the build cost.
	CodeInsufficientCredits ValidationCode = "INSUFFICIENT_CREDITS"

	// CodeAlreadyQueued indicates a conflicting build order is already
	// staged for the planet.
	CodeAlreadyQueued ValidationCode = "ALREADY_QUEUED"

	// CodeAlreadyBuilt indicates the planet already has the building.
	CodeAlreadyBuilt ValidationCode = "ALREADY_BUILT"

	// CodeNotAdjacent indicates a move to a non-adjacent tile.
	CodeNotAdjacent ValidationCode = "NOT_ADJACENT"

	// CodeUnknownOrder indicates a removal referenced no staged order.
	CodeUnknownOrder ValidationCode = "UNKNOWN_ORDER"
)

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsValidation reports whether err is a ValidationError, optionally
// matching a specific code. Uses errors.As to handle wrapped errors.
func IsValidation(err error, code ValidationCode) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code == code
	}
	return false
}

func newValidationError(code ValidationCode, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}
