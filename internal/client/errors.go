package client

import (
	"errors"
	"fmt"
)

// ErrNotAcceptingOrders rejects order mutation and submission outside
// the active phase (lobby, observer, finished, or before the first
// snapshot).
var ErrNotAcceptingOrders = errors.New("not accepting orders in the current phase")

// SubmissionError reports a server-side rejection of a turn submission.
// The ledger and staging record are left untouched so the player can
// retry.
type SubmissionError struct {
	// Status is the HTTP status code of the rejection.
	Status int

	// Body is the response body, truncated for display.
	Body string
}

// Error implements the error interface.
func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission rejected: status %d: %s", e.Status, e.Body)
}

// IsSubmission reports whether err is a SubmissionError, handling
// wrapped errors via errors.As.
func IsSubmission(err error) bool {
	var se *SubmissionError
	return errors.As(err, &se)
}
