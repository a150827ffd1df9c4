package api

import (
	"fmt"
	"strings"

	interrors "github.com/jrsteele09/go-wellness-portal/internal/errors"
)

// Error is a classified failure response from the wellness API. Its cause
// chain carries the matching taxonomy sentinel from internal/errors, so
// callers branch with errors.Is on the classification, never on the status.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
}

// Unwrap maps the raw response onto the error taxonomy. The
// verification-required check runs first: the server signals an unverified
// account through its message, not through a dedicated status.
func (e *Error) Unwrap() error {
	if verificationRequired(e.Message) {
		return interrors.ErrVerificationRequired
	}
	switch {
	case e.Status == 401:
		return interrors.ErrUnauthorized
	case e.Status == 403:
		return interrors.ErrForbidden
	case e.Status >= 500:
		return interrors.ErrUnavailable
	}
	return nil
}

func verificationRequired(message string) bool {
	return strings.Contains(strings.ToLower(message), "verify your email")
}

// Message extracts the server's message from a classified error for display,
// falling back to a generic retry prompt for transport-level failures.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if interrors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if interrors.Is(err, interrors.ErrUnavailable) {
		return "Something went wrong. Please try again."
	}
	return err.Error()
}
