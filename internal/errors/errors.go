package errors

import (
	"errors"
	"fmt"
)

// Classified error taxonomy for the wellness API client. Raw HTTP statuses are
// absorbed at the api package boundary and mapped onto these sentinels, so
// callers branch with errors.Is rather than on status codes.
var (
	// ErrUnauthorized means the credential is invalid or expired (server 401).
	// Holders of a session must deauthenticate when they see it.
	ErrUnauthorized = errors.New("credential invalid or expired")

	// ErrForbidden means the credential is valid but the privilege is
	// insufficient (server 403). The token must not be cleared.
	ErrForbidden = errors.New("insufficient privilege")

	// ErrVerificationRequired means the credentials were accepted but the
	// account's email is unverified; the caller should route to the OTP step
	// instead of showing a failure message.
	ErrVerificationRequired = errors.New("email verification required")

	// ErrUnavailable covers timeouts, 5xx responses, and connectivity
	// failures. Retryable; never deauthenticates.
	ErrUnavailable = errors.New("service unavailable")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
