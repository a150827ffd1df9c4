package session

import (
	"time"

	"github.com/jrsteele09/go-wellness-portal/users"
)

// State is the authentication state of the portal session.
type State string

const (
	// StateUnknown means startup verification has not completed yet.
	StateUnknown State = "UNKNOWN"
	// StateAnonymous means there is no usable session.
	StateAnonymous State = "ANONYMOUS"
	// StateAuthenticated means the credential was accepted and the profile
	// is loaded.
	StateAuthenticated State = "AUTHENTICATED"
)

// Snapshot is a point-in-time copy of the session, safe to read after the
// controller has moved on.
type Snapshot struct {
	State      State
	User       *users.User
	VerifiedAt time.Time // last successful server-side verification
}

// LoginStatus classifies the outcome of a sign-in attempt.
type LoginStatus string

const (
	// LoginOK means the session is established.
	LoginOK LoginStatus = "OK"
	// LoginFailed means the credentials were rejected.
	LoginFailed LoginStatus = "FAILED"
	// LoginVerificationRequired means the account exists but the email has
	// not been verified. The caller should route to OTP entry.
	LoginVerificationRequired LoginStatus = "VERIFICATION_REQUIRED"
	// LoginUnavailable means the attempt could not be completed. Retrying
	// may succeed.
	LoginUnavailable LoginStatus = "UNAVAILABLE"
	// LoginSuperseded means a logout happened while the attempt was in
	// flight, so the response was discarded.
	LoginSuperseded LoginStatus = "SUPERSEDED"
	// LoginVerified means the email was confirmed but no session was
	// issued. The caller should route back to sign-in.
	LoginVerified LoginStatus = "VERIFIED"
)

// LoginResult describes the outcome of Login, LoginWithGoogle, or
// VerifyEmail.
type LoginResult struct {
	Status  LoginStatus
	User    *users.User
	Message string // server-provided message for display, when present
	Email   string // account needing verification, set with LoginVerificationRequired
}
