package api

import "github.com/jrsteele09/go-wellness-portal/users"

// SessionResponse is returned by login, Google login, and OTP verification.
// VerifyEmail responses may omit the token, in which case the caller routes
// the user back to sign-in.
type SessionResponse struct {
	User        *users.User `json:"user,omitempty"`
	AccessToken string      `json:"accessToken,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest creates a new, unverified account.
type SignupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone,omitempty"`
}

type signupResponse struct {
	Email string `json:"email"`
}

type verifyEmailRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type googleLoginRequest struct {
	IDToken string `json:"idToken"`
}

type checkResponse struct {
	Authenticated bool `json:"authenticated"`
}

// ProfileUpdate carries the mutable profile fields. Nil fields are left
// untouched server-side.
type ProfileUpdate struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	City      *string `json:"city,omitempty"`
	Address   *string `json:"address,omitempty"`
	Bio       *string `json:"bio,omitempty"`
}

type userResponse struct {
	User *users.User `json:"user"`
}

// UploadResult describes a stored profile picture.
type UploadResult struct {
	URL string `json:"url,omitempty"`
	Key string `json:"key,omitempty"`
}

type pictureResponse struct {
	User   *users.User   `json:"user"`
	Upload *UploadResult `json:"upload,omitempty"`
}

type apiMessage struct {
	Message string `json:"message"`
}
