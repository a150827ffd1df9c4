package config

type GoogleConfig interface {
	GetGoogleClientID() string
	GetGoogleClientSecret() string
	GetGoogleRedirectURL() string
	GoogleSignInEnabled() bool
}

type Google struct{}

var _ GoogleConfig = Google{}

func (Google) GetGoogleClientID() string {
	return GetEnv("GOOGLE_CLIENT_ID", "")
}

func (Google) GetGoogleClientSecret() string {
	return GetEnv("GOOGLE_CLIENT_SECRET", "")
}

// GetGoogleRedirectURL returns the callback URL registered with Google. When
// unset it is derived from the portal base URL.
func (Google) GetGoogleRedirectURL() string {
	if redirect := GetEnv("GOOGLE_REDIRECT_URL", ""); redirect != "" {
		return redirect
	}
	return EnvVars{}.GetBaseURL() + "/auth/google/callback"
}

// GoogleSignInEnabled reports whether a Google client is configured at all.
// Without one the sign-in page simply omits the Google button.
func (g Google) GoogleSignInEnabled() bool {
	return g.GetGoogleClientID() != ""
}
