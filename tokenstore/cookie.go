package tokenstore

import "net/http"

// CookieName is the name of the same-site cookie mirroring the credential in
// the operator's browser.
const CookieName = "wellness_token"

// NewCookie builds the credential cookie: strict same-site, HttpOnly, 7-day
// window, Secure in production builds.
func NewCookie(token string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(DefaultTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// ClearCookie builds the deletion cookie for the credential.
func ClearCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// FromRequest reads the credential cookie from an incoming request, returning
// the empty string when it is not present.
func FromRequest(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie == nil {
		return ""
	}
	return cookie.Value
}
