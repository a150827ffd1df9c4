package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-wellness-portal/api"
	"github.com/jrsteele09/go-wellness-portal/session"
)

// safeRedirectTarget keeps post-sign-in redirects on this site. Anything that
// is not a local path falls back to the account page.
func safeRedirectTarget(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return RouteAccount
	}
	return raw
}

// redirectWithError sends the user to path with a display message attached.
func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorMsg string) {
	http.Redirect(w, r, path+"?error="+url.QueryEscape(errorMsg), http.StatusSeeOther)
}

func (s *Server) SignInPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.session.State() == session.StateAuthenticated {
			http.Redirect(w, r, safeRedirectTarget(r.URL.Query().Get("redirect")), http.StatusSeeOther)
			return
		}
		s.render(w, http.StatusOK, "signin", pageData{
			Title:          "Sign in",
			Error:          r.URL.Query().Get("error"),
			Notice:         r.URL.Query().Get("notice"),
			RedirectTarget: r.URL.Query().Get("redirect"),
			GoogleSignIn:   s.google != nil,
		})
	}
}

func (s *Server) SignInSubmitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}
		email := r.PostFormValue("email")
		target := safeRedirectTarget(r.PostFormValue("redirect"))

		result, err := s.session.Login(r.Context(), email, r.PostFormValue("password"))
		if err != nil {
			s.log.Error().Err(err).Msg("sign-in failed")
			http.Error(w, "sign-in failed", http.StatusInternalServerError)
			return
		}

		switch result.Status {
		case session.LoginOK:
			s.recordLogin("password", "ok")
			s.setSessionCookie(w)
			http.Redirect(w, r, target, http.StatusSeeOther)
		case session.LoginVerificationRequired:
			s.recordLogin("password", "verification_required")
			http.Redirect(w, r, RouteVerifyEmail+"?email="+url.QueryEscape(result.Email), http.StatusSeeOther)
		case session.LoginUnavailable:
			s.recordLogin("password", "unavailable")
			s.render(w, http.StatusServiceUnavailable, "signin", pageData{
				Title:          "Sign in",
				Error:          result.Message,
				Email:          email,
				RedirectTarget: r.PostFormValue("redirect"),
				GoogleSignIn:   s.google != nil,
			})
		case session.LoginSuperseded:
			http.Redirect(w, r, RouteSignIn, http.StatusSeeOther)
		default:
			s.recordLogin("password", "unauthorized")
			s.render(w, http.StatusUnauthorized, "signin", pageData{
				Title:          "Sign in",
				Error:          result.Message,
				Email:          email,
				RedirectTarget: r.PostFormValue("redirect"),
				GoogleSignIn:   s.google != nil,
			})
		}
	}
}

func (s *Server) SignUpPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, http.StatusOK, "signup", pageData{
			Title: "Create an account",
			Error: r.URL.Query().Get("error"),
		})
	}
}

func (s *Server) SignUpSubmitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}

		email, err := s.session.Signup(r.Context(), api.SignupRequest{
			Email:     r.PostFormValue("email"),
			Password:  r.PostFormValue("password"),
			FirstName: r.PostFormValue("firstName"),
			LastName:  r.PostFormValue("lastName"),
			Phone:     r.PostFormValue("phone"),
		})
		if err != nil {
			s.log.Debug().Err(err).Msg("signup rejected")
			redirectWithError(w, r, RouteSignUp, api.Message(err))
			return
		}

		http.Redirect(w, r, RouteVerifyEmail+"?email="+url.QueryEscape(email), http.StatusSeeOther)
	}
}

func (s *Server) VerifyEmailPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, http.StatusOK, "verify", pageData{
			Title: "Verify your email",
			Email: r.URL.Query().Get("email"),
			Error: r.URL.Query().Get("error"),
		})
	}
}

func (s *Server) VerifyEmailSubmitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}
		email := r.PostFormValue("email")

		result, err := s.session.VerifyEmail(r.Context(), email, r.PostFormValue("otp"))
		if err != nil {
			s.log.Error().Err(err).Msg("email verification failed")
			http.Error(w, "verification failed", http.StatusInternalServerError)
			return
		}

		switch result.Status {
		case session.LoginOK:
			s.recordLogin("otp", "ok")
			s.setSessionCookie(w)
			http.Redirect(w, r, RouteAccount, http.StatusSeeOther)
		case session.LoginVerified:
			http.Redirect(w, r, RouteSignIn+"?notice="+url.QueryEscape("Email verified. Please sign in."), http.StatusSeeOther)
		default:
			s.recordLogin("otp", "rejected")
			s.render(w, http.StatusBadRequest, "verify", pageData{
				Title: "Verify your email",
				Email: email,
				Error: result.Message,
			})
		}
	}
}

func (s *Server) GoogleLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.google == nil {
			redirectWithError(w, r, RouteSignIn, "Google sign-in is not available")
			return
		}

		authURL, err := s.google.Begin(safeRedirectTarget(r.URL.Query().Get("redirect")))
		if err != nil {
			s.log.Error().Err(err).Msg("failed to start Google sign-in")
			redirectWithError(w, r, RouteSignIn, "Could not start Google sign-in")
			return
		}
		http.Redirect(w, r, authURL, http.StatusSeeOther)
	}
}

func (s *Server) GoogleCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.google == nil {
			redirectWithError(w, r, RouteSignIn, "Google sign-in is not available")
			return
		}
		if errorParam := r.FormValue("error"); errorParam != "" {
			redirectWithError(w, r, RouteSignIn, fmt.Sprintf("Google sign-in failed: %s", errorParam))
			return
		}

		idToken, returnURL, err := s.google.Complete(r.Context(), r.FormValue("state"), r.FormValue("code"))
		if err != nil {
			s.log.Warn().Err(err).Msg("Google callback rejected")
			redirectWithError(w, r, RouteSignIn, "Google sign-in failed")
			return
		}

		result, err := s.session.LoginWithGoogle(r.Context(), idToken)
		if err != nil {
			s.log.Error().Err(err).Msg("Google credential exchange failed")
			redirectWithError(w, r, RouteSignIn, "Google sign-in failed")
			return
		}
		if result.Status != session.LoginOK {
			s.recordLogin("google", strings.ToLower(string(result.Status)))
			redirectWithError(w, r, RouteSignIn, result.Message)
			return
		}

		s.recordLogin("google", "ok")
		s.setSessionCookie(w)
		http.Redirect(w, r, safeRedirectTarget(returnURL), http.StatusSeeOther)
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.session.Logout(r.Context())
		s.clearSessionCookie(w)
		http.Redirect(w, r, RouteHome, http.StatusSeeOther)
	}
}
