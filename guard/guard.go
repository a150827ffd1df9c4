// Package guard provides route protection middleware for the portal gateway.
// A guard decides, per request, whether the session may reach the wrapped
// handler: it redirects anonymous visitors to sign-in, verifies a stored
// credential just in time, and enforces role requirements on top.
package guard

import (
	"context"
	"net/http"
	"net/url"

	interrors "github.com/jrsteele09/go-wellness-portal/internal/errors"
	"github.com/jrsteele09/go-wellness-portal/internal/metrics"
	"github.com/jrsteele09/go-wellness-portal/session"
	"github.com/jrsteele09/go-wellness-portal/users"
	"github.com/rs/zerolog"
)

// Default routes a guard redirects to. Overridable per guard.
const (
	DefaultSignInPath = "/signin"
	DefaultDeniedPath = "/access-denied"
)

// RedirectParam carries the originally requested URL through the sign-in
// redirect so the user lands where they were headed.
const RedirectParam = "redirect"

// Session is the slice of the session controller a guard depends on.
type Session interface {
	Snapshot() session.Snapshot
	EnsureVerified(ctx context.Context) error
}

// TokenSource reports the stored credential. Guards use it for the fast
// path: no credential means deny without touching the network.
type TokenSource interface {
	Get() string
}

// Guard protects routes behind an authentication and role check.
type Guard struct {
	name       string
	session    Session
	tokens     TokenSource
	roles      []users.Role
	signInPath string
	deniedPath string
	log        zerolog.Logger
	metrics    *metrics.Metrics
}

// Option defines a function type to modify the Guard instance.
type Option func(*Guard)

// WithSignInPath sets the route anonymous visitors are redirected to.
func WithSignInPath(path string) Option {
	return func(g *Guard) {
		g.signInPath = path
	}
}

// WithDeniedPath sets the route signed-in users without the required role
// are redirected to.
func WithDeniedPath(path string) Option {
	return func(g *Guard) {
		g.deniedPath = path
	}
}

// WithLogger sets the guard logger.
func WithLogger(log zerolog.Logger) Option {
	return func(g *Guard) {
		g.log = log
	}
}

// WithMetrics records guard decisions on the given metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Guard) {
		g.metrics = m
	}
}

// Authenticated guards routes that require any signed-in user.
func Authenticated(s Session, tokens TokenSource, options ...Option) *Guard {
	return newGuard("authenticated", s, tokens, nil, options...)
}

// Staff guards routes for moderators and administrators.
func Staff(s Session, tokens TokenSource, options ...Option) *Guard {
	return newGuard("staff", s, tokens, []users.Role{users.RoleAdmin, users.RoleModerator}, options...)
}

// Management guards routes for administrators only.
func Management(s Session, tokens TokenSource, options ...Option) *Guard {
	return newGuard("management", s, tokens, []users.Role{users.RoleAdmin}, options...)
}

func newGuard(name string, s Session, tokens TokenSource, roles []users.Role, options ...Option) *Guard {
	g := &Guard{
		name:       name,
		session:    s,
		tokens:     tokens,
		roles:      roles,
		signInPath: DefaultSignInPath,
		deniedPath: DefaultDeniedPath,
		log:        zerolog.Nop(),
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Middleware wraps next with the guard's checks.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Fast path: no stored credential, no network. Straight to sign-in.
		if g.tokens.Get() == "" {
			g.redirectToSignIn(w, r)
			return
		}

		snap := g.session.Snapshot()
		if snap.State != session.StateAuthenticated {
			if err := g.session.EnsureVerified(r.Context()); err != nil {
				g.handleVerificationFailure(w, r, err)
				return
			}
			snap = g.session.Snapshot()
			if snap.State != session.StateAuthenticated {
				// The check settled but the session is no longer signed in,
				// e.g. a sign-out landed while it was in flight.
				g.redirectToSignIn(w, r)
				return
			}
		}

		if !users.HasRequiredRole(snap.User, g.roles...) {
			g.log.Debug().Str("guard", g.name).Str("path", r.URL.Path).Msg("role requirement not met")
			g.record("denied")
			http.Redirect(w, r, g.deniedPath, http.StatusSeeOther)
			return
		}

		g.record("allow")
		next.ServeHTTP(w, r)
	})
}

func (g *Guard) handleVerificationFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case interrors.Is(err, interrors.ErrUnauthorized):
		g.redirectToSignIn(w, r)
	case interrors.Is(err, interrors.ErrForbidden):
		g.record("denied")
		http.Redirect(w, r, g.deniedPath, http.StatusSeeOther)
	default:
		// The session could not be verified either way. Do not sign the
		// user out over it; let them retry.
		g.log.Warn().Err(err).Str("guard", g.name).Str("path", r.URL.Path).Msg("session verification unavailable")
		g.record("unavailable")
		w.Header().Set("Retry-After", "5")
		http.Error(w, "We couldn't verify your session. Please try again.", http.StatusServiceUnavailable)
	}
}

func (g *Guard) redirectToSignIn(w http.ResponseWriter, r *http.Request) {
	g.record("redirect")
	target := g.signInPath + "?" + RedirectParam + "=" + url.QueryEscape(r.URL.RequestURI())
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (g *Guard) record(decision string) {
	if g.metrics != nil {
		g.metrics.GuardDecisions.WithLabelValues(g.name, decision).Inc()
	}
}
