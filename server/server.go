// Package server is the portal gateway: a small same-origin web server that
// renders the portal pages, drives the session controller, and keeps guarded
// routes behind the route guards.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jrsteele09/go-wellness-portal/googleauth"
	"github.com/jrsteele09/go-wellness-portal/guard"
	"github.com/jrsteele09/go-wellness-portal/internal/config"
	"github.com/jrsteele09/go-wellness-portal/internal/metrics"
	"github.com/jrsteele09/go-wellness-portal/session"
	"github.com/jrsteele09/go-wellness-portal/tokenstore"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type Server struct {
	router  *chi.Mux
	config  config.Config
	session *session.Controller
	tokens  tokenstore.Store
	google  *googleauth.Flow
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// Option defines a function type to modify the Server instance.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithGoogleFlow enables the Google sign-in routes.
func WithGoogleFlow(flow *googleauth.Flow) Option {
	return func(s *Server) {
		s.google = flow
	}
}

// New initializes the gateway with required dependencies.
func New(cfg config.Config, controller *session.Controller, tokens tokenstore.Store, options ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("[server.New] config is required")
	}
	if controller == nil {
		return nil, errors.New("[server.New] session controller is required")
	}
	if tokens == nil {
		return nil, errors.New("[server.New] token store is required")
	}

	s := &Server{
		config:  cfg,
		session: controller,
		tokens:  tokens,
		log:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) initRoutes() {
	router := chi.NewRouter()
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(s.requestLogger)
	router.Use(s.frameSecurity)
	router.Use(s.tokenCookie)

	router.Get(RouteHealth, s.HealthHandler())
	router.Method(http.MethodGet, RouteMetrics, promhttp.Handler())

	router.Get(RouteHome, s.HomeHandler())
	router.Get(RouteSignIn, s.SignInPageHandler())
	router.Post(RouteSignIn, s.SignInSubmitHandler())
	router.Get(RouteSignUp, s.SignUpPageHandler())
	router.Post(RouteSignUp, s.SignUpSubmitHandler())
	router.Get(RouteVerifyEmail, s.VerifyEmailPageHandler())
	router.Post(RouteVerifyEmail, s.VerifyEmailSubmitHandler())
	router.Get(RouteGoogleLogin, s.GoogleLoginHandler())
	router.Get(RouteGoogleCallback, s.GoogleCallbackHandler())
	router.Post(RouteLogout, s.LogoutHandler())
	router.Get(RouteAccessDenied, s.AccessDeniedHandler())

	guardOptions := []guard.Option{
		guard.WithSignInPath(RouteSignIn),
		guard.WithDeniedPath(RouteAccessDenied),
		guard.WithLogger(s.log),
	}
	if s.metrics != nil {
		guardOptions = append(guardOptions, guard.WithMetrics(s.metrics))
	}

	router.Group(func(r chi.Router) {
		r.Use(guard.Authenticated(s.session, s.tokens, guardOptions...).Middleware)
		r.Get(RouteAccount, s.AccountPageHandler())
		r.Post(RouteAccount, s.AccountUpdateHandler())
		r.Post(RouteAccountPicture, s.AccountPictureHandler())
	})
	router.Group(func(r chi.Router) {
		r.Use(guard.Staff(s.session, s.tokens, guardOptions...).Middleware)
		r.Get(RouteModeration, s.ModerationHandler())
	})
	router.Group(func(r chi.Router) {
		r.Use(guard.Management(s.session, s.tokens, guardOptions...).Middleware)
		r.Get(RouteManagement, s.ManagementHandler())
	})

	s.router = router
}

func (s *Server) recordLogin(method, result string) {
	if s.metrics != nil {
		s.metrics.LoginAttempts.WithLabelValues(method, result).Inc()
	}
}
