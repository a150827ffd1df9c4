package server

// Route path constants
// All gateway routes are defined here to ensure consistency and prevent typos
const (
	// Public pages
	RouteHome         = "/"
	RouteSignIn       = "/signin"
	RouteSignUp       = "/signup"
	RouteVerifyEmail  = "/verify-email"
	RouteAccessDenied = "/access-denied"

	// Google sign-in
	RouteGoogleLogin    = "/auth/google"
	RouteGoogleCallback = "/auth/google/callback"

	// Session
	RouteLogout = "/logout"

	// Guarded pages
	RouteAccount        = "/account"
	RouteAccountPicture = "/account/picture"
	RouteModeration     = "/moderation"
	RouteManagement     = "/management"

	// Operational
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)
