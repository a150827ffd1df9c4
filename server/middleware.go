package server

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jrsteele09/go-wellness-portal/tokenstore"
)

// requestLogger logs every request with its status and duration, and feeds
// the request duration histogram.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		elapsed := time.Since(started)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", elapsed).
			Msg("request")
		if s.metrics != nil {
			s.metrics.RequestDuration.WithLabelValues(r.URL.Path).Observe(elapsed.Seconds())
		}
	})
}

// frameSecurity prevents the portal pages being embedded on other sites.
func (s *Server) frameSecurity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'self'")
		next.ServeHTTP(w, r)
	})
}

// tokenCookie restores the session credential from the browser cookie when
// the gateway's own store is empty, so a session set up before a restart is
// picked up again.
func (s *Server) tokenCookie(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.tokens.Get() == "" {
			if token := tokenstore.FromRequest(r); token != "" {
				s.tokens.Store(token)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// setSessionCookie mirrors the stored credential into the browser cookie.
func (s *Server) setSessionCookie(w http.ResponseWriter) {
	if token := s.tokens.Get(); token != "" {
		http.SetCookie(w, tokenstore.NewCookie(token, s.config.GetSecureCookies()))
	}
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, tokenstore.ClearCookie(s.config.GetSecureCookies()))
}
