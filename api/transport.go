package api

import (
	"net/http"

	"github.com/google/uuid"
)

// TokenSource yields the current bearer credential. The token store satisfies
// this; the transport reads it synchronously on every request so a rotation or
// logout is picked up on the very next call.
type TokenSource interface {
	Get() string
}

// authTransport attaches the bearer credential to every outgoing request and
// stamps a correlation ID. It never short-circuits requests without a token
// (unauthenticated endpoints must stay callable) and never interprets
// responses; classification belongs to the client and session controller.
type authTransport struct {
	base   http.RoundTripper
	tokens TokenSource
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if token := t.tokens.Get(); token != "" {
		clone.Header.Set("Authorization", "Bearer "+token)
	}
	clone.Header.Set("X-Request-ID", uuid.NewString())
	return t.base.RoundTrip(clone)
}
