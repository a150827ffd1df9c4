// Package googleauth runs the server-side Google sign-in flow: redirect to
// Google with state, nonce, and PKCE, then verify the callback and hand the
// ID token to the session controller for the credential exchange.
package googleauth

import (
	"context"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-wellness-portal/googleauth/flowrepo"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const (
	// Issuer is Google's OIDC issuer.
	Issuer = "https://accounts.google.com"
	// flowTimeout is how long a started sign-in stays redeemable.
	flowTimeout = 15 * time.Minute
)

// IDTokenVerifier verifies the signature and claims of a raw ID token.
// Satisfied by *oidc.IDTokenVerifier.
type IDTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

// Config holds the Google OAuth client registration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Flow drives the authorization code exchange with Google.
type Flow struct {
	oauth    *oauth2.Config
	verifier IDTokenVerifier
	states   flowrepo.Repo
	nowTime  func() time.Time
}

// Option defines a function type to modify the Flow instance.
type Option func(*Flow)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(f *Flow) {
		f.nowTime = nowFunc
	}
}

// New discovers Google's endpoints and initializes a Flow.
func New(ctx context.Context, cfg Config, states flowrepo.Repo, options ...Option) (*Flow, error) {
	provider, err := oidc.NewProvider(ctx, Issuer)
	if err != nil {
		return nil, errors.Wrap(err, "[googleauth.New] provider discovery")
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	return NewWithProvider(provider.Endpoint(), verifier, cfg, states, options...)
}

// NewWithProvider initializes a Flow against explicit endpoints and verifier
// (primarily for testing).
func NewWithProvider(endpoint oauth2.Endpoint, verifier IDTokenVerifier, cfg Config, states flowrepo.Repo, options ...Option) (*Flow, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("[googleauth.NewWithProvider] client ID is required")
	}
	if cfg.RedirectURL == "" {
		return nil, errors.New("[googleauth.NewWithProvider] redirect URL is required")
	}
	if verifier == nil {
		return nil, errors.New("[googleauth.NewWithProvider] verifier is required")
	}
	if states == nil {
		return nil, errors.New("[googleauth.NewWithProvider] state repo is required")
	}

	f := &Flow{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: verifier,
		states:   states,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(f)
	}
	return f, nil
}

// Begin starts a sign-in and returns the Google authorization URL to
// redirect the user to. returnURL is replayed to the caller on Complete.
func (f *Flow) Begin(returnURL string) (string, error) {
	state := uuid.NewString()
	nonce := uuid.NewString()
	verifier := oauth2.GenerateVerifier()

	if err := f.states.Upsert(state, &flowrepo.FlowState{
		CodeVerifier: verifier,
		Nonce:        nonce,
		ReturnURL:    returnURL,
		CreatedAt:    f.nowTime(),
	}); err != nil {
		return "", errors.Wrap(err, "[Flow.Begin] store flow state")
	}

	return f.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier), oidc.Nonce(nonce)), nil
}

// Complete redeems the callback. It validates state, exchanges the code with
// the PKCE verifier, verifies the ID token and its nonce, and returns the raw
// ID token plus the returnURL the sign-in started from. State is single-use.
func (f *Flow) Complete(ctx context.Context, state, code string) (idToken, returnURL string, err error) {
	if state == "" || code == "" {
		return "", "", errors.New("[Flow.Complete] missing state or code")
	}

	flowState, err := f.states.Get(state)
	if err != nil {
		return "", "", errors.Wrap(err, "[Flow.Complete] unknown state")
	}
	if err := f.states.Delete(state); err != nil {
		return "", "", errors.Wrap(err, "[Flow.Complete] consume state")
	}
	if f.nowTime().Sub(flowState.CreatedAt) > flowTimeout {
		return "", "", errors.New("[Flow.Complete] sign-in expired")
	}

	token, err := f.oauth.Exchange(ctx, code, oauth2.VerifierOption(flowState.CodeVerifier))
	if err != nil {
		return "", "", errors.Wrap(err, "[Flow.Complete] code exchange")
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return "", "", errors.New("[Flow.Complete] no ID token in response")
	}

	verified, err := f.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return "", "", errors.Wrap(err, "[Flow.Complete] ID token verification")
	}
	if verified.Nonce != flowState.Nonce {
		return "", "", errors.New("[Flow.Complete] nonce mismatch")
	}

	return rawIDToken, flowState.ReturnURL, nil
}
