// Package session owns the portal's authentication state machine. The
// controller is the only writer of session state and the token store: every
// sign-in, sign-out, verification, and profile mutation funnels through it,
// so state, credential, and profile always change together.
package session

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jrsteele09/go-wellness-portal/api"
	interrors "github.com/jrsteele09/go-wellness-portal/internal/errors"
	"github.com/jrsteele09/go-wellness-portal/internal/metrics"
	"github.com/jrsteele09/go-wellness-portal/tokenstore"
	"github.com/jrsteele09/go-wellness-portal/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// verifyTimeout bounds a background verification so waiters are never stuck
// behind a hung check.
const verifyTimeout = 30 * time.Second

// API is the slice of the wellness API client the controller depends on.
type API interface {
	Login(ctx context.Context, email, password string) (*api.SessionResponse, error)
	LoginWithGoogle(ctx context.Context, idToken string) (*api.SessionResponse, error)
	Signup(ctx context.Context, req api.SignupRequest) (string, error)
	VerifyEmail(ctx context.Context, email, otp string) (*api.SessionResponse, error)
	CheckSession(ctx context.Context) error
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*users.User, error)
	UpdateMe(ctx context.Context, update api.ProfileUpdate) (*users.User, error)
	UploadProfilePicture(ctx context.Context, filename string, file io.Reader) (*users.User, error)
}

// verifyFlight is a single in-flight verification shared by concurrent
// callers of EnsureVerified.
type verifyFlight struct {
	done chan struct{}
	err  error
}

// Controller drives the session state machine.
type Controller struct {
	api     API
	tokens  tokenstore.Store
	log     zerolog.Logger
	metrics *metrics.Metrics
	nowTime func() time.Time

	mu         sync.Mutex
	state      State
	user       *users.User
	verifiedAt time.Time
	epoch      uint64 // bumped on logout; in-flight results from an older epoch are discarded
	verify     *verifyFlight
}

// Option defines a function type to modify the Controller instance.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

// WithMetrics records session verification outcomes on the given metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Controller) {
		c.nowTime = nowFunc
	}
}

// New initializes a Controller with required dependencies. The session starts
// in StateUnknown until VerifyStartup runs.
func New(apiClient API, tokens tokenstore.Store, options ...Option) (*Controller, error) {
	if apiClient == nil {
		return nil, errors.New("[session.New] api client is required")
	}
	if tokens == nil {
		return nil, errors.New("[session.New] token store is required")
	}

	c := &Controller{
		api:     apiClient,
		tokens:  tokens,
		log:     zerolog.Nop(),
		nowTime: time.Now,
		state:   StateUnknown,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Snapshot returns a copy of the current session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{State: c.state, VerifiedAt: c.verifiedAt}
	if c.user != nil {
		user := *c.user
		snap.User = &user
	}
	return snap
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// VerifyStartup resolves StateUnknown by checking any stored credential
// against the server. Without a credential the session is anonymous and no
// request is made. A rejected credential is removed; a check that could not
// complete leaves the credential in place so a later attempt can retry.
func (c *Controller) VerifyStartup(ctx context.Context) State {
	if c.tokens.Get() == "" {
		c.setAnonymous()
		return StateAnonymous
	}

	if err := c.verifySession(ctx, c.currentEpoch()); err != nil {
		c.log.Debug().Err(err).Msg("startup verification failed")
		if !interrors.Is(err, interrors.ErrUnauthorized) {
			c.setAnonymous()
		}
	}
	return c.State()
}

// Login attempts a password sign-in. Classified failures (bad credentials,
// unverified account, unreachable server) come back as a LoginResult, not an
// error.
func (c *Controller) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	epoch := c.currentEpoch()
	resp, err := c.api.Login(ctx, email, password)
	if err != nil {
		result, err := loginOutcome(err, email)
		if err != nil {
			return nil, errors.Wrap(err, "[Controller.Login]")
		}
		c.log.Debug().Str("email", email).Str("status", string(result.Status)).Msg("login rejected")
		return result, nil
	}
	return c.settleLogin(epoch, resp), nil
}

// LoginWithGoogle signs in with a verified Google ID token.
func (c *Controller) LoginWithGoogle(ctx context.Context, idToken string) (*LoginResult, error) {
	epoch := c.currentEpoch()
	resp, err := c.api.LoginWithGoogle(ctx, idToken)
	if err != nil {
		result, err := loginOutcome(err, "")
		if err != nil {
			return nil, errors.Wrap(err, "[Controller.LoginWithGoogle]")
		}
		return result, nil
	}
	return c.settleLogin(epoch, resp), nil
}

// Signup registers a new account. The session is untouched; the account must
// verify its email before signing in.
func (c *Controller) Signup(ctx context.Context, req api.SignupRequest) (string, error) {
	email, err := c.api.Signup(ctx, req)
	if err != nil {
		return "", errors.Wrap(err, "[Controller.Signup]")
	}
	return email, nil
}

// VerifyEmail confirms the signup OTP. When the server issues a session along
// with the confirmation the user is signed in directly; otherwise the result
// is LoginVerified and the user signs in normally.
func (c *Controller) VerifyEmail(ctx context.Context, email, otp string) (*LoginResult, error) {
	epoch := c.currentEpoch()
	resp, err := c.api.VerifyEmail(ctx, email, otp)
	if err != nil {
		result, err := loginOutcome(err, email)
		if err != nil {
			return nil, errors.Wrap(err, "[Controller.VerifyEmail]")
		}
		return result, nil
	}
	if resp.AccessToken == "" || resp.User == nil {
		return &LoginResult{Status: LoginVerified, Email: email}, nil
	}
	return c.settleLogin(epoch, resp), nil
}

// Logout tears the session down unconditionally. Local state and the stored
// credential are gone by the time this returns, whether or not the server
// acknowledged the revocation. Any sign-in still in flight when Logout is
// called lands in a dead epoch and is discarded.
func (c *Controller) Logout(ctx context.Context) {
	c.mu.Lock()
	c.epoch++
	c.state = StateAnonymous
	c.user = nil
	c.mu.Unlock()

	if err := c.api.Logout(ctx); err != nil {
		c.log.Debug().Err(err).Msg("server-side logout failed")
	}
	c.tokens.Remove()
}

// EnsureVerified confirms the session is usable, verifying the stored
// credential against the server when the state is not yet authenticated.
// Concurrent callers share one verification; each waits no longer than its
// own context allows. The returned error carries the taxonomy sentinel.
func (c *Controller) EnsureVerified(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateAuthenticated {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if c.tokens.Get() == "" {
		return interrors.Wrapf(interrors.ErrUnauthorized, "no stored credential")
	}

	c.mu.Lock()
	flight := c.verify
	if flight == nil {
		flight = &verifyFlight{done: make(chan struct{})}
		c.verify = flight
		go c.runVerification(flight, c.epoch)
	}
	c.mu.Unlock()

	select {
	case <-flight.done:
		return flight.err
	case <-ctx.Done():
		return interrors.Wrapf(interrors.ErrUnavailable, "verification interrupted: %v", ctx.Err())
	}
}

// ReloadProfile refreshes the profile from the server. A rejected credential
// tears the session down.
func (c *Controller) ReloadProfile(ctx context.Context) (*users.User, error) {
	epoch := c.currentEpoch()
	user, err := c.api.Me(ctx)
	if err != nil {
		c.deauthenticateIfRejected(err, epoch)
		return nil, errors.Wrap(err, "[Controller.ReloadProfile]")
	}
	c.applyIdentity(epoch, user, "")
	return user, nil
}

// UpdateProfile applies a partial profile update and adopts the server's
// authoritative record.
func (c *Controller) UpdateProfile(ctx context.Context, update api.ProfileUpdate) (*users.User, error) {
	epoch := c.currentEpoch()
	user, err := c.api.UpdateMe(ctx, update)
	if err != nil {
		c.deauthenticateIfRejected(err, epoch)
		return nil, errors.Wrap(err, "[Controller.UpdateProfile]")
	}
	c.applyIdentity(epoch, user, "")
	return user, nil
}

// UpdateProfilePicture uploads a new profile picture and adopts the updated
// record.
func (c *Controller) UpdateProfilePicture(ctx context.Context, filename string, file io.Reader) (*users.User, error) {
	epoch := c.currentEpoch()
	user, err := c.api.UploadProfilePicture(ctx, filename, file)
	if err != nil {
		c.deauthenticateIfRejected(err, epoch)
		return nil, errors.Wrap(err, "[Controller.UpdateProfilePicture]")
	}
	c.applyIdentity(epoch, user, "")
	return user, nil
}

// verifySession checks the stored credential and, when accepted, loads the
// profile and authenticates. 401 removes the credential; 403 keeps it; a
// check that could not complete changes nothing.
func (c *Controller) verifySession(ctx context.Context, epoch uint64) error {
	if err := c.api.CheckSession(ctx); err != nil {
		c.recordSessionCheck(err)
		c.deauthenticateIfRejected(err, epoch)
		return err
	}
	user, err := c.api.Me(ctx)
	if err != nil {
		c.recordSessionCheck(err)
		c.deauthenticateIfRejected(err, epoch)
		return err
	}
	c.recordSessionCheck(nil)
	c.applyIdentity(epoch, user, "")
	return nil
}

// recordSessionCheck counts one verification round trip by outcome.
func (c *Controller) recordSessionCheck(err error) {
	if c.metrics == nil {
		return
	}
	outcome := "valid"
	switch {
	case err == nil:
	case interrors.Is(err, interrors.ErrUnauthorized), interrors.Is(err, interrors.ErrForbidden):
		outcome = "invalid"
	default:
		outcome = "unavailable"
	}
	c.metrics.SessionChecks.WithLabelValues(outcome).Inc()
}

func (c *Controller) runVerification(flight *verifyFlight, epoch uint64) {
	// Runs under its own deadline so one caller's cancellation cannot fail
	// the verification for everyone sharing it.
	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	flight.err = c.verifySession(ctx, epoch)

	c.mu.Lock()
	if c.verify == flight {
		c.verify = nil
	}
	c.mu.Unlock()
	close(flight.done)
}

// settleLogin applies a successful sign-in response unless the session epoch
// moved on while the request was in flight.
func (c *Controller) settleLogin(epoch uint64, resp *api.SessionResponse) *LoginResult {
	if !c.applyIdentity(epoch, resp.User, resp.AccessToken) {
		c.log.Debug().Msg("discarding sign-in response from a superseded attempt")
		return &LoginResult{Status: LoginSuperseded}
	}
	return &LoginResult{Status: LoginOK, User: resp.User}
}

// applyIdentity is the single place session identity is written. It reports
// whether the result was applied.
func (c *Controller) applyIdentity(epoch uint64, user *users.User, token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		return false
	}
	if token != "" {
		c.tokens.Store(token)
	}
	c.user = user
	c.state = StateAuthenticated
	c.verifiedAt = c.nowTime()
	return true
}

// deauthenticateIfRejected tears the session down when the server rejected
// the credential outright. Forbidden and transient failures leave the
// credential in place.
func (c *Controller) deauthenticateIfRejected(err error, epoch uint64) {
	if !interrors.Is(err, interrors.ErrUnauthorized) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		return
	}
	c.tokens.Remove()
	c.state = StateAnonymous
	c.user = nil
}

func (c *Controller) setAnonymous() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateAnonymous
	c.user = nil
}

func (c *Controller) currentEpoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// loginOutcome classifies a sign-in failure into a LoginResult. Errors
// outside the taxonomy are returned for the caller to surface.
func loginOutcome(err error, email string) (*LoginResult, error) {
	switch {
	case interrors.Is(err, interrors.ErrVerificationRequired):
		return &LoginResult{Status: LoginVerificationRequired, Message: api.Message(err), Email: email}, nil
	case interrors.Is(err, interrors.ErrUnauthorized):
		return &LoginResult{Status: LoginFailed, Message: api.Message(err)}, nil
	case interrors.Is(err, interrors.ErrUnavailable):
		return &LoginResult{Status: LoginUnavailable, Message: api.Message(err)}, nil
	}
	var apiErr *api.Error
	if interrors.As(err, &apiErr) {
		return &LoginResult{Status: LoginFailed, Message: apiErr.Message}, nil
	}
	return nil, err
}
