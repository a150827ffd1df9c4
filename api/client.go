// Package api is the HTTP client for the remote wellness platform API. All
// business rules live server-side; this package's responsibilities end at
// transporting requests, attaching the bearer credential, and classifying
// failures into the internal/errors taxonomy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	interrors "github.com/jrsteele09/go-wellness-portal/internal/errors"
	"github.com/jrsteele09/go-wellness-portal/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// requestTimeout bounds every call so a hung server cannot leave a caller
// waiting indefinitely.
const requestTimeout = 30 * time.Second

// Client talks to the wellness platform API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	log     zerolog.Logger
}

// Option defines a function type to modify the Client instance.
type Option func(*Client)

// WithLogger sets the request logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithTimeout overrides the per-request timeout (primarily for testing).
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http.Timeout = timeout
		}
	}
}

// WithBaseTransport replaces the underlying transport the credential
// interceptor wraps (primarily for testing).
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.Transport.(*authTransport).base = rt
	}
}

// New initializes a Client for the API at baseURL. Every outgoing request is
// routed through the credential interceptor backed by tokens.
func New(baseURL string, tokens TokenSource, options ...Option) (*Client, error) {
	if tokens == nil {
		return nil, errors.New("[api.New] token source is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "[api.New] invalid base URL")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.New("[api.New] base URL must be absolute")
	}

	c := &Client{
		baseURL: u,
		http: &http.Client{
			Timeout:   requestTimeout,
			Transport: &authTransport{base: http.DefaultTransport, tokens: tokens},
		},
		log: zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Login exchanges credentials for a session. An unverified account surfaces
// as ErrVerificationRequired in the error chain.
func (c *Client) Login(ctx context.Context, email, password string) (*SessionResponse, error) {
	var out SessionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.Login]")
	}
	return &out, nil
}

// LoginWithGoogle exchanges a verified Google ID token for a session.
func (c *Client) LoginWithGoogle(ctx context.Context, idToken string) (*SessionResponse, error) {
	var out SessionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/google", googleLoginRequest{IDToken: idToken}, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.LoginWithGoogle]")
	}
	return &out, nil
}

// Signup registers a new account and returns the email the OTP was sent to.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (string, error) {
	var out signupResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/signup", req, &out); err != nil {
		return "", errors.Wrap(err, "[Client.Signup]")
	}
	return out.Email, nil
}

// VerifyEmail confirms the OTP sent at signup. Some deployments log the user
// straight in, in which case the response carries a token and user.
func (c *Client) VerifyEmail(ctx context.Context, email, otp string) (*SessionResponse, error) {
	var out SessionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/verify-email", verifyEmailRequest{Email: email, OTP: otp}, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.VerifyEmail]")
	}
	return &out, nil
}

// CheckSession asks the server whether the attached credential is still
// valid. A nil error means it is.
func (c *Client) CheckSession(ctx context.Context) error {
	var out checkResponse
	if err := c.doJSON(ctx, http.MethodGet, "/auth/check", nil, &out); err != nil {
		return errors.Wrap(err, "[Client.CheckSession]")
	}
	return nil
}

// Logout invalidates the session server-side.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.doJSON(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		return errors.Wrap(err, "[Client.Logout]")
	}
	return nil
}

// Me fetches the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*users.User, error) {
	var out userResponse
	if err := c.doJSON(ctx, http.MethodGet, "/user/me", nil, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.Me]")
	}
	return out.User, nil
}

// UpdateMe applies a partial profile update and returns the server's
// authoritative record.
func (c *Client) UpdateMe(ctx context.Context, update ProfileUpdate) (*users.User, error) {
	var out userResponse
	if err := c.doJSON(ctx, http.MethodPut, "/user/me", update, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.UpdateMe]")
	}
	return out.User, nil
}

// UploadProfilePicture sends the picture as a multipart upload and returns
// the updated user record.
func (c *Client) UploadProfilePicture(ctx context.Context, filename string, file io.Reader) (*users.User, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.UploadProfilePicture] form file")
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, errors.Wrap(err, "[Client.UploadProfilePicture] copy")
	}
	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "[Client.UploadProfilePicture] close writer")
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/user/me/profile-picture", &body)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.UploadProfilePicture]")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var out pictureResponse
	if err := c.send(req, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.UploadProfilePicture]")
	}
	return out.User, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "marshal request")
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

// send executes the request and classifies the outcome. Transport-level
// failures (timeouts, connectivity) become ErrUnavailable; non-2xx responses
// become *Error carrying the server's message.
func (c *Client) send(req *http.Request, out any) error {
	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", req.Method).Str("path", req.URL.Path).Msg("request failed")
		return interrors.Wrapf(interrors.ErrUnavailable, "%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("api request")

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return interrors.Wrapf(interrors.ErrUnavailable, "%s %s: read body: %v", req.Method, req.URL.Path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg apiMessage
		_ = json.Unmarshal(data, &msg)
		return &Error{Status: resp.StatusCode, Message: msg.Message}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "decode %s %s response", req.Method, req.URL.Path)
	}
	return nil
}
