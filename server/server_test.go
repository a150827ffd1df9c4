package server_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jrsteele09/go-wellness-portal/api"
	"github.com/jrsteele09/go-wellness-portal/api/apifake"
	"github.com/jrsteele09/go-wellness-portal/internal/config"
	"github.com/jrsteele09/go-wellness-portal/server"
	"github.com/jrsteele09/go-wellness-portal/session"
	"github.com/jrsteele09/go-wellness-portal/tokenstore"
	"github.com/jrsteele09/go-wellness-portal/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	fakeAPI    *apifake.FakeAPI
	tokens     *tokenstore.MemoryStore
	controller *session.Controller
	gateway    *server.Server
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	fakeAPI := apifake.NewFakeAPI()
	apiServer := httptest.NewServer(fakeAPI)
	t.Cleanup(apiServer.Close)

	tokens := tokenstore.NewMemoryStore()
	client, err := api.New(apiServer.URL, tokens)
	require.NoError(t, err)
	controller, err := session.New(client, tokens)
	require.NoError(t, err)

	gateway, err := server.New(config.New(), controller, tokens)
	require.NoError(t, err)

	return &testFixture{fakeAPI: fakeAPI, tokens: tokens, controller: controller, gateway: gateway}
}

func (f *testFixture) get(target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	recorder := httptest.NewRecorder()
	f.gateway.ServeHTTP(recorder, req)
	return recorder
}

func (f *testFixture) post(target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	recorder := httptest.NewRecorder()
	f.gateway.ServeHTTP(recorder, req)
	return recorder
}

func (f *testFixture) signIn(t *testing.T, role users.Role) *httptest.ResponseRecorder {
	t.Helper()
	f.fakeAPI.AddUser(users.User{Email: "jane@example.com", FirstName: "Jane", LastName: "Doe", Role: role, IsEmailVerified: true}, "secret")
	recorder := f.post(server.RouteSignIn, url.Values{"email": {"jane@example.com"}, "password": {"secret"}})
	require.Equal(t, http.StatusSeeOther, recorder.Code)
	return recorder
}

func sessionCookie(t *testing.T, recorder *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range recorder.Result().Cookies() {
		if c.Name == tokenstore.CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", tokenstore.CookieName)
	return nil
}

func TestHealthEndpoint(t *testing.T) {
	fixture := setupTestFixture(t)
	recorder := fixture.get(server.RouteHealth)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"status":"ok"}`, recorder.Body.String())
}

func TestHomeAnonymous(t *testing.T) {
	fixture := setupTestFixture(t)
	recorder := fixture.get(server.RouteHome)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Sign in")
}

func TestGuardedRouteRedirectsAnonymousVisitor(t *testing.T) {
	fixture := setupTestFixture(t)

	recorder := fixture.get(server.RouteAccount)

	assert.Equal(t, http.StatusSeeOther, recorder.Code)
	location, err := url.Parse(recorder.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, server.RouteSignIn, location.Path)
	assert.Equal(t, server.RouteAccount, location.Query().Get("redirect"))
}

func TestSignInEstablishesSessionAndCookie(t *testing.T) {
	fixture := setupTestFixture(t)

	recorder := fixture.signIn(t, users.RoleUser)

	assert.Equal(t, server.RouteAccount, recorder.Header().Get("Location"))
	cookie := sessionCookie(t, recorder)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, session.StateAuthenticated, fixture.controller.State())
}

func TestSignInBadCredentialsShowsError(t *testing.T) {
	fixture := setupTestFixture(t)
	fixture.fakeAPI.AddUser(users.User{Email: "jane@example.com", IsEmailVerified: true}, "secret")

	recorder := fixture.post(server.RouteSignIn, url.Values{"email": {"jane@example.com"}, "password": {"wrong"}})

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Invalid email or password")
}

func TestSignInUnverifiedAccountRoutesToVerification(t *testing.T) {
	fixture := setupTestFixture(t)
	fixture.fakeAPI.AddUser(users.User{Email: "new@example.com"}, "secret")

	recorder := fixture.post(server.RouteSignIn, url.Values{"email": {"new@example.com"}, "password": {"secret"}})

	assert.Equal(t, http.StatusSeeOther, recorder.Code)
	location, err := url.Parse(recorder.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, server.RouteVerifyEmail, location.Path)
	assert.Equal(t, "new@example.com", location.Query().Get("email"))
}

func TestSignInPreservesRedirectTarget(t *testing.T) {
	fixture := setupTestFixture(t)
	fixture.fakeAPI.AddUser(users.User{Email: "jane@example.com", Role: users.RoleUser, IsEmailVerified: true}, "secret")

	recorder := fixture.post(server.RouteSignIn, url.Values{
		"email":    {"jane@example.com"},
		"password": {"secret"},
		"redirect": {"/moderation?tab=queue"},
	})

	assert.Equal(t, http.StatusSeeOther, recorder.Code)
	assert.Equal(t, "/moderation?tab=queue", recorder.Header().Get("Location"))
}

func TestSignInRejectsOffsiteRedirect(t *testing.T) {
	fixture := setupTestFixture(t)
	fixture.fakeAPI.AddUser(users.User{Email: "jane@example.com", Role: users.RoleUser, IsEmailVerified: true}, "secret")

	recorder := fixture.post(server.RouteSignIn, url.Values{
		"email":    {"jane@example.com"},
		"password": {"secret"},
		"redirect": {"//evil.example.com/phish"},
	})

	assert.Equal(t, server.RouteAccount, recorder.Header().Get("Location"))
}

func TestSignupAndVerifyFlow(t *testing.T) {
	fixture := setupTestFixture(t)

	recorder := fixture.post(server.RouteSignUp, url.Values{
		"firstName": {"New"},
		"lastName":  {"User"},
		"email":     {"new@example.com"},
		"password":  {"secret"},
	})
	require.Equal(t, http.StatusSeeOther, recorder.Code)
	location, err := url.Parse(recorder.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, server.RouteVerifyEmail, location.Path)

	recorder = fixture.post(server.RouteVerifyEmail, url.Values{"email": {"new@example.com"}, "otp": {"123456"}})
	assert.Equal(t, http.StatusSeeOther, recorder.Code)
	assert.Equal(t, server.RouteAccount, recorder.Header().Get("Location"))
	assert.Equal(t, session.StateAuthenticated, fixture.controller.State())
}

func TestVerifyEmailBadOTPShowsError(t *testing.T) {
	fixture := setupTestFixture(t)
	fixture.post(server.RouteSignUp, url.Values{"email": {"new@example.com"}, "password": {"secret"}})

	recorder := fixture.post(server.RouteVerifyEmail, url.Values{"email": {"new@example.com"}, "otp": {"000000"}})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Invalid or expired OTP")
}

func TestLogoutClearsSessionAndCookie(t *testing.T) {
	fixture := setupTestFixture(t)
	fixture.signIn(t, users.RoleUser)

	recorder := fixture.post(server.RouteLogout, url.Values{})

	assert.Equal(t, http.StatusSeeOther, recorder.Code)
	assert.Equal(t, server.RouteHome, recorder.Header().Get("Location"))
	cookie := sessionCookie(t, recorder)
	assert.Negative(t, cookie.MaxAge, "cookie must be expired")
	assert.Empty(t, fixture.tokens.Get())
	assert.Equal(t, session.StateAnonymous, fixture.controller.State())
}

func TestAccountPageAndProfileUpdate(t *testing.T) {
	fixture := setupTestFixture(t)
	fixture.signIn(t, users.RoleUser)

	recorder := fixture.get(server.RouteAccount)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "jane@example.com")

	recorder = fixture.post(server.RouteAccount, url.Values{"city": {"Brighton"}})
	require.Equal(t, http.StatusSeeOther, recorder.Code)

	recorder = fixture.get(server.RouteAccount)
	assert.Contains(t, recorder.Body.String(), "Brighton")
	assert.Contains(t, recorder.Body.String(), "Jane", "untouched fields survive a partial update")
}

func TestAccountPictureUpload(t *testing.T) {
	fixture := setupTestFixture(t)
	fixture.signIn(t, users.RoleUser)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("picture", "avatar.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("not really a png"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, server.RouteAccountPicture, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	recorder := httptest.NewRecorder()
	fixture.gateway.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusSeeOther, recorder.Code)
	assert.Contains(t, recorder.Header().Get("Location"), server.RouteAccount)

	snap := fixture.controller.Snapshot()
	require.NotNil(t, snap.User)
	assert.Equal(t, "/uploads/avatar.png", snap.User.ProfilePicture)
}

func TestModerationRequiresStaffRole(t *testing.T) {
	fixture := setupTestFixture(t)
	fixture.signIn(t, users.RoleUser)

	recorder := fixture.get(server.RouteModeration)

	assert.Equal(t, http.StatusSeeOther, recorder.Code)
	assert.Equal(t, server.RouteAccessDenied, recorder.Header().Get("Location"))

	recorder = fixture.get(server.RouteAccessDenied)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Back to home")
}

func TestModerationAllowsModerator(t *testing.T) {
	fixture := setupTestFixture(t)
	fixture.signIn(t, users.RoleModerator)

	recorder := fixture.get(server.RouteModeration)
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = fixture.get(server.RouteManagement)
	assert.Equal(t, http.StatusSeeOther, recorder.Code, "moderators do not reach management")
}

func TestManagementAllowsAdmin(t *testing.T) {
	fixture := setupTestFixture(t)
	fixture.signIn(t, users.RoleAdmin)

	recorder := fixture.get(server.RouteManagement)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestBrowserCookieRestoresSessionAfterRestart(t *testing.T) {
	// The gateway starts with an empty token store, as after a restart; the
	// browser still holds a valid session cookie.
	fixture := setupTestFixture(t)
	fixture.fakeAPI.AddUser(users.User{Email: "jane@example.com", Role: users.RoleUser, IsEmailVerified: true}, "secret")
	token := fixture.fakeAPI.IssueToken("jane@example.com")

	response := fixture.get(server.RouteAccount, &http.Cookie{Name: tokenstore.CookieName, Value: token})
	assert.Equal(t, http.StatusOK, response.Code)
	assert.Contains(t, response.Body.String(), "jane@example.com")
}

func TestGoogleSignInUnconfigured(t *testing.T) {
	fixture := setupTestFixture(t)

	recorder := fixture.get(server.RouteGoogleLogin)

	assert.Equal(t, http.StatusSeeOther, recorder.Code)
	location, err := url.Parse(recorder.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, server.RouteSignIn, location.Path)
	assert.NotEmpty(t, location.Query().Get("error"))
}
