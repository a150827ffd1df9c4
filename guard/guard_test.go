package guard_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/jrsteele09/go-wellness-portal/api"
	"github.com/jrsteele09/go-wellness-portal/api/apifake"
	"github.com/jrsteele09/go-wellness-portal/guard"
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
	served     bool
	next       http.Handler
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	fakeAPI := apifake.NewFakeAPI()
	server := httptest.NewServer(fakeAPI)
	t.Cleanup(server.Close)

	tokens := tokenstore.NewMemoryStore()
	client, err := api.New(server.URL, tokens)
	require.NoError(t, err)
	controller, err := session.New(client, tokens)
	require.NoError(t, err)

	fixture := &testFixture{fakeAPI: fakeAPI, tokens: tokens, controller: controller}
	fixture.next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fixture.served = true
		w.WriteHeader(http.StatusOK)
	})
	return fixture
}

func (f *testFixture) signIn(t *testing.T, role users.Role) {
	t.Helper()
	f.fakeAPI.AddUser(users.User{Email: "jane@example.com", Role: role, IsEmailVerified: true}, "secret")
	result, err := f.controller.Login(context.Background(), "jane@example.com", "secret")
	require.NoError(t, err)
	require.Equal(t, session.LoginOK, result.Status)
}

func (f *testFixture) request(g *guard.Guard, target string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	g.Middleware(f.next).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, target, nil))
	return recorder
}

func TestGuardWithoutTokenRedirectsWithoutNetwork(t *testing.T) {
	fixture := setupTestFixture(t)
	g := guard.Authenticated(fixture.controller, fixture.tokens)

	recorder := fixture.request(g, "/account/settings?tab=profile")

	assert.Equal(t, http.StatusSeeOther, recorder.Code)
	location, err := url.Parse(recorder.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, guard.DefaultSignInPath, location.Path)
	assert.Equal(t, "/account/settings?tab=profile", location.Query().Get(guard.RedirectParam))
	assert.False(t, fixture.served)
	assert.Zero(t, fixture.fakeAPI.TotalCalls(), "no credential means the guard decides locally")
}

func TestGuardAllowsAuthenticatedUser(t *testing.T) {
	fixture := setupTestFixture(t)
	fixture.signIn(t, users.RoleUser)
	g := guard.Authenticated(fixture.controller, fixture.tokens)

	recorder := fixture.request(g, "/account")

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, fixture.served)
}

func TestGuardVerifiesStoredTokenJustInTime(t *testing.T) {
	fixture := setupTestFixture(t)
	fixture.fakeAPI.AddUser(users.User{Email: "jane@example.com", Role: users.RoleUser, IsEmailVerified: true}, "secret")
	fixture.tokens.Store(fixture.fakeAPI.IssueToken("jane@example.com"))
	g := guard.Authenticated(fixture.controller, fixture.tokens)

	recorder := fixture.request(g, "/account")

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, fixture.served)
	assert.Equal(t, session.StateAuthenticated, fixture.controller.State())
}

func TestGuardRejectedTokenRedirectsToSignIn(t *testing.T) {
	fixture := setupTestFixture(t)
	fixture.tokens.Store("stale-token")
	g := guard.Authenticated(fixture.controller, fixture.tokens)

	recorder := fixture.request(g, "/account")

	assert.Equal(t, http.StatusSeeOther, recorder.Code)
	location, err := url.Parse(recorder.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, guard.DefaultSignInPath, location.Path)
	assert.Empty(t, fixture.tokens.Get(), "rejected credential is removed")
	assert.False(t, fixture.served)
}

func TestGuardUnavailableVerificationDoesNotSignOut(t *testing.T) {
	fixture := setupTestFixture(t)
	fixture.tokens.Store("some-token")
	fixture.fakeAPI.FailNext(http.MethodGet, "/auth/check", http.StatusInternalServerError, "boom")
	g := guard.Authenticated(fixture.controller, fixture.tokens)

	recorder := fixture.request(g, "/account")

	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "couldn't verify your session")
	assert.NotEmpty(t, fixture.tokens.Get(), "a failed check is not a sign-out")
	assert.False(t, fixture.served)
}

func TestGuardSignOutDuringVerificationRedirectsToSignIn(t *testing.T) {
	fixture := setupTestFixture(t)
	fixture.fakeAPI.AddUser(users.User{Email: "jane@example.com", Role: users.RoleUser, IsEmailVerified: true}, "secret")
	fixture.tokens.Store(fixture.fakeAPI.IssueToken("jane@example.com"))
	release := fixture.fakeAPI.HoldNext(http.MethodGet, "/auth/check")
	// Keep the server-side session alive so the held check still succeeds
	// after the sign-out; only the local epoch has moved on.
	fixture.fakeAPI.FailNext(http.MethodPost, "/auth/logout", http.StatusInternalServerError, "boom")
	g := guard.Authenticated(fixture.controller, fixture.tokens)

	recorders := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		recorders <- fixture.request(g, "/account")
	}()

	time.Sleep(50 * time.Millisecond)
	fixture.controller.Logout(context.Background())
	release()

	recorder := <-recorders
	assert.Equal(t, http.StatusSeeOther, recorder.Code)
	location, err := url.Parse(recorder.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, guard.DefaultSignInPath, location.Path, "a signed-out visitor goes to sign-in, not access-denied")
	assert.False(t, fixture.served)
}

func TestStaffGuardRoles(t *testing.T) {
	tests := []struct {
		name    string
		role    users.Role
		allowed bool
	}{
		{name: "regular user denied", role: users.RoleUser, allowed: false},
		{name: "moderator allowed", role: users.RoleModerator, allowed: true},
		{name: "admin allowed", role: users.RoleAdmin, allowed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixture := setupTestFixture(t)
			fixture.signIn(t, tt.role)
			g := guard.Staff(fixture.controller, fixture.tokens)

			recorder := fixture.request(g, "/moderation")

			if tt.allowed {
				assert.Equal(t, http.StatusOK, recorder.Code)
				assert.True(t, fixture.served)
				return
			}
			assert.Equal(t, http.StatusSeeOther, recorder.Code)
			assert.Equal(t, guard.DefaultDeniedPath, recorder.Header().Get("Location"))
			assert.False(t, fixture.served)
			assert.NotEmpty(t, fixture.tokens.Get(), "an access denial keeps the session")
		})
	}
}

func TestManagementGuardExcludesModerators(t *testing.T) {
	fixture := setupTestFixture(t)
	fixture.signIn(t, users.RoleModerator)
	g := guard.Management(fixture.controller, fixture.tokens)

	recorder := fixture.request(g, "/management")

	assert.Equal(t, http.StatusSeeOther, recorder.Code)
	assert.Equal(t, guard.DefaultDeniedPath, recorder.Header().Get("Location"))
	assert.False(t, fixture.served)
	assert.Equal(t, session.StateAuthenticated, fixture.controller.State(), "denial does not tear the session down")
}

func TestManagementGuardAllowsAdmin(t *testing.T) {
	fixture := setupTestFixture(t)
	fixture.signIn(t, users.RoleAdmin)
	g := guard.Management(fixture.controller, fixture.tokens)

	recorder := fixture.request(g, "/management")

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, fixture.served)
}

func TestGuardCustomPaths(t *testing.T) {
	fixture := setupTestFixture(t)
	g := guard.Authenticated(fixture.controller, fixture.tokens, guard.WithSignInPath("/auth/login"))

	recorder := fixture.request(g, "/account")

	location, err := url.Parse(recorder.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/auth/login", location.Path)
}
