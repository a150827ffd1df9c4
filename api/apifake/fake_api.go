// Package apifake is an in-process stand-in for the remote wellness platform
// API, used by tests across the module. It scripts accounts and OTPs, counts
// calls per endpoint, and can inject failures or hold a response open so
// tests can resolve requests out of issue-order.
package apifake

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/jrsteele09/go-wellness-portal/users"
)

// Account is a scripted user record held by the fake.
type Account struct {
	User     users.User
	Password string
	OTP      string
}

type plannedFailure struct {
	status  int
	message string
}

// FakeAPI implements the wellness API endpoints over in-memory state.
type FakeAPI struct {
	mu        sync.Mutex
	accounts  map[string]*Account // keyed by email
	tokens    map[string]string   // token -> email
	calls     map[string]int      // "METHOD /path" -> count
	failures  map[string][]plannedFailure
	holds     map[string][]chan struct{}
	nextToken int
}

// NewFakeAPI creates an empty fake.
func NewFakeAPI() *FakeAPI {
	return &FakeAPI{
		accounts: make(map[string]*Account),
		tokens:   make(map[string]string),
		calls:    make(map[string]int),
		failures: make(map[string][]plannedFailure),
		holds:    make(map[string][]chan struct{}),
	}
}

// AddUser scripts an account. Missing IDs are filled in and accounts default
// to active. The default OTP is "123456".
func (f *FakeAPI) AddUser(u users.User, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == "" {
		u.ID = fmt.Sprintf("user-%d", len(f.accounts)+1)
	}
	u.IsActive = true
	f.accounts[u.Email] = &Account{User: u, Password: password, OTP: "123456"}
}

// IssueToken registers and returns a valid bearer token for email.
func (f *FakeAPI) IssueToken(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issueTokenLocked(email)
}

func (f *FakeAPI) issueTokenLocked(email string) string {
	f.nextToken++
	token := fmt.Sprintf("tok-%d", f.nextToken)
	f.tokens[token] = email
	return token
}

// CallCount returns how many times an endpoint was hit.
func (f *FakeAPI) CallCount(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method+" "+path]
}

// TotalCalls returns how many requests the fake received in total.
func (f *FakeAPI) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// FailNext makes the next call to the endpoint fail with the given status and
// message. Multiple queued failures apply in order.
func (f *FakeAPI) FailNext(method, path string, status int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := method + " " + path
	f.failures[key] = append(f.failures[key], plannedFailure{status: status, message: message})
}

// HoldNext blocks the next call to the endpoint until the returned release
// function is invoked, letting tests control response arrival order.
func (f *FakeAPI) HoldNext(method, path string) (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := method + " " + path
	ch := make(chan struct{})
	f.holds[key] = append(f.holds[key], ch)
	return func() { close(ch) }
}

// User returns a copy of the scripted account's user record.
func (f *FakeAPI) User(email string) (users.User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acct, ok := f.accounts[email]
	if !ok {
		return users.User{}, false
	}
	return acct.User, true
}

func (f *FakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path

	f.mu.Lock()
	f.calls[key]++
	var hold chan struct{}
	if pending := f.holds[key]; len(pending) > 0 {
		hold = pending[0]
		f.holds[key] = pending[1:]
	}
	f.mu.Unlock()

	if hold != nil {
		<-hold
	}

	f.mu.Lock()
	if pending := f.failures[key]; len(pending) > 0 {
		failure := pending[0]
		f.failures[key] = pending[1:]
		f.mu.Unlock()
		writeJSON(w, failure.status, map[string]string{"message": failure.message})
		return
	}
	f.mu.Unlock()

	switch key {
	case "POST /auth/login":
		f.handleLogin(w, r)
	case "POST /auth/signup":
		f.handleSignup(w, r)
	case "POST /auth/verify-email":
		f.handleVerifyEmail(w, r)
	case "POST /auth/google":
		f.handleGoogleLogin(w, r)
	case "GET /auth/check":
		f.handleCheck(w, r)
	case "POST /auth/logout":
		f.handleLogout(w, r)
	case "GET /user/me":
		f.handleMe(w, r)
	case "PUT /user/me":
		f.handleUpdateMe(w, r)
	case "POST /user/me/profile-picture":
		f.handleProfilePicture(w, r)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
	}
}

func (f *FakeAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request"})
		return
	}

	f.mu.Lock()
	acct, ok := f.accounts[req.Email]
	if !ok || acct.Password != req.Password {
		f.mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid email or password"})
		return
	}
	if !acct.User.IsEmailVerified {
		f.mu.Unlock()
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "Please verify your email before signing in"})
		return
	}
	token := f.issueTokenLocked(req.Email)
	user := acct.User
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"user": user, "accessToken": token})
}

func (f *FakeAPI) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Phone     string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request"})
		return
	}

	f.mu.Lock()
	if _, exists := f.accounts[req.Email]; exists {
		f.mu.Unlock()
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Account already exists"})
		return
	}
	f.accounts[req.Email] = &Account{
		User: users.User{
			ID:        fmt.Sprintf("user-%d", len(f.accounts)+1),
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Phone:     req.Phone,
			Role:      users.RoleUser,
			IsActive:  true,
		},
		Password: req.Password,
		OTP:      "123456",
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"email": req.Email})
}

func (f *FakeAPI) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request"})
		return
	}

	f.mu.Lock()
	acct, ok := f.accounts[req.Email]
	if !ok || acct.OTP != req.OTP {
		f.mu.Unlock()
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid or expired OTP"})
		return
	}
	acct.User.IsEmailVerified = true
	token := f.issueTokenLocked(req.Email)
	user := acct.User
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"user": user, "accessToken": token})
}

func (f *FakeAPI) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDToken string `json:"idToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !strings.HasPrefix(req.IDToken, "google:") {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid Google credential"})
		return
	}
	email := strings.TrimPrefix(req.IDToken, "google:")

	f.mu.Lock()
	acct, ok := f.accounts[email]
	if !ok {
		acct = &Account{
			User: users.User{
				ID:              fmt.Sprintf("user-%d", len(f.accounts)+1),
				Email:           email,
				Role:            users.RoleUser,
				IsEmailVerified: true,
				IsActive:        true,
			},
		}
		f.accounts[email] = acct
	}
	token := f.issueTokenLocked(email)
	user := acct.User
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"user": user, "accessToken": token})
}

func (f *FakeAPI) handleCheck(w http.ResponseWriter, r *http.Request) {
	if _, ok := f.accountForRequest(r); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid or expired token"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": true})
}

func (f *FakeAPI) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	f.mu.Lock()
	delete(f.tokens, token)
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{})
}

func (f *FakeAPI) handleMe(w http.ResponseWriter, r *http.Request) {
	acct, ok := f.accountForRequest(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid or expired token"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": acct})
}

func (f *FakeAPI) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	_, ok := f.accountForRequest(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid or expired token"})
		return
	}
	var req struct {
		FirstName *string `json:"firstName"`
		LastName  *string `json:"lastName"`
		Phone     *string `json:"phone"`
		City      *string `json:"city"`
		Address   *string `json:"address"`
		Bio       *string `json:"bio"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request"})
		return
	}

	f.mu.Lock()
	email := f.tokens[bearerToken(r)]
	acct := f.accounts[email]
	if req.FirstName != nil {
		acct.User.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		acct.User.LastName = *req.LastName
	}
	if req.Phone != nil {
		acct.User.Phone = *req.Phone
	}
	if req.City != nil {
		acct.User.City = *req.City
	}
	if req.Address != nil {
		acct.User.Address = *req.Address
	}
	if req.Bio != nil {
		acct.User.Bio = *req.Bio
	}
	user := acct.User
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (f *FakeAPI) handleProfilePicture(w http.ResponseWriter, r *http.Request) {
	_, ok := f.accountForRequest(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid or expired token"})
		return
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid upload"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "missing file"})
		return
	}
	file.Close()

	f.mu.Lock()
	email := f.tokens[bearerToken(r)]
	acct := f.accounts[email]
	acct.User.ProfilePicture = "/uploads/" + header.Filename
	user := acct.User
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"user":   user,
		"upload": map[string]string{"url": user.ProfilePicture, "key": header.Filename},
	})
}

func (f *FakeAPI) accountForRequest(r *http.Request) (users.User, bool) {
	token := bearerToken(r)
	if token == "" {
		return users.User{}, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	email, ok := f.tokens[token]
	if !ok {
		return users.User{}, false
	}
	acct, ok := f.accounts[email]
	if !ok {
		return users.User{}, false
	}
	return acct.User, true
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	value := r.Header.Get("Authorization")
	if !strings.HasPrefix(value, prefix) {
		return ""
	}
	return value[len(prefix):]
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
