package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vidshare/client/internal/api"
	"github.com/vidshare/client/internal/models"
	"github.com/vidshare/client/internal/store"
)

// fakeBackend drives the auth endpoints with scriptable responses and call
// counters.
type fakeBackend struct {
	tokens       models.Session
	mfaRequired  bool
	loginStatus  int
	loginBody    string
	profile      models.UserProfile
	profileFails bool

	refreshTokens models.Session
	refreshStatus int

	logoutStatus int

	loginCalls   int
	profileCalls int
	refreshCalls int
	logoutCalls  int

	lastRefreshHeader string
	lastLogoutHeader  string
	lastHTTPOnly      string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	return &fakeBackend{
		tokens:       models.Session{AccessToken: "t1", RefreshToken: "r1"},
		profile:      models.UserProfile{Name: "A", Email: "a@b.com"},
		loginStatus:  http.StatusOK,
		logoutStatus: http.StatusNoContent,
	}
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		b.loginCalls++
		b.lastHTTPOnly = r.Header.Get("X-Http-Only")
		if b.loginStatus != http.StatusOK {
			w.WriteHeader(b.loginStatus)
			_, _ = w.Write([]byte(b.loginBody))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"accessToken":  b.tokens.AccessToken,
			"refreshToken": b.tokens.RefreshToken,
			"mfaRequired":  b.mfaRequired,
		})
	})

	mux.HandleFunc("/v1/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		b.profileCalls++
		auth := r.Header.Get("Authorization")
		current := "Bearer " + b.tokens.AccessToken
		if b.refreshTokens.Valid() {
			current = "Bearer " + b.refreshTokens.AccessToken
		}
		if b.profileFails || (auth != current && auth != "Bearer "+b.tokens.AccessToken) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(b.profile)
	})

	mux.HandleFunc("/v1/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		b.refreshCalls++
		b.lastRefreshHeader = r.Header.Get(api.HeaderRefreshToken)
		if b.refreshStatus != 0 {
			w.WriteHeader(b.refreshStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"accessToken":  b.refreshTokens.AccessToken,
			"refreshToken": b.refreshTokens.RefreshToken,
		})
	})

	mux.HandleFunc("/v1/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		b.logoutCalls++
		b.lastLogoutHeader = r.Header.Get(api.HeaderRefreshToken)
		w.WriteHeader(b.logoutStatus)
	})

	return mux
}

func newTestManager(t *testing.T, backend *fakeBackend) (*Manager, *store.InMemoryStore, func()) {
	t.Helper()
	server := httptest.NewServer(backend.handler())
	state := store.NewInMemoryStore()
	manager := NewManager(api.New(server.URL, nil), state)
	return manager, state, server.Close
}

func TestLoginStoresTokensAndProfile(t *testing.T) {
	backend := newFakeBackend(t)
	manager, state, done := newTestManager(t, backend)
	defer done()

	if err := manager.Login(context.Background(), "a@b.com", "x"); err != nil {
		t.Fatalf("login: %v", err)
	}

	if !manager.LoggedIn() {
		t.Fatal("expected session to be established")
	}

	profile, ok := manager.Profile()
	if !ok || profile.Name != "A" || profile.Email != "a@b.com" {
		t.Fatalf("unexpected profile %+v (ok=%v)", profile, ok)
	}

	raw, err := state.Get(context.Background(), "video-share:session")
	if err != nil {
		t.Fatalf("expected session to be persisted: %v", err)
	}
	var stored models.Session
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatalf("decode stored session: %v", err)
	}
	if stored.AccessToken != "t1" || stored.RefreshToken != "r1" {
		t.Fatalf("unexpected stored pair %+v", stored)
	}

	if backend.lastHTTPOnly != "false" {
		t.Fatalf("expected X-Http-Only: false, got %q", backend.lastHTTPOnly)
	}
}

func TestLoginMFARequiredLeavesLoggedOut(t *testing.T) {
	backend := newFakeBackend(t)
	backend.mfaRequired = true
	manager, state, done := newTestManager(t, backend)
	defer done()

	err := manager.Login(context.Background(), "a@b.com", "x")
	if !errors.Is(err, ErrMFARequired) {
		t.Fatalf("expected ErrMFARequired, got %v", err)
	}

	if manager.LoggedIn() {
		t.Fatal("MFA path must not establish a session")
	}
	if state.Has("video-share:session") {
		t.Fatal("MFA path must not persist tokens")
	}
}

func TestLoginRejectedCarriesServerMessage(t *testing.T) {
	backend := newFakeBackend(t)
	backend.loginStatus = http.StatusUnauthorized
	backend.loginBody = `{"error":"invalid credentials"}`
	manager, _, done := newTestManager(t, backend)
	defer done()

	err := manager.Login(context.Background(), "a@b.com", "bad")
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
	if !strings.Contains(err.Error(), "invalid credentials") {
		t.Fatalf("expected server message in error, got %q", err.Error())
	}
}

func TestLoginFallsBackToPlaceholderProfile(t *testing.T) {
	backend := newFakeBackend(t)
	backend.profileFails = true
	manager, _, done := newTestManager(t, backend)
	defer done()

	if err := manager.Login(context.Background(), "a@b.com", "x"); err != nil {
		t.Fatalf("login should succeed despite profile failure: %v", err)
	}

	profile, ok := manager.Profile()
	if !ok || profile.Name != "a" || profile.Email != "a@b.com" {
		t.Fatalf("expected placeholder profile, got %+v (ok=%v)", profile, ok)
	}
}

func TestAuthFetchRefreshesOnceAndReplays(t *testing.T) {
	backend := newFakeBackend(t)
	backend.refreshTokens = models.Session{AccessToken: "t2", RefreshToken: "r2"}
	manager, _, done := newTestManager(t, backend)
	defer done()

	if err := manager.Login(context.Background(), "a@b.com", "x"); err != nil {
		t.Fatalf("login: %v", err)
	}

	// Invalidate the access token so the next authenticated call must
	// refresh before it can succeed.
	backend.tokens.AccessToken = "expired"

	resp, err := manager.AuthFetch(context.Background(), http.MethodGet, "/v1/api/auth/me", nil)
	if err != nil {
		t.Fatalf("authfetch: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected replay to succeed, got %d", resp.StatusCode)
	}
	if backend.refreshCalls != 1 {
		t.Fatalf("expected exactly one refresh attempt, got %d", backend.refreshCalls)
	}
	if backend.lastRefreshHeader != "r1" {
		t.Fatalf("expected refresh token r1 in header, got %q", backend.lastRefreshHeader)
	}
}

func TestAuthFetchFailedRefreshReturnsOriginalResponse(t *testing.T) {
	backend := newFakeBackend(t)
	manager, _, done := newTestManager(t, backend)
	defer done()

	if err := manager.Login(context.Background(), "a@b.com", "x"); err != nil {
		t.Fatalf("login: %v", err)
	}

	backend.tokens.AccessToken = "expired"
	backend.refreshStatus = http.StatusUnauthorized
	profileCallsBefore := backend.profileCalls

	resp, err := manager.AuthFetch(context.Background(), http.MethodGet, "/v1/api/auth/me", nil)
	if err != nil {
		t.Fatalf("authfetch: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected original 401 back, got %d", resp.StatusCode)
	}
	if backend.refreshCalls != 1 {
		t.Fatalf("expected exactly one refresh attempt, got %d", backend.refreshCalls)
	}
	if got := backend.profileCalls - profileCallsBefore; got != 1 {
		t.Fatalf("expected no replay after failed refresh, got %d calls", got)
	}

	// The stored pair must be untouched by the failed refresh.
	if !manager.LoggedIn() {
		t.Fatal("failed refresh must not clear the stored session")
	}
}

func TestLogoutAlwaysClearsLocalState(t *testing.T) {
	backend := newFakeBackend(t)
	backend.logoutStatus = http.StatusInternalServerError
	manager, state, done := newTestManager(t, backend)
	defer done()

	if err := manager.Login(context.Background(), "a@b.com", "x"); err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := manager.Logout(context.Background()); err != nil {
		t.Fatalf("logout must succeed locally: %v", err)
	}

	if manager.LoggedIn() {
		t.Fatal("expected session to be cleared")
	}
	if state.Has("video-share:session") || state.Has("video-share:user") {
		t.Fatal("expected persisted state to be cleared")
	}
	if backend.logoutCalls != 1 {
		t.Fatalf("expected backend invalidation attempt, got %d calls", backend.logoutCalls)
	}
	if backend.lastLogoutHeader != "r1" {
		t.Fatalf("expected refresh token on logout, got %q", backend.lastLogoutHeader)
	}
}

func TestRestoreValidSession(t *testing.T) {
	backend := newFakeBackend(t)
	manager, state, done := newTestManager(t, backend)
	defer done()

	raw, _ := json.Marshal(models.Session{AccessToken: "t1", RefreshToken: "r1"})
	if err := state.Set(context.Background(), "video-share:session", raw); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	ok, err := manager.Restore(context.Background())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !ok {
		t.Fatal("expected session to survive reconciliation")
	}

	profile, has := manager.Profile()
	if !has || profile.Name != "A" {
		t.Fatalf("expected fetched profile, got %+v", profile)
	}
}

func TestRestoreInvalidSessionClearsState(t *testing.T) {
	backend := newFakeBackend(t)
	backend.refreshStatus = http.StatusUnauthorized
	manager, state, done := newTestManager(t, backend)
	defer done()

	raw, _ := json.Marshal(models.Session{AccessToken: "stale", RefreshToken: "dead"})
	if err := state.Set(context.Background(), "video-share:session", raw); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	ok, err := manager.Restore(context.Background())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if ok {
		t.Fatal("expected stored session to be rejected")
	}
	if state.Has("video-share:session") {
		t.Fatal("expected invalid session to be cleared")
	}
	if manager.LoggedIn() {
		t.Fatal("expected manager to end up logged out")
	}
}

func TestRestoreWithoutSession(t *testing.T) {
	backend := newFakeBackend(t)
	manager, _, done := newTestManager(t, backend)
	defer done()

	ok, err := manager.Restore(context.Background())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if ok {
		t.Fatal("expected no session")
	}
	if backend.profileCalls != 0 {
		t.Fatal("expected no network traffic without a stored session")
	}
}

func TestRegisterAccepted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/api/auth/register" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var body struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode register body: %v", err)
		}
		if body.Name != "A" || body.Email != "a@b.com" {
			t.Fatalf("unexpected register payload %+v", body)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	manager := NewManager(api.New(server.URL, nil), store.NewInMemoryStore())
	if err := manager.Register(context.Background(), "A", "a@b.com", "x"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if manager.LoggedIn() {
		t.Fatal("registration must not establish a session")
	}
}

func TestRegisterRejectedCarriesServerMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"account already exists"}`))
	}))
	defer server.Close()

	manager := NewManager(api.New(server.URL, nil), store.NewInMemoryStore())
	err := manager.Register(context.Background(), "A", "a@b.com", "x")
	if !errors.Is(err, ErrRegistration) {
		t.Fatalf("expected ErrRegistration, got %v", err)
	}
	if !strings.Contains(err.Error(), "account already exists") {
		t.Fatalf("expected server message, got %q", err.Error())
	}
}
