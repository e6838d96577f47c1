package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/vidshare/client/internal/api"
	"github.com/vidshare/client/internal/logging"
	"github.com/vidshare/client/internal/models"
	"github.com/vidshare/client/internal/store"
)

var (
	// ErrAuthentication indicates the backend rejected the supplied credentials.
	ErrAuthentication = errors.New("authentication failed")
	// ErrRegistration indicates the backend rejected the registration request.
	ErrRegistration = errors.New("registration failed")
	// ErrMFARequired signals that sign-in needs an additional verification
	// step; no session has been established.
	ErrMFARequired = errors.New("additional verification required")
	// ErrNotLoggedIn indicates no session is available for the operation.
	ErrNotLoggedIn = errors.New("not logged in")
)

// Storage keys match the key prefix the mobile client used, so state written
// by one client generation stays recognizable.
const (
	sessionKey = "video-share:session"
	profileKey = "video-share:user"
)

const (
	loginPath    = "/v1/api/auth/login"
	registerPath = "/v1/api/auth/register"
	refreshPath  = "/v1/api/auth/refresh"
	profilePath  = "/v1/api/auth/me"
	logoutPath   = "/v1/api/auth/logout"
)

// Manager owns the authentication token pair and the cached user profile,
// and provides the refresh-aware authenticated fetch every other module
// builds on. All token mutation happens through this type.
type Manager struct {
	api *api.Client

	mu      sync.Mutex
	state   store.Store
	session models.Session
	profile models.UserProfile
}

// NewManager constructs a Manager persisting state through the provided store.
func NewManager(client *api.Client, state store.Store) *Manager {
	if client == nil {
		panic("session: api client must not be nil")
	}
	if state == nil {
		panic("session: state store must not be nil")
	}
	return &Manager{api: client, state: state}
}

// Restore runs the startup reconciliation: load any persisted session and
// validate it by fetching the profile through the refresh-aware fetch path.
// An unusable session is cleared so the process starts cleanly logged out.
// The returned bool reports whether a live session survived.
func (m *Manager) Restore(ctx context.Context) (bool, error) {
	ctx, span := logging.StartSpan(ctx, "session.restore")

	loaded, err := m.load(ctx)
	if err != nil {
		span.EndWithError(err)
		return false, err
	}
	if !loaded {
		span.End()
		return false, nil
	}

	profile, err := m.fetchProfile(ctx)
	if err != nil {
		logging.FromContext(ctx).Warn("stored session rejected, logging out", "error", err)
		m.clear(ctx)
		span.End()
		return false, nil
	}

	m.setProfile(ctx, profile)
	span.End()
	return true, nil
}

// Login exchanges credentials for a token pair and establishes the session.
// A step-up verification demand surfaces as ErrMFARequired without touching
// local state.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	ctx, span := logging.StartSpan(ctx, "session.login")

	body, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		span.EndWithError(err)
		return err
	}

	req, err := m.api.NewJSONRequest(ctx, http.MethodPost, loginPath, body)
	if err != nil {
		span.EndWithError(err)
		return err
	}

	resp, err := m.api.Do(req)
	if err != nil {
		span.EndWithError(err)
		return fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		err := authError(ErrAuthentication, raw)
		span.EndWithError(err)
		return err
	}

	var payload loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		span.EndWithError(err)
		return fmt.Errorf("decode login response: %w", err)
	}

	if payload.MFARequired {
		span.End()
		return ErrMFARequired
	}

	session := models.Session{AccessToken: payload.AccessToken, RefreshToken: payload.RefreshToken}
	if !session.Valid() {
		err := fmt.Errorf("%w: incomplete token pair in response", ErrAuthentication)
		span.EndWithError(err)
		return err
	}

	if err := m.setSession(ctx, session); err != nil {
		span.EndWithError(err)
		return err
	}

	profile, err := m.fetchProfile(ctx)
	if err != nil {
		// Sign-in already succeeded; fall back to an identity derived from
		// the login email rather than failing the whole operation.
		logging.FromContext(ctx).Warn("profile fetch failed, using placeholder", "error", err)
		profile = placeholderProfile(email)
	}
	m.setProfile(ctx, profile)

	span.End()
	return nil
}

// Register submits a new-account request. Success means the request was
// accepted; confirmation happens out of band and no tokens are issued.
func (m *Manager) Register(ctx context.Context, name, email, password string) error {
	ctx, span := logging.StartSpan(ctx, "session.register")

	body, err := json.Marshal(registerRequest{Name: name, Email: email, Password: password})
	if err != nil {
		span.EndWithError(err)
		return err
	}

	req, err := m.api.NewJSONRequest(ctx, http.MethodPost, registerPath, body)
	if err != nil {
		span.EndWithError(err)
		return err
	}

	resp, err := m.api.Do(req)
	if err != nil {
		span.EndWithError(err)
		return fmt.Errorf("register request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		err := authError(ErrRegistration, raw)
		span.EndWithError(err)
		return err
	}

	span.End()
	return nil
}

// Logout tells the backend to invalidate the refresh token on a best-effort
// basis, then unconditionally clears local session and profile state.
func (m *Manager) Logout(ctx context.Context) error {
	ctx, span := logging.StartSpan(ctx, "session.logout")
	defer span.End()

	m.mu.Lock()
	refreshToken := m.session.RefreshToken
	m.mu.Unlock()

	if refreshToken == "" {
		if _, err := m.load(ctx); err == nil {
			m.mu.Lock()
			refreshToken = m.session.RefreshToken
			m.mu.Unlock()
		}
	}

	if refreshToken != "" {
		req, err := m.api.NewJSONRequest(ctx, http.MethodPost, logoutPath, nil)
		if err == nil {
			req.Header.Set(api.HeaderRefreshToken, refreshToken)
			if resp, err := m.api.Do(req); err == nil {
				_ = resp.Body.Close()
			} else {
				logging.FromContext(ctx).Warn("backend logout failed", "error", err)
			}
		}
	}

	return m.clear(ctx)
}

// AuthFetch performs a request with the current access token attached. On a
// 401 or 403 it attempts exactly one token refresh and, when that succeeds,
// replays the request once. A failed refresh hands back the original
// response untouched so callers can recognize a dead session.
func (m *Manager) AuthFetch(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	resp, err := m.doAuthorized(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
		return resp, nil
	}

	if !m.refresh(ctx) {
		return resp, nil
	}

	_ = resp.Body.Close()
	return m.doAuthorized(ctx, method, path, body)
}

// LoggedIn reports whether a token pair is currently held.
func (m *Manager) LoggedIn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Valid()
}

// Profile returns the cached user profile and whether one is present.
func (m *Manager) Profile() (models.UserProfile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile, m.profile != models.UserProfile{}
}

// load pulls a persisted token pair into memory. Unreadable state is cleared
// rather than surfaced; only store access problems are errors.
func (m *Manager) load(ctx context.Context) (bool, error) {
	raw, err := m.state.Get(ctx, sessionKey)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil || !session.Valid() {
		logging.FromContext(ctx).Warn("discarding unreadable session state")
		_ = m.clear(ctx)
		return false, nil
	}

	m.mu.Lock()
	m.session = session
	m.mu.Unlock()
	return true, nil
}

func (m *Manager) doAuthorized(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	req, err := m.api.NewJSONRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	accessToken := m.session.AccessToken
	m.mu.Unlock()

	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	return m.api.Do(req)
}

// refresh exchanges the stored refresh token for a new pair. It reports
// success; on failure the stored tokens are left untouched.
func (m *Manager) refresh(ctx context.Context) bool {
	m.mu.Lock()
	refreshToken := m.session.RefreshToken
	m.mu.Unlock()

	if refreshToken == "" {
		return false
	}

	req, err := m.api.NewJSONRequest(ctx, http.MethodPost, refreshPath, nil)
	if err != nil {
		return false
	}
	req.Header.Set(api.HeaderRefreshToken, refreshToken)

	resp, err := m.api.Do(req)
	if err != nil {
		logging.FromContext(ctx).Warn("token refresh failed", "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logging.FromContext(ctx).Warn("token refresh rejected", "status", resp.StatusCode)
		return false
	}

	var payload loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false
	}

	session := models.Session{AccessToken: payload.AccessToken, RefreshToken: payload.RefreshToken}
	if !session.Valid() {
		return false
	}

	if err := m.setSession(ctx, session); err != nil {
		logging.FromContext(ctx).Warn("persist refreshed session failed", "error", err)
		return false
	}
	return true
}

func (m *Manager) fetchProfile(ctx context.Context) (models.UserProfile, error) {
	resp, err := m.AuthFetch(ctx, http.MethodGet, profilePath, nil)
	if err != nil {
		return models.UserProfile{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.UserProfile{}, api.NewStatusError(resp)
	}

	var profile models.UserProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return models.UserProfile{}, fmt.Errorf("decode profile: %w", err)
	}
	return profile, nil
}

// setSession atomically replaces the in-memory pair and the persisted copy.
func (m *Manager) setSession(ctx context.Context, session models.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if err := m.state.Set(ctx, sessionKey, raw); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	m.mu.Lock()
	m.session = session
	m.mu.Unlock()
	return nil
}

func (m *Manager) setProfile(ctx context.Context, profile models.UserProfile) {
	m.mu.Lock()
	m.profile = profile
	m.mu.Unlock()

	raw, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := m.state.Set(ctx, profileKey, raw); err != nil {
		logging.FromContext(ctx).Warn("persist profile failed", "error", err)
	}
}

func (m *Manager) clear(ctx context.Context) error {
	m.mu.Lock()
	m.session = models.Session{}
	m.profile = models.UserProfile{}
	m.mu.Unlock()

	return errors.Join(
		m.state.Delete(ctx, sessionKey),
		m.state.Delete(ctx, profileKey),
	)
}

func authError(kind error, body []byte) error {
	if msg := api.ServerMessage(body); msg != "" {
		return fmt.Errorf("%w: %s", kind, msg)
	}
	return kind
}

func placeholderProfile(email string) models.UserProfile {
	name := email
	if at := strings.Index(email, "@"); at > 0 {
		name = email[:at]
	}
	return models.UserProfile{Name: name, Email: email}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	MFARequired  bool   `json:"mfaRequired"`
}
