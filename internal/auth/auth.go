// Package auth manages the admin session: password login, token
// refresh, and logout against the commerce backend.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sellhub/shopctl/internal/config"
	"github.com/sellhub/shopctl/internal/credstore"
	"github.com/sellhub/shopctl/internal/observability"
	"github.com/sellhub/shopctl/internal/output"
)

// Manager handles authentication against the backend's auth endpoints.
// Refresh is serialized through mu so concurrent 401 handling performs
// a single token exchange.
type Manager struct {
	cfg        *config.Config
	store      *credstore.Store
	httpClient *http.Client
	log        *observability.Log

	mu sync.Mutex
}

// NewManager creates a new auth manager.
func NewManager(cfg *config.Config, store *credstore.Store, httpClient *http.Client, log *observability.Log) *Manager {
	return &Manager{
		cfg:        cfg,
		store:      store,
		httpClient: httpClient,
		log:        log,
	}
}

// flexID accepts both string and numeric JSON values. The backend is
// inconsistent about id types across endpoints.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be string or number: %s", data)
	}
	*f = flexID(n.String())
	return nil
}

type adminRecord struct {
	ID          flexID   `json:"id"`
	StoreID     flexID   `json:"store_id"`
	BranchID    flexID   `json:"branch_id"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

type loginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		AuthToken    string      `json:"auth_token"`
		RefreshToken string      `json:"refresh_token"`
		Admin        adminRecord `json:"admin"`
	} `json:"data"`
}

type refreshResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		AuthToken string `json:"auth_token"`
	} `json:"data"`
}

// Login exchanges email and password for a token pair and persists the
// resulting session.
func (m *Manager) Login(ctx context.Context, email, password string) (*credstore.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	payload, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	loginURL := config.NormalizeBaseURL(m.cfg.BaseURL) + "/auth/login"
	start := time.Now()
	resp, err := m.postJSON(ctx, loginURL, payload)
	if err != nil {
		m.log.Record(observability.Event{
			Level:       observability.LevelError,
			Method:      http.MethodPost,
			URL:         loginURL,
			Duration:    time.Since(start),
			Err:         err,
			RequestBody: observability.RedactBody(payload),
		})
		return nil, output.ErrNetwork(err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	m.log.Record(observability.Event{
		Level:        observability.LevelInfo,
		Method:       http.MethodPost,
		URL:          loginURL,
		Status:       resp.StatusCode,
		Duration:     time.Since(start),
		RequestBody:  observability.RedactBody(payload),
		ResponseBody: observability.RedactBody(body),
	})

	var parsed loginResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, output.ErrAPI(resp.StatusCode, "login response was not valid JSON")
	}

	if resp.StatusCode == http.StatusUnauthorized {
		msg := parsed.Message
		if msg == "" {
			msg = "Invalid email or password"
		}
		return nil, output.ErrAuth(msg)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !parsed.Success {
		msg := parsed.Message
		if msg == "" {
			msg = fmt.Sprintf("login failed with status %d", resp.StatusCode)
		}
		if output.IsBillingMessage(msg) {
			return nil, output.ErrBilling(msg)
		}
		return nil, output.ErrAPI(resp.StatusCode, msg)
	}
	if parsed.Data.AuthToken == "" {
		return nil, output.ErrAPI(resp.StatusCode, "login succeeded but no token was returned")
	}

	identity := credstore.Identity{
		UserID:      string(parsed.Data.Admin.ID),
		StoreID:     string(parsed.Data.Admin.StoreID),
		BranchID:    string(parsed.Data.Admin.BranchID),
		Role:        parsed.Data.Admin.Role,
		Permissions: parsed.Data.Admin.Permissions,
	}
	creds := &credstore.Credentials{
		Identity:     identity,
		AccessToken:  parsed.Data.AuthToken,
		RefreshToken: parsed.Data.RefreshToken,
	}
	if err := m.store.Save(creds); err != nil {
		return nil, fmt.Errorf("saving credentials: %w", err)
	}
	return &identity, nil
}

// Refresh attempts a token refresh and reports whether the session is
// still usable. Any failure, a transport error, a non-success status,
// or a success envelope without a token, clears the stored credentials
// so a half-valid session can never linger.
func (m *Manager) Refresh(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshLocked(ctx)
}

func (m *Manager) refreshLocked(ctx context.Context) bool {
	creds := m.store.Load()
	if creds == nil || creds.RefreshToken == "" {
		return false
	}

	payload, err := json.Marshal(map[string]string{
		"refresh_token": creds.RefreshToken,
	})
	if err != nil {
		return false
	}

	refreshURL := config.NormalizeBaseURL(m.cfg.BaseURL) + "/auth/refresh-token"
	start := time.Now()
	resp, err := m.postJSON(ctx, refreshURL, payload)
	if err != nil {
		m.log.Record(observability.Event{
			Level:       observability.LevelWarn,
			Method:      http.MethodPost,
			URL:         refreshURL,
			Duration:    time.Since(start),
			Err:         err,
			RequestBody: observability.RedactBody(payload),
		})
		m.clearSession()
		return false
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	m.log.Record(observability.Event{
		Level:        observability.LevelInfo,
		Method:       http.MethodPost,
		URL:          refreshURL,
		Status:       resp.StatusCode,
		Duration:     time.Since(start),
		RequestBody:  observability.RedactBody(payload),
		ResponseBody: observability.RedactBody(body),
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		m.clearSession()
		return false
	}

	var parsed refreshResponse
	if err := json.Unmarshal(body, &parsed); err != nil || !parsed.Success || parsed.Data.AuthToken == "" {
		m.clearSession()
		return false
	}

	// Overwrite only the access token. The refresh token and identity
	// survive the rotation.
	creds.AccessToken = parsed.Data.AuthToken
	if err := m.store.Save(creds); err != nil {
		m.clearSession()
		return false
	}
	return true
}

func (m *Manager) clearSession() {
	if err := m.store.Clear(); err != nil {
		m.log.Record(observability.Event{
			Level: observability.LevelWarn,
			Err:   fmt.Errorf("clearing credentials: %w", err),
		})
	}
}

// Logout removes the stored session.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Clear()
}

// IsAuthenticated reports whether a complete session is stored.
func (m *Manager) IsAuthenticated() bool {
	return m.store.Load() != nil
}

// Identity returns the stored admin identity, or an auth error when no
// session exists.
func (m *Manager) Identity() (*credstore.Identity, error) {
	creds := m.store.Load()
	if creds == nil {
		return nil, output.ErrAuth("Not authenticated")
	}
	return &creds.Identity, nil
}

func (m *Manager) postJSON(ctx context.Context, url string, payload []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return m.httpClient.Do(req)
}

// MaskToken renders a token for status output without exposing it.
func MaskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + "..." + token[len(token)-4:]
}
