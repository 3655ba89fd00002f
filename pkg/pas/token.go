package pas

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// tokenScope is the fixed scope the catalog API requires.
const tokenScope = "sws.icarus.api.read"

// expiryMargin is subtracted from the server-reported lifetime so a cached
// token is never presented within a minute of expiring.
const expiryMargin = 60 * time.Second

// defaultExpiresIn applies when the grant response omits expires_in.
const defaultExpiresIn = 7200

// TokenManager supplies bearer tokens for catalog calls, caching each
// token until shortly before its expiry.
type TokenManager interface {
	// Acquire returns a valid token, performing a client-credentials grant
	// when the cache is empty or stale.
	Acquire(ctx context.Context) (string, error)
	// Invalidate drops the cached token so the next Acquire forces a grant.
	// Called after the catalog rejects a token with 401.
	Invalidate()
}

// TokenOption configures the token manager.
type TokenOption func(*tokenManager)

// WithTokenHTTPClient sets a custom HTTP client for grant requests.
func WithTokenHTTPClient(hc *http.Client) TokenOption {
	return func(m *tokenManager) {
		m.http = hc
	}
}

type tokenManager struct {
	authURL      string
	clientID     string
	clientSecret string
	http         *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewTokenManager creates a TokenManager for the given auth endpoint and
// client credentials.
func NewTokenManager(authURL, clientID, clientSecret string, opts ...TokenOption) TokenManager {
	m := &tokenManager{
		authURL:      authURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire returns the cached token while it remains valid. The mutex is
// held across the grant request, so concurrent callers racing past an
// expired token share a single refresh and never observe a half-updated
// token.
func (m *tokenManager) Acquire(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" && time.Now().Before(m.expiresAt) {
		return m.token, nil
	}

	token, expiresIn, err := m.grant(ctx)
	if err != nil {
		return "", &AuthError{Err: err}
	}

	m.token = token
	m.expiresAt = time.Now().Add(time.Duration(expiresIn)*time.Second - expiryMargin)
	return m.token, nil
}

func (m *tokenManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.expiresAt = time.Time{}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (m *tokenManager) grant(ctx context.Context) (string, int, error) {
	form := url.Values{
		"grant_type": {"client_credentials"},
		"scope":      {tokenScope},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, eris.Wrap(err, "pas: create token request")
	}
	req.SetBasicAuth(m.clientID, m.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.http.Do(req)
	if err != nil {
		return "", 0, eris.Wrap(err, "pas: token request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, eris.Wrap(err, "pas: read token response")
	}

	if resp.StatusCode != http.StatusOK {
		return "", 0, eris.Errorf("pas: token endpoint status %d: %s", resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", 0, eris.Wrap(err, "pas: unmarshal token response")
	}
	if tr.AccessToken == "" {
		return "", 0, eris.New("pas: token response missing access_token")
	}
	if tr.ExpiresIn <= 0 {
		tr.ExpiresIn = defaultExpiresIn
	}
	return tr.AccessToken, tr.ExpiresIn, nil
}
