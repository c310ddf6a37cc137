package propora

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Haven-Estates/propora-adapter/internal/metrics"
)

const (
	// defaultTokenLifetime applies when the provider omits expiresIn.
	defaultTokenLifetime = 1800 * time.Second
	// tokenSafetyMargin is subtracted from the declared lifetime so a cached
	// token is never used in its final moments of validity.
	tokenSafetyMargin = 300 * time.Second
)

// CredentialsResolver supplies the key/secret pair for token requests.
type CredentialsResolver interface {
	Resolve(ctx context.Context) (CredentialSet, error)
}

// accessToken caches a bearer token with its effective expiry.
// Replaced wholesale on refresh, never mutated in place.
type accessToken struct {
	value     string
	expiresAt time.Time
}

// TokenManager owns the single cached Propora access token. The refresh
// critical section is mutex-guarded so overlapping expired-token detections
// from concurrent sync triggers collapse into one refresh call.
type TokenManager struct {
	logger  *zap.Logger
	creds   CredentialsResolver
	client  *http.Client
	baseURL string
	now     func() time.Time

	mu    sync.Mutex
	token accessToken
}

// NewTokenManager creates a TokenManager for the given Propora base URL.
func NewTokenManager(logger *zap.Logger, creds CredentialsResolver, baseURL string) *TokenManager {
	return &TokenManager{
		logger:  logger,
		creds:   creds,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		now:     time.Now,
	}
}

// GetAccessToken returns a valid bearer token, refreshing through the auth
// endpoint when the cache is empty or past its safety-margin expiry.
// Nothing is cached on failure.
func (m *TokenManager) GetAccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token.value != "" && m.now().Before(m.token.expiresAt) {
		return m.token.value, nil
	}

	creds, err := m.creds.Resolve(ctx)
	if err != nil {
		return "", err
	}

	tok, err := m.fetchToken(ctx, creds)
	if err != nil {
		metrics.IncTokenRefresh("error")
		return "", err
	}

	lifetime := defaultTokenLifetime
	if tok.ExpiresIn > 0 {
		lifetime = time.Duration(tok.ExpiresIn) * time.Second
	}

	m.token = accessToken{
		value:     tok.AccessToken,
		expiresAt: m.now().Add(lifetime - tokenSafetyMargin),
	}

	metrics.IncTokenRefresh("ok")
	m.logger.Info("propora.auth.token_refreshed",
		zap.Int64("expires_in_sec", int64(lifetime/time.Second)))

	return m.token.value, nil
}

// fetchToken requests a new access token from POST /auth/token.
func (m *TokenManager) fetchToken(ctx context.Context, creds CredentialSet) (*tokenResponse, error) {
	payload := tokenRequest{APIKey: creds.APIKey, APISecret: creds.APISecret}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, &AuthError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/auth/token", bytes.NewReader(data))
	if err != nil {
		return nil, &AuthError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, &AuthError{Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		m.logger.Warn("propora.auth.rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return nil, &AuthError{StatusCode: resp.StatusCode, ProviderBody: string(body)}
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, &AuthError{Err: fmt.Errorf("decode token response: %w", err)}
	}
	if tok.AccessToken == "" {
		return nil, &AuthError{StatusCode: resp.StatusCode, ProviderBody: string(body), Err: fmt.Errorf("empty accessToken")}
	}

	return &tok, nil
}
