// Package session implements session validity, proactive refresh, and the
// cookie write-through used by the request guard.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theceo1/trustbank-gateway/internal/client"
	"github.com/theceo1/trustbank-gateway/internal/config"
	"github.com/theceo1/trustbank-gateway/internal/models"
)

// Provider is the external auth collaborator: credential exchange, token
// rotation, and sign-out. Implementations return classified AuthError
// values for provider-reported failures.
type Provider interface {
	// SignIn exchanges credentials for a new session.
	SignIn(ctx context.Context, email, password string) (*models.Session, error)

	// Refresh exchanges a refresh token for a rotated session.
	Refresh(ctx context.Context, refreshToken string) (*models.Session, error)

	// SignOut revokes the session behind the access token.
	SignOut(ctx context.Context, accessToken string) error
}

// providerEnvelope is the auth provider's {data, error} response pair.
type providerEnvelope struct {
	Data  *providerSession `json:"data"`
	Error *providerError   `json:"error"`
}

// providerSession is the provider's session payload.
type providerSession struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	ExpiresIn    int64  `json:"expires_in"`
	User         struct {
		ID string `json:"id"`
	} `json:"user"`
}

// providerError is the provider's error payload: a message is always
// present, a structured code only sometimes.
type providerError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Status  int    `json:"status,omitempty"`
}

// HTTPProvider talks to the auth provider over its REST API.
type HTTPProvider struct {
	base   *client.BaseClient
	apiKey string
	logger *logrus.Logger
}

// NewHTTPProvider creates a provider client from configuration.
func NewHTTPProvider(cfg *config.AuthProviderConfig, baseURL string, logger *logrus.Logger) *HTTPProvider {
	return &HTTPProvider{
		base:   client.NewBaseClient(baseURL, cfg.Timeout, logger),
		apiKey: cfg.APIKey,
		logger: logger,
	}
}

// SignIn exchanges credentials for a new session.
func (p *HTTPProvider) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	body := map[string]string{"email": email, "password": password}
	return p.tokenCall(ctx, "/token?grant_type=password", body)
}

// Refresh exchanges a refresh token for a rotated session.
func (p *HTTPProvider) Refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	body := map[string]string{"refresh_token": refreshToken}
	return p.tokenCall(ctx, "/token?grant_type=refresh_token", body)
}

// SignOut revokes the session behind the access token.
func (p *HTTPProvider) SignOut(ctx context.Context, accessToken string) error {
	headers := p.headers()
	headers["Authorization"] = "Bearer " + accessToken

	resp, err := p.base.Do(ctx, http.MethodPost, "/logout", nil, headers)
	if err != nil {
		return fmt.Errorf("sign-out request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return p.decodeError(resp)
	}
	return nil
}

// tokenCall performs a token grant and maps the {data, error} pair.
func (p *HTTPProvider) tokenCall(ctx context.Context, path string, body interface{}) (*models.Session, error) {
	resp, err := p.base.Do(ctx, http.MethodPost, path, body, p.headers())
	if err != nil {
		return nil, fmt.Errorf("auth provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, p.decodeError(resp)
	}

	var env providerEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode auth provider response: %w", err)
	}
	if env.Error != nil {
		return nil, models.ClassifyAuthError(env.Error.Code, env.Error.Message)
	}
	if env.Data == nil {
		return nil, models.ClassifyAuthError("", "auth provider returned empty session")
	}

	return sessionFromProvider(env.Data, time.Now()), nil
}

// decodeError maps a non-2xx provider response into a classified AuthError.
func (p *HTTPProvider) decodeError(resp *http.Response) error {
	var env providerEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil || env.Error == nil {
		return models.ClassifyAuthError("", fmt.Sprintf("auth provider returned HTTP %d", resp.StatusCode))
	}
	return models.ClassifyAuthError(env.Error.Code, env.Error.Message)
}

func (p *HTTPProvider) headers() map[string]string {
	headers := map[string]string{}
	if p.apiKey != "" {
		headers["apikey"] = p.apiKey
	}
	return headers
}

// sessionFromProvider converts the provider payload. Providers may return
// an absolute expires_at or a relative expires_in; absolute wins.
func sessionFromProvider(ps *providerSession, now time.Time) *models.Session {
	expiresAt := ps.ExpiresAt
	if expiresAt == 0 && ps.ExpiresIn > 0 {
		expiresAt = now.Unix() + ps.ExpiresIn
	}

	return &models.Session{
		AccessToken:  ps.AccessToken,
		RefreshToken: ps.RefreshToken,
		IssuedAt:     now.Unix(),
		ExpiresAt:    expiresAt,
		UserID:       ps.User.ID,
	}
}
