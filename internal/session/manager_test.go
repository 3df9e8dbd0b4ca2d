package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theceo1/trustbank-gateway/internal/config"
	"github.com/theceo1/trustbank-gateway/internal/models"
	"github.com/theceo1/trustbank-gateway/internal/redis"
)

// mockProvider counts calls so tests can assert the no-network fast path.
type mockProvider struct {
	refreshCalls int
	refreshToken string
	session      *models.Session
	err          error
}

func (m *mockProvider) SignIn(_ context.Context, _, _ string) (*models.Session, error) {
	return m.session, m.err
}

func (m *mockProvider) Refresh(_ context.Context, refreshToken string) (*models.Session, error) {
	m.refreshCalls++
	m.refreshToken = refreshToken
	return m.session, m.err
}

func (m *mockProvider) SignOut(_ context.Context, _ string) error {
	return m.err
}

func newTestManager(provider Provider, now time.Time) *Manager {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	m := NewManager(provider, nil, &config.SessionConfig{RefreshThreshold: 5 * time.Minute}, logger)
	m.now = func() time.Time { return now }
	return m
}

func TestRefreshIfNeeded_NilSession(t *testing.T) {
	provider := &mockProvider{}
	m := newTestManager(provider, time.Now())

	if got := m.RefreshIfNeeded(context.Background(), nil); got != nil {
		t.Fatalf("Expected nil for nil session, got %+v", got)
	}
	if provider.refreshCalls != 0 {
		t.Errorf("Expected zero provider calls, got %d", provider.refreshCalls)
	}
}

func TestRefreshIfNeeded_FarFromExpiry(t *testing.T) {
	now := time.Now()
	provider := &mockProvider{}
	m := newTestManager(provider, now)

	s := &models.Session{
		AccessToken:  "at",
		RefreshToken: "rt",
		ExpiresAt:    now.Add(10 * time.Minute).Unix(),
	}

	got := m.RefreshIfNeeded(context.Background(), s)
	if got != s {
		t.Fatal("Expected the session to be returned unchanged")
	}
	if provider.refreshCalls != 0 {
		t.Errorf("A session far from expiry must not touch the network, got %d calls", provider.refreshCalls)
	}
}

func TestRefreshIfNeeded_ExactlyAtThreshold(t *testing.T) {
	now := time.Now()
	provider := &mockProvider{}
	m := newTestManager(provider, now)

	// timeUntilExpiry == threshold: still the no-op path
	s := &models.Session{ExpiresAt: now.Add(5 * time.Minute).Unix()}

	if got := m.RefreshIfNeeded(context.Background(), s); got != s {
		t.Fatal("Expected unchanged session at the threshold boundary")
	}
	if provider.refreshCalls != 0 {
		t.Errorf("Expected zero provider calls at the boundary, got %d", provider.refreshCalls)
	}
}

func TestRefreshIfNeeded_NearExpiryRefreshes(t *testing.T) {
	now := time.Now()
	rotated := &models.Session{
		AccessToken:  "at-2",
		RefreshToken: "rt-2",
		ExpiresAt:    now.Add(time.Hour).Unix(),
		UserID:       "user-1",
	}
	provider := &mockProvider{session: rotated}
	m := newTestManager(provider, now)

	s := &models.Session{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		ExpiresAt:    now.Add(time.Minute).Unix(),
		UserID:       "user-1",
	}

	got := m.RefreshIfNeeded(context.Background(), s)
	if got != rotated {
		t.Fatal("Expected the rotated session back")
	}
	if provider.refreshCalls != 1 {
		t.Errorf("Expected exactly one refresh call, got %d", provider.refreshCalls)
	}
	if provider.refreshToken != "rt-1" {
		t.Errorf("Expected the old refresh token to be exchanged, got %q", provider.refreshToken)
	}
}

func TestRefreshIfNeeded_CachesRotatedSession(t *testing.T) {
	now := time.Now()
	rotated := &models.Session{
		AccessToken:  "at-2",
		RefreshToken: "rt-2",
		ExpiresAt:    now.Add(time.Hour).Unix(),
		UserID:       "user-1",
	}
	provider := &mockProvider{session: rotated}

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	store := redis.NewMemoryStore(logger)
	defer store.Close()

	m := NewManager(provider, store, &config.SessionConfig{RefreshThreshold: 5 * time.Minute}, logger)
	m.now = func() time.Time { return now }

	s := &models.Session{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		ExpiresAt:    now.Add(time.Minute).Unix(),
		UserID:       "user-1",
	}

	if got := m.RefreshIfNeeded(context.Background(), s); got != rotated {
		t.Fatal("Expected the rotated session back")
	}

	cached, err := store.GetSession(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Expected the rotated session to be cached, got error: %v", err)
	}
	if cached.AccessToken != "at-2" {
		t.Errorf("Cached session holds access token %q, want %q", cached.AccessToken, "at-2")
	}
}

func TestRefreshIfNeeded_FailureReturnsNil(t *testing.T) {
	now := time.Now()
	provider := &mockProvider{err: errors.New("provider down")}
	m := newTestManager(provider, now)

	s := &models.Session{RefreshToken: "rt", ExpiresAt: now.Add(time.Minute).Unix()}

	if got := m.RefreshIfNeeded(context.Background(), s); got != nil {
		t.Fatalf("Expected nil on refresh failure, got %+v", got)
	}
}

func TestValid(t *testing.T) {
	now := time.Now()
	provider := &mockProvider{}
	m := newTestManager(provider, now)

	cases := []struct {
		name    string
		session *models.Session
		want    bool
	}{
		{"nil session", nil, false},
		{"future expiry", &models.Session{ExpiresAt: now.Add(time.Second).Unix()}, true},
		{"exactly now is expired", &models.Session{ExpiresAt: now.Unix()}, false},
		{"past expiry", &models.Session{ExpiresAt: now.Add(-time.Second).Unix()}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := m.Valid(tc.session); got != tc.want {
				t.Errorf("Valid() = %v, want %v", got, tc.want)
			}
		})
	}
}
