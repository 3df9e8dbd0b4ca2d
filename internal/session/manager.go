package session

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theceo1/trustbank-gateway/internal/config"
	"github.com/theceo1/trustbank-gateway/internal/models"
	"github.com/theceo1/trustbank-gateway/internal/redis"
)

// Manager owns session validity and proactive refresh. It may be consulted
// on every request, so the common case (session not near expiry) performs
// no I/O at all.
type Manager struct {
	provider  Provider
	store     redis.Store
	threshold time.Duration
	logger    *logrus.Logger

	// now is swapped out in tests.
	now func() time.Time
}

// NewManager creates a manager that refreshes sessions within the
// configured threshold of expiry. Rotated sessions are written through to
// the store so admin session stats reflect live traffic; store may be nil,
// which disables the write-through.
func NewManager(provider Provider, store redis.Store, cfg *config.SessionConfig, logger *logrus.Logger) *Manager {
	return &Manager{
		provider:  provider,
		store:     store,
		threshold: cfg.RefreshThreshold,
		logger:    logger,
		now:       time.Now,
	}
}

// RefreshIfNeeded returns the session to use for the rest of the request.
//
//   - nil in, nil out, no provider call
//   - sessions at least the threshold away from expiry are returned
//     unchanged with no provider call
//   - otherwise the refresh token is exchanged once; on success the rotated
//     session is returned, on failure nil is returned and the caller must
//     treat the session as ended
//
// Refresh failures are logged, never propagated: the guard maps a nil
// result to its redirect path.
func (m *Manager) RefreshIfNeeded(ctx context.Context, s *models.Session) *models.Session {
	if s == nil {
		return nil
	}

	if s.TimeUntilExpiry(m.now()) >= m.threshold {
		return s
	}

	refreshed, err := m.provider.Refresh(ctx, s.RefreshToken)
	if err != nil {
		m.logger.WithFields(logrus.Fields{
			"user_id": s.UserID,
			"error":   err,
		}).Warn("Session refresh failed, ending session")
		return nil
	}

	m.cache(ctx, refreshed)
	m.logger.WithField("user_id", refreshed.UserID).Debug("Session refreshed")
	return refreshed
}

// Valid reports whether the session can still be used right now.
func (m *Manager) Valid(s *models.Session) bool {
	return s.Valid(m.now())
}

// cache writes the session through to the store, keyed by user and expiring
// with the session itself. Store failures are advisory: the session is
// still valid without the cache entry.
func (m *Manager) cache(ctx context.Context, s *models.Session) {
	if m.store == nil {
		return
	}

	ttl := s.TimeUntilExpiry(m.now())
	if ttl <= 0 {
		return
	}

	if err := m.store.StoreSession(ctx, s.UserID, s, ttl); err != nil {
		m.logger.WithFields(logrus.Fields{
			"user_id": s.UserID,
			"error":   err,
		}).Warn("Failed to cache refreshed session")
	}
}
