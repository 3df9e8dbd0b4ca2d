// Package redis provides storage implementations for the gateway's
// session-adjacent state. This file implements an in-memory store with the
// same Store interface as the Redis client, allowing local development and
// degraded operation without a Redis dependency.
package redis

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theceo1/trustbank-gateway/internal/models"
)

const (
	// CleanupInterval is the interval between expired item cleanup runs.
	CleanupInterval = 5 * time.Minute
)

// MemoryStore is an in-memory implementation of the Store interface.
// All data is stored in memory with TTL support via a background cleanup
// goroutine. Nothing persists between restarts.
type MemoryStore struct {
	sessions      map[string]*expiringItem[*models.Session]
	totpSecrets   map[string]string
	recoveryCodes map[string][]string
	logger        *logrus.Logger
	mu            sync.RWMutex
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
}

// expiringItem wraps data with expiration time for TTL support.
type expiringItem[T any] struct {
	Data      T
	ExpiresAt time.Time
}

// isExpired checks if the item has expired.
func (e *expiringItem[T]) isExpired() bool {
	return time.Now().After(e.ExpiresAt)
}

// NewMemoryStore creates a new in-memory store with TTL cleanup.
func NewMemoryStore(logger *logrus.Logger) *MemoryStore {
	store := &MemoryStore{
		sessions:      make(map[string]*expiringItem[*models.Session]),
		totpSecrets:   make(map[string]string),
		recoveryCodes: make(map[string][]string),
		logger:        logger,
		cleanupTicker: time.NewTicker(CleanupInterval),
		stopCleanup:   make(chan struct{}),
	}

	go store.cleanupExpiredItems()

	logger.Info("In-memory store initialized with TTL cleanup")
	return store
}

// cleanupExpiredItems runs periodically to remove expired items.
func (m *MemoryStore) cleanupExpiredItems() {
	defer m.cleanupTicker.Stop()

	for {
		select {
		case <-m.cleanupTicker.C:
			m.mu.Lock()
			for key, item := range m.sessions {
				if item.isExpired() {
					delete(m.sessions, key)
				}
			}
			m.mu.Unlock()
		case <-m.stopCleanup:
			return
		}
	}
}

// Close stops the cleanup goroutine.
func (m *MemoryStore) Close() error {
	close(m.stopCleanup)
	return nil
}

// Ping always succeeds for the in-memory store.
func (m *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// StoreSession caches a session keyed by user ID with a TTL.
func (m *MemoryStore) StoreSession(_ context.Context, userID string, session *models.Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[userID] = &expiringItem[*models.Session]{
		Data:      session,
		ExpiresAt: time.Now().Add(ttl),
	}
	return nil
}

// GetSession retrieves a cached session.
func (m *MemoryStore) GetSession(_ context.Context, userID string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.sessions[userID]
	if !ok || item.isExpired() {
		return nil, ErrNotFound
	}
	return item.Data, nil
}

// DeleteSession removes a cached session.
func (m *MemoryStore) DeleteSession(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, userID)
	return nil
}

// SessionCount returns the number of unexpired cached sessions.
func (m *MemoryStore) SessionCount(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, item := range m.sessions {
		if !item.isExpired() {
			count++
		}
	}
	return count, nil
}

// StoreTOTPSecret persists a user's TOTP shared secret.
func (m *MemoryStore) StoreTOTPSecret(_ context.Context, userID, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totpSecrets[userID] = secret
	return nil
}

// GetTOTPSecret retrieves a user's TOTP shared secret.
func (m *MemoryStore) GetTOTPSecret(_ context.Context, userID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	secret, ok := m.totpSecrets[userID]
	if !ok {
		return "", ErrNotFound
	}
	return secret, nil
}

// DeleteTOTPSecret removes a user's TOTP enrollment and recovery codes.
func (m *MemoryStore) DeleteTOTPSecret(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.totpSecrets, userID)
	delete(m.recoveryCodes, userID)
	return nil
}

// ReplaceRecoveryCodes overwrites the user's hashed recovery codes.
func (m *MemoryStore) ReplaceRecoveryCodes(_ context.Context, userID string, hashes []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]string, len(hashes))
	copy(copied, hashes)
	m.recoveryCodes[userID] = copied
	return nil
}

// GetRecoveryCodes returns the user's remaining hashed recovery codes.
func (m *MemoryStore) GetRecoveryCodes(_ context.Context, userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hashes, ok := m.recoveryCodes[userID]
	if !ok {
		return nil, nil
	}
	copied := make([]string, len(hashes))
	copy(copied, hashes)
	return copied, nil
}
