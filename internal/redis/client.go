// Package redis provides a Redis store for the gateway's session-adjacent
// state: cached sessions, per-user TOTP secrets, and single-use recovery
// codes. Rate limiting shares the same connection through the raw client.
//
// The Redis keys are organized with prefixes to avoid collisions:
//   - gw:session:{user_id} - cached sessions with TTL
//   - gw:totp:{user_id} - per-user TOTP secrets
//   - gw:recovery:{user_id} - hashed single-use recovery codes
//
// All operations are context-aware and provide detailed error reporting.
// Token values are masked in logs for security purposes.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/theceo1/trustbank-gateway/internal/config"
	"github.com/theceo1/trustbank-gateway/internal/models"
)

const (
	// MinTokenLengthForMasking is the minimum token length before masking is applied.
	MinTokenLengthForMasking = 8
)

// ErrNotFound is returned when a key does not exist in the store.
// Callers can check this sentinel to distinguish an absent entry
// (expected) from an actual store error (unexpected).
var ErrNotFound = errors.New("not found")

// Store defines the storage operations the gateway needs. Implementations
// must be safe for concurrent use.
type Store interface {
	// Close gracefully closes the store.
	Close() error

	// Ping verifies connectivity to the backing store.
	Ping(ctx context.Context) error

	// StoreSession caches a session keyed by user ID with a TTL.
	StoreSession(ctx context.Context, userID string, session *models.Session, ttl time.Duration) error

	// GetSession retrieves a cached session. Returns ErrNotFound when
	// absent or expired.
	GetSession(ctx context.Context, userID string) (*models.Session, error)

	// DeleteSession removes a cached session. Deleting a session that
	// does not exist is not an error.
	DeleteSession(ctx context.Context, userID string) error

	// SessionCount returns the number of cached sessions.
	SessionCount(ctx context.Context) (int, error)

	// StoreTOTPSecret persists a user's TOTP shared secret without TTL.
	StoreTOTPSecret(ctx context.Context, userID, secret string) error

	// GetTOTPSecret retrieves a user's TOTP shared secret. Returns
	// ErrNotFound when the user has not enrolled.
	GetTOTPSecret(ctx context.Context, userID string) (string, error)

	// DeleteTOTPSecret removes a user's TOTP enrollment.
	DeleteTOTPSecret(ctx context.Context, userID string) error

	// ReplaceRecoveryCodes overwrites the user's hashed recovery codes.
	ReplaceRecoveryCodes(ctx context.Context, userID string, hashes []string) error

	// GetRecoveryCodes returns the user's remaining hashed recovery
	// codes. An empty slice is returned when none remain.
	GetRecoveryCodes(ctx context.Context, userID string) ([]string, error)
}

// Client is a Redis-backed Store. All methods are safe for concurrent use;
// the underlying go-redis client pools connections internally.
type Client struct {
	rdb    *redis.Client
	logger *logrus.Logger
}

// NewClient creates a Redis store from configuration and verifies
// connectivity with an initial Ping before returning.
func NewClient(cfg *config.RedisConfig, logger *logrus.Logger) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.DB = cfg.DB
	opts.MaxRetries = cfg.MaxRetries
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConn
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout
	opts.PoolTimeout = cfg.PoolTimeout

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.WithField("db", cfg.DB).Info("Connected to Redis")

	return &Client{rdb: rdb, logger: logger}, nil
}

// Close gracefully closes the Redis connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies connectivity to the Redis server.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// GetRedisClient exposes the raw client, used by the rate limiter which
// shares this connection pool.
func (c *Client) GetRedisClient() *redis.Client {
	return c.rdb
}

// StoreSession caches a session keyed by user ID with a TTL.
func (c *Client) StoreSession(ctx context.Context, userID string, session *models.Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := c.rdb.Set(ctx, sessionKey(userID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"token":   maskToken(session.AccessToken),
		"ttl":     ttl.String(),
	}).Debug("Session stored")

	return nil
}

// GetSession retrieves a cached session.
func (c *Client) GetSession(ctx context.Context, userID string) (*models.Session, error) {
	data, err := c.rdb.Get(ctx, sessionKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("session: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// DeleteSession removes a cached session.
func (c *Client) DeleteSession(ctx context.Context, userID string) error {
	if err := c.rdb.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// SessionCount returns the number of cached sessions via key scan.
func (c *Client) SessionCount(ctx context.Context) (int, error) {
	var count int
	iter := c.rdb.Scan(ctx, 0, "gw:session:*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to scan sessions: %w", err)
	}
	return count, nil
}

// StoreTOTPSecret persists a user's TOTP shared secret.
func (c *Client) StoreTOTPSecret(ctx context.Context, userID, secret string) error {
	if err := c.rdb.Set(ctx, totpKey(userID), secret, 0).Err(); err != nil {
		return fmt.Errorf("failed to store TOTP secret: %w", err)
	}
	c.logger.WithField("user_id", userID).Debug("TOTP secret stored")
	return nil
}

// GetTOTPSecret retrieves a user's TOTP shared secret.
func (c *Client) GetTOTPSecret(ctx context.Context, userID string) (string, error) {
	secret, err := c.rdb.Get(ctx, totpKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("TOTP secret: %w", ErrNotFound)
		}
		return "", fmt.Errorf("failed to get TOTP secret: %w", err)
	}
	return secret, nil
}

// DeleteTOTPSecret removes a user's TOTP enrollment and recovery codes.
func (c *Client) DeleteTOTPSecret(ctx context.Context, userID string) error {
	if err := c.rdb.Del(ctx, totpKey(userID), recoveryKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete TOTP secret: %w", err)
	}
	return nil
}

// ReplaceRecoveryCodes overwrites the user's hashed recovery codes.
func (c *Client) ReplaceRecoveryCodes(ctx context.Context, userID string, hashes []string) error {
	data, err := json.Marshal(hashes)
	if err != nil {
		return fmt.Errorf("failed to marshal recovery codes: %w", err)
	}
	if err := c.rdb.Set(ctx, recoveryKey(userID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store recovery codes: %w", err)
	}
	return nil
}

// GetRecoveryCodes returns the user's remaining hashed recovery codes.
func (c *Client) GetRecoveryCodes(ctx context.Context, userID string) ([]string, error) {
	data, err := c.rdb.Get(ctx, recoveryKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recovery codes: %w", err)
	}

	var hashes []string
	if err := json.Unmarshal(data, &hashes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recovery codes: %w", err)
	}
	return hashes, nil
}

func sessionKey(userID string) string {
	return "gw:session:" + userID
}

func totpKey(userID string) string {
	return "gw:totp:" + userID
}

func recoveryKey(userID string) string {
	return "gw:recovery:" + userID
}

// maskToken hides the middle of a token for safe logging.
func maskToken(token string) string {
	if len(token) < MinTokenLengthForMasking {
		return "****"
	}
	return token[:4] + "****" + token[len(token)-4:]
}
