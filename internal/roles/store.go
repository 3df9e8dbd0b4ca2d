// Package roles looks up administrative role records for principals.
// The role store is the authority consulted by the session guard before an
// admin route is allowed; a user without a record holds no admin access.
package roles

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/theceo1/trustbank-gateway/internal/config"
	"github.com/theceo1/trustbank-gateway/internal/models"
)

const healthCheckTimeout = 5 * time.Second

// ErrStoreUnavailable is returned when role lookups are attempted while
// the database is unreachable. The guard treats it as a failed check.
var ErrStoreUnavailable = errors.New("role store is not available")

// Lookup answers whether a principal holds an admin role.
type Lookup interface {
	// GetRole returns the principal's admin role record, or nil when the
	// principal holds none.
	GetRole(ctx context.Context, userID string) (*models.AdminRole, error)
}

// Store is a PostgreSQL-backed Lookup with connection pooling and
// background health monitoring. When credentials are not configured the
// store runs permanently unavailable and every lookup fails, which the
// guard maps to a denied admin check.
type Store struct {
	pool      *pgxpool.Pool
	config    *config.DatabaseConfig
	logger    *logrus.Logger
	available bool
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewStore creates a role store with a connection pool and health monitoring.
// If database credentials are not configured, it returns a store without a
// connection.
func NewStore(cfg *config.Config, logger *logrus.Logger) (*Store, error) {
	ctx, cancel := context.WithCancel(context.Background())

	store := &Store{
		config: &cfg.Database,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	if cfg.IsDatabaseConfigured() {
		if err := store.connect(cfg.DatabaseDSN()); err != nil {
			logger.WithError(err).Warn("Failed to connect to role store on startup, will retry periodically")
		}
		go store.healthMonitor(cfg.DatabaseDSN())
	} else {
		logger.Info("Role store not configured, admin routes will be denied")
	}

	return store, nil
}

// connect establishes the database connection pool.
func (s *Store) connect(dsn string) error {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return err
	}

	poolConfig.MaxConns = s.config.MaxConn
	poolConfig.MinConns = s.config.MinConn
	poolConfig.MaxConnLifetime = s.config.MaxConnLifetime
	poolConfig.MaxConnIdleTime = s.config.MaxConnIdleTime
	poolConfig.ConnConfig.ConnectTimeout = s.config.ConnectTimeout

	ctx, cancel := context.WithTimeout(s.ctx, s.config.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return err
	}

	if pingErr := pool.Ping(ctx); pingErr != nil {
		pool.Close()
		return pingErr
	}

	s.mu.Lock()
	if s.pool != nil {
		s.pool.Close()
	}
	s.pool = pool
	s.available = true
	s.mu.Unlock()

	s.logger.Info("Successfully connected to role store")
	return nil
}

// healthMonitor periodically checks database connectivity and reconnects.
func (s *Store) healthMonitor(dsn string) {
	ticker := time.NewTicker(s.config.HealthCheckPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.checkHealth(dsn)
		}
	}
}

func (s *Store) checkHealth(dsn string) {
	s.mu.RLock()
	pool := s.pool
	wasAvailable := s.available
	s.mu.RUnlock()

	if pool == nil {
		if err := s.connect(dsn); err != nil && wasAvailable {
			s.logger.WithError(err).Warn("Role store connection lost, attempting reconnection")
		}
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, healthCheckTimeout)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		s.mu.Lock()
		s.available = false
		s.mu.Unlock()

		if wasAvailable {
			s.logger.WithError(err).Warn("Role store health check failed, connection lost")
		}

		if reconnectErr := s.connect(dsn); reconnectErr != nil {
			s.logger.WithError(reconnectErr).Debug("Role store reconnection attempt failed")
		}
		return
	}

	s.mu.Lock()
	restored := !s.available
	s.available = true
	s.mu.Unlock()

	if restored {
		s.logger.Info("Role store connection restored")
	}
}

// IsAvailable returns true if the database is currently reachable.
func (s *Store) IsAvailable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.available
}

// Close closes the connection pool and stops health monitoring.
func (s *Store) Close() {
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	s.available = false
}

// Ping performs a health check on the database connection.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	pool := s.pool
	available := s.available
	s.mu.RUnlock()

	if pool == nil || !available {
		return ErrStoreUnavailable
	}
	return pool.Ping(ctx)
}

// GetRole returns the principal's admin role record, or nil when the
// principal holds none. Zero or one record exists per principal.
func (s *Store) GetRole(ctx context.Context, userID string) (*models.AdminRole, error) {
	s.mu.RLock()
	pool := s.pool
	available := s.available
	s.mu.RUnlock()

	if pool == nil || !available {
		return nil, ErrStoreUnavailable
	}

	var role models.AdminRole
	err := pool.QueryRow(ctx,
		`SELECT name, permissions FROM admin_roles WHERE user_id = $1`,
		userID,
	).Scan(&role.Name, &role.Permissions)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up admin role: %w", err)
	}

	return &role, nil
}

// GrantRole inserts or updates the principal's admin role record.
// Used by the operator CLI, not the request path.
func (s *Store) GrantRole(ctx context.Context, userID string, role *models.AdminRole) error {
	s.mu.RLock()
	pool := s.pool
	available := s.available
	s.mu.RUnlock()

	if pool == nil || !available {
		return ErrStoreUnavailable
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO admin_roles (user_id, name, permissions) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET name = $2, permissions = $3`,
		userID, role.Name, role.Permissions,
	)
	if err != nil {
		return fmt.Errorf("failed to grant admin role: %w", err)
	}
	return nil
}

// RevokeRole removes the principal's admin role record.
func (s *Store) RevokeRole(ctx context.Context, userID string) error {
	s.mu.RLock()
	pool := s.pool
	available := s.available
	s.mu.RUnlock()

	if pool == nil || !available {
		return ErrStoreUnavailable
	}

	_, err := pool.Exec(ctx, `DELETE FROM admin_roles WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke admin role: %w", err)
	}
	return nil
}
