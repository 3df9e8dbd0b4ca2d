package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theceo1/trustbank-gateway/internal/config"
)

const sessionSecret = "this-is-a-very-long-secret-key-for-testing-purposes-123456789" // pragma: allowlist secret

func validConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080},
		Session: config.SessionConfig{
			Secret:           sessionSecret,
			RefreshThreshold: 5 * time.Minute,
		},
		Exchange: config.ExchangeConfig{
			Retries:          3,
			Timeout:          10 * time.Second,
			BreakerThreshold: 5,
			BreakerOpenFor:   30 * time.Second,
		},
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		wantErr  bool
		validate func(*testing.T, *config.Config)
	}{
		{
			name: "valid_configuration",
			envVars: map[string]string{
				"SESSION_SECRET": sessionSecret,
				"SERVER_PORT":    "9090",
				"REDIS_URL":      "redis://localhost:6380",
			},
			wantErr: false,
			validate: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "redis://localhost:6380", cfg.Redis.URL)
				assert.Equal(t, sessionSecret, cfg.Session.Secret)
			},
		},
		{
			name: "missing_session_secret",
			envVars: map[string]string{
				"SERVER_PORT": "8080",
			},
			wantErr: true,
		},
		{
			name: "short_session_secret",
			envVars: map[string]string{
				"SESSION_SECRET": "short",
				"SERVER_PORT":    "8080",
			},
			wantErr: true,
		},
		{
			name: "invalid_port",
			envVars: map[string]string{
				"SESSION_SECRET": sessionSecret,
				"SERVER_PORT":    "99999",
			},
			wantErr: true,
		},
		{
			name: "exchange_overrides",
			envVars: map[string]string{
				"SESSION_SECRET":             sessionSecret,
				"EXCHANGE_RETRIES":           "1",
				"EXCHANGE_TIMEOUT":           "2s",
				"EXCHANGE_BREAKER_THRESHOLD": "3",
			},
			wantErr: false,
			validate: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, 1, cfg.Exchange.Retries)
				assert.Equal(t, 2*time.Second, cfg.Exchange.Timeout)
				assert.Equal(t, 3, cfg.Exchange.BreakerThreshold)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)

			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := config.Load()

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.validate != nil {
				tt.validate(t, cfg)
			}

			// Verify default values are set
			assert.Equal(t, "0.0.0.0", cfg.Server.Host)
			assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
			assert.Equal(t, 5*time.Minute, cfg.Session.RefreshThreshold)
			assert.Equal(t, 720*time.Hour, cfg.Session.CookieMaxAge)
			assert.Equal(t, "info", cfg.Logging.Level)
			assert.Equal(t, "configs/routes.yaml", cfg.Routes.ConfigPath)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{
			name:    "valid_config",
			mutate:  func(*config.Config) {},
			wantErr: false,
		},
		{
			name:    "empty_session_secret",
			mutate:  func(c *config.Config) { c.Session.Secret = "" },
			wantErr: true,
		},
		{
			name:    "short_session_secret",
			mutate:  func(c *config.Config) { c.Session.Secret = "short" },
			wantErr: true,
		},
		{
			name:    "invalid_port_low",
			mutate:  func(c *config.Config) { c.Server.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid_port_high",
			mutate:  func(c *config.Config) { c.Server.Port = 99999 },
			wantErr: true,
		},
		{
			name:    "refresh_threshold_too_short",
			mutate:  func(c *config.Config) { c.Session.RefreshThreshold = 30 * time.Second },
			wantErr: true,
		},
		{
			name:    "negative_retries",
			mutate:  func(c *config.Config) { c.Exchange.Retries = -1 },
			wantErr: true,
		},
		{
			name:    "zero_retries_allowed",
			mutate:  func(c *config.Config) { c.Exchange.Retries = 0 },
			wantErr: false,
		},
		{
			name:    "breaker_threshold_zero",
			mutate:  func(c *config.Config) { c.Exchange.BreakerThreshold = 0 },
			wantErr: true,
		},
		{
			name:    "non_positive_timeout",
			mutate:  func(c *config.Config) { c.Exchange.Timeout = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigServerAddr(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Host: "localhost",
			Port: 9090,
		},
	}

	addr := cfg.ServerAddr()
	assert.Equal(t, "localhost:9090", addr)
}

func TestConfigIsTLSEnabled(t *testing.T) {
	tests := []struct {
		name     string
		config   *config.Config
		expected bool
	}{
		{
			name: "tls_enabled",
			config: &config.Config{
				Server: config.ServerConfig{
					TLSCert: "/path/to/cert.pem",
					TLSKey:  "/path/to/key.pem",
				},
			},
			expected: true,
		},
		{
			name: "tls_disabled_no_cert",
			config: &config.Config{
				Server: config.ServerConfig{
					TLSKey: "/path/to/key.pem",
				},
			},
			expected: false,
		},
		{
			name: "tls_disabled_no_key",
			config: &config.Config{
				Server: config.ServerConfig{
					TLSCert: "/path/to/cert.pem",
				},
			},
			expected: false,
		},
		{
			name: "tls_disabled_empty",
			config: &config.Config{
				Server: config.ServerConfig{},
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.config.IsTLSEnabled()
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestConfigIsProd(t *testing.T) {
	cfg := &config.Config{}
	assert.False(t, cfg.IsProd())

	cfg.Environment.Environment = config.Prod
	assert.True(t, cfg.IsProd())
}

func TestConfigDatabaseDSN(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Host:     "db.internal",
			Port:     5433,
			Database: "trustbank",
			Schema:   "gateway",
			User:     "gw",
			Password: "secret",
			SSLMode:  "require",
		},
	}

	dsn := cfg.DatabaseDSN()
	assert.Equal(t,
		"host=db.internal port=5433 dbname=trustbank user=gw password=secret sslmode=require search_path=gateway",
		dsn)
}

func TestConfigIsDatabaseConfigured(t *testing.T) {
	cfg := &config.Config{}
	assert.False(t, cfg.IsDatabaseConfigured())

	cfg.Database.User = "gw"
	assert.False(t, cfg.IsDatabaseConfigured())

	cfg.Database.Password = "secret"
	assert.True(t, cfg.IsDatabaseConfigured())
}

func clearEnv(_ *testing.T) {
	envVars := []string{
		"ENVIRONMENT_ENV",
		"SERVER_PORT", "SERVER_HOST", "SERVER_READ_TIMEOUT", "SERVER_WRITE_TIMEOUT",
		"REDIS_URL", "REDIS_PASSWORD", "REDIS_DB",
		"POSTGRES_HOST", "POSTGRES_GATEWAY_DB_USER", "POSTGRES_GATEWAY_DB_PASSWORD",
		"EXCHANGE_BASE_URL", "EXCHANGE_API_KEY", "EXCHANGE_RETRIES",
		"EXCHANGE_TIMEOUT", "EXCHANGE_BREAKER_THRESHOLD", "EXCHANGE_BREAKER_OPEN_FOR",
		"AUTH_PROVIDER_BASE_URL", "AUTH_PROVIDER_API_KEY",
		"SESSION_SECRET", "SESSION_REFRESH_THRESHOLD", "SESSION_COOKIE_MAX_AGE",
		"SECURITY_RATE_LIMIT_RPS", "SECURITY_ALLOWED_ORIGINS",
		"LOGGING_LEVEL", "LOGGING_FORMAT",
		"ROUTES_CONFIG_PATH",
	}

	for _, env := range envVars {
		os.Unsetenv(env)
	}
}
