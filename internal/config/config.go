// Package config provides configuration management for the trustBank gateway.
// It supports environment variable-based configuration with validation and
// default values for all service components including server, Redis, Postgres,
// upstream exchange, session, security, and logging settings.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// MinSessionSecretLength is the minimum required length for the
	// session blob signing secret.
	MinSessionSecretLength = 32
	// MinPortNumber is the minimum valid port number.
	MinPortNumber = 1
	// MaxPortNumber is the maximum valid port number.
	MaxPortNumber = 65535
)

// Config represents the complete configuration for the gateway,
// aggregating all component-specific configurations.
type Config struct {
	// Environment holds environment-specific settings.
	Environment EnvironmentConfig `envconfig:"ENVIRONMENT"`
	// Server contains HTTP server configuration including ports, timeouts, and TLS settings.
	Server ServerConfig `envconfig:"SERVER"`
	// Redis contains Redis connection and pool configuration.
	Redis RedisConfig `envconfig:"REDIS"`
	// Database contains PostgreSQL configuration for the admin role store.
	Database DatabaseConfig `envconfig:"POSTGRES"`
	// Exchange contains upstream exchange API client configuration.
	Exchange ExchangeConfig `envconfig:"EXCHANGE"`
	// AuthProvider contains auth provider configuration.
	AuthProvider AuthProviderConfig `envconfig:"AUTH_PROVIDER"`
	// Session contains session validity and cookie settings.
	Session SessionConfig `envconfig:"SESSION"`
	// Security contains security-related settings like CORS and rate limiting.
	Security SecurityConfig `envconfig:"SECURITY"`
	// Logging contains logging configuration.
	Logging LoggingConfig `envconfig:"LOGGING"`
	// Routes contains route classification table settings.
	Routes RoutesConfig `envconfig:"ROUTES"`
}

type Environment string

const (
	Local   Environment = "LOCAL"
	NonProd Environment = "NONPROD"
	Prod    Environment = "PROD"
)

// EnvironmentConfig holds environment-specific settings.
type EnvironmentConfig struct {
	// Environment indicates the current running environment (LOCAL, NONPROD, PROD).
	Environment Environment `envconfig:"ENV" default:"LOCAL"`
}

// ServerConfig holds HTTP server configuration including network settings,
// timeouts, and TLS certificate paths.
type ServerConfig struct {
	// Port is the HTTP server listening port.
	Port int `envconfig:"PORT"             default:"8080"`
	// Host is the network interface to bind to.
	Host string `envconfig:"HOST"             default:"0.0.0.0"`
	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration `envconfig:"READ_TIMEOUT"     default:"15s"`
	// WriteTimeout is the maximum duration before timing out writes.
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT"    default:"15s"`
	// IdleTimeout is the maximum amount of time to wait for keep-alive connections.
	IdleTimeout time.Duration `envconfig:"IDLE_TIMEOUT"     default:"60s"`
	// ShutdownTimeout is the maximum time to wait for graceful server shutdown.
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	// TLSCert is the path to the TLS certificate file for HTTPS.
	TLSCert string `envconfig:"TLS_CERT"`
	// TLSKey is the path to the TLS private key file for HTTPS.
	TLSKey string `envconfig:"TLS_KEY"`
}

// RedisConfig contains Redis connection configuration including
// connection pool settings and timeouts.
type RedisConfig struct {
	// URL is the Redis connection URL.
	URL string `envconfig:"URL"           default:"redis://localhost:6379"`
	// Password is the Redis authentication password.
	Password string `envconfig:"PASSWORD"`
	// DB is the Redis database number to use.
	DB int `envconfig:"DB"            default:"0"`
	// MaxRetries is the maximum number of retry attempts for failed operations.
	MaxRetries int `envconfig:"MAX_RETRIES"   default:"3"`
	// PoolSize is the maximum number of socket connections.
	PoolSize int `envconfig:"POOL_SIZE"     default:"10"`
	// MinIdleConn is the minimum number of idle connections.
	MinIdleConn int `envconfig:"MIN_IDLE_CONN" default:"5"`
	// DialTimeout is the timeout for establishing new connections.
	DialTimeout time.Duration `envconfig:"DIAL_TIMEOUT"  default:"5s"`
	// ReadTimeout is the timeout for socket reads.
	ReadTimeout time.Duration `envconfig:"READ_TIMEOUT"  default:"3s"`
	// WriteTimeout is the timeout for socket writes.
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
	// PoolTimeout is the amount of time client waits for connection.
	PoolTimeout time.Duration `envconfig:"POOL_TIMEOUT"  default:"4s"`
	// IdleTimeout is the amount of time after which client closes idle connections.
	IdleTimeout time.Duration `envconfig:"IDLE_TIMEOUT"  default:"300s"`
}

// DatabaseConfig contains PostgreSQL database connection configuration
// for the admin role store including connection pool settings.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `envconfig:"HOST"                default:"localhost"`
	// Port is the PostgreSQL server port.
	Port int `envconfig:"PORT"                default:"5432"`
	// Database is the PostgreSQL database name.
	Database string `envconfig:"DB"                  default:"trustbank"`
	// Schema is the PostgreSQL schema name.
	Schema string `envconfig:"SCHEMA"              default:"public"`
	// User is the database username.
	User string `envconfig:"GATEWAY_DB_USER"`
	// Password is the database password.
	Password string `envconfig:"GATEWAY_DB_PASSWORD"`
	// SSLMode is the SSL connection mode (disable, require, verify-ca, verify-full).
	SSLMode string `envconfig:"SSL_MODE"            default:"require"`
	// MaxConn is the maximum number of connections in the pool.
	MaxConn int32 `envconfig:"MAX_CONN"            default:"25"`
	// MinConn is the minimum number of connections in the pool.
	MinConn int32 `envconfig:"MIN_CONN"            default:"5"`
	// MaxConnLifetime is the maximum lifetime of a connection.
	MaxConnLifetime time.Duration `envconfig:"MAX_CONN_LIFETIME"   default:"1h"`
	// MaxConnIdleTime is the maximum idle time for a connection.
	MaxConnIdleTime time.Duration `envconfig:"MAX_CONN_IDLE_TIME"  default:"30m"`
	// HealthCheckPeriod is how often to check database connectivity.
	HealthCheckPeriod time.Duration `envconfig:"HEALTH_CHECK_PERIOD" default:"30s"`
	// ConnectTimeout is the timeout for establishing connections.
	ConnectTimeout time.Duration `envconfig:"CONNECT_TIMEOUT"     default:"10s"`
}

// ExchangeConfig contains upstream exchange API client configuration
// including retry, timeout, and circuit breaker settings.
type ExchangeConfig struct {
	// BaseURL is the exchange API base URL. Empty means the
	// environment-appropriate default is used.
	BaseURL string `envconfig:"BASE_URL"`
	// APIKey is the bearer token for exchange API authentication.
	APIKey string `envconfig:"API_KEY"`
	// Retries is the number of retry attempts after the initial request.
	Retries int `envconfig:"RETRIES"          default:"3"`
	// Timeout is the per-attempt request timeout.
	Timeout time.Duration `envconfig:"TIMEOUT"          default:"10s"`
	// BreakerThreshold is the consecutive failure count that opens the circuit.
	BreakerThreshold int `envconfig:"BREAKER_THRESHOLD" default:"5"`
	// BreakerOpenFor is how long the circuit stays open after tripping.
	BreakerOpenFor time.Duration `envconfig:"BREAKER_OPEN_FOR"  default:"30s"`
}

// AuthProviderConfig contains auth provider connection settings.
type AuthProviderConfig struct {
	// BaseURL is the auth provider base URL. Empty means the
	// environment-appropriate default is used.
	BaseURL string `envconfig:"BASE_URL"`
	// APIKey is the provider API key sent with every request.
	APIKey string `envconfig:"API_KEY"`
	// Timeout is the request timeout for provider calls.
	Timeout time.Duration `envconfig:"TIMEOUT" default:"10s"`
}

// SessionConfig contains session validity and cookie write-through settings.
type SessionConfig struct {
	// Secret signs the composite session cookie blob (required, minimum 32 characters).
	Secret string `envconfig:"SECRET" required:"true"`
	// RefreshThreshold is how close to expiry a session must be before a
	// proactive refresh is attempted.
	RefreshThreshold time.Duration `envconfig:"REFRESH_THRESHOLD" default:"5m"`
	// CookieMaxAge is the lifetime of the mirrored session cookies.
	CookieMaxAge time.Duration `envconfig:"COOKIE_MAX_AGE"    default:"720h"`
}

// SecurityConfig contains security-related settings including
// rate limiting, CORS configuration, and cookie security.
type SecurityConfig struct {
	// RateLimitRPS is the maximum requests per second per client.
	RateLimitRPS int `envconfig:"RATE_LIMIT_RPS"    default:"100"`
	// RateLimitBurst is the maximum burst size for rate limiting.
	RateLimitBurst int `envconfig:"RATE_LIMIT_BURST"  default:"200"`
	// AllowedOrigins are the CORS allowed origins.
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"   default:"*"`
	// AllowedMethods are the CORS allowed HTTP methods.
	AllowedMethods []string `envconfig:"ALLOWED_METHODS"   default:"GET,POST,PUT,DELETE,OPTIONS"`
	// AllowedHeaders are the CORS allowed headers.
	AllowedHeaders []string `envconfig:"ALLOWED_HEADERS"   default:"*"`
	// ExposedHeaders are the CORS exposed headers.
	ExposedHeaders []string `envconfig:"EXPOSED_HEADERS"`
	// AllowCredentials determines if CORS allows credentials.
	AllowCredentials bool `envconfig:"ALLOW_CREDENTIALS" default:"true"`
	// MaxAge is the CORS preflight cache duration in seconds.
	MaxAge int `envconfig:"MAX_AGE"           default:"86400"`
	// TrustedProxies are the trusted proxy IP addresses or networks.
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`
	// SecureCookies determines if cookies should be marked as secure.
	// Defaults on; disabled locally so plain-HTTP development works.
	SecureCookies bool `envconfig:"SECURE_COOKIES"    default:"true"`
}

// LoggingConfig contains logging configuration including
// log level, format, and output destination.
type LoggingConfig struct {
	// Level is the logging level (debug, info, warn, error).
	Level string `envconfig:"LEVEL"  default:"info"`
	// Format is the log output format (json, text).
	Format string `envconfig:"FORMAT" default:"json"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `envconfig:"OUTPUT" default:"stdout"`
}

// RoutesConfig contains route classification table settings.
type RoutesConfig struct {
	// ConfigPath is the path to the optional YAML route table. When the
	// file is absent the compiled-in defaults are used.
	ConfigPath string `envconfig:"CONFIG_PATH" default:"configs/routes.yaml"`
}

// Load reads configuration from environment variables and returns
// a validated Config instance. It returns an error if configuration
// is invalid or required values are missing.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate performs comprehensive validation of all configuration values,
// ensuring they meet security and operational requirements.
func (c *Config) Validate() error {
	if c.Session.Secret == "" {
		return errors.New("session secret is required")
	}

	if len(c.Session.Secret) < MinSessionSecretLength {
		return fmt.Errorf("session secret must be at least %d characters long", MinSessionSecretLength)
	}

	if c.Server.Port < MinPortNumber || c.Server.Port > MaxPortNumber {
		return errors.New("server port must be between 1 and 65535")
	}

	if c.Session.RefreshThreshold < time.Minute {
		return errors.New("session refresh threshold must be at least 1 minute")
	}

	if c.Exchange.Retries < 0 {
		return errors.New("exchange retries cannot be negative")
	}

	if c.Exchange.BreakerThreshold < 1 {
		return errors.New("breaker threshold must be at least 1")
	}

	if c.Exchange.Timeout <= 0 {
		return errors.New("exchange timeout must be positive")
	}

	return nil
}

// ServerAddr returns the formatted server address string in host:port format.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// IsTLSEnabled returns true if both TLS certificate and key paths are configured.
func (c *Config) IsTLSEnabled() bool {
	return c.Server.TLSCert != "" && c.Server.TLSKey != ""
}

// IsProd reports whether the gateway is running in the production environment.
func (c *Config) IsProd() bool {
	return c.Environment.Environment == Prod
}

// DatabaseDSN returns the PostgreSQL connection string (Data Source Name).
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s search_path=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.User,
		c.Database.Password,
		c.Database.SSLMode,
		c.Database.Schema,
	)
}

// IsDatabaseConfigured returns true if the role store user and password are configured.
func (c *Config) IsDatabaseConfigured() bool {
	return c.Database.User != "" && c.Database.Password != ""
}
