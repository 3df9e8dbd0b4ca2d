// Package main provides the entry point for the trustBank API gateway.
// It initializes all dependencies, sets up HTTP routes with the session
// guard and middleware stack, and starts the server with graceful
// shutdown support.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/theceo1/trustbank-gateway/internal/client"
	"github.com/theceo1/trustbank-gateway/internal/config"
	"github.com/theceo1/trustbank-gateway/internal/handlers"
	"github.com/theceo1/trustbank-gateway/internal/middleware"
	"github.com/theceo1/trustbank-gateway/internal/redis"
	"github.com/theceo1/trustbank-gateway/internal/roles"
	"github.com/theceo1/trustbank-gateway/internal/routes"
	"github.com/theceo1/trustbank-gateway/internal/session"
	"github.com/theceo1/trustbank-gateway/internal/token"
	"github.com/theceo1/trustbank-gateway/internal/totp"
	"github.com/theceo1/trustbank-gateway/pkg/logger"
)

const totpIssuer = "trustBank"

func main() {
	// Load .env.local file only in development (when GO_ENV is not set or set to "development")
	goEnv := os.Getenv("GO_ENV")
	if goEnv == "" || goEnv == "development" {
		if err := godotenv.Load(".env.local"); err != nil {
			// Only log if the error is not "file not found"
			if !os.IsNotExist(err) {
				fmt.Fprintf(os.Stderr, "Warning: Error loading .env.local file: %v\n", err)
			}
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log.Info("Starting trustBank gateway")
	log.WithFields(logrus.Fields{
		"version":     "1.0.0",
		"environment": cfg.Environment.Environment,
		"port":        cfg.Server.Port,
		"host":        cfg.Server.Host,
		"tls":         cfg.IsTLSEnabled(),
	}).Info("Service configuration loaded")

	// Initialize dependencies
	store, redisClient, roleStore := initializeStores(cfg, log)
	defer closeStore(store, log)
	defer closeRoleStore(roleStore, log)

	// Set up HTTP server
	server, err := setupServer(cfg, store, redisClient, roleStore, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to set up server")
	}

	// Start and run server with graceful shutdown
	runServer(server, cfg, log)
}

// initializeStores connects the session/TOTP store and the admin role
// store. Redis being down degrades to an in-memory store; Postgres being
// down degrades to admin routes denying.
func initializeStores(cfg *config.Config, log *logrus.Logger) (redis.Store, *goredis.Client, *roles.Store) {
	var roleStore *roles.Store
	if cfg.IsDatabaseConfigured() {
		rs, err := roles.NewStore(cfg, log)
		if err != nil {
			log.WithError(err).Error("Failed to initialize role store, admin routes will deny")
		} else {
			roleStore = rs
		}
	} else {
		log.Warn("Role store not configured, admin routes will deny")
	}

	redisStore, err := redis.NewClient(&cfg.Redis, log)
	if err != nil {
		log.WithError(err).Warn("Failed to connect to Redis, falling back to in-memory store")
		log.Warn("Note: In-memory store will not persist data between restarts")
		return redis.NewMemoryStore(log), nil, roleStore
	}

	log.Info("Successfully connected to Redis store")
	return redisStore, redisStore.GetRedisClient(), roleStore
}

func closeStore(store redis.Store, log *logrus.Logger) {
	if storeErr := store.Close(); storeErr != nil {
		log.WithError(storeErr).Error("Failed to close store connection")
	}
}

func closeRoleStore(roleStore *roles.Store, log *logrus.Logger) {
	if roleStore != nil {
		roleStore.Close()
		log.Info("Role store connections closed")
	}
}

func setupServer(
	cfg *config.Config,
	store redis.Store,
	redisClient *goredis.Client,
	roleStore *roles.Store,
	log *logrus.Logger,
) (*http.Server, error) {
	urls := cfg.GetServiceURLs()

	// Upstream clients
	exchange := client.NewExchangeClient(&cfg.Exchange, urls.ExchangeBaseURL, log)
	provider := session.NewHTTPProvider(&cfg.AuthProvider, urls.AuthProviderBaseURL, log)

	// Session plumbing
	codec := token.NewBlobCodec(cfg.Session.Secret)
	secureCookies := cfg.IsProd() && cfg.Security.SecureCookies
	cookies := session.NewCookieWriter(codec, cfg.Session.CookieMaxAge, secureCookies)
	sessions := session.NewManager(provider, store, &cfg.Session, log)
	totpSvc := totp.NewService(store, totpIssuer, log)

	// Route classification table, optionally overridden from YAML
	table, err := routes.LoadTable(cfg.Routes.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load route table: %w", err)
	}

	// The role store pointer only becomes a Lookup when it exists; a typed
	// nil would defeat the gate's nil check.
	var roleLookup roles.Lookup
	if roleStore != nil {
		roleLookup = roleStore
	}

	// Initialize middleware
	middlewareStack := middleware.NewStack(cfg, redisClient, log)
	gate := middleware.NewGate(table, sessions, cookies, roleLookup, totpSvc, log)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg, store, roleStore, log)
	authHandler := handlers.NewAuthHandler(provider, cookies, store, totpSvc, cfg, healthHandler.Metrics(), log)
	walletHandler := handlers.NewWalletHandler(exchange, log)
	adminHandler := handlers.NewAdminHandler(exchange, store, roleStore, table, log)

	// Set up routes
	router := mux.NewRouter()
	healthHandler.RegisterRoutes(router)
	authHandler.RegisterRoutes(router)
	walletHandler.RegisterRoutes(router)
	adminHandler.RegisterRoutes(router)

	// Apply middleware to the entire router; the session guard runs last
	// so every handler sees a classified, authenticated request.
	finalHandler := middlewareStack.Chain(
		router,
		middlewareStack.Recovery,
		middlewareStack.RequestLogger,
		middlewareStack.SecurityHeaders,
		middlewareStack.CORS,
		middlewareStack.RateLimit,
		middlewareStack.ContentType,
		gate.Guard,
	)

	// Create HTTP server
	return &http.Server{
		Addr:         cfg.ServerAddr(),
		Handler:      finalHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, nil
}

func runServer(server *http.Server, cfg *config.Config, log *logrus.Logger) {
	// Start server in a goroutine
	go startServer(server, cfg, log)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Create context with timeout for graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Attempt graceful shutdown
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		log.WithError(shutdownErr).Error("Server forced to shutdown")
	} else {
		log.Info("Server exited gracefully")
	}
}

func startServer(server *http.Server, cfg *config.Config, log *logrus.Logger) {
	log.WithFields(logrus.Fields{
		"addr": server.Addr,
		"tls":  cfg.IsTLSEnabled(),
	}).Info("Starting HTTP server")

	var startErr error
	if cfg.IsTLSEnabled() {
		startErr = server.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey)
	} else {
		startErr = server.ListenAndServe()
	}

	if startErr != nil && startErr != http.ErrServerClosed {
		log.WithError(startErr).Fatal("Failed to start server")
	}
}
