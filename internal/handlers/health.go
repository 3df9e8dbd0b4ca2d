// Package handlers contains the HTTP handlers exposed by the gateway:
// health and monitoring endpoints, auth endpoints proxying the upstream
// provider, wallet/trading endpoints proxying the exchange, and admin
// diagnostics.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/theceo1/trustbank-gateway/internal/config"
	"github.com/theceo1/trustbank-gateway/internal/constants"
	"github.com/theceo1/trustbank-gateway/internal/redis"
	"github.com/theceo1/trustbank-gateway/internal/roles"
)

const (
	// HealthCheckTimeout is the default timeout for health check operations.
	HealthCheckTimeout = 5 * time.Second
)

// HealthHandler provides health check and monitoring endpoints.
type HealthHandler struct {
	config    *config.Config
	store     redis.Store
	roleStore *roles.Store
	logger    *logrus.Logger
	metrics   *Metrics
	startTime time.Time
}

// HealthStatus represents the health status of a component.
type HealthStatus string

const (
	// StatusHealthy indicates the component is healthy.
	StatusHealthy HealthStatus = "healthy"
	// StatusUnhealthy indicates the component is unhealthy.
	StatusUnhealthy HealthStatus = "unhealthy"
	// StatusDegraded indicates the component has degraded performance.
	StatusDegraded HealthStatus = "degraded"
)

// HealthResponse represents the overall health check response.
type HealthResponse struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Uptime     string                     `json:"uptime,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
	Details    map[string]interface{}     `json:"details,omitempty"`
}

// ComponentHealth represents the health of an individual component.
type ComponentHealth struct {
	Status       HealthStatus `json:"status"`
	Message      string       `json:"message,omitempty"`
	LastChecked  time.Time    `json:"last_checked"`
	ResponseTime string       `json:"response_time,omitempty"`
}

// ReadinessResponse represents the readiness check response.
type ReadinessResponse struct {
	Ready      bool                       `json:"ready"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

// Metrics holds Prometheus metrics for monitoring. Per-request HTTP
// metrics are recorded by the middleware stack, not here.
type Metrics struct {
	// Session metrics
	SessionRefreshes *prometheus.CounterVec
	SignIns          *prometheus.CounterVec

	// Health metrics
	HealthChecksTotal     *prometheus.CounterVec
	ComponentHealthStatus *prometheus.GaugeVec
}

// NewHealthHandler creates a new health check handler.
func NewHealthHandler(
	cfg *config.Config,
	store redis.Store,
	roleStore *roles.Store,
	logger *logrus.Logger,
) *HealthHandler {
	metrics := NewMetrics()
	prometheus.MustRegister(
		metrics.SessionRefreshes,
		metrics.SignIns,
		metrics.HealthChecksTotal,
		metrics.ComponentHealthStatus,
	)

	return &HealthHandler{
		config:    cfg,
		store:     store,
		roleStore: roleStore,
		logger:    logger,
		metrics:   metrics,
		startTime: time.Now(),
	}
}

// NewMetrics creates and returns Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionRefreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_session_refreshes_total",
				Help: "Total number of proactive session refreshes",
			},
			[]string{"outcome"},
		),
		SignIns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_sign_ins_total",
				Help: "Total number of sign-in attempts",
			},
			[]string{"outcome"},
		),
		HealthChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_health_checks_total",
				Help: "Total number of health checks",
			},
			[]string{"endpoint", "status"},
		),
		ComponentHealthStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gateway_component_health_status",
				Help: "Health status of service components (1=healthy, 0=unhealthy)",
			},
			[]string{"component"},
		),
	}
}

// Metrics exposes the registered metric set so other handlers can record
// into it.
func (h *HealthHandler) Metrics() *Metrics {
	return h.metrics
}

// RegisterRoutes registers health check and monitoring endpoints.
func (h *HealthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/gateway/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/api/gateway/health/live", h.Liveness).Methods(http.MethodGet)
	r.HandleFunc("/api/gateway/health/ready", h.Readiness).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

// Health provides a comprehensive health check including all components.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	h.logger.Debug("Processing health check request")

	components := make(map[string]ComponentHealth)
	overallStatus := StatusHealthy

	// Session and TOTP storage is critical
	storeHealth := h.checkStorage(ctx)
	components["store"] = storeHealth
	if storeHealth.Status != StatusHealthy {
		overallStatus = StatusUnhealthy
	}

	// Role store is optional, degrades admin routes when unavailable
	roleHealth := h.checkRoleStore(ctx)
	components["role_store"] = roleHealth
	if roleHealth.Status != StatusHealthy && overallStatus == StatusHealthy {
		overallStatus = StatusDegraded
	}

	configHealth := h.checkConfiguration()
	components["configuration"] = configHealth
	if configHealth.Status != StatusHealthy && overallStatus == StatusHealthy {
		overallStatus = StatusDegraded
	}

	statusLabel := string(overallStatus)
	h.metrics.HealthChecksTotal.WithLabelValues("health", statusLabel).Inc()

	for component, health := range components {
		healthValue := float64(0)
		if health.Status == StatusHealthy {
			healthValue = 1
		}
		h.metrics.ComponentHealthStatus.WithLabelValues(component).Set(healthValue)
	}

	response := HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Version:    getVersion(),
		Uptime:     time.Since(h.startTime).String(),
		Components: components,
		Details: map[string]interface{}{
			"check_duration": time.Since(start).String(),
		},
	}

	statusCode := http.StatusOK
	if overallStatus == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.WithError(err).Error("Failed to encode health response")
	}

	h.logger.WithFields(logrus.Fields{
		"status":   overallStatus,
		"duration": time.Since(start).String(),
	}).Debug("Health check completed")
}

// Liveness provides a simple liveness check that returns 200 if the service is alive.
// This is used by Kubernetes to determine if the pod should be restarted.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	h.metrics.HealthChecksTotal.WithLabelValues("liveness", "healthy").Inc()

	response := map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now(),
		"uptime":    time.Since(h.startTime).String(),
	}

	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.WithError(err).Error("Failed to encode liveness response")
	}
}

// Readiness checks if the service is ready to receive traffic.
// This is used by Kubernetes to determine if the pod should receive requests.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	h.logger.Debug("Processing readiness check")

	components := make(map[string]ComponentHealth)
	ready := true

	storeHealth := h.checkStorage(ctx)
	components["store"] = storeHealth
	if storeHealth.Status != StatusHealthy {
		ready = false
	}

	// Role store being down doesn't affect readiness, only degrades admin routes
	roleHealth := h.checkRoleStore(ctx)
	components["role_store"] = roleHealth

	statusLabel := "ready"
	if !ready {
		statusLabel = "not_ready"
	}
	h.metrics.HealthChecksTotal.WithLabelValues("readiness", statusLabel).Inc()

	response := ReadinessResponse{
		Ready:      ready,
		Timestamp:  time.Now(),
		Components: components,
	}

	statusCode := http.StatusOK
	if !ready {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.WithError(err).Error("Failed to encode readiness response")
	}

	h.logger.WithFields(logrus.Fields{
		"ready":    ready,
		"duration": time.Since(start).String(),
	}).Debug("Readiness check completed")
}

// checkStorage checks storage backend connectivity and performance.
func (h *HealthHandler) checkStorage(ctx context.Context) ComponentHealth {
	start := time.Now()

	checkCtx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()

	err := h.store.Ping(checkCtx)
	duration := time.Since(start)

	storageType := h.getStorageType()

	if err != nil {
		h.logger.WithError(err).Warn("Storage health check failed")
		return ComponentHealth{
			Status:       StatusUnhealthy,
			Message:      storageType + " connection failed: " + err.Error(),
			LastChecked:  time.Now(),
			ResponseTime: duration.String(),
		}
	}

	status := StatusHealthy
	message := storageType + " is healthy"

	// Only check response time for Redis (memory store should always be fast)
	if storageType == "Redis" && duration > time.Second {
		status = StatusDegraded
		message = "Redis response time is slow"
	}

	return ComponentHealth{
		Status:       status,
		Message:      message,
		LastChecked:  time.Now(),
		ResponseTime: duration.String(),
	}
}

// checkRoleStore checks PostgreSQL role store connectivity.
func (h *HealthHandler) checkRoleStore(ctx context.Context) ComponentHealth {
	start := time.Now()

	// If no role store is configured, admin routes simply deny
	if h.roleStore == nil {
		return ComponentHealth{
			Status:      StatusHealthy,
			Message:     "Role store not configured (optional)",
			LastChecked: time.Now(),
		}
	}

	checkCtx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()

	err := h.roleStore.Ping(checkCtx)
	duration := time.Since(start)

	if err != nil {
		h.logger.WithError(err).Debug("Role store health check failed")
		return ComponentHealth{
			Status:       StatusUnhealthy,
			Message:      "PostgreSQL connection failed: " + err.Error(),
			LastChecked:  time.Now(),
			ResponseTime: duration.String(),
		}
	}

	if !h.roleStore.IsAvailable() {
		return ComponentHealth{
			Status:       StatusUnhealthy,
			Message:      "Role store marked as unavailable",
			LastChecked:  time.Now(),
			ResponseTime: duration.String(),
		}
	}

	status := StatusHealthy
	message := "PostgreSQL is healthy"

	if duration > 2*time.Second {
		status = StatusDegraded
		message = "PostgreSQL response time is slow"
	}

	return ComponentHealth{
		Status:       status,
		Message:      message,
		LastChecked:  time.Now(),
		ResponseTime: duration.String(),
	}
}

// getStorageType determines the type of storage backend being used.
func (h *HealthHandler) getStorageType() string {
	switch h.store.(type) {
	case *redis.Client:
		return "Redis"
	case *redis.MemoryStore:
		return "In-Memory"
	default:
		return "Unknown"
	}
}

// checkConfiguration validates critical configuration values.
func (h *HealthHandler) checkConfiguration() ComponentHealth {
	var issues []string

	if len(h.config.Session.Secret) < config.MinSessionSecretLength {
		issues = append(issues, "session secret is too short")
	}

	if h.config.Session.RefreshThreshold < time.Minute {
		issues = append(issues, "session refresh threshold is too short")
	}

	if h.config.Exchange.APIKey == "" {
		issues = append(issues, "exchange API key is not set")
	}

	status := StatusHealthy
	message := "Configuration is valid"

	if len(issues) > 0 {
		status = StatusDegraded
		message = "Configuration issues: " + strings.Join(issues, ", ")
	}

	return ComponentHealth{
		Status:      status,
		Message:     message,
		LastChecked: time.Now(),
	}
}

// getVersion returns the service version (would typically come from build info).
func getVersion() string {
	return "1.0.0"
}
