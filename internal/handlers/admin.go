package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/theceo1/trustbank-gateway/internal/client"
	"github.com/theceo1/trustbank-gateway/internal/constants"
	"github.com/theceo1/trustbank-gateway/internal/middleware"
	"github.com/theceo1/trustbank-gateway/internal/models"
	"github.com/theceo1/trustbank-gateway/internal/redis"
	"github.com/theceo1/trustbank-gateway/internal/roles"
	"github.com/theceo1/trustbank-gateway/internal/routes"
	"github.com/theceo1/trustbank-gateway/pkg/logger"
)

// AdminHandler exposes operator diagnostics and role management. Every
// route registered here matches the admin tier of the route table, so the
// session guard has already confirmed an admin role before these run.
type AdminHandler struct {
	exchange  *client.ExchangeClient
	store     redis.Store
	roleStore *roles.Store
	table     *routes.Table
	logger    *logrus.Logger
}

// NewAdminHandler creates a new admin handler instance with the provided dependencies.
func NewAdminHandler(
	exchange *client.ExchangeClient,
	store redis.Store,
	roleStore *roles.Store,
	table *routes.Table,
	logger *logrus.Logger,
) *AdminHandler {
	return &AdminHandler{
		exchange:  exchange,
		store:     store,
		roleStore: roleStore,
		table:     table,
		logger:    logger,
	}
}

// RegisterRoutes registers admin routes on the provided router.
func (h *AdminHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/admin/breaker", h.BreakerState).Methods(http.MethodGet)
	router.HandleFunc("/api/admin/breaker/reset", h.ResetBreaker).Methods(http.MethodPost)
	router.HandleFunc("/api/admin/sessions/stats", h.SessionStats).Methods(http.MethodGet)
	router.HandleFunc("/api/admin/routes", h.RouteTable).Methods(http.MethodGet)
	router.HandleFunc("/api/admin/roles/{userId}", h.GrantRole).Methods(http.MethodPut)
	router.HandleFunc("/api/admin/roles/{userId}", h.RevokeRole).Methods(http.MethodDelete)
}

// BreakerState reports the exchange circuit breaker's current state.
func (h *AdminHandler) BreakerState(w http.ResponseWriter, r *http.Request) {
	breaker := h.exchange.Breaker()

	h.writeJSONResponse(w, map[string]interface{}{
		"open":      breaker.Open(time.Now()),
		"failures":  breaker.Failures(),
		"timestamp": time.Now(),
	}, http.StatusOK)
}

// ResetBreaker manually closes the circuit breaker. Useful when an
// operator knows the upstream has recovered and does not want to wait out
// the cooldown.
func (h *AdminHandler) ResetBreaker(w http.ResponseWriter, r *http.Request) {
	h.exchange.Breaker().Reset()

	logger.WithCorrelationID(r.Context(), h.logger).
		WithField("admin", adminUserID(r)).
		Warn("Circuit breaker manually reset")

	h.writeJSONResponse(w, map[string]string{"message": "breaker reset"}, http.StatusOK)
}

// SessionStats reports how many sessions the store currently holds.
func (h *AdminHandler) SessionStats(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.SessionCount(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to count sessions")
		h.writeErrorResponse(w, "Failed to retrieve session statistics", http.StatusInternalServerError)
		return
	}

	h.writeJSONResponse(w, map[string]interface{}{
		"total_sessions": count,
		"timestamp":      time.Now(),
	}, http.StatusOK)
}

// RouteTable dumps the compiled route classification order, in precedence
// order, for debugging misclassified paths.
func (h *AdminHandler) RouteTable(w http.ResponseWriter, _ *http.Request) {
	h.writeJSONResponse(w, map[string]interface{}{
		"rules": h.table.Rules(),
	}, http.StatusOK)
}

// GrantRole upserts an admin role record for a user.
func (h *AdminHandler) GrantRole(w http.ResponseWriter, r *http.Request) {
	if h.roleStore == nil {
		h.writeErrorResponse(w, "Role store is not configured", http.StatusServiceUnavailable)
		return
	}

	userID := mux.Vars(r)["userId"]

	var role models.AdminRole
	if err := json.NewDecoder(r.Body).Decode(&role); err != nil {
		h.writeErrorResponse(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if role.Name != "admin" && role.Name != "super_admin" {
		h.writeErrorResponse(w, "role name must be admin or super_admin", http.StatusUnprocessableEntity)
		return
	}

	if err := h.roleStore.GrantRole(r.Context(), userID, &role); err != nil {
		h.logger.WithError(err).Error("Failed to grant role")
		h.writeErrorResponse(w, "Failed to grant role", http.StatusInternalServerError)
		return
	}

	logger.WithCorrelationID(r.Context(), h.logger).WithFields(logrus.Fields{
		"admin":   adminUserID(r),
		"user_id": userID,
		"role":    role.Name,
	}).Info("Admin role granted")

	h.writeJSONResponse(w, map[string]string{"message": "role granted"}, http.StatusOK)
}

// RevokeRole removes a user's admin role record.
func (h *AdminHandler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	if h.roleStore == nil {
		h.writeErrorResponse(w, "Role store is not configured", http.StatusServiceUnavailable)
		return
	}

	userID := mux.Vars(r)["userId"]

	if err := h.roleStore.RevokeRole(r.Context(), userID); err != nil {
		h.logger.WithError(err).Error("Failed to revoke role")
		h.writeErrorResponse(w, "Failed to revoke role", http.StatusInternalServerError)
		return
	}

	logger.WithCorrelationID(r.Context(), h.logger).WithFields(logrus.Fields{
		"admin":   adminUserID(r),
		"user_id": userID,
	}).Info("Admin role revoked")

	h.writeJSONResponse(w, map[string]string{"message": "role revoked"}, http.StatusOK)
}

// adminUserID returns the acting admin's user ID for audit logs.
func adminUserID(r *http.Request) string {
	if sess := middleware.SessionFromContext(r.Context()); sess != nil {
		return sess.UserID
	}
	return "unknown"
}

// writeJSONResponse writes a JSON response with the given status code.
func (h *AdminHandler) writeJSONResponse(w http.ResponseWriter, payload interface{}, statusCode int) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.WithError(err).Error("Failed to encode response")
	}
}

// writeErrorResponse writes a JSON error response.
func (h *AdminHandler) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		h.logger.WithError(err).Error("Failed to encode error response")
	}
}
