package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/theceo1/trustbank-gateway/internal/config"
	"github.com/theceo1/trustbank-gateway/internal/constants"
	"github.com/theceo1/trustbank-gateway/internal/middleware"
	"github.com/theceo1/trustbank-gateway/internal/models"
	"github.com/theceo1/trustbank-gateway/internal/redis"
	"github.com/theceo1/trustbank-gateway/internal/session"
	"github.com/theceo1/trustbank-gateway/internal/totp"
	"github.com/theceo1/trustbank-gateway/pkg/logger"
)

const (
	internalServerError = "Internal server error"
)

// AuthHandler proxies sign-in, sign-out and token refresh to the upstream
// auth provider and maintains the session cookies, plus TOTP enrollment.
// Sessions are written through to the store on sign-in and refresh, and
// evicted on sign-out, so session stats track live traffic.
type AuthHandler struct {
	provider session.Provider
	cookies  *session.CookieWriter
	store    redis.Store
	totp     *totp.Service
	config   *config.Config
	metrics  *Metrics
	logger   *logrus.Logger
}

// NewAuthHandler creates the auth endpoint handler.
func NewAuthHandler(
	provider session.Provider,
	cookies *session.CookieWriter,
	store redis.Store,
	totpSvc *totp.Service,
	cfg *config.Config,
	metrics *Metrics,
	logger *logrus.Logger,
) *AuthHandler {
	return &AuthHandler{
		provider: provider,
		cookies:  cookies,
		store:    store,
		totp:     totpSvc,
		config:   cfg,
		metrics:  metrics,
		logger:   logger,
	}
}

// RegisterRoutes registers the auth endpoints. The 2FA management routes
// sit under protected paths, so the session guard runs before them.
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/auth/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/logout", h.Logout).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/refresh", h.Refresh).Methods(http.MethodPost)
	r.HandleFunc("/api/wallet/2fa/enroll", h.EnrollTOTP).Methods(http.MethodPost)
	r.HandleFunc("/api/wallet/2fa/recovery", h.RecoverTOTP).Methods(http.MethodPost)
}

// Login exchanges credentials for a session and writes the session cookies.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeErrorResponse(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	sess, err := h.provider.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		h.metrics.SignIns.WithLabelValues("failure").Inc()
		h.writeAuthError(w, r, err)
		return
	}

	h.metrics.SignIns.WithLabelValues("success").Inc()
	h.cacheSession(ctx, sess)
	h.cookies.Write(w, sess)
	h.writeJSONResponse(w, &models.LoginResponse{Session: sess, Message: "signed in"})

	logger.WithCorrelationID(ctx, h.logger).
		WithField("user_id", sess.UserID).
		Info("User signed in")
}

// Logout revokes the session upstream and clears the cookies. Cookie
// clearing happens even when the upstream call fails, so a broken provider
// cannot pin a user to a stale session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if sess := h.cookies.Read(r); sess != nil {
		if err := h.provider.SignOut(ctx, sess.AccessToken); err != nil {
			logger.WithCorrelationID(ctx, h.logger).
				WithError(err).
				Warn("Upstream sign-out failed, clearing cookies anyway")
		}
		if err := h.store.DeleteSession(ctx, sess.UserID); err != nil {
			logger.WithCorrelationID(ctx, h.logger).
				WithError(err).
				Warn("Failed to evict cached session")
		}
	}

	h.cookies.Clear(w)
	h.writeJSONResponse(w, &models.LogoutResponse{Message: "signed out"})
}

// Refresh explicitly rotates the session tokens.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if req.RefreshToken == "" {
		// Fall back to the refresh token cookie
		if sess := h.cookies.Read(r); sess != nil {
			req.RefreshToken = sess.RefreshToken
		}
	}
	if err := req.Validate(); err != nil {
		h.writeErrorResponse(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	sess, err := h.provider.Refresh(ctx, req.RefreshToken)
	if err != nil {
		h.metrics.SessionRefreshes.WithLabelValues("failure").Inc()
		h.writeAuthError(w, r, err)
		return
	}

	h.metrics.SessionRefreshes.WithLabelValues("success").Inc()
	h.cacheSession(ctx, sess)
	h.cookies.Write(w, sess)
	h.writeJSONResponse(w, &models.RefreshResponse{Session: sess, Message: "session refreshed"})
}

// EnrollTOTP creates a TOTP secret and recovery codes for the signed-in
// user. The path sits behind the session guard, so the session is present.
func (h *AuthHandler) EnrollTOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess := middleware.SessionFromContext(ctx)
	if sess == nil {
		h.writeErrorResponse(w, "A valid session is required", http.StatusUnauthorized)
		return
	}

	enrollment, err := h.totp.Enroll(ctx, sess.UserID)
	if err != nil {
		logger.WithCorrelationID(ctx, h.logger).
			WithError(err).
			Error("TOTP enrollment failed")
		h.writeErrorResponse(w, internalServerError, http.StatusInternalServerError)
		return
	}

	h.writeJSONResponse(w, enrollment)
}

// RecoverTOTP consumes a single-use recovery code, letting a user who lost
// their authenticator through the 2FA gate once.
func (h *AuthHandler) RecoverTOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess := middleware.SessionFromContext(ctx)
	if sess == nil {
		h.writeErrorResponse(w, "A valid session is required", http.StatusUnauthorized)
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	if err := h.totp.VerifyRecoveryCode(ctx, sess.UserID, req.Code); err != nil {
		if errors.Is(err, totp.ErrInvalidCode) {
			h.writeErrorResponse(w, "Invalid recovery code", http.StatusForbidden)
			return
		}
		logger.WithCorrelationID(ctx, h.logger).
			WithError(err).
			Error("Recovery code verification failed")
		h.writeErrorResponse(w, internalServerError, http.StatusInternalServerError)
		return
	}

	h.writeJSONResponse(w, map[string]string{"message": "recovery code accepted"})
}

// cacheSession writes the session through to the store with a TTL matching
// its remaining validity. The cache is advisory, so failures only warn.
func (h *AuthHandler) cacheSession(ctx context.Context, sess *models.Session) {
	ttl := time.Until(time.Unix(sess.ExpiresAt, 0))
	if ttl <= 0 {
		return
	}

	if err := h.store.StoreSession(ctx, sess.UserID, sess, ttl); err != nil {
		logger.WithCorrelationID(ctx, h.logger).
			WithError(err).
			Warn("Failed to cache session")
	}
}

// writeAuthError maps provider errors onto HTTP statuses.
func (h *AuthHandler) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	logger.WithCorrelationID(r.Context(), h.logger).
		WithError(err).
		Warn("Auth provider call failed")

	var authErr *models.AuthError
	if errors.As(err, &authErr) {
		switch authErr.Kind {
		case models.AuthExpired, models.AuthInvalid:
			h.writeErrorResponse(w, "Invalid or expired credentials", http.StatusUnauthorized)
		default:
			h.writeErrorResponse(w, "Authentication failed", http.StatusUnauthorized)
		}
		return
	}

	h.writeErrorResponse(w, internalServerError, http.StatusInternalServerError)
}

// writeJSONResponse writes a 200 JSON response.
func (h *AuthHandler) writeJSONResponse(w http.ResponseWriter, payload interface{}) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.WithError(err).Error("Failed to encode response")
	}
}

// writeErrorResponse writes a JSON error response.
func (h *AuthHandler) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(statusCode)
	response := map[string]string{"error": message}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.WithError(err).Error("Failed to encode error response")
	}
}
