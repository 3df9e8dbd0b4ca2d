package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/theceo1/trustbank-gateway/internal/client"
	"github.com/theceo1/trustbank-gateway/internal/constants"
	"github.com/theceo1/trustbank-gateway/internal/middleware"
	"github.com/theceo1/trustbank-gateway/internal/models"
	"github.com/theceo1/trustbank-gateway/pkg/logger"
)

// WalletHandler proxies wallet and trading operations to the upstream
// exchange. Every route here sits behind the session guard; the financial
// mutations additionally sit behind the 2FA tier, so by the time a request
// lands here the gate has already verified the one-time code.
type WalletHandler struct {
	exchange *client.ExchangeClient
	logger   *logrus.Logger
}

// NewWalletHandler creates the wallet endpoint handler.
func NewWalletHandler(exchange *client.ExchangeClient, logger *logrus.Logger) *WalletHandler {
	return &WalletHandler{
		exchange: exchange,
		logger:   logger,
	}
}

// RegisterRoutes registers the wallet and trading endpoints.
func (h *WalletHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/wallet/balances", h.Balances).Methods(http.MethodGet)
	r.HandleFunc("/api/wallet/withdraw", h.Withdraw).Methods(http.MethodPost)
	r.HandleFunc("/api/wallet/transfer", h.Transfer).Methods(http.MethodPost)
	r.HandleFunc("/api/swap", h.Swap).Methods(http.MethodPost)
	r.HandleFunc("/api/p2p/orders/create", h.CreateP2POrder).Methods(http.MethodPost)
	r.HandleFunc("/api/p2p/orders/cancel", h.CancelP2POrder).Methods(http.MethodPost)
}

// Balances returns the signed-in user's wallet balances.
func (h *WalletHandler) Balances(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		h.writeError(w, "A valid session is required", http.StatusUnauthorized)
		return
	}

	balances, err := h.exchange.GetBalances(r.Context(), sess.UserID)
	if err != nil {
		h.writeExchangeError(w, r, err)
		return
	}

	h.writeJSON(w, map[string]interface{}{"balances": balances})
}

// Withdraw initiates an on-chain withdrawal.
func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		h.writeError(w, "A valid session is required", http.StatusUnauthorized)
		return
	}

	var req models.WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if req.Currency == "" || req.Amount == "" || req.Address == "" {
		h.writeError(w, "currency, amount and address are required", http.StatusUnprocessableEntity)
		return
	}

	receipt, err := h.exchange.Withdraw(r.Context(), sess.UserID, &req)
	if err != nil {
		h.writeExchangeError(w, r, err)
		return
	}

	logger.WithCorrelationID(r.Context(), h.logger).WithFields(logrus.Fields{
		"user_id":  sess.UserID,
		"currency": req.Currency,
		"receipt":  receipt.ID,
	}).Info("Withdrawal initiated")

	h.writeJSON(w, receipt)
}

// Transfer moves funds to another platform user.
func (h *WalletHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		h.writeError(w, "A valid session is required", http.StatusUnauthorized)
		return
	}

	var req models.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if req.Currency == "" || req.Amount == "" || req.Recipient == "" {
		h.writeError(w, "currency, amount and recipient are required", http.StatusUnprocessableEntity)
		return
	}

	receipt, err := h.exchange.Transfer(r.Context(), sess.UserID, &req)
	if err != nil {
		h.writeExchangeError(w, r, err)
		return
	}

	h.writeJSON(w, receipt)
}

// Swap converts between two currencies.
func (h *WalletHandler) Swap(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		h.writeError(w, "A valid session is required", http.StatusUnauthorized)
		return
	}

	var req models.SwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if req.FromCurrency == "" || req.ToCurrency == "" || req.FromAmount == "" {
		h.writeError(w, "from_currency, to_currency and from_amount are required", http.StatusUnprocessableEntity)
		return
	}

	receipt, err := h.exchange.Swap(r.Context(), sess.UserID, &req)
	if err != nil {
		h.writeExchangeError(w, r, err)
		return
	}

	h.writeJSON(w, receipt)
}

// CreateP2POrder places a peer-to-peer order.
func (h *WalletHandler) CreateP2POrder(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		h.writeError(w, "A valid session is required", http.StatusUnauthorized)
		return
	}

	var req models.P2POrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if req.OfferID == "" || req.Amount == "" {
		h.writeError(w, "offer_id and amount are required", http.StatusUnprocessableEntity)
		return
	}

	receipt, err := h.exchange.CreateP2POrder(r.Context(), sess.UserID, &req)
	if err != nil {
		h.writeExchangeError(w, r, err)
		return
	}

	h.writeJSON(w, receipt)
}

// CancelP2POrder cancels an open peer-to-peer order.
func (h *WalletHandler) CancelP2POrder(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		h.writeError(w, "A valid session is required", http.StatusUnauthorized)
		return
	}

	var req struct {
		OrderID string `json:"order_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if req.OrderID == "" {
		h.writeError(w, "order_id is required", http.StatusUnprocessableEntity)
		return
	}

	receipt, err := h.exchange.CancelP2POrder(r.Context(), sess.UserID, req.OrderID)
	if err != nil {
		h.writeExchangeError(w, r, err)
		return
	}

	h.writeJSON(w, receipt)
}

// writeExchangeError maps client errors onto HTTP statuses. Breaker-open
// and timeout conditions get their own statuses so callers can distinguish
// "we refused to try" from "the exchange is failing".
func (h *WalletHandler) writeExchangeError(w http.ResponseWriter, r *http.Request, err error) {
	logger.WithCorrelationID(r.Context(), h.logger).
		WithError(err).
		WithField("path", r.URL.Path).
		Warn("Exchange call failed")

	switch {
	case errors.Is(err, models.ErrServiceUnavailable):
		h.writeError(w, "The exchange is temporarily unavailable", http.StatusServiceUnavailable)
	case errors.Is(err, models.ErrRequestTimeout):
		h.writeError(w, "The exchange did not respond in time", http.StatusGatewayTimeout)
	default:
		var upstream *models.UpstreamError
		var application *models.ApplicationError
		switch {
		case errors.As(err, &upstream) && upstream.StatusCode < http.StatusInternalServerError:
			h.writeError(w, upstream.Message, upstream.StatusCode)
		case errors.As(err, &application):
			h.writeError(w, application.Message, http.StatusUnprocessableEntity)
		default:
			h.writeError(w, "The exchange request failed", http.StatusBadGateway)
		}
	}
}

func (h *WalletHandler) writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.WithError(err).Error("Failed to encode response")
	}
}

func (h *WalletHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		h.logger.WithError(err).Error("Failed to encode error response")
	}
}
