package models

import "encoding/json"

// Envelope statuses used by the upstream exchange API.
const (
	// StatusSuccess marks a successful exchange API response.
	StatusSuccess = "success"
	// StatusError marks an exchange API response whose payload signals
	// failure despite a 2xx HTTP status.
	StatusError = "error"
)

// ExchangeEnvelope is the response wrapper returned by every exchange
// endpoint: {"status": "success"|"error", "message": ..., "data": ...}.
type ExchangeEnvelope struct {
	// Status is "success" or "error".
	Status string `json:"status"`
	// Message carries the application-level error description on failure.
	Message string `json:"message,omitempty"`
	// Data is the endpoint-specific payload, decoded by the caller.
	Data json.RawMessage `json:"data,omitempty"`
}

// WalletBalance is a single currency balance in a user's exchange wallet.
type WalletBalance struct {
	Currency string `json:"currency"`
	Balance  string `json:"balance"`
	Locked   string `json:"locked"`
}

// WithdrawRequest initiates an on-chain withdrawal from a user's wallet.
type WithdrawRequest struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
	Address  string `json:"address"`
	// Narration is an optional caller-supplied note.
	Narration string `json:"narration,omitempty"`
}

// TransferRequest moves funds between two platform users.
type TransferRequest struct {
	Currency  string `json:"currency"`
	Amount    string `json:"amount"`
	Recipient string `json:"recipient"`
	Narration string `json:"narration,omitempty"`
}

// SwapRequest converts between two currencies at the quoted rate.
type SwapRequest struct {
	FromCurrency string `json:"from_currency"`
	ToCurrency   string `json:"to_currency"`
	FromAmount   string `json:"from_amount"`
	// QuotationID pins the swap to a previously issued quote.
	QuotationID string `json:"quotation_id,omitempty"`
}

// P2POrderRequest creates a peer-to-peer order against a published offer.
type P2POrderRequest struct {
	OfferID  string `json:"offer_id"`
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
	Side     string `json:"side"`
}

// TransactionReceipt is the common result shape for financial mutations.
type TransactionReceipt struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Reference string `json:"reference,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}
