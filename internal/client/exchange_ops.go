package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/theceo1/trustbank-gateway/internal/models"
)

// GetBalances returns the wallet balances for a user.
func (c *ExchangeClient) GetBalances(ctx context.Context, userID string) ([]models.WalletBalance, error) {
	data, err := c.Request(ctx, http.MethodGet, fmt.Sprintf("/users/%s/wallets", userID), nil, nil)
	if err != nil {
		return nil, err
	}

	var balances []models.WalletBalance
	if err := json.Unmarshal(data, &balances); err != nil {
		return nil, fmt.Errorf("failed to decode wallet balances: %w", err)
	}
	return balances, nil
}

// Withdraw initiates an on-chain withdrawal for a user.
func (c *ExchangeClient) Withdraw(
	ctx context.Context,
	userID string,
	req *models.WithdrawRequest,
) (*models.TransactionReceipt, error) {
	return c.mutate(ctx, fmt.Sprintf("/users/%s/withdraws", userID), req)
}

// Transfer moves funds between two platform users.
func (c *ExchangeClient) Transfer(
	ctx context.Context,
	userID string,
	req *models.TransferRequest,
) (*models.TransactionReceipt, error) {
	return c.mutate(ctx, fmt.Sprintf("/users/%s/transfers", userID), req)
}

// Swap converts between two currencies at the quoted rate.
func (c *ExchangeClient) Swap(
	ctx context.Context,
	userID string,
	req *models.SwapRequest,
) (*models.TransactionReceipt, error) {
	return c.mutate(ctx, fmt.Sprintf("/users/%s/swap_transactions", userID), req)
}

// CreateP2POrder places a peer-to-peer order against a published offer.
func (c *ExchangeClient) CreateP2POrder(
	ctx context.Context,
	userID string,
	req *models.P2POrderRequest,
) (*models.TransactionReceipt, error) {
	return c.mutate(ctx, fmt.Sprintf("/users/%s/p2p/orders", userID), req)
}

// CancelP2POrder cancels an open peer-to-peer order.
func (c *ExchangeClient) CancelP2POrder(
	ctx context.Context,
	userID string,
	orderID string,
) (*models.TransactionReceipt, error) {
	return c.mutate(ctx, fmt.Sprintf("/users/%s/p2p/orders/%s/cancel", userID, orderID), nil)
}

// mutate posts a financial mutation and decodes the common receipt shape.
func (c *ExchangeClient) mutate(
	ctx context.Context,
	endpoint string,
	body interface{},
) (*models.TransactionReceipt, error) {
	data, err := c.Request(ctx, http.MethodPost, endpoint, body, nil)
	if err != nil {
		return nil, err
	}

	var receipt models.TransactionReceipt
	if err := json.Unmarshal(data, &receipt); err != nil {
		return nil, fmt.Errorf("failed to decode transaction receipt: %w", err)
	}
	return &receipt, nil
}
