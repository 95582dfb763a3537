// Package api – token ledger endpoints.
//
// The remote collaborator is the sole owner of the balance. The client never
// performs arithmetic on it: TokenBalance reads the authoritative value and
// DeductTokens relays whatever the backend confirmed.
package api

import (
	"context"
	"fmt"
	"net/http"
)

// DeductRequest asks the backend to debit tokens for a paid feature. The
// IdempotencyKey is generated per debit attempt by the service layer so a
// duplicated request (network retry, double tap) cannot double-charge; it is
// sent both in the body and as the Idempotency-Key header.
type DeductRequest struct {
	UserID         string `json:"userId"`
	Amount         int    `json:"amount"`
	FeatureUsed    string `json:"featureUsed"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// DeductResult relays the backend's verdict on a debit. NewBalance is only
// meaningful when Success is true.
type DeductResult struct {
	Success    bool   `json:"success"`
	NewBalance int    `json:"newBalance"`
	Message    string `json:"message"`
}

// TokenBalance fetches the current authoritative balance. Every call hits the
// backend; the value is never cached across calls.
func (c *Client) TokenBalance(ctx context.Context) (int, error) {
	var resp struct {
		Success      bool   `json:"success"`
		TokenBalance int    `json:"tokenBalance"`
		Message      string `json:"message"`
	}
	if err := c.do(ctx, "token_balance", http.MethodGet, "/api/users/token-balance", "", nil, &resp); err != nil {
		return 0, err
	}
	if !resp.Success {
		return 0, &RemoteError{Status: http.StatusOK, Message: resp.Message}
	}
	if resp.TokenBalance < 0 {
		return 0, fmt.Errorf("token_balance: backend reported negative balance %d", resp.TokenBalance)
	}
	return resp.TokenBalance, nil
}

// DeductTokens submits a single debit request. A refused debit (insufficient
// balance, business rule) is returned as a DeductResult with Success=false
// and the backend's message verbatim, not as an error; errors are reserved
// for auth and transport failures.
func (c *Client) DeductTokens(ctx context.Context, req DeductRequest) (DeductResult, error) {
	var resp DeductResult
	err := c.do(ctx, "deduct_tokens", http.MethodPost, "/api/users/deduct-tokens", req.IdempotencyKey, req, &resp)
	if err != nil {
		if msg, ok := RemoteMessage(err); ok {
			// The backend refused the debit with a business-rule message
			// (e.g. insufficient balance on a 400). Relay the refusal.
			return DeductResult{Success: false, Message: msg}, nil
		}
		return DeductResult{}, err
	}
	return resp, nil
}
