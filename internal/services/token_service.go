// Package services – TokenService
//
// This file implements the token ledger client. The balance lives on the
// backend and only there: every read re-fetches the authoritative value, the
// sufficiency check is a pure read-then-compare, and a debit relays whatever
// the backend confirmed. The client performs no arithmetic on the balance.
//
// Each debit attempt carries a freshly generated idempotency key, so a
// duplicated request (transport retry, double tap racing the first response)
// cannot double-charge even though the client itself never retries.
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/agrovet/go-vetcare-client/internal/api"
	"github.com/agrovet/go-vetcare-client/internal/domain"
)

// Wallet is the ledger surface of the API client required by TokenService.
type Wallet interface {
	// TokenBalance reads the current authoritative balance.
	TokenBalance(ctx context.Context) (int, error)

	// DeductTokens submits one debit request; the backend is the sole
	// arbiter of whether it succeeds.
	DeductTokens(ctx context.Context, req api.DeductRequest) (api.DeductResult, error)
}

// Sufficiency is the result of a balance check. It is fail-closed: when the
// balance cannot be read, Sufficient is false and Message carries the reason.
type Sufficiency struct {
	Sufficient bool
	Balance    int
	Message    string
}

// DebitOutcome relays a confirmed or refused debit. NewBalance is only
// meaningful when Success is true, and it is always the backend's figure.
type DebitOutcome struct {
	Success    bool
	NewBalance int
	Message    string
	// Key is the idempotency key the attempt was submitted under.
	Key string
}

// TokenService gates paid features on the per-user token ledger.
type TokenService struct {
	API    Wallet
	UserID string
	Costs  domain.FeatureCosts

	// newKey generates debit idempotency keys; overridable in tests.
	newKey func() string
}

// NewTokenService constructs a TokenService with the default cost table and
// UUID idempotency keys.
func NewTokenService(w Wallet, userID string) *TokenService {
	return &TokenService{
		API:    w,
		UserID: userID,
		Costs:  domain.DefaultFeatureCosts(),
		newKey: uuid.NewString,
	}
}

// Balance re-fetches the authoritative balance. No caching across calls.
func (s *TokenService) Balance(ctx context.Context) (int, error) {
	tr := otel.Tracer("services/TokenService")
	ctx, span := tr.Start(ctx, "Balance",
		trace.WithAttributes(attribute.String("user.id", s.UserID)),
	)
	defer span.End()

	return s.API.TokenBalance(ctx)
}

// FeatureCost resolves the configured token cost of a feature.
func (s *TokenService) FeatureCost(f domain.Feature) (int, error) {
	cost, ok := s.Costs.Cost(f)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownFeature, f)
	}
	return cost, nil
}

// CheckSufficiency reads the balance and compares it against required. It
// never mutates anything; a failed read reports insufficient with the
// underlying error surfaced.
func (s *TokenService) CheckSufficiency(ctx context.Context, required int) Sufficiency {
	tr := otel.Tracer("services/TokenService")
	ctx, span := tr.Start(ctx, "CheckSufficiency",
		trace.WithAttributes(attribute.Int("tokens.required", required)),
	)
	defer span.End()

	balance, err := s.API.TokenBalance(ctx)
	if err != nil {
		return Sufficiency{Sufficient: false, Message: err.Error()}
	}
	if balance >= required {
		return Sufficiency{Sufficient: true, Balance: balance}
	}
	return Sufficiency{
		Sufficient: false,
		Balance:    balance,
		Message:    fmt.Sprintf("requires %d token(s), balance is %d", required, balance),
	}
}

// Debit submits a single debit and relays the backend's verdict. The client
// never retries and never computes the new balance itself.
func (s *TokenService) Debit(ctx context.Context, amount int, reason string) (DebitOutcome, error) {
	tr := otel.Tracer("services/TokenService")
	ctx, span := tr.Start(ctx, "Debit",
		trace.WithAttributes(
			attribute.Int("tokens.amount", amount),
			attribute.String("tokens.reason", reason),
		),
	)
	defer span.End()

	if amount <= 0 {
		return DebitOutcome{}, fmt.Errorf("debit amount must be positive, got %d", amount)
	}

	key := s.newKey()
	res, err := s.API.DeductTokens(ctx, api.DeductRequest{
		UserID:         s.UserID,
		Amount:         amount,
		FeatureUsed:    reason,
		IdempotencyKey: key,
	})
	if err != nil {
		return DebitOutcome{Key: key}, err
	}
	return DebitOutcome{
		Success:    res.Success,
		NewBalance: res.NewBalance,
		Message:    res.Message,
		Key:        key,
	}, nil
}
