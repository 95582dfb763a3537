// Package services – PredictionService
//
// This file implements gated invocation of paid features as an explicit saga:
// check sufficiency, debit, then invoke, strictly in that order, single
// attempt, no automatic retry. The paid call can only ever run after the
// backend confirmed the debit, so a user never receives a paid result without
// having paid for it.
//
// The inverse gap is real and deliberate: if the paid call fails after a
// confirmed debit, the tokens stay spent. There is no compensating refund
// transaction; the state machine keeps a slot for one (a future edge out of
// StateInvokeFailed) without pretending it exists today.
package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/google/uuid"

	"github.com/agrovet/go-vetcare-client/internal/api"
	"github.com/agrovet/go-vetcare-client/internal/domain"
)

// InvocationState is one step of the gated-invocation saga.
type InvocationState int

const (
	StateIdle InvocationState = iota
	StateChecking
	StateInsufficient
	StateDebiting
	StateDebitFailed
	StateInvoking
	StateInvokeFailed
	StateDone
)

var stateNames = map[InvocationState]string{
	StateIdle:         "idle",
	StateChecking:     "checking",
	StateInsufficient: "insufficient",
	StateDebiting:     "debiting",
	StateDebitFailed:  "debit_failed",
	StateInvoking:     "invoking",
	StateInvokeFailed: "invoke_failed",
	StateDone:         "done",
}

// String returns the lowercase name of the state.
func (s InvocationState) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Ledger is the token-ledger surface required by the gate. TokenService
// implements it.
type Ledger interface {
	FeatureCost(f domain.Feature) (int, error)
	CheckSufficiency(ctx context.Context, required int) Sufficiency
	Debit(ctx context.Context, amount int, reason string) (DebitOutcome, error)
}

// Predictor is the paid remote operation behind the gate.
type Predictor interface {
	Predict(ctx context.Context, req api.PredictionRequest) (api.PredictionResult, error)
}

// Invocation is the record of one pass through the saga. Trail keeps every
// state entered, in order, so partial failures are inspectable after the
// fact.
type Invocation struct {
	ID      string
	Feature domain.Feature
	State   InvocationState
	Trail   []InvocationState

	// NewBalance is the backend-confirmed balance after the debit; valid
	// once the saga has passed StateDebiting successfully.
	NewBalance int

	// Result is set only in StateDone.
	Result *api.PredictionResult

	// Message carries the surfaced failure or refusal text, verbatim where
	// the backend provided one.
	Message string
}

func (inv *Invocation) transition(to InvocationState) {
	inv.State = to
	inv.Trail = append(inv.Trail, to)
}

// PredictionService wraps a paid remote operation with the token gate.
type PredictionService struct {
	Ledger Ledger
	API    Predictor
}

// NewPredictionService constructs the gate over a ledger and the paid
// endpoint.
func NewPredictionService(l Ledger, p Predictor) *PredictionService {
	return &PredictionService{Ledger: l, API: p}
}

// Invoke runs the saga for one feature invocation. The returned Invocation is
// always non-nil and records how far the attempt got; the error mirrors the
// terminal failure state, if any.
func (s *PredictionService) Invoke(ctx context.Context, feature domain.Feature, payload map[string]any) (*Invocation, error) {
	tr := otel.Tracer("services/PredictionService")
	ctx, span := tr.Start(ctx, "Invoke",
		trace.WithAttributes(attribute.String("feature", string(feature))),
	)
	defer span.End()

	inv := &Invocation{
		ID:      uuid.NewString(),
		Feature: feature,
		State:   StateIdle,
		Trail:   []InvocationState{StateIdle},
	}

	cost, err := s.Ledger.FeatureCost(feature)
	if err != nil {
		inv.Message = err.Error()
		return inv, err
	}

	// Step 1: sufficiency check. Insufficient means stop — no debit, no
	// invocation.
	inv.transition(StateChecking)
	suf := s.Ledger.CheckSufficiency(ctx, cost)
	if !suf.Sufficient {
		inv.transition(StateInsufficient)
		inv.Message = suf.Message
		return inv, fmt.Errorf("%w: %s", ErrInsufficientTokens, suf.Message)
	}

	// Step 2: debit. The paid call below is unreachable unless this step
	// reported success.
	inv.transition(StateDebiting)
	debit, err := s.Ledger.Debit(ctx, cost, string(feature))
	if err != nil {
		inv.transition(StateDebitFailed)
		inv.Message = err.Error()
		return inv, err
	}
	if !debit.Success {
		inv.transition(StateDebitFailed)
		inv.Message = debit.Message
		return inv, fmt.Errorf("%w: %s", ErrDebitRefused, debit.Message)
	}
	inv.NewBalance = debit.NewBalance

	// Step 3: the paid operation itself.
	inv.transition(StateInvoking)
	result, err := s.API.Predict(ctx, api.PredictionRequest{Feature: feature, Payload: payload})
	if err != nil {
		// The debit stands; there is no compensating transaction.
		inv.transition(StateInvokeFailed)
		inv.Message = err.Error()
		log.Warn().
			Str("invocation_id", inv.ID).
			Str("feature", string(feature)).
			Int("tokens_spent", cost).
			Err(err).
			Msg("paid invocation failed after confirmed debit")
		return inv, err
	}

	inv.transition(StateDone)
	inv.Result = &result
	return inv, nil
}
