// Package services implements the consistency core of the client: the token
// ledger, gated feature invocation, conversation synchronization, and the
// appointment lifecycle. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer; turning
// them into user-facing copy belongs to whichever screen invoked the
// operation.
package services

import "errors"

var (
	// ErrEmptyMessage is returned when a send is attempted with empty or
	// whitespace-only content. The rejection happens before any network call.
	ErrEmptyMessage = errors.New("message content is empty")

	// ErrConversationClosed is returned when a mutation reaches a chat
	// session whose owning screen has already gone away.
	ErrConversationClosed = errors.New("conversation session closed")

	// ErrParticipantUnresolved indicates a conversation whose counterpart
	// carries no usable identity; the chat view must not be entered.
	ErrParticipantUnresolved = errors.New("participant identity unresolved")

	// ErrUnknownFeature is returned when no cost is configured for the
	// requested paid feature.
	ErrUnknownFeature = errors.New("unknown paid feature")

	// ErrInsufficientTokens indicates the balance check fell short; nothing
	// was debited and nothing was invoked.
	ErrInsufficientTokens = errors.New("insufficient token balance")

	// ErrDebitRefused indicates the backend declined the debit. The verbatim
	// refusal message travels alongside in the invocation record.
	ErrDebitRefused = errors.New("debit refused by backend")

	// ErrTerminalStatus is returned when a transition is attempted out of
	// completed, cancelled, or rejected.
	ErrTerminalStatus = errors.New("appointment status is terminal")

	// ErrIllegalTransition is returned for a transition edge the lifecycle
	// does not define. The client refuses to even submit these.
	ErrIllegalTransition = errors.New("illegal appointment status transition")
)
