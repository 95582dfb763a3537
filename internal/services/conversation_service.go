// Package services – ConversationService
//
// This file implements the conversation synchronization engine. Consistency
// is achieved purely by re-fetch-after-mutation: the conversation list is a
// read-through cache invalidated on screen focus, and each open chat holds an
// ordered message list that is only ever replaced wholesale by an
// authoritative fetch.
//
// Sends are optimistic. A pending message (client UUID) is appended and the
// draft cleared before the network round-trip; success reconciles by
// replacement, failure rolls back by removing the pending entry and restoring
// the draft. Two overlapping sends run independent cycles — both messages end
// up persisted exactly once, but their relative order is whatever the last
// reconciliation fetch reported.
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agrovet/go-vetcare-client/internal/api"
	"github.com/agrovet/go-vetcare-client/internal/domain"
	"github.com/agrovet/go-vetcare-client/internal/sysutil"
)

// MessagingAPI is the remote surface required by the engine.
type MessagingAPI interface {
	// Conversations fetches the caller's conversation list.
	Conversations(ctx context.Context) ([]domain.Conversation, error)

	// ConversationMessages fetches the full ordered history for the
	// (self, participant) pair.
	ConversationMessages(ctx context.Context, participantID string, participantType domain.Role) ([]domain.Message, error)

	// SendMessage persists one message and returns the confirmed record.
	SendMessage(ctx context.Context, req api.SendMessageRequest) (domain.Message, error)
}

// ConversationService owns the conversation-list cache and opens chat
// sessions. Safe for concurrent use.
type ConversationService struct {
	API  MessagingAPI
	Self domain.Role // sender type stamped onto optimistic inserts

	mu            sync.Mutex
	conversations []domain.Conversation
	fresh         bool
}

// NewConversationService constructs the engine for a user of the given role.
func NewConversationService(m MessagingAPI, self domain.Role) *ConversationService {
	return &ConversationService{API: m, Self: self}
}

// Conversations returns the cached list, fetching it first if the cache is
// stale. Unread counts and last-message summaries are whatever the backend
// reported; nothing is computed locally.
func (s *ConversationService) Conversations(ctx context.Context) ([]domain.Conversation, error) {
	s.mu.Lock()
	if s.fresh {
		out := append([]domain.Conversation(nil), s.conversations...)
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// Refresh fetches the authoritative conversation list and replaces the cache
// wholesale.
func (s *ConversationService) Refresh(ctx context.Context) ([]domain.Conversation, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "Refresh")
	defer span.End()

	list, err := s.API.Conversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh conversations: %w", err)
	}
	s.mu.Lock()
	s.conversations = list
	s.fresh = true
	s.mu.Unlock()
	return append([]domain.Conversation(nil), list...), nil
}

// Invalidate marks the cached list stale. Screens call this on focus so the
// next read re-fetches instead of trusting a previous render cycle.
func (s *ConversationService) Invalidate() {
	s.mu.Lock()
	s.fresh = false
	s.mu.Unlock()
}

// StartConversation synthesizes a client-side conversation for a participant
// the user has never messaged. It has no server identity yet; one appears
// after the first message round-trips and the list is refreshed.
func (s *ConversationService) StartConversation(p domain.Participant) domain.Conversation {
	return domain.Conversation{Participant: p}
}

// Open resolves the counterpart's identity, fetches the full message history,
// and returns a live chat session. The caller must not enter the chat view
// when Open fails.
func (s *ConversationService) Open(ctx context.Context, conv domain.Conversation) (*ChatSession, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "Open",
		trace.WithAttributes(attribute.String("participant.id", conv.Participant.ID)),
	)
	defer span.End()

	if !conv.Participant.Resolved() {
		return nil, fmt.Errorf("open conversation: %w", ErrParticipantUnresolved)
	}

	history, err := s.API.ConversationMessages(ctx, conv.Participant.ID, conv.Participant.Type)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	return &ChatSession{
		svc:         s,
		participant: conv.Participant,
		messages:    history,
	}, nil
}

// ChatSession is one open conversation. The message list renders oldest-first
// and is only mutated under the session lock; once Close is called, late
// network callbacks become no-ops instead of mutating a dead screen.
type ChatSession struct {
	svc         *ConversationService
	participant domain.Participant

	mu       sync.Mutex
	messages []domain.Message
	draft    string
	closed   bool
}

// Participant returns the counterpart of this conversation.
func (cs *ChatSession) Participant() domain.Participant { return cs.participant }

// Title returns the display name for the chat header.
func (cs *ChatSession) Title() string {
	return sysutil.FirstNonEmpty(
		strings.TrimSpace(cs.participant.Name),
		titleCaser.String(string(cs.participant.Type)),
	)
}

// Messages returns a copy of the current ordered message list.
func (cs *ChatSession) Messages() []domain.Message {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return append([]domain.Message(nil), cs.messages...)
}

// Draft returns the current input text.
func (cs *ChatSession) Draft() string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.draft
}

// SetDraft replaces the input text.
func (cs *ChatSession) SetDraft(text string) {
	cs.mu.Lock()
	cs.draft = text
	cs.mu.Unlock()
}

// Close detaches the session from its screen. Reconciliations and rollbacks
// that resolve after Close leave the session untouched.
func (cs *ChatSession) Close() {
	cs.mu.Lock()
	cs.closed = true
	cs.mu.Unlock()
}

// Closed reports whether the session has been detached.
func (cs *ChatSession) Closed() bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.closed
}

// Send runs one optimistic send cycle:
//
//  1. reject empty/whitespace content before any network call,
//  2. append a pending message and clear the draft,
//  3. submit to the backend,
//  4. on success replace the list with the authoritative history (the
//     pending entry is implicitly discarded) and refresh the conversation
//     list,
//  5. on failure remove the pending entry by id and restore the draft.
//
// Concurrent Sends are independent cycles with no mutual exclusion between
// their network hops; ordering between two in-flight sends is not guaranteed.
func (cs *ChatSession) Send(ctx context.Context, content string) error {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(attribute.String("participant.id", cs.participant.ID)),
	)
	defer span.End()

	submitted := content
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyMessage
	}

	pending := domain.NewPendingMessage(cs.svc.Self, content)

	cs.mu.Lock()
	if cs.closed {
		cs.mu.Unlock()
		return ErrConversationClosed
	}
	cs.messages = append(cs.messages, pending)
	cs.draft = ""
	cs.mu.Unlock()

	confirmed, err := cs.svc.API.SendMessage(ctx, api.SendMessageRequest{
		ReceiverID:   cs.participant.ID,
		ReceiverType: cs.participant.Type,
		Content:      content,
	})
	if err != nil {
		cs.rollback(pending.ID, submitted)
		return fmt.Errorf("send message: %w", err)
	}

	cs.reconcile(ctx, pending.ID, confirmed)
	return nil
}

// rollback removes the pending message and restores the draft so the user
// can retry. No-op once the session is closed.
func (cs *ChatSession) rollback(pendingID, draft string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.closed {
		return
	}
	cs.messages = removeByID(cs.messages, pendingID)
	cs.draft = draft
}

// reconcile replaces the local list with the authoritative history. If the
// re-fetch fails the confirmed record from the send response stands in for
// the pending entry, so a successful send never leaves a temp message behind.
func (cs *ChatSession) reconcile(ctx context.Context, pendingID string, confirmed domain.Message) {
	history, err := cs.svc.API.ConversationMessages(ctx, cs.participant.ID, cs.participant.Type)

	cs.mu.Lock()
	if cs.closed {
		cs.mu.Unlock()
		return
	}
	if err != nil {
		log.Warn().
			Str("participant_id", cs.participant.ID).
			Err(err).
			Msg("post-send history fetch failed; substituting confirmed message")
		cs.messages = append(removeByID(cs.messages, pendingID), confirmed)
	} else {
		cs.messages = history
	}
	cs.mu.Unlock()

	// The list screen shows lastMessage/ordering from its own fetch; mark it
	// stale and refresh best-effort.
	cs.svc.Invalidate()
	if _, err := cs.svc.Refresh(ctx); err != nil {
		log.Debug().Err(err).Msg("conversation list refresh after send failed")
	}
}

// removeByID filters one message out of an ordered list, preserving order.
func removeByID(msgs []domain.Message, id string) []domain.Message {
	out := msgs[:0]
	for _, m := range msgs {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}

// titleCaser renders role fallbacks ("farmer" → "Farmer") for chat headers.
var titleCaser = cases.Title(language.English)
