// Package api – messaging endpoints.
package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/agrovet/go-vetcare-client/internal/domain"
)

// SendMessageRequest submits one chat message. The sender is implied by the
// bearer credential; only the receiver has to be named.
type SendMessageRequest struct {
	ReceiverID   string      `json:"receiverId"`
	ReceiverType domain.Role `json:"receiverType"`
	Content      string      `json:"content"`
}

// Conversations fetches the caller's conversation list, most recent first as
// ordered by the backend. Unread counts and last-message summaries come from
// this response and are never recomputed locally.
func (c *Client) Conversations(ctx context.Context) ([]domain.Conversation, error) {
	var resp struct {
		Conversations []domain.Conversation `json:"conversations"`
	}
	if err := c.do(ctx, "conversations", http.MethodGet, "/api/messages/conversations", "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// ConversationMessages fetches the full ordered history for the (self,
// participant) pair, oldest first.
func (c *Client) ConversationMessages(ctx context.Context, participantID string, participantType domain.Role) ([]domain.Message, error) {
	if participantID == "" {
		return nil, fmt.Errorf("conversation_messages: empty participant id")
	}
	path := fmt.Sprintf("/api/messages/conversation/%s/%s",
		url.PathEscape(participantID), url.PathEscape(string(participantType)))
	var resp struct {
		Messages []domain.Message `json:"messages"`
	}
	if err := c.do(ctx, "conversation_messages", http.MethodGet, path, "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// SendMessage persists one message and returns the server-confirmed record.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (domain.Message, error) {
	var msg domain.Message
	if err := c.do(ctx, "send_message", http.MethodPost, "/api/messages", "", req, &msg); err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}
