// Package domain defines the core client-side types shared by the API
// boundary and the service layer: participants, conversations, messages,
// appointments, and the token ledger values.
//
// All of these entities are owned by the remote backend. What the client
// holds are short-lived caches; nothing in this package is a source of truth
// beyond the current render cycle.
package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies which side of the farmer–vet relationship an account is on.
type Role string

const (
	RoleFarmer Role = "farmer"
	RoleVet    Role = "vet"
)

// Valid reports whether the role is one of the two known values.
func (r Role) Valid() bool { return r == RoleFarmer || r == RoleVet }

// Other returns the counterpart role.
func (r Role) Other() Role {
	if r == RoleFarmer {
		return RoleVet
	}
	return RoleFarmer
}

// Participant is the other party of a conversation or appointment, normalized
// at the JSON boundary. The backend inconsistently exposes the identifier as
// "_id" or "id"; UnmarshalJSON folds both into the single canonical ID field
// so no other layer ever has to branch on the raw shape.
//
// A participant whose identity cannot be resolved (neither field present) is
// represented by an empty ID; callers must treat that as unresolvable.
type Participant struct {
	ID        string `json:"id"`
	Type      Role   `json:"type"`
	Name      string `json:"name"`
	Specialty string `json:"specialty,omitempty"` // vets only
	Location  string `json:"location,omitempty"`  // farmers only
	Avatar    string `json:"avatar,omitempty"`
}

// participantWire mirrors the loose backend shape, including both identifier
// spellings and the legacy userType field.
type participantWire struct {
	UnderscoreID string `json:"_id"`
	ID           string `json:"id"`
	Type         Role   `json:"type"`
	UserType     Role   `json:"userType"`
	Name         string `json:"name"`
	FullName     string `json:"fullName"`
	Specialty    string `json:"specialty"`
	Location     string `json:"location"`
	Avatar       string `json:"avatar"`
}

// UnmarshalJSON normalizes the identity and naming fields once, at the edge.
func (p *Participant) UnmarshalJSON(data []byte) error {
	var w participantWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	id := w.UnderscoreID
	if id == "" {
		id = w.ID
	}
	typ := w.Type
	if typ == "" {
		typ = w.UserType
	}
	name := w.Name
	if name == "" {
		name = w.FullName
	}
	*p = Participant{
		ID:        strings.TrimSpace(id),
		Type:      typ,
		Name:      strings.TrimSpace(name),
		Specialty: w.Specialty,
		Location:  w.Location,
		Avatar:    w.Avatar,
	}
	return nil
}

// Resolved reports whether the participant carries a usable identity.
func (p Participant) Resolved() bool { return p.ID != "" }

// MessageSummary is the last-message preview attached to a conversation row.
// It is never computed locally; it is whatever the most recent list fetch
// reported.
type MessageSummary struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Conversation is one farmer–vet thread. ID may be empty for a thread the
// client synthesized locally for a previously-unmessaged participant; such a
// thread acquires a server identity only after the first message round-trips.
type Conversation struct {
	ID          string         `json:"conversationId"`
	Participant Participant    `json:"participant"`
	LastMessage MessageSummary `json:"lastMessage"`
	UnreadCount int            `json:"unreadCount"`
}

// Synthesized reports whether this conversation exists only on the client.
func (c Conversation) Synthesized() bool { return c.ID == "" }

// Message is a single chat utterance. A message is either confirmed (server
// identity, Temp=false) or pending (client-generated identity, Temp=true).
// Pending messages exist only between an optimistic insert and its
// reconciliation or rollback; they never survive an authoritative re-fetch.
type Message struct {
	ID         string    `json:"_id"`
	Temp       bool      `json:"-"`
	SenderType Role      `json:"senderType"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewPendingMessage builds the optimistic placeholder appended to a chat
// before the backend has confirmed the send. The identity is a fresh UUID so
// two rapid sends can never collide, and it is valid only until the next
// reconciliation.
func NewPendingMessage(sender Role, content string) Message {
	return Message{
		ID:         uuid.NewString(),
		Temp:       true,
		SenderType: sender,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
}

// Feature identifies a paid capability gated by the token ledger.
type Feature string

// ProMode is the paid disease-prediction feature.
const ProMode Feature = "PRO_MODE"

// FeatureCosts is the static feature → token cost table. It is loaded once at
// process start and immutable afterwards.
type FeatureCosts map[Feature]int

// DefaultFeatureCosts returns the compiled-in cost table.
func DefaultFeatureCosts() FeatureCosts {
	return FeatureCosts{ProMode: 1}
}

// Cost returns the token cost of a feature, or ok=false for unknown features.
func (fc FeatureCosts) Cost(f Feature) (int, bool) {
	c, ok := fc[f]
	return c, ok
}
