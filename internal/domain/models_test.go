package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParticipantUnmarshal_NormalizesIdentity(t *testing.T) {
	cases := map[string]struct {
		in     string
		wantID string
		wantOK bool
	}{
		"underscore id": {`{"_id":"v1","userType":"vet","fullName":"Dr. A"}`, "v1", true},
		"plain id":      {`{"id":"f2","type":"farmer","name":"B"}`, "f2", true},
		"both prefers underscore": {
			`{"_id":"canonical","id":"legacy","type":"vet"}`, "canonical", true,
		},
		"neither": {`{"name":"ghost"}`, "", false},
		"whitespace only id": {
			`{"id":"   "}`, "", false,
		},
	}
	for name, tc := range cases {
		var p Participant
		if err := json.Unmarshal([]byte(tc.in), &p); err != nil {
			t.Fatalf("%s: unmarshal: %v", name, err)
		}
		if p.ID != tc.wantID {
			t.Errorf("%s: ID = %q; want %q", name, p.ID, tc.wantID)
		}
		if p.Resolved() != tc.wantOK {
			t.Errorf("%s: Resolved() = %v; want %v", name, p.Resolved(), tc.wantOK)
		}
	}
}

func TestParticipantUnmarshal_NameAndTypeFallbacks(t *testing.T) {
	var p Participant
	raw := `{"_id":"v9","userType":"vet","fullName":"Dr. Carol","specialty":"bovine"}`
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Type != RoleVet {
		t.Fatalf("Type = %q; want vet", p.Type)
	}
	if p.Name != "Dr. Carol" {
		t.Fatalf("Name = %q", p.Name)
	}
	if p.Specialty != "bovine" {
		t.Fatalf("Specialty = %q", p.Specialty)
	}
}

func TestRole_OtherAndValid(t *testing.T) {
	if RoleFarmer.Other() != RoleVet || RoleVet.Other() != RoleFarmer {
		t.Fatal("Other() should swap roles")
	}
	if !RoleFarmer.Valid() || !RoleVet.Valid() {
		t.Fatal("known roles must be valid")
	}
	if Role("admin").Valid() {
		t.Fatal("unknown role must be invalid")
	}
}

func TestNewPendingMessage(t *testing.T) {
	m := NewPendingMessage(RoleFarmer, "hello")
	if !m.Temp {
		t.Fatal("pending message must be marked Temp")
	}
	if m.ID == "" {
		t.Fatal("pending message needs a client-local id")
	}
	if m.SenderType != RoleFarmer || m.Content != "hello" {
		t.Fatalf("unexpected message: %+v", m)
	}
	if m.CreatedAt.IsZero() || time.Since(m.CreatedAt) > time.Minute {
		t.Fatalf("CreatedAt not set: %v", m.CreatedAt)
	}

	// Two rapid pending messages must never share an identity.
	if NewPendingMessage(RoleFarmer, "a").ID == NewPendingMessage(RoleFarmer, "b").ID {
		t.Fatal("pending ids collided")
	}
}

func TestConversation_Synthesized(t *testing.T) {
	if !(Conversation{}).Synthesized() {
		t.Fatal("empty-id conversation is synthesized")
	}
	if (Conversation{ID: "c1"}).Synthesized() {
		t.Fatal("server-backed conversation is not synthesized")
	}
}

func TestFeatureCosts(t *testing.T) {
	fc := DefaultFeatureCosts()
	if c, ok := fc.Cost(ProMode); !ok || c != 1 {
		t.Fatalf("ProMode cost = %d/%v; want 1/true", c, ok)
	}
	if _, ok := fc.Cost(Feature("NOPE")); ok {
		t.Fatal("unknown feature must not resolve")
	}
}
