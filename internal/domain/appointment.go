// Package domain – appointment lifecycle.
//
// This file defines the Appointment entity and its status state machine. The
// backend is the actual enforcer of transition legality; the table here only
// decides which actions the client may expose for a given status, so an
// illegal transition is never offered in the first place.
package domain

import "time"

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusAccepted  AppointmentStatus = "accepted"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusRejected  AppointmentStatus = "rejected"
)

// transitions is the legal edge set of the status machine. Creation always
// enters at pending; completed, cancelled, and rejected are terminal.
var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:  {StatusAccepted, StatusRejected, StatusCancelled},
	StatusAccepted: {StatusCompleted, StatusCancelled},
}

// Valid reports whether the status is a known lifecycle state.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusCompleted, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted out of s.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRejected
}

// CanTransition reports whether s → to is a legal edge.
func (s AppointmentStatus) CanTransition(to AppointmentStatus) bool {
	for _, t := range transitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// AvailableActions lists the target statuses a given role may offer for an
// appointment currently in status s. Accept, complete, and reject belong to
// the vet; cancellation may be requested by either role on its own
// appointments.
func AvailableActions(s AppointmentStatus, role Role) []AppointmentStatus {
	out := make([]AppointmentStatus, 0, 3)
	for _, t := range transitions[s] {
		if t == StatusCancelled || role == RoleVet {
			out = append(out, t)
		}
	}
	return out
}

// Appointment is a scheduled consultation between a farmer and a vet. The
// backend owns the record; the client never mutates Status locally and only
// renders whatever the last fetch or transition response reported.
type Appointment struct {
	ID       string            `json:"_id"`
	Status   AppointmentStatus `json:"status"`
	Date     string            `json:"date"` // yyyy-mm-dd, backend format
	Time     string            `json:"time"` // HH:MM, backend format
	Farmer   Participant       `json:"farmer"`
	Vet      Participant       `json:"vet"`
	Animal   string            `json:"animal,omitempty"`
	Reason   string            `json:"reason,omitempty"`
	Notes    string            `json:"notes,omitempty"`
	Created  time.Time         `json:"createdAt"`
	Modified time.Time         `json:"updatedAt"`
}

// AppointmentDraft is the client-supplied payload for creating an
// appointment. New appointments always enter the lifecycle at pending.
type AppointmentDraft struct {
	VetID    string `json:"vetId"`
	FarmerID string `json:"farmerId"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Animal   string `json:"animal,omitempty"`
	Reason   string `json:"reason,omitempty"`
}
