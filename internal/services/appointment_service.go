// Package services – AppointmentService
//
// This file implements the appointment lifecycle shared by both roles. The
// backend enforces transition legality; the client's job is to never offer an
// edge the lifecycle does not define, to re-fetch after every mutation, and
// to keep the destructive delete fallback explicit instead of silently
// rewriting a cancel into a permanent removal.
package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/agrovet/go-vetcare-client/internal/api"
	"github.com/agrovet/go-vetcare-client/internal/domain"
)

// AppointmentAPI is the remote surface required by the lifecycle.
type AppointmentAPI interface {
	Appointments(ctx context.Context, role domain.Role) ([]domain.Appointment, error)
	CreateAppointment(ctx context.Context, draft domain.AppointmentDraft) (domain.Appointment, error)
	UpdateAppointment(ctx context.Context, id string, upd api.AppointmentUpdate) (domain.Appointment, error)
	DeleteAppointment(ctx context.Context, id string) error
}

// CancelOptions controls the failure behavior of Cancel. RemoveOnFailure
// opts in to the destructive hard-delete fallback when the status transition
// call fails; it is never attempted silently.
type CancelOptions struct {
	Notes           string
	RemoveOnFailure bool
}

// AppointmentService holds the role-scoped appointment cache and performs
// lifecycle mutations. Safe for concurrent use.
type AppointmentService struct {
	API  AppointmentAPI
	Role domain.Role

	mu    sync.Mutex
	cache []domain.Appointment
	fresh bool
}

// NewAppointmentService constructs the lifecycle client for one role view.
func NewAppointmentService(a AppointmentAPI, role domain.Role) *AppointmentService {
	return &AppointmentService{API: a, Role: role}
}

// List returns the cached appointments, fetching first when stale.
func (s *AppointmentService) List(ctx context.Context) ([]domain.Appointment, error) {
	s.mu.Lock()
	if s.fresh {
		out := append([]domain.Appointment(nil), s.cache...)
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// Refresh fetches the authoritative list and replaces the cache wholesale.
func (s *AppointmentService) Refresh(ctx context.Context) ([]domain.Appointment, error) {
	tr := otel.Tracer("services/AppointmentService")
	ctx, span := tr.Start(ctx, "Refresh",
		trace.WithAttributes(attribute.String("role", string(s.Role))),
	)
	defer span.End()

	list, err := s.API.Appointments(ctx, s.Role)
	if err != nil {
		return nil, fmt.Errorf("refresh appointments: %w", err)
	}
	s.mu.Lock()
	s.cache = list
	s.fresh = true
	s.mu.Unlock()
	return append([]domain.Appointment(nil), list...), nil
}

// Invalidate marks the cache stale; screens call it on focus.
func (s *AppointmentService) Invalidate() {
	s.mu.Lock()
	s.fresh = false
	s.mu.Unlock()
}

// Create books a new appointment. The backend enters it at pending.
func (s *AppointmentService) Create(ctx context.Context, draft domain.AppointmentDraft) (domain.Appointment, error) {
	tr := otel.Tracer("services/AppointmentService")
	ctx, span := tr.Start(ctx, "Create")
	defer span.End()

	appt, err := s.API.CreateAppointment(ctx, draft)
	if err != nil {
		return domain.Appointment{}, fmt.Errorf("create appointment: %w", err)
	}
	s.Invalidate()
	return appt, nil
}

// Actions lists the target statuses this role may offer for an appointment
// currently in the given status. Screens render exactly these buttons.
func (s *AppointmentService) Actions(status domain.AppointmentStatus) []domain.AppointmentStatus {
	return domain.AvailableActions(status, s.Role)
}

// UpdateStatus performs one lifecycle transition. Edges out of terminal
// states are refused locally (they are never exposed); everything else is a
// single remote call, with the backend as the actual enforcer.
func (s *AppointmentService) UpdateStatus(ctx context.Context, id string, from, to domain.AppointmentStatus, notes string) (domain.Appointment, error) {
	tr := otel.Tracer("services/AppointmentService")
	ctx, span := tr.Start(ctx, "UpdateStatus",
		trace.WithAttributes(
			attribute.String("appointment.id", id),
			attribute.String("status.from", string(from)),
			attribute.String("status.to", string(to)),
		),
	)
	defer span.End()

	if from.Terminal() {
		return domain.Appointment{}, fmt.Errorf("%w: %s", ErrTerminalStatus, from)
	}
	if !from.CanTransition(to) {
		return domain.Appointment{}, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}

	appt, err := s.API.UpdateAppointment(ctx, id, api.AppointmentUpdate{Status: to, Notes: notes})
	if err != nil {
		return domain.Appointment{}, fmt.Errorf("update appointment: %w", err)
	}
	s.Invalidate()
	return appt, nil
}

// Cancel transitions an appointment to cancelled. When the transition call
// fails and opts.RemoveOnFailure is set, the destructive delete is attempted
// as a fallback; the semantic difference (cancel keeps the record, delete
// does not) is the caller's explicit choice.
func (s *AppointmentService) Cancel(ctx context.Context, id string, from domain.AppointmentStatus, opts CancelOptions) error {
	_, err := s.UpdateStatus(ctx, id, from, domain.StatusCancelled, opts.Notes)
	if err == nil {
		return nil
	}
	if !opts.RemoveOnFailure {
		return err
	}

	log.Warn().
		Str("appointment_id", id).
		Err(err).
		Msg("cancel transition failed; falling back to hard delete")
	if derr := s.Delete(ctx, id); derr != nil {
		return fmt.Errorf("cancel failed (%v); delete fallback failed: %w", err, derr)
	}
	return nil
}

// Delete hard-deletes an appointment. Distinct from a cancelled transition.
func (s *AppointmentService) Delete(ctx context.Context, id string) error {
	tr := otel.Tracer("services/AppointmentService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.String("appointment.id", id)),
	)
	defer span.End()

	if err := s.API.DeleteAppointment(ctx, id); err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	s.Invalidate()
	return nil
}
