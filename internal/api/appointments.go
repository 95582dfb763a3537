// Package api – appointment endpoints.
package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/agrovet/go-vetcare-client/internal/domain"
)

// AppointmentUpdate names the target status of a transition. The backend is
// the enforcer of legality; this payload carries intent only.
type AppointmentUpdate struct {
	Status domain.AppointmentStatus `json:"status"`
	Notes  string                   `json:"notes,omitempty"`
}

// Appointments fetches the caller's appointments for the given role view
// (GET /api/appointments/vet or /api/appointments/farmer).
func (c *Client) Appointments(ctx context.Context, role domain.Role) ([]domain.Appointment, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("appointments: unknown role %q", role)
	}
	var resp struct {
		Appointments []domain.Appointment `json:"appointments"`
	}
	path := "/api/appointments/" + string(role)
	if err := c.do(ctx, "appointments", http.MethodGet, path, "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Appointments, nil
}

// CreateAppointment books a new appointment; the backend enters it at
// pending.
func (c *Client) CreateAppointment(ctx context.Context, draft domain.AppointmentDraft) (domain.Appointment, error) {
	var appt domain.Appointment
	if err := c.do(ctx, "create_appointment", http.MethodPost, "/api/appointments", "", draft, &appt); err != nil {
		return domain.Appointment{}, err
	}
	return appt, nil
}

// UpdateAppointment performs one status transition and returns the updated
// record as the backend sees it.
func (c *Client) UpdateAppointment(ctx context.Context, id string, upd AppointmentUpdate) (domain.Appointment, error) {
	if id == "" {
		return domain.Appointment{}, fmt.Errorf("update_appointment: empty id")
	}
	var appt domain.Appointment
	path := "/api/appointments/" + url.PathEscape(id)
	if err := c.do(ctx, "update_appointment", http.MethodPut, path, "", upd, &appt); err != nil {
		return domain.Appointment{}, err
	}
	return appt, nil
}

// DeleteAppointment hard-deletes an appointment. This is a distinct,
// destructive operation, not a cancelled transition.
func (c *Client) DeleteAppointment(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("delete_appointment: empty id")
	}
	path := "/api/appointments/remove/" + url.PathEscape(id)
	return c.do(ctx, "delete_appointment", http.MethodDelete, path, "", nil, nil)
}
