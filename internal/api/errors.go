// Package api implements the boundary to the remote care-coordination
// backend. This file centralizes the error taxonomy the rest of the client
// branches on.
//
// Conventions:
//   - Sentinel errors cover the credential cases (missing, rejected) and the
//     transport case, and are matched with errors.Is.
//   - RemoteError carries a business-rule rejection verbatim (debit refused,
//     illegal status transition, ...) and is matched with errors.As.
//   - Translation into user-facing messages happens above this package; the
//     service layer only classifies.
package api

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCredential indicates no bearer credential is available locally.
	// Callers should redirect to login rather than retry.
	ErrNoCredential = errors.New("no credential present")

	// ErrUnauthorized indicates the backend rejected the bearer credential.
	// The client clears the cached credential before returning this.
	ErrUnauthorized = errors.New("credential rejected")

	// ErrNetwork indicates a transport-level failure (DNS, connect, timeout).
	// The operation was abandoned; the client never retries on its own.
	ErrNetwork = errors.New("network failure")
)

// RemoteError is a business-rule failure returned by the backend with an HTTP
// status and, when available, a machine-readable code and verbatim message.
type RemoteError struct {
	Status  int
	Code    string
	Message string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote rejected (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("remote rejected (%d)", e.Status)
}

// RemoteMessage extracts the backend's verbatim message from err, if err is
// (or wraps) a RemoteError. Used by services to surface rejections unchanged.
func RemoteMessage(err error) (string, bool) {
	var re *RemoteError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message, true
	}
	return "", false
}
