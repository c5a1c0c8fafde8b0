/*
errors.go - Centralized error kinds for the leave engine

PURPOSE:
  All error kinds in one place. Callers distinguish them with
  errors.Is against the sentinels, or errors.As against the structured
  types when they need the context (conflicting dates, shortfall,
  current status).

ERROR KINDS:
  ErrValidation     malformed input, insufficient balance
  ErrAuthorization  role ineligibility, non-owner/non-manager action
  ErrNotFound       no such request / balance / leave type / user
  ErrConflict       overlapping date range
  ErrState          action invalid for the current status
  ErrDataIntegrity  expected balance row missing at debit/credit time

All checks that can produce ErrValidation, ErrAuthorization,
ErrConflict, or ErrNotFound run before any mutation; those failures
never leave partial state behind. ErrDataIntegrity inside a decision
aborts the whole transaction (status, ledger, and audit together).
*/
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed, missing, or out-of-range
	// input, including insufficient balance.
	ErrValidation = errors.New("validation failed")

	// ErrAuthorization is returned when the acting principal's role or
	// relationship to the request does not permit the action.
	ErrAuthorization = errors.New("not authorized")

	// ErrNotFound is returned when a referenced request, user, leave
	// type, or balance does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a requested date range overlaps an
	// active request.
	ErrConflict = errors.New("date range conflict")

	// ErrState is returned when the request's current status does not
	// permit the action (e.g. deciding an already-processed request).
	ErrState = errors.New("invalid state for action")

	// ErrDataIntegrity is returned when a balance row that must exist
	// is missing at debit/credit time. This is reported, never silently
	// repaired by creating the row.
	ErrDataIntegrity = errors.New("data integrity violation")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes a rejected input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InsufficientBalanceError reports a balance shortfall at submission.
type InsufficientBalanceError struct {
	TypeName  string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s: available %s, requested %s",
		e.TypeName, e.Available.StringFixed(2), e.Requested.StringFixed(2))
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrValidation }

// AuthorizationError describes a refused action.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

func (e *AuthorizationError) Unwrap() error { return ErrAuthorization }

// NotFoundError names the missing entity.
type NotFoundError struct {
	Kind string // "leave request", "leave type", "user", "leave balance"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError names the existing request the new range overlaps.
type ConflictError struct {
	ExistingID LeaveID
	Start      time.Time
	End        time.Time
	Status     LeaveStatus
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("requested dates overlap an existing %s leave (%s - %s)",
		e.Status, e.Start.Format("2006-01-02"), e.End.Format("2006-01-02"))
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// StateError reports an action attempted against a non-actionable
// status. The race loser of two concurrent decisions sees this.
type StateError struct {
	LeaveID LeaveID
	Status  LeaveStatus
	Message string
}

func (e *StateError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("leave request %s already processed (status %s)", e.LeaveID, e.Status)
}

func (e *StateError) Unwrap() error { return ErrState }

// DataIntegrityError reports a missing balance row during a ledger
// mutation.
type DataIntegrityError struct {
	Key BalanceKey
	Op  string // "debit" or "credit"
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("leave balance missing for user %s, type %s, year %d during %s",
		e.Key.UserID, e.Key.TypeID, e.Key.Year, e.Op)
}

func (e *DataIntegrityError) Unwrap() error { return ErrDataIntegrity }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is the caller's fault rather
// than the system's. Transport layers map these to 4xx.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrAuthorization) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrState) ||
		errors.Is(err, ErrNotFound)
}

// IsNotFound reports whether the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
