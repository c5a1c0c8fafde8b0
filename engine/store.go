/*
store.go - Persistence interfaces for the leave engine

PURPOSE:
  Defines the contract between the engine and the database. The engine
  depends only on these operations, never on a specific storage
  technology. Two implementations exist:
  - store/sqlite: production SQLite store
  - engine/store: in-memory store for tests and development

TRANSACTIONAL SCOPE:
  Every lifecycle transition (decide, cancel, submit-with-debit)
  executes inside WithTx so that the status write, the ledger mutation,
  and the audit append commit together or not at all. The source system
  this replaces committed status and ledger as separate writes; that
  gap is closed here by construction.

AT-MOST-ONE-DECISION:
  TransitionRequest is a conditional write: it succeeds only when the
  row is still in the expected status. Two approvers racing to decide
  the same request cannot both succeed; the loser observes a false
  return and surfaces a StateError.

NOT-FOUND CONVENTION:
  Single-row getters return (nil, nil) when the row does not exist.
  The engine translates that into a typed NotFoundError; stores never
  invent error kinds of their own.
*/
package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store is the persistence contract. All mutating methods are
// idempotency-free single writes; atomicity across several of them is
// provided by TxStore.WithTx.
type Store interface {
	// Users
	GetUser(ctx context.Context, id UserID) (*User, error)
	SaveUser(ctx context.Context, u User) error
	// DirectReports returns the users whose manager reference equals
	// managerID. This is the manager-hierarchy index lookup.
	DirectReports(ctx context.Context, managerID UserID) ([]User, error)

	// Leave types
	GetLeaveType(ctx context.Context, id LeaveTypeID) (*LeaveType, error)
	LeaveTypes(ctx context.Context) ([]LeaveType, error)
	SaveLeaveType(ctx context.Context, lt LeaveType) error

	// Leave requests
	GetRequest(ctx context.Context, id LeaveID) (*LeaveRequest, error)
	// SaveRequest inserts a new request. Requests are never deleted.
	SaveRequest(ctx context.Context, r LeaveRequest) error
	// ActiveRequests returns the user's requests in Pending,
	// Awaiting_Admin_Approval, or Approved status.
	ActiveRequests(ctx context.Context, userID UserID) ([]LeaveRequest, error)
	// RequestsByUser returns the user's full history, newest first.
	RequestsByUser(ctx context.Context, userID UserID) ([]LeaveRequest, error)
	// PendingByUsers returns Pending requests owned by any of the given
	// users, oldest first.
	PendingByUsers(ctx context.Context, userIDs []UserID) ([]LeaveRequest, error)
	// AwaitingAdminDecision returns requests an admin can act on:
	// everything in Awaiting_Admin_Approval, plus Pending requests
	// submitted by managers (who have no manager of their own).
	AwaitingAdminDecision(ctx context.Context) ([]LeaveRequest, error)
	// TransitionRequest conditionally moves a request from one of the
	// expected statuses to the target status, stamping the processing
	// actor and time. Returns false without error when the row was not
	// in an expected status (lost race or already processed).
	TransitionRequest(ctx context.Context, id LeaveID, from []LeaveStatus, to LeaveStatus, by UserID, at time.Time) (bool, error)

	// Balances
	GetBalance(ctx context.Context, key BalanceKey) (*LeaveBalance, error)
	// SaveBalance inserts a balance row. Only user provisioning creates
	// balance rows; the ledger never does.
	SaveBalance(ctx context.Context, b LeaveBalance) error
	// SetUsedDays is the atomic updateUsedDays primitive. Returns false
	// without error when no row exists for the key.
	SetUsedDays(ctx context.Context, key BalanceKey, used decimal.Decimal) (bool, error)
	BalancesByUser(ctx context.Context, userID UserID, year int) ([]LeaveBalance, error)

	// Approval audit log. Append-only; no update, no delete.
	AppendApproval(ctx context.Context, rec ApprovalRecord) error
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error
	// the transaction is rolled back; otherwise it is committed. The
	// Store passed to fn writes inside the transaction.
	WithTx(ctx context.Context, fn func(Store) error) error
}
