/*
Package engine implements the leave request lifecycle and balance
accounting core.

PURPOSE:
  This package contains the domain types and algorithms for managing
  employee absence requests: submission validation, multi-tier approval
  routing, per-year balance accounting, and cancellation with reversal.
  It is transport-agnostic: the HTTP layer (api/) and persistence
  (store/sqlite, engine/store) are consumers of the interfaces defined
  here.

KEY CONCEPTS IN THIS FILE (types.go):
  - Role: closed enumeration driving eligibility and routing
  - LeaveStatus: the five lifecycle states
  - LeaveType: per-type flags (approval required, balance based)
  - LeaveRequest: a single absence application with a date range
  - LeaveBalance: accrued entitlement for a (user, type, year) key
  - ApprovalRecord: immutable audit entry per approver action

DESIGN PRINCIPLES:
  1. Precision: day amounts use decimal.Decimal at two-decimal scale
  2. Type Safety: distinct ID types prevent mixing users and leaves
  3. Closed enums: role and status checks never compare raw integers
  4. Derivation: available days are always total - used, never stored

SEE ALSO:
  - lifecycle.go: the submit/decide/cancel state machine
  - routing.go: eligibility and escalation policy
  - balance.go: the debit/credit ledger
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type LeaveID string
type LeaveTypeID string

// BalanceKey identifies one balance row. Exactly one row exists per key.
type BalanceKey struct {
	UserID UserID
	TypeID LeaveTypeID
	Year   int
}

// =============================================================================
// ROLES
// =============================================================================

// Role is a closed enumeration. The numeric values are part of the
// external identity contract and must not be renumbered.
type Role int

const (
	RoleAdmin    Role = 1
	RoleEmployee Role = 2
	RoleManager  Role = 3
	RoleIntern   Role = 4
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleEmployee:
		return "Employee"
	case RoleManager:
		return "Manager"
	case RoleIntern:
		return "Intern"
	default:
		return "Unknown"
	}
}

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	return r >= RoleAdmin && r <= RoleIntern
}

// CanManage reports whether the role may carry direct reports.
func (r Role) CanManage() bool {
	return r == RoleManager || r == RoleAdmin
}

// =============================================================================
// LEAVE STATUS - the lifecycle states
// =============================================================================

type LeaveStatus string

const (
	StatusPending               LeaveStatus = "Pending"
	StatusAwaitingAdminApproval LeaveStatus = "Awaiting_Admin_Approval"
	StatusApproved              LeaveStatus = "Approved"
	StatusRejected              LeaveStatus = "Rejected"
	StatusCancelled             LeaveStatus = "Cancelled"
)

// Actionable reports whether an approver decision is still possible.
func (s LeaveStatus) Actionable() bool {
	return s == StatusPending || s == StatusAwaitingAdminApproval
}

// Terminal reports whether no further transition exists. Approved is
// not terminal: the owner may still cancel before the start date.
func (s LeaveStatus) Terminal() bool {
	return s == StatusRejected || s == StatusCancelled
}

// =============================================================================
// USERS
// =============================================================================

// User is the engine's view of a principal. ManagerID is an index into
// the user set, not an object reference; nil means no manager assigned.
type User struct {
	ID        UserID
	Name      string
	Email     string
	Role      Role
	ManagerID *UserID
}

// =============================================================================
// LEAVE TYPES
// =============================================================================

// LeaveType describes one category of absence.
//
// RequiresApproval=false means submissions are approved immediately
// with zero required approvals. BalanceBased gates both the
// submission-time availability check and (by default policy) the
// decision-time debit. DebitOnAutoApprove controls whether an
// auto-approved submission debits the ledger at submission time; the
// default is false.
type LeaveType struct {
	ID                 LeaveTypeID
	Name               string
	RequiresApproval   bool
	BalanceBased       bool
	DebitOnAutoApprove bool
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

// LeaveRequest is a single absence application. Start and End are
// day-granular (UTC midnight) and the range is inclusive of both
// endpoints. Status is mutated only through Lifecycle transitions;
// requests are never deleted.
type LeaveRequest struct {
	ID                LeaveID
	UserID            UserID
	TypeID            LeaveTypeID
	Start             time.Time
	End               time.Time
	Reason            string
	Status            LeaveStatus
	RequiredApprovals int
	ProcessedBy       *UserID
	ProcessedAt       *time.Time
	AppliedAt         time.Time
}

// BalanceKey returns the balance row this request debits or credits.
// The year is taken from the start date, not the submission date.
func (r *LeaveRequest) BalanceKey() BalanceKey {
	return BalanceKey{UserID: r.UserID, TypeID: r.TypeID, Year: r.Start.Year()}
}

// =============================================================================
// LEAVE BALANCES
// =============================================================================

// LeaveBalance is the accounting row for one (user, type, year) key.
// UsedDays is the only mutable field; AvailableDays is always derived.
type LeaveBalance struct {
	UserID    UserID
	TypeID    LeaveTypeID
	Year      int
	TotalDays decimal.Decimal
	UsedDays  decimal.Decimal
}

// AvailableDays returns total - used, computed on read.
func (b *LeaveBalance) AvailableDays() decimal.Decimal {
	return b.TotalDays.Sub(b.UsedDays)
}

// =============================================================================
// APPROVAL AUDIT
// =============================================================================

// ApprovalAction is what an approver did, as recorded in the audit log.
type ApprovalAction string

const (
	ActionApproved ApprovalAction = "Approved"
	ActionRejected ApprovalAction = "Rejected"
	ActionReviewed ApprovalAction = "Reviewed"
)

// ApprovalRecord is one append-only audit row. Exactly one row is
// written per approver-driven transition; owner cancellations are not
// logged here.
type ApprovalRecord struct {
	ID         string
	LeaveID    LeaveID
	ApproverID UserID
	Action     ApprovalAction
	Comments   string
	CreatedAt  time.Time
}

// =============================================================================
// DECISIONS
// =============================================================================

// DecisionAction is the verb an approver submits.
type DecisionAction string

const (
	DecisionApprove DecisionAction = "Approved"
	DecisionReject  DecisionAction = "Rejected"
)

// Valid reports whether a is a known decision verb.
func (a DecisionAction) Valid() bool {
	return a == DecisionApprove || a == DecisionReject
}

// =============================================================================
// AMOUNT HELPERS
// =============================================================================

// Two-decimal fixed precision for all day amounts.
const dayScale = 2

// Days converts a working-day count to a ledger amount.
func Days(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}

// RoundDays normalizes an amount to the ledger's two-decimal scale.
func RoundDays(d decimal.Decimal) decimal.Decimal {
	return d.Round(dayScale)
}
