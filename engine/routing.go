/*
routing.go - Eligibility, escalation, and decision routing policy

PURPOSE:
  The Router answers two questions:
  1. Submission: may this role apply for this leave type, is the
     balance sufficient, and what initial status / approval count does
     the request get?
  2. Decision: given who is deciding and who submitted, what status
     does the request move to, and does the ledger get debited?

POLICY TABLES:
  All thresholds live in RoutingPolicy, not in code paths:
  - AllowedTypes:  role -> leave-type names that role may apply for
  - Escalation:    role -> (working-day threshold, required approvals,
                   whether manager approval escalates to admin)
  - DebitGate:     which leave-type flag gates the decision-time debit

  The defaults reproduce the production rules: Casual and Sick leave
  for employees and managers, Loss of Pay for interns, two approvals
  and admin escalation above five working days for employees and
  interns.

DEBIT GATE:
  The system this replaces gated the submission-time balance check on
  the balance-based flag but the decision-time debit on the
  requires-approval flag. The gate is now explicit configuration;
  DebitGateBalanceBased is the default and keeps both checks on the
  same flag.
*/
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// POLICY
// =============================================================================

// DebitGate selects which LeaveType flag controls the decision-time
// ledger debit.
type DebitGate int

const (
	// DebitGateBalanceBased debits when the leave type is balance
	// based. Consistent with the submission-time availability check.
	DebitGateBalanceBased DebitGate = iota

	// DebitGateRequiresApproval debits when the leave type requires
	// approval. This is the legacy behavior, kept selectable.
	DebitGateRequiresApproval
)

// EscalationRule configures approval depth for one submitter role.
// A request strictly above WorkingDayThreshold working days needs
// RequiredApprovals approvals; when Escalates is set, a manager
// approval of such a request moves it to Awaiting_Admin_Approval
// instead of Approved.
type EscalationRule struct {
	WorkingDayThreshold int
	RequiredApprovals   int
	Escalates           bool
}

// RoutingPolicy is the closed configuration consumed by the Router.
type RoutingPolicy struct {
	// AllowedTypes maps a role to the leave-type names it may apply
	// for. A role absent from the map may not apply for anything.
	AllowedTypes map[Role][]string

	// Escalation maps a submitter role to its approval-depth rule.
	// Roles absent from the map always need a single approval.
	Escalation map[Role]EscalationRule

	DebitGate DebitGate
}

// DefaultRoutingPolicy returns the production rule set.
func DefaultRoutingPolicy() RoutingPolicy {
	return RoutingPolicy{
		AllowedTypes: map[Role][]string{
			RoleEmployee: {"Casual Leave", "Sick Leave", "Work From Home"},
			RoleManager:  {"Casual Leave", "Sick Leave", "Work From Home"},
			RoleIntern:   {"Loss of Pay", "Work From Home"},
			// Admins do not apply for leave.
		},
		Escalation: map[Role]EscalationRule{
			RoleEmployee: {WorkingDayThreshold: 5, RequiredApprovals: 2, Escalates: true},
			RoleIntern:   {WorkingDayThreshold: 5, RequiredApprovals: 2, Escalates: true},
			RoleManager:  {WorkingDayThreshold: 5, RequiredApprovals: 2, Escalates: false},
		},
		DebitGate: DebitGateBalanceBased,
	}
}

// AllowsType reports whether the role may apply for the named type.
func (p *RoutingPolicy) AllowsType(role Role, typeName string) bool {
	for _, name := range p.AllowedTypes[role] {
		if name == typeName {
			return true
		}
	}
	return false
}

// ApprovalPlan returns the required approval count and whether a
// manager approval escalates, for a submitter role and duration.
func (p *RoutingPolicy) ApprovalPlan(role Role, workingDays int) (required int, escalates bool) {
	rule, ok := p.Escalation[role]
	if !ok || workingDays <= rule.WorkingDayThreshold {
		return 1, false
	}
	return rule.RequiredApprovals, rule.Escalates
}

// DebitApplies reports whether approving a request of this leave type
// debits the ledger, per the configured gate.
func (p *RoutingPolicy) DebitApplies(lt *LeaveType) bool {
	if p.DebitGate == DebitGateRequiresApproval {
		return lt.RequiresApproval
	}
	return lt.BalanceBased
}

// =============================================================================
// ROUTER
// =============================================================================

// Router applies a RoutingPolicy. It is pure: it never touches
// storage, so every outcome is decided from the arguments alone.
type Router struct {
	Policy RoutingPolicy
}

func NewRouter(policy RoutingPolicy) *Router {
	return &Router{Policy: policy}
}

// SubmissionRoute is the routing outcome for a new request.
type SubmissionRoute struct {
	InitialStatus     LeaveStatus
	RequiredApprovals int
}

// RouteSubmission validates eligibility and balance and computes the
// initial status. requestedDays is the calendar-day count (inclusive);
// workingDays drives the approval-depth rule. balance is the row for
// (submitter, type, start-year), nil when none exists; it is only
// consulted for balance-based types and non-intern submitters.
//
// No state is created here; any error leaves nothing behind.
func (rt *Router) RouteSubmission(
	submitter *User,
	lt *LeaveType,
	workingDays int,
	requestedDays decimal.Decimal,
	balance *LeaveBalance,
) (SubmissionRoute, error) {
	if !rt.Policy.AllowsType(submitter.Role, lt.Name) {
		return SubmissionRoute{}, &AuthorizationError{
			Message: fmt.Sprintf("role %s cannot apply for '%s' leave", submitter.Role, lt.Name),
		}
	}

	if lt.BalanceBased {
		if submitter.Role == RoleIntern {
			// Interns are excluded from balance-based types entirely.
			return SubmissionRoute{}, &AuthorizationError{
				Message: "interns cannot apply for balance-based leave types",
			}
		}
		if balance == nil {
			return SubmissionRoute{}, &ValidationError{
				Field:   "balance",
				Message: fmt.Sprintf("leave balance not found for %s; please contact HR", lt.Name),
			}
		}
		if requestedDays.GreaterThan(balance.AvailableDays()) {
			return SubmissionRoute{}, &InsufficientBalanceError{
				TypeName:  lt.Name,
				Available: balance.AvailableDays(),
				Requested: requestedDays,
			}
		}
	}

	if !lt.RequiresApproval {
		return SubmissionRoute{InitialStatus: StatusApproved, RequiredApprovals: 0}, nil
	}

	required, _ := rt.Policy.ApprovalPlan(submitter.Role, workingDays)
	return SubmissionRoute{InitialStatus: StatusPending, RequiredApprovals: required}, nil
}

// Decision is the routing outcome for an approver action.
type Decision struct {
	NewStatus LeaveStatus
	// Debit is set when the transition to Approved must debit the
	// ledger by the request's working-day count.
	Debit     bool
	LogAction ApprovalAction
}

// RouteDecision routes an approve/reject by the acting approver
// against a request in an actionable status.
//
// Managers act only on Pending requests of their own direct reports;
// approving a long request from an employee or intern escalates to the
// admin tier instead of approving outright. Admins act on Pending and
// Awaiting_Admin_Approval requests regardless of manager assignment.
func (rt *Router) RouteDecision(
	approver *User,
	submitter *User,
	req *LeaveRequest,
	lt *LeaveType,
	workingDays int,
	action DecisionAction,
) (Decision, error) {
	if !action.Valid() {
		return Decision{}, &ValidationError{Field: "action", Message: "decision must be Approved or Rejected"}
	}

	switch approver.Role {
	case RoleManager:
		if req.Status != StatusPending {
			return Decision{}, &StateError{LeaveID: req.ID, Status: req.Status}
		}
		if submitter.ManagerID == nil || *submitter.ManagerID != approver.ID {
			return Decision{}, &AuthorizationError{
				Message: "you are not authorized to approve or reject this leave request",
			}
		}
		if action == DecisionReject {
			return Decision{NewStatus: StatusRejected, LogAction: ActionRejected}, nil
		}
		if _, escalates := rt.Policy.ApprovalPlan(submitter.Role, workingDays); escalates {
			// The manager's approval is logged; the final say moves to
			// the admin tier. No ledger change yet.
			return Decision{NewStatus: StatusAwaitingAdminApproval, LogAction: ActionApproved}, nil
		}
		return Decision{
			NewStatus: StatusApproved,
			Debit:     rt.Policy.DebitApplies(lt),
			LogAction: ActionApproved,
		}, nil

	case RoleAdmin:
		if !req.Status.Actionable() {
			return Decision{}, &StateError{LeaveID: req.ID, Status: req.Status}
		}
		if action == DecisionReject {
			return Decision{NewStatus: StatusRejected, LogAction: ActionRejected}, nil
		}
		return Decision{
			NewStatus: StatusApproved,
			Debit:     rt.Policy.DebitApplies(lt),
			LogAction: ActionApproved,
		}, nil

	default:
		return Decision{}, &AuthorizationError{
			Message: fmt.Sprintf("role %s cannot decide leave requests", approver.Role),
		}
	}
}
