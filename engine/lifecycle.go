/*
lifecycle.go - The submit / decide / cancel state machine

PURPOSE:
  Lifecycle is the only component that mutates request status. It
  orchestrates the pure helpers (dates, overlap, routing) and the
  stateful ones (ledger, recorder) into three operations:

  Submit: validate, route, persist. A balance-based request is checked
  against availability; an auto-approved type lands directly in
  Approved.

  Decide: an approver moves an actionable request forward. The status
  write is conditional on the status the approver observed, so two
  racing decisions resolve to exactly one winner; the loser gets a
  StateError. Status change, ledger debit, and audit append commit in
  one transaction.

  Cancel: the owner withdraws a Pending request, or an Approved one
  before its start date. Cancelling an approved balance-based request
  credits the working days back in the same transaction.

STATE MACHINE:
  Pending ----------------> Approved | Rejected | Cancelled
  Pending ----------------> Awaiting_Admin_Approval   (manager, long request)
  Awaiting_Admin_Approval -> Approved | Rejected      (admin only)
  Approved ---------------> Cancelled                 (owner, before start)

  Rejected and Cancelled are terminal.

SEE ALSO:
  - routing.go: who may act and what the action yields
  - balance.go: the debit/credit ledger
  - store.go:   TransitionRequest, the conditional status write
*/
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Lifecycle drives request state transitions against a transactional
// store.
type Lifecycle struct {
	store    TxStore
	router   *Router
	recorder *Recorder
	log      *zap.Logger

	// now is swappable for tests.
	now func() time.Time
}

func NewLifecycle(store TxStore, router *Router, logger *zap.Logger) *Lifecycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lifecycle{
		store:    store,
		router:   router,
		recorder: NewRecorder(),
		log:      logger,
		now:      time.Now,
	}
}

// SetClock overrides the time source. Tests use this to pin "today".
func (lc *Lifecycle) SetClock(now func() time.Time) {
	lc.now = now
	lc.recorder.now = now
}

// =============================================================================
// SUBMIT
// =============================================================================

// SubmitInput carries a new leave application.
type SubmitInput struct {
	UserID UserID
	TypeID LeaveTypeID
	Start  time.Time
	End    time.Time
	Reason string
}

// SubmitResult reports where the new request landed.
type SubmitResult struct {
	LeaveID           LeaveID
	Status            LeaveStatus
	RequiredApprovals int
	WorkingDays       int
}

// Submit validates a new application and persists it in its initial
// status. Validation order is fixed: input shape, date rules, entity
// lookups, overlap, eligibility and balance. Every failure happens
// before any write.
func (lc *Lifecycle) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	if in.UserID == "" {
		return nil, &ValidationError{Field: "userId", Message: "user is required"}
	}
	if in.TypeID == "" {
		return nil, &ValidationError{Field: "leaveTypeId", Message: "leave type is required"}
	}
	if in.Start.IsZero() || in.End.IsZero() {
		return nil, &ValidationError{Field: "dates", Message: "start and end dates are required"}
	}

	today := Day(lc.now())
	start, end := Day(in.Start), Day(in.End)

	if start.Before(today) {
		return nil, &ValidationError{Field: "startDate", Message: "cannot apply for leave starting in the past"}
	}
	if start.After(end) {
		return nil, &ValidationError{Field: "dates", Message: "start date cannot be after end date"}
	}
	if start.Year() < today.Year() {
		return nil, &ValidationError{Field: "startDate", Message: "start date year is out of range"}
	}
	if end.Year() > start.Year()+1 {
		return nil, &ValidationError{Field: "endDate", Message: "leave cannot span more than one year boundary"}
	}

	user, err := lc.store.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, &NotFoundError{Kind: "user", ID: string(in.UserID)}
	}

	lt, err := lc.store.GetLeaveType(ctx, in.TypeID)
	if err != nil {
		return nil, fmt.Errorf("load leave type: %w", err)
	}
	if lt == nil {
		return nil, &NotFoundError{Kind: "leave type", ID: string(in.TypeID)}
	}

	workingDays, err := CountWorkingDays(start, end)
	if err != nil {
		return nil, err
	}
	calendarDays := CalendarDays(start, end)

	active, err := lc.store.ActiveRequests(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("load active requests: %w", err)
	}
	if conflict := FindConflict(start, end, active); conflict != nil {
		return nil, conflict
	}

	key := BalanceKey{UserID: in.UserID, TypeID: in.TypeID, Year: start.Year()}
	var balance *LeaveBalance
	if lt.BalanceBased && user.Role != RoleIntern {
		balance, err = lc.store.GetBalance(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("load balance: %w", err)
		}
	}

	route, err := lc.router.RouteSubmission(user, lt, workingDays, Days(calendarDays), balance)
	if err != nil {
		return nil, err
	}

	req := LeaveRequest{
		ID:                LeaveID(uuid.NewString()),
		UserID:            in.UserID,
		TypeID:            in.TypeID,
		Start:             start,
		End:               end,
		Reason:            in.Reason,
		Status:            route.InitialStatus,
		RequiredApprovals: route.RequiredApprovals,
		AppliedAt:         lc.now().UTC(),
	}

	err = lc.store.WithTx(ctx, func(s Store) error {
		if err := s.SaveRequest(ctx, req); err != nil {
			return fmt.Errorf("save request: %w", err)
		}
		if route.InitialStatus == StatusApproved && lt.DebitOnAutoApprove && lt.BalanceBased {
			if err := NewLedger(s).Debit(ctx, key, Days(workingDays)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	lc.log.Info("leave request submitted",
		zap.String("leave_id", string(req.ID)),
		zap.String("user_id", string(req.UserID)),
		zap.String("status", string(req.Status)),
		zap.Int("working_days", workingDays),
	)

	return &SubmitResult{
		LeaveID:           req.ID,
		Status:            req.Status,
		RequiredApprovals: req.RequiredApprovals,
		WorkingDays:       workingDays,
	}, nil
}

// =============================================================================
// DECIDE
// =============================================================================

// DecideInput carries an approver's verdict on an actionable request.
type DecideInput struct {
	LeaveID    LeaveID
	ApproverID UserID
	Action     DecisionAction
	Comments   string
}

// DecideResult reports the status the request moved to.
type DecideResult struct {
	LeaveID   LeaveID
	NewStatus LeaveStatus
}

// Decide applies an approve/reject from a manager or admin. The status
// write is conditional on the status read here; a concurrent decision
// that commits first makes this one fail with a StateError, and the
// loser's transaction writes nothing. An approval that debits the
// ledger commits the status change, the debit, and the audit row
// together.
func (lc *Lifecycle) Decide(ctx context.Context, in DecideInput) (*DecideResult, error) {
	req, err := lc.store.GetRequest(ctx, in.LeaveID)
	if err != nil {
		return nil, fmt.Errorf("load request: %w", err)
	}
	if req == nil {
		return nil, &NotFoundError{Kind: "leave request", ID: string(in.LeaveID)}
	}
	if !req.Status.Actionable() {
		return nil, &StateError{LeaveID: req.ID, Status: req.Status}
	}

	approver, err := lc.store.GetUser(ctx, in.ApproverID)
	if err != nil {
		return nil, fmt.Errorf("load approver: %w", err)
	}
	if approver == nil {
		return nil, &NotFoundError{Kind: "user", ID: string(in.ApproverID)}
	}

	submitter, err := lc.store.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("load submitter: %w", err)
	}
	if submitter == nil {
		return nil, &NotFoundError{Kind: "user", ID: string(req.UserID)}
	}

	lt, err := lc.store.GetLeaveType(ctx, req.TypeID)
	if err != nil {
		return nil, fmt.Errorf("load leave type: %w", err)
	}
	if lt == nil {
		return nil, &NotFoundError{Kind: "leave type", ID: string(req.TypeID)}
	}

	workingDays, err := CountWorkingDays(req.Start, req.End)
	if err != nil {
		return nil, err
	}

	decision, err := lc.router.RouteDecision(approver, submitter, req, lt, workingDays, in.Action)
	if err != nil {
		return nil, err
	}

	observed := req.Status
	err = lc.store.WithTx(ctx, func(s Store) error {
		ok, err := s.TransitionRequest(ctx, req.ID, []LeaveStatus{observed}, decision.NewStatus, approver.ID, lc.now().UTC())
		if err != nil {
			return fmt.Errorf("transition request: %w", err)
		}
		if !ok {
			// Lost the race: someone else decided first.
			return &StateError{LeaveID: req.ID, Status: observed,
				Message: fmt.Sprintf("leave request %s was processed concurrently", req.ID)}
		}
		if decision.Debit {
			if err := NewLedger(s).Debit(ctx, req.BalanceKey(), Days(workingDays)); err != nil {
				return err
			}
		}
		return lc.recorder.Record(ctx, s, req.ID, approver.ID, decision.LogAction, in.Comments)
	})
	if err != nil {
		return nil, err
	}

	lc.log.Info("leave request decided",
		zap.String("leave_id", string(req.ID)),
		zap.String("approver_id", string(approver.ID)),
		zap.String("new_status", string(decision.NewStatus)),
		zap.Bool("debited", decision.Debit),
	)

	return &DecideResult{LeaveID: req.ID, NewStatus: decision.NewStatus}, nil
}

// =============================================================================
// CANCEL
// =============================================================================

// Cancel withdraws the requester's own leave request. Pending requests
// cancel at any time; Approved requests only before the start date.
// Cancelling an approved request that debited the ledger credits the
// working days back in the same transaction. A second cancel of the
// same request fails with a StateError.
func (lc *Lifecycle) Cancel(ctx context.Context, leaveID LeaveID, requesterID UserID) error {
	req, err := lc.store.GetRequest(ctx, leaveID)
	if err != nil {
		return fmt.Errorf("load request: %w", err)
	}
	if req == nil {
		return &NotFoundError{Kind: "leave request", ID: string(leaveID)}
	}
	if req.UserID != requesterID {
		return &AuthorizationError{Message: "you can only cancel your own leave requests"}
	}

	today := Day(lc.now())
	switch req.Status {
	case StatusPending:
		// Always cancellable.
	case StatusApproved:
		if !today.Before(Day(req.Start)) {
			return &StateError{LeaveID: req.ID, Status: req.Status,
				Message: "approved leave can only be cancelled before its start date"}
		}
	default:
		return &StateError{LeaveID: req.ID, Status: req.Status,
			Message: fmt.Sprintf("cannot cancel a %s leave request", req.Status)}
	}

	lt, err := lc.store.GetLeaveType(ctx, req.TypeID)
	if err != nil {
		return fmt.Errorf("load leave type: %w", err)
	}
	if lt == nil {
		return &NotFoundError{Kind: "leave type", ID: string(req.TypeID)}
	}

	workingDays, err := CountWorkingDays(req.Start, req.End)
	if err != nil {
		return err
	}

	// Credit exactly when the approval debited: either a decision under
	// the configured debit gate, or an auto-approved submission with the
	// submission-time debit enabled.
	credit := false
	if req.Status == StatusApproved {
		if req.RequiredApprovals > 0 {
			credit = lc.router.Policy.DebitApplies(lt)
		} else {
			credit = lt.DebitOnAutoApprove && lt.BalanceBased
		}
	}

	observed := req.Status
	err = lc.store.WithTx(ctx, func(s Store) error {
		ok, err := s.TransitionRequest(ctx, req.ID, []LeaveStatus{observed}, StatusCancelled, requesterID, lc.now().UTC())
		if err != nil {
			return fmt.Errorf("transition request: %w", err)
		}
		if !ok {
			return &StateError{LeaveID: req.ID, Status: observed,
				Message: fmt.Sprintf("leave request %s changed concurrently", req.ID)}
		}
		if credit {
			if err := NewLedger(s).Credit(ctx, req.BalanceKey(), Days(workingDays)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	lc.log.Info("leave request cancelled",
		zap.String("leave_id", string(req.ID)),
		zap.String("user_id", string(requesterID)),
		zap.Bool("credited", credit),
	)
	return nil
}
