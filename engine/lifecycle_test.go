package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/engine"
	"github.com/warp/leave-engine/engine/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// Fixed "today" for every lifecycle test: Monday, February 2, 2026.
var testToday = engine.NewDate(2026, time.February, 2)

type fixture struct {
	lc    *engine.Lifecycle
	store *store.TxMemory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	m := store.NewTxMemory()
	ctx := context.Background()

	mgrID := engine.UserID("mgr-1")
	users := []engine.User{
		{ID: "adm-1", Name: "Ada", Email: "ada@example.com", Role: engine.RoleAdmin},
		{ID: "mgr-1", Name: "Morgan", Email: "morgan@example.com", Role: engine.RoleManager},
		{ID: "emp-1", Name: "Evan", Email: "evan@example.com", Role: engine.RoleEmployee, ManagerID: &mgrID},
		{ID: "emp-2", Name: "Erin", Email: "erin@example.com", Role: engine.RoleEmployee, ManagerID: &mgrID},
		{ID: "int-1", Name: "Iris", Email: "iris@example.com", Role: engine.RoleIntern, ManagerID: &mgrID},
	}
	for _, u := range users {
		require.NoError(t, m.SaveUser(ctx, u))
	}

	types := []engine.LeaveType{
		{ID: "casual", Name: "Casual Leave", RequiresApproval: true, BalanceBased: true},
		{ID: "sick", Name: "Sick Leave", RequiresApproval: true, BalanceBased: true},
		{ID: "lop", Name: "Loss of Pay", RequiresApproval: true, BalanceBased: false},
		{ID: "wfh", Name: "Work From Home", RequiresApproval: false, BalanceBased: false},
	}
	for _, lt := range types {
		require.NoError(t, m.SaveLeaveType(ctx, lt))
	}

	for _, userID := range []engine.UserID{"emp-1", "emp-2", "mgr-1"} {
		for _, typeID := range []engine.LeaveTypeID{"casual", "sick"} {
			require.NoError(t, m.SaveBalance(ctx, engine.LeaveBalance{
				UserID:    userID,
				TypeID:    typeID,
				Year:      2026,
				TotalDays: decimal.NewFromInt(15),
				UsedDays:  decimal.Zero,
			}))
		}
	}

	lc := engine.NewLifecycle(m, engine.NewRouter(engine.DefaultRoutingPolicy()), nil)
	lc.SetClock(func() time.Time { return testToday })
	return &fixture{lc: lc, store: m}
}

func (f *fixture) usedDays(t *testing.T, userID engine.UserID, typeID engine.LeaveTypeID) decimal.Decimal {
	t.Helper()
	b, err := f.store.GetBalance(context.Background(), engine.BalanceKey{UserID: userID, TypeID: typeID, Year: 2026})
	require.NoError(t, err)
	require.NotNil(t, b)
	return b.UsedDays
}

func (f *fixture) submit(t *testing.T, userID, typeID string, start, end time.Time) *engine.SubmitResult {
	t.Helper()
	result, err := f.lc.Submit(context.Background(), engine.SubmitInput{
		UserID: engine.UserID(userID),
		TypeID: engine.LeaveTypeID(typeID),
		Start:  start,
		End:    end,
		Reason: "trip",
	})
	require.NoError(t, err)
	return result
}

// Monday March 2 through Friday March 6, 2026: 5 working days.
var (
	weekStart = engine.NewDate(2026, time.March, 2)
	weekEnd   = engine.NewDate(2026, time.March, 6)
	// Through the following Monday: 6 working days, 8 calendar days.
	longEnd = engine.NewDate(2026, time.March, 9)
)

// =============================================================================
// SUBMISSION
// =============================================================================

func TestSubmit_BalanceBasedRequestLandsPending(t *testing.T) {
	// GIVEN: An employee with a full casual balance
	// WHEN: Submitting a 5-working-day request
	// THEN: It lands in Pending with one required approval and no debit

	f := newFixture(t)
	result := f.submit(t, "emp-1", "casual", weekStart, weekEnd)

	assert.Equal(t, engine.StatusPending, result.Status)
	assert.Equal(t, 1, result.RequiredApprovals)
	assert.Equal(t, 5, result.WorkingDays)
	assert.True(t, f.usedDays(t, "emp-1", "casual").IsZero(), "submission must not debit")
}

func TestSubmit_LongRequestNeedsTwoApprovals(t *testing.T) {
	// GIVEN: An employee request of 6 working days
	// WHEN: Submitting
	// THEN: Two approvals are required

	f := newFixture(t)
	result := f.submit(t, "emp-1", "casual", weekStart, longEnd)

	assert.Equal(t, engine.StatusPending, result.Status)
	assert.Equal(t, 2, result.RequiredApprovals)
	assert.Equal(t, 6, result.WorkingDays)
}

func TestSubmit_AutoApprovedTypeSkipsQueue(t *testing.T) {
	// GIVEN: Work From Home does not require approval
	// WHEN: Submitting
	// THEN: The request is Approved immediately, balances untouched

	f := newFixture(t)
	result := f.submit(t, "emp-1", "wfh", weekStart, weekEnd)

	assert.Equal(t, engine.StatusApproved, result.Status)
	assert.Equal(t, 0, result.RequiredApprovals)
	assert.True(t, f.usedDays(t, "emp-1", "casual").IsZero())
}

func TestSubmit_PastStartDateRejected(t *testing.T) {
	// GIVEN: Today is February 2, 2026
	// WHEN: Submitting a request starting January 30
	// THEN: Rejected before any write

	f := newFixture(t)
	_, err := f.lc.Submit(context.Background(), engine.SubmitInput{
		UserID: "emp-1",
		TypeID: "casual",
		Start:  engine.NewDate(2026, time.January, 30),
		End:    engine.NewDate(2026, time.February, 3),
	})
	assert.ErrorIs(t, err, engine.ErrValidation)

	history, _ := f.store.RequestsByUser(context.Background(), "emp-1")
	assert.Empty(t, history, "failed submission must leave nothing behind")
}

func TestSubmit_OverlapWithActiveRequest(t *testing.T) {
	// GIVEN: A pending request for March 2-6
	// WHEN: Submitting a second request touching March 6
	// THEN: The conflict names the existing request; nothing is written

	f := newFixture(t)
	first := f.submit(t, "emp-1", "casual", weekStart, weekEnd)

	_, err := f.lc.Submit(context.Background(), engine.SubmitInput{
		UserID: "emp-1",
		TypeID: "sick",
		Start:  weekEnd,
		End:    engine.NewDate(2026, time.March, 10),
	})

	var conflict *engine.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, first.LeaveID, conflict.ExistingID)

	history, _ := f.store.RequestsByUser(context.Background(), "emp-1")
	assert.Len(t, history, 1)
}

func TestSubmit_InsufficientBalance(t *testing.T) {
	// GIVEN: 15 total casual days
	// WHEN: Requesting a 16-calendar-day range
	// THEN: The availability check fails at submission time

	f := newFixture(t)
	_, err := f.lc.Submit(context.Background(), engine.SubmitInput{
		UserID: "emp-1",
		TypeID: "casual",
		Start:  weekStart,
		End:    engine.NewDate(2026, time.March, 17), // 16 calendar days
	})

	var insufficient *engine.InsufficientBalanceError
	assert.ErrorAs(t, err, &insufficient)
}

func TestSubmit_UnknownUserAndType(t *testing.T) {
	// GIVEN: References to entities that do not exist
	// WHEN: Submitting
	// THEN: Typed not-found errors

	f := newFixture(t)

	_, err := f.lc.Submit(context.Background(), engine.SubmitInput{
		UserID: "ghost", TypeID: "casual", Start: weekStart, End: weekEnd,
	})
	assert.ErrorIs(t, err, engine.ErrNotFound)

	_, err = f.lc.Submit(context.Background(), engine.SubmitInput{
		UserID: "emp-1", TypeID: "nope", Start: weekStart, End: weekEnd,
	})
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

// =============================================================================
// DECISION
// =============================================================================

func TestDecide_ManagerApprovalDebitsWorkingDays(t *testing.T) {
	// GIVEN: A pending 5-working-day casual request (7 calendar days
	//        would be the same working count; here exactly the week)
	// WHEN: The manager approves
	// THEN: Status is Approved and exactly 5 working days are debited,
	//       with one audit record appended

	f := newFixture(t)
	submitted := f.submit(t, "emp-1", "casual", weekStart, weekEnd)

	result, err := f.lc.Decide(context.Background(), engine.DecideInput{
		LeaveID:    submitted.LeaveID,
		ApproverID: "mgr-1",
		Action:     engine.DecisionApprove,
		Comments:   "enjoy",
	})
	require.NoError(t, err)
	assert.Equal(t, engine.StatusApproved, result.NewStatus)
	assert.True(t, f.usedDays(t, "emp-1", "casual").Equal(engine.Days(5)))

	records := f.store.Approvals(submitted.LeaveID)
	require.Len(t, records, 1)
	assert.Equal(t, engine.ActionApproved, records[0].Action)
	assert.Equal(t, engine.UserID("mgr-1"), records[0].ApproverID)
}

func TestDecide_RejectionNeverTouchesBalance(t *testing.T) {
	// GIVEN: A pending request
	// WHEN: The manager rejects
	// THEN: Status is Rejected and the balance is unchanged

	f := newFixture(t)
	submitted := f.submit(t, "emp-1", "casual", weekStart, weekEnd)

	result, err := f.lc.Decide(context.Background(), engine.DecideInput{
		LeaveID:    submitted.LeaveID,
		ApproverID: "mgr-1",
		Action:     engine.DecisionReject,
	})
	require.NoError(t, err)
	assert.Equal(t, engine.StatusRejected, result.NewStatus)
	assert.True(t, f.usedDays(t, "emp-1", "casual").IsZero())
}

func TestDecide_LongRequestEscalatesThenAdminApproves(t *testing.T) {
	// GIVEN: A 6-working-day employee request
	// WHEN: The manager approves, then the admin approves
	// THEN: The manager approval escalates without debiting; the admin
	//       approval debits exactly once; both actions are audited

	f := newFixture(t)
	submitted := f.submit(t, "emp-1", "casual", weekStart, longEnd)

	mgr, err := f.lc.Decide(context.Background(), engine.DecideInput{
		LeaveID: submitted.LeaveID, ApproverID: "mgr-1", Action: engine.DecisionApprove,
	})
	require.NoError(t, err)
	assert.Equal(t, engine.StatusAwaitingAdminApproval, mgr.NewStatus)
	assert.True(t, f.usedDays(t, "emp-1", "casual").IsZero(), "escalation must not debit")

	adm, err := f.lc.Decide(context.Background(), engine.DecideInput{
		LeaveID: submitted.LeaveID, ApproverID: "adm-1", Action: engine.DecisionApprove,
	})
	require.NoError(t, err)
	assert.Equal(t, engine.StatusApproved, adm.NewStatus)
	assert.True(t, f.usedDays(t, "emp-1", "casual").Equal(engine.Days(6)))

	assert.Len(t, f.store.Approvals(submitted.LeaveID), 2)
}

func TestDecide_SecondDecisionLosesRace(t *testing.T) {
	// GIVEN: A pending request approved by the manager
	// WHEN: The admin tries to decide the same request afterwards
	// THEN: The second decision fails with a state error and the
	//       balance is debited exactly once

	f := newFixture(t)
	submitted := f.submit(t, "emp-1", "casual", weekStart, weekEnd)

	_, err := f.lc.Decide(context.Background(), engine.DecideInput{
		LeaveID: submitted.LeaveID, ApproverID: "mgr-1", Action: engine.DecisionApprove,
	})
	require.NoError(t, err)

	_, err = f.lc.Decide(context.Background(), engine.DecideInput{
		LeaveID: submitted.LeaveID, ApproverID: "adm-1", Action: engine.DecisionReject,
	})
	assert.ErrorIs(t, err, engine.ErrState)

	assert.True(t, f.usedDays(t, "emp-1", "casual").Equal(engine.Days(5)))
	assert.Len(t, f.store.Approvals(submitted.LeaveID), 1)
}

func TestDecide_ForeignManagerRefused(t *testing.T) {
	// GIVEN: A pending request from emp-1 (managed by mgr-1)
	// WHEN: A different manager decides it
	// THEN: Refused and nothing changes

	f := newFixture(t)
	require.NoError(t, f.store.SaveUser(context.Background(), engine.User{
		ID: "mgr-2", Name: "Mara", Email: "mara@example.com", Role: engine.RoleManager,
	}))
	submitted := f.submit(t, "emp-1", "casual", weekStart, weekEnd)

	_, err := f.lc.Decide(context.Background(), engine.DecideInput{
		LeaveID: submitted.LeaveID, ApproverID: "mgr-2", Action: engine.DecisionApprove,
	})
	assert.ErrorIs(t, err, engine.ErrAuthorization)

	req, _ := f.store.GetRequest(context.Background(), submitted.LeaveID)
	assert.Equal(t, engine.StatusPending, req.Status)
}

// =============================================================================
// CANCELLATION
// =============================================================================

func TestCancel_PendingRequest(t *testing.T) {
	// GIVEN: A pending request
	// WHEN: The owner cancels
	// THEN: Status is Cancelled; no credit because nothing was debited

	f := newFixture(t)
	submitted := f.submit(t, "emp-1", "casual", weekStart, weekEnd)

	require.NoError(t, f.lc.Cancel(context.Background(), submitted.LeaveID, "emp-1"))

	req, _ := f.store.GetRequest(context.Background(), submitted.LeaveID)
	assert.Equal(t, engine.StatusCancelled, req.Status)
	assert.True(t, f.usedDays(t, "emp-1", "casual").IsZero())
}

func TestCancel_ApprovedBeforeStartCreditsBack(t *testing.T) {
	// GIVEN: An approved request that debited 5 working days
	// WHEN: The owner cancels before the start date
	// THEN: The 5 days are credited back in the same transaction

	f := newFixture(t)
	submitted := f.submit(t, "emp-1", "casual", weekStart, weekEnd)
	_, err := f.lc.Decide(context.Background(), engine.DecideInput{
		LeaveID: submitted.LeaveID, ApproverID: "mgr-1", Action: engine.DecisionApprove,
	})
	require.NoError(t, err)
	require.True(t, f.usedDays(t, "emp-1", "casual").Equal(engine.Days(5)))

	require.NoError(t, f.lc.Cancel(context.Background(), submitted.LeaveID, "emp-1"))
	assert.True(t, f.usedDays(t, "emp-1", "casual").IsZero())
}

func TestCancel_ApprovedAfterStartRefused(t *testing.T) {
	// GIVEN: An approved request whose start date has arrived
	// WHEN: The owner cancels
	// THEN: Refused; the leave has begun

	f := newFixture(t)
	submitted := f.submit(t, "emp-1", "casual", weekStart, weekEnd)
	_, err := f.lc.Decide(context.Background(), engine.DecideInput{
		LeaveID: submitted.LeaveID, ApproverID: "mgr-1", Action: engine.DecisionApprove,
	})
	require.NoError(t, err)

	f.lc.SetClock(func() time.Time { return weekStart })
	err = f.lc.Cancel(context.Background(), submitted.LeaveID, "emp-1")
	assert.ErrorIs(t, err, engine.ErrState)
	assert.True(t, f.usedDays(t, "emp-1", "casual").Equal(engine.Days(5)), "no credit on refused cancel")
}

func TestCancel_DoubleCancelRefused(t *testing.T) {
	// GIVEN: An already-cancelled request
	// WHEN: Cancelling again
	// THEN: A state error; the balance is credited at most once

	f := newFixture(t)
	submitted := f.submit(t, "emp-1", "casual", weekStart, weekEnd)
	_, err := f.lc.Decide(context.Background(), engine.DecideInput{
		LeaveID: submitted.LeaveID, ApproverID: "mgr-1", Action: engine.DecisionApprove,
	})
	require.NoError(t, err)

	require.NoError(t, f.lc.Cancel(context.Background(), submitted.LeaveID, "emp-1"))
	err = f.lc.Cancel(context.Background(), submitted.LeaveID, "emp-1")
	assert.ErrorIs(t, err, engine.ErrState)
	assert.True(t, f.usedDays(t, "emp-1", "casual").IsZero())
}

func TestCancel_NonOwnerRefused(t *testing.T) {
	// GIVEN: emp-1's pending request
	// WHEN: emp-2 tries to cancel it
	// THEN: Refused; not even managers may cancel for others

	f := newFixture(t)
	submitted := f.submit(t, "emp-1", "casual", weekStart, weekEnd)

	err := f.lc.Cancel(context.Background(), submitted.LeaveID, "emp-2")
	assert.ErrorIs(t, err, engine.ErrAuthorization)

	err = f.lc.Cancel(context.Background(), submitted.LeaveID, "mgr-1")
	assert.ErrorIs(t, err, engine.ErrAuthorization)
}
