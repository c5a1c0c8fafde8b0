package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/engine"
)

func newViews(f *fixture) *engine.Views {
	return engine.NewViews(f.store, engine.NewRouter(engine.DefaultRoutingPolicy()))
}

func TestViews_PendingForManagerListsOnlyDirectReports(t *testing.T) {
	// GIVEN: Pending requests from two of mgr-1's reports and one
	//        request already decided
	// WHEN: Listing the manager's pending queue
	// THEN: Only the undecided reports' requests appear, oldest first

	f := newFixture(t)
	v := newViews(f)
	ctx := context.Background()

	first := f.submit(t, "emp-1", "casual", weekStart, weekEnd)
	second := f.submit(t, "emp-2", "casual",
		engine.NewDate(2026, time.April, 6), engine.NewDate(2026, time.April, 8))
	_, err := f.lc.Decide(ctx, engine.DecideInput{
		LeaveID: second.LeaveID, ApproverID: "mgr-1", Action: engine.DecisionReject,
	})
	require.NoError(t, err)

	pending, err := v.PendingForManager(ctx, "mgr-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first.LeaveID, pending[0].ID)
}

func TestViews_PendingForManagerRefusesOtherRoles(t *testing.T) {
	// GIVEN: An employee principal
	// WHEN: Asking for a pending queue
	// THEN: Refused; only managers hold one

	f := newFixture(t)
	v := newViews(f)

	_, err := v.PendingForManager(context.Background(), "emp-1")
	assert.ErrorIs(t, err, engine.ErrAuthorization)
}

func TestViews_AwaitingAdminIncludesEscalationsAndManagerRequests(t *testing.T) {
	// GIVEN: An escalated employee request and a manager's own pending
	//        request
	// WHEN: An admin lists the escalation queue
	// THEN: Both appear; plain employee pendings do not

	f := newFixture(t)
	v := newViews(f)
	ctx := context.Background()

	escalated := f.submit(t, "emp-1", "casual", weekStart, longEnd)
	_, err := f.lc.Decide(ctx, engine.DecideInput{
		LeaveID: escalated.LeaveID, ApproverID: "mgr-1", Action: engine.DecisionApprove,
	})
	require.NoError(t, err)

	managerOwn := f.submit(t, "mgr-1", "casual",
		engine.NewDate(2026, time.April, 6), engine.NewDate(2026, time.April, 8))
	f.submit(t, "emp-2", "casual", weekStart, weekEnd)

	queue, err := v.AwaitingAdmin(ctx, "adm-1")
	require.NoError(t, err)
	require.Len(t, queue, 2)

	ids := []engine.LeaveID{queue[0].ID, queue[1].ID}
	assert.Contains(t, ids, escalated.LeaveID)
	assert.Contains(t, ids, managerOwn.LeaveID)
}

func TestViews_AwaitingAdminRefusesNonAdmins(t *testing.T) {
	f := newFixture(t)
	v := newViews(f)

	_, err := v.AwaitingAdmin(context.Background(), "mgr-1")
	assert.ErrorIs(t, err, engine.ErrAuthorization)
}

func TestViews_ApplyableTypesFollowRolePolicy(t *testing.T) {
	// GIVEN: The default role/type policy
	// WHEN: Listing applyable types per role
	// THEN: Employees see Casual/Sick/WFH, interns see LOP/WFH, admins
	//       see nothing

	f := newFixture(t)
	v := newViews(f)
	ctx := context.Background()

	names := func(types []engine.LeaveType) []string {
		out := make([]string, len(types))
		for i, lt := range types {
			out[i] = lt.Name
		}
		return out
	}

	empTypes, err := v.ApplyableTypes(ctx, "emp-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Casual Leave", "Sick Leave", "Work From Home"}, names(empTypes))

	internTypes, err := v.ApplyableTypes(ctx, "int-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Loss of Pay", "Work From Home"}, names(internTypes))

	adminTypes, err := v.ApplyableTypes(ctx, "adm-1")
	require.NoError(t, err)
	assert.Empty(t, adminTypes)
}
