package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/engine"
	"github.com/warp/leave-engine/engine/store"
)

func currentYear() int {
	return time.Now().UTC().Year()
}

func newProvisioner(t *testing.T) (*engine.Provisioner, *store.TxMemory) {
	t.Helper()
	m := store.NewTxMemory()
	ctx := context.Background()
	for _, lt := range []engine.LeaveType{
		{ID: "casual", Name: "Casual Leave", RequiresApproval: true, BalanceBased: true},
		{ID: "sick", Name: "Sick Leave", RequiresApproval: true, BalanceBased: true},
		{ID: "lop", Name: "Loss of Pay", RequiresApproval: true, BalanceBased: false},
		{ID: "wfh", Name: "Work From Home", RequiresApproval: false, BalanceBased: false},
	} {
		require.NoError(t, m.SaveLeaveType(ctx, lt))
	}
	return engine.NewProvisioner(m, engine.DefaultProvisionPolicy()), m
}

func TestProvision_EmployeeGetsSeededBalances(t *testing.T) {
	// GIVEN: The default entitlement policy
	// WHEN: Provisioning an employee under a manager
	// THEN: Casual and Sick rows exist for the current year with 15
	//       days each and zero used

	p, m := newProvisioner(t)
	ctx := context.Background()

	mgr, err := p.Provision(ctx, engine.ProvisionInput{
		Name: "Morgan", Email: "morgan@example.com", Role: engine.RoleManager,
	})
	require.NoError(t, err)

	emp, err := p.Provision(ctx, engine.ProvisionInput{
		Name: "Evan", Email: "evan@example.com", Role: engine.RoleEmployee, ManagerID: &mgr.ID,
	})
	require.NoError(t, err)

	balances, err := m.BalancesByUser(ctx, emp.ID, currentYear())
	require.NoError(t, err)
	require.Len(t, balances, 2)
	for _, b := range balances {
		assert.True(t, b.TotalDays.Equal(engine.Days(15)))
		assert.True(t, b.UsedDays.IsZero())
	}
}

func TestProvision_InternGetsLossOfPayPool(t *testing.T) {
	// GIVEN: The default entitlement policy
	// WHEN: Provisioning an intern
	// THEN: A single Loss of Pay row exists with the unmetered total

	p, m := newProvisioner(t)
	ctx := context.Background()

	mgr, err := p.Provision(ctx, engine.ProvisionInput{
		Name: "Morgan", Email: "morgan@example.com", Role: engine.RoleManager,
	})
	require.NoError(t, err)

	intern, err := p.Provision(ctx, engine.ProvisionInput{
		Name: "Iris", Email: "iris@example.com", Role: engine.RoleIntern, ManagerID: &mgr.ID,
	})
	require.NoError(t, err)

	balances, err := m.BalancesByUser(ctx, intern.ID, currentYear())
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, engine.LeaveTypeID("lop"), balances[0].TypeID)
	assert.True(t, balances[0].TotalDays.Equal(engine.Days(999999)))
}

func TestProvision_AdminGetsNoBalances(t *testing.T) {
	// GIVEN: Admins do not apply for leave
	// WHEN: Provisioning an admin
	// THEN: No balance rows are created

	p, m := newProvisioner(t)
	ctx := context.Background()

	admin, err := p.Provision(ctx, engine.ProvisionInput{
		Name: "Ada", Email: "ada@example.com", Role: engine.RoleAdmin,
	})
	require.NoError(t, err)

	balances, err := m.BalancesByUser(ctx, admin.ID, currentYear())
	require.NoError(t, err)
	assert.Empty(t, balances)
}

func TestProvision_ManagerCannotHaveManager(t *testing.T) {
	// GIVEN: A managing role
	// WHEN: Provisioning with a manager reference
	// THEN: Rejected; managers and admins sit at the top of their chain

	p, _ := newProvisioner(t)
	ctx := context.Background()

	mgr, err := p.Provision(ctx, engine.ProvisionInput{
		Name: "Morgan", Email: "morgan@example.com", Role: engine.RoleManager,
	})
	require.NoError(t, err)

	_, err = p.Provision(ctx, engine.ProvisionInput{
		Name: "Mara", Email: "mara@example.com", Role: engine.RoleManager, ManagerID: &mgr.ID,
	})
	assert.ErrorIs(t, err, engine.ErrValidation)
}

func TestProvision_ManagerMustHoldManagingRole(t *testing.T) {
	// GIVEN: An existing employee
	// WHEN: Provisioning a user managed by that employee
	// THEN: Rejected; only managers and admins carry reports

	p, _ := newProvisioner(t)
	ctx := context.Background()

	mgr, err := p.Provision(ctx, engine.ProvisionInput{
		Name: "Morgan", Email: "morgan@example.com", Role: engine.RoleManager,
	})
	require.NoError(t, err)
	emp, err := p.Provision(ctx, engine.ProvisionInput{
		Name: "Evan", Email: "evan@example.com", Role: engine.RoleEmployee, ManagerID: &mgr.ID,
	})
	require.NoError(t, err)

	_, err = p.Provision(ctx, engine.ProvisionInput{
		Name: "Nina", Email: "nina@example.com", Role: engine.RoleEmployee, ManagerID: &emp.ID,
	})
	assert.ErrorIs(t, err, engine.ErrValidation)
}

func TestProvision_UnknownManagerRejected(t *testing.T) {
	// GIVEN: A manager reference that does not exist
	// WHEN: Provisioning
	// THEN: Not found, and no user row is left behind

	p, _ := newProvisioner(t)
	ghost := engine.UserID("ghost")

	_, err := p.Provision(context.Background(), engine.ProvisionInput{
		Name: "Evan", Email: "evan@example.com", Role: engine.RoleEmployee, ManagerID: &ghost,
	})
	assert.ErrorIs(t, err, engine.ErrNotFound)
}
