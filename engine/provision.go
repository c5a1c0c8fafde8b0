/*
provision.go - User creation and initial balance seeding

PURPOSE:
  Provisioning is the only code path that creates balance rows. Each
  role is seeded with its entitlements for the current year at creation
  time; the ledger then only moves used-days within those rows.

HIERARCHY INVARIANTS:
  - Employees and interns may carry a manager reference; the referenced
    user must exist and hold a managing role.
  - Managers and admins never carry a manager reference.
  - Nobody manages themselves.
*/
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InitialBalanceRule seeds one balance row at provisioning time.
// Leave types are matched by name so the policy stays independent of
// generated IDs.
type InitialBalanceRule struct {
	LeaveTypeName string
	InitialDays   decimal.Decimal
}

// ProvisionPolicy maps a role to its initial entitlements.
type ProvisionPolicy map[Role][]InitialBalanceRule

// DefaultProvisionPolicy returns the production entitlements. The
// intern Loss of Pay pool is effectively unmetered; the huge total
// exists so the row participates in the same accounting as every
// other balance.
func DefaultProvisionPolicy() ProvisionPolicy {
	return ProvisionPolicy{
		RoleEmployee: {
			{LeaveTypeName: "Casual Leave", InitialDays: decimal.NewFromInt(15)},
			{LeaveTypeName: "Sick Leave", InitialDays: decimal.NewFromInt(15)},
		},
		RoleManager: {
			{LeaveTypeName: "Casual Leave", InitialDays: decimal.NewFromInt(15)},
			{LeaveTypeName: "Sick Leave", InitialDays: decimal.NewFromInt(15)},
		},
		RoleIntern: {
			{LeaveTypeName: "Loss of Pay", InitialDays: decimal.NewFromInt(999999)},
		},
		// Admins hold no balances.
	}
}

// Provisioner creates users and seeds their balances.
type Provisioner struct {
	store  TxStore
	policy ProvisionPolicy
	now    func() time.Time
}

func NewProvisioner(store TxStore, policy ProvisionPolicy) *Provisioner {
	return &Provisioner{store: store, policy: policy, now: time.Now}
}

// ProvisionInput describes a user to create.
type ProvisionInput struct {
	Name      string
	Email     string
	Role      Role
	ManagerID *UserID
}

// Provision creates the user and seeds the role's current-year
// balances in one transaction.
func (p *Provisioner) Provision(ctx context.Context, in ProvisionInput) (*User, error) {
	if in.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "name is required"}
	}
	if in.Email == "" {
		return nil, &ValidationError{Field: "email", Message: "email is required"}
	}
	if !in.Role.Valid() {
		return nil, &ValidationError{Field: "role", Message: "unknown role"}
	}

	if in.Role.CanManage() && in.ManagerID != nil {
		return nil, &ValidationError{Field: "managerId",
			Message: fmt.Sprintf("a %s cannot have a manager assigned", in.Role)}
	}
	if in.ManagerID != nil {
		mgr, err := p.store.GetUser(ctx, *in.ManagerID)
		if err != nil {
			return nil, fmt.Errorf("load manager: %w", err)
		}
		if mgr == nil {
			return nil, &NotFoundError{Kind: "user", ID: string(*in.ManagerID)}
		}
		if !mgr.Role.CanManage() {
			return nil, &ValidationError{Field: "managerId",
				Message: fmt.Sprintf("user %s holds role %s and cannot manage others", mgr.ID, mgr.Role)}
		}
	}

	user := User{
		ID:        UserID(uuid.NewString()),
		Name:      in.Name,
		Email:     in.Email,
		Role:      in.Role,
		ManagerID: in.ManagerID,
	}

	types, err := p.store.LeaveTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load leave types: %w", err)
	}
	byName := make(map[string]LeaveType, len(types))
	for _, lt := range types {
		byName[lt.Name] = lt
	}

	year := p.now().UTC().Year()
	err = p.store.WithTx(ctx, func(s Store) error {
		if err := s.SaveUser(ctx, user); err != nil {
			return fmt.Errorf("save user: %w", err)
		}
		for _, rule := range p.policy[in.Role] {
			lt, ok := byName[rule.LeaveTypeName]
			if !ok {
				return &NotFoundError{Kind: "leave type", ID: rule.LeaveTypeName}
			}
			b := LeaveBalance{
				UserID:    user.ID,
				TypeID:    lt.ID,
				Year:      year,
				TotalDays: rule.InitialDays,
				UsedDays:  decimal.Zero,
			}
			if err := s.SaveBalance(ctx, b); err != nil {
				return fmt.Errorf("seed balance %s: %w", rule.LeaveTypeName, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// DefaultLeaveTypes returns the seed catalogue installed on first run.
func DefaultLeaveTypes() []LeaveType {
	return []LeaveType{
		{ID: LeaveTypeID(uuid.NewString()), Name: "Casual Leave", RequiresApproval: true, BalanceBased: true},
		{ID: LeaveTypeID(uuid.NewString()), Name: "Sick Leave", RequiresApproval: true, BalanceBased: true},
		{ID: LeaveTypeID(uuid.NewString()), Name: "Loss of Pay", RequiresApproval: true, BalanceBased: false},
		{ID: LeaveTypeID(uuid.NewString()), Name: "Work From Home", RequiresApproval: false, BalanceBased: false},
	}
}
