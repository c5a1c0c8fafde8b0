/*
views.go - Read-side queries over the store

PURPOSE:
  Pure read paths consumed by the HTTP layer. None of these mutate
  state; they compose store lookups with the routing policy to answer
  "what can I see / apply for / act on".
*/
package engine

import (
	"context"
	"fmt"
)

// Views bundles the read-side queries.
type Views struct {
	store  Store
	router *Router
}

func NewViews(store Store, router *Router) *Views {
	return &Views{store: store, router: router}
}

// History returns the user's own requests, newest first.
func (v *Views) History(ctx context.Context, userID UserID) ([]LeaveRequest, error) {
	return v.store.RequestsByUser(ctx, userID)
}

// Balances returns the user's balance rows for the given year.
func (v *Views) Balances(ctx context.Context, userID UserID, year int) ([]LeaveBalance, error) {
	return v.store.BalancesByUser(ctx, userID, year)
}

// ApplyableTypes returns the leave types the user's role may apply
// for, per the routing policy. Admins get an empty list.
func (v *Views) ApplyableTypes(ctx context.Context, userID UserID) ([]LeaveType, error) {
	user, err := v.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, &NotFoundError{Kind: "user", ID: string(userID)}
	}

	all, err := v.store.LeaveTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load leave types: %w", err)
	}

	var allowed []LeaveType
	for _, lt := range all {
		if v.router.Policy.AllowsType(user.Role, lt.Name) {
			allowed = append(allowed, lt)
		}
	}
	return allowed, nil
}

// PendingForManager returns the Pending requests of the manager's
// direct reports, oldest first. Only managers hold a pending queue.
func (v *Views) PendingForManager(ctx context.Context, managerID UserID) ([]LeaveRequest, error) {
	manager, err := v.store.GetUser(ctx, managerID)
	if err != nil {
		return nil, fmt.Errorf("load manager: %w", err)
	}
	if manager == nil {
		return nil, &NotFoundError{Kind: "user", ID: string(managerID)}
	}
	if manager.Role != RoleManager {
		return nil, &AuthorizationError{Message: "only managers have a pending approval queue"}
	}

	reports, err := v.store.DirectReports(ctx, managerID)
	if err != nil {
		return nil, fmt.Errorf("load direct reports: %w", err)
	}
	if len(reports) == 0 {
		return nil, nil
	}

	ids := make([]UserID, len(reports))
	for i, r := range reports {
		ids[i] = r.ID
	}
	return v.store.PendingByUsers(ctx, ids)
}

// AwaitingAdmin returns the requests an admin can decide: everything
// escalated to Awaiting_Admin_Approval, plus Pending requests
// submitted by managers.
func (v *Views) AwaitingAdmin(ctx context.Context, adminID UserID) ([]LeaveRequest, error) {
	admin, err := v.store.GetUser(ctx, adminID)
	if err != nil {
		return nil, fmt.Errorf("load admin: %w", err)
	}
	if admin == nil {
		return nil, &NotFoundError{Kind: "user", ID: string(adminID)}
	}
	if admin.Role != RoleAdmin {
		return nil, &AuthorizationError{Message: "only admins can view the escalation queue"}
	}
	return v.store.AwaitingAdminDecision(ctx)
}
