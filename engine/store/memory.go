// Package store provides an in-memory engine.TxStore for tests and
// local development. The SQLite implementation in store/sqlite is the
// production store.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	users      map[engine.UserID]engine.User
	leaveTypes map[engine.LeaveTypeID]engine.LeaveType
	requests   map[engine.LeaveID]engine.LeaveRequest
	balances   map[engine.BalanceKey]engine.LeaveBalance
	approvals  []engine.ApprovalRecord
}

func NewMemory() *Memory {
	return &Memory{
		users:      make(map[engine.UserID]engine.User),
		leaveTypes: make(map[engine.LeaveTypeID]engine.LeaveType),
		requests:   make(map[engine.LeaveID]engine.LeaveRequest),
		balances:   make(map[engine.BalanceKey]engine.LeaveBalance),
	}
}

// -----------------------------------------------------------------------------
// Users
// -----------------------------------------------------------------------------

func (m *Memory) GetUser(_ context.Context, id engine.UserID) (*engine.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getUserLocked(id), nil
}

func (m *Memory) getUserLocked(id engine.UserID) *engine.User {
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	return &u
}

func (m *Memory) SaveUser(_ context.Context, u engine.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *Memory) DirectReports(_ context.Context, managerID engine.UserID) ([]engine.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.directReportsLocked(managerID), nil
}

func (m *Memory) directReportsLocked(managerID engine.UserID) []engine.User {
	var out []engine.User
	for _, u := range m.users {
		if u.ManagerID != nil && *u.ManagerID == managerID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// -----------------------------------------------------------------------------
// Leave types
// -----------------------------------------------------------------------------

func (m *Memory) GetLeaveType(_ context.Context, id engine.LeaveTypeID) (*engine.LeaveType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lt, ok := m.leaveTypes[id]
	if !ok {
		return nil, nil
	}
	return &lt, nil
}

func (m *Memory) LeaveTypes(_ context.Context) ([]engine.LeaveType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]engine.LeaveType, 0, len(m.leaveTypes))
	for _, lt := range m.leaveTypes {
		out = append(out, lt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) SaveLeaveType(_ context.Context, lt engine.LeaveType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaveTypes[lt.ID] = lt
	return nil
}

// -----------------------------------------------------------------------------
// Leave requests
// -----------------------------------------------------------------------------

func (m *Memory) GetRequest(_ context.Context, id engine.LeaveID) (*engine.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getRequestLocked(id), nil
}

func (m *Memory) getRequestLocked(id engine.LeaveID) *engine.LeaveRequest {
	r, ok := m.requests[id]
	if !ok {
		return nil
	}
	return &r
}

func (m *Memory) SaveRequest(_ context.Context, r engine.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveRequestLocked(r)
}

func (m *Memory) saveRequestLocked(r engine.LeaveRequest) error {
	m.requests[r.ID] = r
	return nil
}

func (m *Memory) ActiveRequests(_ context.Context, userID engine.UserID) ([]engine.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.LeaveRequest
	for _, r := range m.requests {
		if r.UserID != userID {
			continue
		}
		switch r.Status {
		case engine.StatusPending, engine.StatusAwaitingAdminApproval, engine.StatusApproved:
			out = append(out, r)
		}
	}
	sortOldestFirst(out)
	return out, nil
}

func (m *Memory) RequestsByUser(_ context.Context, userID engine.UserID) ([]engine.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.LeaveRequest
	for _, r := range m.requests {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	// Newest first for history views.
	sort.Slice(out, func(i, j int) bool { return out[i].AppliedAt.After(out[j].AppliedAt) })
	return out, nil
}

func (m *Memory) PendingByUsers(_ context.Context, userIDs []engine.UserID) ([]engine.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	members := make(map[engine.UserID]bool, len(userIDs))
	for _, id := range userIDs {
		members[id] = true
	}
	var out []engine.LeaveRequest
	for _, r := range m.requests {
		if r.Status == engine.StatusPending && members[r.UserID] {
			out = append(out, r)
		}
	}
	sortOldestFirst(out)
	return out, nil
}

func (m *Memory) AwaitingAdminDecision(_ context.Context) ([]engine.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.LeaveRequest
	for _, r := range m.requests {
		switch r.Status {
		case engine.StatusAwaitingAdminApproval:
			out = append(out, r)
		case engine.StatusPending:
			// Managers have no manager of their own, so their pending
			// requests land on the admin queue directly.
			if u, ok := m.users[r.UserID]; ok && u.Role == engine.RoleManager {
				out = append(out, r)
			}
		}
	}
	sortOldestFirst(out)
	return out, nil
}

func (m *Memory) TransitionRequest(_ context.Context, id engine.LeaveID, from []engine.LeaveStatus, to engine.LeaveStatus, by engine.UserID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitionLocked(id, from, to, by, at)
}

func (m *Memory) transitionLocked(id engine.LeaveID, from []engine.LeaveStatus, to engine.LeaveStatus, by engine.UserID, at time.Time) (bool, error) {
	r, ok := m.requests[id]
	if !ok {
		return false, nil
	}
	matched := false
	for _, s := range from {
		if r.Status == s {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	r.Status = to
	r.ProcessedBy = &by
	r.ProcessedAt = &at
	m.requests[id] = r
	return true, nil
}

// -----------------------------------------------------------------------------
// Balances
// -----------------------------------------------------------------------------

func (m *Memory) GetBalance(_ context.Context, key engine.BalanceKey) (*engine.LeaveBalance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getBalanceLocked(key), nil
}

func (m *Memory) getBalanceLocked(key engine.BalanceKey) *engine.LeaveBalance {
	b, ok := m.balances[key]
	if !ok {
		return nil
	}
	return &b
}

func (m *Memory) SaveBalance(_ context.Context, b engine.LeaveBalance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveBalanceLocked(b)
}

func (m *Memory) saveBalanceLocked(b engine.LeaveBalance) error {
	m.balances[engine.BalanceKey{UserID: b.UserID, TypeID: b.TypeID, Year: b.Year}] = b
	return nil
}

func (m *Memory) SetUsedDays(_ context.Context, key engine.BalanceKey, used decimal.Decimal) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setUsedDaysLocked(key, used)
}

func (m *Memory) setUsedDaysLocked(key engine.BalanceKey, used decimal.Decimal) (bool, error) {
	b, ok := m.balances[key]
	if !ok {
		return false, nil
	}
	b.UsedDays = used
	m.balances[key] = b
	return true, nil
}

func (m *Memory) BalancesByUser(_ context.Context, userID engine.UserID, year int) ([]engine.LeaveBalance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.LeaveBalance
	for k, b := range m.balances {
		if k.UserID == userID && k.Year == year {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TypeID < out[j].TypeID })
	return out, nil
}

// -----------------------------------------------------------------------------
// Approval audit
// -----------------------------------------------------------------------------

func (m *Memory) AppendApproval(_ context.Context, rec engine.ApprovalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendApprovalLocked(rec)
}

func (m *Memory) appendApprovalLocked(rec engine.ApprovalRecord) error {
	m.approvals = append(m.approvals, rec)
	return nil
}

// Approvals returns the audit rows for one request, oldest first.
// Test helper; not part of the engine.Store contract.
func (m *Memory) Approvals(leaveID engine.LeaveID) []engine.ApprovalRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.ApprovalRecord
	for _, rec := range m.approvals {
		if rec.LeaveID == leaveID {
			out = append(out, rec)
		}
	}
	return out
}

func sortOldestFirst(rs []engine.LeaveRequest) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].AppliedAt.Before(rs[j].AppliedAt) })
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction, simulated with a snapshot
// and rollback on error. The store lock is held for the duration, so
// transactions serialize.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(engine.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snap := tm.snapshot()
	view := &txMemoryView{parent: tm}

	if err := fn(view); err != nil {
		tm.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	users      map[engine.UserID]engine.User
	leaveTypes map[engine.LeaveTypeID]engine.LeaveType
	requests   map[engine.LeaveID]engine.LeaveRequest
	balances   map[engine.BalanceKey]engine.LeaveBalance
	approvals  []engine.ApprovalRecord
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		users:      make(map[engine.UserID]engine.User, len(tm.users)),
		leaveTypes: make(map[engine.LeaveTypeID]engine.LeaveType, len(tm.leaveTypes)),
		requests:   make(map[engine.LeaveID]engine.LeaveRequest, len(tm.requests)),
		balances:   make(map[engine.BalanceKey]engine.LeaveBalance, len(tm.balances)),
		approvals:  append([]engine.ApprovalRecord{}, tm.approvals...),
	}
	for k, v := range tm.users {
		s.users[k] = v
	}
	for k, v := range tm.leaveTypes {
		s.leaveTypes[k] = v
	}
	for k, v := range tm.requests {
		s.requests[k] = v
	}
	for k, v := range tm.balances {
		s.balances[k] = v
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.users = s.users
	tm.leaveTypes = s.leaveTypes
	tm.requests = s.requests
	tm.balances = s.balances
	tm.approvals = s.approvals
}

// txMemoryView routes writes to the parent's locked helpers; the
// parent holds the lock for the whole transaction.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) GetUser(_ context.Context, id engine.UserID) (*engine.User, error) {
	return tv.parent.getUserLocked(id), nil
}

func (tv *txMemoryView) SaveUser(_ context.Context, u engine.User) error {
	tv.parent.users[u.ID] = u
	return nil
}

func (tv *txMemoryView) DirectReports(_ context.Context, managerID engine.UserID) ([]engine.User, error) {
	return tv.parent.directReportsLocked(managerID), nil
}

func (tv *txMemoryView) GetLeaveType(_ context.Context, id engine.LeaveTypeID) (*engine.LeaveType, error) {
	lt, ok := tv.parent.leaveTypes[id]
	if !ok {
		return nil, nil
	}
	return &lt, nil
}

func (tv *txMemoryView) LeaveTypes(_ context.Context) ([]engine.LeaveType, error) {
	out := make([]engine.LeaveType, 0, len(tv.parent.leaveTypes))
	for _, lt := range tv.parent.leaveTypes {
		out = append(out, lt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (tv *txMemoryView) SaveLeaveType(_ context.Context, lt engine.LeaveType) error {
	tv.parent.leaveTypes[lt.ID] = lt
	return nil
}

func (tv *txMemoryView) GetRequest(_ context.Context, id engine.LeaveID) (*engine.LeaveRequest, error) {
	return tv.parent.getRequestLocked(id), nil
}

func (tv *txMemoryView) SaveRequest(_ context.Context, r engine.LeaveRequest) error {
	return tv.parent.saveRequestLocked(r)
}

func (tv *txMemoryView) ActiveRequests(ctx context.Context, userID engine.UserID) ([]engine.LeaveRequest, error) {
	var out []engine.LeaveRequest
	for _, r := range tv.parent.requests {
		if r.UserID != userID {
			continue
		}
		switch r.Status {
		case engine.StatusPending, engine.StatusAwaitingAdminApproval, engine.StatusApproved:
			out = append(out, r)
		}
	}
	sortOldestFirst(out)
	return out, nil
}

func (tv *txMemoryView) RequestsByUser(ctx context.Context, userID engine.UserID) ([]engine.LeaveRequest, error) {
	var out []engine.LeaveRequest
	for _, r := range tv.parent.requests {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppliedAt.After(out[j].AppliedAt) })
	return out, nil
}

func (tv *txMemoryView) PendingByUsers(ctx context.Context, userIDs []engine.UserID) ([]engine.LeaveRequest, error) {
	members := make(map[engine.UserID]bool, len(userIDs))
	for _, id := range userIDs {
		members[id] = true
	}
	var out []engine.LeaveRequest
	for _, r := range tv.parent.requests {
		if r.Status == engine.StatusPending && members[r.UserID] {
			out = append(out, r)
		}
	}
	sortOldestFirst(out)
	return out, nil
}

func (tv *txMemoryView) AwaitingAdminDecision(ctx context.Context) ([]engine.LeaveRequest, error) {
	var out []engine.LeaveRequest
	for _, r := range tv.parent.requests {
		switch r.Status {
		case engine.StatusAwaitingAdminApproval:
			out = append(out, r)
		case engine.StatusPending:
			if u, ok := tv.parent.users[r.UserID]; ok && u.Role == engine.RoleManager {
				out = append(out, r)
			}
		}
	}
	sortOldestFirst(out)
	return out, nil
}

func (tv *txMemoryView) TransitionRequest(_ context.Context, id engine.LeaveID, from []engine.LeaveStatus, to engine.LeaveStatus, by engine.UserID, at time.Time) (bool, error) {
	return tv.parent.transitionLocked(id, from, to, by, at)
}

func (tv *txMemoryView) GetBalance(_ context.Context, key engine.BalanceKey) (*engine.LeaveBalance, error) {
	return tv.parent.getBalanceLocked(key), nil
}

func (tv *txMemoryView) SaveBalance(_ context.Context, b engine.LeaveBalance) error {
	return tv.parent.saveBalanceLocked(b)
}

func (tv *txMemoryView) SetUsedDays(_ context.Context, key engine.BalanceKey, used decimal.Decimal) (bool, error) {
	return tv.parent.setUsedDaysLocked(key, used)
}

func (tv *txMemoryView) BalancesByUser(ctx context.Context, userID engine.UserID, year int) ([]engine.LeaveBalance, error) {
	var out []engine.LeaveBalance
	for k, b := range tv.parent.balances {
		if k.UserID == userID && k.Year == year {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TypeID < out[j].TypeID })
	return out, nil
}

func (tv *txMemoryView) AppendApproval(_ context.Context, rec engine.ApprovalRecord) error {
	return tv.parent.appendApprovalLocked(rec)
}
