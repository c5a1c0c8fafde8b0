/*
Package sqlite provides the SQLite-backed implementation of the
engine storage interfaces.

PURPOSE:
  Implements engine.Store and engine.TxStore using SQLite. The same
  patterns apply to PostgreSQL; only minor SQL dialect differences.

KEY TABLES:
  users:            Principals with role and manager reference
  leave_types:      Absence categories and their flags
  leave_requests:   Applications with status and processing stamps
  leave_balances:   One row per (user, type, year); used_days mutable
  leave_approvals:  Append-only audit of approver actions

AT-MOST-ONE-DECISION:
  TransitionRequest is a single conditional UPDATE guarded by the
  expected statuses. The rows-affected count decides the race: the
  loser sees zero rows and no error.

DECIMAL STORAGE:
  Day amounts are stored as decimal strings (TEXT), never floats, so
  two-decimal precision survives round-trips exactly.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better
  concurrency: multiple readers don't block, a single writer at a
  time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - engine/store.go: Interface definitions
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/engine"
)

const dateLayout = "2006-01-02"

// Store implements engine.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		role INTEGER NOT NULL,
		manager_id TEXT REFERENCES users(id)
	);

	CREATE INDEX IF NOT EXISTS idx_users_manager
		ON users(manager_id) WHERE manager_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS leave_types (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		requires_approval BOOLEAN NOT NULL DEFAULT TRUE,
		balance_based BOOLEAN NOT NULL DEFAULT FALSE,
		debit_on_auto_approve BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		type_id TEXT NOT NULL REFERENCES leave_types(id),
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		required_approvals INTEGER NOT NULL DEFAULT 1,
		processed_by TEXT,
		processed_at TEXT,
		applied_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON leave_requests(status);
	-- Hot path: overlap checks scan the user's active set
	CREATE INDEX IF NOT EXISTS idx_requests_user_status
		ON leave_requests(user_id, status);

	-- Day amounts stored as decimal strings, never floats
	CREATE TABLE IF NOT EXISTS leave_balances (
		user_id TEXT NOT NULL REFERENCES users(id),
		type_id TEXT NOT NULL REFERENCES leave_types(id),
		year INTEGER NOT NULL,
		total_days TEXT NOT NULL,
		used_days TEXT NOT NULL,
		PRIMARY KEY (user_id, type_id, year)
	);

	-- Approval audit (append-only: no UPDATE, no DELETE)
	CREATE TABLE IF NOT EXISTS leave_approvals (
		id TEXT PRIMARY KEY,
		leave_id TEXT NOT NULL REFERENCES leave_requests(id),
		approver_id TEXT NOT NULL REFERENCES users(id),
		action TEXT NOT NULL,
		comments TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_approvals_leave
		ON leave_approvals(leave_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx so the query helpers
// run inside and outside transactions.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// USERS
// =============================================================================

func (s *Store) GetUser(ctx context.Context, id engine.UserID) (*engine.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getUser(ctx, s.db, id)
}

func getUser(ctx context.Context, q dbtx, id engine.UserID) (*engine.User, error) {
	row := q.QueryRowContext(ctx,
		"SELECT id, name, email, role, manager_id FROM users WHERE id = ?", string(id))

	var u engine.User
	var managerID sql.NullString
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &managerID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	if managerID.Valid {
		mid := engine.UserID(managerID.String)
		u.ManagerID = &mid
	}
	return &u, nil
}

func (s *Store) SaveUser(ctx context.Context, u engine.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveUser(ctx, s.db, u)
}

func saveUser(ctx context.Context, q dbtx, u engine.User) error {
	var managerID any
	if u.ManagerID != nil {
		managerID = string(*u.ManagerID)
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO users (id, name, email, role, manager_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			role = excluded.role,
			manager_id = excluded.manager_id
	`, string(u.ID), u.Name, u.Email, int(u.Role), managerID)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (s *Store) DirectReports(ctx context.Context, managerID engine.UserID) ([]engine.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return directReports(ctx, s.db, managerID)
}

func directReports(ctx context.Context, q dbtx, managerID engine.UserID) ([]engine.User, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, name, email, role, manager_id FROM users WHERE manager_id = ? ORDER BY id",
		string(managerID))
	if err != nil {
		return nil, fmt.Errorf("failed to query direct reports: %w", err)
	}
	defer rows.Close()

	var users []engine.User
	for rows.Next() {
		var u engine.User
		var mid sql.NullString
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &mid); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		if mid.Valid {
			m := engine.UserID(mid.String)
			u.ManagerID = &m
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// =============================================================================
// LEAVE TYPES
// =============================================================================

func (s *Store) GetLeaveType(ctx context.Context, id engine.LeaveTypeID) (*engine.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getLeaveType(ctx, s.db, id)
}

func getLeaveType(ctx context.Context, q dbtx, id engine.LeaveTypeID) (*engine.LeaveType, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, requires_approval, balance_based, debit_on_auto_approve
		FROM leave_types WHERE id = ?`, string(id))

	var lt engine.LeaveType
	err := row.Scan(&lt.ID, &lt.Name, &lt.RequiresApproval, &lt.BalanceBased, &lt.DebitOnAutoApprove)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan leave type: %w", err)
	}
	return &lt, nil
}

func (s *Store) LeaveTypes(ctx context.Context) ([]engine.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return leaveTypes(ctx, s.db)
}

func leaveTypes(ctx context.Context, q dbtx) ([]engine.LeaveType, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, requires_approval, balance_based, debit_on_auto_approve
		FROM leave_types ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave types: %w", err)
	}
	defer rows.Close()

	var types []engine.LeaveType
	for rows.Next() {
		var lt engine.LeaveType
		if err := rows.Scan(&lt.ID, &lt.Name, &lt.RequiresApproval, &lt.BalanceBased, &lt.DebitOnAutoApprove); err != nil {
			return nil, fmt.Errorf("failed to scan leave type: %w", err)
		}
		types = append(types, lt)
	}
	return types, rows.Err()
}

func (s *Store) SaveLeaveType(ctx context.Context, lt engine.LeaveType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveLeaveType(ctx, s.db, lt)
}

func saveLeaveType(ctx context.Context, q dbtx, lt engine.LeaveType) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO leave_types (id, name, requires_approval, balance_based, debit_on_auto_approve)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			requires_approval = excluded.requires_approval,
			balance_based = excluded.balance_based,
			debit_on_auto_approve = excluded.debit_on_auto_approve
	`, string(lt.ID), lt.Name, lt.RequiresApproval, lt.BalanceBased, lt.DebitOnAutoApprove)
	if err != nil {
		return fmt.Errorf("failed to save leave type: %w", err)
	}
	return nil
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

const requestColumns = `id, user_id, type_id, start_date, end_date, reason,
	status, required_approvals, processed_by, processed_at, applied_at`

func (s *Store) GetRequest(ctx context.Context, id engine.LeaveID) (*engine.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getRequest(ctx, s.db, id)
}

func getRequest(ctx context.Context, q dbtx, id engine.LeaveID) (*engine.LeaveRequest, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+requestColumns+" FROM leave_requests WHERE id = ?", string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to query request: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	r, err := scanRequest(rows)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) SaveRequest(ctx context.Context, r engine.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveRequest(ctx, s.db, r)
}

func saveRequest(ctx context.Context, q dbtx, r engine.LeaveRequest) error {
	var processedBy, processedAt any
	if r.ProcessedBy != nil {
		processedBy = string(*r.ProcessedBy)
	}
	if r.ProcessedAt != nil {
		processedAt = r.ProcessedAt.UTC().Format(time.RFC3339)
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO leave_requests
		(id, user_id, type_id, start_date, end_date, reason,
		 status, required_approvals, processed_by, processed_at, applied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		string(r.ID), string(r.UserID), string(r.TypeID),
		r.Start.Format(dateLayout), r.End.Format(dateLayout), r.Reason,
		string(r.Status), r.RequiredApprovals, processedBy, processedAt,
		r.AppliedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save request: %w", err)
	}
	return nil
}

func (s *Store) ActiveRequests(ctx context.Context, userID engine.UserID) ([]engine.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return activeRequests(ctx, s.db, userID)
}

func activeRequests(ctx context.Context, q dbtx, userID engine.UserID) ([]engine.LeaveRequest, error) {
	return queryRequests(ctx, q, `
		SELECT `+requestColumns+` FROM leave_requests
		WHERE user_id = ? AND status IN (?, ?, ?)
		ORDER BY applied_at ASC`,
		string(userID),
		string(engine.StatusPending),
		string(engine.StatusAwaitingAdminApproval),
		string(engine.StatusApproved),
	)
}

func (s *Store) RequestsByUser(ctx context.Context, userID engine.UserID) ([]engine.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return requestsByUser(ctx, s.db, userID)
}

func requestsByUser(ctx context.Context, q dbtx, userID engine.UserID) ([]engine.LeaveRequest, error) {
	return queryRequests(ctx, q, `
		SELECT `+requestColumns+` FROM leave_requests
		WHERE user_id = ?
		ORDER BY applied_at DESC`, string(userID))
}

func (s *Store) PendingByUsers(ctx context.Context, userIDs []engine.UserID) ([]engine.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pendingByUsers(ctx, s.db, userIDs)
}

func pendingByUsers(ctx context.Context, q dbtx, userIDs []engine.UserID) ([]engine.LeaveRequest, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(userIDs)), ", ")
	args := make([]any, 0, len(userIDs)+1)
	args = append(args, string(engine.StatusPending))
	for _, id := range userIDs {
		args = append(args, string(id))
	}
	return queryRequests(ctx, q, `
		SELECT `+requestColumns+` FROM leave_requests
		WHERE status = ? AND user_id IN (`+placeholders+`)
		ORDER BY applied_at ASC`, args...)
}

func (s *Store) AwaitingAdminDecision(ctx context.Context) ([]engine.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return awaitingAdminDecision(ctx, s.db)
}

// awaitingAdminDecision returns escalated requests plus pending
// requests from managers, who have no manager of their own.
func awaitingAdminDecision(ctx context.Context, q dbtx) ([]engine.LeaveRequest, error) {
	return queryRequests(ctx, q, `
		SELECT `+requestColumns+` FROM leave_requests r
		WHERE r.status = ?
		   OR (r.status = ? AND EXISTS (
		       SELECT 1 FROM users u WHERE u.id = r.user_id AND u.role = ?))
		ORDER BY applied_at ASC`,
		string(engine.StatusAwaitingAdminApproval),
		string(engine.StatusPending),
		int(engine.RoleManager),
	)
}

func (s *Store) TransitionRequest(ctx context.Context, id engine.LeaveID, from []engine.LeaveStatus, to engine.LeaveStatus, by engine.UserID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return transitionRequest(ctx, s.db, id, from, to, by, at)
}

// transitionRequest is the conditional status write. Zero rows
// affected means the request was not in an expected status; the
// caller decides what that means.
func transitionRequest(ctx context.Context, q dbtx, id engine.LeaveID, from []engine.LeaveStatus, to engine.LeaveStatus, by engine.UserID, at time.Time) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(from)), ", ")
	args := []any{string(to), string(by), at.UTC().Format(time.RFC3339), string(id)}
	for _, st := range from {
		args = append(args, string(st))
	}

	res, err := q.ExecContext(ctx, `
		UPDATE leave_requests
		SET status = ?, processed_by = ?, processed_at = ?
		WHERE id = ? AND status IN (`+placeholders+`)`, args...)
	if err != nil {
		return false, fmt.Errorf("failed to transition request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

func queryRequests(ctx context.Context, q dbtx, query string, args ...any) ([]engine.LeaveRequest, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var requests []engine.LeaveRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

func scanRequest(rows *sql.Rows) (engine.LeaveRequest, error) {
	var (
		r           engine.LeaveRequest
		startDate   string
		endDate     string
		processedBy sql.NullString
		processedAt sql.NullString
		appliedAt   string
	)

	err := rows.Scan(
		&r.ID, &r.UserID, &r.TypeID, &startDate, &endDate, &r.Reason,
		&r.Status, &r.RequiredApprovals, &processedBy, &processedAt, &appliedAt,
	)
	if err != nil {
		return r, fmt.Errorf("failed to scan request: %w", err)
	}

	r.Start, _ = time.ParseInLocation(dateLayout, startDate, time.UTC)
	r.End, _ = time.ParseInLocation(dateLayout, endDate, time.UTC)
	if processedBy.Valid {
		by := engine.UserID(processedBy.String)
		r.ProcessedBy = &by
	}
	if processedAt.Valid {
		t, _ := time.Parse(time.RFC3339, processedAt.String)
		r.ProcessedAt = &t
	}
	r.AppliedAt, _ = time.Parse(time.RFC3339, appliedAt)
	return r, nil
}

// =============================================================================
// LEAVE BALANCES
// =============================================================================

func (s *Store) GetBalance(ctx context.Context, key engine.BalanceKey) (*engine.LeaveBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getBalance(ctx, s.db, key)
}

func getBalance(ctx context.Context, q dbtx, key engine.BalanceKey) (*engine.LeaveBalance, error) {
	row := q.QueryRowContext(ctx, `
		SELECT user_id, type_id, year, total_days, used_days
		FROM leave_balances
		WHERE user_id = ? AND type_id = ? AND year = ?`,
		string(key.UserID), string(key.TypeID), key.Year)

	var b engine.LeaveBalance
	var total, used string
	err := row.Scan(&b.UserID, &b.TypeID, &b.Year, &total, &used)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan balance: %w", err)
	}
	if b.TotalDays, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("corrupt total_days %q: %w", total, err)
	}
	if b.UsedDays, err = decimal.NewFromString(used); err != nil {
		return nil, fmt.Errorf("corrupt used_days %q: %w", used, err)
	}
	return &b, nil
}

func (s *Store) SaveBalance(ctx context.Context, b engine.LeaveBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveBalance(ctx, s.db, b)
}

func saveBalance(ctx context.Context, q dbtx, b engine.LeaveBalance) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO leave_balances (user_id, type_id, year, total_days, used_days)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, type_id, year) DO UPDATE SET
			total_days = excluded.total_days,
			used_days = excluded.used_days
	`, string(b.UserID), string(b.TypeID), b.Year, b.TotalDays.String(), b.UsedDays.String())
	if err != nil {
		return fmt.Errorf("failed to save balance: %w", err)
	}
	return nil
}

func (s *Store) SetUsedDays(ctx context.Context, key engine.BalanceKey, used decimal.Decimal) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setUsedDays(ctx, s.db, key, used)
}

func setUsedDays(ctx context.Context, q dbtx, key engine.BalanceKey, used decimal.Decimal) (bool, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE leave_balances SET used_days = ?
		WHERE user_id = ? AND type_id = ? AND year = ?`,
		used.String(), string(key.UserID), string(key.TypeID), key.Year)
	if err != nil {
		return false, fmt.Errorf("failed to update used days: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *Store) BalancesByUser(ctx context.Context, userID engine.UserID, year int) ([]engine.LeaveBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return balancesByUser(ctx, s.db, userID, year)
}

func balancesByUser(ctx context.Context, q dbtx, userID engine.UserID, year int) ([]engine.LeaveBalance, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT user_id, type_id, year, total_days, used_days
		FROM leave_balances
		WHERE user_id = ? AND year = ?
		ORDER BY type_id`, string(userID), year)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer rows.Close()

	var balances []engine.LeaveBalance
	for rows.Next() {
		var b engine.LeaveBalance
		var total, used string
		if err := rows.Scan(&b.UserID, &b.TypeID, &b.Year, &total, &used); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		if b.TotalDays, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("corrupt total_days %q: %w", total, err)
		}
		if b.UsedDays, err = decimal.NewFromString(used); err != nil {
			return nil, fmt.Errorf("corrupt used_days %q: %w", used, err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// =============================================================================
// APPROVAL AUDIT
// =============================================================================

func (s *Store) AppendApproval(ctx context.Context, rec engine.ApprovalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendApproval(ctx, s.db, rec)
}

func appendApproval(ctx context.Context, q dbtx, rec engine.ApprovalRecord) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO leave_approvals (id, leave_id, approver_id, action, comments, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, string(rec.LeaveID), string(rec.ApproverID), string(rec.Action),
		rec.Comments, rec.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to append approval: %w", err)
	}
	return nil
}

// Approvals returns the audit rows for one request, oldest first.
func (s *Store) Approvals(ctx context.Context, leaveID engine.LeaveID) ([]engine.ApprovalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, leave_id, approver_id, action, comments, created_at
		FROM leave_approvals
		WHERE leave_id = ?
		ORDER BY created_at ASC`, string(leaveID))
	if err != nil {
		return nil, fmt.Errorf("failed to query approvals: %w", err)
	}
	defer rows.Close()

	var records []engine.ApprovalRecord
	for rows.Next() {
		var rec engine.ApprovalRecord
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.LeaveID, &rec.ApproverID, &rec.Action, &rec.Comments, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan approval: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (engine.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store engine.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore routes every operation through the open transaction.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetUser(ctx context.Context, id engine.UserID) (*engine.User, error) {
	return getUser(ctx, ts.tx, id)
}

func (ts *txStore) SaveUser(ctx context.Context, u engine.User) error {
	return saveUser(ctx, ts.tx, u)
}

func (ts *txStore) DirectReports(ctx context.Context, managerID engine.UserID) ([]engine.User, error) {
	return directReports(ctx, ts.tx, managerID)
}

func (ts *txStore) GetLeaveType(ctx context.Context, id engine.LeaveTypeID) (*engine.LeaveType, error) {
	return getLeaveType(ctx, ts.tx, id)
}

func (ts *txStore) LeaveTypes(ctx context.Context) ([]engine.LeaveType, error) {
	return leaveTypes(ctx, ts.tx)
}

func (ts *txStore) SaveLeaveType(ctx context.Context, lt engine.LeaveType) error {
	return saveLeaveType(ctx, ts.tx, lt)
}

func (ts *txStore) GetRequest(ctx context.Context, id engine.LeaveID) (*engine.LeaveRequest, error) {
	return getRequest(ctx, ts.tx, id)
}

func (ts *txStore) SaveRequest(ctx context.Context, r engine.LeaveRequest) error {
	return saveRequest(ctx, ts.tx, r)
}

func (ts *txStore) ActiveRequests(ctx context.Context, userID engine.UserID) ([]engine.LeaveRequest, error) {
	return activeRequests(ctx, ts.tx, userID)
}

func (ts *txStore) RequestsByUser(ctx context.Context, userID engine.UserID) ([]engine.LeaveRequest, error) {
	return requestsByUser(ctx, ts.tx, userID)
}

func (ts *txStore) PendingByUsers(ctx context.Context, userIDs []engine.UserID) ([]engine.LeaveRequest, error) {
	return pendingByUsers(ctx, ts.tx, userIDs)
}

func (ts *txStore) AwaitingAdminDecision(ctx context.Context) ([]engine.LeaveRequest, error) {
	return awaitingAdminDecision(ctx, ts.tx)
}

func (ts *txStore) TransitionRequest(ctx context.Context, id engine.LeaveID, from []engine.LeaveStatus, to engine.LeaveStatus, by engine.UserID, at time.Time) (bool, error) {
	return transitionRequest(ctx, ts.tx, id, from, to, by, at)
}

func (ts *txStore) GetBalance(ctx context.Context, key engine.BalanceKey) (*engine.LeaveBalance, error) {
	return getBalance(ctx, ts.tx, key)
}

func (ts *txStore) SaveBalance(ctx context.Context, b engine.LeaveBalance) error {
	return saveBalance(ctx, ts.tx, b)
}

func (ts *txStore) SetUsedDays(ctx context.Context, key engine.BalanceKey, used decimal.Decimal) (bool, error) {
	return setUsedDays(ctx, ts.tx, key, used)
}

func (ts *txStore) BalancesByUser(ctx context.Context, userID engine.UserID, year int) ([]engine.LeaveBalance, error) {
	return balancesByUser(ctx, ts.tx, userID, year)
}

func (ts *txStore) AppendApproval(ctx context.Context, rec engine.ApprovalRecord) error {
	return appendApproval(ctx, ts.tx, rec)
}
