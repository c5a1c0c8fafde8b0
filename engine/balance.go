/*
balance.go - Per (user, leave-type, year) balance accounting

PURPOSE:
  The Ledger owns every mutation of LeaveBalance.UsedDays. Approval
  debits working days; cancellation of an approved request credits them
  back. Nothing else touches a balance row, and the ledger never
  creates one: rows exist only because user provisioning seeded them,
  so a missing row at debit/credit time is a DataIntegrityError, not a
  lazy-create.

CLAMPING:
  Credit clamps used days at zero. A correction can therefore never
  drive a balance negative, at the cost of silently losing an
  over-credit; the lifecycle prevents double-credits structurally by
  refusing to cancel a Cancelled request.

ATOMICITY:
  Debit and Credit are read-modify-write against SetUsedDays. Callers
  run them inside a store transaction (TxStore.WithTx), which
  serializes mutations on the same key; two concurrently approved
  requests for one key are both reflected, never lost to a
  last-writer-wins overwrite.
*/
package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Ledger performs debit/credit accounting against a Store. Construct
// one over the transactional store view when mutating.
type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Get returns the balance row for key, or a NotFoundError.
func (l *Ledger) Get(ctx context.Context, key BalanceKey) (*LeaveBalance, error) {
	b, err := l.store.GetBalance(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load balance: %w", err)
	}
	if b == nil {
		return nil, &NotFoundError{Kind: "leave balance", ID: balanceKeyString(key)}
	}
	return b, nil
}

// Available returns totalDays - usedDays for key.
func (l *Ledger) Available(ctx context.Context, key BalanceKey) (decimal.Decimal, error) {
	b, err := l.Get(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}
	return b.AvailableDays(), nil
}

// Debit adds amount to usedDays. Fails with DataIntegrityError when no
// balance row exists for the key; the row is reported missing, never
// silently created.
func (l *Ledger) Debit(ctx context.Context, key BalanceKey, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return &ValidationError{Field: "amount", Message: "debit amount cannot be negative"}
	}
	b, err := l.store.GetBalance(ctx, key)
	if err != nil {
		return fmt.Errorf("load balance for debit: %w", err)
	}
	if b == nil {
		return &DataIntegrityError{Key: key, Op: "debit"}
	}

	used := RoundDays(b.UsedDays.Add(amount))
	ok, err := l.store.SetUsedDays(ctx, key, used)
	if err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}
	if !ok {
		return &DataIntegrityError{Key: key, Op: "debit"}
	}
	return nil
}

// Credit subtracts amount from usedDays, clamping at zero.
func (l *Ledger) Credit(ctx context.Context, key BalanceKey, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return &ValidationError{Field: "amount", Message: "credit amount cannot be negative"}
	}
	b, err := l.store.GetBalance(ctx, key)
	if err != nil {
		return fmt.Errorf("load balance for credit: %w", err)
	}
	if b == nil {
		return &DataIntegrityError{Key: key, Op: "credit"}
	}

	used := RoundDays(b.UsedDays.Sub(amount))
	if used.IsNegative() {
		used = decimal.Zero
	}
	ok, err := l.store.SetUsedDays(ctx, key, used)
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	if !ok {
		return &DataIntegrityError{Key: key, Op: "credit"}
	}
	return nil
}

func balanceKeyString(key BalanceKey) string {
	return fmt.Sprintf("user=%s type=%s year=%d", key.UserID, key.TypeID, key.Year)
}
