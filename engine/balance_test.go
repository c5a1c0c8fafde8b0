package engine_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/engine"
	"github.com/warp/leave-engine/engine/store"
)

func seedBalance(t *testing.T, m *store.TxMemory, key engine.BalanceKey, total, used int) {
	t.Helper()
	err := m.SaveBalance(context.Background(), engine.LeaveBalance{
		UserID:    key.UserID,
		TypeID:    key.TypeID,
		Year:      key.Year,
		TotalDays: decimal.NewFromInt(int64(total)),
		UsedDays:  decimal.NewFromInt(int64(used)),
	})
	require.NoError(t, err)
}

func TestLedger_DebitIncrementsUsedDays(t *testing.T) {
	// GIVEN: A balance of 15 total with 3 used
	// WHEN: Debiting 5 days
	// THEN: Used becomes 8 and available 7; total never changes

	m := store.NewTxMemory()
	key := engine.BalanceKey{UserID: "emp-1", TypeID: "casual", Year: 2026}
	seedBalance(t, m, key, 15, 3)

	ledger := engine.NewLedger(m)
	require.NoError(t, ledger.Debit(context.Background(), key, engine.Days(5)))

	b, err := ledger.Get(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, b.UsedDays.Equal(engine.Days(8)), "used = %s", b.UsedDays)
	assert.True(t, b.TotalDays.Equal(engine.Days(15)))
	assert.True(t, b.AvailableDays().Equal(engine.Days(7)))
}

func TestLedger_CreditReversesDebit(t *testing.T) {
	// GIVEN: A balance with 8 used days
	// WHEN: Crediting 5 days back
	// THEN: Used returns to 3

	m := store.NewTxMemory()
	key := engine.BalanceKey{UserID: "emp-1", TypeID: "casual", Year: 2026}
	seedBalance(t, m, key, 15, 8)

	ledger := engine.NewLedger(m)
	require.NoError(t, ledger.Credit(context.Background(), key, engine.Days(5)))

	b, err := ledger.Get(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, b.UsedDays.Equal(engine.Days(3)))
}

func TestLedger_CreditClampsAtZero(t *testing.T) {
	// GIVEN: A balance with 2 used days
	// WHEN: Crediting 5 days
	// THEN: Used clamps at zero instead of going negative

	m := store.NewTxMemory()
	key := engine.BalanceKey{UserID: "emp-1", TypeID: "casual", Year: 2026}
	seedBalance(t, m, key, 15, 2)

	ledger := engine.NewLedger(m)
	require.NoError(t, ledger.Credit(context.Background(), key, engine.Days(5)))

	b, err := ledger.Get(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, b.UsedDays.IsZero())
}

func TestLedger_MissingRowIsDataIntegrityError(t *testing.T) {
	// GIVEN: No balance row for the key
	// WHEN: Debiting or crediting
	// THEN: The error is a data integrity violation; no row is created

	m := store.NewTxMemory()
	key := engine.BalanceKey{UserID: "ghost", TypeID: "casual", Year: 2026}
	ledger := engine.NewLedger(m)

	err := ledger.Debit(context.Background(), key, engine.Days(1))
	assert.ErrorIs(t, err, engine.ErrDataIntegrity)

	err = ledger.Credit(context.Background(), key, engine.Days(1))
	assert.ErrorIs(t, err, engine.ErrDataIntegrity)

	b, err := m.GetBalance(context.Background(), key)
	require.NoError(t, err)
	assert.Nil(t, b, "ledger must never lazily create a balance row")
}

func TestLedger_NegativeAmountRejected(t *testing.T) {
	// GIVEN: A valid balance row
	// WHEN: Debiting a negative amount
	// THEN: The input is rejected before any mutation

	m := store.NewTxMemory()
	key := engine.BalanceKey{UserID: "emp-1", TypeID: "casual", Year: 2026}
	seedBalance(t, m, key, 15, 0)

	ledger := engine.NewLedger(m)
	err := ledger.Debit(context.Background(), key, decimal.NewFromInt(-3))
	assert.ErrorIs(t, err, engine.ErrValidation)
}
