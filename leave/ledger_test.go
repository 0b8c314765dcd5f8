package leave_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayoff/leave-engine/leave"
	"github.com/dayoff/leave-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger(t *testing.T) (*leave.Ledger, *memory.Store) {
	t.Helper()
	st := memory.New()
	return leave.NewLedger(st), st
}

func addEmployee(t *testing.T, st *memory.Store, email string, allotments map[leave.Category]decimal.Decimal) {
	t.Helper()
	e := leave.NewEmployee("Test", email, "123456",
		time.Date(2023, time.January, 15, 0, 0, 0, 0, time.UTC), "", "", allotments)
	_, err := st.AppendEmployee(context.Background(), e)
	require.NoError(t, err)
}

func days(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// =============================================================================
// DEBIT
// =============================================================================

func TestLedger_Debit_ReducesRemaining(t *testing.T) {
	ledger, st := newTestLedger(t)
	ctx := context.Background()
	addEmployee(t, st, "ming@company.com", map[leave.Category]decimal.Decimal{
		leave.CategoryAnnual: days(14),
	})

	after, err := ledger.Debit(ctx, "ming@company.com", leave.CategoryAnnual, days(2))

	require.NoError(t, err)
	assert.True(t, after.Equal(days(12)), "14 - 2 should leave 12, got %s", after)
}

func TestLedger_Debit_FloorsAtZero(t *testing.T) {
	// GIVEN: 3 remaining compensatory days
	// WHEN: 5 days are debited
	// THEN: balance clamps to 0, not -2

	ledger, st := newTestLedger(t)
	ctx := context.Background()
	addEmployee(t, st, "hua@company.com", map[leave.Category]decimal.Decimal{
		leave.CategoryCompensatory: days(3),
	})

	after, err := ledger.Debit(ctx, "hua@company.com", leave.CategoryCompensatory, days(5))

	require.NoError(t, err)
	assert.True(t, after.IsZero(), "clamped balance should be 0, got %s", after)
}

func TestLedger_Debit_HalfDays(t *testing.T) {
	ledger, st := newTestLedger(t)
	ctx := context.Background()
	addEmployee(t, st, "ming@company.com", map[leave.Category]decimal.Decimal{
		leave.CategorySick: days(5),
	})

	after, err := ledger.Debit(ctx, "ming@company.com", leave.CategorySick, days(0.5))

	require.NoError(t, err)
	assert.True(t, after.Equal(days(4.5)))
}

func TestLedger_Debit_UnknownEmployee(t *testing.T) {
	ledger, _ := newTestLedger(t)

	_, err := ledger.Debit(context.Background(), "ghost@company.com", leave.CategoryAnnual, days(1))

	assert.ErrorIs(t, err, leave.ErrEmployeeNotFound)
}

func TestLedger_Debit_InvalidCategory(t *testing.T) {
	ledger, st := newTestLedger(t)
	addEmployee(t, st, "ming@company.com", nil)

	_, err := ledger.Debit(context.Background(), "ming@company.com", leave.Category("無薪假"), days(1))

	assert.ErrorIs(t, err, leave.ErrInvalidCategory)
}

// =============================================================================
// CREDIT
// =============================================================================

func TestLedger_Credit_NoUpperClamp(t *testing.T) {
	// GIVEN: remaining equals the full allotment (3 days)
	// WHEN: 5 more days are credited
	// THEN: remaining exceeds the allotment; there is no upper clamp

	ledger, st := newTestLedger(t)
	ctx := context.Background()
	addEmployee(t, st, "ming@company.com", map[leave.Category]decimal.Decimal{
		leave.CategoryCompensatory: days(3),
	})

	after, err := ledger.Credit(ctx, "ming@company.com", leave.CategoryCompensatory, days(5))

	require.NoError(t, err)
	assert.True(t, after.Equal(days(8)), "credit is unclamped, got %s", after)
}

func TestLedger_Credit_NegativeAmountClampedToZero(t *testing.T) {
	ledger, st := newTestLedger(t)
	ctx := context.Background()
	addEmployee(t, st, "ming@company.com", map[leave.Category]decimal.Decimal{
		leave.CategoryAnnual: days(10),
	})

	after, err := ledger.Credit(ctx, "ming@company.com", leave.CategoryAnnual, days(-4))

	require.NoError(t, err)
	assert.True(t, after.Equal(days(10)), "negative credit must be a no-op, got %s", after)
}

func TestLedger_Credit_UnknownEmployee(t *testing.T) {
	ledger, _ := newTestLedger(t)

	_, err := ledger.Credit(context.Background(), "ghost@company.com", leave.CategoryAnnual, days(1))

	assert.ErrorIs(t, err, leave.ErrEmployeeNotFound)
}

// =============================================================================
// CLAMP ASYMMETRY
// =============================================================================

func TestLedger_DebitThenCredit_AsymmetryAfterClamp(t *testing.T) {
	// GIVEN: 2 remaining annual days
	// WHEN: 20 days are debited (clamped to 0) and then 20 credited back
	// THEN: remaining is 20, not the pre-debit 2. The clamp loses the
	// shortfall and the credit restores the full amount on top of zero.

	ledger, st := newTestLedger(t)
	ctx := context.Background()
	addEmployee(t, st, "ming@company.com", map[leave.Category]decimal.Decimal{
		leave.CategoryAnnual: days(2),
	})

	after, err := ledger.Debit(ctx, "ming@company.com", leave.CategoryAnnual, days(20))
	require.NoError(t, err)
	require.True(t, after.IsZero())

	after, err = ledger.Credit(ctx, "ming@company.com", leave.CategoryAnnual, days(20))
	require.NoError(t, err)
	assert.True(t, after.Equal(days(20)), "restored balance exceeds the original, got %s", after)
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestLedger_ConcurrentDebits_SameEmployee_Serialized(t *testing.T) {
	// 50 concurrent 1-day debits against a 50-day balance must land on
	// exactly 0: the per-email mutex prevents lost updates in-process.

	ledger, st := newTestLedger(t)
	ctx := context.Background()
	addEmployee(t, st, "ming@company.com", map[leave.Category]decimal.Decimal{
		leave.CategoryAnnual: days(50),
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Debit(ctx, "ming@company.com", leave.CategoryAnnual, days(1))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	remaining, err := ledger.Remaining(ctx, "ming@company.com", leave.CategoryAnnual)
	require.NoError(t, err)
	assert.True(t, remaining.IsZero(), "expected 0 after 50 serialized debits, got %s", remaining)
}
