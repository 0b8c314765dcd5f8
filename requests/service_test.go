package requests_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayoff/leave-engine/leave"
	"github.com/dayoff/leave-engine/requests"
	"github.com/dayoff/leave-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func days(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func newTestService(t *testing.T) (*requests.Service, *leave.Ledger, *memory.Store) {
	t.Helper()
	st := memory.New()
	ledger := leave.NewLedger(st)
	return requests.NewService(st, ledger), ledger, st
}

func seedMing(t *testing.T, st *memory.Store) {
	t.Helper()
	e := leave.NewEmployee("張小明", "ming@company.com", "123456",
		time.Date(2023, time.January, 15, 0, 0, 0, 0, time.UTC), "技術部", "",
		map[leave.Category]decimal.Decimal{
			leave.CategoryAnnual:       days(14),
			leave.CategoryCompensatory: days(3),
			leave.CategorySick:         days(5),
		})
	_, err := st.AppendEmployee(context.Background(), e)
	require.NoError(t, err)
}

func submit(t *testing.T, svc *requests.Service, cat leave.Category, d float64) *leave.LeaveRequest {
	t.Helper()
	req, err := svc.Submit(context.Background(), requests.SubmitInput{
		EmployeeEmail: "ming@company.com",
		Date:          time.Date(2026, time.September, 10, 0, 0, 0, 0, time.UTC),
		Period:        leave.PeriodFullDay,
		Type:          cat,
		Days:          days(d),
		Reason:        "家中有事",
	})
	require.NoError(t, err)
	return req
}

// =============================================================================
// SUBMISSION
// =============================================================================

func TestSubmit_CreatesPendingWithoutBalanceEffect(t *testing.T) {
	svc, ledger, st := newTestService(t)
	seedMing(t, st)

	req := submit(t, svc, leave.CategoryAnnual, 2)

	assert.Equal(t, leave.StatusPending, req.Status)
	assert.Equal(t, 1, req.ID)
	assert.False(t, req.CreatedAt.IsZero())
	assert.True(t, req.UpdatedAt.IsZero())

	remaining, err := ledger.Remaining(context.Background(), "ming@company.com", leave.CategoryAnnual)
	require.NoError(t, err)
	assert.True(t, remaining.Equal(days(14)), "submission must not touch the balance")
}

func TestSubmit_Validation(t *testing.T) {
	svc, _, st := newTestService(t)
	seedMing(t, st)
	date := time.Date(2026, time.September, 10, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		in   requests.SubmitInput
	}{
		{"missing email", requests.SubmitInput{Date: date, Period: leave.PeriodFullDay, Type: leave.CategoryAnnual, Days: days(1), Reason: "x"}},
		{"missing date", requests.SubmitInput{EmployeeEmail: "ming@company.com", Period: leave.PeriodFullDay, Type: leave.CategoryAnnual, Days: days(1), Reason: "x"}},
		{"bad period", requests.SubmitInput{EmployeeEmail: "ming@company.com", Date: date, Period: "半天", Type: leave.CategoryAnnual, Days: days(1), Reason: "x"}},
		{"below half day", requests.SubmitInput{EmployeeEmail: "ming@company.com", Date: date, Period: leave.PeriodFullDay, Type: leave.CategoryAnnual, Days: days(0.25), Reason: "x"}},
		{"missing reason", requests.SubmitInput{EmployeeEmail: "ming@company.com", Date: date, Period: leave.PeriodFullDay, Type: leave.CategoryAnnual, Days: days(1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), tc.in)
			assert.True(t, leave.IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestSubmit_InvalidCategory(t *testing.T) {
	svc, _, st := newTestService(t)
	seedMing(t, st)

	_, err := svc.Submit(context.Background(), requests.SubmitInput{
		EmployeeEmail: "ming@company.com",
		Date:          time.Date(2026, time.September, 10, 0, 0, 0, 0, time.UTC),
		Period:        leave.PeriodFullDay,
		Type:          "颱風假",
		Days:          days(1),
		Reason:        "x",
	})
	assert.ErrorIs(t, err, leave.ErrInvalidCategory)
}

func TestSubmit_UnknownEmployee(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Submit(context.Background(), requests.SubmitInput{
		EmployeeEmail: "ghost@company.com",
		Date:          time.Date(2026, time.September, 10, 0, 0, 0, 0, time.UTC),
		Period:        leave.PeriodFullDay,
		Type:          leave.CategoryAnnual,
		Days:          days(1),
		Reason:        "x",
	})
	assert.ErrorIs(t, err, leave.ErrEmployeeNotFound)
}

// =============================================================================
// TRANSITION-BASED BALANCE EFFECTS
// =============================================================================

func TestSetStatus_ApproveDebits(t *testing.T) {
	svc, _, st := newTestService(t)
	seedMing(t, st)
	req := submit(t, svc, leave.CategoryAnnual, 2)

	change, err := svc.SetStatus(context.Background(), req.ID, leave.StatusApproved)

	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, change.Request.Status)
	assert.False(t, change.Request.UpdatedAt.IsZero())
	assert.True(t, change.RemainingDays.Equal(days(12)))
}

func TestSetStatus_RepeatedApproveIsNoOp(t *testing.T) {
	// GIVEN: an already-approved 2-day request
	// WHEN: it is approved again
	// THEN: the balance is not debited a second time

	svc, _, st := newTestService(t)
	seedMing(t, st)
	req := submit(t, svc, leave.CategoryAnnual, 2)
	ctx := context.Background()

	_, err := svc.SetStatus(ctx, req.ID, leave.StatusApproved)
	require.NoError(t, err)

	change, err := svc.SetStatus(ctx, req.ID, leave.StatusApproved)
	require.NoError(t, err)
	assert.True(t, change.RemainingDays.Equal(days(12)), "repeated approve must not double-debit")
}

func TestSetStatus_PendingRejectedToggleNeverTouchesBalance(t *testing.T) {
	svc, ledger, st := newTestService(t)
	seedMing(t, st)
	req := submit(t, svc, leave.CategoryAnnual, 2)
	ctx := context.Background()

	for _, status := range []leave.Status{leave.StatusRejected, leave.StatusPending, leave.StatusRejected} {
		_, err := svc.SetStatus(ctx, req.ID, status)
		require.NoError(t, err)
	}

	remaining, err := ledger.Remaining(ctx, "ming@company.com", leave.CategoryAnnual)
	require.NoError(t, err)
	assert.True(t, remaining.Equal(days(14)))
}

func TestSetStatus_UnapproveCredits(t *testing.T) {
	svc, _, st := newTestService(t)
	seedMing(t, st)
	req := submit(t, svc, leave.CategoryAnnual, 2)
	ctx := context.Background()

	_, err := svc.SetStatus(ctx, req.ID, leave.StatusApproved)
	require.NoError(t, err)

	change, err := svc.SetStatus(ctx, req.ID, leave.StatusPending)
	require.NoError(t, err)
	assert.True(t, change.RemainingDays.Equal(days(14)), "un-approve restores the full amount")
}

func TestSetStatus_MingScenario_ClampAsymmetry(t *testing.T) {
	// The canonical walkthrough: 特休=14. Approve a 2-day request (12
	// left), approve a 20-day request (floored at 0), then reject the
	// second request: the 20-day credit lands on top of 0, leaving 20.

	svc, _, st := newTestService(t)
	seedMing(t, st)
	ctx := context.Background()

	first := submit(t, svc, leave.CategoryAnnual, 2)
	change, err := svc.SetStatus(ctx, first.ID, leave.StatusApproved)
	require.NoError(t, err)
	require.True(t, change.RemainingDays.Equal(days(12)))

	second := submit(t, svc, leave.CategoryAnnual, 20)
	change, err = svc.SetStatus(ctx, second.ID, leave.StatusApproved)
	require.NoError(t, err)
	require.True(t, change.RemainingDays.IsZero(), "floored at zero, got %s", change.RemainingDays)

	change, err = svc.SetStatus(ctx, second.ID, leave.StatusRejected)
	require.NoError(t, err)
	assert.True(t, change.RemainingDays.Equal(days(20)),
		"credit is unclamped after a floored debit, got %s", change.RemainingDays)
}

func TestSetStatus_UnknownRequest(t *testing.T) {
	svc, _, st := newTestService(t)
	seedMing(t, st)

	_, err := svc.SetStatus(context.Background(), 999, leave.StatusApproved)
	assert.ErrorIs(t, err, leave.ErrRequestNotFound)
}

func TestSetStatus_InvalidStatusRejectedBeforeMutation(t *testing.T) {
	svc, _, st := newTestService(t)
	seedMing(t, st)
	req := submit(t, svc, leave.CategoryAnnual, 2)

	_, err := svc.SetStatus(context.Background(), req.ID, "cancelled")
	assert.True(t, leave.IsValidation(err))

	// Status must be untouched.
	got, err2 := st.GetLeaveRequest(context.Background(), req.ID)
	require.NoError(t, err2)
	assert.Equal(t, leave.StatusPending, got.Status)
}

// =============================================================================
// QUERIES
// =============================================================================

func TestList_FiltersAndAnnotates(t *testing.T) {
	svc, _, st := newTestService(t)
	seedMing(t, st)
	ctx := context.Background()

	_, err := svc.Submit(ctx, requests.SubmitInput{
		EmployeeEmail: "ming@company.com",
		Date:          time.Date(2026, time.September, 10, 0, 0, 0, 0, time.UTC),
		Period:        leave.PeriodFullDay,
		Type:          leave.CategoryAnnual,
		Days:          days(2),
		Reason:        "出遊",
	})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, requests.SubmitInput{
		EmployeeEmail: "ming@company.com",
		Date:          time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC),
		Period:        leave.PeriodMorning,
		Type:          leave.CategorySick,
		Days:          days(0.5),
		Reason:        "感冒",
	})
	require.NoError(t, err)

	views, err := svc.List(ctx, requests.Filter{Year: 2026, Month: time.September})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "張小明", views[0].EmployeeName)
	assert.True(t, views[0].RemainingDays.Equal(days(14)))

	views, err = svc.List(ctx, requests.Filter{Type: leave.CategorySick})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, leave.CategorySick, views[0].Type)
}

func TestHistory_NewestFirst(t *testing.T) {
	svc, _, st := newTestService(t)
	seedMing(t, st)
	clock := time.Date(2026, time.January, 1, 9, 0, 0, 0, time.UTC)
	st.SetClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	})
	ctx := context.Background()

	first := submit(t, svc, leave.CategoryAnnual, 1)
	second := submit(t, svc, leave.CategorySick, 1)

	history, err := svc.History(ctx, "MING@company.com")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)
}
