/*
ledger.go - The balance ledger

PURPOSE:
  The only component allowed to mutate an employee's remaining-day
  fields. Exposes two primitives: Debit (floor-clamped at zero) and
  Credit (no upper clamp). The request state machine and the overtime
  ledger call these; HTTP handlers never touch balances directly.

CLAMPING RULES:
  debit:  remaining = max(0, remaining - amount)
  credit: remaining = remaining + max(0, amount)

  Remaining can legitimately exceed the allotment after a restoration
  that follows a clamped debit. That asymmetry is accepted behavior,
  not a defect.

CONCURRENCY:
  Each Debit/Credit is a read-modify-write against the store with no
  transaction. Calls for the same employee are serialized on a mutex
  keyed by lower-cased email, so two handlers mutating the same record
  cannot interleave inside one process. Mutations for different
  employees proceed independently. Cross-process races remain possible
  and are documented store behavior (last-write-wins on the field).
*/
package leave

import (
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LEDGER
// =============================================================================

// Ledger owns debit/credit of per-category remaining balances.
type Ledger struct {
	store Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLedger creates a ledger over the given store.
func NewLedger(store Store) *Ledger {
	return &Ledger{
		store: store,
		locks: make(map[string]*sync.Mutex),
	}
}

// lockFor returns the per-employee mutex, creating it on first use.
func (l *Ledger) lockFor(email string) *sync.Mutex {
	key := strings.ToLower(strings.TrimSpace(email))
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}

// Debit subtracts amount days from the employee's remaining balance for
// the category, clamping at zero. Returns the balance after the write.
// Fails with ErrInvalidCategory or ErrEmployeeNotFound before touching
// anything.
func (l *Ledger) Debit(ctx context.Context, email string, cat Category, amount decimal.Decimal) (decimal.Decimal, error) {
	if !cat.Valid() {
		return decimal.Zero, ErrInvalidCategory
	}

	lock := l.lockFor(email)
	lock.Lock()
	defer lock.Unlock()

	emp, err := l.store.GetEmployee(ctx, email)
	if err != nil {
		return decimal.Zero, err
	}

	next := emp.Remaining[cat].Sub(amount)
	if next.IsNegative() {
		next = decimal.Zero
	}
	if err := l.store.SetEmployeeRemaining(ctx, email, cat, next); err != nil {
		return decimal.Zero, err
	}
	return next, nil
}

// Credit adds amount days to the employee's remaining balance for the
// category. Negative amounts are clamped to zero; there is no upper
// clamp against the allotment. Returns the balance after the write.
func (l *Ledger) Credit(ctx context.Context, email string, cat Category, amount decimal.Decimal) (decimal.Decimal, error) {
	if !cat.Valid() {
		return decimal.Zero, ErrInvalidCategory
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}

	lock := l.lockFor(email)
	lock.Lock()
	defer lock.Unlock()

	emp, err := l.store.GetEmployee(ctx, email)
	if err != nil {
		return decimal.Zero, err
	}

	next := emp.Remaining[cat].Add(amount)
	if err := l.store.SetEmployeeRemaining(ctx, email, cat, next); err != nil {
		return decimal.Zero, err
	}
	return next, nil
}

// Remaining reads the current balance for display. No mutation, no
// lock: a stale read here is acceptable.
func (l *Ledger) Remaining(ctx context.Context, email string, cat Category) (decimal.Decimal, error) {
	if !cat.Valid() {
		return decimal.Zero, ErrInvalidCategory
	}
	emp, err := l.store.GetEmployee(ctx, email)
	if err != nil {
		return decimal.Zero, err
	}
	return emp.Remaining[cat], nil
}
