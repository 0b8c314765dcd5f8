package leave

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// REQUEST STATUS / PERIOD
// =============================================================================

// Status is the lifecycle state of a leave request. Transitions are
// unrestricted: an administrator may set any status at any time,
// including moving an approved request back to pending.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Period is the portion of the day a request covers.
type Period string

const (
	PeriodFullDay   Period = "全天"
	PeriodMorning   Period = "上午"
	PeriodAfternoon Period = "下午"
)

// Valid reports whether p is a known period.
func (p Period) Valid() bool {
	switch p {
	case PeriodFullDay, PeriodMorning, PeriodAfternoon:
		return true
	}
	return false
}

// =============================================================================
// EMPLOYEE
// =============================================================================

// Employee is a single employee record. Allotment holds the total days
// granted per category; Remaining holds the running balance the Ledger
// debits and credits. Both maps always carry all eight categories.
type Employee struct {
	ID         int
	Name       string
	Email      string
	Password   string
	HireDate   time.Time
	Department string
	Notes      string
	Allotment  map[Category]decimal.Decimal
	Remaining  map[Category]decimal.Decimal
}

// NewEmployee builds an employee with remaining balances initialized
// equal to the allotments. Categories absent from allotments default to
// zero, so both maps are fully populated.
func NewEmployee(name, email, password string, hireDate time.Time, department, notes string, allotments map[Category]decimal.Decimal) Employee {
	e := Employee{
		Name:       name,
		Email:      email,
		Password:   password,
		HireDate:   hireDate,
		Department: department,
		Notes:      notes,
		Allotment:  make(map[Category]decimal.Decimal, len(Categories)),
		Remaining:  make(map[Category]decimal.Decimal, len(Categories)),
	}
	for _, c := range Categories {
		a := allotments[c]
		if a.IsNegative() {
			a = decimal.Zero
		}
		e.Allotment[c] = a
		e.Remaining[c] = a
	}
	return e
}

// CloneBalances returns deep copies of the balance maps. Store
// implementations hand these out so callers cannot alias internal state.
func (e *Employee) CloneBalances() (allotment, remaining map[Category]decimal.Decimal) {
	allotment = make(map[Category]decimal.Decimal, len(e.Allotment))
	remaining = make(map[Category]decimal.Decimal, len(e.Remaining))
	for c, v := range e.Allotment {
		allotment[c] = v
	}
	for c, v := range e.Remaining {
		remaining[c] = v
	}
	return allotment, remaining
}

// EmailEquals compares employee emails the way the store does:
// case-insensitively.
func EmailEquals(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// =============================================================================
// LEAVE REQUEST
// =============================================================================

// LeaveRequest is a single leave application. EmployeeEmail is a
// foreign key by value; the employee record is looked up at mutation
// time, not held by reference.
type LeaveRequest struct {
	ID            int
	EmployeeEmail string
	Date          time.Time
	Period        Period
	Type          Category
	Days          decimal.Decimal
	Reason        string
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time // zero until the first status change
}

// =============================================================================
// OVERTIME ACTIVITY
// =============================================================================

// OvertimeActivity is a group overtime event. Hours is day-denominated
// despite the name: the value is credited directly against the
// compensatory remaining balance, which counts days.
type OvertimeActivity struct {
	ID           int
	Name         string
	Date         time.Time
	Hours        decimal.Decimal
	Participants []string // employee emails, order preserved
	Description  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CloneParticipants returns a copy of the participant list.
func (a *OvertimeActivity) CloneParticipants() []string {
	out := make([]string, len(a.Participants))
	copy(out, a.Participants)
	return out
}

// NormalizeEmails trims whitespace and drops empty entries, preserving
// order. Used wherever participant lists enter the system.
func NormalizeEmails(emails []string) []string {
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		e = strings.TrimSpace(e)
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}
