/*
Package requests implements the leave-request lifecycle: submission and
the status state machine with its balance side effects.

STATE MACHINE:
  States are pending, approved, rejected. Every transition is legal,
  including self-transitions; there is no workflow gate that restricts
  approval to pending requests. Balance effects are keyed on the
  TRANSITION, not the destination state:

    old != approved, new == approved  ->  debit  days from remaining
    old == approved, new != approved  ->  credit days back
    anything else                     ->  no balance effect

  Keying on the transition means toggling between pending and rejected
  never touches the balance, and a repeated approve is a no-op.

FAILURE SEMANTICS:
  The status write and the ledger write are two separate store calls.
  If the ledger write fails after the status write succeeded, the
  request shows its new status with a stale balance. There is no
  rollback; the error tells the caller reconciliation is needed.
*/
package requests

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dayoff/leave-engine/leave"
)

// Service coordinates the store and ledger for leave requests.
type Service struct {
	store  leave.Store
	ledger *leave.Ledger
}

// NewService creates a request service.
func NewService(store leave.Store, ledger *leave.Ledger) *Service {
	return &Service{store: store, ledger: ledger}
}

// =============================================================================
// SUBMISSION
// =============================================================================

// SubmitInput is a leave application from an employee.
type SubmitInput struct {
	EmployeeEmail string
	Date          time.Time
	Period        leave.Period
	Type          leave.Category
	Days          decimal.Decimal
	Reason        string
}

// minimum bookable unit is half a day
var minDays = decimal.NewFromFloat(0.5)

// Submit validates and appends a new request. The request is always
// created pending; no balance is touched until approval.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*leave.LeaveRequest, error) {
	if strings.TrimSpace(in.EmployeeEmail) == "" {
		return nil, leave.Validationf("employee_email", "required")
	}
	if in.Date.IsZero() {
		return nil, leave.Validationf("date", "required")
	}
	if !in.Period.Valid() {
		return nil, leave.Validationf("period", "unknown period %q", in.Period)
	}
	if !in.Type.Valid() {
		return nil, leave.ErrInvalidCategory
	}
	if in.Days.LessThan(minDays) {
		return nil, leave.Validationf("days", "must be at least 0.5, got %s", in.Days)
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, leave.Validationf("reason", "required")
	}

	// The applicant must exist before anything is written.
	if _, err := s.store.GetEmployee(ctx, in.EmployeeEmail); err != nil {
		return nil, err
	}

	return s.store.AppendLeaveRequest(ctx, leave.LeaveRequest{
		EmployeeEmail: in.EmployeeEmail,
		Date:          in.Date,
		Period:        in.Period,
		Type:          in.Type,
		Days:          in.Days,
		Reason:        in.Reason,
	})
}

// =============================================================================
// STATUS CHANGES
// =============================================================================

// StatusChange is the outcome of SetStatus: the updated request plus
// the employee's remaining balance for the request's category, read
// after any ledger effect.
type StatusChange struct {
	Request       leave.LeaveRequest
	RemainingDays decimal.Decimal
}

// SetStatus persists the new status and applies the transition-based
// balance effect. See the package comment for the exact rules.
func (s *Service) SetStatus(ctx context.Context, id int, status leave.Status) (*StatusChange, error) {
	if !status.Valid() {
		return nil, leave.Validationf("status", "unknown status %q", status)
	}

	existing, err := s.store.GetLeaveRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	oldStatus := existing.Status

	updated, err := s.store.SetLeaveRequestStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	email := updated.EmployeeEmail
	category := updated.Type
	usedDays := updated.Days

	switch {
	case oldStatus != leave.StatusApproved && status == leave.StatusApproved:
		if _, err := s.ledger.Debit(ctx, email, category, usedDays); err != nil {
			// Status is already written; the balance was not debited.
			return nil, fmt.Errorf("request %d approved but balance not debited: %w", id, err)
		}
	case oldStatus == leave.StatusApproved && status != leave.StatusApproved:
		if _, err := s.ledger.Credit(ctx, email, category, usedDays); err != nil {
			return nil, fmt.Errorf("request %d un-approved but balance not restored: %w", id, err)
		}
	}

	remaining, err := s.ledger.Remaining(ctx, email, category)
	if err != nil {
		return nil, err
	}
	return &StatusChange{Request: *updated, RemainingDays: remaining}, nil
}

// =============================================================================
// QUERIES
// =============================================================================

// History returns the employee's requests, newest submission first.
func (s *Service) History(ctx context.Context, email string) ([]leave.LeaveRequest, error) {
	all, err := s.store.ListLeaveRequests(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]leave.LeaveRequest, 0, len(all))
	for _, r := range all {
		if leave.EmailEquals(r.EmployeeEmail, email) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Filter narrows the admin listing. Zero values mean "any".
type Filter struct {
	Year   int
	Month  time.Month
	Status leave.Status
	Type   leave.Category
}

// View is a request annotated for the admin listing: the employee's
// display name and their current remaining balance for the request's
// category.
type View struct {
	leave.LeaveRequest
	EmployeeName  string
	RemainingDays decimal.Decimal
}

// List returns annotated requests matching the filter. Missing
// employees degrade gracefully: the email doubles as the display name
// and the remaining balance reads zero, matching the dashboard's
// behavior for deleted or renamed accounts.
func (s *Service) List(ctx context.Context, f Filter) ([]View, error) {
	all, err := s.store.ListLeaveRequests(ctx)
	if err != nil {
		return nil, err
	}
	employees, err := s.store.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}

	byEmail := make(map[string]*leave.Employee, len(employees))
	for i := range employees {
		byEmail[strings.ToLower(employees[i].Email)] = &employees[i]
	}

	out := make([]View, 0, len(all))
	for _, r := range all {
		if f.Year != 0 && r.Date.Year() != f.Year {
			continue
		}
		if f.Month != 0 && r.Date.Month() != f.Month {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.Type != "" && r.Type != f.Type {
			continue
		}

		v := View{LeaveRequest: r, EmployeeName: r.EmployeeEmail}
		if emp, ok := byEmail[strings.ToLower(r.EmployeeEmail)]; ok {
			v.EmployeeName = emp.Name
			v.RemainingDays = emp.Remaining[r.Type]
		}
		out = append(out, v)
	}
	return out, nil
}

// SortField names a sortable column of the admin listing.
type SortField string

const (
	SortByDate      SortField = "date"
	SortByDays      SortField = "days"
	SortByEmployee  SortField = "employee"
	SortByStatus    SortField = "status"
	SortByType      SortField = "type"
	SortByCreatedAt SortField = "createdAt"
	SortByUpdatedAt SortField = "updatedAt"
)

// Sort orders views in place. Unknown fields leave the slice untouched.
func Sort(views []View, field SortField, desc bool) {
	less := func(i, j int) bool { return false }
	switch field {
	case SortByDate:
		less = func(i, j int) bool { return views[i].Date.Before(views[j].Date) }
	case SortByDays:
		less = func(i, j int) bool { return views[i].Days.LessThan(views[j].Days) }
	case SortByEmployee:
		less = func(i, j int) bool {
			return strings.ToLower(views[i].EmployeeName) < strings.ToLower(views[j].EmployeeName)
		}
	case SortByStatus:
		less = func(i, j int) bool { return views[i].Status < views[j].Status }
	case SortByType:
		less = func(i, j int) bool { return views[i].Type < views[j].Type }
	case SortByCreatedAt:
		less = func(i, j int) bool { return views[i].CreatedAt.Before(views[j].CreatedAt) }
	case SortByUpdatedAt:
		less = func(i, j int) bool { return views[i].UpdatedAt.Before(views[j].UpdatedAt) }
	default:
		return
	}
	if desc {
		inner := less
		less = func(i, j int) bool { return inner(j, i) }
	}
	sort.SliceStable(views, less)
}
