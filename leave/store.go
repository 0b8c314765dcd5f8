/*
store.go - Record-store contract required by the engine

PURPOSE:
  The engine treats persistence as a row store: get a record, list all
  records, append a record (assigning the next integer id = max+1),
  update one field, delete a record. No transactions are assumed. Each
  call is individually consistent; read-modify-write sequences across
  calls can race, which is why the Ledger serializes per employee.

IMPLEMENTATIONS:
  - store/memory:   in-memory maps (tests, dev)
  - store/sqlite:   embedded default backend
  - store/postgres: pgx-backed, selected via DATABASE_URL

CONVENTIONS:
  - Missing records surface as the leave.Err*NotFound sentinels, never
    as (nil, nil).
  - Balance values are stored as string-encoded decimals; the interface
    exchanges decimal.Decimal.
  - AppendLeaveRequest forces status=pending, created_at=now and a zero
    updated_at. SetLeaveRequestStatus and SetOvertimeActivityFields
    stamp updated_at.
*/
package leave

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store is the record-store contract. Implementations must be safe for
// concurrent use.
type Store interface {
	// Employees. Email lookups are case-insensitive.
	GetEmployee(ctx context.Context, email string) (*Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
	AppendEmployee(ctx context.Context, e Employee) (*Employee, error)
	UpdateEmployee(ctx context.Context, email string, up EmployeeUpdate) (*Employee, error)
	// SetEmployeeRemaining writes a single remaining-balance field. It
	// is deliberately the narrowest mutation the store offers so the
	// Ledger's read-modify-write window stays minimal.
	SetEmployeeRemaining(ctx context.Context, email string, cat Category, value decimal.Decimal) error

	// Leave requests.
	GetLeaveRequest(ctx context.Context, id int) (*LeaveRequest, error)
	ListLeaveRequests(ctx context.Context) ([]LeaveRequest, error)
	AppendLeaveRequest(ctx context.Context, r LeaveRequest) (*LeaveRequest, error)
	SetLeaveRequestStatus(ctx context.Context, id int, status Status) (*LeaveRequest, error)

	// Overtime activities.
	GetOvertimeActivity(ctx context.Context, id int) (*OvertimeActivity, error)
	ListOvertimeActivities(ctx context.Context) ([]OvertimeActivity, error)
	AppendOvertimeActivity(ctx context.Context, a OvertimeActivity) (*OvertimeActivity, error)
	SetOvertimeActivityFields(ctx context.Context, id int, up ActivityUpdate) (*OvertimeActivity, error)
	DeleteOvertimeActivity(ctx context.Context, id int) (bool, error)
}

// EmployeeUpdate carries optional profile and balance edits. Nil fields
// are left untouched. Balance maps may be partial; only the categories
// present are written. Remaining edits here are admin corrections, not
// ledger traffic.
type EmployeeUpdate struct {
	Name       *string
	Password   *string
	HireDate   *time.Time
	Department *string
	Notes      *string
	Allotment  map[Category]decimal.Decimal
	Remaining  map[Category]decimal.Decimal
}

// ActivityUpdate replaces the mutable fields of an overtime activity.
// The update always carries the full field set, mirroring the admin
// edit form which resubmits everything.
type ActivityUpdate struct {
	Name         string
	Date         time.Time
	Hours        decimal.Decimal
	Participants []string
	Description  string
}
