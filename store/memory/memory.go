// Package memory provides an in-memory leave.Store for tests and
// development. Records are deep-copied on the way in and out so callers
// never alias internal state. Ids are assigned max+1, matching the SQL
// backends.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dayoff/leave-engine/leave"
)

// Store is an in-memory implementation of leave.Store.
type Store struct {
	mu         sync.RWMutex
	employees  []leave.Employee
	requests   []leave.LeaveRequest
	activities []leave.OvertimeActivity

	now func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{now: time.Now}
}

// SetClock overrides the timestamp source. Tests use this to pin
// created_at/updated_at values.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// =============================================================================
// EMPLOYEES
// =============================================================================

func (s *Store) GetEmployee(_ context.Context, email string) (*leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.employees {
		if leave.EmailEquals(s.employees[i].Email, email) {
			e := copyEmployee(s.employees[i])
			return &e, nil
		}
	}
	return nil, leave.ErrEmployeeNotFound
}

func (s *Store) ListEmployees(_ context.Context) ([]leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]leave.Employee, len(s.employees))
	for i := range s.employees {
		out[i] = copyEmployee(s.employees[i])
	}
	return out, nil
}

func (s *Store) AppendEmployee(_ context.Context, e leave.Employee) (*leave.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.employees {
		if leave.EmailEquals(s.employees[i].Email, e.Email) {
			return nil, leave.ErrDuplicateEmail
		}
	}

	maxID := 0
	for i := range s.employees {
		if s.employees[i].ID > maxID {
			maxID = s.employees[i].ID
		}
	}
	e.ID = maxID + 1

	stored := copyEmployee(e)
	s.employees = append(s.employees, stored)
	out := copyEmployee(stored)
	return &out, nil
}

func (s *Store) UpdateEmployee(_ context.Context, email string, up leave.EmployeeUpdate) (*leave.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.employees {
		if !leave.EmailEquals(s.employees[i].Email, email) {
			continue
		}
		e := &s.employees[i]
		if up.Name != nil {
			e.Name = *up.Name
		}
		if up.Password != nil {
			e.Password = *up.Password
		}
		if up.HireDate != nil {
			e.HireDate = *up.HireDate
		}
		if up.Department != nil {
			e.Department = *up.Department
		}
		if up.Notes != nil {
			e.Notes = *up.Notes
		}
		for c, v := range up.Allotment {
			e.Allotment[c] = v
		}
		for c, v := range up.Remaining {
			e.Remaining[c] = v
		}
		out := copyEmployee(*e)
		return &out, nil
	}
	return nil, leave.ErrEmployeeNotFound
}

func (s *Store) SetEmployeeRemaining(_ context.Context, email string, cat leave.Category, value decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.employees {
		if leave.EmailEquals(s.employees[i].Email, email) {
			s.employees[i].Remaining[cat] = value
			return nil
		}
	}
	return leave.ErrEmployeeNotFound
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

func (s *Store) GetLeaveRequest(_ context.Context, id int) (*leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.requests {
		if s.requests[i].ID == id {
			r := s.requests[i]
			return &r, nil
		}
	}
	return nil, leave.ErrRequestNotFound
}

func (s *Store) ListLeaveRequests(_ context.Context) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]leave.LeaveRequest, len(s.requests))
	copy(out, s.requests)
	return out, nil
}

func (s *Store) AppendLeaveRequest(_ context.Context, r leave.LeaveRequest) (*leave.LeaveRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	maxID := 0
	for i := range s.requests {
		if s.requests[i].ID > maxID {
			maxID = s.requests[i].ID
		}
	}
	r.ID = maxID + 1
	r.Status = leave.StatusPending
	r.CreatedAt = s.now()
	r.UpdatedAt = time.Time{}

	s.requests = append(s.requests, r)
	out := r
	return &out, nil
}

func (s *Store) SetLeaveRequestStatus(_ context.Context, id int, status leave.Status) (*leave.LeaveRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.requests {
		if s.requests[i].ID == id {
			s.requests[i].Status = status
			s.requests[i].UpdatedAt = s.now()
			r := s.requests[i]
			return &r, nil
		}
	}
	return nil, leave.ErrRequestNotFound
}

// =============================================================================
// OVERTIME ACTIVITIES
// =============================================================================

func (s *Store) GetOvertimeActivity(_ context.Context, id int) (*leave.OvertimeActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.activities {
		if s.activities[i].ID == id {
			a := copyActivity(s.activities[i])
			return &a, nil
		}
	}
	return nil, leave.ErrActivityNotFound
}

func (s *Store) ListOvertimeActivities(_ context.Context) ([]leave.OvertimeActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]leave.OvertimeActivity, len(s.activities))
	for i := range s.activities {
		out[i] = copyActivity(s.activities[i])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) AppendOvertimeActivity(_ context.Context, a leave.OvertimeActivity) (*leave.OvertimeActivity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	maxID := 0
	for i := range s.activities {
		if s.activities[i].ID > maxID {
			maxID = s.activities[i].ID
		}
	}
	a.ID = maxID + 1
	a.CreatedAt = s.now()
	a.UpdatedAt = time.Time{}

	stored := copyActivity(a)
	s.activities = append(s.activities, stored)
	out := copyActivity(stored)
	return &out, nil
}

func (s *Store) SetOvertimeActivityFields(_ context.Context, id int, up leave.ActivityUpdate) (*leave.OvertimeActivity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.activities {
		if s.activities[i].ID != id {
			continue
		}
		a := &s.activities[i]
		a.Name = up.Name
		a.Date = up.Date
		a.Hours = up.Hours
		a.Participants = append([]string(nil), up.Participants...)
		a.Description = up.Description
		a.UpdatedAt = s.now()
		out := copyActivity(*a)
		return &out, nil
	}
	return nil, leave.ErrActivityNotFound
}

func (s *Store) DeleteOvertimeActivity(_ context.Context, id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.activities {
		if s.activities[i].ID == id {
			s.activities = append(s.activities[:i], s.activities[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// =============================================================================
// COPY HELPERS
// =============================================================================

func copyEmployee(e leave.Employee) leave.Employee {
	out := e
	out.Allotment, out.Remaining = e.CloneBalances()
	return out
}

func copyActivity(a leave.OvertimeActivity) leave.OvertimeActivity {
	out := a
	out.Participants = a.CloneParticipants()
	return out
}
