/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the internal domain model from the external API contract:
  day amounts cross the boundary as JSON numbers, dates as 2006-01-02
  strings, timestamps as RFC 3339 (empty when never set).

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

BALANCE ENCODING:
  Balances are decimal internally. DTOs expose them as float64 for the
  frontend; precision loss is acceptable at half-day granularity.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dayoff/leave-engine/leave"
	"github.com/dayoff/leave-engine/overtime"
	"github.com/dayoff/leave-engine/requests"
	"github.com/dayoff/leave-engine/stats"
)

const dateLayout = "2006-01-02"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func balancesToJSON(m map[leave.Category]decimal.Decimal) map[string]float64 {
	out := make(map[string]float64, len(m))
	for c, v := range m {
		out[string(c)] = v.InexactFloat64()
	}
	return out
}

func balancesFromJSON(m map[string]float64) map[leave.Category]decimal.Decimal {
	if m == nil {
		return nil
	}
	out := make(map[leave.Category]decimal.Decimal, len(m))
	for c, v := range m {
		out[leave.Category(c)] = decimal.NewFromFloat(v)
	}
	return out
}

// =============================================================================
// AUTH
// =============================================================================

// LoginRequest carries plaintext credentials. Passwords are compared
// verbatim; there is no hashing in the system.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse identifies the authenticated account and its role.
type LoginResponse struct {
	Role       string `json:"role"` // "admin" or "employee"
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department,omitempty"`
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses. The password is
// never serialized.
type EmployeeDTO struct {
	ID         int                `json:"id"`
	Name       string             `json:"name"`
	Email      string             `json:"email"`
	HireDate   string             `json:"hire_date"`
	Department string             `json:"department,omitempty"`
	Notes      string             `json:"notes,omitempty"`
	Allotment  map[string]float64 `json:"allotment"`
	Remaining  map[string]float64 `json:"remaining"`
}

func toEmployeeDTO(e leave.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:         e.ID,
		Name:       e.Name,
		Email:      e.Email,
		HireDate:   e.HireDate.Format(dateLayout),
		Department: e.Department,
		Notes:      e.Notes,
		Allotment:  balancesToJSON(e.Allotment),
		Remaining:  balancesToJSON(e.Remaining),
	}
}

// CreateEmployeeRequest is the request to create an employee.
type CreateEmployeeRequest struct {
	Name       string             `json:"name"`
	Email      string             `json:"email"`
	Password   string             `json:"password"`
	HireDate   string             `json:"hire_date"`
	Department string             `json:"department"`
	Notes      string             `json:"notes"`
	Allotment  map[string]float64 `json:"allotment"`
}

// UpdateEmployeeRequest carries optional edits; absent fields are left
// untouched. Balance maps may be partial.
type UpdateEmployeeRequest struct {
	Email      string             `json:"email"`
	Name       *string            `json:"name,omitempty"`
	Password   *string            `json:"password,omitempty"`
	HireDate   *string            `json:"hire_date,omitempty"`
	Department *string            `json:"department,omitempty"`
	Notes      *string            `json:"notes,omitempty"`
	Allotment  map[string]float64 `json:"allotment,omitempty"`
	Remaining  map[string]float64 `json:"remaining,omitempty"`
}

// UpdateProfileRequest is the employee self-service subset of the
// profile: never balances.
type UpdateProfileRequest struct {
	Email      string  `json:"email"`
	Name       *string `json:"name,omitempty"`
	Password   *string `json:"password,omitempty"`
	HireDate   *string `json:"hire_date,omitempty"`
	Department *string `json:"department,omitempty"`
	Notes      *string `json:"notes,omitempty"`
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

// SubmitLeaveRequest is a leave application body.
type SubmitLeaveRequest struct {
	Date   string  `json:"date"`
	Period string  `json:"period"`
	Type   string  `json:"type"`
	Days   float64 `json:"days"`
	Reason string  `json:"reason"`
}

// SetStatusRequest changes a request's status.
type SetStatusRequest struct {
	ID     int    `json:"id"`
	Status string `json:"status"`
}

// RequestDTO represents a leave request in API responses.
type RequestDTO struct {
	ID            int     `json:"id"`
	EmployeeEmail string  `json:"employee_email"`
	EmployeeName  string  `json:"employee_name,omitempty"`
	Date          string  `json:"date"`
	Period        string  `json:"period"`
	Type          string  `json:"type"`
	Days          float64 `json:"days"`
	Reason        string  `json:"reason"`
	Status        string  `json:"status"`
	RemainingDays float64 `json:"remaining_days"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at,omitempty"`
}

func toRequestDTO(r leave.LeaveRequest) RequestDTO {
	return RequestDTO{
		ID:            r.ID,
		EmployeeEmail: r.EmployeeEmail,
		Date:          r.Date.Format(dateLayout),
		Period:        string(r.Period),
		Type:          string(r.Type),
		Days:          r.Days.InexactFloat64(),
		Reason:        r.Reason,
		Status:        string(r.Status),
		CreatedAt:     formatTime(r.CreatedAt),
		UpdatedAt:     formatTime(r.UpdatedAt),
	}
}

func toRequestViewDTO(v requests.View) RequestDTO {
	dto := toRequestDTO(v.LeaveRequest)
	dto.EmployeeName = v.EmployeeName
	dto.RemainingDays = v.RemainingDays.InexactFloat64()
	return dto
}

// RequestListResponse is a page of annotated requests.
type RequestListResponse struct {
	Requests []RequestDTO `json:"requests"`
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}

// StatusChangeResponse returns the updated request plus the remaining
// balance for its category, read after any ledger effect.
type StatusChangeResponse struct {
	Request       RequestDTO `json:"request"`
	RemainingDays float64    `json:"remaining_days"`
}

// =============================================================================
// OVERTIME
// =============================================================================

// OvertimeRequest carries the mutable fields of an activity. ID is
// required for updates, ignored on create.
type OvertimeRequest struct {
	ID           int      `json:"id,omitempty"`
	Name         string   `json:"name"`
	Date         string   `json:"date"`
	Hours        float64  `json:"hours"`
	Participants []string `json:"participants"`
	Description  string   `json:"description"`
}

// OvertimeDTO represents an overtime activity in API responses.
type OvertimeDTO struct {
	ID               int      `json:"id"`
	Name             string   `json:"name"`
	Date             string   `json:"date"`
	Hours            float64  `json:"hours"`
	Participants     []string `json:"participants"`
	ParticipantNames []string `json:"participant_names,omitempty"`
	Description      string   `json:"description"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at,omitempty"`
}

func toOvertimeDTO(a leave.OvertimeActivity) OvertimeDTO {
	return OvertimeDTO{
		ID:           a.ID,
		Name:         a.Name,
		Date:         a.Date.Format(dateLayout),
		Hours:        a.Hours.InexactFloat64(),
		Participants: a.Participants,
		Description:  a.Description,
		CreatedAt:    formatTime(a.CreatedAt),
		UpdatedAt:    formatTime(a.UpdatedAt),
	}
}

func toOvertimeViewDTO(v overtime.View) OvertimeDTO {
	dto := toOvertimeDTO(v.OvertimeActivity)
	dto.ParticipantNames = v.ParticipantNames
	return dto
}

// =============================================================================
// DASHBOARDS
// =============================================================================

// OverviewDTO is the admin dashboard summary.
type OverviewDTO struct {
	TotalEmployees    int                `json:"total_employees"`
	PendingRequests   int                `json:"pending_requests"`
	LeavesThisMonth   int                `json:"leaves_this_month"`
	AnnualLeaveUsage  string             `json:"annual_leave_usage"`
	MonthlyLeaveStats map[string]int     `json:"monthly_leave_stats"`
	Activities        []ActivityEntryDTO `json:"activities"`
}

// ActivityEntryDTO is one line of the recent-activity feed.
type ActivityEntryDTO struct {
	Time     string `json:"time"`
	Employee string `json:"employee"`
	Action   string `json:"action"`
	Status   string `json:"status"`
}

func toOverviewDTO(ov *stats.Overview) OverviewDTO {
	monthly := make(map[string]int, len(ov.MonthlyLeaveStats))
	for c, n := range ov.MonthlyLeaveStats {
		monthly[string(c)] = n
	}
	entries := make([]ActivityEntryDTO, len(ov.Activities))
	for i, a := range ov.Activities {
		entries[i] = ActivityEntryDTO{
			Time:     formatTime(a.Time),
			Employee: a.Employee,
			Action:   a.Action,
			Status:   string(a.Status),
		}
	}
	return OverviewDTO{
		TotalEmployees:    ov.TotalEmployees,
		PendingRequests:   ov.PendingRequests,
		LeavesThisMonth:   ov.LeavesThisMonth,
		AnnualLeaveUsage:  ov.AnnualLeaveUsage,
		MonthlyLeaveStats: monthly,
		Activities:        entries,
	}
}

// CategoryBalanceDTO is one category's figures on the employee
// dashboard.
type CategoryBalanceDTO struct {
	Total     float64 `json:"total"`
	Remaining float64 `json:"remaining"`
	Used      float64 `json:"used"`
}

// EmployeeOverviewDTO is the employee dashboard summary.
type EmployeeOverviewDTO struct {
	Name     string                        `json:"name"`
	Email    string                        `json:"email"`
	HireDate string                        `json:"hire_date"`
	Balances map[string]CategoryBalanceDTO `json:"balances"`
}

func toEmployeeOverviewDTO(ov *stats.EmployeeOverview) EmployeeOverviewDTO {
	balances := make(map[string]CategoryBalanceDTO, len(ov.Balances))
	for c, b := range ov.Balances {
		balances[string(c)] = CategoryBalanceDTO{
			Total:     b.Total.InexactFloat64(),
			Remaining: b.Remaining.InexactFloat64(),
			Used:      b.Used.InexactFloat64(),
		}
	}
	return EmployeeOverviewDTO{
		Name:     ov.Name,
		Email:    ov.Email,
		HireDate: ov.HireDate.Format(dateLayout),
		Balances: balances,
	}
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`

	// Populated for partially applied overtime mutations so the
	// operator can see which balances were written before the failure.
	Applied []string `json:"applied,omitempty"`
	Failed  string   `json:"failed,omitempty"`
	Skipped []string `json:"skipped,omitempty"`
}
