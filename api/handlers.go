/*
handlers.go - HTTP API handlers for the leave management system

PURPOSE:
  Exposes the leave engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Auth:
    POST   /api/login                   Plaintext credential check

  Admin:
    GET    /api/admin/overview          Dashboard summary
    GET    /api/admin/employees         List employees
    POST   /api/admin/employees         Create employee
    PUT    /api/admin/employees         Update employee
    GET    /api/admin/requests          List requests (filter/sort/page)
    POST   /api/admin/requests          Change a request's status
    GET    /api/admin/overtime          List overtime activities
    POST   /api/admin/overtime          Create activity (credits balances)
    PUT    /api/admin/overtime          Update activity (debit old, credit new)
    DELETE /api/admin/overtime?id=N     Delete activity (reverses credits)
    GET    /api/admin/reports/monthly   Monthly summary as PDF

  Employee:
    GET    /api/employee/overview?email=  Per-category balances
    GET    /api/employee/history?email=   Own requests, newest first
    POST   /api/employee/leave?email=     Submit a leave application
    PUT    /api/employee/profile          Update name/password

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, unknown categories, bad input
  - 404: Employee, request or activity not found
  - 409: Duplicate email
  - 500: Internal errors; partially applied overtime mutations carry
         applied/failed/skipped so the operator can reconcile

SECURITY NOTE:
  Login is a plaintext comparison and no session is issued. The role in
  the response is advisory; endpoints themselves are unauthenticated.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dayoff/leave-engine/config"
	"github.com/dayoff/leave-engine/email"
	"github.com/dayoff/leave-engine/leave"
	"github.com/dayoff/leave-engine/overtime"
	"github.com/dayoff/leave-engine/report"
	"github.com/dayoff/leave-engine/requests"
	"github.com/dayoff/leave-engine/stats"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    leave.Store
	Requests *requests.Service
	Overtime *overtime.Service
	Stats    *stats.Service
	Notifier *email.Notifier
	Cfg      config.Config
}

// NewHandler wires the services over the given store.
func NewHandler(store leave.Store, cfg config.Config) *Handler {
	ledger := leave.NewLedger(store)
	return &Handler{
		Store:    store,
		Requests: requests.NewService(store, ledger),
		Overtime: overtime.NewService(store, ledger),
		Stats:    stats.NewService(store),
		Notifier: email.NewNotifier(email.NewMailer(cfg), cfg.AdminEmail),
		Cfg:      cfg,
	}
}

// =============================================================================
// AUTH
// =============================================================================

// Login checks credentials and returns the account's role.
// POST /api/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required", nil)
		return
	}

	// The administrator is a configured account, not a stored row.
	if strings.EqualFold(req.Email, h.Cfg.AdminEmail) {
		if req.Password != h.Cfg.AdminPassword {
			writeError(w, http.StatusUnauthorized, "Invalid credentials", nil)
			return
		}
		writeJSON(w, http.StatusOK, LoginResponse{
			Role:  "admin",
			Name:  h.Cfg.AdminName,
			Email: h.Cfg.AdminEmail,
		})
		return
	}

	emp, err := h.Store.GetEmployee(r.Context(), req.Email)
	if errors.Is(err, leave.ErrEmployeeNotFound) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to look up account", err)
		return
	}
	if emp.Password != req.Password {
		writeError(w, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Role:       "employee",
		Name:       emp.Name,
		Email:      emp.Email,
		Department: emp.Department,
	})
}

// =============================================================================
// ADMIN: DASHBOARD
// =============================================================================

// AdminOverview returns the dashboard summary for the current month.
// GET /api/admin/overview
func (h *Handler) AdminOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.Stats.AdminOverview(r.Context(), time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build overview", err)
		return
	}
	writeJSON(w, http.StatusOK, toOverviewDTO(ov))
}

// MonthlyReport streams the current month's summary as a PDF.
// GET /api/admin/reports/monthly
func (h *Handler) MonthlyReport(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	ov, err := h.Stats.AdminOverview(r.Context(), now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build overview", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="leave-report-%s.pdf"`, now.Format("2006-01")))
	if err := report.Monthly(w, now, ov); err != nil {
		log.Printf("monthly report: %v", err)
	}
}

// =============================================================================
// ADMIN: EMPLOYEES
// =============================================================================

// ListEmployees returns all employees.
// GET /api/admin/employees
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEmployee creates a new employee with initial allotments.
// POST /api/admin/employees
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "Name and email are required", nil)
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "Password is required", nil)
		return
	}
	hireDate, err := time.Parse(dateLayout, req.HireDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hire_date, expected YYYY-MM-DD", err)
		return
	}
	for c := range req.Allotment {
		if !leave.Category(c).Valid() {
			writeError(w, http.StatusBadRequest, "Unknown leave category: "+c, nil)
			return
		}
	}

	e := leave.NewEmployee(req.Name, req.Email, req.Password,
		hireDate, req.Department, req.Notes, balancesFromJSON(req.Allotment))
	saved, err := h.Store.AppendEmployee(r.Context(), e)
	if err != nil {
		writeDomainError(w, "Failed to create employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(*saved))
}

// UpdateEmployee applies a partial edit to an employee.
// PUT /api/admin/employees
func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	var req UpdateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "Email is required", nil)
		return
	}

	up := leave.EmployeeUpdate{
		Name:       req.Name,
		Password:   req.Password,
		Department: req.Department,
		Notes:      req.Notes,
		Allotment:  balancesFromJSON(req.Allotment),
		Remaining:  balancesFromJSON(req.Remaining),
	}
	if req.HireDate != nil {
		hireDate, err := time.Parse(dateLayout, *req.HireDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid hire_date, expected YYYY-MM-DD", err)
			return
		}
		up.HireDate = &hireDate
	}
	for c := range up.Allotment {
		if !c.Valid() {
			writeError(w, http.StatusBadRequest, "Unknown leave category: "+string(c), nil)
			return
		}
	}
	for c := range up.Remaining {
		if !c.Valid() {
			writeError(w, http.StatusBadRequest, "Unknown leave category: "+string(c), nil)
			return
		}
	}

	saved, err := h.Store.UpdateEmployee(r.Context(), req.Email, up)
	if err != nil {
		writeDomainError(w, "Failed to update employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*saved))
}

// =============================================================================
// ADMIN: LEAVE REQUESTS
// =============================================================================

// ListRequests returns annotated requests with filtering, sorting and
// pagination.
// GET /api/admin/requests?year=&month=&status=&type=&sort=&order=&page=&page_size=
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := requests.Filter{
		Year:   queryInt(q.Get("year"), 0),
		Month:  time.Month(queryInt(q.Get("month"), 0)),
		Status: leave.Status(q.Get("status")),
		Type:   leave.Category(q.Get("type")),
	}
	views, err := h.Requests.List(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list requests", err)
		return
	}

	sortField := requests.SortField(q.Get("sort"))
	if sortField == "" {
		sortField = requests.SortByCreatedAt
	}
	requests.Sort(views, sortField, q.Get("order") != "asc")

	page := queryInt(q.Get("page"), 1)
	if page < 1 {
		page = 1
	}
	pageSize := queryInt(q.Get("page_size"), 20)
	if pageSize < 1 {
		pageSize = 20
	}
	total := len(views)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	dtos := make([]RequestDTO, 0, end-start)
	for _, v := range views[start:end] {
		dtos = append(dtos, toRequestViewDTO(v))
	}
	writeJSON(w, http.StatusOK, RequestListResponse{
		Requests: dtos,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// SetRequestStatus changes a request's status and applies the balance
// effect of the transition.
// POST /api/admin/requests
func (h *Handler) SetRequestStatus(w http.ResponseWriter, r *http.Request) {
	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	change, err := h.Requests.SetStatus(r.Context(), req.ID, leave.Status(req.Status))
	if err != nil {
		writeDomainError(w, "Failed to update request status", err)
		return
	}

	h.notifyStatusChanged(r, change.Request)

	writeJSON(w, http.StatusOK, StatusChangeResponse{
		Request:       toRequestDTO(change.Request),
		RemainingDays: change.RemainingDays.InexactFloat64(),
	})
}

// =============================================================================
// ADMIN: OVERTIME
// =============================================================================

// ListOvertime returns activities for the given period.
// GET /api/admin/overtime?year=&month=
func (h *Handler) ListOvertime(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	views, err := h.Overtime.ListByPeriod(r.Context(),
		queryInt(q.Get("year"), 0), time.Month(queryInt(q.Get("month"), 0)))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list overtime activities", err)
		return
	}

	dtos := make([]OvertimeDTO, len(views))
	for i, v := range views {
		dtos[i] = toOvertimeViewDTO(v)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateOvertime records an activity and credits every participant.
// POST /api/admin/overtime
func (h *Handler) CreateOvertime(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeOvertimeInput(w, r)
	if !ok {
		return
	}

	saved, err := h.Overtime.Create(r.Context(), in)
	if err != nil {
		writeDomainError(w, "Failed to create overtime activity", err)
		return
	}
	writeJSON(w, http.StatusCreated, toOvertimeDTO(*saved))
}

// UpdateOvertime re-grants an activity: the old hours are debited from
// the old participants, then the new hours credited to the new ones.
// PUT /api/admin/overtime
func (h *Handler) UpdateOvertime(w http.ResponseWriter, r *http.Request) {
	var req OvertimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == 0 {
		writeError(w, http.StatusBadRequest, "Activity id is required", nil)
		return
	}
	in, ok := h.overtimeInput(w, req)
	if !ok {
		return
	}

	saved, err := h.Overtime.Update(r.Context(), req.ID, in)
	if err != nil {
		writeDomainError(w, "Failed to update overtime activity", err)
		return
	}
	writeJSON(w, http.StatusOK, toOvertimeDTO(*saved))
}

// DeleteOvertime removes an activity, reversing its credits first.
// DELETE /api/admin/overtime?id=N
func (h *Handler) DeleteOvertime(w http.ResponseWriter, r *http.Request) {
	id := queryInt(r.URL.Query().Get("id"), 0)
	if id == 0 {
		writeError(w, http.StatusBadRequest, "Activity id is required", nil)
		return
	}

	if err := h.Overtime.Delete(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete overtime activity", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) decodeOvertimeInput(w http.ResponseWriter, r *http.Request) (overtime.Input, bool) {
	var req OvertimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return overtime.Input{}, false
	}
	return h.overtimeInput(w, req)
}

func (h *Handler) overtimeInput(w http.ResponseWriter, req OvertimeRequest) (overtime.Input, bool) {
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD", err)
		return overtime.Input{}, false
	}
	return overtime.Input{
		Name:         req.Name,
		Date:         date,
		Hours:        decimal.NewFromFloat(req.Hours),
		Participants: req.Participants,
		Description:  req.Description,
	}, true
}

// =============================================================================
// EMPLOYEE
// =============================================================================

// EmployeeOverview returns per-category balances for one employee.
// GET /api/employee/overview?email=
func (h *Handler) EmployeeOverview(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "Email is required", nil)
		return
	}

	ov, err := h.Stats.EmployeeOverview(r.Context(), email, time.Now())
	if err != nil {
		writeDomainError(w, "Failed to build employee overview", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeOverviewDTO(ov))
}

// EmployeeHistory returns the employee's own requests, newest first.
// GET /api/employee/history?email=
func (h *Handler) EmployeeHistory(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "Email is required", nil)
		return
	}

	history, err := h.Requests.History(r.Context(), email)
	if err != nil {
		writeDomainError(w, "Failed to load history", err)
		return
	}
	dtos := make([]RequestDTO, len(history))
	for i, req := range history {
		dtos[i] = toRequestDTO(req)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SubmitLeave files a new leave application for the employee.
// POST /api/employee/leave?email=
func (h *Handler) SubmitLeave(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "Email is required", nil)
		return
	}

	var req SubmitLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD", err)
		return
	}

	saved, err := h.Requests.Submit(r.Context(), requests.SubmitInput{
		EmployeeEmail: email,
		Date:          date,
		Period:        leave.Period(req.Period),
		Type:          leave.Category(req.Type),
		Days:          decimal.NewFromFloat(req.Days),
		Reason:        req.Reason,
	})
	if err != nil {
		writeDomainError(w, "Failed to submit leave request", err)
		return
	}

	h.notifyRequested(r, *saved)

	writeJSON(w, http.StatusCreated, toRequestDTO(*saved))
}

// UpdateProfile lets an employee edit their own profile fields. Balances
// are not reachable from here.
// PUT /api/employee/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "Email is required", nil)
		return
	}

	up := leave.EmployeeUpdate{
		Name:       req.Name,
		Password:   req.Password,
		Department: req.Department,
		Notes:      req.Notes,
	}
	if req.HireDate != nil {
		hireDate, err := time.Parse(dateLayout, *req.HireDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid hire_date, expected YYYY-MM-DD", err)
			return
		}
		up.HireDate = &hireDate
	}

	saved, err := h.Store.UpdateEmployee(r.Context(), req.Email, up)
	if err != nil {
		writeDomainError(w, "Failed to update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*saved))
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

// Notification failures are logged, never surfaced: the mutation has
// already committed by the time mail is sent.

func (h *Handler) notifyRequested(r *http.Request, req leave.LeaveRequest) {
	emp, err := h.Store.GetEmployee(r.Context(), req.EmployeeEmail)
	if err != nil {
		log.Printf("notify: look up %s: %v", req.EmployeeEmail, err)
		return
	}
	if err := h.Notifier.LeaveRequested(r.Context(), req, *emp); err != nil {
		log.Printf("notify: leave requested: %v", err)
	}
}

func (h *Handler) notifyStatusChanged(r *http.Request, req leave.LeaveRequest) {
	emp, err := h.Store.GetEmployee(r.Context(), req.EmployeeEmail)
	if err != nil {
		log.Printf("notify: look up %s: %v", req.EmployeeEmail, err)
		return
	}
	if err := h.Notifier.StatusChanged(r.Context(), req, *emp); err != nil {
		log.Printf("notify: status changed: %v", err)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func queryInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	if pe, ok := overtime.AsPartial(err); ok {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   message,
			Details: pe.Error(),
			Applied: pe.Applied,
			Failed:  pe.FailedEmail,
			Skipped: pe.Skipped,
		})
		return
	}

	switch {
	case leave.IsValidation(err), errors.Is(err, leave.ErrInvalidCategory):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, leave.ErrEmployeeNotFound),
		errors.Is(err, leave.ErrRequestNotFound),
		errors.Is(err, leave.ErrActivityNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, leave.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
