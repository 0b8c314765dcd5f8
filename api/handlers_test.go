/*
handlers_test.go - HTTP-level tests for the API

Tests run against the in-memory store through httptest, exercising the
full middleware and handler stack.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayoff/leave-engine/config"
	"github.com/dayoff/leave-engine/leave"
	"github.com/dayoff/leave-engine/store/memory"
)

func testConfig() config.Config {
	return config.Config{
		AdminEmail:     "admin@company.com",
		AdminPassword:  "admin1234",
		AdminName:      "管理員",
		AllowedOrigins: []string{"http://localhost:5173"},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	srv := httptest.NewServer(NewRouter(NewHandler(store, testConfig())))
	t.Cleanup(srv.Close)
	return srv, store
}

func seedEmployee(t *testing.T, store *memory.Store, name, email string, annual int64) {
	t.Helper()
	e := leave.NewEmployee(name, email, "123456",
		time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), "技術部", "",
		map[leave.Category]decimal.Decimal{
			leave.CategoryAnnual: decimal.NewFromInt(annual),
		})
	_, err := store.AppendEmployee(context.Background(), e)
	require.NoError(t, err)
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// =============================================================================
// AUTH
// =============================================================================

func TestLoginAdmin(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/login",
		LoginRequest{Email: "admin@company.com", Password: "admin1234"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[LoginResponse](t, resp)
	assert.Equal(t, "admin", body.Role)
	assert.Equal(t, "管理員", body.Name)
}

func TestLoginEmployee(t *testing.T) {
	srv, store := newTestServer(t)
	seedEmployee(t, store, "小明", "ming@company.com", 14)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/login",
		LoginRequest{Email: "MING@company.com", Password: "123456"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[LoginResponse](t, resp)
	assert.Equal(t, "employee", body.Role)
	assert.Equal(t, "小明", body.Name)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv, store := newTestServer(t)
	seedEmployee(t, store, "小明", "ming@company.com", 14)

	cases := []LoginRequest{
		{Email: "admin@company.com", Password: "wrong"},
		{Email: "ming@company.com", Password: "wrong"},
		{Email: "nobody@company.com", Password: "123456"},
	}
	for _, c := range cases {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/login", c)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "email %s", c.Email)
	}
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestCreateAndListEmployees(t *testing.T) {
	srv, _ := newTestServer(t)

	// WHEN: creating an employee with an annual allotment
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/admin/employees", CreateEmployeeRequest{
		Name:      "小明",
		Email:     "ming@company.com",
		Password:  "123456",
		HireDate:  "2023-01-15",
		Allotment: map[string]float64{"特休": 14},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decode[EmployeeDTO](t, resp)
	assert.Equal(t, 1, created.ID)
	// THEN: remaining starts equal to the allotment
	assert.Equal(t, 14.0, created.Remaining["特休"])

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/admin/employees", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]EmployeeDTO](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, "小明", list[0].Name)
}

func TestCreateEmployeeRejectsUnknownCategory(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/admin/employees", CreateEmployeeRequest{
		Name:      "小明",
		Email:     "ming@company.com",
		Password:  "123456",
		HireDate:  "2023-01-15",
		Allotment: map[string]float64{"無薪假": 5},
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateEmployeeDuplicateEmail(t *testing.T) {
	srv, store := newTestServer(t)
	seedEmployee(t, store, "小明", "ming@company.com", 14)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/admin/employees", CreateEmployeeRequest{
		Name:     "假小明",
		Email:    "MING@company.com",
		Password: "x",
		HireDate: "2024-01-01",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestUpdateEmployeeBalances(t *testing.T) {
	srv, store := newTestServer(t)
	seedEmployee(t, store, "小明", "ming@company.com", 14)

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/admin/employees", UpdateEmployeeRequest{
		Email:     "ming@company.com",
		Remaining: map[string]float64{"特休": 10},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	updated := decode[EmployeeDTO](t, resp)
	assert.Equal(t, 10.0, updated.Remaining["特休"])
	assert.Equal(t, 14.0, updated.Allotment["特休"])
}

// =============================================================================
// LEAVE LIFECYCLE
// =============================================================================

func submitLeave(t *testing.T, srv *httptest.Server, email string, days float64) RequestDTO {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/employee/leave?email="+email, SubmitLeaveRequest{
		Date:   "2025-03-10",
		Period: "全天",
		Type:   "特休",
		Days:   days,
		Reason: "家庭旅遊",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[RequestDTO](t, resp)
}

func TestLeaveLifecycle(t *testing.T) {
	srv, store := newTestServer(t)
	seedEmployee(t, store, "小明", "ming@company.com", 14)

	// GIVEN: a submitted request
	created := submitLeave(t, srv, "ming@company.com", 2)
	assert.Equal(t, "pending", created.Status)

	// WHEN: the admin approves it
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/admin/requests",
		SetStatusRequest{ID: created.ID, Status: "approved"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	change := decode[StatusChangeResponse](t, resp)
	// THEN: the balance is debited
	assert.Equal(t, "approved", change.Request.Status)
	assert.Equal(t, 12.0, change.RemainingDays)

	// WHEN: the admin reverses the decision
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/admin/requests",
		SetStatusRequest{ID: created.ID, Status: "rejected"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	change = decode[StatusChangeResponse](t, resp)
	// THEN: the days come back
	assert.Equal(t, 14.0, change.RemainingDays)
}

func TestSubmitLeaveValidation(t *testing.T) {
	srv, store := newTestServer(t)
	seedEmployee(t, store, "小明", "ming@company.com", 14)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/employee/leave?email=ming@company.com",
		SubmitLeaveRequest{Date: "2025-03-10", Period: "全天", Type: "特休", Days: 0.25, Reason: "x"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/employee/leave?email=nobody@company.com",
		SubmitLeaveRequest{Date: "2025-03-10", Period: "全天", Type: "特休", Days: 1, Reason: "x"})
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSetStatusUnknownRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/admin/requests",
		SetStatusRequest{ID: 999, Status: "approved"})
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListRequestsPagination(t *testing.T) {
	srv, store := newTestServer(t)
	seedEmployee(t, store, "小明", "ming@company.com", 14)

	for i := 0; i < 5; i++ {
		submitLeave(t, srv, "ming@company.com", 1)
	}

	resp := doJSON(t, http.MethodGet,
		srv.URL+"/api/admin/requests?page=2&page_size=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	page := decode[RequestListResponse](t, resp)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Len(t, page.Requests, 2)
	assert.Equal(t, "小明", page.Requests[0].EmployeeName)
}

func TestEmployeeHistory(t *testing.T) {
	srv, store := newTestServer(t)
	seedEmployee(t, store, "小明", "ming@company.com", 14)
	seedEmployee(t, store, "小華", "hua@company.com", 10)

	submitLeave(t, srv, "ming@company.com", 1)
	submitLeave(t, srv, "hua@company.com", 2)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/employee/history?email=ming@company.com", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	history := decode[[]RequestDTO](t, resp)
	require.Len(t, history, 1)
	assert.Equal(t, "ming@company.com", history[0].EmployeeEmail)
}

// =============================================================================
// OVERTIME
// =============================================================================

func TestOvertimeLifecycle(t *testing.T) {
	srv, store := newTestServer(t)
	seedEmployee(t, store, "小明", "ming@company.com", 14)
	ctx := context.Background()

	// GIVEN: an activity crediting compensatory days
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/admin/overtime", OvertimeRequest{
		Name:         "系統上線支援",
		Date:         "2025-04-05",
		Hours:        2,
		Participants: []string{"ming@company.com"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[OvertimeDTO](t, resp)

	emp, err := store.GetEmployee(ctx, "ming@company.com")
	require.NoError(t, err)
	assert.True(t, emp.Remaining[leave.CategoryCompensatory].Equal(decimal.NewFromInt(2)))

	// WHEN: the grant is corrected to 3
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/admin/overtime", OvertimeRequest{
		ID:           created.ID,
		Name:         "系統上線支援",
		Date:         "2025-04-05",
		Hours:        3,
		Participants: []string{"ming@company.com"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	emp, err = store.GetEmployee(ctx, "ming@company.com")
	require.NoError(t, err)
	assert.True(t, emp.Remaining[leave.CategoryCompensatory].Equal(decimal.NewFromInt(3)))

	// WHEN: the activity is deleted
	resp = doJSON(t, http.MethodDelete,
		fmt.Sprintf("%s/api/admin/overtime?id=%d", srv.URL, created.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// THEN: the credit is reversed
	emp, err = store.GetEmployee(ctx, "ming@company.com")
	require.NoError(t, err)
	assert.True(t, emp.Remaining[leave.CategoryCompensatory].IsZero())
}

func TestCreateOvertimePartialFailure(t *testing.T) {
	srv, store := newTestServer(t)
	seedEmployee(t, store, "小明", "ming@company.com", 14)

	// One participant doesn't exist; the loop stops at them.
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/admin/overtime", OvertimeRequest{
		Name:         "加班",
		Date:         "2025-04-05",
		Hours:        2,
		Participants: []string{"ming@company.com", "ghost@company.com"},
	})
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body := decode[ErrorResponse](t, resp)
	assert.Equal(t, []string{"ming@company.com"}, body.Applied)
	assert.Equal(t, "ghost@company.com", body.Failed)
}

func TestDeleteOvertimeRequiresID(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodDelete, srv.URL+"/api/admin/overtime", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// DASHBOARDS
// =============================================================================

func TestAdminOverview(t *testing.T) {
	srv, store := newTestServer(t)
	seedEmployee(t, store, "小明", "ming@company.com", 14)
	seedEmployee(t, store, "小華", "hua@company.com", 10)

	submitLeave(t, srv, "ming@company.com", 2)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/admin/overview", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ov := decode[OverviewDTO](t, resp)
	assert.Equal(t, 2, ov.TotalEmployees)
	assert.Equal(t, 1, ov.PendingRequests)
}

func TestEmployeeOverview(t *testing.T) {
	srv, store := newTestServer(t)
	seedEmployee(t, store, "小明", "ming@company.com", 14)

	created := submitLeave(t, srv, "ming@company.com", 2)
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/admin/requests",
		SetStatusRequest{ID: created.ID, Status: "approved"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/employee/overview?email=ming@company.com", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ov := decode[EmployeeOverviewDTO](t, resp)
	assert.Equal(t, "小明", ov.Name)
	annual := ov.Balances["特休"]
	assert.Equal(t, 14.0, annual.Total)
	assert.Equal(t, 12.0, annual.Remaining)
}

func TestEmployeeOverviewUnknownEmail(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/employee/overview?email=nobody@company.com", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// REPORTS
// =============================================================================

func TestMonthlyReportIsPDF(t *testing.T) {
	srv, store := newTestServer(t)
	seedEmployee(t, store, "小明", "ming@company.com", 14)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/admin/reports/monthly", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	head := make([]byte, 5)
	_, err := io.ReadFull(resp.Body, head)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-", string(head))
}
