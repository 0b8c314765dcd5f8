/*
Package sqlite provides the default embedded implementation of
leave.Store.

SCHEMA:
  employees            profile fields, email unique (case-insensitive)
  employee_balances    one row per (employee, category): allotment and
                       remaining stored as string-encoded decimals
  leave_requests       one row per application
  overtime_activities  participants stored comma-joined, order preserved

IDS:
  Append operations compute max(id)+1 inside a transaction, matching
  the record-store contract shared with the other backends.

WAL MODE:
  The database is opened with WAL so reads don't block the writer.

ENCODING:
  Day amounts are TEXT decimals, never floats. Date-only fields use
  2006-01-02. Timestamps use RFC 3339 with the empty string standing
  for "never" (updated_at before the first change).
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/dayoff/leave-engine/leave"
)

// Store implements leave.Store on SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and migrates the
// schema. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection sidesteps SQLite's writer contention and
	// keeps :memory: databases coherent across goroutines.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL COLLATE NOCASE UNIQUE,
		password TEXT NOT NULL,
		hire_date TEXT NOT NULL,
		department TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS employee_balances (
		employee_email TEXT NOT NULL COLLATE NOCASE,
		category TEXT NOT NULL,
		allotment TEXT NOT NULL,
		remaining TEXT NOT NULL,
		PRIMARY KEY (employee_email, category)
	);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id INTEGER PRIMARY KEY,
		employee_email TEXT NOT NULL COLLATE NOCASE,
		date TEXT NOT NULL,
		period TEXT NOT NULL,
		type TEXT NOT NULL,
		days TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_leave_requests_email
		ON leave_requests(employee_email);
	CREATE INDEX IF NOT EXISTS idx_leave_requests_status
		ON leave_requests(status);

	CREATE TABLE IF NOT EXISTS overtime_activities (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		date TEXT NOT NULL,
		hours TEXT NOT NULL,
		participants TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_overtime_activities_date
		ON overtime_activities(date);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ENCODING HELPERS
// =============================================================================

const dateLayout = "2006-01-02"

func encodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func decodeTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func decodeDate(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func decodeDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func joinParticipants(emails []string) string { return strings.Join(emails, ",") }

func splitParticipants(s string) []string {
	return leave.NormalizeEmails(strings.Split(s, ","))
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (s *Store) GetEmployee(ctx context.Context, email string) (*leave.Employee, error) {
	var e leave.Employee
	var hireDate string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password, hire_date, department, notes
		FROM employees WHERE email = ?`, email).
		Scan(&e.ID, &e.Name, &e.Email, &e.Password, &hireDate, &e.Department, &e.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, leave.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get employee: %w", err)
	}
	e.HireDate = decodeDate(hireDate)

	if err := s.loadBalances(ctx, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) loadBalances(ctx context.Context, e *leave.Employee) error {
	e.Allotment = make(map[leave.Category]decimal.Decimal, len(leave.Categories))
	e.Remaining = make(map[leave.Category]decimal.Decimal, len(leave.Categories))
	for _, c := range leave.Categories {
		e.Allotment[c] = decimal.Zero
		e.Remaining[c] = decimal.Zero
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, allotment, remaining
		FROM employee_balances WHERE employee_email = ?`, e.Email)
	if err != nil {
		return fmt.Errorf("load balances: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cat, allotment, remaining string
		if err := rows.Scan(&cat, &allotment, &remaining); err != nil {
			return fmt.Errorf("scan balance: %w", err)
		}
		c := leave.Category(cat)
		e.Allotment[c] = decodeDecimal(allotment)
		e.Remaining[c] = decodeDecimal(remaining)
	}
	return rows.Err()
}

func (s *Store) ListEmployees(ctx context.Context) ([]leave.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, password, hire_date, department, notes
		FROM employees ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var out []leave.Employee
	for rows.Next() {
		var e leave.Employee
		var hireDate string
		if err := rows.Scan(&e.ID, &e.Name, &e.Email, &e.Password, &hireDate, &e.Department, &e.Notes); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		e.HireDate = decodeDate(hireDate)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if err := s.loadBalances(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) AppendEmployee(ctx context.Context, e leave.Employee) (*leave.Employee, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("append employee: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM employees WHERE email = ?`, e.Email).Scan(&exists); err != nil {
		return nil, fmt.Errorf("append employee: %w", err)
	}
	if exists > 0 {
		return nil, leave.ErrDuplicateEmail
	}

	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(id), 0) + 1 FROM employees`).Scan(&e.ID); err != nil {
		return nil, fmt.Errorf("append employee: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO employees (id, name, email, password, hire_date, department, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.Email, e.Password, e.HireDate.Format(dateLayout), e.Department, e.Notes)
	if err != nil {
		return nil, fmt.Errorf("append employee: %w", err)
	}

	for _, c := range leave.Categories {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO employee_balances (employee_email, category, allotment, remaining)
			VALUES (?, ?, ?, ?)`,
			e.Email, string(c), e.Allotment[c].String(), e.Remaining[c].String())
		if err != nil {
			return nil, fmt.Errorf("append employee balances: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("append employee: %w", err)
	}
	return s.GetEmployee(ctx, e.Email)
}

func (s *Store) UpdateEmployee(ctx context.Context, email string, up leave.EmployeeUpdate) (*leave.Employee, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("update employee: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM employees WHERE email = ?`, email).Scan(&exists); err != nil {
		return nil, fmt.Errorf("update employee: %w", err)
	}
	if exists == 0 {
		return nil, leave.ErrEmployeeNotFound
	}

	set := func(column string, value any) error {
		_, err := tx.ExecContext(ctx,
			fmt.Sprintf(`UPDATE employees SET %s = ? WHERE email = ?`, column), value, email)
		return err
	}
	if up.Name != nil {
		if err := set("name", *up.Name); err != nil {
			return nil, fmt.Errorf("update employee name: %w", err)
		}
	}
	if up.Password != nil {
		if err := set("password", *up.Password); err != nil {
			return nil, fmt.Errorf("update employee password: %w", err)
		}
	}
	if up.HireDate != nil {
		if err := set("hire_date", up.HireDate.Format(dateLayout)); err != nil {
			return nil, fmt.Errorf("update employee hire_date: %w", err)
		}
	}
	if up.Department != nil {
		if err := set("department", *up.Department); err != nil {
			return nil, fmt.Errorf("update employee department: %w", err)
		}
	}
	if up.Notes != nil {
		if err := set("notes", *up.Notes); err != nil {
			return nil, fmt.Errorf("update employee notes: %w", err)
		}
	}

	for c, v := range up.Allotment {
		_, err := tx.ExecContext(ctx, `
			UPDATE employee_balances SET allotment = ?
			WHERE employee_email = ? AND category = ?`, v.String(), email, string(c))
		if err != nil {
			return nil, fmt.Errorf("update allotment: %w", err)
		}
	}
	for c, v := range up.Remaining {
		_, err := tx.ExecContext(ctx, `
			UPDATE employee_balances SET remaining = ?
			WHERE employee_email = ? AND category = ?`, v.String(), email, string(c))
		if err != nil {
			return nil, fmt.Errorf("update remaining: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update employee: %w", err)
	}
	return s.GetEmployee(ctx, email)
}

func (s *Store) SetEmployeeRemaining(ctx context.Context, email string, cat leave.Category, value decimal.Decimal) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE employee_balances SET remaining = ?
		WHERE employee_email = ? AND category = ?`, value.String(), email, string(cat))
	if err != nil {
		return fmt.Errorf("set remaining: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set remaining: %w", err)
	}
	if n == 0 {
		return leave.ErrEmployeeNotFound
	}
	return nil
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

const requestColumns = `id, employee_email, date, period, type, days, reason, status, created_at, updated_at`

func scanRequest(scan func(dest ...any) error) (*leave.LeaveRequest, error) {
	var r leave.LeaveRequest
	var date, days, createdAt, updatedAt string
	err := scan(&r.ID, &r.EmployeeEmail, &date, &r.Period, &r.Type, &days, &r.Reason, &r.Status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	r.Date = decodeDate(date)
	r.Days = decodeDecimal(days)
	r.CreatedAt = decodeTime(createdAt)
	r.UpdatedAt = decodeTime(updatedAt)
	return &r, nil
}

func (s *Store) GetLeaveRequest(ctx context.Context, id int) (*leave.LeaveRequest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM leave_requests WHERE id = ?`, id)
	r, err := scanRequest(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, leave.ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get leave request: %w", err)
	}
	return r, nil
}

func (s *Store) ListLeaveRequests(ctx context.Context) ([]leave.LeaveRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM leave_requests ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list leave requests: %w", err)
	}
	defer rows.Close()

	var out []leave.LeaveRequest
	for rows.Next() {
		r, err := scanRequest(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan leave request: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *Store) AppendLeaveRequest(ctx context.Context, r leave.LeaveRequest) (*leave.LeaveRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("append leave request: %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(id), 0) + 1 FROM leave_requests`).Scan(&r.ID); err != nil {
		return nil, fmt.Errorf("append leave request: %w", err)
	}
	r.Status = leave.StatusPending
	r.CreatedAt = time.Now()
	r.UpdatedAt = time.Time{}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO leave_requests (id, employee_email, date, period, type, days, reason, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, '')`,
		r.ID, r.EmployeeEmail, r.Date.Format(dateLayout), string(r.Period), string(r.Type),
		r.Days.String(), r.Reason, string(r.Status), encodeTime(r.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("append leave request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("append leave request: %w", err)
	}
	return &r, nil
}

func (s *Store) SetLeaveRequestStatus(ctx context.Context, id int, status leave.Status) (*leave.LeaveRequest, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE leave_requests SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), encodeTime(time.Now()), id)
	if err != nil {
		return nil, fmt.Errorf("set request status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("set request status: %w", err)
	}
	if n == 0 {
		return nil, leave.ErrRequestNotFound
	}
	return s.GetLeaveRequest(ctx, id)
}

// =============================================================================
// OVERTIME ACTIVITIES
// =============================================================================

const activityColumns = `id, name, date, hours, participants, description, created_at, updated_at`

func scanActivity(scan func(dest ...any) error) (*leave.OvertimeActivity, error) {
	var a leave.OvertimeActivity
	var date, hours, participants, createdAt, updatedAt string
	err := scan(&a.ID, &a.Name, &date, &hours, &participants, &a.Description, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	a.Date = decodeDate(date)
	a.Hours = decodeDecimal(hours)
	a.Participants = splitParticipants(participants)
	a.CreatedAt = decodeTime(createdAt)
	a.UpdatedAt = decodeTime(updatedAt)
	return &a, nil
}

func (s *Store) GetOvertimeActivity(ctx context.Context, id int) (*leave.OvertimeActivity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+activityColumns+` FROM overtime_activities WHERE id = ?`, id)
	a, err := scanActivity(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, leave.ErrActivityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get overtime activity: %w", err)
	}
	return a, nil
}

func (s *Store) ListOvertimeActivities(ctx context.Context) ([]leave.OvertimeActivity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+activityColumns+` FROM overtime_activities ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list overtime activities: %w", err)
	}
	defer rows.Close()

	var out []leave.OvertimeActivity
	for rows.Next() {
		a, err := scanActivity(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan overtime activity: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *Store) AppendOvertimeActivity(ctx context.Context, a leave.OvertimeActivity) (*leave.OvertimeActivity, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("append overtime activity: %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(id), 0) + 1 FROM overtime_activities`).Scan(&a.ID); err != nil {
		return nil, fmt.Errorf("append overtime activity: %w", err)
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Time{}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO overtime_activities (id, name, date, hours, participants, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, '')`,
		a.ID, a.Name, a.Date.Format(dateLayout), a.Hours.String(),
		joinParticipants(a.Participants), a.Description, encodeTime(a.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("append overtime activity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("append overtime activity: %w", err)
	}
	return &a, nil
}

func (s *Store) SetOvertimeActivityFields(ctx context.Context, id int, up leave.ActivityUpdate) (*leave.OvertimeActivity, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE overtime_activities
		SET name = ?, date = ?, hours = ?, participants = ?, description = ?, updated_at = ?
		WHERE id = ?`,
		up.Name, up.Date.Format(dateLayout), up.Hours.String(),
		joinParticipants(up.Participants), up.Description, encodeTime(time.Now()), id)
	if err != nil {
		return nil, fmt.Errorf("update overtime activity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update overtime activity: %w", err)
	}
	if n == 0 {
		return nil, leave.ErrActivityNotFound
	}
	return s.GetOvertimeActivity(ctx, id)
}

func (s *Store) DeleteOvertimeActivity(ctx context.Context, id int) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM overtime_activities WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete overtime activity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete overtime activity: %w", err)
	}
	return n > 0, nil
}
