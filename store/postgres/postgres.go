/*
Package postgres provides a pgx-backed implementation of leave.Store.

Selected at startup when DATABASE_URL is set; otherwise the embedded
sqlite backend is used. The schema mirrors the sqlite one, with native
DATE / TIMESTAMPTZ / NUMERIC columns instead of TEXT encodings. A
citext-free design keeps email case-insensitivity in lower() indexes so
the module works on stock PostgreSQL.
*/
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dayoff/leave-engine/leave"
)

// Store implements leave.Store on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to the database at databaseURL and migrates the schema.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		password TEXT NOT NULL,
		hire_date DATE NOT NULL,
		department TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT ''
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_employees_email
		ON employees (lower(email));

	CREATE TABLE IF NOT EXISTS employee_balances (
		employee_email TEXT NOT NULL,
		category TEXT NOT NULL,
		allotment NUMERIC NOT NULL,
		remaining NUMERIC NOT NULL,
		PRIMARY KEY (employee_email, category)
	);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id INTEGER PRIMARY KEY,
		employee_email TEXT NOT NULL,
		date DATE NOT NULL,
		period TEXT NOT NULL,
		type TEXT NOT NULL,
		days NUMERIC NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ
	);
	CREATE INDEX IF NOT EXISTS idx_leave_requests_email
		ON leave_requests (lower(employee_email));
	CREATE INDEX IF NOT EXISTS idx_leave_requests_status
		ON leave_requests (status);

	CREATE TABLE IF NOT EXISTS overtime_activities (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		date DATE NOT NULL,
		hours NUMERIC NOT NULL,
		participants TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ
	);
	CREATE INDEX IF NOT EXISTS idx_overtime_activities_date
		ON overtime_activities (date);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func joinParticipants(emails []string) string { return strings.Join(emails, ",") }

func splitParticipants(s string) []string {
	return leave.NormalizeEmails(strings.Split(s, ","))
}

// Timestamps travel as *time.Time so NULL maps to the zero time.
func fromNullable(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (s *Store) GetEmployee(ctx context.Context, email string) (*leave.Employee, error) {
	var e leave.Employee
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, email, password, hire_date, department, notes
		FROM employees WHERE lower(email) = lower($1)`, email).
		Scan(&e.ID, &e.Name, &e.Email, &e.Password, &e.HireDate, &e.Department, &e.Notes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, leave.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get employee: %w", err)
	}

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

	rows, err := s.pool.Query(ctx, `
		SELECT category, allotment, remaining
		FROM employee_balances WHERE lower(employee_email) = lower($1)`, e.Email)
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
		e.Allotment[c], _ = decimal.NewFromString(allotment)
		e.Remaining[c], _ = decimal.NewFromString(remaining)
	}
	return rows.Err()
}

func (s *Store) ListEmployees(ctx context.Context) ([]leave.Employee, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, email, password, hire_date, department, notes
		FROM employees ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var out []leave.Employee
	for rows.Next() {
		var e leave.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Email, &e.Password, &e.HireDate, &e.Department, &e.Notes); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
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
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("append employee: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(1) FROM employees WHERE lower(email) = lower($1)`, e.Email).Scan(&exists); err != nil {
		return nil, fmt.Errorf("append employee: %w", err)
	}
	if exists > 0 {
		return nil, leave.ErrDuplicateEmail
	}

	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(id), 0) + 1 FROM employees`).Scan(&e.ID); err != nil {
		return nil, fmt.Errorf("append employee: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO employees (id, name, email, password, hire_date, department, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.Name, e.Email, e.Password, e.HireDate, e.Department, e.Notes)
	if err != nil {
		return nil, fmt.Errorf("append employee: %w", err)
	}

	for _, c := range leave.Categories {
		_, err = tx.Exec(ctx, `
			INSERT INTO employee_balances (employee_email, category, allotment, remaining)
			VALUES ($1, $2, $3, $4)`,
			e.Email, string(c), e.Allotment[c].String(), e.Remaining[c].String())
		if err != nil {
			return nil, fmt.Errorf("append employee balances: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("append employee: %w", err)
	}
	return s.GetEmployee(ctx, e.Email)
}

func (s *Store) UpdateEmployee(ctx context.Context, email string, up leave.EmployeeUpdate) (*leave.Employee, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("update employee: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(1) FROM employees WHERE lower(email) = lower($1)`, email).Scan(&exists); err != nil {
		return nil, fmt.Errorf("update employee: %w", err)
	}
	if exists == 0 {
		return nil, leave.ErrEmployeeNotFound
	}

	set := func(column string, value any) error {
		_, err := tx.Exec(ctx,
			fmt.Sprintf(`UPDATE employees SET %s = $1 WHERE lower(email) = lower($2)`, column),
			value, email)
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
		if err := set("hire_date", *up.HireDate); err != nil {
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
		_, err := tx.Exec(ctx, `
			UPDATE employee_balances SET allotment = $1
			WHERE lower(employee_email) = lower($2) AND category = $3`,
			v.String(), email, string(c))
		if err != nil {
			return nil, fmt.Errorf("update allotment: %w", err)
		}
	}
	for c, v := range up.Remaining {
		_, err := tx.Exec(ctx, `
			UPDATE employee_balances SET remaining = $1
			WHERE lower(employee_email) = lower($2) AND category = $3`,
			v.String(), email, string(c))
		if err != nil {
			return nil, fmt.Errorf("update remaining: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("update employee: %w", err)
	}
	return s.GetEmployee(ctx, email)
}

func (s *Store) SetEmployeeRemaining(ctx context.Context, email string, cat leave.Category, value decimal.Decimal) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE employee_balances SET remaining = $1
		WHERE lower(employee_email) = lower($2) AND category = $3`,
		value.String(), email, string(cat))
	if err != nil {
		return fmt.Errorf("set remaining: %w", err)
	}
	if tag.RowsAffected() == 0 {
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
	var days string
	var updatedAt *time.Time
	err := scan(&r.ID, &r.EmployeeEmail, &r.Date, &r.Period, &r.Type, &days, &r.Reason, &r.Status, &r.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	r.Days, _ = decimal.NewFromString(days)
	r.UpdatedAt = fromNullable(updatedAt)
	return &r, nil
}

func (s *Store) GetLeaveRequest(ctx context.Context, id int) (*leave.LeaveRequest, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM leave_requests WHERE id = $1`, id)
	r, err := scanRequest(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, leave.ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get leave request: %w", err)
	}
	return r, nil
}

func (s *Store) ListLeaveRequests(ctx context.Context) ([]leave.LeaveRequest, error) {
	rows, err := s.pool.Query(ctx,
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
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("append leave request: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(id), 0) + 1 FROM leave_requests`).Scan(&r.ID); err != nil {
		return nil, fmt.Errorf("append leave request: %w", err)
	}
	r.Status = leave.StatusPending
	r.CreatedAt = time.Now()
	r.UpdatedAt = time.Time{}

	_, err = tx.Exec(ctx, `
		INSERT INTO leave_requests (id, employee_email, date, period, type, days, reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL)`,
		r.ID, r.EmployeeEmail, r.Date, string(r.Period), string(r.Type),
		r.Days.String(), r.Reason, string(r.Status), r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("append leave request: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("append leave request: %w", err)
	}
	return &r, nil
}

func (s *Store) SetLeaveRequestStatus(ctx context.Context, id int, status leave.Status) (*leave.LeaveRequest, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE leave_requests SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now(), id)
	if err != nil {
		return nil, fmt.Errorf("set request status: %w", err)
	}
	if tag.RowsAffected() == 0 {
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
	var hours, participants string
	var updatedAt *time.Time
	err := scan(&a.ID, &a.Name, &a.Date, &hours, &participants, &a.Description, &a.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	a.Hours, _ = decimal.NewFromString(hours)
	a.Participants = splitParticipants(participants)
	a.UpdatedAt = fromNullable(updatedAt)
	return &a, nil
}

func (s *Store) GetOvertimeActivity(ctx context.Context, id int) (*leave.OvertimeActivity, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+activityColumns+` FROM overtime_activities WHERE id = $1`, id)
	a, err := scanActivity(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, leave.ErrActivityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get overtime activity: %w", err)
	}
	return a, nil
}

func (s *Store) ListOvertimeActivities(ctx context.Context) ([]leave.OvertimeActivity, error) {
	rows, err := s.pool.Query(ctx,
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
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("append overtime activity: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(id), 0) + 1 FROM overtime_activities`).Scan(&a.ID); err != nil {
		return nil, fmt.Errorf("append overtime activity: %w", err)
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Time{}

	_, err = tx.Exec(ctx, `
		INSERT INTO overtime_activities (id, name, date, hours, participants, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULL)`,
		a.ID, a.Name, a.Date, a.Hours.String(),
		joinParticipants(a.Participants), a.Description, a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("append overtime activity: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("append overtime activity: %w", err)
	}
	return &a, nil
}

func (s *Store) SetOvertimeActivityFields(ctx context.Context, id int, up leave.ActivityUpdate) (*leave.OvertimeActivity, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE overtime_activities
		SET name = $1, date = $2, hours = $3, participants = $4, description = $5, updated_at = $6
		WHERE id = $7`,
		up.Name, up.Date, up.Hours.String(),
		joinParticipants(up.Participants), up.Description, time.Now(), id)
	if err != nil {
		return nil, fmt.Errorf("update overtime activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, leave.ErrActivityNotFound
	}
	return s.GetOvertimeActivity(ctx, id)
}

func (s *Store) DeleteOvertimeActivity(ctx context.Context, id int) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM overtime_activities WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete overtime activity: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
