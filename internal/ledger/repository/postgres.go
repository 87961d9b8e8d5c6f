package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"employee-access-service/internal/ledger/domain"
)

// PostgresRepository persists access codes in the access_codes table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a ledger repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) EmployeeByPhone(ctx context.Context, phone string) (*domain.Employee, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, phone, full_name FROM employees WHERE phone = $1 AND is_active`, phone)
	return scanEmployee(row)
}

func (r *PostgresRepository) EmployeeByID(ctx context.Context, id string) (*domain.Employee, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, phone, full_name FROM employees WHERE id = $1 AND is_active`, id)
	return scanEmployee(row)
}

// Issue invalidates the employee's outstanding codes and inserts the new one
// in a single transaction, so concurrent issues for the same employee leave
// exactly one valid code.
func (r *PostgresRepository) Issue(ctx context.Context, c *domain.AccessCode) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger: begin issue: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE access_codes SET is_used = TRUE
		  WHERE employee_id = $1 AND NOT is_used AND expires_at > $2`,
		c.EmployeeID, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("ledger: invalidate codes: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO access_codes (id, employee_id, code, created_at, expires_at, is_used)
		 VALUES ($1, $2, $3, $4, $5, FALSE)`,
		c.ID, c.EmployeeID, c.Code, c.CreatedAt, c.ExpiresAt)
	if err != nil {
		return fmt.Errorf("ledger: insert code: %w", err)
	}
	return tx.Commit()
}

// Consume marks the code used if and only if it is currently redeemable.
// The conditional UPDATE is the whole concurrency story: of N concurrent
// redeemers exactly one sees an affected row.
func (r *PostgresRepository) Consume(ctx context.Context, code string, now time.Time) (*domain.AccessCode, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE access_codes SET is_used = TRUE
		  WHERE code = $1 AND NOT is_used AND expires_at > $2
		 RETURNING id, employee_id, code, created_at, expires_at, is_used`,
		code, now)
	return scanCode(row)
}

func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (*domain.AccessCode, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, employee_id, code, created_at, expires_at, is_used
		   FROM access_codes
		  WHERE code = $1
		  ORDER BY created_at DESC
		  LIMIT 1`, code)
	return scanCode(row)
}

func scanEmployee(row *sql.Row) (*domain.Employee, error) {
	var e domain.Employee
	err := row.Scan(&e.ID, &e.Phone, &e.FullName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: scan employee: %w", err)
	}
	return &e, nil
}

func scanCode(row *sql.Row) (*domain.AccessCode, error) {
	var c domain.AccessCode
	err := row.Scan(&c.ID, &c.EmployeeID, &c.Code, &c.CreatedAt, &c.ExpiresAt, &c.IsUsed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: scan code: %w", err)
	}
	return &c, nil
}
