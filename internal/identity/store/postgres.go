package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"employee-access-service/internal/identity/domain"
)

// uniqueViolation is the Postgres error code for unique constraint violations.
const uniqueViolation = "23505"

// PostgresStore is the relational Store implementation over the employees
// table. The unique constraints on phone and code make Register atomic: a
// racing duplicate insert loses at the database rather than in application
// code, and a single-statement UPDATE keeps TouchAccess torn-read free.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres returns an identity store that uses the given db for persistence.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Lookup(ctx context.Context, phone string) (*domain.Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT phone, full_name, code, created_at, last_access_at
		   FROM employees
		  WHERE phone = $1 AND is_active`, phone)
	return scanIdentity(row)
}

func (s *PostgresStore) FindByCode(ctx context.Context, code string) (*domain.Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT phone, full_name, code, created_at, last_access_at
		   FROM employees
		  WHERE code = $1 AND is_active`, code)
	return scanIdentity(row)
}

func (s *PostgresStore) Register(ctx context.Context, identity *domain.Identity) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO employees (phone, full_name, code, is_active, created_at, last_access_at)
		 VALUES ($1, $2, $3, true, $4, $5)`,
		identity.Phone, identity.DisplayName, identity.Code,
		identity.CreatedAt, identity.LastAccessAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if strings.Contains(pgErr.ConstraintName, "code") {
				return ErrDuplicateCode
			}
			return ErrDuplicateIdentity
		}
		return fmt.Errorf("store: insert employee: %w", err)
	}
	return nil
}

func (s *PostgresStore) TouchAccess(ctx context.Context, phone string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE employees SET last_access_at = $2 WHERE phone = $1 AND is_active`, phone, at)
	if err != nil {
		return fmt.Errorf("store: touch access: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: touch access: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*domain.Identity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT phone, full_name, code, created_at, last_access_at
		   FROM employees
		  WHERE is_active
		  ORDER BY full_name, phone`)
	if err != nil {
		return nil, fmt.Errorf("store: list employees: %w", err)
	}
	defer rows.Close()

	var out []*domain.Identity
	for rows.Next() {
		var id domain.Identity
		if err := rows.Scan(&id.Phone, &id.DisplayName, &id.Code, &id.CreatedAt, &id.LastAccessAt); err != nil {
			return nil, fmt.Errorf("store: scan employee: %w", err)
		}
		out = append(out, &id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list employees: %w", err)
	}
	return out, nil
}

func scanIdentity(row *sql.Row) (*domain.Identity, error) {
	var id domain.Identity
	err := row.Scan(&id.Phone, &id.DisplayName, &id.Code, &id.CreatedAt, &id.LastAccessAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan employee: %w", err)
	}
	return &id, nil
}
