package repository

import (
	"context"
	"time"

	"employee-access-service/internal/ledger/domain"
)

// Repository defines persistence for TTL access codes.
//
// Issue must atomically invalidate every unused, unexpired code for the
// employee and insert the new one: no two codes for one employee may be
// simultaneously valid. Consume must mark the code used with a single
// conditional update, returning (nil, nil) when the code is absent, already
// used, or expired; the caller classifies the miss via GetByCode.
type Repository interface {
	EmployeeByPhone(ctx context.Context, phone string) (*domain.Employee, error)
	EmployeeByID(ctx context.Context, id string) (*domain.Employee, error)
	Issue(ctx context.Context, c *domain.AccessCode) error
	Consume(ctx context.Context, code string, now time.Time) (*domain.AccessCode, error)
	GetByCode(ctx context.Context, code string) (*domain.AccessCode, error)
}

// DefaultCodeTTL is the default access-code expiry.
const DefaultCodeTTL = 10 * time.Minute
