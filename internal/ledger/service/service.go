// Package service implements the TTL access-code ledger: issue one
// short-lived single-use code per employee, redeem it exactly once.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"employee-access-service/internal/ledger/domain"
	"employee-access-service/internal/ledger/repository"
	"employee-access-service/internal/metrics"
	"employee-access-service/internal/phone"
)

var (
	// ErrEmployeeNotFound is returned by Issue when no active employee
	// matches the phone.
	ErrEmployeeNotFound = errors.New("employee not found")
	// ErrCodeNotFound is returned by Redeem for a code that was never issued.
	ErrCodeNotFound = errors.New("code not found")
	// ErrCodeAlreadyUsed is returned by Redeem for a consumed code.
	ErrCodeAlreadyUsed = errors.New("code already used")
	// ErrCodeExpired is returned by Redeem for a code past its TTL.
	ErrCodeExpired = errors.New("code expired")
)

var tracer = otel.Tracer("employee-access-service/ledger")

// CodeGenerator produces candidate access codes.
type CodeGenerator interface {
	Generate() (string, error)
}

// Service issues and redeems TTL access codes.
type Service struct {
	repo    repository.Repository
	gen     CodeGenerator
	ttl     time.Duration
	metrics *metrics.Metrics
	nowF    func() time.Time
}

// New returns a ledger Service. ttl <= 0 falls back to the default; m may be
// nil.
func New(repo repository.Repository, gen CodeGenerator, ttl time.Duration, m *metrics.Metrics) *Service {
	if ttl <= 0 {
		ttl = repository.DefaultCodeTTL
	}
	return &Service{
		repo:    repo,
		gen:     gen,
		ttl:     ttl,
		metrics: m,
		nowF:    func() time.Time { return time.Now().UTC() },
	}
}

// Issue creates a fresh code for the employee behind rawPhone, invalidating
// any outstanding one. The previous code, if any, stops being redeemable the
// instant Issue commits.
func (s *Service) Issue(ctx context.Context, rawPhone string) (*domain.AccessCode, error) {
	ctx, span := tracer.Start(ctx, "ledger.Issue")
	defer span.End()

	canonical, err := phone.Normalize(rawPhone)
	if err != nil {
		return nil, err
	}
	emp, err := s.repo.EmployeeByPhone(ctx, canonical)
	if err != nil {
		return nil, fmt.Errorf("ledger: employee by phone: %w", err)
	}
	if emp == nil {
		return nil, ErrEmployeeNotFound
	}

	c, err := s.gen.Generate()
	if err != nil {
		return nil, fmt.Errorf("ledger: generate code: %w", err)
	}
	now := s.nowF()
	ac := &domain.AccessCode{
		ID:         uuid.NewString(),
		EmployeeID: emp.ID,
		Code:       c,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}
	if err := s.repo.Issue(ctx, ac); err != nil {
		return nil, fmt.Errorf("ledger: issue: %w", err)
	}
	s.metrics.IncLedgerIssued()
	return ac, nil
}

// Redeem consumes the code and returns its employee. It succeeds at most
// once per code; concurrent attempts race on the repository's conditional
// update and all but one fail with ErrCodeAlreadyUsed.
func (s *Service) Redeem(ctx context.Context, code string) (*domain.Employee, error) {
	ctx, span := tracer.Start(ctx, "ledger.Redeem")
	defer span.End()

	now := s.nowF()
	consumed, err := s.repo.Consume(ctx, code, now)
	if err != nil {
		return nil, fmt.Errorf("ledger: consume: %w", err)
	}
	if consumed == nil {
		return nil, s.classifyMiss(ctx, code, now)
	}

	emp, err := s.repo.EmployeeByID(ctx, consumed.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("ledger: employee by id: %w", err)
	}
	if emp == nil {
		return nil, fmt.Errorf("ledger: employee %s missing for consumed code", consumed.EmployeeID)
	}
	s.metrics.IncRedemption("ok")
	return emp, nil
}

// classifyMiss decides why the conditional update matched nothing.
func (s *Service) classifyMiss(ctx context.Context, code string, now time.Time) error {
	existing, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return fmt.Errorf("ledger: classify redemption: %w", err)
	}
	switch {
	case existing == nil:
		s.metrics.IncRedemption("not_found")
		return ErrCodeNotFound
	case existing.IsUsed:
		s.metrics.IncRedemption("already_used")
		return ErrCodeAlreadyUsed
	case !existing.ExpiresAt.After(now):
		s.metrics.IncRedemption("expired")
		return ErrCodeExpired
	default:
		// The code became redeemable between Consume and GetByCode; treat
		// the original miss as authoritative.
		s.metrics.IncRedemption("already_used")
		return ErrCodeAlreadyUsed
	}
}
