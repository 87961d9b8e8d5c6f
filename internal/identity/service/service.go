// Package service orchestrates identity lookups and registrations on top of
// the durable store: it owns phone canonicalization at the API boundary,
// code issuance with the global-uniqueness retry loop, and the post-write
// sync hook.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"

	"employee-access-service/internal/datasync"
	"employee-access-service/internal/identity/domain"
	"employee-access-service/internal/identity/export"
	"employee-access-service/internal/identity/store"
	"employee-access-service/internal/metrics"
	"employee-access-service/internal/phone"
)

// maxCodeAttempts bounds the regenerate-until-unique loop. With a ~8.5e11
// code space the loop effectively never retries; the bound exists so a
// corrupted store cannot spin the generator forever.
const maxCodeAttempts = 10

// ErrCodeSpaceExhausted is returned when the generator cannot produce an
// unused code within maxCodeAttempts.
var ErrCodeSpaceExhausted = errors.New("code space exhausted")

var tracer = otel.Tracer("employee-access-service/identity")

// CodeGenerator produces candidate access codes.
type CodeGenerator interface {
	Generate() (string, error)
}

// IdentityStore is the minimal store surface the service needs.
type IdentityStore interface {
	Lookup(ctx context.Context, phone string) (*domain.Identity, error)
	FindByCode(ctx context.Context, code string) (*domain.Identity, error)
	Register(ctx context.Context, identity *domain.Identity) error
	TouchAccess(ctx context.Context, phone string, at time.Time) error
	List(ctx context.Context) ([]*domain.Identity, error)
}

// Service implements identity lookup and registration.
type Service struct {
	store   IdentityStore
	gen     CodeGenerator
	sync    datasync.Hook // may be nil
	metrics *metrics.Metrics
	nowF    func() time.Time
}

// New returns a Service. sync and m may be nil.
func New(st IdentityStore, gen CodeGenerator, sync datasync.Hook, m *metrics.Metrics) *Service {
	return &Service{
		store:   st,
		gen:     gen,
		sync:    sync,
		metrics: m,
		nowF:    func() time.Time { return time.Now().UTC() },
	}
}

// Find normalizes rawPhone, returns the identity for it (nil if absent), and
// records the access time on a hit. The phone normalization error passes
// through as phone.ErrInvalidPhone.
func (s *Service) Find(ctx context.Context, rawPhone string) (*domain.Identity, error) {
	ctx, span := tracer.Start(ctx, "identity.Find")
	defer span.End()

	canonical, err := phone.Normalize(rawPhone)
	if err != nil {
		return nil, err
	}
	id, err := s.store.Lookup(ctx, canonical)
	if err != nil {
		return nil, fmt.Errorf("identity: lookup: %w", err)
	}
	if id == nil {
		return nil, nil
	}
	at := s.nowF()
	if err := s.store.TouchAccess(ctx, canonical, at); err != nil {
		return nil, fmt.Errorf("identity: touch access: %w", err)
	}
	id.LastAccessAt = at
	s.metrics.IncRetrieval()
	return id, nil
}

// Enroll registers rawPhone under rawName, issuing a fresh code. If an
// identity already exists for the phone (including one created by a racing
// registration) Enroll returns it unchanged with created=false and never
// reissues a code. A persistence failure is returned as-is so callers can
// keep the session open and retry; no code is reported unless the store
// write committed.
func (s *Service) Enroll(ctx context.Context, rawPhone, rawName string) (id *domain.Identity, created bool, err error) {
	ctx, span := tracer.Start(ctx, "identity.Enroll")
	defer span.End()

	canonical, err := phone.Normalize(rawPhone)
	if err != nil {
		return nil, false, err
	}
	if err := domain.ValidateDisplayName(rawName); err != nil {
		return nil, false, err
	}

	existing, err := s.store.Lookup(ctx, canonical)
	if err != nil {
		return nil, false, fmt.Errorf("identity: lookup: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		c, err := s.gen.Generate()
		if err != nil {
			return nil, false, fmt.Errorf("identity: generate code: %w", err)
		}
		now := s.nowF()
		candidate := &domain.Identity{
			Phone:        canonical,
			DisplayName:  rawName,
			Code:         c,
			CreatedAt:    now,
			LastAccessAt: now,
		}
		if err := candidate.Validate(); err != nil {
			return nil, false, fmt.Errorf("identity: %w", err)
		}
		err = s.store.Register(ctx, candidate)
		switch {
		case err == nil:
			s.metrics.IncRegistration()
			s.runSyncHook(ctx)
			return candidate, true, nil
		case errors.Is(err, store.ErrDuplicateCode):
			continue
		case errors.Is(err, store.ErrDuplicateIdentity):
			// Lost a race with a concurrent registration for the same
			// phone; the committed identity wins and its code stands.
			winner, lerr := s.store.Lookup(ctx, canonical)
			if lerr != nil {
				return nil, false, fmt.Errorf("identity: lookup after race: %w", lerr)
			}
			if winner == nil {
				return nil, false, fmt.Errorf("identity: phone %s vanished after duplicate register", canonical)
			}
			return winner, false, nil
		default:
			return nil, false, fmt.Errorf("identity: register: %w", err)
		}
	}
	return nil, false, ErrCodeSpaceExhausted
}

// VerifyCode resolves a permanent code back to its identity, the web login
// path for the non-expiring model. Returns nil when no identity holds the
// code; a hit records the access time.
func (s *Service) VerifyCode(ctx context.Context, c string) (*domain.Identity, error) {
	ctx, span := tracer.Start(ctx, "identity.VerifyCode")
	defer span.End()

	id, err := s.store.FindByCode(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("identity: find by code: %w", err)
	}
	if id == nil {
		return nil, nil
	}
	at := s.nowF()
	if err := s.store.TouchAccess(ctx, id.Phone, at); err != nil {
		return nil, fmt.Errorf("identity: touch access: %w", err)
	}
	id.LastAccessAt = at
	s.metrics.IncRetrieval()
	return id, nil
}

// Listing returns all identities and the rendered export text.
func (s *Service) Listing(ctx context.Context) ([]*domain.Identity, string, error) {
	ids, err := s.store.List(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("identity: list: %w", err)
	}
	return ids, export.Render(ids), nil
}

func (s *Service) runSyncHook(ctx context.Context) {
	if s.sync == nil {
		return
	}
	if err := s.sync.Run(ctx); err != nil {
		log.Printf("identity: sync hook failed: %v", err)
		s.metrics.IncSyncFailure()
	}
}
