// Package store defines the durable identity store and its implementations.
//
// Contract shared by all implementations:
//   - Lookup and FindByCode return (nil, nil) for a missing record; errors
//     are reserved for infrastructure failures.
//   - Register is the single write path for new identities and refuses to
//     overwrite, which is what keeps issued codes immutable.
//   - Readers never observe a partially written store state.
package store

import (
	"context"
	"errors"
	"time"

	"employee-access-service/internal/identity/domain"
)

var (
	// ErrNotFound is returned by TouchAccess when no identity exists for the phone.
	ErrNotFound = errors.New("identity not found")
	// ErrDuplicateIdentity is returned by Register when the phone is already registered.
	ErrDuplicateIdentity = errors.New("identity already registered for phone")
	// ErrDuplicateCode is returned by Register when the code is already held by
	// another identity. Codes are globally unique across the store.
	ErrDuplicateCode = errors.New("access code already in use")
)

// Store is the durable keyed store of phone → identity record.
type Store interface {
	// Lookup returns the identity for the canonical phone, or nil if absent.
	// Lookup never mutates the store.
	Lookup(ctx context.Context, phone string) (*domain.Identity, error)
	// FindByCode returns the identity holding the code, or nil if absent.
	FindByCode(ctx context.Context, code string) (*domain.Identity, error)
	// Register persists a new identity. It fails with ErrDuplicateIdentity if
	// the phone is taken and ErrDuplicateCode if the code is taken.
	Register(ctx context.Context, identity *domain.Identity) error
	// TouchAccess records a retrieval by updating lastAccessAt. It fails with
	// ErrNotFound if no identity exists for the phone.
	TouchAccess(ctx context.Context, phone string, at time.Time) error
	// List returns every identity in the store in unspecified order.
	List(ctx context.Context) ([]*domain.Identity, error)
}
