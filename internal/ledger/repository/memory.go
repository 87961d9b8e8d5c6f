package repository

import (
	"context"
	"sync"
	"time"

	"employee-access-service/internal/ledger/domain"
)

// MemoryRepository is an in-memory Repository for tests and local runs. A
// single mutex stands in for the transactional guarantees of Postgres.
type MemoryRepository struct {
	mu        sync.Mutex
	employees map[string]domain.Employee // by id
	byPhone   map[string]string          // phone -> id
	codes     []domain.AccessCode
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		employees: make(map[string]domain.Employee),
		byPhone:   make(map[string]string),
	}
}

// AddEmployee seeds an employee record.
func (r *MemoryRepository) AddEmployee(e domain.Employee) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.employees[e.ID] = e
	r.byPhone[e.Phone] = e.ID
}

func (r *MemoryRepository) EmployeeByPhone(_ context.Context, phone string) (*domain.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byPhone[phone]
	if !ok {
		return nil, nil
	}
	e := r.employees[id]
	return &e, nil
}

func (r *MemoryRepository) EmployeeByID(_ context.Context, id string) (*domain.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.employees[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r *MemoryRepository) Issue(_ context.Context, c *domain.AccessCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.codes {
		if r.codes[i].EmployeeID == c.EmployeeID && r.codes[i].Valid(c.CreatedAt) {
			r.codes[i].IsUsed = true
		}
	}
	r.codes = append(r.codes, *c)
	return nil
}

func (r *MemoryRepository) Consume(_ context.Context, code string, now time.Time) (*domain.AccessCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.codes {
		if r.codes[i].Code == code && r.codes[i].Valid(now) {
			r.codes[i].IsUsed = true
			cp := r.codes[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) GetByCode(_ context.Context, code string) (*domain.AccessCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.AccessCode
	for i := range r.codes {
		if r.codes[i].Code != code {
			continue
		}
		if latest == nil || r.codes[i].CreatedAt.After(latest.CreatedAt) {
			cp := r.codes[i]
			latest = &cp
		}
	}
	return latest, nil
}
