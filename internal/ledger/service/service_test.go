package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"employee-access-service/internal/ledger/domain"
	"employee-access-service/internal/ledger/repository"
	"employee-access-service/internal/phone"
)

type seqGen struct {
	mu sync.Mutex
	n  int
}

func (g *seqGen) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%06d", g.n), nil
}

func newTestService(t *testing.T) (*Service, *repository.MemoryRepository) {
	t.Helper()
	repo := repository.NewMemoryRepository()
	repo.AddEmployee(domain.Employee{ID: "emp-1", Phone: "79991234567", FullName: "Иванов Иван"})
	return New(repo, &seqGen{}, 10*time.Minute, nil), repo
}

func TestIssueAndRedeem(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ac, err := svc.Issue(ctx, "+7 999 123-45-67")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if ac.EmployeeID != "emp-1" || ac.Code == "" {
		t.Fatalf("issued = %+v", ac)
	}
	if got := ac.ExpiresAt.Sub(ac.CreatedAt); got != 10*time.Minute {
		t.Errorf("TTL = %v, want 10m", got)
	}

	emp, err := svc.Redeem(ctx, ac.Code)
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if emp.ID != "emp-1" {
		t.Errorf("redeemed employee = %+v", emp)
	}
}

func TestIssue_UnknownEmployee(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Issue(context.Background(), "79990000000")
	if !errors.Is(err, ErrEmployeeNotFound) {
		t.Errorf("Issue = %v, want ErrEmployeeNotFound", err)
	}
}

func TestIssue_InvalidPhone(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Issue(context.Background(), "123")
	if !errors.Is(err, phone.ErrInvalidPhone) {
		t.Errorf("Issue = %v, want ErrInvalidPhone", err)
	}
}

func TestIssue_InvalidatesPriorCode(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Issue(ctx, "79991234567")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	second, err := svc.Issue(ctx, "79991234567")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := svc.Redeem(ctx, first.Code); !errors.Is(err, ErrCodeAlreadyUsed) {
		t.Errorf("Redeem(first) = %v, want ErrCodeAlreadyUsed after reissue", err)
	}
	if _, err := svc.Redeem(ctx, second.Code); err != nil {
		t.Errorf("Redeem(second) = %v, want success", err)
	}
}

func TestRedeem_ExactlyOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ac, err := svc.Issue(ctx, "79991234567")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	const attempts = 8
	var wg sync.WaitGroup
	var okCount, usedCount int
	var mu sync.Mutex
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Redeem(ctx, ac.Code)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				okCount++
			case errors.Is(err, ErrCodeAlreadyUsed):
				usedCount++
			default:
				t.Errorf("Redeem: %v", err)
			}
		}()
	}
	wg.Wait()

	if okCount != 1 {
		t.Errorf("%d redemptions succeeded, want exactly 1", okCount)
	}
	if usedCount != attempts-1 {
		t.Errorf("%d attempts saw already-used, want %d", usedCount, attempts-1)
	}
}

func TestRedeem_UnknownCode(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Redeem(context.Background(), "999999")
	if !errors.Is(err, ErrCodeNotFound) {
		t.Errorf("Redeem = %v, want ErrCodeNotFound", err)
	}
}

func TestRedeem_ExpiredCode(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ac, err := svc.Issue(ctx, "79991234567")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	svc.nowF = func() time.Time { return ac.ExpiresAt.Add(time.Second) }
	if _, err := svc.Redeem(ctx, ac.Code); !errors.Is(err, ErrCodeExpired) {
		t.Errorf("Redeem after expiry = %v, want ErrCodeExpired", err)
	}
}

func TestRedeem_ExpiryBoundary(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ac, err := svc.Issue(ctx, "79991234567")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Exactly at ExpiresAt the code is no longer redeemable.
	svc.nowF = func() time.Time { return ac.ExpiresAt }
	if _, err := svc.Redeem(ctx, ac.Code); !errors.Is(err, ErrCodeExpired) {
		t.Errorf("Redeem at expiry instant = %v, want ErrCodeExpired", err)
	}
}

func TestNew_DefaultTTL(t *testing.T) {
	svc := New(repository.NewMemoryRepository(), &seqGen{}, 0, nil)
	if svc.ttl != repository.DefaultCodeTTL {
		t.Errorf("ttl = %v, want default %v", svc.ttl, repository.DefaultCodeTTL)
	}
}
