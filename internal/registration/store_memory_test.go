package registration

import (
	"context"
	"testing"
)

func TestMemorySessionStore(t *testing.T) {
	s := NewMemorySessionStore()
	ctx := context.Background()

	got, err := s.Get(ctx, "absent")
	if err != nil || got != nil {
		t.Fatalf("Get(absent) = (%+v, %v), want (nil, nil)", got, err)
	}

	sess := &Session{SessionID: "s1", State: StateAwaitingName, PendingPhone: "79991234567"}
	if err := s.Put(ctx, sess); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err = s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State != StateAwaitingName || got.PendingPhone != "79991234567" {
		t.Errorf("Get = %+v", got)
	}

	// The stored session must not alias the caller's struct.
	got.State = StateIdle
	again, _ := s.Get(ctx, "s1")
	if again.State != StateAwaitingName {
		t.Error("store returned an aliased session")
	}

	if err := s.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, _ = s.Get(ctx, "s1")
	if got != nil {
		t.Errorf("Get after delete = %+v, want nil", got)
	}

	// Deleting an absent session is a no-op.
	if err := s.Delete(ctx, "never-existed"); err != nil {
		t.Errorf("Delete(absent) = %v, want nil", err)
	}
}
