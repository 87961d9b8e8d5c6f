package export

import (
	"strings"
	"testing"
	"time"

	"employee-access-service/internal/identity/domain"
)

func makeIdentity(phone, name, code string) *domain.Identity {
	now := time.Now().UTC()
	return &domain.Identity{
		Phone:        phone,
		DisplayName:  name,
		Code:         code,
		CreatedAt:    now,
		LastAccessAt: now,
	}
}

func TestRender_SortedByDisplayName(t *testing.T) {
	listing := Render([]*domain.Identity{
		makeIdentity("79990000002", "Петров Петр", "CODE2222"),
		makeIdentity("79990000001", "Иванов Иван", "CODE1111"),
		makeIdentity("79990000003", "Андреев Андрей", "CODE3333"),
	})

	posAndreev := strings.Index(listing, "Андреев Андрей")
	posIvanov := strings.Index(listing, "Иванов Иван")
	posPetrov := strings.Index(listing, "Петров Петр")
	if posAndreev < 0 || posIvanov < 0 || posPetrov < 0 {
		t.Fatalf("listing missing names:\n%s", listing)
	}
	if !(posAndreev < posIvanov && posIvanov < posPetrov) {
		t.Errorf("listing not sorted by display name:\n%s", listing)
	}
}

func TestRender_BlockShape(t *testing.T) {
	listing := Render([]*domain.Identity{
		makeIdentity("79991234567", "Иванов Иван", "ABCD2345"),
	})

	lines := strings.Split(strings.TrimRight(listing, "\n"), "\n")
	// header rule, header, rule, blank, then name/code/separator
	if len(lines) != 7 {
		t.Fatalf("line count = %d, want 7:\n%s", len(lines), listing)
	}
	if lines[4] != "Иванов Иван" {
		t.Errorf("name line = %q", lines[4])
	}
	if lines[5] != "ABCD2345" {
		t.Errorf("code line = %q", lines[5])
	}
	if !strings.HasPrefix(lines[6], "---") {
		t.Errorf("separator line = %q", lines[6])
	}
}

func TestRender_Deterministic(t *testing.T) {
	ids := []*domain.Identity{
		makeIdentity("79990000002", "Петров Петр", "CODE2222"),
		makeIdentity("79990000001", "Иванов Иван", "CODE1111"),
	}
	first := Render(ids)
	// Reversed input order must not change the output.
	second := Render([]*domain.Identity{ids[1], ids[0]})
	if first != second {
		t.Errorf("Render is order-sensitive:\n%s\nvs\n%s", first, second)
	}
}

func TestRender_EachIdentityExactlyOnce(t *testing.T) {
	ids := []*domain.Identity{
		makeIdentity("79990000001", "Иванов Иван", "CODE1111"),
		makeIdentity("79990000002", "Петров Петр", "CODE2222"),
	}
	listing := Render(ids)
	for _, id := range ids {
		if n := strings.Count(listing, id.Code); n != 1 {
			t.Errorf("code %s appears %d times, want 1", id.Code, n)
		}
	}
}

func TestRender_Empty(t *testing.T) {
	listing := Render(nil)
	if !strings.Contains(listing, "EMPLOYEE ACCESS CODES") {
		t.Errorf("empty listing should still carry the header:\n%s", listing)
	}
	if strings.Contains(listing, "---") {
		t.Errorf("empty listing should have no blocks:\n%s", listing)
	}
}
