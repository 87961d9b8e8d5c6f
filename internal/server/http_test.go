package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	identitysvc "employee-access-service/internal/identity/service"
	"employee-access-service/internal/identity/store"
	ledgerdomain "employee-access-service/internal/ledger/domain"
	ledgerrepo "employee-access-service/internal/ledger/repository"
	ledgersvc "employee-access-service/internal/ledger/service"
	"employee-access-service/internal/registration"
	"employee-access-service/internal/security"
)

type seqGen struct {
	mu     sync.Mutex
	prefix string
	n      int
}

func (g *seqGen) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s%04d", g.prefix, g.n), nil
}

func newTestServer(t *testing.T, ledger *ledgersvc.Service, tokens *security.TokenProvider) *Server {
	t.Helper()
	identities := identitysvc.New(store.NewMemoryStore(), &seqGen{prefix: "CODE"}, nil, nil)
	machine := registration.NewMachine(registration.NewMemorySessionStore(), identities)
	return New(identities, machine, ledger, tokens)
}

func doJSON(t *testing.T, s *Server, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func registerEmployee(t *testing.T, s *Server, sid, phone, name string) sessionEventResp {
	t.Helper()
	doJSON(t, s, http.MethodPost, "/v1/sessions/"+sid+"/events", `{"type":"start"}`)
	doJSON(t, s, http.MethodPost, "/v1/sessions/"+sid+"/events", fmt.Sprintf(`{"type":"phone","phone":%q}`, phone))
	rec := doJSON(t, s, http.MethodPost, "/v1/sessions/"+sid+"/events", fmt.Sprintf(`{"type":"name","name":%q}`, name))
	if rec.Code != http.StatusOK {
		t.Fatalf("name event status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp sessionEventResp
	decode(t, rec, &resp)
	return resp
}

func TestSessionEvents_FullConversation(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := doJSON(t, s, http.MethodPost, "/v1/sessions/u1/events", `{"type":"start"}`)
	var resp sessionEventResp
	decode(t, rec, &resp)
	if resp.Kind != "prompt_phone" {
		t.Fatalf("start kind = %q", resp.Kind)
	}

	rec = doJSON(t, s, http.MethodPost, "/v1/sessions/u1/events", `{"type":"phone","phone":"+7 999 123-45-67"}`)
	decode(t, rec, &resp)
	if resp.Kind != "prompt_name" {
		t.Fatalf("phone kind = %q", resp.Kind)
	}

	rec = doJSON(t, s, http.MethodPost, "/v1/sessions/u1/events", `{"type":"name","name":"Иванов Иван"}`)
	decode(t, rec, &resp)
	if resp.Kind != "code_issued" {
		t.Fatalf("name kind = %q", resp.Kind)
	}
	if resp.Identity == nil || resp.Identity.Phone != "79991234567" || resp.Identity.Code == "" {
		t.Errorf("identity = %+v", resp.Identity)
	}
}

func TestSessionEvents_InvalidInput(t *testing.T) {
	s := newTestServer(t, nil, nil)

	doJSON(t, s, http.MethodPost, "/v1/sessions/u1/events", `{"type":"start"}`)
	rec := doJSON(t, s, http.MethodPost, "/v1/sessions/u1/events", `{"type":"phone","phone":"123"}`)
	var resp sessionEventResp
	decode(t, rec, &resp)
	if resp.Kind != "validation_failed" || resp.Reason == "" {
		t.Errorf("resp = %+v, want validation_failed with reason", resp)
	}

	rec = doJSON(t, s, http.MethodPost, "/v1/sessions/u1/events", `{"type":"bogus"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown event type status = %d, want 400", rec.Code)
	}
}

func TestGetIdentity(t *testing.T) {
	s := newTestServer(t, nil, nil)
	issued := registerEmployee(t, s, "u1", "79991234567", "Иванов Иван")

	rec := doJSON(t, s, http.MethodGet, "/v1/identities/89991234567", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var got identityResp
	decode(t, rec, &got)
	if got.Code != issued.Identity.Code {
		t.Errorf("code = %q, want %q", got.Code, issued.Identity.Code)
	}

	if rec := doJSON(t, s, http.MethodGet, "/v1/identities/79990000000", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown phone status = %d, want 404", rec.Code)
	}
	if rec := doJSON(t, s, http.MethodGet, "/v1/identities/abc", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid phone status = %d, want 400", rec.Code)
	}
}

func TestListAndExport(t *testing.T) {
	s := newTestServer(t, nil, nil)
	registerEmployee(t, s, "u1", "79990000002", "Петров Петр")
	registerEmployee(t, s, "u2", "79990000001", "Иванов Иван")

	rec := doJSON(t, s, http.MethodGet, "/v1/identities", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listing struct {
		Count      int             `json:"count"`
		Identities []*identityResp `json:"identities"`
	}
	decode(t, rec, &listing)
	if listing.Count != 2 || len(listing.Identities) != 2 {
		t.Errorf("listing = %+v", listing)
	}

	rec = doJSON(t, s, http.MethodGet, "/v1/identities/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Иванов Иван") || !strings.Contains(body, "Петров Петр") {
		t.Errorf("export missing names:\n%s", body)
	}
	if strings.Index(body, "Иванов Иван") > strings.Index(body, "Петров Петр") {
		t.Errorf("export not sorted:\n%s", body)
	}
}

func TestVerify_PermanentCode(t *testing.T) {
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	s := newTestServer(t, nil, tokens)
	issued := registerEmployee(t, s, "u1", "79991234567", "Иванов Иван")

	rec := doJSON(t, s, http.MethodPost, "/v1/auth/verify", fmt.Sprintf(`{"code":%q}`, issued.Identity.Code))
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp verifyResp
	decode(t, rec, &resp)
	if resp.Phone != "79991234567" || resp.Token == "" {
		t.Errorf("verify resp = %+v", resp)
	}
	phone, fullName, err := tokens.ValidateAccess(resp.Token)
	if err != nil || phone != "79991234567" || fullName != "Иванов Иван" {
		t.Errorf("token claims = (%q, %q, %v)", phone, fullName, err)
	}

	if rec := doJSON(t, s, http.MethodPost, "/v1/auth/verify", `{"code":"WRONG999"}`); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong code status = %d, want 401", rec.Code)
	}
}

func TestLedgerIssueAndVerify(t *testing.T) {
	repo := ledgerrepo.NewMemoryRepository()
	repo.AddEmployee(ledgerdomain.Employee{ID: "emp-1", Phone: "79991234567", FullName: "Иванов Иван"})
	ledger := ledgersvc.New(repo, &seqGen{prefix: "LG"}, 10*time.Minute, nil)
	s := newTestServer(t, ledger, nil)

	rec := doJSON(t, s, http.MethodPost, "/v1/auth/codes", `{"phone":"+79991234567"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("issue status = %d: %s", rec.Code, rec.Body.String())
	}
	var issued issueCodeResp
	decode(t, rec, &issued)
	if issued.Code == "" || issued.ExpiresAt.IsZero() {
		t.Fatalf("issued = %+v", issued)
	}

	rec = doJSON(t, s, http.MethodPost, "/v1/auth/verify", fmt.Sprintf(`{"code":%q}`, issued.Code))
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status = %d: %s", rec.Code, rec.Body.String())
	}

	// Single use: the second redemption fails.
	rec = doJSON(t, s, http.MethodPost, "/v1/auth/verify", fmt.Sprintf(`{"code":%q}`, issued.Code))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("second verify status = %d, want 401", rec.Code)
	}

	if rec := doJSON(t, s, http.MethodPost, "/v1/auth/codes", `{"phone":"79990000000"}`); rec.Code != http.StatusNotFound {
		t.Errorf("unknown employee status = %d, want 404", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil, nil)
	rec := doJSON(t, s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil, nil)
	rec := doJSON(t, s, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Errorf("metrics status = %d", rec.Code)
	}
}
