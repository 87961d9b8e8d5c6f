package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"employee-access-service/internal/identity/domain"
	ledgersvc "employee-access-service/internal/ledger/service"
	"employee-access-service/internal/phone"
	"employee-access-service/internal/registration"
)

type sessionEventReq struct {
	Type  string `json:"type"` // start | phone | name | cancel
	Phone string `json:"phone,omitempty"`
	Name  string `json:"name,omitempty"`
}

type identityResp struct {
	Phone        string    `json:"phone"`
	Name         string    `json:"name"`
	Code         string    `json:"code"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessAt time.Time `json:"last_access_at"`
}

type sessionEventResp struct {
	Kind     string        `json:"kind"`
	Identity *identityResp `json:"identity,omitempty"`
	Reason   string        `json:"reason,omitempty"`
}

func toIdentityResp(id *domain.Identity) *identityResp {
	if id == nil {
		return nil
	}
	return &identityResp{
		Phone:        id.Phone,
		Name:         id.DisplayName,
		Code:         id.Code,
		CreatedAt:    id.CreatedAt,
		LastAccessAt: id.LastAccessAt,
	}
}

// sessionEvent dispatches one conversation event for the session in the
// path. The event type selects the machine event; phone and name carry the
// raw user input.
func (s *Server) sessionEvent(c echo.Context) error {
	sid := c.Param("sid")
	var req sessionEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	var ev registration.Event
	switch req.Type {
	case "start":
		ev = registration.StartRequested{SessionID: sid}
	case "phone":
		ev = registration.PhoneSubmitted{SessionID: sid, RawPhone: req.Phone}
	case "name":
		ev = registration.NameSubmitted{SessionID: sid, RawName: req.Name}
	case "cancel":
		ev = registration.CancelRequested{SessionID: sid}
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("unknown event type %q", req.Type)})
	}

	res, err := s.machine.Handle(c.Request().Context(), ev)
	if err != nil {
		c.Logger().Errorf("session event: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed, please retry"})
	}
	return c.JSON(http.StatusOK, sessionEventResp{
		Kind:     string(res.Kind),
		Identity: toIdentityResp(res.Identity),
		Reason:   res.Reason,
	})
}

// getIdentity is the "get my code" path: lookup by phone, touching the
// access time on a hit.
func (s *Server) getIdentity(c echo.Context) error {
	id, err := s.identities.Find(c.Request().Context(), c.Param("phone"))
	if errors.Is(err, phone.ErrInvalidPhone) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid phone"})
	}
	if err != nil {
		c.Logger().Errorf("get identity: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	if id == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not registered"})
	}
	return c.JSON(http.StatusOK, toIdentityResp(id))
}

func (s *Server) listIdentities(c echo.Context) error {
	ids, _, err := s.identities.Listing(c.Request().Context())
	if err != nil {
		c.Logger().Errorf("list identities: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "listing failed"})
	}
	out := make([]*identityResp, 0, len(ids))
	for _, id := range ids {
		out = append(out, toIdentityResp(id))
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(out), "identities": out})
}

// exportIdentities returns the plain-text listing, the same document the
// file backend keeps on disk.
func (s *Server) exportIdentities(c echo.Context) error {
	_, text, err := s.identities.Listing(c.Request().Context())
	if err != nil {
		c.Logger().Errorf("export identities: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "export failed"})
	}
	return c.String(http.StatusOK, text)
}

type issueCodeReq struct {
	Phone string `json:"phone"`
}

type issueCodeResp struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// issueCode creates a fresh TTL code for the employee, invalidating any
// outstanding one.
func (s *Server) issueCode(c echo.Context) error {
	if s.ledger == nil {
		return c.JSON(http.StatusNotImplemented, echo.Map{"error": "code ledger not configured"})
	}
	var req issueCodeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ac, err := s.ledger.Issue(c.Request().Context(), req.Phone)
	switch {
	case errors.Is(err, phone.ErrInvalidPhone):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid phone"})
	case errors.Is(err, ledgersvc.ErrEmployeeNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "employee not found"})
	case err != nil:
		c.Logger().Errorf("issue code: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue failed"})
	}
	return c.JSON(http.StatusCreated, issueCodeResp{Code: ac.Code, ExpiresAt: ac.ExpiresAt})
}

type verifyReq struct {
	Code string `json:"code"`
}

type verifyResp struct {
	Phone          string    `json:"phone"`
	Name           string    `json:"name"`
	Token          string    `json:"token,omitempty"`
	TokenExpiresAt time.Time `json:"token_expires_at,omitempty"`
}

// verifyCode redeems a TTL code, or checks a permanent identity code when no
// ledger is configured. Success mints a JWT when a token provider is wired.
func (s *Server) verifyCode(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil || req.Code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code required"})
	}

	var empPhone, empName string
	if s.ledger != nil {
		emp, err := s.ledger.Redeem(c.Request().Context(), req.Code)
		switch {
		case errors.Is(err, ledgersvc.ErrCodeNotFound):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown code"})
		case errors.Is(err, ledgersvc.ErrCodeAlreadyUsed):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "code already used"})
		case errors.Is(err, ledgersvc.ErrCodeExpired):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "code expired"})
		case err != nil:
			c.Logger().Errorf("verify code: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verification failed"})
		}
		empPhone, empName = emp.Phone, emp.FullName
	} else {
		id, err := s.identities.VerifyCode(c.Request().Context(), req.Code)
		if err != nil {
			c.Logger().Errorf("verify code: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verification failed"})
		}
		if id == nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown code"})
		}
		empPhone, empName = id.Phone, id.DisplayName
	}

	resp := verifyResp{Phone: empPhone, Name: empName}
	if s.tokens != nil {
		token, _, expiresAt, err := s.tokens.IssueAccess(empPhone, empName)
		if err != nil {
			c.Logger().Errorf("issue token: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token issuance failed"})
		}
		resp.Token = token
		resp.TokenExpiresAt = expiresAt
	}
	return c.JSON(http.StatusOK, resp)
}
