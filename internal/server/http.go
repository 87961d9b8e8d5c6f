// Package server exposes the HTTP API: the registration conversation
// endpoint, identity lookup and export, and TTL code issue/verify.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	identitysvc "employee-access-service/internal/identity/service"
	ledgersvc "employee-access-service/internal/ledger/service"
	"employee-access-service/internal/registration"
	"employee-access-service/internal/security"
)

// Server wires the services behind the HTTP routes. Ledger and tokens are
// optional: without a ledger, code verification falls back to the permanent
// identity codes; without a token provider, verify responses carry no JWT.
type Server struct {
	echo       *echo.Echo
	identities *identitysvc.Service
	machine    *registration.Machine
	ledger     *ledgersvc.Service
	tokens     *security.TokenProvider
}

// New builds the HTTP server. ledger and tokens may be nil.
func New(identities *identitysvc.Service, machine *registration.Machine, ledger *ledgersvc.Service, tokens *security.TokenProvider) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:       e,
		identities: identities,
		machine:    machine,
		ledger:     ledger,
		tokens:     tokens,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/healthz", s.health)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/v1")
	v1.POST("/sessions/:sid/events", s.sessionEvent)
	v1.GET("/identities", s.listIdentities)
	v1.GET("/identities/export", s.exportIdentities)
	v1.GET("/identities/:phone", s.getIdentity)
	v1.POST("/auth/codes", s.issueCode)
	v1.POST("/auth/verify", s.verifyCode)
}

// Start begins serving on addr and blocks until the server stops.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "time": time.Now().UTC()})
}
