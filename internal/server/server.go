// Package server wires configuration, stores and services into the HTTP
// server.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/role-auth/internal/config"
	"github.com/iliyamo/role-auth/internal/handler"
	"github.com/iliyamo/role-auth/internal/middleware"
	"github.com/iliyamo/role-auth/internal/router"
	"github.com/iliyamo/role-auth/internal/service"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the echo instance and the components it serves.
type Server struct {
	echo *echo.Echo
	c    *Components
	addr string
	log  *slog.Logger
}

// New builds the components and registers every route.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*Server, error) {
	c, err := Build(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	roles := service.NewRoleService(c.Stores.Roles)
	if err := roles.EnsureBuiltins(ctx); err != nil {
		_ = c.Close(context.Background())
		return nil, err
	}
	return &Server{
		echo: NewEcho(c, roles, log),
		c:    c,
		addr: ":" + cfg.Port,
		log:  log,
	}, nil
}

// NewEcho returns an echo instance with the standard middleware and all
// routes registered against c.
func NewEcho(c *Components, roles *service.RoleService, log *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))

	router.RegisterRoutes(e, c.Metrics)
	router.RegisterAPI(e, router.Handlers{
		Accounts: handler.NewAccountHandler(service.NewAccountService(c.Deps)),
		Users:    handler.NewUserHandler(service.NewUserAdminService(c.Deps)),
		Roles:    handler.NewRoleHandler(roles),
	}, router.Guards{Resolver: c.Resolver, Gate: c.Gate})
	return e
}

// Handler exposes the routed echo instance.
func (s *Server) Handler() http.Handler { return s.echo }

// Run serves until ctx is cancelled, then shuts down gracefully and
// releases the store connections.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", s.addr)
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		s.log.Error("http shutdown", "err", err)
	}
	if err := s.c.Close(shutdownCtx); err != nil {
		s.log.Error("close stores", "err", err)
	}
	return runErr
}
