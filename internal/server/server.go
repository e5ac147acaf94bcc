// Package server is the composition root: it wires store → services →
// handlers → routes and runs the HTTP server until SIGINT/SIGTERM.
//
// DEPENDENCY FLOW:
//
//	config.Config ─┐
//	repository.Store ─→ IdentityService ─┬→ SyncService → SyncHandler
//	                 ─→ MembershipService ┘
//	                 ─→ ExportService → ExportHandler
//	                 ─→ HealthHandler
//
// Keeping this out of main.go means tests can build the full router over
// an in-memory store without opening a socket.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/bounty-portal/internal/config"
	"github.com/sakif/bounty-portal/internal/handler"
	"github.com/sakif/bounty-portal/internal/middleware"
	"github.com/sakif/bounty-portal/internal/repository"
	"github.com/sakif/bounty-portal/internal/service"
)

// Server owns the router and the store. Start closes the store on return.
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	store  repository.Store
	logger *slog.Logger
}

// New wires every layer over store. It does not start listening.
func New(cfg *config.Config, store repository.Store, logger *slog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		store:  store,
		logger: logger,
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes registers middleware and routes.
//
// ROUTES:
//
//	POST /api/oauth/sync                → SyncHandler.HandleSync
//	GET  /admin/projects/export/csv     → ExportHandler.HandleCSV
//	GET  /admin/projects/export/status  → ExportHandler.HandleStatus
//	GET  /healthz                       → liveness
//	GET  /readyz                        → readiness (pings the store)
//
// Middleware order: RequestID, then RealIP, then Logger, then Recoverer.
// Recoverer sits inside Logger so a recovered panic is logged as a 500.
// /admin is not authenticated here; it is expected to sit behind the
// front end's admin gateway.
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	identity := service.NewIdentityService(s.store, service.IdentityOptions{
		AllowedDomains:      s.cfg.AllowedEmailDomains,
		DefaultRole:         s.cfg.DefaultRole,
		MaxUsernameAttempts: s.cfg.MaxUsernameAttempts,
	}, s.logger)
	membership := service.NewMembershipService(s.store, s.cfg.TeamVocabulary, s.cfg.ProjectType, s.logger)
	syncService := service.NewSyncService(identity, membership, s.logger)
	exportService := service.NewExportService(s.store, service.ExportOptions{
		ProjectType: s.cfg.ProjectType,
		TempDir:     s.cfg.ExportTempDir,
		ExportURL:   s.cfg.ExportURL,
	}, s.logger)

	syncHandler := handler.NewSyncHandler(syncService, s.cfg.MaxRequestBodySize, s.logger)
	exportHandler := handler.NewExportHandler(exportService, s.logger)
	healthHandler := handler.NewHealthHandler(s.store, s.logger)

	s.router.Get("/healthz", healthHandler.HandleLiveness)
	s.router.Get("/readyz", healthHandler.HandleReadiness)

	s.router.Post("/api/oauth/sync", syncHandler.HandleSync)

	s.router.Route("/admin/projects/export", func(r chi.Router) {
		r.Get("/csv", exportHandler.HandleCSV)
		r.Get("/status", exportHandler.HandleStatus)
	})
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to SHUTDOWN_TIMEOUT and closes the store.
func (s *Server) Start() error {
	defer func() {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("closing store", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("env", s.cfg.AppEnv),
			slog.String("driver", s.cfg.DBDriver),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
