// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer — the composition root where handlers,
// services, repositories, and middleware are assembled. Nothing here holds
// business logic: the route table and the dependency graph are the whole
// story.
//
// DEPENDENCY FLOW:
//
//	main.go: config.Load → slog.Logger → server.New → server.Start
//	server.New: sqlite.DB → repositories → token/password services →
//	            AuthService/WalletService/MapService → handlers → routes
//
// Each layer only receives what it needs: services get repository
// interfaces (not the concrete sqlite.DB), handlers get services (not
// repositories).
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/cleanCodeCultureSRL/returo-mca/internal/auth"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/config"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/handler"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/middleware"
	sqliteRepo "github.com/cleanCodeCultureSRL/returo-mca/internal/repository/sqlite"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/service"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/ws"
)

// Server owns the router and the resources that must be released on
// shutdown. The database connection is closed after the HTTP server
// drains, which flushes the WAL and releases the file lock.
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain and wires the routes.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware, builds the service graph, seeds the
// demo data, and registers every route.
//
// ROUTE STRUCTURE:
//
//	POST   /api/auth/register                    → create account + session
//	POST   /api/auth/login                       → open session
//	POST   /api/auth/logout                      → end session
//	GET    /api/auth/session                     → restore persisted session
//	PATCH  /api/auth/profile                     → partial profile update   (auth)
//	GET    /api/wallet                           → wallet snapshot (seeds)  (auth)
//	GET    /api/wallet/transactions              → ledger page              (auth)
//	POST   /api/wallet/scan                      → receipt reward           (auth)
//	POST   /api/wallet/transfer                  → debit to a user          (auth)
//	POST   /api/wallet/donations                 → debit to an organization (auth)
//	POST   /api/wallet/vouchers                  → grant voucher            (auth)
//	POST   /api/wallet/vouchers/{id}/redeem      → mark voucher used        (auth)
//	POST   /api/wallet/challenges/{id}/complete  → challenge reward         (auth)
//	GET    /api/map/markers                      → list points of interest
//	POST   /api/map/markers                      → add point of interest    (auth)
//	DELETE /api/map/markers/{id}                 → remove point of interest (auth)
//	POST   /api/map/markers/{id}/select          → select for detail sheet  (auth)
//	DELETE /api/map/selection                    → clear selection          (auth)
//	GET    /api/map/view                         → per-session map state    (auth)
//	POST   /api/map/location                     → geolocation fix          (auth)
//	GET    /api/map/ws                           → live feed websocket      (auth)
//
// MIDDLEWARE ORDER MATTERS: RequestID → RealIP → Recoverer → Logger. The
// Recoverer sits above our logger so a panicking handler still produces a
// request log line with a 500.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.cfg.JWT.Secret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	authService := service.NewAuthService(s.db, s.db.Sessions(), tokens, passwords, s.logger)
	walletService := service.NewWalletService(s.db.Wallets(), s.logger)

	hub := ws.NewHub(s.logger)
	mapService := service.NewMapService(s.db.Markers(), hub, s.logger)

	// Seed the demo identities and the Bucharest points of interest. Both
	// are idempotent, so restarts are safe.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := authService.SeedDemoUsers(ctx); err != nil {
		return fmt.Errorf("seeding demo users: %w", err)
	}
	if err := mapService.SeedMarkers(ctx); err != nil {
		return fmt.Errorf("seeding markers: %w", err)
	}

	authHandler := handler.NewAuthHandler(authService, s.logger)
	walletHandler := handler.NewWalletHandler(walletService, s.logger)
	mapHandler := handler.NewMapHandler(mapService, hub, s.logger)

	requireAuth := auth.Middleware(tokens)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/logout", authHandler.HandleLogout)
			r.Get("/session", authHandler.HandleRestore)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Patch("/profile", authHandler.HandleUpdateProfile)
			})
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", walletHandler.HandleGet)
			r.Get("/transactions", walletHandler.HandleTransactions)
			r.Post("/scan", walletHandler.HandleScan)
			r.Post("/transfer", walletHandler.HandleTransfer)
			r.Post("/donations", walletHandler.HandleDonate)
			r.Post("/vouchers", walletHandler.HandleGrantVoucher)
			r.Post("/vouchers/{id}/redeem", walletHandler.HandleRedeemVoucher)
			r.Post("/challenges/{id}/complete", walletHandler.HandleCompleteChallenge)
		})

		r.Route("/map", func(r chi.Router) {
			r.Get("/markers", mapHandler.HandleListMarkers)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/markers", mapHandler.HandleAddMarker)
				r.Delete("/markers/{id}", mapHandler.HandleRemoveMarker)
				r.Post("/markers/{id}/select", mapHandler.HandleSelectMarker)
				r.Delete("/selection", mapHandler.HandleClearSelection)
				r.Get("/view", mapHandler.HandleView)
				r.Post("/location", mapHandler.HandleReportLocation)
				r.Get("/ws", mapHandler.HandleFeed)
			})
		})
	})

	return nil
}

// Router exposes the assembled router for tests that drive the server with
// httptest instead of a real listener.
func (s *Server) Router() http.Handler {
	return s.router
}

// Close releases the server's resources without serving. Start does this
// itself; Close exists for tests.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests (30s),
// close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Server.Port),
			slog.String("database", s.cfg.Database.Path),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
