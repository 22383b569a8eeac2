// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"github.com/PRAHARSHITH-789/gala-backend/internal/clock"
	"github.com/PRAHARSHITH-789/gala-backend/internal/config"
	"github.com/PRAHARSHITH-789/gala-backend/internal/database"
	"github.com/PRAHARSHITH-789/gala-backend/internal/handler"
	"github.com/PRAHARSHITH-789/gala-backend/internal/logger"
	"github.com/PRAHARSHITH-789/gala-backend/internal/mailer"
	"github.com/PRAHARSHITH-789/gala-backend/internal/media"
	"github.com/PRAHARSHITH-789/gala-backend/internal/repository"
	"github.com/PRAHARSHITH-789/gala-backend/internal/service"
	"github.com/PRAHARSHITH-789/gala-backend/internal/token"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log, err := logger.New(cfg.Environment)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	// ── 1. Connect to PostgreSQL ──────────────────────────────────────────
	pool, err := database.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info("connected to PostgreSQL")

	// ── 2. Wire up layers ────────────────────────────────────────────────
	clk := clock.NewSystem()
	tx := repository.NewTx(pool)
	eventRepo := repository.NewEventRepository(pool)
	ledgerRepo := repository.NewLedgerRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	otpRepo := repository.NewOTPRepository(pool)

	tickets := token.NewTicketSigner([]byte(cfg.Ticket.SigningKey), cfg.Ticket.Issuer)
	sessions := token.NewSessionSigner([]byte(cfg.Session.SigningKey), clk)

	uploads, err := media.NewStore(cfg.UploadDir, "/uploads")
	if err != nil {
		return err
	}

	mails, err := mailer.New(cfg.SMTP, log)
	if err != nil {
		return err
	}

	authSvc := service.NewAuthService(tx, userRepo, sessionRepo, otpRepo, mails, sessions, clk,
		service.WithOTPPolicy(cfg.OTP.TTL, cfg.OTP.MaxAttempts),
		service.WithSessionTTL(cfg.Session.TTL),
	)
	eventSvc := service.NewEventService(tx, eventRepo, clk)
	bookingSvc := service.NewBookingService(tx, eventRepo, ledgerRepo, bookingRepo, tickets, clk)
	gate := service.NewTicketGate(eventRepo, bookingRepo, tickets, clk, cfg.Ticket.BaseURL)
	userSvc := service.NewUserService(tx, userRepo, sessionRepo, uploads, clk, 0)

	if cfg.Admin.Email != "" {
		if err := userSvc.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	// ── 3. Build the router ───────────────────────────────────────────────
	router := handler.NewRouter(handler.Deps{
		Log:         log,
		Auth:        authSvc,
		Sessions:    authSvc,
		Events:      eventSvc,
		Bookings:    bookingSvc,
		Tickets:     gate,
		Users:       userSvc,
		Cookie:      handler.CookieConfig{Name: cfg.Session.CookieName, Secure: cfg.Session.CookieSecure},
		CORSOrigins: cfg.CORSOrigins,
		UploadDir:   uploads.Dir(),
	})

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run in background goroutine so we can listen for shutdown signal.
	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-quit:
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
