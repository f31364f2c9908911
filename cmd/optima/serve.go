package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/Owais-Raja/Optima-IDP-sub001/internal/account"
	"github.com/Owais-Raja/Optima-IDP-sub001/internal/audit"
	"github.com/Owais-Raja/Optima-IDP-sub001/internal/auth"
	"github.com/Owais-Raja/Optima-IDP-sub001/internal/config"
	"github.com/Owais-Raja/Optima-IDP-sub001/internal/httpapi"
	"github.com/Owais-Raja/Optima-IDP-sub001/internal/mail"
	"github.com/Owais-Raja/Optima-IDP-sub001/internal/obs"
	"github.com/Owais-Raja/Optima-IDP-sub001/internal/token"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	cfg := config.Load()
	if cfg.AccessSecret == "" {
		return errors.New("OPTIMA_ACCESS_SECRET is required")
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	var (
		db         *sql.DB
		accounts   account.Store
		auditStore audit.Store
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		accounts = account.NewPGStore(db)
		auditStore = audit.NewPGStore(db)
	} else {
		// No DSN: serve from process memory. Useful for local dev and tests,
		// never for production.
		obs.LogEvent("no database configured, using in-memory stores", nil)
		accounts = account.NewMemoryStore()
		auditStore = audit.NewMemoryStore()
	}

	issuer, err := token.NewIssuer(cfg.AccessSecret, cfg.RefreshSecret)
	if err != nil {
		return err
	}

	opts := []auth.ServiceOption{
		auth.WithAdminSecret(cfg.AdminSecret),
		auth.WithAudit(auditStore),
		auth.WithFrontendURL(cfg.FrontendURL),
	}
	if cfg.SMTP.Enabled() {
		opts = append(opts, auth.WithMailer(mail.NewSMTPSender(cfg.SMTP)))
	} else {
		obs.LogEvent("smtp not configured, outbound mail disabled", nil)
	}
	svc, err := auth.NewService(accounts, issuer, opts...)
	if err != nil {
		return err
	}

	api := httpapi.New(svc, db, version)
	api.SetFrontendOrigin(cfg.FrontendURL)
	api.SetRateLimit(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		obs.LogEvent("http server listening", map[string]any{"addr": cfg.Addr, "version": version})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		obs.LogEvent("shutting down", map[string]any{"signal": sig.String()})
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
