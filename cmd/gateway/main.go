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

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/doozitravel/gateway/internal/backend"
	"github.com/doozitravel/gateway/internal/campaign"
	"github.com/doozitravel/gateway/internal/config"
	"github.com/doozitravel/gateway/internal/email"
	"github.com/doozitravel/gateway/internal/gateway/handler"
	"github.com/doozitravel/gateway/internal/health"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	if err := run(logger); err != nil {
		logger.Fatal("gateway exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	// ── Configuration ────────────────────────────────────────────────────────
	cfg, err := config.Load(viper.GetViper(), logger)
	if err != nil {
		return err
	}
	if cfg.Log.Development {
		dev, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("development logger: %w", err)
		}
		logger = dev
		defer logger.Sync() //nolint:errcheck
	}

	// ── Backend client ───────────────────────────────────────────────────────
	client, err := backend.New(cfg.Backend.BaseURL,
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithLogger(logger.Named("backend")),
		backend.WithObserver(handler.ObserveUpstream),
	)
	if err != nil {
		return fmt.Errorf("backend client: %w", err)
	}
	logger.Info("proxying to backend", zap.String("base_url", cfg.Backend.BaseURL))

	// ── Services & handlers ──────────────────────────────────────────────────
	mailer := email.NewSender(cfg.Email, logger.Named("email"))
	campaigns := campaign.NewService(client, mailer, logger.Named("campaign"))

	authHandler, err := handler.NewAuthHandler(client, cfg.Validation.SignupPreset, logger)
	if err != nil {
		return err
	}
	creatorHandler, err := handler.NewCreatorHandler(client, cfg.Validation.CreatorPreset, logger)
	if err != nil {
		return err
	}
	campaignHandler := handler.NewCampaignHandler(campaigns, client, logger)

	// ── Backend readiness probe ──────────────────────────────────────────────
	probe := health.New(cfg.Backend.BaseURL+cfg.Backend.HealthPath, health.Config{
		Interval:      cfg.Health.Interval,
		FailThreshold: cfg.Health.FailThreshold,
	}, logger.Named("health"))
	probe.OnProbe(handler.RecordBackendProbe)
	probeCtx, stopProbe := context.WithCancel(context.Background())
	defer stopProbe()
	go probe.Run(probeCtx)

	router := newRouter(cfg, logger, probe, authHandler, creatorHandler, campaignHandler)

	// ── HTTP server ──────────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway HTTP listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-quit:
	}
	logger.Info("shutting down gateway...")
	stopProbe()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Info("gateway stopped")
	return nil
}
