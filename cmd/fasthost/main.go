// Package main запускает HTTP-сервер биллинга хостинга.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/samandar-uz/fasthost/internal/cache"
	"github.com/samandar-uz/fasthost/internal/config"
	"github.com/samandar-uz/fasthost/internal/handler"
	"github.com/samandar-uz/fasthost/internal/metrics"
	"github.com/samandar-uz/fasthost/internal/middleware"
	"github.com/samandar-uz/fasthost/internal/payment"
	"github.com/samandar-uz/fasthost/internal/repository"
	"github.com/samandar-uz/fasthost/internal/scheduler"
	"github.com/samandar-uz/fasthost/internal/service"
)

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogDev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger initialization error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	sugar := logger.Sugar()

	if err := run(cfg, logger); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		return fmt.Errorf("database initialization: %w", err)
	}

	var catalog service.TariffCatalog = repo
	if cfg.RedisAddr != "" {
		store, err := cache.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			// Без кэша витрина читается из БД, поэтому недоступный Redis не мешает запуску.
			sugar.Warnw("redis unavailable, tariff cache disabled", "addr", cfg.RedisAddr, "error", err)
		} else {
			defer store.Close()
			catalog = cache.NewTariffs(repo, store, cfg.TariffCacheTTL, logger)
			sugar.Infow("tariff cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.TariffCacheTTL)
		}
	}

	var opts []service.Option
	if cfg.PaymentGatewayAddress != "" {
		opts = append(opts, service.WithPaymentGateway(payment.NewClient(cfg.PaymentGatewayAddress)))
	}

	svc := service.NewService(repo, catalog, logger, opts...)
	defer svc.Close()

	sweepOpts := []scheduler.Option{scheduler.WithTimeout(cfg.SweepTimeout)}
	if cfg.SweepOnStart {
		sweepOpts = append(sweepOpts, scheduler.WithRunOnStart())
	}
	sweeper, err := scheduler.NewSweeper(cfg.SweepSchedule, svc, logger, sweepOpts...)
	if err != nil {
		return err
	}

	if cfg.AuthSecret == "" {
		sugar.Warn("AUTH_SECRET is not set, sessions will not survive a restart")
	}
	if cfg.PaymentWebhookSecret == "" {
		sugar.Warn("PAYMENT_WEBHOOK_SECRET is not set, payment confirmation endpoint is disabled")
	}

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret, cfg.CookieSecure)
	h := handler.NewHandler(svc, logger, authMiddleware, cfg.PaymentWebhookSecret)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sweeper.Run(ctx)
	})

	g.Go(func() error {
		sugar.Infow("starting fasthost server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	return g.Wait()
}
