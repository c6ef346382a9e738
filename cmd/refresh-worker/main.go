package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/buergeramt-termine/termine/internal/appointment"
	"github.com/buergeramt-termine/termine/internal/bootstrap"
	"github.com/buergeramt-termine/termine/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.NewLogger("info").Error("config load error", "error", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.LogLevel)
	logger.Info("refresh-worker starting up",
		"env", cfg.Env,
		"notify_interval", cfg.NotifyInterval,
		"idle_refresh_interval", cfg.IdleRefreshInterval,
		"expiry_hour", cfg.ExpiryHour)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.Connect(rootCtx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer deps.Close(logger)

	svc := deps.Service

	// Import once at startup so the first deadline request has data
	if err := svc.ImportIfEmpty(rootCtx); err != nil {
		logger.Error("initial import failed", "error", err)
	}

	notify := time.NewTicker(cfg.NotifyInterval)
	defer notify.Stop()
	idle := time.NewTicker(cfg.IdleRefreshInterval)
	defer idle.Stop()
	expiry := time.NewTimer(untilNextRun(time.Now(), cfg.ExpiryHour, cfg.Timezone))
	defer expiry.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping refresh worker")
			return
		case <-notify.C:
			runOnce(rootCtx, logger, "notify", cfg.LockTTL, svc.Notify)
		case <-idle.C:
			runOnce(rootCtx, logger, "idle refresh", cfg.LockTTL, svc.RefreshIfIdle)
		case <-expiry.C:
			expireOnce(rootCtx, logger, svc)
			expiry.Reset(untilNextRun(time.Now(), cfg.ExpiryHour, cfg.Timezone))
		}
	}
}

func runOnce(ctx context.Context, logger *slog.Logger, name string, timeout time.Duration, run func(context.Context) (appointment.CycleReport, error)) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	report, err := run(runCtx)
	switch {
	case errors.Is(err, appointment.ErrRefreshInProgress):
		logger.Info("refresh already running elsewhere, skipping", "run", name)
		return
	case err != nil:
		// the stored snapshot stays as it was, the next tick retries
		logger.Error("run failed", "run", name, "error", err)
		return
	}
	logger.Info("run complete",
		"run", name,
		"duration", time.Since(start),
		"added", report.Added,
		"removed", report.Removed,
		"notified", report.Notified)
}

func expireOnce(ctx context.Context, logger *slog.Logger, svc *appointment.Service) {
	runCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	n, err := svc.ExpireSubscribers(runCtx)
	if err != nil {
		logger.Error("expiry run error", "error", err)
		return
	}
	logger.Info("expiry run complete", "removed", n)
}

// untilNextRun is the wait until the next occurrence of hour:00 in tz.
func untilNextRun(now time.Time, hour int, tz *time.Location) time.Duration {
	if tz == nil {
		tz = time.UTC
	}
	local := now.In(tz)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, tz)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
