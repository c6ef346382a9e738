package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/buergeramt-termine/termine/internal/api"
	"github.com/buergeramt-termine/termine/internal/bootstrap"
	"github.com/buergeramt-termine/termine/internal/config"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.NewLogger("info").Error("config load error", "error", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.LogLevel)
	logger.Info("api-server starting up", "env", cfg.Env, "http_port", cfg.HTTPPort, "version", version)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.Connect(rootCtx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer deps.Close(logger)

	router := api.NewRouter(api.RouterConfig{
		Service:          deps.Service,
		PgPool:           deps.PgPool,
		Redis:            deps.Redis,
		Timezone:         cfg.Timezone,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
		Env:              cfg.Env,
		Version:          version,
		Logger:           logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		// a manual refresh waits for the download
		WriteTimeout: cfg.SourceTimeout + 30*time.Second,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	logger.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
