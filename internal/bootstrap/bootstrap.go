// Package bootstrap wires the storage, lock, source and delivery clients that
// every long running command needs.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/buergeramt-termine/termine/internal/appointment"
	"github.com/buergeramt-termine/termine/internal/config"
	"github.com/buergeramt-termine/termine/internal/db"
	redisclient "github.com/buergeramt-termine/termine/internal/redis"
	"github.com/buergeramt-termine/termine/internal/source"
	"github.com/buergeramt-termine/termine/internal/telegram"
)

// Deps holds the connected clients. Redis is nil when no address is
// configured.
type Deps struct {
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Service *appointment.Service
}

// Connect opens Postgres with the schema applied, optionally connects Redis and
// builds the service.
func Connect(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Deps, error) {
	pgCtx, cancelPg := context.WithTimeout(ctx, 10*time.Second)
	pgPool, err := db.Open(pgCtx, cfg.PostgresDSN, db.PoolOptions{
		MaxConns:         cfg.PostgresMaxConns,
		StatementTimeout: cfg.StatementTimeout,
	})
	cancelPg()
	if err != nil {
		return nil, fmt.Errorf("postgres connection error: %w", err)
	}
	logger.Info("connected to Postgres")

	var (
		rdb    *redis.Client
		locker redisclient.Locker
	)
	if cfg.RedisAddr != "" {
		rdb, err = redisclient.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			pgPool.Close()
			return nil, fmt.Errorf("redis connection error: %w", err)
		}
		locker = redisclient.NewRedisLocker(rdb, cfg.LockTTL)
		logger.Info("connected to Redis")
	} else {
		locker = redisclient.NewLocalLocker()
		logger.Warn("REDIS_ADDR not set, refresh lock is process local")
	}

	var sender telegram.Sender
	if cfg.TelegramToken != "" {
		sender = telegram.NewClient(cfg.TelegramAPIURL, cfg.TelegramToken, cfg.TelegramRate, logger)
	} else {
		sender = telegram.LogSender{Logger: logger}
		logger.Warn("TELEGRAM_TOKEN not set, messages are only logged")
	}

	src := source.NewClient(cfg.SourceURL, cfg.SourceTimeout, logger)
	repo := appointment.NewPgRepository(pgPool)

	return &Deps{
		PgPool:  pgPool,
		Redis:   rdb,
		Service: appointment.NewService(repo, src, sender, locker, cfg, logger),
	}, nil
}

// Close releases the connections.
func (d *Deps) Close(logger *slog.Logger) {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			logger.Error("error closing redis", "error", err)
		}
	}
	d.PgPool.Close()
}
