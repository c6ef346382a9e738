package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"github.com/buergeramt-termine/termine/internal/appointment"
)

type RouterConfig struct {
	Service          *appointment.Service
	PgPool           *pgxpool.Pool
	Redis            *redis.Client
	Timezone         *time.Location
	CORSAllowOrigins []string
	Env              string
	Version          string
	Logger           *slog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
	}).Handler)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Appointment endpoints
	r.Get("/appointments/earliest", earliestHandler(cfg.Service))
	r.Get("/appointments/cutoff", cutoffHandler(cfg.Service))
	r.Get("/appointments/query", queryHandler(cfg.Service))
	r.Get("/appointments.ics", calendarHandler(cfg.Service, cfg.Timezone))

	// Subscriber endpoints
	r.Put("/subscribers/{address}", setDeadlineHandler(cfg.Service))
	r.Delete("/subscribers/{address}", unsubscribeHandler(cfg.Service))

	r.Post("/refresh", refreshHandler(cfg.Service, logger))

	return r
}
