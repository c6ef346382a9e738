package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/buergeramt-termine/termine/internal/appointment"
	"github.com/buergeramt-termine/termine/internal/config"
	"github.com/buergeramt-termine/termine/internal/db"
)

func main() {
	logger := config.NewLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		logger.Error("POSTGRES_DSN is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := db.Open(ctx, dsn, db.PoolOptions{MaxConns: 2})
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())
	repo := appointment.NewPgRepository(pool)

	locs, err := seedLocations(ctx, logger, repo, envInt("SEED_LOCATIONS", 12))
	if err != nil {
		logger.Error("seed locations", "error", err)
		os.Exit(1)
	}
	if err := seedAppointments(ctx, logger, repo, locs, envInt("SEED_DAYS", 60)); err != nil {
		logger.Error("seed appointments", "error", err)
		os.Exit(1)
	}
	if err := seedSubscribers(ctx, logger, repo, envInt("SEED_SUBSCRIBERS", 50)); err != nil {
		logger.Error("seed subscribers", "error", err)
		os.Exit(1)
	}

	logger.Info("seed complete")
}

func seedLocations(ctx context.Context, logger *slog.Logger, repo *appointment.PgRepository, count int) ([]appointment.Location, error) {
	logger.Info("seeding locations", "count", count)

	locs := make([]appointment.Location, 0, count)
	for i := 0; i < count; i++ {
		name := fmt.Sprintf("Bürgeramt %s", gofakeit.City())
		l, err := repo.EnsureLocation(ctx, name)
		if err != nil {
			return nil, err
		}
		locs = append(locs, l)
	}
	return locs, nil
}

// seedAppointments offers a few scattered slots in the first two weeks and a
// dense block afterwards, which is what the live source usually looks like.
func seedAppointments(ctx context.Context, logger *slog.Logger, repo *appointment.PgRepository, locs []appointment.Location, days int) error {
	today := appointment.DateOf(time.Now())

	var apps []appointment.Appointment
	for d := 1; d <= days; d++ {
		date := today.AddDate(0, 0, d)
		if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			continue
		}

		chance := 90
		if d <= 14 {
			chance = 5
		}
		for _, l := range locs {
			for slot := 0; slot < 36; slot++ {
				if gofakeit.Number(1, 100) > chance {
					continue
				}
				when := date.Add(8*time.Hour + time.Duration(slot)*15*time.Minute)
				apps = append(apps, appointment.New(when, l.ID))
			}
		}
	}

	logger.Info("seeding appointments", "count", len(apps))
	stored, err := repo.ListAppointments(ctx)
	if err != nil {
		return err
	}
	added, removed := appointment.Diff(stored, apps)
	return repo.ApplyDiff(ctx, added, removed)
}

func seedSubscribers(ctx context.Context, logger *slog.Logger, repo *appointment.PgRepository, count int) error {
	logger.Info("seeding subscribers", "count", count)

	today := appointment.DateOf(time.Now())
	for i := 0; i < count; i++ {
		address := strconv.Itoa(gofakeit.Number(100000000, 999999999))
		sub, err := appointment.NewSubscriber(address, today.AddDate(0, 0, gofakeit.Number(1, 30)), today)
		if err != nil {
			return err
		}
		if err := repo.UpsertSubscriber(ctx, sub); err != nil {
			return err
		}
	}
	return nil
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
