package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/buergeramt-termine/termine/internal/appointment"
	"github.com/buergeramt-termine/termine/internal/config"
)

// SimConfig describes a synthetic run of refresh cycles. Nothing touches the
// network or a database.
type SimConfig struct {
	Cycles      int
	Workers     int
	Subscribers int
	Locations   int
	Days        int
	ChurnRatio  float64
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Skipped   int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else {
		atomic.AddInt64(&om.Skipped, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, lo, hi, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	lo = latencies[0]
	hi = latencies[len(latencies)-1]
	p50 = latencies[min(len(latencies)*50/100, len(latencies)-1)]
	p95 = latencies[min(len(latencies)*95/100, len(latencies)-1)]
	return avg, lo, hi, p50, p95
}

type Metrics struct {
	Cycle    OperationMetrics
	Compose  OperationMetrics
	Deadline OperationMetrics
}

type Simulator struct {
	config      SimConfig
	logger      *slog.Logger
	rng         *rand.Rand
	names       appointment.LocationNames
	subscribers []appointment.Subscriber
	today       time.Time
	metrics     Metrics
	messages    int64
}

func main() {
	logger := config.NewLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger.Info("config",
		"cycles", cfg.Cycles,
		"workers", cfg.Workers,
		"subscribers", cfg.Subscribers,
		"locations", cfg.Locations,
		"churn", cfg.ChurnRatio)

	sim := newSimulator(cfg, logger)
	sim.Run()
	sim.PrintReport()
}

func loadConfig() SimConfig {
	return SimConfig{
		Cycles:      getInt("SIM_CYCLES", 200),
		Workers:     getInt("SIM_WORKERS", 4),
		Subscribers: getInt("SIM_SUBSCRIBERS", 2000),
		Locations:   getInt("SIM_LOCATIONS", 40),
		Days:        getInt("SIM_DAYS", 60),
		ChurnRatio:  getFloat("SIM_CHURN_RATIO", 0.05),
	}
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Cycles <= 0 {
		return fmt.Errorf("SIM_CYCLES must be > 0")
	}
	if cfg.Locations <= 0 || cfg.Days <= 0 {
		return fmt.Errorf("SIM_LOCATIONS and SIM_DAYS must be > 0")
	}
	if cfg.ChurnRatio < 0 || cfg.ChurnRatio > 1 {
		return fmt.Errorf("SIM_CHURN_RATIO must be within [0, 1]")
	}
	return nil
}

func newSimulator(cfg SimConfig, logger *slog.Logger) *Simulator {
	seed := time.Now().UnixNano()
	gofakeit.Seed(seed)

	s := &Simulator{
		config: cfg,
		logger: logger,
		rng:    rand.New(rand.NewSource(seed)),
		names:  make(appointment.LocationNames, cfg.Locations),
		today:  appointment.DateOf(time.Now()),
	}
	for id := 1; id <= cfg.Locations; id++ {
		s.names[int64(id)] = "Bürgeramt " + gofakeit.City()
	}
	for i := 0; i < cfg.Subscribers; i++ {
		sub, _ := appointment.NewSubscriber(
			strconv.Itoa(100000+i),
			s.today.AddDate(0, 0, s.rng.Intn(cfg.Days)+1),
			s.today,
		)
		s.subscribers = append(s.subscribers, sub)
	}
	return s
}

// randomSlot picks a quarter hour between 08:00 and 17:00. Slots near today
// are rarer than later ones.
func (s *Simulator) randomSlot() appointment.Appointment {
	offset := s.rng.Intn(s.config.Days) + 1
	if s.rng.Float64() < 0.7 && s.config.Days > 14 {
		offset = 14 + s.rng.Intn(s.config.Days-14) + 1
	}
	date := s.today.AddDate(0, 0, offset)
	slot := time.Duration(s.rng.Intn(36)) * 15 * time.Minute
	loc := int64(s.rng.Intn(s.config.Locations) + 1)
	return appointment.New(date.Add(8*time.Hour+slot), loc)
}

func (s *Simulator) initialSnapshot() []appointment.Appointment {
	n := s.config.Locations * s.config.Days * 4
	snapshot := make([]appointment.Appointment, 0, n)
	for i := 0; i < n; i++ {
		snapshot = append(snapshot, s.randomSlot())
	}
	return appointment.Dedupe(snapshot)
}

// mutate drops and adds about ChurnRatio of the snapshot.
func (s *Simulator) mutate(prev []appointment.Appointment) []appointment.Appointment {
	next := make([]appointment.Appointment, 0, len(prev))
	for _, a := range prev {
		if s.rng.Float64() >= s.config.ChurnRatio {
			next = append(next, a)
		}
	}
	for i := 0; i < int(float64(len(prev))*s.config.ChurnRatio); i++ {
		next = append(next, s.randomSlot())
	}
	return appointment.Dedupe(next)
}

func (s *Simulator) Run() {
	snapshot := s.initialSnapshot()
	s.logger.Info("starting simulation", "appointments", len(snapshot))

	shards := make([][]appointment.Subscriber, s.config.Workers)
	for i, sub := range s.subscribers {
		shards[i%len(shards)] = append(shards[i%len(shards)], sub)
	}

	for c := 0; c < s.config.Cycles; c++ {
		next := snapshot
		// every fifth cycle sees an unchanged source
		if c%5 != 4 {
			next = s.mutate(snapshot)
		}

		start := time.Now()
		var wg sync.WaitGroup
		for _, shard := range shards {
			wg.Add(1)
			go func(subs []appointment.Subscriber) {
				defer wg.Done()
				s.composeShard(snapshot, next, subs)
			}(shard)
		}
		wg.Wait()
		s.metrics.Cycle.Record(time.Since(start), !appointment.SameSet(snapshot, next))

		snapshot = next
	}

	s.answerQueries(snapshot)
	s.logger.Info("simulation complete")
}

func (s *Simulator) composeShard(prev, next []appointment.Appointment, subs []appointment.Subscriber) {
	start := time.Now()
	messages := appointment.RunCycle(prev, next, subs, s.names)
	s.metrics.Compose.Record(time.Since(start), len(messages) > 0)
	atomic.AddInt64(&s.messages, int64(len(messages)))
}

func (s *Simulator) answerQueries(snapshot []appointment.Appointment) {
	for _, sub := range s.subscribers {
		start := time.Now()
		answer := appointment.AnswerDeadlineQuery(snapshot, sub.Deadline, s.names)
		s.metrics.Deadline.Record(time.Since(start), !answer.Summary)
	}
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(repeat("=", 80))
	fmt.Printf("Cycles: %d\n", s.config.Cycles)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Subscribers: %d\n", s.config.Subscribers)
	fmt.Printf("Messages composed: %d\n", atomic.LoadInt64(&s.messages))
	fmt.Println()

	printOperationReport("Refresh cycle", "changed", "unchanged", &s.metrics.Cycle)
	printOperationReport("Compose per worker", "with messages", "silent", &s.metrics.Compose)
	printOperationReport("Deadline query", "listing", "summary", &s.metrics.Deadline)
}

func printOperationReport(name, successLabel, skippedLabel string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	skipped := atomic.LoadInt64(&om.Skipped)

	avg, lo, hi, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  %s: %d (%.1f%%)\n", successLabel, success, float64(success)/float64(total)*100)
	if skipped > 0 {
		fmt.Printf("  %s: %d (%.1f%%)\n", skippedLabel, skipped, float64(skipped)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Microsecond), lo.Round(time.Microsecond), hi.Round(time.Microsecond),
		p50.Round(time.Microsecond), p95.Round(time.Microsecond))
	fmt.Println()
}

// Helper functions

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func repeat(s string, n int) string {
	return strings.Repeat(s, n)
}
