package main

import (
	"testing"
	"time"
)

func TestUntilNextRun(t *testing.T) {
	tz := time.FixedZone("UTC+2", 2*60*60)

	tests := []struct {
		name string
		now  time.Time
		hour int
		want time.Duration
	}{
		{"later today", time.Date(2024, 5, 1, 1, 0, 0, 0, tz), 3, 2 * time.Hour},
		{"already passed", time.Date(2024, 5, 1, 4, 0, 0, 0, tz), 3, 23 * time.Hour},
		{"exactly now", time.Date(2024, 5, 1, 3, 0, 0, 0, tz), 3, 24 * time.Hour},
		{"midnight", time.Date(2024, 5, 1, 23, 30, 0, 0, tz), 0, 30 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := untilNextRun(tt.now, tt.hour, tz); got != tt.want {
				t.Fatalf("untilNextRun = %s, want %s", got, tt.want)
			}
		})
	}
}
