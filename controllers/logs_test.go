package controllers

import (
	"testing"
	"time"
)

func TestStartOfToday(t *testing.T) {
	// UTC-6: truncating to 24h would land on 18:00 local the previous day.
	loc := time.FixedZone("America/El_Salvador", -6*3600)

	cases := []struct {
		name string
		now  time.Time
	}{
		{"morning", time.Date(2026, 8, 31, 7, 15, 0, 0, loc)},
		{"just after local midnight", time.Date(2026, 8, 31, 0, 0, 1, 0, loc)},
		{"late evening", time.Date(2026, 8, 31, 23, 59, 59, 0, loc)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := startOfToday(tc.now)
			want := time.Date(2026, 8, 31, 0, 0, 0, 0, loc)
			if !got.Equal(want) {
				t.Errorf("startOfToday(%v) = %v, want %v", tc.now, got, want)
			}
			if got.Location() != loc {
				t.Errorf("startOfToday location = %v, want %v", got.Location(), loc)
			}
		})
	}

	utcTrunc := time.Date(2026, 8, 31, 7, 15, 0, 0, loc).Truncate(24 * time.Hour)
	if startOfToday(time.Date(2026, 8, 31, 7, 15, 0, 0, loc)).Equal(utcTrunc) {
		t.Error("local midnight should differ from UTC-truncated midnight in a non-UTC zone")
	}
}
