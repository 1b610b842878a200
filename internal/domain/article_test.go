package domain

import (
	"testing"
	"time"
)

func TestLocalDayPinsEveningLocalDate(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	// 20:00 in New York is already past midnight UTC.
	evening := time.Date(2024, 1, 5, 20, 0, 0, 0, loc)
	if got := DayKey(evening); got != "2024-01-06" {
		t.Fatalf("instant keyed to %q, expected the UTC rollover day", got)
	}

	day := LocalDay(evening)
	if got := DayKey(day); got != "2024-01-05" {
		t.Fatalf("LocalDay keyed to %q, want local calendar date 2024-01-05", got)
	}
	if !day.Equal(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("LocalDay = %v, want UTC midnight of the local date", day)
	}
}

func TestLocalDayKeepsUTCInstants(t *testing.T) {
	noon := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	if got := DayKey(LocalDay(noon)); got != "2024-01-05" {
		t.Fatalf("LocalDay keyed to %q, want 2024-01-05", got)
	}
}
