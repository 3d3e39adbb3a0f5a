package handlers

import (
	"testing"
	"time"

	"markin/internal/util"
)

func TestResolveSessionDate(t *testing.T) {
	now := time.Date(2026, time.March, 25, 14, 5, 9, 0, time.Local)

	t.Run("empty means now", func(t *testing.T) {
		got, err := resolveSessionDate("", now)
		if err != nil {
			t.Fatalf("resolveSessionDate() error = %v", err)
		}
		if !got.Equal(now) {
			t.Errorf("resolveSessionDate() = %v, want %v", got, now)
		}
	})

	t.Run("past date buckets into its own month", func(t *testing.T) {
		got, err := resolveSessionDate("2020-01-15", now)
		if err != nil {
			t.Fatalf("resolveSessionDate() error = %v", err)
		}
		month, year := util.MonthYear(got)
		if month != 1 || year != 2020 {
			t.Errorf("MonthYear() = %d/%d, want 1/2020", month, year)
		}
	})

	t.Run("future date rejected", func(t *testing.T) {
		future := time.Now().AddDate(0, 0, 2).Format("2006-01-02")
		if _, err := resolveSessionDate(future, now); err == nil {
			t.Error("resolveSessionDate() accepted a future date")
		}
	})

	t.Run("malformed date rejected", func(t *testing.T) {
		if _, err := resolveSessionDate("15-01-2020", now); err == nil {
			t.Error("resolveSessionDate() accepted a non-ISO date")
		}
	})
}
