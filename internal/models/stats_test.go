package models

import "testing"

func TestPercentage(t *testing.T) {
	tests := []struct {
		name     string
		attended int
		total    int
		want     float64
	}{
		{"zero lectures", 0, 0, 0},
		{"full attendance", 10, 10, 100},
		{"none attended", 0, 10, 0},
		{"one decimal rounding", 2, 3, 66.7},
		{"rounds half up", 5, 8, 62.5},
		{"just below threshold", 74, 100, 74},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Percentage(tt.attended, tt.total); got != tt.want {
				t.Errorf("Percentage(%d, %d) = %v, want %v", tt.attended, tt.total, got, tt.want)
			}
		})
	}
}

func TestIsDefaulter(t *testing.T) {
	tests := []struct {
		name       string
		percentage float64
		want       bool
	}{
		{"well below threshold", 40, true},
		{"just below threshold", 74.9, true},
		{"exactly at threshold", 75, false},
		{"above threshold", 80, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDefaulter(tt.percentage); got != tt.want {
				t.Errorf("IsDefaulter(%v) = %v, want %v", tt.percentage, got, tt.want)
			}
		})
	}
}

func TestAveragePercentage(t *testing.T) {
	tests := []struct {
		name    string
		present int
		absent  int
		want    float64
	}{
		{"no sessions", 0, 0, 0},
		{"all present", 12, 0, 100},
		{"half present", 5, 5, 50},
		{"rounds to whole number", 2, 1, 67},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AveragePercentage(tt.present, tt.absent); got != tt.want {
				t.Errorf("AveragePercentage(%d, %d) = %v, want %v", tt.present, tt.absent, got, tt.want)
			}
		})
	}
}

func TestPercentageThresholdConsistency(t *testing.T) {
	// The stored percentage and the defaulter flag must agree: strictly
	// below 75 flags, 75 and above does not.
	for attended := 0; attended <= 20; attended++ {
		pct := Percentage(attended, 20)
		if IsDefaulter(pct) != (pct < DefaulterThreshold) {
			t.Errorf("flag disagrees with percentage %v at %d/20", pct, attended)
		}
	}
}
