package models

import "testing"

func TestMonthName(t *testing.T) {
	tests := []struct {
		month int
		want  string
	}{
		{1, "January"},
		{6, "June"},
		{12, "December"},
		{0, ""},
		{13, ""},
		{-3, ""},
	}

	for _, tt := range tests {
		if got := MonthName(tt.month); got != tt.want {
			t.Errorf("MonthName(%d) = %q, want %q", tt.month, got, tt.want)
		}
	}
}

func TestDefaulterFiltersThresholdDefault(t *testing.T) {
	if got := (DefaulterFilters{}).threshold(); got != DefaulterThreshold {
		t.Errorf("zero filters threshold = %v, want %v", got, DefaulterThreshold)
	}
	if got := (DefaulterFilters{Threshold: 60}).threshold(); got != 60 {
		t.Errorf("explicit threshold = %v, want 60", got)
	}
	if got := (DefaulterFilters{Threshold: -1}).threshold(); got != DefaulterThreshold {
		t.Errorf("negative threshold = %v, want default %v", got, DefaulterThreshold)
	}
}
