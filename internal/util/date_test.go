package util

import (
	"testing"
	"time"
)

func TestValidateNotFutureDate(t *testing.T) {
	today := time.Now()
	todayDay := startOfDay(today)

	tests := []struct {
		name    string
		date    time.Time
		wantErr bool
	}{
		{
			name:    "yesterday should be allowed",
			date:    todayDay.AddDate(0, 0, -1),
			wantErr: false,
		},
		{
			name:    "today should be allowed",
			date:    todayDay,
			wantErr: false,
		},
		{
			name:    "tomorrow should be rejected",
			date:    todayDay.AddDate(0, 0, 1),
			wantErr: true,
		},
		{
			name:    "far future should be rejected",
			date:    todayDay.AddDate(1, 0, 0),
			wantErr: true,
		},
		{
			name:    "far past should be allowed",
			date:    todayDay.AddDate(-1, 0, 0),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNotFutureDate(tt.date)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNotFutureDate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseDateLocal(t *testing.T) {
	tests := []struct {
		name    string
		dateStr string
		wantErr bool
	}{
		{
			name:    "valid date string",
			dateStr: "2026-01-23",
			wantErr: false,
		},
		{
			name:    "invalid date string",
			dateStr: "invalid",
			wantErr: true,
		},
		{
			name:    "empty string",
			dateStr: "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDateLocal(tt.dateStr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseDateLocal() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	parsed, err := ParseDateLocal("2026-01-23")
	if err != nil {
		t.Fatalf("ParseDateLocal() failed: %v", err)
	}
	if parsed.Location() != time.Local {
		t.Errorf("ParseDateLocal() location = %v, want %v", parsed.Location(), time.Local)
	}
	if parsed.Hour() != 0 || parsed.Minute() != 0 || parsed.Second() != 0 {
		t.Errorf("ParseDateLocal() should return start of day (00:00:00)")
	}
}

func TestMonthYear(t *testing.T) {
	at := time.Date(2026, time.March, 25, 14, 5, 9, 0, time.Local)
	month, year := MonthYear(at)
	if month != 3 || year != 2026 {
		t.Errorf("MonthYear() = (%d, %d), want (3, 2026)", month, year)
	}
}

func TestSanitizeFilenamePart(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain subject", "Physics", "Physics"},
		{"spaces replaced", "Data Structures", "Data_Structures"},
		{"special chars collapsed", "C++ / Lab (II)", "C_Lab_II_"},
		{"hyphens kept", "FY-CS", "FY-CS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilenamePart(tt.in); got != tt.want {
				t.Errorf("SanitizeFilenamePart(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSessionReportFilename(t *testing.T) {
	at := time.Date(2026, time.March, 25, 14, 5, 9, 0, time.Local)
	got := SessionReportFilename(at, "Physics Lab")
	want := "25-03-2026_14-05-09_Physics_Lab_attendance_record.xlsx"
	if got != want {
		t.Errorf("SessionReportFilename() = %q, want %q", got, want)
	}
}
