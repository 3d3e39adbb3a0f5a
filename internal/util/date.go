package util

import (
	"fmt"
	"regexp"
	"time"
)

// startOfDay returns the start of the day (00:00:00) in local timezone for the given time.
func startOfDay(t time.Time) time.Time {
	localTime := t.Local()
	return time.Date(localTime.Year(), localTime.Month(), localTime.Day(), 0, 0, 0, 0, time.Local)
}

// ParseDateLocal parses a date string in YYYY-MM-DD format and returns it in local timezone.
// This ensures dates from HTML date inputs are parsed consistently in local time.
func ParseDateLocal(dateStr string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, err
	}
	return startOfDay(t), nil
}

// ValidateNotFutureDate validates that a date is not in the future.
// It compares only the DATE (not time of day). Treats "today" as allowed.
func ValidateNotFutureDate(d time.Time) error {
	todayDay := startOfDay(time.Now())
	sessionDay := startOfDay(d)

	if sessionDay.After(todayDay) {
		return fmt.Errorf("session date cannot be in the future")
	}

	return nil
}

// MonthYear returns the calendar month (1-12) and year of the given time,
// used for bucketing attendance records into monthly summaries.
func MonthYear(t time.Time) (month, year int) {
	local := t.Local()
	return int(local.Month()), local.Year()
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9_\-]+`)

// SanitizeFilenamePart replaces characters unsafe for filenames with underscores.
func SanitizeFilenamePart(s string) string {
	return unsafeFilenameChars.ReplaceAllString(s, "_")
}

// SessionReportFilename builds the download name for a completed attendance
// session workbook, e.g. "25-03-2026_14-05-09_Physics_attendance_record.xlsx".
func SessionReportFilename(at time.Time, subject string) string {
	local := at.Local()
	return fmt.Sprintf("%s_%s_attendance_record.xlsx",
		local.Format("02-01-2006_15-04-05"),
		SanitizeFilenamePart(subject))
}
