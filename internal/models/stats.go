package models

import (
	"database/sql"
	"fmt"
	"log"
	"math"

	"markin/internal/db"
	"markin/internal/util"
)

// DefaulterThreshold is the fixed reference percentage stored on summary
// rows. Query-time thresholds are a separate, caller-supplied filter.
const DefaulterThreshold = 75.0

// Percentage returns attended/total as a percentage rounded to one decimal.
// Zero total yields zero.
func Percentage(attended, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(attended)/float64(total)*1000) / 10
}

// IsDefaulter reports whether a percentage falls below the stored reference
// threshold.
func IsDefaulter(percentage float64) bool {
	return percentage < DefaulterThreshold
}

// ApplyAttendanceStats folds a finalized session's marks into the rolling
// counters: one monthly upsert and one overall upsert per record, all in a
// single transaction so the store never reflects a half-applied session.
// Records for unknown students are skipped, never failing the batch.
// Percentages are always recomputed from the post-increment totals.
func ApplyAttendanceStats(records []Mark, meta SessionMeta) error {
	if len(records) == 0 {
		return nil
	}

	month, yearValue := util.MonthYear(meta.SessionDate)

	tx, err := db.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, record := range records {
		var studentName, rollNo string
		err := tx.QueryRow(`
			SELECT student_name, roll_no FROM student_details WHERE student_id = $1
		`, record.StudentID).Scan(&studentName, &rollNo)
		if err == sql.ErrNoRows {
			log.Printf("WARNING: Skipping stats for unknown student %s", record.StudentID)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to look up student %s: %w", record.StudentID, err)
		}

		attended := 0
		if NormalizeMarkStatus(record.Status) == StatusPresent {
			attended = 1
		}
		initialPct := Percentage(attended, 1)

		_, err = tx.Exec(`
			INSERT INTO monthly_attendance_summary
				(student_id, student_name, roll_no, year, stream, division, subject,
				 month, year_value, total_lectures, attended_lectures, attendance_percentage, is_defaulter)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, $10, $11, $12)
			ON CONFLICT (student_id, subject, month, year_value) DO UPDATE SET
				total_lectures = monthly_attendance_summary.total_lectures + 1,
				attended_lectures = monthly_attendance_summary.attended_lectures + $10,
				attendance_percentage = ROUND(
					(monthly_attendance_summary.attended_lectures + $10)::numeric
					/ (monthly_attendance_summary.total_lectures + 1) * 100, 1),
				is_defaulter = ROUND(
					(monthly_attendance_summary.attended_lectures + $10)::numeric
					/ (monthly_attendance_summary.total_lectures + 1) * 100, 1) < $13,
				last_updated = CURRENT_TIMESTAMP
		`, record.StudentID, studentName, rollNo, meta.Year, meta.Stream, meta.Division,
			meta.Subject, month, yearValue, attended, initialPct, IsDefaulter(initialPct),
			DefaulterThreshold)
		if err != nil {
			return fmt.Errorf("failed to upsert monthly summary for %s: %w", record.StudentID, err)
		}

		_, err = tx.Exec(`
			INSERT INTO student_attendance_stats
				(student_id, subject, total_lectures, attended_lectures, attendance_percentage, is_defaulter)
			VALUES ($1, $2, 1, $3, $4, $5)
			ON CONFLICT (student_id, subject) DO UPDATE SET
				total_lectures = student_attendance_stats.total_lectures + 1,
				attended_lectures = student_attendance_stats.attended_lectures + $3,
				attendance_percentage = ROUND(
					(student_attendance_stats.attended_lectures + $3)::numeric
					/ (student_attendance_stats.total_lectures + 1) * 100, 1),
				is_defaulter = ROUND(
					(student_attendance_stats.attended_lectures + $3)::numeric
					/ (student_attendance_stats.total_lectures + 1) * 100, 1) < $6,
				last_updated = CURRENT_TIMESTAMP
		`, record.StudentID, meta.Subject, attended, initialPct, IsDefaulter(initialPct),
			DefaulterThreshold)
		if err != nil {
			return fmt.Errorf("failed to upsert student stats for %s: %w", record.StudentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit stats update: %w", err)
	}
	return nil
}
