package models

import (
	"fmt"
	"time"

	"markin/internal/db"
)

// DefaulterFilters narrows a defaulter query. Zero values impose no
// constraint; Threshold zero means the 75% default. Year is a calendar year
// matched against monthly summaries; AcademicYear is the roster class year
// (FY, SY, TY) matched in overall mode.
type DefaulterFilters struct {
	Month        int     `json:"month,omitempty"`
	Year         int     `json:"year,omitempty"`
	AcademicYear string  `json:"academicYear,omitempty"`
	Stream       string  `json:"stream,omitempty"`
	Division     string  `json:"division,omitempty"`
	Subject      string  `json:"subject,omitempty"`
	Threshold    float64 `json:"threshold,omitempty"`
}

func (f DefaulterFilters) threshold() float64 {
	if f.Threshold <= 0 {
		return DefaulterThreshold
	}
	return f.Threshold
}

// MonthName returns the English month name for 1-12, or an empty string
// outside that range.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return time.Month(month).String()
}

// ListDefaulters returns monthly-mode defaulter rows: every monthly summary
// strictly below the threshold, under the optional equality filters. An empty
// list is a valid outcome.
func ListDefaulters(filters DefaulterFilters) ([]DefaulterRow, error) {
	query := `
		SELECT student_id, student_name, roll_no, year, stream, division, subject,
			month, year_value, total_lectures, attended_lectures, attendance_percentage
		FROM monthly_attendance_summary
		WHERE attendance_percentage < $1
	`
	args := []interface{}{filters.threshold()}
	argIndex := 2

	if filters.Month != 0 {
		query += fmt.Sprintf(" AND month = $%d", argIndex)
		args = append(args, filters.Month)
		argIndex++
	}
	if filters.Year != 0 {
		query += fmt.Sprintf(" AND year_value = $%d", argIndex)
		args = append(args, filters.Year)
		argIndex++
	}
	if filters.Stream != "" {
		query += fmt.Sprintf(" AND stream = $%d", argIndex)
		args = append(args, filters.Stream)
		argIndex++
	}
	if filters.Division != "" {
		query += fmt.Sprintf(" AND division = $%d", argIndex)
		args = append(args, filters.Division)
		argIndex++
	}
	if filters.Subject != "" {
		query += fmt.Sprintf(" AND subject = $%d", argIndex)
		args = append(args, filters.Subject)
		argIndex++
	}

	query += " ORDER BY year_value DESC, month DESC, stream, division, student_id"

	rows, err := db.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query defaulters: %w", err)
	}
	defer rows.Close()

	var defaulters []DefaulterRow
	for rows.Next() {
		var d DefaulterRow
		if err := rows.Scan(&d.StudentID, &d.StudentName, &d.RollNo, &d.Year, &d.Stream,
			&d.Division, &d.Subject, &d.Month, &d.YearValue, &d.TotalLectures,
			&d.AttendedLectures, &d.AttendancePercentage); err != nil {
			return nil, fmt.Errorf("failed to scan defaulter row: %w", err)
		}
		d.MonthName = MonthName(d.Month)
		defaulters = append(defaulters, d)
	}
	return defaulters, rows.Err()
}

// ListOverallDefaulters returns overall-mode rows from the month-agnostic
// stats table joined back to the roster for display fields.
func ListOverallDefaulters(filters DefaulterFilters) ([]DefaulterRow, error) {
	query := `
		SELECT sas.student_id, sd.student_name, sd.roll_no, sd.year, sd.stream, sd.division,
			sas.subject, sas.total_lectures, sas.attended_lectures, sas.attendance_percentage
		FROM student_attendance_stats sas
		JOIN student_details sd ON sas.student_id = sd.student_id
		WHERE sas.attendance_percentage < $1
	`
	args := []interface{}{filters.threshold()}
	argIndex := 2

	if filters.Stream != "" {
		query += fmt.Sprintf(" AND sd.stream = $%d", argIndex)
		args = append(args, filters.Stream)
		argIndex++
	}
	if filters.Division != "" {
		query += fmt.Sprintf(" AND sd.division = $%d", argIndex)
		args = append(args, filters.Division)
		argIndex++
	}
	if filters.AcademicYear != "" {
		query += fmt.Sprintf(" AND sd.year = $%d", argIndex)
		args = append(args, filters.AcademicYear)
		argIndex++
	}
	if filters.Subject != "" {
		query += fmt.Sprintf(" AND sas.subject = $%d", argIndex)
		args = append(args, filters.Subject)
		argIndex++
	}

	query += " ORDER BY sd.stream, sd.division, sas.student_id, sas.subject"

	rows, err := db.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query overall defaulters: %w", err)
	}
	defer rows.Close()

	var defaulters []DefaulterRow
	for rows.Next() {
		var d DefaulterRow
		if err := rows.Scan(&d.StudentID, &d.StudentName, &d.RollNo, &d.Year, &d.Stream,
			&d.Division, &d.Subject, &d.TotalLectures, &d.AttendedLectures,
			&d.AttendancePercentage); err != nil {
			return nil, fmt.Errorf("failed to scan defaulter row: %w", err)
		}
		defaulters = append(defaulters, d)
	}
	return defaulters, rows.Err()
}

// SaveDefaulterHistory appends one audit row per defaulter, recording who
// generated the list and under what role. No-op on empty input.
func SaveDefaulterHistory(defaulters []DefaulterRow, generatedBy, role string) error {
	if len(defaulters) == 0 {
		return nil
	}

	tx, err := db.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, d := range defaulters {
		_, err = tx.Exec(`
			INSERT INTO defaulter_history
				(student_id, student_name, roll_no, year, stream, division, subject,
				 month, year_value, attendance_percentage, generated_by, generated_by_role)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, d.StudentID, d.StudentName, d.RollNo, d.Year, d.Stream, d.Division, d.Subject,
			nullableInt(d.Month), nullableInt(d.YearValue), d.AttendancePercentage,
			generatedBy, role)
		if err != nil {
			return fmt.Errorf("failed to insert defaulter history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit defaulter history: %w", err)
	}
	return nil
}

func nullableInt(v int) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

type DefaulterStatus struct {
	IsDefaulter       bool           `json:"isDefaulter"`
	DefaulterSubjects []string       `json:"defaulterSubjects"`
	Details           []SubjectStats `json:"details"`
}

// GetStudentDefaulterStatus reports whether a student is flagged in any
// subject, with the per-subject stats behind the flag.
func GetStudentDefaulterStatus(studentID string) (*DefaulterStatus, error) {
	rows, err := db.DB.Query(`
		SELECT subject, total_lectures, attended_lectures, attendance_percentage, is_defaulter
		FROM student_attendance_stats
		WHERE student_id = $1
		ORDER BY subject
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query defaulter status: %w", err)
	}
	defer rows.Close()

	status := &DefaulterStatus{DefaulterSubjects: []string{}}
	for rows.Next() {
		var s SubjectStats
		if err := rows.Scan(&s.Subject, &s.TotalLectures, &s.AttendedLectures,
			&s.AttendancePercentage, &s.IsDefaulter); err != nil {
			return nil, fmt.Errorf("failed to scan defaulter status: %w", err)
		}
		if s.IsDefaulter {
			status.IsDefaulter = true
			status.DefaulterSubjects = append(status.DefaulterSubjects, s.Subject)
		}
		status.Details = append(status.Details, s)
	}
	return status, rows.Err()
}
