package models

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"markin/internal/db"
)

func nowUTC() time.Time {
	return time.Now().UTC()
}

// NewSessionID builds the collision-resistant composite session identifier:
// the marking teacher plus creation time in milliseconds. Uniqueness is
// backed by the primary key; a same-millisecond collision for one teacher
// surfaces as ErrConflict.
func NewSessionID(teacherID string, at time.Time) string {
	return fmt.Sprintf("SES_%s_%d", teacherID, at.UnixMilli())
}

// StartSession opens an active attendance session and returns its id together
// with the roster snapshot the teacher will mark.
func StartSession(teacherID, subject, year, semester, stream, division string) (string, []Student, error) {
	if subject == "" || year == "" || semester == "" || stream == "" || division == "" {
		return "", nil, fmt.Errorf("%w: subject, year, semester, stream, and division are required", ErrInvalidArgument)
	}

	students, err := GetMappedStudents(teacherID)
	if err != nil {
		return "", nil, err
	}
	if len(students) == 0 {
		return "", nil, fmt.Errorf("%w: no students mapped to this teacher yet", ErrNotFound)
	}

	sessionID := NewSessionID(teacherID, time.Now())
	_, err = db.DB.Exec(`
		INSERT INTO attendance_sessions
			(session_id, teacher_id, subject, year, semester, stream, division, started_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP, 'active')
	`, sessionID, teacherID, subject, year, semester, stream, division)
	if err != nil {
		if IsUniqueViolation(err) {
			return "", nil, fmt.Errorf("%w: session %s already exists", ErrConflict, sessionID)
		}
		return "", nil, fmt.Errorf("failed to create attendance session: %w", err)
	}

	return sessionID, students, nil
}

// CountMarks splits a mark list into its present/absent summary.
func CountMarks(marks []Mark) SessionSummary {
	summary := SessionSummary{}
	for _, m := range marks {
		if NormalizeMarkStatus(m.Status) == StatusPresent {
			summary.Present++
		} else {
			summary.Absent++
		}
	}
	return summary
}

// FinalizeSession atomically completes an active session: the status flip,
// counts, and every attendance record commit together or not at all. A
// session that is already completed yields ErrConflict; a missing one
// ErrNotFound. Only the owning teacher may finalize.
func FinalizeSession(sessionID, teacherID string, marks []Mark, meta SessionMeta) (SessionSummary, error) {
	if len(marks) == 0 {
		return SessionSummary{}, fmt.Errorf("%w: attendance records are required to finalize session", ErrInvalidArgument)
	}

	summary := CountMarks(marks)

	tx, err := db.DB.Begin()
	if err != nil {
		return SessionSummary{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE attendance_sessions
		SET ended_at = CURRENT_TIMESTAMP, present_count = $1, absent_count = $2, status = 'completed'
		WHERE session_id = $3 AND teacher_id = $4 AND status = 'active'
	`, summary.Present, summary.Absent, sessionID, teacherID)
	if err != nil {
		return SessionSummary{}, fmt.Errorf("failed to complete session: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return SessionSummary{}, fmt.Errorf("failed to check session update: %w", err)
	}
	if affected == 0 {
		// Distinguish a finished session from a missing one.
		var status string
		err := tx.QueryRow(`
			SELECT status FROM attendance_sessions WHERE session_id = $1 AND teacher_id = $2
		`, sessionID, teacherID).Scan(&status)
		if err == sql.ErrNoRows {
			return SessionSummary{}, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
		}
		if err != nil {
			return SessionSummary{}, fmt.Errorf("failed to check session status: %w", err)
		}
		return SessionSummary{}, fmt.Errorf("%w: session %s is already %s", ErrConflict, sessionID, status)
	}

	sessionDate := meta.SessionDate
	if sessionDate.IsZero() {
		sessionDate = nowUTC()
	}

	for _, m := range marks {
		_, err = tx.Exec(`
			INSERT INTO attendance_records
				(session_id, teacher_id, student_id, subject, year, stream, division, status, session_date, marked_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, CURRENT_TIMESTAMP)
		`, sessionID, teacherID, m.StudentID, meta.Subject, meta.Year, meta.Stream,
			meta.Division, NormalizeMarkStatus(m.Status), sessionDate)
		if err != nil {
			return SessionSummary{}, fmt.Errorf("failed to insert attendance record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return SessionSummary{}, fmt.Errorf("failed to commit session finalize: %w", err)
	}
	return summary, nil
}

type SessionListItem struct {
	SessionID    string    `json:"sessionId"`
	Subject      string    `json:"subject"`
	Division     string    `json:"division"`
	StartedAt    time.Time `json:"startedAt"`
	PresentCount int       `json:"presentCount"`
	AbsentCount  int       `json:"absentCount"`
}

type TeacherStats struct {
	Sessions          int               `json:"sessions"`
	TotalPresent      int               `json:"totalPresent"`
	TotalAbsent       int               `json:"totalAbsent"`
	AveragePercentage float64           `json:"averagePercentage"`
	RecentSessions    []SessionListItem `json:"recentSessions"`
}

// GetTeacherStats summarizes a teacher's session history plus their 10 most
// recent sessions.
func GetTeacherStats(teacherID string) (*TeacherStats, error) {
	stats := &TeacherStats{}

	var totalPresent, totalAbsent sql.NullInt64
	err := db.DB.QueryRow(`
		SELECT COUNT(*), SUM(present_count), SUM(absent_count)
		FROM attendance_sessions
		WHERE teacher_id = $1
	`, teacherID).Scan(&stats.Sessions, &totalPresent, &totalAbsent)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize sessions: %w", err)
	}
	stats.TotalPresent = int(totalPresent.Int64)
	stats.TotalAbsent = int(totalAbsent.Int64)
	stats.AveragePercentage = AveragePercentage(stats.TotalPresent, stats.TotalAbsent)

	rows, err := db.DB.Query(`
		SELECT session_id, subject, division, started_at,
			COALESCE(present_count, 0), COALESCE(absent_count, 0)
		FROM attendance_sessions
		WHERE teacher_id = $1
		ORDER BY started_at DESC
		LIMIT 10
	`, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent sessions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item SessionListItem
		if err := rows.Scan(&item.SessionID, &item.Subject, &item.Division,
			&item.StartedAt, &item.PresentCount, &item.AbsentCount); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		stats.RecentSessions = append(stats.RecentSessions, item)
	}
	return stats, rows.Err()
}

// AveragePercentage is the whole-number attendance rate across totals; zero
// lectures yields zero, not NaN.
func AveragePercentage(present, absent int) float64 {
	total := present + absent
	if total == 0 {
		return 0
	}
	return float64(int(float64(present)/float64(total)*100 + 0.5))
}

type RecentRecord struct {
	SessionDate time.Time `json:"sessionDate"`
	Subject     string    `json:"subject"`
	Status      string    `json:"status"`
}

type StudentStats struct {
	Present          int            `json:"present"`
	Absent           int            `json:"absent"`
	Total            int            `json:"total"`
	Percentage       float64        `json:"percentage"`
	RecentRecords    []RecentRecord `json:"recentSessions"`
	SubjectBreakdown []SubjectStats `json:"subjectBreakdown"`
}

// GetStudentStats summarizes one student's attendance record history.
func GetStudentStats(studentID string) (*StudentStats, error) {
	stats := &StudentStats{}

	var present, absent sql.NullInt64
	err := db.DB.QueryRow(`
		SELECT COUNT(*),
			SUM(CASE WHEN status = 'P' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'A' THEN 1 ELSE 0 END)
		FROM attendance_records
		WHERE student_id = $1
	`, studentID).Scan(&stats.Total, &present, &absent)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize records: %w", err)
	}
	stats.Present = int(present.Int64)
	stats.Absent = int(absent.Int64)
	stats.Percentage = AveragePercentage(stats.Present, stats.Absent)

	rows, err := db.DB.Query(`
		SELECT session_date, subject, status
		FROM attendance_records
		WHERE student_id = $1
		ORDER BY session_date DESC
		LIMIT 10
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r RecentRecord
		if err := rows.Scan(&r.SessionDate, &r.Subject, &r.Status); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		stats.RecentRecords = append(stats.RecentRecords, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	subjectRows, err := db.DB.Query(`
		SELECT subject, COUNT(*),
			SUM(CASE WHEN status = 'P' THEN 1 ELSE 0 END)
		FROM attendance_records
		WHERE student_id = $1
		GROUP BY subject
		ORDER BY subject
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subject breakdown: %w", err)
	}
	defer subjectRows.Close()

	for subjectRows.Next() {
		var s SubjectStats
		if err := subjectRows.Scan(&s.Subject, &s.TotalLectures, &s.AttendedLectures); err != nil {
			return nil, fmt.Errorf("failed to scan subject breakdown: %w", err)
		}
		s.AttendancePercentage = Percentage(s.AttendedLectures, s.TotalLectures)
		s.IsDefaulter = s.AttendancePercentage < DefaulterThreshold
		stats.SubjectBreakdown = append(stats.SubjectBreakdown, s)
	}
	return stats, subjectRows.Err()
}

type MonthlyBreakdown struct {
	Year       int     `json:"year"`
	Month      int     `json:"month"`
	Total      int     `json:"totalSessions"`
	Present    int     `json:"presentCount"`
	Absent     int     `json:"absentCount"`
	Percentage float64 `json:"percentage"`
}

// GetStudentMonthlyBreakdown returns the student's last six months of records
// bucketed by calendar month, newest first.
func GetStudentMonthlyBreakdown(studentID string) ([]MonthlyBreakdown, error) {
	rows, err := db.DB.Query(`
		SELECT
			EXTRACT(YEAR FROM session_date)::int,
			EXTRACT(MONTH FROM session_date)::int,
			COUNT(*),
			SUM(CASE WHEN status = 'P' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'A' THEN 1 ELSE 0 END)
		FROM attendance_records
		WHERE student_id = $1
		GROUP BY 1, 2
		ORDER BY 1 DESC, 2 DESC
		LIMIT 6
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly breakdown: %w", err)
	}
	defer rows.Close()

	var months []MonthlyBreakdown
	for rows.Next() {
		var m MonthlyBreakdown
		if err := rows.Scan(&m.Year, &m.Month, &m.Total, &m.Present, &m.Absent); err != nil {
			return nil, fmt.Errorf("failed to scan monthly breakdown: %w", err)
		}
		m.Percentage = Percentage(m.Present, m.Total)
		months = append(months, m)
	}
	return months, rows.Err()
}

// SaveManualOverride records a teacher's out-of-session correction for one
// student and logs it.
func SaveManualOverride(teacherID, studentID, status, reason string) error {
	if studentID == "" || status == "" {
		return fmt.Errorf("%w: student ID and status are required", ErrInvalidArgument)
	}

	tx, err := db.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	normalized := NormalizeMarkStatus(status)
	_, err = tx.Exec(`
		INSERT INTO manual_overrides (teacher_id, student_id, status, reason, created_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
	`, teacherID, studentID, normalized, sql.NullString{String: reason, Valid: reason != ""})
	if err != nil {
		return fmt.Errorf("failed to insert manual override: %w", err)
	}

	detail := ManualOverrideDetail{StudentID: studentID, Status: normalized, Reason: reason}
	if err := LogActivity(tx, "teacher", teacherID, detail); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit manual override: %w", err)
	}
	return nil
}

// BackupRecord is one student's row inside an archived session workbook.
type BackupRecord struct {
	RollNo    string `json:"rollNo"`
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	Status    string `json:"status"`
}

// SaveAttendanceBackup archives a finalized session's workbook for later
// download, together with its BACKUP_ATTENDANCE audit entry.
func SaveAttendanceBackup(filename string, meta SessionMeta, records []BackupRecord, fileContent []byte) error {
	if filename == "" {
		return fmt.Errorf("%w: filename is required", ErrInvalidArgument)
	}

	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode backup records: %w", err)
	}

	tx, err := db.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO attendance_backup
			(filename, session_id, teacher_id, subject, year, semester, stream, division, started_at, records, file_content, saved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, CURRENT_TIMESTAMP)
	`, filename, meta.SessionID, meta.TeacherID, meta.Subject, meta.Year, meta.Semester,
		meta.Stream, meta.Division, meta.SessionDate, payload, fileContent)
	if err != nil {
		return fmt.Errorf("failed to insert attendance backup: %w", err)
	}

	detail := BackupDetail{Filename: filename, SessionID: meta.SessionID}
	if err := LogActivity(tx, "teacher", meta.TeacherID, detail); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit attendance backup: %w", err)
	}
	return nil
}

// GetBackupHistory lists archived sessions newest-first. An empty teacherID
// returns all teachers (the admin view).
func GetBackupHistory(teacherID string, limit int) ([]BackupEntry, error) {
	query := `
		SELECT id, filename, session_id, teacher_id, subject, year, stream, division, started_at, saved_at
		FROM attendance_backup
	`
	args := []interface{}{}
	if teacherID != "" {
		query += ` WHERE teacher_id = $1 ORDER BY saved_at DESC LIMIT $2`
		args = append(args, teacherID, limit)
	} else {
		query += ` ORDER BY saved_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := db.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query backup history: %w", err)
	}
	defer rows.Close()

	var entries []BackupEntry
	for rows.Next() {
		var e BackupEntry
		var sessionID, subject, year, stream, division sql.NullString
		var startedAt sql.NullTime
		if err := rows.Scan(&e.ID, &e.Filename, &sessionID, &e.TeacherID, &subject,
			&year, &stream, &division, &startedAt, &e.SavedAt); err != nil {
			return nil, fmt.Errorf("failed to scan backup entry: %w", err)
		}
		e.SessionID = sessionID.String
		e.Subject = subject.String
		e.Year = year.String
		e.Stream = stream.String
		e.Division = division.String
		if startedAt.Valid {
			e.StartedAt = &startedAt.Time
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetBackupFile fetches an archived workbook. A non-empty teacherID restricts
// the lookup to that teacher's own backups.
func GetBackupFile(backupID int64, teacherID string) (filename string, content []byte, err error) {
	query := `SELECT filename, file_content FROM attendance_backup WHERE id = $1`
	args := []interface{}{backupID}
	if teacherID != "" {
		query += ` AND teacher_id = $2`
		args = append(args, teacherID)
	}

	var fileContent []byte
	err = db.DB.QueryRow(query, args...).Scan(&filename, &fileContent)
	if err == sql.ErrNoRows {
		return "", nil, fmt.Errorf("%w: backup %d", ErrNotFound, backupID)
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to get backup: %w", err)
	}
	if len(fileContent) == 0 {
		return "", nil, fmt.Errorf("%w: backup %d has no file content", ErrNotFound, backupID)
	}
	return filename, fileContent, nil
}

// ClearBackupHistory deletes every archived session workbook and logs the
// wipe. Returns the number of rows removed.
func ClearBackupHistory(actorID string) (int64, error) {
	tx, err := db.DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM attendance_backup`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear attendance backups: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted backups: %w", err)
	}

	if err := LogActivity(tx, "admin", actorID, ClearHistoryDetail{RecordsDeleted: deleted}); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit history clear: %w", err)
	}
	return deleted, nil
}
