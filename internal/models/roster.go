package models

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"markin/internal/db"
)

// UpsertStudents inserts or updates roster rows keyed on student_id, in one
// transaction together with its IMPORT_STUDENTS audit entry. Returns the
// number of rows in the import.
func UpsertStudents(students []Student, actorID string) (int, error) {
	if len(students) == 0 {
		return 0, nil
	}

	tx, err := db.DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, s := range students {
		_, err = tx.Exec(`
			INSERT INTO student_details (student_id, student_name, roll_no, year, stream, division, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP)
			ON CONFLICT (student_id) DO UPDATE SET
				student_name = EXCLUDED.student_name,
				roll_no = EXCLUDED.roll_no,
				year = EXCLUDED.year,
				stream = EXCLUDED.stream,
				division = EXCLUDED.division,
				updated_at = EXCLUDED.updated_at
		`, strings.TrimSpace(s.StudentID), strings.TrimSpace(s.StudentName),
			strings.TrimSpace(s.RollNo), strings.TrimSpace(s.Year),
			strings.TrimSpace(s.Stream), strings.TrimSpace(s.Division))
		if err != nil {
			return 0, fmt.Errorf("failed to upsert student %s: %w", s.StudentID, err)
		}
	}

	detail := ImportDetail{DataType: "students", Total: len(students), Inserted: len(students)}
	if err := LogActivity(tx, "admin", actorID, detail); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit student import: %w", err)
	}
	return len(students), nil
}

// UpsertTeachers mirrors UpsertStudents for the teacher roster.
func UpsertTeachers(teachers []Teacher, actorID string) (int, error) {
	if len(teachers) == 0 {
		return 0, nil
	}

	tx, err := db.DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, t := range teachers {
		_, err = tx.Exec(`
			INSERT INTO teacher_details (teacher_id, name, subject, year, stream, updated_at)
			VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP)
			ON CONFLICT (teacher_id) DO UPDATE SET
				name = EXCLUDED.name,
				subject = EXCLUDED.subject,
				year = EXCLUDED.year,
				stream = EXCLUDED.stream,
				updated_at = EXCLUDED.updated_at
		`, strings.TrimSpace(t.TeacherID), strings.TrimSpace(t.Name),
			strings.TrimSpace(t.Subject), strings.TrimSpace(t.Year), strings.TrimSpace(t.Stream))
		if err != nil {
			return 0, fmt.Errorf("failed to upsert teacher %s: %w", t.TeacherID, err)
		}
	}

	detail := ImportDetail{DataType: "teachers", Total: len(teachers), Inserted: len(teachers)}
	if err := LogActivity(tx, "admin", actorID, detail); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit teacher import: %w", err)
	}
	return len(teachers), nil
}

// ComputeMappings derives the teacher->student assignment set by joining the
// two rosters on matching year+stream. Pure: same inputs always yield the
// same set, with deterministic ordering and no duplicates.
func ComputeMappings(students []Student, teachers []Teacher) []Mapping {
	seen := make(map[Mapping]struct{})
	var mappings []Mapping
	for _, t := range teachers {
		for _, s := range students {
			if t.Year != s.Year || t.Stream != s.Stream {
				continue
			}
			m := Mapping{TeacherID: t.TeacherID, StudentID: s.StudentID}
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			mappings = append(mappings, m)
		}
	}
	sort.Slice(mappings, func(i, j int) bool {
		if mappings[i].TeacherID != mappings[j].TeacherID {
			return mappings[i].TeacherID < mappings[j].TeacherID
		}
		return mappings[i].StudentID < mappings[j].StudentID
	})
	return mappings
}

// RecomputeMappings rebuilds teacher_student_map from the current rosters:
// read both rosters, apply ComputeMappings, then delete-all and bulk
// reinsert, in one transaction so concurrent readers never observe an empty
// mapping table. Idempotent for unchanged rosters.
func RecomputeMappings(actorID string) (int, error) {
	tx, err := db.DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	students, err := rosterStudents(tx)
	if err != nil {
		return 0, err
	}
	teachers, err := rosterTeachers(tx)
	if err != nil {
		return 0, err
	}
	mappings := ComputeMappings(students, teachers)

	if _, err := tx.Exec(`DELETE FROM teacher_student_map`); err != nil {
		return 0, fmt.Errorf("failed to clear mappings: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO teacher_student_map (teacher_id, student_id) VALUES ($1, $2)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare mapping insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range mappings {
		if _, err := stmt.Exec(m.TeacherID, m.StudentID); err != nil {
			return 0, fmt.Errorf("failed to insert mapping %s->%s: %w", m.TeacherID, m.StudentID, err)
		}
	}

	if err := LogActivity(tx, "admin", actorID, AutoMapDetail{MappedCount: len(mappings)}); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit mapping recompute: %w", err)
	}
	return len(mappings), nil
}

func rosterStudents(tx *sql.Tx) ([]Student, error) {
	rows, err := tx.Query(`SELECT student_id, year, stream FROM student_details`)
	if err != nil {
		return nil, fmt.Errorf("failed to load student roster: %w", err)
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.StudentID, &s.Year, &s.Stream); err != nil {
			return nil, fmt.Errorf("failed to scan student row: %w", err)
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

func rosterTeachers(tx *sql.Tx) ([]Teacher, error) {
	rows, err := tx.Query(`SELECT teacher_id, year, stream FROM teacher_details`)
	if err != nil {
		return nil, fmt.Errorf("failed to load teacher roster: %w", err)
	}
	defer rows.Close()

	var teachers []Teacher
	for rows.Next() {
		var t Teacher
		if err := rows.Scan(&t.TeacherID, &t.Year, &t.Stream); err != nil {
			return nil, fmt.Errorf("failed to scan teacher row: %w", err)
		}
		teachers = append(teachers, t)
	}
	return teachers, rows.Err()
}

// GetMappedStudents returns the roster a teacher may mark, ordered by
// student id.
func GetMappedStudents(teacherID string) ([]Student, error) {
	rows, err := db.DB.Query(`
		SELECT s.student_id, s.student_name, s.roll_no, s.year, s.stream, s.division
		FROM student_details s
		INNER JOIN teacher_student_map m ON s.student_id = m.student_id
		WHERE m.teacher_id = $1
		ORDER BY s.student_id ASC
	`, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mapped students: %w", err)
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.StudentID, &s.StudentName, &s.RollNo, &s.Year, &s.Stream, &s.Division); err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

func GetStudent(studentID string) (*Student, error) {
	s := &Student{}
	err := db.DB.QueryRow(`
		SELECT student_id, student_name, roll_no, year, stream, division
		FROM student_details WHERE student_id = $1
	`, studentID).Scan(&s.StudentID, &s.StudentName, &s.RollNo, &s.Year, &s.Stream, &s.Division)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return s, nil
}

func GetTeacher(teacherID string) (*Teacher, error) {
	t := &Teacher{}
	err := db.DB.QueryRow(`
		SELECT teacher_id, name, subject, year, stream
		FROM teacher_details WHERE teacher_id = $1
	`, teacherID).Scan(&t.TeacherID, &t.Name, &t.Subject, &t.Year, &t.Stream)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get teacher: %w", err)
	}
	return t, nil
}

// GetStudents returns roster rows, optionally filtered by year/stream/division.
// Empty filter values impose no constraint.
func GetStudents(year, stream, division string) ([]Student, error) {
	query := `
		SELECT student_id, student_name, roll_no, year, stream, division
		FROM student_details
		WHERE 1=1
	`
	args := []interface{}{}
	argIndex := 1

	if year != "" && year != "ALL" {
		query += fmt.Sprintf(" AND year = $%d", argIndex)
		args = append(args, year)
		argIndex++
	}
	if stream != "" && stream != "ALL" {
		query += fmt.Sprintf(" AND stream = $%d", argIndex)
		args = append(args, stream)
		argIndex++
	}
	if division != "" && division != "ALL" {
		query += fmt.Sprintf(" AND division = $%d", argIndex)
		args = append(args, division)
		argIndex++
	}

	query += " ORDER BY year, stream, division, student_id"

	rows, err := db.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.StudentID, &s.StudentName, &s.RollNo, &s.Year, &s.Stream, &s.Division); err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

func GetTeachers() ([]Teacher, error) {
	rows, err := db.DB.Query(`
		SELECT teacher_id, name, subject, year, stream
		FROM teacher_details
		ORDER BY year, stream, name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query teachers: %w", err)
	}
	defer rows.Close()

	var teachers []Teacher
	for rows.Next() {
		var t Teacher
		if err := rows.Scan(&t.TeacherID, &t.Name, &t.Subject, &t.Year, &t.Stream); err != nil {
			return nil, fmt.Errorf("failed to scan teacher: %w", err)
		}
		teachers = append(teachers, t)
	}
	return teachers, rows.Err()
}

// DistinctStreams lists the streams present in the student roster.
func DistinctStreams() ([]string, error) {
	return distinctColumn("stream")
}

// DistinctDivisions lists the divisions present in the student roster.
func DistinctDivisions() ([]string, error) {
	return distinctColumn("division")
}

func distinctColumn(column string) ([]string, error) {
	// column is a compile-time constant, never user input
	query := fmt.Sprintf(`
		SELECT DISTINCT %s FROM student_details
		WHERE %s IS NOT NULL AND %s != ''
		ORDER BY %s
	`, column, column, column, column)

	rows, err := db.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query distinct %s: %w", column, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", column, err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// SubjectsForClass returns the subjects taught to one year/stream/division
// cohort, derived from the mapping table.
func SubjectsForClass(year, stream, division string) ([]string, error) {
	rows, err := db.DB.Query(`
		SELECT DISTINCT t.subject
		FROM teacher_details t
		INNER JOIN teacher_student_map m ON t.teacher_id = m.teacher_id
		INNER JOIN student_details s ON m.student_id = s.student_id
		WHERE s.year = $1 AND s.stream = $2 AND s.division = $3
		ORDER BY t.subject
	`, year, stream, division)
	if err != nil {
		return nil, fmt.Errorf("failed to query subjects: %w", err)
	}
	defer rows.Close()

	var subjects []string
	for rows.Next() {
		var subject string
		if err := rows.Scan(&subject); err != nil {
			return nil, fmt.Errorf("failed to scan subject: %w", err)
		}
		subjects = append(subjects, subject)
	}
	return subjects, rows.Err()
}

type TeacherInfo struct {
	Teacher
	Divisions    string `json:"divisions"`
	StudentCount int    `json:"studentCount"`
}

// GetTeachersInfo returns every teacher with the divisions they cover and the
// size of their mapped roster.
func GetTeachersInfo() ([]TeacherInfo, error) {
	rows, err := db.DB.Query(`
		SELECT
			t.teacher_id, t.name, t.subject, t.year, t.stream,
			COALESCE(STRING_AGG(DISTINCT s.division, ', ' ORDER BY s.division), 'N/A') AS divisions,
			COUNT(DISTINCT m.student_id) AS student_count
		FROM teacher_details t
		LEFT JOIN teacher_student_map m ON t.teacher_id = m.teacher_id
		LEFT JOIN student_details s ON m.student_id = s.student_id
			AND s.year = t.year AND s.stream = t.stream
		GROUP BY t.teacher_id, t.name, t.subject, t.year, t.stream
		ORDER BY t.name, t.year, t.stream
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query teachers info: %w", err)
	}
	defer rows.Close()

	var infos []TeacherInfo
	for rows.Next() {
		var info TeacherInfo
		if err := rows.Scan(&info.TeacherID, &info.Name, &info.Subject, &info.Year,
			&info.Stream, &info.Divisions, &info.StudentCount); err != nil {
			return nil, fmt.Errorf("failed to scan teacher info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

type StreamDivisionCount struct {
	Stream   string `json:"stream"`
	Division string `json:"division"`
	Students int    `json:"students"`
}

type DashboardStats struct {
	Students             int                   `json:"students"`
	Teachers             int                   `json:"teachers"`
	Streams              []string              `json:"streams"`
	Divisions            []string              `json:"divisions"`
	StreamDivisionCounts []StreamDivisionCount `json:"streamDivisionCounts"`
}

// GetDashboardStats returns the admin dashboard roster aggregates.
func GetDashboardStats() (*DashboardStats, error) {
	stats := &DashboardStats{}

	if err := db.DB.QueryRow(`SELECT COUNT(*) FROM student_details`).Scan(&stats.Students); err != nil {
		return nil, fmt.Errorf("failed to count students: %w", err)
	}
	if err := db.DB.QueryRow(`SELECT COUNT(*) FROM teacher_details`).Scan(&stats.Teachers); err != nil {
		return nil, fmt.Errorf("failed to count teachers: %w", err)
	}

	var err error
	if stats.Streams, err = DistinctStreams(); err != nil {
		return nil, err
	}
	if stats.Divisions, err = DistinctDivisions(); err != nil {
		return nil, err
	}

	rows, err := db.DB.Query(`
		SELECT stream, division, COUNT(*) AS students
		FROM student_details
		WHERE stream != '' AND division != ''
		GROUP BY stream, division
		ORDER BY stream, division
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stream/division counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c StreamDivisionCount
		if err := rows.Scan(&c.Stream, &c.Division, &c.Students); err != nil {
			return nil, fmt.Errorf("failed to scan stream/division count: %w", err)
		}
		stats.StreamDivisionCounts = append(stats.StreamDivisionCounts, c)
	}
	return stats, rows.Err()
}

// DeleteAllData wipes rosters, mappings, sessions and records in one
// transaction. Attendance backups survive; non-admin activity is cleared.
func DeleteAllData(actorID string) error {
	tx, err := db.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	tables := []string{
		"teacher_student_map",
		"student_details",
		"teacher_details",
		"attendance_sessions",
		"attendance_records",
		"monthly_attendance_summary",
		"student_attendance_stats",
	}
	for _, table := range tables {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM activity_logs WHERE actor_role != 'admin'`); err != nil {
		return fmt.Errorf("failed to clear activity logs: %w", err)
	}

	if err := LogActivity(tx, "admin", actorID, DeleteAllDetail{Timestamp: nowUTC()}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit data wipe: %w", err)
	}
	return nil
}
