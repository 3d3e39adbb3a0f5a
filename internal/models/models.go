package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Attendance mark status.
const (
	StatusPresent = "P"
	StatusAbsent  = "A"
)

// Attendance session lifecycle. A session transitions active -> completed
// exactly once and is never reopened.
const (
	SessionActive    = "active"
	SessionCompleted = "completed"
)

// NormalizeMarkStatus maps any input to "P" or "A"; anything that is not an
// explicit present mark counts as absent.
func NormalizeMarkStatus(status string) string {
	if status == StatusPresent {
		return StatusPresent
	}
	return StatusAbsent
}

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

type Student struct {
	StudentID   string `json:"studentId"`
	StudentName string `json:"studentName"`
	RollNo      string `json:"rollNo"`
	Year        string `json:"year"`
	Stream      string `json:"stream"`
	Division    string `json:"division"`
}

type Teacher struct {
	TeacherID string `json:"teacherId"`
	Name      string `json:"name"`
	Subject   string `json:"subject"`
	Year      string `json:"year"`
	Stream    string `json:"stream"`
}

// Mapping is one derived teacher->student assignment.
type Mapping struct {
	TeacherID string `json:"teacherId"`
	StudentID string `json:"studentId"`
}

type AttendanceSession struct {
	SessionID    string
	TeacherID    string
	Subject      string
	Year         string
	Semester     string
	Stream       string
	Division     string
	StartedAt    time.Time
	EndedAt      sql.NullTime
	PresentCount sql.NullInt32
	AbsentCount  sql.NullInt32
	Status       string
}

// Mark is one per-student attendance decision submitted at finalize time.
type Mark struct {
	StudentID string `json:"studentId"`
	Status    string `json:"status"`
}

// SessionSummary is the result of finalizing a session.
type SessionSummary struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
}

// SessionMeta carries the class context a session was taken under; the
// aggregator stamps it onto every record it applies.
type SessionMeta struct {
	SessionID   string
	TeacherID   string
	Subject     string
	Year        string
	Semester    string
	Stream      string
	Division    string
	SessionDate time.Time
}

type AttendanceRecord struct {
	ID          int64
	SessionID   string
	TeacherID   string
	StudentID   string
	Subject     string
	Year        string
	Stream      string
	Division    string
	Status      string
	SessionDate time.Time
	MarkedAt    time.Time
}

// DefaulterRow is one row of a generated defaulter list. Month fields are
// only populated in monthly mode.
type DefaulterRow struct {
	StudentID            string  `json:"student_id"`
	StudentName          string  `json:"student_name"`
	RollNo               string  `json:"roll_no"`
	Year                 string  `json:"year"`
	Stream               string  `json:"stream"`
	Division             string  `json:"division"`
	Subject              string  `json:"subject"`
	Month                int     `json:"month,omitempty"`
	MonthName            string  `json:"month_name,omitempty"`
	YearValue            int     `json:"year_value,omitempty"`
	TotalLectures        int     `json:"total_lectures"`
	AttendedLectures     int     `json:"attended_lectures"`
	AttendancePercentage float64 `json:"attendance_percentage"`
}

type SubjectStats struct {
	Subject              string  `json:"subject"`
	TotalLectures        int     `json:"total_lectures"`
	AttendedLectures     int     `json:"attended_lectures"`
	AttendancePercentage float64 `json:"attendance_percentage"`
	IsDefaulter          bool    `json:"is_defaulter"`
}

type BackupEntry struct {
	ID        int64      `json:"id"`
	Filename  string     `json:"filename"`
	SessionID string     `json:"sessionId,omitempty"`
	TeacherID string     `json:"teacherId"`
	Subject   string     `json:"subject,omitempty"`
	Year      string     `json:"year,omitempty"`
	Stream    string     `json:"stream,omitempty"`
	Division  string     `json:"division,omitempty"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
	SavedAt   time.Time  `json:"savedAt"`
}
