package notify

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is one live-update message. Each kind is its own struct so payloads
// stay typed; the envelope fields (type, public, timestamp, id) are attached
// at broadcast time.
type Event interface {
	EventType() string
	// Public events reach every connected role; private events only reach
	// admins and the embedded teacher/student.
	Public() bool
	// TeacherID/StudentID drive per-user routing; empty means no match.
	TeacherID() string
	StudentID() string
}

// AttendanceMarked announces a finalized attendance session.
type AttendanceMarked struct {
	Subject     string `json:"subject"`
	Stream      string `json:"stream"`
	Division    string `json:"division"`
	Year        string `json:"year"`
	Teacher     string `json:"teacherId"`
	TeacherName string `json:"teacherName"`
	Present     int    `json:"present"`
	Absent      int    `json:"absent"`
	Total       int    `json:"total"`
	SessionID   string `json:"sessionId"`
	Message     string `json:"message"`
}

func (AttendanceMarked) EventType() string   { return "attendance_marked" }
func (AttendanceMarked) Public() bool        { return true }
func (e AttendanceMarked) TeacherID() string { return e.Teacher }
func (AttendanceMarked) StudentID() string   { return "" }

// NewAttendanceMarked fills the display message from the session facts.
func NewAttendanceMarked(teacherID, teacherName, subject, year, stream, division string, present, absent int) AttendanceMarked {
	return AttendanceMarked{
		Subject:     subject,
		Stream:      stream,
		Division:    division,
		Year:        year,
		Teacher:     teacherID,
		TeacherName: teacherName,
		Present:     present,
		Absent:      absent,
		Total:       present + absent,
		Message:     fmt.Sprintf("%s marked attendance for %s - %s %s", teacherName, subject, stream, division),
	}
}

// DefaulterGenerated announces a generated defaulter list. Private: only
// admins and the generating teacher see it.
type DefaulterGenerated struct {
	Count       int     `json:"count"`
	Threshold   float64 `json:"threshold"`
	GeneratedBy string  `json:"generatedBy"`
	Role        string  `json:"role"`
	Teacher     string  `json:"teacherId,omitempty"`
	Message     string  `json:"message"`
}

func (DefaulterGenerated) EventType() string   { return "defaulter_generated" }
func (DefaulterGenerated) Public() bool        { return false }
func (e DefaulterGenerated) TeacherID() string { return e.Teacher }
func (DefaulterGenerated) StudentID() string   { return "" }

func NewDefaulterGenerated(generatedBy, role string, count int, threshold float64) DefaulterGenerated {
	e := DefaulterGenerated{
		Count:       count,
		Threshold:   threshold,
		GeneratedBy: generatedBy,
		Role:        role,
		Message:     fmt.Sprintf("Defaulter list generated with %d students below %g%%", count, threshold),
	}
	if role == "teacher" {
		e.Teacher = generatedBy
	}
	return e
}

// DataImport announces a confirmed roster import.
type DataImport struct {
	StudentsCount int    `json:"studentsCount"`
	TeachersCount int    `json:"teachersCount"`
	MappingsCount int    `json:"mappingsCount"`
	ImportedBy    string `json:"importedBy"`
	Message       string `json:"message"`
}

func (DataImport) EventType() string { return "data_import" }
func (DataImport) Public() bool      { return true }
func (DataImport) TeacherID() string { return "" }
func (DataImport) StudentID() string { return "" }

func NewDataImport(importedBy string, students, teachers, mappings int) DataImport {
	return DataImport{
		StudentsCount: students,
		TeachersCount: teachers,
		MappingsCount: mappings,
		ImportedBy:    importedBy,
		Message:       fmt.Sprintf("%d students and %d teachers imported successfully", students, teachers),
	}
}

// StatsUpdate tells dashboards to refresh their aggregates.
type StatsUpdate struct {
	Message string `json:"message"`
}

func (StatsUpdate) EventType() string { return "stats_update" }
func (StatsUpdate) Public() bool      { return true }
func (StatsUpdate) TeacherID() string { return "" }
func (StatsUpdate) StudentID() string { return "" }

// encodeEvent flattens the payload fields and stamps the envelope.
func encodeEvent(e Event, id int64, at time.Time) ([]byte, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event payload: %w", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to flatten event payload: %w", err)
	}
	fields["type"] = e.EventType()
	fields["public"] = e.Public()
	fields["timestamp"] = at.UTC().Format(time.RFC3339)
	fields["id"] = id
	return json.Marshal(fields)
}

// ShouldReceive is the routing predicate: admins see everything; teachers and
// students see public events plus events addressed to them.
func ShouldReceive(role, userID string, e Event) bool {
	switch role {
	case "admin":
		return true
	case "teacher":
		return e.Public() || (e.TeacherID() != "" && e.TeacherID() == userID)
	case "student":
		return e.Public() || (e.StudentID() != "" && e.StudentID() == userID)
	}
	return false
}
