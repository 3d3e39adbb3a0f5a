package notify

import (
	"encoding/json"
	"testing"
	"time"
)

func TestShouldReceive(t *testing.T) {
	marked := NewAttendanceMarked("TCH001", "Prof. Rao", "Economics", "FY", "BCOM", "A", 20, 5)
	defaulters := NewDefaulterGenerated("TCH001", "teacher", 3, 75)
	adminDefaulters := NewDefaulterGenerated("admin@markin", "admin", 7, 75)

	tests := []struct {
		name   string
		role   string
		userID string
		event  Event
		want   bool
	}{
		{"admin sees public events", "admin", "admin@markin", marked, true},
		{"admin sees private events", "admin", "admin@markin", defaulters, true},
		{"teacher sees public events", "teacher", "TCH999", marked, true},
		{"teacher sees own private event", "teacher", "TCH001", defaulters, true},
		{"teacher does not see another teacher's private event", "teacher", "TCH999", defaulters, false},
		{"teacher does not see admin-generated list", "teacher", "TCH001", adminDefaulters, false},
		{"student sees public events", "student", "STU0001", marked, true},
		{"student does not see private events", "student", "STU0001", defaulters, false},
		{"unknown role sees nothing", "guest", "x", marked, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldReceive(tt.role, tt.userID, tt.event); got != tt.want {
				t.Errorf("ShouldReceive(%s, %s, %s) = %v, want %v",
					tt.role, tt.userID, tt.event.EventType(), got, tt.want)
			}
		})
	}
}

func TestEncodeEventEnvelope(t *testing.T) {
	at := time.Date(2026, time.March, 25, 10, 0, 0, 0, time.UTC)
	data, err := encodeEvent(NewDataImport("admin@markin", 30, 4, 60), 7, at)
	if err != nil {
		t.Fatalf("encodeEvent() failed: %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("encoded event is not valid JSON: %v", err)
	}

	if fields["type"] != "data_import" {
		t.Errorf("type = %v, want data_import", fields["type"])
	}
	if fields["public"] != true {
		t.Errorf("public = %v, want true", fields["public"])
	}
	if fields["timestamp"] != "2026-03-25T10:00:00Z" {
		t.Errorf("timestamp = %v, want 2026-03-25T10:00:00Z", fields["timestamp"])
	}
	if fields["id"] != float64(7) {
		t.Errorf("id = %v, want 7", fields["id"])
	}
	if fields["studentsCount"] != float64(30) {
		t.Errorf("payload field studentsCount = %v, want 30", fields["studentsCount"])
	}
}

func TestNewDefaulterGeneratedTeacherAddressing(t *testing.T) {
	byTeacher := NewDefaulterGenerated("TCH001", "teacher", 2, 75)
	if byTeacher.TeacherID() != "TCH001" {
		t.Errorf("teacher-generated event TeacherID = %q, want TCH001", byTeacher.TeacherID())
	}

	byAdmin := NewDefaulterGenerated("admin@markin", "admin", 2, 75)
	if byAdmin.TeacherID() != "" {
		t.Errorf("admin-generated event TeacherID = %q, want empty", byAdmin.TeacherID())
	}
}

func TestNewAttendanceMarkedTotals(t *testing.T) {
	e := NewAttendanceMarked("TCH001", "Prof. Rao", "Economics", "FY", "BCOM", "A", 18, 7)
	if e.Total != 25 {
		t.Errorf("Total = %d, want 25", e.Total)
	}
	if !e.Public() {
		t.Error("attendance_marked should be public")
	}
}
