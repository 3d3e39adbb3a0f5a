package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNormalizeMarkStatus(t *testing.T) {
	tests := []struct {
		name   string
		status string
		want   string
	}{
		{"present stays present", "P", StatusPresent},
		{"absent stays absent", "A", StatusAbsent},
		{"lowercase counts as absent", "p", StatusAbsent},
		{"empty counts as absent", "", StatusAbsent},
		{"garbage counts as absent", "present", StatusAbsent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeMarkStatus(tt.status); got != tt.want {
				t.Errorf("NormalizeMarkStatus(%q) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestCountMarks(t *testing.T) {
	tests := []struct {
		name  string
		marks []Mark
		want  SessionSummary
	}{
		{
			name:  "empty list",
			marks: nil,
			want:  SessionSummary{},
		},
		{
			name: "mixed marks",
			marks: []Mark{
				{StudentID: "STU0001", Status: "P"},
				{StudentID: "STU0002", Status: "A"},
				{StudentID: "STU0003", Status: "P"},
			},
			want: SessionSummary{Present: 2, Absent: 1},
		},
		{
			name: "unknown status counts as absent",
			marks: []Mark{
				{StudentID: "STU0001", Status: "late"},
				{StudentID: "STU0002", Status: ""},
			},
			want: SessionSummary{Present: 0, Absent: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountMarks(tt.marks); got != tt.want {
				t.Errorf("CountMarks() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNewSessionID(t *testing.T) {
	at := time.UnixMilli(1750000000000)
	got := NewSessionID("TCH001", at)
	want := "SES_TCH001_1750000000000"
	if got != want {
		t.Errorf("NewSessionID() = %q, want %q", got, want)
	}
}

func TestNewSessionIDDistinctPerMillisecond(t *testing.T) {
	at := time.UnixMilli(1750000000000)
	a := NewSessionID("TCH001", at)
	b := NewSessionID("TCH001", at.Add(time.Millisecond))
	if a == b {
		t.Errorf("session ids for different milliseconds should differ, both %q", a)
	}
}

func TestBackupEntryJSON(t *testing.T) {
	startedAt := time.Date(2026, time.March, 25, 14, 5, 9, 0, time.UTC)
	entry := BackupEntry{
		ID:        7,
		Filename:  "25-03-2026_14-05-09_Physics_attendance_record.xlsx",
		SessionID: "SES_TCH001_1750000000000",
		TeacherID: "TCH001",
		Subject:   "Physics",
		Year:      "FY",
		Stream:    "BCOM",
		Division:  "A",
		StartedAt: &startedAt,
		SavedAt:   startedAt.Add(time.Hour),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	body := string(data)
	for _, want := range []string{
		`"subject":"Physics"`,
		`"sessionId":"SES_TCH001_1750000000000"`,
		`"year":"FY"`,
		`"startedAt":"2026-03-25T14:05:09Z"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("marshaled entry missing %s in %s", want, body)
		}
	}
	if strings.Contains(body, `"Valid"`) {
		t.Errorf("marshaled entry leaks scan wrapper fields: %s", body)
	}
}

func TestBackupEntryJSONOmitsEmptyMetadata(t *testing.T) {
	entry := BackupEntry{ID: 3, Filename: "old.xlsx", TeacherID: "TCH002"}

	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	body := string(data)
	for _, absent := range []string{`"subject"`, `"startedAt"`, `"sessionId"`, `"stream"`} {
		if strings.Contains(body, absent) {
			t.Errorf("marshaled entry should omit empty %s: %s", absent, body)
		}
	}
}
