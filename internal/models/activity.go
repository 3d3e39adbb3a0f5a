package models

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"markin/internal/db"
)

// Activity log action names, matching the audit vocabulary the dashboards
// filter on.
const (
	ActionImportStudents         = "IMPORT_STUDENTS"
	ActionImportTeachers         = "IMPORT_TEACHERS"
	ActionAutoMapStudents        = "AUTO_MAP_STUDENTS"
	ActionStartAttendance        = "START_ATTENDANCE"
	ActionEndAttendance          = "END_ATTENDANCE"
	ActionManualOverride         = "MANUAL_OVERRIDE"
	ActionBackupAttendance       = "BACKUP_ATTENDANCE"
	ActionDownloadDefaulterList  = "DOWNLOAD_DEFAULTER_LIST"
	ActionDeleteAllData          = "DELETE_ALL_DATA"
	ActionClearAttendanceHistory = "CLEAR_ATTENDANCE_HISTORY"
)

// ActivityDetail is the tagged payload of one activity log row. Each action
// kind has its own detail struct so the history stays type-safe instead of an
// untyped bag.
type ActivityDetail interface {
	Action() string
}

type ImportDetail struct {
	DataType string `json:"dataType"` // "students" or "teachers"
	Total    int    `json:"total"`
	Inserted int    `json:"inserted"`
}

func (d ImportDetail) Action() string {
	if d.DataType == "teachers" {
		return ActionImportTeachers
	}
	return ActionImportStudents
}

type AutoMapDetail struct {
	MappedCount int `json:"mappedCount"`
}

func (AutoMapDetail) Action() string { return ActionAutoMapStudents }

type SessionStartDetail struct {
	SessionID string `json:"sessionId"`
	Subject   string `json:"subject"`
	Year      string `json:"year"`
	Semester  string `json:"semester"`
	Stream    string `json:"stream"`
	Division  string `json:"division"`
}

func (SessionStartDetail) Action() string { return ActionStartAttendance }

type SessionEndDetail struct {
	SessionID string `json:"sessionId"`
	Subject   string `json:"subject"`
	Stream    string `json:"stream"`
	Division  string `json:"division"`
	Present   int    `json:"present"`
	Absent    int    `json:"absent"`
}

func (SessionEndDetail) Action() string { return ActionEndAttendance }

type ManualOverrideDetail struct {
	StudentID string `json:"studentId"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
}

func (ManualOverrideDetail) Action() string { return ActionManualOverride }

type BackupDetail struct {
	Filename  string `json:"filename"`
	SessionID string `json:"sessionId,omitempty"`
}

func (BackupDetail) Action() string { return ActionBackupAttendance }

type DefaulterDownloadDetail struct {
	Count     int              `json:"count"`
	Threshold float64          `json:"threshold"`
	Filters   DefaulterFilters `json:"filters"`
}

func (DefaulterDownloadDetail) Action() string { return ActionDownloadDefaulterList }

type DeleteAllDetail struct {
	Timestamp time.Time `json:"timestamp"`
}

func (DeleteAllDetail) Action() string { return ActionDeleteAllData }

type ClearHistoryDetail struct {
	RecordsDeleted int64 `json:"recordsDeleted"`
}

func (ClearHistoryDetail) Action() string { return ActionClearAttendanceHistory }

// execer lets activity rows join whatever transaction the triggering
// operation runs in.
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// LogActivity appends one audit row. Pass the surrounding *sql.Tx so the log
// entry commits or rolls back with the operation it records.
func LogActivity(q execer, actorRole, actorID string, detail ActivityDetail) error {
	payload, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("failed to encode activity detail: %w", err)
	}

	_, err = q.Exec(`
		INSERT INTO activity_logs (actor_role, actor_id, action, details, created_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
	`, actorRole, actorID, detail.Action(), payload)
	if err != nil {
		return fmt.Errorf("failed to insert activity log: %w", err)
	}
	return nil
}

type ActivityEntry struct {
	ActorRole string          `json:"actorRole,omitempty"`
	Action    string          `json:"action"`
	Details   json.RawMessage `json:"details"`
	CreatedAt time.Time       `json:"createdAt"`
}

// GetActorActivity returns the newest-first activity feed for one actor.
// The limit is a resource cap, not a data guarantee.
func GetActorActivity(actorRole, actorID string, limit int) ([]ActivityEntry, error) {
	rows, err := db.DB.Query(`
		SELECT action, details, created_at
		FROM activity_logs
		WHERE actor_role = $1 AND actor_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, actorRole, actorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity logs: %w", err)
	}
	defer rows.Close()

	return scanActivity(rows, false)
}

// GetRecentActivity returns the newest-first activity feed across all actors.
func GetRecentActivity(limit int) ([]ActivityEntry, error) {
	rows, err := db.DB.Query(`
		SELECT actor_role, action, details, created_at
		FROM activity_logs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity logs: %w", err)
	}
	defer rows.Close()

	return scanActivity(rows, true)
}

func scanActivity(rows *sql.Rows, withRole bool) ([]ActivityEntry, error) {
	var entries []ActivityEntry
	for rows.Next() {
		var e ActivityEntry
		var err error
		if withRole {
			err = rows.Scan(&e.ActorRole, &e.Action, &e.Details, &e.CreatedAt)
		} else {
			err = rows.Scan(&e.Action, &e.Details, &e.CreatedAt)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
