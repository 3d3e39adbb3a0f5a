package handlers

import (
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"markin/internal/config"
	"markin/internal/excel"
	"markin/internal/middleware"
	"markin/internal/models"
	"markin/internal/notify"

	"github.com/google/uuid"
)

const (
	adminActivityLimit = 10
	adminHistoryLimit  = 200

	maxUploadBytes = 10 << 20
	stagingTTL     = 30 * time.Minute
)

// stagedImport is an uploaded roster waiting for the admin's confirm click.
// Nothing reaches the database until ConfirmImport.
type stagedImport struct {
	DataType   string
	Students   []models.Student
	Teachers   []models.Teacher
	UploadedAt time.Time
}

type AdminHandler struct {
	cfg      *config.Config
	notifier *notify.Notifier

	mu     sync.Mutex
	staged map[string]*stagedImport
}

func NewAdminHandler(cfg *config.Config, notifier *notify.Notifier) *AdminHandler {
	return &AdminHandler{
		cfg:      cfg,
		notifier: notifier,
		staged:   make(map[string]*stagedImport),
	}
}

func (h *AdminHandler) stage(imp *stagedImport) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Expire abandoned uploads while we are here.
	cutoff := time.Now().Add(-stagingTTL)
	for id, s := range h.staged {
		if s.UploadedAt.Before(cutoff) {
			delete(h.staged, id)
		}
	}

	id := uuid.NewString()
	h.staged[id] = imp
	return id
}

func (h *AdminHandler) takeStaged(id string) *stagedImport {
	h.mu.Lock()
	defer h.mu.Unlock()
	imp := h.staged[id]
	delete(h.staged, id)
	return imp
}

func (h *AdminHandler) peekStaged(id string) *stagedImport {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.staged[id]
}

// UploadImport parses a multipart roster workbook and stages it for preview.
// POST /api/admin/import/upload?type=students|teachers
func (h *AdminHandler) UploadImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	dataType := r.URL.Query().Get("type")
	if dataType != "students" && dataType != "teachers" {
		jsonError(w, http.StatusBadRequest, "type must be students or teachers")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "Invalid multipart upload")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	imp := &stagedImport{DataType: dataType, UploadedAt: time.Now()}
	var count int
	if dataType == "students" {
		imp.Students, err = excel.ParseStudents(file)
		count = len(imp.Students)
	} else {
		imp.Teachers, err = excel.ParseTeachers(file)
		count = len(imp.Teachers)
	}
	if err != nil {
		jsonError(w, http.StatusBadRequest, "Failed to parse workbook: "+err.Error())
		return
	}
	if count == 0 {
		jsonError(w, http.StatusBadRequest, "No valid rows found in workbook")
		return
	}

	uploadID := h.stage(imp)
	h.cfg.Debugf("staged %s import %s with %d rows", dataType, uploadID, count)
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"uploadId": uploadID,
		"dataType": dataType,
		"count":    count,
	})
}

// PreviewImport returns the staged rows for the admin to inspect.
// GET /api/admin/import/preview?uploadId=...
func (h *AdminHandler) PreviewImport(w http.ResponseWriter, r *http.Request) {
	imp := h.peekStaged(r.URL.Query().Get("uploadId"))
	if imp == nil {
		jsonError(w, http.StatusNotFound, "Upload not found or expired")
		return
	}

	resp := map[string]interface{}{"dataType": imp.DataType}
	if imp.DataType == "students" {
		resp["rows"] = imp.Students
	} else {
		resp["rows"] = imp.Teachers
	}
	jsonResponse(w, http.StatusOK, resp)
}

// ConfirmImport commits a staged upload: upsert the roster, recompute the
// teacher/student mapping, then announce the import to connected clients.
// POST /api/admin/import/confirm
func (h *AdminHandler) ConfirmImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req struct {
		UploadID string `json:"uploadId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	imp := h.takeStaged(req.UploadID)
	if imp == nil {
		jsonError(w, http.StatusNotFound, "Upload not found or expired")
		return
	}

	actorID := middleware.GetUserID(r)
	var imported, studentCount, teacherCount int
	var err error
	if imp.DataType == "students" {
		imported, err = models.UpsertStudents(imp.Students, actorID)
		studentCount = imported
	} else {
		imported, err = models.UpsertTeachers(imp.Teachers, actorID)
		teacherCount = imported
	}
	if err != nil {
		modelError(w, err)
		return
	}

	mapped, err := models.RecomputeMappings(actorID)
	if err != nil {
		modelError(w, err)
		return
	}

	h.notifier.Broadcast(notify.NewDataImport(actorID, studentCount, teacherCount, mapped))

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"dataType": imp.DataType,
		"imported": imported,
		"mapped":   mapped,
	})
}

// AutoMap rebuilds the teacher/student mapping from the current rosters.
// POST /api/admin/auto-map
func (h *AdminHandler) AutoMap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	mapped, err := models.RecomputeMappings(middleware.GetUserID(r))
	if err != nil {
		modelError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{"success": true, "mapped": mapped})
}

// Dashboard returns roster aggregates plus live connection counts.
// GET /api/admin/dashboard
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := models.GetDashboardStats()
	if err != nil {
		modelError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"stats":           stats,
		"liveConnections": h.notifier.ConnectionCount(),
	})
}

// Activity returns the latest admin import/map/wipe actions.
// GET /api/admin/activity
func (h *AdminHandler) Activity(w http.ResponseWriter, r *http.Request) {
	entries, err := models.GetRecentActivity(adminActivityLimit)
	if err != nil {
		modelError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{"activity": entries})
}

// TeachersInfo returns every teacher with mapped divisions and roster sizes.
// GET /api/admin/teachers-info
func (h *AdminHandler) TeachersInfo(w http.ResponseWriter, r *http.Request) {
	infos, err := models.GetTeachersInfo()
	if err != nil {
		modelError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{"teachers": infos})
}

// StudentsInfo returns the student roster, optionally filtered.
// GET /api/admin/students-info?year=&stream=&division=
func (h *AdminHandler) StudentsInfo(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	students, err := models.GetStudents(q.Get("year"), q.Get("stream"), q.Get("division"))
	if err != nil {
		modelError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{"students": students})
}

// ExportRoster streams the current roster as a workbook; with no rows it
// doubles as the import template.
// GET /api/admin/roster/export?type=students|teachers&template=true
func (h *AdminHandler) ExportRoster(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dataType := q.Get("type")
	template := q.Get("template") == "true"

	var buf interface{ Bytes() []byte }
	var err error
	var filename string
	switch dataType {
	case "teachers":
		teachers := []models.Teacher{}
		if !template {
			teachers, err = models.GetTeachers()
			if err != nil {
				modelError(w, err)
				return
			}
		}
		buf, err = excel.RosterWorkbook(nil, teachers)
		filename = "teachers.xlsx"
	case "students":
		students := []models.Student{}
		if !template {
			students, err = models.GetStudents(q.Get("year"), q.Get("stream"), q.Get("division"))
			if err != nil {
				modelError(w, err)
				return
			}
		}
		buf, err = excel.RosterWorkbook(students, nil)
		filename = "students.xlsx"
	default:
		jsonError(w, http.StatusBadRequest, "type must be students or teachers")
		return
	}
	if err != nil {
		modelError(w, err)
		return
	}
	if template {
		filename = dataType + "_template.xlsx"
	}
	writeWorkbook(w, filename, buf.Bytes())
}

// Defaulters returns the defaulter list as JSON.
// GET /api/admin/defaulters?month=&year=&stream=&division=&subject=&overall=true
func (h *AdminHandler) Defaulters(w http.ResponseWriter, r *http.Request) {
	filters, overall := defaulterFilters(r)
	rows, err := listDefaulters(filters, overall)
	if err != nil {
		modelError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"defaulters": rows,
		"count":      len(rows),
		"threshold":  h.cfg.DefaulterThreshold,
	})
}

// DownloadDefaulters streams the defaulter workbook, records the generation
// in history and the audit log, and announces it to teacher dashboards.
// GET /api/admin/defaulters/download
func (h *AdminHandler) DownloadDefaulters(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r)
	serveDefaulterDownload(w, r, h.cfg, h.notifier, actorID, "admin", defaulterScope{})
}

// History lists archived session workbooks across all teachers.
// GET /api/admin/history
func (h *AdminHandler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := models.GetBackupHistory("", adminHistoryLimit)
	if err != nil {
		modelError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{"history": entries})
}

// DownloadBackup streams one archived workbook by id.
// GET /api/admin/history/download?id=...
func (h *AdminHandler) DownloadBackup(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "Invalid backup id")
		return
	}
	filename, content, err := models.GetBackupFile(id, "")
	if err != nil {
		modelError(w, err)
		return
	}
	writeWorkbook(w, filename, content)
}

// ClearHistory deletes every archived session workbook.
// POST /api/admin/history/clear
func (h *AdminHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	deleted, err := models.ClearBackupHistory(middleware.GetUserID(r))
	if err != nil {
		modelError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{"success": true, "deleted": deleted})
}

// DeleteAllData wipes rosters, mappings, sessions and attendance records.
// POST /api/admin/delete-all-data
func (h *AdminHandler) DeleteAllData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	actorID := middleware.GetUserID(r)
	if err := models.DeleteAllData(actorID); err != nil {
		modelError(w, err)
		return
	}
	log.Printf("WARNING: all roster and attendance data deleted by %s", actorID)
	jsonResponse(w, http.StatusOK, map[string]interface{}{"success": true})
}

// LiveUpdates subscribes the admin to the event stream.
// GET /api/admin/live-updates
func (h *AdminHandler) LiveUpdates(w http.ResponseWriter, r *http.Request) {
	subscribeEvents(w, r, h.notifier)
}
