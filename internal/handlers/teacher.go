package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"markin/internal/config"
	"markin/internal/db"
	"markin/internal/excel"
	"markin/internal/middleware"
	"markin/internal/models"
	"markin/internal/notify"
	"markin/internal/util"
)

const (
	teacherActivityLimit = 20
	teacherHistoryLimit  = 100
)

type TeacherHandler struct {
	cfg      *config.Config
	notifier *notify.Notifier
}

func NewTeacherHandler(cfg *config.Config, notifier *notify.Notifier) *TeacherHandler {
	return &TeacherHandler{cfg: cfg, notifier: notifier}
}

// Dashboard returns the teacher's profile, session aggregates and recent
// activity in one payload.
// GET /api/teacher/dashboard
func (h *TeacherHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	teacherID := middleware.GetUserID(r)

	teacher, err := models.GetTeacher(teacherID)
	if err != nil {
		modelError(w, err)
		return
	}
	stats, err := models.GetTeacherStats(teacherID)
	if err != nil {
		modelError(w, err)
		return
	}
	activity, err := models.GetActorActivity("teacher", teacherID, teacherActivityLimit)
	if err != nil {
		modelError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"teacher":  teacher,
		"stats":    stats,
		"activity": activity,
	})
}

// Students returns the roster mapped to this teacher.
// GET /api/teacher/students
func (h *TeacherHandler) Students(w http.ResponseWriter, r *http.Request) {
	students, err := models.GetMappedStudents(middleware.GetUserID(r))
	if err != nil {
		modelError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{"students": students})
}

// Streams returns the distinct streams present in the student roster.
// GET /api/teacher/streams
func (h *TeacherHandler) Streams(w http.ResponseWriter, r *http.Request) {
	streams, err := models.DistinctStreams()
	if err != nil {
		modelError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{"streams": streams})
}

// Divisions returns the distinct divisions present in the student roster.
// GET /api/teacher/divisions
func (h *TeacherHandler) Divisions(w http.ResponseWriter, r *http.Request) {
	divisions, err := models.DistinctDivisions()
	if err != nil {
		modelError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{"divisions": divisions})
}

// Subjects returns the subjects taught for one class.
// GET /api/teacher/subjects?year=&stream=&division=
func (h *TeacherHandler) Subjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	subjects, err := models.SubjectsForClass(q.Get("year"), q.Get("stream"), q.Get("division"))
	if err != nil {
		modelError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{"subjects": subjects})
}

type startAttendanceRequest struct {
	Subject  string `json:"subject"`
	Year     string `json:"year"`
	Semester string `json:"semester"`
	Stream   string `json:"stream"`
	Division string `json:"division"`
}

// StartAttendance opens an active session and returns the roster to mark.
// POST /api/teacher/attendance/start
func (h *TeacherHandler) StartAttendance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req startAttendanceRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	teacherID := middleware.GetUserID(r)
	sessionID, students, err := models.StartSession(teacherID, req.Subject, req.Year,
		req.Semester, req.Stream, req.Division)
	if err != nil {
		modelError(w, err)
		return
	}

	detail := models.SessionStartDetail{
		SessionID: sessionID,
		Subject:   req.Subject,
		Year:      req.Year,
		Semester:  req.Semester,
		Stream:    req.Stream,
		Division:  req.Division,
	}
	if err := models.LogActivity(db.DB, "teacher", teacherID, detail); err != nil {
		log.Printf("ERROR: failed to log session start: %v", err)
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"sessionId": sessionID,
		"students":  students,
	})
}

type endAttendanceRequest struct {
	SessionID string        `json:"sessionId"`
	Subject   string        `json:"subject"`
	Year      string        `json:"year"`
	Semester  string        `json:"semester"`
	Stream    string        `json:"stream"`
	Division  string        `json:"division"`
	Date      string        `json:"date,omitempty"`
	Marks     []models.Mark `json:"marks"`
}

// resolveSessionDate turns an optional YYYY-MM-DD form value into the date
// the session is recorded under. Empty input means "now"; a future date is
// rejected so backfilled sessions cannot land in months that have not
// happened yet.
func resolveSessionDate(dateStr string, now time.Time) (time.Time, error) {
	if dateStr == "" {
		return now.UTC(), nil
	}
	d, err := util.ParseDateLocal(dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid session date %q, expected YYYY-MM-DD", dateStr)
	}
	if err := util.ValidateNotFutureDate(d); err != nil {
		return time.Time{}, err
	}
	return d, nil
}

// EndAttendance finalizes a session: commit the records, fold them into the
// rolling monthly and per-subject stats, archive the session workbook, and
// announce the result. The finalize itself is the only step that can fail the
// request; everything after it is bookkeeping that is logged on error.
// POST /api/teacher/attendance/end
func (h *TeacherHandler) EndAttendance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req endAttendanceRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	teacherID := middleware.GetUserID(r)
	teacherName := middleware.GetUserName(r)
	now := time.Now()

	sessionDate, err := resolveSessionDate(req.Date, now)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	meta := models.SessionMeta{
		SessionID:   req.SessionID,
		TeacherID:   teacherID,
		Subject:     req.Subject,
		Year:        req.Year,
		Semester:    req.Semester,
		Stream:      req.Stream,
		Division:    req.Division,
		SessionDate: sessionDate,
	}

	summary, err := models.FinalizeSession(req.SessionID, teacherID, req.Marks, meta)
	if err != nil {
		modelError(w, err)
		return
	}

	if err := models.ApplyAttendanceStats(req.Marks, meta); err != nil {
		log.Printf("ERROR: failed to apply attendance stats for %s: %v", req.SessionID, err)
	}

	detail := models.SessionEndDetail{
		SessionID: req.SessionID,
		Subject:   req.Subject,
		Stream:    req.Stream,
		Division:  req.Division,
		Present:   summary.Present,
		Absent:    summary.Absent,
	}
	if err := models.LogActivity(db.DB, "teacher", teacherID, detail); err != nil {
		log.Printf("ERROR: failed to log session end: %v", err)
	}

	h.archiveSession(teacherID, teacherName, meta, req.Marks, summary, now)

	h.notifier.Broadcast(notify.NewAttendanceMarked(teacherID, teacherName, req.Subject,
		req.Year, req.Stream, req.Division, summary.Present, summary.Absent))

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"summary": summary,
	})
}

// archiveSession renders the finalized session as a workbook and stores it in
// the backup history for later download.
func (h *TeacherHandler) archiveSession(teacherID, teacherName string, meta models.SessionMeta,
	marks []models.Mark, summary models.SessionSummary, at time.Time) {

	students, err := models.GetMappedStudents(teacherID)
	if err != nil {
		log.Printf("ERROR: failed to load roster for backup of %s: %v", meta.SessionID, err)
		return
	}
	byID := make(map[string]models.Student, len(students))
	for _, s := range students {
		byID[s.StudentID] = s
	}

	records := make([]models.BackupRecord, 0, len(marks))
	for _, m := range marks {
		rec := models.BackupRecord{
			StudentID: m.StudentID,
			Status:    models.NormalizeMarkStatus(m.Status),
		}
		if s, ok := byID[m.StudentID]; ok {
			rec.Name = s.StudentName
			rec.RollNo = s.RollNo
		}
		records = append(records, rec)
	}

	buf, err := excel.SessionWorkbook(excel.SessionReport{
		CollegeName: h.cfg.CollegeName,
		SessionID:   meta.SessionID,
		Subject:     meta.Subject,
		Year:        meta.Year,
		Semester:    meta.Semester,
		Stream:      meta.Stream,
		Division:    meta.Division,
		TeacherName: teacherName,
		StartedAt:   at,
		Present:     summary.Present,
		Absent:      summary.Absent,
		Records:     records,
	})
	if err != nil {
		log.Printf("ERROR: failed to build session workbook for %s: %v", meta.SessionID, err)
		return
	}

	filename := util.SessionReportFilename(at, meta.Subject)
	if err := models.SaveAttendanceBackup(filename, meta, records, buf.Bytes()); err != nil {
		log.Printf("ERROR: failed to save session backup for %s: %v", meta.SessionID, err)
	}
}

type manualOverrideRequest struct {
	StudentID string `json:"studentId"`
	Status    string `json:"status"`
	Reason    string `json:"reason"`
}

// ManualOverride records an out-of-session attendance correction.
// POST /api/teacher/manual-override
func (h *TeacherHandler) ManualOverride(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req manualOverrideRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := models.SaveManualOverride(middleware.GetUserID(r), req.StudentID,
		req.Status, req.Reason); err != nil {
		modelError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{"success": true})
}

// Activity returns this teacher's recent actions.
// GET /api/teacher/activity
func (h *TeacherHandler) Activity(w http.ResponseWriter, r *http.Request) {
	entries, err := models.GetActorActivity("teacher", middleware.GetUserID(r), teacherActivityLimit)
	if err != nil {
		modelError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{"activity": entries})
}

// History lists this teacher's archived session workbooks.
// GET /api/teacher/history
func (h *TeacherHandler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := models.GetBackupHistory(middleware.GetUserID(r), teacherHistoryLimit)
	if err != nil {
		modelError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{"history": entries})
}

// DownloadBackup streams one of this teacher's archived workbooks.
// GET /api/teacher/history/download?id=...
func (h *TeacherHandler) DownloadBackup(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "Invalid backup id")
		return
	}
	filename, content, err := models.GetBackupFile(id, middleware.GetUserID(r))
	if err != nil {
		modelError(w, err)
		return
	}
	writeWorkbook(w, filename, content)
}

// Defaulters returns the defaulter list limited to this teacher's own stream
// and subject.
// GET /api/teacher/defaulters
func (h *TeacherHandler) Defaulters(w http.ResponseWriter, r *http.Request) {
	teacher, err := models.GetTeacher(middleware.GetUserID(r))
	if err != nil {
		modelError(w, err)
		return
	}

	filters, overall := defaulterFilters(r)
	filters.Stream = teacher.Stream
	filters.Subject = teacher.Subject

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

// DownloadDefaulters streams the defaulter workbook for this teacher's class.
// GET /api/teacher/defaulters/download
func (h *TeacherHandler) DownloadDefaulters(w http.ResponseWriter, r *http.Request) {
	teacherID := middleware.GetUserID(r)
	teacher, err := models.GetTeacher(teacherID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			jsonError(w, http.StatusForbidden, "Teacher profile not found")
			return
		}
		modelError(w, err)
		return
	}

	serveDefaulterDownload(w, r, h.cfg, h.notifier, teacherID, "teacher",
		defaulterScope{Stream: teacher.Stream, Subject: teacher.Subject})
}

// LiveUpdates subscribes the teacher to the event stream.
// GET /api/teacher/live-updates
func (h *TeacherHandler) LiveUpdates(w http.ResponseWriter, r *http.Request) {
	subscribeEvents(w, r, h.notifier)
}
