package handlers

import (
	"net/http"

	"markin/internal/config"
	"markin/internal/middleware"
	"markin/internal/models"
	"markin/internal/notify"
)

const studentActivityLimit = 20

type StudentHandler struct {
	cfg      *config.Config
	notifier *notify.Notifier
}

func NewStudentHandler(cfg *config.Config, notifier *notify.Notifier) *StudentHandler {
	return &StudentHandler{cfg: cfg, notifier: notifier}
}

// Dashboard returns the student's profile, attendance totals, defaulter
// status and six-month breakdown in one payload.
// GET /api/student/dashboard
func (h *StudentHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	studentID := middleware.GetUserID(r)

	student, err := models.GetStudent(studentID)
	if err != nil {
		modelError(w, err)
		return
	}
	stats, err := models.GetStudentStats(studentID)
	if err != nil {
		modelError(w, err)
		return
	}
	defaulterStatus, err := models.GetStudentDefaulterStatus(studentID)
	if err != nil {
		modelError(w, err)
		return
	}
	monthly, err := models.GetStudentMonthlyBreakdown(studentID)
	if err != nil {
		modelError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"student":          student,
		"stats":            stats,
		"defaulterStatus":  defaulterStatus,
		"monthlyBreakdown": monthly,
	})
}

// Activity returns attendance actions that touched this student.
// GET /api/student/activity
func (h *StudentHandler) Activity(w http.ResponseWriter, r *http.Request) {
	entries, err := models.GetActorActivity("student", middleware.GetUserID(r), studentActivityLimit)
	if err != nil {
		modelError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{"activity": entries})
}

// LiveUpdates subscribes the student to the event stream.
// GET /api/student/live-updates
func (h *StudentHandler) LiveUpdates(w http.ResponseWriter, r *http.Request) {
	subscribeEvents(w, r, h.notifier)
}
