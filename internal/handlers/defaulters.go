package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"markin/internal/config"
	"markin/internal/db"
	"markin/internal/excel"
	"markin/internal/models"
	"markin/internal/notify"
)

// defaulterScope pins filters a caller may not widen. Teachers only see their
// own stream and subject; admins get the zero scope.
type defaulterScope struct {
	Stream  string
	Subject string
}

func defaulterFilters(r *http.Request) (models.DefaulterFilters, bool) {
	q := r.URL.Query()
	filters := models.DefaulterFilters{
		Stream:   q.Get("stream"),
		Division: q.Get("division"),
		Subject:  q.Get("subject"),
	}
	if v, err := strconv.Atoi(q.Get("month")); err == nil {
		filters.Month = v
	}
	if v, err := strconv.ParseFloat(q.Get("threshold"), 64); err == nil {
		filters.Threshold = v
	}
	overall := q.Get("overall") == "true"
	// Overall mode filters by the roster class year (FY/SY/TY); monthly mode
	// by the calendar year of the summaries.
	if overall {
		filters.AcademicYear = q.Get("year")
	} else if v, err := strconv.Atoi(q.Get("year")); err == nil {
		filters.Year = v
	}
	return filters, overall
}

func listDefaulters(filters models.DefaulterFilters, overall bool) ([]models.DefaulterRow, error) {
	if overall {
		return models.ListOverallDefaulters(filters)
	}
	return models.ListDefaulters(filters)
}

func defaulterFilename(filters models.DefaulterFilters, overall bool) string {
	if overall {
		return "defaulter_list_overall.xlsx"
	}
	if filters.Month > 0 && filters.Year > 0 {
		return fmt.Sprintf("defaulter_list_%s_%d.xlsx", models.MonthName(filters.Month), filters.Year)
	}
	return "defaulter_list.xlsx"
}

// serveDefaulterDownload builds and streams the defaulter workbook, then
// records the generation: history rows, an audit entry, and a private
// defaulter_generated event. Bookkeeping failures are logged, never fatal to
// the download.
func serveDefaulterDownload(w http.ResponseWriter, r *http.Request, cfg *config.Config,
	notifier *notify.Notifier, actorID, actorRole string, scope defaulterScope) {

	filters, overall := defaulterFilters(r)
	if scope.Stream != "" {
		filters.Stream = scope.Stream
	}
	if scope.Subject != "" {
		filters.Subject = scope.Subject
	}
	if filters.Threshold <= 0 {
		filters.Threshold = cfg.DefaulterThreshold
	}

	rows, err := listDefaulters(filters, overall)
	if err != nil {
		modelError(w, err)
		return
	}

	buf, err := excel.DefaulterWorkbook(rows, excel.DefaulterWorkbookOptions{
		Overall:   overall,
		Threshold: filters.Threshold,
	})
	if err != nil {
		modelError(w, err)
		return
	}

	if err := models.SaveDefaulterHistory(rows, actorID, actorRole); err != nil {
		log.Printf("ERROR: failed to save defaulter history: %v", err)
	}
	detail := models.DefaulterDownloadDetail{
		Count:     len(rows),
		Threshold: filters.Threshold,
		Filters:   filters,
	}
	if err := models.LogActivity(db.DB, actorRole, actorID, detail); err != nil {
		log.Printf("ERROR: failed to log defaulter download: %v", err)
	}
	notifier.Broadcast(notify.NewDefaulterGenerated(actorID, actorRole, len(rows), filters.Threshold))

	writeWorkbook(w, defaulterFilename(filters, overall), buf.Bytes())
}
