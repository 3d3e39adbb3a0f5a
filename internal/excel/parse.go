// Package excel builds and parses the workbook formats the application
// exchanges: roster imports/exports, per-session attendance reports, and
// defaulter lists.
package excel

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"markin/internal/models"
)

// Column alias sets accepted on import, matching the headings the templates
// and older spreadsheets have used.
var studentColumns = map[string][]string{
	"studentId":   {"student_id", "id", "enrollment_id"},
	"studentName": {"student_name", "name", "full_name"},
	"rollNo":      {"roll_no", "roll", "roll_number"},
	"year":        {"year", "academic_year"},
	"stream":      {"stream", "course_stream"},
	"division":    {"division", "class_division"},
}

var teacherColumns = map[string][]string{
	"teacherId": {"teacher_id", "id"},
	"name":      {"name", "teacher_name", "full_name"},
	"subject":   {"subject", "course"},
	"year":      {"year", "academic_year"},
	"stream":    {"stream", "course_stream"},
}

func normalizeHeader(header string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(header)), " ", "_")
}

// parseSheet reads the first sheet into rows keyed by the target column
// names, resolving header aliases. Cells under unrecognized headers are
// ignored; missing columns come back empty.
func parseSheet(r io.Reader, columnMap map[string][]string) ([]map[string]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	// Map each target key to its column index via the alias list.
	headerIndex := make(map[string]int)
	for i, cell := range rows[0] {
		headerIndex[normalizeHeader(cell)] = i
	}

	columnIndex := make(map[string]int)
	for target, aliases := range columnMap {
		columnIndex[target] = -1
		for _, alias := range aliases {
			if idx, ok := headerIndex[alias]; ok {
				columnIndex[target] = idx
				break
			}
		}
	}

	var parsed []map[string]string
	for _, row := range rows[1:] {
		mapped := make(map[string]string, len(columnIndex))
		for target, idx := range columnIndex {
			if idx >= 0 && idx < len(row) {
				mapped[target] = strings.TrimSpace(row[idx])
			} else {
				mapped[target] = ""
			}
		}
		parsed = append(parsed, mapped)
	}
	return parsed, nil
}

// ParseStudents reads a student roster import. Rows without a student id are
// dropped.
func ParseStudents(r io.Reader) ([]models.Student, error) {
	rows, err := parseSheet(r, studentColumns)
	if err != nil {
		return nil, err
	}

	var students []models.Student
	for _, row := range rows {
		if row["studentId"] == "" {
			continue
		}
		students = append(students, models.Student{
			StudentID:   row["studentId"],
			StudentName: row["studentName"],
			RollNo:      row["rollNo"],
			Year:        row["year"],
			Stream:      row["stream"],
			Division:    row["division"],
		})
	}
	return students, nil
}

// ParseTeachers reads a teacher roster import. Rows without a teacher id are
// dropped.
func ParseTeachers(r io.Reader) ([]models.Teacher, error) {
	rows, err := parseSheet(r, teacherColumns)
	if err != nil {
		return nil, err
	}

	var teachers []models.Teacher
	for _, row := range rows {
		if row["teacherId"] == "" {
			continue
		}
		teachers = append(teachers, models.Teacher{
			TeacherID: row["teacherId"],
			Name:      row["name"],
			Subject:   row["subject"],
			Year:      row["year"],
			Stream:    row["stream"],
		})
	}
	return teachers, nil
}
