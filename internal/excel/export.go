package excel

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"markin/internal/models"
)

// ContentType is the MIME type for generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func headerStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E0E0E0"}},
	})
}

func titleStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
}

// DefaulterWorkbookOptions selects the column layout of a defaulter export.
type DefaulterWorkbookOptions struct {
	Overall   bool
	Threshold float64
}

// DefaulterWorkbook renders a defaulter list as a titled, headered sheet.
// Monthly mode carries month/year columns; overall mode does not. Purely
// presentational.
func DefaulterWorkbook(defaulters []models.DefaulterRow, opts DefaulterWorkbookOptions) (*bytes.Buffer, error) {
	const sheet = "Defaulter List"

	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName("Sheet1", sheet)

	headers := []interface{}{
		"Student ID", "Name", "Roll No", "Year", "Stream", "Division", "Subject",
	}
	if !opts.Overall {
		headers = append(headers, "Month", "Year")
	}
	headers = append(headers, "Total Lectures", "Attended", "Attendance %")

	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return nil, fmt.Errorf("failed to compute column name: %w", err)
	}

	if err := f.MergeCell(sheet, "A1", lastCol+"1"); err != nil {
		return nil, fmt.Errorf("failed to merge title cells: %w", err)
	}
	title := fmt.Sprintf("Defaulter List - Students with Attendance Below %g%%", opts.Threshold)
	if err := f.SetCellValue(sheet, "A1", title); err != nil {
		return nil, fmt.Errorf("failed to set title: %w", err)
	}
	if style, err := titleStyle(f); err == nil {
		f.SetCellStyle(sheet, "A1", lastCol+"1", style)
	}
	f.SetRowHeight(sheet, 1, 25)

	if err := f.SetSheetRow(sheet, "A2", &headers); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}
	if style, err := headerStyle(f); err == nil {
		f.SetCellStyle(sheet, "A2", lastCol+"2", style)
	}

	for i, d := range defaulters {
		row := []interface{}{
			d.StudentID, d.StudentName, d.RollNo, d.Year, d.Stream, d.Division, d.Subject,
		}
		if !opts.Overall {
			monthLabel := d.MonthName
			if monthLabel == "" {
				monthLabel = fmt.Sprintf("%d", d.Month)
			}
			row = append(row, monthLabel, d.YearValue)
		}
		row = append(row, d.TotalLectures, d.AttendedLectures, d.AttendancePercentage)

		cell, err := excelize.CoordinatesToCellName(1, i+3)
		if err != nil {
			return nil, fmt.Errorf("failed to compute cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write defaulter row: %w", err)
		}
	}

	f.SetColWidth(sheet, "A", lastCol, 15)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf, nil
}

// SessionReport describes one finalized session for its archived workbook.
type SessionReport struct {
	CollegeName string
	SessionID   string
	Subject     string
	Year        string
	Semester    string
	Stream      string
	Division    string
	TeacherName string
	StartedAt   time.Time
	Present     int
	Absent      int
	Records     []models.BackupRecord
}

// SessionWorkbook renders the per-session attendance report stored as a
// backup and offered for download: college header, session metadata block,
// then one row per student.
func SessionWorkbook(report SessionReport) (*bytes.Buffer, error) {
	const sheet = "Attendance"

	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName("Sheet1", sheet)

	if err := f.MergeCell(sheet, "A1", "D1"); err != nil {
		return nil, fmt.Errorf("failed to merge header cells: %w", err)
	}
	if err := f.SetCellValue(sheet, "A1", report.CollegeName); err != nil {
		return nil, fmt.Errorf("failed to set college header: %w", err)
	}
	if style, err := titleStyle(f); err == nil {
		f.SetCellStyle(sheet, "A1", "D1", style)
	}

	f.MergeCell(sheet, "A3", "D3")
	f.SetCellValue(sheet, "A3", "Attendance Report")
	if style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err == nil {
		f.SetCellStyle(sheet, "A3", "D3", style)
	}

	meta := [][2]interface{}{
		{"Session ID:", report.SessionID},
		{"Subject:", report.Subject},
		{"Year:", report.Year},
		{"Semester:", report.Semester},
		{"Stream:", report.Stream},
		{"Division:", report.Division},
		{"Teacher:", report.TeacherName},
		{"Date & Time:", report.StartedAt.Format("02/01/2006 15:04:05")},
		{"Present:", report.Present},
		{"Absent:", report.Absent},
	}
	for i, pair := range meta {
		rowNum := 5 + i
		f.SetCellValue(sheet, fmt.Sprintf("A%d", rowNum), pair[0])
		f.SetCellValue(sheet, fmt.Sprintf("B%d", rowNum), pair[1])
	}

	headerRow := 5 + len(meta) + 1
	header := []interface{}{"Roll No", "Student ID", "Name", "Status"}
	cell, _ := excelize.CoordinatesToCellName(1, headerRow)
	if err := f.SetSheetRow(sheet, cell, &header); err != nil {
		return nil, fmt.Errorf("failed to write student header: %w", err)
	}
	if style, err := headerStyle(f); err == nil {
		f.SetCellStyle(sheet, fmt.Sprintf("A%d", headerRow), fmt.Sprintf("D%d", headerRow), style)
	}

	for i, rec := range report.Records {
		status := "Absent"
		if rec.Status == models.StatusPresent {
			status = "Present"
		}
		row := []interface{}{rec.RollNo, rec.StudentID, rec.Name, status}
		cell, err := excelize.CoordinatesToCellName(1, headerRow+1+i)
		if err != nil {
			return nil, fmt.Errorf("failed to compute cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write student row: %w", err)
		}
	}

	f.SetColWidth(sheet, "A", "A", 15)
	f.SetColWidth(sheet, "B", "B", 18)
	f.SetColWidth(sheet, "C", "C", 35)
	f.SetColWidth(sheet, "D", "D", 15)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf, nil
}

// RosterWorkbook exports students or teachers with the import template's
// exact headings, so a downloaded roster round-trips through import.
func RosterWorkbook(students []models.Student, teachers []models.Teacher) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	var sheet string
	var headers []interface{}
	if teachers != nil {
		sheet = "Teachers"
		headers = []interface{}{"Teacher_ID", "Name", "Subject", "Year", "Stream"}
	} else {
		sheet = "Students"
		headers = []interface{}{"Student_ID", "Name", "Roll_No", "Year", "Stream", "Division"}
	}
	f.SetSheetName("Sheet1", sheet)

	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return nil, fmt.Errorf("failed to compute column name: %w", err)
	}
	if style, err := headerStyle(f); err == nil {
		f.SetCellStyle(sheet, "A1", lastCol+"1", style)
	}

	if teachers != nil {
		for i, t := range teachers {
			row := []interface{}{t.TeacherID, t.Name, t.Subject, t.Year, t.Stream}
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return nil, fmt.Errorf("failed to compute cell name: %w", err)
			}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return nil, fmt.Errorf("failed to write teacher row: %w", err)
			}
		}
	} else {
		for i, s := range students {
			row := []interface{}{s.StudentID, s.StudentName, s.RollNo, s.Year, s.Stream, s.Division}
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return nil, fmt.Errorf("failed to compute cell name: %w", err)
			}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return nil, fmt.Errorf("failed to write student row: %w", err)
			}
		}
	}

	f.SetColWidth(sheet, "A", lastCol, 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf, nil
}
