package excel

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"

	"markin/internal/models"
)

func TestRosterRoundTripStudents(t *testing.T) {
	students := []models.Student{
		{StudentID: "STU0001", StudentName: "Asha Patil", RollNo: "1", Year: "FY", Stream: "BCOM", Division: "A"},
		{StudentID: "STU0002", StudentName: "Rohan Shah", RollNo: "2", Year: "FY", Stream: "BCOM", Division: "B"},
	}

	buf, err := RosterWorkbook(students, nil)
	if err != nil {
		t.Fatalf("RosterWorkbook() failed: %v", err)
	}

	parsed, err := ParseStudents(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ParseStudents() failed: %v", err)
	}
	if !reflect.DeepEqual(parsed, students) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", parsed, students)
	}
}

func TestRosterRoundTripTeachers(t *testing.T) {
	teachers := []models.Teacher{
		{TeacherID: "TCH001", Name: "Prof. Rao", Subject: "Economics", Year: "FY", Stream: "BCOM"},
	}

	buf, err := RosterWorkbook(nil, teachers)
	if err != nil {
		t.Fatalf("RosterWorkbook() failed: %v", err)
	}

	parsed, err := ParseTeachers(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ParseTeachers() failed: %v", err)
	}
	if !reflect.DeepEqual(parsed, teachers) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", parsed, teachers)
	}
}

func TestParseStudentsAcceptsHeaderAliases(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	headers := []interface{}{"Enrollment ID", "Full Name", "Roll Number", "Academic Year", "Course Stream", "Class Division"}
	if err := f.SetSheetRow("Sheet1", "A1", &headers); err != nil {
		t.Fatalf("failed to write headers: %v", err)
	}
	row := []interface{}{"STU0009", "Meera Joshi", "9", "SY", "BMS", "A"}
	if err := f.SetSheetRow("Sheet1", "A2", &row); err != nil {
		t.Fatalf("failed to write row: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("failed to serialize workbook: %v", err)
	}

	parsed, err := ParseStudents(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ParseStudents() failed: %v", err)
	}
	want := []models.Student{
		{StudentID: "STU0009", StudentName: "Meera Joshi", RollNo: "9", Year: "SY", Stream: "BMS", Division: "A"},
	}
	if !reflect.DeepEqual(parsed, want) {
		t.Errorf("ParseStudents() = %+v, want %+v", parsed, want)
	}
}

func TestParseStudentsDropsRowsWithoutID(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	headers := []interface{}{"Student_ID", "Name"}
	if err := f.SetSheetRow("Sheet1", "A1", &headers); err != nil {
		t.Fatalf("failed to write headers: %v", err)
	}
	rows := [][]interface{}{
		{"STU0001", "Asha Patil"},
		{"", "No ID"},
		{"STU0002", "Rohan Shah"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		r := row
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatalf("failed to write row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("failed to serialize workbook: %v", err)
	}

	parsed, err := ParseStudents(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ParseStudents() failed: %v", err)
	}
	if len(parsed) != 2 {
		t.Errorf("ParseStudents() kept %d rows, want 2", len(parsed))
	}
}

func TestDefaulterWorkbookReadBack(t *testing.T) {
	rows := []models.DefaulterRow{
		{
			StudentID: "STU0001", StudentName: "Asha Patil", RollNo: "1",
			Year: "FY", Stream: "BCOM", Division: "A", Subject: "Economics",
			Month: 3, MonthName: "March", YearValue: 2026,
			TotalLectures: 20, AttendedLectures: 10, AttendancePercentage: 50,
		},
	}

	buf, err := DefaulterWorkbook(rows, DefaulterWorkbookOptions{Threshold: 75})
	if err != nil {
		t.Fatalf("DefaulterWorkbook() failed: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("failed to reopen workbook: %v", err)
	}
	defer f.Close()

	title, err := f.GetCellValue("Defaulter List", "A1")
	if err != nil {
		t.Fatalf("failed to read title: %v", err)
	}
	if title != "Defaulter List - Students with Attendance Below 75%" {
		t.Errorf("title = %q", title)
	}

	id, _ := f.GetCellValue("Defaulter List", "A3")
	if id != "STU0001" {
		t.Errorf("first data row student id = %q, want STU0001", id)
	}
	monthCell, _ := f.GetCellValue("Defaulter List", "H3")
	if monthCell != "March" {
		t.Errorf("month cell = %q, want March", monthCell)
	}
}

func TestDefaulterWorkbookOverallOmitsMonthColumns(t *testing.T) {
	buf, err := DefaulterWorkbook(nil, DefaulterWorkbookOptions{Overall: true, Threshold: 75})
	if err != nil {
		t.Fatalf("DefaulterWorkbook() failed: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("failed to reopen workbook: %v", err)
	}
	defer f.Close()

	h, _ := f.GetCellValue("Defaulter List", "H2")
	if h != "Total Lectures" {
		t.Errorf("overall mode column H = %q, want Total Lectures", h)
	}
}
