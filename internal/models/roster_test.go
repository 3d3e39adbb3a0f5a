package models

import (
	"reflect"
	"testing"
)

func TestComputeMappings(t *testing.T) {
	students := []Student{
		{StudentID: "STU0002", Year: "FY", Stream: "BCOM", Division: "B"},
		{StudentID: "STU0001", Year: "FY", Stream: "BCOM", Division: "A"},
		{StudentID: "STU0003", Year: "SY", Stream: "BCOM", Division: "A"},
		{StudentID: "STU0004", Year: "FY", Stream: "BMS", Division: "A"},
	}
	teachers := []Teacher{
		{TeacherID: "TCH002", Subject: "Economics", Year: "FY", Stream: "BMS"},
		{TeacherID: "TCH001", Subject: "Accountancy", Year: "FY", Stream: "BCOM"},
	}

	got := ComputeMappings(students, teachers)
	want := []Mapping{
		{TeacherID: "TCH001", StudentID: "STU0001"},
		{TeacherID: "TCH001", StudentID: "STU0002"},
		{TeacherID: "TCH002", StudentID: "STU0004"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ComputeMappings() = %v, want %v", got, want)
	}
}

func TestComputeMappingsCrossesDivisions(t *testing.T) {
	// Divisions do not partition the mapping; a teacher covers every
	// division of their year+stream.
	students := []Student{
		{StudentID: "STU0001", Year: "FY", Stream: "BCOM", Division: "A"},
		{StudentID: "STU0002", Year: "FY", Stream: "BCOM", Division: "B"},
		{StudentID: "STU0003", Year: "FY", Stream: "BCOM", Division: "C"},
	}
	teachers := []Teacher{
		{TeacherID: "TCH001", Year: "FY", Stream: "BCOM"},
	}

	if got := ComputeMappings(students, teachers); len(got) != 3 {
		t.Errorf("ComputeMappings() produced %d mappings, want 3", len(got))
	}
}

func TestComputeMappingsDeduplicates(t *testing.T) {
	students := []Student{
		{StudentID: "STU0001", Year: "FY", Stream: "BCOM", Division: "A"},
		{StudentID: "STU0001", Year: "FY", Stream: "BCOM", Division: "A"},
	}
	teachers := []Teacher{
		{TeacherID: "TCH001", Year: "FY", Stream: "BCOM"},
	}

	if got := ComputeMappings(students, teachers); len(got) != 1 {
		t.Errorf("ComputeMappings() produced %d mappings, want 1 after dedup", len(got))
	}
}

func TestComputeMappingsIdempotent(t *testing.T) {
	students := []Student{
		{StudentID: "STU0001", Year: "FY", Stream: "BCOM", Division: "A"},
		{StudentID: "STU0002", Year: "SY", Stream: "BMS", Division: "B"},
	}
	teachers := []Teacher{
		{TeacherID: "TCH001", Year: "FY", Stream: "BCOM"},
		{TeacherID: "TCH002", Year: "SY", Stream: "BMS"},
	}

	first := ComputeMappings(students, teachers)
	second := ComputeMappings(students, teachers)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("ComputeMappings() is not deterministic: %v vs %v", first, second)
	}
}

func TestComputeMappingsNoMatch(t *testing.T) {
	students := []Student{{StudentID: "STU0001", Year: "FY", Stream: "BCOM"}}
	teachers := []Teacher{{TeacherID: "TCH001", Year: "SY", Stream: "BCOM"}}

	if got := ComputeMappings(students, teachers); len(got) != 0 {
		t.Errorf("ComputeMappings() = %v, want empty for mismatched year", got)
	}
}
