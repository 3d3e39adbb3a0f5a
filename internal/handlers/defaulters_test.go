package handlers

import (
	"net/http/httptest"
	"testing"

	"markin/internal/models"
)

func TestDefaulterFiltersAcademicYearInOverallMode(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		wantOverall bool
		want        models.DefaulterFilters
	}{
		{
			name:        "overall keeps class year as string",
			url:         "/api/admin/defaulters?overall=true&year=SY",
			wantOverall: true,
			want:        models.DefaulterFilters{AcademicYear: "SY"},
		},
		{
			name:        "overall with stream and subject",
			url:         "/api/admin/defaulters/download?overall=true&year=FY&stream=BCOM&subject=Economics",
			wantOverall: true,
			want:        models.DefaulterFilters{AcademicYear: "FY", Stream: "BCOM", Subject: "Economics"},
		},
		{
			name: "monthly parses calendar year",
			url:  "/api/admin/defaulters?month=3&year=2026",
			want: models.DefaulterFilters{Month: 3, Year: 2026},
		},
		{
			name: "monthly ignores non-numeric year",
			url:  "/api/admin/defaulters?month=3&year=SY",
			want: models.DefaulterFilters{Month: 3},
		},
		{
			name:        "overall without year leaves both empty",
			url:         "/api/admin/defaulters?overall=true&division=A",
			wantOverall: true,
			want:        models.DefaulterFilters{Division: "A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.url, nil)
			got, overall := defaulterFilters(r)
			if overall != tt.wantOverall {
				t.Fatalf("overall = %v, want %v", overall, tt.wantOverall)
			}
			if got != tt.want {
				t.Errorf("filters = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDefaulterFilename(t *testing.T) {
	tests := []struct {
		name    string
		filters models.DefaulterFilters
		overall bool
		want    string
	}{
		{"overall", models.DefaulterFilters{AcademicYear: "SY"}, true, "defaulter_list_overall.xlsx"},
		{"monthly", models.DefaulterFilters{Month: 3, Year: 2026}, false, "defaulter_list_March_2026.xlsx"},
		{"unscoped", models.DefaulterFilters{}, false, "defaulter_list.xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := defaulterFilename(tt.filters, tt.overall); got != tt.want {
				t.Errorf("defaulterFilename() = %q, want %q", got, tt.want)
			}
		})
	}
}
