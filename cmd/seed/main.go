// Seeder command for populating a demo roster for local testing.
//
// SAFETY: This command ONLY runs when:
//   - APP_ENV=development
//   - --confirm flag is provided
//
// Usage:
//
//	APP_ENV=development go run cmd/seed/main.go --students 30 --teachers 4 --confirm
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"markin/internal/config"
	"markin/internal/db"
	"markin/internal/models"

	"github.com/joho/godotenv"
)

func main() {
	studentCount := flag.Int("students", 30, "Number of students to seed")
	teacherCount := flag.Int("teachers", 4, "Number of teachers to seed")
	confirm := flag.Bool("confirm", false, "Confirm seeding (required)")
	flag.Parse()

	if os.Getenv("APP_ENV") != "development" {
		log.Fatalf("ERROR: Seeder can only run in development. Set APP_ENV=development and try again.")
	}
	if !*confirm {
		log.Fatalf("ERROR: --confirm flag is required to run seeder.")
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, using environment variables")
	}

	cfg := config.Load()
	if err := db.Connect(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Do NOT run migrations - assume DB is already set up

	streams := []string{"BCOM", "BMS"}
	divisions := []string{"A", "B"}
	subjects := []string{"Accountancy", "Economics", "Business Law", "Statistics"}

	students := make([]models.Student, 0, *studentCount)
	for i := 0; i < *studentCount; i++ {
		students = append(students, models.Student{
			StudentID:   fmt.Sprintf("STU%04d", i+1),
			StudentName: fmt.Sprintf("Demo Student %d", i+1),
			RollNo:      fmt.Sprintf("%d", i+1),
			Year:        "FY",
			Stream:      streams[i%len(streams)],
			Division:    divisions[i%len(divisions)],
		})
	}

	teachers := make([]models.Teacher, 0, *teacherCount)
	for i := 0; i < *teacherCount; i++ {
		teachers = append(teachers, models.Teacher{
			TeacherID: fmt.Sprintf("TCH%03d", i+1),
			Name:      fmt.Sprintf("Demo Teacher %d", i+1),
			Subject:   subjects[i%len(subjects)],
			Year:      "FY",
			Stream:    streams[i%len(streams)],
		})
	}

	inserted, err := models.UpsertStudents(students, "seeder")
	if err != nil {
		log.Fatalf("Failed to seed students: %v", err)
	}
	log.Printf("SEEDER: inserted %d students", inserted)

	inserted, err = models.UpsertTeachers(teachers, "seeder")
	if err != nil {
		log.Fatalf("Failed to seed teachers: %v", err)
	}
	log.Printf("SEEDER: inserted %d teachers", inserted)

	mapped, err := models.RecomputeMappings("seeder")
	if err != nil {
		log.Fatalf("Failed to build mappings: %v", err)
	}
	log.Printf("SEEDER: mapped %d teacher/student pairs", mapped)
}
