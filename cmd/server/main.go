package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"markin/internal/config"
	"markin/internal/db"
	"markin/internal/handlers"
	"markin/internal/middleware"
	"markin/internal/models"
	"markin/internal/notify"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, using environment variables")
	}

	cfg := config.Load()

	// Connect to database
	if err := db.Connect(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed admin user if it doesn't exist
	if err := seedAdminUser(cfg); err != nil {
		log.Printf("WARNING: Failed to seed admin user: %v", err)
	}

	notifier := notify.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	notifier.StartSweeper(ctx)

	authHandler := handlers.NewAuthHandler(cfg)
	adminHandler := handlers.NewAdminHandler(cfg, notifier)
	teacherHandler := handlers.NewTeacherHandler(cfg, notifier)
	studentHandler := handlers.NewStudentHandler(cfg, notifier)

	adminOnly := middleware.RequireRole([]string{"admin"}, cfg.SessionSecret)
	teacherOnly := middleware.RequireRole([]string{"teacher"}, cfg.SessionSecret)
	studentOnly := middleware.RequireRole([]string{"student"}, cfg.SessionSecret)
	anyRole := middleware.RequireRole([]string{"admin", "teacher", "student"}, cfg.SessionSecret)

	mux := http.NewServeMux()

	logged := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			cfg.Debugf("REQUEST: %s %s", r.Method, r.URL.Path)
			next(w, r)
		}
	}

	register := func(path string, handler http.HandlerFunc) {
		mux.HandleFunc(path, logged(handler))
		cfg.Debugf("ROUTE REGISTERED: %s", path)
	}

	// Static files
	workDir, _ := os.Getwd()
	staticDir := filepath.Join(workDir, "web", "static")
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))

	// Auth
	register("/api/auth/login", authHandler.Login)
	register("/api/auth/logout", authHandler.Logout)
	register("/api/auth/me", anyRole(authHandler.Me))

	// Admin
	register("/api/admin/import/upload", adminOnly(adminHandler.UploadImport))
	register("/api/admin/import/preview", adminOnly(adminHandler.PreviewImport))
	register("/api/admin/import/confirm", adminOnly(adminHandler.ConfirmImport))
	register("/api/admin/auto-map", adminOnly(adminHandler.AutoMap))
	register("/api/admin/dashboard", adminOnly(adminHandler.Dashboard))
	register("/api/admin/activity", adminOnly(adminHandler.Activity))
	register("/api/admin/teachers-info", adminOnly(adminHandler.TeachersInfo))
	register("/api/admin/students-info", adminOnly(adminHandler.StudentsInfo))
	register("/api/admin/roster/export", adminOnly(adminHandler.ExportRoster))
	register("/api/admin/defaulters", adminOnly(adminHandler.Defaulters))
	register("/api/admin/defaulters/download", adminOnly(adminHandler.DownloadDefaulters))
	register("/api/admin/history", adminOnly(adminHandler.History))
	register("/api/admin/history/download", adminOnly(adminHandler.DownloadBackup))
	register("/api/admin/history/clear", adminOnly(adminHandler.ClearHistory))
	register("/api/admin/delete-all-data", adminOnly(adminHandler.DeleteAllData))
	register("/api/admin/live-updates", adminOnly(adminHandler.LiveUpdates))

	// Teacher
	register("/api/teacher/dashboard", teacherOnly(teacherHandler.Dashboard))
	register("/api/teacher/students", teacherOnly(teacherHandler.Students))
	register("/api/teacher/streams", teacherOnly(teacherHandler.Streams))
	register("/api/teacher/divisions", teacherOnly(teacherHandler.Divisions))
	register("/api/teacher/subjects", teacherOnly(teacherHandler.Subjects))
	register("/api/teacher/attendance/start", teacherOnly(teacherHandler.StartAttendance))
	register("/api/teacher/attendance/end", teacherOnly(teacherHandler.EndAttendance))
	register("/api/teacher/manual-override", teacherOnly(teacherHandler.ManualOverride))
	register("/api/teacher/activity", teacherOnly(teacherHandler.Activity))
	register("/api/teacher/history", teacherOnly(teacherHandler.History))
	register("/api/teacher/history/download", teacherOnly(teacherHandler.DownloadBackup))
	register("/api/teacher/defaulters", teacherOnly(teacherHandler.Defaulters))
	register("/api/teacher/defaulters/download", teacherOnly(teacherHandler.DownloadDefaulters))
	register("/api/teacher/live-updates", teacherOnly(teacherHandler.LiveUpdates))

	// Student
	register("/api/student/dashboard", studentOnly(studentHandler.Dashboard))
	register("/api/student/activity", studentOnly(studentHandler.Activity))
	register("/api/student/live-updates", studentOnly(studentHandler.LiveUpdates))

	port := cfg.Port
	if port == "" {
		port = "3000"
	}

	log.Printf("Server starting on http://localhost:%s", port)
	log.Printf("Default admin login: %s / %s", cfg.AdminUser, cfg.AdminPassword)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

func seedAdminUser(cfg *config.Config) error {
	_, err := models.GetUserByEmail(cfg.AdminUser)
	if err == nil {
		// User already exists
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = models.CreateUser(cfg.AdminUser, string(hashedPassword), "admin")
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	log.Printf("Created default admin user: %s", cfg.AdminUser)
	return nil
}
