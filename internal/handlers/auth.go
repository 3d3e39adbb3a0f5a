package handlers

import (
	"errors"
	"net/http"

	"markin/internal/config"
	"markin/internal/middleware"
	"markin/internal/models"

	"golang.org/x/crypto/bcrypt"
)

type AuthHandler struct {
	cfg *config.Config
}

func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{cfg: cfg}
}

type loginRequest struct {
	Role     string `json:"role"`
	UserID   string `json:"userId"`
	Password string `json:"password"`
}

// Login authenticates by role. Admins present the configured credentials;
// teachers and students log in with their roster id.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Role == "" || req.UserID == "" {
		jsonError(w, http.StatusBadRequest, "Role and user ID are required")
		return
	}

	var userID, userName string
	switch req.Role {
	case "admin":
		if req.UserID != h.cfg.AdminUser {
			jsonError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		user, err := models.GetUserByEmail(req.UserID)
		if err != nil {
			if !errors.Is(err, models.ErrNotFound) {
				modelError(w, err)
				return
			}
			// No seeded row; fall back to the configured password.
			if req.Password != h.cfg.AdminPassword {
				jsonError(w, http.StatusUnauthorized, "Invalid credentials")
				return
			}
		} else if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			jsonError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		userID = req.UserID
		userName = "Administrator"

	case "teacher":
		teacher, err := models.GetTeacher(req.UserID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				jsonError(w, http.StatusUnauthorized, "Teacher ID not found")
				return
			}
			modelError(w, err)
			return
		}
		userID = teacher.TeacherID
		userName = teacher.Name

	case "student":
		student, err := models.GetStudent(req.UserID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				jsonError(w, http.StatusUnauthorized, "Student ID not found")
				return
			}
			modelError(w, err)
			return
		}
		userID = student.StudentID
		userName = student.StudentName

	default:
		jsonError(w, http.StatusBadRequest, "Unknown role")
		return
	}

	cookie, err := middleware.CreateSessionCookie(userID, userName, req.Role, h.cfg.SessionSecret)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	http.SetCookie(w, cookie)

	h.cfg.Debugf("login ok role=%s user=%s", req.Role, userID)
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user": map[string]string{
			"id":   userID,
			"name": userName,
			"role": req.Role,
		},
	})
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	jsonResponse(w, http.StatusOK, map[string]interface{}{"success": true})
}

// Me returns the authenticated identity behind the session cookie.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{
		"id":   middleware.GetUserID(r),
		"name": middleware.GetUserName(r),
		"role": middleware.GetUserRole(r),
	})
}
