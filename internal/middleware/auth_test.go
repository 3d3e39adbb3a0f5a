package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const testSecret = "test-secret"

func TestSessionCookieRoundTrip(t *testing.T) {
	cookie, err := CreateSessionCookie("TCH001", "Prof. Rao", "teacher", testSecret)
	if err != nil {
		t.Fatalf("CreateSessionCookie() failed: %v", err)
	}
	if cookie.Name != SessionCookieName {
		t.Errorf("cookie name = %q, want %q", cookie.Name, SessionCookieName)
	}
	if !cookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}

	userID, userName, userRole, err := ValidateSessionCookie(cookie, testSecret)
	if err != nil {
		t.Fatalf("ValidateSessionCookie() failed: %v", err)
	}
	if userID != "TCH001" || userName != "Prof. Rao" || userRole != "teacher" {
		t.Errorf("round trip = (%q, %q, %q), want (TCH001, Prof. Rao, teacher)", userID, userName, userRole)
	}
}

func TestValidateSessionCookieRejectsTampering(t *testing.T) {
	cookie, err := CreateSessionCookie("STU0001", "Asha Patil", "student", testSecret)
	if err != nil {
		t.Fatalf("CreateSessionCookie() failed: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*http.Cookie) *http.Cookie
	}{
		{
			name: "wrong secret",
			mutate: func(c *http.Cookie) *http.Cookie {
				return c
			},
		},
		{
			name: "flipped signature",
			mutate: func(c *http.Cookie) *http.Cookie {
				mutated := *c
				mutated.Value = c.Value[:len(c.Value)-4] + "AAAA"
				return &mutated
			},
		},
		{
			name: "missing separator",
			mutate: func(c *http.Cookie) *http.Cookie {
				mutated := *c
				mutated.Value = strings.ReplaceAll(c.Value, ".", "")
				return &mutated
			},
		},
		{
			name: "empty value",
			mutate: func(c *http.Cookie) *http.Cookie {
				mutated := *c
				mutated.Value = ""
				return &mutated
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secret := testSecret
			if tt.name == "wrong secret" {
				secret = "other-secret"
			}
			if _, _, _, err := ValidateSessionCookie(tt.mutate(cookie), secret); err == nil {
				t.Error("ValidateSessionCookie() accepted a tampered cookie")
			}
		})
	}
}

func TestRequireAuthWithoutCookie(t *testing.T) {
	handler := RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run without a session")
	}, testSecret)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest("GET", "/api/teacher/dashboard", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireRole(t *testing.T) {
	cookie, err := CreateSessionCookie("STU0001", "Asha Patil", "student", testSecret)
	if err != nil {
		t.Fatalf("CreateSessionCookie() failed: %v", err)
	}

	tests := []struct {
		name    string
		allowed []string
		want    int
	}{
		{"role allowed", []string{"student"}, http.StatusOK},
		{"one of several allowed", []string{"admin", "student"}, http.StatusOK},
		{"role forbidden", []string{"admin"}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sawUserID string
			handler := RequireRole(tt.allowed, testSecret)(func(w http.ResponseWriter, r *http.Request) {
				sawUserID = GetUserID(r)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest("GET", "/api/student/dashboard", nil)
			req.AddCookie(cookie)
			rec := httptest.NewRecorder()
			handler(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusOK && sawUserID != "STU0001" {
				t.Errorf("handler saw user id %q, want STU0001", sawUserID)
			}
		})
	}
}

func TestContextAccessorsWithoutValues(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if GetUserID(req) != "" || GetUserName(req) != "" || GetUserRole(req) != "" {
		t.Error("accessors should return empty strings for unauthenticated requests")
	}
}
