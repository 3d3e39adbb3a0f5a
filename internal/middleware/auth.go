package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type contextKey string

const UserIDKey contextKey = "userID"
const UserNameKey contextKey = "userName"
const UserRoleKey contextKey = "userRole"

const SessionCookieName = "markin_session"

// Session lifetime matches the cookie max age; stale cookies fail the age
// check even if the signature is still valid.
const sessionMaxAge = 4 * time.Hour

func CreateSessionCookie(userID, userName, userRole, secret string) (*http.Cookie, error) {
	value := fmt.Sprintf("%s|%s|%s|%d", userID, userName, userRole, time.Now().Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(value))
	signature := base64.URLEncoding.EncodeToString(mac.Sum(nil))
	cookieValue := base64.URLEncoding.EncodeToString([]byte(value)) + "." + signature

	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    cookieValue,
		Path:     "/",
		HttpOnly: true,
		Secure:   false, // Set to true in production with HTTPS
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionMaxAge.Seconds()),
	}

	return cookie, nil
}

func ValidateSessionCookie(cookie *http.Cookie, secret string) (userID, userName, userRole string, err error) {
	if cookie == nil {
		return "", "", "", fmt.Errorf("no session cookie")
	}

	encoded, signature, found := strings.Cut(cookie.Value, ".")
	if !found {
		return "", "", "", fmt.Errorf("invalid session format")
	}

	decoded, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return "", "", "", fmt.Errorf("invalid session encoding")
	}
	value := string(decoded)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(value))
	expectedSignature := base64.URLEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expectedSignature)) {
		return "", "", "", fmt.Errorf("invalid session signature")
	}

	parts := strings.Split(value, "|")
	if len(parts) != 4 {
		return "", "", "", fmt.Errorf("invalid session format")
	}

	var issuedAt int64
	if _, err := fmt.Sscanf(parts[3], "%d", &issuedAt); err != nil {
		return "", "", "", fmt.Errorf("invalid session timestamp")
	}
	if time.Since(time.Unix(issuedAt, 0)) > sessionMaxAge {
		return "", "", "", fmt.Errorf("session expired")
	}

	return parts[0], parts[1], parts[2], nil
}

func RequireAuth(next http.HandlerFunc, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil {
			http.Error(w, `{"message":"Authentication required"}`, http.StatusUnauthorized)
			return
		}

		userID, userName, userRole, err := ValidateSessionCookie(cookie, secret)
		if err != nil {
			http.Error(w, `{"message":"Authentication required"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		ctx = context.WithValue(ctx, UserNameKey, userName)
		ctx = context.WithValue(ctx, UserRoleKey, userRole)

		next(w, r.WithContext(ctx))
	}
}

func GetUserID(r *http.Request) string {
	if val := r.Context().Value(UserIDKey); val != nil {
		return val.(string)
	}
	return ""
}

func GetUserName(r *http.Request) string {
	if val := r.Context().Value(UserNameKey); val != nil {
		return val.(string)
	}
	return ""
}

func GetUserRole(r *http.Request) string {
	if val := r.Context().Value(UserRoleKey); val != nil {
		return val.(string)
	}
	return ""
}

// RequireRole ensures the user is authenticated with one of the given roles.
func RequireRole(allowedRoles []string, secret string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return RequireAuth(func(w http.ResponseWriter, r *http.Request) {
			userRole := GetUserRole(r)
			allowed := false
			for _, role := range allowedRoles {
				if userRole == role {
					allowed = true
					break
				}
			}
			if !allowed {
				http.Error(w, `{"message":"Insufficient permissions"}`, http.StatusForbidden)
				return
			}
			next(w, r)
		}, secret)
	}
}
