package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"perfect-slate/models"
)

// AuthCookieName is the cookie carrying the access token for browser clients
const AuthCookieName = "auth_token"

// SessionContextKey is the key used to store the session in request context
type SessionContextKey string

const SessionKey SessionContextKey = "session"

// SessionValidator resolves an access token into a session
type SessionValidator interface {
	SessionFromToken(ctx context.Context, token string) (*models.Session, error)
}

// AdminChecker decides whether an email belongs to an operator
type AdminChecker func(email string) bool

// AuthMiddleware handles bearer and cookie authentication
type AuthMiddleware struct {
	sessions SessionValidator
	isAdmin  AdminChecker
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(sessions SessionValidator, isAdmin AdminChecker) *AuthMiddleware {
	return &AuthMiddleware{
		sessions: sessions,
		isAdmin:  isAdmin,
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": message})
}

// RequireAuth rejects requests without a valid session
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := m.sessionFromRequest(r)
		if err != nil || session == nil {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		ctx := context.WithValue(r.Context(), SessionKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects authenticated users who are not operators. Use it inside RequireAuth.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := GetSessionFromContext(r)
		if session == nil {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		if m.isAdmin == nil || !m.isAdmin(session.Email) {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// TokenFromRequest returns the bearer token, falling back to the auth cookie
func TokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie(AuthCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func (m *AuthMiddleware) sessionFromRequest(r *http.Request) (*models.Session, error) {
	token := TokenFromRequest(r)
	if token == "" {
		return nil, http.ErrNoCookie
	}
	return m.sessions.SessionFromToken(r.Context(), token)
}

// GetSessionFromContext retrieves the authenticated session from request context
func GetSessionFromContext(r *http.Request) *models.Session {
	if session, ok := r.Context().Value(SessionKey).(*models.Session); ok {
		return session
	}
	return nil
}
