package handlers

import (
	"net/http"
	"time"

	"perfect-slate/interfaces"
	"perfect-slate/logging"
	"perfect-slate/middleware"
	"perfect-slate/models"
)

// AuthHandler handles sign-up, sign-in and sign-out
type AuthHandler struct {
	authService  interfaces.AuthService
	secureCookie bool
	logger       *logging.Logger
}

// NewAuthHandler creates a new authentication handler. secureCookie should be
// false only when a proxy terminates TLS and forwards plain HTTP.
func NewAuthHandler(authService interfaces.AuthService, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		secureCookie: secureCookie,
		logger:       logging.WithPrefix("AuthHandler"),
	}
}

// SignUp handles POST /api/auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req models.SignUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.authService.SignUp(r.Context(), req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	h.setAuthCookie(w, resp.Session)
	writeJSON(w, http.StatusCreated, resp)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Infof("Login failed for %s: %v", req.Email, err)
		respondError(w, h.logger, err)
		return
	}

	h.setAuthCookie(w, resp.Session)
	writeJSON(w, http.StatusOK, resp)
}

// Logout clears the auth cookie. Bearer tokens simply expire.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Me returns the current session
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r)
	if session == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"userId":    session.UserID,
		"email":     session.Email,
		"expiresAt": session.ExpiresAt,
	})
}

func (h *AuthHandler) setAuthCookie(w http.ResponseWriter, session models.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    session.AccessToken,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}
