package handlers

import (
	"net/http"
	"strconv"

	"perfect-slate/interfaces"
	"perfect-slate/logging"
	"perfect-slate/middleware"
	"perfect-slate/models"
	"perfect-slate/services"
)

// ContestHandler serves boards, profiles and slate submission
type ContestHandler struct {
	contests    interfaces.ContestService
	profiles    interfaces.ProfileService
	submissions interfaces.SubmissionService
	logger      *logging.Logger
}

func NewContestHandler(contests interfaces.ContestService, profiles interfaces.ProfileService, submissions interfaces.SubmissionService) *ContestHandler {
	return &ContestHandler{
		contests:    contests,
		profiles:    profiles,
		submissions: submissions,
		logger:      logging.WithPrefix("ContestHandler"),
	}
}

// Board handles GET /api/contests/{sport}/board
func (h *ContestHandler) Board(w http.ResponseWriter, r *http.Request) {
	sport, err := sportFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	board, err := h.contests.Board(r.Context(), sport)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// SubmitPicks handles POST /api/submit-picks. The body is {success, error?} in every case.
func (h *ContestHandler) SubmitPicks(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r)

	var req models.SubmissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.SubmissionResponse{Error: err.Error()})
		return
	}

	sl, err := h.submissions.Submit(r.Context(), session, req)
	status := http.StatusCreated
	if err != nil {
		status = statusForError(err)
		if status == http.StatusInternalServerError {
			h.logger.Errorf("Submission failed for %s: %v", session.UserID, err)
		}
	}
	writeJSON(w, status, services.SubmissionResult(sl, err))
}

// Slates handles GET /api/slates?limit=N, the player's submitted slates newest first
func (h *ContestHandler) Slates(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r)

	var limit int64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	slates, err := h.submissions.History(r.Context(), session, limit)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, slates)
}

// Profile handles GET /api/profile, creating the profile on first access
func (h *ContestHandler) Profile(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r)
	profile, err := h.profiles.GetOrCreate(r.Context(), session.UserID, session.Email, "")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// UpdateProfile handles PUT /api/profile
func (h *ContestHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r)

	var req models.ProfileUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.profiles.GetOrCreate(r.Context(), session.UserID, session.Email, ""); err != nil {
		respondError(w, h.logger, err)
		return
	}
	profile, err := h.profiles.Update(r.Context(), session.UserID, req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
