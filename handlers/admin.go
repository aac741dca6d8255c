package handlers

import (
	"net/http"

	"perfect-slate/interfaces"
	"perfect-slate/logging"
	"perfect-slate/models"
)

// AdminHandler triggers provider runs and contest operations on demand
type AdminHandler struct {
	odds     interfaces.OddsIngestor
	scores   interfaces.ScoreUpdater
	grading  interfaces.GradingService
	contests interfaces.ContestService
	logger   *logging.Logger
}

func NewAdminHandler(odds interfaces.OddsIngestor, scores interfaces.ScoreUpdater, grading interfaces.GradingService, contests interfaces.ContestService) *AdminHandler {
	return &AdminHandler{
		odds:     odds,
		scores:   scores,
		grading:  grading,
		contests: contests,
		logger:   logging.WithPrefix("Admin"),
	}
}

// IngestOdds handles POST /api/admin/ingest/odds/{sport}
func (h *AdminHandler) IngestOdds(w http.ResponseWriter, r *http.Request) {
	sport, err := sportFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	summary, err := h.odds.Ingest(r.Context(), sport)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "summary": summary})
}

// UpdateScores handles POST /api/admin/ingest/scores/{sport}
func (h *AdminHandler) UpdateScores(w http.ResponseWriter, r *http.Request) {
	sport, err := sportFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	summary, err := h.scores.Update(r.Context(), sport)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "summary": summary})
}

// CreateContest handles POST /api/admin/contests
func (h *AdminHandler) CreateContest(w http.ResponseWriter, r *http.Request) {
	var req models.CreateContestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	contest, err := h.contests.CreateContest(r.Context(), req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, contest)
}

// GradeGame handles POST /api/admin/games/{id}/grade
func (h *AdminHandler) GradeGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := int64FromPath(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	results, err := h.grading.GradeGame(r.Context(), gameID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "results": results})
}

// FinalizeContest handles POST /api/admin/contests/{id}/finalize
func (h *AdminHandler) FinalizeContest(w http.ResponseWriter, r *http.Request) {
	contestID, err := int64FromPath(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	summary, err := h.grading.FinalizeContest(r.Context(), contestID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "summary": summary})
}
