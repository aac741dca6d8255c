package handlers

import (
	"net/http"
	"strconv"

	"perfect-slate/interfaces"
	"perfect-slate/logging"
	"perfect-slate/middleware"

	"github.com/gorilla/mux"
)

// SelectPickRequest is the body of POST /api/contests/{sport}/draft/picks
type SelectPickRequest struct {
	PickID int64 `json:"pickId" validate:"required,gt=0"`
}

// DraftHandler exposes the player's in-progress slate. Blocked actions answer
// 200 with outcome "blocked" and a reason, since they are expected UI states.
type DraftHandler struct {
	drafts interfaces.DraftService
	logger *logging.Logger
}

func NewDraftHandler(drafts interfaces.DraftService) *DraftHandler {
	return &DraftHandler{
		drafts: drafts,
		logger: logging.WithPrefix("DraftHandler"),
	}
}

// Get handles GET /api/contests/{sport}/draft
func (h *DraftHandler) Get(w http.ResponseWriter, r *http.Request) {
	sport, err := sportFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := h.drafts.Get(r.Context(), middleware.GetSessionFromContext(r), sport)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// SelectPick handles POST /api/contests/{sport}/draft/picks
func (h *DraftHandler) SelectPick(w http.ResponseWriter, r *http.Request) {
	sport, err := sportFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req SelectPickRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.drafts.SelectPick(r.Context(), middleware.GetSessionFromContext(r), sport, req.PickID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// RemovePick handles DELETE /api/contests/{sport}/draft/picks/{index}
func (h *DraftHandler) RemovePick(w http.ResponseWriter, r *http.Request) {
	sport, err := sportFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid index")
		return
	}

	resp, err := h.drafts.RemovePick(r.Context(), middleware.GetSessionFromContext(r), sport, index)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ToggleToken handles POST /api/contests/{sport}/draft/tokens/{gameID}
func (h *DraftHandler) ToggleToken(w http.ResponseWriter, r *http.Request) {
	sport, err := sportFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	gameID, err := int64FromPath(r, "gameID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.drafts.ToggleToken(r.Context(), middleware.GetSessionFromContext(r), sport, gameID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Reset handles DELETE /api/contests/{sport}/draft
func (h *DraftHandler) Reset(w http.ResponseWriter, r *http.Request) {
	sport, err := sportFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := h.drafts.Reset(r.Context(), middleware.GetSessionFromContext(r), sport)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
