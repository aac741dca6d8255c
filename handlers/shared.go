package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"perfect-slate/logging"
	"perfect-slate/models"
	"perfect-slate/services"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

var validate = validator.New()

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Warnf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Success: false, Error: message})
}

// decodeJSON reads a bounded JSON body into dst and runs struct validation
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return validationMessage(err)
	}
	return nil
}

// validationMessage turns validator errors into one readable line
func validationMessage(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	if fe.Param() != "" {
		return fmt.Errorf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
	return fmt.Errorf("%s failed %s", fe.Field(), fe.Tag())
}

func sportFromPath(r *http.Request) (models.Sport, error) {
	return models.ParseSport(mux.Vars(r)["sport"])
}

func int64FromPath(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}

// statusForError maps service errors onto HTTP status codes
func statusForError(err error) int {
	var rejected *services.SubmissionError
	if errors.As(err, &rejected) {
		switch rejected.Reason {
		case services.ReasonContestNotFound:
			return http.StatusNotFound
		case services.ReasonContestLocked, services.ReasonAlreadySubmitted, services.ReasonInsufficientTokens:
			return http.StatusConflict
		default:
			return http.StatusUnprocessableEntity
		}
	}
	if _, ok := services.AsRateLimitError(err); ok {
		return http.StatusTooManyRequests
	}
	var provider *services.ProviderError
	if errors.As(err, &provider) {
		return http.StatusBadGateway
	}

	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrEmailTaken), errors.Is(err, services.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrNoOpenContest):
		return http.StatusNotFound
	case errors.Is(err, services.ErrContestNotReady):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with its mapped status. Internal errors are logged and hidden.
func respondError(w http.ResponseWriter, logger *logging.Logger, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		logger.Errorf("Request failed: %v", err)
		writeError(w, status, "Internal server error")
		return
	}
	var rejected *services.SubmissionError
	if errors.As(err, &rejected) {
		writeError(w, status, rejected.Message())
		return
	}
	writeError(w, status, err.Error())
}
