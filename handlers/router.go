package handlers

import (
	"context"
	"net/http"
	"time"

	"perfect-slate/interfaces"
	"perfect-slate/metrics"
	"perfect-slate/middleware"

	"github.com/gorilla/mux"
)

// RouterDeps is everything the HTTP API is built from
type RouterDeps struct {
	Auth           *AuthHandler
	Contests       *ContestHandler
	Drafts         *DraftHandler
	Admin          *AdminHandler
	Events         *SSEHandler
	AuthMiddleware *middleware.AuthMiddleware
	Metrics        *metrics.Recorder
	Health         interfaces.HealthChecker
	AllowedOrigins []string
	BehindProxy    bool
}

// NewRouter wires every route. Middleware order: request ID, CORS, security headers, then per-route metrics and auth.
func NewRouter(d RouterDeps) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Observe(d.Metrics))

	r.HandleFunc("/healthz", healthz(d.Health)).Methods("GET")
	r.Handle("/metrics", d.Metrics.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/signup", d.Auth.SignUp).Methods("POST")
	api.HandleFunc("/auth/login", d.Auth.Login).Methods("POST")
	api.HandleFunc("/auth/logout", d.Auth.Logout).Methods("POST")
	api.HandleFunc("/contests/{sport}/board", d.Contests.Board).Methods("GET")
	if d.Events != nil {
		api.HandleFunc("/events", d.Events.Handle).Methods("GET")
	}

	authed := api.NewRoute().Subrouter()
	authed.Use(d.AuthMiddleware.RequireAuth)
	authed.HandleFunc("/me", d.Auth.Me).Methods("GET")
	authed.HandleFunc("/profile", d.Contests.Profile).Methods("GET")
	authed.HandleFunc("/profile", d.Contests.UpdateProfile).Methods("PUT")
	authed.HandleFunc("/contests/{sport}/draft", d.Drafts.Get).Methods("GET")
	authed.HandleFunc("/contests/{sport}/draft", d.Drafts.Reset).Methods("DELETE")
	authed.HandleFunc("/contests/{sport}/draft/picks", d.Drafts.SelectPick).Methods("POST")
	authed.HandleFunc("/contests/{sport}/draft/picks/{index:[0-9]+}", d.Drafts.RemovePick).Methods("DELETE")
	authed.HandleFunc("/contests/{sport}/draft/tokens/{gameID:[0-9]+}", d.Drafts.ToggleToken).Methods("POST")
	authed.HandleFunc("/submit-picks", d.Contests.SubmitPicks).Methods("POST")
	authed.HandleFunc("/slates", d.Contests.Slates).Methods("GET")

	if d.Admin != nil {
		admin := api.PathPrefix("/admin").Subrouter()
		admin.Use(d.AuthMiddleware.RequireAuth, d.AuthMiddleware.RequireAdmin)
		admin.HandleFunc("/ingest/odds/{sport}", d.Admin.IngestOdds).Methods("POST")
		admin.HandleFunc("/ingest/scores/{sport}", d.Admin.UpdateScores).Methods("POST")
		admin.HandleFunc("/contests", d.Admin.CreateContest).Methods("POST")
		admin.HandleFunc("/contests/{id:[0-9]+}/finalize", d.Admin.FinalizeContest).Methods("POST")
		admin.HandleFunc("/games/{id:[0-9]+}/grade", d.Admin.GradeGame).Methods("POST")
	}

	var h http.Handler = r
	h = middleware.SecurityHeaders(d.BehindProxy)(h)
	h = middleware.CORS(d.AllowedOrigins)(h)
	h = middleware.RequestID(h)
	return h
}

func healthz(checker interfaces.HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := checker.Ping(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
