// Package app wires configuration, storage, services and the HTTP API into a
// runnable server. The CLI builds the same graph without serving.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"perfect-slate/config"
	"perfect-slate/database"
	"perfect-slate/handlers"
	"perfect-slate/logging"
	"perfect-slate/metrics"
	"perfect-slate/middleware"
	"perfect-slate/services"

	"github.com/redis/go-redis/v9"
)

// App is the assembled service graph
type App struct {
	Config  *config.Config
	DB      *database.MongoDB
	Redis   *redis.Client
	Metrics *metrics.Recorder

	Teams       *services.TeamDirectory
	Profiles    *services.ProfileService
	Auth        *services.AuthService
	Contests    *services.ContestService
	Drafts      *services.DraftService
	Submissions *services.SubmissionService
	Grading     *services.GradingService
	Odds        *services.OddsIngestor
	Scores      *services.ScoreUpdater
	Backups     *services.BackupService
	Events      *handlers.SSEHandler

	logger *logging.Logger
}

// New connects to MongoDB (and Redis when enabled) and builds every service
func New(cfg *config.Config) (*App, error) {
	logger := logging.WithPrefix("App")

	db, err := database.NewMongoConnection(cfg.ToDatabaseConfig())
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:  cfg,
		DB:      db,
		Metrics: metrics.New(),
		Teams:   services.NewTeamDirectory(),
		logger:  logger,
	}

	var drafts services.DraftStore
	if cfg.Redis.Enabled {
		a.Redis = redis.NewClient(cfg.ToRedisOptions())
		ctx, cancel := database.WithShortTimeout(context.Background())
		defer cancel()
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		drafts = services.NewRedisDraftStore(a.Redis, cfg.Redis.DraftTTL)
		logger.Infof("Draft store: redis %s (ttl %s)", cfg.Redis.Addr, cfg.Redis.DraftTTL)
	} else {
		drafts = services.NewMemoryDraftStore()
		logger.Warn("Draft store: in-memory, drafts are lost on restart")
	}

	users := database.NewMongoUserRepository(db)
	profiles := database.NewMongoProfileRepository(db)
	contests := database.NewMongoContestRepository(db)
	games := database.NewMongoGameRepository(db)
	picks := database.NewMongoPickRepository(db)
	slates := database.NewMongoSlateRepository(db)

	a.Events = handlers.NewSSEHandler(a.Metrics)

	var broadcaster services.GameBroadcaster = a.Events
	if cfg.Database.ChangeStreams {
		// The change stream relays every write, including this instance's.
		broadcaster = nil
	}

	oddsClient := services.NewOddsAPIClient(cfg.ToOddsAPIConfig())

	a.Profiles = services.NewProfileService(profiles)
	a.Auth = services.NewAuthService(users, a.Profiles, cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	a.Contests = services.NewContestService(contests, games, picks)
	a.Drafts = services.NewDraftService(a.Contests, drafts, slates)
	a.Submissions = services.NewSubmissionService(a.Contests, picks, slates, a.Profiles, a.Drafts, a.Metrics)
	a.Grading = services.NewGradingService(contests, games, picks, slates, a.Profiles, a.Metrics)
	a.Odds = services.NewOddsIngestor(oddsClient, contests, games, picks, a.Teams, a.Metrics)
	a.Scores = services.NewScoreUpdater(oddsClient, games, a.Contests, a.Grading, broadcaster, a.Metrics)
	a.Backups = services.NewBackupService(db, cfg.ToBackupConfig())

	return a, nil
}

// Handler builds the HTTP API
func (a *App) Handler() http.Handler {
	cfg := a.Config
	return handlers.NewRouter(handlers.RouterDeps{
		Auth:           handlers.NewAuthHandler(a.Auth, cfg.Server.UseTLS || !cfg.App.IsDevelopment),
		Contests:       handlers.NewContestHandler(a.Contests, a.Profiles, a.Submissions),
		Drafts:         handlers.NewDraftHandler(a.Drafts),
		Admin:          handlers.NewAdminHandler(a.Odds, a.Scores, a.Grading, a.Contests),
		Events:         a.Events,
		AuthMiddleware: middleware.NewAuthMiddleware(a.Auth, cfg.IsAdmin),
		Metrics:        a.Metrics,
		Health:         a.DB,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		BehindProxy:    cfg.Server.BehindProxy,
	})
}

// Run serves HTTP and runs background jobs until ctx is cancelled, then shuts down gracefully
func (a *App) Run(ctx context.Context) error {
	cfg := a.Config

	var scheduler *services.Scheduler
	if cfg.Scheduler.Enabled {
		scheduler = services.NewScheduler(a.Odds, a.Scores, cfg.EnabledSports())
		if err := scheduler.Register(cfg.Scheduler.OddsSpec, cfg.Scheduler.ScoresSpec); err != nil {
			return err
		}
		if err := scheduler.RegisterBackup(cfg.Backup.Spec, a.Backups); err != nil {
			return err
		}
		scheduler.Start(ctx)
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if cfg.Database.ChangeStreams {
		go services.NewChangeStreamWatcher(a.DB, a.Events).Run(watchCtx)
	}

	server := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Infof("Server starting on %s (TLS: %t)", server.Addr, cfg.Server.UseTLS && !cfg.Server.BehindProxy)
		var err error
		if cfg.Server.UseTLS && !cfg.Server.BehindProxy {
			err = server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("Shutdown signal received")
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("server failed: %w", err)
		}
	}

	// Streams never finish on their own, so close them before draining requests.
	a.Events.Stop()
	stopWatch()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Errorf("Graceful shutdown failed: %v", err)
	}
	if scheduler != nil {
		scheduler.Stop()
	}
	a.logger.Info("Server stopped")
	return runErr
}

// Close releases connections
func (a *App) Close() {
	if a.Events != nil {
		a.Events.Stop()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.logger.Warnf("Error closing redis: %v", err)
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
