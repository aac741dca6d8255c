// Package interfaces holds the service contracts the HTTP layer and the CLI
// depend on, so handlers can be tested against stubs.
package interfaces

import (
	"context"

	"perfect-slate/models"
	"perfect-slate/services"
)

// AuthService defines sign-up, sign-in and token validation
type AuthService interface {
	SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, email, password string) (*models.AuthResponse, error)
	SessionFromToken(ctx context.Context, token string) (*models.Session, error)
}

// ProfileService defines profile reads and edits
type ProfileService interface {
	GetOrCreate(ctx context.Context, userID, email, username string) (*models.UserProfile, error)
	Update(ctx context.Context, userID string, req models.ProfileUpdateRequest) (*models.UserProfile, error)
}

// ContestService defines the board and operator contest operations
type ContestService interface {
	Board(ctx context.Context, sport models.Sport) (*services.Board, error)
	CreateContest(ctx context.Context, req models.CreateContestRequest) (*models.Contest, error)
}

// DraftService defines the server-held slate builder
type DraftService interface {
	Get(ctx context.Context, session *models.Session, sport models.Sport) (*services.DraftView, error)
	SelectPick(ctx context.Context, session *models.Session, sport models.Sport, pickID int64) (*services.DraftActionResponse, error)
	ToggleToken(ctx context.Context, session *models.Session, sport models.Sport, gameID int64) (*services.DraftActionResponse, error)
	RemovePick(ctx context.Context, session *models.Session, sport models.Sport, index int) (*services.DraftActionResponse, error)
	Reset(ctx context.Context, session *models.Session, sport models.Sport) (*services.DraftView, error)
}

// SubmissionService defines slate submission and the player's slate history
type SubmissionService interface {
	Submit(ctx context.Context, session *models.Session, req models.SubmissionRequest) (*models.Slate, error)
	History(ctx context.Context, session *models.Session, limit int64) ([]models.Slate, error)
}

// OddsIngestor defines a manual odds ingestion run
type OddsIngestor interface {
	Ingest(ctx context.Context, sport models.Sport) (*services.IngestSummary, error)
}

// ScoreUpdater defines a manual score update run
type ScoreUpdater interface {
	Update(ctx context.Context, sport models.Sport) (*services.ScoreSummary, error)
}

// GradingService defines manual grading and settlement
type GradingService interface {
	GradeGame(ctx context.Context, gameID int64) (map[int64]models.PickResult, error)
	FinalizeContest(ctx context.Context, contestID int64) (*services.FinalizeSummary, error)
}

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}
