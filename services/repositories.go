package services

import (
	"context"
	"time"

	"perfect-slate/models"
)

// Repository contracts. Find methods return nil, nil when nothing matches.

// UserRepository interface for user data operations
type UserRepository interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
}

// ProfileRepository writes statistics with atomic updates so they never
// overwrite a concurrent token spend or refund.
type ProfileRepository interface {
	FindByID(ctx context.Context, id string) (*models.UserProfile, error)
	FindByUsername(ctx context.Context, username string) (*models.UserProfile, error)
	Create(ctx context.Context, profile *models.UserProfile) error
	UpdateDetails(ctx context.Context, id string, req models.ProfileUpdateRequest) error
	SpendTokens(ctx context.Context, id string, n int) error
	RefundTokens(ctx context.Context, id string, n int) error
	IncSubmission(ctx context.Context, id string, tokensUsed int, now time.Time) error
	ClaimEarnedToken(ctx context.Context, id string, every int, now time.Time) (bool, error)
	RecordResult(ctx context.Context, id string, outcome models.SlateOutcome, now time.Time) error
}

type ContestRepository interface {
	Create(ctx context.Context, contest *models.Contest) error
	FindByID(ctx context.Context, id int64) (*models.Contest, error)
	FindCurrent(ctx context.Context, sport models.Sport) (*models.Contest, error)
	FindOpenForIngestion(ctx context.Context, sport models.Sport, now time.Time) (*models.Contest, error)
	FindByStatus(ctx context.Context, sport models.Sport, statuses ...models.ContestStatus) ([]models.Contest, error)
	UpdateStatus(ctx context.Context, id int64, status models.ContestStatus) error
	RecordEntry(ctx context.Context, id int64, tokensUsed int) error
	Finalize(ctx context.Context, id int64, winners, perfect int, pendingRolloverCents int64) error
	TakePendingRollover(ctx context.Context, sport models.Sport) (int64, error)
}

type GameRepository interface {
	Create(ctx context.Context, game *models.Game) error
	FindByID(ctx context.Context, id int64) (*models.Game, error)
	FindByExternalID(ctx context.Context, contestID int64, externalID string) (*models.Game, error)
	FindByContest(ctx context.Context, contestID int64) ([]models.Game, error)
	FindForScoreUpdate(ctx context.Context, sport models.Sport, since time.Time) ([]models.Game, error)
	UpdateLines(ctx context.Context, id int64, homeSpread, awaySpread, total float64, scheduled time.Time) error
	UpdateScore(ctx context.Context, id int64, status models.GameStatus, homeScore, awayScore *int) error
}

type PickRepository interface {
	CreateMany(ctx context.Context, picks []*models.Pick) error
	FindByGameIDs(ctx context.Context, gameIDs []int64) ([]models.Pick, error)
	UpdateLine(ctx context.Context, gameID int64, pickType models.PickType, selection models.Selection, line float64) error
	IncrementTimesSelected(ctx context.Context, ids []int64) error
	SetResults(ctx context.Context, results map[int64]models.PickResult) error
}

type SlateRepository interface {
	Insert(ctx context.Context, s *models.Slate) error
	FindByUserAndContest(ctx context.Context, userID string, contestID int64) (*models.Slate, error)
	FindByContest(ctx context.Context, contestID int64) ([]models.Slate, error)
	FindByUser(ctx context.Context, userID string, limit int64) ([]models.Slate, error)
	UpdateGrades(ctx context.Context, slates []models.Slate) error
}
