package interfaces

import (
	"perfect-slate/database"
	"perfect-slate/services"
)

// Interface compliance checks - these will fail to compile if services don't implement interfaces
var (
	_ AuthService       = (*services.AuthService)(nil)
	_ ProfileService    = (*services.ProfileService)(nil)
	_ ContestService    = (*services.ContestService)(nil)
	_ DraftService      = (*services.DraftService)(nil)
	_ SubmissionService = (*services.SubmissionService)(nil)
	_ OddsIngestor      = (*services.OddsIngestor)(nil)
	_ ScoreUpdater      = (*services.ScoreUpdater)(nil)
	_ GradingService    = (*services.GradingService)(nil)
	_ HealthChecker     = (*database.MongoDB)(nil)

	// Scheduler jobs
	_ services.OddsJob   = (*services.OddsIngestor)(nil)
	_ services.ScoresJob = (*services.ScoreUpdater)(nil)
	_ services.BackupJob = (*services.BackupService)(nil)

	// Repositories
	_ services.UserRepository    = (*database.MongoUserRepository)(nil)
	_ services.ProfileRepository = (*database.MongoProfileRepository)(nil)
	_ services.ContestRepository = (*database.MongoContestRepository)(nil)
	_ services.GameRepository    = (*database.MongoGameRepository)(nil)
	_ services.PickRepository    = (*database.MongoPickRepository)(nil)
	_ services.SlateRepository   = (*database.MongoSlateRepository)(nil)
	_ services.BackupStore       = (*database.MongoDB)(nil)

	// Draft stores
	_ services.DraftStore = (*services.RedisDraftStore)(nil)
	_ services.DraftStore = (*services.MemoryDraftStore)(nil)

	// Providers
	_ services.OddsSource  = (*services.OddsAPIClient)(nil)
	_ services.ScoreSource = (*services.OddsAPIClient)(nil)
)
