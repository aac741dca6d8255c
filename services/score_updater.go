package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"perfect-slate/logging"
	"perfect-slate/metrics"
	"perfect-slate/models"
)

// scoreLookback is how far back games are still polled for scores
const scoreLookback = 24 * time.Hour

// ScoreSource provides live and final scores
type ScoreSource interface {
	GetScores(ctx context.Context, sportKey string, daysFrom int) ([]ScoreEvent, Quota, error)
}

// GameBroadcaster pushes game changes to live clients
type GameBroadcaster interface {
	BroadcastGameUpdate(game *models.Game)
}

// ScoreUpdater refreshes game scores, grades finished games and moves contests along
type ScoreUpdater struct {
	source      ScoreSource
	games       GameRepository
	contests    *ContestService
	grader      *GradingService
	broadcaster GameBroadcaster
	metrics     *metrics.Recorder
	now         func() time.Time
	logger      *logging.Logger
}

// ScoreSummary reports one score update run
type ScoreSummary struct {
	Sport             models.Sport `json:"sport"`
	GamesChecked      int          `json:"gamesChecked"`
	GamesUpdated      int          `json:"gamesUpdated"`
	GamesCompleted    int          `json:"gamesCompleted"`
	GamesInProgress   int          `json:"gamesInProgress"`
	ContestsFinalized int          `json:"contestsFinalized"`
	ContestsAdvanced  int          `json:"contestsAdvanced"`
	RemainingQuota    string       `json:"remainingQuota,omitempty"`
	Timestamp         time.Time    `json:"timestamp"`
}

func NewScoreUpdater(source ScoreSource, games GameRepository, contests *ContestService, grader *GradingService, broadcaster GameBroadcaster, recorder *metrics.Recorder) *ScoreUpdater {
	return &ScoreUpdater{
		source:      source,
		games:       games,
		contests:    contests,
		grader:      grader,
		broadcaster: broadcaster,
		metrics:     recorder,
		now:         time.Now,
		logger:      logging.WithPrefix("Scores"),
	}
}

// ScoreUpdate is the new state of a game derived from a provider event
type ScoreUpdate struct {
	Status    models.GameStatus
	HomeScore *int
	AwayScore *int
}

// DeriveScoreUpdate maps a provider event onto a game: completed events finish
// the game, events with scores put it in progress, anything else leaves it
// alone. Missing team scores read as zero. The bool is false when nothing changed.
func DeriveScoreUpdate(game *models.Game, event ScoreEvent) (ScoreUpdate, bool) {
	update := ScoreUpdate{Status: game.Status, HomeScore: game.HomeScore, AwayScore: game.AwayScore}

	switch {
	case event.Completed:
		update.Status = models.GameStatusCompleted
	case len(event.Scores) > 0:
		update.Status = models.GameStatusInProgress
	default:
		return update, false
	}

	home, away := 0, 0
	for _, s := range event.Scores {
		n, err := strconv.Atoi(s.Score)
		if err != nil {
			continue
		}
		switch s.Name {
		case game.HomeTeam:
			home = n
		case game.AwayTeam:
			away = n
		}
	}
	update.HomeScore = &home
	update.AwayScore = &away

	changed := update.Status != game.Status ||
		!sameScore(update.HomeScore, game.HomeScore) ||
		!sameScore(update.AwayScore, game.AwayScore)
	return update, changed
}

func sameScore(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Update polls scores for a sport's recent games and applies the changes
func (u *ScoreUpdater) Update(ctx context.Context, sport models.Sport) (*ScoreSummary, error) {
	now := u.now()
	summary := &ScoreSummary{Sport: sport, Timestamp: now}

	games, err := u.games.FindForScoreUpdate(ctx, sport, now.Add(-scoreLookback))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s games: %w", sport, err)
	}
	summary.GamesChecked = len(games)

	if len(games) > 0 {
		if err := u.applyScores(ctx, sport, games, summary); err != nil {
			u.metrics.IngestRun(string(sport), "scores", err)
			return nil, err
		}
	} else {
		u.logger.Debugf("No %s games to update", sport)
	}

	if summary.GamesCompleted > 0 && u.grader != nil {
		finalized, err := u.grader.FinalizeReadyContests(ctx, sport)
		if err != nil {
			u.logger.Errorf("Failed to finalize %s contests: %v", sport, err)
		}
		summary.ContestsFinalized = len(finalized)
	}

	if u.contests != nil {
		advanced, err := u.contests.RefreshStatuses(ctx, sport)
		if err != nil {
			u.logger.Errorf("Failed to refresh %s contest statuses: %v", sport, err)
		}
		summary.ContestsAdvanced = advanced
	}

	u.metrics.IngestRun(string(sport), "scores", nil)
	u.logger.Infof("Score update for %s: checked %d, updated %d, completed %d, in progress %d",
		sport, summary.GamesChecked, summary.GamesUpdated, summary.GamesCompleted, summary.GamesInProgress)
	return summary, nil
}

func (u *ScoreUpdater) applyScores(ctx context.Context, sport models.Sport, games []models.Game, summary *ScoreSummary) error {
	events, quota, err := u.source.GetScores(ctx, sport.OddsAPIKey(), 1)
	if err != nil {
		return fmt.Errorf("failed to fetch %s scores: %w", sport, err)
	}
	summary.RemainingQuota = quota.Remaining

	byID := make(map[string]ScoreEvent, len(events))
	for _, e := range events {
		byID[e.ID] = e
	}

	for i := range games {
		game := &games[i]
		if game.ExternalID == "" {
			continue
		}
		event, ok := byID[game.ExternalID]
		if !ok {
			u.logger.Debugf("No score data for game %d (%s)", game.ID, game.Matchup())
			continue
		}

		update, changed := DeriveScoreUpdate(game, event)
		switch update.Status {
		case models.GameStatusCompleted:
			summary.GamesCompleted++
		case models.GameStatusInProgress:
			summary.GamesInProgress++
		}
		if !changed {
			continue
		}

		if err := u.games.UpdateScore(ctx, game.ID, update.Status, update.HomeScore, update.AwayScore); err != nil {
			u.logger.Errorf("Failed to update game %d: %v", game.ID, err)
			continue
		}
		summary.GamesUpdated++

		wasCompleted := game.IsCompleted()
		game.Status = update.Status
		game.HomeScore = update.HomeScore
		game.AwayScore = update.AwayScore
		game.UpdatedAt = u.now()

		if u.broadcaster != nil {
			u.broadcaster.BroadcastGameUpdate(game)
		}

		if game.IsCompleted() && !wasCompleted && u.grader != nil {
			if _, err := u.grader.GradeGame(ctx, game.ID); err != nil {
				u.logger.Errorf("Failed to grade game %d: %v", game.ID, err)
			}
		}
	}
	return nil
}
