package services

import (
	"context"
	"fmt"
	"time"

	"perfect-slate/logging"
	"perfect-slate/metrics"
	"perfect-slate/models"
	"perfect-slate/slate"

	"github.com/shopspring/decimal"
)

// GradingService grades picks of completed games and settles contests.
// Token games always count as correct.
type GradingService struct {
	contests ContestRepository
	games    GameRepository
	picks    PickRepository
	slates   SlateRepository
	profiles *ProfileService
	metrics  *metrics.Recorder
	now      func() time.Time
	logger   *logging.Logger
}

// FinalizeSummary reports a settled contest
type FinalizeSummary struct {
	ContestID        int64 `json:"contestId"`
	Entries          int   `json:"entries"`
	Winners          int   `json:"winners"`
	PayoutCents      int64 `json:"payoutCents"`
	RolledOverCents  int64 `json:"rolledOverCents"`
	AlreadyFinalized bool  `json:"alreadyFinalized,omitempty"`
}

func NewGradingService(contests ContestRepository, games GameRepository, picks PickRepository, slates SlateRepository, profiles *ProfileService, recorder *metrics.Recorder) *GradingService {
	return &GradingService{
		contests: contests,
		games:    games,
		picks:    picks,
		slates:   slates,
		profiles: profiles,
		metrics:  recorder,
		now:      time.Now,
		logger:   logging.WithPrefix("Grading"),
	}
}

// CalculatePickResult grades one pick against a completed game. Spread picks
// add the line to the picked side's margin; total picks compare the combined
// score to the line. Landing exactly on the line is a push.
func CalculatePickResult(pick *models.Pick, game *models.Game) models.PickResult {
	if !game.IsCompleted() || !game.HasScores() {
		return models.PickResultPending
	}
	home, away := float64(*game.HomeScore), float64(*game.AwayScore)

	var margin float64
	switch pick.Selection {
	case models.SelectionHome:
		margin = home - away + pick.LineValue
	case models.SelectionAway:
		margin = away - home + pick.LineValue
	case models.SelectionOver:
		margin = home + away - pick.LineValue
	case models.SelectionUnder:
		margin = pick.LineValue - (home + away)
	default:
		return models.PickResultPending
	}

	switch {
	case margin > 0:
		return models.PickResultWin
	case margin < 0:
		return models.PickResultLoss
	default:
		return models.PickResultPush
	}
}

// GradeGame stores results for the four picks of a completed game
func (s *GradingService) GradeGame(ctx context.Context, gameID int64) (map[int64]models.PickResult, error) {
	game, err := s.games.FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, fmt.Errorf("game %d: %w", gameID, ErrNotFound)
	}
	if !game.IsCompleted() || !game.HasScores() {
		return nil, fmt.Errorf("game %d is %s without a final score: %w", gameID, game.Status, ErrContestNotReady)
	}

	picks, err := s.picks.FindByGameIDs(ctx, []int64{gameID})
	if err != nil {
		return nil, fmt.Errorf("failed to load picks for game %d: %w", gameID, err)
	}
	return s.gradePicks(ctx, game, picks)
}

func (s *GradingService) gradePicks(ctx context.Context, game *models.Game, picks []models.Pick) (map[int64]models.PickResult, error) {
	results := make(map[int64]models.PickResult, len(picks))
	for i := range picks {
		result := CalculatePickResult(&picks[i], game)
		results[picks[i].ID] = result
		s.metrics.PickGraded(string(result))
	}
	if len(results) == 0 {
		return results, nil
	}
	if err := s.picks.SetResults(ctx, results); err != nil {
		return nil, fmt.Errorf("failed to store results for game %d: %w", game.ID, err)
	}
	s.logger.Infof("Graded %d picks for %s (%s)", len(results), game.Matchup(), game.ScoreString())
	return results, nil
}

// GradeSlate counts winning picks plus token games. A slate is perfect at slate.MaxUnits.
func GradeSlate(sl *models.Slate, results map[int64]models.PickResult) {
	correct := len(sl.TokenGameIDs)
	for _, id := range sl.PickIDs {
		if results[id] == models.PickResultWin {
			correct++
		}
	}
	sl.CorrectCount = correct
	if correct >= slate.MaxUnits {
		sl.Status = models.SlateStatusPerfect
	} else {
		sl.Status = models.SlateStatusLost
	}
}

// SplitPrizePool divides the pool evenly, rounding each share down to the cent
func SplitPrizePool(poolCents int64, winners int) int64 {
	if winners <= 0 || poolCents <= 0 {
		return 0
	}
	share := models.CentsToDecimal(poolCents).
		DivRound(decimal.NewFromInt(int64(winners)), 8).
		RoundDown(2)
	return models.DecimalToCents(share)
}

// FinalizeContest grades every slate of a contest whose games are all over,
// pays perfect slates, and holds the pool for the next contest when nobody is perfect.
func (s *GradingService) FinalizeContest(ctx context.Context, contestID int64) (*FinalizeSummary, error) {
	contest, err := s.contests.FindByID(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if contest == nil {
		return nil, fmt.Errorf("contest %d: %w", contestID, ErrNotFound)
	}
	if contest.IsCompleted() {
		return &FinalizeSummary{ContestID: contestID, Winners: contest.TotalWinners, AlreadyFinalized: true}, nil
	}

	games, err := s.games.FindByContest(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if !allGamesFinished(games) {
		return nil, fmt.Errorf("contest %d: %w", contestID, ErrContestNotReady)
	}

	gameIDs := make([]int64, len(games))
	for i, g := range games {
		gameIDs[i] = g.ID
	}
	picks, err := s.picks.FindByGameIDs(ctx, gameIDs)
	if err != nil {
		return nil, err
	}

	results := make(map[int64]models.PickResult, len(picks))
	byGame := make(map[int64][]models.Pick, len(games))
	for _, p := range picks {
		byGame[p.GameID] = append(byGame[p.GameID], p)
		results[p.ID] = p.Result
	}
	// Grade anything the score updater missed.
	for i := range games {
		game := &games[i]
		pending := false
		for _, p := range byGame[game.ID] {
			if !p.IsCompleted() {
				pending = true
				break
			}
		}
		if !pending {
			continue
		}
		graded, err := s.gradePicks(ctx, game, byGame[game.ID])
		if err != nil {
			return nil, err
		}
		for id, r := range graded {
			results[id] = r
		}
	}

	slates, err := s.slates.FindByContest(ctx, contestID)
	if err != nil {
		return nil, err
	}

	winners := 0
	for i := range slates {
		GradeSlate(&slates[i], results)
		if slates[i].Status == models.SlateStatusPerfect {
			winners++
		}
	}

	share := SplitPrizePool(contest.FinalPrizePoolCents, winners)
	now := s.now()
	for i := range slates {
		if slates[i].Status == models.SlateStatusPerfect {
			slates[i].PayoutCents = share
		}
		slates[i].GradedAt = &now
	}
	if err := s.slates.UpdateGrades(ctx, slates); err != nil {
		return nil, fmt.Errorf("failed to store slate grades for contest %d: %w", contestID, err)
	}

	var rollover int64
	if winners == 0 {
		rollover = contest.FinalPrizePoolCents
	}
	if err := s.contests.Finalize(ctx, contestID, winners, winners, rollover); err != nil {
		return nil, err
	}

	if s.profiles != nil {
		for _, sl := range slates {
			perfect := sl.Status == models.SlateStatusPerfect
			if err := s.profiles.RecordResult(ctx, sl.UserID, sl.CorrectCount, perfect, sl.PayoutCents); err != nil {
				s.logger.Warnf("Failed to record result for user %s in contest %d: %v", sl.UserID, contestID, err)
			}
		}
	}

	s.metrics.ContestFinalized(string(contest.Sport), winners == 0)
	summary := &FinalizeSummary{
		ContestID:       contestID,
		Entries:         len(slates),
		Winners:         winners,
		PayoutCents:     share,
		RolledOverCents: rollover,
	}
	if winners == 0 {
		s.logger.Infof("Contest %d finalized with no perfect slates, %s rolls over",
			contestID, models.CentsToDecimal(rollover).StringFixed(2))
	} else {
		s.logger.Infof("Contest %d finalized: %d winners of %d entries, %s each",
			contestID, winners, len(slates), models.CentsToDecimal(share).StringFixed(2))
	}
	return summary, nil
}

// FinalizeReadyContests settles every active contest of a sport whose games are all over
func (s *GradingService) FinalizeReadyContests(ctx context.Context, sport models.Sport) ([]FinalizeSummary, error) {
	contests, err := s.contests.FindByStatus(ctx, sport, models.ActiveContestStatuses...)
	if err != nil {
		return nil, err
	}

	var done []FinalizeSummary
	for _, c := range contests {
		games, err := s.games.FindByContest(ctx, c.ID)
		if err != nil {
			return done, err
		}
		if !allGamesFinished(games) {
			continue
		}
		summary, err := s.FinalizeContest(ctx, c.ID)
		if err != nil {
			s.logger.Errorf("Failed to finalize contest %d: %v", c.ID, err)
			continue
		}
		done = append(done, *summary)
	}
	return done, nil
}

func allGamesFinished(games []models.Game) bool {
	if len(games) == 0 {
		return false
	}
	for i := range games {
		if !games[i].IsCompleted() || !games[i].HasScores() {
			return false
		}
	}
	return true
}
