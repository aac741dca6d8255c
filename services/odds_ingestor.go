package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"perfect-slate/database"
	"perfect-slate/logging"
	"perfect-slate/metrics"
	"perfect-slate/models"
	"perfect-slate/slate"
)

// OddsSource provides upcoming events with bookmaker lines
type OddsSource interface {
	GetOdds(ctx context.Context, sportKey string) ([]OddsEvent, Quota, error)
}

// OddsIngestor loads provider lines into the open contest of a sport
type OddsIngestor struct {
	source   OddsSource
	contests ContestRepository
	games    GameRepository
	picks    PickRepository
	teams    *TeamDirectory
	metrics  *metrics.Recorder
	now      func() time.Time
	logger   *logging.Logger
}

// IngestSummary reports one ingestion run
type IngestSummary struct {
	Sport          models.Sport `json:"sport"`
	ContestID      int64        `json:"contestId"`
	GamesProcessed int          `json:"gamesProcessed"`
	GamesCreated   int          `json:"gamesCreated"`
	GamesSkipped   int          `json:"gamesSkipped"`
	RemainingQuota string       `json:"remainingQuota"`
}

// Lines is the spread and total chosen for an event, after the no-tie adjustment
type Lines struct {
	HomeSpread float64
	AwaySpread float64
	Total      float64
}

func NewOddsIngestor(source OddsSource, contests ContestRepository, games GameRepository, picks PickRepository, teams *TeamDirectory, recorder *metrics.Recorder) *OddsIngestor {
	return &OddsIngestor{
		source:   source,
		contests: contests,
		games:    games,
		picks:    picks,
		teams:    teams,
		metrics:  recorder,
		now:      time.Now,
		logger:   logging.WithPrefix("OddsIngest"),
	}
}

// SelectLines walks every bookmaker and keeps the last complete spread and
// total it finds. It returns false when either market is missing.
func SelectLines(event OddsEvent) (Lines, bool) {
	var lines Lines
	var haveSpread, haveTotal bool

	for _, bookmaker := range event.Bookmakers {
		for _, market := range bookmaker.Markets {
			if len(market.Outcomes) < 2 {
				continue
			}
			switch market.Key {
			case "spreads":
				var home, away *float64
				for _, o := range market.Outcomes {
					switch o.Name {
					case event.HomeTeam:
						home = o.Point
					case event.AwayTeam:
						away = o.Point
					}
				}
				if home != nil && away != nil {
					lines.HomeSpread = slate.ApplyNoTieLine(*home, false)
					lines.AwaySpread = slate.ApplyNoTieLine(*away, false)
					haveSpread = true
				}
			case "totals":
				if p := market.Outcomes[0].Point; p != nil {
					lines.Total = slate.ApplyNoTieLine(*p, false)
					haveTotal = true
				}
			}
		}
	}
	return lines, haveSpread && haveTotal
}

// Ingest fetches odds for a sport and upserts games and their four picks into the open contest
func (i *OddsIngestor) Ingest(ctx context.Context, sport models.Sport) (*IngestSummary, error) {
	now := i.now()
	contest, err := i.contests.FindOpenForIngestion(ctx, sport, now)
	if err != nil {
		return nil, err
	}
	if contest == nil {
		return nil, fmt.Errorf("no open %s contest to ingest into: %w", sport, ErrNoOpenContest)
	}

	events, quota, err := i.source.GetOdds(ctx, sport.OddsAPIKey())
	if err != nil {
		i.metrics.IngestRun(string(sport), "odds", err)
		return nil, fmt.Errorf("failed to fetch %s odds: %w", sport, err)
	}

	summary := &IngestSummary{Sport: sport, ContestID: contest.ID, RemainingQuota: quota.Remaining}
	today := now.UTC().Format("2006-01-02")

	for _, event := range events {
		if event.CommenceTime.UTC().Format("2006-01-02") < today {
			i.logger.Debugf("Skipping %s @ %s - game from previous day", event.AwayTeam, event.HomeTeam)
			summary.GamesSkipped++
			continue
		}

		lines, ok := SelectLines(event)
		if !ok {
			i.logger.Debugf("Skipping %s @ %s - missing lines", event.AwayTeam, event.HomeTeam)
			summary.GamesSkipped++
			continue
		}

		created, err := i.upsertGame(ctx, contest, sport, event, lines, now)
		if err != nil {
			i.logger.Errorf("Failed to store %s @ %s: %v", event.AwayTeam, event.HomeTeam, err)
			continue
		}
		if created {
			summary.GamesCreated++
		}
		summary.GamesProcessed++
	}

	i.metrics.IngestRun(string(sport), "odds", nil)
	i.metrics.IngestGames(string(sport), summary.GamesProcessed, summary.GamesSkipped)
	i.logger.Infof("Processed %d %s games (%d new), skipped %d, quota remaining %s",
		summary.GamesProcessed, sport, summary.GamesCreated, summary.GamesSkipped, summary.RemainingQuota)
	return summary, nil
}

// gamePicks are the four sides offered on a game
func gamePicks(gameID int64, lines Lines) []*models.Pick {
	return []*models.Pick{
		{GameID: gameID, PickType: models.PickTypeSpread, Selection: models.SelectionHome, LineValue: lines.HomeSpread},
		{GameID: gameID, PickType: models.PickTypeSpread, Selection: models.SelectionAway, LineValue: lines.AwaySpread},
		{GameID: gameID, PickType: models.PickTypeTotal, Selection: models.SelectionOver, LineValue: lines.Total},
		{GameID: gameID, PickType: models.PickTypeTotal, Selection: models.SelectionUnder, LineValue: lines.Total},
	}
}

func (i *OddsIngestor) upsertGame(ctx context.Context, contest *models.Contest, sport models.Sport, event OddsEvent, lines Lines, now time.Time) (bool, error) {
	existing, err := i.games.FindByExternalID(ctx, contest.ID, event.ID)
	if err != nil {
		return false, err
	}

	if existing != nil {
		// Lines freeze once a game is off the board.
		if !existing.IsAvailable(now) {
			return false, nil
		}
		if err := i.games.UpdateLines(ctx, existing.ID, lines.HomeSpread, lines.AwaySpread, lines.Total, event.CommenceTime); err != nil {
			return false, err
		}
		return false, i.syncPicks(ctx, existing.ID, lines)
	}

	game := &models.Game{
		ExternalID:    event.ID,
		ContestID:     contest.ID,
		Sport:         sport,
		HomeTeam:      event.HomeTeam,
		AwayTeam:      event.AwayTeam,
		HomeTeamShort: i.teams.Abbreviation(sport, event.HomeTeam),
		AwayTeamShort: i.teams.Abbreviation(sport, event.AwayTeam),
		ScheduledTime: event.CommenceTime,
		HomeSpread:    lines.HomeSpread,
		AwaySpread:    lines.AwaySpread,
		TotalPoints:   lines.Total,
		Status:        models.GameStatusScheduled,
	}
	if err := i.games.Create(ctx, game); err != nil {
		if errors.Is(err, database.ErrDuplicateKey) {
			return false, nil
		}
		return false, err
	}

	if err := i.picks.CreateMany(ctx, gamePicks(game.ID, lines)); err != nil {
		return true, err
	}
	return true, nil
}

// syncPicks moves the lines of a game's stored picks and creates the sides
// that are missing, e.g. after a run that stored the game but not its picks
func (i *OddsIngestor) syncPicks(ctx context.Context, gameID int64, lines Lines) error {
	stored, err := i.picks.FindByGameIDs(ctx, []int64{gameID})
	if err != nil {
		return err
	}
	have := make(map[models.Selection]bool, len(stored))
	for _, p := range stored {
		have[p.Selection] = true
	}

	var missing []*models.Pick
	for _, p := range gamePicks(gameID, lines) {
		if !have[p.Selection] {
			missing = append(missing, p)
			continue
		}
		if err := i.picks.UpdateLine(ctx, gameID, p.PickType, p.Selection, p.LineValue); err != nil {
			return err
		}
	}
	if len(missing) == 0 {
		return nil
	}

	i.logger.Warnf("Game %d was missing %d picks, creating them", gameID, len(missing))
	if err := i.picks.CreateMany(ctx, missing); err != nil && !errors.Is(err, database.ErrDuplicateKey) {
		return err
	}
	return nil
}
