package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"perfect-slate/logging"
	"perfect-slate/models"
	"perfect-slate/slate"

	"github.com/shopspring/decimal"
)

// ContestService serves contests with their games and picks
type ContestService struct {
	contests ContestRepository
	games    GameRepository
	picks    PickRepository
	now      func() time.Time
	logger   *logging.Logger
}

func NewContestService(contests ContestRepository, games GameRepository, picks PickRepository) *ContestService {
	return &ContestService{
		contests: contests,
		games:    games,
		picks:    picks,
		now:      time.Now,
		logger:   logging.WithPrefix("Contest"),
	}
}

// ContestData is a contest with its games and the picks of those games
type ContestData struct {
	Contest *models.Contest
	Games   []models.Game
	Picks   []models.Pick
}

// Catalog indexes the contest for slate validation
func (d *ContestData) Catalog() slate.Catalog {
	return slate.NewCatalog(d.Games, d.Picks)
}

// Lock computes the contest's lock state at now
func (d *ContestData) Lock(now time.Time) slate.LockStatus {
	return slate.ComputeLockStatus(d.Contest, d.Games, now)
}

// Game returns a game of the contest by ID
func (d *ContestData) Game(id int64) (*models.Game, bool) {
	for i := range d.Games {
		if d.Games[i].ID == id {
			return &d.Games[i], true
		}
	}
	return nil, false
}

// Pick returns a pick of the contest by ID
func (d *ContestData) Pick(id int64) (*models.Pick, bool) {
	for i := range d.Picks {
		if d.Picks[i].ID == id {
			return &d.Picks[i], true
		}
	}
	return nil, false
}

// CurrentContest returns the player-facing contest of a sport
func (s *ContestService) CurrentContest(ctx context.Context, sport models.Sport) (*models.Contest, error) {
	contest, err := s.contests.FindCurrent(ctx, sport)
	if err != nil {
		return nil, err
	}
	if contest == nil {
		return nil, fmt.Errorf("%s: %w", sport, ErrNoOpenContest)
	}
	return contest, nil
}

// Current loads the current contest of a sport with its games and picks
func (s *ContestService) Current(ctx context.Context, sport models.Sport) (*ContestData, error) {
	contest, err := s.CurrentContest(ctx, sport)
	if err != nil {
		return nil, err
	}
	return s.Load(ctx, contest)
}

// ByID loads a contest with its games and picks
func (s *ContestService) ByID(ctx context.Context, id int64) (*ContestData, error) {
	contest, err := s.contests.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if contest == nil {
		return nil, fmt.Errorf("contest %d: %w", id, ErrNotFound)
	}
	return s.Load(ctx, contest)
}

// Load fetches the games and picks of a contest
func (s *ContestService) Load(ctx context.Context, contest *models.Contest) (*ContestData, error) {
	games, err := s.games.FindByContest(ctx, contest.ID)
	if err != nil {
		return nil, err
	}

	gameIDs := make([]int64, len(games))
	for i, g := range games {
		gameIDs[i] = g.ID
	}
	picks, err := s.picks.FindByGameIDs(ctx, gameIDs)
	if err != nil {
		return nil, err
	}

	return &ContestData{Contest: contest, Games: games, Picks: picks}, nil
}

// PickOption is one selectable side on the board
type PickOption struct {
	PickID      int64             `json:"pickId"`
	PickType    models.PickType   `json:"pickType"`
	Selection   models.Selection  `json:"selection"`
	Line        float64           `json:"line"`
	DisplayText string            `json:"displayText"`
	Percentage  int               `json:"percentage"`
	Result      models.PickResult `json:"result"`
}

// GameCard is a game with its two markets
type GameCard struct {
	Game      models.Game  `json:"game"`
	Available bool         `json:"available"`
	Spread    []PickOption `json:"spread"`
	Total     []PickOption `json:"total"`
}

// Board is the player-facing view of a contest
type Board struct {
	Contest          *models.Contest  `json:"contest"`
	PrizePool        decimal.Decimal  `json:"prize_pool"`
	Lock             slate.LockStatus `json:"lock"`
	RemainingSeconds int64            `json:"remaining_seconds"`
	Games            []GameCard       `json:"games"`
}

// Board loads the current contest of a sport and renders its board
func (s *ContestService) Board(ctx context.Context, sport models.Sport) (*Board, error) {
	data, err := s.Current(ctx, sport)
	if err != nil {
		return nil, err
	}
	return BuildBoard(data, s.now()), nil
}

// BuildBoard groups picks per game with display lines and popularity
func BuildBoard(data *ContestData, now time.Time) *Board {
	byGame := make(map[int64][]models.Pick, len(data.Games))
	for _, p := range data.Picks {
		byGame[p.GameID] = append(byGame[p.GameID], p)
	}

	lock := data.Lock(now)
	board := &Board{
		Contest:          data.Contest,
		PrizePool:        data.Contest.PrizePool(),
		Lock:             lock,
		RemainingSeconds: lock.RemainingSeconds(),
		Games:            make([]GameCard, 0, len(data.Games)),
	}

	for i := range data.Games {
		game := &data.Games[i]
		card := GameCard{Game: *game, Available: game.IsAvailable(now)}

		picks := byGame[game.ID]
		spreadCounts := map[models.Selection]int{}
		totalCounts := map[models.Selection]int{}
		for _, p := range picks {
			if p.IsSpreadPick() {
				spreadCounts[p.Selection] = p.TimesSelected
			} else {
				totalCounts[p.Selection] = p.TimesSelected
			}
		}
		awayPct, homePct := Popularity(spreadCounts[models.SelectionAway], spreadCounts[models.SelectionHome])
		overPct, underPct := Popularity(totalCounts[models.SelectionOver], totalCounts[models.SelectionUnder])
		pct := map[models.Selection]int{
			models.SelectionAway:  awayPct,
			models.SelectionHome:  homePct,
			models.SelectionOver:  overPct,
			models.SelectionUnder: underPct,
		}

		for _, p := range picks {
			display := p
			display.LineValue = slate.ApplyNoTieLine(p.LineValue, p.Selection == models.SelectionUnder)
			opt := PickOption{
				PickID:      p.ID,
				PickType:    p.PickType,
				Selection:   p.Selection,
				Line:        display.LineValue,
				DisplayText: display.DisplayText(game),
				Percentage:  pct[p.Selection],
				Result:      p.Result,
			}
			if p.IsSpreadPick() {
				card.Spread = append(card.Spread, opt)
			} else {
				card.Total = append(card.Total, opt)
			}
		}
		board.Games = append(board.Games, card)
	}
	return board
}

// Popularity returns each side's share of selections in whole percent, 50/50 when nobody has picked
func Popularity(a, b int) (int, int) {
	total := a + b
	if total == 0 {
		return 50, 50
	}
	pa := int(math.Round(float64(a) / float64(total) * 100))
	pb := int(math.Round(float64(b) / float64(total) * 100))
	return pa, pb
}

// CreateContest opens a new contest, absorbing any prize money rolled over from contests without winners
func (s *ContestService) CreateContest(ctx context.Context, req models.CreateContestRequest) (*models.Contest, error) {
	if req.OpenTime.IsZero() {
		return nil, fmt.Errorf("open time is required")
	}
	base, err := decimal.NewFromString(req.BasePrizePool)
	if err != nil {
		return nil, fmt.Errorf("invalid base prize pool: %w", err)
	}
	sponsor := decimal.Zero
	if req.SponsorBonus != "" {
		if sponsor, err = decimal.NewFromString(req.SponsorBonus); err != nil {
			return nil, fmt.Errorf("invalid sponsor bonus: %w", err)
		}
	}
	if base.IsNegative() || sponsor.IsNegative() {
		return nil, fmt.Errorf("prize amounts must not be negative")
	}

	rollover, err := s.contests.TakePendingRollover(ctx, req.Sport)
	if err != nil {
		return nil, err
	}

	contest := &models.Contest{
		Sport:              req.Sport,
		SeasonID:           req.SeasonID,
		WeekNumber:         req.WeekNumber,
		OpenTime:           req.OpenTime,
		LockTime:           req.LockTime,
		CloseTime:          req.CloseTime,
		BasePrizePoolCents: models.DecimalToCents(base),
		RolloverCents:      rollover,
		SponsorBonusCents:  models.DecimalToCents(sponsor),
		Status:             models.ContestStatusOpen,
	}
	contest.ComputeFinalPrizePool()

	if err := s.contests.Create(ctx, contest); err != nil {
		return nil, err
	}
	s.logger.Infof("Opened %s contest %d (week %d, pool %s)",
		contest.Sport, contest.ID, contest.WeekNumber, contest.PrizePool().StringFixed(2))
	return contest, nil
}

// RefreshStatuses moves open contests with games to locked once their lock
// status says so, and locked contests to in_progress once a game has started. It returns the number changed.
func (s *ContestService) RefreshStatuses(ctx context.Context, sport models.Sport) (int, error) {
	contests, err := s.contests.FindByStatus(ctx, sport, models.ContestStatusOpen, models.ContestStatusLocked)
	if err != nil {
		return 0, err
	}

	now := s.now()
	changed := 0
	for i := range contests {
		contest := &contests[i]
		data, err := s.Load(ctx, contest)
		if err != nil {
			return changed, err
		}

		next := contest.Status
		switch contest.Status {
		case models.ContestStatusOpen:
			if len(data.Games) > 0 && data.Lock(now).Status == slate.StatusLocked {
				next = models.ContestStatusLocked
			}
		case models.ContestStatusLocked:
			for _, g := range data.Games {
				if g.IsInProgress() || g.IsCompleted() {
					next = models.ContestStatusInProgress
					break
				}
			}
		}
		if next == contest.Status {
			continue
		}
		if err := s.contests.UpdateStatus(ctx, contest.ID, next); err != nil {
			return changed, err
		}
		s.logger.Infof("Contest %d: %s -> %s", contest.ID, contest.Status, next)
		changed++
	}
	return changed, nil
}
