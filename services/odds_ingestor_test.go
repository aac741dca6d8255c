package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"perfect-slate/models"
)

type stubOddsSource struct {
	events []OddsEvent
	err    error
	calls  int
}

func (s *stubOddsSource) GetOdds(ctx context.Context, sportKey string) ([]OddsEvent, Quota, error) {
	s.calls++
	return s.events, Quota{Remaining: "480", Used: "20"}, s.err
}

func point(v float64) *float64 { return &v }

func bookmaker(key, home, away string, homeSpread, awaySpread, total float64) OddsBookmaker {
	return OddsBookmaker{
		Key: key,
		Markets: []OddsMarket{
			{Key: "spreads", Outcomes: []OddsOutcome{
				{Name: home, Point: point(homeSpread)},
				{Name: away, Point: point(awaySpread)},
			}},
			{Key: "totals", Outcomes: []OddsOutcome{
				{Name: "Over", Point: point(total)},
				{Name: "Under", Point: point(total)},
			}},
		},
	}
}

func TestSelectLines(t *testing.T) {
	home, away := "New York Yankees", "Boston Red Sox"

	t.Run("last bookmaker wins", func(t *testing.T) {
		event := OddsEvent{HomeTeam: home, AwayTeam: away, Bookmakers: []OddsBookmaker{
			bookmaker("fanduel", home, away, -1.5, 1.5, 8.5),
			bookmaker("draftkings", home, away, -2.5, 2.5, 9.5),
		}}
		lines, ok := SelectLines(event)
		if !ok {
			t.Fatal("expected lines")
		}
		if lines.HomeSpread != -2.5 || lines.AwaySpread != 2.5 || lines.Total != 9.5 {
			t.Fatalf("lines = %+v", lines)
		}
	})

	t.Run("whole numbers move up half a point", func(t *testing.T) {
		event := OddsEvent{HomeTeam: home, AwayTeam: away, Bookmakers: []OddsBookmaker{
			bookmaker("fanduel", home, away, -2, 2, 8),
		}}
		lines, ok := SelectLines(event)
		if !ok {
			t.Fatal("expected lines")
		}
		if lines.HomeSpread != -1.5 || lines.AwaySpread != 2.5 || lines.Total != 8.5 {
			t.Fatalf("lines = %+v", lines)
		}
	})

	t.Run("missing total", func(t *testing.T) {
		b := bookmaker("fanduel", home, away, -1.5, 1.5, 8.5)
		b.Markets = b.Markets[:1]
		if _, ok := SelectLines(OddsEvent{HomeTeam: home, AwayTeam: away, Bookmakers: []OddsBookmaker{b}}); ok {
			t.Fatal("expected no lines without a total")
		}
	})

	t.Run("spread outcome for another team", func(t *testing.T) {
		b := bookmaker("fanduel", home, "Tampa Bay Rays", -1.5, 1.5, 8.5)
		if _, ok := SelectLines(OddsEvent{HomeTeam: home, AwayTeam: away, Bookmakers: []OddsBookmaker{b}}); ok {
			t.Fatal("expected no lines when a side is missing")
		}
	})
}

func newTestIngestor(f *fixture, source OddsSource, now time.Time) *OddsIngestor {
	i := NewOddsIngestor(source, f.contests, f.games, f.picks, NewTeamDirectory(), nil)
	i.now = func() time.Time { return now }
	return i
}

func TestIngestCreatesAndUpdatesGames(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	contest, _ := f.seedContest(t, 0)

	home, away := "New York Yankees", "Boston Red Sox"
	start := testNow.Add(3 * time.Hour)
	source := &stubOddsSource{events: []OddsEvent{
		{ID: "evt-1", CommenceTime: start, HomeTeam: home, AwayTeam: away,
			Bookmakers: []OddsBookmaker{bookmaker("fanduel", home, away, -1.5, 1.5, 8)}},
		{ID: "evt-old", CommenceTime: testNow.Add(-24 * time.Hour), HomeTeam: home, AwayTeam: away,
			Bookmakers: []OddsBookmaker{bookmaker("fanduel", home, away, -1.5, 1.5, 8)}},
		{ID: "evt-no-lines", CommenceTime: start, HomeTeam: home, AwayTeam: away},
	}}
	ingestor := newTestIngestor(f, source, testNow)

	summary, err := ingestor.Ingest(ctx, models.SportMLB)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if summary.ContestID != contest.ID || summary.GamesProcessed != 1 || summary.GamesCreated != 1 || summary.GamesSkipped != 2 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.RemainingQuota != "480" {
		t.Errorf("quota = %q", summary.RemainingQuota)
	}

	game, _ := f.games.FindByExternalID(ctx, contest.ID, "evt-1")
	if game == nil {
		t.Fatal("game not stored")
	}
	if game.HomeTeamShort != "NYY" || game.AwayTeamShort != "BOS" || game.TotalPoints != 8.5 {
		t.Fatalf("game = %+v", game)
	}
	picks, _ := f.picks.FindByGameIDs(ctx, []int64{game.ID})
	if len(picks) != 4 {
		t.Fatalf("picks = %d, want 4", len(picks))
	}

	// A second run moves the lines instead of adding another game.
	source.events = source.events[:1]
	source.events[0].Bookmakers = []OddsBookmaker{bookmaker("fanduel", home, away, -2.5, 2.5, 9.5)}
	summary, err = ingestor.Ingest(ctx, models.SportMLB)
	if err != nil {
		t.Fatalf("second Ingest: %v", err)
	}
	if summary.GamesCreated != 0 || summary.GamesProcessed != 1 {
		t.Fatalf("second summary = %+v", summary)
	}
	games, _ := f.games.FindByContest(ctx, contest.ID)
	if len(games) != 1 || games[0].HomeSpread != -2.5 || games[0].TotalPoints != 9.5 {
		t.Fatalf("games after update = %+v", games)
	}
	picks, _ = f.picks.FindByGameIDs(ctx, []int64{game.ID})
	for _, p := range picks {
		want := map[models.Selection]float64{
			models.SelectionHome: -2.5, models.SelectionAway: 2.5,
			models.SelectionOver: 9.5, models.SelectionUnder: 9.5,
		}[p.Selection]
		if p.LineValue != want {
			t.Errorf("%s line = %v, want %v", p.Selection, p.LineValue, want)
		}
	}
}

func TestIngestFreezesStartedGames(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	contest, _ := f.seedContest(t, 0)

	home, away := "New York Yankees", "Boston Red Sox"
	start := testNow.Add(time.Hour)
	source := &stubOddsSource{events: []OddsEvent{
		{ID: "evt-1", CommenceTime: start, HomeTeam: home, AwayTeam: away,
			Bookmakers: []OddsBookmaker{bookmaker("fanduel", home, away, -1.5, 1.5, 8.5)}},
	}}
	if _, err := newTestIngestor(f, source, testNow).Ingest(ctx, models.SportMLB); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	source.events[0].Bookmakers = []OddsBookmaker{bookmaker("fanduel", home, away, -3.5, 3.5, 11.5)}
	if _, err := newTestIngestor(f, source, start.Add(time.Minute)).Ingest(ctx, models.SportMLB); err != nil {
		t.Fatalf("Ingest after start: %v", err)
	}

	game, _ := f.games.FindByExternalID(ctx, contest.ID, "evt-1")
	if game.HomeSpread != -1.5 || game.TotalPoints != 8.5 {
		t.Fatalf("lines moved after start: %+v", game)
	}
}

func TestIngestErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("no open contest", func(t *testing.T) {
		f := newFixture(t)
		source := &stubOddsSource{}
		_, err := newTestIngestor(f, source, testNow).Ingest(ctx, models.SportNFL)
		if !errors.Is(err, ErrNoOpenContest) {
			t.Fatalf("err = %v", err)
		}
		if source.calls != 0 {
			t.Fatal("provider called without a contest")
		}
	})

	t.Run("provider rate limited", func(t *testing.T) {
		f := newFixture(t)
		f.seedContest(t, 0)
		source := &stubOddsSource{err: &RateLimitError{Provider: oddsProvider, RetryAfter: time.Minute}}
		_, err := newTestIngestor(f, source, testNow).Ingest(ctx, models.SportMLB)
		if _, ok := AsRateLimitError(err); !ok {
			t.Fatalf("err = %v, want rate limit", err)
		}
	})
}

// failingPicks fails the first n CreateMany calls
type failingPicks struct {
	*memPicks
	n int
}

func (p *failingPicks) CreateMany(ctx context.Context, picks []*models.Pick) error {
	if p.n > 0 {
		p.n--
		return errors.New("write conflict")
	}
	return p.memPicks.CreateMany(ctx, picks)
}

func TestIngestRestoresMissingPicks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	contest, _ := f.seedContest(t, 0)

	home, away := "New York Yankees", "Boston Red Sox"
	source := &stubOddsSource{events: []OddsEvent{
		{ID: "evt-1", CommenceTime: testNow.Add(3 * time.Hour), HomeTeam: home, AwayTeam: away,
			Bookmakers: []OddsBookmaker{bookmaker("fanduel", home, away, -1.5, 1.5, 8.5)}},
	}}
	ingestor := NewOddsIngestor(source, f.contests, f.games, &failingPicks{memPicks: f.picks, n: 1}, NewTeamDirectory(), nil)
	ingestor.now = func() time.Time { return testNow }

	for run := 0; run < 3; run++ {
		if _, err := ingestor.Ingest(ctx, models.SportMLB); err != nil {
			t.Fatalf("Ingest %d: %v", run, err)
		}
	}

	games, _ := f.games.FindByContest(ctx, contest.ID)
	if len(games) != 1 {
		t.Fatalf("games = %d, want 1", len(games))
	}
	picks, _ := f.picks.FindByGameIDs(ctx, []int64{games[0].ID})
	if len(picks) != 4 {
		t.Fatalf("picks = %d, want 4", len(picks))
	}
	seen := map[models.Selection]bool{}
	for _, p := range picks {
		if seen[p.Selection] {
			t.Fatalf("duplicate %s pick", p.Selection)
		}
		seen[p.Selection] = true
	}
}
