package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"perfect-slate/models"
)

func TestCalculatePickResult(t *testing.T) {
	final := func(home, away int) *models.Game {
		return &models.Game{Status: models.GameStatusCompleted, HomeScore: intPtr(home), AwayScore: intPtr(away)}
	}

	tests := []struct {
		name      string
		selection models.Selection
		line      float64
		game      *models.Game
		want      models.PickResult
	}{
		{"home favorite covers", models.SelectionHome, -1.5, final(5, 2), models.PickResultWin},
		{"home favorite wins without covering", models.SelectionHome, -3.5, final(5, 2), models.PickResultLoss},
		{"away underdog covers in a loss", models.SelectionAway, 3.5, final(5, 2), models.PickResultWin},
		{"spread push", models.SelectionAway, 3, final(5, 2), models.PickResultPush},
		{"over", models.SelectionOver, 6.5, final(5, 2), models.PickResultWin},
		{"under", models.SelectionUnder, 6.5, final(5, 2), models.PickResultLoss},
		{"total push", models.SelectionUnder, 7, final(5, 2), models.PickResultPush},
		{"game still running", models.SelectionHome, -1.5,
			&models.Game{Status: models.GameStatusInProgress, HomeScore: intPtr(1), AwayScore: intPtr(0)}, models.PickResultPending},
		{"completed without scores", models.SelectionOver, 8.5,
			&models.Game{Status: models.GameStatusFinal}, models.PickResultPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pickType := models.PickTypeSpread
			if tt.selection == models.SelectionOver || tt.selection == models.SelectionUnder {
				pickType = models.PickTypeTotal
			}
			pick := &models.Pick{PickType: pickType, Selection: tt.selection, LineValue: tt.line}
			if got := CalculatePickResult(pick, tt.game); got != tt.want {
				t.Errorf("CalculatePickResult = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSplitPrizePool(t *testing.T) {
	tests := []struct {
		pool    int64
		winners int
		want    int64
	}{
		{100000, 1, 100000},
		{100000, 3, 33333},
		{5, 2, 2},
		{100000, 0, 0},
		{0, 4, 0},
	}
	for _, tt := range tests {
		if got := SplitPrizePool(tt.pool, tt.winners); got != tt.want {
			t.Errorf("SplitPrizePool(%d, %d) = %d, want %d", tt.pool, tt.winners, got, tt.want)
		}
	}
}

func TestGradeSlate(t *testing.T) {
	results := map[int64]models.PickResult{
		1: models.PickResultWin, 2: models.PickResultWin, 3: models.PickResultPush,
		4: models.PickResultWin, 5: models.PickResultWin, 6: models.PickResultWin,
		7: models.PickResultWin, 8: models.PickResultWin, 9: models.PickResultWin,
	}

	perfect := &models.Slate{PickIDs: []int64{1, 2, 4, 5, 6, 7, 8, 9}, TokenGameIDs: []int64{100, 101}}
	GradeSlate(perfect, results)
	if perfect.CorrectCount != 10 || perfect.Status != models.SlateStatusPerfect {
		t.Errorf("perfect slate graded %d/%s", perfect.CorrectCount, perfect.Status)
	}

	pushed := &models.Slate{PickIDs: []int64{1, 2, 3, 4, 5, 6, 7, 8, 9}, TokenGameIDs: []int64{100}}
	GradeSlate(pushed, results)
	if pushed.CorrectCount != 9 || pushed.Status != models.SlateStatusLost {
		t.Errorf("slate with a push graded %d/%s", pushed.CorrectCount, pushed.Status)
	}
}

// finishGames completes every seeded game with the same score
func finishGames(t *testing.T, f *fixture, games []seededGame, home, away int) {
	t.Helper()
	for _, g := range games {
		if err := f.games.UpdateScore(context.Background(), g.game.ID, models.GameStatusCompleted, intPtr(home), intPtr(away)); err != nil {
			t.Fatalf("finish game %d: %v", g.game.ID, err)
		}
	}
}

func insertSlate(t *testing.T, f *fixture, userID string, contestID int64, picks []int64) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.profileSvc.GetOrCreate(ctx, userID, userID+"@example.com", ""); err != nil {
		t.Fatalf("profile: %v", err)
	}
	sl := &models.Slate{UserID: userID, ContestID: contestID, PickIDs: picks, Status: models.SlateStatusPending, SubmittedAt: testNow}
	if err := f.slates.Insert(ctx, sl); err != nil {
		t.Fatalf("insert slate: %v", err)
	}
}

func TestGradeGame(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, games := f.seedContest(t, 1)

	if _, err := f.grading.GradeGame(ctx, games[0].game.ID); !errors.Is(err, ErrContestNotReady) {
		t.Fatalf("grading an unfinished game: err = %v", err)
	}

	finishGames(t, f, games, 3, 3)
	results, err := f.grading.GradeGame(ctx, games[0].game.ID)
	if err != nil {
		t.Fatalf("GradeGame: %v", err)
	}

	want := map[int64]models.PickResult{
		games[0].home:  models.PickResultLoss,
		games[0].away:  models.PickResultWin,
		games[0].over:  models.PickResultLoss,
		games[0].under: models.PickResultWin,
	}
	for id, result := range want {
		if results[id] != result {
			t.Errorf("pick %d = %s, want %s", id, results[id], result)
		}
		if stored := f.picks.get(id).Result; stored != result {
			t.Errorf("stored pick %d = %s, want %s", id, stored, result)
		}
	}

	if _, err := f.grading.GradeGame(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown game: err = %v", err)
	}
}

func TestFinalizeContestPaysPerfectSlates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	contest, games := f.seedContest(t, 10)

	var allHome, nineHome []int64
	for i, g := range games {
		allHome = append(allHome, g.home)
		if i < 9 {
			nineHome = append(nineHome, g.home)
		} else {
			nineHome = append(nineHome, g.over)
		}
	}
	insertSlate(t, f, "winner", contest.ID, allHome)
	insertSlate(t, f, "close", contest.ID, nineHome)

	// 5-2: home -1.5 covers, 7 runs stays under 8.5.
	finishGames(t, f, games, 5, 2)

	summary, err := f.grading.FinalizeContest(ctx, contest.ID)
	if err != nil {
		t.Fatalf("FinalizeContest: %v", err)
	}
	if summary.Entries != 2 || summary.Winners != 1 || summary.PayoutCents != 100000 || summary.RolledOverCents != 0 {
		t.Fatalf("summary = %+v", summary)
	}

	stored, _ := f.contests.FindByID(ctx, contest.ID)
	if stored.Status != models.ContestStatusCompleted || stored.TotalWinners != 1 || stored.PendingRolloverCents != 0 {
		t.Fatalf("contest after finalize = %+v", stored)
	}

	winner, _ := f.slates.FindByUserAndContest(ctx, "winner", contest.ID)
	if winner.Status != models.SlateStatusPerfect || winner.PayoutCents != 100000 || winner.GradedAt == nil {
		t.Errorf("winning slate = %+v", winner)
	}
	loser, _ := f.slates.FindByUserAndContest(ctx, "close", contest.ID)
	if loser.Status != models.SlateStatusLost || loser.CorrectCount != 9 || loser.PayoutCents != 0 {
		t.Errorf("losing slate = %+v", loser)
	}

	wp, _ := f.profileSvc.Get(ctx, "winner")
	if wp.PerfectSlates != 1 || wp.TotalEarningsCents != 100000 || wp.CurrentStreak != 1 {
		t.Errorf("winner profile = %+v", wp)
	}
	lp, _ := f.profileSvc.Get(ctx, "close")
	if lp.BadBeats9 != 1 || lp.CurrentStreak != 0 {
		t.Errorf("loser profile = %+v", lp)
	}

	again, err := f.grading.FinalizeContest(ctx, contest.ID)
	if err != nil || !again.AlreadyFinalized {
		t.Fatalf("second finalize = %+v, %v", again, err)
	}
}

func TestFinalizeContestRollsOverUnwonPool(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	contest, games := f.seedContest(t, 10)

	var picks []int64
	for _, g := range games {
		picks = append(picks, g.over)
	}
	insertSlate(t, f, "u1", contest.ID, picks)
	finishGames(t, f, games, 5, 2)

	summary, err := f.grading.FinalizeContest(ctx, contest.ID)
	if err != nil {
		t.Fatalf("FinalizeContest: %v", err)
	}
	if summary.Winners != 0 || summary.RolledOverCents != 100000 {
		t.Fatalf("summary = %+v", summary)
	}

	next, err := f.contestSvc.CreateContest(ctx, models.CreateContestRequest{
		Sport:         models.SportMLB,
		OpenTime:      testNow.Add(24 * time.Hour),
		LockTime:      testNow.Add(30 * time.Hour),
		CloseTime:     testNow.Add(48 * time.Hour),
		BasePrizePool: "500.00",
		SponsorBonus:  "25.50",
	})
	if err != nil {
		t.Fatalf("CreateContest: %v", err)
	}
	if next.RolloverCents != 100000 || next.FinalPrizePoolCents != 152550 {
		t.Fatalf("next contest pool = rollover %d final %d", next.RolloverCents, next.FinalPrizePoolCents)
	}

	// The rollover is claimed once.
	third, err := f.contestSvc.CreateContest(ctx, models.CreateContestRequest{
		Sport:         models.SportMLB,
		OpenTime:      testNow,
		LockTime:      testNow.Add(time.Hour),
		CloseTime:     testNow.Add(2 * time.Hour),
		BasePrizePool: "10",
	})
	if err != nil {
		t.Fatalf("CreateContest: %v", err)
	}
	if third.RolloverCents != 0 || third.FinalPrizePoolCents != 1000 {
		t.Fatalf("third contest pool = rollover %d final %d", third.RolloverCents, third.FinalPrizePoolCents)
	}
}

func TestFinalizeContestWaitsForEveryGame(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	contest, games := f.seedContest(t, 3)
	finishGames(t, f, games[:2], 4, 1)

	if _, err := f.grading.FinalizeContest(ctx, contest.ID); !errors.Is(err, ErrContestNotReady) {
		t.Fatalf("err = %v, want ErrContestNotReady", err)
	}
	if _, err := f.grading.FinalizeContest(ctx, 404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
