package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"perfect-slate/models"
)

func TestRecordSubmissionEarnsTokenEveryFiveSlates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.profileSvc.GetOrCreate(ctx, "u1", "a@example.com", ""); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 10; i++ {
		if err := f.profileSvc.RecordSubmission(ctx, "u1", 1); err != nil {
			t.Fatalf("RecordSubmission: %v", err)
		}
	}

	p, _ := f.profileSvc.Get(ctx, "u1")
	if p.TokenBalance != 3 || p.LifetimeTokensEarned != 3 {
		t.Fatalf("balance = %d, earned = %d, want 3/3", p.TokenBalance, p.LifetimeTokensEarned)
	}
	if p.LifetimeTokensUsed != 10 || p.TotalSlatesSubmitted != 10 || p.SlatesTowardNextToken != 0 {
		t.Fatalf("profile stats = %+v", p)
	}

	if err := f.profileSvc.RecordSubmission(ctx, "nobody", 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing profile: %v", err)
	}
}

func TestRecordResultStreaksAndBadBeats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.profileSvc.GetOrCreate(ctx, "u1", "a@example.com", ""); err != nil {
		t.Fatal(err)
	}

	results := []struct {
		correct int
		perfect bool
		payout  int64
	}{
		{10, true, 12_550},
		{10, true, 1_000},
		{9, false, 0},
		{8, false, 0},
	}
	for _, r := range results {
		if err := f.profileSvc.RecordResult(ctx, "u1", r.correct, r.perfect, r.payout); err != nil {
			t.Fatalf("RecordResult: %v", err)
		}
	}

	p, _ := f.profileSvc.Get(ctx, "u1")
	if p.PerfectSlates != 2 || p.TotalEarningsCents != 13_550 {
		t.Fatalf("perfect = %d, earnings = %d", p.PerfectSlates, p.TotalEarningsCents)
	}
	if p.LongestStreak != 2 || p.CurrentStreak != 0 {
		t.Fatalf("streak current = %d longest = %d", p.CurrentStreak, p.LongestStreak)
	}
	if p.BadBeats9 != 1 || p.BadBeats8 != 1 || p.WinPercentage != 50 {
		t.Fatalf("profile = %+v", p)
	}
}

// spendingProfiles spends a token from inside every statistics write, the way
// a submission to another contest can land while a slate is being recorded
type spendingProfiles struct {
	*memProfiles
}

func (s spendingProfiles) spend(id string) {
	s.memProfiles.SpendTokens(context.Background(), id, 1)
}

func (s spendingProfiles) FindByID(ctx context.Context, id string) (*models.UserProfile, error) {
	p, err := s.memProfiles.FindByID(ctx, id)
	s.spend(id)
	return p, err
}

func (s spendingProfiles) IncSubmission(ctx context.Context, id string, tokensUsed int, now time.Time) error {
	s.spend(id)
	return s.memProfiles.IncSubmission(ctx, id, tokensUsed, now)
}

func (s spendingProfiles) RecordResult(ctx context.Context, id string, o models.SlateOutcome, now time.Time) error {
	s.spend(id)
	return s.memProfiles.RecordResult(ctx, id, o, now)
}

func TestStatisticsKeepConcurrentTokenSpend(t *testing.T) {
	ctx := context.Background()

	t.Run("submission", func(t *testing.T) {
		repo := newMemProfiles()
		p := models.NewUserProfile("u1", "a@example.com", "", testNow)
		p.SlatesTowardNextToken = models.SlatesPerEarnedToken - 1
		repo.Create(ctx, p)

		svc := NewProfileService(spendingProfiles{repo})
		if err := svc.RecordSubmission(ctx, "u1", 0); err != nil {
			t.Fatalf("RecordSubmission: %v", err)
		}

		// One token spent, one earned.
		stored, _ := repo.FindByID(ctx, "u1")
		if stored.TokenBalance != 1 || stored.TotalSlatesSubmitted != 1 {
			t.Fatalf("balance = %d, submitted = %d, want 1/1", stored.TokenBalance, stored.TotalSlatesSubmitted)
		}
	})

	t.Run("result", func(t *testing.T) {
		repo := newMemProfiles()
		repo.Create(ctx, models.NewUserProfile("u1", "a@example.com", "", testNow))

		svc := NewProfileService(spendingProfiles{repo})
		if err := svc.RecordResult(ctx, "u1", 10, true, 500); err != nil {
			t.Fatalf("RecordResult: %v", err)
		}

		stored, _ := repo.FindByID(ctx, "u1")
		if stored.TokenBalance != 0 || stored.PerfectSlates != 1 {
			t.Fatalf("balance = %d, perfect = %d, want 0/1", stored.TokenBalance, stored.PerfectSlates)
		}
	})
}

func TestUsernamesAreUniqueIgnoringCase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.profileSvc.GetOrCreate(ctx, "u1", "bob@example.com", "")
	if err != nil || first.Username != "bob" {
		t.Fatalf("first profile = %+v, %v", first, err)
	}
	second, err := f.profileSvc.GetOrCreate(ctx, "u2", "Bob@other.example", "")
	if err != nil {
		t.Fatalf("second profile: %v", err)
	}
	if second.Username != models.FallbackUsername("Bob@other.example", "u2") {
		t.Fatalf("second username = %q", second.Username)
	}

	_, err = f.profileSvc.Update(ctx, "u2", models.ProfileUpdateRequest{Username: "BOB"})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("rename onto a taken username: %v", err)
	}
	if p, err := f.profileSvc.Update(ctx, "u1", models.ProfileUpdateRequest{Username: "BOB"}); err != nil || p.Username != "BOB" {
		t.Fatalf("recasing own username = %+v, %v", p, err)
	}

	now := testNow
	auth := newTestAuth(f, &now)
	_, err = auth.SignUp(ctx, models.SignUpRequest{Email: "carol@example.com", Password: "correct-horse", Username: "bob"})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("sign-up with taken username: %v", err)
	}
	if u, _ := f.users.GetUserByEmail(ctx, "carol@example.com"); u != nil {
		t.Fatal("account created despite taken username")
	}
}
