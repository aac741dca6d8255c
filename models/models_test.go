package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNewUserProfileDefaults(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := NewUserProfile("u1", "slugger@example.com", "", now)

	if p.Username != "slugger" {
		t.Fatalf("username = %q, want slugger", p.Username)
	}
	if p.TokenBalance != 1 || p.LifetimeTokensEarned != 1 {
		t.Fatalf("token balance = %d, earned = %d", p.TokenBalance, p.LifetimeTokensEarned)
	}

	named := NewUserProfile("u2", "x@example.com", "ace", now)
	if named.Username != "ace" {
		t.Fatalf("explicit username overwritten: %q", named.Username)
	}
}

func TestSlateOutcome(t *testing.T) {
	tests := []struct {
		name        string
		outcome     SlateOutcome
		earnings    int64
		nine, eight int
	}{
		{"perfect", SlateOutcome{Correct: 10, Perfect: true, PayoutCents: 12_550}, 12_550, 0, 0},
		{"nine", SlateOutcome{Correct: 9, PayoutCents: 500}, 0, 1, 0},
		{"eight", SlateOutcome{Correct: 8}, 0, 0, 1},
		{"seven", SlateOutcome{Correct: 7}, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.outcome.EarningsCents(); got != tt.earnings {
				t.Errorf("earnings = %d, want %d", got, tt.earnings)
			}
			nine, eight := tt.outcome.BadBeats()
			if nine != tt.nine || eight != tt.eight {
				t.Errorf("bad beats = %d/%d, want %d/%d", nine, eight, tt.nine, tt.eight)
			}
		})
	}
}

func TestFallbackUsername(t *testing.T) {
	got := FallbackUsername("slugger@example.com", "3f2a9c1e-77aa-4b4b-9d9d-000000000000")
	if got != "slugger-3f2a9c" {
		t.Fatalf("FallbackUsername = %q", got)
	}
}

func TestContestPrizePool(t *testing.T) {
	c := &Contest{BasePrizePoolCents: 100_000, RolloverCents: 2_550, SponsorBonusCents: 5}
	c.ComputeFinalPrizePool()

	if c.FinalPrizePoolCents != 102_555 {
		t.Fatalf("final pool = %d cents", c.FinalPrizePoolCents)
	}
	if !c.PrizePool().Equal(decimal.RequireFromString("1025.55")) {
		t.Fatalf("pool = %s", c.PrizePool())
	}
	if got := DecimalToCents(decimal.RequireFromString("10.129")); got != 1012 {
		t.Fatalf("DecimalToCents truncation = %d, want 1012", got)
	}
}

func TestPickDisplayText(t *testing.T) {
	g := &Game{HomeTeamShort: "NYY", AwayTeamShort: "BOS"}
	tests := []struct {
		pick Pick
		want string
	}{
		{Pick{Selection: SelectionHome, PickType: PickTypeSpread, LineValue: -1.5}, "NYY -1.5"},
		{Pick{Selection: SelectionAway, PickType: PickTypeSpread, LineValue: 1.5}, "BOS +1.5"},
		{Pick{Selection: SelectionOver, PickType: PickTypeTotal, LineValue: 8.5}, "Over 8.5"},
		{Pick{Selection: SelectionUnder, PickType: PickTypeTotal, LineValue: 9}, "Under 9"},
	}
	for _, tt := range tests {
		if got := tt.pick.DisplayText(g); got != tt.want {
			t.Fatalf("DisplayText = %q, want %q", got, tt.want)
		}
	}
}

func TestParseSportAndAvailability(t *testing.T) {
	if s, err := ParseSport(" mlb "); err != nil || s != SportMLB {
		t.Fatalf("ParseSport = %q, %v", s, err)
	}
	if _, err := ParseSport("cricket"); err == nil {
		t.Fatal("expected error for unknown sport")
	}
	if SportNFL.OddsAPIKey() != "americanfootball_nfl" {
		t.Fatalf("odds key = %s", SportNFL.OddsAPIKey())
	}

	now := time.Now()
	g := Game{Status: GameStatusScheduled, ScheduledTime: now.Add(time.Hour)}
	if !g.IsAvailable(now) {
		t.Fatal("future scheduled game should be available")
	}
	g.ScheduledTime = now.Add(-time.Minute)
	if g.IsAvailable(now) {
		t.Fatal("started game should not be available")
	}
	g.Status = GameStatusFinal
	if !g.IsCompleted() {
		t.Fatal("final is terminal")
	}
}
