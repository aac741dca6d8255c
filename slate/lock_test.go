package slate

import (
	"testing"
	"time"

	"perfect-slate/models"
)

func gamesAt(now time.Time, offsets ...time.Duration) []models.Game {
	games := make([]models.Game, len(offsets))
	for i, off := range offsets {
		games[i] = models.Game{
			ID:            int64(i + 1),
			Status:        models.GameStatusScheduled,
			ScheduledTime: now.Add(off),
		}
	}
	return games
}

func TestComputeLockStatus(t *testing.T) {
	now := time.Date(2025, 7, 4, 15, 0, 0, 0, time.UTC)
	contest := &models.Contest{OpenTime: now.Add(-time.Hour)}

	t.Run("before open time", func(t *testing.T) {
		early := &models.Contest{OpenTime: now.Add(90 * time.Minute)}
		got := ComputeLockStatus(early, gamesAt(now, time.Hour), now)
		if got.Status != StatusPreContest {
			t.Fatalf("status = %s, want pre-contest", got.Status)
		}
		if got.Remaining != 90*time.Minute || got.Display != "1h 30m" {
			t.Fatalf("remaining = %s display = %q", got.Remaining, got.Display)
		}
	})

	t.Run("four upcoming games locks", func(t *testing.T) {
		games := gamesAt(now, time.Hour, 2*time.Hour, 3*time.Hour, 4*time.Hour)
		if got := ComputeLockStatus(contest, games, now); got.Status != StatusLocked {
			t.Fatalf("status = %s, want locked", got.Status)
		}
	})

	t.Run("six upcoming games stays active until fifth from last", func(t *testing.T) {
		// Deliberately unsorted.
		games := gamesAt(now, 6*time.Hour, time.Hour, 3*time.Hour, 2*time.Hour, 5*time.Hour, 4*time.Hour)
		got := ComputeLockStatus(contest, games, now)
		if got.Status != StatusActive {
			t.Fatalf("status = %s, want active", got.Status)
		}
		want := now.Add(2 * time.Hour)
		if !got.Deadline.Equal(want) {
			t.Fatalf("deadline = %s, want %s", got.Deadline, want)
		}
		if got.RemainingSeconds() != 7200 {
			t.Fatalf("remaining seconds = %d", got.RemainingSeconds())
		}
	})

	t.Run("started and finished games do not count", func(t *testing.T) {
		games := gamesAt(now, -time.Hour, time.Hour, 2*time.Hour, 3*time.Hour, 4*time.Hour, 5*time.Hour)
		games[1].Status = models.GameStatusInProgress
		if got := ComputeLockStatus(contest, games, now); got.Status != StatusLocked {
			t.Fatalf("status = %s, want locked with four upcoming", got.Status)
		}
	})

	t.Run("nil contest skips the open check", func(t *testing.T) {
		games := gamesAt(now, time.Hour, 2*time.Hour, 3*time.Hour, 4*time.Hour, 5*time.Hour)
		got := ComputeLockStatus(nil, games, now)
		if got.Status != StatusActive || !got.Deadline.Equal(now.Add(time.Hour)) {
			t.Fatalf("got %+v", got)
		}
	})
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "LOCKED"},
		{-time.Minute, "LOCKED"},
		{59 * time.Second, "0h 0m"},
		{25*time.Hour + 5*time.Minute, "25h 5m"},
	}
	for _, tt := range tests {
		if got := FormatRemaining(tt.in); got != tt.want {
			t.Fatalf("FormatRemaining(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestApplyNoTieLine(t *testing.T) {
	tests := []struct {
		in      float64
		isUnder bool
		want    float64
	}{
		{4, false, 4.5},
		{4, true, 4.5},
		{3.5, false, 3.5},
		{-2, false, -1.5},
		{-2.5, true, -2.5},
		{0, false, 0.5},
	}
	for _, tt := range tests {
		if got := ApplyNoTieLine(tt.in, tt.isUnder); got != tt.want {
			t.Fatalf("ApplyNoTieLine(%v, %t) = %v, want %v", tt.in, tt.isUnder, got, tt.want)
		}
	}
}
