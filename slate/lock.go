package slate

import (
	"fmt"
	"sort"
	"time"

	"perfect-slate/models"
)

// LockBuffer is how many upcoming games must remain for the contest to stay open.
// The contest locks when the fifth-to-last scheduled game starts.
const LockBuffer = 5

// Status is the contest's lock state as seen by a slate
type Status string

const (
	StatusPreContest Status = "pre-contest"
	StatusActive     Status = "active"
	StatusLocked     Status = "locked"
)

// LockStatus is the result of ComputeLockStatus
type LockStatus struct {
	Status    Status        `json:"status"`
	Deadline  time.Time     `json:"deadline,omitempty"`
	Remaining time.Duration `json:"-"`
	Display   string        `json:"display"`
}

// RemainingSeconds is the countdown in whole seconds, never negative
func (l LockStatus) RemainingSeconds() int64 {
	if l.Remaining <= 0 {
		return 0
	}
	return int64(l.Remaining / time.Second)
}

// ComputeLockStatus derives the contest's lock state at now. Before the open
// time the contest is pre-contest and the countdown runs to the open time.
// After it, the deadline is the start of the fifth-to-last upcoming game; with
// four or fewer upcoming games the contest is locked.
func ComputeLockStatus(contest *models.Contest, games []models.Game, now time.Time) LockStatus {
	if contest != nil && now.Before(contest.OpenTime) {
		remaining := contest.OpenTime.Sub(now)
		return LockStatus{
			Status:    StatusPreContest,
			Deadline:  contest.OpenTime,
			Remaining: remaining,
			Display:   FormatRemaining(remaining),
		}
	}

	upcoming := make([]time.Time, 0, len(games))
	for _, g := range games {
		if g.Status == models.GameStatusScheduled && g.ScheduledTime.After(now) {
			upcoming = append(upcoming, g.ScheduledTime)
		}
	}
	if len(upcoming) < LockBuffer {
		return LockStatus{Status: StatusLocked, Display: "LOCKED"}
	}

	sort.Slice(upcoming, func(i, j int) bool { return upcoming[i].Before(upcoming[j]) })
	deadline := upcoming[len(upcoming)-LockBuffer]
	remaining := deadline.Sub(now)
	if remaining <= 0 {
		return LockStatus{Status: StatusLocked, Deadline: deadline, Display: "LOCKED"}
	}

	return LockStatus{
		Status:    StatusActive,
		Deadline:  deadline,
		Remaining: remaining,
		Display:   FormatRemaining(remaining),
	}
}

// FormatRemaining renders a countdown as "Hh Mm"
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "LOCKED"
	}
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
