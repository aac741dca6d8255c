package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContestStatus represents the lifecycle stage of a contest
type ContestStatus string

const (
	ContestStatusOpen       ContestStatus = "open"
	ContestStatusLocked     ContestStatus = "locked"
	ContestStatusInProgress ContestStatus = "in_progress"
	ContestStatusCompleted  ContestStatus = "completed"
)

// ActiveContestStatuses are the statuses shown to players
var ActiveContestStatuses = []ContestStatus{
	ContestStatusOpen,
	ContestStatusLocked,
	ContestStatusInProgress,
}

// Contest is one daily (or weekly) slate of games with a shared prize pool.
// Money is stored in cents.
type Contest struct {
	ID                   int64         `json:"id" bson:"_id"`
	Sport                Sport         `json:"sport" bson:"sport"`
	SeasonID             *int          `json:"season_id,omitempty" bson:"season_id,omitempty"`
	WeekNumber           int           `json:"week_number" bson:"week_number"`
	OpenTime             time.Time     `json:"open_time" bson:"open_time"`
	LockTime             time.Time     `json:"lock_time" bson:"lock_time"`
	CloseTime            time.Time     `json:"close_time" bson:"close_time"`
	BasePrizePoolCents   int64         `json:"base_prize_pool_cents" bson:"base_prize_pool_cents"`
	RolloverCents        int64         `json:"rollover_amount_cents" bson:"rollover_amount_cents"`
	SponsorBonusCents    int64         `json:"sponsor_bonus_cents" bson:"sponsor_bonus_cents"`
	FinalPrizePoolCents  int64         `json:"final_prize_pool_cents" bson:"final_prize_pool_cents"`
	PendingRolloverCents int64         `json:"-" bson:"pending_rollover_cents"`
	TotalEntries         int           `json:"total_entries" bson:"total_entries"`
	TotalWinners         int           `json:"total_winners" bson:"total_winners"`
	TokensUsedCount      int           `json:"tokens_used_count" bson:"tokens_used_count"`
	PerfectSlatesCount   int           `json:"perfect_slates_count" bson:"perfect_slates_count"`
	Status               ContestStatus `json:"status" bson:"status"`
	CreatedAt            time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at" bson:"updated_at"`
}

// IsOpenForEntries returns true while the contest accepts slates
func (c *Contest) IsOpenForEntries() bool {
	return c.Status == ContestStatusOpen
}

// IsCompleted returns true after finalization
func (c *Contest) IsCompleted() bool {
	return c.Status == ContestStatusCompleted
}

// ComputeFinalPrizePool sets the final pool to base + rollover + sponsor bonus
func (c *Contest) ComputeFinalPrizePool() {
	pool := CentsToDecimal(c.BasePrizePoolCents).
		Add(CentsToDecimal(c.RolloverCents)).
		Add(CentsToDecimal(c.SponsorBonusCents))
	c.FinalPrizePoolCents = DecimalToCents(pool)
}

// PrizePool returns the final prize pool in dollars
func (c *Contest) PrizePool() decimal.Decimal {
	return CentsToDecimal(c.FinalPrizePoolCents)
}

// CentsToDecimal converts integer cents into a dollar amount
func CentsToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// DecimalToCents converts a dollar amount into cents, truncating fractions of a cent
func DecimalToCents(d decimal.Decimal) int64 {
	return d.Shift(2).Truncate(0).IntPart()
}

// CreateContestRequest is the operator payload for opening a contest
type CreateContestRequest struct {
	Sport         Sport     `json:"sport" validate:"required,oneof=NFL NCAAF MLB"`
	SeasonID      *int      `json:"season_id,omitempty"`
	WeekNumber    int       `json:"week_number" validate:"gte=0"`
	OpenTime      time.Time `json:"open_time"`
	LockTime      time.Time `json:"lock_time" validate:"gtfield=OpenTime"`
	CloseTime     time.Time `json:"close_time" validate:"gtfield=LockTime"`
	BasePrizePool string    `json:"base_prize_pool" validate:"required,numeric"`
	SponsorBonus  string    `json:"sponsor_bonus,omitempty" validate:"omitempty,numeric"`
}
