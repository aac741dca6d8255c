package models

import (
	"strings"
	"time"
)

const (
	// StartingTokenBalance is granted to every new profile
	StartingTokenBalance = 1

	// SlatesPerEarnedToken is how many submitted slates earn one token
	SlatesPerEarnedToken = 5
)

// UserProfile holds a player's public profile, token wallet and slate statistics
type UserProfile struct {
	ID                    string    `json:"id" bson:"_id"`
	Email                 string    `json:"email" bson:"email"`
	Username              string    `json:"username" bson:"username"`
	FavoriteTeam          string    `json:"favorite_team,omitempty" bson:"favorite_team,omitempty"`
	FavoriteSport         string    `json:"favorite_sport,omitempty" bson:"favorite_sport,omitempty"`
	TotalEarningsCents    int64     `json:"total_earnings_cents" bson:"total_earnings_cents"`
	PerfectSlates         int       `json:"perfect_slates" bson:"perfect_slates"`
	TotalSlatesSubmitted  int       `json:"total_slates_submitted" bson:"total_slates_submitted"`
	SlatesGraded          int       `json:"slates_graded" bson:"slates_graded"`
	WinPercentage         float64   `json:"win_percentage" bson:"win_percentage"`
	CurrentStreak         int       `json:"current_streak" bson:"current_streak"`
	LongestStreak         int       `json:"longest_streak" bson:"longest_streak"`
	TokenBalance          int       `json:"token_balance" bson:"token_balance"`
	LifetimeTokensEarned  int       `json:"lifetime_tokens_earned" bson:"lifetime_tokens_earned"`
	LifetimeTokensUsed    int       `json:"lifetime_tokens_used" bson:"lifetime_tokens_used"`
	SlatesTowardNextToken int       `json:"slates_toward_next_token" bson:"slates_toward_next_token"`
	BadBeats9             int       `json:"bad_beats_9" bson:"bad_beats_9"`
	BadBeats8             int       `json:"bad_beats_8" bson:"bad_beats_8"`
	CreatedAt             time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt             time.Time `json:"updated_at" bson:"updated_at"`
}

// NewUserProfile builds a first-access profile. An empty username falls back to the email local part.
func NewUserProfile(userID, email, username string, now time.Time) *UserProfile {
	if strings.TrimSpace(username) == "" {
		username = UsernameFromEmail(email)
	}
	return &UserProfile{
		ID:                   userID,
		Email:                email,
		Username:             username,
		TokenBalance:         StartingTokenBalance,
		LifetimeTokensEarned: StartingTokenBalance,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// UsernameFromEmail returns the part of an email before '@'
func UsernameFromEmail(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}

// FallbackUsername is the email-derived username suffixed with the start of
// the user ID, for when the plain one belongs to someone else
func FallbackUsername(email, userID string) string {
	suffix := strings.ReplaceAll(userID, "-", "")
	if len(suffix) > 6 {
		suffix = suffix[:6]
	}
	return UsernameFromEmail(email) + "-" + suffix
}

// SlateOutcome is a graded slate as it counts toward the player's statistics.
// A perfect slate extends the streak; any other result resets it.
type SlateOutcome struct {
	Correct     int
	Perfect     bool
	PayoutCents int64
}

// EarningsCents is the payout credited to the player, zero unless perfect
func (o SlateOutcome) EarningsCents() int64 {
	if !o.Perfect {
		return 0
	}
	return o.PayoutCents
}

// BadBeats returns how many 9-of-10 and 8-of-10 near misses the outcome adds
func (o SlateOutcome) BadBeats() (nine, eight int) {
	if o.Perfect {
		return 0, 0
	}
	switch o.Correct {
	case 9:
		return 1, 0
	case 8:
		return 0, 1
	}
	return 0, 0
}

// ProfileUpdateRequest is the editable subset of a profile
type ProfileUpdateRequest struct {
	Username      string `json:"username" validate:"required,min=3,max=32"`
	FavoriteTeam  string `json:"favorite_team" validate:"max=64"`
	FavoriteSport string `json:"favorite_sport" validate:"omitempty,oneof=NFL NCAAF MLB"`
}
