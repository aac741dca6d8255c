package models

import "time"

// SlateStatus is the graded state of a submitted slate
type SlateStatus string

const (
	SlateStatusPending SlateStatus = "pending"
	SlateStatusPerfect SlateStatus = "perfect"
	SlateStatusLost    SlateStatus = "lost"
)

// Slate is a user's submitted entry for a contest. One per (user, contest).
type Slate struct {
	ID           int64       `json:"id" bson:"_id"`
	UserID       string      `json:"user_id" bson:"user_id"`
	ContestID    int64       `json:"contest_id" bson:"contest_id"`
	PickIDs      []int64     `json:"pick_ids" bson:"pick_ids"`
	TokenGameIDs []int64     `json:"token_game_ids" bson:"token_game_ids"`
	TokensUsed   int         `json:"tokens_used" bson:"tokens_used"`
	CorrectCount int         `json:"correct_count" bson:"correct_count"`
	Status       SlateStatus `json:"status" bson:"status"`
	PayoutCents  int64       `json:"payout_cents" bson:"payout_cents"`
	SubmittedAt  time.Time   `json:"submitted_at" bson:"submitted_at"`
	GradedAt     *time.Time  `json:"graded_at,omitempty" bson:"graded_at,omitempty"`
}

// SubmissionRequest is the body of POST /api/submit-picks
type SubmissionRequest struct {
	ContestID  int64   `json:"contestId" validate:"required,gt=0"`
	Picks      []int64 `json:"picks" validate:"max=10,dive,gt=0"`
	TokenGames []int64 `json:"tokenGames,omitempty" validate:"max=5,dive,gt=0"`
	TokensUsed int     `json:"tokensUsed" validate:"gte=0,lte=5"`
}

// SubmissionResponse is the reply to a submission
type SubmissionResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	SlateID int64  `json:"slateId,omitempty"`
}
