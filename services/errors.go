package services

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrInvalidCredentials is returned for a wrong email or password
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailTaken is returned when signing up with a registered email
	ErrEmailTaken = errors.New("email already registered")

	// ErrUsernameTaken is returned when another profile holds the username, ignoring case
	ErrUsernameTaken = errors.New("username already taken")

	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("not found")

	// ErrNoOpenContest is returned when a sport has no player-facing contest
	ErrNoOpenContest = errors.New("no open contest")

	// ErrContestNotReady is returned when finalizing a contest with unfinished games
	ErrContestNotReady = errors.New("contest has unfinished games")

	// ErrSubmissionRejected matches every *SubmissionError via errors.Is
	ErrSubmissionRejected = errors.New("submission rejected")
)

// SubmissionReason classifies a rejected submission
type SubmissionReason string

const (
	ReasonContestNotFound    SubmissionReason = "contest_not_found"
	ReasonContestLocked      SubmissionReason = "contest_locked"
	ReasonInvalidSlate       SubmissionReason = "invalid_slate"
	ReasonInsufficientTokens SubmissionReason = "insufficient_tokens"
	ReasonAlreadySubmitted   SubmissionReason = "already_submitted"
)

// SubmissionError describes why a slate was not accepted
type SubmissionError struct {
	Reason SubmissionReason
	Err    error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("submission rejected (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("submission rejected (%s)", e.Reason)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrSubmissionRejected) match
func (e *SubmissionError) Is(target error) bool {
	return target == ErrSubmissionRejected
}

// Message is the player-facing text for the rejection
func (e *SubmissionError) Message() string {
	switch e.Reason {
	case ReasonContestNotFound:
		return "Contest not found"
	case ReasonContestLocked:
		return "Contest is locked"
	case ReasonInsufficientTokens:
		return "Not enough tokens"
	case ReasonAlreadySubmitted:
		return "You have already submitted a slate for this contest"
	default:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "Invalid slate"
	}
}

func rejectSubmission(reason SubmissionReason, err error) error {
	return &SubmissionError{Reason: reason, Err: err}
}

// ProviderError is a failed call to an upstream data provider
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Transient reports whether a retry may succeed
func (e *ProviderError) Transient() bool {
	return e.Err != nil || e.StatusCode >= http.StatusInternalServerError
}

// RateLimitError is returned when the provider quota is exhausted
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limited, retry after %s", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("%s rate limited", e.Provider)
}

// AsRateLimitError unwraps a *RateLimitError
func AsRateLimitError(err error) (*RateLimitError, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}
