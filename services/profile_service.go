package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"perfect-slate/database"
	"perfect-slate/logging"
	"perfect-slate/models"
)

// ProfileService owns profiles, the token wallet and slate statistics
type ProfileService struct {
	repo   ProfileRepository
	now    func() time.Time
	logger *logging.Logger
}

func NewProfileService(repo ProfileRepository) *ProfileService {
	return &ProfileService{
		repo:   repo,
		now:    time.Now,
		logger: logging.WithPrefix("Profile"),
	}
}

// GetOrCreate returns the user's profile, creating it with the starting token
// balance on first access. A username already held by someone else falls back
// to one derived from the email and user ID.
func (s *ProfileService) GetOrCreate(ctx context.Context, userID, email, username string) (*models.UserProfile, error) {
	profile, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile != nil {
		return profile, nil
	}

	profile = models.NewUserProfile(userID, email, username, s.now())
	err = s.repo.Create(ctx, profile)
	if errors.Is(err, database.ErrUsernameTaken) {
		s.logger.Infof("Username %q is taken, creating %s with a derived one", profile.Username, userID)
		profile.Username = models.FallbackUsername(email, userID)
		err = s.repo.Create(ctx, profile)
	}
	if err != nil {
		if !errors.Is(err, database.ErrDuplicateKey) {
			return nil, err
		}
		// Lost a first-access race; the other request's profile wins.
		return s.Get(ctx, userID)
	}
	s.logger.Infof("Created profile for %s (%s)", userID, profile.Username)
	return profile, nil
}

// UsernameAvailable reports whether no profile holds the username, ignoring case
func (s *ProfileService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	profile, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	return profile == nil, nil
}

// Get returns the profile or ErrNotFound
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	profile, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrNotFound
	}
	return profile, nil
}

// Update changes the editable fields and returns the stored profile
func (s *ProfileService) Update(ctx context.Context, userID string, req models.ProfileUpdateRequest) (*models.UserProfile, error) {
	if err := s.repo.UpdateDetails(ctx, userID, req); err != nil {
		switch {
		case errors.Is(err, database.ErrConditionNotMet):
			return nil, ErrNotFound
		case errors.Is(err, database.ErrUsernameTaken):
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return s.Get(ctx, userID)
}

// SpendTokens debits the balance, failing with ReasonInsufficientTokens when it is too low
func (s *ProfileService) SpendTokens(ctx context.Context, userID string, n int) error {
	if n == 0 {
		return nil
	}
	if err := s.repo.SpendTokens(ctx, userID, n); err != nil {
		if errors.Is(err, database.ErrConditionNotMet) {
			return rejectSubmission(ReasonInsufficientTokens, fmt.Errorf("need %d tokens", n))
		}
		return err
	}
	return nil
}

// RefundTokens returns tokens debited for a submission that was not stored
func (s *ProfileService) RefundTokens(ctx context.Context, userID string, n int) error {
	if n == 0 {
		return nil
	}
	return s.repo.RefundTokens(ctx, userID, n)
}

// RecordSubmission counts a submitted slate and credits a token for every
// SlatesPerEarnedToken submissions
func (s *ProfileService) RecordSubmission(ctx context.Context, userID string, tokensUsed int) error {
	now := s.now()
	if err := s.repo.IncSubmission(ctx, userID, tokensUsed, now); err != nil {
		if errors.Is(err, database.ErrConditionNotMet) {
			return ErrNotFound
		}
		return err
	}

	earned, err := s.repo.ClaimEarnedToken(ctx, userID, models.SlatesPerEarnedToken, now)
	if err != nil {
		return err
	}
	if earned {
		s.logger.Infof("User %s earned a token", userID)
	}
	return nil
}

// RecordResult applies a graded slate to the player's statistics
func (s *ProfileService) RecordResult(ctx context.Context, userID string, correct int, perfect bool, payoutCents int64) error {
	outcome := models.SlateOutcome{Correct: correct, Perfect: perfect, PayoutCents: payoutCents}
	if err := s.repo.RecordResult(ctx, userID, outcome, s.now()); err != nil {
		if errors.Is(err, database.ErrConditionNotMet) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
