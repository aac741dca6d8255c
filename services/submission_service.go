package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"perfect-slate/database"
	"perfect-slate/logging"
	"perfect-slate/metrics"
	"perfect-slate/models"
	"perfect-slate/slate"

	"github.com/go-playground/validator/v10"
)

// SubmissionService accepts finished slates. Token spend and the slate insert
// are the commit; entry counters and statistics are updated after it.
type SubmissionService struct {
	contests *ContestService
	picks    PickRepository
	slates   SlateRepository
	profiles *ProfileService
	drafts   *DraftService
	validate *validator.Validate
	metrics  *metrics.Recorder
	now      func() time.Time
	logger   *logging.Logger
}

func NewSubmissionService(contests *ContestService, picks PickRepository, slates SlateRepository, profiles *ProfileService, drafts *DraftService, recorder *metrics.Recorder) *SubmissionService {
	return &SubmissionService{
		contests: contests,
		picks:    picks,
		slates:   slates,
		profiles: profiles,
		drafts:   drafts,
		validate: validator.New(),
		metrics:  recorder,
		now:      time.Now,
		logger:   logging.WithPrefix("Submit"),
	}
}

// Submit stores the player's slate after re-checking every slate rule against
// the stored contest. A body without tokenGames uses the tokens held in the
// player's draft. Rejections are *SubmissionError.
func (s *SubmissionService) Submit(ctx context.Context, session *models.Session, req models.SubmissionRequest) (*models.Slate, error) {
	now := s.now()
	if !session.Valid(now) {
		return nil, ErrInvalidCredentials
	}

	sl, err := s.submit(ctx, session, req, now)
	if err != nil {
		var rejected *SubmissionError
		if errors.As(err, &rejected) {
			s.metrics.Submission(string(rejected.Reason))
			s.logger.Infof("Rejected slate from %s for contest %d: %v", session.UserID, req.ContestID, err)
		} else {
			s.metrics.Submission("error")
		}
		return nil, err
	}
	s.metrics.Submission("accepted")
	return sl, nil
}

func (s *SubmissionService) submit(ctx context.Context, session *models.Session, req models.SubmissionRequest, now time.Time) (*models.Slate, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, rejectSubmission(ReasonInvalidSlate, err)
	}

	data, err := s.contests.ByID(ctx, req.ContestID)
	if errors.Is(err, ErrNotFound) {
		return nil, rejectSubmission(ReasonContestNotFound, nil)
	}
	if err != nil {
		return nil, err
	}

	if !data.Contest.IsOpenForEntries() || data.Lock(now).Status != slate.StatusActive {
		return nil, rejectSubmission(ReasonContestLocked, nil)
	}

	existing, err := s.slates.FindByUserAndContest(ctx, session.UserID, req.ContestID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, rejectSubmission(ReasonAlreadySubmitted, nil)
	}

	if len(req.TokenGames) == 0 && req.TokensUsed > 0 && s.drafts != nil {
		tokenGames, err := s.drafts.TokenGames(ctx, session.UserID, req.ContestID)
		if err != nil {
			return nil, err
		}
		req.TokenGames = tokenGames
	}

	if err := slate.Validate(req, data.Catalog(), now); err != nil {
		return nil, rejectSubmission(ReasonInvalidSlate, err)
	}

	if _, err := s.profiles.GetOrCreate(ctx, session.UserID, session.Email, ""); err != nil {
		return nil, err
	}
	if err := s.profiles.SpendTokens(ctx, session.UserID, req.TokensUsed); err != nil {
		return nil, err
	}

	sl := &models.Slate{
		UserID:       session.UserID,
		ContestID:    req.ContestID,
		PickIDs:      append([]int64{}, req.Picks...),
		TokenGameIDs: append([]int64{}, req.TokenGames...),
		TokensUsed:   req.TokensUsed,
		Status:       models.SlateStatusPending,
		SubmittedAt:  now,
	}
	if err := s.slates.Insert(ctx, sl); err != nil {
		if refundErr := s.profiles.RefundTokens(ctx, session.UserID, req.TokensUsed); refundErr != nil {
			s.logger.Errorf("Failed to refund %d tokens to %s: %v", req.TokensUsed, session.UserID, refundErr)
		}
		if errors.Is(err, database.ErrDuplicateKey) {
			return nil, rejectSubmission(ReasonAlreadySubmitted, nil)
		}
		return nil, fmt.Errorf("failed to store slate: %w", err)
	}

	s.afterCommit(ctx, session.UserID, sl)
	s.logger.Infof("Accepted slate %d from %s for contest %d (%d picks, %d tokens)",
		sl.ID, session.UserID, sl.ContestID, len(sl.PickIDs), sl.TokensUsed)
	return sl, nil
}

// afterCommit updates counters that are derived from stored slates and can be rebuilt
func (s *SubmissionService) afterCommit(ctx context.Context, userID string, sl *models.Slate) {
	if err := s.picks.IncrementTimesSelected(ctx, sl.PickIDs); err != nil {
		s.logger.Warnf("Failed to count selections for slate %d: %v", sl.ID, err)
	}
	if err := s.contests.contests.RecordEntry(ctx, sl.ContestID, sl.TokensUsed); err != nil {
		s.logger.Warnf("Failed to record entry for contest %d: %v", sl.ContestID, err)
	}
	if err := s.profiles.RecordSubmission(ctx, userID, sl.TokensUsed); err != nil {
		s.logger.Warnf("Failed to record submission for %s: %v", userID, err)
	}
	if s.drafts != nil {
		if err := s.drafts.MarkSubmitted(ctx, userID, sl.ContestID); err != nil {
			s.logger.Warnf("Failed to mark draft submitted for %s: %v", userID, err)
		}
	}
}

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// History returns the player's most recent slates, newest first. A limit
// outside 1..100 falls back to the default or the maximum.
func (s *SubmissionService) History(ctx context.Context, session *models.Session, limit int64) ([]models.Slate, error) {
	if session == nil || !session.Valid(s.now()) {
		return nil, ErrInvalidCredentials
	}
	switch {
	case limit <= 0:
		limit = defaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}

	slates, err := s.slates.FindByUser(ctx, session.UserID, limit)
	if err != nil {
		return nil, err
	}
	if slates == nil {
		slates = []models.Slate{}
	}
	return slates, nil
}

// SubmissionResult renders a Submit outcome as the response body
func SubmissionResult(sl *models.Slate, err error) models.SubmissionResponse {
	if err == nil {
		return models.SubmissionResponse{Success: true, SlateID: sl.ID}
	}
	var rejected *SubmissionError
	if errors.As(err, &rejected) {
		return models.SubmissionResponse{Error: rejected.Message()}
	}
	if errors.Is(err, ErrInvalidCredentials) {
		return models.SubmissionResponse{Error: "Authentication required"}
	}
	return models.SubmissionResponse{Error: "Failed to submit slate"}
}
