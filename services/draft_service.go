package services

import (
	"context"
	"fmt"
	"time"

	"perfect-slate/logging"
	"perfect-slate/models"
	"perfect-slate/slate"
)

// DraftService keeps each player's in-progress slate on the server. Every
// action loads the draft, re-applies the current lock state and game
// availability, runs the builder operation and saves the result.
// Concurrent actions on one draft are last-writer-wins.
type DraftService struct {
	contests *ContestService
	store    DraftStore
	slates   SlateRepository
	now      func() time.Time
	logger   *logging.Logger
}

// DraftView is the player's draft as the UI renders it
type DraftView struct {
	ContestID     int64                     `json:"contestId"`
	Picks         []models.UserPick         `json:"picks"`
	TokenGames    []int64                   `json:"tokenGames"`
	Units         int                       `json:"units"`
	MaxUnits      int                       `json:"maxUnits"`
	Submitted     bool                      `json:"submitted"`
	ReadyToSubmit bool                      `json:"readyToSubmit"`
	Lock          slate.LockStatus          `json:"lock"`
	Submission    *models.SubmissionRequest `json:"submission,omitempty"`
}

// DraftActionResponse is a draft action's result plus the draft after it
type DraftActionResponse struct {
	DraftView
	Outcome slate.Outcome `json:"outcome"`
	Reason  slate.Reason  `json:"reason,omitempty"`
}

func NewDraftService(contests *ContestService, store DraftStore, slates SlateRepository) *DraftService {
	return &DraftService{
		contests: contests,
		store:    store,
		slates:   slates,
		now:      time.Now,
		logger:   logging.WithPrefix("Draft"),
	}
}

type draft struct {
	userID  string
	data    *ContestData
	builder *slate.Builder
	lock    slate.LockStatus
}

func (s *DraftService) open(ctx context.Context, session *models.Session, sport models.Sport) (*draft, error) {
	data, err := s.contests.Current(ctx, sport)
	if err != nil {
		return nil, err
	}
	now := s.now()

	state, err := s.store.Load(ctx, session.UserID, data.Contest.ID)
	if err != nil {
		return nil, err
	}

	var b *slate.Builder
	if state != nil {
		b = slate.Restore(*state)
	} else {
		b = slate.New()
	}

	if !b.Submitted() && s.slates != nil {
		existing, err := s.slates.FindByUserAndContest(ctx, session.UserID, data.Contest.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			b.MarkSubmitted()
		}
	}

	lock := data.Lock(now)
	b.SetAuthenticated(session.Valid(now))
	b.SetContestStatus(lock.Status)
	b.SetAvailability(func(gameID int64) bool {
		g, ok := data.Game(gameID)
		return ok && g.IsAvailable(now)
	})

	return &draft{userID: session.UserID, data: data, builder: b, lock: lock}, nil
}

func (s *DraftService) save(ctx context.Context, d *draft) error {
	if err := s.store.Save(ctx, d.userID, d.data.Contest.ID, d.builder.Snapshot()); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

func (d *draft) view() DraftView {
	v := DraftView{
		ContestID:     d.data.Contest.ID,
		Picks:         d.builder.Picks(),
		TokenGames:    d.builder.TokenGames(),
		Units:         d.builder.Units(),
		MaxUnits:      slate.MaxUnits,
		Submitted:     d.builder.Submitted(),
		ReadyToSubmit: d.builder.ReadyToSubmit(),
		Lock:          d.lock,
	}
	if v.ReadyToSubmit {
		req := d.builder.BuildSubmission(d.data.Contest.ID)
		v.Submission = &req
	}
	return v
}

func unauthenticated(session *models.Session, now time.Time) bool {
	return session == nil || !session.Valid(now)
}

func blockedResponse(reason slate.Reason) *DraftActionResponse {
	return &DraftActionResponse{
		DraftView: DraftView{MaxUnits: slate.MaxUnits, Picks: []models.UserPick{}, TokenGames: []int64{}},
		Outcome:   slate.Blocked,
		Reason:    reason,
	}
}

// Get returns the player's draft for the sport's current contest
func (s *DraftService) Get(ctx context.Context, session *models.Session, sport models.Sport) (*DraftView, error) {
	if unauthenticated(session, s.now()) {
		return nil, ErrInvalidCredentials
	}
	d, err := s.open(ctx, session, sport)
	if err != nil {
		return nil, err
	}
	v := d.view()
	return &v, nil
}

func (s *DraftService) apply(ctx context.Context, session *models.Session, sport models.Sport, op func(d *draft) slate.Result) (*DraftActionResponse, error) {
	if unauthenticated(session, s.now()) {
		return blockedResponse(slate.ReasonAuthRequired), nil
	}
	d, err := s.open(ctx, session, sport)
	if err != nil {
		return nil, err
	}

	res := op(d)
	if !res.IsBlocked() {
		if err := s.save(ctx, d); err != nil {
			return nil, err
		}
	}
	return &DraftActionResponse{DraftView: d.view(), Outcome: res.Outcome, Reason: res.Reason}, nil
}

// SelectPick toggles a stored pick of the current contest into or out of the draft
func (s *DraftService) SelectPick(ctx context.Context, session *models.Session, sport models.Sport, pickID int64) (*DraftActionResponse, error) {
	return s.apply(ctx, session, sport, func(d *draft) slate.Result {
		pick, ok := d.data.Pick(pickID)
		if !ok {
			return slate.Result{Outcome: slate.Blocked, Reason: slate.ReasonUnknownPick}
		}
		game, ok := d.data.Game(pick.GameID)
		if !ok {
			return slate.Result{Outcome: slate.Blocked, Reason: slate.ReasonUnknownPick}
		}
		shown := *pick
		shown.LineValue = slate.ApplyNoTieLine(pick.LineValue, pick.Selection == models.SelectionUnder)
		return d.builder.SelectPick(game.ID, pick.PickType, pick.Selection, shown.DisplayText(game), pick.ID)
	})
}

// ToggleToken adds or removes a token on a game
func (s *DraftService) ToggleToken(ctx context.Context, session *models.Session, sport models.Sport, gameID int64) (*DraftActionResponse, error) {
	return s.apply(ctx, session, sport, func(d *draft) slate.Result {
		return d.builder.ToggleToken(gameID)
	})
}

// RemovePick drops the index-th pick of the draft
func (s *DraftService) RemovePick(ctx context.Context, session *models.Session, sport models.Sport, index int) (*DraftActionResponse, error) {
	return s.apply(ctx, session, sport, func(d *draft) slate.Result {
		return d.builder.RemovePick(index)
	})
}

// Reset discards the player's draft for the sport's current contest
func (s *DraftService) Reset(ctx context.Context, session *models.Session, sport models.Sport) (*DraftView, error) {
	if unauthenticated(session, s.now()) {
		return nil, ErrInvalidCredentials
	}
	contest, err := s.contests.CurrentContest(ctx, sport)
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, session.UserID, contest.ID); err != nil {
		return nil, fmt.Errorf("failed to delete draft: %w", err)
	}
	return s.Get(ctx, session, sport)
}

// TokenGames returns the games the player's draft holds tokens on, nil without a draft
func (s *DraftService) TokenGames(ctx context.Context, userID string, contestID int64) ([]int64, error) {
	state, err := s.store.Load(ctx, userID, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	if state == nil {
		return nil, nil
	}
	return append([]int64(nil), state.TokenGames...), nil
}

// MarkSubmitted freezes the draft after the server accepted the slate
func (s *DraftService) MarkSubmitted(ctx context.Context, userID string, contestID int64) error {
	state, err := s.store.Load(ctx, userID, contestID)
	if err != nil {
		return err
	}
	b := slate.New()
	if state != nil {
		b = slate.Restore(*state)
	}
	b.MarkSubmitted()
	return s.store.Save(ctx, userID, contestID, b.Snapshot())
}
