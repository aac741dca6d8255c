// Package slate holds the slate-building rules: which picks and tokens a
// player may hold, when the contest locks, and how a finished slate is turned
// into a submission. The same Builder backs the server-held draft and the
// re-validation of submitted slates.
package slate

import (
	"sort"

	"perfect-slate/models"
)

const (
	// MaxUnits is the size of a complete slate (picks + token games)
	MaxUnits = 10

	// MaxPicksPerGame limits manual picks on a single game
	MaxPicksPerGame = 2

	// MaxTokens limits token games per slate
	MaxTokens = 5
)

// Outcome is what an operation did to the builder
type Outcome string

const (
	Added    Outcome = "added"
	Removed  Outcome = "removed"
	Replaced Outcome = "replaced"
	Blocked  Outcome = "blocked"
)

// Reason explains a blocked operation
type Reason string

const (
	ReasonAuthRequired     Reason = "auth_required"
	ReasonAlreadySubmitted Reason = "already_submitted"
	ReasonContestNotActive Reason = "contest_not_active"
	ReasonGameHasToken     Reason = "game_has_token"
	ReasonGameUnavailable  Reason = "game_unavailable"
	ReasonSlateFull        Reason = "slate_full"
	ReasonGamePickLimit    Reason = "game_pick_limit"
	ReasonTokenLimit       Reason = "token_limit"
	ReasonIndexOutOfRange  Reason = "index_out_of_range"
	ReasonUnknownPick      Reason = "unknown_pick"
)

// Result is returned by every builder operation. A blocked result leaves the builder unchanged.
type Result struct {
	Outcome Outcome `json:"outcome"`
	Reason  Reason  `json:"reason,omitempty"`
}

// IsBlocked reports whether the operation was refused
func (r Result) IsBlocked() bool {
	return r.Outcome == Blocked
}

func blocked(reason Reason) Result {
	return Result{Outcome: Blocked, Reason: reason}
}

// Builder is the in-progress slate. It is not safe for concurrent use.
type Builder struct {
	picks         []models.UserPick
	tokens        map[int64]struct{}
	submitted     bool
	status        Status
	authenticated bool
	available     func(gameID int64) bool
}

// New returns an empty builder in the active state with no authenticated user
func New() *Builder {
	return &Builder{
		tokens: make(map[int64]struct{}),
		status: StatusActive,
	}
}

// SetAuthenticated marks whether a signed-in user owns the builder
func (b *Builder) SetAuthenticated(ok bool) {
	b.authenticated = ok
}

// SetContestStatus updates the lock state, usually from ComputeLockStatus
func (b *Builder) SetContestStatus(status Status) {
	b.status = status
}

// SetAvailability installs a per-game availability check. A nil func treats every game as available.
func (b *Builder) SetAvailability(fn func(gameID int64) bool) {
	b.available = fn
}

// ContestStatus returns the current lock state
func (b *Builder) ContestStatus() Status {
	return b.status
}

// Submitted reports whether the slate has been accepted by the server
func (b *Builder) Submitted() bool {
	return b.submitted
}

// Picks returns a copy of the selected picks in selection order
func (b *Builder) Picks() []models.UserPick {
	out := make([]models.UserPick, len(b.picks))
	copy(out, b.picks)
	return out
}

// TokenGames returns the token game IDs in ascending order
func (b *Builder) TokenGames() []int64 {
	out := make([]int64, 0, len(b.tokens))
	for id := range b.tokens {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HasToken reports whether the game is covered by a token
func (b *Builder) HasToken(gameID int64) bool {
	_, ok := b.tokens[gameID]
	return ok
}

// Units is picks plus token games
func (b *Builder) Units() int {
	return len(b.picks) + len(b.tokens)
}

// ReadyToSubmit is true only for a complete, unsubmitted slate while the contest is active
func (b *Builder) ReadyToSubmit() bool {
	return b.Units() == MaxUnits && !b.submitted && b.status == StatusActive
}

func (b *Builder) gameAvailable(gameID int64) bool {
	return b.available == nil || b.available(gameID)
}

func (b *Builder) picksForGame(gameID int64) int {
	n := 0
	for _, p := range b.picks {
		if p.GameID == gameID {
			n++
		}
	}
	return n
}

// SelectPick toggles a pick. Choosing the exact same pick removes it; choosing
// the other side of a market already held on the game replaces it in place;
// anything else is appended when the slate and the game have room.
func (b *Builder) SelectPick(gameID int64, pickType models.PickType, selection models.Selection, displayText string, pickID int64) Result {
	if !b.authenticated {
		return blocked(ReasonAuthRequired)
	}
	if b.submitted {
		return blocked(ReasonAlreadySubmitted)
	}
	if !selection.ValidFor(pickType) {
		return blocked(ReasonUnknownPick)
	}
	if b.HasToken(gameID) {
		return blocked(ReasonGameHasToken)
	}
	if b.status != StatusActive {
		return blocked(ReasonContestNotActive)
	}
	if !b.gameAvailable(gameID) {
		return blocked(ReasonGameUnavailable)
	}

	for i, p := range b.picks {
		if p.GameID != gameID || p.PickType != pickType {
			continue
		}
		if p.Selection == selection {
			b.picks = append(b.picks[:i:i], b.picks[i+1:]...)
			return Result{Outcome: Removed}
		}
		b.picks[i] = models.UserPick{
			GameID:      gameID,
			PickID:      pickID,
			PickType:    pickType,
			Selection:   selection,
			DisplayText: displayText,
		}
		return Result{Outcome: Replaced}
	}

	if b.Units() >= MaxUnits {
		return blocked(ReasonSlateFull)
	}
	if b.picksForGame(gameID) >= MaxPicksPerGame {
		return blocked(ReasonGamePickLimit)
	}

	b.picks = append(b.picks, models.UserPick{
		GameID:      gameID,
		PickID:      pickID,
		PickType:    pickType,
		Selection:   selection,
		DisplayText: displayText,
	})
	return Result{Outcome: Added}
}

// ToggleToken adds or removes a token on a game. Adding a token discards the
// game's manual picks.
func (b *Builder) ToggleToken(gameID int64) Result {
	if !b.authenticated {
		return blocked(ReasonAuthRequired)
	}
	if b.submitted {
		return blocked(ReasonAlreadySubmitted)
	}
	if b.status != StatusActive {
		return blocked(ReasonContestNotActive)
	}
	if !b.gameAvailable(gameID) {
		return blocked(ReasonGameUnavailable)
	}

	if b.HasToken(gameID) {
		delete(b.tokens, gameID)
		return Result{Outcome: Removed}
	}
	if len(b.tokens) >= MaxTokens {
		return blocked(ReasonTokenLimit)
	}
	if b.Units() >= MaxUnits {
		return blocked(ReasonSlateFull)
	}

	kept := b.picks[:0:0]
	for _, p := range b.picks {
		if p.GameID != gameID {
			kept = append(kept, p)
		}
	}
	b.picks = kept
	b.tokens[gameID] = struct{}{}
	return Result{Outcome: Added}
}

// RemovePick drops the index-th selected pick. It carries no lock or
// submission guard.
func (b *Builder) RemovePick(index int) Result {
	if index < 0 || index >= len(b.picks) {
		return blocked(ReasonIndexOutOfRange)
	}
	b.picks = append(b.picks[:index:index], b.picks[index+1:]...)
	return Result{Outcome: Removed}
}

// BuildSubmission returns the request body for the current slate
func (b *Builder) BuildSubmission(contestID int64) models.SubmissionRequest {
	pickIDs := make([]int64, len(b.picks))
	for i, p := range b.picks {
		pickIDs[i] = p.PickID
	}
	return models.SubmissionRequest{
		ContestID:  contestID,
		Picks:      pickIDs,
		TokenGames: b.TokenGames(),
		TokensUsed: len(b.tokens),
	}
}

// MarkSubmitted records a successful submission. Call it only after the server accepted the slate.
func (b *Builder) MarkSubmitted() {
	b.submitted = true
}

// Reset clears the selection, e.g. on sign-out
func (b *Builder) Reset() {
	b.picks = nil
	b.tokens = make(map[int64]struct{})
	b.submitted = false
}
