package slate

import (
	"errors"
	"fmt"
	"time"

	"perfect-slate/models"
)

// ErrInvalidSlate matches every *InvalidSlateError via errors.Is
var ErrInvalidSlate = errors.New("invalid slate")

// InvalidSlateError describes why a submitted slate failed re-validation
type InvalidSlateError struct {
	Reason Reason
	Detail string
}

func (e *InvalidSlateError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("invalid slate: %s", e.Reason)
	}
	return fmt.Sprintf("invalid slate: %s: %s", e.Reason, e.Detail)
}

// Is lets errors.Is(err, ErrInvalidSlate) match
func (e *InvalidSlateError) Is(target error) bool {
	return target == ErrInvalidSlate
}

func invalid(reason Reason, format string, args ...interface{}) error {
	return &InvalidSlateError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Catalog is the stored view of a contest that a submission is checked against
type Catalog struct {
	Games map[int64]models.Game
	Picks map[int64]models.Pick
}

// NewCatalog indexes games and picks by ID
func NewCatalog(games []models.Game, picks []models.Pick) Catalog {
	c := Catalog{
		Games: make(map[int64]models.Game, len(games)),
		Picks: make(map[int64]models.Pick, len(picks)),
	}
	for _, g := range games {
		c.Games[g.ID] = g
	}
	for _, p := range picks {
		c.Picks[p.ID] = p
	}
	return c
}

// Validate replays a submission through a fresh Builder so the server enforces
// exactly the rules the player saw: tokens first, then each pick, and the
// result must be a complete slate. Token games must be listed when tokens are used.
func Validate(req models.SubmissionRequest, catalog Catalog, now time.Time) error {
	if req.TokensUsed < 0 || req.TokensUsed > MaxTokens {
		return invalid(ReasonTokenLimit, "tokensUsed %d", req.TokensUsed)
	}
	if len(req.TokenGames) != req.TokensUsed {
		return invalid(ReasonTokenLimit, "tokensUsed %d does not match %d token games", req.TokensUsed, len(req.TokenGames))
	}
	if units := len(req.Picks) + req.TokensUsed; units != MaxUnits {
		return invalid(ReasonSlateFull, "slate has %d of %d units", units, MaxUnits)
	}

	b := New()
	b.SetAuthenticated(true)
	b.SetAvailability(func(gameID int64) bool {
		g, ok := catalog.Games[gameID]
		return ok && g.IsAvailable(now)
	})

	for _, gameID := range req.TokenGames {
		if _, ok := catalog.Games[gameID]; !ok {
			return invalid(ReasonGameUnavailable, "unknown game %d", gameID)
		}
		if res := b.ToggleToken(gameID); res.Outcome != Added {
			if res.Outcome == Removed {
				return invalid(ReasonGameHasToken, "game %d listed twice", gameID)
			}
			return invalid(res.Reason, "token on game %d", gameID)
		}
	}

	for _, pickID := range req.Picks {
		pick, ok := catalog.Picks[pickID]
		if !ok {
			return invalid(ReasonUnknownPick, "unknown pick %d", pickID)
		}
		game, ok := catalog.Games[pick.GameID]
		if !ok {
			return invalid(ReasonUnknownPick, "pick %d belongs to another contest", pickID)
		}
		res := b.SelectPick(pick.GameID, pick.PickType, pick.Selection, pick.DisplayText(&game), pick.ID)
		switch res.Outcome {
		case Added:
		case Blocked:
			return invalid(res.Reason, "pick %d", pickID)
		default:
			return invalid(ReasonGamePickLimit, "pick %d conflicts with another pick on game %d", pickID, pick.GameID)
		}
	}

	if b.Units() != MaxUnits {
		return invalid(ReasonSlateFull, "slate has %d of %d units", b.Units(), MaxUnits)
	}
	return nil
}
