package slate

import "perfect-slate/models"

// State is the persisted form of a Builder. Contest status, authentication and
// availability are recomputed on load, so they are not part of it.
type State struct {
	Picks      []models.UserPick `json:"picks"`
	TokenGames []int64           `json:"tokenGames"`
	Submitted  bool              `json:"submitted"`
}

// Snapshot captures the builder's selection
func (b *Builder) Snapshot() State {
	return State{
		Picks:      b.Picks(),
		TokenGames: b.TokenGames(),
		Submitted:  b.submitted,
	}
}

// Restore rebuilds a builder from a snapshot
func Restore(s State) *Builder {
	b := New()
	b.picks = append([]models.UserPick(nil), s.Picks...)
	for _, id := range s.TokenGames {
		b.tokens[id] = struct{}{}
	}
	b.submitted = s.Submitted
	return b
}
