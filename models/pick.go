package models

import (
	"strconv"
	"time"
)

// PickType represents the market a pick belongs to
type PickType string

const (
	PickTypeSpread PickType = "spread"
	PickTypeTotal  PickType = "total"
)

// Selection is the side of a market
type Selection string

const (
	SelectionHome  Selection = "home"
	SelectionAway  Selection = "away"
	SelectionOver  Selection = "over"
	SelectionUnder Selection = "under"
)

// ValidFor reports whether the selection belongs to the pick type
func (s Selection) ValidFor(t PickType) bool {
	switch t {
	case PickTypeSpread:
		return s == SelectionHome || s == SelectionAway
	case PickTypeTotal:
		return s == SelectionOver || s == SelectionUnder
	}
	return false
}

// PickResult represents the graded outcome of a pick
type PickResult string

const (
	PickResultPending PickResult = "pending"
	PickResultWin     PickResult = "win"
	PickResultLoss    PickResult = "loss"
	PickResultPush    PickResult = "push"
)

// Pick is one selectable market outcome of a game. There are four per game.
type Pick struct {
	ID            int64      `json:"id" bson:"_id"`
	GameID        int64      `json:"game_id" bson:"game_id"`
	PickType      PickType   `json:"pick_type" bson:"pick_type"`
	Selection     Selection  `json:"selection" bson:"selection"`
	LineValue     float64    `json:"line_value" bson:"line_value"`
	TimesSelected int        `json:"times_selected" bson:"times_selected"`
	Result        PickResult `json:"result" bson:"result"`
	UpdatedAt     time.Time  `json:"updated_at" bson:"updated_at"`
}

// IsSpreadPick returns true for spread picks
func (p *Pick) IsSpreadPick() bool {
	return p.PickType == PickTypeSpread
}

// IsCompleted returns true once the pick has been graded
func (p *Pick) IsCompleted() bool {
	return p.Result != "" && p.Result != PickResultPending
}

// DisplayText renders the pick the way the board shows it, e.g. "NYY -1.5" or "Over 8.5"
func (p *Pick) DisplayText(g *Game) string {
	switch p.Selection {
	case SelectionHome:
		return g.HomeTeamShort + " " + FormatLine(p.LineValue)
	case SelectionAway:
		return g.AwayTeamShort + " " + FormatLine(p.LineValue)
	case SelectionOver:
		return "Over " + strconv.FormatFloat(p.LineValue, 'f', -1, 64)
	default:
		return "Under " + strconv.FormatFloat(p.LineValue, 'f', -1, 64)
	}
}

// UserPick is one manual pick inside a slate being built
type UserPick struct {
	GameID      int64     `json:"gameId"`
	PickID      int64     `json:"pickId"`
	PickType    PickType  `json:"pickType"`
	Selection   Selection `json:"selection"`
	DisplayText string    `json:"displayText"`
}
