package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Sport identifies the league a contest is played in
type Sport string

const (
	SportNFL   Sport = "NFL"
	SportNCAAF Sport = "NCAAF"
	SportMLB   Sport = "MLB"
)

// ParseSport normalizes a sport name from a URL or flag
func ParseSport(s string) (Sport, error) {
	switch sport := Sport(strings.ToUpper(strings.TrimSpace(s))); sport {
	case SportNFL, SportNCAAF, SportMLB:
		return sport, nil
	default:
		return "", fmt.Errorf("unsupported sport %q", s)
	}
}

// OddsAPIKey returns The Odds API sport key
func (s Sport) OddsAPIKey() string {
	switch s {
	case SportNFL:
		return "americanfootball_nfl"
	case SportNCAAF:
		return "americanfootball_ncaaf"
	default:
		return "baseball_mlb"
	}
}

// GameStatus represents the current state of a game
type GameStatus string

const (
	GameStatusScheduled  GameStatus = "scheduled"
	GameStatusInProgress GameStatus = "in_progress"
	GameStatusFinal      GameStatus = "final"
	GameStatusCompleted  GameStatus = "completed"
)

// Game represents a single matchup inside a contest
type Game struct {
	ID            int64      `json:"id" bson:"_id"`
	ExternalID    string     `json:"external_id,omitempty" bson:"external_id,omitempty"`
	ContestID     int64      `json:"contest_id" bson:"contest_id"`
	Sport         Sport      `json:"sport" bson:"sport"`
	HomeTeam      string     `json:"home_team" bson:"home_team"`
	AwayTeam      string     `json:"away_team" bson:"away_team"`
	HomeTeamShort string     `json:"home_team_short" bson:"home_team_short"`
	AwayTeamShort string     `json:"away_team_short" bson:"away_team_short"`
	ScheduledTime time.Time  `json:"scheduled_time" bson:"scheduled_time"`
	HomeSpread    float64    `json:"home_spread" bson:"home_spread"`
	AwaySpread    float64    `json:"away_spread" bson:"away_spread"`
	TotalPoints   float64    `json:"total_points" bson:"total_points"`
	HomeScore     *int       `json:"home_score,omitempty" bson:"home_score,omitempty"`
	AwayScore     *int       `json:"away_score,omitempty" bson:"away_score,omitempty"`
	Status        GameStatus `json:"status" bson:"status"`
	UpdatedAt     time.Time  `json:"updated_at" bson:"updated_at"`
}

// IsCompleted returns true if the game is finished. final and completed are both terminal.
func (g *Game) IsCompleted() bool {
	return g.Status == GameStatusFinal || g.Status == GameStatusCompleted
}

// IsInProgress returns true if the game is currently being played
func (g *Game) IsInProgress() bool {
	return g.Status == GameStatusInProgress
}

// IsAvailable reports whether picks and tokens can still be placed on the game
func (g *Game) IsAvailable(now time.Time) bool {
	return g.Status == GameStatusScheduled && g.ScheduledTime.After(now)
}

// HasScores returns true once both scores are known
func (g *Game) HasScores() bool {
	return g.HomeScore != nil && g.AwayScore != nil
}

// Matchup returns "AWY @ HOM"
func (g *Game) Matchup() string {
	return g.AwayTeamShort + " @ " + g.HomeTeamShort
}

// ScoreString returns a formatted score string
func (g *Game) ScoreString() string {
	if !g.HasScores() {
		return "vs"
	}
	return fmt.Sprintf("%d-%d", *g.AwayScore, *g.HomeScore)
}

// FormatLine renders a line with an explicit sign for positive values
func FormatLine(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if v > 0 {
		return "+" + s
	}
	return s
}
