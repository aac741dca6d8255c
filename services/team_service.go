package services

import (
	"sort"
	"strings"

	"perfect-slate/models"
)

// TeamData holds a team's city and nickname
type TeamData struct {
	Name string
	City string
}

// mlbTeams is keyed by abbreviation
var mlbTeams = map[string]TeamData{
	"ARI": {Name: "Diamondbacks", City: "Arizona"},
	"ATL": {Name: "Braves", City: "Atlanta"},
	"BAL": {Name: "Orioles", City: "Baltimore"},
	"BOS": {Name: "Red Sox", City: "Boston"},
	"CHC": {Name: "Cubs", City: "Chicago"},
	"CHW": {Name: "White Sox", City: "Chicago"},
	"CIN": {Name: "Reds", City: "Cincinnati"},
	"CLE": {Name: "Guardians", City: "Cleveland"},
	"COL": {Name: "Rockies", City: "Colorado"},
	"DET": {Name: "Tigers", City: "Detroit"},
	"HOU": {Name: "Astros", City: "Houston"},
	"KC":  {Name: "Royals", City: "Kansas City"},
	"LAA": {Name: "Angels", City: "Los Angeles"},
	"LAD": {Name: "Dodgers", City: "Los Angeles"},
	"MIA": {Name: "Marlins", City: "Miami"},
	"MIL": {Name: "Brewers", City: "Milwaukee"},
	"MIN": {Name: "Twins", City: "Minnesota"},
	"NYM": {Name: "Mets", City: "New York"},
	"NYY": {Name: "Yankees", City: "New York"},
	"OAK": {Name: "Athletics", City: "Oakland"},
	"PHI": {Name: "Phillies", City: "Philadelphia"},
	"PIT": {Name: "Pirates", City: "Pittsburgh"},
	"SD":  {Name: "Padres", City: "San Diego"},
	"SF":  {Name: "Giants", City: "San Francisco"},
	"SEA": {Name: "Mariners", City: "Seattle"},
	"STL": {Name: "Cardinals", City: "St. Louis"},
	"TB":  {Name: "Rays", City: "Tampa Bay"},
	"TEX": {Name: "Rangers", City: "Texas"},
	"TOR": {Name: "Blue Jays", City: "Toronto"},
	"WSH": {Name: "Nationals", City: "Washington"},
}

// nflTeams is keyed by abbreviation
var nflTeams = map[string]TeamData{
	"BUF": {Name: "Bills", City: "Buffalo"},
	"MIA": {Name: "Dolphins", City: "Miami"},
	"NE":  {Name: "Patriots", City: "New England"},
	"NYJ": {Name: "Jets", City: "New York"},
	"BAL": {Name: "Ravens", City: "Baltimore"},
	"CIN": {Name: "Bengals", City: "Cincinnati"},
	"CLE": {Name: "Browns", City: "Cleveland"},
	"PIT": {Name: "Steelers", City: "Pittsburgh"},
	"HOU": {Name: "Texans", City: "Houston"},
	"IND": {Name: "Colts", City: "Indianapolis"},
	"JAX": {Name: "Jaguars", City: "Jacksonville"},
	"TEN": {Name: "Titans", City: "Tennessee"},
	"DEN": {Name: "Broncos", City: "Denver"},
	"KC":  {Name: "Chiefs", City: "Kansas City"},
	"LV":  {Name: "Raiders", City: "Las Vegas"},
	"LAC": {Name: "Chargers", City: "Los Angeles"},
	"DAL": {Name: "Cowboys", City: "Dallas"},
	"NYG": {Name: "Giants", City: "New York"},
	"PHI": {Name: "Eagles", City: "Philadelphia"},
	"WAS": {Name: "Commanders", City: "Washington"},
	"CHI": {Name: "Bears", City: "Chicago"},
	"DET": {Name: "Lions", City: "Detroit"},
	"GB":  {Name: "Packers", City: "Green Bay"},
	"MIN": {Name: "Vikings", City: "Minnesota"},
	"ATL": {Name: "Falcons", City: "Atlanta"},
	"CAR": {Name: "Panthers", City: "Carolina"},
	"NO":  {Name: "Saints", City: "New Orleans"},
	"TB":  {Name: "Buccaneers", City: "Tampa Bay"},
	"ARI": {Name: "Cardinals", City: "Arizona"},
	"LAR": {Name: "Rams", City: "Los Angeles"},
	"SF":  {Name: "49ers", City: "San Francisco"},
	"SEA": {Name: "Seahawks", City: "Seattle"},
}

// TeamDirectory resolves provider team names to abbreviations
type TeamDirectory struct {
	byName map[models.Sport]map[string]models.Team
	byAbbr map[models.Sport]map[string]models.Team
}

// NewTeamDirectory indexes the static team tables
func NewTeamDirectory() *TeamDirectory {
	d := &TeamDirectory{
		byName: make(map[models.Sport]map[string]models.Team),
		byAbbr: make(map[models.Sport]map[string]models.Team),
	}
	d.add(models.SportMLB, mlbTeams)
	d.add(models.SportNFL, nflTeams)
	// Odds API lists the relocated club without a city.
	d.alias(models.SportMLB, "Athletics", "OAK")
	return d
}

func (d *TeamDirectory) add(sport models.Sport, data map[string]TeamData) {
	d.byName[sport] = make(map[string]models.Team, len(data))
	d.byAbbr[sport] = make(map[string]models.Team, len(data))
	for abbr, td := range data {
		team := models.Team{Abbr: abbr, Name: td.Name, City: td.City, Sport: sport, Active: true}
		d.byAbbr[sport][abbr] = team
		d.byName[sport][normalizeTeamName(team.DisplayName())] = team
	}
}

func (d *TeamDirectory) alias(sport models.Sport, name, abbr string) {
	if team, ok := d.byAbbr[sport][abbr]; ok {
		d.byName[sport][normalizeTeamName(name)] = team
	}
}

func normalizeTeamName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, ".", "")
	return strings.Join(strings.Fields(name), " ")
}

// Abbreviation returns the team's short code, falling back to the first three letters of the name
func (d *TeamDirectory) Abbreviation(sport models.Sport, fullName string) string {
	if team, ok := d.byName[sport][normalizeTeamName(fullName)]; ok {
		return team.Abbr
	}
	runes := []rune(strings.TrimSpace(fullName))
	if len(runes) > 3 {
		runes = runes[:3]
	}
	return strings.ToUpper(string(runes))
}

// GetTeamByAbbr returns a team by abbreviation
func (d *TeamDirectory) GetTeamByAbbr(sport models.Sport, abbr string) (*models.Team, bool) {
	team, ok := d.byAbbr[sport][strings.ToUpper(abbr)]
	if !ok {
		return nil, false
	}
	return &team, true
}

// GetAllTeams returns a sport's teams ordered by abbreviation
func (d *TeamDirectory) GetAllTeams(sport models.Sport) []models.Team {
	teams := make([]models.Team, 0, len(d.byAbbr[sport]))
	for _, team := range d.byAbbr[sport] {
		teams = append(teams, team)
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].Abbr < teams[j].Abbr })
	return teams
}
