package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"perfect-slate/database"
	"perfect-slate/models"
	"perfect-slate/slate"
)

// In-memory repositories following the Mongo repositories' contracts.

type memContests struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*models.Contest
}

func newMemContests() *memContests {
	return &memContests{byID: map[int64]*models.Contest{}}
}

func (m *memContests) Create(ctx context.Context, c *models.Contest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c.ID = m.nextID
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memContests) FindByID(ctx context.Context, id int64) (*models.Contest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *memContests) sorted() []models.Contest {
	out := make([]models.Contest, 0, len(m.byID))
	for _, c := range m.byID {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func statusIn(s models.ContestStatus, statuses []models.ContestStatus) bool {
	for _, x := range statuses {
		if x == s {
			return true
		}
	}
	return false
}

func (m *memContests) FindCurrent(ctx context.Context, sport models.Sport) (*models.Contest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var current *models.Contest
	for _, c := range m.sorted() {
		if c.Sport == sport && statusIn(c.Status, models.ActiveContestStatuses) {
			c := c
			current = &c
		}
	}
	return current, nil
}

func (m *memContests) FindOpenForIngestion(ctx context.Context, sport models.Sport, now time.Time) (*models.Contest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *models.Contest
	for _, c := range m.sorted() {
		if c.Sport == sport && c.Status == models.ContestStatusOpen && !c.LockTime.Before(now) {
			c := c
			found = &c
		}
	}
	return found, nil
}

func (m *memContests) FindByStatus(ctx context.Context, sport models.Sport, statuses ...models.ContestStatus) ([]models.Contest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Contest
	for _, c := range m.sorted() {
		if c.Sport == sport && statusIn(c.Status, statuses) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memContests) update(id int64, fn func(c *models.Contest)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return database.ErrConditionNotMet
	}
	fn(c)
	return nil
}

func (m *memContests) UpdateStatus(ctx context.Context, id int64, status models.ContestStatus) error {
	return m.update(id, func(c *models.Contest) { c.Status = status })
}

func (m *memContests) RecordEntry(ctx context.Context, id int64, tokensUsed int) error {
	return m.update(id, func(c *models.Contest) {
		c.TotalEntries++
		c.TokensUsedCount += tokensUsed
	})
}

func (m *memContests) Finalize(ctx context.Context, id int64, winners, perfect int, pendingRolloverCents int64) error {
	return m.update(id, func(c *models.Contest) {
		c.Status = models.ContestStatusCompleted
		c.TotalWinners = winners
		c.PerfectSlatesCount = perfect
		c.PendingRolloverCents = pendingRolloverCents
	})
}

func (m *memContests) TakePendingRollover(ctx context.Context, sport models.Sport) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for _, c := range m.byID {
		if c.Sport == sport && c.PendingRolloverCents > 0 {
			total += c.PendingRolloverCents
			c.PendingRolloverCents = 0
		}
	}
	return total, nil
}

type memGames struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*models.Game
}

func newMemGames() *memGames {
	return &memGames{byID: map[int64]*models.Game{}}
}

func (m *memGames) Create(ctx context.Context, g *models.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if g.ExternalID != "" && existing.ContestID == g.ContestID && existing.ExternalID == g.ExternalID {
			return database.ErrDuplicateKey
		}
	}
	m.nextID++
	g.ID = m.nextID
	cp := *g
	m.byID[g.ID] = &cp
	return nil
}

func (m *memGames) FindByID(ctx context.Context, id int64) (*models.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (m *memGames) FindByExternalID(ctx context.Context, contestID int64, externalID string) (*models.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.byID {
		if g.ContestID == contestID && g.ExternalID == externalID {
			cp := *g
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memGames) list(keep func(g *models.Game) bool) []models.Game {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Game
	for _, g := range m.byID {
		if keep(g) {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledTime.Equal(out[j].ScheduledTime) {
			return out[i].ScheduledTime.Before(out[j].ScheduledTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *memGames) FindByContest(ctx context.Context, contestID int64) ([]models.Game, error) {
	return m.list(func(g *models.Game) bool { return g.ContestID == contestID }), nil
}

func (m *memGames) FindForScoreUpdate(ctx context.Context, sport models.Sport, since time.Time) ([]models.Game, error) {
	return m.list(func(g *models.Game) bool {
		return g.Sport == sport && !g.IsCompleted() && !g.ScheduledTime.Before(since)
	}), nil
}

func (m *memGames) UpdateLines(ctx context.Context, id int64, homeSpread, awaySpread, total float64, scheduled time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.byID[id]
	if !ok {
		return database.ErrConditionNotMet
	}
	g.HomeSpread, g.AwaySpread, g.TotalPoints, g.ScheduledTime = homeSpread, awaySpread, total, scheduled
	return nil
}

func (m *memGames) UpdateScore(ctx context.Context, id int64, status models.GameStatus, homeScore, awayScore *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.byID[id]
	if !ok {
		return database.ErrConditionNotMet
	}
	g.Status, g.HomeScore, g.AwayScore = status, homeScore, awayScore
	return nil
}

type memPicks struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*models.Pick
}

func newMemPicks() *memPicks {
	return &memPicks{byID: map[int64]*models.Pick{}}
}

func (m *memPicks) CreateMany(ctx context.Context, picks []*models.Pick) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range picks {
		m.nextID++
		p.ID = m.nextID
		if p.Result == "" {
			p.Result = models.PickResultPending
		}
		cp := *p
		m.byID[p.ID] = &cp
	}
	return nil
}

func (m *memPicks) FindByGameIDs(ctx context.Context, gameIDs []int64) ([]models.Pick, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[int64]bool{}
	for _, id := range gameIDs {
		want[id] = true
	}
	var out []models.Pick
	for _, p := range m.byID {
		if want[p.GameID] {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memPicks) UpdateLine(ctx context.Context, gameID int64, pickType models.PickType, selection models.Selection, line float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.GameID == gameID && p.PickType == pickType && p.Selection == selection {
			p.LineValue = line
		}
	}
	return nil
}

func (m *memPicks) IncrementTimesSelected(ctx context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			p.TimesSelected++
		}
	}
	return nil
}

func (m *memPicks) SetResults(ctx context.Context, results map[int64]models.PickResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range results {
		if p, ok := m.byID[id]; ok {
			p.Result = r
		}
	}
	return nil
}

func (m *memPicks) get(id int64) models.Pick {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.byID[id]
}

type memSlates struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*models.Slate
	// insertErr, when set, fails the next Insert
	insertErr error
}

func newMemSlates() *memSlates {
	return &memSlates{byID: map[int64]*models.Slate{}}
}

func (m *memSlates) Insert(ctx context.Context, s *models.Slate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.insertErr; err != nil {
		m.insertErr = nil
		return err
	}
	for _, existing := range m.byID {
		if existing.UserID == s.UserID && existing.ContestID == s.ContestID {
			return database.ErrDuplicateKey
		}
	}
	m.nextID++
	s.ID = m.nextID
	cp := *s
	m.byID[s.ID] = &cp
	return nil
}

func (m *memSlates) FindByUserAndContest(ctx context.Context, userID string, contestID int64) (*models.Slate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if s.UserID == userID && s.ContestID == contestID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memSlates) FindByContest(ctx context.Context, contestID int64) ([]models.Slate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Slate
	for _, s := range m.byID {
		if s.ContestID == contestID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memSlates) FindByUser(ctx context.Context, userID string, limit int64) ([]models.Slate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Slate
	for _, s := range m.byID {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memSlates) UpdateGrades(ctx context.Context, slates []models.Slate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range slates {
		s := s
		m.byID[s.ID] = &s
	}
	return nil
}

type memProfiles struct {
	mu   sync.Mutex
	byID map[string]*models.UserProfile
}

func newMemProfiles() *memProfiles {
	return &memProfiles{byID: map[string]*models.UserProfile{}}
}

func (m *memProfiles) FindByID(ctx context.Context, id string) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// usernameHeld reports a case-insensitive username clash with a profile other than id
func (m *memProfiles) usernameHeld(username, id string) bool {
	for _, p := range m.byID {
		if p.ID != id && strings.EqualFold(p.Username, username) {
			return true
		}
	}
	return false
}

func (m *memProfiles) FindByUsername(ctx context.Context, username string) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if strings.EqualFold(p.Username, username) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memProfiles) Create(ctx context.Context, p *models.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[p.ID]; ok {
		return database.ErrDuplicateKey
	}
	if m.usernameHeld(p.Username, p.ID) {
		return database.ErrUsernameTaken
	}
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *memProfiles) UpdateDetails(ctx context.Context, id string, req models.ProfileUpdateRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return database.ErrConditionNotMet
	}
	if m.usernameHeld(req.Username, id) {
		return database.ErrUsernameTaken
	}
	p.Username, p.FavoriteTeam, p.FavoriteSport = req.Username, req.FavoriteTeam, req.FavoriteSport
	return nil
}

func (m *memProfiles) SpendTokens(ctx context.Context, id string, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok || p.TokenBalance < n {
		return database.ErrConditionNotMet
	}
	p.TokenBalance -= n
	return nil
}

func (m *memProfiles) RefundTokens(ctx context.Context, id string, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return database.ErrConditionNotMet
	}
	p.TokenBalance += n
	return nil
}

func (m *memProfiles) IncSubmission(ctx context.Context, id string, tokensUsed int, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return database.ErrConditionNotMet
	}
	p.TotalSlatesSubmitted++
	p.LifetimeTokensUsed += tokensUsed
	p.SlatesTowardNextToken++
	p.UpdatedAt = now
	return nil
}

func (m *memProfiles) ClaimEarnedToken(ctx context.Context, id string, every int, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok || p.SlatesTowardNextToken < every {
		return false, nil
	}
	p.SlatesTowardNextToken -= every
	p.TokenBalance++
	p.LifetimeTokensEarned++
	p.UpdatedAt = now
	return true, nil
}

func (m *memProfiles) RecordResult(ctx context.Context, id string, o models.SlateOutcome, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return database.ErrConditionNotMet
	}
	p.SlatesGraded++
	p.TotalEarningsCents += o.EarningsCents()
	if o.Perfect {
		p.PerfectSlates++
		p.CurrentStreak++
	} else {
		p.CurrentStreak = 0
	}
	nine, eight := o.BadBeats()
	p.BadBeats9 += nine
	p.BadBeats8 += eight
	if p.CurrentStreak > p.LongestStreak {
		p.LongestStreak = p.CurrentStreak
	}
	p.WinPercentage = float64(p.PerfectSlates) / float64(p.SlatesGraded) * 100
	p.UpdatedAt = now
	return nil
}

type memUsers struct {
	mu   sync.Mutex
	byID map[string]*models.User
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*models.User{}}
}

func (m *memUsers) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = models.NormalizeEmail(email)
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memUsers) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) CreateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return database.ErrDuplicateKey
		}
	}
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

var (
	_ ContestRepository = (*memContests)(nil)
	_ GameRepository    = (*memGames)(nil)
	_ PickRepository    = (*memPicks)(nil)
	_ SlateRepository   = (*memSlates)(nil)
	_ ProfileRepository = (*memProfiles)(nil)
	_ UserRepository    = (*memUsers)(nil)
)

// testNow is the fixed clock shared by service tests
var testNow = time.Date(2026, time.June, 1, 16, 0, 0, 0, time.UTC)

// fixture wires every service over the in-memory repositories with a fixed clock
type fixture struct {
	contests *memContests
	games    *memGames
	picks    *memPicks
	slates   *memSlates
	profiles *memProfiles
	users    *memUsers
	drafts   *MemoryDraftStore

	profileSvc    *ProfileService
	contestSvc    *ContestService
	draftSvc      *DraftService
	submissionSvc *SubmissionService
	grading       *GradingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		contests: newMemContests(),
		games:    newMemGames(),
		picks:    newMemPicks(),
		slates:   newMemSlates(),
		profiles: newMemProfiles(),
		users:    newMemUsers(),
		drafts:   NewMemoryDraftStore(),
	}
	f.profileSvc = NewProfileService(f.profiles)
	f.contestSvc = NewContestService(f.contests, f.games, f.picks)
	f.draftSvc = NewDraftService(f.contestSvc, f.drafts, f.slates)
	f.submissionSvc = NewSubmissionService(f.contestSvc, f.picks, f.slates, f.profileSvc, f.draftSvc, nil)
	f.grading = NewGradingService(f.contests, f.games, f.picks, f.slates, f.profileSvc, nil)
	f.setNow(testNow)
	return f
}

func (f *fixture) setNow(now time.Time) {
	clock := func() time.Time { return now }
	f.profileSvc.now = clock
	f.contestSvc.now = clock
	f.draftSvc.now = clock
	f.submissionSvc.now = clock
	f.grading.now = clock
}

// seededGame is a stored game with its four pick IDs
type seededGame struct {
	game                    models.Game
	home, away, over, under int64
}

// seedContest stores an open MLB contest with n games starting hourly from an hour after testNow
func (f *fixture) seedContest(t *testing.T, n int) (*models.Contest, []seededGame) {
	t.Helper()
	ctx := context.Background()
	contest := &models.Contest{
		Sport:              models.SportMLB,
		OpenTime:           testNow.Add(-2 * time.Hour),
		LockTime:           testNow.Add(8 * time.Hour),
		CloseTime:          testNow.Add(24 * time.Hour),
		BasePrizePoolCents: 100000,
		Status:             models.ContestStatusOpen,
	}
	contest.ComputeFinalPrizePool()
	if err := f.contests.Create(ctx, contest); err != nil {
		t.Fatalf("create contest: %v", err)
	}

	seeded := make([]seededGame, 0, n)
	for i := 0; i < n; i++ {
		g := &models.Game{
			ContestID:     contest.ID,
			Sport:         models.SportMLB,
			HomeTeam:      "New York Yankees",
			AwayTeam:      "Boston Red Sox",
			HomeTeamShort: "NYY",
			AwayTeamShort: "BOS",
			ScheduledTime: testNow.Add(time.Duration(i+1) * time.Hour),
			HomeSpread:    -1.5,
			AwaySpread:    1.5,
			TotalPoints:   8.5,
			Status:        models.GameStatusScheduled,
		}
		if err := f.games.Create(ctx, g); err != nil {
			t.Fatalf("create game: %v", err)
		}
		picks := []*models.Pick{
			{GameID: g.ID, PickType: models.PickTypeSpread, Selection: models.SelectionHome, LineValue: -1.5},
			{GameID: g.ID, PickType: models.PickTypeSpread, Selection: models.SelectionAway, LineValue: 1.5},
			{GameID: g.ID, PickType: models.PickTypeTotal, Selection: models.SelectionOver, LineValue: 8.5},
			{GameID: g.ID, PickType: models.PickTypeTotal, Selection: models.SelectionUnder, LineValue: 8.5},
		}
		if err := f.picks.CreateMany(ctx, picks); err != nil {
			t.Fatalf("create picks: %v", err)
		}
		seeded = append(seeded, seededGame{
			game:      *g,
			home:      picks[0].ID,
			away:      picks[1].ID,
			over:      picks[2].ID,
			under:     picks[3].ID,
		})
	}
	return contest, seeded
}

// fullSlate is a complete slate: the home spread on the leading games, tokens on the games after them
func fullSlate(contestID int64, games []seededGame, tokens int) models.SubmissionRequest {
	req := models.SubmissionRequest{ContestID: contestID, TokensUsed: tokens}
	for i := 0; i < slate.MaxUnits-tokens; i++ {
		req.Picks = append(req.Picks, games[i].home)
	}
	for i := slate.MaxUnits - tokens; i < slate.MaxUnits; i++ {
		req.TokenGames = append(req.TokenGames, games[i].game.ID)
	}
	return req
}

func testSession(userID string) *models.Session {
	return &models.Session{
		UserID:      userID,
		Email:       userID + "@example.com",
		AccessToken: "token-" + userID,
		ExpiresAt:   testNow.AddDate(1, 0, 0),
	}
}

func intPtr(v int) *int { return &v }
