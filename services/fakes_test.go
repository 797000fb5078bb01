package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/arenastats/scoring-system/cache"
	"github.com/arenastats/scoring-system/models"
	"github.com/arenastats/scoring-system/repositories"
)

// In-memory фейки репозиториев и портов. Все они игнорируют аргумент
// SQLExecutor: транзакционная граница проверяется отдельно через sqlmock.

type fakeTournamentRepo struct {
	tournaments map[int]*models.Tournament
}

func (f *fakeTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	t, ok := f.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTournamentRepo) GetBySlug(ctx context.Context, exec repositories.SQLExecutor, slug string) (*models.Tournament, error) {
	for _, t := range f.tournaments {
		if t.Slug == slug {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repositories.ErrTournamentNotFound
}

type fakeStageRepo struct {
	stages map[int]*models.Stage
}

func (f *fakeStageRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Stage, error) {
	s, ok := f.stages[id]
	if !ok {
		return nil, repositories.ErrStageNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStageRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Stage, error) {
	var out []*models.Stage
	for _, s := range f.stages {
		if s.TournamentID == tournamentID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStageRepo) ListRecentlyActive(ctx context.Context, exec repositories.SQLExecutor, interval string) ([]*models.Stage, error) {
	// В фейке "недавно активны" все этапы.
	var out []*models.Stage
	for _, s := range f.stages {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeTeamRepo struct {
	teams map[int]*models.Team
}

func (f *fakeTeamRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Team, error) {
	t, ok := f.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTeamRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Team, error) {
	var out []*models.Team
	for _, t := range f.teams {
		if t.TournamentID == tournamentID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeMatchRepo struct {
	matches map[int]*models.Match
}

func (f *fakeMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	m, ok := f.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMatchRepo) ListByStage(ctx context.Context, exec repositories.SQLExecutor, stageID int) ([]*models.Match, error) {
	var out []*models.Match
	for _, m := range f.matches {
		if m.StageID == stageID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeMatchRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.MatchStatus) error {
	m, ok := f.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Status = status
	return nil
}

func (f *fakeMatchRepo) SetLocked(ctx context.Context, exec repositories.SQLExecutor, id int, locked bool) error {
	m, ok := f.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Locked = locked
	return nil
}

type fakeRulesetRepo struct {
	byStage map[int]*models.Ruleset
	nextID  int
}

func (f *fakeRulesetRepo) GetByStageID(ctx context.Context, exec repositories.SQLExecutor, stageID int) (*models.Ruleset, error) {
	rs, ok := f.byStage[stageID]
	if !ok {
		return nil, repositories.ErrRulesetNotFound
	}
	cp := *rs
	return &cp, nil
}

func (f *fakeRulesetRepo) Create(ctx context.Context, exec repositories.SQLExecutor, ruleset *models.Ruleset) error {
	if _, ok := f.byStage[ruleset.StageID]; ok {
		return repositories.ErrRulesetStageConflict
	}
	f.nextID++
	ruleset.ID = f.nextID
	cp := *ruleset
	f.byStage[ruleset.StageID] = &cp
	return nil
}

func (f *fakeRulesetRepo) Update(ctx context.Context, exec repositories.SQLExecutor, ruleset *models.Ruleset) error {
	if _, ok := f.byStage[ruleset.StageID]; !ok {
		return repositories.ErrRulesetNotFound
	}
	cp := *ruleset
	f.byStage[ruleset.StageID] = &cp
	return nil
}

type resultKey struct {
	matchID int
	teamID  int
}

type playerResultKey struct {
	matchID  int
	teamID   int
	playerID int
}

type fakeResultRepo struct {
	matches     *fakeMatchRepo
	stages      *fakeStageRepo
	rows        map[resultKey]*models.MatchResult
	playerRows  map[playerResultKey]*models.PlayerMatchResult
	playerNames map[int]string
	nextID      int
	// failUpsertForTeam заставляет Upsert падать для команды (симуляция
	// нарушения внешнего ключа посреди пакета).
	failUpsertForTeam int
}

func (f *fakeResultRepo) GetByMatchAndTeam(ctx context.Context, exec repositories.SQLExecutor, matchID, teamID int) (*models.MatchResult, error) {
	r, ok := f.rows[resultKey{matchID, teamID}]
	if !ok {
		return nil, repositories.ErrMatchResultNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeResultRepo) Upsert(ctx context.Context, exec repositories.SQLExecutor, result *models.MatchResult) error {
	if f.failUpsertForTeam != 0 && result.TeamID == f.failUpsertForTeam {
		return repositories.ErrMatchResultInvalid
	}
	key := resultKey{result.MatchID, result.TeamID}
	if existing, ok := f.rows[key]; ok {
		result.ID = existing.ID
		result.CreatedAt = existing.CreatedAt
	} else {
		f.nextID++
		result.ID = f.nextID
		result.CreatedAt = time.Now().UTC()
	}
	result.UpdatedAt = time.Now().UTC()
	cp := *result
	cp.Match = nil
	cp.Team = nil
	f.rows[key] = &cp
	return nil
}

func (f *fakeResultRepo) UpdatePoints(ctx context.Context, exec repositories.SQLExecutor, result *models.MatchResult) error {
	for _, r := range f.rows {
		if r.ID == result.ID {
			r.KillPoints = result.KillPoints
			r.PlacementPoints = result.PlacementPoints
			r.BonusPoints = result.BonusPoints
			r.TotalPoints = result.TotalPoints
			return nil
		}
	}
	return repositories.ErrMatchResultNotFound
}

func (f *fakeResultRepo) listWithMatch(filter func(*models.Match) bool) []*models.MatchResult {
	var out []*models.MatchResult
	for _, r := range f.rows {
		m, ok := f.matches.matches[r.MatchID]
		if !ok || !filter(m) {
			continue
		}
		cp := *r
		mcp := *m
		cp.Match = &mcp
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MatchID != out[j].MatchID {
			return out[i].MatchID < out[j].MatchID
		}
		return out[i].TeamID < out[j].TeamID
	})
	return out
}

func (f *fakeResultRepo) ListByStage(ctx context.Context, exec repositories.SQLExecutor, stageID int) ([]*models.MatchResult, error) {
	return f.listWithMatch(func(m *models.Match) bool { return m.StageID == stageID }), nil
}

func (f *fakeResultRepo) ListCompletedByStage(ctx context.Context, exec repositories.SQLExecutor, stageID int) ([]*models.MatchResult, error) {
	return f.listWithMatch(func(m *models.Match) bool {
		return m.StageID == stageID && m.Status == models.MatchStatusCompleted
	}), nil
}

func (f *fakeResultRepo) ListCompletedByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.MatchResult, error) {
	return f.listWithMatch(func(m *models.Match) bool {
		if m.Status != models.MatchStatusCompleted {
			return false
		}
		stage, ok := f.stages.stages[m.StageID]
		return ok && stage.TournamentID == tournamentID
	}), nil
}

func (f *fakeResultRepo) UpsertPlayerResult(ctx context.Context, exec repositories.SQLExecutor, result *models.PlayerMatchResult) error {
	key := playerResultKey{result.MatchID, result.TeamID, result.PlayerID}
	if existing, ok := f.playerRows[key]; ok {
		result.ID = existing.ID
	} else {
		f.nextID++
		result.ID = f.nextID
	}
	cp := *result
	f.playerRows[key] = &cp
	return nil
}

func (f *fakeResultRepo) ListPlayerKillsByStage(ctx context.Context, exec repositories.SQLExecutor, stageID int) ([]models.PlayerKills, error) {
	totals := make(map[playerResultKey]int)
	for key, pr := range f.playerRows {
		m, ok := f.matches.matches[pr.MatchID]
		if !ok || m.StageID != stageID {
			continue
		}
		totals[playerResultKey{0, key.teamID, key.playerID}] += pr.Kills
	}
	var out []models.PlayerKills
	for key, kills := range totals {
		name, ok := f.playerNames[key.playerID]
		if !ok {
			name = fmt.Sprintf("player-%d", key.playerID)
		}
		out = append(out, models.PlayerKills{
			TeamID:   key.teamID,
			PlayerID: key.playerID,
			Name:     name,
			Kills:    kills,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out, nil
}

type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
	gets int
	sets int
	hits int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (f *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	data, ok := f.data[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	f.hits++
	return json.Unmarshal(data, dest)
}

func (f *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.data[key] = data
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeCache) DeleteByPattern(ctx context.Context, pattern string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range f.data {
		if strings.HasPrefix(key, prefix) {
			delete(f.data, key)
		}
	}
	return nil
}

type fakeLedger struct {
	mu       sync.Mutex
	points   map[int]map[int]float64
	kills    map[int]map[int]int
	rebuilds int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		points: make(map[int]map[int]float64),
		kills:  make(map[int]map[int]int),
	}
}

func (f *fakeLedger) ensureStage(stageID int) {
	if _, ok := f.points[stageID]; !ok {
		f.points[stageID] = make(map[int]float64)
		f.kills[stageID] = make(map[int]int)
	}
}

func (f *fakeLedger) Bump(ctx context.Context, stageID, teamID int, pointsDelta float64, killsDelta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureStage(stageID)
	f.points[stageID][teamID] += pointsDelta
	f.kills[stageID][teamID] += killsDelta
	return nil
}

func (f *fakeLedger) TeamTotals(ctx context.Context, stageID, teamID int) (float64, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureStage(stageID)
	return f.points[stageID][teamID], f.kills[stageID][teamID], nil
}

func (f *fakeLedger) StageTotals(ctx context.Context, stageID int) ([]models.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureStage(stageID)
	entries := make([]models.LedgerEntry, 0, len(f.points[stageID]))
	for teamID, pts := range f.points[stageID] {
		entries = append(entries, models.LedgerEntry{
			TeamID: teamID,
			Points: pts,
			Kills:  f.kills[stageID][teamID],
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].TeamID < entries[j].TeamID
	})
	return entries, nil
}

func (f *fakeLedger) Rebuild(ctx context.Context, stageID int, entries []models.LedgerEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rebuilds++
	f.points[stageID] = make(map[int]float64)
	f.kills[stageID] = make(map[int]int)
	for _, e := range entries {
		f.points[stageID][e.TeamID] = e.Points
		f.kills[stageID][e.TeamID] = e.Kills
	}
	return nil
}

type broadcastEvent struct {
	scopeType string
	scopeID   int
	payload   interface{}
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []broadcastEvent
}

func (f *fakeBroadcaster) Publish(scopeType string, scopeID int, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, broadcastEvent{scopeType: scopeType, scopeID: scopeID, payload: payload})
}

func (f *fakeBroadcaster) eventsFor(scopeType string) []broadcastEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []broadcastEvent
	for _, e := range f.events {
		if e.scopeType == scopeType {
			out = append(out, e)
		}
	}
	return out
}

// testEnv собирает сервисный граф на фейках; транзакционная граница
// ResultService обслуживается sqlmock'ом.
type testEnv struct {
	db   *sql.DB
	mock sqlmock.Sqlmock

	tournaments *fakeTournamentRepo
	stages      *fakeStageRepo
	teams       *fakeTeamRepo
	matches     *fakeMatchRepo
	rulesetRepo *fakeRulesetRepo
	results     *fakeResultRepo

	cache       *fakeCache
	ledger      *fakeLedger
	broadcaster *fakeBroadcaster

	rulesets     RulesetService
	leaderboards LeaderboardService
	resultSvc    ResultService
	matchSvc     MatchService
}

// newTestEnv строит окружение. withCache управляет наличием кэша:
// сервисы обязаны одинаково работать в обоих режимах.
func newTestEnv(t *testing.T, withCache bool) *testEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		db:          db,
		mock:        mock,
		tournaments: &fakeTournamentRepo{tournaments: make(map[int]*models.Tournament)},
		stages:      &fakeStageRepo{stages: make(map[int]*models.Stage)},
		teams:       &fakeTeamRepo{teams: make(map[int]*models.Team)},
		matches:     &fakeMatchRepo{matches: make(map[int]*models.Match)},
		rulesetRepo: &fakeRulesetRepo{byStage: make(map[int]*models.Ruleset)},
		ledger:      newFakeLedger(),
		broadcaster: &fakeBroadcaster{},
	}
	env.results = &fakeResultRepo{
		matches:     env.matches,
		stages:      env.stages,
		rows:        make(map[resultKey]*models.MatchResult),
		playerRows:  make(map[playerResultKey]*models.PlayerMatchResult),
		playerNames: make(map[int]string),
	}

	var lbCache LeaderboardCache
	if withCache {
		env.cache = newFakeCache()
		lbCache = env.cache
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	env.rulesets = NewRulesetService(env.rulesetRepo, env.stages, env.tournaments, logger)
	env.leaderboards = NewLeaderboardService(
		env.tournaments, env.stages, env.teams, env.results,
		env.rulesets, lbCache, env.ledger, logger,
	)
	env.resultSvc = NewResultService(
		db, env.matches, env.stages, env.results,
		env.rulesets, env.leaderboards, lbCache, env.ledger, env.broadcaster, logger,
	)
	env.matchSvc = NewMatchService(
		env.matches, env.stages, env.leaderboards, lbCache, env.broadcaster, logger,
	)
	return env
}

func (e *testEnv) seedTournament(id int, slug, game string) {
	e.tournaments.tournaments[id] = &models.Tournament{
		ID:     id,
		Name:   "Tournament " + slug,
		Slug:   slug,
		Game:   game,
		Status: models.TournamentStatusOngoing,
	}
}

func (e *testEnv) seedStage(id, tournamentID int, name string) {
	e.stages.stages[id] = &models.Stage{
		ID:           id,
		TournamentID: tournamentID,
		Name:         name,
		Sequence:     1,
	}
}

func (e *testEnv) seedTeam(id, tournamentID int, name string) {
	e.teams.teams[id] = &models.Team{ID: id, TournamentID: tournamentID, Name: name}
}

func (e *testEnv) seedMatch(id, stageID int, status models.MatchStatus, scheduledAt time.Time) {
	e.matches.matches[id] = &models.Match{
		ID:          id,
		StageID:     stageID,
		Number:      id,
		ScheduledAt: scheduledAt,
		Status:      status,
	}
}

func (e *testEnv) seedRuleset(stageID int, table models.PlacementTable, tieBreakers models.TieBreakers) {
	e.rulesetRepo.nextID++
	e.rulesetRepo.byStage[stageID] = &models.Ruleset{
		ID:              e.rulesetRepo.nextID,
		StageID:         stageID,
		KillPoints:      1,
		PlacementPoints: table,
		Multiplier:      1,
		TieBreakers:     tieBreakers,
	}
}

// expectTx регистрирует ожидание одной успешной транзакции.
func (e *testEnv) expectTx() {
	e.mock.ExpectBegin()
	e.mock.ExpectCommit()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
