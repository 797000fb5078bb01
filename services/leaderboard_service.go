package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/arenastats/scoring-system/cache"
	"github.com/arenastats/scoring-system/models"
	"github.com/arenastats/scoring-system/repositories"
	"github.com/arenastats/scoring-system/scoring"
	"golang.org/x/sync/errgroup"
)

const recentPlacementsWindow = 5

// LeaderboardService — агрегатор таблиц лидеров. Единственный источник
// истины — строки match_results завершённых матчей; кэш и леджер всегда
// могут быть пересобраны отсюда.
type LeaderboardService interface {
	// TournamentLeaderboard принимает первичный ключ или slug турнира.
	TournamentLeaderboard(ctx context.Context, idOrSlug string) ([]models.LeaderboardEntry, error)
	TournamentLeaderboardByID(ctx context.Context, tournamentID int) ([]models.LeaderboardEntry, error)
	StageLeaderboard(ctx context.Context, stageID int) (*models.StageLeaderboard, error)
	// StageLedger отдаёт сырые бегущие суммы дельта-леджера (операторский
	// кросс-чек против полного пересчёта).
	StageLedger(ctx context.Context, stageID int) ([]models.LedgerEntry, error)
	// AuditStageLedgers сверяет леджер недавно активных этапов с полным
	// пересчётом и пересобирает разошедшиеся.
	AuditStageLedgers(ctx context.Context) error
}

type leaderboardService struct {
	tournamentRepo repositories.TournamentRepository
	stageRepo      repositories.StageRepository
	teamRepo       repositories.TeamRepository
	resultRepo     repositories.ResultRepository
	rulesets       RulesetService
	cache          LeaderboardCache
	ledger         DeltaLedger
	logger         *slog.Logger
}

func NewLeaderboardService(
	tournamentRepo repositories.TournamentRepository,
	stageRepo repositories.StageRepository,
	teamRepo repositories.TeamRepository,
	resultRepo repositories.ResultRepository,
	rulesets RulesetService,
	lbCache LeaderboardCache,
	ledger DeltaLedger,
	logger *slog.Logger,
) LeaderboardService {
	return &leaderboardService{
		tournamentRepo: tournamentRepo,
		stageRepo:      stageRepo,
		teamRepo:       teamRepo,
		resultRepo:     resultRepo,
		rulesets:       rulesets,
		cache:          lbCache,
		ledger:         ledger,
		logger:         logger,
	}
}

func (s *leaderboardService) TournamentLeaderboard(ctx context.Context, idOrSlug string) ([]models.LeaderboardEntry, error) {
	if id, err := strconv.Atoi(idOrSlug); err == nil {
		return s.TournamentLeaderboardByID(ctx, id)
	}
	tournament, err := s.tournamentRepo.GetBySlug(ctx, nil, idOrSlug)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to resolve tournament slug %q: %w", idOrSlug, err)
	}
	return s.TournamentLeaderboardByID(ctx, tournament.ID)
}

func (s *leaderboardService) TournamentLeaderboardByID(ctx context.Context, tournamentID int) ([]models.LeaderboardEntry, error) {
	key := cache.TournamentKey(tournamentID)
	if s.cache != nil {
		var cached []models.LeaderboardEntry
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			// Кэш недоступен — деградируем до полного пересчёта.
			s.logger.WarnContext(ctx, "leaderboard cache read failed, recomputing",
				slog.String("key", key), slog.Any("error", err))
		}
	}

	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", tournamentID, err)
	}

	teams, err := s.teamRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams for tournament %d: %w", tournamentID, err)
	}
	results, err := s.resultRepo.ListCompletedByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results for tournament %d: %w", tournamentID, err)
	}

	entries, _ := aggregateEntries(teams, results)
	for i := range entries {
		// Сумма очков размещения — деталь этапного скоупа.
		entries[i].PlacementPoints = nil
	}
	sortEntries(entries, nil)
	assignRanks(entries)

	s.writeCache(ctx, key, entries)
	return entries, nil
}

func (s *leaderboardService) StageLeaderboard(ctx context.Context, stageID int) (*models.StageLeaderboard, error) {
	key := cache.StageKey(stageID)
	if s.cache != nil {
		var cached models.StageLeaderboard
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.WarnContext(ctx, "leaderboard cache read failed, recomputing",
				slog.String("key", key), slog.Any("error", err))
		}
	}

	stage, err := s.stageRepo.GetByID(ctx, nil, stageID)
	if err != nil {
		if errors.Is(err, repositories.ErrStageNotFound) {
			return nil, ErrStageNotFound
		}
		return nil, fmt.Errorf("failed to get stage %d: %w", stageID, err)
	}

	ruleset, err := s.rulesets.GetOrCreateForStage(ctx, stageID)
	if err != nil {
		return nil, err
	}

	var (
		teams       []*models.Team
		results     []*models.MatchResult
		playerKills []models.PlayerKills
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var errG error
		teams, errG = s.teamRepo.ListByTournament(gCtx, nil, stage.TournamentID)
		return errG
	})
	g.Go(func() error {
		var errG error
		results, errG = s.resultRepo.ListCompletedByStage(gCtx, nil, stageID)
		return errG
	})
	g.Go(func() error {
		var errG error
		playerKills, errG = s.resultRepo.ListPlayerKillsByStage(gCtx, nil, stageID)
		return errG
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load stage %d scope: %w", stageID, err)
	}

	entries, placements := aggregateEntries(teams, results)

	killsByTeam := make(map[int][]models.PlayerKills)
	for _, pk := range playerKills {
		killsByTeam[pk.TeamID] = append(killsByTeam[pk.TeamID], pk)
	}

	for i := range entries {
		e := &entries[i]

		strike := 0.0
		if e.MatchesPlayed > 0 {
			strike = scoring.Round1(e.TotalPoints / float64(e.MatchesPlayed))
		}
		e.StrikeRate = &strike

		recent := placements[e.TeamID]
		sort.Slice(recent, func(a, b int) bool { return recent[a].at.After(recent[b].at) })
		window := len(recent)
		if window > recentPlacementsWindow {
			window = recentPlacementsWindow
		}
		if window > 0 {
			e.RecentPlacements = make([]int, 0, window)
			for _, pm := range recent[:window] {
				e.RecentPlacements = append(e.RecentPlacements, pm.placement)
			}
		}

		e.Players = killsByTeam[e.TeamID]
	}

	sortEntries(entries, ruleset.TieBreakers)
	assignRanks(entries)

	board := &models.StageLeaderboard{
		StageID:     stageID,
		Leaderboard: entries,
		KillLeaders: buildKillLeaders(results),
		ComputedAt:  time.Now().UTC(),
	}

	s.writeCache(ctx, key, board)
	return board, nil
}

func (s *leaderboardService) StageLedger(ctx context.Context, stageID int) ([]models.LedgerEntry, error) {
	if _, err := s.stageRepo.GetByID(ctx, nil, stageID); err != nil {
		if errors.Is(err, repositories.ErrStageNotFound) {
			return nil, ErrStageNotFound
		}
		return nil, err
	}
	if s.ledger == nil {
		return []models.LedgerEntry{}, nil
	}
	return s.ledger.StageTotals(ctx, stageID)
}

// AuditStageLedgers — фоновая сверка: леджер и агрегатор — два
// независимых пути к одним числам, и расхождение между ними означает
// потерянный инкремент. Разошедшийся леджер пересобирается из строк.
func (s *leaderboardService) AuditStageLedgers(ctx context.Context) error {
	if s.ledger == nil {
		return nil
	}
	stages, err := s.stageRepo.ListRecentlyActive(ctx, nil, "1 hour")
	if err != nil {
		return fmt.Errorf("failed to list recently active stages: %w", err)
	}
	for _, stage := range stages {
		results, err := s.resultRepo.ListCompletedByStage(ctx, nil, stage.ID)
		if err != nil {
			return fmt.Errorf("failed to list results for stage %d: %w", stage.ID, err)
		}
		fresh := ledgerFromResults(results)
		drifted := false
		for _, want := range fresh {
			points, kills, err := s.ledger.TeamTotals(ctx, stage.ID, want.TeamID)
			if err != nil {
				s.logger.WarnContext(ctx, "ledger read failed during audit",
					slog.Int("stage_id", stage.ID), slog.Any("error", err))
				drifted = false
				break
			}
			if math.Abs(points-want.Points) > 0.001 || kills != want.Kills {
				s.logger.WarnContext(ctx, "ledger drift detected",
					slog.Int("stage_id", stage.ID), slog.Int("team_id", want.TeamID),
					slog.Float64("ledger_points", points), slog.Float64("computed_points", want.Points),
					slog.Int("ledger_kills", kills), slog.Int("computed_kills", want.Kills))
				drifted = true
			}
		}
		if drifted {
			if err := s.ledger.Rebuild(ctx, stage.ID, fresh); err != nil {
				s.logger.ErrorContext(ctx, "ledger rebuild failed",
					slog.Int("stage_id", stage.ID), slog.Any("error", err))
			}
		}
	}
	return nil
}

func (s *leaderboardService) writeCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, cache.LeaderboardTTL); err != nil {
		s.logger.WarnContext(ctx, "leaderboard cache write failed",
			slog.String("key", key), slog.Any("error", err))
	}
}

// ledgerFromResults строит эталонные бегущие суммы из строк результатов
// завершённых матчей (для сверки и пересборки леджера).
func ledgerFromResults(results []*models.MatchResult) []models.LedgerEntry {
	totals := make(map[int]*models.LedgerEntry)
	order := make([]int, 0)
	for _, r := range results {
		e, ok := totals[r.TeamID]
		if !ok {
			e = &models.LedgerEntry{TeamID: r.TeamID}
			totals[r.TeamID] = e
			order = append(order, r.TeamID)
		}
		e.Points = scoring.Round2(e.Points + r.TotalPoints)
		e.Kills += r.Kills
	}
	entries := make([]models.LedgerEntry, 0, len(order))
	for _, teamID := range order {
		entries = append(entries, *totals[teamID])
	}
	return entries
}
