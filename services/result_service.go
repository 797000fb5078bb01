package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arenastats/scoring-system/models"
	"github.com/arenastats/scoring-system/repositories"
	"github.com/arenastats/scoring-system/scoring"
)

// TeamResultInput — результат одной команды в пакете отправки.
type TeamResultInput struct {
	TeamID      int                `json:"team_id"`
	Kills       int                `json:"kills"`
	Placement   int                `json:"placement"`
	TopPlayer   *string            `json:"top_player,omitempty"`
	PlayerKills []PlayerKillsInput `json:"player_kills,omitempty"`
}

// PlayerKillsInput — покилловая разбивка команды (не влияет на очки).
type PlayerKillsInput struct {
	PlayerID int `json:"player_id"`
	Kills    int `json:"kills"`
}

// ResultService — хранилище результатов и драйвер пересчёта. Пакет
// применяется целиком в одной транзакции: неуспешная отправка не
// оставляет частичных записей.
type ResultService interface {
	SubmitMatchResults(ctx context.Context, matchID int, inputs []TeamResultInput) ([]*models.MatchResult, error)
	// RecalculateStageResults перегоняет калькулятор по всем строкам
	// этапа после смены ruleset'а: kills/placement/top_player не
	// трогаются, переписываются только четыре поля очков. Идемпотентно.
	RecalculateStageResults(ctx context.Context, stageID int) ([]*models.MatchResult, error)
}

type resultService struct {
	db         *sql.DB
	matchRepo  repositories.MatchRepository
	stageRepo  repositories.StageRepository
	resultRepo repositories.ResultRepository
	rulesets   RulesetService
	ledger     DeltaLedger
	refresher  scopeRefresher
	logger     *slog.Logger
}

func NewResultService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	stageRepo repositories.StageRepository,
	resultRepo repositories.ResultRepository,
	rulesets RulesetService,
	leaderboards LeaderboardService,
	lbCache LeaderboardCache,
	ledger DeltaLedger,
	broadcaster Broadcaster,
	logger *slog.Logger,
) ResultService {
	return &resultService{
		db:         db,
		matchRepo:  matchRepo,
		stageRepo:  stageRepo,
		resultRepo: resultRepo,
		rulesets:   rulesets,
		ledger:     ledger,
		refresher: scopeRefresher{
			cache:        lbCache,
			leaderboards: leaderboards,
			broadcaster:  broadcaster,
			logger:       logger,
		},
		logger: logger,
	}
}

// teamDelta — изменение бегущих сумм команды относительно прежней
// сохранённой строки. Считается сравнением со строкой, прочитанной в
// той же транзакции, а не слепым инкрементом: повтор после частичного
// сбоя не задвоит уже применённую дельту.
type teamDelta struct {
	teamID      int
	pointsDelta float64
	killsDelta  int
}

func validateBatch(inputs []TeamResultInput) error {
	if len(inputs) == 0 {
		return ErrResultsEmpty
	}
	seenPlacements := make(map[int]bool, len(inputs))
	seenTeams := make(map[int]bool, len(inputs))
	for _, in := range inputs {
		if in.Kills < 0 {
			return fmt.Errorf("%w: team %d", ErrNegativeKills, in.TeamID)
		}
		if in.Placement < 1 {
			return fmt.Errorf("%w: team %d", ErrInvalidPlacement, in.TeamID)
		}
		if seenPlacements[in.Placement] {
			return fmt.Errorf("%w: placement %d", ErrDuplicatePlacement, in.Placement)
		}
		seenPlacements[in.Placement] = true
		if seenTeams[in.TeamID] {
			return fmt.Errorf("%w: team %d", ErrDuplicateTeam, in.TeamID)
		}
		seenTeams[in.TeamID] = true
		for _, pk := range in.PlayerKills {
			if pk.Kills < 0 {
				return fmt.Errorf("%w: player %d", ErrNegativeKills, pk.PlayerID)
			}
		}
	}
	return nil
}

func (s *resultService) SubmitMatchResults(ctx context.Context, matchID int, inputs []TeamResultInput) ([]*models.MatchResult, error) {
	if err := validateBatch(inputs); err != nil {
		return nil, err
	}

	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %d: %w", matchID, err)
	}
	if match.Locked {
		return nil, ErrMatchLocked
	}
	if match.Status == models.MatchStatusCanceled {
		return nil, ErrMatchCanceled
	}

	stage, err := s.stageRepo.GetByID(ctx, nil, match.StageID)
	if err != nil {
		if errors.Is(err, repositories.ErrStageNotFound) {
			return nil, ErrStageNotFound
		}
		return nil, fmt.Errorf("failed to get stage %d: %w", match.StageID, err)
	}

	ruleset, err := s.rulesets.GetOrCreateForStage(ctx, stage.ID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	results := make([]*models.MatchResult, 0, len(inputs))
	deltas := make([]teamDelta, 0, len(inputs))

	// Записи применяются строго в порядке пакета.
	for _, in := range inputs {
		breakdown := scoring.ComputePoints(in.Kills, in.Placement, ruleset)

		prev, err := s.resultRepo.GetByMatchAndTeam(ctx, tx, matchID, in.TeamID)
		if err != nil && !errors.Is(err, repositories.ErrMatchResultNotFound) {
			return nil, fmt.Errorf("failed to read prior result for team %d: %w", in.TeamID, err)
		}

		row := &models.MatchResult{
			MatchID:         matchID,
			TeamID:          in.TeamID,
			Kills:           in.Kills,
			Placement:       in.Placement,
			KillPoints:      breakdown.KillPoints,
			PlacementPoints: breakdown.PlacementPoints,
			BonusPoints:     breakdown.BonusPoints,
			TotalPoints:     breakdown.TotalPoints,
			TopPlayer:       in.TopPlayer,
		}
		if err := s.resultRepo.Upsert(ctx, tx, row); err != nil {
			if errors.Is(err, repositories.ErrMatchResultInvalid) {
				return nil, fmt.Errorf("%w: team %d", ErrTeamNotFound, in.TeamID)
			}
			return nil, fmt.Errorf("failed to upsert result for team %d: %w", in.TeamID, err)
		}

		delta := teamDelta{teamID: in.TeamID, pointsDelta: row.TotalPoints, killsDelta: row.Kills}
		if prev != nil {
			delta.pointsDelta = scoring.Round2(row.TotalPoints - prev.TotalPoints)
			delta.killsDelta = row.Kills - prev.Kills
		}
		deltas = append(deltas, delta)

		for _, pk := range in.PlayerKills {
			pr := &models.PlayerMatchResult{
				MatchID:  matchID,
				TeamID:   in.TeamID,
				PlayerID: pk.PlayerID,
				Kills:    pk.Kills,
			}
			if err := s.resultRepo.UpsertPlayerResult(ctx, tx, pr); err != nil {
				return nil, fmt.Errorf("failed to upsert player result for player %d: %w", pk.PlayerID, err)
			}
		}

		results = append(results, row)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit results for match %d: %w", matchID, err)
	}

	// Строки записаны; всё дальше — best-effort производное состояние.
	s.bumpLedger(ctx, stage.ID, deltas)
	s.refresher.invalidateScopes(ctx, stage.TournamentID, stage.ID)
	s.refresher.refreshAndBroadcast(ctx, stage.TournamentID, stage.ID)

	return results, nil
}

func (s *resultService) bumpLedger(ctx context.Context, stageID int, deltas []teamDelta) {
	if s.ledger == nil {
		return
	}
	for _, d := range deltas {
		if d.pointsDelta == 0 && d.killsDelta == 0 {
			continue
		}
		if err := s.ledger.Bump(ctx, stageID, d.teamID, d.pointsDelta, d.killsDelta); err != nil {
			s.logger.WarnContext(ctx, "delta ledger bump failed",
				slog.Int("stage_id", stageID), slog.Int("team_id", d.teamID), slog.Any("error", err))
		}
	}
}

func (s *resultService) RecalculateStageResults(ctx context.Context, stageID int) ([]*models.MatchResult, error) {
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

	// Пересчитываются все строки этапа независимо от статуса матча.
	results, err := s.resultRepo.ListByStage(ctx, nil, stageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results for stage %d: %w", stageID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range results {
		breakdown := scoring.ComputePoints(r.Kills, r.Placement, ruleset)
		r.KillPoints = breakdown.KillPoints
		r.PlacementPoints = breakdown.PlacementPoints
		r.BonusPoints = breakdown.BonusPoints
		r.TotalPoints = breakdown.TotalPoints
		if err := s.resultRepo.UpdatePoints(ctx, tx, r); err != nil {
			return nil, fmt.Errorf("failed to rewrite points for result %d: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit recalculation for stage %d: %w", stageID, err)
	}

	// Бегущие суммы леджера пересобираются из переписанных строк, иначе
	// они разойдутся с новыми очками.
	if s.ledger != nil {
		completed := make([]*models.MatchResult, 0, len(results))
		for _, r := range results {
			if r.Match != nil && r.Match.Status == models.MatchStatusCompleted {
				completed = append(completed, r)
			}
		}
		if err := s.ledger.Rebuild(ctx, stageID, ledgerFromResults(completed)); err != nil {
			s.logger.WarnContext(ctx, "ledger rebuild after recalculation failed",
				slog.Int("stage_id", stageID), slog.Any("error", err))
		}
	}

	s.refresher.invalidateScopes(ctx, stage.TournamentID, stage.ID)
	s.refresher.refreshAndBroadcast(ctx, stage.TournamentID, stage.ID)

	return results, nil
}
