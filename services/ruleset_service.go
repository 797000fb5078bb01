package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arenastats/scoring-system/models"
	"github.com/arenastats/scoring-system/repositories"
	"github.com/arenastats/scoring-system/scoring"
)

// RulesetService отвечает за конфигурацию начисления очков этапа:
// пресеты по игре, get-or-create при первом использовании и обновление.
// Пересчёт существующих результатов после обновления запускает
// вызывающая сторона (ResultService.RecalculateStageResults).
type RulesetService interface {
	DefaultForGame(game string) models.Ruleset
	GetOrCreateForStage(ctx context.Context, stageID int) (*models.Ruleset, error)
	UpdateStageRuleset(ctx context.Context, stageID int, input UpdateRulesetInput) (*models.Ruleset, error)
}

// UpdateRulesetInput — частичное обновление: nil-поля не меняются.
type UpdateRulesetInput struct {
	KillPoints      *float64              `json:"kill_points,omitempty"`
	PlacementPoints models.PlacementTable `json:"placement_points,omitempty"`
	Multiplier      *float64              `json:"multiplier,omitempty"`
	BonusRules      *models.BonusRules    `json:"bonus_rules,omitempty"`
	TieBreakers     *models.TieBreakers   `json:"tie_breakers,omitempty"`
}

type rulesetService struct {
	rulesetRepo    repositories.RulesetRepository
	stageRepo      repositories.StageRepository
	tournamentRepo repositories.TournamentRepository
	logger         *slog.Logger
}

func NewRulesetService(
	rulesetRepo repositories.RulesetRepository,
	stageRepo repositories.StageRepository,
	tournamentRepo repositories.TournamentRepository,
	logger *slog.Logger,
) RulesetService {
	return &rulesetService{
		rulesetRepo:    rulesetRepo,
		stageRepo:      stageRepo,
		tournamentRepo: tournamentRepo,
		logger:         logger,
	}
}

func (s *rulesetService) DefaultForGame(game string) models.Ruleset {
	return scoring.DefaultRuleset(game)
}

// GetOrCreateForStage возвращает ruleset этапа, синтезируя и сохраняя
// дефолтный при первом обращении. Идемпотентно: UNIQUE(stage_id) в БД
// гарантирует, что конкурентный второй запрос не создаст дубликат —
// проигравший гонку перечитывает строку победителя.
func (s *rulesetService) GetOrCreateForStage(ctx context.Context, stageID int) (*models.Ruleset, error) {
	rs, err := s.rulesetRepo.GetByStageID(ctx, nil, stageID)
	if err == nil {
		return rs, nil
	}
	if !errors.Is(err, repositories.ErrRulesetNotFound) {
		return nil, fmt.Errorf("failed to get ruleset for stage %d: %w", stageID, err)
	}

	stage, err := s.stageRepo.GetByID(ctx, nil, stageID)
	if err != nil {
		if errors.Is(err, repositories.ErrStageNotFound) {
			return nil, ErrStageNotFound
		}
		return nil, fmt.Errorf("failed to get stage %d: %w", stageID, err)
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, stage.TournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", stage.TournamentID, err)
	}

	def := scoring.DefaultRuleset(tournament.Game)
	def.StageID = stageID
	if err := s.rulesetRepo.Create(ctx, nil, &def); err != nil {
		if errors.Is(err, repositories.ErrRulesetStageConflict) {
			// Проиграли гонку конкурентному созданию — читаем победителя.
			return s.rulesetRepo.GetByStageID(ctx, nil, stageID)
		}
		return nil, fmt.Errorf("failed to persist default ruleset for stage %d: %w", stageID, err)
	}
	s.logger.InfoContext(ctx, "synthesized default ruleset for stage",
		slog.Int("stage_id", stageID), slog.String("game", tournament.Game))
	return &def, nil
}

func (s *rulesetService) UpdateStageRuleset(ctx context.Context, stageID int, input UpdateRulesetInput) (*models.Ruleset, error) {
	rs, err := s.GetOrCreateForStage(ctx, stageID)
	if err != nil {
		return nil, err
	}

	if input.KillPoints != nil {
		if *input.KillPoints < 0 {
			return nil, ErrInvalidKillPoints
		}
		rs.KillPoints = *input.KillPoints
	}
	if input.Multiplier != nil {
		if *input.Multiplier <= 0 {
			return nil, ErrInvalidMultiplier
		}
		rs.Multiplier = *input.Multiplier
	}
	if input.PlacementPoints != nil {
		for place, pts := range input.PlacementPoints {
			if place < 1 {
				return nil, ErrInvalidPlacementRank
			}
			if pts < 0 {
				return nil, fmt.Errorf("%w: negative points for placement %d", ErrValidationFailed, place)
			}
		}
		rs.PlacementPoints = input.PlacementPoints
	}
	if input.BonusRules != nil {
		for _, rule := range *input.BonusRules {
			if rule.MinKills < 0 {
				return nil, fmt.Errorf("%w: bonus rule min_kills must be non-negative", ErrValidationFailed)
			}
		}
		rs.BonusRules = *input.BonusRules
	}
	if input.TieBreakers != nil {
		for _, tb := range *input.TieBreakers {
			if !models.KnownTieBreakers[tb] {
				return nil, fmt.Errorf("%w: %q", ErrUnknownTieBreaker, tb)
			}
		}
		rs.TieBreakers = *input.TieBreakers
	}

	if err := s.rulesetRepo.Update(ctx, nil, rs); err != nil {
		if errors.Is(err, repositories.ErrRulesetNotFound) {
			return nil, ErrRulesetNotFound
		}
		return nil, fmt.Errorf("failed to update ruleset for stage %d: %w", stageID, err)
	}
	return rs, nil
}
