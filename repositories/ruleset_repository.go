package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/arenastats/scoring-system/models"
	"github.com/lib/pq"
)

var (
	ErrRulesetNotFound = errors.New("ruleset not found")
	// ErrRulesetStageConflict — нарушение UNIQUE(stage_id): ruleset для
	// этапа уже создан конкурентным запросом.
	ErrRulesetStageConflict = errors.New("ruleset already exists for stage")
	ErrRulesetStageInvalid  = errors.New("ruleset stage conflict or invalid")
)

type RulesetRepository interface {
	GetByStageID(ctx context.Context, exec SQLExecutor, stageID int) (*models.Ruleset, error)
	Create(ctx context.Context, exec SQLExecutor, ruleset *models.Ruleset) error
	Update(ctx context.Context, exec SQLExecutor, ruleset *models.Ruleset) error
}

type postgresRulesetRepository struct {
	db *sql.DB
}

func NewPostgresRulesetRepository(db *sql.DB) RulesetRepository {
	return &postgresRulesetRepository{db: db}
}

func (r *postgresRulesetRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRulesetRepository) GetByStageID(ctx context.Context, exec SQLExecutor, stageID int) (*models.Ruleset, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, stage_id, kill_points, placement_points, multiplier, bonus_rules, tie_breakers, created_at, updated_at
		FROM rulesets WHERE stage_id = $1`
	var rs models.Ruleset
	err := executor.QueryRowContext(ctx, query, stageID).Scan(
		&rs.ID, &rs.StageID, &rs.KillPoints, &rs.PlacementPoints,
		&rs.Multiplier, &rs.BonusRules, &rs.TieBreakers, &rs.CreatedAt, &rs.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRulesetNotFound
		}
		return nil, err
	}
	return &rs, nil
}

func (r *postgresRulesetRepository) Create(ctx context.Context, exec SQLExecutor, ruleset *models.Ruleset) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO rulesets (stage_id, kill_points, placement_points, multiplier, bonus_rules, tie_breakers, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id`
	now := time.Now()
	ruleset.CreatedAt = now
	ruleset.UpdatedAt = now
	err := executor.QueryRowContext(ctx, query,
		ruleset.StageID, ruleset.KillPoints, ruleset.PlacementPoints,
		ruleset.Multiplier, ruleset.BonusRules, ruleset.TieBreakers, now,
	).Scan(&ruleset.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // unique_violation
				return ErrRulesetStageConflict
			case "23503": // foreign_key_violation
				return ErrRulesetStageInvalid
			}
		}
		return err
	}
	return nil
}

func (r *postgresRulesetRepository) Update(ctx context.Context, exec SQLExecutor, ruleset *models.Ruleset) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE rulesets SET
			kill_points = $1, placement_points = $2, multiplier = $3,
			bonus_rules = $4, tie_breakers = $5, updated_at = NOW()
		WHERE id = $6`
	result, err := executor.ExecContext(ctx, query,
		ruleset.KillPoints, ruleset.PlacementPoints, ruleset.Multiplier,
		ruleset.BonusRules, ruleset.TieBreakers, ruleset.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRulesetNotFound)
}
