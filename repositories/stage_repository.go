package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/arenastats/scoring-system/models"
)

var ErrStageNotFound = errors.New("stage not found")

type StageRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Stage, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Stage, error)
	// ListRecentlyActive возвращает этапы, результаты которых менялись
	// за последний interval (для фоновой сверки леджера).
	ListRecentlyActive(ctx context.Context, exec SQLExecutor, interval string) ([]*models.Stage, error)
}

type postgresStageRepository struct {
	db *sql.DB
}

func NewPostgresStageRepository(db *sql.DB) StageRepository {
	return &postgresStageRepository{db: db}
}

func (r *postgresStageRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresStageRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Stage, error) {
	executor := r.getExecutor(exec)
	query := `SELECT id, tournament_id, name, sequence, created_at FROM stages WHERE id = $1`
	var s models.Stage
	err := executor.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.TournamentID, &s.Name, &s.Sequence, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStageNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *postgresStageRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Stage, error) {
	executor := r.getExecutor(exec)
	query := `SELECT id, tournament_id, name, sequence, created_at FROM stages WHERE tournament_id = $1 ORDER BY sequence ASC`
	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stages := make([]*models.Stage, 0)
	for rows.Next() {
		var s models.Stage
		if err := rows.Scan(&s.ID, &s.TournamentID, &s.Name, &s.Sequence, &s.CreatedAt); err != nil {
			return nil, err
		}
		stages = append(stages, &s)
	}
	return stages, rows.Err()
}

func (r *postgresStageRepository) ListRecentlyActive(ctx context.Context, exec SQLExecutor, interval string) ([]*models.Stage, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT DISTINCT s.id, s.tournament_id, s.name, s.sequence, s.created_at
		FROM stages s
		JOIN matches m ON m.stage_id = s.id
		JOIN match_results mr ON mr.match_id = m.id
		WHERE mr.updated_at > NOW() - $1::interval`
	rows, err := executor.QueryContext(ctx, query, interval)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stages := make([]*models.Stage, 0)
	for rows.Next() {
		var s models.Stage
		if err := rows.Scan(&s.ID, &s.TournamentID, &s.Name, &s.Sequence, &s.CreatedAt); err != nil {
			return nil, err
		}
		stages = append(stages, &s)
	}
	return stages, rows.Err()
}
