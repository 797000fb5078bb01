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
	ErrMatchResultNotFound  = errors.New("match result not found")
	ErrMatchResultInvalid   = errors.New("match result team or match conflict or invalid")
	ErrPlayerResultInvalid  = errors.New("player result player or match conflict or invalid")
	ErrPlayerResultNotFound = errors.New("player match result not found")
)

type ResultRepository interface {
	GetByMatchAndTeam(ctx context.Context, exec SQLExecutor, matchID, teamID int) (*models.MatchResult, error)
	// Upsert вставляет или перезаписывает строку результата по ключу
	// (match_id, team_id). Дельту очков считает вызывающая сторона,
	// сравнивая с прочитанной ранее строкой в той же транзакции.
	Upsert(ctx context.Context, exec SQLExecutor, result *models.MatchResult) error
	// UpdatePoints переписывает только четыре производных поля очков,
	// не трогая kills/placement/top_player (драйвер пересчёта).
	UpdatePoints(ctx context.Context, exec SQLExecutor, result *models.MatchResult) error
	ListByStage(ctx context.Context, exec SQLExecutor, stageID int) ([]*models.MatchResult, error)
	ListCompletedByStage(ctx context.Context, exec SQLExecutor, stageID int) ([]*models.MatchResult, error)
	ListCompletedByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.MatchResult, error)
	UpsertPlayerResult(ctx context.Context, exec SQLExecutor, result *models.PlayerMatchResult) error
	ListPlayerKillsByStage(ctx context.Context, exec SQLExecutor, stageID int) ([]models.PlayerKills, error)
}

type postgresResultRepository struct {
	db *sql.DB
}

func NewPostgresResultRepository(db *sql.DB) ResultRepository {
	return &postgresResultRepository{db: db}
}

func (r *postgresResultRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresResultRepository) GetByMatchAndTeam(ctx context.Context, exec SQLExecutor, matchID, teamID int) (*models.MatchResult, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, match_id, team_id, kills, placement, kill_points, placement_points, bonus_points, total_points, top_player, created_at, updated_at
		FROM match_results WHERE match_id = $1 AND team_id = $2`
	var res models.MatchResult
	err := executor.QueryRowContext(ctx, query, matchID, teamID).Scan(
		&res.ID, &res.MatchID, &res.TeamID, &res.Kills, &res.Placement,
		&res.KillPoints, &res.PlacementPoints, &res.BonusPoints, &res.TotalPoints,
		&res.TopPlayer, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchResultNotFound
		}
		return nil, err
	}
	return &res, nil
}

func (r *postgresResultRepository) Upsert(ctx context.Context, exec SQLExecutor, result *models.MatchResult) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO match_results
			(match_id, team_id, kills, placement, kill_points, placement_points, bonus_points, total_points, top_player, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (match_id, team_id) DO UPDATE SET
			kills = EXCLUDED.kills,
			placement = EXCLUDED.placement,
			kill_points = EXCLUDED.kill_points,
			placement_points = EXCLUDED.placement_points,
			bonus_points = EXCLUDED.bonus_points,
			total_points = EXCLUDED.total_points,
			top_player = EXCLUDED.top_player,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`
	now := time.Now()
	err := executor.QueryRowContext(ctx, query,
		result.MatchID, result.TeamID, result.Kills, result.Placement,
		result.KillPoints, result.PlacementPoints, result.BonusPoints, result.TotalPoints,
		result.TopPlayer, now,
	).Scan(&result.ID, &result.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" { // foreign_key_violation
			return ErrMatchResultInvalid
		}
		return err
	}
	result.UpdatedAt = now
	return nil
}

func (r *postgresResultRepository) UpdatePoints(ctx context.Context, exec SQLExecutor, result *models.MatchResult) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE match_results SET
			kill_points = $1, placement_points = $2, bonus_points = $3, total_points = $4, updated_at = NOW()
		WHERE id = $5`
	res, err := executor.ExecContext(ctx, query,
		result.KillPoints, result.PlacementPoints, result.BonusPoints, result.TotalPoints, result.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(res, ErrMatchResultNotFound)
}

func (r *postgresResultRepository) scanResultWithMatch(rows *sql.Rows) (*models.MatchResult, error) {
	var res models.MatchResult
	var m models.Match
	err := rows.Scan(
		&res.ID, &res.MatchID, &res.TeamID, &res.Kills, &res.Placement,
		&res.KillPoints, &res.PlacementPoints, &res.BonusPoints, &res.TotalPoints,
		&res.TopPlayer, &res.CreatedAt, &res.UpdatedAt,
		&m.ID, &m.StageID, &m.Number, &m.MapName, &m.ScheduledAt, &m.Status, &m.Locked, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	res.Match = &m
	return &res, nil
}

const resultWithMatchColumns = `
	mr.id, mr.match_id, mr.team_id, mr.kills, mr.placement,
	mr.kill_points, mr.placement_points, mr.bonus_points, mr.total_points,
	mr.top_player, mr.created_at, mr.updated_at,
	m.id, m.stage_id, m.number, m.map_name, m.scheduled_at, m.status, m.locked, m.created_at`

func (r *postgresResultRepository) listResults(ctx context.Context, executor SQLExecutor, query string, args ...interface{}) ([]*models.MatchResult, error) {
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]*models.MatchResult, 0)
	for rows.Next() {
		res, errScan := r.scanResultWithMatch(rows)
		if errScan != nil {
			return nil, errScan
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func (r *postgresResultRepository) ListByStage(ctx context.Context, exec SQLExecutor, stageID int) ([]*models.MatchResult, error) {
	query := `
		SELECT ` + resultWithMatchColumns + `
		FROM match_results mr
		JOIN matches m ON mr.match_id = m.id
		WHERE m.stage_id = $1
		ORDER BY m.scheduled_at ASC, mr.team_id ASC`
	return r.listResults(ctx, r.getExecutor(exec), query, stageID)
}

func (r *postgresResultRepository) ListCompletedByStage(ctx context.Context, exec SQLExecutor, stageID int) ([]*models.MatchResult, error) {
	query := `
		SELECT ` + resultWithMatchColumns + `
		FROM match_results mr
		JOIN matches m ON mr.match_id = m.id
		WHERE m.stage_id = $1 AND m.status = 'completed'
		ORDER BY m.scheduled_at ASC, mr.team_id ASC`
	return r.listResults(ctx, r.getExecutor(exec), query, stageID)
}

func (r *postgresResultRepository) ListCompletedByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.MatchResult, error) {
	query := `
		SELECT ` + resultWithMatchColumns + `
		FROM match_results mr
		JOIN matches m ON mr.match_id = m.id
		JOIN stages s ON m.stage_id = s.id
		WHERE s.tournament_id = $1 AND m.status = 'completed'
		ORDER BY m.scheduled_at ASC, mr.team_id ASC`
	return r.listResults(ctx, r.getExecutor(exec), query, tournamentID)
}

func (r *postgresResultRepository) UpsertPlayerResult(ctx context.Context, exec SQLExecutor, result *models.PlayerMatchResult) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO player_match_results (match_id, team_id, player_id, kills, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (match_id, team_id, player_id) DO UPDATE SET
			kills = EXCLUDED.kills,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`
	now := time.Now()
	err := executor.QueryRowContext(ctx, query,
		result.MatchID, result.TeamID, result.PlayerID, result.Kills, now,
	).Scan(&result.ID, &result.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" { // foreign_key_violation
			return ErrPlayerResultInvalid
		}
		return err
	}
	result.UpdatedAt = now
	return nil
}

func (r *postgresResultRepository) ListPlayerKillsByStage(ctx context.Context, exec SQLExecutor, stageID int) ([]models.PlayerKills, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT pmr.team_id, pmr.player_id, p.name, SUM(pmr.kills) AS kills
		FROM player_match_results pmr
		JOIN matches m ON pmr.match_id = m.id
		JOIN players p ON pmr.player_id = p.id
		WHERE m.stage_id = $1 AND m.status = 'completed'
		GROUP BY pmr.team_id, pmr.player_id, p.name
		ORDER BY kills DESC`
	rows, err := executor.QueryContext(ctx, query, stageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	kills := make([]models.PlayerKills, 0)
	for rows.Next() {
		var teamID int
		var pk models.PlayerKills
		if err := rows.Scan(&teamID, &pk.PlayerID, &pk.Name, &pk.Kills); err != nil {
			return nil, err
		}
		pk.TeamID = teamID
		kills = append(kills, pk)
	}
	return kills, rows.Err()
}
