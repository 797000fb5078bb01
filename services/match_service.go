package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arenastats/scoring-system/models"
	"github.com/arenastats/scoring-system/repositories"
)

// MatchService управляет жизненным циклом матча в части, затрагивающей
// подсчёт очков: смена статуса (completed вводит результаты матча в
// таблицы лидеров) и блокировка редактирования результатов.
type MatchService interface {
	GetMatch(ctx context.Context, matchID int) (*models.Match, error)
	UpdateStatus(ctx context.Context, matchID int, next models.MatchStatus) (*models.Match, error)
	Lock(ctx context.Context, matchID int) (*models.Match, error)
}

type matchService struct {
	matchRepo repositories.MatchRepository
	stageRepo repositories.StageRepository
	refresher scopeRefresher
	logger    *slog.Logger
}

func NewMatchService(
	matchRepo repositories.MatchRepository,
	stageRepo repositories.StageRepository,
	leaderboards LeaderboardService,
	lbCache LeaderboardCache,
	broadcaster Broadcaster,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		matchRepo: matchRepo,
		stageRepo: stageRepo,
		refresher: scopeRefresher{
			cache:        lbCache,
			leaderboards: leaderboards,
			broadcaster:  broadcaster,
			logger:       logger,
		},
		logger: logger,
	}
}

func (s *matchService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func isValidMatchStatus(status models.MatchStatus) bool {
	switch status {
	case models.MatchStatusScheduled, models.MatchStatusLive, models.MatchStatusCompleted, models.MatchStatusCanceled:
		return true
	}
	return false
}

func (s *matchService) UpdateStatus(ctx context.Context, matchID int, next models.MatchStatus) (*models.Match, error) {
	if !isValidMatchStatus(next) {
		return nil, fmt.Errorf("%w: %q", ErrMatchInvalidStatus, next)
	}

	match, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !models.IsValidMatchStatusTransition(match.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrMatchInvalidStatusTransition, match.Status, next)
	}
	if match.Status == next {
		return match, nil
	}

	if err := s.matchRepo.UpdateStatus(ctx, nil, matchID, next); err != nil {
		return nil, fmt.Errorf("failed to update match %d status: %w", matchID, err)
	}
	match.Status = next

	// Переход в completed (или отмена завершаемого матча) меняет состав
	// строк, попадающих в таблицы лидеров.
	if next == models.MatchStatusCompleted || next == models.MatchStatusCanceled {
		stage, err := s.stageRepo.GetByID(ctx, nil, match.StageID)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to load stage for leaderboard refresh",
				slog.Int("stage_id", match.StageID), slog.Any("error", err))
			return match, nil
		}
		s.refresher.invalidateScopes(ctx, stage.TournamentID, stage.ID)
		s.refresher.refreshAndBroadcast(ctx, stage.TournamentID, stage.ID)
	}

	return match, nil
}

// Lock замораживает результаты матча: дальнейшие отправки отклоняются,
// пока флаг не снят напрямую в БД. Обратной операции в API нет.
func (s *matchService) Lock(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.Locked {
		return match, nil
	}
	if err := s.matchRepo.SetLocked(ctx, nil, matchID, true); err != nil {
		return nil, fmt.Errorf("failed to lock match %d: %w", matchID, err)
	}
	match.Locked = true
	return match, nil
}
