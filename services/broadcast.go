package services

import (
	"context"
	"log/slog"

	"github.com/arenastats/scoring-system/cache"
)

// scopeRefresher — общий для сервисов записи хвост мутации: инвалидация
// кэша обоих скоупов, пересчёт и публикация свежих таблиц подписчикам.
// Ошибки здесь никогда не доходят до HTTP-ответа мутации: кэш и push —
// best-effort, авторитетные строки уже записаны.
type scopeRefresher struct {
	cache        LeaderboardCache
	leaderboards LeaderboardService
	broadcaster  Broadcaster
	logger       *slog.Logger
}

func (r *scopeRefresher) invalidateScopes(ctx context.Context, tournamentID, stageID int) {
	if r.cache == nil {
		return
	}
	keys := []string{cache.TournamentKey(tournamentID), cache.StageKey(stageID)}
	if err := r.cache.Delete(ctx, keys...); err != nil {
		r.logger.WarnContext(ctx, "cache invalidation failed, falling back to pattern delete",
			slog.Any("error", err))
		if err := r.cache.DeleteByPattern(ctx, cache.LeaderboardPattern); err != nil {
			r.logger.WarnContext(ctx, "pattern cache invalidation failed", slog.Any("error", err))
		}
	}
}

func (r *scopeRefresher) refreshAndBroadcast(ctx context.Context, tournamentID, stageID int) {
	board, err := r.leaderboards.StageLeaderboard(ctx, stageID)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to recompute stage leaderboard for broadcast",
			slog.Int("stage_id", stageID), slog.Any("error", err))
	} else if r.broadcaster != nil {
		r.broadcaster.Publish(ScopeStage, stageID, board)
	}

	entries, err := r.leaderboards.TournamentLeaderboardByID(ctx, tournamentID)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to recompute tournament leaderboard for broadcast",
			slog.Int("tournament_id", tournamentID), slog.Any("error", err))
	} else if r.broadcaster != nil {
		r.broadcaster.Publish(ScopeTournament, tournamentID, entries)
	}
}
