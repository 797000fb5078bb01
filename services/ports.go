package services

import (
	"context"
	"time"

	"github.com/arenastats/scoring-system/models"
)

// Типы скоупов таблиц лидеров (и комнат push-слоя).
const (
	ScopeTournament = "tournament"
	ScopeStage      = "stage"
)

// LeaderboardCache — порт read-through кэша. Реализуется пакетом cache
// (Redis); в тестах подменяется in-memory фейком. Отсутствие кэша
// (nil-интерфейс) и любые его ошибки — деградация до пересчёта, не сбой.
type LeaderboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// DeltaLedger — порт дельта-леджера этапа. Пишется на пути записи
// результатов, читается только для сверки и операторского API.
type DeltaLedger interface {
	Bump(ctx context.Context, stageID, teamID int, pointsDelta float64, killsDelta int) error
	TeamTotals(ctx context.Context, stageID, teamID int) (points float64, kills int, err error)
	StageTotals(ctx context.Context, stageID int) ([]models.LedgerEntry, error)
	Rebuild(ctx context.Context, stageID int, entries []models.LedgerEntry) error
}

// Broadcaster — порт push-слоя. Реализация обязана не блокировать и не
// возвращать ошибки: сбой доставки не влияет на путь записи.
type Broadcaster interface {
	Publish(scopeType string, scopeID int, payload interface{})
}
