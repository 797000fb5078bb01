package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/arenastats/scoring-system/models"
	"github.com/redis/go-redis/v9"
)

// Ledger — дельта-леджер этапа: два sorted set'а на этап с бегущими
// суммами очков и киллов по командам, обновляемыми атомарным ZINCRBY.
// Это побочный быстрый канал: агрегатор таблиц лидеров его не читает,
// а числа леджера должны независимо сходиться с полным пересчётом.
type Ledger struct {
	client *redis.Client
}

func NewLedger(c *Cache) *Ledger {
	return &Ledger{client: c.Client()}
}

func ledgerPointsKey(stageID int) string {
	return fmt.Sprintf("ledger:stage:%d:points", stageID)
}

func ledgerKillsKey(stageID int) string {
	return fmt.Sprintf("ledger:stage:%d:kills", stageID)
}

// Bump атомарно инкрементирует бегущие суммы команды в рамках этапа.
func (l *Ledger) Bump(ctx context.Context, stageID, teamID int, pointsDelta float64, killsDelta int) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	member := strconv.Itoa(teamID)
	pipe := l.client.Pipeline()
	pipe.ZIncrBy(ctx, ledgerPointsKey(stageID), pointsDelta, member)
	pipe.ZIncrBy(ctx, ledgerKillsKey(stageID), float64(killsDelta), member)
	_, err := pipe.Exec(ctx)
	return err
}

// TeamTotals возвращает бегущие суммы одной команды. Отсутствие команды
// в леджере — это нулевые суммы, а не ошибка.
func (l *Ledger) TeamTotals(ctx context.Context, stageID, teamID int) (points float64, kills int, err error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	member := strconv.Itoa(teamID)
	points, err = l.client.ZScore(ctx, ledgerPointsKey(stageID), member).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	killsF, err := l.client.ZScore(ctx, ledgerKillsKey(stageID), member).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, err
	}
	return points, int(killsF), nil
}

// StageTotals возвращает леджер этапа целиком, по убыванию очков.
func (l *Ledger) StageTotals(ctx context.Context, stageID int) ([]models.LedgerEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	zs, err := l.client.ZRevRangeWithScores(ctx, ledgerPointsKey(stageID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]models.LedgerEntry, 0, len(zs))
	for _, z := range zs {
		teamID, convErr := strconv.Atoi(fmt.Sprint(z.Member))
		if convErr != nil {
			continue
		}
		killsF, killsErr := l.client.ZScore(ctx, ledgerKillsKey(stageID), fmt.Sprint(z.Member)).Result()
		if killsErr != nil && !errors.Is(killsErr, redis.Nil) {
			return nil, killsErr
		}
		entries = append(entries, models.LedgerEntry{
			TeamID: teamID,
			Points: z.Score,
			Kills:  int(killsF),
		})
	}
	return entries, nil
}

// Reset очищает леджер этапа (используется при полном пересчёте,
// чтобы бегущие суммы не разошлись с переписанными строками).
func (l *Ledger) Reset(ctx context.Context, stageID int) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return l.client.Del(ctx, ledgerPointsKey(stageID), ledgerKillsKey(stageID)).Err()
}

// Rebuild перезаписывает леджер этапа свежепосчитанными суммами.
func (l *Ledger) Rebuild(ctx context.Context, stageID int, entries []models.LedgerEntry) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	pipe := l.client.TxPipeline()
	pipe.Del(ctx, ledgerPointsKey(stageID), ledgerKillsKey(stageID))
	for _, e := range entries {
		member := strconv.Itoa(e.TeamID)
		pipe.ZAdd(ctx, ledgerPointsKey(stageID), redis.Z{Score: e.Points, Member: member})
		pipe.ZAdd(ctx, ledgerKillsKey(stageID), redis.Z{Score: float64(e.Kills), Member: member})
	}
	_, err := pipe.Exec(ctx)
	return err
}
