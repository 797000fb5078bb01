// Package cache реализует кэш таблиц лидеров и дельта-леджер поверх Redis.
// Кэш не авторитетен: любая ошибка здесь деградирует до полного пересчёта
// из строк результатов, а не до ошибки для клиента.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// LeaderboardTTL — время жизни закэшированной таблицы лидеров.
	LeaderboardTTL = 300 * time.Second

	// opTimeout ограничивает каждую операцию с Redis, чтобы медленный
	// кэш никогда не блокировал авторитетный путь чтения.
	opTimeout = 2 * time.Second

	keyPrefixLeaderboard = "leaderboard:"
)

var (
	ErrCacheMiss       = errors.New("cache: key not found")
	ErrCacheConnection = errors.New("cache: connection failed")
)

// TournamentKey возвращает ключ кэша для турнирного скоупа.
func TournamentKey(tournamentID int) string {
	return fmt.Sprintf("%stournament:%d", keyPrefixLeaderboard, tournamentID)
}

// StageKey возвращает ключ кэша для этапного скоупа.
func StageKey(stageID int) string {
	return fmt.Sprintf("%sstage:%d", keyPrefixLeaderboard, stageID)
}

// LeaderboardPattern — самый широкий безопасный префикс для массовой
// инвалидации, когда скоуп нельзя сузить.
const LeaderboardPattern = keyPrefixLeaderboard + "*"

type Config struct {
	Addr     string
	Password string
	DB       int
}

// Cache — обёртка над go-redis с JSON-сериализацией и таймаутом операций.
type Cache struct {
	client *redis.Client
}

func New(cfg Config) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  opTimeout,
		WriteTimeout: opTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}
	return &Cache{client: client}, nil
}

// Client возвращает низкоуровневый клиент (для леджера).
func (c *Cache) Client() *redis.Client {
	return c.client
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return c.client.Ping(ctx).Err()
}

// Get читает и десериализует значение; ErrCacheMiss, если ключа нет.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}
	return json.Unmarshal(data, dest)
}

// Set сериализует значение в JSON и сохраняет его с TTL.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return c.client.Del(ctx, keys...).Err()
}

// DeleteByPattern удаляет все ключи по шаблону через SCAN (не KEYS,
// чтобы не блокировать Redis на больших пространствах ключей).
func (c *Cache) DeleteByPattern(ctx context.Context, pattern string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return c.client.Del(ctx, batch...).Err()
	}
	return nil
}
