// Package cache хранит посчитанные отчёты в Redis
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
	prefixReport  = "report:"
	generationKey = prefixReport + "generation"

	// DefaultTTL время жизни отчёта в кеше
	DefaultTTL = time.Minute
)

// Config параметры подключения к Redis
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// ReportCache кеш отчётов. Любое изменение данных увеличивает поколение,
// и все ранее сохранённые ключи перестают читаться.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReportCache подключается к Redis и проверяет соединение
func NewReportCache(ctx context.Context, cfg Config) (*ReportCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ReportCache{client: client, ttl: ttl}, nil
}

// NewWithClient для уже созданного клиента
func NewWithClient(client *redis.Client, ttl time.Duration) *ReportCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ReportCache{client: client, ttl: ttl}
}

func (c *ReportCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get report generation: %w", err)
	}
	return gen, nil
}

func (c *ReportCache) key(ctx context.Context, key string) (string, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d:%s", prefixReport, gen, key), nil
}

// Get читает значение в dst. false, если ключа нет.
func (c *ReportCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	k, err := c.key(ctx, key)
	if err != nil {
		return false, err
	}

	data, err := c.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get report: %w", err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("unmarshal report: %w", err)
	}
	return true, nil
}

// Set сохраняет значение на время TTL
func (c *ReportCache) Set(ctx context.Context, key string, value any) error {
	k, err := c.key(ctx, key)
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if err := c.client.Set(ctx, k, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set report: %w", err)
	}
	return nil
}

// Invalidate сбрасывает все отчёты
func (c *ReportCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("bump report generation: %w", err)
	}
	return nil
}

// Close закрывает соединение
func (c *ReportCache) Close() error {
	return c.client.Close()
}
