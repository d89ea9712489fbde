package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken string `mapstructure:"TELEGRAM_TOKEN"`
	DBDSN         string `mapstructure:"DB_DSN"`
	Environment   string `mapstructure:"ENV"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`

	MigrationsPath string `mapstructure:"MIGRATIONS_PATH"`
	MediaRoot      string `mapstructure:"MEDIA_ROOT"`

	BackupDir       string        `mapstructure:"BACKUP_DIR"`
	PgDumpPath      string        `mapstructure:"PG_DUMP_PATH"`
	BackupRetention time.Duration `mapstructure:"BACKUP_RETENTION"`

	// Redis необязателен: без адреса отчёты считаются каждый раз
	RedisAddr      string        `mapstructure:"REDIS_ADDR"`
	RedisPassword  string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB        int           `mapstructure:"REDIS_DB"`
	ReportCacheTTL time.Duration `mapstructure:"REPORT_CACHE_TTL"`

	FeedLimit        int     `mapstructure:"FEED_LIMIT"`
	ChatHistory      int     `mapstructure:"CHAT_HISTORY"`
	AdminTelegramIDs []int64 `mapstructure:"ADMIN_TELEGRAM_IDS"`
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	cfg := &Config{
		DBDSN:          os.Getenv("DB_DSN"),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		Environment:    getEnv("ENV", "development"),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		MediaRoot:      getEnv("MEDIA_ROOT", "media"),
		BackupDir:      getEnv("BACKUP_DIR", "backups"),
		PgDumpPath:     getEnv("PG_DUMP_PATH", "pg_dump"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
	}

	var err error
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.FeedLimit, err = getInt("FEED_LIMIT", 30); err != nil {
		return nil, err
	}
	if cfg.ChatHistory, err = getInt("CHAT_HISTORY", 30); err != nil {
		return nil, err
	}
	if cfg.ReportCacheTTL, err = getDuration("REPORT_CACHE_TTL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.BackupRetention, err = getDuration("BACKUP_RETENTION", 720*time.Hour); err != nil {
		return nil, err
	}
	if cfg.AdminTelegramIDs, err = parseIDs(os.Getenv("ADMIN_TELEGRAM_IDS")); err != nil {
		return nil, err
	}

	// Проверяем обязательные поля
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is required but not set")
	}

	log.Printf("Config loaded (env=%s, admins=%d)\n", cfg.Environment, len(cfg.AdminTelegramIDs))

	return cfg, nil
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 720h: %w", key, err)
	}
	return d, nil
}

// parseIDs разбирает список вида "123, 456"
func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_TELEGRAM_IDS: invalid id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
