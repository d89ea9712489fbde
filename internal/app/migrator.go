package app

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"github.com/Freeeeeet/psychologist_bot/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// Migrator применяет схему через goose.Provider
type Migrator struct {
	provider *goose.Provider
	logger   *zap.Logger
}

// MigrationsSource каталог миграций на диске, если он есть,
// иначе миграции из бинарника
func MigrationsSource(path string) fs.FS {
	if path != "" {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return os.DirFS(path)
		}
	}
	return migrations.FS
}

func NewMigrator(pool *pgxpool.Pool, source fs.FS, logger *zap.Logger) (*Migrator, error) {
	// goose работает с *sql.DB поверх того же пула
	db := stdlib.OpenDBFromPool(pool)
	provider, err := goose.NewProvider(goose.DialectPostgres, db, source)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create goose provider: %w", err)
	}
	return &Migrator{provider: provider, logger: logger}, nil
}

// Run применяет недостающие миграции, каждая логируется отдельно
func (mg *Migrator) Run(ctx context.Context) error {
	pending, err := mg.provider.HasPending(ctx)
	if err != nil {
		return fmt.Errorf("check pending migrations: %w", err)
	}
	if !pending {
		version, err := mg.Version(ctx)
		if err != nil {
			return err
		}
		mg.logger.Info("Database schema is up to date", zap.Int64("version", version))
		return nil
	}

	results, err := mg.provider.Up(ctx)
	for _, r := range results {
		if r.Error != nil {
			continue
		}
		mg.logger.Info("Migration applied",
			zap.String("file", r.Source.Path),
			zap.Int64("version", r.Source.Version),
			zap.Duration("duration", r.Duration),
		)
	}
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, err := mg.Version(ctx)
	if err != nil {
		return err
	}
	mg.logger.Info("Migrations applied", zap.Int("count", len(results)), zap.Int64("version", version))
	return nil
}

// Version текущая версия схемы
func (mg *Migrator) Version(ctx context.Context) (int64, error) {
	version, err := mg.provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("get schema version: %w", err)
	}
	return version, nil
}

// Close закрывает sql.DB мигратора. Пул закрывается в main.
func (mg *Migrator) Close() error {
	return mg.provider.Close()
}
