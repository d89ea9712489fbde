package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DB_DSN", "postgres://localhost/school")
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("ENV", "")
	t.Setenv("ADMIN_TELEGRAM_IDS", "100, 200,")
	t.Setenv("REPORT_CACHE_TTL", "")
	t.Setenv("BACKUP_RETENTION", "")
	t.Setenv("FEED_LIMIT", "")
	t.Setenv("CHAT_HISTORY", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "migrations", cfg.MigrationsPath)
	assert.Equal(t, []int64{100, 200}, cfg.AdminTelegramIDs)
	assert.Equal(t, time.Minute, cfg.ReportCacheTTL)
	assert.Equal(t, 720*time.Hour, cfg.BackupRetention)
	assert.Equal(t, 30, cfg.FeedLimit)
	assert.Equal(t, 30, cfg.ChatHistory)
}

func TestLoadErrors(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TELEGRAM_TOKEN", "token")

	t.Setenv("DB_DSN", "")
	_, err := Load()
	assert.ErrorContains(t, err, "DB_DSN")

	t.Setenv("DB_DSN", "postgres://localhost/school")
	t.Setenv("ADMIN_TELEGRAM_IDS", "abc")
	_, err = Load()
	assert.ErrorContains(t, err, "ADMIN_TELEGRAM_IDS")

	t.Setenv("ADMIN_TELEGRAM_IDS", "")
	t.Setenv("BACKUP_RETENTION", "month")
	_, err = Load()
	assert.ErrorContains(t, err, "BACKUP_RETENTION")
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
