package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestValidBackupName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"backup_2026-03-02_09-00-00.sql", true},
		{"backup_2026-03-02_09-00-00.dump", true},
		{"backup_2026-03-02_09-00-00.sql.gz", false},
		{"../backup_2026-03-02_09-00-00.sql", false},
		{"backup_2026-3-2_9-0-0.sql", false},
		{"notes.txt", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidBackupName(tt.name))
		})
	}
}

func writeBackup(t *testing.T, dir, name string, modified time.Time) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("-- dump"), 0o640))
	require.NoError(t, os.Chtimes(path, modified, modified))
}

func TestBackupListOpenDelete(t *testing.T) {
	dir := t.TempDir()
	svc := NewBackupService(dir, "postgres://localhost/db", "", zap.NewNop())
	admin := model.Actor{UserID: 1, Role: model.RoleAdmin}

	writeBackup(t, dir, "backup_2026-03-01_10-00-00.sql", testNow.Add(-23*time.Hour))
	writeBackup(t, dir, "backup_2026-03-02_08-00-00.dump", testNow.Add(-time.Hour))
	writeBackup(t, dir, "random.txt", testNow)

	backups, err := svc.List(admin)
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, "backup_2026-03-02_08-00-00.dump", backups[0].Name)
	assert.Equal(t, BackupDump, backups[0].Format)

	f, err := svc.Open(admin, "backup_2026-03-01_10-00-00.sql")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = svc.Open(admin, "random.txt")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = svc.List(model.Actor{UserID: 2, Role: model.RolePsychologist})
	assert.ErrorIs(t, err, model.ErrForbidden)

	require.NoError(t, svc.Delete(admin, "backup_2026-03-01_10-00-00.sql"))
	err = svc.Delete(admin, "backup_2026-03-01_10-00-00.sql")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestBackupCleanup(t *testing.T) {
	dir := t.TempDir()
	svc := NewBackupService(dir, "", "", zap.NewNop())
	svc.now = clock

	writeBackup(t, dir, "backup_2026-01-01_00-00-00.sql", testNow.AddDate(0, -2, 0))
	writeBackup(t, dir, "backup_2026-03-01_00-00-00.sql", testNow.AddDate(0, 0, -1))

	removed, err := svc.Cleanup(30 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(filepath.Join(dir, "backup_2026-03-01_00-00-00.sql"))
	assert.NoError(t, err)
}

func TestBackupCreateFailsWithoutPgDump(t *testing.T) {
	dir := t.TempDir()
	svc := NewBackupService(dir, "postgres://localhost/db", filepath.Join(dir, "missing-pg_dump"), zap.NewNop())
	svc.now = clock

	_, err := svc.Create(context.Background(), model.Actor{UserID: 1, Role: model.RoleAdmin}, BackupSQL)
	assert.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
