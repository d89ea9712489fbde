package app

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsSourcePrefersDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "00099_local.sql"), []byte("-- +goose Up\n"), 0o600))

	source := MigrationsSource(dir)
	_, err := fs.Stat(source, "00099_local.sql")
	assert.NoError(t, err)
	_, err = fs.Stat(source, "00001_init.sql")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestMigrationsSourceFallsBackToEmbedded(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing")} {
		source := MigrationsSource(path)
		for _, name := range []string{"00001_init.sql", "00002_chats.sql"} {
			_, err := fs.Stat(source, name)
			assert.NoError(t, err, "%q: %s", path, name)
		}
	}
}
