package service

import (
	"bytes"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoredName(t *testing.T) {
	tests := []struct {
		name     string
		original string
		pattern  string
	}{
		{"plain", "report.pdf", `^report_[0-9a-f]{8}\.pdf$`},
		{"cyrillic and spaces", "План работы.DOCX", `^План_работы_[0-9a-f]{8}\.docx$`},
		{"traversal", "../../etc/passwd", `^passwd_[0-9a-f]{8}$`},
		{"only symbols", "$$$.png", `^file_[0-9a-f]{8}\.png$`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Regexp(t, regexp.MustCompile(tt.pattern), StoredName(tt.original))
		})
	}

	assert.NotEqual(t, StoredName("a.txt"), StoredName("a.txt"))
}

func TestMediaStoreRoundTrip(t *testing.T) {
	m := NewMediaStore(t.TempDir())

	rel, err := m.Save(7, "notes.txt", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, "consultations/7/notes_"))

	f, err := m.Open(rel)
	require.NoError(t, err)
	content, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "hello", string(content))

	require.NoError(t, m.Remove(rel))
	require.NoError(t, m.Remove(rel))
	require.NoError(t, m.RemoveConsultation(7))
}

func TestMediaStoreRejectsEscapes(t *testing.T) {
	m := NewMediaStore(t.TempDir())

	_, err := m.Open("../secret")
	assert.Error(t, err)
	_, err = m.Open(filepath.Join("/", "etc", "passwd"))
	assert.Error(t, err)
}

func TestMediaStoreSizeLimit(t *testing.T) {
	m := NewMediaStore(t.TempDir())

	_, err := m.Save(1, "big.bin", bytes.NewReader(make([]byte, MaxAttachmentSize+1)))
	assert.ErrorIs(t, err, errFileTooLarge)
}
