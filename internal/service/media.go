package service

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// MaxAttachmentSize предел размера одного файла
const MaxAttachmentSize = 20 << 20

var errFileTooLarge = errors.New("file too large")

// MediaStore файлы консультаций на диске под общим корнем
type MediaStore struct {
	root string
}

func NewMediaStore(root string) *MediaStore {
	return &MediaStore{root: root}
}

// safeBase оставляет в имени только буквы, цифры, дефис и подчёркивание
func safeBase(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	var b strings.Builder
	for _, r := range base {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r), r == '.':
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		out = "file"
	}
	if r := []rune(out); len(r) > 60 {
		out = string(r[:60])
	}
	return out
}

// StoredName имя файла вида <безопасное_имя>_<8 hex><расширение>
func StoredName(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return safeBase(original) + "_" + suffix + ext
}

func consultationDir(consultationID int64) string {
	return filepath.Join("consultations", fmt.Sprint(consultationID))
}

// abs переводит относительный путь в абсолютный и не даёт выйти за корень
func (m *MediaStore) abs(rel string) (string, error) {
	clean := filepath.Clean(rel)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid media path %q", rel)
	}
	return filepath.Join(m.root, clean), nil
}

// Save сохраняет файл и возвращает путь относительно корня
func (m *MediaStore) Save(consultationID int64, original string, content io.Reader) (string, error) {
	rel := filepath.Join(consultationDir(consultationID), StoredName(original))
	path, err := m.abs(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(content, MaxAttachmentSize+1))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && n > MaxAttachmentSize {
		err = errFileTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write media file: %w", err)
	}
	return filepath.ToSlash(rel), nil
}

// Open открывает сохранённый файл
func (m *MediaStore) Open(rel string) (*os.File, error) {
	path, err := m.abs(rel)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Remove удаляет файл, отсутствие файла не ошибка
func (m *MediaStore) Remove(rel string) error {
	path, err := m.abs(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// RemoveConsultation удаляет каталог файлов консультации
func (m *MediaStore) RemoveConsultation(consultationID int64) error {
	path, err := m.abs(consultationDir(consultationID))
	if err != nil {
		return err
	}
	return os.RemoveAll(path)
}
