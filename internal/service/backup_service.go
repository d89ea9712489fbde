package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"go.uber.org/zap"
)

// BackupFormat формат дампа: текстовый sql или custom для pg_restore
type BackupFormat string

const (
	BackupSQL  BackupFormat = "sql"
	BackupDump BackupFormat = "dump"
)

var backupNamePattern = regexp.MustCompile(`^backup_\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}\.(sql|dump)$`)

const backupTimeLayout = "2006-01-02_15-04-05"

// Backup файл резервной копии
type Backup struct {
	Name      string
	Format    BackupFormat
	Size      int64
	CreatedAt time.Time
}

type BackupService struct {
	dir    string
	dsn    string
	pgDump string
	logger *zap.Logger
	now    func() time.Time
}

// NewBackupService pgDump путь к pg_dump, пустой означает поиск в PATH
func NewBackupService(dir, dsn, pgDump string, logger *zap.Logger) *BackupService {
	if pgDump == "" {
		pgDump = "pg_dump"
	}
	return &BackupService{
		dir:    dir,
		dsn:    dsn,
		pgDump: pgDump,
		logger: logger,
		now:    time.Now,
	}
}

// ValidBackupName проверяет имя файла бэкапа
func ValidBackupName(name string) bool {
	return backupNamePattern.MatchString(name)
}

func (s *BackupService) path(name string) (string, error) {
	if !ValidBackupName(name) {
		return "", model.NotFound("service.Backup", "Файл не найден")
	}
	return filepath.Join(s.dir, name), nil
}

// Create снимает дамп базы через pg_dump
func (s *BackupService) Create(ctx context.Context, actor model.Actor, format BackupFormat) (*Backup, error) {
	if err := requireAdmin("service.CreateBackup", actor); err != nil {
		return nil, err
	}
	if format != BackupDump {
		format = BackupSQL
	}
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	name := fmt.Sprintf("backup_%s.%s", s.now().Format(backupTimeLayout), format)
	path := filepath.Join(s.dir, name)

	pgFormat := "p"
	if format == BackupDump {
		pgFormat = "c"
	}
	cmd := exec.CommandContext(ctx, s.pgDump,
		"--dbname="+s.dsn,
		"-F", pgFormat,
		"--encoding=UTF8",
		"--clean",
		"--if-exists",
		"--no-owner",
		"--no-privileges",
		"-f", path,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		_ = os.Remove(path)
		s.logger.Error("pg_dump failed", zap.Error(err), zap.String("output", string(output)))
		return nil, fmt.Errorf("pg_dump: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat backup: %w", err)
	}

	s.logger.Info("Backup created",
		zap.String("name", name),
		zap.Int64("size", info.Size()),
		zap.Int64("by", actor.UserID),
	)
	return &Backup{Name: name, Format: format, Size: info.Size(), CreatedAt: info.ModTime()}, nil
}

// List бэкапы от новых к старым
func (s *BackupService) List(actor model.Actor) ([]Backup, error) {
	if err := requireAdmin("service.ListBackups", actor); err != nil {
		return nil, err
	}
	return s.list()
}

func (s *BackupService) list() ([]Backup, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	var backups []Backup
	for _, e := range entries {
		if e.IsDir() || !ValidBackupName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		backups = append(backups, Backup{
			Name:      e.Name(),
			Format:    BackupFormat(filepath.Ext(e.Name())[1:]),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}
	sort.Slice(backups, func(i, j int) bool { return backups[i].CreatedAt.After(backups[j].CreatedAt) })
	return backups, nil
}

// Open открывает бэкап для отправки
func (s *BackupService) Open(actor model.Actor, name string) (*os.File, error) {
	if err := requireAdmin("service.OpenBackup", actor); err != nil {
		return nil, err
	}
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, model.NotFound("service.OpenBackup", "Файл не найден")
		}
		return nil, fmt.Errorf("open backup: %w", err)
	}
	return f, nil
}

func (s *BackupService) Delete(actor model.Actor, name string) error {
	if err := requireAdmin("service.DeleteBackup", actor); err != nil {
		return err
	}
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.NotFound("service.DeleteBackup", "Файл бэкапа не найден")
		}
		return fmt.Errorf("delete backup: %w", err)
	}

	s.logger.Info("Backup deleted", zap.String("name", name), zap.Int64("by", actor.UserID))
	return nil
}

// Cleanup удаляет бэкапы старше retention, возвращает число удалённых
func (s *BackupService) Cleanup(retention time.Duration) (int, error) {
	backups, err := s.list()
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-retention)
	removed := 0
	for _, b := range backups {
		if !b.CreatedAt.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, b.Name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("Failed to remove old backup", zap.String("name", b.Name), zap.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("Old backups removed", zap.Int("count", removed))
	}
	return removed, nil
}
