package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// BackupCleaner удаляет устаревшие резервные копии
type BackupCleaner interface {
	Cleanup(retention time.Duration) (int, error)
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	backups   BackupCleaner
	retention time.Duration
	interval  time.Duration
	logger    *zap.Logger
	stopChan  chan struct{}
}

// NewScheduler создаёт новый планировщик
func NewScheduler(backups BackupCleaner, retention time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		backups:   backups,
		retention: retention,
		interval:  24 * time.Hour,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler")

	go s.runBackupCleanupTask(ctx)
}

// Stop останавливает фоновые задачи
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
}

// runBackupCleanupTask раз в сутки удаляет старые резервные копии
func (s *Scheduler) runBackupCleanupTask(ctx context.Context) {
	// Первый запуск сразу при старте
	s.cleanupBackups()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanupBackups()
		case <-s.stopChan:
			s.logger.Info("Backup cleanup task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Backup cleanup task cancelled")
			return
		}
	}
}

func (s *Scheduler) cleanupBackups() {
	if s.retention <= 0 {
		return
	}

	removed, err := s.backups.Cleanup(s.retention)
	if err != nil {
		s.logger.Error("Failed to clean up backups", zap.Error(err))
		return
	}

	s.logger.Info("Backup cleanup completed",
		zap.Int("removed", removed),
		zap.Duration("retention", s.retention))
}
