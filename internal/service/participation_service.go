package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/lifecycle"
	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"go.uber.org/zap"
)

// ParticipationService подтверждение и отказ ученика от участия
type ParticipationService struct {
	repos  Repositories
	outbox *Outbox
	logger *zap.Logger
	now    func() time.Time
}

func NewParticipationService(repos Repositories, outbox *Outbox, logger *zap.Logger) *ParticipationService {
	return &ParticipationService{
		repos:  repos,
		outbox: outbox,
		logger: logger,
		now:    time.Now,
	}
}

// Confirm ученик подтверждает участие
func (s *ParticipationService) Confirm(ctx context.Context, actor model.Actor, consultationID int64) (lifecycle.Change, error) {
	change, err := transition(ctx, s.repos, s.outbox, consultationID, func(st lifecycle.ConsultationState) (lifecycle.Change, error) {
		return lifecycle.ConfirmParticipation(actor, st, s.now())
	})
	if err != nil {
		return lifecycle.Change{}, err
	}

	if !change.IsNoop() {
		s.logger.Info("Participation confirmed",
			zap.Int64("consultation_id", consultationID),
			zap.Int64("student_id", *actor.StudentID),
		)
	}
	return change, nil
}

// Cancel ученик отказывается от участия, консультация и заявка отменяются целиком
func (s *ParticipationService) Cancel(ctx context.Context, actor model.Actor, consultationID int64) (lifecycle.Change, error) {
	change, err := transition(ctx, s.repos, s.outbox, consultationID, func(st lifecycle.ConsultationState) (lifecycle.Change, error) {
		return lifecycle.CancelParticipation(actor, st, s.now())
	})
	if err != nil {
		return lifecycle.Change{}, err
	}

	if !change.IsNoop() {
		s.logger.Info("Participation cancelled",
			zap.Int64("consultation_id", consultationID),
			zap.Int64("student_id", *actor.StudentID),
		)
	}
	return change, nil
}
