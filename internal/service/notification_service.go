package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"go.uber.org/zap"
)

// DefaultFeedLimit сколько последних событий показывать ученику
const DefaultFeedLimit = 30

// Pusher доставляет событие владельцу аккаунта ученика вне ленты
type Pusher interface {
	Push(ctx context.Context, recipient model.User, n model.Notification) error
}

type NotificationService struct {
	repos     Repositories
	pusher    Pusher
	feedLimit int
	logger    *zap.Logger
}

func NewNotificationService(repos Repositories, feedLimit int, logger *zap.Logger) *NotificationService {
	if feedLimit <= 0 {
		feedLimit = DefaultFeedLimit
	}
	return &NotificationService{
		repos:     repos,
		feedLimit: feedLimit,
		logger:    logger,
	}
}

// SetPusher подключает доставку. Бот создаётся после сервисов.
func (s *NotificationService) SetPusher(p Pusher) {
	s.pusher = p
}

// Emit сохраняет события в ленту. Вызывается внутри транзакции перехода,
// поэтому событие появляется только вместе с изменением, которое его вызвало.
func (s *NotificationService) Emit(ctx context.Context, events []model.Notification) ([]model.Notification, error) {
	stored := make([]model.Notification, 0, len(events))
	for _, n := range events {
		if err := s.repos.Notifications.Create(ctx, &n); err != nil {
			return nil, fmt.Errorf("emit notification: %w", err)
		}
		stored = append(stored, n)
	}
	return stored, nil
}

// Dispatch отправляет уже сохранённые события. Ошибки доставки только логируются.
func (s *NotificationService) Dispatch(ctx context.Context, events []model.Notification) {
	if s.pusher == nil {
		return
	}
	for _, n := range events {
		recipients, err := s.repos.Users.ListByStudentID(ctx, n.StudentID)
		if err != nil {
			s.logger.Warn("Failed to find notification recipients",
				zap.Int64("notification_id", n.ID),
				zap.Error(err),
			)
			continue
		}
		if len(recipients) == 0 {
			continue
		}

		if err := s.enrich(ctx, &n); err != nil {
			s.logger.Warn("Failed to load notification subject",
				zap.Int64("notification_id", n.ID),
				zap.Error(err),
			)
			continue
		}

		for _, u := range recipients {
			if err := s.pusher.Push(ctx, u, n); err != nil {
				s.logger.Warn("Failed to push notification",
					zap.Int64("notification_id", n.ID),
					zap.Int64("user_id", u.ID),
					zap.Error(err),
				)
			}
		}
	}
}

// Feed последние события ученика, новые первыми
func (s *NotificationService) Feed(ctx context.Context, actor model.Actor, limit int) ([]model.Notification, error) {
	if !actor.IsStudent() {
		return nil, model.Forbidden("service.Feed", model.ReasonRole, "Лента уведомлений доступна только ученику")
	}
	if limit <= 0 || limit > s.feedLimit {
		limit = s.feedLimit
	}

	feed, err := s.repos.Notifications.ListByStudent(ctx, *actor.StudentID, limit)
	if err != nil {
		return nil, fmt.Errorf("get feed: %w", err)
	}

	for i := range feed {
		if err := s.enrich(ctx, &feed[i]); err != nil {
			return nil, err
		}
	}
	return feed, nil
}

// enrich подгружает консультацию или заявку события
func (s *NotificationService) enrich(ctx context.Context, n *model.Notification) error {
	if n.ConsultationID != nil && n.Consultation == nil {
		c, err := s.repos.Consultations.GetByID(ctx, *n.ConsultationID)
		if err != nil {
			return fmt.Errorf("get notification consultation: %w", err)
		}
		n.Consultation = c
	}
	if n.RequestID != nil && n.Request == nil {
		r, err := s.repos.Requests.GetByID(ctx, *n.RequestID)
		if err != nil {
			return fmt.Errorf("get notification request: %w", err)
		}
		n.Request = r
	}
	return nil
}
