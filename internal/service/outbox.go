package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/psychologist_bot/internal/lifecycle"
	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"go.uber.org/zap"
)

// Outbox сохраняет результат перехода вместе с событиями и после
// фиксации транзакции рассылает их и сбрасывает кеш отчётов
type Outbox struct {
	repos         Repositories
	notifications *NotificationService
	cache         ReportCache
	logger        *zap.Logger
}

// NewOutbox cache может быть nil
func NewOutbox(repos Repositories, notifications *NotificationService, cache ReportCache, logger *zap.Logger) *Outbox {
	return &Outbox{
		repos:         repos,
		notifications: notifications,
		cache:         cache,
		logger:        logger,
	}
}

// Save записывает изменения. Должен вызываться внутри транзакции.
func (o *Outbox) Save(ctx context.Context, c *lifecycle.Change) error {
	if c.IsNoop() {
		return nil
	}

	if c.Request != nil {
		if c.Request.ID == 0 {
			if err := o.repos.Requests.Create(ctx, c.Request); err != nil {
				return fmt.Errorf("create request: %w", err)
			}
			c.BindRequest(c.Request.ID)
		} else if err := o.repos.Requests.Update(ctx, c.Request); err != nil {
			return fmt.Errorf("update request: %w", err)
		}
	}

	if c.Consultation != nil {
		if c.Consultation.ID == 0 {
			if err := o.repos.Consultations.Create(ctx, c.Consultation); err != nil {
				return fmt.Errorf("create consultation: %w", err)
			}
			c.BindConsultation(c.Consultation.ID)
		} else if err := o.repos.Consultations.Update(ctx, c.Consultation); err != nil {
			return fmt.Errorf("update consultation: %w", err)
		}
	}

	for _, id := range c.RemovedLinks {
		if err := o.repos.Participation.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete participation: %w", err)
		}
	}
	for i := range c.Links {
		link := &c.Links[i]
		if link.ID == 0 {
			if err := o.repos.Participation.Create(ctx, link); err != nil {
				return fmt.Errorf("create participation: %w", err)
			}
			continue
		}
		if err := o.repos.Participation.Update(ctx, link); err != nil {
			return fmt.Errorf("update participation: %w", err)
		}
	}

	events, err := o.notifications.Emit(ctx, c.Events)
	if err != nil {
		return err
	}
	c.Events = events
	return nil
}

// Flush вызывается после фиксации транзакции
func (o *Outbox) Flush(ctx context.Context, c lifecycle.Change) {
	if c.IsNoop() {
		return
	}
	o.Invalidate(ctx)
	o.notifications.Dispatch(ctx, c.Events)
}

// Invalidate сбрасывает кеш отчётов после любого изменения данных
func (o *Outbox) Invalidate(ctx context.Context) {
	if o.cache == nil {
		return
	}
	if err := o.cache.Invalidate(ctx); err != nil {
		o.logger.Warn("Failed to invalidate report cache", zap.Error(err))
	}
}

// loadConsultation загружает консультацию с заявкой и участниками.
// С lock строки консультации и заявки блокируются до конца транзакции.
func loadConsultation(ctx context.Context, repos Repositories, id int64, lock bool) (lifecycle.ConsultationState, error) {
	getConsultation, getRequest := repos.Consultations.GetByID, repos.Requests.GetByID
	if lock {
		getConsultation, getRequest = repos.Consultations.GetForUpdate, repos.Requests.GetForUpdate
	}

	cons, err := getConsultation(ctx, id)
	if err != nil {
		return lifecycle.ConsultationState{}, fmt.Errorf("get consultation: %w", err)
	}
	if cons == nil {
		return lifecycle.ConsultationState{}, model.NotFound("service.loadConsultation", "Консультация не найдена")
	}

	st := lifecycle.ConsultationState{Consultation: *cons}
	if cons.RequestID != nil {
		req, err := getRequest(ctx, *cons.RequestID)
		if err != nil {
			return lifecycle.ConsultationState{}, fmt.Errorf("get request: %w", err)
		}
		st.Request = req
	}

	st.Links, err = repos.Participation.ListByConsultation(ctx, id)
	if err != nil {
		return lifecycle.ConsultationState{}, fmt.Errorf("get participation: %w", err)
	}
	return st, nil
}

// transition общий путь изменения консультации: блокировка, чистая функция
// перехода, сохранение в той же транзакции, рассылка после фиксации
func transition(
	ctx context.Context,
	repos Repositories,
	outbox *Outbox,
	consultationID int64,
	fn func(st lifecycle.ConsultationState) (lifecycle.Change, error),
) (lifecycle.Change, error) {
	var change lifecycle.Change
	err := repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		st, err := loadConsultation(ctx, repos, consultationID, true)
		if err != nil {
			return err
		}
		change, err = fn(st)
		if err != nil {
			return err
		}
		return outbox.Save(ctx, &change)
	})
	if err != nil {
		return lifecycle.Change{}, err
	}

	outbox.Flush(ctx, change)
	return change, nil
}
