package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/lifecycle"
	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/Freeeeeet/psychologist_bot/internal/report"
	"go.uber.org/zap"
)

// RequestDetails заявка с учеником, психологом, заметками и консультациями
type RequestDetails struct {
	Request       model.Request
	Notes         []model.RequestNote
	Consultations []model.Consultation
}

type RequestService struct {
	repos  Repositories
	outbox *Outbox
	logger *zap.Logger
	now    func() time.Time
}

func NewRequestService(repos Repositories, outbox *Outbox, logger *zap.Logger) *RequestService {
	return &RequestService{
		repos:  repos,
		outbox: outbox,
		logger: logger,
		now:    time.Now,
	}
}

// Create психолог заводит заявку и сразу закрепляет её за собой
func (s *RequestService) Create(ctx context.Context, actor model.Actor, in lifecycle.RequestInput) (*model.Request, error) {
	req, err := lifecycle.NewRequest(actor, in, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repos.Requests.Create(ctx, &req); err != nil {
		return nil, err
	}
	s.outbox.Invalidate(ctx)

	s.logger.Info("Request created",
		zap.Int64("request_id", req.ID),
		zap.Int64("student_id", req.StudentID),
		zap.String("source", string(req.Source)),
	)
	return &req, nil
}

// SubmitOwn ученик подаёт заявку сам, комментарий сохраняется заметкой
func (s *RequestService) SubmitOwn(ctx context.Context, actor model.Actor, comment string) (*model.Request, error) {
	req, text, err := lifecycle.NewOwnRequest(actor, comment, s.now())
	if err != nil {
		return nil, err
	}

	err = s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repos.Requests.Create(ctx, &req); err != nil {
			return err
		}
		if text == "" {
			return nil
		}
		return s.repos.Notes.CreateRequestNote(ctx, &model.RequestNote{
			RequestID: req.ID,
			AuthorID:  actor.UserID,
			Text:      text,
		})
	})
	if err != nil {
		return nil, err
	}
	s.outbox.Invalidate(ctx)

	s.logger.Info("Request submitted by student",
		zap.Int64("request_id", req.ID),
		zap.Int64("student_id", req.StudentID),
	)
	return &req, nil
}

// Complete завершает заявку вручную
func (s *RequestService) Complete(ctx context.Context, actor model.Actor, id int64) (lifecycle.Change, error) {
	return s.transition(ctx, actor, id, "Request completed", lifecycle.CompleteRequest)
}

// Cancel отменяет заявку
func (s *RequestService) Cancel(ctx context.Context, actor model.Actor, id int64) (lifecycle.Change, error) {
	return s.transition(ctx, actor, id, "Request cancelled", lifecycle.CancelRequest)
}

func (s *RequestService) transition(
	ctx context.Context,
	actor model.Actor,
	id int64,
	logMsg string,
	fn func(model.Actor, model.Request, time.Time) (lifecycle.Change, error),
) (lifecycle.Change, error) {
	var change lifecycle.Change
	err := s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		req, err := s.lockVisible(ctx, actor, id)
		if err != nil {
			return err
		}
		change, err = fn(actor, *req, s.now())
		if err != nil {
			return err
		}
		return s.outbox.Save(ctx, &change)
	})
	if err != nil {
		return lifecycle.Change{}, err
	}

	s.outbox.Flush(ctx, change)
	if !change.IsNoop() {
		s.logger.Info(logMsg,
			zap.Int64("request_id", id),
			zap.Int64("user_id", actor.UserID),
		)
	}
	return change, nil
}

// lockVisible блокирует заявку, чужие заявки выглядят как несуществующие
func (s *RequestService) lockVisible(ctx context.Context, actor model.Actor, id int64) (*model.Request, error) {
	req, err := s.repos.Requests.GetForUpdate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if req == nil || !visibleRequest(actor, *req) {
		return nil, model.NotFound("service.Request", "Заявка не найдена")
	}
	return req, nil
}

// visibleRequest администратор видит всё, психолог свои и неназначенные,
// ученик только свои
func visibleRequest(actor model.Actor, req model.Request) bool {
	if actor.Role == model.RoleStudent {
		return actor.Owns(req.StudentID)
	}
	scope, err := report.ScopeFor(actor)
	if err != nil {
		return false
	}
	return scope.AllowsRequest(req)
}

// Delete администратор удаляет закрытую заявку
func (s *RequestService) Delete(ctx context.Context, actor model.Actor, id int64) error {
	err := s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		req, err := s.lockVisible(ctx, actor, id)
		if err != nil {
			return err
		}
		if err := lifecycle.CanDeleteRequest(actor, *req); err != nil {
			return err
		}
		if err := s.repos.Requests.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete request: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.outbox.Invalidate(ctx)

	s.logger.Info("Request deleted", zap.Int64("request_id", id))
	return nil
}

// AddNote добавляет заметку к заявке
func (s *RequestService) AddNote(ctx context.Context, actor model.Actor, id int64, text string) (*model.RequestNote, error) {
	text, err := lifecycle.ValidateRequestNote(text)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, model.Validation("service.AddRequestNote", map[string]string{"text": "Текст заметки обязателен"})
	}

	note := &model.RequestNote{RequestID: id, AuthorID: actor.UserID, Text: text}
	err = s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		req, err := s.repos.Requests.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get request: %w", err)
		}
		if req == nil || !visibleRequest(actor, *req) {
			return model.NotFound("service.AddRequestNote", "Заявка не найдена")
		}
		if err := lifecycle.CanAnnotateRequest(actor, *req); err != nil {
			return err
		}
		return s.repos.Notes.CreateRequestNote(ctx, note)
	})
	if err != nil {
		return nil, err
	}
	s.outbox.Invalidate(ctx)

	s.logger.Info("Request note added",
		zap.Int64("request_id", id),
		zap.Int64("note_id", note.ID),
	)
	return note, nil
}

// Get заявка с заметками и консультациями
func (s *RequestService) Get(ctx context.Context, actor model.Actor, id int64) (*RequestDetails, error) {
	req, err := s.repos.Requests.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if req == nil || !visibleRequest(actor, *req) {
		return nil, model.NotFound("service.GetRequest", "Заявка не найдена")
	}

	if req.Student, err = s.repos.Students.GetByID(ctx, req.StudentID); err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if req.PsychologistID != nil {
		if req.Psychologist, err = s.repos.Users.GetByID(ctx, *req.PsychologistID); err != nil {
			return nil, fmt.Errorf("get psychologist: %w", err)
		}
	}

	details := &RequestDetails{Request: *req}
	if details.Notes, err = s.repos.Notes.ListRequestNotes(ctx, id); err != nil {
		return nil, fmt.Errorf("get request notes: %w", err)
	}
	if details.Consultations, err = s.repos.Consultations.ListByRequest(ctx, id); err != nil {
		return nil, fmt.Errorf("get request consultations: %w", err)
	}
	return details, nil
}

// ListForStudent заявки самого ученика
func (s *RequestService) ListForStudent(ctx context.Context, actor model.Actor) ([]model.Request, error) {
	if !actor.IsStudent() {
		return nil, model.Forbidden("service.ListForStudent", model.ReasonRole, "Раздел доступен только ученику")
	}
	return s.repos.Requests.ListByStudent(ctx, *actor.StudentID)
}

// List заявки в области видимости, при status != "" только с этим статусом
func (s *RequestService) List(ctx context.Context, actor model.Actor, status model.RequestStatus) ([]model.Request, error) {
	scope, err := report.ScopeFor(actor)
	if err != nil {
		return nil, err
	}

	requests, err := s.repos.Requests.ListScoped(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}

	students := make(map[int64]*model.Student)
	var result []model.Request
	for _, r := range requests {
		if status != "" && r.Status != status {
			continue
		}
		st, ok := students[r.StudentID]
		if !ok {
			if st, err = s.repos.Students.GetByID(ctx, r.StudentID); err != nil {
				return nil, fmt.Errorf("get student: %w", err)
			}
			students[r.StudentID] = st
		}
		r.Student = st
		result = append(result, r)
	}
	return result, nil
}
