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

// Tab вкладка списка консультаций
type Tab string

const (
	TabAll      Tab = "all"
	TabUpcoming Tab = "upcoming"
	TabPast     Tab = "past"
)

// ConsultationDetails консультация со всем, что к ней относится
type ConsultationDetails struct {
	lifecycle.ConsultationState
	Notes       []model.Note
	Attachments []model.Attachment
}

// StudentConsultation консультация глазами ученика
type StudentConsultation struct {
	Consultation  model.Consultation
	Participation model.ParticipationState
	Linked        bool // false - ученик связан только через заявку
}

type ConsultationService struct {
	repos  Repositories
	outbox *Outbox
	media  *MediaStore
	logger *zap.Logger
	now    func() time.Time
}

func NewConsultationService(repos Repositories, outbox *Outbox, media *MediaStore, logger *zap.Logger) *ConsultationService {
	return &ConsultationService{
		repos:  repos,
		outbox: outbox,
		media:  media,
		logger: logger,
		now:    time.Now,
	}
}

// inScope психолог видит только свои, неназначенные и консультации без заявки
func inScope(actor model.Actor, req *model.Request) error {
	scope, err := report.ScopeFor(actor)
	if err != nil {
		// ученики проверяются правилами переходов
		return nil
	}
	if !scope.AllowsConsultation(req) {
		return model.NotFound("service.inScope", "Консультация не найдена")
	}
	return nil
}

// Create создаёт консультацию, связи с учениками и продвигает заявку
func (s *ConsultationService) Create(ctx context.Context, actor model.Actor, in lifecycle.ConsultationInput) (lifecycle.Change, error) {
	var change lifecycle.Change
	err := s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		var req *model.Request
		if in.RequestID != nil {
			var err error
			req, err = s.repos.Requests.GetForUpdate(ctx, *in.RequestID)
			if err != nil {
				return fmt.Errorf("get request: %w", err)
			}
			if req != nil && actor.IsPsychologist() {
				if err := inScope(actor, req); err != nil {
					return model.NotFound("service.CreateConsultation", "Заявка не найдена")
				}
			}
		}

		var err error
		change, err = lifecycle.PlanConsultation(actor, in, req, s.now())
		if err != nil {
			return err
		}
		return s.outbox.Save(ctx, &change)
	})
	if err != nil {
		return lifecycle.Change{}, err
	}

	s.outbox.Flush(ctx, change)
	s.logger.Info("Consultation created",
		zap.Int64("consultation_id", change.Consultation.ID),
		zap.Int64("psychologist_id", actor.UserID),
		zap.Int("students", len(change.Links)),
	)
	return change, nil
}

// Update редактирует консультацию
func (s *ConsultationService) Update(ctx context.Context, actor model.Actor, id int64, in lifecycle.ConsultationInput) (lifecycle.Change, error) {
	change, err := transition(ctx, s.repos, s.outbox, id, func(st lifecycle.ConsultationState) (lifecycle.Change, error) {
		if err := inScope(actor, st.Request); err != nil {
			return lifecycle.Change{}, err
		}
		return lifecycle.ReviseConsultation(actor, st, in, s.now())
	})
	if err != nil {
		return lifecycle.Change{}, err
	}

	s.logger.Info("Consultation updated",
		zap.Int64("consultation_id", id),
		zap.Int("added_students", len(change.Links)),
		zap.Int("removed_students", len(change.RemovedLinks)),
	)
	return change, nil
}

// SetResult сохраняет результат консультации
func (s *ConsultationService) SetResult(ctx context.Context, actor model.Actor, id int64, result string) (lifecycle.Change, error) {
	change, err := transition(ctx, s.repos, s.outbox, id, func(st lifecycle.ConsultationState) (lifecycle.Change, error) {
		if err := inScope(actor, st.Request); err != nil {
			return lifecycle.Change{}, err
		}
		return lifecycle.RecordResult(actor, st, result)
	})
	if err != nil {
		return lifecycle.Change{}, err
	}

	if !change.IsNoop() {
		s.logger.Info("Consultation result saved", zap.Int64("consultation_id", id))
	}
	return change, nil
}

// Complete завершает консультацию и её заявку атомарно
func (s *ConsultationService) Complete(ctx context.Context, actor model.Actor, id int64) (lifecycle.Change, error) {
	change, err := transition(ctx, s.repos, s.outbox, id, func(st lifecycle.ConsultationState) (lifecycle.Change, error) {
		if err := inScope(actor, st.Request); err != nil {
			return lifecycle.Change{}, err
		}
		return lifecycle.CompleteConsultation(actor, st, s.now())
	})
	if err != nil {
		return lifecycle.Change{}, err
	}

	if !change.IsNoop() {
		s.logger.Info("Consultation completed",
			zap.Int64("consultation_id", id),
			zap.Int64("psychologist_id", actor.UserID),
		)
	}
	return change, nil
}

// Cancel отменяет консультацию и её заявку
func (s *ConsultationService) Cancel(ctx context.Context, actor model.Actor, id int64) (lifecycle.Change, error) {
	change, err := transition(ctx, s.repos, s.outbox, id, func(st lifecycle.ConsultationState) (lifecycle.Change, error) {
		if err := inScope(actor, st.Request); err != nil {
			return lifecycle.Change{}, err
		}
		return lifecycle.CancelConsultation(actor, st, s.now())
	})
	if err != nil {
		return lifecycle.Change{}, err
	}

	if !change.IsNoop() {
		s.logger.Info("Consultation cancelled",
			zap.Int64("consultation_id", id),
			zap.Int64("user_id", actor.UserID),
		)
	}
	return change, nil
}

// AssignPsychologist администратор меняет психолога заявки консультации
func (s *ConsultationService) AssignPsychologist(ctx context.Context, actor model.Actor, id, psychologistID int64) (lifecycle.Change, error) {
	change, err := transition(ctx, s.repos, s.outbox, id, func(st lifecycle.ConsultationState) (lifecycle.Change, error) {
		psychologist, err := s.repos.Users.GetByID(ctx, psychologistID)
		if err != nil {
			return lifecycle.Change{}, fmt.Errorf("get psychologist: %w", err)
		}
		if psychologist == nil {
			psychologist = &model.User{}
		}
		return lifecycle.AssignPsychologist(actor, st, *psychologist)
	})
	if err != nil {
		return lifecycle.Change{}, err
	}

	if !change.IsNoop() {
		s.logger.Info("Psychologist assigned",
			zap.Int64("consultation_id", id),
			zap.Int64("psychologist_id", psychologistID),
		)
	}
	return change, nil
}

// Delete удаляет закрытую консультацию вместе с файлами
func (s *ConsultationService) Delete(ctx context.Context, actor model.Actor, id int64) error {
	err := s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		st, err := loadConsultation(ctx, s.repos, id, true)
		if err != nil {
			return err
		}
		if err := inScope(actor, st.Request); err != nil {
			return err
		}
		if err := lifecycle.CanDeleteConsultation(actor, st.Consultation); err != nil {
			return err
		}
		if err := s.repos.Consultations.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete consultation: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.outbox.Invalidate(ctx)
	if s.media != nil {
		if err := s.media.RemoveConsultation(id); err != nil {
			s.logger.Warn("Failed to remove consultation files", zap.Int64("consultation_id", id), zap.Error(err))
		}
	}

	s.logger.Info("Consultation deleted", zap.Int64("consultation_id", id))
	return nil
}

// AddNote добавляет заметку психолога
func (s *ConsultationService) AddNote(ctx context.Context, actor model.Actor, id int64, text string) (*model.Note, error) {
	if err := lifecycle.CanManageConsultation(actor); err != nil {
		return nil, err
	}
	text, err := lifecycle.ValidateNote(text)
	if err != nil {
		return nil, err
	}

	note := &model.Note{ConsultationID: id, AuthorID: actor.UserID, Text: text}
	err = s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		st, err := loadConsultation(ctx, s.repos, id, false)
		if err != nil {
			return err
		}
		if err := inScope(actor, st.Request); err != nil {
			return err
		}
		return s.repos.Notes.CreateConsultationNote(ctx, note)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Consultation note added",
		zap.Int64("consultation_id", id),
		zap.Int64("note_id", note.ID),
	)
	return note, nil
}

// Get консультация с заметками и файлами. Ученик видит только свои консультации без заметок.
func (s *ConsultationService) Get(ctx context.Context, actor model.Actor, id int64) (*ConsultationDetails, error) {
	st, err := loadConsultation(ctx, s.repos, id, false)
	if err != nil {
		return nil, err
	}

	if actor.Role == model.RoleStudent {
		if !actor.IsStudent() || !st.InvolvesStudent(*actor.StudentID) {
			return nil, model.NotFound("service.GetConsultation", "Консультация не найдена")
		}
		return &ConsultationDetails{ConsultationState: st}, nil
	}
	if err := inScope(actor, st.Request); err != nil {
		return nil, err
	}

	details := &ConsultationDetails{ConsultationState: st}
	if details.Notes, err = s.repos.Notes.ListConsultationNotes(ctx, id); err != nil {
		return nil, fmt.Errorf("get notes: %w", err)
	}
	if details.Attachments, err = s.repos.Attachments.ListByConsultation(ctx, id); err != nil {
		return nil, fmt.Errorf("get attachments: %w", err)
	}
	if st.Request != nil {
		if st.Request.Student, err = s.repos.Students.GetByID(ctx, st.Request.StudentID); err != nil {
			return nil, fmt.Errorf("get request student: %w", err)
		}
		if st.Request.PsychologistID != nil {
			if st.Request.Psychologist, err = s.repos.Users.GetByID(ctx, *st.Request.PsychologistID); err != nil {
				return nil, fmt.Errorf("get psychologist: %w", err)
			}
		}
	}
	return details, nil
}

// List консультации в области видимости психолога или администратора
func (s *ConsultationService) List(ctx context.Context, actor model.Actor, tab Tab) ([]lifecycle.ConsultationState, error) {
	scope, err := report.ScopeFor(actor)
	if err != nil {
		return nil, err
	}

	consultations, err := s.repos.Consultations.ListScoped(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list consultations: %w", err)
	}

	today := dayStart(s.now())
	var ids []int64
	var picked []model.Consultation
	for _, c := range consultations {
		if matchTab(c, tab, today) {
			picked = append(picked, c)
			ids = append(ids, c.ID)
		}
	}

	links, err := s.repos.Participation.ListByConsultations(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list participation: %w", err)
	}

	requests := make(map[int64]*model.Request)
	result := make([]lifecycle.ConsultationState, 0, len(picked))
	for _, c := range picked {
		st := lifecycle.ConsultationState{Consultation: c, Links: links[c.ID]}
		if c.RequestID != nil {
			req, ok := requests[*c.RequestID]
			if !ok {
				if req, err = s.repos.Requests.GetByID(ctx, *c.RequestID); err != nil {
					return nil, fmt.Errorf("get request: %w", err)
				}
				requests[*c.RequestID] = req
			}
			st.Request = req
		}
		result = append(result, st)
	}
	return result, nil
}

// matchTab предстоящие: дата не прошла и консультация не завершена;
// прошедшие: дата прошла или консультация завершена
func matchTab(c model.Consultation, tab Tab, today time.Time) bool {
	past := c.Date.Before(today) || c.CompletedAt != nil
	switch tab {
	case TabUpcoming:
		return !past
	case TabPast:
		return past
	}
	return true
}

// ListForStudent консультации ученика с его статусом участия
func (s *ConsultationService) ListForStudent(ctx context.Context, actor model.Actor) ([]StudentConsultation, error) {
	if !actor.IsStudent() {
		return nil, model.Forbidden("service.ListForStudent", model.ReasonRole, "Раздел доступен только ученику")
	}
	studentID := *actor.StudentID

	consultations, err := s.repos.Consultations.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list student consultations: %w", err)
	}

	ids := make([]int64, 0, len(consultations))
	for _, c := range consultations {
		ids = append(ids, c.ID)
	}
	links, err := s.repos.Participation.ListByConsultations(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list participation: %w", err)
	}

	result := make([]StudentConsultation, 0, len(consultations))
	for _, c := range consultations {
		item := StudentConsultation{Consultation: c, Participation: model.ParticipationUnconfirmed}
		for _, l := range links[c.ID] {
			if l.StudentID == studentID {
				item.Participation = l.State()
				item.Linked = true
			}
		}
		result = append(result, item)
	}
	return result, nil
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
