package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/Freeeeeet/psychologist_bot/internal/lifecycle"
	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"go.uber.org/zap"
)

const maxAttachmentDescription = 255

// AttachmentService файлы консультаций: запись в MediaStore и учёт в базе
type AttachmentService struct {
	repos  Repositories
	media  *MediaStore
	logger *zap.Logger
}

func NewAttachmentService(repos Repositories, media *MediaStore, logger *zap.Logger) *AttachmentService {
	return &AttachmentService{
		repos:  repos,
		media:  media,
		logger: logger,
	}
}

// checkConsultation проверяет роль и что консультация видна действующему лицу
func (s *AttachmentService) checkConsultation(ctx context.Context, actor model.Actor, consultationID int64) error {
	if err := lifecycle.CanManageConsultation(actor); err != nil {
		return err
	}
	st, err := loadConsultation(ctx, s.repos, consultationID, false)
	if err != nil {
		return err
	}
	return inScope(actor, st.Request)
}

// Add сохраняет файл на диск и регистрирует его. При ошибке записи в базу файл удаляется.
func (s *AttachmentService) Add(ctx context.Context, actor model.Actor, consultationID int64, fileName, description string, content io.Reader) (*model.Attachment, error) {
	const op = "service.AddAttachment"
	description = lifecycle.NormalizeText(description)
	if utf8.RuneCountInString(description) > maxAttachmentDescription {
		return nil, model.Validation(op, map[string]string{
			"description": fmt.Sprintf("Описание не может быть длиннее %d символов", maxAttachmentDescription),
		})
	}
	if err := s.checkConsultation(ctx, actor, consultationID); err != nil {
		return nil, err
	}

	rel, err := s.media.Save(consultationID, fileName, content)
	if err != nil {
		if errors.Is(err, errFileTooLarge) {
			return nil, model.Validation(op, map[string]string{
				"file": fmt.Sprintf("Файл больше %d МБ", MaxAttachmentSize>>20),
			})
		}
		return nil, fmt.Errorf("save file: %w", err)
	}

	a := &model.Attachment{ConsultationID: consultationID, Path: rel, Description: description}
	if err := s.repos.Attachments.Create(ctx, a); err != nil {
		if rmErr := s.media.Remove(rel); rmErr != nil {
			s.logger.Warn("Failed to remove orphan file", zap.String("path", rel), zap.Error(rmErr))
		}
		return nil, fmt.Errorf("create attachment: %w", err)
	}

	s.logger.Info("Attachment added",
		zap.Int64("consultation_id", consultationID),
		zap.Int64("attachment_id", a.ID),
		zap.String("path", rel),
	)
	return a, nil
}

func (s *AttachmentService) List(ctx context.Context, actor model.Actor, consultationID int64) ([]model.Attachment, error) {
	if err := s.checkConsultation(ctx, actor, consultationID); err != nil {
		return nil, err
	}
	return s.repos.Attachments.ListByConsultation(ctx, consultationID)
}

func (s *AttachmentService) get(ctx context.Context, actor model.Actor, id int64) (*model.Attachment, error) {
	a, err := s.repos.Attachments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get attachment: %w", err)
	}
	if a == nil {
		return nil, model.NotFound("service.Attachment", "Файл не найден")
	}
	if err := s.checkConsultation(ctx, actor, a.ConsultationID); err != nil {
		return nil, err
	}
	return a, nil
}

// Open открывает файл для отправки, закрывает вызывающий
func (s *AttachmentService) Open(ctx context.Context, actor model.Actor, id int64) (*model.Attachment, *os.File, error) {
	a, err := s.get(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.media.Open(a.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, model.NotFound("service.OpenAttachment", "Файл отсутствует на диске")
		}
		return nil, nil, fmt.Errorf("open file: %w", err)
	}
	return a, f, nil
}

func (s *AttachmentService) Delete(ctx context.Context, actor model.Actor, id int64) error {
	a, err := s.get(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repos.Attachments.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	if err := s.media.Remove(a.Path); err != nil {
		s.logger.Warn("Failed to remove attachment file", zap.String("path", a.Path), zap.Error(err))
	}

	s.logger.Info("Attachment deleted",
		zap.Int64("consultation_id", a.ConsultationID),
		zap.Int64("attachment_id", id),
	)
	return nil
}
