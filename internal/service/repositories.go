package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/Freeeeeet/psychologist_bot/internal/report"
)

// Transactor выполняет функцию в одной транзакции
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Репозитории возвращают nil, nil, если запись не найдена

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	ListByRole(ctx context.Context, role model.Role) ([]model.User, error)
	ListByStudentID(ctx context.Context, studentID int64) ([]model.User, error)
	ListAll(ctx context.Context) ([]model.User, error)
}

type StudentRepository interface {
	Create(ctx context.Context, s *model.Student) error
	GetByID(ctx context.Context, id int64) (*model.Student, error)
	List(ctx context.Context) ([]model.Student, error)
}

type RequestRepository interface {
	Create(ctx context.Context, req *model.Request) error
	GetByID(ctx context.Context, id int64) (*model.Request, error)
	GetForUpdate(ctx context.Context, id int64) (*model.Request, error)
	Update(ctx context.Context, req *model.Request) error
	Delete(ctx context.Context, id int64) error
	ListByStudent(ctx context.Context, studentID int64) ([]model.Request, error)
	ListScoped(ctx context.Context, scope report.Scope) ([]model.Request, error)
}

type ConsultationRepository interface {
	Create(ctx context.Context, c *model.Consultation) error
	GetByID(ctx context.Context, id int64) (*model.Consultation, error)
	GetForUpdate(ctx context.Context, id int64) (*model.Consultation, error)
	Update(ctx context.Context, c *model.Consultation) error
	Delete(ctx context.Context, id int64) error
	ListScoped(ctx context.Context, scope report.Scope) ([]model.Consultation, error)
	ListByStudent(ctx context.Context, studentID int64) ([]model.Consultation, error)
	ListByRequest(ctx context.Context, requestID int64) ([]model.Consultation, error)
}

type ParticipationRepository interface {
	Create(ctx context.Context, link *model.ConsultationStudent) error
	Update(ctx context.Context, link *model.ConsultationStudent) error
	Delete(ctx context.Context, id int64) error
	ListByConsultation(ctx context.Context, consultationID int64) ([]model.ConsultationStudent, error)
	ListByConsultations(ctx context.Context, ids []int64) (map[int64][]model.ConsultationStudent, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByStudent(ctx context.Context, studentID int64, limit int) ([]model.Notification, error)
}

type NoteRepository interface {
	CreateConsultationNote(ctx context.Context, n *model.Note) error
	ListConsultationNotes(ctx context.Context, consultationID int64) ([]model.Note, error)
	CreateRequestNote(ctx context.Context, n *model.RequestNote) error
	ListRequestNotes(ctx context.Context, requestID int64) ([]model.RequestNote, error)
	ListRequestNotesByStudent(ctx context.Context, studentID int64) ([]model.RequestNote, error)
}

type AttachmentRepository interface {
	Create(ctx context.Context, a *model.Attachment) error
	GetByID(ctx context.Context, id int64) (*model.Attachment, error)
	Delete(ctx context.Context, id int64) error
	ListByConsultation(ctx context.Context, consultationID int64) ([]model.Attachment, error)
}

type ChatRepository interface {
	Ensure(ctx context.Context, c *model.Chat) error
	GetByID(ctx context.Context, id int64) (*model.Chat, error)
	GetByStudent(ctx context.Context, studentID int64) (*model.Chat, error)
	Touch(ctx context.Context, id int64, at time.Time) error
	List(ctx context.Context, psychologistID *int64, viewerID int64) ([]model.ChatSummary, error)
	CreateMessage(ctx context.Context, m *model.ChatMessage) error
	ListMessages(ctx context.Context, chatID int64, limit int) ([]model.ChatMessage, error)
	MarkRead(ctx context.Context, chatID, userID int64) (int, error)
}

// Repositories набор хранилищ, общий для всех сервисов
type Repositories struct {
	Tx            Transactor
	Users         UserRepository
	Students      StudentRepository
	Requests      RequestRepository
	Consultations ConsultationRepository
	Participation ParticipationRepository
	Notifications NotificationRepository
	Notes         NoteRepository
	Attachments   AttachmentRepository
	Chats         ChatRepository
}

// ReportCache кеш посчитанных отчётов
type ReportCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Invalidate(ctx context.Context) error
}
