package callbacktypes

import (
	"github.com/Freeeeeet/psychologist_bot/internal/service"
	"go.uber.org/zap"
)

// UserState представляет текущее состояние пользователя в диалоге
type UserState string

// StateManager интерфейс для управления состоянием пользователей
type StateManager interface {
	ClearState(telegramID int64)
	GetState(telegramID int64) UserState
	SetState(telegramID int64, state UserState)
	SetData(telegramID int64, key string, value interface{})
	GetData(telegramID int64, key string) (interface{}, bool)
	GetAllData(telegramID int64) map[string]interface{}
}

// Services сервисы, которыми пользуются обработчики
type Services struct {
	Users         *service.UserService
	Requests      *service.RequestService
	Consultations *service.ConsultationService
	Participation *service.ParticipationService
	Notifications *service.NotificationService
	Reports       *service.ReportService
	Attachments   *service.AttachmentService
	Backups       *service.BackupService
	Chats         *service.ChatService
}

// Handler содержит общие зависимости для всех callback handlers
type Handler struct {
	Services
	StateManager StateManager
	Logger       *zap.Logger
}
