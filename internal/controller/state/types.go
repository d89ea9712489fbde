package state

import (
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/callbacktypes"
)

// UserState шаг диалога. Тот же тип, что видят обработчики кнопок.
type UserState = callbacktypes.UserState

const (
	StateNone UserState = "" // Нет активного состояния

	// Ученик: своя заявка
	StateNewRequestComment UserState = "new_request_comment"

	// Заметки
	StateRequestNote      UserState = "request_note"
	StateConsultationNote UserState = "consultation_note"

	// Создание и изменение консультации
	StateConsultationDate     UserState = "consultation_date"
	StateConsultationTime     UserState = "consultation_time"
	StateConsultationStudents UserState = "consultation_students"

	StateConsultationResult UserState = "consultation_result"
	StateAttachmentUpload   UserState = "attachment_upload"

	// Карточка ученика
	StateStudentLastName  UserState = "student_last_name"
	StateStudentFirstName UserState = "student_first_name"
	StateStudentClass     UserState = "student_class"
	StateStudentBirthDate UserState = "student_birth_date"

	// Чат ученика с психологом
	StateChatMessage UserState = "chat_message"
	StateChatReply   UserState = "chat_reply"
)

// Ключи временных данных диалога
const (
	KeyRequestID      = "request_id"
	KeyConsultationID = "consultation_id"
	KeyDraft          = "consultation_draft"
	KeyFirstName      = "first_name"
	KeyLastName       = "last_name"
	KeyClassName      = "class_name"
	KeyChatID         = "chat_id"
)

// DialogTTL через столько брошенный диалог забывается
const DialogTTL = 30 * time.Minute

// dialog шаг и данные незавершённого диалога
type dialog struct {
	state   UserState
	data    map[string]interface{}
	touched time.Time
}
