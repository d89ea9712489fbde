package model

import "time"

type RequestStatus string

const (
	RequestStatusNew        RequestStatus = "new"
	RequestStatusInProgress RequestStatus = "in_progress"
	RequestStatusCompleted  RequestStatus = "completed"
	RequestStatusCancelled  RequestStatus = "cancelled"
)

// RequestStatuses порядок статусов для отчётов
var RequestStatuses = []RequestStatus{
	RequestStatusNew,
	RequestStatusInProgress,
	RequestStatusCompleted,
	RequestStatusCancelled,
}

// IsTerminal true для завершённой или отменённой заявки
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusCompleted || s == RequestStatusCancelled
}

func (s RequestStatus) Valid() bool {
	for _, st := range RequestStatuses {
		if st == s {
			return true
		}
	}
	return false
}

type RequestSource string

const (
	SourceStudent RequestSource = "student"
	SourceParent  RequestSource = "parent"
	SourceTeacher RequestSource = "teacher"
)

// Request обращение за психологической помощью
type Request struct {
	ID             int64         `json:"id"`
	StudentID      int64         `json:"student_id"`
	PsychologistID *int64        `json:"psychologist_id"` // nil - психолог не назначен
	Source         RequestSource `json:"source"`
	Status         RequestStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`

	// Дополнительные поля для удобства (не из БД)
	Student      *Student `json:"student,omitempty"`
	Psychologist *User    `json:"psychologist,omitempty"`
}

// AssignedTo проверяет что заявка закреплена за психологом
func (r *Request) AssignedTo(userID int64) bool {
	return r.PsychologistID != nil && *r.PsychologistID == userID
}

// RequestNote заметка к заявке, после создания не меняется
type RequestNote struct {
	ID        int64     `json:"id"`
	RequestID int64     `json:"request_id"`
	AuthorID  int64     `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
