package model

import "time"

type NotificationKind string

const (
	NotificationConsultationAssigned NotificationKind = "consultation_assigned"
	NotificationRequestStatus        NotificationKind = "request_status"
)

// Notification событие в ленте ученика, только добавляется
type Notification struct {
	ID             int64            `json:"id"`
	StudentID      int64            `json:"student_id"`
	Kind           NotificationKind `json:"kind"`
	ConsultationID *int64           `json:"consultation_id"`
	RequestID      *int64           `json:"request_id"`
	CreatedAt      time.Time        `json:"created_at"`

	// Заполняются при чтении ленты
	Consultation *Consultation `json:"consultation,omitempty"`
	Request      *Request      `json:"request,omitempty"`
}
