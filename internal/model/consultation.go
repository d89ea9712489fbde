package model

import (
	"fmt"
	"time"
)

type ConsultationForm string

const (
	FormIndividual ConsultationForm = "individual"
	FormGroup      ConsultationForm = "group"
)

type ConsultationStatus string

const (
	ConsultationScheduled ConsultationStatus = "scheduled"
	ConsultationCompleted ConsultationStatus = "completed"
	ConsultationCancelled ConsultationStatus = "cancelled"
)

// TimeOfDay время начала/окончания в минутах от полуночи
type TimeOfDay int

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay разбирает время в формате 15:04
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return NewTimeOfDay(t.Hour(), t.Minute()), nil
}

func (t TimeOfDay) Minutes() int { return int(t) }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// On возвращает момент времени в указанный день
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, int(t)/60, int(t)%60, 0, 0, day.Location())
}

// Consultation запланированная или проведённая встреча
type Consultation struct {
	ID          int64            `json:"id"`
	RequestID   *int64           `json:"request_id"` // консультация может быть без заявки
	Form        ConsultationForm `json:"form"`
	Date        time.Time        `json:"date"`
	StartTime   *TimeOfDay       `json:"start_time"`
	EndTime     *TimeOfDay       `json:"end_time"`
	Duration    int              `json:"duration"` // в минутах
	Result      string           `json:"result"`
	CompletedAt *time.Time       `json:"completed_at"`
	CancelledAt *time.Time       `json:"cancelled_at"`
	CreatedAt   time.Time        `json:"created_at"`
}

func (c *Consultation) Status() ConsultationStatus {
	switch {
	case c.CompletedAt != nil:
		return ConsultationCompleted
	case c.CancelledAt != nil:
		return ConsultationCancelled
	}
	return ConsultationScheduled
}

func (c *Consultation) IsTerminal() bool {
	return c.CompletedAt != nil || c.CancelledAt != nil
}

type ParticipationState string

const (
	ParticipationUnconfirmed ParticipationState = "unconfirmed"
	ParticipationConfirmed   ParticipationState = "confirmed"
	ParticipationCancelled   ParticipationState = "cancelled"
)

// ConsultationStudent участие ученика в консультации
type ConsultationStudent struct {
	ID             int64      `json:"id"`
	ConsultationID int64      `json:"consultation_id"`
	StudentID      int64      `json:"student_id"`
	ConfirmedAt    *time.Time `json:"participation_confirmed_at"`
	CancelledAt    *time.Time `json:"participation_cancelled_at"`
	CreatedAt      time.Time  `json:"created_at"`

	Student *Student `json:"student,omitempty"`
}

func (l *ConsultationStudent) State() ParticipationState {
	switch {
	case l.CancelledAt != nil:
		return ParticipationCancelled
	case l.ConfirmedAt != nil:
		return ParticipationConfirmed
	}
	return ParticipationUnconfirmed
}

// StudentName имя ученика или его ID, если карточка не подгружена
func (l *ConsultationStudent) StudentName() string {
	if l.Student != nil {
		return l.Student.FullName()
	}
	return fmt.Sprintf("ученик #%d", l.StudentID)
}

// Note заметка психолога к консультации
type Note struct {
	ID             int64     `json:"id"`
	ConsultationID int64     `json:"consultation_id"`
	AuthorID       int64     `json:"author_id"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
}

// Attachment файл, прикреплённый к консультации
type Attachment struct {
	ID             int64     `json:"id"`
	ConsultationID int64     `json:"consultation_id"`
	Path           string    `json:"path"` // относительно MEDIA_ROOT
	Description    string    `json:"description"`
	UploadedAt     time.Time `json:"uploaded_at"`
}
