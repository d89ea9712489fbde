// Package lifecycle содержит чистые функции переходов заявок, консультаций
// и участия учеников. Функции получают полностью загруженные объекты и
// возвращают набор изменений, который сервис сохраняет в одной транзакции.
package lifecycle

import (
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
)

// Outcome результат операции
type Outcome string

const (
	Applied Outcome = "applied" // изменения нужно сохранить
	Noop    Outcome = "noop"    // повтор уже выполненного действия, сохранять нечего
)

// Change изменения одной операции. Nil-поля не менялись.
type Change struct {
	Outcome Outcome
	Message string

	Request      *model.Request
	Consultation *model.Consultation

	// Links с ID == 0 создаются, остальные обновляются
	Links        []model.ConsultationStudent
	RemovedLinks []int64

	// Events уведомления для ленты учеников (outbox)
	Events []model.Notification
}

func noop(msg string) Change {
	return Change{Outcome: Noop, Message: msg}
}

// IsNoop true если операция ничего не изменила
func (c Change) IsNoop() bool { return c.Outcome == Noop }

// BindConsultation проставляет ID только что созданной консультации
// в новые связи и события
func (c *Change) BindConsultation(id int64) {
	for i := range c.Links {
		if c.Links[i].ConsultationID == 0 {
			c.Links[i].ConsultationID = id
		}
	}
	for i := range c.Events {
		if c.Events[i].Kind == model.NotificationConsultationAssigned && c.Events[i].ConsultationID == nil {
			cid := id
			c.Events[i].ConsultationID = &cid
		}
	}
}

// BindRequest проставляет ID только что созданной заявки в события
func (c *Change) BindRequest(id int64) {
	for i := range c.Events {
		if c.Events[i].Kind == model.NotificationRequestStatus && c.Events[i].RequestID == nil {
			rid := id
			c.Events[i].RequestID = &rid
		}
	}
}

// ConsultationState консультация вместе с заявкой и участниками
type ConsultationState struct {
	Consultation model.Consultation
	Request      *model.Request
	Links        []model.ConsultationStudent
}

// Link ищет участие ученика
func (s *ConsultationState) Link(studentID int64) (model.ConsultationStudent, bool) {
	for _, l := range s.Links {
		if l.StudentID == studentID {
			return l, true
		}
	}
	return model.ConsultationStudent{}, false
}

// InvolvesStudent true если ученик участник или владелец заявки
func (s *ConsultationState) InvolvesStudent(studentID int64) bool {
	if _, ok := s.Link(studentID); ok {
		return true
	}
	return s.Request != nil && s.Request.StudentID == studentID
}

func requestStatusEvent(req model.Request, now time.Time) model.Notification {
	n := model.Notification{
		StudentID: req.StudentID,
		Kind:      model.NotificationRequestStatus,
		CreatedAt: now,
	}
	if req.ID != 0 {
		id := req.ID
		n.RequestID = &id
	}
	return n
}

func assignedEvent(studentID, consultationID int64, now time.Time) model.Notification {
	n := model.Notification{
		StudentID: studentID,
		Kind:      model.NotificationConsultationAssigned,
		CreatedAt: now,
	}
	if consultationID != 0 {
		id := consultationID
		n.ConsultationID = &id
	}
	return n
}

// setRequestStatus меняет статус заявки и добавляет уведомление
func setRequestStatus(c *Change, req model.Request, status model.RequestStatus, now time.Time) {
	if req.Status == status {
		return
	}
	req.Status = status
	c.Request = &req
	c.Events = append(c.Events, requestStatusEvent(req, now))
}

func timePtr(t time.Time) *time.Time { return &t }
