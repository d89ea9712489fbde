// Package report строит отчёты по заявкам и консультациям с учётом роли
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
)

// Scope область видимости данных. Вычисляется один раз из роли
// и одинаково применяется к заявкам и консультациям.
type Scope struct {
	// PsychologistID nil - без ограничений (администратор)
	PsychologistID *int64
}

// ScopeFor строит область видимости для действующего лица
func ScopeFor(actor model.Actor) (Scope, error) {
	switch actor.Role {
	case model.RoleAdmin:
		return Scope{}, nil
	case model.RolePsychologist:
		id := actor.UserID
		return Scope{PsychologistID: &id}, nil
	}
	return Scope{}, model.Forbidden("report.ScopeFor", model.ReasonRole, "Отчёты доступны только психологам и администраторам")
}

// All true для администратора
func (s Scope) All() bool { return s.PsychologistID == nil }

// AllowsRequest заявка своя или ещё не назначена
func (s Scope) AllowsRequest(r model.Request) bool {
	if s.All() {
		return true
	}
	return r.PsychologistID == nil || *r.PsychologistID == *s.PsychologistID
}

// AllowsConsultation консультация без заявки или с видимой заявкой
func (s Scope) AllowsConsultation(req *model.Request) bool {
	if s.All() || req == nil {
		return true
	}
	return s.AllowsRequest(*req)
}

// Key часть ключа кеша
func (s Scope) Key() string {
	if s.All() {
		return "all"
	}
	return fmt.Sprintf("psy%d", *s.PsychologistID)
}

// Filters фильтры отчёта, объединяются по И
type Filters struct {
	DateFrom  *time.Time          `json:"date_from,omitempty"`
	DateTo    *time.Time          `json:"date_to,omitempty"`
	Status    model.RequestStatus `json:"status,omitempty"` // применяется к заявкам
	StudentID *int64              `json:"student_id,omitempty"`
}

// Validate проверяет согласованность фильтров
func (f Filters) Validate() error {
	fields := make(map[string]string)
	if f.Status != "" && !f.Status.Valid() {
		fields["status"] = "Неизвестный статус заявки"
	}
	if f.DateFrom != nil && f.DateTo != nil && civil(*f.DateFrom) > civil(*f.DateTo) {
		fields["date_to"] = "Дата окончания периода раньше даты начала"
	}
	if len(fields) > 0 {
		return model.Validation("report.Filters", fields)
	}
	return nil
}

// Key часть ключа кеша
func (f Filters) Key() string {
	parts := []string{"from=", "to=", "status=" + string(f.Status), "student="}
	if f.DateFrom != nil {
		parts[0] += f.DateFrom.Format("2006-01-02")
	}
	if f.DateTo != nil {
		parts[1] += f.DateTo.Format("2006-01-02")
	}
	if f.StudentID != nil {
		parts[3] += fmt.Sprint(*f.StudentID)
	}
	return strings.Join(parts, ";")
}

// civil дата в виде числа ГГГГММДД, время суток отбрасывается
func civil(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

func (f Filters) inRange(t time.Time) bool {
	c := civil(t)
	if f.DateFrom != nil && c < civil(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && c > civil(*f.DateTo) {
		return false
	}
	return true
}

// MatchRequest дата создания, статус и ученик
func (f Filters) MatchRequest(r model.Request) bool {
	if !f.inRange(r.CreatedAt) {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.StudentID != nil && r.StudentID != *f.StudentID {
		return false
	}
	return true
}

// MatchConsultation консультация подходит, если в период попадает
// её дата или дата завершения (каждая граница проверяется отдельно)
func (f Filters) MatchConsultation(rec ConsultationRecord) bool {
	c := rec.Consultation
	if f.DateFrom != nil {
		from := civil(*f.DateFrom)
		if civil(c.Date) < from && (c.CompletedAt == nil || civil(*c.CompletedAt) < from) {
			return false
		}
	}
	if f.DateTo != nil {
		to := civil(*f.DateTo)
		if civil(c.Date) > to && (c.CompletedAt == nil || civil(*c.CompletedAt) > to) {
			return false
		}
	}
	if f.StudentID != nil && !rec.Involves(*f.StudentID) {
		return false
	}
	return true
}

// ConsultationRecord консультация с заявкой и участниками
type ConsultationRecord struct {
	Consultation model.Consultation
	Request      *model.Request
	StudentIDs   []int64 // ученики по связям участия
}

// Involves ученик участник консультации или владелец её заявки
func (r ConsultationRecord) Involves(studentID int64) bool {
	if r.Request != nil && r.Request.StudentID == studentID {
		return true
	}
	for _, id := range r.StudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

// Students все ученики консультации без повторов
func (r ConsultationRecord) Students() []int64 {
	seen := make(map[int64]bool, len(r.StudentIDs)+1)
	var ids []int64
	for _, id := range r.StudentIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if r.Request != nil && !seen[r.Request.StudentID] {
		ids = append(ids, r.Request.StudentID)
	}
	return ids
}

// Dataset исходные данные отчёта
type Dataset struct {
	Requests      []model.Request
	Consultations []ConsultationRecord
	Students      map[int64]model.Student
	Psychologists map[int64]model.User
}

// Apply оставляет только видимые и подходящие под фильтры записи
func Apply(ds Dataset, scope Scope, f Filters) Dataset {
	out := Dataset{Students: ds.Students, Psychologists: ds.Psychologists}
	for _, r := range ds.Requests {
		if scope.AllowsRequest(r) && f.MatchRequest(r) {
			out.Requests = append(out.Requests, r)
		}
	}
	for _, rec := range ds.Consultations {
		if scope.AllowsConsultation(rec.Request) && f.MatchConsultation(rec) {
			out.Consultations = append(out.Consultations, rec)
		}
	}
	return out
}
