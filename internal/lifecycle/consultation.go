package lifecycle

import (
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
)

// PlanConsultation создаёт консультацию, связи с учениками и продвигает заявку.
// req - заявка из формы (nil, если консультация без заявки).
func PlanConsultation(actor model.Actor, in ConsultationInput, req *model.Request, now time.Time) (Change, error) {
	const op = "lifecycle.PlanConsultation"
	if !actor.IsPsychologist() {
		return Change{}, model.Forbidden(op, model.ReasonRole, "Создавать консультации может только психолог")
	}
	if err := ValidateConsultation(&in, now, true); err != nil {
		return Change{}, err
	}
	if in.RequestID != nil && req == nil {
		return Change{}, model.NotFound(op, "Заявка не найдена")
	}
	if req != nil && req.Status.IsTerminal() {
		return Change{}, model.Precondition(op, model.ReasonTerminal, "Заявка закрыта, новые консультации по ней не назначаются")
	}

	cons := model.Consultation{
		Form:      in.Form,
		Date:      dayStart(in.Date, now.Location()),
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Duration:  ComputeDuration(*in.StartTime, *in.EndTime),
		Result:    in.Result,
		CreatedAt: now,
	}
	c := Change{Outcome: Applied, Message: "Консультация создана", Consultation: &cons}

	for _, sid := range in.StudentIDs {
		c.Links = append(c.Links, model.ConsultationStudent{StudentID: sid, CreatedAt: now})
		c.Events = append(c.Events, assignedEvent(sid, 0, now))
	}

	if req != nil {
		id := req.ID
		cons.RequestID = &id

		updated := *req
		psychologistID := actor.UserID
		updated.PsychologistID = &psychologistID
		if updated.Status == model.RequestStatusNew {
			setRequestStatus(&c, updated, model.RequestStatusInProgress, now)
		} else if !req.AssignedTo(actor.UserID) {
			c.Request = &updated
		}
	}

	return c, nil
}

// ReviseConsultation редактирует незавершённую консультацию
func ReviseConsultation(actor model.Actor, st ConsultationState, in ConsultationInput, now time.Time) (Change, error) {
	const op = "lifecycle.ReviseConsultation"
	if !actor.IsPsychologist() {
		return Change{}, model.Forbidden(op, model.ReasonRole, "Редактировать консультации может только психолог")
	}
	if st.Consultation.IsTerminal() {
		return Change{}, model.Precondition(op, model.ReasonTerminal, "Консультация уже завершена или отменена")
	}
	if err := ValidateConsultation(&in, now, false); err != nil {
		return Change{}, err
	}

	cons := st.Consultation
	cons.Form = in.Form
	cons.Date = dayStart(in.Date, now.Location())
	cons.StartTime = in.StartTime
	cons.EndTime = in.EndTime
	cons.Duration = ComputeDuration(*in.StartTime, *in.EndTime)
	cons.Result = in.Result
	c := Change{Outcome: Applied, Message: "Консультация обновлена", Consultation: &cons}

	wanted := make(map[int64]bool, len(in.StudentIDs))
	for _, sid := range in.StudentIDs {
		wanted[sid] = true
		if _, ok := st.Link(sid); !ok {
			c.Links = append(c.Links, model.ConsultationStudent{ConsultationID: cons.ID, StudentID: sid, CreatedAt: now})
			c.Events = append(c.Events, assignedEvent(sid, cons.ID, now))
		}
	}
	// Связи с отметкой подтверждения или отмены остаются как история
	for _, l := range st.Links {
		if !wanted[l.StudentID] && l.State() == model.ParticipationUnconfirmed {
			c.RemovedLinks = append(c.RemovedLinks, l.ID)
		}
	}
	return c, nil
}

// RecordResult сохраняет результат консультации
func RecordResult(actor model.Actor, st ConsultationState, result string) (Change, error) {
	const op = "lifecycle.RecordResult"
	if !actor.IsPsychologist() {
		return Change{}, model.Forbidden(op, model.ReasonRole, "Результат может указать только психолог")
	}
	if st.Consultation.IsTerminal() {
		return Change{}, model.Precondition(op, model.ReasonTerminal, "Консультация уже завершена или отменена")
	}
	result = NormalizeText(result)
	if len([]rune(result)) < ResultMinLength {
		return Change{}, model.Validation(op, map[string]string{
			"result": "Результат должен содержать минимум 10 символов",
		})
	}
	if result == st.Consultation.Result {
		return noop("Результат не изменился"), nil
	}
	cons := st.Consultation
	cons.Result = result
	return Change{Outcome: Applied, Message: "Результат сохранён", Consultation: &cons}, nil
}

// CompleteConsultation завершает консультацию и вместе с ней заявку.
// Проверки идут в фиксированном порядке, каждая со своей причиной отказа.
func CompleteConsultation(actor model.Actor, st ConsultationState, now time.Time) (Change, error) {
	const op = "lifecycle.CompleteConsultation"
	if !actor.IsPsychologist() {
		return Change{}, model.Forbidden(op, model.ReasonRole, "Завершить консультацию может только психолог")
	}
	if st.Request == nil {
		return Change{}, model.Precondition(op, model.ReasonNoRequest, "Консультация не привязана к заявке")
	}
	if st.Request.PsychologistID == nil {
		return Change{}, model.Precondition(op, model.ReasonNoPsychologist, "У заявки не назначен психолог")
	}
	if !st.Request.AssignedTo(actor.UserID) {
		return Change{}, model.Forbidden(op, model.ReasonWrongPsychologist, "Завершить консультацию может только назначенный психолог")
	}

	cons := st.Consultation
	if cons.CompletedAt != nil {
		return noop("Консультация уже завершена"), nil
	}
	if cons.CancelledAt != nil {
		return Change{}, model.Precondition(op, model.ReasonTerminal, "Консультация отменена, завершить её нельзя")
	}
	if NormalizeText(cons.Result) == "" {
		return Change{}, model.Precondition(op, model.ReasonNoResult, "Сначала укажите результат консультации")
	}

	var unconfirmed []string
	for _, l := range st.Links {
		if l.State() == model.ParticipationUnconfirmed {
			unconfirmed = append(unconfirmed, l.StudentName())
		}
	}
	if len(unconfirmed) > 0 {
		e := model.Precondition(op, model.ReasonUnconfirmed, "Не все участники подтвердили участие")
		e.Details = unconfirmed
		return Change{}, e
	}

	cons.CompletedAt = timePtr(now)
	c := Change{Outcome: Applied, Message: "Консультация завершена", Consultation: &cons}
	if !st.Request.Status.IsTerminal() {
		setRequestStatus(&c, *st.Request, model.RequestStatusCompleted, now)
	}
	return c, nil
}

// CancelConsultation отменяет консультацию и её заявку
func CancelConsultation(actor model.Actor, st ConsultationState, now time.Time) (Change, error) {
	const op = "lifecycle.CancelConsultation"
	if !actor.IsPsychologist() {
		return Change{}, model.Forbidden(op, model.ReasonRole, "Отменить консультацию может только психолог")
	}
	cons := st.Consultation
	if cons.CompletedAt != nil {
		return Change{}, model.Precondition(op, model.ReasonTerminal, "Консультация уже завершена, отменить её нельзя")
	}
	if cons.CancelledAt != nil {
		return noop("Консультация уже отменена"), nil
	}

	cons.CancelledAt = timePtr(now)
	c := Change{Outcome: Applied, Message: "Консультация отменена", Consultation: &cons}
	cascadeCancel(&c, st.Request, now)
	return c, nil
}

// cascadeCancel переводит незакрытую заявку в cancelled
func cascadeCancel(c *Change, req *model.Request, now time.Time) {
	if req == nil || req.Status.IsTerminal() {
		return
	}
	setRequestStatus(c, *req, model.RequestStatusCancelled, now)
}

// CanDeleteConsultation удалять можно только закрытые консультации
func CanDeleteConsultation(actor model.Actor, cons model.Consultation) error {
	const op = "lifecycle.CanDeleteConsultation"
	if !actor.IsPsychologist() {
		return model.Forbidden(op, model.ReasonRole, "Удалять консультации может только психолог")
	}
	if !cons.IsTerminal() {
		return model.Precondition(op, model.ReasonNotTerminal, "Удалить можно только завершённую или отменённую консультацию")
	}
	return nil
}

// CanManageConsultation заметки и файлы консультации ведёт только психолог
func CanManageConsultation(actor model.Actor) error {
	if actor.IsPsychologist() {
		return nil
	}
	return model.Forbidden("lifecycle.CanManageConsultation", model.ReasonRole, "Доступно только психологу")
}
