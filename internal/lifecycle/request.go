package lifecycle

import (
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
)

// NewRequest создаёт заявку от имени психолога, психолог сразу закрепляется
func NewRequest(actor model.Actor, in RequestInput, now time.Time) (model.Request, error) {
	const op = "lifecycle.NewRequest"
	if !actor.IsPsychologist() {
		return model.Request{}, model.Forbidden(op, model.ReasonRole, "Создавать заявки может только психолог")
	}
	if err := ValidateRequest(&in); err != nil {
		return model.Request{}, err
	}
	psychologistID := actor.UserID
	return model.Request{
		StudentID:      in.StudentID,
		PsychologistID: &psychologistID,
		Source:         in.Source,
		Status:         model.RequestStatusNew,
		CreatedAt:      now,
	}, nil
}

// NewOwnRequest заявка, которую ученик подаёт сам. Возвращает нормализованный комментарий.
func NewOwnRequest(actor model.Actor, note string, now time.Time) (model.Request, string, error) {
	const op = "lifecycle.NewOwnRequest"
	if !actor.IsStudent() {
		return model.Request{}, "", model.Forbidden(op, model.ReasonRole, "Подать заявку может только ученик с привязанной карточкой")
	}
	text, err := ValidateRequestNote(note)
	if err != nil {
		return model.Request{}, "", err
	}
	return model.Request{
		StudentID: *actor.StudentID,
		Source:    model.SourceStudent,
		Status:    model.RequestStatusNew,
		CreatedAt: now,
	}, text, nil
}

// CompleteRequest завершает заявку вручную
func CompleteRequest(actor model.Actor, req model.Request, now time.Time) (Change, error) {
	const op = "lifecycle.CompleteRequest"
	if !actor.IsPsychologist() {
		return Change{}, model.Forbidden(op, model.ReasonRole, "Завершить заявку может только психолог")
	}
	switch req.Status {
	case model.RequestStatusCompleted:
		return noop("Заявка уже завершена"), nil
	case model.RequestStatusCancelled:
		return Change{}, model.Precondition(op, model.ReasonTerminal, "Заявка отменена, завершить её нельзя")
	}

	c := Change{Outcome: Applied, Message: "Заявка завершена"}
	setRequestStatus(&c, req, model.RequestStatusCompleted, now)
	return c, nil
}

// CancelRequest отменяет заявку. Доступно психологу и ученику-владельцу.
func CancelRequest(actor model.Actor, req model.Request, now time.Time) (Change, error) {
	const op = "lifecycle.CancelRequest"
	if !actor.IsPsychologist() && !actor.Owns(req.StudentID) {
		return Change{}, model.Forbidden(op, model.ReasonNotOwner, "Нет прав на отмену этой заявки")
	}
	switch req.Status {
	case model.RequestStatusCompleted:
		return Change{}, model.Precondition(op, model.ReasonTerminal, "Заявка уже завершена, отменить её нельзя")
	case model.RequestStatusCancelled:
		return noop("Заявка уже отменена"), nil
	}

	c := Change{Outcome: Applied, Message: "Заявка отменена"}
	setRequestStatus(&c, req, model.RequestStatusCancelled, now)
	return c, nil
}

// CanDeleteRequest удаление заявки: только администратор и только завершённой или отменённой
func CanDeleteRequest(actor model.Actor, req model.Request) error {
	const op = "lifecycle.CanDeleteRequest"
	if !actor.IsAdmin() {
		return model.Forbidden(op, model.ReasonRole, "Удалять заявки может только администратор")
	}
	if !req.Status.IsTerminal() {
		return model.Precondition(op, model.ReasonNotTerminal, "Удалить можно только завершённую или отменённую заявку")
	}
	return nil
}

// AssignPsychologist администратор назначает психолога на заявку консультации
func AssignPsychologist(actor model.Actor, st ConsultationState, psychologist model.User) (Change, error) {
	const op = "lifecycle.AssignPsychologist"
	if !actor.IsAdmin() {
		return Change{}, model.Forbidden(op, model.ReasonRole, "Назначать психолога может только администратор")
	}
	if st.Request == nil {
		return Change{}, model.Precondition(op, model.ReasonNoRequest, "У консультации нет заявки")
	}
	if psychologist.Role != model.RolePsychologist || !psychologist.IsActive {
		return Change{}, model.Reference(op, "Психолог не найден", nil)
	}
	if st.Request.AssignedTo(psychologist.ID) {
		return noop("Этот психолог уже назначен"), nil
	}

	req := *st.Request
	id := psychologist.ID
	req.PsychologistID = &id
	return Change{Outcome: Applied, Message: "Психолог назначен", Request: &req}, nil
}

// CanAnnotateRequest заметки к заявке пишут психолог или ученик-владелец
func CanAnnotateRequest(actor model.Actor, req model.Request) error {
	if actor.IsPsychologist() || actor.Owns(req.StudentID) {
		return nil
	}
	return model.Forbidden("lifecycle.CanAnnotateRequest", model.ReasonNotOwner, "Нет доступа к заявке")
}
