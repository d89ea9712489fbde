package lifecycle

import (
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
)

// ConfirmParticipation ученик подтверждает участие в консультации
func ConfirmParticipation(actor model.Actor, st ConsultationState, now time.Time) (Change, error) {
	const op = "lifecycle.ConfirmParticipation"
	if !actor.IsStudent() {
		return Change{}, model.Forbidden(op, model.ReasonRole, "Подтвердить участие может только ученик")
	}
	studentID := *actor.StudentID
	if !st.InvolvesStudent(studentID) {
		return Change{}, model.NotFound(op, "Консультация не найдена")
	}
	if st.Consultation.IsTerminal() {
		return Change{}, model.Precondition(op, model.ReasonTerminal, "Консультация уже завершена или отменена")
	}

	link, ok := st.Link(studentID)
	if !ok {
		// Ученик связан с консультацией через заявку, но связи ещё нет
		link = model.ConsultationStudent{
			ConsultationID: st.Consultation.ID,
			StudentID:      studentID,
			ConfirmedAt:    timePtr(now),
			CreatedAt:      now,
		}
		return Change{
			Outcome: Applied,
			Message: "Участие подтверждено",
			Links:   []model.ConsultationStudent{link},
			Events:  []model.Notification{assignedEvent(studentID, st.Consultation.ID, now)},
		}, nil
	}

	switch link.State() {
	case model.ParticipationCancelled:
		return Change{}, model.Precondition(op, model.ReasonParticipationCanceled, "Вы уже отказались от участия, подтвердить его нельзя")
	case model.ParticipationConfirmed:
		return noop("Участие уже подтверждено"), nil
	}

	link.ConfirmedAt = timePtr(now)
	return Change{
		Outcome: Applied,
		Message: "Участие подтверждено",
		Links:   []model.ConsultationStudent{link},
	}, nil
}

// CancelParticipation ученик отказывается от участия.
// Отказ любого участника отменяет всю консультацию и её заявку.
func CancelParticipation(actor model.Actor, st ConsultationState, now time.Time) (Change, error) {
	const op = "lifecycle.CancelParticipation"
	if !actor.IsStudent() {
		return Change{}, model.Forbidden(op, model.ReasonRole, "Отказаться от участия может только ученик")
	}
	studentID := *actor.StudentID
	if !st.InvolvesStudent(studentID) {
		return Change{}, model.NotFound(op, "Консультация не найдена")
	}
	// Повторный отказ: консультация к этому моменту уже отменена каскадом
	link, ok := st.Link(studentID)
	if ok && link.State() == model.ParticipationCancelled {
		return noop("Участие уже отменено"), nil
	}
	if st.Consultation.IsTerminal() {
		return Change{}, model.Precondition(op, model.ReasonTerminal, "Консультация уже завершена или отменена")
	}
	if !ok {
		return Change{}, model.Precondition(op, model.ReasonNotEnrolled, "Вы не записаны на эту консультацию")
	}

	link.CancelledAt = timePtr(now)
	link.ConfirmedAt = nil

	cons := st.Consultation
	cons.CancelledAt = timePtr(now)

	c := Change{
		Outcome:      Applied,
		Message:      "Участие отменено, консультация отменена",
		Consultation: &cons,
		Links:        []model.ConsultationStudent{link},
	}
	cascadeCancel(&c, st.Request, now)
	return c, nil
}
