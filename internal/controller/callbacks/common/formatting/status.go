package formatting

import (
	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/Freeeeeet/psychologist_bot/internal/report"
)

// StatusDisplay представляет отображение статуса
type StatusDisplay struct {
	Emoji string
	Text  string
}

func (d StatusDisplay) String() string {
	return d.Emoji + " " + d.Text
}

// GetRequestStatusDisplay возвращает emoji и текст для статуса заявки
func GetRequestStatusDisplay(status model.RequestStatus) StatusDisplay {
	displays := map[model.RequestStatus]StatusDisplay{
		model.RequestStatusNew:        {"🆕", "Новая"},
		model.RequestStatusInProgress: {"⏳", "В работе"},
		model.RequestStatusCompleted:  {"✅", "Завершена"},
		model.RequestStatusCancelled:  {"❌", "Отменена"},
	}

	if display, ok := displays[status]; ok {
		return display
	}

	return StatusDisplay{"❓", "Неизвестно"}
}

// GetConsultationStatusDisplay возвращает emoji и текст для статуса консультации
func GetConsultationStatusDisplay(status model.ConsultationStatus) StatusDisplay {
	displays := map[model.ConsultationStatus]StatusDisplay{
		model.ConsultationScheduled: {"🗓", "Запланирована"},
		model.ConsultationCompleted: {"✅", "Проведена"},
		model.ConsultationCancelled: {"❌", "Отменена"},
	}

	if display, ok := displays[status]; ok {
		return display
	}

	return StatusDisplay{"❓", "Неизвестно"}
}

// GetParticipationDisplay возвращает emoji и текст для участия ученика
func GetParticipationDisplay(state model.ParticipationState) StatusDisplay {
	displays := map[model.ParticipationState]StatusDisplay{
		model.ParticipationUnconfirmed: {"⏳", "Не подтверждено"},
		model.ParticipationConfirmed:   {"✅", "Подтверждено"},
		model.ParticipationCancelled:   {"🚫", "Отказ"},
	}

	if display, ok := displays[state]; ok {
		return display
	}

	return StatusDisplay{"❓", "Неизвестно"}
}

// GetRoleDisplay возвращает emoji и текст для роли
func GetRoleDisplay(role model.Role) StatusDisplay {
	displays := map[model.Role]StatusDisplay{
		model.RoleAdmin:        {"🛡", "Администратор"},
		model.RolePsychologist: {"🧠", "Психолог"},
		model.RoleStudent:      {"🎒", "Ученик"},
	}

	if display, ok := displays[role]; ok {
		return display
	}

	return StatusDisplay{"❓", "Неизвестно"}
}

// GetLabelDisplay возвращает emoji для оценки динамики ученика
func GetLabelDisplay(label report.Label) StatusDisplay {
	displays := map[report.Label]StatusDisplay{
		report.LabelPositive:     {"🟢", string(report.LabelPositive)},
		report.LabelRisk:         {"🔴", string(report.LabelRisk)},
		report.LabelStable:       {"🟡", string(report.LabelStable)},
		report.LabelInsufficient: {"⚪️", string(report.LabelInsufficient)},
	}

	if display, ok := displays[label]; ok {
		return display
	}

	return StatusDisplay{"❓", string(label)}
}

// SourceText возвращает источник заявки
func SourceText(source model.RequestSource) string {
	switch source {
	case model.SourceStudent:
		return "ученик"
	case model.SourceParent:
		return "родитель"
	case model.SourceTeacher:
		return "учитель"
	}
	return string(source)
}

// SourceTitle источник заявки для кнопок
func SourceTitle(source model.RequestSource) string {
	switch source {
	case model.SourceStudent:
		return "🎒 Ученик"
	case model.SourceParent:
		return "👪 Родитель"
	case model.SourceTeacher:
		return "👩‍🏫 Учитель"
	}
	return string(source)
}

// FormText возвращает форму консультации
func FormText(form model.ConsultationForm) string {
	return report.FormTitle(string(form))
}
