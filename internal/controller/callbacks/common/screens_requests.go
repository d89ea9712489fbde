package common

import (
	"fmt"
	"strings"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/Freeeeeet/psychologist_bot/internal/service"
	"github.com/go-telegram/bot/models"
)

// StatusFilterAll фильтр списка заявок без ограничения по статусу
const StatusFilterAll = "all"

const notesShown = 5

// ParseStatusFilter переводит фильтр из callback в статус заявки
func ParseStatusFilter(s string) (model.RequestStatus, bool) {
	if s == StatusFilterAll {
		return "", true
	}
	status := model.RequestStatus(s)
	return status, status.Valid()
}

// BuildRequestListScreen список заявок для психолога
func BuildRequestListScreen(requests []model.Request, actor model.Actor, filter string, page int) (string, *models.InlineKeyboardMarkup) {
	from, to, page, pages := keyboard.Page(len(requests), page)

	title := "все"
	if status, ok := ParseStatusFilter(filter); ok && status != "" {
		title = strings.ToLower(formatting.GetRequestStatusDisplay(status).Text)
	}

	text := fmt.Sprintf("📋 <b>Заявки</b> (%s)\n\nНайдено: %d %s",
		title, len(requests), formatting.PluralizeRequests(len(requests)))
	if len(requests) == 0 {
		text += "\n\nЗаявок нет."
	}

	kb := keyboard.NewBuilder()
	filters := []models.InlineKeyboardButton{keyboard.Button("Все", "req_list:all:0")}
	for _, st := range model.RequestStatuses {
		filters = append(filters, keyboard.Button(formatting.GetRequestStatusDisplay(st).Emoji, "req_list:"+string(st)+":0"))
	}
	kb.Row(filters...)

	for _, r := range requests[from:to] {
		label := fmt.Sprintf("%s #%d %s · %s",
			formatting.GetRequestStatusDisplay(r.Status).Emoji,
			r.ID,
			StudentLabel(r.Student),
			r.CreatedAt.Format("02.01"),
		)
		kb.Row(keyboard.Button(Truncate(label, 60), fmt.Sprintf("view_req:%d", r.ID)))
	}

	kb.AddPagination(fmt.Sprintf("req_list:%s:", filter), page, pages)
	if actor.IsPsychologist() {
		kb.Row(keyboard.Button("➕ Новая заявка", "new_req:0"))
	}
	kb.AddBackToMainButton()
	return text, kb.Build()
}

func writeRequestHeader(sb *strings.Builder, r model.Request) {
	fmt.Fprintf(sb, "📋 <b>Заявка #%d</b>\n\n", r.ID)
	fmt.Fprintf(sb, "👤 Ученик: %s\n", Esc(StudentLabel(r.Student)))
	fmt.Fprintf(sb, "📨 Источник: %s\n", formatting.SourceText(r.Source))
	fmt.Fprintf(sb, "📊 Статус: %s\n", formatting.GetRequestStatusDisplay(r.Status))
	if r.Psychologist != nil {
		fmt.Fprintf(sb, "🧠 Психолог: %s\n", Esc(r.Psychologist.DisplayName()))
	} else {
		sb.WriteString("🧠 Психолог: не назначен\n")
	}
	fmt.Fprintf(sb, "📅 Создана: %s\n", formatting.FormatDateTime(r.CreatedAt))
}

func writeRequestNotes(sb *strings.Builder, notes []model.RequestNote) {
	if len(notes) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n<b>Заметки</b> (%d):\n", len(notes))
	shown := notes
	if len(shown) > notesShown {
		shown = shown[len(shown)-notesShown:]
	}
	for _, n := range shown {
		fmt.Fprintf(sb, "• %s %s\n", n.CreatedAt.Format("02.01"), Excerpt(n.Text, 300))
	}
}

func consultationLine(c model.Consultation) string {
	return fmt.Sprintf("%s %s %s",
		formatting.GetConsultationStatusDisplay(c.Status()).Emoji,
		formatting.FormatDate(c.Date),
		formatting.FormatTimeRange(c.StartTime, c.EndTime),
	)
}

// BuildRequestScreen карточка заявки для психолога и администратора
func BuildRequestScreen(d *service.RequestDetails, actor model.Actor) (string, *models.InlineKeyboardMarkup) {
	r := d.Request
	var sb strings.Builder
	writeRequestHeader(&sb, r)

	if len(d.Consultations) > 0 {
		fmt.Fprintf(&sb, "\n<b>Консультации</b> (%d):\n", len(d.Consultations))
		for _, c := range d.Consultations {
			sb.WriteString("• " + consultationLine(c) + "\n")
		}
	}
	writeRequestNotes(&sb, d.Notes)

	kb := keyboard.NewBuilder()
	if actor.IsPsychologist() {
		if !r.Status.IsTerminal() {
			kb.Row(keyboard.Button("🗓 Назначить консультацию", fmt.Sprintf("new_cons:%d", r.ID)))
			kb.Row(
				keyboard.Button("✅ Завершить", fmt.Sprintf("complete_req:%d", r.ID)),
				keyboard.Button("❌ Отменить", fmt.Sprintf("cancel_req:%d", r.ID)),
			)
		}
		kb.Row(keyboard.Button("📝 Заметка", fmt.Sprintf("req_note:%d", r.ID)))
	}
	for _, c := range d.Consultations {
		kb.Row(keyboard.Button("🗓 "+consultationLine(c), fmt.Sprintf("view_cons:%d", c.ID)))
	}
	kb.Row(keyboard.Button("📈 Динамика ученика", fmt.Sprintf("dynamics:%d", r.StudentID)))
	if actor.IsAdmin() && r.Status.IsTerminal() {
		kb.Row(keyboard.Button("🗑 Удалить", fmt.Sprintf("delete_req:%d", r.ID)))
	}
	kb.AddBackButton("req_list:all:0")
	return sb.String(), kb.Build()
}

// BuildStudentRequestsScreen заявки ученика
func BuildStudentRequestsScreen(requests []model.Request) (string, *models.InlineKeyboardMarkup) {
	text := "📝 <b>Мои заявки</b>\n\n"
	if len(requests) == 0 {
		text += "Вы ещё не обращались к психологу."
	} else {
		text += fmt.Sprintf("Всего: %d %s", len(requests), formatting.PluralizeRequests(len(requests)))
	}

	kb := keyboard.NewBuilder()
	for _, r := range requests {
		label := fmt.Sprintf("%s #%d от %s", formatting.GetRequestStatusDisplay(r.Status), r.ID, formatting.FormatDate(r.CreatedAt))
		kb.Row(keyboard.Button(label, fmt.Sprintf("my_req:%d", r.ID)))
	}
	kb.Row(keyboard.Button("➕ Обратиться к психологу", "new_own_request"))
	kb.AddBackToMainButton()
	return text, kb.Build()
}

// BuildStudentRequestScreen заявка глазами ученика
func BuildStudentRequestScreen(d *service.RequestDetails) (string, *models.InlineKeyboardMarkup) {
	r := d.Request
	var sb strings.Builder
	fmt.Fprintf(&sb, "📝 <b>Заявка #%d</b>\n\n", r.ID)
	fmt.Fprintf(&sb, "📊 Статус: %s\n", formatting.GetRequestStatusDisplay(r.Status))
	fmt.Fprintf(&sb, "📅 Создана: %s\n", formatting.FormatDateTime(r.CreatedAt))
	if r.Psychologist != nil {
		fmt.Fprintf(&sb, "🧠 Психолог: %s\n", Esc(r.Psychologist.DisplayName()))
	}
	if len(d.Consultations) > 0 {
		fmt.Fprintf(&sb, "\n<b>Консультации</b> (%d):\n", len(d.Consultations))
		for _, c := range d.Consultations {
			sb.WriteString("• " + consultationLine(c) + "\n")
		}
	}

	kb := keyboard.NewBuilder()
	if !r.Status.IsTerminal() {
		kb.Row(keyboard.Button("❌ Отозвать заявку", fmt.Sprintf("my_req_cancel:%d", r.ID)))
	}
	kb.AddBackButton("my_requests")
	return sb.String(), kb.Build()
}

// BuildPickStudentScreen выбор ученика для новой заявки
func BuildPickStudentScreen(students []model.Student, page int) (string, *models.InlineKeyboardMarkup) {
	from, to, page, pages := keyboard.Page(len(students), page)

	text := "➕ <b>Новая заявка</b>\n\nШаг 1 из 2: выберите ученика."
	if len(students) == 0 {
		text += "\n\nКарточек учеников пока нет. Создайте карточку в разделе «Ученики»."
	}

	kb := keyboard.NewBuilder()
	for _, s := range students[from:to] {
		kb.Row(keyboard.Button(StudentLabel(&s), fmt.Sprintf("new_req_student:%d", s.ID)))
	}
	kb.AddPagination("new_req:", page, pages)
	kb.AddBackButton("req_list:all:0")
	return text, kb.Build()
}

// BuildPickSourceScreen выбор источника новой заявки
func BuildPickSourceScreen(student *model.Student) (string, *models.InlineKeyboardMarkup) {
	text := fmt.Sprintf("➕ <b>Новая заявка</b>\n\n👤 %s\n\nШаг 2 из 2: кто обратился?", Esc(StudentLabel(student)))

	kb := keyboard.NewBuilder()
	for _, src := range []model.RequestSource{model.SourceStudent, model.SourceParent, model.SourceTeacher} {
		kb.Row(keyboard.Button(formatting.SourceTitle(src), fmt.Sprintf("new_req_src:%d:%s", student.ID, src)))
	}
	kb.AddBackButton("new_req:0")
	return text, kb.Build()
}
