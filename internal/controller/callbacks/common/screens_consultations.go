package common

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/psychologist_bot/internal/lifecycle"
	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/Freeeeeet/psychologist_bot/internal/service"
	"github.com/go-telegram/bot/models"
)

var tabTitles = []struct {
	tab   service.Tab
	title string
}{
	{service.TabUpcoming, "Предстоящие"},
	{service.TabPast, "Прошедшие"},
	{service.TabAll, "Все"},
}

// ParseTab проверяет вкладку из callback
func ParseTab(s string) (service.Tab, bool) {
	for _, t := range tabTitles {
		if string(t.tab) == s {
			return t.tab, true
		}
	}
	return "", false
}

func participantsLabel(links []model.ConsultationStudent) string {
	switch len(links) {
	case 0:
		return "без участников"
	case 1:
		return links[0].StudentName()
	}
	return fmt.Sprintf("%s +%d", links[0].StudentName(), len(links)-1)
}

// BuildConsultationListScreen список консультаций по вкладкам
func BuildConsultationListScreen(states []lifecycle.ConsultationState, tab service.Tab, page int) (string, *models.InlineKeyboardMarkup) {
	from, to, page, pages := keyboard.Page(len(states), page)

	text := fmt.Sprintf("🗓 <b>Консультации</b>\n\nНайдено: %d %s",
		len(states), formatting.PluralizeConsultations(len(states)))
	if len(states) == 0 {
		text += "\n\nКонсультаций нет."
	}

	kb := keyboard.NewBuilder()
	var tabs []models.InlineKeyboardButton
	for _, t := range tabTitles {
		title := t.title
		if t.tab == tab {
			title = "• " + title
		}
		tabs = append(tabs, keyboard.Button(title, fmt.Sprintf("cons_list:%s:0", t.tab)))
	}
	kb.Row(tabs...)

	for _, st := range states[from:to] {
		c := st.Consultation
		label := fmt.Sprintf("%s · %s", consultationLine(c), participantsLabel(st.Links))
		kb.Row(keyboard.Button(Truncate(label, 60), fmt.Sprintf("view_cons:%d", c.ID)))
	}

	kb.AddPagination(fmt.Sprintf("cons_list:%s:", tab), page, pages)
	kb.AddBackToMainButton()
	return text, kb.Build()
}

func writeConsultationHeader(sb *strings.Builder, c model.Consultation) {
	fmt.Fprintf(sb, "📅 Дата: %s, %s", formatting.FormatDateWithWeekday(c.Date), formatting.FormatTimeRange(c.StartTime, c.EndTime))
	if c.Duration > 0 {
		fmt.Fprintf(sb, " (%s)", formatting.FormatDuration(c.Duration))
	}
	sb.WriteString("\n")
	fmt.Fprintf(sb, "👥 Форма: %s\n", formatting.FormText(c.Form))
	fmt.Fprintf(sb, "📊 Статус: %s\n", formatting.GetConsultationStatusDisplay(c.Status()))
}

// BuildConsultationScreen карточка консультации для психолога и администратора
func BuildConsultationScreen(d *service.ConsultationDetails, actor model.Actor) (string, *models.InlineKeyboardMarkup) {
	c := d.Consultation
	var sb strings.Builder
	fmt.Fprintf(&sb, "🗓 <b>Консультация #%d</b>\n\n", c.ID)
	writeConsultationHeader(&sb, c)

	if d.Request != nil {
		fmt.Fprintf(&sb, "📋 Заявка: #%d (%s)\n", d.Request.ID, Esc(StudentLabel(d.Request.Student)))
		if d.Request.Psychologist != nil {
			fmt.Fprintf(&sb, "🧠 Психолог: %s\n", Esc(d.Request.Psychologist.DisplayName()))
		}
	} else {
		sb.WriteString("📋 Без заявки\n")
	}

	sb.WriteString("\n<b>Участники</b>:\n")
	for _, l := range d.Links {
		fmt.Fprintf(&sb, "• %s: %s\n", Esc(l.StudentName()), formatting.GetParticipationDisplay(l.State()))
	}
	if len(d.Links) == 0 {
		sb.WriteString("нет\n")
	}

	if c.Result != "" {
		fmt.Fprintf(&sb, "\n<b>Результат</b>:\n%s\n", Excerpt(c.Result, 1000))
	} else {
		sb.WriteString("\nРезультат не заполнен\n")
	}
	if len(d.Notes) > 0 {
		fmt.Fprintf(&sb, "\n<b>Заметки</b> (%d):\n", len(d.Notes))
		shown := d.Notes
		if len(shown) > notesShown {
			shown = shown[len(shown)-notesShown:]
		}
		for _, n := range shown {
			fmt.Fprintf(&sb, "• %s %s\n", n.CreatedAt.Format("02.01"), Excerpt(n.Text, 300))
		}
	}

	kb := keyboard.NewBuilder()
	if actor.IsPsychologist() {
		if !c.IsTerminal() {
			kb.Row(
				keyboard.Button("✏️ Результат", fmt.Sprintf("cons_result:%d", c.ID)),
				keyboard.Button("📅 Перенести", fmt.Sprintf("edit_cons:%d", c.ID)),
			)
			kb.Row(
				keyboard.Button("✅ Провести", fmt.Sprintf("complete_cons:%d", c.ID)),
				keyboard.Button("❌ Отменить", fmt.Sprintf("cancel_cons:%d", c.ID)),
			)
		}
		kb.Row(
			keyboard.Button("📝 Заметка", fmt.Sprintf("cons_note:%d", c.ID)),
			keyboard.Button(fmt.Sprintf("📎 Файлы (%d)", len(d.Attachments)), fmt.Sprintf("cons_files:%d", c.ID)),
		)
		if c.IsTerminal() {
			kb.Row(keyboard.Button("🗑 Удалить", fmt.Sprintf("delete_cons:%d", c.ID)))
		}
	}
	if actor.IsAdmin() && d.Request != nil {
		kb.Row(keyboard.Button("🧠 Назначить психолога", fmt.Sprintf("assign_psy:%d", c.ID)))
	}

	if d.Request != nil {
		kb.AddBackButton(fmt.Sprintf("view_req:%d", d.Request.ID))
	} else {
		kb.AddBackButton("cons_list:upcoming:0")
	}
	return sb.String(), kb.Build()
}

// BuildStudentConsultationsScreen консультации ученика
func BuildStudentConsultationsScreen(items []service.StudentConsultation) (string, *models.InlineKeyboardMarkup) {
	text := "🗓 <b>Мои консультации</b>\n\n"
	if len(items) == 0 {
		text += "Консультаций пока нет."
	} else {
		text += fmt.Sprintf("Всего: %d %s", len(items), formatting.PluralizeConsultations(len(items)))
	}

	kb := keyboard.NewBuilder()
	for _, it := range items {
		label := consultationLine(it.Consultation)
		if it.Linked && it.Participation == model.ParticipationUnconfirmed && !it.Consultation.IsTerminal() {
			label += " ⏳"
		}
		kb.Row(keyboard.Button(label, fmt.Sprintf("my_cons:%d", it.Consultation.ID)))
	}
	kb.AddBackToMainButton()
	return text, kb.Build()
}

// BuildStudentConsultationScreen консультация глазами ученика: без заметок и файлов
func BuildStudentConsultationScreen(d *service.ConsultationDetails, studentID int64) (string, *models.InlineKeyboardMarkup) {
	c := d.Consultation
	var sb strings.Builder
	sb.WriteString("🗓 <b>Консультация</b>\n\n")
	writeConsultationHeader(&sb, c)

	kb := keyboard.NewBuilder()
	link, linked := d.Link(studentID)
	if linked {
		fmt.Fprintf(&sb, "🙋 Ваше участие: %s\n", formatting.GetParticipationDisplay(link.State()))
		if !c.IsTerminal() {
			var row []models.InlineKeyboardButton
			if link.State() != model.ParticipationConfirmed {
				row = append(row, keyboard.Button("✅ Приду", fmt.Sprintf("confirm_part:%d", c.ID)))
			}
			if link.State() != model.ParticipationCancelled {
				row = append(row, keyboard.Button("🚫 Не смогу", fmt.Sprintf("decline_part:%d", c.ID)))
			}
			kb.Row(row...)
		}
	} else {
		sb.WriteString("\nКонсультация назначена по вашей заявке.\n")
		if !c.IsTerminal() {
			kb.Row(keyboard.Button("✅ Подтвердить участие", fmt.Sprintf("confirm_part:%d", c.ID)))
		}
	}

	kb.AddBackButton("my_cons_list")
	return sb.String(), kb.Build()
}

// BuildPickParticipantsScreen выбор участников новой или переносимой консультации
func BuildPickParticipantsScreen(header string, students []model.Student, selected []int64, page int) (string, *models.InlineKeyboardMarkup) {
	from, to, page, pages := keyboard.Page(len(students), page)

	text := header + fmt.Sprintf("\n\nВыберите участников. Выбрано: %d %s.\n"+
		"Один ученик - индивидуальная консультация, несколько - групповая.",
		len(selected), formatting.PluralizeStudents(len(selected)))

	kb := keyboard.NewBuilder()
	for _, s := range students[from:to] {
		mark := "⬜️"
		if slices.Contains(selected, s.ID) {
			mark = "✅"
		}
		kb.Row(keyboard.Button(mark+" "+StudentLabel(&s), fmt.Sprintf("cons_pick:%d", s.ID)))
	}
	kb.AddPagination("cons_pick_page:", page, pages)
	if len(selected) > 0 {
		kb.Row(keyboard.Button("💾 Сохранить", "cons_save"))
	}
	kb.Row(keyboard.CancelButton("cancel_dialog"))
	return text, kb.Build()
}

// BuildAttachmentsScreen файлы консультации
func BuildAttachmentsScreen(consultationID int64, attachments []model.Attachment) (string, *models.InlineKeyboardMarkup) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📎 <b>Файлы консультации #%d</b>\n\n", consultationID)
	if len(attachments) == 0 {
		sb.WriteString("Файлов нет.\n")
	}

	kb := keyboard.NewBuilder()
	for _, a := range attachments {
		name := path.Base(a.Path)
		fmt.Fprintf(&sb, "• %s", Esc(name))
		if a.Description != "" {
			fmt.Fprintf(&sb, " - %s", Excerpt(a.Description, 100))
		}
		sb.WriteString("\n")
		kb.Row(
			keyboard.Button("⬇️ "+Truncate(name, 40), fmt.Sprintf("get_file:%d", a.ID)),
			keyboard.Button("🗑", fmt.Sprintf("delete_file:%d:%d", consultationID, a.ID)),
		)
	}
	kb.Row(keyboard.Button("⬆️ Загрузить файл", fmt.Sprintf("upload_file:%d", consultationID)))
	kb.AddBackButton(fmt.Sprintf("view_cons:%d", consultationID))
	return sb.String(), kb.Build()
}

// BuildPickPsychologistScreen выбор психолога для заявки консультации
func BuildPickPsychologistScreen(consultationID int64, psychologists []model.User) (string, *models.InlineKeyboardMarkup) {
	text := "🧠 <b>Назначение психолога</b>\n\nВыберите психолога для заявки."
	if len(psychologists) == 0 {
		text += "\n\nВ системе нет психологов."
	}

	kb := keyboard.NewBuilder()
	for _, p := range psychologists {
		if !p.IsActive {
			continue
		}
		kb.Row(keyboard.Button(p.DisplayName(), fmt.Sprintf("assign_to:%d:%d", consultationID, p.ID)))
	}
	kb.AddBackButton(fmt.Sprintf("view_cons:%d", consultationID))
	return text, kb.Build()
}

// BuildFeedScreen лента уведомлений ученика
func BuildFeedScreen(feed []model.Notification) (string, *models.InlineKeyboardMarkup) {
	var sb strings.Builder
	sb.WriteString("🔔 <b>Уведомления</b>\n\n")
	if len(feed) == 0 {
		sb.WriteString("Уведомлений пока нет.")
	}
	for _, n := range feed {
		fmt.Fprintf(&sb, "%s %s\n\n", n.CreatedAt.Format("02.01 15:04"), NotificationText(n))
	}

	kb := keyboard.NewBuilder().AddBackToMainButton()
	return sb.String(), kb.Build()
}

// NotificationText текст события ленты
func NotificationText(n model.Notification) string {
	switch n.Kind {
	case model.NotificationConsultationAssigned:
		if n.Consultation != nil {
			c := n.Consultation
			return fmt.Sprintf("🗓 Вам назначена консультация на %s, %s",
				formatting.FormatDateWithWeekday(c.Date), formatting.FormatTimeRange(c.StartTime, c.EndTime))
		}
		return "🗓 Вам назначена консультация"
	case model.NotificationRequestStatus:
		if n.Request != nil {
			return fmt.Sprintf("📋 Статус заявки #%d: %s", n.Request.ID, formatting.GetRequestStatusDisplay(n.Request.Status))
		}
		return "📋 Статус вашей заявки изменился"
	}
	return "🔔 Новое событие"
}
