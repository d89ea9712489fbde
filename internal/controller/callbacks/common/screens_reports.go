package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/Freeeeeet/psychologist_bot/internal/report"
	"github.com/go-telegram/bot/models"
)

// Периоды отчёта
const (
	PeriodMonth   = "month"
	PeriodQuarter = "quarter"
	PeriodYear    = "year"
	PeriodAll     = "all"
)

var periods = []struct {
	key    string
	title  string
	months int
}{
	{PeriodMonth, "Месяц", 1},
	{PeriodQuarter, "Квартал", 3},
	{PeriodYear, "Год", 12},
	{PeriodAll, "Всё время", 0},
}

// PeriodFilters переводит период из callback в фильтры отчёта
func PeriodFilters(period string, now time.Time) (report.Filters, bool) {
	for _, p := range periods {
		if p.key != period {
			continue
		}
		if p.months == 0 {
			return report.Filters{}, true
		}
		from := now.AddDate(0, -p.months, 0)
		return report.Filters{DateFrom: &from, DateTo: &now}, true
	}
	return report.Filters{}, false
}

func periodTitle(period string) string {
	for _, p := range periods {
		if p.key == period {
			return p.title
		}
	}
	return period
}

func periodRow(prefix, current string) []models.InlineKeyboardButton {
	row := make([]models.InlineKeyboardButton, 0, len(periods))
	for _, p := range periods {
		title := p.title
		if p.key == current {
			title = "• " + title
		}
		row = append(row, keyboard.Button(title, prefix+p.key))
	}
	return row
}

// BuildReportScreen сводный отчёт за период
func BuildReportScreen(r report.Report, period string) (string, *models.InlineKeyboardMarkup) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 <b>Отчёт</b> (%s)\n", strings.ToLower(periodTitle(period)))
	if r.Scope.All() {
		sb.WriteString("По всем психологам\n")
	}

	w := r.Workload
	sb.WriteString("\n<b>Нагрузка</b>\n")
	fmt.Fprintf(&sb, "Заявок: %d\n", w.Requests)
	fmt.Fprintf(&sb, "Консультаций: %d, проведено: %d\n", w.Consultations, w.Completed)
	if w.Completed > 0 {
		fmt.Fprintf(&sb, "Время: %s, в среднем %.1f мин\n", formatting.FormatDuration(w.DurationSum), w.DurationAvg)
	}

	if len(r.ByForm) > 0 {
		sb.WriteString("\n<b>Формы работы</b>\n")
		for _, f := range r.ByForm {
			fmt.Fprintf(&sb, "%s: %d\n", report.FormTitle(f.Form), f.Count)
		}
	}
	if len(r.ByStatus) > 0 {
		sb.WriteString("\n<b>Заявки по статусам</b>\n")
		for _, s := range r.ByStatus {
			fmt.Fprintf(&sb, "%s: %d\n", formatting.GetRequestStatusDisplay(s.Status), s.Count)
		}
	}
	if len(r.ByPsychologist) > 0 {
		sb.WriteString("\n<b>По психологам</b>\n")
		for _, p := range r.ByPsychologist {
			fmt.Fprintf(&sb, "%s: %d %s\n", Esc(p.Name), p.Requests, formatting.PluralizeRequests(p.Requests))
		}
	}
	if len(r.TopStudents) > 0 {
		sb.WriteString("\n<b>Чаще всего обращались</b>\n")
		for i, s := range r.TopStudents {
			fmt.Fprintf(&sb, "%d. %s", i+1, Esc(s.Name))
			if s.ClassName != "" {
				fmt.Fprintf(&sb, ", %s", Esc(s.ClassName))
			}
			fmt.Fprintf(&sb, " - %d %s\n", s.RequestCount, formatting.PluralizeRequests(s.RequestCount))
		}
	}
	if w.Requests == 0 && w.Consultations == 0 {
		sb.WriteString("\nЗа период данных нет.\n")
	}

	kb := keyboard.NewBuilder()
	kb.Row(periodRow("report:", period)...)
	kb.Row(
		keyboard.Button("📊 Excel", "report_xlsx:"+period),
		keyboard.Button("📈 График", "report_chart:"+period),
	)
	if r.Scope.All() {
		kb.Row(keyboard.Button("📋 Реестр консультаций", "report_register:"+period))
	}
	kb.AddBackToMainButton()
	return sb.String(), kb.Build()
}

// BuildStudentListScreen карточки учеников
func BuildStudentListScreen(students []model.Student, page int) (string, *models.InlineKeyboardMarkup) {
	from, to, page, pages := keyboard.Page(len(students), page)

	text := fmt.Sprintf("👥 <b>Ученики</b>\n\nВсего: %d", len(students))
	buttons := make([]models.InlineKeyboardButton, 0, to-from)
	for _, s := range students[from:to] {
		buttons = append(buttons, keyboard.Button(StudentLabel(&s), fmt.Sprintf("student:%d", s.ID)))
	}
	kb := keyboard.NewBuilder().Grid(2, buttons...)
	kb.AddPagination("students:", page, pages)
	kb.Row(keyboard.Button("➕ Новый ученик", "new_student"))
	kb.AddBackToMainButton()
	return text, kb.Build()
}

// BuildStudentScreen карточка ученика
func BuildStudentScreen(s *model.Student, actor model.Actor) (string, *models.InlineKeyboardMarkup) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "👤 <b>%s</b>\n\n", Esc(s.FullName()))
	if s.ClassName != "" {
		fmt.Fprintf(&sb, "🏫 Класс: %s\n", Esc(s.ClassName))
	}
	if s.BirthDate != nil {
		fmt.Fprintf(&sb, "🎂 Дата рождения: %s\n", formatting.FormatDate(*s.BirthDate))
	}
	fmt.Fprintf(&sb, "🆔 Карточка: <code>%d</code>\n", s.ID)

	kb := keyboard.NewBuilder()
	kb.Row(keyboard.Button("📈 Динамика", fmt.Sprintf("dynamics:%d", s.ID)))
	if actor.IsPsychologist() {
		kb.Row(keyboard.Button("➕ Заявка", fmt.Sprintf("new_req_student:%d", s.ID)))
	}
	kb.AddBackButton("students:0")
	return sb.String(), kb.Build()
}

// BuildDynamicsScreen динамика ученика
func BuildDynamicsScreen(d report.StudentDynamics) (string, *models.InlineKeyboardMarkup) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📈 <b>Динамика: %s</b>\n\n", Esc(StudentLabel(&d.Student)))
	fmt.Fprintf(&sb, "Оценка: %s\n", formatting.GetLabelDisplay(d.Label))
	if d.Comment != "" {
		fmt.Fprintf(&sb, "<i>%s</i>\n", Esc(d.Comment))
	}

	fmt.Fprintf(&sb, "\n<b>Заявки</b>: %d\n", d.RequestTotal)
	for _, st := range model.RequestStatuses {
		if n := d.RequestsByStatus[st]; n > 0 {
			fmt.Fprintf(&sb, "%s: %d\n", formatting.GetRequestStatusDisplay(st), n)
		}
	}
	fmt.Fprintf(&sb, "Тренд за 30 дней: %s\n", d.TrendText)

	fmt.Fprintf(&sb, "\n<b>Консультации</b>: %d\n", d.Consultations)
	fmt.Fprintf(&sb, "Проведено: %d, отменено: %d, запланировано: %d\n", d.Completed, d.Cancelled, d.Planned)
	if d.Completed+d.Cancelled > 0 {
		fmt.Fprintf(&sb, "Доля проведённых: %d%%\n", d.CompletionRate)
	}
	fmt.Fprintf(&sb, "Итоги: 🟢 %d · 🟡 %d · 🔴 %d\n", d.Success, d.Neutral, d.Problem)

	if len(d.RecentConsultations) > 0 {
		sb.WriteString("\n<b>Последние консультации</b>\n")
		for _, c := range d.RecentConsultations {
			sb.WriteString("• " + consultationLine(c))
			if c.Result != "" {
				sb.WriteString(": " + Excerpt(c.Result, 80))
			}
			sb.WriteString("\n")
		}
	}
	if len(d.RecentNotes) > 0 {
		sb.WriteString("\n<b>Заметки</b>\n")
		for _, n := range d.RecentNotes {
			fmt.Fprintf(&sb, "• %s %s\n", n.CreatedAt.Format("02.01"), Excerpt(n.Text, 120))
		}
	}

	kb := keyboard.NewBuilder()
	kb.Row(keyboard.Button("📤 Выгрузить", fmt.Sprintf("dynamics_export:%d", d.Student.ID)))
	kb.AddBackButton(fmt.Sprintf("student:%d", d.Student.ID))
	return sb.String(), kb.Build()
}
