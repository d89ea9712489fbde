package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
)

// ChartKind диаграмма, которую рендерер строит по таблице
type ChartKind int

const (
	ChartNone ChartKind = iota
	ChartLine           // ряд на каждую числовую колонку
	ChartPie            // доли по второй колонке
)

// Table табличные данные для рендерера (лист Excel, изображение)
type Table struct {
	Title  string
	Header []string
	Rows   [][]string
	Chart  ChartKind
}

var statusTitles = map[model.RequestStatus]string{
	model.RequestStatusNew:        "Новая",
	model.RequestStatusInProgress: "В работе",
	model.RequestStatusCompleted:  "Завершена",
	model.RequestStatusCancelled:  "Отменена",
}

// StatusTitle название статуса заявки по-русски
func StatusTitle(s model.RequestStatus) string {
	if t, ok := statusTitles[s]; ok {
		return t
	}
	return string(s)
}

var formTitles = map[string]string{
	string(model.FormIndividual): "Индивидуальная",
	string(model.FormGroup):      "Групповая",
	"other":                      "Другое",
}

var consultationStatusTitles = map[model.ConsultationStatus]string{
	model.ConsultationScheduled: "Запланирована",
	model.ConsultationCompleted: "Проведена",
	model.ConsultationCancelled: "Отменена",
}

// FormTitle название формы консультации
func FormTitle(form string) string {
	if t, ok := formTitles[form]; ok {
		return t
	}
	return form
}

func itoa(n int) string { return strconv.Itoa(n) }

// Tables переводит отчёт в набор таблиц
func Tables(r Report) []Table {
	students := Table{
		Title:  "Ученики",
		Header: []string{"Ученик", "Класс", "Заявок", "Консультаций", "Последняя консультация"},
	}
	for _, s := range r.Students {
		last := ""
		if s.LastConsultation != nil {
			last = s.LastConsultation.Format("02.01.2006")
		}
		students.Rows = append(students.Rows, []string{s.Name, s.ClassName, itoa(s.RequestCount), itoa(s.ConsultationCount), last})
	}

	requests := Table{
		Title:  "Динамика заявок",
		Header: []string{"Месяц", "Новые", "В работе", "Завершены", "Отменены", "Всего"},
		Chart:  ChartLine,
	}
	for _, m := range r.RequestDynamics {
		requests.Rows = append(requests.Rows, []string{m.Label, itoa(m.New), itoa(m.InProgress), itoa(m.Completed), itoa(m.Cancelled), itoa(m.Total)})
	}

	consultations := Table{
		Title:  "Динамика консультаций",
		Header: []string{"Месяц", "Проведены", "Отменены", "Всего"},
		Chart:  ChartLine,
	}
	for _, m := range r.ConsultationDynamics {
		consultations.Rows = append(consultations.Rows, []string{m.Label, itoa(m.Completed), itoa(m.Cancelled), itoa(m.Total)})
	}

	workload := Table{
		Title:  "Нагрузка",
		Header: []string{"Показатель", "Значение"},
		Rows: [][]string{
			{"Заявок", itoa(r.Workload.Requests)},
			{"Консультаций", itoa(r.Workload.Consultations)},
			{"Проведено", itoa(r.Workload.Completed)},
			{"Суммарно минут", itoa(r.Workload.DurationSum)},
			{"Средняя длительность, мин", fmt.Sprintf("%.1f", r.Workload.DurationAvg)},
		},
	}

	forms := Table{Title: "Формы консультаций", Header: []string{"Форма", "Количество"}, Chart: ChartPie}
	for _, f := range r.ByForm {
		forms.Rows = append(forms.Rows, []string{FormTitle(f.Form), itoa(f.Count)})
	}

	tables := []Table{students, requests, consultations, workload, forms}

	if r.Scope.All() {
		psy := Table{Title: "Заявки по психологам", Header: []string{"Психолог", "Заявок"}}
		for _, p := range r.ByPsychologist {
			psy.Rows = append(psy.Rows, []string{p.Name, itoa(p.Requests)})
		}
		statuses := Table{Title: "Заявки по статусам", Header: []string{"Статус", "Количество"}}
		for _, s := range r.ByStatus {
			statuses.Rows = append(statuses.Rows, []string{StatusTitle(s.Status), itoa(s.Count)})
		}
		tables = append(tables, psy, statuses, RegisterTable(r.Register))
	}
	return tables
}

// RegisterTable реестр консультаций
func RegisterTable(rows []RegisterRow) Table {
	t := Table{
		Title:  "Реестр консультаций",
		Header: []string{"№", "Дата", "Время", "Учащиеся", "Форма", "Психолог", "Статус", "Результат"},
	}
	for i, r := range rows {
		period := "—"
		if r.StartTime != nil && r.EndTime != nil {
			period = r.StartTime.String() + "–" + r.EndTime.String()
		}
		students := "—"
		if len(r.Students) > 0 {
			students = strings.Join(r.Students, ", ")
		}
		t.Rows = append(t.Rows, []string{
			itoa(i + 1),
			r.Date.Format("02.01.2006"),
			period,
			students,
			FormTitle(string(r.Form)),
			r.Psychologist,
			consultationStatusTitles[r.Status],
			r.Result,
		})
	}
	return t
}

// DynamicsTables переводит динамику ученика в таблицы
func DynamicsTables(d StudentDynamics) []Table {
	summary := Table{
		Title:  "Динамика: " + d.Student.FullName(),
		Header: []string{"Показатель", "Значение"},
		Rows: [][]string{
			{"Оценка", string(d.Label)},
			{"Комментарий", d.Comment},
			{"Заявок", itoa(d.RequestTotal)},
			{"Консультаций", itoa(d.Consultations)},
			{"Проведено", itoa(d.Completed)},
			{"Отменено", itoa(d.Cancelled)},
			{"Запланировано", itoa(d.Planned)},
			{"Доля проведённых, %", itoa(d.CompletionRate)},
			{"Тренд обращений", d.TrendText},
			{"Положительные сигналы", itoa(d.Success)},
			{"Нейтральные сигналы", itoa(d.Neutral)},
			{"Проблемные сигналы", itoa(d.Problem)},
		},
	}

	chart := Table{
		Title:  "По месяцам",
		Header: []string{"Месяц", "Заявки", "Проведены", "Отменены"},
		Chart:  ChartLine,
	}
	for _, m := range d.Chart {
		chart.Rows = append(chart.Rows, []string{m.Label, itoa(m.Requests), itoa(m.Completed), itoa(m.Cancelled)})
	}
	return []Table{summary, chart}
}
