package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
)

type Label string

const (
	LabelInsufficient Label = "Недостаточно данных"
	LabelPositive     Label = "Положительная"
	LabelRisk         Label = "Зона риска"
	LabelStable       Label = "Стабильная"
)

// Ключевые слова ищутся как подстроки без учёта регистра
var (
	PositiveKeywords = []string{"прогресс", "улучш", "стабил", "справ", "нормализ", "спокойн"}
	NegativeKeywords = []string{"тревог", "стресс", "конфликт", "булл", "агресс", "депресс", "паник", "проблем"}
)

const (
	trendDays         = 30
	chartMonths       = 12
	recentNotesLimit  = 8
	recentConsLimit   = 10
	positiveRateLimit = 70
)

// StudentData всё, что известно об ученике, до применения области видимости
type StudentData struct {
	Student       model.Student
	Requests      []model.Request
	Consultations []ConsultationRecord
	Notes         []model.RequestNote
}

type Signals struct {
	PositiveResults int `json:"positive_results"`
	NegativeResults int `json:"negative_results"`
	PositiveNotes   int `json:"positive_notes"`
	NegativeNotes   int `json:"negative_notes"`
}

type DynamicsMonth struct {
	Month     time.Time `json:"month"`
	Label     string    `json:"label"`
	Requests  int       `json:"requests"`
	Completed int       `json:"completed"`
	Cancelled int       `json:"cancelled"`
}

// StudentDynamics динамика одного ученика
type StudentDynamics struct {
	Student          model.Student               `json:"student"`
	RequestsByStatus map[model.RequestStatus]int `json:"requests_by_status"`
	RequestTotal     int                         `json:"request_total"`

	Consultations  int `json:"consultations"`
	Completed      int `json:"completed"`
	Cancelled      int `json:"cancelled"`
	Planned        int `json:"planned"`
	CompletionRate int `json:"completion_rate"`

	RecentRequests int    `json:"recent_requests"`
	PriorRequests  int    `json:"prior_requests"`
	Trend          int    `json:"trend"`
	TrendText      string `json:"trend_text"`

	Signals Signals `json:"signals"`
	Success int     `json:"success"`
	Neutral int     `json:"neutral"`
	Problem int     `json:"problem"`

	Label   Label  `json:"label"`
	Comment string `json:"comment"`

	Chart               []DynamicsMonth      `json:"chart"`
	RecentNotes         []model.RequestNote  `json:"recent_notes"`
	RecentConsultations []model.Consultation `json:"recent_consultations"`
}

// AnalyzeStudent считает динамику ученика в пределах видимости действующего лица.
// Заявки фильтруются по дате создания, консультации только по дате проведения,
// заметки по дате заметки. Психолог без видимых данных за период получает отказ.
func AnalyzeStudent(actor model.Actor, data StudentData, f Filters, now time.Time) (StudentDynamics, error) {
	const op = "report.AnalyzeStudent"
	scope, err := ScopeFor(actor)
	if err != nil {
		return StudentDynamics{}, err
	}
	if err := f.Validate(); err != nil {
		return StudentDynamics{}, err
	}

	var requests []model.Request
	parents := make(map[int64]model.Request, len(data.Requests))
	for _, r := range data.Requests {
		if !scope.AllowsRequest(r) {
			continue
		}
		parents[r.ID] = r
		if f.inRange(r.CreatedAt) {
			requests = append(requests, r)
		}
	}
	var consultations []model.Consultation
	for _, rec := range data.Consultations {
		if scope.AllowsConsultation(rec.Request) && f.inRange(rec.Consultation.Date) {
			consultations = append(consultations, rec.Consultation)
		}
	}
	// видимость проверяется после фильтра по датам
	if !scope.All() && len(requests) == 0 && len(consultations) == 0 {
		return StudentDynamics{}, model.Forbidden(op, model.ReasonNotOwner, "Нет доступа к данным этого ученика")
	}

	// заметки фильтруются по своей дате, видимость по заявке
	var notes []model.RequestNote
	for _, n := range data.Notes {
		if _, ok := parents[n.RequestID]; ok && f.inRange(n.CreatedAt) {
			notes = append(notes, n)
		}
	}

	d := StudentDynamics{
		Student:          data.Student,
		RequestsByStatus: make(map[model.RequestStatus]int),
		RequestTotal:     len(requests),
		Consultations:    len(consultations),
	}
	for _, r := range requests {
		d.RequestsByStatus[r.Status]++
	}
	for _, c := range consultations {
		switch c.Status() {
		case model.ConsultationCompleted:
			d.Completed++
		case model.ConsultationCancelled:
			d.Cancelled++
		default:
			d.Planned++
		}
	}
	if d.Consultations > 0 {
		d.CompletionRate = int(math.Round(float64(d.Completed) / float64(d.Consultations) * 100))
	}

	d.RecentRequests, d.PriorRequests = requestTrend(requests, now)
	d.Trend = d.RecentRequests - d.PriorRequests
	d.TrendText = trendText(d.Trend)

	for _, c := range consultations {
		if strings.TrimSpace(c.Result) == "" {
			continue
		}
		if containsAny(c.Result, PositiveKeywords) {
			d.Signals.PositiveResults++
		}
		if containsAny(c.Result, NegativeKeywords) {
			d.Signals.NegativeResults++
		}
	}
	for _, n := range notes {
		if containsAny(n.Text, PositiveKeywords) {
			d.Signals.PositiveNotes++
		}
		if containsAny(n.Text, NegativeKeywords) {
			d.Signals.NegativeNotes++
		}
	}

	d.Success = d.Completed + d.Signals.PositiveResults + d.Signals.PositiveNotes
	d.Neutral = d.Cancelled
	d.Problem = d.RequestsByStatus[model.RequestStatusNew] +
		d.RequestsByStatus[model.RequestStatusInProgress] +
		d.Signals.NegativeResults + d.Signals.NegativeNotes

	d.Label, d.Comment = Classify(d)
	d.Chart = monthlyChart(requests, consultations, now)
	d.RecentNotes = recentNotes(notes, recentNotesLimit)
	d.RecentConsultations = recentConsultations(consultations, recentConsLimit)
	return d, nil
}

// Classify присваивает метку по приоритету: мало данных, положительная,
// зона риска, стабильная. Отменённые консультации нейтральны.
func Classify(d StudentDynamics) (Label, string) {
	switch {
	case d.Consultations == 0 && d.RequestTotal <= 1:
		return LabelInsufficient, "Данных пока мало для выводов о динамике"
	case d.CompletionRate >= positiveRateLimit && d.Trend <= 0 && d.Success >= d.Problem:
		return LabelPositive, "Консультации проходят регулярно, новых обращений не прибавляется"
	case d.Trend > 0 || d.Problem > d.Success:
		return LabelRisk, "Обращений становится больше или преобладают тревожные сигналы"
	}
	if d.Neutral > 0 {
		return LabelStable, "Ситуация стабильна, часть консультаций была отменена"
	}
	return LabelStable, "Ситуация стабильна, заметных изменений нет"
}

func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// requestTrend заявки с today-30 дней и за 30 дней до этого, по календарным дням
func requestTrend(requests []model.Request, now time.Time) (recent, prior int) {
	recentFrom := civil(now.AddDate(0, 0, -trendDays))
	priorFrom := civil(now.AddDate(0, 0, -2*trendDays))
	for _, r := range requests {
		switch created := civil(r.CreatedAt); {
		case created >= recentFrom:
			recent++
		case created >= priorFrom:
			prior++
		}
	}
	return recent, prior
}

func trendText(trend int) string {
	switch {
	case trend > 0:
		return fmt.Sprintf("Обращений стало больше (+%d за 30 дней)", trend)
	case trend < 0:
		return fmt.Sprintf("Обращений стало меньше (%d за 30 дней)", trend)
	}
	return "Количество обращений не изменилось"
}

// monthlyChart последние 12 месяцев, включая текущий
func monthlyChart(requests []model.Request, consultations []model.Consultation, now time.Time) []DynamicsMonth {
	first := MonthOf(now).AddDate(0, -(chartMonths - 1), 0)
	rows := make([]DynamicsMonth, chartMonths)
	index := make(map[time.Time]int, chartMonths)
	for i := range rows {
		m := first.AddDate(0, i, 0)
		rows[i] = DynamicsMonth{Month: m, Label: MonthLabel(m)}
		index[m] = i
	}
	for _, r := range requests {
		if i, ok := index[MonthOf(r.CreatedAt)]; ok {
			rows[i].Requests++
		}
	}
	for _, c := range consultations {
		i, ok := index[MonthOf(c.Date)]
		if !ok {
			continue
		}
		switch c.Status() {
		case model.ConsultationCompleted:
			rows[i].Completed++
		case model.ConsultationCancelled:
			rows[i].Cancelled++
		}
	}
	return rows
}

func recentNotes(notes []model.RequestNote, limit int) []model.RequestNote {
	out := make([]model.RequestNote, len(notes))
	copy(out, notes)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func recentConsultations(cons []model.Consultation, limit int) []model.Consultation {
	out := make([]model.Consultation, len(cons))
	copy(out, cons)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
