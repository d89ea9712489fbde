package report

import (
	"math"
	"sort"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
)

const topStudentsLimit = 10

type StudentRow struct {
	StudentID         int64      `json:"student_id"`
	Name              string     `json:"name"`
	ClassName         string     `json:"class_name"`
	RequestCount      int        `json:"request_count"`
	ConsultationCount int        `json:"consultation_count"`
	LastConsultation  *time.Time `json:"last_consultation,omitempty"`
}

type RequestMonth struct {
	Month      time.Time `json:"month"`
	Label      string    `json:"label"`
	New        int       `json:"new"`
	InProgress int       `json:"in_progress"`
	Completed  int       `json:"completed"`
	Cancelled  int       `json:"cancelled"`
	Total      int       `json:"total"`
}

type ConsultationMonth struct {
	Month     time.Time `json:"month"`
	Label     string    `json:"label"`
	Completed int       `json:"completed"`
	Cancelled int       `json:"cancelled"`
	Total     int       `json:"total"` // completed + cancelled
}

type Workload struct {
	Requests      int     `json:"requests"`
	Consultations int     `json:"consultations"`
	Completed     int     `json:"completed"`
	DurationSum   int     `json:"duration_sum"`
	DurationAvg   float64 `json:"duration_avg"` // округлено до 0.1
}

type PsychologistRow struct {
	PsychologistID int64  `json:"psychologist_id"`
	Name           string `json:"name"`
	Requests       int    `json:"requests"`
}

type StatusRow struct {
	Status model.RequestStatus `json:"status"`
	Count  int                 `json:"count"`
}

type FormRow struct {
	Form  string `json:"form"` // individual, group или other
	Count int    `json:"count"`
}

// Report сводный отчёт
type Report struct {
	GeneratedAt          time.Time           `json:"generated_at"`
	Scope                Scope               `json:"scope"`
	Filters              Filters             `json:"filters"`
	Students             []StudentRow        `json:"students"`
	TopStudents          []StudentRow        `json:"top_students"`
	RequestDynamics      []RequestMonth      `json:"request_dynamics"`
	ConsultationDynamics []ConsultationMonth `json:"consultation_dynamics"`
	Workload             Workload            `json:"workload"`
	ByForm               []FormRow           `json:"by_form"`

	// Только для администратора
	ByPsychologist []PsychologistRow `json:"by_psychologist,omitempty"`
	ByStatus       []StatusRow       `json:"by_status,omitempty"`
	Register       []RegisterRow     `json:"register,omitempty"`
}

// Build считает отчёт по данным, видимым действующему лицу
func Build(actor model.Actor, ds Dataset, f Filters, now time.Time) (Report, error) {
	scope, err := ScopeFor(actor)
	if err != nil {
		return Report{}, err
	}
	if err := f.Validate(); err != nil {
		return Report{}, err
	}

	data := Apply(ds, scope, f)
	students := StudentRollup(data)

	r := Report{
		GeneratedAt:          now,
		Scope:                scope,
		Filters:              f,
		Students:             students,
		TopStudents:          TopStudents(students, topStudentsLimit),
		RequestDynamics:      RequestDynamics(data.Requests),
		ConsultationDynamics: ConsultationDynamics(data.Consultations),
		Workload:             WorkloadOf(data),
		ByForm:               ByForm(data.Consultations),
	}
	if scope.All() {
		r.ByPsychologist = ByPsychologist(data.Requests, data.Psychologists)
		r.ByStatus = ByStatus(data.Requests)
		r.Register = ConsultationRegister(data)
	}
	return r, nil
}

// StudentRollup сводка по ученикам, отсортированная по фамилии и имени
func StudentRollup(data Dataset) []StudentRow {
	rows := make(map[int64]*StudentRow)
	row := func(id int64) *StudentRow {
		if r, ok := rows[id]; ok {
			return r
		}
		r := &StudentRow{StudentID: id}
		if st, ok := data.Students[id]; ok {
			r.Name = st.FullName()
			r.ClassName = st.ClassName
		}
		rows[id] = r
		return r
	}

	for _, req := range data.Requests {
		row(req.StudentID).RequestCount++
	}
	for _, rec := range data.Consultations {
		date := rec.Consultation.Date
		for _, sid := range rec.Students() {
			r := row(sid)
			r.ConsultationCount++
			if r.LastConsultation == nil || date.After(*r.LastConsultation) {
				d := date
				r.LastConsultation = &d
			}
		}
	}

	out := make([]StudentRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := data.Students[out[i].StudentID], data.Students[out[j].StudentID]
		if si.LastName != sj.LastName {
			return si.LastName < sj.LastName
		}
		if si.FirstName != sj.FirstName {
			return si.FirstName < sj.FirstName
		}
		return out[i].StudentID < out[j].StudentID
	})
	return out
}

// TopStudents ученики с наибольшим числом консультаций, затем заявок
func TopStudents(rows []StudentRow, limit int) []StudentRow {
	top := make([]StudentRow, len(rows))
	copy(top, rows)
	sort.SliceStable(top, func(i, j int) bool {
		if top[i].ConsultationCount != top[j].ConsultationCount {
			return top[i].ConsultationCount > top[j].ConsultationCount
		}
		return top[i].RequestCount > top[j].RequestCount
	})
	if len(top) > limit {
		top = top[:limit]
	}
	return top
}

// MonthOf первое число месяца
func MonthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// RequestDynamics заявки по месяцам создания и статусам
func RequestDynamics(requests []model.Request) []RequestMonth {
	buckets := make(map[time.Time]*RequestMonth)
	for _, r := range requests {
		m := MonthOf(r.CreatedAt)
		b, ok := buckets[m]
		if !ok {
			b = &RequestMonth{Month: m, Label: MonthLabel(m)}
			buckets[m] = b
		}
		switch r.Status {
		case model.RequestStatusNew:
			b.New++
		case model.RequestStatusInProgress:
			b.InProgress++
		case model.RequestStatusCompleted:
			b.Completed++
		case model.RequestStatusCancelled:
			b.Cancelled++
		}
		b.Total++
	}

	out := make([]RequestMonth, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// ConsultationDynamics консультации по месяцам даты проведения
func ConsultationDynamics(recs []ConsultationRecord) []ConsultationMonth {
	buckets := make(map[time.Time]*ConsultationMonth)
	for _, rec := range recs {
		m := MonthOf(rec.Consultation.Date)
		b, ok := buckets[m]
		if !ok {
			b = &ConsultationMonth{Month: m, Label: MonthLabel(m)}
			buckets[m] = b
		}
		switch rec.Consultation.Status() {
		case model.ConsultationCompleted:
			b.Completed++
		case model.ConsultationCancelled:
			b.Cancelled++
		}
		b.Total = b.Completed + b.Cancelled
	}

	out := make([]ConsultationMonth, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// WorkloadOf нагрузка: длительность считается только по завершённым
func WorkloadOf(data Dataset) Workload {
	w := Workload{
		Requests:      len(data.Requests),
		Consultations: len(data.Consultations),
	}
	for _, rec := range data.Consultations {
		if rec.Consultation.CompletedAt != nil {
			w.Completed++
			w.DurationSum += rec.Consultation.Duration
		}
	}
	if w.Completed > 0 {
		w.DurationAvg = math.Round(float64(w.DurationSum)/float64(w.Completed)*10) / 10
	}
	return w
}

// ByPsychologist заявки по назначенным психологам, по убыванию
func ByPsychologist(requests []model.Request, psychologists map[int64]model.User) []PsychologistRow {
	counts := make(map[int64]int)
	for _, r := range requests {
		if r.PsychologistID != nil {
			counts[*r.PsychologistID]++
		}
	}
	out := make([]PsychologistRow, 0, len(counts))
	for id, n := range counts {
		row := PsychologistRow{PsychologistID: id, Requests: n}
		if u, ok := psychologists[id]; ok {
			row.Name = u.DisplayName()
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Requests != out[j].Requests {
			return out[i].Requests > out[j].Requests
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].PsychologistID < out[j].PsychologistID
	})
	return out
}

// ByStatus заявки по статусам, по убыванию
func ByStatus(requests []model.Request) []StatusRow {
	counts := make(map[model.RequestStatus]int)
	for _, r := range requests {
		counts[r.Status]++
	}
	out := make([]StatusRow, 0, len(counts))
	for _, st := range model.RequestStatuses {
		if n := counts[st]; n > 0 {
			out = append(out, StatusRow{Status: st, Count: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// ByForm консультации по форме проведения
func ByForm(recs []ConsultationRecord) []FormRow {
	counts := map[string]int{}
	for _, rec := range recs {
		switch rec.Consultation.Form {
		case model.FormIndividual, model.FormGroup:
			counts[string(rec.Consultation.Form)]++
		default:
			counts["other"]++
		}
	}
	var out []FormRow
	for _, form := range []string{string(model.FormIndividual), string(model.FormGroup), "other"} {
		if n := counts[form]; n > 0 {
			out = append(out, FormRow{Form: form, Count: n})
		}
	}
	return out
}

var monthNames = [...]string{
	"январь", "февраль", "март", "апрель", "май", "июнь",
	"июль", "август", "сентябрь", "октябрь", "ноябрь", "декабрь",
}

// MonthLabel подпись месяца: «март 2026»
func MonthLabel(t time.Time) string {
	return monthNames[t.Month()-1] + " " + t.Format("2006")
}
