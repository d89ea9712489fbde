package report

import (
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func studentData() StudentData {
	return StudentData{Student: model.Student{ID: 100, FirstName: "Анна", LastName: "Белова"}}
}

func consultationOn(id int64, date time.Time, status model.ConsultationStatus, result string) ConsultationRecord {
	c := model.Consultation{ID: id, Date: date, Result: result, Form: model.FormIndividual}
	switch status {
	case model.ConsultationCompleted:
		c.CompletedAt = ptr(date)
	case model.ConsultationCancelled:
		c.CancelledAt = ptr(date)
	}
	return ConsultationRecord{Consultation: c, StudentIDs: []int64{100}}
}

func TestCancelledConsultationsAreNeutral(t *testing.T) {
	data := studentData()
	data.Consultations = []ConsultationRecord{
		consultationOn(1, now.AddDate(0, -3, 0), model.ConsultationCompleted, ""),
		consultationOn(2, now.AddDate(0, -2, 0), model.ConsultationCompleted, ""),
		consultationOn(3, now.AddDate(0, -1, -5), model.ConsultationCancelled, ""),
	}

	d, err := AnalyzeStudent(admin, data, Filters{}, now)
	require.NoError(t, err)

	assert.Equal(t, 67, d.CompletionRate)
	assert.Equal(t, 0, d.Trend)
	assert.Equal(t, 2, d.Success)
	assert.Equal(t, 0, d.Problem)
	assert.Equal(t, 1, d.Neutral)
	assert.Equal(t, LabelStable, d.Label)
	assert.Contains(t, d.Comment, "отменена")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		d    StudentDynamics
		want Label
	}{
		{"одна заявка без консультаций", StudentDynamics{RequestTotal: 1}, LabelInsufficient},
		{"положительная", StudentDynamics{Consultations: 4, CompletionRate: 75, Success: 3, Problem: 1}, LabelPositive},
		{"рост обращений", StudentDynamics{Consultations: 4, CompletionRate: 100, Trend: 1, Success: 4}, LabelRisk},
		{"проблем больше", StudentDynamics{Consultations: 2, CompletionRate: 50, Success: 1, Problem: 3}, LabelRisk},
		{"две заявки без консультаций", StudentDynamics{RequestTotal: 2, Success: 0, Problem: 0}, LabelStable},
		{"высокий процент, но проблем больше", StudentDynamics{Consultations: 1, CompletionRate: 100, Success: 1, Problem: 2}, LabelRisk},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, comment := Classify(tt.d)
			assert.Equal(t, tt.want, label)
			assert.NotEmpty(t, comment)
		})
	}
}

func TestKeywordSignals(t *testing.T) {
	data := studentData()
	data.Requests = []model.Request{
		{ID: 1, StudentID: 100, Status: model.RequestStatusInProgress, CreatedAt: now.AddDate(0, 0, -10)},
	}
	data.Consultations = []ConsultationRecord{
		consultationOn(1, now.AddDate(0, 0, -5), model.ConsultationCompleted, "Заметен ПРОГРЕСС, тревожность снизилась"),
		consultationOn(2, now.AddDate(0, 0, -3), model.ConsultationCompleted, "Обсудили конфликт в классе"),
	}
	data.Notes = []model.RequestNote{
		{ID: 1, RequestID: 1, Text: "Паника перед контрольными", CreatedAt: now.AddDate(0, 0, -10)},
		{ID: 2, RequestID: 99, Text: "Спокойнее, чем раньше", CreatedAt: now.AddDate(0, 0, -9)},
	}

	d, err := AnalyzeStudent(admin, data, Filters{}, now)
	require.NoError(t, err)

	assert.Equal(t, Signals{PositiveResults: 1, NegativeResults: 2, PositiveNotes: 0, NegativeNotes: 1}, d.Signals)
	assert.Equal(t, 3, d.Success)
	assert.Equal(t, 4, d.Problem)
	assert.Equal(t, 1, d.Trend)
	assert.Equal(t, LabelRisk, d.Label)
	assert.Len(t, d.RecentNotes, 1)
}

func TestRequestTrend(t *testing.T) {
	data := studentData()
	data.Requests = []model.Request{
		{ID: 1, StudentID: 100, Status: model.RequestStatusCompleted, CreatedAt: now.AddDate(0, 0, -40)},
		{ID: 2, StudentID: 100, Status: model.RequestStatusCompleted, CreatedAt: now.AddDate(0, 0, -45)},
		{ID: 3, StudentID: 100, Status: model.RequestStatusCompleted, CreatedAt: now.AddDate(0, 0, -5)},
		{ID: 4, StudentID: 100, Status: model.RequestStatusCompleted, CreatedAt: now.AddDate(0, 0, -90)},
	}
	data.Consultations = []ConsultationRecord{
		consultationOn(1, now.AddDate(0, 0, -4), model.ConsultationCompleted, ""),
	}

	d, err := AnalyzeStudent(admin, data, Filters{}, now)
	require.NoError(t, err)
	assert.Equal(t, 1, d.RecentRequests)
	assert.Equal(t, 2, d.PriorRequests)
	assert.Equal(t, -1, d.Trend)
	assert.Equal(t, 100, d.CompletionRate)
	assert.Equal(t, LabelPositive, d.Label)
}

func TestAnalyzeStudentScope(t *testing.T) {
	data := studentData()
	data.Requests = []model.Request{
		{ID: 1, StudentID: 100, PsychologistID: ptr(int64(6)), Status: model.RequestStatusNew, CreatedAt: now},
	}

	_, err := AnalyzeStudent(psy5, data, Filters{}, now)
	assert.True(t, errors.Is(err, model.ErrForbidden))

	data.Consultations = []ConsultationRecord{consultationOn(1, now, model.ConsultationScheduled, "")}
	d, err := AnalyzeStudent(psy5, data, Filters{}, now)
	require.NoError(t, err)
	assert.Equal(t, 0, d.RequestTotal)
	assert.Equal(t, 1, d.Planned)
}

func TestDynamicsChartCoversTwelveMonths(t *testing.T) {
	data := studentData()
	data.Requests = []model.Request{
		{ID: 1, StudentID: 100, Status: model.RequestStatusCompleted, CreatedAt: day(2025, 4, 2)},
		{ID: 2, StudentID: 100, Status: model.RequestStatusCompleted, CreatedAt: day(2025, 3, 30)},
	}
	d, err := AnalyzeStudent(admin, data, Filters{}, now)
	require.NoError(t, err)

	require.Len(t, d.Chart, 12)
	assert.Equal(t, "апрель 2025", d.Chart[0].Label)
	assert.Equal(t, "март 2026", d.Chart[11].Label)
	assert.Equal(t, 1, d.Chart[0].Requests)
	assert.Equal(t, LabelStable, d.Label)
}

func TestDynamicsDateFilterUsesConsultationDate(t *testing.T) {
	data := studentData()
	rec := consultationOn(1, day(2026, 1, 30), model.ConsultationCompleted, "")
	rec.Consultation.CompletedAt = ptr(day(2026, 2, 2))
	data.Consultations = []ConsultationRecord{rec}

	d, err := AnalyzeStudent(admin, data, Filters{DateFrom: ptr(day(2026, 2, 1))}, now)
	require.NoError(t, err)
	assert.Equal(t, 0, d.Consultations)
	assert.Equal(t, LabelInsufficient, d.Label)
}

func TestRequestTrendUsesCalendarDays(t *testing.T) {
	at := time.Date(2026, 3, 31, 15, 0, 0, 0, time.UTC)
	requests := []model.Request{
		{ID: 1, StudentID: 100, CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		{ID: 2, StudentID: 100, CreatedAt: time.Date(2026, 1, 30, 9, 0, 0, 0, time.UTC)},
		{ID: 3, StudentID: 100, CreatedAt: time.Date(2026, 1, 29, 23, 0, 0, 0, time.UTC)},
		// будущие даты попадают в текущее окно
		{ID: 4, StudentID: 100, CreatedAt: time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)},
	}

	recent, prior := requestTrend(requests, at)
	assert.Equal(t, 2, recent)
	assert.Equal(t, 1, prior)
}

func TestNotesFilteredByNoteDate(t *testing.T) {
	data := studentData()
	data.Requests = []model.Request{
		{ID: 1, StudentID: 100, PsychologistID: ptr(int64(5)), Status: model.RequestStatusInProgress, CreatedAt: day(2026, 1, 10)},
		{ID: 2, StudentID: 100, PsychologistID: ptr(int64(6)), Status: model.RequestStatusInProgress, CreatedAt: day(2026, 3, 2)},
		{ID: 3, StudentID: 100, Status: model.RequestStatusNew, CreatedAt: day(2026, 3, 3)},
	}
	data.Notes = []model.RequestNote{
		{ID: 1, RequestID: 1, Text: "сильная тревога и стресс", CreatedAt: day(2026, 3, 15)},
		{ID: 2, RequestID: 1, Text: "проблемы со сном", CreatedAt: day(2026, 2, 20)},
		{ID: 3, RequestID: 2, Text: "конфликт с одноклассником", CreatedAt: day(2026, 3, 10)},
	}

	d, err := AnalyzeStudent(psy5, data, Filters{DateFrom: ptr(day(2026, 3, 1))}, now)
	require.NoError(t, err)

	// заявка 1 вне периода, но её мартовская заметка учитывается;
	// заметка к заявке другого психолога не видна
	assert.Equal(t, 1, d.RequestsByStatus[model.RequestStatusNew])
	assert.Equal(t, 1, d.RequestTotal)
	assert.Equal(t, 1, d.Signals.NegativeNotes)
	require.Len(t, d.RecentNotes, 1)
	assert.Equal(t, int64(1), d.RecentNotes[0].ID)
}

func TestAnalyzeStudentForbiddenWhenPeriodEmpty(t *testing.T) {
	data := studentData()
	data.Requests = []model.Request{
		{ID: 1, StudentID: 100, PsychologistID: ptr(int64(5)), Status: model.RequestStatusCompleted, CreatedAt: day(2025, 11, 10)},
	}
	filters := Filters{DateFrom: ptr(day(2026, 1, 1))}

	_, err := AnalyzeStudent(psy5, data, filters, now)
	assert.True(t, errors.Is(err, model.ErrForbidden))

	d, err := AnalyzeStudent(admin, data, filters, now)
	require.NoError(t, err)
	assert.Equal(t, LabelInsufficient, d.Label)

	d, err = AnalyzeStudent(psy5, data, Filters{}, now)
	require.NoError(t, err)
	assert.Equal(t, 1, d.RequestTotal)
}
