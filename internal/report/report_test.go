package report

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

var (
	psy5  = model.Actor{UserID: 5, Role: model.RolePsychologist}
	admin = model.Actor{UserID: 1, Role: model.RoleAdmin}
)

func fixture() Dataset {
	requests := []model.Request{
		{ID: 1, StudentID: 100, PsychologistID: ptr(int64(5)), Status: model.RequestStatusCompleted, CreatedAt: day(2026, 1, 10)},
		{ID: 2, StudentID: 101, PsychologistID: nil, Status: model.RequestStatusNew, CreatedAt: day(2026, 2, 3)},
		{ID: 3, StudentID: 102, PsychologistID: ptr(int64(6)), Status: model.RequestStatusInProgress, CreatedAt: day(2026, 2, 20)},
		{ID: 4, StudentID: 100, PsychologistID: ptr(int64(5)), Status: model.RequestStatusCancelled, CreatedAt: day(2026, 3, 1)},
	}
	consultations := []ConsultationRecord{
		{
			Consultation: model.Consultation{ID: 10, RequestID: ptr(int64(1)), Form: model.FormIndividual, Date: day(2026, 1, 20), Duration: 45, CompletedAt: ptr(day(2026, 1, 20))},
			Request:      &requests[0],
			StudentIDs:   []int64{100},
		},
		{
			Consultation: model.Consultation{ID: 11, RequestID: ptr(int64(3)), Form: model.FormGroup, Date: day(2026, 2, 25), Duration: 60, CompletedAt: ptr(day(2026, 2, 25))},
			Request:      &requests[2],
			StudentIDs:   []int64{102, 103},
		},
		{
			Consultation: model.Consultation{ID: 12, Form: model.FormGroup, Date: day(2026, 3, 2), Duration: 30, CancelledAt: ptr(day(2026, 3, 1))},
			StudentIDs:   []int64{101, 103},
		},
		{
			Consultation: model.Consultation{ID: 13, RequestID: ptr(int64(4)), Form: model.FormIndividual, Date: day(2026, 3, 5), Duration: 40, CompletedAt: ptr(day(2026, 3, 5))},
			Request:      &requests[3],
			StudentIDs:   []int64{100},
		},
	}
	return Dataset{
		Requests:      requests,
		Consultations: consultations,
		Students: map[int64]model.Student{
			100: {ID: 100, FirstName: "Анна", LastName: "Белова", ClassName: "7А"},
			101: {ID: 101, FirstName: "Борис", LastName: "Алексеев", ClassName: "8Б"},
			102: {ID: 102, FirstName: "Вера", LastName: "Волкова", ClassName: "9В"},
			103: {ID: 103, FirstName: "Глеб", LastName: "Алексеев", ClassName: "8Б"},
		},
		Psychologists: map[int64]model.User{
			5: {ID: 5, FirstName: "Ольга", LastName: "Смирнова", Role: model.RolePsychologist},
			6: {ID: 6, FirstName: "Ирина", LastName: "Петрова", Role: model.RolePsychologist},
		},
	}
}

func TestScopeFor(t *testing.T) {
	s, err := ScopeFor(admin)
	require.NoError(t, err)
	assert.True(t, s.All())

	s, err = ScopeFor(psy5)
	require.NoError(t, err)
	assert.True(t, s.AllowsRequest(model.Request{PsychologistID: ptr(int64(5))}))
	assert.True(t, s.AllowsRequest(model.Request{}))
	assert.False(t, s.AllowsRequest(model.Request{PsychologistID: ptr(int64(6))}))
	assert.True(t, s.AllowsConsultation(nil))

	_, err = ScopeFor(model.Actor{UserID: 3, Role: model.RoleStudent, StudentID: ptr(int64(100))})
	assert.True(t, errors.Is(err, model.ErrForbidden))
}

func TestBuildPsychologistScope(t *testing.T) {
	r, err := Build(psy5, fixture(), Filters{}, now)
	require.NoError(t, err)

	assert.Equal(t, 3, r.Workload.Requests)
	assert.Equal(t, 3, r.Workload.Consultations)
	assert.Equal(t, 2, r.Workload.Completed)
	assert.Equal(t, 85, r.Workload.DurationSum)
	assert.Equal(t, 42.5, r.Workload.DurationAvg)

	assert.Nil(t, r.ByPsychologist)
	assert.Nil(t, r.ByStatus)

	names := make([]string, 0, len(r.Students))
	for _, s := range r.Students {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Алексеев Борис", "Алексеев Глеб", "Белова Анна"}, names)

	anna := r.Students[2]
	assert.Equal(t, 2, anna.RequestCount)
	assert.Equal(t, 2, anna.ConsultationCount)
	require.NotNil(t, anna.LastConsultation)
	assert.Equal(t, day(2026, 3, 5), *anna.LastConsultation)
}

func TestBuildAdminScope(t *testing.T) {
	r, err := Build(admin, fixture(), Filters{}, now)
	require.NoError(t, err)

	assert.Equal(t, 4, r.Workload.Requests)
	assert.Equal(t, 4, r.Workload.Consultations)
	assert.Equal(t, 145, r.Workload.DurationSum)
	assert.Equal(t, 48.3, r.Workload.DurationAvg)

	require.Len(t, r.ByPsychologist, 2)
	assert.Equal(t, int64(5), r.ByPsychologist[0].PsychologistID)
	assert.Equal(t, 2, r.ByPsychologist[0].Requests)
	assert.Equal(t, "Смирнова Ольга", r.ByPsychologist[0].Name)

	assert.Len(t, r.ByStatus, 4)
	assert.Equal(t, []FormRow{{Form: "individual", Count: 2}, {Form: "group", Count: 2}}, r.ByForm)
}

func TestRequestDynamics(t *testing.T) {
	r, err := Build(admin, fixture(), Filters{}, now)
	require.NoError(t, err)

	require.Len(t, r.RequestDynamics, 3)
	feb := r.RequestDynamics[1]
	assert.Equal(t, "февраль 2026", feb.Label)
	assert.Equal(t, 1, feb.New)
	assert.Equal(t, 1, feb.InProgress)
	assert.Equal(t, 2, feb.Total)

	require.Len(t, r.ConsultationDynamics, 3)
	mar := r.ConsultationDynamics[2]
	assert.Equal(t, 1, mar.Completed)
	assert.Equal(t, 1, mar.Cancelled)
	assert.Equal(t, 2, mar.Total)
}

func TestFilters(t *testing.T) {
	t.Run("период", func(t *testing.T) {
		r, err := Build(admin, fixture(), Filters{DateFrom: ptr(day(2026, 2, 1)), DateTo: ptr(day(2026, 2, 28))}, now)
		require.NoError(t, err)
		assert.Equal(t, 2, r.Workload.Requests)
		assert.Equal(t, 1, r.Workload.Consultations)
	})

	t.Run("консультация попадает по дате завершения", func(t *testing.T) {
		rec := ConsultationRecord{Consultation: model.Consultation{Date: day(2026, 1, 30), CompletedAt: ptr(day(2026, 2, 2))}}
		f := Filters{DateFrom: ptr(day(2026, 2, 1))}
		assert.True(t, f.MatchConsultation(rec))
		rec.Consultation.CompletedAt = nil
		assert.False(t, f.MatchConsultation(rec))
	})

	t.Run("статус только для заявок", func(t *testing.T) {
		r, err := Build(admin, fixture(), Filters{Status: model.RequestStatusNew}, now)
		require.NoError(t, err)
		assert.Equal(t, 1, r.Workload.Requests)
		assert.Equal(t, 4, r.Workload.Consultations)
	})

	t.Run("ученик через участие и через заявку", func(t *testing.T) {
		r, err := Build(admin, fixture(), Filters{StudentID: ptr(int64(103))}, now)
		require.NoError(t, err)
		assert.Equal(t, 0, r.Workload.Requests)
		assert.Equal(t, 2, r.Workload.Consultations)
	})

	t.Run("неверные фильтры", func(t *testing.T) {
		_, err := Build(admin, fixture(), Filters{DateFrom: ptr(day(2026, 3, 1)), DateTo: ptr(day(2026, 2, 1))}, now)
		assert.True(t, errors.Is(err, model.ErrValidation))
		_, err = Build(admin, fixture(), Filters{Status: "archived"}, now)
		assert.True(t, errors.Is(err, model.ErrValidation))
	})
}

func TestTopStudents(t *testing.T) {
	rows := []StudentRow{
		{StudentID: 1, ConsultationCount: 1, RequestCount: 5},
		{StudentID: 2, ConsultationCount: 3, RequestCount: 0},
		{StudentID: 3, ConsultationCount: 1, RequestCount: 7},
	}
	top := TopStudents(rows, 2)
	require.Len(t, top, 2)
	assert.Equal(t, int64(2), top[0].StudentID)
	assert.Equal(t, int64(3), top[1].StudentID)
	assert.Equal(t, int64(1), rows[0].StudentID)
}

func TestTablesIncludeAdminSections(t *testing.T) {
	r, err := Build(admin, fixture(), Filters{}, now)
	require.NoError(t, err)
	assert.Len(t, Tables(r), 8)

	r, err = Build(psy5, fixture(), Filters{}, now)
	require.NoError(t, err)
	tables := Tables(r)
	assert.Len(t, tables, 5)
	assert.Equal(t, "42.5", tables[3].Rows[4][1])
	assert.Empty(t, r.Register)
}

func TestConsultationRegister(t *testing.T) {
	r, err := Build(admin, fixture(), Filters{DateFrom: ptr(day(2026, 2, 1))}, now)
	require.NoError(t, err)

	require.Len(t, r.Register, 3)
	ids := []int64{r.Register[0].ConsultationID, r.Register[1].ConsultationID, r.Register[2].ConsultationID}
	assert.Equal(t, []int64{13, 12, 11}, ids)

	cancelled := r.Register[1]
	assert.Equal(t, []string{"Алексеев Борис", "Алексеев Глеб"}, cancelled.Students)
	assert.Equal(t, "—", cancelled.Psychologist)
	assert.Equal(t, model.ConsultationCancelled, cancelled.Status)

	group := r.Register[2]
	assert.Equal(t, "Петрова Ирина", group.Psychologist)
	assert.Equal(t, []string{"Волкова Вера", "Алексеев Глеб"}, group.Students)

	table := RegisterTable(r.Register)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, []string{"2", "02.03.2026", "—", "Алексеев Борис, Алексеев Глеб", "Групповая", "—", "Отменена", ""}, table.Rows[1])
}

func TestConsultationRegisterLimit(t *testing.T) {
	ds := Dataset{Students: map[int64]model.Student{}}
	for i := 0; i < RegisterLimit+5; i++ {
		ds.Consultations = append(ds.Consultations, ConsultationRecord{
			Consultation: model.Consultation{ID: int64(i + 1), Form: model.FormIndividual, Date: day(2026, 1, 1).AddDate(0, 0, i%60), Result: strings.Repeat("а", 600)},
		})
	}

	rows := ConsultationRegister(ds)
	require.Len(t, rows, RegisterLimit)
	assert.True(t, !rows[0].Date.Before(rows[len(rows)-1].Date))
	assert.Equal(t, 501, len([]rune(rows[0].Result)))
}
