package lifecycle

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

func int64Ptr(v int64) *int64 { return &v }

func tod(h, m int) *model.TimeOfDay {
	t := model.NewTimeOfDay(h, m)
	return &t
}

func psychologist(id int64) model.Actor {
	return model.Actor{UserID: id, Role: model.RolePsychologist}
}

func student(userID, studentID int64) model.Actor {
	return model.Actor{UserID: userID, Role: model.RoleStudent, StudentID: int64Ptr(studentID)}
}

func admin() model.Actor {
	return model.Actor{UserID: 1, Role: model.RoleAdmin}
}

func newRequest(status model.RequestStatus, psychologistID *int64) *model.Request {
	return &model.Request{
		ID:             7,
		StudentID:      100,
		PsychologistID: psychologistID,
		Source:         model.SourceStudent,
		Status:         status,
		CreatedAt:      now.Add(-48 * time.Hour),
	}
}

func readyState() ConsultationState {
	return ConsultationState{
		Consultation: model.Consultation{
			ID:        42,
			RequestID: int64Ptr(7),
			Form:      model.FormIndividual,
			Date:      now,
			StartTime: tod(9, 0),
			EndTime:   tod(10, 0),
			Duration:  60,
			Result:    "Ученик справился с тревогой",
		},
		Request: newRequest(model.RequestStatusInProgress, int64Ptr(5)),
		Links: []model.ConsultationStudent{
			{ID: 1, ConsultationID: 42, StudentID: 100, ConfirmedAt: timePtr(now)},
		},
	}
}

func validInput() ConsultationInput {
	return ConsultationInput{
		Form:       model.FormIndividual,
		Date:       now.AddDate(0, 0, 1),
		StartTime:  tod(9, 0),
		EndTime:    tod(9, 45),
		StudentIDs: []int64{100},
	}
}

func TestComputeDuration(t *testing.T) {
	tests := []struct {
		name       string
		start, end model.TimeOfDay
		want       int
	}{
		{"обычная", model.NewTimeOfDay(9, 0), model.NewTimeOfDay(9, 45), 45},
		{"длинная обрезается", model.NewTimeOfDay(9, 0), model.NewTimeOfDay(11, 30), 120},
		{"нулевая поднимается до минуты", model.NewTimeOfDay(9, 0), model.NewTimeOfDay(9, 0), 1},
		{"обратная поднимается до минуты", model.NewTimeOfDay(10, 0), model.NewTimeOfDay(9, 0), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeDuration(tt.start, tt.end))
		})
	}
}

func TestValidateConsultation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *ConsultationInput)
		field  string
	}{
		{"без учеников", func(in *ConsultationInput) { in.StudentIDs = nil }, "students"},
		{"индивидуальная с двумя", func(in *ConsultationInput) { in.StudentIDs = []int64{100, 101} }, "students"},
		{"групповая с одним", func(in *ConsultationInput) { in.Form = model.FormGroup }, "students"},
		{"повтор ученика", func(in *ConsultationInput) {
			in.Form = model.FormGroup
			in.StudentIDs = []int64{100, 100}
		}, "students"},
		{"без времени начала", func(in *ConsultationInput) { in.StartTime = nil }, "start_time"},
		{"конец раньше начала", func(in *ConsultationInput) { in.EndTime = tod(8, 45) }, "end_time"},
		{"дольше двух часов", func(in *ConsultationInput) { in.EndTime = tod(11, 30) }, "end_time"},
		{"вне рабочего дня", func(in *ConsultationInput) { in.StartTime = tod(7, 30) }, "start_time"},
		{"после окончания дня", func(in *ConsultationInput) { in.EndTime = tod(16, 30) }, "end_time"},
		{"прошедшая дата", func(in *ConsultationInput) { in.Date = now.AddDate(0, 0, -1) }, "date"},
		{"сегодня, но время прошло", func(in *ConsultationInput) {
			in.Date = now
			in.StartTime = tod(9, 30)
			in.EndTime = tod(10, 30)
		}, "start_time"},
		{"короткий результат", func(in *ConsultationInput) { in.Result = "  ок   да " }, "result"},
		{"неизвестная форма", func(in *ConsultationInput) { in.Form = "pair" }, "form"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			err := ValidateConsultation(&in, now, true)
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrValidation))
			e, ok := model.AsError(err)
			require.True(t, ok)
			assert.Contains(t, e.Fields, tt.field)
		})
	}

	t.Run("корректная форма", func(t *testing.T) {
		in := validInput()
		assert.NoError(t, ValidateConsultation(&in, now, true))
	})

	t.Run("прошедшая дата при редактировании требует результат", func(t *testing.T) {
		in := validInput()
		in.Date = now.AddDate(0, 0, -3)
		err := ValidateConsultation(&in, now, false)
		e, ok := model.AsError(err)
		require.True(t, ok)
		assert.Contains(t, e.Fields, "result")

		in.Result = "Обсудили   подготовку к экзаменам"
		assert.NoError(t, ValidateConsultation(&in, now, false))
		assert.Equal(t, "Обсудили подготовку к экзаменам", in.Result)
	})
}

func TestValidateNotes(t *testing.T) {
	_, err := ValidateNote("  ")
	assert.True(t, errors.Is(err, model.ErrValidation))
	_, err = ValidateNote("ок")
	assert.True(t, errors.Is(err, model.ErrValidation))
	text, err := ValidateNote(" Был  спокоен ")
	assert.NoError(t, err)
	assert.Equal(t, "Был спокоен", text)

	text, err = ValidateRequestNote("")
	assert.NoError(t, err)
	assert.Empty(t, text)
	_, err = ValidateRequestNote("плохо")
	assert.NoError(t, err)
	_, err = ValidateRequestNote("нет")
	assert.True(t, errors.Is(err, model.ErrValidation))
}

func TestValidateChatMessage(t *testing.T) {
	_, err := ValidateChatMessage(" \n ")
	require.Error(t, err)
	e, ok := model.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "Сообщение: обязательное поле", e.Fields["text"])

	text, err := ValidateChatMessage("  Здравствуйте!\nМожно завтра?  ")
	require.NoError(t, err)
	assert.Equal(t, "Здравствуйте!\nМожно завтра?", text)

	_, err = ValidateChatMessage(strings.Repeat("я", ChatMessageMaxLength))
	assert.NoError(t, err)
	_, err = ValidateChatMessage(strings.Repeat("я", ChatMessageMaxLength+1))
	assert.True(t, errors.Is(err, model.ErrValidation))
}

func TestPlanConsultationAdvancesNewRequest(t *testing.T) {
	req := newRequest(model.RequestStatusNew, nil)

	in := validInput()
	in.RequestID = int64Ptr(req.ID)
	c, err := PlanConsultation(psychologist(5), in, req, now)
	require.NoError(t, err)

	require.NotNil(t, c.Consultation)
	assert.Equal(t, 45, c.Consultation.Duration)
	assert.Equal(t, int64(7), *c.Consultation.RequestID)

	require.NotNil(t, c.Request)
	assert.Equal(t, model.RequestStatusInProgress, c.Request.Status)
	assert.True(t, c.Request.AssignedTo(5))

	require.Len(t, c.Links, 1)
	require.Len(t, c.Events, 2)
	assert.Equal(t, model.NotificationConsultationAssigned, c.Events[0].Kind)
	assert.Equal(t, model.NotificationRequestStatus, c.Events[1].Kind)
	assert.Equal(t, int64(7), *c.Events[1].RequestID)

	c.BindConsultation(99)
	assert.Equal(t, int64(99), c.Links[0].ConsultationID)
	assert.Equal(t, int64(99), *c.Events[0].ConsultationID)
}

func TestPlanConsultationKeepsInProgressRequest(t *testing.T) {
	req := newRequest(model.RequestStatusInProgress, int64Ptr(5))

	in := validInput()
	in.RequestID = int64Ptr(req.ID)
	c, err := PlanConsultation(psychologist(5), in, req, now)
	require.NoError(t, err)

	assert.Nil(t, c.Request)
	require.Len(t, c.Events, 1)
	assert.Equal(t, model.NotificationConsultationAssigned, c.Events[0].Kind)
}

func TestPlanConsultationTakesOverRequest(t *testing.T) {
	req := newRequest(model.RequestStatusInProgress, int64Ptr(6))

	in := validInput()
	in.RequestID = int64Ptr(req.ID)
	c, err := PlanConsultation(psychologist(5), in, req, now)
	require.NoError(t, err)

	require.NotNil(t, c.Request)
	assert.True(t, c.Request.AssignedTo(5))
	assert.Equal(t, model.RequestStatusInProgress, c.Request.Status)
}

func TestPlanConsultationRejects(t *testing.T) {
	in := validInput()

	_, err := PlanConsultation(admin(), in, nil, now)
	assert.Equal(t, model.ReasonRole, model.ReasonOf(err))

	in.RequestID = int64Ptr(7)
	_, err = PlanConsultation(psychologist(5), in, newRequest(model.RequestStatusCompleted, nil), now)
	assert.True(t, errors.Is(err, model.ErrPrecondition))

	_, err = PlanConsultation(psychologist(5), in, nil, now)
	assert.True(t, errors.Is(err, model.ErrNotFound))

	bad := validInput()
	bad.Form = model.FormGroup
	_, err = PlanConsultation(psychologist(5), bad, nil, now)
	assert.True(t, errors.Is(err, model.ErrValidation))
}

func TestCompleteConsultation(t *testing.T) {
	t.Run("успех каскадом завершает заявку", func(t *testing.T) {
		c, err := CompleteConsultation(psychologist(5), readyState(), now)
		require.NoError(t, err)
		assert.Equal(t, Applied, c.Outcome)
		require.NotNil(t, c.Consultation.CompletedAt)
		assert.Nil(t, c.Consultation.CancelledAt)
		require.NotNil(t, c.Request)
		assert.Equal(t, model.RequestStatusCompleted, c.Request.Status)
		require.Len(t, c.Events, 1)
		assert.Equal(t, int64(100), c.Events[0].StudentID)
	})

	tests := []struct {
		name   string
		actor  model.Actor
		mutate func(st *ConsultationState)
		kind   error
		reason model.Reason
	}{
		{"ученик", student(2, 100), func(*ConsultationState) {}, model.ErrForbidden, model.ReasonRole},
		{"нет заявки", psychologist(5), func(st *ConsultationState) { st.Request = nil }, model.ErrPrecondition, model.ReasonNoRequest},
		{"нет психолога", psychologist(5), func(st *ConsultationState) { st.Request.PsychologistID = nil }, model.ErrPrecondition, model.ReasonNoPsychologist},
		{"чужой психолог", psychologist(6), func(*ConsultationState) {}, model.ErrForbidden, model.ReasonWrongPsychologist},
		{"отменена", psychologist(5), func(st *ConsultationState) { st.Consultation.CancelledAt = timePtr(now) }, model.ErrPrecondition, model.ReasonTerminal},
		{"нет результата", psychologist(5), func(st *ConsultationState) { st.Consultation.Result = "  " }, model.ErrPrecondition, model.ReasonNoResult},
		{"неподтверждённый участник", psychologist(5), func(st *ConsultationState) {
			st.Links = append(st.Links, model.ConsultationStudent{
				ID: 2, StudentID: 101, Student: &model.Student{FirstName: "Пётр", LastName: "Петров"},
			})
		}, model.ErrPrecondition, model.ReasonUnconfirmed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := readyState()
			tt.mutate(&st)
			c, err := CompleteConsultation(tt.actor, st, now)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind))
			assert.Equal(t, tt.reason, model.ReasonOf(err))
			assert.Nil(t, c.Consultation)
		})
	}

	t.Run("имена неподтвердивших в ошибке", func(t *testing.T) {
		st := readyState()
		st.Links[0].ConfirmedAt = nil
		st.Links[0].Student = &model.Student{FirstName: "Иван", LastName: "Иванов"}
		_, err := CompleteConsultation(psychologist(5), st, now)
		e, ok := model.AsError(err)
		require.True(t, ok)
		assert.Equal(t, []string{"Иванов Иван"}, e.Details)
	})

	t.Run("отказавшийся участник не мешает завершению", func(t *testing.T) {
		st := readyState()
		st.Links = append(st.Links, model.ConsultationStudent{ID: 2, StudentID: 101, CancelledAt: timePtr(now)})
		_, err := CompleteConsultation(psychologist(5), st, now)
		assert.NoError(t, err)
	})

	t.Run("повтор - no-op", func(t *testing.T) {
		st := readyState()
		st.Consultation.CompletedAt = timePtr(now)
		c, err := CompleteConsultation(psychologist(5), st, now)
		require.NoError(t, err)
		assert.True(t, c.IsNoop())
		assert.Empty(t, c.Events)
	})
}

func TestCancelConsultation(t *testing.T) {
	c, err := CancelConsultation(psychologist(5), readyState(), now)
	require.NoError(t, err)
	require.NotNil(t, c.Consultation.CancelledAt)
	assert.Equal(t, model.RequestStatusCancelled, c.Request.Status)
	assert.Len(t, c.Events, 1)

	st := readyState()
	st.Consultation.CompletedAt = timePtr(now)
	_, err = CancelConsultation(psychologist(5), st, now)
	assert.Equal(t, model.ReasonTerminal, model.ReasonOf(err))

	st = readyState()
	st.Consultation.CancelledAt = timePtr(now)
	c, err = CancelConsultation(psychologist(5), st, now)
	require.NoError(t, err)
	assert.True(t, c.IsNoop())

	st = readyState()
	st.Request = nil
	c, err = CancelConsultation(psychologist(5), st, now)
	require.NoError(t, err)
	assert.Nil(t, c.Request)
	assert.Empty(t, c.Events)
}

func TestRequestTransitions(t *testing.T) {
	t.Run("завершённую нельзя отменить", func(t *testing.T) {
		_, err := CancelRequest(psychologist(5), *newRequest(model.RequestStatusCompleted, nil), now)
		assert.True(t, errors.Is(err, model.ErrPrecondition))
	})

	t.Run("повторная отмена и завершение - no-op", func(t *testing.T) {
		c, err := CancelRequest(psychologist(5), *newRequest(model.RequestStatusCancelled, nil), now)
		require.NoError(t, err)
		assert.True(t, c.IsNoop())

		c, err = CompleteRequest(psychologist(5), *newRequest(model.RequestStatusCompleted, nil), now)
		require.NoError(t, err)
		assert.True(t, c.IsNoop())
	})

	t.Run("отменённую нельзя завершить", func(t *testing.T) {
		_, err := CompleteRequest(psychologist(5), *newRequest(model.RequestStatusCancelled, nil), now)
		assert.True(t, errors.Is(err, model.ErrPrecondition))
	})

	t.Run("ученик отменяет свою заявку", func(t *testing.T) {
		c, err := CancelRequest(student(2, 100), *newRequest(model.RequestStatusNew, nil), now)
		require.NoError(t, err)
		assert.Equal(t, model.RequestStatusCancelled, c.Request.Status)
		assert.Len(t, c.Events, 1)
	})

	t.Run("чужую заявку ученик отменить не может", func(t *testing.T) {
		_, err := CancelRequest(student(3, 101), *newRequest(model.RequestStatusNew, nil), now)
		assert.True(t, errors.Is(err, model.ErrForbidden))
	})

	t.Run("завершение только психологом", func(t *testing.T) {
		_, err := CompleteRequest(student(2, 100), *newRequest(model.RequestStatusNew, nil), now)
		assert.True(t, errors.Is(err, model.ErrForbidden))
	})

	t.Run("удаление только админом и только закрытой", func(t *testing.T) {
		assert.True(t, errors.Is(CanDeleteRequest(psychologist(5), *newRequest(model.RequestStatusCompleted, nil)), model.ErrForbidden))
		assert.True(t, errors.Is(CanDeleteRequest(admin(), *newRequest(model.RequestStatusNew, nil)), model.ErrPrecondition))
		assert.NoError(t, CanDeleteRequest(admin(), *newRequest(model.RequestStatusCancelled, nil)))
	})
}

func TestNewOwnRequest(t *testing.T) {
	req, note, err := NewOwnRequest(student(2, 100), "  Трудно  сосредоточиться ", now)
	require.NoError(t, err)
	assert.Equal(t, model.SourceStudent, req.Source)
	assert.Equal(t, model.RequestStatusNew, req.Status)
	assert.Nil(t, req.PsychologistID)
	assert.Equal(t, "Трудно сосредоточиться", note)

	_, _, err = NewOwnRequest(model.Actor{UserID: 3, Role: model.RoleStudent}, "", now)
	assert.True(t, errors.Is(err, model.ErrForbidden))
}

func TestAssignPsychologist(t *testing.T) {
	st := readyState()
	target := model.User{ID: 6, Role: model.RolePsychologist, IsActive: true}

	c, err := AssignPsychologist(admin(), st, target)
	require.NoError(t, err)
	assert.True(t, c.Request.AssignedTo(6))

	c, err = AssignPsychologist(admin(), st, model.User{ID: 5, Role: model.RolePsychologist, IsActive: true})
	require.NoError(t, err)
	assert.True(t, c.IsNoop())

	_, err = AssignPsychologist(admin(), st, model.User{ID: 9, Role: model.RoleStudent, IsActive: true})
	assert.True(t, errors.Is(err, model.ErrReference))

	st.Request = nil
	_, err = AssignPsychologist(admin(), st, target)
	assert.Equal(t, model.ReasonNoRequest, model.ReasonOf(err))

	_, err = AssignPsychologist(psychologist(5), readyState(), target)
	assert.True(t, errors.Is(err, model.ErrForbidden))
}

func TestReviseConsultationLinks(t *testing.T) {
	st := readyState()
	st.Consultation.Form = model.FormGroup
	st.Links = []model.ConsultationStudent{
		{ID: 1, StudentID: 100, ConfirmedAt: timePtr(now)},
		{ID: 2, StudentID: 101},
		{ID: 3, StudentID: 102},
	}
	in := validInput()
	in.Form = model.FormGroup
	in.StudentIDs = []int64{100, 102, 103}

	c, err := ReviseConsultation(psychologist(5), st, in, now)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, c.RemovedLinks)
	require.Len(t, c.Links, 1)
	assert.Equal(t, int64(103), c.Links[0].StudentID)
	require.Len(t, c.Events, 1)
	assert.Equal(t, int64(42), *c.Events[0].ConsultationID)
}

func TestRecordResult(t *testing.T) {
	st := readyState()
	c, err := RecordResult(psychologist(5), st, "Обсудили стратегию   подготовки")
	require.NoError(t, err)
	assert.Equal(t, "Обсудили стратегию подготовки", c.Consultation.Result)

	_, err = RecordResult(psychologist(5), st, "коротко")
	assert.True(t, errors.Is(err, model.ErrValidation))

	c, err = RecordResult(psychologist(5), st, st.Consultation.Result)
	require.NoError(t, err)
	assert.True(t, c.IsNoop())
}
