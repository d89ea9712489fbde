package service

import (
	"testing"

	"github.com/Freeeeeet/psychologist_bot/internal/lifecycle"
	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRequestAssignsPsychologist(t *testing.T) {
	f := newFixture(t)
	student, _ := f.student("Белова")

	req := f.request(student.ID)
	assert.Equal(t, model.RequestStatusNew, req.Status)
	require.NotNil(t, req.PsychologistID)
	assert.Equal(t, f.psychologist.ID, *req.PsychologistID)

	// создание заявки не попадает в ленту
	assert.Empty(t, f.events())
	assert.Equal(t, 1, f.cache.invalidated)

	_, err := f.requests.Create(f.ctx, f.psychologist.Actor(), lifecycle.RequestInput{StudentID: student.ID, Source: "neighbour"})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = f.requests.Create(f.ctx, f.admin.Actor(), lifecycle.RequestInput{StudentID: student.ID, Source: model.SourceParent})
	assert.ErrorIs(t, err, model.ErrForbidden)
}

func TestSubmitOwnStoresComment(t *testing.T) {
	f := newFixture(t)
	student, actor := f.student("Белова")

	req, err := f.requests.SubmitOwn(f.ctx, actor, "  Часто  ссорюсь с одноклассниками ")
	require.NoError(t, err)
	assert.Equal(t, model.SourceStudent, req.Source)
	assert.Nil(t, req.PsychologistID)
	assert.Equal(t, student.ID, req.StudentID)

	notes, err := f.repos.Notes.ListRequestNotes(f.ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Часто ссорюсь с одноклассниками", notes[0].Text)

	_, err = f.requests.SubmitOwn(f.ctx, actor, "ой")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestSubmitOwnRollsBackOnNoteFailure(t *testing.T) {
	f := newFixture(t)
	student, actor := f.student("Белова")

	f.store.FailNext("request_notes.create", assert.AnError)
	_, err := f.requests.SubmitOwn(f.ctx, actor, "Не могу сосредоточиться")
	require.ErrorIs(t, err, assert.AnError)

	requests, err := f.repos.Requests.ListByStudent(f.ctx, student.ID)
	require.NoError(t, err)
	assert.Empty(t, requests)
}

func TestRequestVisibility(t *testing.T) {
	f := newFixture(t)
	student, actor := f.student("Белова")
	_, stranger := f.student("Орлов")
	assigned := f.request(student.ID)
	unassigned, err := f.requests.SubmitOwn(f.ctx, actor, "")
	require.NoError(t, err)

	// второй психолог видит только неназначенные заявки
	list, err := f.requests.List(f.ctx, f.other.Actor(), "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, unassigned.ID, list[0].ID)
	require.NotNil(t, list[0].Student)
	assert.Equal(t, "Белова", list[0].Student.LastName)

	_, err = f.requests.Get(f.ctx, f.other.Actor(), assigned.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	all, err := f.requests.List(f.ctx, f.admin.Actor(), model.RequestStatusNew)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.requests.Get(f.ctx, stranger, assigned.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	details, err := f.requests.Get(f.ctx, actor, assigned.ID)
	require.NoError(t, err)
	require.NotNil(t, details.Request.Psychologist)
	assert.Equal(t, f.psychologist.ID, details.Request.Psychologist.ID)
}

func TestStudentCancelsOwnRequest(t *testing.T) {
	f := newFixture(t)
	student, actor := f.student("Белова")
	req := f.request(student.ID)

	change, err := f.requests.Cancel(f.ctx, actor, req.ID)
	require.NoError(t, err)
	assert.False(t, change.IsNoop())
	assert.Equal(t, model.RequestStatusCancelled, f.getRequest(req.ID).Status)

	events := f.events()
	require.Len(t, events, 1)
	assert.Equal(t, model.NotificationRequestStatus, events[0].Kind)

	again, err := f.requests.Cancel(f.ctx, actor, req.ID)
	require.NoError(t, err)
	assert.True(t, again.IsNoop())

	_, err = f.requests.Complete(f.ctx, f.psychologist.Actor(), req.ID)
	assert.Equal(t, model.ReasonTerminal, model.ReasonOf(err))
}

func TestDeleteRequest(t *testing.T) {
	f := newFixture(t)
	student, _ := f.student("Белова")
	req := f.request(student.ID)

	err := f.requests.Delete(f.ctx, f.psychologist.Actor(), req.ID)
	assert.ErrorIs(t, err, model.ErrForbidden)

	err = f.requests.Delete(f.ctx, f.admin.Actor(), req.ID)
	assert.Equal(t, model.ReasonNotTerminal, model.ReasonOf(err))

	_, err = f.requests.Complete(f.ctx, f.psychologist.Actor(), req.ID)
	require.NoError(t, err)
	require.NoError(t, f.requests.Delete(f.ctx, f.admin.Actor(), req.ID))

	got, err := f.repos.Requests.GetByID(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, f.events())
}

func TestAddRequestNote(t *testing.T) {
	f := newFixture(t)
	student, actor := f.student("Белова")
	req := f.request(student.ID)

	note, err := f.requests.AddNote(f.ctx, actor, req.ID, "Стало немного легче")
	require.NoError(t, err)
	assert.NotZero(t, note.ID)

	_, err = f.requests.AddNote(f.ctx, actor, req.ID, "   ")
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = f.requests.AddNote(f.ctx, f.admin.Actor(), req.ID, "Проверка администратора")
	assert.ErrorIs(t, err, model.ErrForbidden)
}
