package service

import (
	"testing"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancelParticipationCancelsEverything(t *testing.T) {
	f := newFixture(t)
	first, firstActor := f.student("Белова")
	second, secondActor := f.student("Орлов")
	req := f.request(first.ID)
	cons := f.consultation(&req.ID, first.ID, second.ID)

	_, err := f.participation.Confirm(f.ctx, firstActor, cons.ID)
	require.NoError(t, err)

	change, err := f.participation.Cancel(f.ctx, secondActor, cons.ID)
	require.NoError(t, err)
	assert.False(t, change.IsNoop())

	assert.NotNil(t, f.getConsultation(cons.ID).CancelledAt)
	assert.Equal(t, model.RequestStatusCancelled, f.getRequest(req.ID).Status)

	links, err := f.repos.Participation.ListByConsultation(f.ctx, cons.ID)
	require.NoError(t, err)
	for _, l := range links {
		if l.StudentID == second.ID {
			assert.Equal(t, model.ParticipationCancelled, l.State())
		} else {
			assert.Equal(t, model.ParticipationConfirmed, l.State())
		}
	}

	// повторный отказ ничего не меняет и не создаёт событий
	events := len(f.events())
	again, err := f.participation.Cancel(f.ctx, secondActor, cons.ID)
	require.NoError(t, err)
	assert.True(t, again.IsNoop())
	assert.Len(t, f.events(), events)

	// подтверждение после отмены консультации запрещено
	_, err = f.participation.Confirm(f.ctx, firstActor, cons.ID)
	assert.ErrorIs(t, err, model.ErrPrecondition)
}

func TestConfirmParticipationIsIdempotent(t *testing.T) {
	f := newFixture(t)
	student, actor := f.student("Белова")
	cons := f.consultation(nil, student.ID)

	change, err := f.participation.Confirm(f.ctx, actor, cons.ID)
	require.NoError(t, err)
	assert.False(t, change.IsNoop())

	again, err := f.participation.Confirm(f.ctx, actor, cons.ID)
	require.NoError(t, err)
	assert.True(t, again.IsNoop())
	assert.Equal(t, "Участие уже подтверждено", again.Message)
}

func TestConfirmThroughRequestCreatesLink(t *testing.T) {
	f := newFixture(t)
	owner, ownerActor := f.student("Белова")
	other, _ := f.student("Орлов")
	req := f.request(owner.ID)
	// владелец заявки не в списке участников
	cons := f.consultation(&req.ID, other.ID)

	_, err := f.participation.Confirm(f.ctx, ownerActor, cons.ID)
	require.NoError(t, err)

	links, err := f.repos.Participation.ListByConsultation(f.ctx, cons.ID)
	require.NoError(t, err)
	assert.Len(t, links, 2)
}

func TestParticipationRejectsStrangers(t *testing.T) {
	f := newFixture(t)
	student, _ := f.student("Белова")
	_, stranger := f.student("Орлов")
	cons := f.consultation(nil, student.ID)

	_, err := f.participation.Confirm(f.ctx, stranger, cons.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = f.participation.Cancel(f.ctx, stranger, cons.ID)
	assert.Error(t, err)

	_, err = f.participation.Confirm(f.ctx, f.psychologist.Actor(), cons.ID)
	assert.ErrorIs(t, err, model.ErrForbidden)

	assert.Nil(t, f.getConsultation(cons.ID).CancelledAt)
}

func TestCancelParticipationRollsBack(t *testing.T) {
	f := newFixture(t)
	student, actor := f.student("Белова")
	req := f.request(student.ID)
	cons := f.consultation(&req.ID, student.ID)

	f.store.FailNext("requests.update", assert.AnError)
	_, err := f.participation.Cancel(f.ctx, actor, cons.ID)
	require.ErrorIs(t, err, assert.AnError)

	assert.Nil(t, f.getConsultation(cons.ID).CancelledAt)
	links, err := f.repos.Participation.ListByConsultation(f.ctx, cons.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, model.ParticipationUnconfirmed, links[0].State())
}
