package lifecycle

import (
	"errors"
	"testing"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groupState() ConsultationState {
	st := readyState()
	st.Consultation.Form = model.FormGroup
	st.Links = []model.ConsultationStudent{
		{ID: 1, ConsultationID: 42, StudentID: 100},
		{ID: 2, ConsultationID: 42, StudentID: 101},
	}
	return st
}

func TestConfirmParticipation(t *testing.T) {
	t.Run("подтверждение существующей связи", func(t *testing.T) {
		c, err := ConfirmParticipation(student(2, 101), groupState(), now)
		require.NoError(t, err)
		require.Len(t, c.Links, 1)
		assert.Equal(t, int64(2), c.Links[0].ID)
		assert.NotNil(t, c.Links[0].ConfirmedAt)
		assert.Empty(t, c.Events)
	})

	t.Run("связь создаётся для владельца заявки", func(t *testing.T) {
		st := groupState()
		st.Links = st.Links[1:]
		c, err := ConfirmParticipation(student(2, 100), st, now)
		require.NoError(t, err)
		require.Len(t, c.Links, 1)
		assert.Zero(t, c.Links[0].ID)
		assert.Equal(t, int64(42), c.Links[0].ConsultationID)
		require.Len(t, c.Events, 1)
		assert.Equal(t, model.NotificationConsultationAssigned, c.Events[0].Kind)
	})

	t.Run("повторное подтверждение - no-op", func(t *testing.T) {
		st := groupState()
		st.Links[0].ConfirmedAt = timePtr(now)
		c, err := ConfirmParticipation(student(2, 100), st, now)
		require.NoError(t, err)
		assert.True(t, c.IsNoop())
	})

	t.Run("после отказа подтвердить нельзя", func(t *testing.T) {
		st := groupState()
		st.Links[0].CancelledAt = timePtr(now)
		_, err := ConfirmParticipation(student(2, 100), st, now)
		assert.Equal(t, model.ReasonParticipationCanceled, model.ReasonOf(err))
	})

	t.Run("закрытая консультация", func(t *testing.T) {
		st := groupState()
		st.Consultation.CompletedAt = timePtr(now)
		_, err := ConfirmParticipation(student(2, 100), st, now)
		assert.Equal(t, model.ReasonTerminal, model.ReasonOf(err))
	})

	t.Run("посторонний ученик", func(t *testing.T) {
		_, err := ConfirmParticipation(student(9, 555), groupState(), now)
		assert.True(t, errors.Is(err, model.ErrNotFound))
	})

	t.Run("психолог не подтверждает участие", func(t *testing.T) {
		_, err := ConfirmParticipation(psychologist(5), groupState(), now)
		assert.True(t, errors.Is(err, model.ErrForbidden))
	})
}

func TestCancelParticipationCascades(t *testing.T) {
	st := groupState()
	st.Links[0].ConfirmedAt = timePtr(now)

	c, err := CancelParticipation(student(2, 100), st, now)
	require.NoError(t, err)

	require.Len(t, c.Links, 1)
	assert.NotNil(t, c.Links[0].CancelledAt)
	assert.Nil(t, c.Links[0].ConfirmedAt)

	require.NotNil(t, c.Consultation)
	assert.NotNil(t, c.Consultation.CancelledAt)
	assert.Nil(t, c.Consultation.CompletedAt)

	require.NotNil(t, c.Request)
	assert.Equal(t, model.RequestStatusCancelled, c.Request.Status)
	require.Len(t, c.Events, 1)
	assert.Equal(t, model.NotificationRequestStatus, c.Events[0].Kind)
}

func TestCancelParticipationRejects(t *testing.T) {
	st := groupState()
	st.Links = st.Links[1:]
	_, err := CancelParticipation(student(2, 100), st, now)
	assert.Equal(t, model.ReasonNotEnrolled, model.ReasonOf(err))

	st = groupState()
	st.Consultation.CancelledAt = timePtr(now)
	_, err = CancelParticipation(student(2, 100), st, now)
	assert.Equal(t, model.ReasonTerminal, model.ReasonOf(err))

	st = groupState()
	st.Links[0].CancelledAt = timePtr(now)
	st.Consultation.CancelledAt = timePtr(now)
	c, err := CancelParticipation(student(2, 100), st, now)
	require.NoError(t, err)
	assert.True(t, c.IsNoop())
}
