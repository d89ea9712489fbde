package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	st := NewStore()
	student := &model.Student{FirstName: "Анна", LastName: "Белова"}
	require.NoError(t, st.Students().Create(ctx, student))

	boom := errors.New("boom")
	err := st.WithTx(ctx, func(ctx context.Context) error {
		req := &model.Request{StudentID: student.ID, Source: model.SourceParent, Status: model.RequestStatusNew}
		require.NoError(t, st.Requests().Create(ctx, req))
		return st.WithTx(ctx, func(ctx context.Context) error { return boom })
	})
	assert.ErrorIs(t, err, boom)

	requests, err := st.Requests().ListByStudent(ctx, student.ID)
	require.NoError(t, err)
	assert.Empty(t, requests)
}

func TestForeignKeys(t *testing.T) {
	ctx := context.Background()
	st := NewStore()
	student := &model.Student{FirstName: "Анна", LastName: "Белова"}
	require.NoError(t, st.Students().Create(ctx, student))

	err := st.Requests().Create(ctx, &model.Request{StudentID: student.ID, Source: model.SourceParent, Status: "archived"})
	assert.True(t, errors.Is(err, model.ErrReference))

	err = st.Requests().Create(ctx, &model.Request{StudentID: 999, Source: model.SourceParent, Status: model.RequestStatusNew})
	assert.True(t, errors.Is(err, model.ErrReference))
}

func TestDeleteConsultationKeepsFeed(t *testing.T) {
	ctx := context.Background()
	st := NewStore()
	student := &model.Student{FirstName: "Анна", LastName: "Белова"}
	require.NoError(t, st.Students().Create(ctx, student))
	c := &model.Consultation{Form: model.FormIndividual, Duration: 30}
	require.NoError(t, st.Consultations().Create(ctx, c))
	require.NoError(t, st.Participation().Create(ctx, &model.ConsultationStudent{ConsultationID: c.ID, StudentID: student.ID}))
	cid := c.ID
	require.NoError(t, st.Notifications().Create(ctx, &model.Notification{StudentID: student.ID, Kind: model.NotificationConsultationAssigned, ConsultationID: &cid}))

	require.NoError(t, st.Consultations().Delete(ctx, c.ID))

	links, err := st.Participation().ListByConsultation(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, links)

	// событие ленты остаётся, ссылка на консультацию обнуляется
	events := st.Notifications().All()
	require.Len(t, events, 1)
	assert.Nil(t, events[0].ConsultationID)
	assert.Equal(t, student.ID, events[0].StudentID)
}
