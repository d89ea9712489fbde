package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFeedNewestFirstWithSubjects(t *testing.T) {
	f := newFixture(t)
	student, actor := f.student("Белова")
	req := f.request(student.ID)
	cons := f.consultation(&req.ID, student.ID)
	_, err := f.consultations.Cancel(f.ctx, f.psychologist.Actor(), cons.ID)
	require.NoError(t, err)

	feed, err := f.notifications.Feed(f.ctx, actor, 0)
	require.NoError(t, err)
	// назначение, заявка в работе, заявка отменена
	require.Len(t, feed, 3)
	for i := 1; i < len(feed); i++ {
		assert.Greater(t, feed[i-1].ID, feed[i].ID)
	}
	for _, n := range feed {
		switch n.Kind {
		case model.NotificationConsultationAssigned:
			require.NotNil(t, n.Consultation)
			assert.Equal(t, cons.ID, n.Consultation.ID)
		case model.NotificationRequestStatus:
			require.NotNil(t, n.Request)
			assert.Equal(t, model.RequestStatusCancelled, n.Request.Status)
		}
	}

	limited, err := f.notifications.Feed(f.ctx, actor, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = f.notifications.Feed(f.ctx, f.psychologist.Actor(), 0)
	assert.ErrorIs(t, err, model.ErrForbidden)
}

type failingPusher struct{ calls int }

func (p *failingPusher) Push(context.Context, model.User, model.Notification) error {
	p.calls++
	return errors.New("telegram unavailable")
}

func TestPushFailureDoesNotAffectTransition(t *testing.T) {
	f := newFixture(t)
	pusher := &failingPusher{}
	f.notifications.SetPusher(pusher)
	student, _ := f.student("Белова")
	req := f.request(student.ID)

	cons := f.consultation(&req.ID, student.ID)

	assert.Equal(t, 2, pusher.calls)
	assert.Len(t, f.events(), 2)
	assert.Nil(t, f.getConsultation(cons.ID).CancelledAt)
}

func TestEmitStoresEachEventOnce(t *testing.T) {
	f := newFixture(t)
	student, _ := f.student("Белова")
	svc := NewNotificationService(f.repos, 5, zap.NewNop())

	stored, err := svc.Emit(f.ctx, []model.Notification{
		{StudentID: student.ID, Kind: model.NotificationRequestStatus},
		{StudentID: student.ID, Kind: model.NotificationRequestStatus},
	})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.NotEqual(t, stored[0].ID, stored[1].ID)
	assert.Len(t, f.events(), 2)

	_, err = svc.Emit(f.ctx, []model.Notification{{StudentID: 999, Kind: model.NotificationRequestStatus}})
	assert.ErrorIs(t, err, model.ErrReference)
}
