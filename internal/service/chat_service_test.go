package service

import (
	"errors"
	"testing"

	"github.com/Freeeeeet/psychologist_bot/internal/lifecycle"
	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatPsychologistFromLatestRequest(t *testing.T) {
	f := newFixture(t)
	student, actor := f.student("Белова")
	_, err := f.requests.Create(f.ctx, f.other.Actor(), lifecycle.RequestInput{
		StudentID: student.ID,
		Source:    model.SourceTeacher,
	})
	require.NoError(t, err)

	view, err := f.chats.Open(f.ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, f.other.ID, view.Chat.PsychologistID)
	assert.True(t, view.CanSend)
	assert.Empty(t, view.Messages)

	// чат уже закреплён, новая заявка его не перекидывает
	f.request(student.ID)
	again, err := f.chats.Open(f.ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, view.Chat.ID, again.Chat.ID)
	assert.Equal(t, f.other.ID, again.Chat.PsychologistID)
}

func TestChatFallsBackToFirstPsychologist(t *testing.T) {
	f := newFixture(t)
	_, actor := f.student("Белова")

	view, err := f.chats.Open(f.ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, f.psychologist.ID, view.Chat.PsychologistID)
}

func TestChatWithoutStaff(t *testing.T) {
	f := newFixture(t)
	_, actor := f.student("Белова")
	for _, u := range []model.User{f.admin, f.psychologist, f.other} {
		u.IsActive = false
		require.NoError(t, f.repos.Users.Update(f.ctx, &u))
	}

	_, err := f.chats.Send(f.ctx, actor, "Здравствуйте")
	assert.ErrorIs(t, err, model.ErrPrecondition)
	assert.Equal(t, model.ReasonNoPsychologist, model.ReasonOf(err))
}

func TestChatConversation(t *testing.T) {
	f := newFixture(t)
	student, actor := f.student("Белова")

	msg, err := f.chats.Send(f.ctx, actor, "  Можно поговорить завтра?  ")
	require.NoError(t, err)
	assert.Equal(t, "Можно поговорить завтра?", msg.Text)
	assert.True(t, msg.IsFrom(actor.UserID))

	require.Len(t, f.push.chats, 1)
	assert.Equal(t, f.psychologist.ID, f.push.chats[0].UserID)
	assert.Equal(t, student.FullName(), f.push.chats[0].From)

	chats, err := f.chats.List(f.ctx, f.psychologist.Actor())
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, 1, chats[0].Unread)
	assert.Equal(t, student.ID, chats[0].Student.ID)
	require.NotNil(t, chats[0].LastMessageAt)

	view, err := f.chats.View(f.ctx, f.psychologist.Actor(), chats[0].ID)
	require.NoError(t, err)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, student.FullName(), view.AuthorName(view.Messages[0]))

	chats, err = f.chats.List(f.ctx, f.psychologist.Actor())
	require.NoError(t, err)
	assert.Zero(t, chats[0].Unread)

	_, err = f.chats.Reply(f.ctx, f.psychologist.Actor(), view.Chat.ID, "Да, в 10:00")
	require.NoError(t, err)
	require.Len(t, f.push.chats, 2)
	assert.Equal(t, actor.UserID, f.push.chats[1].UserID)

	own, err := f.chats.Open(f.ctx, actor)
	require.NoError(t, err)
	require.Len(t, own.Messages, 2)
	assert.Equal(t, "Вы", own.AuthorName(own.Messages[0]))
	assert.Equal(t, f.psychologist.DisplayName(), own.AuthorName(own.Messages[1]))
}

func TestChatAccess(t *testing.T) {
	f := newFixture(t)
	_, actor := f.student("Белова")
	_, err := f.chats.Send(f.ctx, actor, "Здравствуйте")
	require.NoError(t, err)

	chats, err := f.chats.List(f.ctx, f.admin.Actor())
	require.NoError(t, err)
	require.Len(t, chats, 1)
	chatID := chats[0].ID

	// другой психолог чат не видит
	others, err := f.chats.List(f.ctx, f.other.Actor())
	require.NoError(t, err)
	assert.Empty(t, others)
	_, err = f.chats.View(f.ctx, f.other.Actor(), chatID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = f.chats.Reply(f.ctx, f.other.Actor(), chatID, "Добрый день")
	assert.ErrorIs(t, err, model.ErrNotFound)

	// администратор только читает
	view, err := f.chats.View(f.ctx, f.admin.Actor(), chatID)
	require.NoError(t, err)
	assert.False(t, view.CanSend)
	_, err = f.chats.Reply(f.ctx, f.admin.Actor(), chatID, "Добрый день")
	assert.ErrorIs(t, err, model.ErrForbidden)

	// прочтение персональное
	mine, err := f.chats.List(f.ctx, f.psychologist.Actor())
	require.NoError(t, err)
	assert.Equal(t, 1, mine[0].Unread)

	_, err = f.chats.List(f.ctx, actor)
	assert.ErrorIs(t, err, model.ErrForbidden)
	_, err = f.chats.Open(f.ctx, f.psychologist.Actor())
	assert.ErrorIs(t, err, model.ErrForbidden)
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	f := newFixture(t)
	student, actor := f.student("Белова")

	_, err := f.chats.Send(f.ctx, actor, " \n ")
	assert.ErrorIs(t, err, model.ErrValidation)

	chat, err := f.repos.Chats.GetByStudent(f.ctx, student.ID)
	require.NoError(t, err)
	assert.Nil(t, chat)
	assert.Empty(t, f.push.chats)
}

func TestChatMessageFailureNotDelivered(t *testing.T) {
	f := newFixture(t)
	_, actor := f.student("Белова")
	view, err := f.chats.Open(f.ctx, actor)
	require.NoError(t, err)

	f.store.FailNext("chat_messages.create", errors.New("disk full"))
	_, err = f.chats.Send(f.ctx, actor, "Здравствуйте")
	require.Error(t, err)
	assert.Empty(t, f.push.chats)

	messages, err := f.repos.Chats.ListMessages(f.ctx, view.Chat.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, messages)
}
