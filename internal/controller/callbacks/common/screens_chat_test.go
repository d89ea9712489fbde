package common

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/Freeeeeet/psychologist_bot/internal/service"
	"github.com/stretchr/testify/assert"
)

func chatView(messages int, size int) *service.ChatView {
	author := int64(4)
	v := &service.ChatView{
		Chat:    model.Chat{ID: 30, StudentID: 1},
		Student: model.Student{ID: 1, FirstName: "Анна", LastName: "Белова", ClassName: "7А"},
		Authors: map[int64]string{author: "Белова Анна"},
	}
	at := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.Local)
	for i := 0; i < messages; i++ {
		v.Messages = append(v.Messages, model.ChatMessage{
			ID:        int64(i + 1),
			ChatID:    30,
			AuthorID:  &author,
			Text:      strings.Repeat("а", size),
			CreatedAt: at.Add(time.Duration(i) * time.Minute),
		})
	}
	return v
}

func TestChatScreenFitsTelegramLimit(t *testing.T) {
	text, _ := BuildChatScreen(chatView(30, 2000))
	assert.LessOrEqual(t, utf8.RuneCountInString(text), 4096)
	assert.Contains(t, text, "ранние сообщения скрыты")
	assert.Contains(t, text, "только для просмотра")
}

func TestChatScreenEscapesText(t *testing.T) {
	v := chatView(1, 0)
	v.Messages[0].Text = "<b>привет</b>"
	v.CanSend = true

	text, kb := BuildChatScreen(v)
	assert.Contains(t, text, "&lt;b&gt;привет&lt;/b&gt;")
	assert.NotContains(t, text, "ранние сообщения скрыты")
	assert.Equal(t, "chat_reply:30", kb.InlineKeyboard[0][0].CallbackData)
}

func TestChatListMarksUnread(t *testing.T) {
	chats := []model.ChatSummary{
		{Chat: model.Chat{ID: 1}, Student: model.Student{LastName: "Белова", FirstName: "Анна"}, Unread: 2},
		{Chat: model.Chat{ID: 2}, Student: model.Student{LastName: "Орлов", FirstName: "Иван"}},
	}
	text, kb := BuildChatListScreen(chats, 0)
	assert.Contains(t, text, "Непрочитанных: 2")
	assert.Equal(t, "🔴 Белова Анна (2)", kb.InlineKeyboard[0][0].Text)
	assert.Equal(t, "Орлов Иван", kb.InlineKeyboard[1][0].Text)
}
