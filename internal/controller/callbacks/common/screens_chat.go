package common

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/Freeeeeet/psychologist_bot/internal/service"
	"github.com/go-telegram/bot/models"
)

const (
	// chatTextBudget запас до лимита сообщения Telegram в 4096 символов
	chatTextBudget   = 3500
	chatMessageLimit = 600
)

// ChatWritePrompt приглашение написать сообщение
const ChatWritePrompt = "✍️ <b>Новое сообщение</b>\n\nНапишите сообщение одним текстом. Для отмены используйте /cancel"

// chatHistory последние сообщения, которые помещаются в экран
func chatHistory(v *service.ChatView) string {
	if len(v.Messages) == 0 {
		return "Сообщений пока нет.\n"
	}

	var blocks []string
	size := 0
	for i := len(v.Messages) - 1; i >= 0; i-- {
		m := v.Messages[i]
		block := fmt.Sprintf("<b>%s</b> · %s\n%s\n",
			Esc(v.AuthorName(m)),
			formatting.FormatDateTime(m.CreatedAt),
			Esc(Truncate(m.Text, chatMessageLimit)))
		size += utf8.RuneCountInString(block)
		if size > chatTextBudget && len(blocks) > 0 {
			break
		}
		blocks = append(blocks, block)
	}

	var sb strings.Builder
	if len(blocks) < len(v.Messages) {
		sb.WriteString("<i>… ранние сообщения скрыты</i>\n\n")
	}
	for i := len(blocks) - 1; i >= 0; i-- {
		sb.WriteString(blocks[i])
		sb.WriteString("\n")
	}
	return sb.String()
}

// BuildStudentChatScreen чат ученика с психологом
func BuildStudentChatScreen(v *service.ChatView) (string, *models.InlineKeyboardMarkup) {
	var sb strings.Builder
	sb.WriteString("💬 <b>Чат с психологом</b>\n")
	if v.Psychologist != nil {
		fmt.Fprintf(&sb, "Психолог: %s\n", Esc(v.Psychologist.DisplayName()))
	}
	sb.WriteString("\n")
	sb.WriteString(chatHistory(v))

	kb := keyboard.NewBuilder().
		Row(keyboard.Button("✍️ Написать", "chat_write"), keyboard.Button("🔄 Обновить", "my_chat")).
		AddBackToMainButton()
	return sb.String(), kb.Build()
}

// BuildChatListScreen чаты учеников для психолога
func BuildChatListScreen(chats []model.ChatSummary, page int) (string, *models.InlineKeyboardMarkup) {
	from, to, page, pages := keyboard.Page(len(chats), page)

	unread := 0
	for _, c := range chats {
		unread += c.Unread
	}
	var sb strings.Builder
	sb.WriteString("💬 <b>Чаты с учениками</b>\n\n")
	if len(chats) == 0 {
		sb.WriteString("Ученики ещё не писали.")
	} else {
		fmt.Fprintf(&sb, "Всего: %d", len(chats))
		if unread > 0 {
			fmt.Fprintf(&sb, "\nНепрочитанных: %d", unread)
		}
	}

	kb := keyboard.NewBuilder()
	for _, c := range chats[from:to] {
		label := StudentLabel(&c.Student)
		if c.Unread > 0 {
			label = fmt.Sprintf("🔴 %s (%d)", label, c.Unread)
		}
		kb.Row(keyboard.Button(label, fmt.Sprintf("chat:%d", c.ID)))
	}
	kb.AddPagination("chats:", page, pages)
	kb.AddBackToMainButton()
	return sb.String(), kb.Build()
}

// BuildChatScreen чат для психолога или администратора
func BuildChatScreen(v *service.ChatView) (string, *models.InlineKeyboardMarkup) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "💬 <b>Чат: %s</b>\n", Esc(StudentLabel(&v.Student)))
	if v.Psychologist != nil {
		fmt.Fprintf(&sb, "Психолог: %s\n", Esc(v.Psychologist.DisplayName()))
	}
	sb.WriteString("\n")
	sb.WriteString(chatHistory(v))
	if !v.CanSend {
		sb.WriteString("<i>Переписка доступна только для просмотра.</i>")
	}

	kb := keyboard.NewBuilder()
	if v.CanSend {
		kb.Row(keyboard.Button("✍️ Ответить", fmt.Sprintf("chat_reply:%d", v.Chat.ID)))
	}
	kb.Row(keyboard.Button("🔄 Обновить", fmt.Sprintf("chat:%d", v.Chat.ID)))
	kb.AddBackButton("chats:0")
	return sb.String(), kb.Build()
}

// ChatPushText уведомление о новом сообщении
func ChatPushText(from string, msg model.ChatMessage) string {
	return fmt.Sprintf("💬 <b>Сообщение от %s</b>\n\n%s", Esc(from), Esc(Truncate(msg.Text, chatMessageLimit)))
}
