package controller

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Notifier доставляет события ленты и сообщения чатов личным сообщением
type Notifier struct {
	bot *bot.Bot
}

func NewNotifier(b *bot.Bot) *Notifier {
	return &Notifier{bot: b}
}

// Push отправляет событие в чат владельца аккаунта
func (n *Notifier) Push(ctx context.Context, recipient model.User, event model.Notification) error {
	if !recipient.IsActive {
		return nil
	}

	params := &bot.SendMessageParams{
		ChatID:    recipient.TelegramID,
		Text:      common.NotificationText(event),
		ParseMode: models.ParseModeHTML,
	}
	switch {
	case event.ConsultationID != nil:
		params.ReplyMarkup = keyboard.NewBuilder().
			Row(keyboard.Button("🗓 Открыть консультацию", fmt.Sprintf("my_cons:%d", *event.ConsultationID))).
			Build()
	case event.RequestID != nil:
		params.ReplyMarkup = keyboard.NewBuilder().
			Row(keyboard.Button("📋 Открыть заявку", fmt.Sprintf("my_req:%d", *event.RequestID))).
			Build()
	}

	if _, err := n.bot.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("push notification %d to user %d: %w", event.ID, recipient.ID, err)
	}
	return nil
}

// PushChat сообщает собеседнику о новом сообщении в чате
func (n *Notifier) PushChat(ctx context.Context, recipient model.User, from string, msg model.ChatMessage) error {
	if !recipient.IsActive {
		return nil
	}

	open := keyboard.Button("💬 Открыть чат", fmt.Sprintf("chat:%d", msg.ChatID))
	if recipient.Role == model.RoleStudent {
		open = keyboard.Button("💬 Открыть чат", "my_chat")
	}
	params := &bot.SendMessageParams{
		ChatID:      recipient.TelegramID,
		Text:        common.ChatPushText(from, msg),
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: keyboard.NewBuilder().Row(open).Build(),
	}

	if _, err := n.bot.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("push chat message %d to user %d: %w", msg.ID, recipient.ID, err)
	}
	return nil
}
