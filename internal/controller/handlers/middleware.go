package handlers

import (
	"context"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// requireUser проверяет что пользователь существует
// Возвращает user и true если OK, nil и false если нет
func (h *Handlers) requireUser(ctx context.Context, b *bot.Bot, update *models.Update) (*model.User, bool) {
	if update.Message == nil || update.Message.From == nil {
		return nil, false
	}

	telegramID := update.Message.From.ID
	user, err := h.services.Users.GetByTelegramID(ctx, telegramID)

	if err != nil {
		h.logger.Error("Failed to get user", zap.Int64("telegram_id", telegramID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Произошла ошибка. Попробуйте позже.")
		return nil, false
	}

	if user == nil {
		h.sendError(ctx, b, update.Message.Chat.ID, common.ErrorMessage(common.ErrUserNotFound))
		return nil, false
	}

	return user, true
}

// requireStaff пропускает психологов и администраторов
func (h *Handlers) requireStaff(ctx context.Context, b *bot.Bot, update *models.Update) (*model.User, bool) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return nil, false
	}

	if user.Role != model.RolePsychologist && user.Role != model.RoleAdmin {
		h.sendError(ctx, b, update.Message.Chat.ID, common.ErrorMessage(common.ErrNotStaff))
		return nil, false
	}

	return user, true
}

// requireAdmin пропускает только администраторов
func (h *Handlers) requireAdmin(ctx context.Context, b *bot.Bot, update *models.Update) (*model.User, bool) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return nil, false
	}

	if user.Role != model.RoleAdmin {
		h.sendError(ctx, b, update.Message.Chat.ID, common.ErrorMessage(common.ErrNotAdmin))
		return nil, false
	}

	return user, true
}

// requireStudent пропускает ученика с привязанной карточкой
func (h *Handlers) requireStudent(ctx context.Context, b *bot.Bot, update *models.Update) (*model.User, bool) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return nil, false
	}

	if !user.Actor().IsStudent() {
		h.sendError(ctx, b, update.Message.Chat.ID, common.ErrorMessage(common.ErrNoStudentCard))
		return nil, false
	}

	return user, true
}

// replyError логирует ошибку операции и сообщает пользователю причину.
// Отказы ядра логируются как Warn, остальное как Error.
func (h *Handlers) replyError(ctx context.Context, b *bot.Bot, chatID int64, err error, operation string) {
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.Int64("chat_id", chatID),
		zap.Error(err),
	}
	if common.IsUserError(err) {
		h.logger.Warn("Operation rejected", fields...)
	} else {
		h.logger.Error("Operation failed", fields...)
	}
	h.sendError(ctx, b, chatID, common.ErrorMessage(err))
}

// sendError отправляет сообщение об ошибке и логирует если не удалось
func (h *Handlers) sendError(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send error message",
			zap.Int64("chat_id", chatID),
			zap.String("text", text),
			zap.Error(err),
		)
	}
}

// sendMessage отправляет сообщение и логирует если не удалось
func (h *Handlers) sendMessage(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	h.sendScreen(ctx, b, chatID, text, nil)
}

// sendScreen отправляет экран: HTML-текст и клавиатуру
func (h *Handlers) sendScreen(ctx context.Context, b *bot.Bot, chatID int64, text string, kb *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if kb != nil {
		params.ReplyMarkup = kb
	}

	if _, err := b.SendMessage(ctx, params); err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}

// sendPrompt отправляет подсказку шага диалога с кнопкой отмены
func (h *Handlers) sendPrompt(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	h.sendScreen(ctx, b, chatID, text, common.PromptKeyboard())
}
