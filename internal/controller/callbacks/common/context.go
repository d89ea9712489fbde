package common

import (
	"bytes"
	"context"
	"io"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// HandlerContext содержит общие данные для обработки callback
// Это избавляет от дублирования кода получения пользователя, сообщения и т.д.
type HandlerContext struct {
	Ctx        context.Context
	Bot        *bot.Bot
	Callback   *models.CallbackQuery
	Handler    *callbacktypes.Handler
	Message    *models.Message
	User       *model.User
	TelegramID int64
	ChatID     int64
}

// NewHandlerContext создаёт новый контекст обработчика
func NewHandlerContext(
	ctx context.Context,
	b *bot.Bot,
	callback *models.CallbackQuery,
	h *callbacktypes.Handler,
) *HandlerContext {
	msg := GetMessageFromCallback(callback)
	var chatID int64
	if msg != nil {
		chatID = msg.Chat.ID
	}

	return &HandlerContext{
		Ctx:        ctx,
		Bot:        b,
		Callback:   callback,
		Handler:    h,
		Message:    msg,
		TelegramID: callback.From.ID,
		ChatID:     chatID,
	}
}

// LoadUser загружает пользователя в контекст
func (hc *HandlerContext) LoadUser() error {
	user, err := hc.Handler.Users.GetByTelegramID(hc.Ctx, hc.TelegramID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	hc.User = user
	return nil
}

// RequireUser проверяет что пользователь загружен
func (hc *HandlerContext) RequireUser() error {
	if hc.User == nil {
		return hc.LoadUser()
	}
	return nil
}

// RequireStaff психолог или администратор
func (hc *HandlerContext) RequireStaff() error {
	if err := hc.RequireUser(); err != nil {
		return err
	}
	if hc.User.Role != model.RolePsychologist && hc.User.Role != model.RoleAdmin {
		return ErrNotStaff
	}
	return nil
}

// RequireAdmin проверяет что пользователь администратор
func (hc *HandlerContext) RequireAdmin() error {
	if err := hc.RequireUser(); err != nil {
		return err
	}
	if hc.User.Role != model.RoleAdmin {
		return ErrNotAdmin
	}
	return nil
}

// RequireStudent ученик с привязанной карточкой
func (hc *HandlerContext) RequireStudent() error {
	if err := hc.RequireUser(); err != nil {
		return err
	}
	if !hc.User.Actor().IsStudent() {
		return ErrNoStudentCard
	}
	return nil
}

// Actor действующее лицо для вызова сервисов
func (hc *HandlerContext) Actor() model.Actor {
	return hc.User.Actor()
}

// Answer отвечает на callback query
func (hc *HandlerContext) Answer(text string) {
	AnswerCallback(hc.Ctx, hc.Bot, hc.Callback.ID, text)
}

// AnswerAlert отвечает на callback query с alert
func (hc *HandlerContext) AnswerAlert(text string) {
	AnswerCallbackAlert(hc.Ctx, hc.Bot, hc.Callback.ID, Truncate(text, alertLimit))
}

// EditMessage редактирует сообщение
func (hc *HandlerContext) EditMessage(text string, keyboard *models.InlineKeyboardMarkup) error {
	if hc.Message == nil {
		return ErrNoMessage
	}

	params := &bot.EditMessageTextParams{
		ChatID:    hc.ChatID,
		MessageID: hc.Message.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	_, err := hc.Bot.EditMessageText(hc.Ctx, params)

	// Игнорируем ошибку "message is not modified" - это не настоящая ошибка
	if IsMessageNotModifiedError(err) {
		return nil
	}

	return err
}

// DeleteMessage удаляет сообщение
func (hc *HandlerContext) DeleteMessage() error {
	if hc.Message == nil {
		return ErrNoMessage
	}

	_, err := hc.Bot.DeleteMessage(hc.Ctx, &bot.DeleteMessageParams{
		ChatID:    hc.ChatID,
		MessageID: hc.Message.ID,
	})

	return err
}

// SendMessage отправляет новое сообщение
func (hc *HandlerContext) SendMessage(text string, keyboard *models.InlineKeyboardMarkup) error {
	params := &bot.SendMessageParams{
		ChatID:    hc.ChatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	_, err := hc.Bot.SendMessage(hc.Ctx, params)
	return err
}

// SendPhoto отправляет картинку из памяти
func (hc *HandlerContext) SendPhoto(filename string, data []byte, caption string) error {
	_, err := hc.Bot.SendPhoto(hc.Ctx, &bot.SendPhotoParams{
		ChatID:    hc.ChatID,
		Photo:     &models.InputFileUpload{Filename: filename, Data: bytes.NewReader(data)},
		Caption:   caption,
		ParseMode: models.ParseModeHTML,
	})
	return err
}

// SendDocument отправляет файл из памяти
func (hc *HandlerContext) SendDocument(filename string, data []byte, caption string) error {
	return hc.SendFile(filename, bytes.NewReader(data), caption)
}

// SendFile отправляет файл, содержимое читается из r
func (hc *HandlerContext) SendFile(filename string, r io.Reader, caption string) error {
	_, err := hc.Bot.SendDocument(hc.Ctx, &bot.SendDocumentParams{
		ChatID:    hc.ChatID,
		Document:  &models.InputFileUpload{Filename: filename, Data: r},
		Caption:   caption,
		ParseMode: models.ParseModeHTML,
	})
	return err
}

// ShowScreen редактирует сообщение, а если это невозможно (например, это фото), отправляет новое
func (hc *HandlerContext) ShowScreen(text string, keyboard *models.InlineKeyboardMarkup) error {
	if err := hc.EditMessage(text, keyboard); err != nil {
		return hc.SendMessage(text, keyboard)
	}
	return nil
}

// ClearState очищает состояние пользователя
func (hc *HandlerContext) ClearState() {
	hc.Handler.StateManager.ClearState(hc.TelegramID)
}

// SetState устанавливает состояние пользователя
func (hc *HandlerContext) SetState(state callbacktypes.UserState) {
	hc.Handler.StateManager.SetState(hc.TelegramID, state)
}

// SetData устанавливает данные в state
func (hc *HandlerContext) SetData(key string, value interface{}) {
	hc.Handler.StateManager.SetData(hc.TelegramID, key, value)
}

// GetData получает данные из state
func (hc *HandlerContext) GetData(key string) (interface{}, bool) {
	return hc.Handler.StateManager.GetData(hc.TelegramID, key)
}
