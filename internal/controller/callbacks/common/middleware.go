package common

import (
	"context"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/callbacktypes"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// with создаёт HandlerContext и выполняет проверку доступа.
// При ошибке отвечает пользователю и не вызывает handler.
func with(
	ctx context.Context,
	b *bot.Bot,
	callback *models.CallbackQuery,
	h *callbacktypes.Handler,
	check func(*HandlerContext) error,
	handler func(*HandlerContext),
) {
	hc := NewHandlerContext(ctx, b, callback, h)

	if err := check(hc); err != nil {
		h.Logger.Warn("Access check failed",
			zap.Int64("telegram_id", hc.TelegramID),
			zap.String("data", callback.Data),
			zap.Error(err))
		hc.AnswerAlert(ErrorMessage(err))
		return
	}

	handler(hc)
}

// WithUser создаёт HandlerContext и загружает пользователя
func WithUser(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler, handler func(*HandlerContext)) {
	with(ctx, b, callback, h, (*HandlerContext).LoadUser, handler)
}

// WithStaff пропускает только психологов и администраторов
func WithStaff(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler, handler func(*HandlerContext)) {
	with(ctx, b, callback, h, (*HandlerContext).RequireStaff, handler)
}

// WithAdmin пропускает только администраторов
func WithAdmin(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler, handler func(*HandlerContext)) {
	with(ctx, b, callback, h, (*HandlerContext).RequireAdmin, handler)
}

// WithStudent пропускает только учеников с привязанной карточкой
func WithStudent(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler, handler func(*HandlerContext)) {
	with(ctx, b, callback, h, (*HandlerContext).RequireStudent, handler)
}

// WithID разбирает ID из callback data и передаёт его в handler
func WithID(hc *HandlerContext, handler func(id int64)) {
	id, err := ParseIDFromCallback(hc.Callback.Data)
	if err != nil {
		HandleError(hc, ErrInvalidFormat, "parse callback id")
		return
	}
	handler(id)
}

// HandleError обрабатывает ошибку и отправляет ответ пользователю.
// Отказы ядра логируются как Warn, остальное как Error.
func HandleError(hc *HandlerContext, err error, operation string) {
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.Int64("telegram_id", hc.TelegramID),
		zap.Error(err),
	}
	if IsUserError(err) {
		hc.Handler.Logger.Warn("Operation rejected", fields...)
	} else {
		hc.Handler.Logger.Error("Operation failed", fields...)
	}
	hc.AnswerAlert(ErrorMessage(err))
}

// LogAndAnswer логирует действие и отвечает на callback
func LogAndAnswer(hc *HandlerContext, message string, answer string) {
	hc.Handler.Logger.Info(message,
		zap.Int64("telegram_id", hc.TelegramID),
		zap.Int64("user_id", hc.User.ID))
	hc.Answer(answer)
}
