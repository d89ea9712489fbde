package common

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func answer(ctx context.Context, b *bot.Bot, callbackID, text string, alert bool) {
	_, _ = b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
}

// AnswerCallback короткая подсказка над клавиатурой
func AnswerCallback(ctx context.Context, b *bot.Bot, callbackID string, text string) {
	answer(ctx, b, callbackID, text, false)
}

// AnswerCallbackAlert всплывающее окно, которое нужно закрыть
func AnswerCallbackAlert(ctx context.Context, b *bot.Bot, callbackID string, text string) {
	answer(ctx, b, callbackID, text, true)
}

// GetMessageFromCallback сообщение с кнопкой. nil, если оно уже недоступно боту.
func GetMessageFromCallback(callback *models.CallbackQuery) *models.Message {
	return callback.Message.Message
}

// CallbackArgs части callback data после заголовка
// "req_list:new:2" -> ["new", "2"]
func CallbackArgs(data string) []string {
	_, rest, ok := strings.Cut(data, ":")
	if !ok {
		return nil
	}
	return strings.Split(rest, ":")
}

// CallbackIDs ровно n числовых аргументов
// "assign_to:12:5" -> [12 5]
func CallbackIDs(data string, n int) ([]int64, error) {
	args := CallbackArgs(data)
	if len(args) != n {
		return nil, fmt.Errorf("callback %q: want %d args, got %d", data, n, len(args))
	}
	ids := make([]int64, n)
	for i, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("callback %q: %w", data, err)
		}
		ids[i] = id
	}
	return ids, nil
}

// ParseIDFromCallback "view_req:123" -> 123
func ParseIDFromCallback(data string) (int64, error) {
	ids, err := CallbackIDs(data, 1)
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// ParseIDsFromCallback "assign_to:12:5" -> 12, 5
func ParseIDsFromCallback(data string) (int64, int64, error) {
	ids, err := CallbackIDs(data, 2)
	if err != nil {
		return 0, 0, err
	}
	return ids[0], ids[1], nil
}

// IsMessageNotModifiedError Telegram отвечает ошибкой, если текст и клавиатура не изменились
func IsMessageNotModifiedError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}
