package common

import (
	"context"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common/keyboard"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// ShowMainMenu показывает главное меню текущего пользователя
func ShowMainMenu(hc *HandlerContext) {
	text, kb := BuildMainMenu(hc.User)
	if err := hc.ShowScreen(text, kb); err != nil {
		HandleError(hc, err, "show main menu")
	}
}

// HandleMainMenu возвращает в главное меню и сбрасывает диалог
func HandleMainMenu(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	WithUser(ctx, b, callback, h, func(hc *HandlerContext) {
		hc.ClearState()
		hc.Answer("")
		ShowMainMenu(hc)
	})
}

// HandleCancelDialog прерывает ввод данных
func HandleCancelDialog(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	WithUser(ctx, b, callback, h, func(hc *HandlerContext) {
		hc.ClearState()
		hc.Answer("Отменено")
		ShowMainMenu(hc)
	})
}

// HandleNoop подтверждает нажатие на неактивную кнопку
func HandleNoop(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, _ *callbacktypes.Handler) {
	AnswerCallback(ctx, b, callback.ID, "")
}

// ShowConfirm экран подтверждения необратимого действия
func ShowConfirm(hc *HandlerContext, text, confirmData, backData string) {
	kb := keyboard.NewBuilder().AddRows(keyboard.ConfirmCancelButtons(confirmData, backData)).Build()
	hc.Answer("")
	if err := hc.ShowScreen(text, kb); err != nil {
		HandleError(hc, err, "show confirmation")
	}
}

// PromptKeyboard клавиатура шага ввода текста
func PromptKeyboard() *models.InlineKeyboardMarkup {
	return keyboard.NewBuilder().Row(keyboard.CancelButton("cancel_dialog")).Build()
}

// ShowPrompt переводит диалог в состояние ввода и показывает подсказку
func ShowPrompt(hc *HandlerContext, st callbacktypes.UserState, text string) {
	hc.SetState(st)
	hc.Answer("")
	if err := hc.ShowScreen(text, PromptKeyboard()); err != nil {
		HandleError(hc, err, "show prompt")
	}
}
