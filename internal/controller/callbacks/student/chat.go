package student

import (
	"context"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/state"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// HandleMyChat чат с психологом
func HandleMyChat(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStudent(ctx, b, callback, h, func(hc *common.HandlerContext) {
		view, err := h.Chats.Open(ctx, hc.Actor())
		if err != nil {
			common.HandleError(hc, err, "open chat")
			return
		}
		text, kb := common.BuildStudentChatScreen(view)
		hc.Answer("")
		if err := hc.ShowScreen(text, kb); err != nil {
			common.HandleError(hc, err, "show chat")
		}
	})
}

// HandleChatWrite ждёт текст сообщения психологу
func HandleChatWrite(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStudent(ctx, b, callback, h, func(hc *common.HandlerContext) {
		hc.ClearState()
		hc.SetState(callbacktypes.UserState(state.StateChatMessage))
		hc.Answer("")
		kb := keyboard.NewBuilder().Row(keyboard.CancelButton("my_chat")).Build()
		if err := hc.ShowScreen(common.ChatWritePrompt, kb); err != nil {
			common.HandleError(hc, err, "show chat prompt")
		}
	})
}
