package psychologist

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/state"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// HandleChats чаты учеников: chats:<page>
func HandleChats(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(page int64) {
			chats, err := h.Chats.List(ctx, hc.Actor())
			if err != nil {
				common.HandleError(hc, err, "list chats")
				return
			}
			text, kb := common.BuildChatListScreen(chats, int(page))
			hc.Answer("")
			if err := hc.ShowScreen(text, kb); err != nil {
				common.HandleError(hc, err, "show chats")
			}
		})
	})
}

// HandleChat переписка с учеником: chat:<id>
func HandleChat(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			hc.ClearState()
			view, err := h.Chats.View(ctx, hc.Actor(), id)
			if err != nil {
				common.HandleError(hc, err, "view chat")
				return
			}
			text, kb := common.BuildChatScreen(view)
			hc.Answer("")
			if err := hc.ShowScreen(text, kb); err != nil {
				common.HandleError(hc, err, "show chat")
			}
		})
	})
}

// HandleChatReply ждёт текст ответа: chat_reply:<id>
func HandleChatReply(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			hc.ClearState()
			hc.SetState(callbacktypes.UserState(state.StateChatReply))
			hc.SetData(state.KeyChatID, id)
			hc.Answer("")
			kb := keyboard.NewBuilder().Row(keyboard.CancelButton(fmt.Sprintf("chat:%d", id))).Build()
			if err := hc.ShowScreen(common.ChatWritePrompt, kb); err != nil {
				common.HandleError(hc, err, "show chat reply prompt")
			}
		})
	})
}
