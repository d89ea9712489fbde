package student

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/state"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// NewOwnRequestPrompt приглашение описать обращение
const NewOwnRequestPrompt = "📝 <b>Обращение к психологу</b>\n\n" +
	"Коротко опишите, что вас беспокоит. Текст увидит только психолог.\n" +
	"Можно отправить обращение и без комментария."

// NewOwnRequestKeyboard кнопки шага ввода комментария
func NewOwnRequestKeyboard() *models.InlineKeyboardMarkup {
	return keyboard.NewBuilder().
		Row(keyboard.Button("📨 Отправить без комментария", "submit_own_request")).
		Row(keyboard.CancelButton("cancel_dialog")).
		Build()
}

// HandleMyRequests список заявок ученика
func HandleMyRequests(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStudent(ctx, b, callback, h, func(hc *common.HandlerContext) {
		requests, err := h.Requests.ListForStudent(ctx, hc.Actor())
		if err != nil {
			common.HandleError(hc, err, "list own requests")
			return
		}

		text, kb := common.BuildStudentRequestsScreen(requests)
		hc.Answer("")
		if err := hc.ShowScreen(text, kb); err != nil {
			common.HandleError(hc, err, "show own requests")
		}
	})
}

// HandleMyRequest карточка своей заявки
func HandleMyRequest(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStudent(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			showRequest(hc, id, "")
		})
	})
}

func showRequest(hc *common.HandlerContext, id int64, answer string) {
	details, err := hc.Handler.Requests.Get(hc.Ctx, hc.Actor(), id)
	if err != nil {
		common.HandleError(hc, err, "get own request")
		return
	}
	text, kb := common.BuildStudentRequestScreen(details)
	hc.Answer(answer)
	if err := hc.ShowScreen(text, kb); err != nil {
		common.HandleError(hc, err, "show own request")
	}
}

// HandleCancelMyRequest ученик отзывает свою заявку
func HandleCancelMyRequest(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStudent(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			change, err := h.Requests.Cancel(ctx, hc.Actor(), id)
			if err != nil {
				common.HandleError(hc, err, "cancel own request")
				return
			}
			h.Logger.Info("Student cancelled request",
				zap.Int64("user_id", hc.User.ID),
				zap.Int64("request_id", id),
				zap.Bool("noop", change.IsNoop()))
			showRequest(hc, id, change.Message)
		})
	})
}

// HandleNewOwnRequest начинает обращение: ждём комментарий
func HandleNewOwnRequest(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStudent(ctx, b, callback, h, func(hc *common.HandlerContext) {
		hc.ClearState()
		hc.SetState(callbacktypes.UserState(state.StateNewRequestComment))
		hc.Answer("")
		if err := hc.ShowScreen(NewOwnRequestPrompt, NewOwnRequestKeyboard()); err != nil {
			common.HandleError(hc, err, "show new request prompt")
		}
	})
}

// HandleSubmitOwnRequest отправляет обращение без комментария
func HandleSubmitOwnRequest(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStudent(ctx, b, callback, h, func(hc *common.HandlerContext) {
		hc.ClearState()
		req, err := h.Requests.SubmitOwn(ctx, hc.Actor(), "")
		if err != nil {
			common.HandleError(hc, err, "submit own request")
			return
		}
		showRequest(hc, req.ID, fmt.Sprintf("Заявка #%d отправлена", req.ID))
	})
}
