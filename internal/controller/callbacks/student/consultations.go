package student

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleMyConsultations консультации ученика
func HandleMyConsultations(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStudent(ctx, b, callback, h, func(hc *common.HandlerContext) {
		items, err := h.Consultations.ListForStudent(ctx, hc.Actor())
		if err != nil {
			common.HandleError(hc, err, "list own consultations")
			return
		}

		text, kb := common.BuildStudentConsultationsScreen(items)
		hc.Answer("")
		if err := hc.ShowScreen(text, kb); err != nil {
			common.HandleError(hc, err, "show own consultations")
		}
	})
}

// HandleMyConsultation карточка консультации для ученика
func HandleMyConsultation(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStudent(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			showConsultation(hc, id, "")
		})
	})
}

func showConsultation(hc *common.HandlerContext, id int64, answer string) {
	details, err := hc.Handler.Consultations.Get(hc.Ctx, hc.Actor(), id)
	if err != nil {
		common.HandleError(hc, err, "get own consultation")
		return
	}
	text, kb := common.BuildStudentConsultationScreen(details, *hc.User.StudentID)
	hc.Answer(answer)
	if err := hc.ShowScreen(text, kb); err != nil {
		common.HandleError(hc, err, "show own consultation")
	}
}

// HandleConfirmParticipation ученик подтверждает, что придёт
func HandleConfirmParticipation(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStudent(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			change, err := h.Participation.Confirm(ctx, hc.Actor(), id)
			if err != nil {
				common.HandleError(hc, err, "confirm participation")
				return
			}
			showConsultation(hc, id, change.Message)
		})
	})
}

// HandleDeclineParticipation спрашивает подтверждение отказа
func HandleDeclineParticipation(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStudent(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			text := "🚫 <b>Отказ от консультации</b>\n\n" +
				"Консультация будет отменена, заявка тоже. Если понадобится помощь, можно обратиться снова.\n\n" +
				"Отказаться?"
			common.ShowConfirm(hc, text, fmt.Sprintf("decline_part_ok:%d", id), fmt.Sprintf("my_cons:%d", id))
		})
	})
}

// HandleDeclineParticipationConfirm ученик отказывается от участия
func HandleDeclineParticipationConfirm(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStudent(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			change, err := h.Participation.Cancel(ctx, hc.Actor(), id)
			if err != nil {
				common.HandleError(hc, err, "decline participation")
				return
			}
			h.Logger.Info("Student declined consultation",
				zap.Int64("user_id", hc.User.ID),
				zap.Int64("consultation_id", id))
			showConsultation(hc, id, change.Message)
		})
	})
}

// HandleFeed лента уведомлений
func HandleFeed(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStudent(ctx, b, callback, h, func(hc *common.HandlerContext) {
		feed, err := h.Notifications.Feed(ctx, hc.Actor(), 0)
		if err != nil {
			common.HandleError(hc, err, "get feed")
			return
		}
		text, kb := common.BuildFeedScreen(feed)
		hc.Answer("")
		if err := hc.ShowScreen(text, kb); err != nil {
			common.HandleError(hc, err, "show feed")
		}
	})
}
