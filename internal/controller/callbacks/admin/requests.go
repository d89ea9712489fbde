package admin

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/psychologist"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleDeleteRequest спрашивает подтверждение удаления заявки
func HandleDeleteRequest(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithAdmin(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			text := fmt.Sprintf("🗑 <b>Удаление заявки #%d</b>\n\n"+
				"Заметки к заявке будут удалены, консультации останутся без заявки.\n\nУдалить?", id)
			common.ShowConfirm(hc, text, fmt.Sprintf("delete_req_ok:%d", id), fmt.Sprintf("view_req:%d", id))
		})
	})
}

// HandleDeleteRequestConfirm удаляет закрытую заявку
func HandleDeleteRequestConfirm(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithAdmin(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			if err := h.Requests.Delete(ctx, hc.Actor(), id); err != nil {
				common.HandleError(hc, err, "delete request")
				return
			}
			h.Logger.Info("Request deleted from bot",
				zap.Int64("user_id", hc.User.ID),
				zap.Int64("request_id", id))

			requests, err := h.Requests.List(ctx, hc.Actor(), "")
			if err != nil {
				common.HandleError(hc, err, "list requests")
				return
			}
			text, kb := common.BuildRequestListScreen(requests, hc.Actor(), common.StatusFilterAll, 0)
			hc.Answer("Заявка удалена")
			if err := hc.ShowScreen(text, kb); err != nil {
				common.HandleError(hc, err, "show requests")
			}
		})
	})
}

// HandleAssignPsychologist выбор психолога для заявки консультации: assign_psy:<consultation>
func HandleAssignPsychologist(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithAdmin(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			psychologists, err := h.Users.ListPsychologists(ctx, hc.Actor())
			if err != nil {
				common.HandleError(hc, err, "list psychologists")
				return
			}
			text, kb := common.BuildPickPsychologistScreen(id, psychologists)
			hc.Answer("")
			if err := hc.ShowScreen(text, kb); err != nil {
				common.HandleError(hc, err, "show psychologists")
			}
		})
	})
}

// HandleAssignTo назначает психолога: assign_to:<consultation>:<user>
func HandleAssignTo(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithAdmin(ctx, b, callback, h, func(hc *common.HandlerContext) {
		consultationID, userID, err := common.ParseIDsFromCallback(callback.Data)
		if err != nil {
			common.HandleError(hc, common.ErrInvalidFormat, "parse assign")
			return
		}
		change, err := h.Consultations.AssignPsychologist(ctx, hc.Actor(), consultationID, userID)
		if err != nil {
			common.HandleError(hc, err, "assign psychologist")
			return
		}
		psychologist.ShowConsultation(hc, consultationID, change.Message)
	})
}
