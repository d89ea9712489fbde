package psychologist

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/state"
	"github.com/Freeeeeet/psychologist_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleConsultationList консультации по вкладкам: cons_list:<tab>:<page>
func HandleConsultationList(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		args := common.CallbackArgs(callback.Data)
		if len(args) != 2 {
			common.HandleError(hc, common.ErrInvalidFormat, "parse consultation list")
			return
		}
		tab, ok := common.ParseTab(args[0])
		page, err := strconv.Atoi(args[1])
		if !ok || err != nil {
			common.HandleError(hc, common.ErrInvalidFormat, "parse consultation list")
			return
		}

		states, err := h.Consultations.List(ctx, hc.Actor(), tab)
		if err != nil {
			common.HandleError(hc, err, "list consultations")
			return
		}

		text, kb := common.BuildConsultationListScreen(states, tab, page)
		hc.Answer("")
		if err := hc.ShowScreen(text, kb); err != nil {
			common.HandleError(hc, err, "show consultations")
		}
	})
}

// ShowConsultation карточка консультации
func ShowConsultation(hc *common.HandlerContext, id int64, answer string) {
	details, err := hc.Handler.Consultations.Get(hc.Ctx, hc.Actor(), id)
	if err != nil {
		common.HandleError(hc, err, "get consultation")
		return
	}
	text, kb := common.BuildConsultationScreen(details, hc.Actor())
	hc.Answer(answer)
	if err := hc.ShowScreen(text, kb); err != nil {
		common.HandleError(hc, err, "show consultation")
	}
}

// HandleViewConsultation карточка консультации
func HandleViewConsultation(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			ShowConsultation(hc, id, "")
		})
	})
}

// HandleCompleteConsultation отмечает консультацию проведённой
func HandleCompleteConsultation(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			change, err := h.Consultations.Complete(ctx, hc.Actor(), id)
			if err != nil {
				common.HandleError(hc, err, "complete consultation")
				return
			}
			ShowConsultation(hc, id, change.Message)
		})
	})
}

// HandleCancelConsultation спрашивает подтверждение отмены
func HandleCancelConsultation(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			text := fmt.Sprintf("❌ <b>Отмена консультации #%d</b>\n\n"+
				"Если у консультации есть заявка, она тоже будет отменена.\n\nОтменить?", id)
			common.ShowConfirm(hc, text, fmt.Sprintf("cancel_cons_ok:%d", id), fmt.Sprintf("view_cons:%d", id))
		})
	})
}

// HandleCancelConsultationConfirm отменяет консультацию
func HandleCancelConsultationConfirm(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			change, err := h.Consultations.Cancel(ctx, hc.Actor(), id)
			if err != nil {
				common.HandleError(hc, err, "cancel consultation")
				return
			}
			ShowConsultation(hc, id, change.Message)
		})
	})
}

// HandleDeleteConsultation спрашивает подтверждение удаления
func HandleDeleteConsultation(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			text := fmt.Sprintf("🗑 <b>Удаление консультации #%d</b>\n\n"+
				"Будут удалены заметки и прикреплённые файлы. Восстановить их нельзя.\n\nУдалить?", id)
			common.ShowConfirm(hc, text, fmt.Sprintf("delete_cons_ok:%d", id), fmt.Sprintf("view_cons:%d", id))
		})
	})
}

// HandleDeleteConsultationConfirm удаляет завершённую консультацию
func HandleDeleteConsultationConfirm(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			if err := h.Consultations.Delete(ctx, hc.Actor(), id); err != nil {
				common.HandleError(hc, err, "delete consultation")
				return
			}
			h.Logger.Info("Consultation deleted from bot",
				zap.Int64("user_id", hc.User.ID),
				zap.Int64("consultation_id", id))

			states, err := h.Consultations.List(ctx, hc.Actor(), service.TabPast)
			if err != nil {
				common.HandleError(hc, err, "list consultations")
				return
			}
			text, kb := common.BuildConsultationListScreen(states, service.TabPast, 0)
			hc.Answer("Консультация удалена")
			if err := hc.ShowScreen(text, kb); err != nil {
				common.HandleError(hc, err, "show consultations")
			}
		})
	})
}

// HandleConsultationResult ждёт текст результата
func HandleConsultationResult(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			hc.ClearState()
			hc.SetData(state.KeyConsultationID, id)
			common.ShowPrompt(hc, callbacktypes.UserState(state.StateConsultationResult),
				fmt.Sprintf("✏️ <b>Результат консультации #%d</b>\n\n"+
					"Опишите итог встречи, минимум 10 символов. Предыдущий текст будет заменён.", id))
		})
	})
}

// HandleConsultationNote ждёт текст заметки к консультации
func HandleConsultationNote(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			hc.ClearState()
			hc.SetData(state.KeyConsultationID, id)
			common.ShowPrompt(hc, callbacktypes.UserState(state.StateConsultationNote),
				fmt.Sprintf("📝 <b>Заметка к консультации #%d</b>\n\nОтправьте текст заметки.", id))
		})
	})
}
