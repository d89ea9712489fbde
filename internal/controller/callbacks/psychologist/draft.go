package psychologist

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/state"
	"github.com/Freeeeeet/psychologist_bot/internal/lifecycle"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// DatePrompt подсказка шага ввода даты
const DatePrompt = "Введите дату в формате ДД.ММ.ГГГГ, например 05.03.2026."

// TimePrompt подсказка шага ввода времени
const TimePrompt = "Введите время в формате ЧЧ:ММ-ЧЧ:ММ, например 10:00-10:45.\n" +
	"Рабочий день с 08:30 до 16:00, длительность не больше 120 минут."

// HandleNewConsultation начинает планирование: new_cons:<request> (0 - без заявки)
func HandleNewConsultation(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(requestID int64) {
			if err := lifecycle.CanManageConsultation(hc.Actor()); err != nil {
				common.HandleError(hc, err, "new consultation")
				return
			}

			draft := &common.ConsultationDraft{RequestID: requestID}
			header := "🗓 <b>Новая консультация</b>\n\n"
			if requestID != 0 {
				details, err := h.Requests.Get(ctx, hc.Actor(), requestID)
				if err != nil {
					common.HandleError(hc, err, "get request")
					return
				}
				draft.Students = []int64{details.Request.StudentID}
				header += fmt.Sprintf("📋 Заявка #%d: %s\n\n", requestID, common.Esc(common.StudentLabel(details.Request.Student)))
			}

			hc.ClearState()
			hc.SetData(state.KeyDraft, draft)
			common.ShowPrompt(hc, callbacktypes.UserState(state.StateConsultationDate), header+DatePrompt)
		})
	})
}

// HandleEditConsultation перенос консультации: новые дата, время и состав участников
func HandleEditConsultation(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			details, err := h.Consultations.Get(ctx, hc.Actor(), id)
			if err != nil {
				common.HandleError(hc, err, "get consultation")
				return
			}
			c := details.Consultation
			if err := lifecycle.CanManageConsultation(hc.Actor()); err != nil {
				common.HandleError(hc, err, "edit consultation")
				return
			}

			draft := &common.ConsultationDraft{
				ConsultationID: c.ID,
				Date:           c.Date,
				Result:         c.Result,
			}
			if c.RequestID != nil {
				draft.RequestID = *c.RequestID
			}
			for _, l := range details.Links {
				draft.Students = append(draft.Students, l.StudentID)
			}

			hc.ClearState()
			hc.SetData(state.KeyDraft, draft)
			text := fmt.Sprintf("📅 <b>Перенос консультации #%d</b>\n\nСейчас: %s, %s\n\n%s",
				c.ID,
				formatting.FormatDateWithWeekday(c.Date),
				formatting.FormatTimeRange(c.StartTime, c.EndTime),
				DatePrompt)
			common.ShowPrompt(hc, callbacktypes.UserState(state.StateConsultationDate), text)
		})
	})
}

func draftFromState(hc *common.HandlerContext) (*common.ConsultationDraft, bool) {
	if hc.Handler.StateManager.GetState(hc.TelegramID) != callbacktypes.UserState(state.StateConsultationStudents) {
		return nil, false
	}
	return common.GetDraft(hc.Handler.StateManager, hc.TelegramID)
}

func showPicker(hc *common.HandlerContext, draft *common.ConsultationDraft) {
	students, err := hc.Handler.Users.ListStudents(hc.Ctx, hc.Actor())
	if err != nil {
		common.HandleError(hc, err, "list students")
		return
	}
	text, kb := common.BuildPickParticipantsScreen(draft.Header(), students, draft.Students, draft.Page)
	hc.Answer("")
	if err := hc.ShowScreen(text, kb); err != nil {
		common.HandleError(hc, err, "show participant picker")
	}
}

// HandlePickParticipant отмечает или снимает ученика: cons_pick:<student>
func HandlePickParticipant(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(studentID int64) {
			draft, ok := draftFromState(hc)
			if !ok {
				hc.AnswerAlert("⏳ Черновик устарел, начните заново")
				return
			}
			draft.Toggle(studentID)
			showPicker(hc, draft)
		})
	})
}

// HandlePickParticipantPage листает список учеников: cons_pick_page:<page>
func HandlePickParticipantPage(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(page int64) {
			draft, ok := draftFromState(hc)
			if !ok {
				hc.AnswerAlert("⏳ Черновик устарел, начните заново")
				return
			}
			draft.Page = int(page)
			showPicker(hc, draft)
		})
	})
}

// HandleSaveConsultation создаёт консультацию или сохраняет перенос
func HandleSaveConsultation(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		draft, ok := draftFromState(hc)
		if !ok {
			hc.AnswerAlert("⏳ Черновик устарел, начните заново")
			return
		}

		var (
			change lifecycle.Change
			err    error
		)
		if draft.ConsultationID != 0 {
			change, err = h.Consultations.Update(ctx, hc.Actor(), draft.ConsultationID, draft.Input())
		} else {
			change, err = h.Consultations.Create(ctx, hc.Actor(), draft.Input())
		}
		if err != nil {
			// черновик остаётся, можно поправить участников
			common.HandleError(hc, err, "save consultation")
			return
		}

		hc.ClearState()
		id := draft.ConsultationID
		if change.Consultation != nil {
			id = change.Consultation.ID
		}
		h.Logger.Info("Consultation saved from bot",
			zap.Int64("user_id", hc.User.ID),
			zap.Int64("consultation_id", id),
			zap.Int("students", len(draft.Students)))
		ShowConsultation(hc, id, change.Message)
	})
}
