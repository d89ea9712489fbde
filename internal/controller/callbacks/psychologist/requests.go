package psychologist

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/state"
	"github.com/Freeeeeet/psychologist_bot/internal/lifecycle"
	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleRequestList список заявок: req_list:<status|all>:<page>
func HandleRequestList(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		args := common.CallbackArgs(callback.Data)
		if len(args) != 2 {
			common.HandleError(hc, common.ErrInvalidFormat, "parse request list")
			return
		}
		status, ok := common.ParseStatusFilter(args[0])
		page, err := strconv.Atoi(args[1])
		if !ok || err != nil {
			common.HandleError(hc, common.ErrInvalidFormat, "parse request list")
			return
		}

		requests, err := h.Requests.List(ctx, hc.Actor(), status)
		if err != nil {
			common.HandleError(hc, err, "list requests")
			return
		}

		text, kb := common.BuildRequestListScreen(requests, hc.Actor(), args[0], page)
		hc.Answer("")
		if err := hc.ShowScreen(text, kb); err != nil {
			common.HandleError(hc, err, "show requests")
		}
	})
}

// ShowRequest карточка заявки, answer показывается во всплывающей подсказке
func ShowRequest(hc *common.HandlerContext, id int64, answer string) {
	details, err := hc.Handler.Requests.Get(hc.Ctx, hc.Actor(), id)
	if err != nil {
		common.HandleError(hc, err, "get request")
		return
	}
	text, kb := common.BuildRequestScreen(details, hc.Actor())
	hc.Answer(answer)
	if err := hc.ShowScreen(text, kb); err != nil {
		common.HandleError(hc, err, "show request")
	}
}

// HandleViewRequest карточка заявки
func HandleViewRequest(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			ShowRequest(hc, id, "")
		})
	})
}

// HandleCompleteRequest завершает заявку
func HandleCompleteRequest(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			change, err := h.Requests.Complete(ctx, hc.Actor(), id)
			if err != nil {
				common.HandleError(hc, err, "complete request")
				return
			}
			ShowRequest(hc, id, change.Message)
		})
	})
}

// HandleCancelRequest спрашивает подтверждение отмены заявки
func HandleCancelRequest(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			text := fmt.Sprintf("❌ <b>Отмена заявки #%d</b>\n\n"+
				"Запланированные консультации по заявке останутся без изменений, ученик получит уведомление.\n\n"+
				"Отменить заявку?", id)
			common.ShowConfirm(hc, text, fmt.Sprintf("cancel_req_ok:%d", id), fmt.Sprintf("view_req:%d", id))
		})
	})
}

// HandleCancelRequestConfirm отменяет заявку
func HandleCancelRequestConfirm(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			change, err := h.Requests.Cancel(ctx, hc.Actor(), id)
			if err != nil {
				common.HandleError(hc, err, "cancel request")
				return
			}
			ShowRequest(hc, id, change.Message)
		})
	})
}

// HandleRequestNote ждёт текст заметки к заявке
func HandleRequestNote(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			hc.ClearState()
			hc.SetData(state.KeyRequestID, id)
			common.ShowPrompt(hc, callbacktypes.UserState(state.StateRequestNote),
				fmt.Sprintf("📝 <b>Заметка к заявке #%d</b>\n\nОтправьте текст заметки.", id))
		})
	})
}

// HandleNewRequest первый шаг новой заявки: new_req:<page>
func HandleNewRequest(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(page int64) {
			students, err := h.Users.ListStudents(ctx, hc.Actor())
			if err != nil {
				common.HandleError(hc, err, "list students")
				return
			}
			text, kb := common.BuildPickStudentScreen(students, int(page))
			hc.Answer("")
			if err := hc.ShowScreen(text, kb); err != nil {
				common.HandleError(hc, err, "show student picker")
			}
		})
	})
}

// HandleNewRequestStudent второй шаг: источник обращения
func HandleNewRequestStudent(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(studentID int64) {
			student, err := h.Users.GetStudent(ctx, hc.Actor(), studentID)
			if err != nil {
				common.HandleError(hc, err, "get student")
				return
			}
			text, kb := common.BuildPickSourceScreen(student)
			hc.Answer("")
			if err := hc.ShowScreen(text, kb); err != nil {
				common.HandleError(hc, err, "show source picker")
			}
		})
	})
}

// HandleNewRequestSource создаёт заявку: new_req_src:<student>:<source>
func HandleNewRequestSource(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		args := common.CallbackArgs(callback.Data)
		if len(args) != 2 {
			common.HandleError(hc, common.ErrInvalidFormat, "parse new request")
			return
		}
		studentID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			common.HandleError(hc, common.ErrInvalidFormat, "parse new request")
			return
		}

		req, err := h.Requests.Create(ctx, hc.Actor(), lifecycle.RequestInput{
			StudentID: studentID,
			Source:    model.RequestSource(args[1]),
		})
		if err != nil {
			common.HandleError(hc, err, "create request")
			return
		}

		h.Logger.Info("Request created from bot",
			zap.Int64("user_id", hc.User.ID),
			zap.Int64("request_id", req.ID))
		ShowRequest(hc, req.ID, fmt.Sprintf("Заявка #%d создана", req.ID))
	})
}
