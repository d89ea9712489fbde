package psychologist

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/state"
	"github.com/Freeeeeet/psychologist_bot/internal/report"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleStudents карточки учеников: students:<page>
func HandleStudents(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(page int64) {
			students, err := h.Users.ListStudents(ctx, hc.Actor())
			if err != nil {
				common.HandleError(hc, err, "list students")
				return
			}
			text, kb := common.BuildStudentListScreen(students, int(page))
			hc.Answer("")
			if err := hc.ShowScreen(text, kb); err != nil {
				common.HandleError(hc, err, "show students")
			}
		})
	})
}

// HandleStudent карточка ученика: student:<id>
func HandleStudent(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			student, err := h.Users.GetStudent(ctx, hc.Actor(), id)
			if err != nil {
				common.HandleError(hc, err, "get student")
				return
			}
			text, kb := common.BuildStudentScreen(student, hc.Actor())
			hc.Answer("")
			if err := hc.ShowScreen(text, kb); err != nil {
				common.HandleError(hc, err, "show student")
			}
		})
	})
}

// HandleNewStudent начинает заполнение карточки: фамилия, имя, класс, дата рождения
func HandleNewStudent(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		hc.ClearState()
		common.ShowPrompt(hc, callbacktypes.UserState(state.StateStudentLastName),
			"👤 <b>Новый ученик</b>\n\nШаг 1 из 4: введите фамилию.")
	})
}

// HandleDynamics динамика ученика за всё время: dynamics:<student>
func HandleDynamics(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			d, err := h.Reports.StudentDynamics(ctx, hc.Actor(), id, report.Filters{})
			if err != nil {
				common.HandleError(hc, err, "student dynamics")
				return
			}
			text, kb := common.BuildDynamicsScreen(d)
			hc.Answer("")
			if err := hc.ShowScreen(text, kb); err != nil {
				common.HandleError(hc, err, "show dynamics")
			}
		})
	})
}

// HandleDynamicsExport отправляет диаграмму и таблицу динамики
func HandleDynamicsExport(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			png, xlsx, err := h.Reports.DynamicsExport(ctx, hc.Actor(), id, report.Filters{})
			if err != nil {
				common.HandleError(hc, err, "export dynamics")
				return
			}

			hc.Answer("📤 Выгрузка готовится")
			if err := hc.SendPhoto(fmt.Sprintf("dynamics_%d.png", id), png, "📈 Динамика ученика"); err != nil {
				h.Logger.Error("Failed to send dynamics chart", zap.Int64("student_id", id), zap.Error(err))
			}
			if err := hc.SendDocument(fmt.Sprintf("dynamics_%d.xlsx", id), xlsx, ""); err != nil {
				h.Logger.Error("Failed to send dynamics table", zap.Int64("student_id", id), zap.Error(err))
			}
		})
	})
}
