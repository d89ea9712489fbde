package admin

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// HandleUsers пользователи бота: users:<page>
func HandleUsers(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithAdmin(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(page int64) {
			users, err := h.Users.ListUsers(ctx, hc.Actor())
			if err != nil {
				common.HandleError(hc, err, "list users")
				return
			}
			text, kb := common.BuildUserListScreen(users, int(page))
			hc.Answer("")
			if err := hc.ShowScreen(text, kb); err != nil {
				common.HandleError(hc, err, "show users")
			}
		})
	})
}

func showUser(hc *common.HandlerContext, id int64, answer string) {
	u, err := hc.Handler.Users.GetByID(hc.Ctx, id)
	if err != nil {
		common.HandleError(hc, err, "get user")
		return
	}
	if u == nil {
		common.HandleError(hc, common.ErrUserNotFound, "get user")
		return
	}

	var student *model.Student
	if u.StudentID != nil {
		if student, err = hc.Handler.Users.GetStudent(hc.Ctx, hc.Actor(), *u.StudentID); err != nil {
			common.HandleError(hc, err, "get bound student")
			return
		}
	}

	text, kb := common.BuildUserScreen(u, student)
	hc.Answer(answer)
	if err := hc.ShowScreen(text, kb); err != nil {
		common.HandleError(hc, err, "show user")
	}
}

// HandleUser карточка пользователя: user:<id>
func HandleUser(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithAdmin(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			showUser(hc, id, "")
		})
	})
}

// HandleSetRole меняет роль: set_role:<user>:<role>
func HandleSetRole(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithAdmin(ctx, b, callback, h, func(hc *common.HandlerContext) {
		args := common.CallbackArgs(callback.Data)
		if len(args) != 2 {
			common.HandleError(hc, common.ErrInvalidFormat, "parse set role")
			return
		}
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			common.HandleError(hc, common.ErrInvalidFormat, "parse set role")
			return
		}

		u, err := h.Users.SetRole(ctx, hc.Actor(), userID, model.Role(args[1]))
		if err != nil {
			common.HandleError(hc, err, "set role")
			return
		}
		showUser(hc, u.ID, fmt.Sprintf("Новая роль: %s", formatting.GetRoleDisplay(u.Role).Text))
	})
}

// HandleBindStudent выбор карточки для аккаунта: bind_student:<user>:<page>
func HandleBindStudent(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithAdmin(ctx, b, callback, h, func(hc *common.HandlerContext) {
		userID, page, err := common.ParseIDsFromCallback(callback.Data)
		if err != nil {
			common.HandleError(hc, common.ErrInvalidFormat, "parse bind student")
			return
		}
		u, err := h.Users.GetByID(ctx, userID)
		if err != nil {
			common.HandleError(hc, err, "get user")
			return
		}
		if u == nil {
			common.HandleError(hc, common.ErrUserNotFound, "get user")
			return
		}
		students, err := h.Users.ListStudents(ctx, hc.Actor())
		if err != nil {
			common.HandleError(hc, err, "list students")
			return
		}

		text, kb := common.BuildBindStudentScreen(u, students, int(page))
		hc.Answer("")
		if err := hc.ShowScreen(text, kb); err != nil {
			common.HandleError(hc, err, "show bind student")
		}
	})
}

// HandleBindTo привязывает аккаунт к карточке: bind_to:<user>:<student>
func HandleBindTo(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithAdmin(ctx, b, callback, h, func(hc *common.HandlerContext) {
		userID, studentID, err := common.ParseIDsFromCallback(callback.Data)
		if err != nil {
			common.HandleError(hc, common.ErrInvalidFormat, "parse bind to")
			return
		}
		u, err := h.Users.BindStudent(ctx, hc.Actor(), userID, studentID)
		if err != nil {
			common.HandleError(hc, err, "bind student")
			return
		}
		showUser(hc, u.ID, "Карточка привязана")
	})
}
