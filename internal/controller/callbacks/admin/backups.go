package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/psychologist_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

func backupName(data string) (string, bool) {
	_, name, found := strings.Cut(data, ":")
	return name, found && service.ValidBackupName(name)
}

func showBackups(hc *common.HandlerContext, answer string) {
	backups, err := hc.Handler.Backups.List(hc.Actor())
	if err != nil {
		common.HandleError(hc, err, "list backups")
		return
	}
	text, kb := common.BuildBackupsScreen(backups)
	hc.Answer(answer)
	if err := hc.ShowScreen(text, kb); err != nil {
		common.HandleError(hc, err, "show backups")
	}
}

// HandleBackups список резервных копий
func HandleBackups(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithAdmin(ctx, b, callback, h, func(hc *common.HandlerContext) {
		showBackups(hc, "")
	})
}

// HandleNewBackup снимает дамп базы: backup_new:<sql|dump>
func HandleNewBackup(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithAdmin(ctx, b, callback, h, func(hc *common.HandlerContext) {
		_, format, _ := strings.Cut(callback.Data, ":")
		backup, err := h.Backups.Create(ctx, hc.Actor(), service.BackupFormat(format))
		if err != nil {
			common.HandleError(hc, err, "create backup")
			return
		}
		h.Logger.Info("Backup created from bot",
			zap.Int64("user_id", hc.User.ID),
			zap.String("name", backup.Name))
		showBackups(hc, "Копия создана")
	})
}

// HandleGetBackup отправляет файл копии в чат
func HandleGetBackup(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithAdmin(ctx, b, callback, h, func(hc *common.HandlerContext) {
		name, ok := backupName(callback.Data)
		if !ok {
			common.HandleError(hc, common.ErrInvalidFormat, "parse backup name")
			return
		}
		f, err := h.Backups.Open(hc.Actor(), name)
		if err != nil {
			common.HandleError(hc, err, "open backup")
			return
		}
		defer f.Close()

		hc.Answer("")
		if err := hc.SendFile(name, f, "💾 Резервная копия"); err != nil {
			h.Logger.Error("Failed to send backup", zap.String("name", name), zap.Error(err))
			hc.AnswerAlert("❌ Не удалось отправить файл")
		}
	})
}

// HandleDeleteBackup спрашивает подтверждение удаления копии
func HandleDeleteBackup(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithAdmin(ctx, b, callback, h, func(hc *common.HandlerContext) {
		name, ok := backupName(callback.Data)
		if !ok {
			common.HandleError(hc, common.ErrInvalidFormat, "parse backup name")
			return
		}
		common.ShowConfirm(hc, fmt.Sprintf("🗑 Удалить копию <code>%s</code>?", name), "backup_del_ok:"+name, "backups")
	})
}

// HandleDeleteBackupConfirm удаляет копию
func HandleDeleteBackupConfirm(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithAdmin(ctx, b, callback, h, func(hc *common.HandlerContext) {
		name, ok := backupName(callback.Data)
		if !ok {
			common.HandleError(hc, common.ErrInvalidFormat, "parse backup name")
			return
		}
		if err := h.Backups.Delete(hc.Actor(), name); err != nil {
			common.HandleError(hc, err, "delete backup")
			return
		}
		showBackups(hc, "Копия удалена")
	})
}
