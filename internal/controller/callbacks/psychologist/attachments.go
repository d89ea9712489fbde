package psychologist

import (
	"context"
	"fmt"
	"path"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/state"
	"github.com/Freeeeeet/psychologist_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// ShowAttachments список файлов консультации
func ShowAttachments(hc *common.HandlerContext, consultationID int64, answer string) {
	attachments, err := hc.Handler.Attachments.List(hc.Ctx, hc.Actor(), consultationID)
	if err != nil {
		common.HandleError(hc, err, "list attachments")
		return
	}
	text, kb := common.BuildAttachmentsScreen(consultationID, attachments)
	hc.Answer(answer)
	if err := hc.ShowScreen(text, kb); err != nil {
		common.HandleError(hc, err, "show attachments")
	}
}

// HandleAttachments файлы консультации: cons_files:<id>
func HandleAttachments(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			ShowAttachments(hc, id, "")
		})
	})
}

// HandleUploadFile ждёт документ от психолога: upload_file:<consultation>
func HandleUploadFile(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			hc.ClearState()
			hc.SetData(state.KeyConsultationID, id)
			common.ShowPrompt(hc, callbacktypes.UserState(state.StateAttachmentUpload),
				fmt.Sprintf("📎 <b>Файл к консультации #%d</b>\n\n"+
					"Отправьте файл документом, до %d МБ. Подпись к файлу станет его описанием.",
					id, service.MaxAttachmentSize>>20))
		})
	})
}

// HandleGetFile отправляет файл в чат: get_file:<attachment>
func HandleGetFile(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		common.WithID(hc, func(id int64) {
			a, f, err := h.Attachments.Open(ctx, hc.Actor(), id)
			if err != nil {
				common.HandleError(hc, err, "open attachment")
				return
			}
			defer f.Close()

			hc.Answer("")
			if err := hc.SendFile(path.Base(a.Path), f, common.Esc(a.Description)); err != nil {
				h.Logger.Error("Failed to send attachment",
					zap.Int64("attachment_id", id),
					zap.Error(err))
				hc.AnswerAlert("❌ Не удалось отправить файл")
			}
		})
	})
}

// HandleDeleteFile спрашивает подтверждение: delete_file:<consultation>:<attachment>
func HandleDeleteFile(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		consultationID, attachmentID, err := common.ParseIDsFromCallback(callback.Data)
		if err != nil {
			common.HandleError(hc, common.ErrInvalidFormat, "parse delete file")
			return
		}
		common.ShowConfirm(hc, "🗑 <b>Удалить файл?</b>\n\nФайл будет удалён с диска.",
			fmt.Sprintf("delete_file_ok:%d:%d", consultationID, attachmentID),
			fmt.Sprintf("cons_files:%d", consultationID))
	})
}

// HandleDeleteFileConfirm удаляет файл
func HandleDeleteFileConfirm(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		consultationID, attachmentID, err := common.ParseIDsFromCallback(callback.Data)
		if err != nil {
			common.HandleError(hc, common.ErrInvalidFormat, "parse delete file")
			return
		}
		if err := h.Attachments.Delete(ctx, hc.Actor(), attachmentID); err != nil {
			common.HandleError(hc, err, "delete attachment")
			return
		}
		ShowAttachments(hc, consultationID, "Файл удалён")
	})
}
