package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleReportRegister реестр консультаций: report_register:<period>
func HandleReportRegister(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithAdmin(ctx, b, callback, h, func(hc *common.HandlerContext) {
		_, period, _ := strings.Cut(hc.Callback.Data, ":")
		f, ok := common.PeriodFilters(period, time.Now())
		if !ok {
			common.HandleError(hc, common.ErrInvalidFormat, "parse register period")
			return
		}
		data, err := h.Reports.Register(ctx, hc.Actor(), f)
		if err != nil {
			common.HandleError(hc, err, "consultation register")
			return
		}
		hc.Answer("")
		name := fmt.Sprintf("register_%s_%s.xlsx", period, time.Now().Format("2006-01-02"))
		if err := hc.SendDocument(name, data, "📋 Реестр консультаций"); err != nil {
			h.Logger.Error("Failed to send consultation register", zap.Error(err))
		}
	})
}
