package psychologist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/psychologist_bot/internal/report"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// reportPeriod разбирает report:<period> и его варианты
func reportPeriod(hc *common.HandlerContext) (string, report.Filters, bool) {
	_, period, found := strings.Cut(hc.Callback.Data, ":")
	if !found {
		return "", report.Filters{}, false
	}
	f, ok := common.PeriodFilters(period, time.Now())
	return period, f, ok
}

// HandleReport сводный отчёт: report:<period>
func HandleReport(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		period, f, ok := reportPeriod(hc)
		if !ok {
			common.HandleError(hc, common.ErrInvalidFormat, "parse report period")
			return
		}
		r, err := h.Reports.Build(ctx, hc.Actor(), f)
		if err != nil {
			common.HandleError(hc, err, "build report")
			return
		}
		text, kb := common.BuildReportScreen(r, period)
		hc.Answer("")
		if err := hc.ShowScreen(text, kb); err != nil {
			common.HandleError(hc, err, "show report")
		}
	})
}

// HandleReportExcel выгрузка отчёта в Excel
func HandleReportExcel(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		period, f, ok := reportPeriod(hc)
		if !ok {
			common.HandleError(hc, common.ErrInvalidFormat, "parse report period")
			return
		}
		data, err := h.Reports.Excel(ctx, hc.Actor(), f)
		if err != nil {
			common.HandleError(hc, err, "report excel")
			return
		}
		hc.Answer("")
		name := fmt.Sprintf("report_%s_%s.xlsx", period, time.Now().Format("2006-01-02"))
		if err := hc.SendDocument(name, data, "📊 Отчёт"); err != nil {
			h.Logger.Error("Failed to send report workbook", zap.Error(err))
		}
	})
}

// HandleReportChart диаграмма динамики заявок
func HandleReportChart(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithStaff(ctx, b, callback, h, func(hc *common.HandlerContext) {
		period, f, ok := reportPeriod(hc)
		if !ok {
			common.HandleError(hc, common.ErrInvalidFormat, "parse report period")
			return
		}
		png, err := h.Reports.Chart(ctx, hc.Actor(), f)
		if err != nil {
			common.HandleError(hc, err, "report chart")
			return
		}
		hc.Answer("")
		if err := hc.SendPhoto(fmt.Sprintf("report_%s.png", period), png, "📈 Динамика заявок"); err != nil {
			h.Logger.Error("Failed to send report chart", zap.Error(err))
		}
	})
}
