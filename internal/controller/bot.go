package controller

import (
	"context"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/handlers"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/state"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

type BotController struct {
	bot             *bot.Bot
	handlers        *handlers.Handlers
	callbackHandler *callbacks.Handler
	stateManager    *state.Manager
	notifier        *Notifier
	logger          *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	services callbacktypes.Services,
	logger *zap.Logger,
) *BotController {
	// Создаём менеджер состояний, общий для команд и кнопок
	stateManager := state.NewManager()

	cmdHandlers := handlers.NewHandlers(services, stateManager, logger)
	callbackHandler := callbacks.NewHandler(services, stateManager, logger)

	return &BotController{
		bot:             botInstance,
		handlers:        cmdHandlers,
		callbackHandler: callbackHandler,
		stateManager:    stateManager,
		notifier:        NewNotifier(botInstance),
		logger:          logger,
	}
}

// Notifier доставка событий ленты через этого бота
func (c *BotController) Notifier() *Notifier {
	return c.notifier
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	commands := map[string]bot.HandlerFunc{
		"/start": c.handlers.HandleStart,
		"/menu":  c.handlers.HandleMenu,
		"/help":  c.handlers.HandleHelp,

		"/cancel": c.handlers.HandleCancel,

		// Ученик
		"/newrequest":      c.handlers.HandleNewRequest,
		"/myrequests":      c.handlers.HandleMyRequests,
		"/myconsultations": c.handlers.HandleMyConsultations,
		"/feed":            c.handlers.HandleFeed,
		"/chat":            c.handlers.HandleChat,

		// Психолог
		"/requests":      c.handlers.HandleRequests,
		"/consultations": c.handlers.HandleConsultations,
		"/students":      c.handlers.HandleStudents,
		"/report":        c.handlers.HandleReport,

		// Администратор
		"/users":  c.handlers.HandleUsers,
		"/backup": c.handlers.HandleBackups,
	}
	for command, handler := range commands {
		c.bot.RegisterHandler(bot.HandlerTypeMessageText, command, bot.MatchTypeExact, handler)
	}

	// Обработчик остальных сообщений (диалоги с состояниями и загрузка файлов)
	c.bot.RegisterHandlerMatchFunc(isDialogMessage, c.handlers.HandleTextMessage)

	// Обработчик нажатий на inline кнопки
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, c.callbackHandler.HandleCallbackQuery)

	// Устанавливаем меню команд
	return c.setCommands(ctx)
}

// isDialogMessage сообщение без команды: текст шага диалога или документ
func isDialogMessage(update *models.Update) bool {
	if update.Message == nil {
		return false
	}
	if update.Message.Document != nil {
		return true
	}
	return update.Message.Text != "" && update.Message.Text[0] != '/'
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Начать работу с ботом"},
		{Command: "menu", Description: "🏠 Главное меню"},
		{Command: "help", Description: "❓ Справка по командам"},
		{Command: "cancel", Description: "✖️ Отменить ввод"},
		{Command: "newrequest", Description: "📝 Обратиться к психологу"},
		{Command: "myconsultations", Description: "🗓 Мои консультации"},
		{Command: "chat", Description: "💬 Чат с психологом"},
		{Command: "requests", Description: "📋 Заявки (психолог)"},
		{Command: "consultations", Description: "🗓 Консультации (психолог)"},
		{Command: "report", Description: "📊 Отчёт за месяц (психолог)"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})

	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set")
	return nil
}

// Start запускает бота
func (c *BotController) Start(ctx context.Context) error {
	c.logger.Info("Starting bot...")
	go c.sweepDialogs(ctx)
	c.bot.Start(ctx)
	return nil
}

// sweepDialogs периодически забывает брошенные диалоги
func (c *BotController) sweepDialogs(ctx context.Context) {
	ticker := time.NewTicker(state.DialogTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.stateManager.Sweep(); n > 0 {
				c.logger.Debug("Abandoned dialogs removed", zap.Int("count", n))
			}
		}
	}
}
