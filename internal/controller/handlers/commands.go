package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/student"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/state"
	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/Freeeeeet/psychologist_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	from := update.Message.From

	// Регистрируем пользователя
	user, err := h.services.Users.RegisterUser(ctx, from.ID, from.Username, from.FirstName, from.LastName)
	if err != nil {
		h.logger.Error("Failed to register user", zap.Int64("telegram_id", from.ID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Произошла ошибка при регистрации. Попробуйте позже.")
		return
	}

	h.stateManager.ClearState(from.ID)

	text, kb := common.BuildMainMenu(user)
	h.sendScreen(ctx, b, update.Message.Chat.ID,
		"👋 Добро пожаловать в бот школьного психолога!\n\n"+text, kb)
}

// HandleMenu обрабатывает команду /menu
func (h *Handlers) HandleMenu(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	h.stateManager.ClearState(user.TelegramID)
	text, kb := common.BuildMainMenu(user)
	h.sendScreen(ctx, b, update.Message.Chat.ID, text, kb)
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString("📚 <b>Справка по командам</b>\n\n" +
		"/start - Начать работу с ботом\n" +
		"/menu - Главное меню\n" +
		"/cancel - Отменить ввод\n" +
		"/help - Показать эту справку\n")

	user, err := h.services.Users.GetByTelegramID(ctx, update.Message.From.ID)
	if err != nil {
		h.logger.Warn("Failed to get user for help", zap.Error(err))
	}
	if user != nil {
		switch user.Role {
		case model.RoleStudent:
			sb.WriteString("\nДля учеников:\n" +
				"/newrequest - Обратиться к психологу\n" +
				"/myrequests - Мои заявки\n" +
				"/myconsultations - Мои консультации\n" +
				"/feed - Уведомления\n" +
				"/chat - Чат с психологом\n")
		case model.RolePsychologist, model.RoleAdmin:
			sb.WriteString("\nДля психологов:\n" +
				"/requests - Заявки\n" +
				"/consultations - Консультации\n" +
				"/students - Карточки учеников\n" +
				"/report - Отчёт за месяц\n" +
				"/chat - Чаты с учениками\n")
			if user.Role == model.RoleAdmin {
				sb.WriteString("\nДля администраторов:\n" +
					"/users - Пользователи и роли\n" +
					"/backup - Резервные копии\n")
			}
		}
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, sb.String())
}

// HandleCancel обрабатывает команду /cancel - отмена текущего диалога
func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	telegramID := update.Message.From.ID
	if h.stateManager.GetState(telegramID) == state.StateNone {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "❌ Нет активных операций для отмены.")
		return
	}

	// Очищаем состояние
	h.stateManager.ClearState(telegramID)
	h.sendMessage(ctx, b, update.Message.Chat.ID, "✅ Операция отменена.\n\nГлавное меню: /menu")
}

// ===== Ученик =====

// HandleNewRequest обрабатывает команду /newrequest
func (h *Handlers) HandleNewRequest(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireStudent(ctx, b, update)
	if !ok {
		return
	}
	h.stateManager.ClearState(user.TelegramID)
	h.stateManager.SetState(user.TelegramID, state.StateNewRequestComment)
	h.sendScreen(ctx, b, update.Message.Chat.ID, student.NewOwnRequestPrompt, student.NewOwnRequestKeyboard())
}

// HandleMyRequests обрабатывает команду /myrequests
func (h *Handlers) HandleMyRequests(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireStudent(ctx, b, update)
	if !ok {
		return
	}
	requests, err := h.services.Requests.ListForStudent(ctx, user.Actor())
	if err != nil {
		h.replyError(ctx, b, update.Message.Chat.ID, err, "list own requests")
		return
	}
	text, kb := common.BuildStudentRequestsScreen(requests)
	h.sendScreen(ctx, b, update.Message.Chat.ID, text, kb)
}

// HandleMyConsultations обрабатывает команду /myconsultations
func (h *Handlers) HandleMyConsultations(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireStudent(ctx, b, update)
	if !ok {
		return
	}
	items, err := h.services.Consultations.ListForStudent(ctx, user.Actor())
	if err != nil {
		h.replyError(ctx, b, update.Message.Chat.ID, err, "list own consultations")
		return
	}
	text, kb := common.BuildStudentConsultationsScreen(items)
	h.sendScreen(ctx, b, update.Message.Chat.ID, text, kb)
}

// HandleFeed обрабатывает команду /feed
func (h *Handlers) HandleFeed(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireStudent(ctx, b, update)
	if !ok {
		return
	}
	feed, err := h.services.Notifications.Feed(ctx, user.Actor(), 0)
	if err != nil {
		h.replyError(ctx, b, update.Message.Chat.ID, err, "feed")
		return
	}
	text, kb := common.BuildFeedScreen(feed)
	h.sendScreen(ctx, b, update.Message.Chat.ID, text, kb)
}

// HandleChat обрабатывает команду /chat: ученику его чат, психологу список чатов
func (h *Handlers) HandleChat(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID
	h.stateManager.ClearState(user.TelegramID)

	if user.Role == model.RoleStudent {
		view, err := h.services.Chats.Open(ctx, user.Actor())
		if err != nil {
			h.replyError(ctx, b, chatID, err, "open chat")
			return
		}
		text, kb := common.BuildStudentChatScreen(view)
		h.sendScreen(ctx, b, chatID, text, kb)
		return
	}

	chats, err := h.services.Chats.List(ctx, user.Actor())
	if err != nil {
		h.replyError(ctx, b, chatID, err, "list chats")
		return
	}
	text, kb := common.BuildChatListScreen(chats, 0)
	h.sendScreen(ctx, b, chatID, text, kb)
}

// ===== Психолог =====

// HandleRequests обрабатывает команду /requests
func (h *Handlers) HandleRequests(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireStaff(ctx, b, update)
	if !ok {
		return
	}
	requests, err := h.services.Requests.List(ctx, user.Actor(), "")
	if err != nil {
		h.replyError(ctx, b, update.Message.Chat.ID, err, "list requests")
		return
	}
	text, kb := common.BuildRequestListScreen(requests, user.Actor(), common.StatusFilterAll, 0)
	h.sendScreen(ctx, b, update.Message.Chat.ID, text, kb)
}

// HandleConsultations обрабатывает команду /consultations
func (h *Handlers) HandleConsultations(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireStaff(ctx, b, update)
	if !ok {
		return
	}
	states, err := h.services.Consultations.List(ctx, user.Actor(), service.TabUpcoming)
	if err != nil {
		h.replyError(ctx, b, update.Message.Chat.ID, err, "list consultations")
		return
	}
	text, kb := common.BuildConsultationListScreen(states, service.TabUpcoming, 0)
	h.sendScreen(ctx, b, update.Message.Chat.ID, text, kb)
}

// HandleStudents обрабатывает команду /students
func (h *Handlers) HandleStudents(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireStaff(ctx, b, update)
	if !ok {
		return
	}
	students, err := h.services.Users.ListStudents(ctx, user.Actor())
	if err != nil {
		h.replyError(ctx, b, update.Message.Chat.ID, err, "list students")
		return
	}
	text, kb := common.BuildStudentListScreen(students, 0)
	h.sendScreen(ctx, b, update.Message.Chat.ID, text, kb)
}

// HandleReport обрабатывает команду /report - отчёт за текущий месяц
func (h *Handlers) HandleReport(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireStaff(ctx, b, update)
	if !ok {
		return
	}
	filters, _ := common.PeriodFilters(common.PeriodMonth, time.Now().In(h.location))
	r, err := h.services.Reports.Build(ctx, user.Actor(), filters)
	if err != nil {
		h.replyError(ctx, b, update.Message.Chat.ID, err, "build report")
		return
	}
	text, kb := common.BuildReportScreen(r, common.PeriodMonth)
	h.sendScreen(ctx, b, update.Message.Chat.ID, text, kb)
}

// ===== Администратор =====

// HandleUsers обрабатывает команду /users
func (h *Handlers) HandleUsers(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireAdmin(ctx, b, update)
	if !ok {
		return
	}
	users, err := h.services.Users.ListUsers(ctx, user.Actor())
	if err != nil {
		h.replyError(ctx, b, update.Message.Chat.ID, err, "list users")
		return
	}
	text, kb := common.BuildUserListScreen(users, 0)
	h.sendScreen(ctx, b, update.Message.Chat.ID, text, kb)
}

// HandleBackups обрабатывает команду /backup
func (h *Handlers) HandleBackups(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireAdmin(ctx, b, update)
	if !ok {
		return
	}
	backups, err := h.services.Backups.List(user.Actor())
	if err != nil {
		h.replyError(ctx, b, update.Message.Chat.ID, err, "list backups")
		return
	}
	text, kb := common.BuildBackupsScreen(backups)
	h.sendScreen(ctx, b, update.Message.Chat.ID, text, kb)
}

// HandleTextMessage обрабатывает сообщения в зависимости от состояния пользователя
func (h *Handlers) HandleTextMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	// Игнорируем команды (они обрабатываются другими handlers)
	if strings.HasPrefix(update.Message.Text, "/") {
		return
	}

	telegramID := update.Message.From.ID
	currentState := h.stateManager.GetState(telegramID)

	h.logger.Info("HandleTextMessage called",
		zap.Int64("telegram_id", telegramID),
		zap.String("state", string(currentState)),
		zap.Bool("document", update.Message.Document != nil))

	// Если нет активного состояния, подсказываем меню
	if currentState == state.StateNone {
		if update.Message.Chat.Type == models.ChatTypePrivate {
			h.sendMessage(ctx, b, update.Message.Chat.ID, "Откройте меню командой /menu")
		}
		return
	}

	if currentState == state.StateAttachmentUpload {
		h.handleAttachmentUpload(ctx, b, update)
		return
	}
	if update.Message.Text == "" {
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Ожидается текстовое сообщение. Для отмены используйте /cancel")
		return
	}

	// Обрабатываем в зависимости от состояния
	switch currentState {
	case state.StateNewRequestComment:
		h.handleOwnRequestComment(ctx, b, update)
	case state.StateRequestNote:
		h.handleRequestNote(ctx, b, update)
	case state.StateConsultationNote:
		h.handleConsultationNote(ctx, b, update)
	case state.StateConsultationResult:
		h.handleConsultationResult(ctx, b, update)
	case state.StateConsultationDate:
		h.handleConsultationDate(ctx, b, update)
	case state.StateConsultationTime:
		h.handleConsultationTime(ctx, b, update)
	case state.StateConsultationStudents:
		h.sendMessage(ctx, b, update.Message.Chat.ID, "👆 Отметьте участников кнопками выше и нажмите «Сохранить».")
	case state.StateStudentLastName:
		h.handleStudentLastName(ctx, b, update)
	case state.StateStudentFirstName:
		h.handleStudentFirstName(ctx, b, update)
	case state.StateStudentClass:
		h.handleStudentClass(ctx, b, update)
	case state.StateStudentBirthDate:
		h.handleStudentBirthDate(ctx, b, update)
	case state.StateChatMessage:
		h.handleChatMessage(ctx, b, update)
	case state.StateChatReply:
		h.handleChatReply(ctx, b, update)
	default:
		h.logger.Warn("Unknown state", zap.String("state", string(currentState)))
		h.stateManager.ClearState(telegramID)
	}
}
