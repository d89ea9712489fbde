package handlers

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/psychologist"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/state"
	"github.com/Freeeeeet/psychologist_bot/internal/lifecycle"
	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/Freeeeeet/psychologist_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// skipInput ответ, которым пропускают необязательный шаг
const skipInput = "-"

// dataID достаёт ID из временных данных диалога.
// Если данных нет, диалог сбрасывается.
func (h *Handlers) dataID(ctx context.Context, b *bot.Bot, update *models.Update, key string) (int64, bool) {
	telegramID := update.Message.From.ID
	id, ok := h.stateManager.Int64(telegramID, key)
	if !ok {
		h.logger.Error("Missing dialog data",
			zap.Int64("telegram_id", telegramID),
			zap.String("key", key))
		h.stateManager.ClearState(telegramID)
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Ошибка: данные не найдены. Начните заново через /menu")
		return 0, false
	}
	return id, true
}

func (h *Handlers) showRequest(ctx context.Context, b *bot.Bot, chatID int64, user *model.User, id int64, prefix string) {
	details, err := h.services.Requests.Get(ctx, user.Actor(), id)
	if err != nil {
		h.replyError(ctx, b, chatID, err, "get request")
		return
	}
	if user.Actor().IsStudent() {
		text, kb := common.BuildStudentRequestScreen(details)
		h.sendScreen(ctx, b, chatID, prefix+text, kb)
		return
	}
	text, kb := common.BuildRequestScreen(details, user.Actor())
	h.sendScreen(ctx, b, chatID, prefix+text, kb)
}

func (h *Handlers) showConsultation(ctx context.Context, b *bot.Bot, chatID int64, user *model.User, id int64, prefix string) {
	details, err := h.services.Consultations.Get(ctx, user.Actor(), id)
	if err != nil {
		h.replyError(ctx, b, chatID, err, "get consultation")
		return
	}
	text, kb := common.BuildConsultationScreen(details, user.Actor())
	h.sendScreen(ctx, b, chatID, prefix+text, kb)
}

func noticePrefix(msg string) string {
	if msg == "" {
		return ""
	}
	return "✅ " + msg + "\n\n"
}

// ===== Заявки и заметки =====

// handleOwnRequestComment ученик описал обращение
func (h *Handlers) handleOwnRequestComment(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireStudent(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	req, err := h.services.Requests.SubmitOwn(ctx, user.Actor(), update.Message.Text)
	if err != nil {
		// состояние остаётся, можно исправить текст
		h.replyError(ctx, b, chatID, err, "submit own request")
		return
	}
	h.stateManager.ClearState(user.TelegramID)
	h.logger.Info("Student submitted request",
		zap.Int64("user_id", user.ID),
		zap.Int64("request_id", req.ID))
	h.showRequest(ctx, b, chatID, user, req.ID, noticePrefix(fmt.Sprintf("Заявка #%d отправлена психологу", req.ID)))
}

// handleRequestNote заметка к заявке
func (h *Handlers) handleRequestNote(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireStaff(ctx, b, update)
	if !ok {
		return
	}
	id, ok := h.dataID(ctx, b, update, state.KeyRequestID)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	if _, err := h.services.Requests.AddNote(ctx, user.Actor(), id, update.Message.Text); err != nil {
		h.replyError(ctx, b, chatID, err, "add request note")
		return
	}
	h.stateManager.ClearState(user.TelegramID)
	h.showRequest(ctx, b, chatID, user, id, noticePrefix("Заметка добавлена"))
}

// handleConsultationNote заметка к консультации
func (h *Handlers) handleConsultationNote(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireStaff(ctx, b, update)
	if !ok {
		return
	}
	id, ok := h.dataID(ctx, b, update, state.KeyConsultationID)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	if _, err := h.services.Consultations.AddNote(ctx, user.Actor(), id, update.Message.Text); err != nil {
		h.replyError(ctx, b, chatID, err, "add consultation note")
		return
	}
	h.stateManager.ClearState(user.TelegramID)
	h.showConsultation(ctx, b, chatID, user, id, noticePrefix("Заметка добавлена"))
}

// handleConsultationResult результат консультации
func (h *Handlers) handleConsultationResult(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireStaff(ctx, b, update)
	if !ok {
		return
	}
	id, ok := h.dataID(ctx, b, update, state.KeyConsultationID)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	change, err := h.services.Consultations.SetResult(ctx, user.Actor(), id, update.Message.Text)
	if err != nil {
		h.replyError(ctx, b, chatID, err, "set consultation result")
		return
	}
	h.stateManager.ClearState(user.TelegramID)
	h.showConsultation(ctx, b, chatID, user, id, noticePrefix(change.Message))
}

// ===== Планирование консультации =====

func (h *Handlers) draft(ctx context.Context, b *bot.Bot, update *models.Update) (*common.ConsultationDraft, bool) {
	telegramID := update.Message.From.ID
	draft, ok := common.GetDraft(h.stateManager, telegramID)
	if !ok {
		h.logger.Error("Missing consultation draft", zap.Int64("telegram_id", telegramID))
		h.stateManager.ClearState(telegramID)
		h.sendError(ctx, b, update.Message.Chat.ID, "⏳ Черновик устарел, начните заново через /consultations")
		return nil, false
	}
	return draft, true
}

// handleConsultationDate шаг ввода даты
func (h *Handlers) handleConsultationDate(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireStaff(ctx, b, update)
	if !ok {
		return
	}
	draft, ok := h.draft(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	date, err := formatting.ParseDate(update.Message.Text, h.location)
	if err != nil {
		h.logger.Warn("Invalid date format", zap.String("input", update.Message.Text))
		h.sendPrompt(ctx, b, chatID, "❌ Неверный формат даты.\n\n"+psychologist.DatePrompt)
		return
	}

	draft.Date = date
	h.stateManager.SetState(user.TelegramID, state.StateConsultationTime)
	h.sendPrompt(ctx, b, chatID, fmt.Sprintf("✅ Дата: %s\n\n%s",
		formatting.FormatDateWithWeekday(date), psychologist.TimePrompt))
}

// handleConsultationTime шаг ввода времени, затем выбор участников
func (h *Handlers) handleConsultationTime(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireStaff(ctx, b, update)
	if !ok {
		return
	}
	draft, ok := h.draft(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	start, end, err := formatting.ParseTimeRange(update.Message.Text)
	if err != nil || end <= start {
		h.logger.Warn("Invalid time range", zap.String("input", update.Message.Text))
		h.sendPrompt(ctx, b, chatID, "❌ Неверный интервал времени.\n\n"+psychologist.TimePrompt)
		return
	}

	students, err := h.services.Users.ListStudents(ctx, user.Actor())
	if err != nil {
		h.replyError(ctx, b, chatID, err, "list students")
		return
	}

	draft.Start, draft.End = start, end
	draft.Page = 0
	h.stateManager.SetState(user.TelegramID, state.StateConsultationStudents)

	text, kb := common.BuildPickParticipantsScreen(draft.Header(), students, draft.Students, draft.Page)
	h.sendScreen(ctx, b, chatID, text, kb)
}

// ===== Карточка ученика =====

func (h *Handlers) handleStudentLastName(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireStaff(ctx, b, update)
	if !ok {
		return
	}
	h.stateManager.SetData(user.TelegramID, state.KeyLastName, strings.TrimSpace(update.Message.Text))
	h.stateManager.SetState(user.TelegramID, state.StateStudentFirstName)
	h.sendPrompt(ctx, b, update.Message.Chat.ID, "👤 <b>Новый ученик</b>\n\nШаг 2 из 4: введите имя.")
}

func (h *Handlers) handleStudentFirstName(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireStaff(ctx, b, update)
	if !ok {
		return
	}
	h.stateManager.SetData(user.TelegramID, state.KeyFirstName, strings.TrimSpace(update.Message.Text))
	h.stateManager.SetState(user.TelegramID, state.StateStudentClass)
	h.sendPrompt(ctx, b, update.Message.Chat.ID,
		"👤 <b>Новый ученик</b>\n\nШаг 3 из 4: введите класс, например 7А.\nОтправьте «-», чтобы пропустить.")
}

func (h *Handlers) handleStudentClass(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireStaff(ctx, b, update)
	if !ok {
		return
	}
	className := strings.TrimSpace(update.Message.Text)
	if className == skipInput {
		className = ""
	}
	h.stateManager.SetData(user.TelegramID, state.KeyClassName, className)
	h.stateManager.SetState(user.TelegramID, state.StateStudentBirthDate)
	h.sendPrompt(ctx, b, update.Message.Chat.ID,
		"👤 <b>Новый ученик</b>\n\nШаг 4 из 4: дата рождения в формате ДД.ММ.ГГГГ.\nОтправьте «-», чтобы пропустить.")
}

// handleStudentBirthDate последний шаг: создаёт карточку
func (h *Handlers) handleStudentBirthDate(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireStaff(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID
	telegramID := user.TelegramID

	data := h.stateManager.GetAllData(telegramID)
	in := lifecycle.StudentInput{}
	in.LastName, _ = data[state.KeyLastName].(string)
	in.FirstName, _ = data[state.KeyFirstName].(string)
	in.ClassName, _ = data[state.KeyClassName].(string)

	if raw := strings.TrimSpace(update.Message.Text); raw != skipInput {
		birth, err := formatting.ParseDate(raw, h.location)
		if err != nil {
			h.sendPrompt(ctx, b, chatID, "❌ Неверный формат даты. Введите ДД.ММ.ГГГГ или «-».")
			return
		}
		in.BirthDate = &birth
	}

	s, err := h.services.Users.CreateStudent(ctx, user.Actor(), in)
	if err != nil {
		// ошибка в одном из полей: заполнение начинается заново
		h.stateManager.ClearState(telegramID)
		h.replyError(ctx, b, chatID, err, "create student")
		return
	}
	h.stateManager.ClearState(telegramID)

	h.logger.Info("Student card created from bot",
		zap.Int64("user_id", user.ID),
		zap.Int64("student_id", s.ID))
	text, kb := common.BuildStudentScreen(s, user.Actor())
	h.sendScreen(ctx, b, chatID, noticePrefix("Карточка создана")+text, kb)
}

// ===== Файлы =====

// handleAttachmentUpload принимает документ и прикрепляет его к консультации.
// Подпись к файлу становится описанием.
func (h *Handlers) handleAttachmentUpload(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireStaff(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	doc := update.Message.Document
	if doc == nil {
		h.sendPrompt(ctx, b, chatID, "📎 Отправьте файл документом. Подпись к файлу станет описанием.")
		return
	}
	if doc.FileSize > service.MaxAttachmentSize {
		h.sendPrompt(ctx, b, chatID, fmt.Sprintf("❌ Файл больше %d МБ. Отправьте другой файл.", service.MaxAttachmentSize>>20))
		return
	}

	consultationID, ok := h.dataID(ctx, b, update, state.KeyConsultationID)
	if !ok {
		return
	}

	file, err := b.GetFile(ctx, &bot.GetFileParams{FileID: doc.FileID})
	if err != nil {
		h.replyError(ctx, b, chatID, err, "get telegram file")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.FileDownloadLink(file), nil)
	if err != nil {
		h.replyError(ctx, b, chatID, err, "download attachment")
		return
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		h.replyError(ctx, b, chatID, err, "download attachment")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		h.replyError(ctx, b, chatID, fmt.Errorf("download attachment: status %d", resp.StatusCode), "download attachment")
		return
	}

	name := doc.FileName
	if name == "" {
		name = path.Base(file.FilePath)
	}
	att, err := h.services.Attachments.Add(ctx, user.Actor(), consultationID, name, update.Message.Caption, resp.Body)
	if err != nil {
		h.replyError(ctx, b, chatID, err, "add attachment")
		return
	}
	h.stateManager.ClearState(user.TelegramID)

	h.logger.Info("Attachment uploaded from bot",
		zap.Int64("user_id", user.ID),
		zap.Int64("consultation_id", consultationID),
		zap.Int64("attachment_id", att.ID))

	atts, err := h.services.Attachments.List(ctx, user.Actor(), consultationID)
	if err != nil {
		h.replyError(ctx, b, chatID, err, "list attachments")
		return
	}
	text, kb := common.BuildAttachmentsScreen(consultationID, atts)
	h.sendScreen(ctx, b, chatID, noticePrefix("Файл прикреплён")+text, kb)
}

// ===== Чат =====

// handleChatMessage ученик пишет психологу
func (h *Handlers) handleChatMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireStudent(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	if _, err := h.services.Chats.Send(ctx, user.Actor(), update.Message.Text); err != nil {
		h.replyError(ctx, b, chatID, err, "send chat message")
		return
	}
	h.stateManager.ClearState(user.TelegramID)

	view, err := h.services.Chats.Open(ctx, user.Actor())
	if err != nil {
		h.replyError(ctx, b, chatID, err, "open chat")
		return
	}
	text, kb := common.BuildStudentChatScreen(view)
	h.sendScreen(ctx, b, chatID, noticePrefix("Сообщение отправлено")+text, kb)
}

// handleChatReply ответ психолога в чат ученика
func (h *Handlers) handleChatReply(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireStaff(ctx, b, update)
	if !ok {
		return
	}
	id, ok := h.dataID(ctx, b, update, state.KeyChatID)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	if _, err := h.services.Chats.Reply(ctx, user.Actor(), id, update.Message.Text); err != nil {
		h.replyError(ctx, b, chatID, err, "reply chat")
		return
	}
	h.stateManager.ClearState(user.TelegramID)

	view, err := h.services.Chats.View(ctx, user.Actor(), id)
	if err != nil {
		h.replyError(ctx, b, chatID, err, "view chat")
		return
	}
	text, kb := common.BuildChatScreen(view)
	h.sendScreen(ctx, b, chatID, noticePrefix("Ответ отправлен")+text, kb)
}
