package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/lifecycle"
	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"go.uber.org/zap"
)

// DefaultChatHistory сколько последних сообщений показывать в чате
const DefaultChatHistory = 30

// ChatPusher доставляет сообщение чата собеседнику
type ChatPusher interface {
	PushChat(ctx context.Context, recipient model.User, from string, msg model.ChatMessage) error
}

// ChatView переписка с собеседниками и именами авторов
type ChatView struct {
	Chat         model.Chat
	Student      model.Student
	Psychologist *model.User
	Messages     []model.ChatMessage
	Authors      map[int64]string
	// CanSend смотрящий может писать в чат
	CanSend bool
}

// AuthorName подпись сообщения
func (v *ChatView) AuthorName(m model.ChatMessage) string {
	if m.AuthorID == nil {
		return "Удалённый пользователь"
	}
	if name, ok := v.Authors[*m.AuthorID]; ok {
		return name
	}
	return "Пользователь"
}

type ChatService struct {
	repos   Repositories
	pusher  ChatPusher
	history int
	logger  *zap.Logger
	now     func() time.Time
}

func NewChatService(repos Repositories, history int, logger *zap.Logger) *ChatService {
	if history <= 0 {
		history = DefaultChatHistory
	}
	return &ChatService{
		repos:   repos,
		history: history,
		logger:  logger,
		now:     time.Now,
	}
}

// SetPusher подключает доставку. Бот создаётся после сервисов.
func (s *ChatService) SetPusher(p ChatPusher) {
	s.pusher = p
}

// Open чат ученика с психологом. Чат создаётся при первом открытии,
// входящие сообщения отмечаются прочитанными.
func (s *ChatService) Open(ctx context.Context, actor model.Actor) (*ChatView, error) {
	chat, err := s.ensure(ctx, actor, "service.OpenChat")
	if err != nil {
		return nil, err
	}
	return s.view(ctx, actor, *chat, true)
}

// Send ученик пишет психологу
func (s *ChatService) Send(ctx context.Context, actor model.Actor, text string) (*model.ChatMessage, error) {
	text, err := lifecycle.ValidateChatMessage(text)
	if err != nil {
		return nil, err
	}
	chat, err := s.ensure(ctx, actor, "service.SendChatMessage")
	if err != nil {
		return nil, err
	}

	msg, err := s.post(ctx, actor, *chat, text)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Chat message sent by student",
		zap.Int64("chat_id", chat.ID),
		zap.Int64("message_id", msg.ID),
	)

	psychologist, err := s.repos.Users.GetByID(ctx, chat.PsychologistID)
	if err != nil || psychologist == nil {
		s.logger.Warn("Failed to find chat psychologist",
			zap.Int64("chat_id", chat.ID),
			zap.Error(err),
		)
		return msg, nil
	}
	student, err := s.repos.Students.GetByID(ctx, chat.StudentID)
	from := "Ученик"
	if err == nil && student != nil {
		from = student.FullName()
	}
	s.push(ctx, []model.User{*psychologist}, from, *msg)
	return msg, nil
}

// List чаты психолога, администратору все. Сначала чаты с последними сообщениями.
func (s *ChatService) List(ctx context.Context, actor model.Actor) ([]model.ChatSummary, error) {
	if !actor.IsStaff() {
		return nil, model.Forbidden("service.ListChats", model.ReasonRole, "Список чатов доступен только психологам")
	}
	var filter *int64
	if actor.IsPsychologist() {
		id := actor.UserID
		filter = &id
	}
	chats, err := s.repos.Chats.List(ctx, filter, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return chats, nil
}

// View чат для психолога или администратора
func (s *ChatService) View(ctx context.Context, actor model.Actor, chatID int64) (*ChatView, error) {
	chat, err := s.visible(ctx, actor, chatID, "service.ViewChat")
	if err != nil {
		return nil, err
	}
	return s.view(ctx, actor, *chat, canReply(actor, *chat))
}

// Reply ответ психолога ученику. Администратор отвечает только
// в чатах, закреплённых за ним самим.
func (s *ChatService) Reply(ctx context.Context, actor model.Actor, chatID int64, text string) (*model.ChatMessage, error) {
	const op = "service.ReplyChat"
	text, err := lifecycle.ValidateChatMessage(text)
	if err != nil {
		return nil, err
	}
	chat, err := s.visible(ctx, actor, chatID, op)
	if err != nil {
		return nil, err
	}
	if !canReply(actor, *chat) {
		return nil, model.Forbidden(op, model.ReasonWrongPsychologist, "Администратор может только просматривать переписку")
	}

	msg, err := s.post(ctx, actor, *chat, text)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Chat reply sent",
		zap.Int64("chat_id", chat.ID),
		zap.Int64("message_id", msg.ID),
		zap.Int64("user_id", actor.UserID),
	)

	recipients, err := s.repos.Users.ListByStudentID(ctx, chat.StudentID)
	if err != nil {
		s.logger.Warn("Failed to find chat recipients", zap.Int64("chat_id", chat.ID), zap.Error(err))
		return msg, nil
	}
	from := "Психолог"
	if u, err := s.repos.Users.GetByID(ctx, actor.UserID); err == nil && u != nil {
		from = u.DisplayName()
	}
	s.push(ctx, recipients, from, *msg)
	return msg, nil
}

func canReply(actor model.Actor, chat model.Chat) bool {
	return actor.IsPsychologist() || (actor.IsAdmin() && chat.PsychologistID == actor.UserID)
}

// visible чат, который видит сотрудник. Чужой чат для психолога не существует.
func (s *ChatService) visible(ctx context.Context, actor model.Actor, chatID int64, op string) (*model.Chat, error) {
	if !actor.IsStaff() {
		return nil, model.Forbidden(op, model.ReasonRole, "Чаты учеников доступны только психологам")
	}
	chat, err := s.repos.Chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}
	if chat == nil || (actor.IsPsychologist() && chat.PsychologistID != actor.UserID) {
		return nil, model.NotFound(op, "Чат не найден")
	}
	return chat, nil
}

// ensure чат ученика, при необходимости создаётся с подобранным психологом
func (s *ChatService) ensure(ctx context.Context, actor model.Actor, op string) (*model.Chat, error) {
	if !actor.IsStudent() {
		return nil, model.Forbidden(op, model.ReasonRole, "Чат с психологом доступен только ученику")
	}
	studentID := *actor.StudentID

	chat, err := s.repos.Chats.GetByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student chat: %w", err)
	}
	if chat != nil {
		return chat, nil
	}

	psychologist, err := s.resolvePsychologist(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if psychologist == nil {
		return nil, model.Precondition(op, model.ReasonNoPsychologist,
			"Сейчас нет доступного психолога для чата. Обратитесь к администратору.")
	}

	chat = &model.Chat{StudentID: studentID, PsychologistID: psychologist.ID, CreatedAt: s.now()}
	if err := s.repos.Chats.Ensure(ctx, chat); err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}
	s.logger.Info("Chat opened",
		zap.Int64("chat_id", chat.ID),
		zap.Int64("student_id", studentID),
		zap.Int64("psychologist_id", chat.PsychologistID),
	)
	return chat, nil
}

// resolvePsychologist психолог последней назначенной заявки ученика,
// иначе первый активный психолог, иначе первый активный администратор
func (s *ChatService) resolvePsychologist(ctx context.Context, studentID int64) (*model.User, error) {
	requests, err := s.repos.Requests.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list student requests: %w", err)
	}
	for _, req := range requests {
		if req.PsychologistID == nil {
			continue
		}
		u, err := s.repos.Users.GetByID(ctx, *req.PsychologistID)
		if err != nil {
			return nil, fmt.Errorf("get request psychologist: %w", err)
		}
		if u != nil && u.IsActive && u.Actor().IsStaff() {
			return u, nil
		}
		break
	}

	for _, role := range []model.Role{model.RolePsychologist, model.RoleAdmin} {
		users, err := s.repos.Users.ListByRole(ctx, role)
		if err != nil {
			return nil, fmt.Errorf("list %s users: %w", role, err)
		}
		var first *model.User
		for i := range users {
			if first == nil || users[i].ID < first.ID {
				first = &users[i]
			}
		}
		if first != nil {
			return first, nil
		}
	}
	return nil, nil
}

func (s *ChatService) post(ctx context.Context, actor model.Actor, chat model.Chat, text string) (*model.ChatMessage, error) {
	author := actor.UserID
	msg := &model.ChatMessage{ChatID: chat.ID, AuthorID: &author, Text: text, CreatedAt: s.now()}
	err := s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repos.Chats.CreateMessage(ctx, msg); err != nil {
			return err
		}
		return s.repos.Chats.Touch(ctx, chat.ID, msg.CreatedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("post chat message: %w", err)
	}
	return msg, nil
}

func (s *ChatService) view(ctx context.Context, actor model.Actor, chat model.Chat, canSend bool) (*ChatView, error) {
	messages, err := s.repos.Chats.ListMessages(ctx, chat.ID, s.history)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	student, err := s.repos.Students.GetByID(ctx, chat.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get chat student: %w", err)
	}
	if student == nil {
		return nil, model.NotFound("service.ViewChat", "Ученик не найден")
	}
	psychologist, err := s.repos.Users.GetByID(ctx, chat.PsychologistID)
	if err != nil {
		return nil, fmt.Errorf("get chat psychologist: %w", err)
	}

	v := &ChatView{
		Chat:         chat,
		Student:      *student,
		Psychologist: psychologist,
		Messages:     messages,
		Authors:      make(map[int64]string),
		CanSend:      canSend,
	}
	for _, m := range messages {
		if m.AuthorID == nil {
			continue
		}
		id := *m.AuthorID
		if _, ok := v.Authors[id]; ok {
			continue
		}
		switch {
		case id == actor.UserID:
			v.Authors[id] = "Вы"
		default:
			u, err := s.repos.Users.GetByID(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("get chat author: %w", err)
			}
			if u == nil {
				continue
			}
			if u.Role == model.RoleStudent {
				v.Authors[id] = student.FullName()
			} else {
				v.Authors[id] = u.DisplayName()
			}
		}
	}

	marked, err := s.repos.Chats.MarkRead(ctx, chat.ID, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("mark chat read: %w", err)
	}
	if marked > 0 {
		s.logger.Debug("Chat messages read",
			zap.Int64("chat_id", chat.ID),
			zap.Int64("user_id", actor.UserID),
			zap.Int("count", marked),
		)
	}
	return v, nil
}

// push ошибки доставки только логируются
func (s *ChatService) push(ctx context.Context, recipients []model.User, from string, msg model.ChatMessage) {
	if s.pusher == nil {
		return
	}
	for _, u := range recipients {
		if err := s.pusher.PushChat(ctx, u, from, msg); err != nil {
			s.logger.Warn("Failed to push chat message",
				zap.Int64("message_id", msg.ID),
				zap.Int64("user_id", u.ID),
				zap.Error(err),
			)
		}
	}
}
