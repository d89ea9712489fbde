package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/Freeeeeet/psychologist_bot/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChatRepository переписка учеников с психологами и отметки прочтения
type ChatRepository struct {
	*base.Repository
}

func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{Repository: base.NewRepository(pool)}
}

const chatColumns = `id, student_id, psychologist_id, created_at, updated_at`

// Ensure создаёт чат ученика. Если чат уже есть, c заполняется
// существующей записью, психолог в ней не меняется.
func (r *ChatRepository) Ensure(ctx context.Context, c *model.Chat) error {
	query := `
		INSERT INTO student_psychologist_chats (student_id, psychologist_id)
		VALUES ($1, $2)
		ON CONFLICT (student_id) DO UPDATE SET student_id = EXCLUDED.student_id
		RETURNING ` + chatColumns

	err := r.DB(ctx).QueryRow(ctx, query, c.StudentID, c.PsychologistID).
		Scan(&c.ID, &c.StudentID, &c.PsychologistID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return base.MapError("ensure chat", err)
	}

	return nil
}

func (r *ChatRepository) get(ctx context.Context, op, where string, arg int64) (*model.Chat, error) {
	query := `SELECT ` + chatColumns + ` FROM student_psychologist_chats WHERE ` + where

	var c model.Chat
	err := r.DB(ctx).QueryRow(ctx, query, arg).
		Scan(&c.ID, &c.StudentID, &c.PsychologistID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &c, nil
}

// GetByID получает чат по ID
func (r *ChatRepository) GetByID(ctx context.Context, id int64) (*model.Chat, error) {
	return r.get(ctx, "get chat by id", "id = $1", id)
}

// GetByStudent чат ученика
func (r *ChatRepository) GetByStudent(ctx context.Context, studentID int64) (*model.Chat, error) {
	return r.get(ctx, "get chat by student", "student_id = $1", studentID)
}

// Touch поднимает чат в списке
func (r *ChatRepository) Touch(ctx context.Context, id int64, at time.Time) error {
	n, err := r.ExecAffected(ctx, `UPDATE student_psychologist_chats SET updated_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("touch chat: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("touch chat %d: not found", id)
	}
	return nil
}

// List чаты психолога (nil - все) с числом непрочитанных для viewerID.
// Сначала чаты с последними сообщениями.
func (r *ChatRepository) List(ctx context.Context, psychologistID *int64, viewerID int64) ([]model.ChatSummary, error) {
	query := `
		SELECT c.id, c.student_id, c.psychologist_id, c.created_at, c.updated_at,
		       s.id, s.first_name, s.last_name, s.class_name, s.birth_date, s.created_at,
		       (SELECT MAX(m.created_at) FROM chat_messages m WHERE m.chat_id = c.id),
		       (SELECT COUNT(*) FROM chat_messages m
		         WHERE m.chat_id = c.id
		           AND m.author_id IS DISTINCT FROM $2
		           AND NOT EXISTS (
		               SELECT 1 FROM chat_message_reads cr
		               WHERE cr.message_id = m.id AND cr.user_id = $2
		           ))
		FROM student_psychologist_chats c
		JOIN students s ON s.id = c.student_id
		WHERE $1::BIGINT IS NULL OR c.psychologist_id = $1
		ORDER BY 12 DESC NULLS LAST, c.updated_at DESC, c.id DESC
	`

	rows, err := r.DB(ctx).Query(ctx, query, psychologistID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	var chats []model.ChatSummary
	for rows.Next() {
		var c model.ChatSummary
		err := rows.Scan(
			&c.ID, &c.StudentID, &c.PsychologistID, &c.CreatedAt, &c.UpdatedAt,
			&c.Student.ID, &c.Student.FirstName, &c.Student.LastName, &c.Student.ClassName,
			&c.Student.BirthDate, &c.Student.CreatedAt,
			&c.LastMessageAt, &c.Unread,
		)
		if err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		chats = append(chats, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chats: %w", err)
	}

	return chats, nil
}

// CreateMessage добавляет сообщение
func (r *ChatRepository) CreateMessage(ctx context.Context, m *model.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (chat_id, author_id, text)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.DB(ctx).QueryRow(ctx, query, m.ChatID, m.AuthorID, m.Text).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return base.MapError("create chat message", err)
	}

	return nil
}

// ListMessages последние limit сообщений чата в порядке отправки
func (r *ChatRepository) ListMessages(ctx context.Context, chatID int64, limit int) ([]model.ChatMessage, error) {
	query := `
		SELECT id, chat_id, author_id, text, created_at FROM (
			SELECT id, chat_id, author_id, text, created_at
			FROM chat_messages
			WHERE chat_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) last
		ORDER BY created_at, id
	`

	rows, err := r.DB(ctx).Query(ctx, query, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	var messages []model.ChatMessage
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.ChatID, &m.AuthorID, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", err)
	}

	return messages, nil
}

// MarkRead отмечает чужие сообщения чата прочитанными пользователем
func (r *ChatRepository) MarkRead(ctx context.Context, chatID, userID int64) (int, error) {
	query := `
		INSERT INTO chat_message_reads (message_id, user_id)
		SELECT m.id, $2
		FROM chat_messages m
		WHERE m.chat_id = $1 AND m.author_id IS DISTINCT FROM $2
		ON CONFLICT (message_id, user_id) DO NOTHING
	`

	n, err := r.ExecAffected(ctx, query, chatID, userID)
	if err != nil {
		return 0, fmt.Errorf("mark chat read: %w", err)
	}
	return int(n), nil
}
