package model

import "time"

// Chat личная переписка ученика с закреплённым психологом.
// У ученика не больше одного чата.
type Chat struct {
	ID             int64     `json:"id"`
	StudentID      int64     `json:"student_id"`
	PsychologistID int64     `json:"psychologist_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ChatMessage сообщение чата. AuthorID nil, если автор удалён.
type ChatMessage struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	AuthorID  *int64    `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// IsFrom сообщение написал этот пользователь
func (m ChatMessage) IsFrom(userID int64) bool {
	return m.AuthorID != nil && *m.AuthorID == userID
}

// ChatSummary строка списка чатов
type ChatSummary struct {
	Chat
	Student       Student    `json:"student"`
	LastMessageAt *time.Time `json:"last_message_at"`
	// Unread сообщения собеседников, ещё не прочитанные смотрящим
	Unread int `json:"unread"`
}
