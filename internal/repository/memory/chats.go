package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
)

// chatRead отметка прочтения, уникальна по паре
type chatRead struct {
	messageID int64
	userID    int64
}

type Chats struct{ s *Store }

func (r *Chats) Ensure(_ context.Context, c *model.Chat) error {
	r.s.mutex.Lock()
	defer r.s.mutex.Unlock()
	for _, existing := range r.s.t.chats {
		if existing.StudentID == c.StudentID {
			*c = existing
			return nil
		}
	}
	if _, ok := r.s.t.students[c.StudentID]; !ok {
		return reference("memory.Chats.Ensure", "students")
	}
	if _, ok := r.s.t.users[c.PsychologistID]; !ok {
		return reference("memory.Chats.Ensure", "users")
	}
	c.ID = r.s.nextID()
	c.CreatedAt = r.s.stamp(c.CreatedAt)
	c.UpdatedAt = c.CreatedAt
	r.s.t.chats[c.ID] = *c
	return nil
}

func (r *Chats) GetByID(_ context.Context, id int64) (*model.Chat, error) {
	r.s.mutex.RLock()
	defer r.s.mutex.RUnlock()
	c, ok := r.s.t.chats[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *Chats) GetByStudent(_ context.Context, studentID int64) (*model.Chat, error) {
	r.s.mutex.RLock()
	defer r.s.mutex.RUnlock()
	for _, c := range r.s.t.chats {
		if c.StudentID == studentID {
			return &c, nil
		}
	}
	return nil, nil
}

func (r *Chats) Touch(_ context.Context, id int64, at time.Time) error {
	r.s.mutex.Lock()
	defer r.s.mutex.Unlock()
	c, ok := r.s.t.chats[id]
	if !ok {
		return fmt.Errorf("touch chat %d: %w", id, notFound("chat"))
	}
	c.UpdatedAt = at
	r.s.t.chats[id] = c
	return nil
}

func (r *Chats) List(_ context.Context, psychologistID *int64, viewerID int64) ([]model.ChatSummary, error) {
	r.s.mutex.RLock()
	defer r.s.mutex.RUnlock()
	var out []model.ChatSummary
	for _, c := range r.s.t.chats {
		if psychologistID != nil && c.PsychologistID != *psychologistID {
			continue
		}
		sum := model.ChatSummary{Chat: c, Student: r.s.t.students[c.StudentID]}
		for _, m := range r.s.t.chatMessages {
			if m.ChatID != c.ID {
				continue
			}
			if sum.LastMessageAt == nil || m.CreatedAt.After(*sum.LastMessageAt) {
				at := m.CreatedAt
				sum.LastMessageAt = &at
			}
			if _, read := r.s.t.chatReads[chatRead{m.ID, viewerID}]; !read && !m.IsFrom(viewerID) {
				sum.Unread++
			}
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.LastMessageAt == nil && b.LastMessageAt != nil:
			return false
		case a.LastMessageAt != nil && b.LastMessageAt == nil:
			return true
		case a.LastMessageAt != nil && !a.LastMessageAt.Equal(*b.LastMessageAt):
			return a.LastMessageAt.After(*b.LastMessageAt)
		case !a.UpdatedAt.Equal(b.UpdatedAt):
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.ID > b.ID
	})
	return out, nil
}

func (r *Chats) CreateMessage(_ context.Context, m *model.ChatMessage) error {
	r.s.mutex.Lock()
	defer r.s.mutex.Unlock()
	if err := r.s.failure("chat_messages.create"); err != nil {
		return err
	}
	if _, ok := r.s.t.chats[m.ChatID]; !ok {
		return reference("memory.Chats.CreateMessage", "student_psychologist_chats")
	}
	m.ID = r.s.nextID()
	m.CreatedAt = r.s.stamp(m.CreatedAt)
	r.s.t.chatMessages[m.ID] = *m
	return nil
}

func (r *Chats) ListMessages(_ context.Context, chatID int64, limit int) ([]model.ChatMessage, error) {
	r.s.mutex.RLock()
	defer r.s.mutex.RUnlock()
	var out []model.ChatMessage
	for _, m := range r.s.t.chatMessages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *Chats) MarkRead(_ context.Context, chatID, userID int64) (int, error) {
	r.s.mutex.Lock()
	defer r.s.mutex.Unlock()
	marked := 0
	for _, m := range r.s.t.chatMessages {
		if m.ChatID != chatID || m.IsFrom(userID) {
			continue
		}
		key := chatRead{m.ID, userID}
		if _, ok := r.s.t.chatReads[key]; ok {
			continue
		}
		r.s.t.chatReads[key] = r.s.now()
		marked++
	}
	return marked, nil
}
