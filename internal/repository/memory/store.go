// Package memory хранилище в памяти с тем же поведением, что и Postgres:
// внешние ключи, каскадное удаление и транзакции с откатом.
// Используется в тестах сервисов.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
)

type txKey struct{}

type tables struct {
	seq           int64
	users         map[int64]model.User
	students      map[int64]model.Student
	requests      map[int64]model.Request
	consultations map[int64]model.Consultation
	links         map[int64]model.ConsultationStudent
	notifications map[int64]model.Notification
	consNotes     map[int64]model.Note
	reqNotes      map[int64]model.RequestNote
	attachments   map[int64]model.Attachment
	chats         map[int64]model.Chat
	chatMessages  map[int64]model.ChatMessage
	chatReads     map[chatRead]time.Time
}

func (t *tables) clone() tables {
	return tables{
		seq:           t.seq,
		users:         maps.Clone(t.users),
		students:      maps.Clone(t.students),
		requests:      maps.Clone(t.requests),
		consultations: maps.Clone(t.consultations),
		links:         maps.Clone(t.links),
		notifications: maps.Clone(t.notifications),
		consNotes:     maps.Clone(t.consNotes),
		reqNotes:      maps.Clone(t.reqNotes),
		attachments:   maps.Clone(t.attachments),
		chats:         maps.Clone(t.chats),
		chatMessages:  maps.Clone(t.chatMessages),
		chatReads:     maps.Clone(t.chatReads),
	}
}

// Store все таблицы. Транзакции выполняются строго по одной.
type Store struct {
	txMu  sync.Mutex
	mutex sync.RWMutex
	t     tables

	failures map[string]error
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		t: tables{
			users:         make(map[int64]model.User),
			students:      make(map[int64]model.Student),
			requests:      make(map[int64]model.Request),
			consultations: make(map[int64]model.Consultation),
			links:         make(map[int64]model.ConsultationStudent),
			notifications: make(map[int64]model.Notification),
			consNotes:     make(map[int64]model.Note),
			reqNotes:      make(map[int64]model.RequestNote),
			attachments:   make(map[int64]model.Attachment),
			chats:         make(map[int64]model.Chat),
			chatMessages:  make(map[int64]model.ChatMessage),
			chatReads:     make(map[chatRead]time.Time),
		},
		failures: make(map[string]error),
		now:      time.Now,
	}
}

// FailNext следующая операция op (например "notifications.create") вернёт err
func (s *Store) FailNext(op string, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.failures[op] = err
}

func (s *Store) failure(op string) error {
	if err, ok := s.failures[op]; ok {
		delete(s.failures, op)
		return err
	}
	return nil
}

func (s *Store) nextID() int64 {
	s.t.seq++
	return s.t.seq
}

func (s *Store) stamp(t time.Time) time.Time {
	if t.IsZero() {
		return s.now()
	}
	return t
}

// WithTx выполняет fn атомарно: при ошибке или панике все изменения откатываются
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mutex.RLock()
	snapshot := s.t.clone()
	s.mutex.RUnlock()

	rollback := func() {
		s.mutex.Lock()
		s.t = snapshot
		s.mutex.Unlock()
	}

	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		rollback()
		return err
	}
	return nil
}

// Users и остальные методы возвращают репозитории отдельных таблиц
func (s *Store) Users() *Users                 { return &Users{s} }
func (s *Store) Students() *Students           { return &Students{s} }
func (s *Store) Requests() *Requests           { return &Requests{s} }
func (s *Store) Consultations() *Consultations { return &Consultations{s} }
func (s *Store) Participation() *Participation { return &Participation{s} }
func (s *Store) Notifications() *Notifications { return &Notifications{s} }
func (s *Store) Notes() *Notes                 { return &Notes{s} }
func (s *Store) Attachments() *Attachments     { return &Attachments{s} }
func (s *Store) Chats() *Chats                 { return &Chats{s} }

func reference(op, what string) error {
	return model.Reference(op, "Связанная запись не найдена: "+what, nil)
}

func notFound(what string) error {
	return fmt.Errorf("%s not found", what)
}
