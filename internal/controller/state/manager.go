package state

import (
	"maps"
	"sync"
	"time"
)

// Manager хранит диалоги пользователей в памяти процесса.
// Реализует callbacktypes.StateManager.
type Manager struct {
	mu      sync.Mutex
	dialogs map[int64]*dialog // telegramID -> диалог
	ttl     time.Duration
	now     func() time.Time
}

func NewManager() *Manager {
	return NewManagerWithTTL(DialogTTL)
}

// NewManagerWithTTL менеджер с другим временем жизни диалога
func NewManagerWithTTL(ttl time.Duration) *Manager {
	return &Manager{
		dialogs: make(map[int64]*dialog),
		ttl:     ttl,
		now:     time.Now,
	}
}

// lookup живой диалог пользователя. Просроченный удаляется.
// Вызывается под mu.
func (m *Manager) lookup(telegramID int64) *dialog {
	d, ok := m.dialogs[telegramID]
	if !ok {
		return nil
	}
	if m.ttl > 0 && m.now().Sub(d.touched) > m.ttl {
		delete(m.dialogs, telegramID)
		return nil
	}
	return d
}

func (m *Manager) ensure(telegramID int64) *dialog {
	d := m.lookup(telegramID)
	if d == nil {
		d = &dialog{data: make(map[string]interface{})}
		m.dialogs[telegramID] = d
	}
	d.touched = m.now()
	return d
}

// GetState текущий шаг диалога или StateNone
func (m *Manager) GetState(telegramID int64) UserState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d := m.lookup(telegramID); d != nil {
		return d.state
	}
	return StateNone
}

// SetState переводит диалог на шаг. StateNone завершает диалог вместе с данными.
func (m *Manager) SetState(telegramID int64, state UserState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if state == StateNone {
		delete(m.dialogs, telegramID)
		return
	}
	m.ensure(telegramID).state = state
}

func (m *Manager) GetData(telegramID int64, key string) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := m.lookup(telegramID)
	if d == nil {
		return nil, false
	}
	v, ok := d.data[key]
	return v, ok
}

// Int64 значение-идентификатор из данных диалога
func (m *Manager) Int64(telegramID int64, key string) (int64, bool) {
	v, ok := m.GetData(telegramID, key)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func (m *Manager) SetData(telegramID int64, key string, value interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ensure(telegramID).data[key] = value
}

// ClearState завершает диалог
func (m *Manager) ClearState(telegramID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.dialogs, telegramID)
}

// GetAllData копия данных диалога или nil
func (m *Manager) GetAllData(telegramID int64) map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d := m.lookup(telegramID); d != nil {
		return maps.Clone(d.data)
	}
	return nil
}

// Sweep удаляет просроченные диалоги, возвращает сколько удалено
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id := range m.dialogs {
		if m.lookup(id) == nil {
			removed++
		}
	}
	return removed
}
