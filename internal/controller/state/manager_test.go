package state

import (
	"testing"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/callbacktypes"
	"github.com/stretchr/testify/assert"
)

var _ callbacktypes.StateManager = (*Manager)(nil)

func TestManagerStateLifecycle(t *testing.T) {
	sm := NewManager()
	const tg = int64(42)

	assert.Equal(t, StateNone, sm.GetState(tg))

	sm.SetState(tg, StateRequestNote)
	sm.SetData(tg, KeyRequestID, int64(7))
	assert.Equal(t, StateRequestNote, sm.GetState(tg))

	id, ok := sm.Int64(tg, KeyRequestID)
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)

	// смена шага диалога сохраняет данные
	sm.SetState(tg, StateConsultationNote)
	_, ok = sm.GetData(tg, KeyRequestID)
	assert.True(t, ok)

	sm.SetState(tg, StateNone)
	_, ok = sm.GetData(tg, KeyRequestID)
	assert.False(t, ok)
}

func TestManagerInt64WrongType(t *testing.T) {
	sm := NewManager()
	sm.SetData(1, KeyFirstName, "Анна")

	_, ok := sm.Int64(1, KeyFirstName)
	assert.False(t, ok)
	_, ok = sm.Int64(1, KeyRequestID)
	assert.False(t, ok)
}

func TestManagerGetAllDataReturnsCopy(t *testing.T) {
	sm := NewManager()
	sm.SetData(1, KeyFirstName, "Анна")

	data := sm.GetAllData(1)
	data[KeyFirstName] = "changed"

	v, _ := sm.GetData(1, KeyFirstName)
	assert.Equal(t, "Анна", v)
	assert.Nil(t, sm.GetAllData(2))

	sm.ClearState(1)
	assert.Nil(t, sm.GetAllData(1))
}

func TestManagerExpiresAbandonedDialogs(t *testing.T) {
	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	sm := NewManagerWithTTL(10 * time.Minute)
	sm.now = func() time.Time { return now }

	sm.SetState(1, StateStudentClass)
	sm.SetData(1, KeyClassName, "7А")
	sm.SetState(2, StateRequestNote)

	now = now.Add(8 * time.Minute)
	// обращение к данным продлевает диалог
	sm.SetData(1, KeyLastName, "Белова")

	now = now.Add(5 * time.Minute)
	assert.Equal(t, StateStudentClass, sm.GetState(1))
	assert.Equal(t, 1, sm.Sweep())
	assert.Equal(t, StateNone, sm.GetState(2))

	now = now.Add(11 * time.Minute)
	assert.Nil(t, sm.GetAllData(1))
}

func TestManagerAsStateManager(t *testing.T) {
	var sm callbacktypes.StateManager = NewManager()

	sm.SetState(5, "student_class")
	assert.Equal(t, StateStudentClass, sm.GetState(5))

	sm.SetData(5, KeyClassName, "7А")
	assert.Equal(t, map[string]interface{}{KeyClassName: "7А"}, sm.GetAllData(5))

	sm.ClearState(5)
	assert.Equal(t, StateNone, sm.GetState(5))
}
