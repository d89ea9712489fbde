package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindsMatchThroughWrapping(t *testing.T) {
	err := fmt.Errorf("complete consultation: %w",
		Precondition("lifecycle.CompleteConsultation", ReasonNoResult, "Сначала укажите результат"))

	assert.True(t, errors.Is(err, ErrPrecondition))
	assert.False(t, errors.Is(err, ErrForbidden))
	assert.Equal(t, ReasonNoResult, ReasonOf(err))
}

func TestUserMessageIncludesDetailsAndFields(t *testing.T) {
	e := Precondition("op", ReasonUnconfirmed, "Не все участники подтвердили")
	e.Details = []string{"Иванов Иван", "Петров Пётр"}
	assert.Equal(t, "Не все участники подтвердили: Иванов Иван, Петров Пётр", e.UserMessage())

	v := Validation("op", map[string]string{"end_time": "b", "date": "a"})
	assert.Equal(t, "Проверьте введённые данные\na\nb", v.UserMessage())
}

func TestTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("08:30")
	assert.NoError(t, err)
	assert.Equal(t, 510, tod.Minutes())
	assert.Equal(t, "08:30", tod.String())

	_, err = ParseTimeOfDay("8 30")
	assert.Error(t, err)
}
