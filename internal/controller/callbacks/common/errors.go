package common

import (
	"errors"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
)

// Общие ошибки для обработчиков
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrNotStaff      = errors.New("user is not a psychologist")
	ErrNotAdmin      = errors.New("user is not an admin")
	ErrNoStudentCard = errors.New("account is not bound to a student")
	ErrNoMessage     = errors.New("no message in callback")
	ErrInvalidFormat = errors.New("invalid callback format")
)

// alertLimit ограничение Telegram на текст всплывающего ответа
const alertLimit = 200

// ErrorMessage возвращает пользовательское сообщение для ошибки
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return "❌ Пользователь не найден. Используйте /start"
	case errors.Is(err, ErrNotStaff):
		return "❌ Эта функция доступна только психологам"
	case errors.Is(err, ErrNotAdmin):
		return "❌ Эта функция доступна только администраторам"
	case errors.Is(err, ErrNoStudentCard):
		return "❌ Аккаунт ещё не привязан к карточке ученика. Обратитесь к психологу"
	case errors.Is(err, ErrNoMessage):
		return "❌ Ошибка обработки сообщения"
	case errors.Is(err, ErrInvalidFormat):
		return "❌ Неверный формат данных"
	}

	if e, ok := model.AsError(err); ok {
		if msg := e.UserMessage(); msg != "" {
			return Truncate("❌ "+msg, alertLimit)
		}
		return kindMessage(e.Kind)
	}
	return "❌ Произошла ошибка"
}

func kindMessage(kind error) string {
	switch kind {
	case model.ErrForbidden:
		return "❌ Недостаточно прав"
	case model.ErrPrecondition:
		return "❌ Действие сейчас недоступно"
	case model.ErrNotFound:
		return "❌ Не найдено"
	case model.ErrReference:
		return "❌ Ошибка справочных данных, обратитесь к администратору"
	case model.ErrValidation:
		return "❌ Проверьте введённые данные"
	}
	return "❌ Произошла ошибка"
}

// Truncate обрезает строку до limit символов
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

// IsUserError ошибка вызвана действием пользователя, а не сбоем
func IsUserError(err error) bool {
	if _, ok := model.AsError(err); ok {
		return true
	}
	for _, target := range []error{ErrUserNotFound, ErrNotStaff, ErrNotAdmin, ErrNoStudentCard, ErrInvalidFormat} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
