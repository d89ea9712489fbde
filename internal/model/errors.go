package model

import (
	"errors"
	"sort"
	"strings"
)

// Виды ошибок операций. Сравниваются через errors.Is.
var (
	ErrForbidden    = errors.New("forbidden")
	ErrPrecondition = errors.New("precondition failed")
	ErrNotFound     = errors.New("not found")
	ErrReference    = errors.New("broken reference")
	ErrValidation   = errors.New("validation failed")
)

// Reason уточняет причину отказа, чтобы клиент мог отличить один отказ от другого
type Reason string

const (
	ReasonRole                  Reason = "role"
	ReasonNotOwner              Reason = "not_owner"
	ReasonNoRequest             Reason = "no_request"
	ReasonNoPsychologist        Reason = "no_psychologist"
	ReasonWrongPsychologist     Reason = "wrong_psychologist"
	ReasonTerminal              Reason = "terminal"
	ReasonNoResult              Reason = "no_result"
	ReasonUnconfirmed           Reason = "unconfirmed_participants"
	ReasonNotEnrolled           Reason = "not_enrolled"
	ReasonParticipationCanceled Reason = "participation_cancelled"
	ReasonNotTerminal           Reason = "not_terminal"
)

// Error ошибка операции ядра
type Error struct {
	Kind    error
	Op      string
	Reason  Reason
	Message string            // сообщение для пользователя
	Fields  map[string]string // ошибки по полям для ErrValidation
	Details []string          // например, имена неподтвердивших участников
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Reason != "" {
		b.WriteString(" (")
		b.WriteString(string(e.Reason))
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is позволяет писать errors.Is(err, model.ErrPrecondition)
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// UserMessage собирает текст для показа пользователю
func (e *Error) UserMessage() string {
	msg := e.Message
	if len(e.Details) > 0 {
		msg += ": " + strings.Join(e.Details, ", ")
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		lines := make([]string, 0, len(keys))
		for _, k := range keys {
			lines = append(lines, e.Fields[k])
		}
		if msg != "" {
			msg += "\n"
		}
		msg += strings.Join(lines, "\n")
	}
	return msg
}

func Forbidden(op string, reason Reason, msg string) *Error {
	return &Error{Kind: ErrForbidden, Op: op, Reason: reason, Message: msg}
}

func Precondition(op string, reason Reason, msg string) *Error {
	return &Error{Kind: ErrPrecondition, Op: op, Reason: reason, Message: msg}
}

func NotFound(op, msg string) *Error {
	return &Error{Kind: ErrNotFound, Op: op, Message: msg}
}

// Reference ошибка конфигурации: справочная запись или психолог не найдены
func Reference(op, msg string, err error) *Error {
	return &Error{Kind: ErrReference, Op: op, Message: msg, Err: err}
}

func Validation(op string, fields map[string]string) *Error {
	return &Error{Kind: ErrValidation, Op: op, Message: "Проверьте введённые данные", Fields: fields}
}

// AsError достаёт *Error из цепочки
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// ReasonOf возвращает причину отказа или пустую строку
func ReasonOf(err error) Reason {
	if e, ok := AsError(err); ok {
		return e.Reason
	}
	return ""
}
