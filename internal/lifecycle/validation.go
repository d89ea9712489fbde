package lifecycle

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/go-playground/validator/v10"
)

// Рабочее время и ограничения на длительность
var (
	WorkdayStart = model.NewTimeOfDay(8, 30)
	WorkdayEnd   = model.NewTimeOfDay(16, 0)
)

const (
	MinDuration = 1
	MaxDuration = 120

	ResultMinLength      = 10
	NoteMinLength        = 3
	NoteMaxLength        = 2000
	RequestNoteMinLength = 5
	RequestNoteMaxLength = 1000
	ChatMessageMaxLength = 2000
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// В ошибках используем json-имена полей
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ConsultationInput данные формы консультации
type ConsultationInput struct {
	RequestID  *int64                 `json:"request_id" validate:"omitempty,gt=0"`
	Form       model.ConsultationForm `json:"form" validate:"required,oneof=individual group"`
	Date       time.Time              `json:"date" validate:"required"`
	StartTime  *model.TimeOfDay       `json:"start_time" validate:"required"`
	EndTime    *model.TimeOfDay       `json:"end_time" validate:"required"`
	StudentIDs []int64                `json:"students" validate:"required,min=1,unique,dive,gt=0"`
	Result     string                 `json:"result" validate:"max=5000"`
}

// RequestInput данные новой заявки от психолога
type RequestInput struct {
	StudentID int64               `json:"student" validate:"required,gt=0"`
	Source    model.RequestSource `json:"source" validate:"required,oneof=student parent teacher"`
}

// StudentInput карточка ученика
type StudentInput struct {
	FirstName string     `json:"first_name" validate:"required,max=100"`
	LastName  string     `json:"last_name" validate:"required,max=100"`
	ClassName string     `json:"class_name" validate:"max=20"`
	BirthDate *time.Time `json:"birth_date"`
}

// ChatMessageInput текст сообщения в чат
type ChatMessageInput struct {
	Text string `json:"text" validate:"required,max=2000"`
}

var fieldLabels = map[string]string{
	"request_id": "Заявка",
	"form":       "Форма",
	"date":       "Дата",
	"start_time": "Время начала",
	"end_time":   "Время окончания",
	"students":   "Ученики",
	"result":     "Результат",
	"student":    "Ученик",
	"source":     "Источник",
	"first_name": "Имя",
	"last_name":  "Фамилия",
	"class_name": "Класс",
	"birth_date": "Дата рождения",
	"text":       "Сообщение",
}

func fieldMessage(fe validator.FieldError) string {
	label, ok := fieldLabels[fe.Field()]
	if !ok {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		if fe.Field() == "students" {
			return "Выберите хотя бы одного ученика"
		}
		return label + ": обязательное поле"
	case "min":
		if fe.Field() == "students" {
			return "Выберите хотя бы одного ученика"
		}
		return fmt.Sprintf("%s: минимум %s", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s: максимум %s символов", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s: недопустимое значение", label)
	case "unique":
		return label + ": ученики не должны повторяться"
	}
	return label + ": неверное значение"
}

// structErrors превращает ошибки validator в карту поле -> сообщение
func structErrors(err error, fields map[string]string) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields["_"] = err.Error()
		return
	}
	for _, fe := range verrs {
		key := fe.Field()
		// для dive-ошибок вида students[0] оставляем имя поля
		if i := strings.IndexByte(key, '['); i > 0 {
			key = key[:i]
		}
		if _, exists := fields[key]; !exists {
			fields[key] = fieldMessage(fe)
		}
	}
}

// NormalizeText схлопывает пробелы и переводы строк
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ComputeDuration длительность в минутах, ограниченная [1, 120]
func ComputeDuration(start, end model.TimeOfDay) int {
	d := end.Minutes() - start.Minutes()
	if d < MinDuration {
		return MinDuration
	}
	if d > MaxDuration {
		return MaxDuration
	}
	return d
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// dayStart обрезает время до полуночи в зоне loc
func dayStart(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// ValidateConsultation проверяет форму консультации до любых изменений.
// creating включает проверки, которые действуют только при создании.
func ValidateConsultation(in *ConsultationInput, now time.Time, creating bool) error {
	const op = "lifecycle.ValidateConsultation"
	fields := make(map[string]string)

	in.Result = NormalizeText(in.Result)

	if err := validate.Struct(in); err != nil {
		structErrors(err, fields)
	}

	if _, bad := fields["students"]; !bad && in.Form != "" {
		switch in.Form {
		case model.FormIndividual:
			if len(in.StudentIDs) != 1 {
				fields["students"] = "Для индивидуальной консультации выберите ровно одного ученика"
			}
		case model.FormGroup:
			if len(in.StudentIDs) < 2 {
				fields["students"] = "Для групповой консультации выберите минимум двух учеников"
			}
		}
	}

	if in.StartTime != nil && (*in.StartTime < WorkdayStart || *in.StartTime > WorkdayEnd) {
		fields["start_time"] = fmt.Sprintf("Время начала должно быть в интервале %s–%s", WorkdayStart, WorkdayEnd)
	}
	if in.EndTime != nil && (*in.EndTime < WorkdayStart || *in.EndTime > WorkdayEnd) {
		fields["end_time"] = fmt.Sprintf("Время окончания должно быть в интервале %s–%s", WorkdayStart, WorkdayEnd)
	}
	if in.StartTime != nil && in.EndTime != nil {
		span := in.EndTime.Minutes() - in.StartTime.Minutes()
		switch {
		case span <= 0:
			fields["end_time"] = "Время окончания должно быть позже времени начала"
		case span > MaxDuration:
			fields["end_time"] = fmt.Sprintf("Длительность консультации не может превышать %d минут", MaxDuration)
		}
	}

	if !in.Date.IsZero() {
		today := dayStart(now, now.Location())
		date := dayStart(in.Date, now.Location())

		if creating {
			if date.Before(today) {
				fields["date"] = "Нельзя создать консультацию на прошедшую дату"
			} else if sameDay(date, today) && in.StartTime != nil {
				nowMinute := model.NewTimeOfDay(now.Hour(), now.Minute())
				if *in.StartTime <= nowMinute {
					fields["start_time"] = "Время начала уже прошло"
				}
			}
		}

		if date.Before(today) && in.Result == "" {
			fields["result"] = "Для прошедшей консультации укажите результат"
		}
	}

	if in.Result != "" && utf8.RuneCountInString(in.Result) < ResultMinLength {
		fields["result"] = fmt.Sprintf("Результат должен содержать минимум %d символов", ResultMinLength)
	}

	if len(fields) > 0 {
		return model.Validation(op, fields)
	}
	return nil
}

// ValidateRequest проверяет заявку, созданную психологом
func ValidateRequest(in *RequestInput) error {
	if err := validate.Struct(in); err != nil {
		fields := make(map[string]string)
		structErrors(err, fields)
		return model.Validation("lifecycle.ValidateRequest", fields)
	}
	return nil
}

// ValidateNote проверяет заметку к консультации и возвращает нормализованный текст
func ValidateNote(text string) (string, error) {
	text = NormalizeText(text)
	n := utf8.RuneCountInString(text)
	switch {
	case n == 0:
		return "", model.Validation("lifecycle.ValidateNote", map[string]string{"text": "Текст заметки обязателен"})
	case n < NoteMinLength:
		return "", model.Validation("lifecycle.ValidateNote", map[string]string{
			"text": fmt.Sprintf("Заметка должна содержать минимум %d символа", NoteMinLength),
		})
	case n > NoteMaxLength:
		return "", model.Validation("lifecycle.ValidateNote", map[string]string{
			"text": fmt.Sprintf("Заметка не может быть длиннее %d символов", NoteMaxLength),
		})
	}
	return text, nil
}

// ValidateChatMessage обрезает пробелы по краям, переносы строк сохраняются
func ValidateChatMessage(text string) (string, error) {
	in := ChatMessageInput{Text: strings.TrimSpace(text)}
	if err := validate.Struct(in); err != nil {
		fields := make(map[string]string)
		structErrors(err, fields)
		return "", model.Validation("lifecycle.ValidateChatMessage", fields)
	}
	return in.Text, nil
}

// ValidateRequestNote проверяет необязательный комментарий ученика к заявке
func ValidateRequestNote(text string) (string, error) {
	text = NormalizeText(text)
	n := utf8.RuneCountInString(text)
	switch {
	case n == 0:
		return "", nil
	case n < RequestNoteMinLength:
		return "", model.Validation("lifecycle.ValidateRequestNote", map[string]string{
			"text": fmt.Sprintf("Опишите ситуацию подробнее (минимум %d символов)", RequestNoteMinLength),
		})
	case n > RequestNoteMaxLength:
		return "", model.Validation("lifecycle.ValidateRequestNote", map[string]string{
			"text": fmt.Sprintf("Текст не может быть длиннее %d символов", RequestNoteMaxLength),
		})
	}
	return text, nil
}

// ValidateStudent проверяет карточку ученика и возвращает её с нормализованными полями
func ValidateStudent(in StudentInput, now time.Time) (model.Student, error) {
	in.FirstName = NormalizeText(in.FirstName)
	in.LastName = NormalizeText(in.LastName)
	in.ClassName = strings.ToUpper(NormalizeText(in.ClassName))

	fields := make(map[string]string)
	if err := validate.Struct(in); err != nil {
		structErrors(err, fields)
	}
	if in.BirthDate != nil && !in.BirthDate.Before(now) {
		fields["birth_date"] = "Дата рождения должна быть в прошлом"
	}
	if len(fields) > 0 {
		return model.Student{}, model.Validation("lifecycle.ValidateStudent", fields)
	}

	return model.Student{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		ClassName: in.ClassName,
		BirthDate: in.BirthDate,
	}, nil
}
