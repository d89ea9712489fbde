package common

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/state"
	"github.com/Freeeeeet/psychologist_bot/internal/lifecycle"
	"github.com/Freeeeeet/psychologist_bot/internal/model"
)

// ConsultationDraft черновик консультации, который собирается по шагам диалога
type ConsultationDraft struct {
	RequestID      int64 // 0 - консультация без заявки
	ConsultationID int64 // не 0 - перенос существующей консультации
	Date           time.Time
	Start          model.TimeOfDay
	End            model.TimeOfDay
	Students       []int64
	Result         string
	Page           int
}

// GetDraft достаёт черновик из состояния диалога
func GetDraft(sm callbacktypes.StateManager, telegramID int64) (*ConsultationDraft, bool) {
	v, ok := sm.GetData(telegramID, state.KeyDraft)
	if !ok {
		return nil, false
	}
	d, ok := v.(*ConsultationDraft)
	return d, ok
}

// Toggle добавляет или убирает ученика из списка участников
func (d *ConsultationDraft) Toggle(studentID int64) {
	if i := slices.Index(d.Students, studentID); i >= 0 {
		d.Students = slices.Delete(d.Students, i, i+1)
		return
	}
	d.Students = append(d.Students, studentID)
}

// Input данные для сохранения. Форма определяется числом участников.
func (d *ConsultationDraft) Input() lifecycle.ConsultationInput {
	in := lifecycle.ConsultationInput{
		Form:       model.FormIndividual,
		Date:       d.Date,
		StartTime:  &d.Start,
		EndTime:    &d.End,
		StudentIDs: slices.Clone(d.Students),
		Result:     d.Result,
	}
	if len(d.Students) > 1 {
		in.Form = model.FormGroup
	}
	if d.RequestID != 0 {
		id := d.RequestID
		in.RequestID = &id
	}
	return in
}

// Header шапка экрана выбора участников
func (d *ConsultationDraft) Header() string {
	var sb strings.Builder
	if d.ConsultationID != 0 {
		fmt.Fprintf(&sb, "📅 <b>Перенос консультации #%d</b>\n\n", d.ConsultationID)
	} else {
		sb.WriteString("🗓 <b>Новая консультация</b>\n\n")
	}
	if d.RequestID != 0 {
		fmt.Fprintf(&sb, "📋 Заявка #%d\n", d.RequestID)
	}
	fmt.Fprintf(&sb, "📅 %s, %s", formatting.FormatDateWithWeekday(d.Date), formatting.FormatTimeRange(&d.Start, &d.End))
	return sb.String()
}
