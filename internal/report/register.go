package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
)

const (
	// RegisterLimit больше строк реестр не выгружает
	RegisterLimit      = 2000
	registerResultSize = 500
)

// RegisterRow строка реестра консультаций администратора
type RegisterRow struct {
	ConsultationID int64                    `json:"consultation_id"`
	Date           time.Time                `json:"date"`
	StartTime      *model.TimeOfDay         `json:"start_time,omitempty"`
	EndTime        *model.TimeOfDay         `json:"end_time,omitempty"`
	Students       []string                 `json:"students"`
	Form           model.ConsultationForm   `json:"form"`
	Psychologist   string                   `json:"psychologist"`
	Status         model.ConsultationStatus `json:"status"`
	Result         string                   `json:"result"`
}

// ConsultationRegister консультации периода, новые первыми, не больше RegisterLimit
func ConsultationRegister(data Dataset) []RegisterRow {
	recs := make([]ConsultationRecord, len(data.Consultations))
	copy(recs, data.Consultations)
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i].Consultation, recs[j].Consultation
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.ID > b.ID
	})
	if len(recs) > RegisterLimit {
		recs = recs[:RegisterLimit]
	}

	rows := make([]RegisterRow, 0, len(recs))
	for _, rec := range recs {
		c := rec.Consultation
		row := RegisterRow{
			ConsultationID: c.ID,
			Date:           c.Date,
			StartTime:      c.StartTime,
			EndTime:        c.EndTime,
			Form:           c.Form,
			Psychologist:   "—",
			Status:         c.Status(),
			Result:         truncate(c.Result, registerResultSize),
		}
		for _, id := range rec.Students() {
			if s, ok := data.Students[id]; ok {
				row.Students = append(row.Students, s.FullName())
			} else {
				row.Students = append(row.Students, fmt.Sprintf("#%d", id))
			}
		}
		if rec.Request != nil && rec.Request.PsychologistID != nil {
			if u, ok := data.Psychologists[*rec.Request.PsychologistID]; ok {
				row.Psychologist = u.DisplayName()
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "…"
}
