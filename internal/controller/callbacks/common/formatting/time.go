package formatting

import (
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
)

const dateLayout = "02.01.2006"

// FormatDateTime форматирует дату и время
func FormatDateTime(t time.Time) string {
	return t.Format("02.01.2006 15:04")
}

// FormatDate форматирует только дату
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// FormatDateWithWeekday форматирует дату с коротким днём недели: 02.03.2026 (Пн)
func FormatDateWithWeekday(t time.Time) string {
	return fmt.Sprintf("%s (%s)", t.Format(dateLayout), GetWeekdayShortName(int(t.Weekday())))
}

// FormatTimeRange форматирует время консультации, если оно задано
func FormatTimeRange(start, end *model.TimeOfDay) string {
	switch {
	case start != nil && end != nil:
		return start.String() + "-" + end.String()
	case start != nil:
		return "с " + start.String()
	}
	return "время не указано"
}

// FormatDuration форматирует длительность в минутах
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d мин", minutes)
	}
	hours := minutes / 60
	mins := minutes % 60
	if mins == 0 {
		return fmt.Sprintf("%d ч", hours)
	}
	return fmt.Sprintf("%d ч %d мин", hours, mins)
}

// GetWeekdayShortName возвращает краткое название дня недели на русском
func GetWeekdayShortName(weekday int) string {
	names := []string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}
	if weekday >= 0 && weekday < len(names) {
		return names[weekday]
	}
	return "?"
}

// ParseDate разбирает дату в формате ДД.ММ.ГГГГ в часовом поясе loc
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// ParseTimeRange разбирает интервал вида 10:00-10:45
func ParseTimeRange(s string) (model.TimeOfDay, model.TimeOfDay, error) {
	s = strings.NewReplacer(" ", "", "–", "-", "—", "-").Replace(s)
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("parse time range %q: expected start-end", s)
	}
	start, err := model.ParseTimeOfDay(parts[0])
	if err != nil {
		return 0, 0, err
	}
	end, err := model.ParseTimeOfDay(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}
