package formatting

// pluralize выбирает форму слова для числа: одна, две, пять
func pluralize(count int, one, few, many string) string {
	if count < 0 {
		count = -count
	}
	if count%10 == 1 && count%100 != 11 {
		return one
	}
	if count%10 >= 2 && count%10 <= 4 && (count%100 < 10 || count%100 >= 20) {
		return few
	}
	return many
}

// PluralizeRequests возвращает правильное склонение слова "заявка"
func PluralizeRequests(count int) string {
	return pluralize(count, "заявка", "заявки", "заявок")
}

// PluralizeConsultations возвращает правильное склонение слова "консультация"
func PluralizeConsultations(count int) string {
	return pluralize(count, "консультация", "консультации", "консультаций")
}

// PluralizeStudents возвращает правильное склонение слова "ученик"
func PluralizeStudents(count int) string {
	return pluralize(count, "ученик", "ученика", "учеников")
}

// PluralizeMinutes возвращает правильное склонение слова "минута"
func PluralizeMinutes(count int) string {
	return pluralize(count, "минута", "минуты", "минут")
}
