package main

import (
	"fmt"
	"os"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/report"
	"github.com/Freeeeeet/psychologist_bot/internal/report/render"
)

func main() {
	// Тестовые данные: полгода заявок, начиная с сентября текущего учебного года
	now := time.Now()
	year := now.Year()
	if now.Month() < time.September {
		year--
	}
	start := time.Date(year, time.September, 1, 0, 0, 0, 0, now.Location())

	counts := [][4]int{
		{3, 1, 2, 0},
		{5, 2, 4, 1},
		{2, 3, 6, 1},
		{4, 1, 3, 2},
		{6, 4, 2, 0},
		{1, 2, 5, 1},
	}

	months := make([]report.RequestMonth, 0, len(counts))
	for i, c := range counts {
		m := start.AddDate(0, i, 0)
		months = append(months, report.RequestMonth{
			Month:      m,
			Label:      m.Format("01.2006"),
			New:        c[0],
			InProgress: c[1],
			Completed:  c[2],
			Cancelled:  c[3],
			Total:      c[0] + c[1] + c[2] + c[3],
		})
	}

	// Генерируем изображение
	imageData, err := render.RequestDynamicsChart(months).PNG()
	if err != nil {
		fmt.Printf("Ошибка генерации изображения: %v\n", err)
		os.Exit(1)
	}

	// Сохраняем в файл
	filename := "report.png"
	if err := os.WriteFile(filename, imageData, 0644); err != nil {
		fmt.Printf("Ошибка сохранения файла: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Диаграмма сохранена в %s\n", filename)
	fmt.Printf("📅 Период: %s - %s\n", months[0].Label, months[len(months)-1].Label)
	fmt.Printf("📊 Месяцев: %d\n", len(months))
}
