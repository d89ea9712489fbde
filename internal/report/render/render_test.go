package render

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/Freeeeeet/psychologist_bot/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWorkbook(t *testing.T) {
	data, err := Workbook([]report.Table{
		{Title: "Нагрузка", Header: []string{"Показатель", "Значение"}, Rows: [][]string{{"Заявок", "3"}, {"Средняя длительность, мин", "42.5"}}},
		{Title: "Динамика заявок", Header: []string{"Месяц", "Всего"}, Rows: [][]string{{"март 2026", "2"}}, Chart: report.ChartLine},
		{Title: "Формы консультаций", Header: []string{"Форма", "Количество"}, Rows: [][]string{{"Групповая", "1"}}, Chart: report.ChartPie},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Нагрузка", "Динамика заявок", "Формы консультаций"}, f.GetSheetList())

	rows, err := f.GetRows("Нагрузка")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Показатель", "Значение"}, {"Заявок", "3"}, {"Средняя длительность, мин", "42.5"}}, rows)

	width, err := f.GetColWidth("Нагрузка", "A")
	require.NoError(t, err)
	assert.Equal(t, float64(len([]rune("Средняя длительность, мин"))+2), width)
}

func TestWorkbookRequiresTables(t *testing.T) {
	_, err := Workbook(nil)
	assert.Error(t, err)
}

func TestSheetName(t *testing.T) {
	used := map[string]bool{}
	assert.Equal(t, "Динамика Белова (Анна)", SheetName("Динамика: Белова [Анна]", 0, used))
	assert.Equal(t, "Лист2", SheetName("  ", 1, used))

	long := strings.Repeat("я", 40)
	first := SheetName(long, 2, used)
	assert.Equal(t, 31, len([]rune(first)))
	second := SheetName(long, 3, used)
	assert.Equal(t, 31, len([]rune(second)))
	assert.True(t, strings.HasSuffix(second, " (2)"))
}

func TestCellValue(t *testing.T) {
	assert.Equal(t, 3, cellValue("3"))
	assert.Equal(t, 42.5, cellValue("42.5"))
	assert.Equal(t, "02.03.2026", cellValue("02.03.2026"))
	assert.Equal(t, "007", cellValue("007"))
	assert.Equal(t, "7А", cellValue("7А"))
	assert.Equal(t, "", cellValue(""))
}

func TestChartPNG(t *testing.T) {
	c := RequestDynamicsChart([]report.RequestMonth{
		{Label: "январь 2026", New: 1, Completed: 2},
		{Label: "февраль 2026", InProgress: 3, Cancelled: 1},
	})
	data, err := c.PNG()
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, imageWidth, img.Bounds().Dx())
	assert.Equal(t, imageHeight, img.Bounds().Dy())
}

func TestChartWithoutData(t *testing.T) {
	data, err := RequestDynamicsChart(nil).PNG()
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestChartRejectsMismatchedSeries(t *testing.T) {
	_, err := Chart{Labels: []string{"a"}, Series: []Series{{Name: "x"}}}.PNG()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "x"))
}

func TestMaxValueRoundsToGrid(t *testing.T) {
	c := Chart{Series: []Series{{Values: []int{7}}}}
	assert.Equal(t, 10, c.maxValue())
	assert.Equal(t, 5, Chart{}.maxValue())
}
