package render

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Freeeeeet/psychologist_bot/internal/report"
	"github.com/xuri/excelize/v2"
)

const (
	minColWidth = 8
	maxColWidth = 60
	chartWidth  = 640
	chartHeight = 320
)

// sheetNameReplacer символы, запрещённые в имени листа
var sheetNameReplacer = strings.NewReplacer(
	":", "", "\\", " ", "/", " ", "?", " ", "*", " ", "[", "(", "]", ")", "'", "",
)

// Workbook собирает книгу Excel: каждая таблица на своём листе,
// с жирной шапкой, закреплённой первой строкой и шириной колонок по содержимому.
func Workbook(tables []report.Table) ([]byte, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("workbook: no tables")
	}

	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	used := make(map[string]bool, len(tables))
	for i, t := range tables {
		name := SheetName(t.Title, i, used)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("new sheet %q: %w", name, err)
		}
		if err := writeSheet(f, name, t, header); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, t report.Table, headerStyle int) error {
	header := make([]interface{}, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if len(t.Header) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(t.Header), 1)
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return err
		}
		if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
			return err
		}
	}

	for r, row := range t.Rows {
		values := make([]interface{}, len(row))
		for i, v := range row {
			values[i] = cellValue(v)
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}

	for col, width := range columnWidths(t) {
		name, _ := excelize.ColumnNumberToName(col + 1)
		if err := f.SetColWidth(sheet, name, name, width); err != nil {
			return err
		}
	}

	if t.Chart != report.ChartNone && len(t.Rows) > 0 && len(t.Header) > 1 {
		return addChart(f, sheet, t)
	}
	return nil
}

// addChart строит диаграмму справа от таблицы: первая колонка - подписи,
// остальные - ряды значений
func addChart(f *excelize.File, sheet string, t report.Table) error {
	last := len(t.Rows) + 1
	categories := fmt.Sprintf("'%s'!$A$2:$A$%d", sheet, last)

	chart := &excelize.Chart{
		Type:      excelize.Line,
		Title:     []excelize.RichTextRun{{Text: t.Title}},
		Dimension: excelize.ChartDimension{Width: chartWidth, Height: chartHeight},
		Legend:    excelize.ChartLegend{Position: "bottom"},
	}
	columns := len(t.Header)
	if t.Chart == report.ChartPie {
		chart.Type = excelize.Pie
		columns = 2
	}
	for c := 2; c <= columns; c++ {
		col, _ := excelize.ColumnNumberToName(c)
		chart.Series = append(chart.Series, excelize.ChartSeries{
			Name:       fmt.Sprintf("'%s'!$%s$1", sheet, col),
			Categories: categories,
			Values:     fmt.Sprintf("'%s'!$%s$2:$%s$%d", sheet, col, col, last),
		})
	}

	anchor, _ := excelize.CoordinatesToCellName(len(t.Header)+2, 1)
	return f.AddChart(sheet, anchor, chart)
}

// cellValue числа пишутся числами, чтобы по ним работали формулы и диаграммы
func cellValue(v string) interface{} {
	if v == "" || (len(v) > 1 && v[0] == '0' && v[1] != '.') {
		return v
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	if strings.Count(v, ".") == 1 {
		if x, err := strconv.ParseFloat(v, 64); err == nil {
			return x
		}
	}
	return v
}

// columnWidths ширина колонок по самому длинному значению
func columnWidths(t report.Table) []float64 {
	widths := make([]float64, len(t.Header))
	measure := func(i int, v string) {
		if i >= len(widths) {
			return
		}
		w := float64(utf8.RuneCountInString(v) + 2)
		if w > widths[i] {
			widths[i] = w
		}
	}
	for i, h := range t.Header {
		measure(i, h)
	}
	for _, row := range t.Rows {
		for i, v := range row {
			measure(i, v)
		}
	}
	for i, w := range widths {
		widths[i] = min(max(w, minColWidth), maxColWidth)
	}
	return widths
}

// SheetName допустимое и уникальное имя листа: не длиннее 31 символа,
// без запрещённых символов
func SheetName(title string, index int, used map[string]bool) string {
	name := strings.TrimSpace(sheetNameReplacer.Replace(title))
	if name == "" {
		name = fmt.Sprintf("Лист%d", index+1)
	}
	name = truncateRunes(name, excelize.MaxSheetNameLength)

	candidate := name
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		candidate = truncateRunes(name, excelize.MaxSheetNameLength-utf8.RuneCountInString(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:limit]))
}
