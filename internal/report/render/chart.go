package render

import (
	"bytes"
	"fmt"
	"image/color"
	"strconv"
	"sync"

	"github.com/Freeeeeet/psychologist_bot/internal/report"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Размеры и отступы
const (
	imageWidth   = 1400
	imageHeight  = 800
	headerHeight = 90
	leftAxis     = 70
	rightPadding = 40
	bottomAxis   = 130
	legendHeight = 30
	barGap       = 4.0
	groupPadding = 0.2
	gridLines    = 5
)

const (
	titleFontSize  = 28.0
	labelFontSize  = 15.0
	legendFontSize = 16.0
	valueFontSize  = 12.0
)

var (
	bgColor     = color.RGBA{245, 246, 248, 255}
	textColor   = color.RGBA{80, 85, 90, 220}
	axisColor   = color.RGBA{110, 115, 120, 200}
	gridColor   = color.NRGBA{200, 200, 200, 255}
	seriesColor = []color.RGBA{
		{94, 129, 172, 255},  // синий
		{133, 193, 85, 230},  // зелёный
		{230, 126, 110, 230}, // красный
		{235, 190, 90, 230},  // жёлтый
		{158, 158, 158, 220}, // серый
	}
)

// Series один ряд столбцов
type Series struct {
	Name   string
	Values []int
}

// Chart сгруппированная столбчатая диаграмма
type Chart struct {
	Title  string
	Labels []string
	Series []Series
}

var (
	fontsOnce    sync.Once
	regularFont  *opentype.Font
	boldFont     *opentype.Font
	fontsLoadErr error
)

func loadFonts() {
	regularFont, fontsLoadErr = opentype.Parse(goregular.TTF)
	if fontsLoadErr != nil {
		return
	}
	boldFont, fontsLoadErr = opentype.Parse(gobold.TTF)
}

// setFont ставит шрифт Go нужного размера, при ошибке - встроенный
func setFont(dc *gg.Context, size float64, bold bool) {
	fontsOnce.Do(loadFonts)
	if fontsLoadErr == nil {
		f := regularFont
		if bold {
			f = boldFont
		}
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err == nil {
			dc.SetFontFace(face)
			return
		}
	}
	dc.SetFontFace(basicfont.Face7x13)
}

// RequestDynamicsChart диаграмма динамики заявок по статусам
func RequestDynamicsChart(months []report.RequestMonth) Chart {
	c := Chart{
		Title: "Динамика заявок",
		Series: []Series{
			{Name: "Новые"}, {Name: "В работе"}, {Name: "Завершены"}, {Name: "Отменены"},
		},
	}
	for _, m := range months {
		c.Labels = append(c.Labels, m.Label)
		c.Series[0].Values = append(c.Series[0].Values, m.New)
		c.Series[1].Values = append(c.Series[1].Values, m.InProgress)
		c.Series[2].Values = append(c.Series[2].Values, m.Completed)
		c.Series[3].Values = append(c.Series[3].Values, m.Cancelled)
	}
	return c
}

// StudentDynamicsChart диаграмма ученика за 12 месяцев
func StudentDynamicsChart(d report.StudentDynamics) Chart {
	c := Chart{
		Title: "Динамика: " + d.Student.FullName(),
		Series: []Series{
			{Name: "Заявки"}, {Name: "Проведены"}, {Name: "Отменены"},
		},
	}
	for _, m := range d.Chart {
		c.Labels = append(c.Labels, m.Label)
		c.Series[0].Values = append(c.Series[0].Values, m.Requests)
		c.Series[1].Values = append(c.Series[1].Values, m.Completed)
		c.Series[2].Values = append(c.Series[2].Values, m.Cancelled)
	}
	return c
}

// PNG рисует диаграмму
func (c Chart) PNG() ([]byte, error) {
	for _, s := range c.Series {
		if len(s.Values) != len(c.Labels) {
			return nil, fmt.Errorf("series %q has %d values for %d labels", s.Name, len(s.Values), len(c.Labels))
		}
	}

	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetColor(bgColor)
	dc.Clear()

	drawTitle(dc, c.Title)
	maxValue := c.maxValue()
	plotTop := float64(headerHeight + legendHeight)
	plotBottom := float64(imageHeight - bottomAxis)
	plotLeft := float64(leftAxis)
	plotRight := float64(imageWidth - rightPadding)

	drawGrid(dc, maxValue, plotLeft, plotRight, plotTop, plotBottom)
	drawLegend(dc, c.Series, plotLeft, float64(headerHeight))

	if len(c.Labels) == 0 {
		setFont(dc, legendFontSize, false)
		dc.SetColor(textColor)
		dc.DrawStringAnchored("Нет данных за выбранный период", imageWidth/2, (plotTop+plotBottom)/2, 0.5, 0.5)
		return encodePNG(dc)
	}

	groupWidth := (plotRight - plotLeft) / float64(len(c.Labels))
	inner := groupWidth * (1 - groupPadding)
	barWidth := (inner - barGap*float64(len(c.Series)-1)) / float64(len(c.Series))
	scale := (plotBottom - plotTop) / float64(maxValue)

	for i, label := range c.Labels {
		groupX := plotLeft + groupWidth*float64(i) + (groupWidth-inner)/2
		for j, s := range c.Series {
			v := s.Values[i]
			h := float64(v) * scale
			x := groupX + float64(j)*(barWidth+barGap)
			dc.SetColor(seriesColor[j%len(seriesColor)])
			dc.DrawRoundedRectangle(x, plotBottom-h, barWidth, h, 3)
			dc.Fill()
			if v > 0 {
				setFont(dc, valueFontSize, false)
				dc.SetColor(textColor)
				dc.DrawStringAnchored(strconv.Itoa(v), x+barWidth/2, plotBottom-h-4, 0.5, 0)
			}
		}
		setFont(dc, labelFontSize, false)
		dc.SetColor(axisColor)
		dc.Push()
		dc.RotateAbout(gg.Radians(-35), groupX+inner/2, plotBottom+14)
		dc.DrawStringAnchored(label, groupX+inner/2, plotBottom+14, 1, 0.5)
		dc.Pop()
	}
	return encodePNG(dc)
}

func (c Chart) maxValue() int {
	maxValue := 1
	for _, s := range c.Series {
		for _, v := range s.Values {
			if v > maxValue {
				maxValue = v
			}
		}
	}
	// округляем вверх до кратного числу линий сетки
	if rem := maxValue % gridLines; rem != 0 {
		maxValue += gridLines - rem
	}
	return maxValue
}

func drawTitle(dc *gg.Context, title string) {
	setFont(dc, titleFontSize, true)
	dc.SetColor(textColor)
	dc.DrawStringAnchored(title, imageWidth/2, float64(headerHeight)/2, 0.5, 0.5)
}

func drawGrid(dc *gg.Context, maxValue int, left, right, top, bottom float64) {
	setFont(dc, labelFontSize, false)
	step := (bottom - top) / gridLines
	for i := 0; i <= gridLines; i++ {
		y := bottom - step*float64(i)
		dc.SetColor(gridColor)
		dc.SetLineWidth(1)
		dc.DrawLine(left, y, right, y)
		dc.Stroke()
		dc.SetColor(axisColor)
		dc.DrawStringAnchored(strconv.Itoa(maxValue*i/gridLines), left-10, y, 1, 0.5)
	}
}

func drawLegend(dc *gg.Context, series []Series, x, y float64) {
	const boxW, boxH = 20.0, 14.0
	setFont(dc, legendFontSize, false)
	for i, s := range series {
		dc.SetColor(seriesColor[i%len(seriesColor)])
		dc.DrawRoundedRectangle(x, y, boxW, boxH, 3)
		dc.Fill()
		dc.SetColor(textColor)
		dc.DrawStringAnchored(s.Name, x+boxW+8, y+boxH/2, 0, 0.5)
		w, _ := dc.MeasureString(s.Name)
		x += boxW + 8 + w + 30
	}
}

func encodePNG(dc *gg.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
