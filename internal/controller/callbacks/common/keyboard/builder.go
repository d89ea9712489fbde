package keyboard

import "github.com/go-telegram/bot/models"

// MaxRowWidth больше кнопок в ряд Telegram показывает слишком узкими
const MaxRowWidth = 4

// Builder собирает inline клавиатуру по рядам
type Builder struct {
	rows [][]models.InlineKeyboardButton
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Button кнопка с callback data
func Button(text, callbackData string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: text, CallbackData: callbackData}
}

// Row добавляет ряд. Пустой ряд пропускается.
func (b *Builder) Row(buttons ...models.InlineKeyboardButton) *Builder {
	if len(buttons) > 0 {
		b.rows = append(b.rows, buttons)
	}
	return b
}

// AddRows добавляет готовые ряды
func (b *Builder) AddRows(rows [][]models.InlineKeyboardButton) *Builder {
	for _, row := range rows {
		b.Row(row...)
	}
	return b
}

// Grid раскладывает кнопки по columns в ряд
func (b *Builder) Grid(columns int, buttons ...models.InlineKeyboardButton) *Builder {
	if columns < 1 {
		columns = 1
	}
	if columns > MaxRowWidth {
		columns = MaxRowWidth
	}
	for len(buttons) > 0 {
		n := min(columns, len(buttons))
		b.Row(buttons[:n]...)
		buttons = buttons[n:]
	}
	return b
}

// Len число рядов
func (b *Builder) Len() int { return len(b.rows) }

// Build готовая клавиатура. Telegram не принимает inline_keyboard: null,
// поэтому пустая клавиатура содержит пустой список.
func (b *Builder) Build() *models.InlineKeyboardMarkup {
	rows := b.rows
	if rows == nil {
		rows = [][]models.InlineKeyboardButton{}
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}
