package keyboard

import "github.com/go-telegram/bot/models"

// BackButton создаёт кнопку "Назад"
func BackButton(callbackData string) models.InlineKeyboardButton {
	return Button("⬅️ Назад", callbackData)
}

// BackToMainButton создаёт кнопку "В главное меню"
func BackToMainButton() models.InlineKeyboardButton {
	return Button("🏠 В главное меню", "main_menu")
}

// CancelButton создаёт кнопку "Отмена"
func CancelButton(callbackData string) models.InlineKeyboardButton {
	return Button("❌ Отмена", callbackData)
}

// ConfirmButton создаёт кнопку "Подтвердить"
func ConfirmButton(callbackData string) models.InlineKeyboardButton {
	return Button("✅ Подтвердить", callbackData)
}

// ConfirmCancelButtons создаёт ряд с кнопками Подтвердить/Отмена
func ConfirmCancelButtons(confirmCallback, cancelCallback string) [][]models.InlineKeyboardButton {
	return [][]models.InlineKeyboardButton{
		{
			ConfirmButton(confirmCallback),
			CancelButton(cancelCallback),
		},
	}
}

// BackRow создаёт ряд с кнопкой "Назад"
func BackRow(callbackData string) []models.InlineKeyboardButton {
	return []models.InlineKeyboardButton{BackButton(callbackData)}
}

// AddBackButton добавляет кнопку "Назад" к builder
func (b *Builder) AddBackButton(callbackData string) *Builder {
	return b.Row(BackButton(callbackData))
}

// AddBackToMainButton добавляет кнопку "В главное меню" к builder
func (b *Builder) AddBackToMainButton() *Builder {
	return b.Row(BackToMainButton())
}
