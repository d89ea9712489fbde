package common

import (
	"fmt"
	"html"
	"strings"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/go-telegram/bot/models"
)

// Esc экранирует пользовательский текст для ParseModeHTML
func Esc(s string) string {
	return html.EscapeString(s)
}

// Excerpt короткий фрагмент длинного текста для списков
func Excerpt(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	return Esc(Truncate(s, limit))
}

// StudentLabel имя ученика с классом
func StudentLabel(s *model.Student) string {
	if s == nil {
		return "ученик не найден"
	}
	if s.ClassName == "" {
		return s.FullName()
	}
	return fmt.Sprintf("%s, %s", s.FullName(), s.ClassName)
}

// BuildMainMenu главное меню в зависимости от роли
func BuildMainMenu(user *model.User) (string, *models.InlineKeyboardMarkup) {
	role := formatting.GetRoleDisplay(user.Role)
	var sb strings.Builder
	fmt.Fprintf(&sb, "🏠 <b>Главное меню</b>\n\n%s, %s\n", Esc(user.DisplayName()), role)

	kb := keyboard.NewBuilder()
	switch user.Role {
	case model.RoleStudent:
		if user.StudentID == nil {
			fmt.Fprintf(&sb, "\nАккаунт ещё не привязан к карточке ученика.\n"+
				"Сообщите школьному психологу ваш ID: <code>%d</code>", user.TelegramID)
			return sb.String(), nil
		}
		sb.WriteString("\nЗдесь можно обратиться к психологу и следить за консультациями.")
		kb.Row(keyboard.Button("📝 Мои заявки", "my_requests"), keyboard.Button("➕ Обратиться", "new_own_request"))
		kb.Row(keyboard.Button("🗓 Мои консультации", "my_cons_list"), keyboard.Button("🔔 Уведомления", "feed"))
		kb.Row(keyboard.Button("💬 Чат с психологом", "my_chat"))

	case model.RolePsychologist, model.RoleAdmin:
		kb.Row(keyboard.Button("📋 Заявки", "req_list:all:0"), keyboard.Button("🗓 Консультации", "cons_list:upcoming:0"))
		kb.Row(keyboard.Button("👥 Ученики", "students:0"), keyboard.Button("📊 Отчёт", "report:month"))
		kb.Row(keyboard.Button("💬 Чаты", "chats:0"))
		if user.Role == model.RolePsychologist {
			kb.Row(keyboard.Button("➕ Консультация без заявки", "new_cons:0"))
		}
		if user.Role == model.RoleAdmin {
			kb.Row(keyboard.Button("👤 Пользователи", "users:0"), keyboard.Button("💾 Резервные копии", "backups"))
		}
	}

	return sb.String(), kb.Build()
}
