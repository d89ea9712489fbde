package common

import (
	"fmt"
	"strings"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/Freeeeeet/psychologist_bot/internal/service"
	"github.com/go-telegram/bot/models"
)

// BuildUserListScreen пользователи бота
func BuildUserListScreen(users []model.User, page int) (string, *models.InlineKeyboardMarkup) {
	from, to, page, pages := keyboard.Page(len(users), page)

	text := fmt.Sprintf("👤 <b>Пользователи</b>\n\nВсего: %d", len(users))
	kb := keyboard.NewBuilder()
	for _, u := range users[from:to] {
		label := formatting.GetRoleDisplay(u.Role).Emoji + " " + u.DisplayName()
		if u.Role == model.RoleStudent && u.StudentID == nil {
			label += " ⚠️"
		}
		kb.Row(keyboard.Button(Truncate(label, 60), fmt.Sprintf("user:%d", u.ID)))
	}
	kb.AddPagination("users:", page, pages)
	kb.AddBackToMainButton()
	return text, kb.Build()
}

// BuildUserScreen карточка пользователя с управлением ролью
func BuildUserScreen(u *model.User, student *model.Student) (string, *models.InlineKeyboardMarkup) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "👤 <b>%s</b>\n\n", Esc(u.DisplayName()))
	if u.Username != "" {
		fmt.Fprintf(&sb, "@%s\n", Esc(u.Username))
	}
	fmt.Fprintf(&sb, "🆔 Telegram: <code>%d</code>\n", u.TelegramID)
	fmt.Fprintf(&sb, "Роль: %s\n", formatting.GetRoleDisplay(u.Role))
	if u.Role == model.RoleStudent {
		if student != nil {
			fmt.Fprintf(&sb, "Карточка: %s\n", Esc(StudentLabel(student)))
		} else {
			sb.WriteString("Карточка: не привязана\n")
		}
	}
	fmt.Fprintf(&sb, "Зарегистрирован: %s\n", formatting.FormatDate(u.CreatedAt))

	kb := keyboard.NewBuilder()
	var roles []models.InlineKeyboardButton
	for _, r := range []model.Role{model.RoleStudent, model.RolePsychologist, model.RoleAdmin} {
		if r == u.Role {
			continue
		}
		roles = append(roles, keyboard.Button(formatting.GetRoleDisplay(r).String(), fmt.Sprintf("set_role:%d:%s", u.ID, r)))
	}
	kb.Row(roles...)
	if u.Role == model.RoleStudent {
		kb.Row(keyboard.Button("🔗 Привязать карточку", fmt.Sprintf("bind_student:%d:0", u.ID)))
	}
	kb.AddBackButton("users:0")
	return sb.String(), kb.Build()
}

// BuildBindStudentScreen выбор карточки для аккаунта ученика
func BuildBindStudentScreen(u *model.User, students []model.Student, page int) (string, *models.InlineKeyboardMarkup) {
	from, to, page, pages := keyboard.Page(len(students), page)

	text := fmt.Sprintf("🔗 <b>Привязка карточки</b>\n\nАккаунт: %s\nВыберите карточку ученика.", Esc(u.DisplayName()))
	kb := keyboard.NewBuilder()
	for _, s := range students[from:to] {
		kb.Row(keyboard.Button(StudentLabel(&s), fmt.Sprintf("bind_to:%d:%d", u.ID, s.ID)))
	}
	kb.AddPagination(fmt.Sprintf("bind_student:%d:", u.ID), page, pages)
	kb.AddBackButton(fmt.Sprintf("user:%d", u.ID))
	return text, kb.Build()
}

func formatSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.1f МБ", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.1f КБ", float64(size)/(1<<10))
	}
	return fmt.Sprintf("%d Б", size)
}

// BuildBackupsScreen резервные копии базы
func BuildBackupsScreen(backups []service.Backup) (string, *models.InlineKeyboardMarkup) {
	var sb strings.Builder
	sb.WriteString("💾 <b>Резервные копии</b>\n\n")
	if len(backups) == 0 {
		sb.WriteString("Копий пока нет.\n")
	}
	for _, b := range backups {
		fmt.Fprintf(&sb, "• %s (%s)\n", formatting.FormatDateTime(b.CreatedAt), formatSize(b.Size))
	}

	kb := keyboard.NewBuilder()
	kb.Row(
		keyboard.Button("➕ SQL", "backup_new:"+string(service.BackupSQL)),
		keyboard.Button("➕ Dump", "backup_new:"+string(service.BackupDump)),
	)
	for _, b := range backups {
		kb.Row(
			keyboard.Button("⬇️ "+b.Name, "backup_get:"+b.Name),
			keyboard.Button("🗑", "backup_del:"+b.Name),
		)
	}
	kb.AddBackToMainButton()
	return sb.String(), kb.Build()
}
