package model

import "time"

type Role string

const (
	RoleAdmin        Role = "admin"
	RolePsychologist Role = "psychologist"
	RoleStudent      Role = "student"
)

// Valid проверяет что роль известна
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePsychologist, RoleStudent:
		return true
	}
	return false
}

type User struct {
	ID         int64     `json:"id"`
	TelegramID int64     `json:"telegram_id"`
	Username   string    `json:"username"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Role       Role      `json:"role"`
	StudentID  *int64    `json:"student_id"` // карточка ученика, к которой привязан аккаунт
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

// DisplayName возвращает имя для отображения
func (u *User) DisplayName() string {
	switch {
	case u.LastName != "" && u.FirstName != "":
		return u.LastName + " " + u.FirstName
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return "@" + u.Username
	}
	return "Пользователь"
}

// Actor возвращает действующее лицо для операций ядра
func (u *User) Actor() Actor {
	return Actor{UserID: u.ID, Role: u.Role, StudentID: u.StudentID}
}

// Actor действующее лицо: кто выполняет операцию и в какой роли
type Actor struct {
	UserID    int64
	Role      Role
	StudentID *int64
}

func (a Actor) IsAdmin() bool        { return a.Role == RoleAdmin }
func (a Actor) IsPsychologist() bool { return a.Role == RolePsychologist }
func (a Actor) IsStaff() bool        { return a.IsAdmin() || a.IsPsychologist() }

// IsStudent true только для ученика с привязанной карточкой
func (a Actor) IsStudent() bool { return a.Role == RoleStudent && a.StudentID != nil }

// Owns проверяет что ученик действует от своего имени
func (a Actor) Owns(studentID int64) bool {
	return a.IsStudent() && *a.StudentID == studentID
}
