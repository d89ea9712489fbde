package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/lifecycle"
	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"go.uber.org/zap"
)

type UserService struct {
	repos    Repositories
	adminIDs []int64
	logger   *zap.Logger
	now      func() time.Time
}

// NewUserService adminIDs Telegram ID, которые получают роль администратора при регистрации
func NewUserService(repos Repositories, adminIDs []int64, logger *zap.Logger) *UserService {
	return &UserService{
		repos:    repos,
		adminIDs: adminIDs,
		logger:   logger,
		now:      time.Now,
	}
}

// RegisterUser регистрирует или обновляет пользователя
func (s *UserService) RegisterUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*model.User, error) {
	bootstrap := slices.Contains(s.adminIDs, telegramID)

	existingUser, err := s.repos.Users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	// Если пользователь уже существует, обновляем данные
	if existingUser != nil {
		existingUser.Username = username
		existingUser.FirstName = firstName
		existingUser.LastName = lastName
		if bootstrap && existingUser.Role != model.RoleAdmin {
			existingUser.Role = model.RoleAdmin
			s.logger.Info("User promoted to admin from config", zap.Int64("telegram_id", telegramID))
		}

		if err := s.repos.Users.Update(ctx, existingUser); err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		return existingUser, nil
	}

	user := &model.User{
		TelegramID: telegramID,
		Username:   username,
		FirstName:  firstName,
		LastName:   lastName,
		Role:       model.RoleStudent, // карточку ученика привязывает администратор
		IsActive:   true,
	}
	if bootstrap {
		user.Role = model.RoleAdmin
	}

	if err := s.repos.Users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("New user registered",
		zap.Int64("user_id", user.ID),
		zap.Int64("telegram_id", telegramID),
		zap.String("username", username),
		zap.String("role", string(user.Role)),
	)
	return user, nil
}

// GetByTelegramID получает пользователя по Telegram ID
func (s *UserService) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	return s.repos.Users.GetByTelegramID(ctx, telegramID)
}

// GetByID получает пользователя по ID
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.repos.Users.GetByID(ctx, id)
}

func requireAdmin(op string, actor model.Actor) error {
	if !actor.IsAdmin() {
		return model.Forbidden(op, model.ReasonRole, "Действие доступно только администратору")
	}
	return nil
}

func requireStaff(op string, actor model.Actor) error {
	if !actor.IsAdmin() && !actor.IsPsychologist() {
		return model.Forbidden(op, model.ReasonRole, "Действие доступно только психологу или администратору")
	}
	return nil
}

// SetRole меняет роль пользователя. Свою роль администратор не меняет.
func (s *UserService) SetRole(ctx context.Context, actor model.Actor, userID int64, role model.Role) (*model.User, error) {
	const op = "service.SetRole"
	if err := requireAdmin(op, actor); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, model.Validation(op, map[string]string{"role": "Неизвестная роль"})
	}
	if userID == actor.UserID {
		return nil, model.Precondition(op, "", "Нельзя изменить собственную роль")
	}

	user, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, model.NotFound(op, "Пользователь не найден")
	}
	if user.Role == role {
		return user, nil
	}

	user.Role = role
	if err := s.repos.Users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.Info("User role changed",
		zap.Int64("user_id", user.ID),
		zap.String("role", string(role)),
		zap.Int64("by", actor.UserID),
	)
	return user, nil
}

// BindStudent привязывает аккаунт к карточке ученика
func (s *UserService) BindStudent(ctx context.Context, actor model.Actor, userID, studentID int64) (*model.User, error) {
	const op = "service.BindStudent"
	if err := requireAdmin(op, actor); err != nil {
		return nil, err
	}

	var user *model.User
	err := s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if user, err = s.repos.Users.GetByID(ctx, userID); err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		if user == nil {
			return model.NotFound(op, "Пользователь не найден")
		}
		student, err := s.repos.Students.GetByID(ctx, studentID)
		if err != nil {
			return fmt.Errorf("get student: %w", err)
		}
		if student == nil {
			return model.NotFound(op, "Ученик не найден")
		}

		user.StudentID = &student.ID
		return s.repos.Users.Update(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("User bound to student",
		zap.Int64("user_id", userID),
		zap.Int64("student_id", studentID),
	)
	return user, nil
}

// CreateStudent заводит карточку ученика
func (s *UserService) CreateStudent(ctx context.Context, actor model.Actor, in lifecycle.StudentInput) (*model.Student, error) {
	if err := requireStaff("service.CreateStudent", actor); err != nil {
		return nil, err
	}
	student, err := lifecycle.ValidateStudent(in, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repos.Students.Create(ctx, &student); err != nil {
		return nil, fmt.Errorf("create student: %w", err)
	}

	s.logger.Info("Student created",
		zap.Int64("student_id", student.ID),
		zap.String("class", student.ClassName),
	)
	return &student, nil
}

func (s *UserService) ListStudents(ctx context.Context, actor model.Actor) ([]model.Student, error) {
	if err := requireStaff("service.ListStudents", actor); err != nil {
		return nil, err
	}
	return s.repos.Students.List(ctx)
}

// GetStudent карточка ученика для психолога и администратора
func (s *UserService) GetStudent(ctx context.Context, actor model.Actor, id int64) (*model.Student, error) {
	const op = "service.GetStudent"
	if err := requireStaff(op, actor); err != nil {
		return nil, err
	}
	student, err := s.repos.Students.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		return nil, model.NotFound(op, "Ученик не найден")
	}
	return student, nil
}

func (s *UserService) ListUsers(ctx context.Context, actor model.Actor) ([]model.User, error) {
	if err := requireAdmin("service.ListUsers", actor); err != nil {
		return nil, err
	}
	return s.repos.Users.ListAll(ctx)
}

// ListPsychologists активные психологи, для назначения на консультацию
func (s *UserService) ListPsychologists(ctx context.Context, actor model.Actor) ([]model.User, error) {
	if err := requireStaff("service.ListPsychologists", actor); err != nil {
		return nil, err
	}
	return s.repos.Users.ListByRole(ctx, model.RolePsychologist)
}
