package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/Freeeeeet/psychologist_bot/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	*base.Repository
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{Repository: base.NewRepository(pool)}
}

const userColumns = `id, telegram_id, username, first_name, last_name, role, student_id, is_active, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.TelegramID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.StudentID,
		&user.IsActive,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create создаёт нового пользователя
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (telegram_id, username, first_name, last_name, role, student_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.DB(ctx).QueryRow(
		ctx, query,
		user.TelegramID,
		user.Username,
		user.FirstName,
		user.LastName,
		user.Role,
		user.StudentID,
		user.IsActive,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		return base.MapError("create user", err)
	}

	return nil
}

// GetByTelegramID получает пользователя по Telegram ID
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`

	user, err := scanUser(r.DB(ctx).QueryRow(ctx, query, telegramID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil // Пользователь не найден
		}
		return nil, fmt.Errorf("get user by telegram id: %w", err)
	}

	return user, nil
}

// GetByID получает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.DB(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return user, nil
}

// Update обновляет данные пользователя
func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET username = $1, first_name = $2, last_name = $3, role = $4, student_id = $5, is_active = $6
		WHERE id = $7
	`

	affected, err := r.ExecAffected(
		ctx, query,
		user.Username,
		user.FirstName,
		user.LastName,
		user.Role,
		user.StudentID,
		user.IsActive,
		user.ID,
	)
	if err != nil {
		return base.MapError("update user", err)
	}

	if affected == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

// ListByRole возвращает активных пользователей с указанной ролью
func (r *UserRepository) ListByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 AND is_active ORDER BY last_name, first_name`
	return r.list(ctx, "list users by role", query, role)
}

// ListByStudentID аккаунты, привязанные к карточке ученика
func (r *UserRepository) ListByStudentID(ctx context.Context, studentID int64) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE student_id = $1 AND is_active ORDER BY id`
	return r.list(ctx, "list users by student", query, studentID)
}

// ListAll все пользователи для администратора
func (r *UserRepository) ListAll(ctx context.Context) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`
	return r.list(ctx, "list users", query)
}

func (r *UserRepository) list(ctx context.Context, op, query string, args ...any) ([]model.User, error) {
	rows, err := r.DB(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}
