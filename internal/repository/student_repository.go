package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/Freeeeeet/psychologist_bot/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StudentRepository struct {
	*base.Repository
}

func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{Repository: base.NewRepository(pool)}
}

const studentColumns = `id, first_name, last_name, class_name, birth_date, created_at`

func scanStudent(row pgx.Row) (*model.Student, error) {
	var s model.Student
	if err := row.Scan(&s.ID, &s.FirstName, &s.LastName, &s.ClassName, &s.BirthDate, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// Create создаёт карточку ученика
func (r *StudentRepository) Create(ctx context.Context, s *model.Student) error {
	query := `
		INSERT INTO students (first_name, last_name, class_name, birth_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.DB(ctx).QueryRow(ctx, query, s.FirstName, s.LastName, s.ClassName, s.BirthDate).
		Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return base.MapError("create student", err)
	}

	return nil
}

// GetByID получает ученика по ID
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*model.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`

	s, err := scanStudent(r.DB(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get student by id: %w", err)
	}

	return s, nil
}

// List все ученики по алфавиту
func (r *StudentRepository) List(ctx context.Context) ([]model.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students ORDER BY last_name, first_name`

	rows, err := r.DB(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}

	return students, nil
}
