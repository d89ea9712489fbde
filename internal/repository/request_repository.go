package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/Freeeeeet/psychologist_bot/internal/report"
	"github.com/Freeeeeet/psychologist_bot/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RequestRepository struct {
	*base.Repository
}

func NewRequestRepository(pool *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{Repository: base.NewRepository(pool)}
}

const requestColumns = `id, student_id, psychologist_id, source, status, created_at`

func scanRequest(row pgx.Row) (*model.Request, error) {
	var req model.Request
	err := row.Scan(
		&req.ID,
		&req.StudentID,
		&req.PsychologistID,
		&req.Source,
		&req.Status,
		&req.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Create создаёт заявку. Неизвестный статус отклоняется внешним ключом.
func (r *RequestRepository) Create(ctx context.Context, req *model.Request) error {
	query := `
		INSERT INTO requests (student_id, psychologist_id, source, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.DB(ctx).QueryRow(
		ctx, query,
		req.StudentID,
		req.PsychologistID,
		req.Source,
		req.Status,
		req.CreatedAt,
	).Scan(&req.ID, &req.CreatedAt)

	if err != nil {
		return base.MapError("create request", err)
	}

	return nil
}

// GetByID получает заявку по ID
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*model.Request, error) {
	return r.get(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id)
}

// GetForUpdate получает заявку и блокирует строку до конца транзакции
func (r *RequestRepository) GetForUpdate(ctx context.Context, id int64) (*model.Request, error) {
	return r.get(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1 FOR UPDATE`, id)
}

func (r *RequestRepository) get(ctx context.Context, query string, id int64) (*model.Request, error) {
	req, err := scanRequest(r.DB(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get request by id: %w", err)
	}
	return req, nil
}

// Update сохраняет статус и психолога заявки
func (r *RequestRepository) Update(ctx context.Context, req *model.Request) error {
	query := `
		UPDATE requests
		SET psychologist_id = $1, status = $2
		WHERE id = $3
	`

	affected, err := r.ExecAffected(ctx, query, req.PsychologistID, req.Status, req.ID)
	if err != nil {
		return base.MapError("update request", err)
	}

	if affected == 0 {
		return fmt.Errorf("request not found")
	}

	return nil
}

// Delete удаляет заявку
func (r *RequestRepository) Delete(ctx context.Context, id int64) error {
	affected, err := r.ExecAffected(ctx, `DELETE FROM requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("request not found")
	}

	return nil
}

// ListByStudent заявки ученика, новые первыми
func (r *RequestRepository) ListByStudent(ctx context.Context, studentID int64) ([]model.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE student_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, "list requests by student", query, studentID)
}

// ListScoped заявки в области видимости: все для администратора,
// свои и неназначенные для психолога
func (r *RequestRepository) ListScoped(ctx context.Context, scope report.Scope) ([]model.Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM requests
		WHERE $1::bigint IS NULL OR psychologist_id IS NULL OR psychologist_id = $1
		ORDER BY created_at DESC
	`
	return r.list(ctx, "list scoped requests", query, scope.PsychologistID)
}

func (r *RequestRepository) list(ctx context.Context, op, query string, args ...any) ([]model.Request, error) {
	rows, err := r.DB(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var requests []model.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, *req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}

	return requests, nil
}
