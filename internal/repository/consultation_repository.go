package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/Freeeeeet/psychologist_bot/internal/report"
	"github.com/Freeeeeet/psychologist_bot/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ConsultationRepository struct {
	*base.Repository
}

func NewConsultationRepository(pool *pgxpool.Pool) *ConsultationRepository {
	return &ConsultationRepository{Repository: base.NewRepository(pool)}
}

const consultationColumns = `c.id, c.request_id, c.form, c.date, c.start_time, c.end_time, c.duration,
	c.result, c.completed_at, c.cancelled_at, c.created_at`

const microsecondsPerMinute = 60 * 1_000_000

// timeParam переводит время суток в колонку TIME
func timeParam(t *model.TimeOfDay) pgtype.Time {
	if t == nil {
		return pgtype.Time{}
	}
	return pgtype.Time{Microseconds: int64(t.Minutes()) * microsecondsPerMinute, Valid: true}
}

func timeValue(t pgtype.Time) *model.TimeOfDay {
	if !t.Valid {
		return nil
	}
	v := model.TimeOfDay(t.Microseconds / microsecondsPerMinute)
	return &v
}

func scanConsultation(row pgx.Row) (*model.Consultation, error) {
	var (
		c          model.Consultation
		start, end pgtype.Time
	)
	err := row.Scan(
		&c.ID,
		&c.RequestID,
		&c.Form,
		&c.Date,
		&start,
		&end,
		&c.Duration,
		&c.Result,
		&c.CompletedAt,
		&c.CancelledAt,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	// DATE приходит полночью UTC, переносим календарный день в локальную зону
	y, m, d := c.Date.Date()
	c.Date = time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	c.StartTime = timeValue(start)
	c.EndTime = timeValue(end)
	return &c, nil
}

// Create создаёт консультацию
func (r *ConsultationRepository) Create(ctx context.Context, c *model.Consultation) error {
	query := `
		INSERT INTO consultations (request_id, form, date, start_time, end_time, duration, result, completed_at, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err := r.DB(ctx).QueryRow(
		ctx, query,
		c.RequestID,
		c.Form,
		pgtype.Date{Time: c.Date, Valid: true},
		timeParam(c.StartTime),
		timeParam(c.EndTime),
		c.Duration,
		c.Result,
		c.CompletedAt,
		c.CancelledAt,
	).Scan(&c.ID, &c.CreatedAt)

	if err != nil {
		return base.MapError("create consultation", err)
	}

	return nil
}

// GetByID получает консультацию по ID
func (r *ConsultationRepository) GetByID(ctx context.Context, id int64) (*model.Consultation, error) {
	return r.get(ctx, `SELECT `+consultationColumns+` FROM consultations c WHERE c.id = $1`, id)
}

// GetForUpdate получает консультацию и блокирует строку до конца транзакции
func (r *ConsultationRepository) GetForUpdate(ctx context.Context, id int64) (*model.Consultation, error) {
	return r.get(ctx, `SELECT `+consultationColumns+` FROM consultations c WHERE c.id = $1 FOR UPDATE`, id)
}

func (r *ConsultationRepository) get(ctx context.Context, query string, id int64) (*model.Consultation, error) {
	c, err := scanConsultation(r.DB(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get consultation by id: %w", err)
	}
	return c, nil
}

// Update сохраняет все изменяемые поля консультации
func (r *ConsultationRepository) Update(ctx context.Context, c *model.Consultation) error {
	query := `
		UPDATE consultations
		SET request_id = $1, form = $2, date = $3, start_time = $4, end_time = $5,
		    duration = $6, result = $7, completed_at = $8, cancelled_at = $9
		WHERE id = $10
	`

	affected, err := r.ExecAffected(
		ctx, query,
		c.RequestID,
		c.Form,
		pgtype.Date{Time: c.Date, Valid: true},
		timeParam(c.StartTime),
		timeParam(c.EndTime),
		c.Duration,
		c.Result,
		c.CompletedAt,
		c.CancelledAt,
		c.ID,
	)
	if err != nil {
		return base.MapError("update consultation", err)
	}

	if affected == 0 {
		return fmt.Errorf("consultation not found")
	}

	return nil
}

// Delete удаляет консультацию вместе со связями, заметками и файлами
func (r *ConsultationRepository) Delete(ctx context.Context, id int64) error {
	affected, err := r.ExecAffected(ctx, `DELETE FROM consultations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete consultation: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("consultation not found")
	}

	return nil
}

// ListScoped консультации в области видимости: без заявки или с видимой заявкой
func (r *ConsultationRepository) ListScoped(ctx context.Context, scope report.Scope) ([]model.Consultation, error) {
	query := `
		SELECT ` + consultationColumns + `
		FROM consultations c
		LEFT JOIN requests r ON r.id = c.request_id
		WHERE $1::bigint IS NULL OR c.request_id IS NULL OR r.psychologist_id IS NULL OR r.psychologist_id = $1
		ORDER BY c.date DESC, c.start_time DESC NULLS LAST
	`
	return r.list(ctx, "list scoped consultations", query, scope.PsychologistID)
}

// ListByStudent консультации ученика: по связи участия или по его заявке
func (r *ConsultationRepository) ListByStudent(ctx context.Context, studentID int64) ([]model.Consultation, error) {
	query := `
		SELECT ` + consultationColumns + `
		FROM consultations c
		LEFT JOIN requests r ON r.id = c.request_id
		WHERE r.student_id = $1
		   OR EXISTS (SELECT 1 FROM consultation_students cs WHERE cs.consultation_id = c.id AND cs.student_id = $1)
		ORDER BY c.date DESC, c.start_time DESC NULLS LAST
	`
	return r.list(ctx, "list consultations by student", query, studentID)
}

// ListByRequest консультации заявки
func (r *ConsultationRepository) ListByRequest(ctx context.Context, requestID int64) ([]model.Consultation, error) {
	query := `SELECT ` + consultationColumns + ` FROM consultations c WHERE c.request_id = $1 ORDER BY c.date, c.start_time`
	return r.list(ctx, "list consultations by request", query, requestID)
}

func (r *ConsultationRepository) list(ctx context.Context, op, query string, args ...any) ([]model.Consultation, error) {
	rows, err := r.DB(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var consultations []model.Consultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consultation: %w", err)
		}
		consultations = append(consultations, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consultations: %w", err)
	}

	return consultations, nil
}
