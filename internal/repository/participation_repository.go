package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/Freeeeeet/psychologist_bot/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ParticipationRepository связи учеников с консультациями
type ParticipationRepository struct {
	*base.Repository
}

func NewParticipationRepository(pool *pgxpool.Pool) *ParticipationRepository {
	return &ParticipationRepository{Repository: base.NewRepository(pool)}
}

const participationSelect = `
	SELECT cs.id, cs.consultation_id, cs.student_id, cs.participation_confirmed_at,
	       cs.participation_cancelled_at, cs.created_at,
	       s.id, s.first_name, s.last_name, s.class_name, s.birth_date, s.created_at
	FROM consultation_students cs
	JOIN students s ON s.id = cs.student_id
`

func scanParticipation(row pgx.Row) (*model.ConsultationStudent, error) {
	var (
		link    model.ConsultationStudent
		student model.Student
	)
	err := row.Scan(
		&link.ID,
		&link.ConsultationID,
		&link.StudentID,
		&link.ConfirmedAt,
		&link.CancelledAt,
		&link.CreatedAt,
		&student.ID,
		&student.FirstName,
		&student.LastName,
		&student.ClassName,
		&student.BirthDate,
		&student.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	link.Student = &student
	return &link, nil
}

// Create добавляет ученика в консультацию
func (r *ParticipationRepository) Create(ctx context.Context, link *model.ConsultationStudent) error {
	query := `
		INSERT INTO consultation_students (consultation_id, student_id, participation_confirmed_at, participation_cancelled_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.DB(ctx).QueryRow(
		ctx, query,
		link.ConsultationID,
		link.StudentID,
		link.ConfirmedAt,
		link.CancelledAt,
	).Scan(&link.ID, &link.CreatedAt)

	if err != nil {
		return base.MapError("create participation", err)
	}

	return nil
}

// Update сохраняет отметки подтверждения и отказа
func (r *ParticipationRepository) Update(ctx context.Context, link *model.ConsultationStudent) error {
	query := `
		UPDATE consultation_students
		SET participation_confirmed_at = $1, participation_cancelled_at = $2
		WHERE id = $3
	`

	affected, err := r.ExecAffected(ctx, query, link.ConfirmedAt, link.CancelledAt, link.ID)
	if err != nil {
		return fmt.Errorf("update participation: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("participation not found")
	}

	return nil
}

// Delete убирает ученика из консультации
func (r *ParticipationRepository) Delete(ctx context.Context, id int64) error {
	affected, err := r.ExecAffected(ctx, `DELETE FROM consultation_students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete participation: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("participation not found")
	}

	return nil
}

// ListByConsultation участники консультации с карточками учеников
func (r *ParticipationRepository) ListByConsultation(ctx context.Context, consultationID int64) ([]model.ConsultationStudent, error) {
	query := participationSelect + ` WHERE cs.consultation_id = $1 ORDER BY s.last_name, s.first_name`
	return r.list(ctx, "list participation by consultation", query, consultationID)
}

// ListByConsultations участники сразу нескольких консультаций
func (r *ParticipationRepository) ListByConsultations(ctx context.Context, ids []int64) (map[int64][]model.ConsultationStudent, error) {
	result := make(map[int64][]model.ConsultationStudent, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query := participationSelect + ` WHERE cs.consultation_id = ANY($1) ORDER BY cs.consultation_id, s.last_name, s.first_name`
	links, err := r.list(ctx, "list participation by consultations", query, ids)
	if err != nil {
		return nil, err
	}
	for _, l := range links {
		result[l.ConsultationID] = append(result[l.ConsultationID], l)
	}
	return result, nil
}

func (r *ParticipationRepository) list(ctx context.Context, op, query string, args ...any) ([]model.ConsultationStudent, error) {
	rows, err := r.DB(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var links []model.ConsultationStudent
	for rows.Next() {
		link, err := scanParticipation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participation: %w", err)
		}
		links = append(links, *link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participation: %w", err)
	}

	return links, nil
}
