package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/Freeeeeet/psychologist_bot/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NotificationRepository лента событий учеников. Записи только добавляются.
type NotificationRepository struct {
	*base.Repository
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{Repository: base.NewRepository(pool)}
}

// Create добавляет событие в ленту
func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO student_notifications (student_id, kind, consultation_id, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.DB(ctx).QueryRow(
		ctx, query,
		n.StudentID,
		n.Kind,
		n.ConsultationID,
		n.RequestID,
		n.CreatedAt,
	).Scan(&n.ID, &n.CreatedAt)

	if err != nil {
		return base.MapError("create notification", err)
	}

	return nil
}

// ListByStudent последние события ученика, новые первыми
func (r *NotificationRepository) ListByStudent(ctx context.Context, studentID int64, limit int) ([]model.Notification, error) {
	query := `
		SELECT id, student_id, kind, consultation_id, request_id, created_at
		FROM student_notifications
		WHERE student_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.DB(ctx).Query(ctx, query, studentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var feed []model.Notification
	for rows.Next() {
		var n model.Notification
		err := rows.Scan(&n.ID, &n.StudentID, &n.Kind, &n.ConsultationID, &n.RequestID, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		feed = append(feed, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}

	return feed, nil
}
