package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/Freeeeeet/psychologist_bot/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AttachmentRepository struct {
	*base.Repository
}

func NewAttachmentRepository(pool *pgxpool.Pool) *AttachmentRepository {
	return &AttachmentRepository{Repository: base.NewRepository(pool)}
}

// Create сохраняет запись о файле консультации
func (r *AttachmentRepository) Create(ctx context.Context, a *model.Attachment) error {
	query := `
		INSERT INTO consultation_attachments (consultation_id, path, description)
		VALUES ($1, $2, $3)
		RETURNING id, uploaded_at
	`

	err := r.DB(ctx).QueryRow(ctx, query, a.ConsultationID, a.Path, a.Description).Scan(&a.ID, &a.UploadedAt)
	if err != nil {
		return base.MapError("create attachment", err)
	}

	return nil
}

// GetByID получает файл по ID
func (r *AttachmentRepository) GetByID(ctx context.Context, id int64) (*model.Attachment, error) {
	query := `
		SELECT id, consultation_id, path, description, uploaded_at
		FROM consultation_attachments
		WHERE id = $1
	`

	var a model.Attachment
	err := r.DB(ctx).QueryRow(ctx, query, id).Scan(&a.ID, &a.ConsultationID, &a.Path, &a.Description, &a.UploadedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get attachment by id: %w", err)
	}

	return &a, nil
}

// Delete удаляет запись о файле
func (r *AttachmentRepository) Delete(ctx context.Context, id int64) error {
	affected, err := r.ExecAffected(ctx, `DELETE FROM consultation_attachments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("attachment not found")
	}

	return nil
}

// ListByConsultation файлы консультации
func (r *AttachmentRepository) ListByConsultation(ctx context.Context, consultationID int64) ([]model.Attachment, error) {
	query := `
		SELECT id, consultation_id, path, description, uploaded_at
		FROM consultation_attachments
		WHERE consultation_id = $1
		ORDER BY uploaded_at
	`

	rows, err := r.DB(ctx).Query(ctx, query, consultationID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	var attachments []model.Attachment
	for rows.Next() {
		var a model.Attachment
		if err := rows.Scan(&a.ID, &a.ConsultationID, &a.Path, &a.Description, &a.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		attachments = append(attachments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachments: %w", err)
	}

	return attachments, nil
}
