package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/Freeeeeet/psychologist_bot/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NoteRepository заметки к консультациям и заявкам
type NoteRepository struct {
	*base.Repository
}

func NewNoteRepository(pool *pgxpool.Pool) *NoteRepository {
	return &NoteRepository{Repository: base.NewRepository(pool)}
}

// CreateConsultationNote добавляет заметку к консультации
func (r *NoteRepository) CreateConsultationNote(ctx context.Context, n *model.Note) error {
	query := `
		INSERT INTO consultation_notes (consultation_id, author_id, text)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.DB(ctx).QueryRow(ctx, query, n.ConsultationID, n.AuthorID, n.Text).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return base.MapError("create consultation note", err)
	}

	return nil
}

// ListConsultationNotes заметки консультации, новые первыми
func (r *NoteRepository) ListConsultationNotes(ctx context.Context, consultationID int64) ([]model.Note, error) {
	query := `
		SELECT id, consultation_id, author_id, text, created_at
		FROM consultation_notes
		WHERE consultation_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.DB(ctx).Query(ctx, query, consultationID)
	if err != nil {
		return nil, fmt.Errorf("list consultation notes: %w", err)
	}
	defer rows.Close()

	var notes []model.Note
	for rows.Next() {
		var n model.Note
		if err := rows.Scan(&n.ID, &n.ConsultationID, &n.AuthorID, &n.Text, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan consultation note: %w", err)
		}
		notes = append(notes, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consultation notes: %w", err)
	}

	return notes, nil
}

// CreateRequestNote добавляет заметку к заявке
func (r *NoteRepository) CreateRequestNote(ctx context.Context, n *model.RequestNote) error {
	query := `
		INSERT INTO request_notes (request_id, author_id, text)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.DB(ctx).QueryRow(ctx, query, n.RequestID, n.AuthorID, n.Text).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return base.MapError("create request note", err)
	}

	return nil
}

// ListRequestNotes заметки заявки в порядке добавления
func (r *NoteRepository) ListRequestNotes(ctx context.Context, requestID int64) ([]model.RequestNote, error) {
	query := `
		SELECT id, request_id, author_id, text, created_at
		FROM request_notes
		WHERE request_id = $1
		ORDER BY created_at
	`
	return r.listRequestNotes(ctx, "list request notes", query, requestID)
}

// ListRequestNotesByStudent заметки ко всем заявкам ученика
func (r *NoteRepository) ListRequestNotesByStudent(ctx context.Context, studentID int64) ([]model.RequestNote, error) {
	query := `
		SELECT n.id, n.request_id, n.author_id, n.text, n.created_at
		FROM request_notes n
		JOIN requests r ON r.id = n.request_id
		WHERE r.student_id = $1
		ORDER BY n.created_at DESC
	`
	return r.listRequestNotes(ctx, "list request notes by student", query, studentID)
}

func (r *NoteRepository) listRequestNotes(ctx context.Context, op, query string, args ...any) ([]model.RequestNote, error) {
	rows, err := r.DB(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var notes []model.RequestNote
	for rows.Next() {
		var n model.RequestNote
		if err := rows.Scan(&n.ID, &n.RequestID, &n.AuthorID, &n.Text, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan request note: %w", err)
		}
		notes = append(notes, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate request notes: %w", err)
	}

	return notes, nil
}
