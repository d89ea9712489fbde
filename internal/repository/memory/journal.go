package memory

import (
	"context"
	"sort"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
)

type Notifications struct{ s *Store }

func (r *Notifications) Create(_ context.Context, n *model.Notification) error {
	r.s.mutex.Lock()
	defer r.s.mutex.Unlock()
	if err := r.s.failure("notifications.create"); err != nil {
		return err
	}
	if _, ok := r.s.t.students[n.StudentID]; !ok {
		return reference("memory.Notifications.Create", "students")
	}
	n.ID = r.s.nextID()
	n.CreatedAt = r.s.stamp(n.CreatedAt)
	stored := *n
	stored.Consultation, stored.Request = nil, nil
	r.s.t.notifications[n.ID] = stored
	return nil
}

func (r *Notifications) ListByStudent(_ context.Context, studentID int64, limit int) ([]model.Notification, error) {
	r.s.mutex.RLock()
	defer r.s.mutex.RUnlock()
	var out []model.Notification
	for _, n := range r.s.t.notifications {
		if n.StudentID == studentID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// All все события в порядке создания
func (r *Notifications) All() []model.Notification {
	r.s.mutex.RLock()
	defer r.s.mutex.RUnlock()
	out := make([]model.Notification, 0, len(r.s.t.notifications))
	for _, n := range r.s.t.notifications {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type Notes struct{ s *Store }

func (r *Notes) CreateConsultationNote(_ context.Context, n *model.Note) error {
	r.s.mutex.Lock()
	defer r.s.mutex.Unlock()
	if _, ok := r.s.t.consultations[n.ConsultationID]; !ok {
		return reference("memory.Notes.CreateConsultationNote", "consultations")
	}
	n.ID = r.s.nextID()
	n.CreatedAt = r.s.stamp(n.CreatedAt)
	r.s.t.consNotes[n.ID] = *n
	return nil
}

func (r *Notes) ListConsultationNotes(_ context.Context, consultationID int64) ([]model.Note, error) {
	r.s.mutex.RLock()
	defer r.s.mutex.RUnlock()
	var out []model.Note
	for _, n := range r.s.t.consNotes {
		if n.ConsultationID == consultationID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *Notes) CreateRequestNote(_ context.Context, n *model.RequestNote) error {
	r.s.mutex.Lock()
	defer r.s.mutex.Unlock()
	if err := r.s.failure("request_notes.create"); err != nil {
		return err
	}
	if _, ok := r.s.t.requests[n.RequestID]; !ok {
		return reference("memory.Notes.CreateRequestNote", "requests")
	}
	n.ID = r.s.nextID()
	n.CreatedAt = r.s.stamp(n.CreatedAt)
	r.s.t.reqNotes[n.ID] = *n
	return nil
}

func (r *Notes) ListRequestNotes(_ context.Context, requestID int64) ([]model.RequestNote, error) {
	r.s.mutex.RLock()
	defer r.s.mutex.RUnlock()
	var out []model.RequestNote
	for _, n := range r.s.t.reqNotes {
		if n.RequestID == requestID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Notes) ListRequestNotesByStudent(_ context.Context, studentID int64) ([]model.RequestNote, error) {
	r.s.mutex.RLock()
	defer r.s.mutex.RUnlock()
	var out []model.RequestNote
	for _, n := range r.s.t.reqNotes {
		if req, ok := r.s.t.requests[n.RequestID]; ok && req.StudentID == studentID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

type Attachments struct{ s *Store }

func (r *Attachments) Create(_ context.Context, a *model.Attachment) error {
	r.s.mutex.Lock()
	defer r.s.mutex.Unlock()
	if err := r.s.failure("attachments.create"); err != nil {
		return err
	}
	if _, ok := r.s.t.consultations[a.ConsultationID]; !ok {
		return reference("memory.Attachments.Create", "consultations")
	}
	a.ID = r.s.nextID()
	a.UploadedAt = r.s.stamp(a.UploadedAt)
	r.s.t.attachments[a.ID] = *a
	return nil
}

func (r *Attachments) GetByID(_ context.Context, id int64) (*model.Attachment, error) {
	r.s.mutex.RLock()
	defer r.s.mutex.RUnlock()
	a, ok := r.s.t.attachments[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *Attachments) Delete(_ context.Context, id int64) error {
	r.s.mutex.Lock()
	defer r.s.mutex.Unlock()
	if _, ok := r.s.t.attachments[id]; !ok {
		return notFound("attachment")
	}
	delete(r.s.t.attachments, id)
	return nil
}

func (r *Attachments) ListByConsultation(_ context.Context, consultationID int64) ([]model.Attachment, error) {
	r.s.mutex.RLock()
	defer r.s.mutex.RUnlock()
	var out []model.Attachment
	for _, a := range r.s.t.attachments {
		if a.ConsultationID == consultationID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
