package memory

import (
	"context"
	"sort"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/Freeeeeet/psychologist_bot/internal/report"
)

type Requests struct{ s *Store }

func (r *Requests) check(op string, req *model.Request) error {
	if !req.Status.Valid() {
		return reference(op, "request_statuses")
	}
	if _, ok := r.s.t.students[req.StudentID]; !ok {
		return reference(op, "students")
	}
	if req.PsychologistID != nil {
		if _, ok := r.s.t.users[*req.PsychologistID]; !ok {
			return reference(op, "users")
		}
	}
	return nil
}

func (r *Requests) Create(_ context.Context, req *model.Request) error {
	r.s.mutex.Lock()
	defer r.s.mutex.Unlock()
	if err := r.s.failure("requests.create"); err != nil {
		return err
	}
	if err := r.check("memory.Requests.Create", req); err != nil {
		return err
	}
	req.ID = r.s.nextID()
	req.CreatedAt = r.s.stamp(req.CreatedAt)
	stored := *req
	stored.Student, stored.Psychologist = nil, nil
	r.s.t.requests[req.ID] = stored
	return nil
}

func (r *Requests) GetByID(_ context.Context, id int64) (*model.Request, error) {
	r.s.mutex.RLock()
	defer r.s.mutex.RUnlock()
	req, ok := r.s.t.requests[id]
	if !ok {
		return nil, nil
	}
	return &req, nil
}

// GetForUpdate в памяти блокировка строки обеспечивается транзакцией
func (r *Requests) GetForUpdate(ctx context.Context, id int64) (*model.Request, error) {
	return r.GetByID(ctx, id)
}

func (r *Requests) Update(_ context.Context, req *model.Request) error {
	r.s.mutex.Lock()
	defer r.s.mutex.Unlock()
	if err := r.s.failure("requests.update"); err != nil {
		return err
	}
	if _, ok := r.s.t.requests[req.ID]; !ok {
		return notFound("request")
	}
	if err := r.check("memory.Requests.Update", req); err != nil {
		return err
	}
	stored := *req
	stored.Student, stored.Psychologist = nil, nil
	r.s.t.requests[req.ID] = stored
	return nil
}

func (r *Requests) Delete(_ context.Context, id int64) error {
	r.s.mutex.Lock()
	defer r.s.mutex.Unlock()
	if _, ok := r.s.t.requests[id]; !ok {
		return notFound("request")
	}
	delete(r.s.t.requests, id)
	for cid, c := range r.s.t.consultations {
		if c.RequestID != nil && *c.RequestID == id {
			c.RequestID = nil
			r.s.t.consultations[cid] = c
		}
	}
	// лента ученика сохраняется, ссылка обнуляется
	for nid, n := range r.s.t.notifications {
		if n.RequestID != nil && *n.RequestID == id {
			n.RequestID = nil
			r.s.t.notifications[nid] = n
		}
	}
	for nid, n := range r.s.t.reqNotes {
		if n.RequestID == id {
			delete(r.s.t.reqNotes, nid)
		}
	}
	return nil
}

func (r *Requests) ListByStudent(_ context.Context, studentID int64) ([]model.Request, error) {
	return r.filter(func(req model.Request) bool { return req.StudentID == studentID }), nil
}

func (r *Requests) ListScoped(_ context.Context, scope report.Scope) ([]model.Request, error) {
	return r.filter(scope.AllowsRequest), nil
}

func (r *Requests) filter(keep func(model.Request) bool) []model.Request {
	r.s.mutex.RLock()
	defer r.s.mutex.RUnlock()
	var out []model.Request
	for _, req := range r.s.t.requests {
		if keep(req) {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

type Consultations struct{ s *Store }

func (r *Consultations) check(op string, c *model.Consultation) error {
	if c.Form != model.FormIndividual && c.Form != model.FormGroup {
		return reference(op, "consultation_forms")
	}
	if c.RequestID != nil {
		if _, ok := r.s.t.requests[*c.RequestID]; !ok {
			return reference(op, "requests")
		}
	}
	return nil
}

func (r *Consultations) Create(_ context.Context, c *model.Consultation) error {
	r.s.mutex.Lock()
	defer r.s.mutex.Unlock()
	if err := r.s.failure("consultations.create"); err != nil {
		return err
	}
	if err := r.check("memory.Consultations.Create", c); err != nil {
		return err
	}
	c.ID = r.s.nextID()
	c.CreatedAt = r.s.stamp(c.CreatedAt)
	r.s.t.consultations[c.ID] = *c
	return nil
}

func (r *Consultations) GetByID(_ context.Context, id int64) (*model.Consultation, error) {
	r.s.mutex.RLock()
	defer r.s.mutex.RUnlock()
	c, ok := r.s.t.consultations[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *Consultations) GetForUpdate(ctx context.Context, id int64) (*model.Consultation, error) {
	return r.GetByID(ctx, id)
}

func (r *Consultations) Update(_ context.Context, c *model.Consultation) error {
	r.s.mutex.Lock()
	defer r.s.mutex.Unlock()
	if err := r.s.failure("consultations.update"); err != nil {
		return err
	}
	if _, ok := r.s.t.consultations[c.ID]; !ok {
		return notFound("consultation")
	}
	if err := r.check("memory.Consultations.Update", c); err != nil {
		return err
	}
	r.s.t.consultations[c.ID] = *c
	return nil
}

func (r *Consultations) Delete(_ context.Context, id int64) error {
	r.s.mutex.Lock()
	defer r.s.mutex.Unlock()
	if _, ok := r.s.t.consultations[id]; !ok {
		return notFound("consultation")
	}
	delete(r.s.t.consultations, id)
	for lid, l := range r.s.t.links {
		if l.ConsultationID == id {
			delete(r.s.t.links, lid)
		}
	}
	for nid, n := range r.s.t.notifications {
		if n.ConsultationID != nil && *n.ConsultationID == id {
			n.ConsultationID = nil
			r.s.t.notifications[nid] = n
		}
	}
	for nid, n := range r.s.t.consNotes {
		if n.ConsultationID == id {
			delete(r.s.t.consNotes, nid)
		}
	}
	for aid, a := range r.s.t.attachments {
		if a.ConsultationID == id {
			delete(r.s.t.attachments, aid)
		}
	}
	return nil
}

func (r *Consultations) ListScoped(_ context.Context, scope report.Scope) ([]model.Consultation, error) {
	return r.filter(func(c model.Consultation) bool {
		return scope.AllowsConsultation(r.request(c.RequestID))
	}), nil
}

func (r *Consultations) ListByStudent(_ context.Context, studentID int64) ([]model.Consultation, error) {
	return r.filter(func(c model.Consultation) bool {
		if req := r.request(c.RequestID); req != nil && req.StudentID == studentID {
			return true
		}
		for _, l := range r.s.t.links {
			if l.ConsultationID == c.ID && l.StudentID == studentID {
				return true
			}
		}
		return false
	}), nil
}

func (r *Consultations) ListByRequest(_ context.Context, requestID int64) ([]model.Consultation, error) {
	return r.filter(func(c model.Consultation) bool {
		return c.RequestID != nil && *c.RequestID == requestID
	}), nil
}

// request вызывается под блокировкой
func (r *Consultations) request(id *int64) *model.Request {
	if id == nil {
		return nil
	}
	req, ok := r.s.t.requests[*id]
	if !ok {
		return nil
	}
	return &req
}

func (r *Consultations) filter(keep func(model.Consultation) bool) []model.Consultation {
	r.s.mutex.RLock()
	defer r.s.mutex.RUnlock()
	var out []model.Consultation
	for _, c := range r.s.t.consultations {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

type Participation struct{ s *Store }

func (r *Participation) Create(_ context.Context, l *model.ConsultationStudent) error {
	r.s.mutex.Lock()
	defer r.s.mutex.Unlock()
	if err := r.s.failure("participation.create"); err != nil {
		return err
	}
	if _, ok := r.s.t.consultations[l.ConsultationID]; !ok {
		return reference("memory.Participation.Create", "consultations")
	}
	if _, ok := r.s.t.students[l.StudentID]; !ok {
		return reference("memory.Participation.Create", "students")
	}
	for _, existing := range r.s.t.links {
		if existing.ConsultationID == l.ConsultationID && existing.StudentID == l.StudentID {
			return model.Precondition("memory.Participation.Create", "", "Запись уже существует")
		}
	}
	l.ID = r.s.nextID()
	l.CreatedAt = r.s.stamp(l.CreatedAt)
	stored := *l
	stored.Student = nil
	r.s.t.links[l.ID] = stored
	return nil
}

func (r *Participation) Update(_ context.Context, l *model.ConsultationStudent) error {
	r.s.mutex.Lock()
	defer r.s.mutex.Unlock()
	if err := r.s.failure("participation.update"); err != nil {
		return err
	}
	stored, ok := r.s.t.links[l.ID]
	if !ok {
		return notFound("participation")
	}
	stored.ConfirmedAt = l.ConfirmedAt
	stored.CancelledAt = l.CancelledAt
	r.s.t.links[l.ID] = stored
	return nil
}

func (r *Participation) Delete(_ context.Context, id int64) error {
	r.s.mutex.Lock()
	defer r.s.mutex.Unlock()
	if _, ok := r.s.t.links[id]; !ok {
		return notFound("participation")
	}
	delete(r.s.t.links, id)
	return nil
}

func (r *Participation) ListByConsultation(_ context.Context, consultationID int64) ([]model.ConsultationStudent, error) {
	r.s.mutex.RLock()
	defer r.s.mutex.RUnlock()
	return r.byConsultation(consultationID), nil
}

func (r *Participation) ListByConsultations(_ context.Context, ids []int64) (map[int64][]model.ConsultationStudent, error) {
	r.s.mutex.RLock()
	defer r.s.mutex.RUnlock()
	out := make(map[int64][]model.ConsultationStudent, len(ids))
	for _, id := range ids {
		if links := r.byConsultation(id); len(links) > 0 {
			out[id] = links
		}
	}
	return out, nil
}

// byConsultation вызывается под блокировкой, подставляет карточки учеников
func (r *Participation) byConsultation(consultationID int64) []model.ConsultationStudent {
	var out []model.ConsultationStudent
	for _, l := range r.s.t.links {
		if l.ConsultationID != consultationID {
			continue
		}
		if st, ok := r.s.t.students[l.StudentID]; ok {
			l.Student = &st
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
