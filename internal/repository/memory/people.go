package memory

import (
	"context"
	"sort"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
)

type Users struct{ s *Store }

func (r *Users) Create(_ context.Context, u *model.User) error {
	r.s.mutex.Lock()
	defer r.s.mutex.Unlock()
	if err := r.s.failure("users.create"); err != nil {
		return err
	}
	for _, existing := range r.s.t.users {
		if existing.TelegramID == u.TelegramID {
			return model.Precondition("memory.Users.Create", "", "Запись уже существует")
		}
	}
	if u.StudentID != nil {
		if _, ok := r.s.t.students[*u.StudentID]; !ok {
			return reference("memory.Users.Create", "students")
		}
	}
	u.ID = r.s.nextID()
	u.CreatedAt = r.s.stamp(u.CreatedAt)
	r.s.t.users[u.ID] = *u
	return nil
}

func (r *Users) GetByID(_ context.Context, id int64) (*model.User, error) {
	r.s.mutex.RLock()
	defer r.s.mutex.RUnlock()
	u, ok := r.s.t.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *Users) GetByTelegramID(_ context.Context, telegramID int64) (*model.User, error) {
	r.s.mutex.RLock()
	defer r.s.mutex.RUnlock()
	for _, u := range r.s.t.users {
		if u.TelegramID == telegramID {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *Users) Update(_ context.Context, u *model.User) error {
	r.s.mutex.Lock()
	defer r.s.mutex.Unlock()
	if _, ok := r.s.t.users[u.ID]; !ok {
		return notFound("user")
	}
	if u.StudentID != nil {
		if _, ok := r.s.t.students[*u.StudentID]; !ok {
			return reference("memory.Users.Update", "students")
		}
	}
	r.s.t.users[u.ID] = *u
	return nil
}

func (r *Users) ListByRole(_ context.Context, role model.Role) ([]model.User, error) {
	return r.filter(func(u model.User) bool { return u.Role == role && u.IsActive }), nil
}

func (r *Users) ListByStudentID(_ context.Context, studentID int64) ([]model.User, error) {
	return r.filter(func(u model.User) bool {
		return u.StudentID != nil && *u.StudentID == studentID && u.IsActive
	}), nil
}

func (r *Users) ListAll(_ context.Context) ([]model.User, error) {
	return r.filter(func(model.User) bool { return true }), nil
}

func (r *Users) filter(keep func(model.User) bool) []model.User {
	r.s.mutex.RLock()
	defer r.s.mutex.RUnlock()
	var out []model.User
	for _, u := range r.s.t.users {
		if keep(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type Students struct{ s *Store }

func (r *Students) Create(_ context.Context, st *model.Student) error {
	r.s.mutex.Lock()
	defer r.s.mutex.Unlock()
	st.ID = r.s.nextID()
	st.CreatedAt = r.s.stamp(st.CreatedAt)
	r.s.t.students[st.ID] = *st
	return nil
}

func (r *Students) GetByID(_ context.Context, id int64) (*model.Student, error) {
	r.s.mutex.RLock()
	defer r.s.mutex.RUnlock()
	st, ok := r.s.t.students[id]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (r *Students) List(_ context.Context) ([]model.Student, error) {
	r.s.mutex.RLock()
	defer r.s.mutex.RUnlock()
	out := make([]model.Student, 0, len(r.s.t.students))
	for _, st := range r.s.t.students {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out, nil
}
