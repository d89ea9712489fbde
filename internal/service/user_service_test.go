package service

import (
	"testing"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/lifecycle"
	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegisterUser(t *testing.T) {
	f := newFixture(t)
	users := NewUserService(f.repos, []int64{777}, zap.NewNop())

	u, err := users.RegisterUser(f.ctx, 555, "anna", "Анна", "Белова")
	require.NoError(t, err)
	assert.Equal(t, model.RoleStudent, u.Role)
	assert.Nil(t, u.StudentID)
	assert.True(t, u.IsActive)

	// повторная регистрация обновляет профиль, роль не меняется
	again, err := users.RegisterUser(f.ctx, 555, "anna_b", "Анна", "Белова")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "anna_b", again.Username)
	assert.Equal(t, model.RoleStudent, again.Role)

	admin, err := users.RegisterUser(f.ctx, 777, "boss", "Ирина", "Павлова")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)
}

func TestRegisterUserPromotesConfiguredAdmin(t *testing.T) {
	f := newFixture(t)
	// пользователь 200 уже психолог
	users := NewUserService(f.repos, []int64{200}, zap.NewNop())

	u, err := users.RegisterUser(f.ctx, 200, "psy", "Мария", "Ковалёва")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)
	assert.Equal(t, f.psychologist.ID, u.ID)
}

func TestSetRole(t *testing.T) {
	f := newFixture(t)
	newcomer := f.user(300, model.RoleStudent, nil)

	u, err := f.users.SetRole(f.ctx, f.admin.Actor(), newcomer.ID, model.RolePsychologist)
	require.NoError(t, err)
	assert.Equal(t, model.RolePsychologist, u.Role)

	psychologists, err := f.users.ListPsychologists(f.ctx, f.admin.Actor())
	require.NoError(t, err)
	assert.Len(t, psychologists, 3)

	_, err = f.users.SetRole(f.ctx, f.admin.Actor(), f.admin.ID, model.RoleStudent)
	assert.ErrorIs(t, err, model.ErrPrecondition)

	_, err = f.users.SetRole(f.ctx, f.admin.Actor(), newcomer.ID, "director")
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = f.users.SetRole(f.ctx, f.psychologist.Actor(), newcomer.ID, model.RoleAdmin)
	assert.ErrorIs(t, err, model.ErrForbidden)

	_, err = f.users.SetRole(f.ctx, f.admin.Actor(), 9999, model.RoleAdmin)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCreateStudentAndBind(t *testing.T) {
	f := newFixture(t)
	account := f.user(300, model.RoleStudent, nil)

	student, err := f.users.CreateStudent(f.ctx, f.psychologist.Actor(), lifecycle.StudentInput{
		FirstName: " Анна ",
		LastName:  "Белова",
		ClassName: "7а",
	})
	require.NoError(t, err)
	assert.Equal(t, "Анна", student.FirstName)
	assert.Equal(t, "7А", student.ClassName)

	_, err = f.users.CreateStudent(f.ctx, f.psychologist.Actor(), lifecycle.StudentInput{FirstName: "Анна"})
	require.ErrorIs(t, err, model.ErrValidation)
	e, _ := model.AsError(err)
	assert.Contains(t, e.Fields, "last_name")

	future := testNow.Add(24 * time.Hour)
	_, err = f.users.CreateStudent(f.ctx, f.psychologist.Actor(), lifecycle.StudentInput{FirstName: "Анна", LastName: "Белова", BirthDate: &future})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = f.users.BindStudent(f.ctx, f.psychologist.Actor(), account.ID, student.ID)
	assert.ErrorIs(t, err, model.ErrForbidden)

	_, err = f.users.BindStudent(f.ctx, f.admin.Actor(), account.ID, 9999)
	assert.ErrorIs(t, err, model.ErrNotFound)

	bound, err := f.users.BindStudent(f.ctx, f.admin.Actor(), account.ID, student.ID)
	require.NoError(t, err)
	require.NotNil(t, bound.StudentID)
	assert.Equal(t, student.ID, *bound.StudentID)
	assert.True(t, bound.Actor().IsStudent())

	students, err := f.users.ListStudents(f.ctx, f.admin.Actor())
	require.NoError(t, err)
	assert.Len(t, students, 1)

	card, err := f.users.GetStudent(f.ctx, f.psychologist.Actor(), student.ID)
	require.NoError(t, err)
	assert.Equal(t, "Белова Анна", card.FullName())

	_, err = f.users.GetStudent(f.ctx, f.psychologist.Actor(), 9999)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = f.users.GetStudent(f.ctx, bound.Actor(), student.ID)
	assert.ErrorIs(t, err, model.ErrForbidden)

	_, err = f.users.ListUsers(f.ctx, f.psychologist.Actor())
	assert.ErrorIs(t, err, model.ErrForbidden)
}
