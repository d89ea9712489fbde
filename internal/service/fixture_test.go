package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/lifecycle"
	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/Freeeeeet/psychologist_bot/internal/report"
	"github.com/Freeeeeet/psychologist_bot/internal/repository/memory"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Понедельник, 09:00. Консультации ставятся на следующий день.
var testNow = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.Local)

func clock() time.Time { return testNow }

type recordedPush struct {
	UserID int64
	N      model.Notification
}

type fakePusher struct {
	mu     sync.Mutex
	pushed []recordedPush
	chats  []recordedChatPush
}

func (p *fakePusher) Push(_ context.Context, recipient model.User, n model.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushed = append(p.pushed, recordedPush{UserID: recipient.ID, N: n})
	return nil
}

type recordedChatPush struct {
	UserID int64
	From   string
	Msg    model.ChatMessage
}

func (p *fakePusher) PushChat(_ context.Context, recipient model.User, from string, msg model.ChatMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chats = append(p.chats, recordedChatPush{UserID: recipient.ID, From: from, Msg: msg})
	return nil
}

type fakeCache struct {
	mu          sync.Mutex
	data        map[string]any
	hits        int
	invalidated int
}

func newFakeCache() *fakeCache { return &fakeCache{data: make(map[string]any)} }

func (c *fakeCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return false, nil
	}
	c.hits++
	*dst.(*report.Report) = v.(report.Report)
	return true, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *fakeCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	c.data = make(map[string]any)
	return nil
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *memory.Store
	repos Repositories
	cache *fakeCache
	push  *fakePusher

	notifications *NotificationService
	requests      *RequestService
	consultations *ConsultationService
	participation *ParticipationService
	reports       *ReportService
	users         *UserService
	attachments   *AttachmentService
	chats         *ChatService

	admin        model.User
	psychologist model.User
	other        model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	store := memory.NewStore()
	repos := Repositories{
		Tx:            store,
		Users:         store.Users(),
		Students:      store.Students(),
		Requests:      store.Requests(),
		Consultations: store.Consultations(),
		Participation: store.Participation(),
		Notifications: store.Notifications(),
		Notes:         store.Notes(),
		Attachments:   store.Attachments(),
		Chats:         store.Chats(),
	}

	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		store: store,
		repos: repos,
		cache: newFakeCache(),
		push:  &fakePusher{},
	}

	f.notifications = NewNotificationService(repos, 0, logger)
	f.notifications.SetPusher(f.push)
	outbox := NewOutbox(repos, f.notifications, f.cache, logger)
	media := NewMediaStore(t.TempDir())

	f.requests = NewRequestService(repos, outbox, logger)
	f.requests.now = clock
	f.consultations = NewConsultationService(repos, outbox, media, logger)
	f.consultations.now = clock
	f.participation = NewParticipationService(repos, outbox, logger)
	f.participation.now = clock
	f.reports = NewReportService(repos, f.cache, logger)
	f.reports.now = clock
	f.users = NewUserService(repos, nil, logger)
	f.users.now = clock
	f.attachments = NewAttachmentService(repos, media, logger)
	f.chats = NewChatService(repos, 0, logger)
	f.chats.now = clock
	f.chats.SetPusher(f.push)

	f.admin = f.user(100, model.RoleAdmin, nil)
	f.psychologist = f.user(200, model.RolePsychologist, nil)
	f.other = f.user(201, model.RolePsychologist, nil)
	return f
}

func (f *fixture) user(telegramID int64, role model.Role, studentID *int64) model.User {
	f.t.Helper()
	u := &model.User{TelegramID: telegramID, FirstName: "user", Role: role, StudentID: studentID, IsActive: true}
	require.NoError(f.t, f.repos.Users.Create(f.ctx, u))
	return *u
}

// student карточка ученика и его аккаунт
func (f *fixture) student(last string) (model.Student, model.Actor) {
	f.t.Helper()
	s := &model.Student{FirstName: "Ученик", LastName: last, ClassName: "7А"}
	require.NoError(f.t, f.repos.Students.Create(f.ctx, s))
	id := s.ID
	u := f.user(1000+s.ID, model.RoleStudent, &id)
	return *s, u.Actor()
}

func (f *fixture) request(studentID int64) model.Request {
	f.t.Helper()
	req, err := f.requests.Create(f.ctx, f.psychologist.Actor(), lifecycle.RequestInput{
		StudentID: studentID,
		Source:    model.SourceParent,
	})
	require.NoError(f.t, err)
	return *req
}

func tod(h, m int) *model.TimeOfDay {
	t := model.NewTimeOfDay(h, m)
	return &t
}

func consultationInput(requestID *int64, students ...int64) lifecycle.ConsultationInput {
	form := model.FormIndividual
	if len(students) > 1 {
		form = model.FormGroup
	}
	return lifecycle.ConsultationInput{
		RequestID:  requestID,
		Form:       form,
		Date:       testNow.AddDate(0, 0, 1),
		StartTime:  tod(10, 0),
		EndTime:    tod(10, 45),
		StudentIDs: students,
	}
}

// consultation создаёт консультацию от имени основного психолога
func (f *fixture) consultation(requestID *int64, students ...int64) model.Consultation {
	f.t.Helper()
	change, err := f.consultations.Create(f.ctx, f.psychologist.Actor(), consultationInput(requestID, students...))
	require.NoError(f.t, err)
	return *change.Consultation
}

func (f *fixture) getRequest(id int64) model.Request {
	f.t.Helper()
	req, err := f.repos.Requests.GetByID(f.ctx, id)
	require.NoError(f.t, err)
	require.NotNil(f.t, req)
	return *req
}

func (f *fixture) getConsultation(id int64) model.Consultation {
	f.t.Helper()
	c, err := f.repos.Consultations.GetByID(f.ctx, id)
	require.NoError(f.t, err)
	require.NotNil(f.t, c)
	return *c
}

func (f *fixture) events() []model.Notification {
	return f.store.Notifications().All()
}
