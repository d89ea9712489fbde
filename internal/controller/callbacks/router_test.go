package callbacks

import (
	"fmt"
	"testing"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/psychologist_bot/internal/lifecycle"
	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/Freeeeeet/psychologist_bot/internal/report"
	"github.com/Freeeeeet/psychologist_bot/internal/service"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

type screen struct {
	name string
	kb   *models.InlineKeyboardMarkup
}

func fixtureScreens() []screen {
	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.Local)
	start, end := model.NewTimeOfDay(10, 0), model.NewTimeOfDay(10, 45)

	var students []model.Student
	for i := 1; i <= 12; i++ {
		students = append(students, model.Student{ID: int64(i), FirstName: "Анна", LastName: fmt.Sprintf("Белова%d", i), ClassName: "7А"})
	}
	psychologist := model.User{ID: 2, TelegramID: 200, FirstName: "Мария", Role: model.RolePsychologist, IsActive: true}
	admin := model.User{ID: 3, TelegramID: 300, FirstName: "Ирина", Role: model.RoleAdmin, IsActive: true}
	account := model.User{ID: 4, TelegramID: 400, FirstName: "Анна", Role: model.RoleStudent, StudentID: ptr(int64(1)), IsActive: true}

	open := model.Request{ID: 10, StudentID: 1, Source: model.SourceParent, Status: model.RequestStatusInProgress, CreatedAt: now, Student: &students[0]}
	closed := model.Request{ID: 11, StudentID: 1, Source: model.SourceStudent, Status: model.RequestStatusCancelled, CreatedAt: now, Student: &students[0]}

	scheduled := model.Consultation{ID: 20, RequestID: ptr(int64(10)), Form: model.FormIndividual, Date: now.AddDate(0, 0, 1), StartTime: &start, EndTime: &end, Duration: 45}
	done := scheduled
	done.ID = 21
	done.CompletedAt = &now

	links := []model.ConsultationStudent{{ID: 1, ConsultationID: 20, StudentID: 1, Student: &students[0]}}
	reqDetails := &service.RequestDetails{
		Request:       open,
		Notes:         []model.RequestNote{{ID: 1, RequestID: 10, Text: "тревога перед экзаменом", CreatedAt: now}},
		Consultations: []model.Consultation{scheduled},
	}
	closedDetails := &service.RequestDetails{Request: closed}
	consDetails := &service.ConsultationDetails{
		ConsultationState: lifecycle.ConsultationState{Consultation: scheduled, Request: &open, Links: links},
		Attachments:       []model.Attachment{{ID: 5, ConsultationID: 20, Path: "consultations/20/a.pdf"}},
	}
	doneDetails := &service.ConsultationDetails{
		ConsultationState: lifecycle.ConsultationState{Consultation: done, Request: &open, Links: links},
	}
	states := []lifecycle.ConsultationState{consDetails.ConsultationState, doneDetails.ConsultationState}
	draft := &common.ConsultationDraft{RequestID: 10, Date: scheduled.Date, Start: start, End: end, Students: []int64{1}}

	var screens []screen
	add := func(name, text string, kb *models.InlineKeyboardMarkup) {
		if text != "" {
			screens = append(screens, screen{name: name, kb: kb})
		}
	}

	for _, u := range []model.User{psychologist, admin, account} {
		text, kb := common.BuildMainMenu(&u)
		add("main menu "+string(u.Role), text, kb)
	}

	for _, actor := range []model.Actor{psychologist.Actor(), admin.Actor()} {
		text, kb := common.BuildRequestListScreen(make([]model.Request, 20), actor, common.StatusFilterAll, 1)
		add("request list", text, kb)
		text, kb = common.BuildRequestScreen(reqDetails, actor)
		add("request", text, kb)
		text, kb = common.BuildRequestScreen(closedDetails, actor)
		add("closed request", text, kb)
		text, kb = common.BuildConsultationScreen(consDetails, actor)
		add("consultation", text, kb)
		text, kb = common.BuildConsultationScreen(doneDetails, actor)
		add("done consultation", text, kb)
		text, kb = common.BuildStudentScreen(&students[0], actor)
		add("student", text, kb)
	}

	text, kb := common.BuildStudentRequestsScreen([]model.Request{open})
	add("own requests", text, kb)
	text, kb = common.BuildStudentRequestScreen(reqDetails)
	add("own request", text, kb)
	text, kb = common.BuildPickStudentScreen(students, 0)
	add("pick student", text, kb)
	text, kb = common.BuildPickSourceScreen(&students[0])
	add("pick source", text, kb)

	text, kb = common.BuildConsultationListScreen(states, service.TabAll, 0)
	add("consultation list", text, kb)
	text, kb = common.BuildStudentConsultationsScreen([]service.StudentConsultation{{Consultation: scheduled, Linked: true}})
	add("own consultations", text, kb)
	text, kb = common.BuildStudentConsultationScreen(consDetails, 1)
	add("own consultation", text, kb)
	text, kb = common.BuildPickParticipantsScreen(draft.Header(), students, draft.Students, 1)
	add("pick participants", text, kb)
	text, kb = common.BuildAttachmentsScreen(20, consDetails.Attachments)
	add("attachments", text, kb)
	text, kb = common.BuildPickPsychologistScreen(20, []model.User{psychologist})
	add("pick psychologist", text, kb)
	text, kb = common.BuildFeedScreen(nil)
	add("feed", text, kb)

	chatView := &service.ChatView{
		Chat:         model.Chat{ID: 30, StudentID: 1, PsychologistID: psychologist.ID},
		Student:      students[0],
		Psychologist: &psychologist,
		Messages:     []model.ChatMessage{{ID: 1, ChatID: 30, AuthorID: ptr(account.ID), Text: "Можно завтра?", CreatedAt: now}},
		Authors:      map[int64]string{account.ID: "Белова1 Анна"},
		CanSend:      true,
	}
	text, kb = common.BuildStudentChatScreen(chatView)
	add("own chat", text, kb)
	text, kb = common.BuildChatScreen(chatView)
	add("chat", text, kb)
	text, kb = common.BuildChatListScreen(make([]model.ChatSummary, 12), 1)
	add("chats", text, kb)

	text, kb = common.BuildReportScreen(report.Report{}, common.PeriodMonth)
	add("report", text, kb)
	text, kb = common.BuildStudentListScreen(students, 0)
	add("students", text, kb)
	text, kb = common.BuildDynamicsScreen(report.StudentDynamics{Student: students[0]})
	add("dynamics", text, kb)

	text, kb = common.BuildUserListScreen([]model.User{psychologist, admin, account}, 0)
	add("users", text, kb)
	text, kb = common.BuildUserScreen(&account, &students[0])
	add("user", text, kb)
	text, kb = common.BuildBindStudentScreen(&account, students, 1)
	add("bind student", text, kb)
	text, kb = common.BuildBackupsScreen([]service.Backup{{Name: "backup_2026-03-02_09-00-00.sql", Format: service.BackupSQL, Size: 2048, CreatedAt: now}})
	add("backups", text, kb)

	return screens
}

func TestEveryButtonIsRouted(t *testing.T) {
	for _, s := range fixtureScreens() {
		if s.kb == nil {
			continue
		}
		for _, row := range s.kb.InlineKeyboard {
			for _, btn := range row {
				assert.NotNil(t, match(btn.CallbackData), "%s: %q", s.name, btn.CallbackData)
				assert.LessOrEqual(t, len(btn.CallbackData), 64, "%s: %q", s.name, btn.CallbackData)
			}
		}
	}
}

func TestScreensCoverRoleSpecificActions(t *testing.T) {
	seen := make(map[string]bool)
	for _, s := range fixtureScreens() {
		if s.kb == nil {
			continue
		}
		for _, row := range s.kb.InlineKeyboard {
			for _, btn := range row {
				seen[btn.CallbackData] = true
			}
		}
	}

	for _, data := range []string{
		"complete_req:10", "cancel_req:10", "delete_req:11", "new_cons:10",
		"edit_cons:20", "assign_psy:20", "delete_cons:21",
		"confirm_part:20", "decline_part:20", "delete_file:20:5",
		"cons_save", "backup_del:backup_2026-03-02_09-00-00.sql",
		"report_xlsx:month", "report_register:month",
		"my_chat", "chat_write", "chat_reply:30", "chats:0",
	} {
		assert.True(t, seen[data], data)
	}
}

func TestMatchUnknown(t *testing.T) {
	assert.Nil(t, match(""))
	assert.Nil(t, match("book_lesson:1"))
	require.NotNil(t, match("noop"))
	require.NotNil(t, match("req_list:all:0"))
}
