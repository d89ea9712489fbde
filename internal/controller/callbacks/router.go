package callbacks

import (
	"context"
	"strings"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/admin"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/psychologist"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/student"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// ========================
// Callback Data Patterns
// ========================
// Callback data имеет вид head или head:arg1:arg2, маршрут выбирается по head

// Common callbacks
const (
	Noop         = "noop"
	MainMenu     = "main_menu"
	CancelDialog = "cancel_dialog"
)

// Student callbacks
const (
	MyRequests           = "my_requests"
	MyRequest            = "my_req"        // my_req:request_id
	MyRequestCancel      = "my_req_cancel" // my_req_cancel:request_id
	NewOwnRequest        = "new_own_request"
	SubmitOwnRequest     = "submit_own_request"
	MyConsultations      = "my_cons_list"
	MyConsultation       = "my_cons"         // my_cons:consultation_id
	ConfirmParticipation = "confirm_part"    // confirm_part:consultation_id
	DeclineParticipation = "decline_part"    // decline_part:consultation_id
	DeclineParticipateOK = "decline_part_ok" // decline_part_ok:consultation_id
	Feed                 = "feed"
	MyChat               = "my_chat"
	ChatWrite            = "chat_write"
)

// Psychologist callbacks - requests
const (
	RequestList       = "req_list"        // req_list:status:page
	ViewRequest       = "view_req"        // view_req:request_id
	CompleteRequest   = "complete_req"    // complete_req:request_id
	CancelRequest     = "cancel_req"      // cancel_req:request_id
	CancelRequestOK   = "cancel_req_ok"   // cancel_req_ok:request_id
	RequestNote       = "req_note"        // req_note:request_id
	NewRequest        = "new_req"         // new_req:page
	NewRequestStudent = "new_req_student" // new_req_student:student_id
	NewRequestSource  = "new_req_src"     // new_req_src:student_id:source
)

// Psychologist callbacks - consultations
const (
	ConsultationList     = "cons_list"      // cons_list:tab:page
	ViewConsultation     = "view_cons"      // view_cons:consultation_id
	NewConsultation      = "new_cons"       // new_cons:request_id (0 - без заявки)
	EditConsultation     = "edit_cons"      // edit_cons:consultation_id
	PickParticipant      = "cons_pick"      // cons_pick:student_id
	PickParticipantPage  = "cons_pick_page" // cons_pick_page:page
	SaveConsultation     = "cons_save"
	CompleteConsultation = "complete_cons"  // complete_cons:consultation_id
	CancelConsultation   = "cancel_cons"    // cancel_cons:consultation_id
	CancelConsultationOK = "cancel_cons_ok" // cancel_cons_ok:consultation_id
	DeleteConsultation   = "delete_cons"    // delete_cons:consultation_id
	DeleteConsultationOK = "delete_cons_ok" // delete_cons_ok:consultation_id
	ConsultationResult   = "cons_result"    // cons_result:consultation_id
	ConsultationNote     = "cons_note"      // cons_note:consultation_id

	Attachments  = "cons_files"     // cons_files:consultation_id
	UploadFile   = "upload_file"    // upload_file:consultation_id
	GetFile      = "get_file"       // get_file:attachment_id
	DeleteFile   = "delete_file"    // delete_file:consultation_id:attachment_id
	DeleteFileOK = "delete_file_ok" // delete_file_ok:consultation_id:attachment_id
)

// Psychologist callbacks - students and reports
const (
	Students       = "students" // students:page
	Student        = "student"  // student:student_id
	NewStudent     = "new_student"
	Dynamics       = "dynamics"        // dynamics:student_id
	DynamicsExport = "dynamics_export" // dynamics_export:student_id
	Report         = "report"          // report:period
	ReportExcel    = "report_xlsx"     // report_xlsx:period
	ReportRegister = "report_register" // report_register:period
	ReportChart    = "report_chart"    // report_chart:period

	Chats     = "chats"      // chats:page
	Chat      = "chat"       // chat:chat_id
	ChatReply = "chat_reply" // chat_reply:chat_id
)

// Admin callbacks
const (
	DeleteRequest      = "delete_req"    // delete_req:request_id
	DeleteRequestOK    = "delete_req_ok" // delete_req_ok:request_id
	AssignPsychologist = "assign_psy"    // assign_psy:consultation_id
	AssignTo           = "assign_to"     // assign_to:consultation_id:user_id

	Users       = "users"        // users:page
	User        = "user"         // user:user_id
	SetRole     = "set_role"     // set_role:user_id:role
	BindStudent = "bind_student" // bind_student:user_id:page
	BindTo      = "bind_to"      // bind_to:user_id:student_id

	Backups        = "backups"
	NewBackup      = "backup_new"    // backup_new:sql|dump
	GetBackup      = "backup_get"    // backup_get:name
	DeleteBackup   = "backup_del"    // backup_del:name
	DeleteBackupOK = "backup_del_ok" // backup_del_ok:name
)

type callbackFunc func(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler)

// match выбирает обработчик по head callback data, nil для неизвестных
func match(data string) callbackFunc {
	head, _, _ := strings.Cut(data, ":")

	switch head {
	// ===== Common =====
	case Noop:
		return common.HandleNoop
	case MainMenu:
		return common.HandleMainMenu
	case CancelDialog:
		return common.HandleCancelDialog

	// ===== Student =====
	case MyRequests:
		return student.HandleMyRequests
	case MyRequest:
		return student.HandleMyRequest
	case MyRequestCancel:
		return student.HandleCancelMyRequest
	case NewOwnRequest:
		return student.HandleNewOwnRequest
	case SubmitOwnRequest:
		return student.HandleSubmitOwnRequest
	case MyConsultations:
		return student.HandleMyConsultations
	case MyConsultation:
		return student.HandleMyConsultation
	case ConfirmParticipation:
		return student.HandleConfirmParticipation
	case DeclineParticipation:
		return student.HandleDeclineParticipation
	case DeclineParticipateOK:
		return student.HandleDeclineParticipationConfirm
	case Feed:
		return student.HandleFeed
	case MyChat:
		return student.HandleMyChat
	case ChatWrite:
		return student.HandleChatWrite

	// ===== Psychologist: requests =====
	case RequestList:
		return psychologist.HandleRequestList
	case ViewRequest:
		return psychologist.HandleViewRequest
	case CompleteRequest:
		return psychologist.HandleCompleteRequest
	case CancelRequest:
		return psychologist.HandleCancelRequest
	case CancelRequestOK:
		return psychologist.HandleCancelRequestConfirm
	case RequestNote:
		return psychologist.HandleRequestNote
	case NewRequest:
		return psychologist.HandleNewRequest
	case NewRequestStudent:
		return psychologist.HandleNewRequestStudent
	case NewRequestSource:
		return psychologist.HandleNewRequestSource

	// ===== Psychologist: consultations =====
	case ConsultationList:
		return psychologist.HandleConsultationList
	case ViewConsultation:
		return psychologist.HandleViewConsultation
	case NewConsultation:
		return psychologist.HandleNewConsultation
	case EditConsultation:
		return psychologist.HandleEditConsultation
	case PickParticipant:
		return psychologist.HandlePickParticipant
	case PickParticipantPage:
		return psychologist.HandlePickParticipantPage
	case SaveConsultation:
		return psychologist.HandleSaveConsultation
	case CompleteConsultation:
		return psychologist.HandleCompleteConsultation
	case CancelConsultation:
		return psychologist.HandleCancelConsultation
	case CancelConsultationOK:
		return psychologist.HandleCancelConsultationConfirm
	case DeleteConsultation:
		return psychologist.HandleDeleteConsultation
	case DeleteConsultationOK:
		return psychologist.HandleDeleteConsultationConfirm
	case ConsultationResult:
		return psychologist.HandleConsultationResult
	case ConsultationNote:
		return psychologist.HandleConsultationNote
	case Attachments:
		return psychologist.HandleAttachments
	case UploadFile:
		return psychologist.HandleUploadFile
	case GetFile:
		return psychologist.HandleGetFile
	case DeleteFile:
		return psychologist.HandleDeleteFile
	case DeleteFileOK:
		return psychologist.HandleDeleteFileConfirm

	// ===== Psychologist: students and reports =====
	case Students:
		return psychologist.HandleStudents
	case Student:
		return psychologist.HandleStudent
	case NewStudent:
		return psychologist.HandleNewStudent
	case Dynamics:
		return psychologist.HandleDynamics
	case DynamicsExport:
		return psychologist.HandleDynamicsExport
	case Report:
		return psychologist.HandleReport
	case ReportExcel:
		return psychologist.HandleReportExcel
	case ReportRegister:
		return admin.HandleReportRegister
	case ReportChart:
		return psychologist.HandleReportChart
	case Chats:
		return psychologist.HandleChats
	case Chat:
		return psychologist.HandleChat
	case ChatReply:
		return psychologist.HandleChatReply

	// ===== Admin =====
	case DeleteRequest:
		return admin.HandleDeleteRequest
	case DeleteRequestOK:
		return admin.HandleDeleteRequestConfirm
	case AssignPsychologist:
		return admin.HandleAssignPsychologist
	case AssignTo:
		return admin.HandleAssignTo
	case Users:
		return admin.HandleUsers
	case User:
		return admin.HandleUser
	case SetRole:
		return admin.HandleSetRole
	case BindStudent:
		return admin.HandleBindStudent
	case BindTo:
		return admin.HandleBindTo
	case Backups:
		return admin.HandleBackups
	case NewBackup:
		return admin.HandleNewBackup
	case GetBackup:
		return admin.HandleGetBackup
	case DeleteBackup:
		return admin.HandleDeleteBackup
	case DeleteBackupOK:
		return admin.HandleDeleteBackupConfirm
	}
	return nil
}

// ========================
// Main Callback Router
// ========================

// Route распределяет callback query по соответствующим обработчикам
func Route(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	data := callback.Data

	h.Logger.Info("Routing callback",
		zap.String("data", data),
		zap.Int64("user_id", callback.From.ID),
		zap.String("user_name", callback.From.FirstName))

	handler := match(data)
	if handler == nil {
		h.Logger.Warn("Unknown callback data", zap.String("data", data))
		common.AnswerCallback(ctx, b, callback.ID, "❓ Неизвестная команда")
		return
	}
	handler(ctx, b, callback, h)
}
