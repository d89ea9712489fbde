package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/Freeeeeet/psychologist_bot/internal/report"
	"github.com/Freeeeeet/psychologist_bot/internal/report/render"
	"go.uber.org/zap"
)

type ReportService struct {
	repos  Repositories
	cache  ReportCache
	logger *zap.Logger
	now    func() time.Time
}

// NewReportService cache может быть nil
func NewReportService(repos Repositories, cache ReportCache, logger *zap.Logger) *ReportService {
	return &ReportService{
		repos:  repos,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// Build сводный отчёт в области видимости действующего лица
func (s *ReportService) Build(ctx context.Context, actor model.Actor, f report.Filters) (report.Report, error) {
	scope, err := report.ScopeFor(actor)
	if err != nil {
		return report.Report{}, err
	}
	if err := f.Validate(); err != nil {
		return report.Report{}, err
	}

	key := scope.Key() + "|" + f.Key()
	if s.cache != nil {
		var cached report.Report
		ok, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("Failed to read report cache", zap.String("key", key), zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	ds, err := s.dataset(ctx, scope)
	if err != nil {
		return report.Report{}, err
	}

	r, err := report.Build(actor, ds, f, s.now())
	if err != nil {
		return report.Report{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, r); err != nil {
			s.logger.Warn("Failed to write report cache", zap.String("key", key), zap.Error(err))
		}
	}

	s.logger.Info("Report built",
		zap.Int64("user_id", actor.UserID),
		zap.String("scope", scope.Key()),
		zap.Int("requests", r.Workload.Requests),
		zap.Int("consultations", r.Workload.Consultations),
	)
	return r, nil
}

// dataset загружает всё, что видно в области, вместе с участниками консультаций
func (s *ReportService) dataset(ctx context.Context, scope report.Scope) (report.Dataset, error) {
	requests, err := s.repos.Requests.ListScoped(ctx, scope)
	if err != nil {
		return report.Dataset{}, fmt.Errorf("list requests: %w", err)
	}
	consultations, err := s.repos.Consultations.ListScoped(ctx, scope)
	if err != nil {
		return report.Dataset{}, fmt.Errorf("list consultations: %w", err)
	}

	records, err := s.records(ctx, consultations, requests)
	if err != nil {
		return report.Dataset{}, err
	}

	students, err := s.repos.Students.List(ctx)
	if err != nil {
		return report.Dataset{}, fmt.Errorf("list students: %w", err)
	}
	psychologists, err := s.repos.Users.ListByRole(ctx, model.RolePsychologist)
	if err != nil {
		return report.Dataset{}, fmt.Errorf("list psychologists: %w", err)
	}

	ds := report.Dataset{
		Requests:      requests,
		Consultations: records,
		Students:      make(map[int64]model.Student, len(students)),
		Psychologists: make(map[int64]model.User, len(psychologists)),
	}
	for _, st := range students {
		ds.Students[st.ID] = st
	}
	for _, u := range psychologists {
		ds.Psychologists[u.ID] = u
	}
	return ds, nil
}

// records добавляет к консультациям заявки и учеников по связям участия
func (s *ReportService) records(ctx context.Context, consultations []model.Consultation, known []model.Request) ([]report.ConsultationRecord, error) {
	requests := make(map[int64]*model.Request, len(known))
	for i := range known {
		requests[known[i].ID] = &known[i]
	}

	ids := make([]int64, 0, len(consultations))
	for _, c := range consultations {
		ids = append(ids, c.ID)
	}
	links, err := s.repos.Participation.ListByConsultations(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list participation: %w", err)
	}

	records := make([]report.ConsultationRecord, 0, len(consultations))
	for _, c := range consultations {
		rec := report.ConsultationRecord{Consultation: c}
		if c.RequestID != nil {
			req, ok := requests[*c.RequestID]
			if !ok {
				if req, err = s.repos.Requests.GetByID(ctx, *c.RequestID); err != nil {
					return nil, fmt.Errorf("get request: %w", err)
				}
				requests[*c.RequestID] = req
			}
			rec.Request = req
		}
		for _, l := range links[c.ID] {
			rec.StudentIDs = append(rec.StudentIDs, l.StudentID)
		}
		records = append(records, rec)
	}
	return records, nil
}

// StudentDynamics динамика ученика и её оценка
func (s *ReportService) StudentDynamics(ctx context.Context, actor model.Actor, studentID int64, f report.Filters) (report.StudentDynamics, error) {
	if _, err := report.ScopeFor(actor); err != nil {
		return report.StudentDynamics{}, err
	}

	student, err := s.repos.Students.GetByID(ctx, studentID)
	if err != nil {
		return report.StudentDynamics{}, fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		return report.StudentDynamics{}, model.NotFound("service.StudentDynamics", "Ученик не найден")
	}

	requests, err := s.repos.Requests.ListByStudent(ctx, studentID)
	if err != nil {
		return report.StudentDynamics{}, fmt.Errorf("list student requests: %w", err)
	}
	consultations, err := s.repos.Consultations.ListByStudent(ctx, studentID)
	if err != nil {
		return report.StudentDynamics{}, fmt.Errorf("list student consultations: %w", err)
	}
	records, err := s.records(ctx, consultations, requests)
	if err != nil {
		return report.StudentDynamics{}, err
	}
	notes, err := s.repos.Notes.ListRequestNotesByStudent(ctx, studentID)
	if err != nil {
		return report.StudentDynamics{}, fmt.Errorf("list student notes: %w", err)
	}

	return report.AnalyzeStudent(actor, report.StudentData{
		Student:       *student,
		Requests:      requests,
		Consultations: records,
		Notes:         notes,
	}, f, s.now())
}

// Excel сводный отчёт книгой Excel, лист на таблицу
func (s *ReportService) Excel(ctx context.Context, actor model.Actor, f report.Filters) ([]byte, error) {
	r, err := s.Build(ctx, actor, f)
	if err != nil {
		return nil, err
	}
	data, err := render.Workbook(report.Tables(r))
	if err != nil {
		return nil, fmt.Errorf("render report workbook: %w", err)
	}
	return data, nil
}

// Register реестр консультаций за период, только для администратора
func (s *ReportService) Register(ctx context.Context, actor model.Actor, f report.Filters) ([]byte, error) {
	if actor.Role != model.RoleAdmin {
		return nil, model.Forbidden("service.Register", model.ReasonRole, "Реестр консультаций доступен только администратору")
	}
	r, err := s.Build(ctx, actor, f)
	if err != nil {
		return nil, err
	}

	forms := report.Table{Title: "Формы консультаций", Header: []string{"Форма", "Количество"}, Chart: report.ChartPie}
	for _, row := range r.ByForm {
		forms.Rows = append(forms.Rows, []string{report.FormTitle(row.Form), strconv.Itoa(row.Count)})
	}
	data, err := render.Workbook([]report.Table{report.RegisterTable(r.Register), forms})
	if err != nil {
		return nil, fmt.Errorf("render register: %w", err)
	}

	s.logger.Info("Consultation register exported",
		zap.Int64("user_id", actor.UserID),
		zap.Int("rows", len(r.Register)),
	)
	return data, nil
}

// Chart диаграмма динамики заявок по месяцам
func (s *ReportService) Chart(ctx context.Context, actor model.Actor, f report.Filters) ([]byte, error) {
	r, err := s.Build(ctx, actor, f)
	if err != nil {
		return nil, err
	}
	return render.RequestDynamicsChart(r.RequestDynamics).PNG()
}

// DynamicsExport диаграмма и книга Excel по ученику
func (s *ReportService) DynamicsExport(ctx context.Context, actor model.Actor, studentID int64, f report.Filters) (png []byte, xlsx []byte, err error) {
	d, err := s.StudentDynamics(ctx, actor, studentID, f)
	if err != nil {
		return nil, nil, err
	}
	if png, err = render.StudentDynamicsChart(d).PNG(); err != nil {
		return nil, nil, fmt.Errorf("render dynamics chart: %w", err)
	}
	if xlsx, err = render.Workbook(report.DynamicsTables(d)); err != nil {
		return nil, nil, fmt.Errorf("render dynamics workbook: %w", err)
	}
	return png, xlsx, nil
}
