package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edusuite/presence-api/internal/dto"
	"github.com/edusuite/presence-api/internal/models"
	"github.com/edusuite/presence-api/internal/repository"
	appErrors "github.com/edusuite/presence-api/pkg/errors"
	"github.com/edusuite/presence-api/pkg/jobs"
)

type reportJobStoreStub struct {
	jobs    map[string]*models.ReportJob
	updates []repository.UpdateReportJobParams
}

func newReportJobStoreStub() *reportJobStoreStub {
	return &reportJobStoreStub{jobs: map[string]*models.ReportJob{}}
}

func (s *reportJobStoreStub) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = "job-1"
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *reportJobStoreStub) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	job, ok := s.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return job, nil
}

func (s *reportJobStoreStub) Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error {
	s.updates = append(s.updates, params)
	job, ok := s.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (s *reportJobStoreStub) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	var out []models.ReportJob
	for _, job := range s.jobs {
		if job.Status == models.ReportStatusQueued {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (s *reportJobStoreStub) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	return nil, nil
}

type queueRecorder struct {
	enqueued []jobs.Job
	err      error
}

func (q *queueRecorder) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, job)
	return nil
}

func newReportServiceForTest(t *testing.T, store *reportJobStoreStub, queue *queueRecorder) *ReportService {
	t.Helper()
	exporter, _ := newExportServiceForTest(t)
	return NewReportService(store, queue, exporter, zap.NewNop(), ReportServiceConfig{ResultTTL: time.Hour})
}

func TestCreateJobQueuesAbsenceReport(t *testing.T) {
	store := newReportJobStoreStub()
	queue := &queueRecorder{}
	svc := newReportServiceForTest(t, store, queue)

	resp, err := svc.CreateJob(context.Background(), dto.ReportRequest{
		Type:   models.ReportTypeAbsences,
		Format: dto.ExportFormatCSV,
		From:   "2026-01-01",
		To:     "2026-01-31",
	}, "admin-1", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusQueued, resp.Status)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, resp.ID, queue.enqueued[0].ID)
}

func TestCreateJobRejectsUnknownType(t *testing.T) {
	svc := newReportServiceForTest(t, newReportJobStoreStub(), &queueRecorder{})

	_, err := svc.CreateJob(context.Background(), dto.ReportRequest{
		Type:   "grades",
		Format: dto.ExportFormatCSV,
		From:   "2026-01-01",
		To:     "2026-01-31",
	}, "admin-1", models.RoleAdmin)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateJobPinsTeacherToOwnHours(t *testing.T) {
	store := newReportJobStoreStub()
	svc := newReportServiceForTest(t, store, &queueRecorder{})

	resp, err := svc.CreateJob(context.Background(), dto.ReportRequest{
		Type:      models.ReportTypeTeacherHours,
		Format:    dto.ExportFormatCSV,
		From:      "2026-03-01",
		TeacherID: "someone-else",
	}, "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", store.jobs[resp.ID].Params.TeacherID)
}

func TestGetStatusEnforcesTeacherOwnership(t *testing.T) {
	store := newReportJobStoreStub()
	store.jobs["job-1"] = &models.ReportJob{ID: "job-1", CreatedBy: "teacher-1", Status: models.ReportStatusQueued}
	svc := newReportServiceForTest(t, store, &queueRecorder{})

	_, err := svc.GetStatus(context.Background(), "job-1", "teacher-2", models.RoleTeacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	status, err := svc.GetStatus(context.Background(), "job-1", "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusQueued, status.Status)
}

func TestReportWorkerFinishesJob(t *testing.T) {
	store := newReportJobStoreStub()
	store.jobs["job-1"] = &models.ReportJob{
		ID:     "job-1",
		Type:   models.ReportTypeAbsences,
		Params: models.ReportJobParams{From: "2026-01-01", To: "2026-01-31", Format: "csv"},
		Status: models.ReportStatusQueued,
	}
	exporter, _ := newExportServiceForTest(t)
	worker := NewReportWorker(store, exporter, 3, zap.NewNop())

	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1"}))
	job := store.jobs["job-1"]
	assert.Equal(t, models.ReportStatusFinished, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.ResultURL)
	assert.Contains(t, *job.ResultURL, "/export/")
}

type failingExportGenerator struct{}

func (failingExportGenerator) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	return nil, fmt.Errorf("render absence report: disk full")
}

func TestReportWorkerRequeuesOnFailureBelowRetryLimit(t *testing.T) {
	store := newReportJobStoreStub()
	store.jobs["job-1"] = &models.ReportJob{
		ID:     "job-1",
		Type:   models.ReportTypeAbsences,
		Params: models.ReportJobParams{From: "2026-01-01", To: "2026-01-31", Format: "csv"},
		Status: models.ReportStatusQueued,
	}
	worker := NewReportWorker(store, failingExportGenerator{}, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 0})
	require.Error(t, err)
	assert.Equal(t, models.ReportStatusQueued, store.jobs["job-1"].Status)
	assert.Equal(t, 0, store.jobs["job-1"].Progress)
	require.NotNil(t, store.jobs["job-1"].ErrorMessage)

	err = worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 3})
	require.Error(t, err)
	assert.Equal(t, models.ReportStatusFailed, store.jobs["job-1"].Status)
	assert.Equal(t, 100, store.jobs["job-1"].Progress)
	require.NotNil(t, store.jobs["job-1"].FinishedAt)
}
