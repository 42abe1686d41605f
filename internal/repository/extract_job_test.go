package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/contract-tracker/constants"
	"github.com/joseph-ayodele/contract-tracker/internal/common"
	"github.com/joseph-ayodele/contract-tracker/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := "sqlite://" + filepath.Join(t.TempDir(), "jobs.db")
	db, err := Open(context.Background(), Config{DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func newTestRepo(t *testing.T) (*extractJobRepo, *time.Time) {
	t.Helper()
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := NewExtractJobRepository(openTestDB(t), nil).(*extractJobRepo)
	repo.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return repo, &clock
}

func strPtr(s string) *string { return &s }

func TestOpen_RejectsUnknownScheme(t *testing.T) {
	_, err := Open(context.Background(), Config{DSN: "mysql://localhost/db"}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Migrate(context.Background()))
	require.NoError(t, db.HealthCheck(context.Background(), time.Second))
}

func TestExtractJob_SuccessLifecycle(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	job, err := repo.Start(ctx, "용역계약서.pdf", constants.FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusRunning, job.Status)

	require.NoError(t, repo.AttachArchive(ctx, job.ID, "contracts/2024/03/01/x.pdf", "http://minio/x"))

	days := 184
	schedule := entity.ContractSchedule{
		ContractName:      strPtr("차세대 시스템 구축"),
		ContractStartDate: strPtr("2024-03-01"),
		TotalDurationDays: &days,
		Schedules: []entity.ScheduleItem{
			{Phase: "1단계 설계", ScheduleType: constants.ScheduleDesign, EndDate: strPtr("2024-04-30")},
		},
	}
	tasks := []entity.TaskItem{
		{TaskID: 1, TaskName: "요구사항 분석", Phase: "1단계 설계", Priority: constants.PriorityHigh, Status: constants.TaskPending},
	}
	require.NoError(t, repo.FinishSuccess(ctx, job.ID, SuccessDetails{
		UsedImages: true,
		ImageCount: 3,
		ModelName:  "gemini-2.0-flash",
		Schedule:   schedule,
		Tasks:      tasks,
		RawText:    "계약서 원문",
	}))

	got, err := repo.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusSucceeded, got.Status)
	assert.Equal(t, "용역계약서.pdf", got.FileName)
	assert.Equal(t, constants.FormatPDF, got.Format)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 1, 0, time.UTC), got.StartedAt)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, got.FinishedAt.After(got.StartedAt))
	assert.True(t, got.UsedImages)
	assert.Equal(t, 3, got.ImageCount)
	assert.Equal(t, "gemini-2.0-flash", *got.ModelName)
	assert.Equal(t, "contracts/2024/03/01/x.pdf", *got.ArchiveKey)
	require.NotNil(t, got.Schedule)
	assert.Equal(t, schedule, *got.Schedule)
	assert.Equal(t, tasks, got.Tasks)
	assert.Equal(t, "계약서 원문", *got.RawText)
	assert.Nil(t, got.ErrorCode)
}

func TestExtractJob_FailureLifecycle(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	job, err := repo.Start(ctx, "scan.hwp", constants.FormatHWP)
	require.NoError(t, err)
	require.NoError(t, repo.FinishFailure(ctx, job.ID, "CORRUPT_DOCUMENT", "손상된 문서입니다"))

	got, err := repo.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusFailed, got.Status)
	assert.Equal(t, "CORRUPT_DOCUMENT", *got.ErrorCode)
	assert.Equal(t, "손상된 문서입니다", *got.ErrorMessage)
	assert.Nil(t, got.Schedule)
	assert.Nil(t, got.RawText)
	assert.Nil(t, got.ArchiveKey)
}

func TestExtractJob_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = repo.FinishFailure(ctx, uuid.New(), "X", "y")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestExtractJob_ListNewestFirst(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	var ids []uuid.UUID
	for _, name := range []string{"a.pdf", "b.docx", "c.png"} {
		format, _ := constants.FormatForExt(filepath.Ext(name))
		job, err := repo.Start(ctx, name, format)
		require.NoError(t, err)
		ids = append(ids, job.ID)
	}

	jobs, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, ids[2], jobs[0].ID)
	assert.Equal(t, ids[1], jobs[1].ID)
	assert.Equal(t, constants.FormatImage, jobs[0].Format)
}
