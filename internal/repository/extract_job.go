package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/contract-tracker/constants"
	"github.com/joseph-ayodele/contract-tracker/internal/common"
	"github.com/joseph-ayodele/contract-tracker/internal/entity"
)

const extractJobTable = "extract_job"

var extractJobColumns = []string{
	"id", "file_name", "format", "archive_key", "archive_url",
	"started_at", "finished_at", "status", "error_code", "error_message",
	"used_images", "image_count", "model_name", "schedule", "tasks", "raw_text",
}

// SuccessDetails is what a finished extraction records.
type SuccessDetails struct {
	UsedImages bool
	ImageCount int
	ModelName  string
	Schedule   entity.ContractSchedule
	Tasks      []entity.TaskItem
	RawText    string
}

type ExtractJobRepository interface {
	Start(ctx context.Context, fileName string, format constants.Format) (*entity.ExtractJob, error)
	AttachArchive(ctx context.Context, jobID uuid.UUID, key, url string) error
	FinishSuccess(ctx context.Context, jobID uuid.UUID, d SuccessDetails) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, code, message string) error
	Get(ctx context.Context, jobID uuid.UUID) (*entity.ExtractJob, error)
	List(ctx context.Context, limit int) ([]*entity.ExtractJob, error)
}

type extractJobRepo struct {
	drv *entsql.Driver
	log *slog.Logger
	now func() time.Time
}

func NewExtractJobRepository(db *DB, log *slog.Logger) ExtractJobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &extractJobRepo{drv: db.Driver, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (r *extractJobRepo) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.drv.Dialect())
}

func (r *extractJobRepo) Start(ctx context.Context, fileName string, format constants.Format) (*entity.ExtractJob, error) {
	job := &entity.ExtractJob{
		ID:        uuid.New(),
		FileName:  fileName,
		Format:    format,
		StartedAt: r.now(),
		Status:    constants.JobStatusRunning,
	}
	query, args := r.builder().Insert(extractJobTable).
		Columns("id", "file_name", "format", "started_at", "status", "used_images", "image_count").
		Values(job.ID.String(), job.FileName, string(job.Format), job.StartedAt, string(job.Status), false, 0).
		Query()
	if _, err := r.drv.ExecContext(ctx, query, args...); err != nil {
		r.log.Error("extract_job start failed", "file_name", fileName, "err", err)
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	r.log.Info("extract_job started", "job_id", job.ID, "file_name", fileName, "format", format)
	return job, nil
}

func (r *extractJobRepo) AttachArchive(ctx context.Context, jobID uuid.UUID, key, url string) error {
	query, args := r.builder().Update(extractJobTable).
		Set("archive_key", key).
		Set("archive_url", url).
		Where(entsql.EQ("id", jobID.String())).
		Query()
	return r.exec(ctx, jobID, query, args)
}

func (r *extractJobRepo) FinishSuccess(ctx context.Context, jobID uuid.UUID, d SuccessDetails) error {
	schedule, err := json.Marshal(d.Schedule)
	if err != nil {
		return fmt.Errorf("marshal schedule: %w", err)
	}
	tasks := d.Tasks
	if tasks == nil {
		tasks = []entity.TaskItem{}
	}
	tasksJSON, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}

	query, args := r.builder().Update(extractJobTable).
		Set("status", string(constants.JobStatusSucceeded)).
		Set("finished_at", r.now()).
		Set("used_images", d.UsedImages).
		Set("image_count", d.ImageCount).
		Set("model_name", nullString(d.ModelName)).
		Set("schedule", string(schedule)).
		Set("tasks", string(tasksJSON)).
		Set("raw_text", nullString(d.RawText)).
		Where(entsql.EQ("id", jobID.String())).
		Query()
	if err := r.exec(ctx, jobID, query, args); err != nil {
		return err
	}
	r.log.Info("extract_job finished", "job_id", jobID, "status", constants.JobStatusSucceeded,
		"schedules", len(d.Schedule.Schedules), "tasks", len(tasks))
	return nil
}

func (r *extractJobRepo) FinishFailure(ctx context.Context, jobID uuid.UUID, code, message string) error {
	query, args := r.builder().Update(extractJobTable).
		Set("status", string(constants.JobStatusFailed)).
		Set("finished_at", r.now()).
		Set("error_code", nullString(code)).
		Set("error_message", nullString(message)).
		Where(entsql.EQ("id", jobID.String())).
		Query()
	if err := r.exec(ctx, jobID, query, args); err != nil {
		return err
	}
	r.log.Info("extract_job finished", "job_id", jobID, "status", constants.JobStatusFailed, "error_code", code)
	return nil
}

func (r *extractJobRepo) exec(ctx context.Context, jobID uuid.UUID, query string, args []any) error {
	res, err := r.drv.ExecContext(ctx, query, args...)
	if err != nil {
		r.log.Error("extract_job update failed", "job_id", jobID, "err", err)
		return fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.NewAppError("NOT_FOUND", "extract job not found", common.ErrNotFound)
	}
	return nil
}

func (r *extractJobRepo) Get(ctx context.Context, jobID uuid.UUID) (*entity.ExtractJob, error) {
	query, args := r.builder().Select(extractJobColumns...).
		From(entsql.Table(extractJobTable)).
		Where(entsql.EQ("id", jobID.String())).
		Query()
	jobs, err := r.query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, common.NewAppError("NOT_FOUND", "extract job not found", common.ErrNotFound)
	}
	return jobs[0], nil
}

// List returns the most recent jobs first.
func (r *extractJobRepo) List(ctx context.Context, limit int) ([]*entity.ExtractJob, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query, args := r.builder().Select(extractJobColumns...).
		From(entsql.Table(extractJobTable)).
		OrderBy(entsql.Desc("started_at")).
		Limit(limit).
		Query()
	return r.query(ctx, query, args)
}

func (r *extractJobRepo) query(ctx context.Context, query string, args []any) ([]*entity.ExtractJob, error) {
	rows, err := r.drv.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.log.Warn("extract_job rows close error", "err", err)
		}
	}()

	var out []*entity.ExtractJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	return out, nil
}

func scanJob(rows *sql.Rows) (*entity.ExtractJob, error) {
	var (
		id, fileName, format, status       string
		archiveKey, archiveURL             sql.NullString
		errorCode, errorMessage, modelName sql.NullString
		schedule, tasks, rawText           sql.NullString
		startedAt, finishedAt              timeValue
		usedImages                         bool
		imageCount                         int
	)
	if err := rows.Scan(&id, &fileName, &format, &archiveKey, &archiveURL,
		&startedAt, &finishedAt, &status, &errorCode, &errorMessage,
		&usedImages, &imageCount, &modelName, &schedule, &tasks, &rawText); err != nil {
		return nil, fmt.Errorf("scan extract_job: %w", err)
	}

	jobID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse job id: %w", err)
	}
	job := &entity.ExtractJob{
		ID:           jobID,
		FileName:     fileName,
		Format:       constants.Format(format),
		ArchiveKey:   ptr(archiveKey),
		ArchiveURL:   ptr(archiveURL),
		StartedAt:    startedAt.t,
		Status:       constants.JobStatus(status),
		ErrorCode:    ptr(errorCode),
		ErrorMessage: ptr(errorMessage),
		UsedImages:   usedImages,
		ImageCount:   imageCount,
		ModelName:    ptr(modelName),
		RawText:      ptr(rawText),
	}
	if finishedAt.valid {
		t := finishedAt.t
		job.FinishedAt = &t
	}
	if schedule.Valid && schedule.String != "" {
		var s entity.ContractSchedule
		if err := json.Unmarshal([]byte(schedule.String), &s); err != nil {
			return nil, fmt.Errorf("decode schedule: %w", err)
		}
		job.Schedule = &s
	}
	if tasks.Valid && tasks.String != "" {
		if err := json.Unmarshal([]byte(tasks.String), &job.Tasks); err != nil {
			return nil, fmt.Errorf("decode tasks: %w", err)
		}
	}
	return job, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func ptr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// timeValue scans timestamps from drivers that hand back either time.Time or
// a formatted string.
type timeValue struct {
	t     time.Time
	valid bool
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999 -0700 MST",
}

func (v *timeValue) Scan(src any) error {
	switch x := src.(type) {
	case nil:
		*v = timeValue{}
		return nil
	case time.Time:
		*v = timeValue{t: x.UTC(), valid: true}
		return nil
	case []byte:
		return v.parse(string(x))
	case string:
		return v.parse(x)
	default:
		return fmt.Errorf("unsupported time value %T", src)
	}
}

func (v *timeValue) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*v = timeValue{t: t.UTC(), valid: true}
			return nil
		}
	}
	return errors.New("unparseable time value " + s)
}
