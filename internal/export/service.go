package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/contract-tracker/constants"
	"github.com/joseph-ayodele/contract-tracker/internal/common"
	"github.com/joseph-ayodele/contract-tracker/internal/entity"
	"github.com/joseph-ayodele/contract-tracker/internal/repository"
)

const (
	SheetContract = "계약정보"
	SheetSchedule = "추진일정"
	SheetTasks    = "업무목록"
)

// Service produces XLSX bytes for finished extraction jobs.
type Service struct {
	jobs   repository.ExtractJobRepository
	logger *slog.Logger
}

func NewService(jobs repository.ExtractJobRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobs: jobs, logger: logger}
}

// ExportJobXLSX renders the schedule stored on a succeeded job.
func (s *Service) ExportJobXLSX(ctx context.Context, jobID uuid.UUID) ([]byte, error) {
	start := time.Now()
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != constants.JobStatusSucceeded || job.Schedule == nil {
		return nil, common.NewAppError("NOT_FOUND", "추출이 완료된 작업이 아닙니다", common.ErrNotFound)
	}

	buf, err := ScheduleWorkbook(*job.Schedule, job.Tasks)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok",
		"job_id", jobID.String(),
		"schedules", len(job.Schedule.Schedules),
		"tasks", len(job.Tasks),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf, nil
}

// ScheduleWorkbook lays out one extraction as three sheets: contract
// summary, timeline and task list. Enum values are written as Korean labels.
func ScheduleWorkbook(schedule entity.ContractSchedule, tasks []entity.TaskItem) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for _, sheet := range []string{SheetContract, SheetSchedule, SheetTasks} {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	idx, _ := f.GetSheetIndex(SheetContract)
	f.SetActiveSheet(idx)

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	summary := [][]any{
		{"계약명", str(schedule.ContractName)},
		{"기업명", str(schedule.CompanyName)},
		{"수급자", str(schedule.Contractor)},
		{"발주처", str(schedule.Client)},
		{"계약일", str(schedule.ContractDate)},
		{"착수일", str(schedule.ContractStartDate)},
		{"완수일", str(schedule.ContractEndDate)},
		{"총 사업 기간 (일)", days(schedule.TotalDurationDays)},
		{"계약 금액", str(schedule.ContractAmount)},
		{"지급 방식", str(schedule.PaymentMethod)},
		{"입금예정일", str(schedule.PaymentDueDate)},
		{"주요 마일스톤", strings.Join(schedule.Milestones, "\n")},
	}
	for i, row := range summary {
		writeRow(f, SheetContract, i+1, row)
	}
	_ = f.SetCellStyle(SheetContract, "A1", fmt.Sprintf("A%d", len(summary)), bold)
	_ = f.SetColWidth(SheetContract, "A", "A", 18)
	_ = f.SetColWidth(SheetContract, "B", "B", 60)

	writeRow(f, SheetSchedule, 1, []any{"단계", "유형", "시작일", "종료일", "설명", "산출물"})
	for i, it := range schedule.Schedules {
		writeRow(f, SheetSchedule, i+2, []any{
			it.Phase,
			it.ScheduleType.Label(),
			str(it.StartDate),
			str(it.EndDate),
			str(it.Description),
			strings.Join(it.Deliverables, ", "),
		})
	}
	_ = f.SetCellStyle(SheetSchedule, "A1", "F1", bold)
	_ = f.SetColWidth(SheetSchedule, "A", "A", 24)
	_ = f.SetColWidth(SheetSchedule, "C", "D", 14)
	_ = f.SetColWidth(SheetSchedule, "E", "F", 40)

	writeRow(f, SheetTasks, 1, []any{"번호", "업무명", "단계", "마감일", "우선순위", "상태"})
	for i, t := range tasks {
		writeRow(f, SheetTasks, i+2, []any{
			t.TaskID,
			t.TaskName,
			t.Phase,
			str(t.DueDate),
			t.Priority.Label(),
			t.Status.Label(),
		})
	}
	_ = f.SetCellStyle(SheetTasks, "A1", "F1", bold)
	_ = f.SetColWidth(SheetTasks, "B", "B", 36)
	_ = f.SetColWidth(SheetTasks, "C", "C", 24)
	_ = f.SetColWidth(SheetTasks, "D", "F", 12)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func days(d *int) any {
	if d == nil {
		return ""
	}
	return *d
}
