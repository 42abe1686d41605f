package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/joseph-ayodele/contract-tracker/constants"
	"github.com/joseph-ayodele/contract-tracker/internal/entity"
)

// response mirrors the JSON contract; enums arrive as free strings and are
// canonicalised after schema validation.
type response struct {
	ContractSchedule *scheduleWire `json:"contract_schedule"`
	TaskList         []taskWire    `json:"task_list"`
	RawText          *string       `json:"raw_text"`
}

type scheduleWire struct {
	entity.ContractSchedule
	TotalDurationDays *wholeNumber       `json:"total_duration_days"`
	Schedules         []scheduleItemWire `json:"schedules"`
}

type scheduleItemWire struct {
	Phase        string   `json:"phase"`
	ScheduleType string   `json:"schedule_type"`
	StartDate    *string  `json:"start_date"`
	EndDate      *string  `json:"end_date"`
	Description  *string  `json:"description"`
	Deliverables []string `json:"deliverables"`
}

type taskWire struct {
	TaskID   wholeNumber `json:"task_id"`
	TaskName string      `json:"task_name"`
	Phase    string      `json:"phase"`
	DueDate  *string     `json:"due_date"`
	Priority *string     `json:"priority"`
	Status   *string     `json:"status"`
}

// Reconcile validates a model response and converts it to domain values.
// Nothing partial is returned: any violation fails the whole response.
func Reconcile(content string) (entity.ContractSchedule, []entity.TaskItem, string, error) {
	raw := []byte(strings.TrimSpace(content))
	if !json.Valid(raw) {
		return entity.ContractSchedule{}, nil, "", fmt.Errorf("response is not valid JSON")
	}
	if err := ValidateScheduleJSON(raw); err != nil {
		return entity.ContractSchedule{}, nil, "", err
	}

	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return entity.ContractSchedule{}, nil, "", fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.ContractSchedule == nil {
		return entity.ContractSchedule{}, nil, "", fmt.Errorf("contract_schedule is null")
	}

	schedule := resp.ContractSchedule.ContractSchedule
	if d := resp.ContractSchedule.TotalDurationDays; d != nil {
		days := int(*d)
		schedule.TotalDurationDays = &days
	}
	schedule.Schedules = make([]entity.ScheduleItem, 0, len(resp.ContractSchedule.Schedules))
	for _, it := range resp.ContractSchedule.Schedules {
		st, _ := constants.CanonicalizeScheduleType(it.ScheduleType)
		schedule.Schedules = append(schedule.Schedules, entity.ScheduleItem{
			Phase:        it.Phase,
			ScheduleType: st,
			StartDate:    it.StartDate,
			EndDate:      it.EndDate,
			Description:  it.Description,
			Deliverables: it.Deliverables,
		})
	}

	tasks := make([]entity.TaskItem, 0, len(resp.TaskList))
	for _, t := range resp.TaskList {
		priority, ok := constants.CanonicalizePriority(deref(t.Priority))
		if !ok {
			return entity.ContractSchedule{}, nil, "", fmt.Errorf("task %d: unknown priority %q", t.TaskID, deref(t.Priority))
		}
		status, ok := constants.CanonicalizeTaskStatus(deref(t.Status))
		if !ok {
			return entity.ContractSchedule{}, nil, "", fmt.Errorf("task %d: unknown status %q", t.TaskID, deref(t.Status))
		}
		tasks = append(tasks, entity.TaskItem{
			TaskID:   int(t.TaskID),
			TaskName: t.TaskName,
			Phase:    t.Phase,
			DueDate:  t.DueDate,
			Priority: priority,
			Status:   status,
		})
	}

	return schedule, tasks, deref(resp.RawText), nil
}

// wholeNumber accepts any JSON number with no fractional part, matching the
// schema's "integer" (184 and 184.0 are both valid).
type wholeNumber int

func (n *wholeNumber) UnmarshalJSON(b []byte) error {
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	if i, err := num.Int64(); err == nil {
		*n = wholeNumber(i)
		return nil
	}
	f, err := num.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return fmt.Errorf("%s is not a whole number", num)
	}
	*n = wholeNumber(f)
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
