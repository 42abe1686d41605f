package entity

import (
	"github.com/joseph-ayodele/contract-tracker/constants"
)

// ContractSchedule is the structured schedule extracted from one contract.
// Descriptive fields are nil when the document does not state them.
type ContractSchedule struct {
	ContractName      *string        `json:"contract_name"`
	CompanyName       *string        `json:"company_name"`
	Contractor        *string        `json:"contractor"`
	Client            *string        `json:"client"`
	ContractDate      *string        `json:"contract_date"`
	ContractStartDate *string        `json:"contract_start_date"`
	ContractEndDate   *string        `json:"contract_end_date"`
	TotalDurationDays *int           `json:"total_duration_days"`
	ContractAmount    *string        `json:"contract_amount"`
	PaymentMethod     *string        `json:"payment_method"`
	PaymentDueDate    *string        `json:"payment_due_date"`
	Schedules         []ScheduleItem `json:"schedules"`
	Milestones        []string       `json:"milestones,omitempty"`
}

// ScheduleItem is one phase of the contract timeline, kept in extraction order.
type ScheduleItem struct {
	Phase        string                 `json:"phase"`
	ScheduleType constants.ScheduleType `json:"schedule_type"`
	StartDate    *string                `json:"start_date"`
	EndDate      *string                `json:"end_date"`
	Description  *string                `json:"description"`
	Deliverables []string               `json:"deliverables,omitempty"`
}

// TaskItem is an actionable unit derived from the schedule. TaskID is the
// extraction-time sequence number, not a persisted identifier.
type TaskItem struct {
	TaskID   int                  `json:"task_id"`
	TaskName string               `json:"task_name"`
	Phase    string               `json:"phase"`
	DueDate  *string              `json:"due_date"`
	Priority constants.Priority   `json:"priority"`
	Status   constants.TaskStatus `json:"status"`
}
