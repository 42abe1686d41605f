package constants

import (
	"strings"
)

// ScheduleType classifies one phase of a contract timeline.
type ScheduleType string

const (
	ScheduleStart         ScheduleType = "start"
	ScheduleCompletion    ScheduleType = "completion"
	ScheduleDesign        ScheduleType = "design"
	ScheduleDevelopment   ScheduleType = "development"
	ScheduleTest          ScheduleType = "test"
	ScheduleDelivery      ScheduleType = "delivery"
	ScheduleInterimReport ScheduleType = "interim_report"
	ScheduleFinalReport   ScheduleType = "final_report"
	ScheduleInspection    ScheduleType = "inspection"
	ScheduleHandover      ScheduleType = "handover"
	ScheduleOther         ScheduleType = "other"
)

var scheduleLabels = map[ScheduleType]string{
	ScheduleStart:         "착수",
	ScheduleCompletion:    "완료",
	ScheduleDesign:        "설계",
	ScheduleDevelopment:   "개발",
	ScheduleTest:          "테스트",
	ScheduleDelivery:      "납품",
	ScheduleInterimReport: "중간보고",
	ScheduleFinalReport:   "최종보고",
	ScheduleInspection:    "검수",
	ScheduleHandover:      "인도",
	ScheduleOther:         "기타",
}

var allScheduleTypes = []ScheduleType{
	ScheduleStart,
	ScheduleCompletion,
	ScheduleDesign,
	ScheduleDevelopment,
	ScheduleTest,
	ScheduleDelivery,
	ScheduleInterimReport,
	ScheduleFinalReport,
	ScheduleInspection,
	ScheduleHandover,
	ScheduleOther,
}

// Label returns the Korean display name.
func (s ScheduleType) Label() string {
	if l, ok := scheduleLabels[s]; ok {
		return l
	}
	return scheduleLabels[ScheduleOther]
}

// ScheduleTypeLabels returns the Korean names in declaration order, as the model is asked to answer.
func ScheduleTypeLabels() []string {
	out := make([]string, len(allScheduleTypes))
	for i, s := range allScheduleTypes {
		out[i] = scheduleLabels[s]
	}
	return out
}

// CanonicalizeScheduleType accepts the English value or the Korean label.
// Anything unrecognised is filed under ScheduleOther with ok=false.
func CanonicalizeScheduleType(input string) (ScheduleType, bool) {
	normalized := normalizeEnum(input)
	if normalized == "" {
		return ScheduleOther, false
	}

	synonyms := map[string]ScheduleType{
		"kickoff":    ScheduleStart,
		"착수보고":       ScheduleStart,
		"준공":         ScheduleCompletion,
		"종료":         ScheduleCompletion,
		"분석":         ScheduleDesign,
		"구현":         ScheduleDevelopment,
		"시험":         ScheduleTest,
		"납품검사":       ScheduleInspection,
		"인수":         ScheduleHandover,
		"interim":    ScheduleInterimReport,
		"final":      ScheduleFinalReport,
		"acceptance": ScheduleInspection,
	}
	if s, ok := synonyms[normalized]; ok {
		return s, true
	}

	for _, s := range allScheduleTypes {
		if normalized == string(s) || normalized == scheduleLabels[s] {
			return s, true
		}
	}
	return ScheduleOther, false
}

// Priority of a generated task.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

var priorityLabels = map[Priority]string{
	PriorityUrgent: "긴급",
	PriorityHigh:   "높음",
	PriorityNormal: "보통",
	PriorityLow:    "낮음",
}

var allPriorities = []Priority{PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow}

func (p Priority) Label() string { return priorityLabels[p] }

// CanonicalizePriority maps an English value or Korean label. Empty input yields
// the default (normal) with ok=true; anything else unknown is rejected.
func CanonicalizePriority(input string) (Priority, bool) {
	normalized := normalizeEnum(input)
	if normalized == "" {
		return PriorityNormal, true
	}
	for _, p := range allPriorities {
		if normalized == string(p) || normalized == priorityLabels[p] {
			return p, true
		}
	}
	return "", false
}

// TaskStatus is the lifecycle state of a generated task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
	TaskOnHold     TaskStatus = "on_hold"
)

var taskStatusLabels = map[TaskStatus]string{
	TaskPending:    "대기",
	TaskInProgress: "진행중",
	TaskDone:       "완료",
	TaskOnHold:     "보류",
}

var allTaskStatuses = []TaskStatus{TaskPending, TaskInProgress, TaskDone, TaskOnHold}

func (s TaskStatus) Label() string { return taskStatusLabels[s] }

// CanonicalizeTaskStatus mirrors CanonicalizePriority; empty means pending.
func CanonicalizeTaskStatus(input string) (TaskStatus, bool) {
	normalized := normalizeEnum(input)
	if normalized == "" {
		return TaskPending, true
	}
	if normalized == "진행 중" {
		return TaskInProgress, true
	}
	for _, s := range allTaskStatuses {
		if normalized == string(s) || normalized == taskStatusLabels[s] {
			return s, true
		}
	}
	return "", false
}

func normalizeEnum(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	return strings.ReplaceAll(s, "-", "_")
}
