package entity

import "unicode/utf8"

// RawTextPreviewRunes is how much of the raw text the result preview carries.
const RawTextPreviewRunes = 500

// ExtractionResult is what an upload caller gets back.
type ExtractionResult struct {
	Success          bool              `json:"success"`
	Message          string            `json:"message"`
	JobID            string            `json:"job_id,omitempty"`
	ContractSchedule *ContractSchedule `json:"contract_schedule"`
	TaskList         []TaskItem        `json:"task_list"`
	RawTextPreview   *string           `json:"raw_text_preview"`
	RawText          *string           `json:"raw_text"`
}

// NewExtractionResult assembles a successful result; an empty raw text
// leaves both raw text fields nil.
func NewExtractionResult(schedule ContractSchedule, tasks []TaskItem, rawText string) ExtractionResult {
	if tasks == nil {
		tasks = []TaskItem{}
	}
	res := ExtractionResult{
		Success:          true,
		Message:          "일정 추출 완료",
		ContractSchedule: &schedule,
		TaskList:         tasks,
	}
	if rawText != "" {
		preview := Preview(rawText, RawTextPreviewRunes)
		res.RawText = &rawText
		res.RawTextPreview = &preview
	}
	return res
}

// FailedResult carries only a message.
func FailedResult(message string) ExtractionResult {
	return ExtractionResult{Success: false, Message: message}
}

// Preview returns the first n runes of s.
func Preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
