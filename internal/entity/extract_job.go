package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contract-tracker/constants"
)

// ExtractJob represents one extraction run for data transfer between layers.
type ExtractJob struct {
	ID           uuid.UUID           `json:"id"`
	FileName     string              `json:"file_name"`
	Format       constants.Format    `json:"format"`
	ArchiveKey   *string             `json:"archive_key,omitempty"`
	ArchiveURL   *string             `json:"archive_url,omitempty"`
	StartedAt    time.Time           `json:"started_at"`
	FinishedAt   *time.Time          `json:"finished_at,omitempty"`
	Status       constants.JobStatus `json:"status"`
	ErrorCode    *string             `json:"error_code,omitempty"`
	ErrorMessage *string             `json:"error_message,omitempty"`
	UsedImages   bool                `json:"used_images"`
	ImageCount   int                 `json:"image_count"`
	ModelName    *string             `json:"model_name,omitempty"`
	Schedule     *ContractSchedule   `json:"contract_schedule,omitempty"`
	Tasks        []TaskItem          `json:"task_list,omitempty"`
	RawText      *string             `json:"raw_text,omitempty"`
}
