package async

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/contract-tracker/internal/entity"
)

// ErrClosed is returned by Enqueue once Shutdown has started.
var ErrClosed = errors.New("queue is shutting down")

// Job is one contract file waiting to be processed.
type Job struct {
	Path        string
	SubmittedAt time.Time
	RequestID   string
}

// Outcome is what a worker reports after processing a Job.
type Outcome struct {
	Job    Job
	Result entity.ExtractionResult
	Err    error
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
