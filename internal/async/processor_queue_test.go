package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/contract-tracker/internal/common"
	"github.com/joseph-ayodele/contract-tracker/internal/entity"
)

type fakeProcessor struct {
	calls   atomic.Int32
	block   chan struct{}
	failFor string
}

func (f *fakeProcessor) ProcessFile(ctx context.Context, path string) (entity.ExtractionResult, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return entity.FailedResult("timeout"), ctx.Err()
		}
	}
	if path == f.failFor {
		return entity.FailedResult("bad"), errors.New("boom")
	}
	return entity.ExtractionResult{Success: true, Message: path}, nil
}

func TestProcessorQueue_ProcessesAllJobs(t *testing.T) {
	proc := &fakeProcessor{failFor: "b.pdf"}
	var mu sync.Mutex
	outcomes := map[string]Outcome{}
	q := NewProcessorQueue(proc, nil, WithWorkers(3), WithOnResult(func(o Outcome) {
		mu.Lock()
		outcomes[o.Job.Path] = o
		mu.Unlock()
	}))

	for _, p := range []string{"a.pdf", "b.pdf", "c.hwp", "d.png"} {
		require.NoError(t, q.Enqueue(context.Background(), Job{Path: p}))
	}
	q.Shutdown(context.Background())

	assert.EqualValues(t, 4, proc.calls.Load())
	require.Len(t, outcomes, 4)
	assert.Error(t, outcomes["b.pdf"].Err)
	assert.True(t, outcomes["c.hwp"].Result.Success)
	assert.False(t, outcomes["a.pdf"].Job.SubmittedAt.IsZero())
}

func TestProcessorQueue_EnqueueAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(&fakeProcessor{}, nil)
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	err := q.Enqueue(context.Background(), Job{Path: "late.pdf"})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestProcessorQueue_BackpressureHonoursContext(t *testing.T) {
	proc := &fakeProcessor{block: make(chan struct{})}
	q := NewProcessorQueue(proc, nil, WithWorkers(1), WithQueueSize(1))

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "1.pdf"}))
	require.Eventually(t, func() bool { return proc.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "2.pdf"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Enqueue(ctx, Job{Path: "3.pdf"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(proc.block)
	q.Shutdown(context.Background())
	assert.EqualValues(t, 2, proc.calls.Load())
}

func TestProcessorQueue_TimeoutAndRequestID(t *testing.T) {
	var seen atomic.Value
	proc := processorFunc(func(ctx context.Context, path string) (entity.ExtractionResult, error) {
		seen.Store(common.RequestIDFromContext(ctx))
		<-ctx.Done()
		return entity.FailedResult("timeout"), ctx.Err()
	})
	done := make(chan Outcome, 1)
	q := NewProcessorQueue(proc, nil, WithProcessTimeout(10*time.Millisecond), WithOnResult(func(o Outcome) { done <- o }))

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "slow.pdf", RequestID: "req-1"}))
	o := <-done
	q.Shutdown(context.Background())

	assert.ErrorIs(t, o.Err, context.DeadlineExceeded)
	assert.Equal(t, "req-1", seen.Load())
}

type processorFunc func(ctx context.Context, path string) (entity.ExtractionResult, error)

func (f processorFunc) ProcessFile(ctx context.Context, path string) (entity.ExtractionResult, error) {
	return f(ctx, path)
}
