package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/contract-tracker/internal/app"
	"github.com/joseph-ayodele/contract-tracker/internal/async"
	"github.com/joseph-ayodele/contract-tracker/internal/common"
	"github.com/joseph-ayodele/contract-tracker/internal/ingest"
)

type batchFlags struct {
	workers       int
	timeout       time.Duration
	includeHidden bool
}

func newBatchCommand(g *globalFlags) *cobra.Command {
	f := &batchFlags{}
	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Extract every supported contract under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.build(cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()
			return runBatch(cmd.Context(), a, args[0], f, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&f.workers, "workers", 0, "parallel workers (defaults to upload.batch_workers)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 5*time.Minute, "per-file processing timeout")
	cmd.Flags().BoolVar(&f.includeHidden, "include-hidden", false, "also process hidden files and directories")
	return cmd
}

type collector struct {
	mu       sync.Mutex
	outcomes []async.Outcome
}

func (c *collector) add(o async.Outcome) {
	c.mu.Lock()
	c.outcomes = append(c.outcomes, o)
	c.mu.Unlock()
}

func newQueue(a *app.App, workers int, timeout time.Duration, onResult func(async.Outcome)) *async.ProcessorQueue {
	if workers <= 0 {
		workers = a.Config.Upload.BatchWorkers
	}
	return async.NewProcessorQueue(a.Processor, a.Logger,
		async.WithWorkers(workers),
		async.WithProcessTimeout(timeout),
		async.WithOnResult(onResult),
	)
}

func runBatch(ctx context.Context, a *app.App, root string, f *batchFlags, out io.Writer) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	col := &collector{}
	queue := newQueue(a, f.workers, f.timeout, col.add)
	ing := ingest.NewFSIngestor(queue, a.Logger)

	results, stats, walkErr := ing.IngestDirectory(ctx, root, !f.includeHidden)
	queue.Shutdown(context.WithoutCancel(ctx))
	if walkErr != nil {
		return walkErr
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSTATUS\tSCHEDULES\tTASKS\tMESSAGE")
	for _, r := range results {
		switch {
		case r.Err != "":
			fmt.Fprintf(tw, "%s\trejected\t-\t-\t%s\n", rel(root, r.SourcePath), r.Err)
		case r.Deduplicated:
			fmt.Fprintf(tw, "%s\tduplicate\t-\t-\t\n", rel(root, r.SourcePath))
		}
	}

	sort.Slice(col.outcomes, func(i, j int) bool { return col.outcomes[i].Job.Path < col.outcomes[j].Job.Path })
	failed := 0
	for _, o := range col.outcomes {
		if o.Err != nil {
			failed++
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t%s\n", rel(root, o.Job.Path), common.ErrorCode(o.Err), o.Result.Message)
			continue
		}
		schedules := 0
		if o.Result.ContractSchedule != nil {
			schedules = len(o.Result.ContractSchedule.Schedules)
		}
		fmt.Fprintf(tw, "%s\tok\t%d\t%d\t%s\n", rel(root, o.Job.Path), schedules, len(o.Result.TaskList), o.Result.Message)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nscanned=%d matched=%d queued=%d duplicates=%d rejected=%d failed=%d\n",
		stats.Scanned, stats.Matched, len(col.outcomes), stats.Deduplicated, stats.Failed, failed)
	if failed > 0 || stats.Failed > 0 {
		return fmt.Errorf("%d of %d files did not produce a schedule", failed+int(stats.Failed), stats.Matched)
	}
	return nil
}

func rel(root, path string) string {
	if r, err := filepath.Rel(root, path); err == nil {
		return r
	}
	return path
}
