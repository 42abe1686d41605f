package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/contract-tracker/internal/app"
	"github.com/joseph-ayodele/contract-tracker/internal/async"
	"github.com/joseph-ayodele/contract-tracker/internal/common"
	"github.com/joseph-ayodele/contract-tracker/internal/ingest"
)

type watchFlags struct {
	workers     int
	timeout     time.Duration
	debounce    time.Duration
	initialScan bool
}

func newWatchCommand(g *globalFlags) *cobra.Command {
	f := &watchFlags{}
	cmd := &cobra.Command{
		Use:   "watch <dir>...",
		Short: "Process contracts as they are dropped into one or more directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.build(cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()
			return runWatch(cmd, a, args, f)
		},
	}
	cmd.Flags().IntVar(&f.workers, "workers", 0, "parallel workers (defaults to upload.batch_workers)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 5*time.Minute, "per-file processing timeout")
	cmd.Flags().DurationVar(&f.debounce, "debounce", 500*time.Millisecond, "wait this long after the last write before processing")
	cmd.Flags().BoolVar(&f.initialScan, "initial-scan", false, "also process files already present")
	return cmd
}

func runWatch(cmd *cobra.Command, a *app.App, roots []string, f *watchFlags) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	queue := newQueue(a, f.workers, f.timeout, func(o async.Outcome) {
		if o.Err != nil {
			fmt.Fprintf(out, "FAIL %s %s %s\n", o.Job.Path, common.ErrorCode(o.Err), o.Result.Message)
			return
		}
		fmt.Fprintf(out, "OK   %s job=%s\n", o.Job.Path, o.Result.JobID)
	})
	defer queue.Shutdown(context.WithoutCancel(ctx))
	ing := ingest.NewFSIngestor(queue, a.Logger)

	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       roots,
		InitialScan: f.initialScan,
		SkipHidden:  true,
		Debounce:    f.debounce,
	}, a.Logger)
	if err != nil {
		return err
	}

	for {
		select {
		case path, ok := <-events:
			if !ok {
				return nil
			}
			if _, err := ing.IngestPath(ctx, path); err != nil {
				a.Logger.Warn("watch.ingest_failed", "path", path, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			a.Logger.Warn("watch.error", "error", err)
		}
	}
}
