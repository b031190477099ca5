package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/best-shot/backend/pkg/queue"
)

type queueReport struct {
	Pending int64       `json:"pending"`
	Dead    []queue.Job `json:"dead"`
}

func newQueueCommand(ctx *commandContext) *cobra.Command {
	var jsonMode bool
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show pending and dead-lettered export jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			rdb, err := ctx.openRedis(cmd.Context())
			if err != nil {
				return err
			}
			if rdb == nil {
				return errors.New("the export queue lives in Redis; enable REDIS_ENABLED")
			}
			q := queue.NewQueue(rdb.Client, ctx.logger)
			var report queueReport
			if report.Pending, err = q.Len(cmd.Context()); err != nil {
				return fmt.Errorf("read queue length: %w", err)
			}
			if report.Dead, err = q.Dead(cmd.Context()); err != nil {
				return fmt.Errorf("read dead jobs: %w", err)
			}
			if jsonMode {
				return writeJSON(cmd, report)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d pending, %d dead\n", report.Pending, len(report.Dead))
			if len(report.Dead) > 0 {
				fmt.Fprintln(out, renderDeadJobs(report.Dead))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Output as JSON")
	return cmd
}

func renderDeadJobs(jobs []queue.Job) string {
	body := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		export := "-"
		if p, err := j.Export(); err == nil {
			export = p.JobID.String()
		}
		body = append(body, []string{
			j.ID,
			string(j.Kind),
			export,
			strconv.Itoa(j.Attempt),
			j.EnqueuedAt.Local().Format(time.DateTime),
		})
	}
	return renderTable(
		[]string{"Job", "Kind", "Export", "Attempts", "Enqueued at"},
		body,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
	)
}
