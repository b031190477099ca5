package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/best-shot/backend/internal/admin"
	"github.com/best-shot/backend/internal/models"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonMode bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show participant progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.adminService(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := svc.Participants(cmd.Context())
			if err != nil {
				return err
			}
			if jsonMode {
				return writeJSON(cmd, rows)
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No participants")
				return nil
			}
			fmt.Fprintln(out, renderParticipants(rows))
			fmt.Fprintln(out, summarize(rows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Output as JSON")
	return cmd
}

func renderParticipants(rows []admin.ParticipantRow) string {
	body := make([][]string, 0, len(rows))
	for _, r := range rows {
		completed := "-"
		if r.CompletedAt != nil {
			completed = r.CompletedAt.Local().Format(time.DateTime)
		}
		body = append(body, []string{
			r.DisplayName,
			string(r.Status),
			fmt.Sprintf("%d/%d", r.SelectedCount, models.MaxSelections),
			completed,
			r.Code,
			r.VoteURL,
		})
	}
	return renderTable(
		[]string{"Name", "Status", "Selected", "Completed at", "Code", "Link"},
		body,
		[]columnAlignment{alignLeft, alignLeft, alignRight},
	)
}

func summarize(rows []admin.ParticipantRow) string {
	done := 0
	for _, r := range rows {
		if r.IsCompleted {
			done++
		}
	}
	return strconv.Itoa(done) + " of " + strconv.Itoa(len(rows)) + " participants completed"
}
