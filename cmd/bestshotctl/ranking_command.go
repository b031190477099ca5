package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/best-shot/backend/internal/bootstrap"
	"github.com/best-shot/backend/internal/export"
	"github.com/best-shot/backend/internal/models"
)

func newRankingCommand(ctx *commandContext) *cobra.Command {
	var (
		top      int
		jsonMode bool
	)
	cmd := &cobra.Command{
		Use:   "ranking",
		Short: "Show photos ranked by vote count",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			svc := bootstrap.ExportService(ctx.config.Export, st, nil, ctx.logger)
			ranked, err := svc.Ranking(cmd.Context())
			if err != nil {
				return err
			}
			if top > 0 {
				ranked = export.Top(ranked, top)
			}
			if jsonMode {
				return writeJSON(cmd, ranked)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRanking(ranked))
			return nil
		},
	}
	cmd.Flags().IntVarP(&top, "top", "n", 0, "Only show the first n photos")
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Output as JSON")
	return cmd
}

func renderRanking(ranked []models.RankedPhoto) string {
	rows := make([][]string, 0, len(ranked))
	for _, p := range ranked {
		rows = append(rows, []string{
			strconv.Itoa(p.Rank),
			"#" + strconv.FormatInt(p.ID, 10),
			strconv.Itoa(p.Count),
			p.URL,
		})
	}
	return renderTable(
		[]string{"Rank", "Photo", "Votes", "URL"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight},
	)
}
