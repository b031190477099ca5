package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/best-shot/backend/internal/bootstrap"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the top photos PDF summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			if out == "" {
				out = ctx.config.Export.Filename
			}
			svc := bootstrap.ExportService(ctx.config.Export, st, nil, ctx.logger)
			res, err := svc.Build(cmd.Context())
			if err != nil {
				return err
			}
			if dir := filepath.Dir(out); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create output directory: %w", err)
				}
			}
			if err := os.WriteFile(out, res.PDF, 0o644); err != nil {
				return fmt.Errorf("write pdf: %w", err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Wrote %s (%d pages, %d bytes)\n", out, res.Layout.TotalPages(), len(res.PDF))
			if len(res.MissingImages) > 0 {
				fmt.Fprintf(w, "Images unavailable for photos %v\n", res.MissingImages)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (defaults to EXPORT_FILENAME)")
	return cmd
}
