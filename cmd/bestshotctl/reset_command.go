package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newResetCommand(ctx *commandContext) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset <participant-id>",
		Short: "Delete a participant's votes so they can vote again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid participant id %q", args[0])
			}
			if !yes {
				return fmt.Errorf("reset deletes all votes of %s; re-run with --yes to confirm", id)
			}
			svc, err := ctx.adminService(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.Reset(cmd.Context(), id, true); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Participant %s reset\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the reset")
	return cmd
}
