package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var flags globalFlags

	ctx := newCommandContext(&flags)

	rootCmd := &cobra.Command{
		Use:           "bestshotctl",
		Short:         "Best Shot operator CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.driver, "db-driver", "", "Override DB_DRIVER (postgres or sqlite)")
	rootCmd.PersistentFlags().StringVar(&flags.sqlitePath, "sqlite", "", "Use the SQLite database at this path")
	rootCmd.PersistentFlags().BoolVar(&flags.noRedis, "no-redis", false, "Skip Redis even when REDIS_ENABLED is set")

	rootCmd.AddCommand(newSeedCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newRankingCommand(ctx))
	rootCmd.AddCommand(newExportCommand(ctx))
	rootCmd.AddCommand(newResetCommand(ctx))
	rootCmd.AddCommand(newQueueCommand(ctx))
	rootCmd.AddCommand(newHashPasswordCommand())

	return rootCmd
}
