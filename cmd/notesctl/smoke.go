package main

import (
	"github.com/spf13/cobra"

	"github.com/okian/trapperkeeper/internal/smoke"
)

func newSmokeCmd(g *globals) *cobra.Command {
	cfg := smoke.Config{}

	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Run the concurrent lifecycle check against the server",
		Long: `smoke creates, replays, reads, updates and deletes notes from many
goroutines and checks every status code and message the server returns.
It leaves no notes behind and exits non-zero when any check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.Verbose = g.verbose
			stats, runErr := smoke.Run(cmd.Context(), g.client(), cfg)
			if err := renderValue(cmd.OutOrStdout(), stats, g.output, g.query); err != nil {
				return err
			}
			return runErr
		},
	}

	f := cmd.Flags()
	f.IntVar(&cfg.Notes, "notes", smoke.DefaultNotes, "Number of notes to drive through the lifecycle")
	f.IntVar(&cfg.Workers, "workers", smoke.DefaultWorkers, "Number of concurrent workers")
	return cmd
}
