package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/trapperkeeper/internal/client"
	"github.com/okian/trapperkeeper/pkg/logger"
)

const (
	defaultURL     = "http://localhost:3000"
	defaultTimeout = 30 * time.Second
)

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	url     string
	timeout time.Duration
	output  string
	query   string
	verbose bool
}

func (g *globals) client() *client.Client {
	return client.New(g.url, client.WithTimeout(g.timeout))
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "notesctl",
		Short: "Command-line client for the Trapper Keeper notes API",
		Long: `notesctl reads and edits notes on a running Trapper Keeper server and
can run a concurrent smoke test against it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkOutputFormat(g.output); err != nil {
				return err
			}
			if err := logger.InitWithOptions(logger.Options{Output: cmd.ErrOrStderr()}); err != nil {
				return err
			}
			level := "warn"
			if g.verbose {
				level = "debug"
			}
			return logger.SetLevelString(level)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.url, "url", defaultURL, "Base URL of the server")
	pf.DurationVar(&g.timeout, "timeout", defaultTimeout, "HTTP request timeout")
	pf.StringVarP(&g.output, "output", "o", formatJSON, "Output format: json or yaml")
	pf.StringVarP(&g.query, "query", "q", "", "JSONPath applied to the response, e.g. $.notes[0].title")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		newListCmd(g),
		newCreateCmd(g),
		newGetCmd(g),
		newUpdateCmd(g),
		newDeleteCmd(g),
		newSmokeCmd(g),
	)
	return root
}
