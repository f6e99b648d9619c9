package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/stealsift/stealsift/pkg/batch"
)

var parseCmd = &cobra.Command{
	Use:   "parse [archive or directory]",
	Short: "Parse stealer log archives into structured JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		applyLogLevel()
		cfg, err := runnerConfig(args[0])
		if err != nil {
			return
		}
		runner, err := batch.NewRunner(cfg)
		if err != nil {
			return
		}
		defer func() {
			if closeErr := runner.Close(); closeErr != nil {
				logger.Warn("could not close runner", slog.String("error", closeErr.Error()))
			}
		}()

		summary, err := runner.Run(cmd.Context())
		fmt.Printf("processed: %d, skipped: %d, recovered: %d\n",
			summary.Processed, summary.Skipped, summary.Recovered)
		if err != nil {
			logger.Error("run aborted", slog.String("error", err.Error()))
			return
		}
		return
	},
}
