package cli

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/stealsift/stealsift/pkg/batch"
	"github.com/stealsift/stealsift/pkg/monitor"
)

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Watch a drop directory and parse archives as they arrive",
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

		mon, err := monitor.NewMonitor(func(file string) error {
			_, runErr := runner.RunOne(cmd.Context(), file)
			return runErr
		}, batch.SupportedExtensions, conf.ModDelay)
		if err != nil {
			return
		}
		if err = mon.Add(args[0]); err != nil {
			return
		}
		mon.Start()
		defer mon.Close()

		logger.Info("watching for archives", slog.String("directory", args[0]))
		<-cmd.Context().Done()
		return cmd.Context().Err()
	},
}
