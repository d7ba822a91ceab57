package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/semmidev/indexcurator/internal/config"
	"github.com/semmidev/indexcurator/internal/domain"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule [cron spec]",
	Short: "Re-run the cleanup on a cron schedule",
	Long: `Schedule keeps the process alive and runs a complete cleanup on every
tick of a six-field cron expression (seconds first), e.g. "0 0 3 * * *".
The expression comes from the argument or app.schedule in the config file.
Overlapping ticks are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		application, cfg, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer application.Shutdown()

		spec, err := scheduleSpec(cfg, args)
		if err != nil {
			reportFailure(ctx, err)
			return err
		}

		if err := application.RunScheduled(ctx, spec); err != nil {
			reportFailure(ctx, err)
			return err
		}
		return nil
	},
}

// scheduleSpec prefers the argument over app.schedule.
func scheduleSpec(cfg *config.Config, args []string) (string, error) {
	spec := cfg.App.Schedule
	if len(args) == 1 {
		spec = args[0]
	}
	if spec == "" {
		return "", domain.InvalidField("schedule", "no cron spec given, pass one or set app.schedule")
	}
	return spec, nil
}
