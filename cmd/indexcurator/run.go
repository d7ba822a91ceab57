package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one cleanup and exit",
	Long: `Run lists the cluster's indices, deletes those older than the threshold
and exits. The exit status is 0 when the run succeeded, including when there
was nothing to delete, and 1 otherwise.`,
	RunE: runOnce,
}

func runOnce(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, _, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer application.Shutdown()

	_, err = application.RunOnce(ctx)
	return err
}
