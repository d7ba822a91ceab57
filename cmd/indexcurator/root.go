package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/semmidev/indexcurator/internal/adapter/report"
	"github.com/semmidev/indexcurator/internal/app"
	"github.com/semmidev/indexcurator/internal/config"
	"github.com/semmidev/indexcurator/internal/domain"
)

var (
	configPath string
	v          = config.New()
)

var rootCmd = &cobra.Command{
	Use:   "indexcurator",
	Short: "Delete date-stamped search indices older than a threshold",
	Long: `indexcurator lists the indices of an Elasticsearch or OpenSearch cluster,
reads the YYYY.MM.DD stamp embedded in each index name and deletes the
indices older than the configured age. The result is printed to stdout as
{"changed": bool, "index": [...]}.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runOnce,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-file", "", "also write JSON logs to this rotated file")

	pf.String("host", "", "cluster host name, without scheme")
	pf.Int("port", domain.DefaultPort, "cluster HTTPS port")
	pf.Int("unit-count", domain.DefaultAgeThreshold, "age threshold count")
	pf.String("time-unit", string(domain.DefaultAgeUnit), "age threshold unit (hours, days, weeks, months)")
	pf.String("index-prefix", "", "only consider indices starting with this prefix")
	pf.Bool("strict", false, "fail when an index name carries no date stamp")
	pf.Bool("dry-run", false, "report the indices that would be deleted without deleting them")
	pf.Duration("timeout", 30*time.Second, "timeout for each cluster request")
	pf.Bool("legacy-cluster", false, "accept clusters that do not send the X-Elastic-Product header")

	pf.String("auth-mode", config.AuthSigV4, "authentication (sigv4, basic, none)")
	pf.String("region", "", "AWS region used to sign requests")

	bindings := map[string]string{
		"app.log_level":          "log-level",
		"app.log_file":           "log-file",
		"cleanup.host":           "host",
		"cleanup.port":           "port",
		"cleanup.unit_count":     "unit-count",
		"cleanup.time_unit":      "time-unit",
		"cleanup.index_prefix":   "index-prefix",
		"cleanup.strict":         "strict",
		"cleanup.dry_run":        "dry-run",
		"cleanup.timeout":        "timeout",
		"cleanup.legacy_cluster": "legacy-cluster",
		"auth.mode":              "auth-mode",
		"auth.region":            "region",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(versionCmd)
}

// newApp loads the configuration and wires the application. A failure is
// reported on stdout in the same document shape as a failed run.
func newApp(ctx context.Context) (*app.App, *config.Config, error) {
	cfg, err := config.Load(v, configPath)
	if err != nil {
		reportFailure(ctx, err)
		return nil, nil, err
	}

	application, err := app.New(ctx, cfg, os.Stdout)
	if err != nil {
		reportFailure(ctx, err)
		return nil, nil, fmt.Errorf("initialize app: %w", err)
	}
	return application, cfg, nil
}

func reportFailure(ctx context.Context, err error) {
	writeFailure(ctx, os.Stdout, os.Stderr, err)
}

// writeFailure prints the failure document to out and the plain error to
// errOut, since the root command silences cobra's own error output.
func writeFailure(ctx context.Context, out, errOut io.Writer, err error) {
	now := time.Now()
	_ = report.NewStdout(out).Report(ctx, domain.Report{
		StartedAt:  now,
		FinishedAt: now,
		Failure:    domain.NewFailure(err),
	})
	fmt.Fprintf(errOut, "Error: %v\n", err)
}
