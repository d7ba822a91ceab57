package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/semmidev/indexcurator/internal/adapter/report"
	"github.com/semmidev/indexcurator/internal/adapter/search"
	"github.com/semmidev/indexcurator/internal/config"
	"github.com/semmidev/indexcurator/internal/domain"
	"github.com/semmidev/indexcurator/internal/infrastructure/logger"
	"github.com/semmidev/indexcurator/internal/infrastructure/metrics"
	"github.com/semmidev/indexcurator/internal/infrastructure/scheduler"
	"github.com/semmidev/indexcurator/internal/usecase"
)

const reportTimeout = 30 * time.Second

// TransportFactory opens the transport handle for a validated request.
type TransportFactory func(ctx context.Context, req domain.CleanupRequest) (domain.IndexTransport, error)

type App struct {
	config       *config.Config
	logger       *logger.Logger
	result       *report.Stdout
	reporters    []domain.Reporter
	metrics      *metrics.Metrics
	scheduler    *scheduler.Scheduler
	newTransport TransportFactory
	now          func() time.Time
	ownsLogger   bool
}

type Option func(*App)

func WithTransportFactory(f TransportFactory) Option {
	return func(a *App) { a.newTransport = f }
}

func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

func WithLogger(l *logger.Logger) Option {
	return func(a *App) { a.logger = l }
}

func WithReporters(r ...domain.Reporter) Option {
	return func(a *App) { a.reporters = append(a.reporters, r...) }
}

// New wires the application. The run result document is written to out.
func New(ctx context.Context, cfg *config.Config, out io.Writer, opts ...Option) (*App, error) {
	a := &App{
		config:    cfg,
		result:    report.NewStdout(out),
		metrics:   metrics.New(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job),
		scheduler: scheduler.New(),
		now:       time.Now,
	}
	a.newTransport = a.elasticsearchTransport

	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		log, err := logger.New(cfg.App.LogLevel, cfg.App.LogFile)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		a.logger = log
		a.ownsLogger = true
	}

	a.logger.Infof("Starting %s", cfg.App.Name)
	a.reporters = append(a.reporters, initializeReporters(ctx, cfg, a.logger)...)

	return a, nil
}

func initializeReporters(ctx context.Context, cfg *config.Config, log *logger.Logger) []domain.Reporter {
	var reporters []domain.Reporter

	for _, name := range cfg.EnabledReporters() {
		var r domain.Reporter
		var err error

		switch name {
		case "local":
			r, err = report.NewLocal(cfg.Reports.Local.Path, cfg.Reports.Local.RetentionDays)
		case "s3":
			r, err = report.NewS3(ctx, &cfg.Reports.S3)
		case "telegram":
			r, err = report.NewTelegram(&cfg.Reports.Telegram)
		}
		if err != nil {
			log.Errorf("Failed to initialize %s report sink: %v", name, err)
			continue
		}

		reporters = append(reporters, r)
		log.Infof("✓ Report sink enabled: %s", name)
	}

	return reporters
}

func (a *App) elasticsearchTransport(ctx context.Context, req domain.CleanupRequest) (domain.IndexTransport, error) {
	return search.NewElasticsearch(ctx, search.Options{
		Host:          req.Host,
		Port:          req.Port,
		Auth:          a.config.Auth,
		CACertFile:    a.config.Cleanup.CACert,
		LegacyCluster: a.config.Cleanup.LegacyCluster,
	})
}

// RunOnce performs one complete cleanup invocation and publishes its report.
// The returned error, if any, is a *domain.Error.
func (a *App) RunOnce(ctx context.Context) (domain.CleanupResult, error) {
	runID := uuid.NewString()
	log := a.logger.WithRun(runID)

	rep := domain.Report{RunID: runID, StartedAt: a.now()}

	req, result, err := a.execute(ctx, log)
	rep.FinishedAt = a.now()
	if req != nil {
		rep.Request = req
	}
	if err != nil {
		rep.Failure = domain.NewFailure(err)
		log.Errorf("Cleanup failed: %v", err)
	} else {
		rep.Result = &result
	}

	a.publish(ctx, log, rep)
	a.record(log, rep)

	return result, err
}

func (a *App) execute(ctx context.Context, log *logger.Logger) (*domain.CleanupRequest, domain.CleanupResult, error) {
	req, err := domain.NewCleanupRequest(a.config.RequestParams())
	if err != nil {
		return nil, domain.CleanupResult{}, err
	}

	transport, err := a.newTransport(ctx, req)
	if err != nil {
		if domain.KindOf(err) == domain.KindUnknown {
			err = domain.ConnectionError(err)
		}
		return &req, domain.CleanupResult{}, err
	}

	uc := usecase.NewCleanup(transport, log,
		usecase.WithTimeout(a.config.Cleanup.Timeout),
		usecase.WithClock(a.now),
	)
	result, err := uc.Execute(ctx, req)
	return &req, result, err
}

func (a *App) publish(ctx context.Context, log *logger.Logger, rep domain.Report) {
	if err := a.result.Report(ctx, rep); err != nil {
		log.Errorf("Failed to write result: %v", err)
	}

	for _, r := range a.reporters {
		rctx, cancel := context.WithTimeout(ctx, reportTimeout)
		if err := r.Report(rctx, rep); err != nil {
			log.Warnf("Failed to publish report to %s: %v", r.Name(), err)
		}
		cancel()
	}
}

func (a *App) record(log *logger.Logger, rep domain.Report) {
	outcome := "unchanged"
	selected, deleted := 0, 0
	switch {
	case rep.Failure != nil:
		outcome = rep.Failure.Kind
	case rep.Result.DryRun:
		outcome = "dry_run"
		selected = len(rep.Result.DeletedIndices)
	case rep.Result.Changed:
		outcome = "changed"
		selected = len(rep.Result.DeletedIndices)
		deleted = selected
	}

	a.metrics.RecordRun(outcome, selected, deleted, rep.FinishedAt.Sub(rep.StartedAt), rep.FinishedAt, rep.Succeeded())
	if err := a.metrics.Push(); err != nil {
		log.Warnf("%v", err)
	}
}

// RunScheduled re-invokes RunOnce on spec until ctx is cancelled. Every tick
// is an independent invocation; a failed tick does not stop the schedule.
func (a *App) RunScheduled(ctx context.Context, spec string) error {
	if err := scheduler.ValidateSpec(spec); err != nil {
		return domain.InvalidField("schedule", err.Error())
	}

	if err := a.scheduler.AddJob(spec, func(ctx context.Context) error {
		_, err := a.RunOnce(ctx)
		return err
	}); err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}

	a.scheduler.Start(ctx)
	a.logger.Infof("Scheduled cleanup: %s (next run %s)", spec, a.scheduler.Next().Format(time.RFC3339))

	<-ctx.Done()
	return nil
}

func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

func (a *App) Shutdown() {
	a.logger.Infof("Shutting down...")
	a.scheduler.Stop()
	if a.ownsLogger {
		a.logger.Close()
	}
}
