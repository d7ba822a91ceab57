package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/semmidev/indexcurator/internal/domain"
)

const DefaultTimeout = 30 * time.Second

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

type Cleanup struct {
	transport domain.IndexTransport
	logger    Logger
	timeout   time.Duration
	now       func() time.Time
}

type Option func(*Cleanup)

// WithTimeout bounds each call to the transport.
func WithTimeout(d time.Duration) Option {
	return func(uc *Cleanup) {
		if d > 0 {
			uc.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(uc *Cleanup) {
		uc.now = now
	}
}

func NewCleanup(transport domain.IndexTransport, logger Logger, opts ...Option) *Cleanup {
	uc := &Cleanup{
		transport: transport,
		logger:    logger,
		timeout:   DefaultTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Execute lists the indices behind the transport, selects those older than
// the request's cutoff and deletes them. Any transport failure aborts the
// whole run and no partial result is returned.
func (uc *Cleanup) Execute(ctx context.Context, req domain.CleanupRequest) (domain.CleanupResult, error) {
	cutoff := req.Cutoff(uc.now())
	uc.logger.Infof("Starting cleanup of %s (cutoff %s)", req, cutoff.UTC().Format(time.RFC3339))

	names, err := uc.listIndices(ctx)
	if err != nil {
		return domain.CleanupResult{}, err
	}

	eligible, err := SelectEligible(names, cutoff, req.IndexPrefix, req.Strict)
	if err != nil {
		return domain.CleanupResult{}, err
	}
	uc.logger.Infof("Found %d index(es), %d older than cutoff", len(names), len(eligible))

	if len(eligible) == 0 {
		uc.logger.Infof(domain.MsgNoIndices)
		return domain.NewCleanupResult(nil, req.DryRun), nil
	}

	selected := make([]string, 0, len(eligible))
	for _, idx := range eligible {
		selected = append(selected, idx.Name)
	}

	if req.DryRun {
		for _, name := range selected {
			uc.logger.Infof("Dry run, would delete index: %s", name)
		}
		return domain.NewCleanupResult(selected, true), nil
	}

	for _, chunk := range chunkNames(selected, maxChunkBytes) {
		uc.logger.Infof("Deleting %d old index(es): %s", len(chunk), strings.Join(chunk, ","))
		if err := uc.deleteIndices(ctx, chunk); err != nil {
			uc.logger.Errorf("Failed to delete indices: %v", err)
			return domain.CleanupResult{}, err
		}
	}

	uc.logger.Infof("Deleted %d old index(es)", len(selected))
	return domain.NewCleanupResult(selected, false), nil
}

func (uc *Cleanup) listIndices(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	names, err := uc.transport.ListIndices(ctx)
	if err != nil {
		if domain.KindOf(err) == domain.KindConnection {
			return nil, err
		}
		return nil, domain.ConnectionError(fmt.Errorf("list indices: %w", err))
	}
	return names, nil
}

func (uc *Cleanup) deleteIndices(ctx context.Context, names []string) error {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	err := uc.transport.DeleteIndices(ctx, names)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return domain.ConnectionError(fmt.Errorf("delete indices: %w", context.DeadlineExceeded))
	case domain.KindOf(err) == domain.KindDeletionFailed:
		return err
	default:
		return domain.DeletionFailed(fmt.Errorf("delete indices: %w", err))
	}
}

// SelectEligible returns, sorted by name, the indices whose embedded date is
// strictly before cutoff. Names outside prefix are ignored. Undated names are
// skipped, or rejected with a MalformedIndexName error when strict is set.
func SelectEligible(names []string, cutoff time.Time, prefix string, strict bool) ([]domain.IndexDescriptor, error) {
	eligible := make([]domain.IndexDescriptor, 0)
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) {
			continue
		}

		idx := domain.DescribeIndex(name)
		if !idx.HasDate() {
			if strict {
				return nil, domain.MalformedIndexName(name)
			}
			continue
		}

		if idx.OlderThan(cutoff) {
			eligible = append(eligible, idx)
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].Name < eligible[j].Name
	})
	return eligible, nil
}
