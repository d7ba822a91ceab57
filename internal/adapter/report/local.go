package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/semmidev/indexcurator/internal/domain"
)

// LocalArchive keeps one JSON file per run in a directory and prunes files
// older than its retention period.
type LocalArchive struct {
	basePath      string
	retentionDays int
	now           func() time.Time
}

func NewLocal(basePath string, retentionDays int) (*LocalArchive, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	return &LocalArchive{basePath: basePath, retentionDays: retentionDays, now: time.Now}, nil
}

func (l *LocalArchive) Name() string {
	return "local"
}

func (l *LocalArchive) Report(ctx context.Context, r domain.Report) error {
	body, err := encode(r)
	if err != nil {
		return err
	}

	destPath := l.GetPath(Filename(r))
	if err := os.WriteFile(destPath, body, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if l.retentionDays <= 0 {
		return nil
	}

	old, err := l.GetOldFiles(ctx, l.now().AddDate(0, 0, -l.retentionDays))
	if err != nil {
		return err
	}
	for _, name := range old {
		if err := l.Delete(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func (l *LocalArchive) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}

	return files, nil
}

func (l *LocalArchive) Delete(ctx context.Context, name string) error {
	if err := os.Remove(l.GetPath(name)); err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}

// GetOldFiles returns archived reports started before cutoff. Files that do
// not follow the report naming scheme are left alone.
func (l *LocalArchive) GetOldFiles(ctx context.Context, cutoff time.Time) ([]string, error) {
	files, err := l.List(ctx)
	if err != nil {
		return nil, err
	}

	var oldFiles []string
	for _, name := range files {
		ts, err := extractTimestamp(name)
		if err != nil {
			continue
		}
		if ts.Before(cutoff) {
			oldFiles = append(oldFiles, name)
		}
	}

	return oldFiles, nil
}

func (l *LocalArchive) GetPath(filename string) string {
	return filepath.Join(l.basePath, filename)
}
