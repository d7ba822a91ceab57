package report

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/semmidev/indexcurator/internal/domain"
)

const filenameTimeLayout = "20060102_150405"

var filenamePattern = regexp.MustCompile(`^cleanup_(\d{8}_\d{6})_[0-9a-zA-Z-]+\.json$`)

// Filename names the archived copy of a report, e.g.
// cleanup_20200301_030000_1b4e28ba.json.
func Filename(r domain.Report) string {
	id := r.RunID
	if len(id) > 8 {
		id = id[:8]
	}
	if id == "" {
		id = "run"
	}
	return fmt.Sprintf("cleanup_%s_%s.json", r.StartedAt.UTC().Format(filenameTimeLayout), id)
}

func extractTimestamp(filename string) (time.Time, error) {
	m := filenamePattern.FindStringSubmatch(filename)
	if m == nil {
		return time.Time{}, fmt.Errorf("invalid report filename: %s", filename)
	}
	return time.ParseInLocation(filenameTimeLayout, m[1], time.UTC)
}

func encode(r domain.Report) ([]byte, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return append(b, '\n'), nil
}
