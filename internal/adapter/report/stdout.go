package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/semmidev/indexcurator/internal/domain"
)

// Stdout writes the single-line result document callers parse:
// {"changed":true,"index":[...]} on success,
// {"failed":true,"msg":"...","kind":"..."} on failure.
type Stdout struct {
	mu sync.Mutex
	w  io.Writer
}

func NewStdout(w io.Writer) *Stdout {
	return &Stdout{w: w}
}

func (s *Stdout) Name() string {
	return "stdout"
}

type failureDocument struct {
	Failed  bool   `json:"failed"`
	Changed bool   `json:"changed"`
	Msg     string `json:"msg"`
	Kind    string `json:"kind"`
	Field   string `json:"field,omitempty"`
}

func (s *Stdout) Report(ctx context.Context, r domain.Report) error {
	var doc interface{}
	switch {
	case r.Failure != nil:
		doc = failureDocument{
			Failed: true,
			Msg:    r.Failure.Message,
			Kind:   r.Failure.Kind,
			Field:  r.Failure.Field,
		}
	case r.Result != nil:
		doc = r.Result
	default:
		doc = domain.NewCleanupResult(nil, false)
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintln(s.w, string(b)); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}
