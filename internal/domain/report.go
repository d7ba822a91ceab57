package domain

import (
	"context"
	"time"
)

type Report struct {
	RunID      string          `json:"run_id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Request    *CleanupRequest `json:"request,omitempty"`
	Result     *CleanupResult  `json:"result,omitempty"`
	Failure    *Failure        `json:"failure,omitempty"`
}

type Failure struct {
	Kind    string `json:"kind"`
	Field   string `json:"field,omitempty"`
	Message string `json:"msg"`
}

func NewFailure(err error) *Failure {
	return &Failure{
		Kind:    KindOf(err).String(),
		Field:   FieldOf(err),
		Message: err.Error(),
	}
}

func (r Report) Succeeded() bool {
	return r.Failure == nil
}

// Reporter publishes a finished run somewhere outside the process.
type Reporter interface {
	Name() string
	Report(ctx context.Context, report Report) error
}
