package domain

import "context"

// IndexTransport is an authenticated handle on the search cluster.
type IndexTransport interface {
	ListIndices(ctx context.Context) ([]string, error)
	DeleteIndices(ctx context.Context, names []string) error
}
