// Package recorder keeps an append-only history of fetched snapshots.
// The history is write-only: nothing reads it back into the price cache.
package recorder

import (
	"context"

	"commodityapi/internal/fetcher"
)

// Recorder persists fresh snapshots for later analysis.
type Recorder interface {
	// RecordSnapshot appends snap, fetched by the fetcher identified by key.
	RecordSnapshot(ctx context.Context, key string, snap fetcher.Snapshot) error
	Close() error
}

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSnapshot(_ context.Context, _ string, _ fetcher.Snapshot) error {
	return nil
}
func (n *NoopRecorder) Close() error { return nil }
