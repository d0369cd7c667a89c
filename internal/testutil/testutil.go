package testutil

import (
	"context"
	"sync/atomic"
	"time"

	"commodityapi/internal/fetcher"
)

// MockFetcher is a mock implementation of the Fetcher interface for testing
type MockFetcher struct {
	FetchFunc func(ctx context.Context) (fetcher.Snapshot, error)
	KeyFunc   func() string

	calls atomic.Int32
}

// Fetch implements the Fetcher interface
func (m *MockFetcher) Fetch(ctx context.Context) (fetcher.Snapshot, error) {
	m.calls.Add(1)
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx)
	}
	return fetcher.Snapshot{}, nil
}

// Key implements the Fetcher interface
func (m *MockFetcher) Key() string {
	if m.KeyFunc != nil {
		return m.KeyFunc()
	}
	return "mock:key"
}

// Calls returns how many times Fetch has been invoked.
func (m *MockFetcher) Calls() int {
	return int(m.calls.Load())
}

// NewMockFetcher creates a simple mock fetcher with predefined values
func NewMockFetcher(key string, snap fetcher.Snapshot, err error) *MockFetcher {
	return &MockFetcher{
		FetchFunc: func(ctx context.Context) (fetcher.Snapshot, error) {
			return snap, err
		},
		KeyFunc: func() string {
			return key
		},
	}
}

// NewSnapshot builds a minimal, fully populated snapshot for tests.
func NewSnapshot(symbol string, price float64) fetcher.Snapshot {
	return fetcher.Snapshot{
		Symbol:        symbol,
		Name:          symbol + " test instrument",
		Exchange:      "TEST",
		Price:         price,
		Currency:      "USD",
		ChangePercent: fetcher.Float(0.5),
		LastUpdated:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Source:        "test",
	}
}
