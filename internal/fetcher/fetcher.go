package fetcher

import "context"

// Fetcher is the capability each commodity source implements.
// A fetcher performs exactly one upstream call per Fetch and either returns
// a fully populated Snapshot or a classified *FetchError.
type Fetcher interface {
	// Fetch retrieves a fresh snapshot from the upstream.
	Fetch(ctx context.Context) (Snapshot, error)

	// Key returns a hierarchical key identifying this fetcher.
	// Format: fetcher:{source}:{identifier}
	// Examples:
	//   - fetcher:tradingview:NYMEX-ATY1!
	//   - fetcher:bybit:XAUTUSDT
	Key() string
}
