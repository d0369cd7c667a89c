package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"commodityapi/internal/cache"
	"commodityapi/internal/fetcher"
	"commodityapi/internal/recorder"

	"go.uber.org/zap"
)

// ErrUnknownSource is returned for a source name that was never registered.
var ErrUnknownSource = errors.New("unknown source")

// Source binds a fetcher to the cache entry that holds its latest snapshot.
type Source struct {
	// Name identifies the source in API responses, e.g. "ulsd" or "gold".
	Name string
	// Label names what the source serves in error details, e.g. "gold price".
	Label   string
	Fetcher fetcher.Fetcher
	Entry   *cache.Entry[fetcher.Snapshot]
}

// NewSource creates a source whose cache entry is keyed by the fetcher's key.
func NewSource(name, label string, f fetcher.Fetcher, expiry time.Duration, opts ...cache.Option) *Source {
	return &Source{
		Name:    name,
		Label:   label,
		Fetcher: f,
		Entry:   cache.New[fetcher.Snapshot](f.Key(), expiry, opts...),
	}
}

// Quote is a snapshot as served to callers, with its cache metadata.
type Quote struct {
	fetcher.Snapshot
	Cached         bool      `json:"cached"`
	CacheExpiresAt time.Time `json:"cache_expires_at"`
}

// Result holds the outcome of reading one source during Run.
type Result struct {
	Name  string
	Quote Quote
	Error error
}

// SourceStatus reports a source's cache validity without fetching.
type SourceStatus struct {
	Name  string
	Valid bool
}

// Coordinator is the single entry point for reading prices. Each source is
// served from its cache entry and refreshed through its fetcher on a miss.
type Coordinator struct {
	sources []*Source
	byName  map[string]*Source
	log     *zap.Logger
	rec     recorder.Recorder
}

// New creates a new Coordinator over the given sources.
// A nil logger or recorder disables logging or history respectively.
func New(log *zap.Logger, rec recorder.Recorder, sources ...*Source) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}

	c := &Coordinator{
		sources: sources,
		byName:  make(map[string]*Source, len(sources)),
		log:     log,
		rec:     rec,
	}
	for _, s := range sources {
		c.byName[s.Name] = s
	}
	return c
}

// Source returns the registered source called name.
func (c *Coordinator) Source(name string) (*Source, bool) {
	s, ok := c.byName[name]
	return s, ok
}

// Get returns the quote for the named source, fetching it if the cache is
// empty or expired. Fetch errors are returned unchanged.
func (c *Coordinator) Get(ctx context.Context, name string) (Quote, error) {
	src, ok := c.byName[name]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}

	lookup, err := src.Entry.GetOrRefresh(ctx, c.refresh(src))
	if err != nil {
		return Quote{}, err
	}

	if lookup.Cached {
		c.log.Debug("cache hit",
			zap.String("source", src.Name),
			zap.Time("expires_at", lookup.ExpiresAt),
		)
	}

	return Quote{
		Snapshot:       lookup.Value,
		Cached:         lookup.Cached,
		CacheExpiresAt: lookup.ExpiresAt,
	}, nil
}

// refresh wraps the source's fetcher with logging and history recording.
func (c *Coordinator) refresh(src *Source) cache.FetchFunc[fetcher.Snapshot] {
	return func(ctx context.Context) (fetcher.Snapshot, error) {
		log := c.log.With(zap.String("source", src.Name), zap.String("fetcher", src.Fetcher.Key()))
		log.Info("cache miss, refreshing")

		start := time.Now()
		snap, err := src.Fetcher.Fetch(ctx)
		if err != nil {
			log.Warn("refresh failed",
				zap.String("error_type", string(fetcher.TypeOf(err))),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err),
			)
			return fetcher.Snapshot{}, err
		}

		log.Info("refreshed",
			zap.Float64("price", snap.Price),
			zap.Duration("elapsed", time.Since(start)),
		)

		if err := c.rec.RecordSnapshot(ctx, src.Fetcher.Key(), snap); err != nil {
			log.Warn("failed to record snapshot", zap.Error(err))
		}
		return snap, nil
	}
}

// Status reports whether each source's cache currently holds a valid value.
// It never fetches.
func (c *Coordinator) Status() []SourceStatus {
	out := make([]SourceStatus, len(c.sources))
	for i, s := range c.sources {
		out[i] = SourceStatus{Name: s.Name, Valid: s.Entry.IsValid()}
	}
	return out
}

// Run reads every source concurrently through Get and returns the results
// in registration order. Per-source failures are reported in Result.Error.
func (c *Coordinator) Run(ctx context.Context) ([]Result, error) {
	if len(c.sources) == 0 {
		return nil, fmt.Errorf("no sources configured")
	}

	type indexed struct {
		i int
		r Result
	}

	// Create a channel for collecting results
	resultChan := make(chan indexed, len(c.sources))

	// WaitGroup to track all worker goroutines
	var wg sync.WaitGroup

	for i, s := range c.sources {
		wg.Add(1)
		go func(i int, src *Source) {
			defer wg.Done()

			quote, err := c.Get(ctx, src.Name)
			resultChan <- indexed{i: i, r: Result{Name: src.Name, Quote: quote, Error: err}}
		}(i, s)
	}

	// Close the result channel when all workers are done
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]Result, len(c.sources))
	for res := range resultChan {
		results[res.i] = res.r
	}
	return results, nil
}
