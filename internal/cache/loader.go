// Package cache provides TTL memoization of normalized source tables.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bluefin-ops/healthdeck/internal/metrics"
	"github.com/bluefin-ops/healthdeck/internal/models"
	"github.com/bluefin-ops/healthdeck/internal/source"
)

// DefaultTTL is the maximum age of a cached table before a fresh fetch
// is required.
const DefaultTTL = 5 * time.Minute

// FetchFunc loads and normalizes one source's records.
type FetchFunc func(ctx context.Context) (*models.Table, error)

// entry is one cached table with its fetch time. Entries are immutable
// once stored and replaced as a whole, so a reader never observes a
// fetch time without its table.
type entry struct {
	table     *models.Table
	fetchedAt time.Time
}

// Loader memoizes normalized tables per source under a TTL policy.
//
// A fetch failure on a cache miss propagates to the caller; the loader
// never substitutes a stale or empty table that would read as "no
// records". Nothing is written to the cache unless a fetch fully
// succeeds, so an abandoned (context-cancelled) fetch has no side
// effects.
type Loader struct {
	ttl   time.Duration
	fetch map[models.SourceKind]FetchFunc

	mu      sync.RWMutex
	entries map[models.SourceKind]entry

	// flight serializes concurrent misses for the same source so they
	// collapse into a single upstream fetch. Different sources refresh
	// independently.
	flightMu sync.Mutex
	flight   map[models.SourceKind]*sync.Mutex

	now func() time.Time // overridable in tests
}

// New creates a loader with the given TTL (0 means DefaultTTL).
func New(ttl time.Duration) *Loader {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Loader{
		ttl:     ttl,
		fetch:   make(map[models.SourceKind]FetchFunc),
		entries: make(map[models.SourceKind]entry),
		flight:  make(map[models.SourceKind]*sync.Mutex),
		now:     time.Now,
	}
}

// Register binds a source kind to its fetch function.
func (l *Loader) Register(kind models.SourceKind, fn FetchFunc) {
	l.fetch[kind] = fn
}

// Get returns the table for a source, fetching it when no unexpired
// cache entry exists.
func (l *Loader) Get(ctx context.Context, kind models.SourceKind) (*models.Table, error) {
	fn, ok := l.fetch[kind]
	if !ok {
		return nil, fmt.Errorf("no fetch registered for source %q", kind)
	}

	if t, ok := l.cached(kind); ok {
		metrics.CacheHitsTotal.WithLabelValues(string(kind)).Inc()
		return t, nil
	}

	lock := l.flightLock(kind)
	lock.Lock()
	defer lock.Unlock()

	// Another caller may have refreshed while we waited.
	if t, ok := l.cached(kind); ok {
		metrics.CacheHitsTotal.WithLabelValues(string(kind)).Inc()
		return t, nil
	}

	metrics.CacheMissesTotal.WithLabelValues(string(kind)).Inc()

	start := l.now()
	t, err := fn(ctx)
	metrics.SourceFetchDuration.WithLabelValues(string(kind)).Observe(l.now().Sub(start).Seconds())
	if err != nil {
		metrics.SourceFetchesTotal.WithLabelValues(string(kind), fetchResult(err)).Inc()
		return nil, err
	}
	metrics.SourceFetchesTotal.WithLabelValues(string(kind), metrics.ResultOK).Inc()
	metrics.SourceRecords.WithLabelValues(string(kind)).Set(float64(t.Len()))

	l.mu.Lock()
	l.entries[kind] = entry{table: t, fetchedAt: l.now()}
	l.mu.Unlock()

	return t, nil
}

// InvalidateAll clears every cached source. The next Get for any source
// performs a fresh fetch even inside the TTL window.
func (l *Loader) InvalidateAll() {
	l.mu.Lock()
	l.entries = make(map[models.SourceKind]entry)
	l.mu.Unlock()
	metrics.CacheInvalidationsTotal.Inc()
}

func (l *Loader) cached(kind models.SourceKind) (*models.Table, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[kind]
	if !ok || l.now().Sub(e.fetchedAt) >= l.ttl {
		return nil, false
	}
	return e.table, true
}

func (l *Loader) flightLock(kind models.SourceKind) *sync.Mutex {
	l.flightMu.Lock()
	defer l.flightMu.Unlock()
	lock, ok := l.flight[kind]
	if !ok {
		lock = &sync.Mutex{}
		l.flight[kind] = lock
	}
	return lock
}

func fetchResult(err error) string {
	if source.IsMalformed(err) {
		return metrics.ResultMalformed
	}
	return metrics.ResultUnavailable
}
