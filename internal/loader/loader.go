// Package loader implements the client-side insights loader: it fetches the
// published collection from the public read API, caches it with a freshness
// window, and degrades to the cache or a bundled fallback copy when the
// network is unavailable.
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"insightsapi/internal/model"
)

// State is the loader's lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateLoaded  State = "loaded"
	StateFailed  State = "failed"
)

// ErrNoData means the network load failed and neither a fresh cache entry nor
// a fallback copy could supply the collection.
var ErrNoData = errors.New("insights unavailable")

// Options configure a Loader.
type Options struct {
	// Endpoint is the public read API URL returning the published collection.
	Endpoint string
	// Cache receives every successful load; on failure it is consulted if its
	// entry is younger than MaxCacheAge.
	Cache Cache
	// MaxCacheAge is the freshness window for cache fallback (default 5m).
	MaxCacheAge time.Duration
	// RefreshInterval drives auto-refresh on the listing surface (default 10m).
	RefreshInterval time.Duration
	// RequestTimeout bounds each network fetch (default 5s).
	RequestTimeout time.Duration
	// Fallback is the bundled static copy used as the last resort, may be nil.
	Fallback []model.Insight
	Logger   zerolog.Logger
}

// Loader drives the Idle -> Loading -> {Loaded, Failed} state machine around
// the published insights collection. It is safe for concurrent use; overlapping
// loads are dropped rather than queued so refresh ticks never pile up behind a
// slow request.
type Loader struct {
	httpClient *http.Client
	endpoint   string
	cache      Cache
	maxAge     time.Duration
	interval   time.Duration
	fallback   []model.Insight
	log        zerolog.Logger

	mu       sync.Mutex
	state    State
	insights []model.Insight

	inFlight atomic.Bool
	cron     *cron.Cron

	// Injectable for tests.
	now func() time.Time
}

// New builds a Loader in the Idle state.
func New(opts Options) *Loader {
	if opts.MaxCacheAge <= 0 {
		opts.MaxCacheAge = 5 * time.Minute
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 10 * time.Minute
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Second
	}
	cache := opts.Cache
	if cache == nil {
		cache = NewMemoryCache()
	}

	return &Loader{
		httpClient: &http.Client{Timeout: opts.RequestTimeout},
		endpoint:   opts.Endpoint,
		cache:      cache,
		maxAge:     opts.MaxCacheAge,
		interval:   opts.RefreshInterval,
		fallback:   opts.Fallback,
		log:        opts.Logger,
		state:      StateIdle,
		now:        time.Now,
	}
}

// Load runs one load cycle. On network success the collection is replaced and
// written through to the cache; on failure the cache is used if fresh enough,
// then the bundled fallback, and only then does the loader enter Failed.
// A Load that overlaps one already in flight is a no-op.
func (l *Loader) Load(ctx context.Context) error {
	if !l.inFlight.CompareAndSwap(false, true) {
		l.log.Debug().Msg("load already in flight, dropping")
		return nil
	}
	defer l.inFlight.Store(false)

	l.setState(StateLoading, nil)

	items, err := l.fetch(ctx)
	if err == nil {
		l.cache.Set(items)
		l.setState(StateLoaded, items)
		l.log.Info().Int("count", len(items)).Msg("insights loaded")
		return nil
	}
	l.log.Warn().Err(err).Msg("insights fetch failed, trying cache")

	if cached, storedAt, ok := l.cache.Get(); ok {
		if age := l.now().Sub(storedAt); age <= l.maxAge {
			l.setState(StateLoaded, cached)
			l.log.Info().Dur("age", age).Int("count", len(cached)).Msg("using cached insights")
			return nil
		}
		l.log.Warn().Msg("cache entry expired")
	}

	if l.fallback != nil {
		l.setState(StateLoaded, l.fallback)
		l.log.Info().Int("count", len(l.fallback)).Msg("using bundled fallback insights")
		return nil
	}

	l.setState(StateFailed, nil)
	return fmt.Errorf("%w: %v", ErrNoData, err)
}

// Retry is the manual retry affordance for the Failed state: a full reload.
func (l *Loader) Retry(ctx context.Context) error {
	return l.Load(ctx)
}

// StartAutoRefresh begins periodic background reloads for the listing surface.
// Ticks that land while a load is in flight are dropped by Load itself.
func (l *Loader) StartAutoRefresh() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cron != nil {
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("@every %s", l.interval), func() {
		ctx, cancel := context.WithTimeout(context.Background(), l.httpClient.Timeout)
		defer cancel()
		if err := l.Load(ctx); err != nil {
			l.log.Warn().Err(err).Msg("background refresh failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}
	c.Start()
	l.cron = c
	return nil
}

// Stop cancels auto-refresh, e.g. on navigation away from the listing surface.
func (l *Loader) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cron != nil {
		l.cron.Stop()
		l.cron = nil
	}
}

// State returns the current lifecycle state.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// All returns the published collection for the listing surface. The result is
// a copy; rendering the same collection twice yields the same output.
func (l *Loader) All() []model.Insight {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.Insight, 0, len(l.insights))
	for _, it := range l.insights {
		if it.IsPublished() {
			out = append(out, it)
		}
	}
	return out
}

// Featured returns up to limit published items for the landing surface,
// featured ones first, preserving collection order within each group.
func (l *Loader) Featured(limit int) []model.Insight {
	all := l.All()
	out := make([]model.Insight, 0, limit)
	for _, it := range all {
		if it.Featured {
			out = append(out, it)
		}
	}
	for _, it := range all {
		if len(out) >= limit {
			break
		}
		if !it.Featured {
			out = append(out, it)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (l *Loader) fetch(ctx context.Context) ([]model.Insight, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var items []model.Insight
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return items, nil
}

func (l *Loader) setState(s State, items []model.Insight) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = s
	if items != nil {
		l.insights = items
	}
}
