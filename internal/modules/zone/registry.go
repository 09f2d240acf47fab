package zone

import (
	"context"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"courier/internal/metrics"
)

// fetchTimeout bounds a shared fetch; it ignores the cancellation of whichever caller started it.
const fetchTimeout = 10 * time.Second

// Source reads the current district to zone mapping from the backing store.
type Source interface {
	FetchMapping(ctx context.Context) (Mapping, error)
}

// Registry caches the mapping for the life of the process. Concurrent Load
// calls share one in-flight fetch, and the cache only ever holds a fully
// built Mapping swapped in atomically.
type Registry struct {
	source  Source
	logger  *slog.Logger
	metrics *metrics.Metrics

	cache atomic.Pointer[Mapping]
	// gen advances on every Invalidate so fetches started before it are
	// neither shared with later callers nor allowed to repopulate the cache.
	gen   atomic.Uint64
	group singleflight.Group
}

func NewRegistry(source Source, logger *slog.Logger, m *metrics.Metrics) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{source: source, logger: logger, metrics: m}
}

// Load returns the cached mapping, fetching it on first use. A failed fetch
// yields an empty mapping that is not cached, so every district resolves as
// not found until a later fetch succeeds.
func (r *Registry) Load(ctx context.Context) Mapping {
	if m := r.cache.Load(); m != nil {
		return *m
	}

	gen := r.gen.Load()
	v, _, _ := r.group.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		if m := r.cache.Load(); m != nil {
			return *m, nil
		}
		// Detached: every waiter receives this result.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		m, err := r.source.FetchMapping(fetchCtx)
		if err != nil {
			r.metrics.RecordZoneFetch("error")
			r.logger.Error("zone mapping fetch failed, pricing with empty mapping", "error", err)
			return Mapping{}, nil
		}
		m = m.Clone()
		if r.gen.Load() == gen {
			r.cache.Store(&m)
		}
		r.metrics.RecordZoneFetch("ok")
		r.logger.Info("zone mapping loaded", "districts", len(m))
		return m, nil
	})
	return v.(Mapping)
}

// Resolve loads the mapping and looks district up in it.
func (r *Registry) Resolve(ctx context.Context, district string) (int, bool) {
	z, ok := Resolve(district, r.Load(ctx))
	if !ok {
		r.logger.Warn("no zone assigned to district", "district", district)
	}
	return z, ok
}

// Invalidate drops the cached mapping; the next Load fetches again.
func (r *Registry) Invalidate() {
	r.gen.Add(1)
	r.cache.Store(nil)
	r.metrics.RecordZoneInvalidation()
	r.logger.Info("zone mapping cache cleared")
}

// Resolve is a pure lookup of district in m.
func Resolve(district string, m Mapping) (int, bool) {
	z, ok := m[district]
	if !ok || z == 0 {
		return 0, false
	}
	return z, true
}
