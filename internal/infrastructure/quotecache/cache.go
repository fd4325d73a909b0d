package quotecache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL        = 300 * time.Second
	DefaultFailureTTL = 30 * time.Second
)

// Config tunes a Cache. A zero TTL means DefaultTTL. A zero FailureTTL
// disables caching of failed fetches.
//
// Classify names the kind of a failed fetch before it is stored and Rehydrate
// turns a stored (kind, message) back into an error, so sentinels survive a
// round trip through an external store.
type Config struct {
	TTL        time.Duration
	FailureTTL time.Duration
	Clock      Clock
	Classify   func(err error) string
	Rehydrate  func(kind, msg string) error
}

// Stats are cumulative counters since the cache was created.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Fetches int64 `json:"fetches"`
}

// Cache memoizes fetches for TTL. Concurrent misses on one key share a
// single in-flight fetch.
type Cache[V any] struct {
	store      Store[V]
	clock      Clock
	ttl        time.Duration
	failureTTL time.Duration
	classify   func(error) string
	rehydrate  func(kind, msg string) error
	group      singleflight.Group

	hits    atomic.Int64
	misses  atomic.Int64
	fetches atomic.Int64
}

func New[V any](store Store[V], cfg Config) *Cache[V] {
	if store == nil {
		store = NewMemoryStore[V]()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	return &Cache[V]{
		store:      store,
		clock:      cfg.Clock,
		ttl:        cfg.TTL,
		failureTTL: cfg.FailureTTL,
		classify:   cfg.Classify,
		rehydrate:  cfg.Rehydrate,
	}
}

type result[V any] struct {
	value V
	err   error
}

// GetOrFetch returns the fresh entry for key, or calls fetch and stores its
// result. Failures are stored only when FailureTTL > 0, and expire after it.
func (c *Cache[V]) GetOrFetch(ctx context.Context, key Key, fetch func(context.Context) (V, error)) (V, error) {
	if e, ok := c.fresh(ctx, key); ok {
		c.hits.Add(1)
		return e.Value, e.Err(c.rehydrate)
	}
	c.misses.Add(1)

	v, _, _ := c.group.Do(key.String(), func() (interface{}, error) {
		// A fetch for this key may have completed between our miss and Do.
		if e, ok := c.fresh(ctx, key); ok {
			return result[V]{value: e.Value, err: e.Err(c.rehydrate)}, nil
		}
		c.fetches.Add(1)
		value, err := fetch(ctx)
		entry := Entry[V]{Value: value, FetchedAt: c.clock.Now()}
		ttl := c.ttl
		if err != nil {
			if c.failureTTL <= 0 {
				return result[V]{value: value, err: err}, nil
			}
			entry.err = err
			entry.ErrMsg = err.Error()
			if c.classify != nil {
				entry.ErrKind = c.classify(err)
			}
			ttl = c.failureTTL
		}
		if serr := c.store.Save(ctx, key, entry, ttl); serr != nil {
			log.Warn().Err(serr).Str("key", key.String()).Msg("quotecache: store write failed")
		}
		return result[V]{value: value, err: err}, nil
	})
	r := v.(result[V])
	return r.value, r.err
}

func (c *Cache[V]) fresh(ctx context.Context, key Key) (Entry[V], bool) {
	e, ok, err := c.store.Load(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key.String()).Msg("quotecache: store read failed")
		return e, false
	}
	if !ok {
		return e, false
	}
	ttl := c.ttl
	if e.Failed() {
		ttl = c.failureTTL
	}
	if c.clock.Now().Sub(e.FetchedAt) >= ttl {
		return e, false
	}
	return e, true
}

// Stats returns a snapshot of the counters.
func (c *Cache[V]) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Fetches: c.fetches.Load(),
	}
}
