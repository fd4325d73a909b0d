package quotecache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Entry is a stored lookup result. A failed lookup keeps its error message and
// kind so it can be replayed until its (shorter) TTL runs out.
type Entry[V any] struct {
	Value     V         `json:"value"`
	FetchedAt time.Time `json:"fetched_at"`
	ErrMsg    string    `json:"err,omitempty"`
	ErrKind   string    `json:"err_kind,omitempty"`

	err error
}

// Failed reports whether the entry memoizes a failed fetch.
func (e Entry[V]) Failed() bool {
	return e.err != nil || e.ErrMsg != ""
}

// Err returns the memoized failure, or nil. An entry decoded from an external
// store is rebuilt through rehydrate when it knows the kind.
func (e Entry[V]) Err(rehydrate func(kind, msg string) error) error {
	if e.err != nil {
		return e.err
	}
	if e.ErrMsg == "" {
		return nil
	}
	if rehydrate != nil && e.ErrKind != "" {
		if err := rehydrate(e.ErrKind, e.ErrMsg); err != nil {
			return err
		}
	}
	return errors.New(e.ErrMsg)
}

// Store persists entries. ttl is a hint for stores that can expire keys on
// their own; the cache always re-checks age against its clock.
type Store[V any] interface {
	Load(ctx context.Context, key Key) (Entry[V], bool, error)
	Save(ctx context.Context, key Key, entry Entry[V], ttl time.Duration) error
}

// MemoryStore keeps entries in process. Stale entries are overwritten in place
// on the next miss and never evicted, so size grows with the number of
// distinct keys ever queried.
type MemoryStore[V any] struct {
	mu      sync.RWMutex
	entries map[Key]Entry[V]
}

func NewMemoryStore[V any]() *MemoryStore[V] {
	return &MemoryStore[V]{entries: make(map[Key]Entry[V])}
}

func (s *MemoryStore[V]) Load(_ context.Context, key Key) (Entry[V], bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key.normalized()]
	return e, ok, nil
}

func (s *MemoryStore[V]) Save(_ context.Context, key Key, entry Entry[V], _ time.Duration) error {
	s.mu.Lock()
	s.entries[key.normalized()] = entry
	s.mu.Unlock()
	return nil
}

// Len returns the number of keys held.
func (s *MemoryStore[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// RedisStore shares entries between instances. Keys expire with their TTL so
// redis, unlike MemoryStore, stays bounded.
type RedisStore[V any] struct {
	rdb *redis.Client
}

func NewRedisStore[V any](rdb *redis.Client) *RedisStore[V] {
	return &RedisStore[V]{rdb: rdb}
}

func (s *RedisStore[V]) Load(ctx context.Context, key Key) (Entry[V], bool, error) {
	var e Entry[V]
	b, err := s.rdb.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return e, false, nil
	}
	if err != nil {
		return e, false, err
	}
	if err := json.Unmarshal(b, &e); err != nil {
		return e, false, err
	}
	return e, true, nil
}

func (s *RedisStore[V]) Save(ctx context.Context, key Key, entry Entry[V], ttl time.Duration) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key.String(), b, ttl).Err()
}
