package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"papertrade-backend/internal/infrastructure/quotecache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinger struct{ err error }

func (p pinger) Ping() error { return p.err }

type cacheStats map[string]quotecache.Stats

func (c cacheStats) CacheStats() map[string]quotecache.Stats { return c }

func newRedis(t *testing.T) *redis.Client {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return rdb
}

func TestCollect_NothingConfigured(t *testing.T) {
	result := (&Collector{}).Collect(context.Background())
	assert.Equal(t, "issue", result.Status)
	assert.Equal(t, "disconnected", result.Dependencies["database"].Status)
	assert.Equal(t, "disconnected", result.Dependencies["redis"].Status)
	assert.Equal(t, 0, result.Traffic.TotalRequests)
	assert.Nil(t, result.QuoteCache)
}

func TestCollect_WithMiniredis(t *testing.T) {
	rdb := newRedis(t)
	ctx := context.Background()
	c := &Collector{Rdb: rdb, DB: pinger{}, Caches: cacheStats{"quote": {Hits: 3, Misses: 1, Fetches: 1}}}

	result := c.Collect(ctx)
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, "connected", result.Dependencies["redis"].Status)
	assert.Equal(t, "100", result.Traffic.SuccessRate)
	assert.Equal(t, int64(3), result.QuoteCache["quote"].Hits)

	require.NoError(t, rdb.Set(ctx, "health:global:req_total", "10", 0).Err())
	require.NoError(t, rdb.Set(ctx, "health:global:req_errors", "2", 0).Err())
	require.NoError(t, rdb.Set(ctx, "health:global:res_time_total", "150.5", 0).Err())
	require.NoError(t, rdb.Set(ctx, "health:global:res_count", "10", 0).Err())
	require.NoError(t, rdb.Set(ctx, "health:global:start_time", "1000000", 0).Err())

	result = c.Collect(ctx)
	assert.Equal(t, 10, result.Traffic.TotalRequests)
	assert.Equal(t, 2, result.Traffic.FailedCount)
	assert.Equal(t, 8, result.Traffic.SuccessCount)
	assert.Equal(t, "80.0", result.Traffic.SuccessRate)
	assert.Equal(t, "15.05", result.Traffic.AvgResponseTime)
}

func TestCollect_DatabaseError(t *testing.T) {
	result := (&Collector{Rdb: newRedis(t), DB: pinger{err: errors.New("down")}}).Collect(context.Background())
	assert.Equal(t, "issue", result.Status)
	assert.Equal(t, "error", result.Dependencies["database"].Status)
}

func TestCollect_Probes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c := &Collector{Probes: map[string]string{"finnhub": srv.URL, "yahoo": "http://127.0.0.1:1"}}
	result := c.Collect(context.Background())
	assert.Equal(t, "reachable", result.Dependencies["finnhub"].Status)
	assert.Equal(t, "unreachable", result.Dependencies["yahoo"].Status)
}

func TestResetAndRecentErrors(t *testing.T) {
	rdb := newRedis(t)
	ctx := context.Background()
	require.NoError(t, rdb.Set(ctx, "health:global:req_total", "5", 0).Err())
	require.NoError(t, rdb.LPush(ctx, "health:global:error_log", `{"message":"older"}`, `not json`, `{"message":"newest"}`).Err())

	errs, err := RecentErrors(ctx, rdb)
	require.NoError(t, err)
	require.Len(t, errs, 2)
	assert.Equal(t, "newest", errs[0]["message"])

	require.NoError(t, ResetCounters(ctx, rdb))
	_, err = rdb.Get(ctx, "health:global:req_total").Result()
	assert.ErrorIs(t, err, redis.Nil)
	_, err = rdb.Get(ctx, "health:global:start_time").Result()
	assert.NoError(t, err)
	errs, err = RecentErrors(ctx, rdb)
	require.NoError(t, err)
	assert.Empty(t, errs)
}
