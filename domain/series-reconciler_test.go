package domain_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spooky-finn/go-binance-feed/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingCache captures Save calls so the write-behind mirroring is
// observable without a real store.
type recordingCache struct {
	mu      sync.Mutex
	saves   [][]domain.Candle
	saveErr error
}

func (c *recordingCache) Load(ctx context.Context, key domain.SubscriptionKey) ([]domain.Candle, error) {
	return nil, nil
}

func (c *recordingCache) Save(ctx context.Context, key domain.SubscriptionKey, candles []domain.Candle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves = append(c.saves, candles)
	return c.saveErr
}

func (c *recordingCache) saveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.saves)
}

func testKey(t *testing.T) domain.SubscriptionKey {
	t.Helper()
	ms, err := domain.NewMarketSymbolFromString("BTC/USDT")
	require.NoError(t, err)
	key, err := domain.NewSubscriptionKey(ms, "1m")
	require.NoError(t, err)
	return key
}

func TestSeriesReconciler_SnapshotWinsOverLiveState(t *testing.T) {
	cache := &recordingCache{}
	r := domain.NewSeriesReconciler(testKey(t), 500, cache)

	r.ApplyLiveCandle(candleAt(999000), false)
	snapshot := ascendingCandles(1000, 1000, 10)
	r.ApplySnapshot(snapshot)

	assert.Equal(t, snapshot, r.Window())
}

func TestSeriesReconciler_EmptySnapshotIsIgnored(t *testing.T) {
	cache := &recordingCache{}
	r := domain.NewSeriesReconciler(testKey(t), 500, cache)
	r.Restore(ascendingCandles(1000, 1000, 10))

	r.ApplySnapshot(nil)

	assert.Len(t, r.Window(), 10, "an empty snapshot must not wipe the restored window")
}

func TestSeriesReconciler_RestoreDoesNotPersist(t *testing.T) {
	cache := &recordingCache{}
	r := domain.NewSeriesReconciler(testKey(t), 500, cache)

	r.Restore(ascendingCandles(1000, 1000, 10))

	assert.Len(t, r.Window(), 10)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, cache.saveCount(), "a cache-loaded window must not be written back")
}

func TestSeriesReconciler_PersistsAfterMutation(t *testing.T) {
	cache := &recordingCache{}
	r := domain.NewSeriesReconciler(testKey(t), 500, cache)

	r.ApplyLiveCandle(candleAt(1000), false)

	assert.Eventually(t, func() bool {
		return cache.saveCount() == 1
	}, time.Second, 10*time.Millisecond, "a window change must trigger a cache save")
}

func TestSeriesReconciler_StaleCandleDoesNotPersist(t *testing.T) {
	cache := &recordingCache{}
	r := domain.NewSeriesReconciler(testKey(t), 500, cache)
	r.ApplyLiveCandle(candleAt(2000), false)

	outcome := r.ApplyLiveCandle(candleAt(1500), false)

	assert.Equal(t, domain.OutcomeDiscarded, outcome)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, cache.saveCount(), "a discarded candle must not trigger a save")
}

func TestSeriesReconciler_PersistenceFailureIsContained(t *testing.T) {
	cache := &recordingCache{saveErr: errors.New("store is down")}
	r := domain.NewSeriesReconciler(testKey(t), 500, cache)

	r.ApplyLiveCandle(candleAt(1000), false)
	outcome := r.ApplyLiveCandle(candleAt(2000), false)

	assert.Equal(t, domain.OutcomeAppended, outcome, "a failing cache must not interrupt the live path")
	assert.Len(t, r.Window(), 2)
}

func TestDepthSnapshotStore_ReplaceIsTotal(t *testing.T) {
	store := domain.NewDepthSnapshotStore()
	store.Replace(domain.DepthSnapshot{
		Bids: [][]string{{"100.1", "2"}},
		Asks: [][]string{{"100.2", "3"}},
	})

	next := domain.DepthSnapshot{
		Bids: [][]string{{"99.9", "1"}},
		Asks: [][]string{{"100.0", "4"}, {"100.1", "5"}},
	}
	store.Replace(next)

	assert.Equal(t, next, store.Snapshot(), "replace must overwrite the prior snapshot wholesale")
}
