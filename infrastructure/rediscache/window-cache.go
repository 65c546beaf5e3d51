package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/spooky-finn/go-binance-feed/domain"
)

var logger = log.New(os.Stdout, "[window-cache] ", log.LstdFlags)

// A cached window older than a day is worthless for warm start; let it lapse.
const windowTTL = 24 * time.Hour

// WindowCache mirrors candle windows into redis, one slot per subscription
// key. It is a write-behind copy for fast warm start, never a source of
// truth once live data flows.
type WindowCache struct {
	client *redis.Client
	limit  int
}

func NewWindowCache(client *redis.Client, limit int) *WindowCache {
	return &WindowCache{
		client: client,
		limit:  limit,
	}
}

// Load reads the persisted window for the key. Absence and an unparsable
// payload both come back as an empty window; only a store-level failure is
// reported, and callers treat that as absence too.
func (c *WindowCache) Load(ctx context.Context, key domain.SubscriptionKey) ([]domain.Candle, error) {
	raw, err := c.client.Get(ctx, key.CacheKey()).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrPersistenceFailure, err)
	}

	var candles []domain.Candle
	if err := json.Unmarshal([]byte(raw), &candles); err != nil {
		logger.Printf("discarding unparsable cached window for %s: %s", key.String(), err)
		return nil, nil
	}

	return candles, nil
}

// Save persists at most the last limit candles of the window. An empty
// window is a no-op.
func (c *WindowCache) Save(ctx context.Context, key domain.SubscriptionKey, candles []domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	data, err := json.Marshal(trimWindow(candles, c.limit))
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrPersistenceFailure, err)
	}

	if err := c.client.Set(ctx, key.CacheKey(), data, windowTTL).Err(); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrPersistenceFailure, err)
	}
	return nil
}

func trimWindow(candles []domain.Candle, limit int) []domain.Candle {
	if limit > 0 && len(candles) > limit {
		return candles[len(candles)-limit:]
	}
	return candles
}
