package domain

import (
	"context"
	"log"
	"os"
	"sync"
	"time"
)

var logger = log.New(os.Stdout, "[series-reconciler] ", log.LstdFlags)

const persistTimeout = 5 * time.Second

// SeriesReconciler merges a history snapshot and a live candle stream into
// the single authoritative window of a subscription, and mirrors the window
// to the cache after every change. It is the only writer of its window.
type SeriesReconciler struct {
	key    SubscriptionKey
	series *CandleSeries
	cache  WindowCache

	mu sync.Mutex
}

func NewSeriesReconciler(key SubscriptionKey, limit int, cache WindowCache) *SeriesReconciler {
	return &SeriesReconciler{
		key:    key,
		series: NewCandleSeries(limit),
		cache:  cache,
	}
}

// Restore seeds the window from a cache-loaded copy for instant availability.
// The copy is speculative: the next history snapshot replaces it wholesale,
// so it is not written back to the cache.
func (r *SeriesReconciler) Restore(candles []Candle) {
	if len(candles) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.series.ApplySnapshot(candles)
}

// ApplySnapshot replaces the window with a freshly fetched history snapshot.
// The snapshot always wins over cache-derived or live-accumulated state:
// it is newer and internally contiguous, while a window built mid-stream
// may carry gaps.
func (r *SeriesReconciler) ApplySnapshot(candles []Candle) {
	if len(candles) == 0 {
		return
	}

	r.mu.Lock()
	r.series.ApplySnapshot(candles)
	window := r.series.Candles()
	r.mu.Unlock()

	r.persist(window)
}

// ApplyLiveCandle merges one live candle (see CandleSeries.ApplyLive).
// The closed flag does not change merge behavior; it only tells consumers
// to expect a new interval next.
func (r *SeriesReconciler) ApplyLiveCandle(candle Candle, closed bool) ApplyOutcome {
	r.mu.Lock()
	outcome := r.series.ApplyLive(candle)
	var window []Candle
	if outcome != OutcomeDiscarded {
		window = r.series.Candles()
	}
	r.mu.Unlock()

	if outcome == OutcomeDiscarded {
		// Stale or reordered push delivery. Expected and benign.
		return outcome
	}

	r.persist(window)
	return outcome
}

// Window returns a copy of the current window, oldest first.
func (r *SeriesReconciler) Window() []Candle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.series.Candles()
}

func (r *SeriesReconciler) Limit() int {
	return r.series.Limit()
}

// persist mirrors the window to the cache off the live path. A storage
// failure is logged and dropped; it never reaches the feed.
func (r *SeriesReconciler) persist(window []Candle) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		if err := r.cache.Save(ctx, r.key, window); err != nil {
			logger.Printf("failed to persist window for %s: %s", r.key.String(), err)
		}
	}()
}
