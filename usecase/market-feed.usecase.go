package usecase

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/spooky-finn/go-binance-feed/domain"
	"github.com/spooky-finn/go-binance-feed/infrastructure/prometheus"
)

var logger = log.New(os.Stdout, "[market-feed-usecase] ", log.LstdFlags)

const (
	cacheLoadTimeout = 3 * time.Second
	fetchTimeout     = 15 * time.Second
)

// MarketFeedUseCase wires cache, history fetch and live stream together,
// one feed per subscription key. Each feed owns exactly one window and one
// depth snapshot; all window mutations funnel through its reconciler.
type MarketFeedUseCase struct {
	historyAPI domain.HistoryAPI
	streamAPI  domain.MarketStreamAPI
	cache      domain.WindowCache
	limit      int

	mu    sync.Mutex
	feeds map[string]*feed
}

type feed struct {
	key        domain.SubscriptionKey
	reconciler *domain.SeriesReconciler
	depth      *domain.DepthSnapshotStore
	done       chan struct{}

	mu      sync.Mutex
	sub     *domain.Subscription[domain.MarketEvent]
	stopped bool
}

func (f *feed) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func NewMarketFeedUseCase(
	historyAPI domain.HistoryAPI,
	streamAPI domain.MarketStreamAPI,
	cache domain.WindowCache,
	limit int,
) *MarketFeedUseCase {
	return &MarketFeedUseCase{
		historyAPI: historyAPI,
		streamAPI:  streamAPI,
		cache:      cache,
		limit:      limit,
		feeds:      make(map[string]*feed),
	}
}

// Start opens a feed for the key: the cached window becomes visible at once,
// then the history fetch and the live connection are launched concurrently.
// Interleaving between the two does not matter: a resolving snapshot
// replaces the window wholesale, and if it never resolves the live stream
// alone converges to a full window.
func (u *MarketFeedUseCase) Start(key domain.SubscriptionKey) error {
	f := &feed{
		key:        key,
		reconciler: domain.NewSeriesReconciler(key, u.limit, u.cache),
		depth:      domain.NewDepthSnapshotStore(),
		done:       make(chan struct{}),
	}

	u.mu.Lock()
	if existing, ok := u.feeds[key.String()]; ok && !existing.isStopped() {
		u.mu.Unlock()
		return domain.ErrFeedExists
	}
	u.feeds[key.String()] = f
	u.mu.Unlock()

	u.warmStart(f)
	go u.connectStream(f)
	go u.fetchSnapshot(f)

	promclient.OpenFeedsGauge.Inc()
	logger.Printf("feed started for %s", key.String())
	return nil
}

// Stop closes the live connection of the feed. The last-known window and
// depth snapshot stay observable; only a new Start for the same key
// replaces them.
func (u *MarketFeedUseCase) Stop(key domain.SubscriptionKey) error {
	u.mu.Lock()
	f, ok := u.feeds[key.String()]
	u.mu.Unlock()
	if !ok {
		return domain.ErrFeedNotFound
	}

	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return nil
	}
	f.stopped = true
	sub := f.sub
	f.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}

	promclient.OpenFeedsGauge.Dec()
	logger.Printf("feed stopped for %s", key.String())
	return nil
}

// Window returns a copy of the feed's current candle window, oldest first.
func (u *MarketFeedUseCase) Window(key domain.SubscriptionKey) ([]domain.Candle, error) {
	u.mu.Lock()
	f, ok := u.feeds[key.String()]
	u.mu.Unlock()
	if !ok {
		return nil, domain.ErrFeedNotFound
	}
	return f.reconciler.Window(), nil
}

// Depth returns the feed's latest top-of-book snapshot.
func (u *MarketFeedUseCase) Depth(key domain.SubscriptionKey) (domain.DepthSnapshot, error) {
	u.mu.Lock()
	f, ok := u.feeds[key.String()]
	u.mu.Unlock()
	if !ok {
		return domain.DepthSnapshot{}, domain.ErrFeedNotFound
	}
	return f.depth.Snapshot(), nil
}

// Close stops every active feed.
func (u *MarketFeedUseCase) Close() {
	u.mu.Lock()
	keys := make([]domain.SubscriptionKey, 0, len(u.feeds))
	for _, f := range u.feeds {
		keys = append(keys, f.key)
	}
	u.mu.Unlock()

	for _, key := range keys {
		if err := u.Stop(key); err != nil {
			logger.Printf("failed to stop feed %s: %s", key.String(), err)
		}
	}
}

func (u *MarketFeedUseCase) warmStart(f *feed) {
	ctx, cancel := context.WithTimeout(context.Background(), cacheLoadTimeout)
	defer cancel()

	cached, err := u.cache.Load(ctx, f.key)
	if err != nil {
		// Treated as absence. The feed starts from an empty window.
		logger.Printf("cache load for %s failed: %s", f.key.String(), err)
		return
	}
	if len(cached) == 0 {
		return
	}

	f.reconciler.Restore(cached)
	logger.Printf("restored %d cached candles for %s", len(cached), f.key.String())
}

func (u *MarketFeedUseCase) connectStream(f *feed) {
	if f.isStopped() {
		close(f.done)
		return
	}

	sub, err := u.streamAPI.MarketStream(f.key)
	if err != nil {
		// The feed keeps serving the cached window and whatever the
		// snapshot fetch brings in.
		logger.Printf("live stream for %s failed to connect: %s", f.key.String(), err)
		close(f.done)
		return
	}

	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		sub.Unsubscribe()
		close(f.done)
		return
	}
	f.sub = sub
	f.mu.Unlock()

	u.run(f, sub)
}

// run is the single consumer of a feed's event stream, and with it the only
// writer of the feed's window and depth snapshot.
func (u *MarketFeedUseCase) run(f *feed, sub *domain.Subscription[domain.MarketEvent]) {
	defer close(f.done)

	for {
		select {
		case ev, ok := <-sub.Stream:
			if !ok {
				logger.Printf("live stream for %s ended", f.key.String())
				return
			}

			switch ev.Type {
			case domain.MarketEventKline:
				outcome := f.reconciler.ApplyLiveCandle(ev.Candle, ev.Closed)
				if outcome == domain.OutcomeDiscarded {
					promclient.StaleCandlesDiscarded.Inc()
				} else {
					promclient.LiveCandlesApplied.Inc()
				}

			case domain.MarketEventDepth:
				f.depth.Replace(ev.Depth)
				promclient.DepthSnapshotsReplaced.Inc()

			default:
				logger.Printf("ignoring market event of unknown type %q", ev.Type)
			}

		case err := <-sub.Err:
			// Diagnostic only. The feed stays up until the transport
			// actually closes or the caller stops it.
			logger.Printf("transport error on feed %s: %s", f.key.String(), err)
		}
	}
}

func (u *MarketFeedUseCase) fetchSnapshot(f *feed) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	candles, err := u.historyAPI.CandleHistory(ctx, f.key, u.limit)
	if err != nil {
		promclient.SnapshotFetchFailures.Inc()
		logger.Printf("history snapshot for %s failed, serving cached/live data only: %s", f.key.String(), err)
		return
	}

	// A snapshot landing after Stop is discarded, not applied.
	if f.isStopped() {
		return
	}

	f.reconciler.ApplySnapshot(candles)
	logger.Printf("applied history snapshot of %d candles for %s", len(candles), f.key.String())
}
