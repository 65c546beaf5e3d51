package domain

import "fmt"

// Subscription is a handle to a stream of decoded events for a single topic set.
type Subscription[T any] struct {
	Stream      chan T
	Err         <-chan error
	Unsubscribe func()
	Topic       string
}

var supportedIntervals = map[string]struct{}{
	"1s": {}, "1m": {}, "3m": {}, "5m": {}, "15m": {}, "30m": {},
	"1h": {}, "2h": {}, "4h": {}, "6h": {}, "8h": {}, "12h": {},
	"1d": {}, "3d": {}, "1w": {}, "1M": {},
}

// SubscriptionKey identifies one cache slot and one live-stream topic set.
// It is immutable for the lifetime of a subscription.
type SubscriptionKey struct {
	Symbol   *MarketSymbol
	Interval string
}

func NewSubscriptionKey(symbol *MarketSymbol, interval string) (SubscriptionKey, error) {
	if symbol == nil {
		return SubscriptionKey{}, fmt.Errorf("symbol must not be nil")
	}
	if _, ok := supportedIntervals[interval]; !ok {
		return SubscriptionKey{}, fmt.Errorf("%w: %q", ErrUnsupportedInterval, interval)
	}
	return SubscriptionKey{Symbol: symbol, Interval: interval}, nil
}

func (k SubscriptionKey) String() string {
	return fmt.Sprintf("%s@%s", k.Symbol.String(), k.Interval)
}

// CacheKey is the local-store slot for this subscription's candle window.
func (k SubscriptionKey) CacheKey() string {
	return fmt.Sprintf("kline_data_%s_%s", k.Symbol.Rest(), k.Interval)
}

// KlineTopic is the venue topic carrying candle updates for this subscription.
func (k SubscriptionKey) KlineTopic() string {
	return fmt.Sprintf("%s@kline_%s", k.Symbol.Stream(), k.Interval)
}

// DepthTopic is the venue topic carrying top-of-book snapshots, 20 levels.
func (k SubscriptionKey) DepthTopic() string {
	return fmt.Sprintf("%s@depth20", k.Symbol.Stream())
}
