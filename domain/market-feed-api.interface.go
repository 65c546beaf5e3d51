package domain

import "context"

// HistoryAPI is the one-shot bulk fetch of the most recent candles for a
// subscription. A failed fetch is an optimization lost, not a feed failure.
type HistoryAPI interface {
	CandleHistory(ctx context.Context, key SubscriptionKey, limit int) ([]Candle, error)
}

// MarketStreamAPI opens the live push channel for a subscription and hands
// back decoded market events.
type MarketStreamAPI interface {
	MarketStream(key SubscriptionKey) (*Subscription[MarketEvent], error)
}

// WindowCache is the write-behind mirror of a candle window. It is never a
// source of truth once live data has started flowing.
type WindowCache interface {
	Load(ctx context.Context, key SubscriptionKey) ([]Candle, error)
	Save(ctx context.Context, key SubscriptionKey, candles []Candle) error
}
