package domain

type MarketEventType string

const (
	MarketEventKline MarketEventType = "Kline"
	MarketEventDepth MarketEventType = "Depth"
)

// MarketEvent is one decoded message from the live stream, tagged by the
// topic type it was dispatched from.
type MarketEvent struct {
	Type   MarketEventType
	Candle Candle
	// Closed reports whether the candle is the final update of its interval.
	Closed bool
	Depth  DepthSnapshot
}
