package domain

import "github.com/gammazero/deque"

type ApplyOutcome string

const (
	// OutcomeAppended - the candle opened a new interval at the tail.
	OutcomeAppended ApplyOutcome = "Appended"
	// OutcomeReplaced - the candle carries the same open time as the tail
	// and overwrote it in place.
	OutcomeReplaced ApplyOutcome = "Replaced"
	// OutcomeDiscarded - the candle is older than the tail; the window is
	// left untouched.
	OutcomeDiscarded ApplyOutcome = "Discarded"
)

// CandleSeries is a bounded, oldest-first candle window with strictly
// ascending unique open times. It is not safe for concurrent use; the
// reconciler owning it serializes access.
type CandleSeries struct {
	limit  int
	window deque.Deque[Candle]
}

func NewCandleSeries(limit int) *CandleSeries {
	return &CandleSeries{limit: limit}
}

// ApplySnapshot replaces the whole window with the given ascending-ordered
// candles, keeping at most the limit most recent ones.
func (s *CandleSeries) ApplySnapshot(candles []Candle) {
	s.window.Clear()

	if len(candles) > s.limit {
		candles = candles[len(candles)-s.limit:]
	}
	for _, c := range candles {
		s.window.PushBack(c)
	}
}

// ApplyLive merges one live candle against the window tail. A candle at the
// tail's open time overwrites the tail, a newer one is appended (evicting the
// oldest entry once the window is full), an older one is discarded.
func (s *CandleSeries) ApplyLive(c Candle) ApplyOutcome {
	if s.window.Len() == 0 {
		s.window.PushBack(c)
		return OutcomeAppended
	}

	last := s.window.Back()
	switch {
	case c.OpenTime == last.OpenTime:
		s.window.Set(s.window.Len()-1, c)
		return OutcomeReplaced

	case c.OpenTime > last.OpenTime:
		s.window.PushBack(c)
		if s.window.Len() > s.limit {
			s.window.PopFront()
		}
		return OutcomeAppended

	default:
		return OutcomeDiscarded
	}
}

func (s *CandleSeries) Len() int {
	return s.window.Len()
}

func (s *CandleSeries) Limit() int {
	return s.limit
}

func (s *CandleSeries) Tail() (Candle, bool) {
	if s.window.Len() == 0 {
		return Candle{}, false
	}
	return s.window.Back(), true
}

// Candles returns a copy of the window, oldest first.
func (s *CandleSeries) Candles() []Candle {
	out := make([]Candle, s.window.Len())
	for i := 0; i < s.window.Len(); i++ {
		out[i] = s.window.At(i)
	}
	return out
}
