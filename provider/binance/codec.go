package binance

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spooky-finn/go-binance-feed/domain"
)

// The REST klines endpoint answers with rows of the form
// [openTimeMs, "open", "high", "low", "close", "volume", ...trailing fields].
func decodeRestCandle(raw json.RawMessage) (domain.Candle, error) {
	var row []any
	if err := json.Unmarshal(raw, &row); err != nil {
		return domain.Candle{}, fmt.Errorf("%w: %s", domain.ErrMalformedPayload, err)
	}
	if len(row) < 6 {
		return domain.Candle{}, fmt.Errorf("%w: kline row has %d fields, want at least 6", domain.ErrMalformedPayload, len(row))
	}

	openTime, ok := row[0].(float64)
	if !ok {
		return domain.Candle{}, fmt.Errorf("%w: open time is not a number", domain.ErrMalformedPayload)
	}

	var prices [5]float64
	for i := 0; i < 5; i++ {
		v, err := numericText(row[i+1])
		if err != nil {
			return domain.Candle{}, fmt.Errorf("%w: kline row field %d: %s", domain.ErrMalformedPayload, i+1, err)
		}
		prices[i] = v
	}

	return domain.Candle{
		OpenTime: int64(openTime),
		Open:     prices[0],
		High:     prices[1],
		Low:      prices[2],
		Close:    prices[3],
		Volume:   prices[4],
	}, nil
}

func numericText(v any) (float64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("not a string, got %T", v)
	}
	return strconv.ParseFloat(s, 64)
}

// streamKlineData is the payload of a kline-topic stream message.
type streamKlineData struct {
	Event     string      `json:"e"`
	EventTime int64       `json:"E"`
	Symbol    string      `json:"s"`
	Kline     streamKline `json:"k"`
}

type streamKline struct {
	OpenTime int64  `json:"t"`
	Open     string `json:"o"`
	High     string `json:"h"`
	Low      string `json:"l"`
	Close    string `json:"c"`
	Volume   string `json:"v"`
	Closed   bool   `json:"x"`
}

// decodeStreamKline turns a kline stream payload into a candle plus the
// closed flag of its interval.
func decodeStreamKline(raw json.RawMessage) (domain.Candle, bool, error) {
	var data streamKlineData
	if err := json.Unmarshal(raw, &data); err != nil {
		return domain.Candle{}, false, fmt.Errorf("%w: %s", domain.ErrMalformedPayload, err)
	}

	k := data.Kline
	if k.OpenTime == 0 {
		return domain.Candle{}, false, fmt.Errorf("%w: kline event without open time", domain.ErrMalformedPayload)
	}

	fields := [5]string{k.Open, k.High, k.Low, k.Close, k.Volume}
	var prices [5]float64
	for i, s := range fields {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.Candle{}, false, fmt.Errorf("%w: kline event field %d: %s", domain.ErrMalformedPayload, i, err)
		}
		prices[i] = v
	}

	candle := domain.Candle{
		OpenTime: k.OpenTime,
		Open:     prices[0],
		High:     prices[1],
		Low:      prices[2],
		Close:    prices[3],
		Volume:   prices[4],
	}
	return candle, k.Closed, nil
}

// streamDepthData is the payload of a depth20 partial-book stream message.
type streamDepthData struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"`
	Asks         [][]string `json:"asks"`
}

func decodeStreamDepth(raw json.RawMessage) (domain.DepthSnapshot, error) {
	var data streamDepthData
	if err := json.Unmarshal(raw, &data); err != nil {
		return domain.DepthSnapshot{}, fmt.Errorf("%w: %s", domain.ErrMalformedPayload, err)
	}

	return domain.DepthSnapshot{
		Bids: data.Bids,
		Asks: data.Asks,
	}, nil
}
