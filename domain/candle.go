package domain

import (
	"encoding/json"
	"fmt"
)

// Candle is one fixed-duration OHLCV aggregate. OpenTime is the unique key
// of a candle within a series; the most recent candle of a series is mutated
// in place until its interval closes.
type Candle struct {
	OpenTime int64
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// MarshalJSON serializes the candle as a [t,o,h,l,c,v] row, the shape the
// window cache stores.
func (c Candle) MarshalJSON() ([]byte, error) {
	return json.Marshal([]float64{
		float64(c.OpenTime), c.Open, c.High, c.Low, c.Close, c.Volume,
	})
}

func (c *Candle) UnmarshalJSON(data []byte) error {
	var row []float64
	if err := json.Unmarshal(data, &row); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedPayload, err)
	}
	if len(row) != 6 {
		return fmt.Errorf("%w: candle row has %d fields, want 6", ErrMalformedPayload, len(row))
	}

	c.OpenTime = int64(row[0])
	c.Open = row[1]
	c.High = row[2]
	c.Low = row[3]
	c.Close = row[4]
	c.Volume = row[5]
	return nil
}
