package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/spooky-finn/go-binance-feed/domain"
)

var logger = log.New(os.Stdout, "[binance] ", log.LstdFlags)

// BinanceSyncAPI performs the one-shot request/response calls against the
// venue's REST endpoints.
type BinanceSyncAPI struct {
	endpoint string
	client   *http.Client
}

func NewBinanceSyncAPI(endpoint string) *BinanceSyncAPI {
	return &BinanceSyncAPI{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// CandleHistory fetches up to limit most recent candles for the subscription,
// ascending by open time as the venue guarantees. A transport or status
// failure comes back as ErrTransportFailure; the caller is expected to log it
// and keep serving cached and live-only data.
func (api *BinanceSyncAPI) CandleHistory(ctx context.Context, key domain.SubscriptionKey, limit int) ([]domain.Candle, error) {
	url := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&limit=%d",
		api.endpoint, key.Symbol.Rest(), key.Interval, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrTransportFailure, err)
	}

	res, err := api.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrTransportFailure, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("%w: klines request for %s answered with status %d",
			domain.ErrTransportFailure, key.String(), res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrTransportFailure, err)
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrMalformedPayload, err)
	}

	candles := make([]domain.Candle, 0, len(rows))
	for _, row := range rows {
		candle, err := decodeRestCandle(row)
		if err != nil {
			// A bad row is dropped on its own, the batch survives.
			logger.Printf("skipping kline row for %s: %s", key.String(), err)
			continue
		}
		candles = append(candles, candle)
	}

	return candles, nil
}
