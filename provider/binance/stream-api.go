package binance

import (
	"fmt"

	"github.com/spooky-finn/go-binance-feed/domain"
	"github.com/spooky-finn/go-binance-feed/infrastructure/prometheus"
)

// BinanceStreamAPI turns raw combined-stream traffic into typed market
// events. Every subscription gets a connection of its own, so concurrent
// subscriptions never share lifecycle.
type BinanceStreamAPI struct {
	endpoint string
}

func NewBinanceStreamAPI(endpoint string) *BinanceStreamAPI {
	return &BinanceStreamAPI{endpoint: endpoint}
}

// MarketStream connects to the kline and depth topics of the subscription
// and emits decoded events until the transport closes. A message that fails
// to decode is logged and skipped; it never interrupts the stream.
func (bs *BinanceStreamAPI) MarketStream(key domain.SubscriptionKey) (*domain.Subscription[domain.MarketEvent], error) {
	client := NewBinanceStreamClient(bs.endpoint)

	klineTopic := key.KlineTopic()
	depthTopic := key.DepthTopic()
	if err := client.Connect(klineTopic, depthTopic); err != nil {
		return nil, err
	}

	klineCh, err := client.Topic(klineTopic)
	if err != nil {
		client.Close()
		return nil, err
	}
	depthCh, err := client.Topic(depthTopic)
	if err != nil {
		client.Close()
		return nil, err
	}

	out := make(chan domain.MarketEvent)

	go func() {
		defer close(out)

		for klineCh != nil || depthCh != nil {
			select {
			case raw, ok := <-klineCh:
				if !ok {
					klineCh = nil
					continue
				}
				candle, closed, err := decodeStreamKline(raw)
				if err != nil {
					logger.Printf("skipping kline event for %s: %s", key.String(), err)
					promclient.MalformedStreamMessages.Inc()
					continue
				}
				out <- domain.MarketEvent{Type: domain.MarketEventKline, Candle: candle, Closed: closed}

			case raw, ok := <-depthCh:
				if !ok {
					depthCh = nil
					continue
				}
				snapshot, err := decodeStreamDepth(raw)
				if err != nil {
					logger.Printf("skipping depth event for %s: %s", key.String(), err)
					promclient.MalformedStreamMessages.Inc()
					continue
				}
				out <- domain.MarketEvent{Type: domain.MarketEventDepth, Depth: snapshot}
			}
		}
	}()

	return &domain.Subscription[domain.MarketEvent]{
		Stream: out,
		Err:    client.Err(),
		Unsubscribe: func() {
			client.Close()
		},
		Topic: fmt.Sprintf("%s/%s", klineTopic, depthTopic),
	}, nil
}
