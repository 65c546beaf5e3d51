package binance

import (
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spooky-finn/go-binance-feed/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinanceStreamAPI_MarketStream(t *testing.T) {
	endpoint := newStreamServer(t, func(conn *websocket.Conn, r *http.Request) {
		messages := []string{
			`{"stream":"btcusdt@kline_1m","data":{
				"e":"kline","s":"BTCUSDT",
				"k":{"t":1000,"o":"1.0","h":"2.0","l":"0.5","c":"1.5","v":"10","x":false}}}`,
			`{"stream":"btcusdt@kline_1m","data":{"k":{"t":1000,"o":"bad"}}}`, // dropped
			`{"stream":"btcusdt@depth20","data":{
				"lastUpdateId":7,"bids":[["100.1","2"]],"asks":[["100.2","3"]]}}`,
			`{"stream":"btcusdt@kline_1m","data":{
				"e":"kline","s":"BTCUSDT",
				"k":{"t":2000,"o":"1.5","h":"2.5","l":"1.0","c":"2.0","v":"20","x":true}}}`,
		}
		for _, msg := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				t.Errorf("write failed: %s", err)
				break
			}
		}
		conn.Close()
	})

	api := NewBinanceStreamAPI(endpoint)
	key := testSubscriptionKey(t)

	sub, err := api.MarketStream(key)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	var events []domain.MarketEvent
	for ev := range sub.Stream {
		events = append(events, ev)
	}

	require.Len(t, events, 3, "the malformed kline event must be skipped")

	assert.Equal(t, domain.MarketEventKline, events[0].Type)
	assert.Equal(t, int64(1000), events[0].Candle.OpenTime)
	assert.False(t, events[0].Closed)

	assert.Equal(t, domain.MarketEventDepth, events[1].Type)
	assert.Equal(t, [][]string{{"100.1", "2"}}, events[1].Depth.Bids)

	assert.Equal(t, domain.MarketEventKline, events[2].Type)
	assert.Equal(t, int64(2000), events[2].Candle.OpenTime)
	assert.True(t, events[2].Closed)
}

func TestBinanceStreamAPI_MarketStream_DialFailure(t *testing.T) {
	api := NewBinanceStreamAPI("ws://127.0.0.1:1")

	_, err := api.MarketStream(testSubscriptionKey(t))

	assert.ErrorIs(t, err, domain.ErrTransportFailure)
}

func TestBinanceStreamAPI_MarketStream_UnsubscribeEndsStream(t *testing.T) {
	endpoint := newStreamServer(t, func(conn *websocket.Conn, r *http.Request) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	api := NewBinanceStreamAPI(endpoint)
	sub, err := api.MarketStream(testSubscriptionKey(t))
	require.NoError(t, err)

	sub.Unsubscribe()

	select {
	case _, open := <-sub.Stream:
		assert.False(t, open, "the event stream must close after unsubscribing")
	case <-time.After(time.Second):
		t.Fatal("the event stream did not close")
	}
}
