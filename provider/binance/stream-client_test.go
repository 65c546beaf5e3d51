package binance

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spooky-finn/go-binance-feed/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{}

// newStreamServer runs handler on every upgraded connection and returns the
// ws:// endpoint to dial.
func newStreamServer(t *testing.T, handler func(conn *websocket.Conn, r *http.Request)) string {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %s", err)
			return
		}
		handler(conn, r)
	}))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestBinanceStreamClient_DispatchesByExactTopic(t *testing.T) {
	endpoint := newStreamServer(t, func(conn *websocket.Conn, r *http.Request) {
		assert.Equal(t, "btcusdt@kline_1m/btcusdt@depth20", r.URL.Query().Get("streams"))

		messages := []string{
			`{"stream":"btcusdt@kline_1m","data":{"k":{"t":1000}}}`,
			`{"stream":"btcusdt@depth20","data":{"bids":[],"asks":[]}}`,
			`{"stream":"ethusdt@kline_1m","data":{}}`, // not subscribed, dropped
			`not even json`,                           // dropped, connection survives
			`{"stream":"btcusdt@kline_1m","data":{"k":{"t":2000}}}`,
		}
		for _, msg := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				t.Errorf("write failed: %s", err)
				return
			}
		}
	})

	client := NewBinanceStreamClient(endpoint)
	require.NoError(t, client.Connect("btcusdt@kline_1m", "btcusdt@depth20"))
	defer client.Close()

	assert.Equal(t, StateConnected, client.State())

	klineCh, err := client.Topic("btcusdt@kline_1m")
	require.NoError(t, err)
	depthCh, err := client.Topic("btcusdt@depth20")
	require.NoError(t, err)

	assert.JSONEq(t, `{"k":{"t":1000}}`, string(<-klineCh))
	assert.JSONEq(t, `{"bids":[],"asks":[]}`, string(<-depthCh))
	assert.JSONEq(t, `{"k":{"t":2000}}`, string(<-klineCh),
		"a malformed message in between must not break dispatch")
}

func TestBinanceStreamClient_TransportCloseIsObservable(t *testing.T) {
	endpoint := newStreamServer(t, func(conn *websocket.Conn, r *http.Request) {
		conn.Close()
	})

	client := NewBinanceStreamClient(endpoint)
	require.NoError(t, client.Connect("btcusdt@kline_1m"))

	klineCh, err := client.Topic("btcusdt@kline_1m")
	require.NoError(t, err)

	select {
	case err := <-client.Err():
		assert.ErrorIs(t, err, domain.ErrTransportFailure)
	case <-time.After(time.Second):
		t.Fatal("expected a transport error event")
	}

	assert.Eventually(t, func() bool {
		return client.State() == StateClosed
	}, time.Second, 10*time.Millisecond)

	_, open := <-klineCh
	assert.False(t, open, "topic channels must drain shut after a transport close")
}

func TestBinanceStreamClient_CloseIsIdempotent(t *testing.T) {
	t.Run("NeverConnected", func(t *testing.T) {
		client := NewBinanceStreamClient("ws://127.0.0.1:1")
		assert.NoError(t, client.Close())
		assert.NoError(t, client.Close())
		assert.Equal(t, StateClosed, client.State())
	})

	t.Run("Connected", func(t *testing.T) {
		endpoint := newStreamServer(t, func(conn *websocket.Conn, r *http.Request) {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		})

		client := NewBinanceStreamClient(endpoint)
		require.NoError(t, client.Connect("btcusdt@kline_1m"))

		assert.NoError(t, client.Close())
		assert.NoError(t, client.Close())

		select {
		case err := <-client.Err():
			t.Fatalf("an explicit close must not surface a transport error, got %s", err)
		case <-time.After(100 * time.Millisecond):
		}
	})
}

func TestBinanceStreamClient_ConnectRequiresDisconnectedState(t *testing.T) {
	endpoint := newStreamServer(t, func(conn *websocket.Conn, r *http.Request) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	client := NewBinanceStreamClient(endpoint)
	require.NoError(t, client.Connect("btcusdt@kline_1m"))
	defer client.Close()

	assert.Error(t, client.Connect("btcusdt@depth20"))
}

func TestBinanceStreamClient_DialFailure(t *testing.T) {
	client := NewBinanceStreamClient("ws://127.0.0.1:1")

	err := client.Connect("btcusdt@kline_1m")

	assert.ErrorIs(t, err, domain.ErrTransportFailure)
	assert.Equal(t, StateDisconnected, client.State(), "a failed dial must allow another attempt")
}
