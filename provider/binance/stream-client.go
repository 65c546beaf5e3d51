package binance

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/spooky-finn/go-binance-feed/domain"
)

type ConnState string

const (
	StateDisconnected ConnState = "Disconnected"
	StateConnecting   ConnState = "Connecting"
	StateConnected    ConnState = "Connected"
	StateClosed       ConnState = "Closed"
)

const handshakeTimeout = 5 * time.Second

// streamEnvelope is the wrapper of every combined-stream message.
type streamEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// BinanceStreamClient owns one combined-stream websocket connection. The
// topic set is fixed at dial time through the stream URL; inbound messages
// are dispatched to per-topic channels by the exact stream name. The client
// never reconnects on its own: a transport close surfaces as StateClosed and
// reconnection stays a caller policy.
type BinanceStreamClient struct {
	endpoint string

	mu     sync.Mutex
	state  ConnState
	conn   *websocket.Conn
	topics map[string]chan json.RawMessage
	errc   chan error
}

func NewBinanceStreamClient(endpoint string) *BinanceStreamClient {
	return &BinanceStreamClient{
		endpoint: endpoint,
		state:    StateDisconnected,
		topics:   make(map[string]chan json.RawMessage),
		errc:     make(chan error, 1),
	}
}

// Connect dials the combined-stream URL for the given topics and starts the
// read loop. Valid only from StateDisconnected.
func (c *BinanceStreamClient) Connect(topics ...string) error {
	if len(topics) == 0 {
		return fmt.Errorf("at least one topic is required")
	}

	c.mu.Lock()
	if c.state != StateDisconnected {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("cannot connect from state %s", state)
	}
	c.state = StateConnecting
	for _, topic := range topics {
		c.topics[topic] = make(chan json.RawMessage)
	}
	c.mu.Unlock()

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
	}

	url := fmt.Sprintf("%s/stream?streams=%s", c.endpoint, strings.Join(topics, "/"))
	conn, _, err := dialer.Dial(url, nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = StateDisconnected
		for _, topic := range topics {
			delete(c.topics, topic)
		}
		return fmt.Errorf("%w: dialing %s: %s", domain.ErrTransportFailure, url, err)
	}
	if c.state == StateClosed {
		// Close raced the dial. Tear the fresh connection down again.
		conn.Close()
		return fmt.Errorf("stream client closed while connecting")
	}

	c.conn = conn
	c.state = StateConnected
	logger.Printf("connected to stream %s", url)

	go c.read(conn)
	return nil
}

// Topic returns the dispatch channel of one of the connected topics. The
// channel is closed when the transport closes.
func (c *BinanceStreamClient) Topic(topic string) (<-chan json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, ok := c.topics[topic]
	if !ok {
		return nil, fmt.Errorf("not connected to topic %q", topic)
	}
	return ch, nil
}

// Err surfaces transport-level errors as observable events. An error on this
// channel does not by itself terminate the subscription.
func (c *BinanceStreamClient) Err() <-chan error {
	return c.errc
}

func (c *BinanceStreamClient) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close tears the connection down. Safe to call at any time, in any state,
// any number of times.
func (c *BinanceStreamClient) Close() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.state = StateClosed
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (c *BinanceStreamClient) read(conn *websocket.Conn) {
	defer c.shutdown()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			// An explicit Close also lands here; only an unsolicited
			// transport close is worth reporting.
			if c.State() != StateClosed {
				c.emitErr(fmt.Errorf("%w: %s", domain.ErrTransportFailure, err))
			}
			return
		}

		var envelope streamEnvelope
		if err := json.Unmarshal(msg, &envelope); err != nil {
			// One broken message must not take the connection down.
			logger.Printf("dropping undecodable stream message: %s", err)
			continue
		}
		if envelope.Stream == "" {
			// Subscription acks and other control frames carry no stream tag.
			continue
		}

		c.mu.Lock()
		ch, ok := c.topics[envelope.Stream]
		c.mu.Unlock()
		if ok {
			ch <- envelope.Data
		}
	}
}

// shutdown finishes the lifecycle after the transport is gone: the state
// becomes Closed and the topic channels drain shut. Runs exactly once per
// connection, from the read loop.
func (c *BinanceStreamClient) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateClosed
	for topic, ch := range c.topics {
		close(ch)
		delete(c.topics, topic)
	}
}

func (c *BinanceStreamClient) emitErr(err error) {
	select {
	case c.errc <- err:
	default:
	}
}
