package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SubscribeTimeout bounds the wait for a subscription confirmation.
	SubscribeTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		PingInterval:     30 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		SubscribeTimeout: 30 * time.Second,
	}
}

// WSClientImpl implements WSClient using gorilla/websocket.
// Signature subscriptions are one-shot: the node cancels the subscription
// after the notification fires, so there is no resubscribe machinery here.
type WSClientImpl struct {
	endpoint string
	config   WSClientConfig

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subs maps subscription ID to the channel awaiting its notification
	subs   map[int64]chan signatureResult
	subsMu sync.Mutex

	// pendingSubs maps request ID to the waiter expecting the confirmation
	pendingSubs   map[uint64]*sigWaiter
	pendingSubsMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWSClient creates a new WebSocket client and connects to the endpoint.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig) (*WSClientImpl, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	c := &WSClientImpl{
		endpoint:    endpoint,
		config:      cfg,
		subs:        make(map[int64]chan signatureResult),
		pendingSubs: make(map[uint64]*sigWaiter),
		done:        make(chan struct{}),
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	c.conn = conn

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

var _ WSClient = (*WSClientImpl)(nil)

// wsRequest is a JSON-RPC 2.0 request over the socket.
type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// wsMessage is any inbound message: subscription confirmation or notification.
type wsMessage struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Method string          `json:"method"`
	Params *struct {
		Subscription int64 `json:"subscription"`
		Result       struct {
			Context struct {
				Slot int64 `json:"slot"`
			} `json:"context"`
			Value struct {
				Err interface{} `json:"err"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
	Error *rpcError `json:"error"`
}

// sigWaiter is one WaitForSignature call in flight. readLoop routes the
// subscription confirmation and the notification to it; both channels are
// buffered so readLoop never blocks on a slow waiter.
type sigWaiter struct {
	subID  chan int64
	result chan signatureResult
}

// WaitForSignature subscribes to the signature and blocks until the node
// reports confirmed commitment, the transaction fails, or ctx expires.
func (c *WSClientImpl) WaitForSignature(ctx context.Context, signature string) (int64, error) {
	if c.closed.Load() {
		return 0, fmt.Errorf("client closed")
	}

	reqID := c.requestID.Add(1)
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "signatureSubscribe",
		Params: []interface{}{
			signature,
			map[string]string{"commitment": "confirmed"},
		},
	}

	w := &sigWaiter{
		subID:  make(chan int64, 1),
		result: make(chan signatureResult, 1),
	}
	c.pendingSubsMu.Lock()
	c.pendingSubs[reqID] = w
	c.pendingSubsMu.Unlock()

	var subID int64
	haveSub := false
	defer func() {
		c.pendingSubsMu.Lock()
		delete(c.pendingSubs, reqID)
		c.pendingSubsMu.Unlock()

		// readLoop may have registered the subscription after this call
		// stopped listening; pick the ID up so the entry is not leaked.
		if !haveSub {
			select {
			case subID = <-w.subID:
				haveSub = true
			default:
			}
		}
		if haveSub {
			c.subsMu.Lock()
			delete(c.subs, subID)
			c.subsMu.Unlock()
		}
	}()

	c.connMu.Lock()
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := c.conn.WriteJSON(req)
	c.connMu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("write subscribe: %w", err)
	}

	select {
	case subID = <-w.subID:
		haveSub = true
	case <-time.After(c.config.SubscribeTimeout):
		return 0, fmt.Errorf("subscription timeout after %v", c.config.SubscribeTimeout)
	case <-c.done:
		return 0, fmt.Errorf("client closed")
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	select {
	case res := <-w.result:
		if res.Err != nil {
			return 0, fmt.Errorf("transaction failed on chain: %v", res.Err)
		}
		return res.Slot, nil
	case <-c.done:
		return 0, fmt.Errorf("client closed")
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// readLoop dispatches inbound messages to waiters.
func (c *WSClientImpl) readLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.done:
			return
		default:
		}

		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			// Connection lost; wake every waiter with failure by closing.
			c.Close()
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch {
		case msg.Method == "signatureNotification" && msg.Params != nil:
			// One-shot: the node cancels the subscription after this
			// notification, so drop the entry on delivery.
			c.subsMu.Lock()
			ch, ok := c.subs[msg.Params.Subscription]
			if ok {
				delete(c.subs, msg.Params.Subscription)
			}
			c.subsMu.Unlock()
			if ok {
				ch <- signatureResult{
					Slot: msg.Params.Result.Context.Slot,
					Err:  msg.Params.Result.Value.Err,
				}
			}

		case msg.ID != 0:
			// Subscription confirmation: result is the subscription ID.
			c.pendingSubsMu.Lock()
			w, ok := c.pendingSubs[msg.ID]
			if ok {
				delete(c.pendingSubs, msg.ID)
			}
			c.pendingSubsMu.Unlock()
			if !ok {
				continue
			}
			if msg.Error != nil {
				// Waiter times out; nothing useful to deliver.
				continue
			}
			var subID int64
			if err := json.Unmarshal(msg.Result, &subID); err != nil {
				continue
			}
			// Register the result route before the next read. The node may
			// send the one-shot notification immediately after the
			// confirmation; the waiter must not have to race this loop to
			// see it.
			c.subsMu.Lock()
			c.subs[subID] = w.result
			c.subsMu.Unlock()
			w.subID <- subID
		}
	}
}

// pingLoop keeps the connection alive.
func (c *WSClientImpl) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			c.connMu.Unlock()
			if err != nil && !c.closed.Load() {
				c.Close()
				return
			}
		}
	}
}

// Close closes the WebSocket connection. Safe to call multiple times.
func (c *WSClientImpl) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(c.done)

	c.connMu.Lock()
	err := c.conn.Close()
	c.connMu.Unlock()
	return err
}
