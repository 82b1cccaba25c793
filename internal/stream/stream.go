// Package stream implements the streaming subscription manager: it dials
// a WebSocket JSON-RPC endpoint, subscribes to a configured set of pool
// accounts, and forwards decoded account notifications to the pipeline
// over a bounded channel. Reconnection uses exponential backoff.
package stream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/solroute-labs/pricemonitor/internal/errs"
	"github.com/solroute-labs/pricemonitor/internal/logging"
)

// PoolSubscription names one account to subscribe to and the pool
// identity the pipeline should associate with its updates.
type PoolSubscription struct {
	PoolID   string // base58 account pubkey
	Identity string // pipeline-facing pool identity, e.g. "SOL-USDC:raydium-amm"
}

// Update is a decoded notification ready for the pipeline: which pool it
// belongs to, the slot it was observed at, and the raw account bytes.
type Update struct {
	Identity string
	Slot     uint64
	Data     []byte
}

const (
	backoffBase = 100 * time.Millisecond
	backoffCap  = 30 * time.Second
)

// subscribeRequest is the accountSubscribe JSON-RPC envelope.
type subscribeRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type subscribeParams struct {
	Encoding   string `json:"encoding"`
	Commitment string `json:"commitment"`
}

// envelope covers both the subscribe-ack and notification shapes; only
// the fields relevant to one or the other are populated on a given
// message.
type envelope struct {
	ID     *int            `json:"id"`
	Result json.RawMessage `json:"result"`
	Method string          `json:"method"`
	Params *notifyParams   `json:"params"`
}

type notifyParams struct {
	Subscription uint64 `json:"subscription"`
	Result       struct {
		Context struct {
			Slot uint64 `json:"slot"`
		} `json:"context"`
		Value struct {
			Data [2]string `json:"data"`
		} `json:"value"`
	} `json:"result"`
}

// SubscriptionManager owns one WebSocket connection and the pool
// subscription list for it.
type SubscriptionManager struct {
	url   string
	pools []PoolSubscription
	out   chan<- Update
	log   *logging.Logger

	mu            sync.Mutex
	conn          *websocket.Conn
	subByServerID map[uint64]string // server subscription id -> pool identity

	// OnConnectionState is called with true right after a successful
	// subscribe, and false whenever the connection is lost, for the health
	// reporter. May be nil.
	OnConnectionState func(connected bool)
}

// New builds a SubscriptionManager. out must be a buffered channel; the
// manager blocks sending to it rather than dropping updates.
func New(url string, pools []PoolSubscription, out chan<- Update, log *logging.Logger) *SubscriptionManager {
	return &SubscriptionManager{url: url, pools: pools, out: out, log: log}
}

// Run connects and re-connects until ctx is cancelled. Each successful
// connect re-subscribes to every configured pool from scratch; subscription
// IDs from a prior connection are never reused.
func (m *SubscriptionManager) Run(ctx context.Context) error {
	delay := backoffBase
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		connected, err := m.connectAndServe(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			m.log.Warnf("stream: connection lost: %v", err)
		}
		if connected {
			// reached Live at least once; forget prior backoff growth
			delay = backoffBase
		}

		m.log.Infof("stream: reconnecting in %s", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay *= 2
		if delay > backoffCap {
			delay = backoffCap
		}
		// add a little jitter so many subscribers don't retry in lockstep
		delay += time.Duration(rand.Int63n(int64(50 * time.Millisecond)))
	}
}

// connectAndServe dials, subscribes, and serves notifications until the
// connection drops or ctx is cancelled. The returned bool reports whether
// it ever reached a fully subscribed state, so Run knows whether to reset
// its backoff.
func (m *SubscriptionManager) connectAndServe(ctx context.Context) (bool, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, m.url, nil)
	if err != nil {
		return false, fmt.Errorf("%w: dial %s: %v", errs.ErrTransport, m.url, err)
	}
	defer conn.Close()

	m.mu.Lock()
	m.conn = conn
	m.subByServerID = make(map[uint64]string)
	m.mu.Unlock()

	if err := m.subscribeAll(conn); err != nil {
		return false, err
	}

	m.log.Infof("stream: connected and subscribed to %d pools", len(m.pools))
	if m.OnConnectionState != nil {
		m.OnConnectionState(true)
	}
	defer func() {
		if m.OnConnectionState != nil {
			m.OnConnectionState(false)
		}
	}()

	return true, m.readLoop(ctx, conn)
}

func (m *SubscriptionManager) subscribeAll(conn *websocket.Conn) error {
	for i, pool := range m.pools {
		req := subscribeRequest{
			JSONRPC: "2.0",
			ID:      i + 1,
			Method:  "accountSubscribe",
			Params: []interface{}{
				pool.PoolID,
				subscribeParams{Encoding: "base64", Commitment: "processed"},
			},
		}
		if err := conn.WriteJSON(req); err != nil {
			return fmt.Errorf("%w: subscribe %s: %v", errs.ErrTransport, pool.Identity, err)
		}
	}
	return nil
}

func (m *SubscriptionManager) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("%w: read: %v", errs.ErrTransport, err)
		}

		if err := m.handleMessage(ctx, data); err != nil {
			m.log.Debugf("stream: dropping message: %v", err)
		}
	}
}

func (m *SubscriptionManager) handleMessage(ctx context.Context, raw []byte) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrParse, err)
	}

	switch {
	case env.Method == "accountNotification":
		return m.handleNotification(ctx, env)
	case env.ID != nil:
		return m.handleAck(env)
	default:
		return fmt.Errorf("%w: unrecognized envelope", errs.ErrParse)
	}
}

func (m *SubscriptionManager) handleAck(env envelope) error {
	var serverSubID uint64
	if err := json.Unmarshal(env.Result, &serverSubID); err != nil {
		return fmt.Errorf("%w: ack result: %v", errs.ErrParse, err)
	}
	idx := *env.ID - 1
	if idx < 0 || idx >= len(m.pools) {
		return fmt.Errorf("%w: ack id %d out of range", errs.ErrParse, *env.ID)
	}

	m.mu.Lock()
	m.subByServerID[serverSubID] = m.pools[idx].Identity
	m.mu.Unlock()
	return nil
}

func (m *SubscriptionManager) handleNotification(ctx context.Context, env envelope) error {
	if env.Params == nil {
		return fmt.Errorf("%w: notification missing params", errs.ErrParse)
	}

	m.mu.Lock()
	identity, ok := m.subByServerID[env.Params.Subscription]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: server subscription %d", errs.ErrUnknownSubscription, env.Params.Subscription)
	}

	data, err := base64.StdEncoding.DecodeString(env.Params.Result.Value.Data[0])
	if err != nil {
		return fmt.Errorf("%w: account data base64: %v", errs.ErrParse, err)
	}

	update := Update{Identity: identity, Slot: env.Params.Result.Context.Slot, Data: data}
	select {
	case m.out <- update:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
