package stream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/solroute-labs/pricemonitor/internal/logging"
)

// newTestServer starts a WS server that reads the first accountSubscribe
// on each connection, acks it with the fixed server subscription id 7, and
// then pushes one accountNotification for that subscription.
func newTestServer(t *testing.T, slot uint64, payload []byte) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var reqID int
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req subscribeRequest
		_ = json.Unmarshal(raw, &req)
		reqID = req.ID

		ack := map[string]interface{}{"jsonrpc": "2.0", "id": reqID, "result": 7}
		if err := conn.WriteJSON(ack); err != nil {
			return
		}

		notif := map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "accountNotification",
			"params": map[string]interface{}{
				"subscription": 7,
				"result": map[string]interface{}{
					"context": map[string]interface{}{"slot": slot},
					"value": map[string]interface{}{
						"data": [2]string{base64.StdEncoding.EncodeToString(payload), "base64"},
					},
				},
			},
		}
		_ = conn.WriteJSON(notif)

		// keep the connection open briefly so the client's read isn't torn
		// down before it processes the notification.
		time.Sleep(200 * time.Millisecond)
	})
	return httptest.NewServer(mux)
}

func TestSubscriptionManager_SubscribeAckAndNotify(t *testing.T) {
	payload := []byte{1, 2, 3, 4}
	srv := newTestServer(t, 42, payload)
	defer srv.Close()

	wsURL := "ws" + srv.URL[len("http"):]

	out := make(chan Update, 10)
	pools := []PoolSubscription{{PoolID: "PoolAAA", Identity: "SOL-USDC:raydium-amm"}}
	mgr := New(wsURL, pools, out, logging.New("test"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- mgr.Run(ctx) }()

	select {
	case upd := <-out:
		if upd.Identity != "SOL-USDC:raydium-amm" {
			t.Fatalf("identity = %q", upd.Identity)
		}
		if upd.Slot != 42 {
			t.Fatalf("slot = %d, want 42", upd.Slot)
		}
		if string(upd.Data) != string(payload) {
			t.Fatalf("data = %v, want %v", upd.Data, payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for update")
	}

	cancel()
	<-done
}

func TestSubscriptionManager_RetriesUntilCancelled(t *testing.T) {
	// Use an unreachable address to force repeated dial failures and check
	// Run eventually stops once the context is cancelled, without hanging.
	out := make(chan Update, 1)
	mgr := New("ws://127.0.0.1:1", nil, out, logging.New("test"))

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	err := mgr.Run(ctx)
	if err == nil {
		t.Fatal("expected context deadline error")
	}
}
