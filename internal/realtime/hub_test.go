package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// recorderConn captures every frame the hub writes.
type recorderConn struct {
	mu       sync.Mutex
	messages [][]byte
	closed   bool
}

func (r *recorderConn) WriteMessage(messageType int, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	r.messages = append(r.messages, buf)
	return nil
}

func (r *recorderConn) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recorderConn) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func (r *recorderConn) last(t *testing.T) Envelope {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		t.Fatal("no messages recorded")
	}
	var env Envelope
	if err := json.Unmarshal(r.messages[len(r.messages)-1], &env); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	return env
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(func() {
		cancel()
		h.Wait()
	})
	return h
}

// waitFor polls until cond holds or the deadline passes. The hub processes
// unregisters and broadcasts on its own goroutine, so tests synchronize by
// observing state instead of sleeping fixed amounts.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestHub_RegisterAndPublish(t *testing.T) {
	h := startHub(t)

	conn := &recorderConn{}
	client := &Client{ID: "c1", Conn: conn}
	h.Register(client)

	h.Subscribe(StoreTopic(7), client.ID)
	h.Publish(StoreTopic(7), EventStockUpdate, map[string]interface{}{"product_id": 42})

	waitFor(t, func() bool { return conn.count() == 1 })

	env := conn.last(t)
	if env.Type != EventStockUpdate {
		t.Errorf("envelope type = %q, want %q", env.Type, EventStockUpdate)
	}
	data, ok := env.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("envelope data = %T, want object", env.Data)
	}
	if data["product_id"] != float64(42) {
		t.Errorf("product_id = %v, want 42", data["product_id"])
	}
}

func TestHub_SubscribeImmediatelyAfterRegister(t *testing.T) {
	h := startHub(t)

	// Register returns with the client visible, so a join issued straight
	// after the upgrade must land every single time.
	for i := 0; i < 1000; i++ {
		client := &Client{ID: fmt.Sprintf("c%d", i), Conn: &recorderConn{}}
		h.Register(client)
		h.Subscribe(StoreTopic(1), client.ID)
		if got := h.SubscriberCount(StoreTopic(1)); got != i+1 {
			t.Fatalf("join %d: SubscriberCount = %d, want %d", i, got, i+1)
		}
	}
}

func TestHub_TopicIsolation(t *testing.T) {
	h := startHub(t)

	stockConn := &recorderConn{}
	orderConn := &recorderConn{}
	h.Register(&Client{ID: "menu", Conn: stockConn})
	h.Register(&Client{ID: "dashboard", Conn: orderConn})

	h.Subscribe(StoreTopic(1), "menu")
	h.Subscribe(OrdersTopic(1), "dashboard")

	h.Publish(OrdersTopic(1), EventOrderNew, map[string]interface{}{"order_number": "ORD-KAFE-00001"})
	waitFor(t, func() bool { return orderConn.count() == 1 })

	// A different store's topic reaches nobody.
	h.Publish(OrdersTopic(2), EventOrderNew, nil)
	h.Publish(StoreTopic(1), EventStockUpdate, nil)
	waitFor(t, func() bool { return stockConn.count() == 1 })

	if orderConn.count() != 1 {
		t.Errorf("dashboard received %d messages, want 1", orderConn.count())
	}
	if got := stockConn.last(t).Type; got != EventStockUpdate {
		t.Errorf("menu session got %q, want %q", got, EventStockUpdate)
	}
}

func TestHub_SubscribeIdempotent(t *testing.T) {
	h := startHub(t)

	conn := &recorderConn{}
	h.Register(&Client{ID: "c1", Conn: conn})

	h.Subscribe(StoreTopic(1), "c1")
	h.Subscribe(StoreTopic(1), "c1")
	if got := h.SubscriberCount(StoreTopic(1)); got != 1 {
		t.Errorf("SubscriberCount = %d, want 1", got)
	}

	h.Publish(StoreTopic(1), EventStockUpdate, nil)
	waitFor(t, func() bool { return conn.count() == 1 })
	if conn.count() != 1 {
		t.Errorf("duplicate subscription delivered %d copies, want 1", conn.count())
	}
}

func TestHub_SubscribeUnknownClient(t *testing.T) {
	h := startHub(t)

	h.Subscribe(StoreTopic(1), "ghost")
	if got := h.SubscriberCount(StoreTopic(1)); got != 0 {
		t.Errorf("SubscriberCount = %d, want 0 for unregistered client", got)
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	h := startHub(t)

	conn := &recorderConn{}
	h.Register(&Client{ID: "c1", Conn: conn})

	h.Subscribe(StoreTopic(1), "c1")
	h.Unsubscribe(StoreTopic(1), "c1")
	h.Unsubscribe(StoreTopic(1), "c1") // second leave is a no-op

	if got := h.SubscriberCount(StoreTopic(1)); got != 0 {
		t.Errorf("SubscriberCount = %d, want 0 after unsubscribe", got)
	}
}

func TestHub_UnregisterDropsMemberships(t *testing.T) {
	h := startHub(t)

	conn := &recorderConn{}
	client := &Client{ID: "c1", Conn: conn}
	h.Register(client)

	h.Subscribe(StoreTopic(1), client.ID)
	h.Subscribe(OrdersTopic(1), client.ID)

	h.Unregister(client)
	waitFor(t, func() bool { return h.ClientCount() == 0 })

	if got := h.SubscriberCount(StoreTopic(1)); got != 0 {
		t.Errorf("store topic still has %d subscribers after unregister", got)
	}
	if got := h.SubscriberCount(OrdersTopic(1)); got != 0 {
		t.Errorf("orders topic still has %d subscribers after unregister", got)
	}

	// Events published after the disconnect never reach the old connection.
	h.Publish(StoreTopic(1), EventStockUpdate, nil)
	h.Publish(OrdersTopic(1), EventOrderNew, nil)
	time.Sleep(10 * time.Millisecond)
	if conn.count() != 0 {
		t.Errorf("disconnected client received %d messages", conn.count())
	}
}

func TestHub_ShutdownClosesConnections(t *testing.T) {
	h := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	conn := &recorderConn{}
	h.Register(&Client{ID: "c1", Conn: conn})

	cancel()
	h.Wait()

	conn.mu.Lock()
	closed := conn.closed
	conn.mu.Unlock()
	if !closed {
		t.Error("connection not closed on hub shutdown")
	}
	if h.ClientCount() != 0 {
		t.Errorf("ClientCount = %d after shutdown, want 0", h.ClientCount())
	}
}

func TestTopicNames(t *testing.T) {
	if got := StoreTopic(12); got != "store:12" {
		t.Errorf("StoreTopic(12) = %q", got)
	}
	if got := OrdersTopic(12); got != "store:12:orders" {
		t.Errorf("OrdersTopic(12) = %q", got)
	}
}
