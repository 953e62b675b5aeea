// Package realtime implements the in-process publish/subscribe layer feeding
// live stock and order updates to connected menu and dashboard sessions.
// Delivery is best-effort and at-most-once: no persistence, no replay, and a
// publish with zero subscribers is a silent no-op.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"menew-api/prometheus"

	"go.uber.org/zap"
)

// Event types pushed to subscribers.
const (
	EventOrderNew    = "order:new"
	EventOrderUpdate = "order:update"
	EventStockUpdate = "stock:update"
)

// StoreTopic is the topic customer menu sessions subscribe to for stock updates.
func StoreTopic(storeID uint) string {
	return fmt.Sprintf("store:%d", storeID)
}

// OrdersTopic is the topic staff dashboards subscribe to for order events.
func OrdersTopic(storeID uint) string {
	return fmt.Sprintf("store:%d:orders", storeID)
}

// Conn is the minimal connection surface the hub writes to. Production uses
// *websocket.Conn; tests substitute an in-memory recorder.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// TextMessage mirrors the websocket text opcode so the hub does not need the
// websocket package at its call sites.
const TextMessage = 1

// Client is one live connection with the set of topics it joined.
type Client struct {
	ID   string
	Conn Conn
}

// Envelope is the wire format of every server-initiated message.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type message struct {
	topic   string
	event   string
	payload interface{}
}

// Hub owns the topic registry. All connection writes happen on the run loop
// goroutine, so a connection never sees concurrent writes.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	topics  map[string]map[string]bool // topic -> set of client IDs
	byConn  map[string]map[string]bool // client ID -> set of topics

	unregister chan *Client
	broadcast  chan *message
	done       chan struct{}

	log *zap.Logger
}

// NewHub creates a hub. Call Run before publishing.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		topics:     make(map[string]map[string]bool),
		byConn:     make(map[string]map[string]bool),
		unregister: make(chan *Client),
		broadcast:  make(chan *message, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

var hub *Hub

// InitHub creates and stores the process-wide hub.
func InitHub(log *zap.Logger) *Hub {
	hub = NewHub(log)
	return hub
}

// GetHub returns the process-wide hub.
func GetHub() *Hub {
	return hub
}

// Run drains the hub channels until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return
		case client := <-h.unregister:
			h.handleUnregister(client)
		case msg := <-h.broadcast:
			h.handleBroadcast(msg)
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

// Register adds a connection to the hub. Synchronous: once Register returns
// the client is visible to Subscribe, so join requests issued straight after
// the upgrade are never dropped.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	prometheus.WSConnectionsGauge.Inc()
	h.log.Debug("Realtime client registered", zap.String("client_id", client.ID))
}

// Unregister removes a connection and every topic membership it held.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Publish fans an event out to every connection currently subscribed to the
// topic. Fire-and-forget: errors never reach the caller.
func (h *Hub) Publish(topic, event string, payload interface{}) {
	prometheus.RecordEventPublished(event)
	h.broadcast <- &message{topic: topic, event: event, payload: payload}
}

// Subscribe adds the connection to a topic. Idempotent.
func (h *Hub) Subscribe(topic, clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[clientID]; !ok {
		return
	}
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[string]bool)
	}
	h.topics[topic][clientID] = true
	if h.byConn[clientID] == nil {
		h.byConn[clientID] = make(map[string]bool)
	}
	h.byConn[clientID][topic] = true
}

// Unsubscribe removes the connection from a topic. Idempotent.
func (h *Hub) Unsubscribe(topic, clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeMembership(topic, clientID)
}

// SubscriberCount returns how many connections are joined to a topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) removeMembership(topic, clientID string) {
	if h.topics[topic] != nil {
		delete(h.topics[topic], clientID)
		if len(h.topics[topic]) == 0 {
			delete(h.topics, topic)
		}
	}
	if h.byConn[clientID] != nil {
		delete(h.byConn[clientID], topic)
	}
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	for topic := range h.byConn[client.ID] {
		h.removeMembership(topic, client.ID)
	}
	delete(h.byConn, client.ID)
	delete(h.clients, client.ID)
	prometheus.WSConnectionsGauge.Dec()
	h.log.Debug("Realtime client unregistered", zap.String("client_id", client.ID))
}

func (h *Hub) handleBroadcast(msg *message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(Envelope{Type: msg.event, Data: msg.payload})
	if err != nil {
		h.log.Error("Failed to marshal realtime event",
			zap.String("event", msg.event),
			zap.Error(err))
		return
	}

	for clientID := range h.topics[msg.topic] {
		client, ok := h.clients[clientID]
		if !ok {
			continue
		}
		if err := client.Conn.WriteMessage(TextMessage, data); err != nil {
			// Slow or dead subscriber, the read pump will unregister it.
			h.log.Debug("Failed to deliver realtime event",
				zap.String("client_id", clientID),
				zap.String("event", msg.event),
				zap.Error(err))
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		_ = client.Conn.Close()
	}
	h.clients = make(map[string]*Client)
	h.topics = make(map[string]map[string]bool)
	h.byConn = make(map[string]map[string]bool)
}
